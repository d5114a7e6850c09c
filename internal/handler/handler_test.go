package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/fleetbill/internal/access"
	"github.com/suteetoe/fleetbill/internal/identity"
	mid "github.com/suteetoe/fleetbill/internal/middleware"
	"github.com/suteetoe/fleetbill/internal/model"
	"github.com/suteetoe/fleetbill/internal/sequence"
	"github.com/suteetoe/fleetbill/internal/service"
	"github.com/suteetoe/fleetbill/internal/testutil"
	"github.com/suteetoe/fleetbill/pkg/jwtutil"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type testServer struct {
	t   *testing.T
	db  *gorm.DB
	svc *service.Service
	jwt *jwtutil.JWTUtil
	e   *echo.Echo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := testutil.NewDB(t)
	svc := service.New(db, access.NewGate(), sequence.NewGenerator(sequence.DefaultMaxAttempts),
		service.WithPasswordCost(bcrypt.MinCost))
	jwt := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{SigningKey: "test-key", ExpirationHours: 1})

	e := echo.New()
	e.Use(mid.RequestIDMiddleware)
	New(db, svc, jwt).Register(e, mid.NewAuth(jwt, svc.Users).Middleware)
	return &testServer{t: t, db: db, svc: svc, jwt: jwt, e: e}
}

func (s *testServer) token(id identity.Identity) string {
	s.t.Helper()
	token, err := s.jwt.GenerateToken(id.Username, id.UserID, id.TenantID, string(id.Role))
	require.NoError(s.t, err)
	return token
}

// do sends a request as id; an anonymous id sends no token
func (s *testServer) do(id identity.Identity, method, path, body string) *httptest.ResponseRecorder {
	s.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if id.IsAuthenticated() {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+s.token(id))
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(identity.Anonymous(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	rec = s.do(identity.Anonymous(), http.MethodGet, "/health?check=db", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["database"])
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)
	acme := testutil.Tenant(t, s.db, "Acme", "Acme Transport")
	admin := testutil.Admin(t, s.db)
	_, err := s.svc.Users.Create(context.Background(), admin, service.Meta{}, &model.User{
		Username:      "dispatch",
		Role:          model.RoleStaff,
		TenantID:      &acme.ID,
		IsActiveStaff: true,
	}, "s3cret-pass")
	require.NoError(t, err)

	t.Run("wrong password", func(t *testing.T) {
		rec := s.do(identity.Anonymous(), http.MethodPost, "/auth/login", `{"username":"dispatch","password":"nope-nope"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := s.do(identity.Anonymous(), http.MethodPost, "/auth/login", `{"username":"dispatch"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode(t, rec)["fields"], "password")
	})

	t.Run("success", func(t *testing.T) {
		rec := s.do(identity.Anonymous(), http.MethodPost, "/auth/login", `{"username":"dispatch","password":"s3cret-pass"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		body := decode(t, rec)
		token, _ := body["token"].(string)
		require.NotEmpty(t, token)
		assert.NotContains(t, rec.Body.String(), "password")

		req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		me := httptest.NewRecorder()
		s.e.ServeHTTP(me, req)
		require.Equal(t, http.StatusOK, me.Code)
		assert.Equal(t, "dispatch", decode(t, me)["username"])
	})
}

func TestAPI_RequiresToken(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(identity.Anonymous(), http.MethodGet, "/api/vehicles", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/vehicles", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer not-a-token")
	rec = httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPI_DisabledStaffIsRejected(t *testing.T) {
	s := newTestServer(t)
	acme := testutil.Tenant(t, s.db, "Acme", "Acme Transport")
	u, id := testutil.User(t, s.db, "parked", model.RoleStaff, acme)
	require.NoError(t, s.db.Model(u).Update("is_active_staff", false).Error)

	rec := s.do(id, http.MethodGet, "/api/vehicles", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVehicleLifeCycle(t *testing.T) {
	s := newTestServer(t)
	acme := testutil.Tenant(t, s.db, "Acme", "Acme Transport")
	staff := testutil.Staff(t, s.db, acme)

	rec := s.do(staff, http.MethodPost, "/api/vehicles", `{"vehicle_number":"mh12ab1234","notes":"new"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	assert.Equal(t, "MH12AB1234", created["vehicle_number"])
	assert.Equal(t, float64(acme.ID), created["tenant_id"])
	path := fmt.Sprintf("/api/vehicles/%v", created["id"])

	rec = s.do(staff, http.MethodPut, path, `{"notes":"serviced"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode(t, rec)
	assert.Equal(t, "serviced", updated["notes"])
	assert.Equal(t, "MH12AB1234", updated["vehicle_number"])

	rec = s.do(staff, http.MethodGet, "/api/vehicles", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["total"])

	rec = s.do(staff, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(staff, http.MethodGet, path, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestVehicleCreate_Invalid(t *testing.T) {
	s := newTestServer(t)
	acme := testutil.Tenant(t, s.db, "Acme", "Acme Transport")
	staff := testutil.Staff(t, s.db, acme)

	rec := s.do(staff, http.MethodPost, "/api/vehicles", `{"notes":"no number"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["fields"], "vehicle_number")

	rec = s.do(staff, http.MethodPost, "/api/vehicles", `{"vehicle_number":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/vehicles", strings.NewReader(`{"vehicle_number":"MH12AB1234"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMETextPlain)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+s.token(staff))
	rec = httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "bodies are bound as JSON only")
}

func TestVehicle_CrossTenantAccess(t *testing.T) {
	s := newTestServer(t)
	acme := testutil.Tenant(t, s.db, "Acme", "Acme Transport")
	other := testutil.Tenant(t, s.db, "Other", "Other Logistics")
	v := testutil.Vehicle(t, s.db, other, "KA01CD5678")
	staff := testutil.Staff(t, s.db, acme)
	path := fmt.Sprintf("/api/vehicles/%d", v.ID)

	assert.Equal(t, http.StatusForbidden, s.do(staff, http.MethodGet, path, "").Code)
	assert.Equal(t, http.StatusForbidden, s.do(staff, http.MethodPut, path, `{"notes":"mine"}`).Code)
	assert.Equal(t, http.StatusForbidden, s.do(staff, http.MethodDelete, path, "").Code)

	var stored model.Vehicle
	require.NoError(t, s.db.First(&stored, v.ID).Error)
	assert.Empty(t, stored.Notes)

	// a foreign tenant in the body is refused
	body := fmt.Sprintf(`{"vehicle_number":"MH14XY0001","tenant_id":%d}`, other.ID)
	assert.Equal(t, http.StatusForbidden, s.do(staff, http.MethodPost, "/api/vehicles", body).Code)
}

func TestBills(t *testing.T) {
	s := newTestServer(t)
	acme := testutil.Tenant(t, s.db, "Acme", "Acme Transport")
	staff := testutil.Staff(t, s.db, acme)
	v := testutil.Vehicle(t, s.db, acme, "MH12AB1234")

	newBill := func(advance int) map[string]interface{} {
		body := fmt.Sprintf(`{"vehicle_id":%d,"from_location":"Pune","to_location":"Mumbai",`+
			`"rent_amount":10000,"advance_amount":%d,"bill_date":"2026-10-16T00:00:00Z","bill_number":"HACK-9"}`, v.ID, advance)
		rec := s.do(staff, http.MethodPost, "/api/bills", body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		return decode(t, rec)
	}
	first := newBill(0)
	second := newBill(10000)
	assert.Equal(t, "AT-0001", first["bill_number"])
	assert.Equal(t, "AT-0002", second["bill_number"])

	t.Run("filters", func(t *testing.T) {
		rec := s.do(staff, http.MethodGet, "/api/bills?payment_status=paid", "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, float64(1), decode(t, rec)["total"])

		rec = s.do(staff, http.MethodGet, "/api/bills?from=2026-10-16&to=2026-10-16", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, float64(2), decode(t, rec)["total"])

		assert.Equal(t, http.StatusBadRequest, s.do(staff, http.MethodGet, "/api/bills?payment_status=someday", "").Code)
		assert.Equal(t, http.StatusBadRequest, s.do(staff, http.MethodGet, "/api/bills?from=16/10/2026", "").Code)
		assert.Equal(t, http.StatusBadRequest, s.do(staff, http.MethodGet, "/api/bills?from=2026-10-17&to=2026-10-16", "").Code)
	})

	t.Run("number cannot be edited", func(t *testing.T) {
		path := fmt.Sprintf("/api/bills/%v", first["id"])
		rec := s.do(staff, http.MethodPut, path, `{"bill_number":"AT-9999","notes":"checked"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "AT-0001", decode(t, rec)["bill_number"])
	})

	t.Run("plain dates", func(t *testing.T) {
		body := fmt.Sprintf(`{"vehicle_id":%d,"from_location":"Pune","to_location":"Nashik",`+
			`"rent_amount":8000,"advance_amount":0,"bill_date":"2026-10-16"}`, v.ID)
		rec := s.do(staff, http.MethodPost, "/api/bills", body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		created := decode(t, rec)
		assert.Equal(t, "2026-10-16T00:00:00Z", created["bill_date"])

		path := fmt.Sprintf("/api/bills/%v", created["id"])
		rec = s.do(staff, http.MethodPut, path, `{"bill_date":"2026-10-15"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		updated := decode(t, rec)
		assert.Equal(t, "2026-10-15T00:00:00Z", updated["bill_date"])
		assert.Equal(t, "Nashik", updated["to_location"], "fields absent from the body keep their value")

		rec = s.do(staff, http.MethodPut, path, `{"bill_date":"15/10/2026"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("mark paid", func(t *testing.T) {
		body := fmt.Sprintf(`{"ids":[%v,%v]}`, first["id"], second["id"])
		rec := s.do(staff, http.MethodPost, "/api/bills/mark-paid", body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, float64(1), decode(t, rec)["updated"])

		rec = s.do(staff, http.MethodPost, "/api/bills/mark-paid", `{"ids":[]}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestForm(t *testing.T) {
	s := newTestServer(t)
	acme := testutil.Tenant(t, s.db, "Acme", "Acme Transport")
	staff := testutil.Staff(t, s.db, acme)

	rec := s.do(staff, http.MethodGet, "/api/forms/bill", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var form FormResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &form))
	assert.Equal(t, model.KindBill, form.Kind)
	assert.True(t, form.CanCreate)
	assert.ElementsMatch(t, []string{"tenant_id", "bill_number"}, form.Hidden)

	rec = s.do(staff, http.MethodGet, "/api/forms/tenant", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &form))
	assert.False(t, form.CanCreate)

	assert.Equal(t, http.StatusNotFound, s.do(staff, http.MethodGet, "/api/forms/spaceship", "").Code)
}

func TestAuditLogs(t *testing.T) {
	s := newTestServer(t)
	acme := testutil.Tenant(t, s.db, "Acme", "Acme Transport")
	other := testutil.Tenant(t, s.db, "Other", "Other Logistics")
	owner := testutil.Owner(t, s.db, acme)
	otherOwner := testutil.Owner(t, s.db, other)

	require.Equal(t, http.StatusCreated, s.do(owner, http.MethodPost, "/api/parties", `{"name":"Shree Cement"}`).Code)
	require.Equal(t, http.StatusCreated, s.do(otherOwner, http.MethodPost, "/api/parties", `{"name":"Shree Cement"}`).Code)

	rec := s.do(owner, http.MethodGet, "/api/audit-logs?entity=party&action=create", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(1), decode(t, rec)["total"])

	assert.Equal(t, http.StatusNotFound, s.do(owner, http.MethodGet, "/api/audit-logs?entity=spaceship", "").Code)
}

func TestTenants(t *testing.T) {
	s := newTestServer(t)
	admin := testutil.Admin(t, s.db)

	rec := s.do(admin, http.MethodPost, "/api/tenants", `{"name":"Acme","label":"Acme Transport","mobile_number":"9876543210"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	assert.Len(t, created["code"], 8)
	path := fmt.Sprintf("/api/tenants/%v", created["id"])

	rec = s.do(admin, http.MethodPost, "/api/tenants", `{"name":"Acme 2","label":"Acme Transport","mobile_number":"9876543211"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	var acme model.Business
	require.NoError(t, s.db.First(&acme, uint(created["id"].(float64))).Error)
	owner := testutil.Owner(t, s.db, &acme)

	rec = s.do(owner, http.MethodGet, path+"/stats", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(owner, http.MethodGet, path+"/settings", "")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, http.StatusForbidden, s.do(owner, http.MethodPost, "/api/tenants", `{"name":"Mine"}`).Code)

	rec = s.do(admin, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestUsers(t *testing.T) {
	s := newTestServer(t)
	acme := testutil.Tenant(t, s.db, "Acme", "Acme Transport")
	owner := testutil.Owner(t, s.db, acme)

	rec := s.do(owner, http.MethodPost, "/api/users", `{"username":"driver.desk","role":"staff","is_active_staff":true,"password":"short"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["fields"], "password")

	rec = s.do(owner, http.MethodPost, "/api/users", `{"username":"driver.desk","role":"staff","is_active_staff":true,"password":"long-enough"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	assert.Equal(t, float64(acme.ID), created["tenant_id"])
	assert.NotContains(t, rec.Body.String(), "long-enough")

	path := fmt.Sprintf("/api/users/%v", created["id"])
	rec = s.do(owner, http.MethodPut, path, `{"email":"desk@acme.test","password":"even-longer-one"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "desk@acme.test", decode(t, rec)["email"])

	_, err := s.svc.Users.Authenticate(context.Background(), "driver.desk", "even-longer-one")
	assert.NoError(t, err)

	assert.Equal(t, http.StatusNoContent, s.do(owner, http.MethodDelete, path, "").Code)
}
