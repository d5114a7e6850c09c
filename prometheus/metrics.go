package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Counter metrics
var (
	// Entity writes by kind and operation
	EntityOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetbill_entity_operations_total",
			Help: "Total number of entity writes",
		},
		[]string{"entity", "operation"}, // operation is "create", "update", "delete" or "bulk"
	)

	// Rejected writes by kind and field
	ValidationFailureCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetbill_validation_failures_total",
			Help: "Total number of field validation failures",
		},
		[]string{"entity", "field"},
	)

	// Requests refused by the access gate
	PermissionDeniedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetbill_permission_denied_total",
			Help: "Total number of operations refused by the access gate",
		},
		[]string{"entity", "operation"},
	)

	// Numbers issued from the time based fallback
	SequenceFallbackCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetbill_sequence_fallbacks_total",
			Help: "Total number of document numbers issued from the time based fallback",
		},
		[]string{"entity"},
	)

	LoginCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetbill_login_total",
			Help: "Total number of login attempts",
		},
		[]string{"result"},
	)

	// Rejected bearer tokens by reason
	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetbill_auth_errors_total",
			Help: "Total number of rejected bearer tokens",
		},
		[]string{"reason"},
	)
)

// Histogram metrics
var (
	// Database operation duration
	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleetbill_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Tenant operation duration
	TenantOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleetbill_tenant_operation_duration_seconds",
			Help:    "Duration of tenant operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "tenant_id"},
	)
)

// Gauge metrics
var (
	ActiveTenantsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleetbill_active_tenants",
			Help: "Number of tenants in the active state",
		},
	)

	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fleetbill_info",
			Help: "Information about the billing service",
		},
		[]string{"version"},
	)
)

func init() {
	prometheus.MustRegister(EntityOperationCounter)
	prometheus.MustRegister(ValidationFailureCounter)
	prometheus.MustRegister(PermissionDeniedCounter)
	prometheus.MustRegister(SequenceFallbackCounter)
	prometheus.MustRegister(LoginCounter)
	prometheus.MustRegister(AuthErrorCounter)

	prometheus.MustRegister(DBOperationDuration)
	prometheus.MustRegister(TenantOperationDuration)

	prometheus.MustRegister(ActiveTenantsGauge)
	prometheus.MustRegister(InfoGauge)

	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// TrackDBOperation measures a database operation. Call the returned func
// when the operation is done.
func TrackDBOperation(operation string) func() {
	start := time.Now()
	return func() {
		DBOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(time.Since(start).Seconds())
	}
}

// TrackTenantOperation measures an operation on one tenant
func TrackTenantOperation(operation string, tenantID uint) func() {
	start := time.Now()
	return func() {
		TenantOperationDuration.With(prometheus.Labels{
			"operation": operation,
			"tenant_id": strconv.FormatUint(uint64(tenantID), 10),
		}).Observe(time.Since(start).Seconds())
	}
}

// RecordEntityOperation counts a committed write
func RecordEntityOperation(entity, operation string) {
	EntityOperationCounter.With(prometheus.Labels{"entity": entity, "operation": operation}).Inc()
}

// RecordValidationFailure counts a rejected field
func RecordValidationFailure(entity, field string) {
	ValidationFailureCounter.With(prometheus.Labels{"entity": entity, "field": field}).Inc()
}

// RecordPermissionDenied counts a refused operation
func RecordPermissionDenied(entity, operation string) {
	PermissionDeniedCounter.With(prometheus.Labels{"entity": entity, "operation": operation}).Inc()
}

// RecordSequenceFallback counts a number issued from the fallback
func RecordSequenceFallback(entity string) {
	SequenceFallbackCounter.With(prometheus.Labels{"entity": entity}).Inc()
}

// RecordLogin counts a login attempt by result
func RecordLogin(result string) {
	LoginCounter.With(prometheus.Labels{"result": result}).Inc()
}

// RecordAuthError counts a rejected bearer token
func RecordAuthError(reason string) {
	AuthErrorCounter.With(prometheus.Labels{"reason": reason}).Inc()
}

// UpdateActiveTenants sets the active tenants gauge
func UpdateActiveTenants(count int64) {
	ActiveTenantsGauge.Set(float64(count))
}
