package service

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/suteetoe/fleetbill/internal/identity"
	"github.com/suteetoe/fleetbill/internal/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// change is one field of an update diff
type change struct {
	From interface{} `json:"from"`
	To   interface{} `json:"to"`
}

// ignoredAuditFields change on every write and say nothing about it
var ignoredAuditFields = map[string]bool{
	"created_at": true,
	"updated_at": true,
}

// writeAudit inserts the audit row of a write in the write's transaction
func writeAudit(ctx context.Context, tx *gorm.DB, id identity.Identity, meta Meta, action model.AuditAction, e model.Entity, changes interface{}) error {
	row := &model.AuditLog{
		TenantID:  e.OwningTenant(),
		UserID:    id.UserID,
		Action:    action,
		Entity:    e.EntityKind(),
		ObjectID:  e.EntityID(),
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}
	if changes != nil {
		raw, err := json.Marshal(changes)
		if err != nil {
			return fmt.Errorf("encode audit changes: %w", err)
		}
		row.Changes = datatypes.JSON(raw)
	}
	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// fields flattens the JSON form of v. Fields tagged json:"-", such as the
// password hash, never reach the audit trail.
func fields(v interface{}) map[string]interface{} {
	out := map[string]interface{}{}
	raw, err := json.Marshal(v)
	if err != nil {
		return out
	}
	_ = json.Unmarshal(raw, &out)
	for k := range ignoredAuditFields {
		delete(out, k)
	}
	return out
}

// created is the audit payload of a create: every field of the new record
func created(v interface{}) map[string]interface{} {
	return fields(v)
}

// diff returns the fields that differ between before and after
func diff(before, after interface{}) map[string]change {
	a, b := fields(before), fields(after)
	out := map[string]change{}
	for k, v := range b {
		if old, ok := a[k]; !ok || !reflect.DeepEqual(old, v) {
			out[k] = change{From: a[k], To: v}
		}
	}
	for k, v := range a {
		if _, ok := b[k]; !ok {
			out[k] = change{From: v}
		}
	}
	return out
}
