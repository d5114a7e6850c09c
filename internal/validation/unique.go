package validation

import (
	"context"
	"fmt"
	"strings"

	"github.com/suteetoe/fleetbill/internal/apperr"
	"gorm.io/gorm"
)

// Key is one condition of a uniqueness check. With several columns the
// value may match any of them.
type Key struct {
	Columns []string
	Value   interface{}
}

// Eq matches column against value
func Eq(column string, value interface{}) Key {
	return Key{Columns: []string{column}, Value: value}
}

// AnyOf matches value against any of columns
func AnyOf(value interface{}, columns ...string) Key {
	return Key{Columns: columns, Value: value}
}

// UniqueCheck describes one uniqueness rule
type UniqueCheck struct {
	Model   interface{}
	Field   string
	Message string
	Keys    []Key
	// ExcludeID is the record's own id on update, 0 on create.
	ExcludeID uint
	// Unscoped includes soft deleted rows, for values that are never reused.
	Unscoped bool
}

// Unique fails with apperr.ErrConflict on Field when another row matches
// every key. A key whose value is nil or empty is "no constraint" and makes
// the whole check pass.
func Unique(ctx context.Context, tx *gorm.DB, c UniqueCheck) error {
	for _, k := range c.Keys {
		if isBlank(k.Value) {
			return nil
		}
	}

	q := tx.WithContext(ctx).Model(c.Model)
	if c.Unscoped {
		q = q.Unscoped()
	}
	for _, k := range c.Keys {
		v := deref(k.Value)
		if len(k.Columns) == 1 {
			q = q.Where(k.Columns[0]+" = ?", v)
			continue
		}
		conds := make([]string, len(k.Columns))
		args := make([]interface{}, len(k.Columns))
		for i, col := range k.Columns {
			conds[i] = col + " = ?"
			args[i] = v
		}
		q = q.Where("("+strings.Join(conds, " OR ")+")", args...)
	}
	if c.ExcludeID != 0 {
		q = q.Where("id <> ?", c.ExcludeID)
	}

	var n int64
	if err := q.Count(&n).Error; err != nil {
		return fmt.Errorf("unique check on %s: %w", c.Field, err)
	}
	if n > 0 {
		msg := c.Message
		if msg == "" {
			msg = fmt.Sprintf("%s already exists", c.Field)
		}
		return apperr.Conflict(c.Field, "%s", msg)
	}
	return nil
}

func isBlank(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case *string:
		return x == nil || *x == ""
	case uint:
		return x == 0
	case *uint:
		return x == nil || *x == 0
	}
	return false
}

func deref(v interface{}) interface{} {
	switch x := v.(type) {
	case *string:
		return *x
	case *uint:
		return *x
	}
	return v
}

// collect runs checks in order and adds their field errors to errs. The
// first infrastructure error stops the run and is returned.
func collect(errs *apperr.Errors, checks ...error) error {
	for _, err := range checks {
		if err == nil {
			continue
		}
		if !apperr.IsValidation(err) {
			return err
		}
		errs.Add(err)
	}
	return nil
}
