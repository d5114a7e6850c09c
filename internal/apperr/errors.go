// Package apperr defines the error taxonomy shared by validators, the
// access gate and the services.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrTenantRequired    = errors.New("tenant required")
	ErrConflict          = errors.New("conflict")
	ErrConsistency       = errors.New("tenant mismatch")
	ErrBounds            = errors.New("out of bounds")
	ErrInvalid           = errors.New("invalid value")
	ErrLimitReached      = errors.New("limit reached")
	ErrPermission        = errors.New("not permitted")
	ErrNotFound          = errors.New("not found")
	ErrSequenceExhausted = errors.New("sequence exhausted")
)

// FieldError ties a sentinel to the field that caused it
type FieldError struct {
	Err     error
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *FieldError) Unwrap() error { return e.Err }

// New returns a FieldError for kind on field
func New(kind error, field, format string, args ...any) *FieldError {
	return &FieldError{Err: kind, Field: field, Message: fmt.Sprintf(format, args...)}
}

func TenantRequired(field string) *FieldError {
	return New(ErrTenantRequired, field, "a tenant is required")
}

func Conflict(field, format string, args ...any) *FieldError {
	return New(ErrConflict, field, format, args...)
}

func Consistency(field, format string, args ...any) *FieldError {
	return New(ErrConsistency, field, format, args...)
}

func Bounds(field, format string, args ...any) *FieldError {
	return New(ErrBounds, field, format, args...)
}

func Invalid(field, format string, args ...any) *FieldError {
	return New(ErrInvalid, field, format, args...)
}

func LimitReached(field, format string, args ...any) *FieldError {
	return New(ErrLimitReached, field, format, args...)
}

// Errors collects every field error found while validating one entity.
// The zero value is ready to use.
type Errors struct {
	list []*FieldError
}

// Add records err. Nil errors are ignored; non field errors are kept under
// the empty field name.
func (e *Errors) Add(err error) {
	if err == nil {
		return
	}
	var many *Errors
	if errors.As(err, &many) {
		e.list = append(e.list, many.list...)
		return
	}
	var fe *FieldError
	if errors.As(err, &fe) {
		e.list = append(e.list, fe)
		return
	}
	e.list = append(e.list, &FieldError{Err: err, Message: err.Error()})
}

// Has reports whether field already carries an error
func (e *Errors) Has(field string) bool {
	for _, fe := range e.list {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// Len returns the number of recorded errors
func (e *Errors) Len() int { return len(e.list) }

// Fields returns the recorded errors in insertion order
func (e *Errors) Fields() []*FieldError { return e.list }

// Err returns nil when nothing was recorded, the single error when there is
// one, and e otherwise.
func (e *Errors) Err() error {
	switch len(e.list) {
	case 0:
		return nil
	case 1:
		return e.list[0]
	}
	return e
}

func (e *Errors) Error() string {
	parts := make([]string, 0, len(e.list))
	for _, fe := range e.list {
		parts = append(parts, fe.Error())
	}
	return strings.Join(parts, "; ")
}

func (e *Errors) Unwrap() []error {
	errs := make([]error, 0, len(e.list))
	for _, fe := range e.list {
		errs = append(errs, fe)
	}
	return errs
}

// FieldMessages flattens err into field -> message. The first message per
// field wins. Errors without a field are reported under "_".
func FieldMessages(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}
	var list []*FieldError
	var many *Errors
	var fe *FieldError
	switch {
	case errors.As(err, &many):
		list = many.list
	case errors.As(err, &fe):
		list = []*FieldError{fe}
	default:
		out["_"] = err.Error()
		return out
	}
	for _, fe := range list {
		key := fe.Field
		if key == "" {
			key = "_"
		}
		if _, ok := out[key]; !ok {
			out[key] = fe.Message
		}
	}
	return out
}

// FieldNames returns the sorted field names carried by err
func FieldNames(err error) []string {
	m := FieldMessages(err)
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// IsValidation reports whether err is a field level validation failure
// rather than a permission or infrastructure error.
func IsValidation(err error) bool {
	for _, kind := range []error{ErrTenantRequired, ErrConflict, ErrConsistency, ErrBounds, ErrInvalid, ErrLimitReached} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
