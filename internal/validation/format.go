// Package validation checks entity invariants before a write is committed.
//
// Validators normalize the entity they are given, then collect every field
// error they find into one apperr.Errors value. They read through the
// transaction of the write, so a verdict holds until commit.
package validation

import (
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/suteetoe/fleetbill/internal/apperr"
)

var formats = newFormats()

func newFormats() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
		return isMobile(fl.Field().String())
	})
	_ = v.RegisterValidation("gstin", func(fl validator.FieldLevel) bool {
		return isGSTIN(fl.Field().String())
	})
	_ = v.RegisterValidation("vehicleno", func(fl validator.FieldLevel) bool {
		return vehicleNumberProblem(fl.Field().String()) == ""
	})
	return v
}

// Formats returns the shared validator with the mobile, gstin and vehicleno
// tags registered. Errors name fields by their JSON name. Handlers use it
// for request DTOs.
func Formats() *validator.Validate { return formats }

func isMobile(s string) bool {
	if len(s) != 10 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isGSTIN(s string) bool {
	if len(s) != 15 {
		return false
	}
	for _, r := range s {
		if !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

func vehicleNumberProblem(s string) string {
	if len(s) < 8 {
		return "vehicle number is too short, minimum 8 characters"
	}
	var letter, digit bool
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			letter = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			return "vehicle number can only contain letters and numbers"
		}
	}
	if !digit {
		return "vehicle number should contain at least one number"
	}
	if !letter {
		return "vehicle number should contain at least one letter"
	}
	return ""
}

// NormalizeVehicleNumber uppercases s and strips all whitespace
func NormalizeVehicleNumber(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, s)
}

// NormalizeOptional trims s and turns an empty value into nil
func NormalizeOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// NormalizeGST trims and uppercases a GST number; empty becomes nil
func NormalizeGST(s *string) *string {
	s = NormalizeOptional(s)
	if s == nil {
		return nil
	}
	v := strings.ToUpper(strings.ReplaceAll(*s, " ", ""))
	return &v
}

func checkMobile(errs *apperr.Errors, field, value string) {
	if value == "" {
		return
	}
	if formats.Var(value, "mobile") != nil {
		errs.Add(apperr.Invalid(field, "mobile number must be exactly 10 digits"))
	}
}

func checkOptionalMobile(errs *apperr.Errors, field string, value *string) {
	if value != nil {
		checkMobile(errs, field, *value)
	}
}
