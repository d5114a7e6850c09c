package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the format of calendar dates such as bill_date
const DateLayout = "2006-01-02"

// ParseDate reads a calendar date. RFC 3339 timestamps are accepted too.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, use YYYY-MM-DD", s)
	}
	return t, nil
}

// decodeDate sets dst from a JSON string. An absent or null value leaves
// dst unchanged.
func decodeDate(raw json.RawMessage, dst *time.Time) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return err
	}
	t, err := ParseDate(s)
	if err != nil {
		return err
	}
	*dst = t
	return nil
}

// decodeOptionalDate is decodeDate for nullable columns. null clears dst.
func decodeOptionalDate(raw json.RawMessage, dst **time.Time) error {
	if len(raw) == 0 {
		return nil
	}
	if string(raw) == "null" {
		*dst = nil
		return nil
	}
	var t time.Time
	if err := decodeDate(raw, &t); err != nil {
		return err
	}
	*dst = &t
	return nil
}
