// Package sequence assigns per-tenant document numbers and random codes.
package sequence

import (
	"crypto/rand"
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultBillPrefix is used when a tenant has no label
const DefaultBillPrefix = "BILL"

// BillPrefix derives the bill number prefix from a tenant label: the first
// three letters of a single word, the initials of two words, or the initials
// of the first three words.
func BillPrefix(label string) string {
	words := strings.Fields(label)
	var p string
	switch len(words) {
	case 0:
		return DefaultBillPrefix
	case 1:
		p = firstRunes(words[0], 3)
	default:
		if len(words) > 3 {
			words = words[:3]
		}
		for _, w := range words {
			p += firstRunes(w, 1)
		}
	}
	return strings.ToUpper(p)
}

func firstRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// BillNumber formats a bill number
func BillNumber(prefix string, n int64) string {
	return fmt.Sprintf("%s-%04d", prefix, n)
}

// TripPrefix is the prefix of trip numbers of a tenant
func TripPrefix(tenantCode string) string {
	return "TRIP-" + tenantCode
}

// TripNumber formats a trip number
func TripNumber(tenantCode string, n int64) string {
	return fmt.Sprintf("%s-%06d", TripPrefix(tenantCode), n)
}

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomCode returns n random uppercase letters and digits
func RandomCode(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
