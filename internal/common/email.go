package common

import (
	"net/mail"
	"strings"
)

// NormalizeEmail trims and lowercases an address before lookup or storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether email is a bare addr-spec with a dotted domain.
// Display names, angle brackets and single-label hosts are rejected.
func ValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	return strings.Contains(email[strings.LastIndex(email, "@"):], ".")
}
