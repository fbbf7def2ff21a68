package password

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// MinLength is the minimum password length accepted by CheckPolicy.
const MinLength = 12

const symbols = "@$!%*?&"

var (
	ErrPolicyLength  = errors.New("password must be at least 12 characters")
	ErrPolicyClasses = errors.New("password must include upper-case and lower-case letters, digits and symbols (@$!%*?&)")
	ErrPolicyCharset = errors.New("password may only contain letters, digits and @$!%*?&")
)

// CheckPolicy validates a new password: at least MinLength characters,
// at most MaxLength bytes, ASCII letters, digits and the symbols @$!%*?&,
// with at least one of each class.
func CheckPolicy(p string) error {
	if utf8.RuneCountInString(p) < MinLength {
		return ErrPolicyLength
	}
	if len(p) > MaxLength {
		return ErrTooLong
	}

	var lower, upper, digit, symbol bool
	for _, r := range p {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(symbols, r):
			symbol = true
		default:
			return ErrPolicyCharset
		}
	}

	if !(lower && upper && digit && symbol) {
		return ErrPolicyClasses
	}
	return nil
}
