package validation

import (
	"net/mail"
	"strings"
	"unicode"
)

// Phone numbers carry between MinPhoneDigits and MaxPhoneDigits digits.
const (
	MinPhoneDigits = 7
	MaxPhoneDigits = 15
)

// IsEmail reports whether s is a bare address such as "name@example.com".
func IsEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " <>") {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndex(s, "@")
	return strings.Contains(s[at+1:], ".")
}

// PhoneDigits returns the digits of a phone number, allowing a leading "+"
// and the separators space, dash, dot and parentheses. ok is false for any
// other character or a digit count outside the accepted range.
func PhoneDigits(s string) (digits string, ok bool) {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for i, r := range s {
		switch {
		case unicode.IsDigit(r) && r < unicode.MaxASCII:
			b.WriteRune(r)
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
		default:
			return "", false
		}
	}
	digits = b.String()
	if len(digits) < MinPhoneDigits || len(digits) > MaxPhoneDigits {
		return "", false
	}
	return digits, true
}

// IsPhone reports whether s is an acceptable phone number.
func IsPhone(s string) bool {
	_, ok := PhoneDigits(s)
	return ok
}
