package service

import (
	"net/mail"
	"strings"
)

// NormalizeEmail trims and lowercases an address and checks that it is a bare
// addr-spec (no display name, no angle brackets).
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrInvalidEmail
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}

	at := strings.LastIndexByte(email, '@')
	if at <= 0 || !strings.Contains(email[at+1:], ".") {
		return "", ErrInvalidEmail
	}

	return email, nil
}
