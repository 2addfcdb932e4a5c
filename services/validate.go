package services

import (
	"strings"

	"github.com/lborres/portero/core"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
)

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return core.ErrEmailRequired
	}

	// Only checks for one '@' with something on both sides; deliverability
	// is not validated here.
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 || strings.IndexByte(email[at+1:], '@') != -1 {
		return core.ErrInvalidEmail
	}

	return nil
}

func validatePassword(password string) error {
	switch {
	case password == "":
		return core.ErrPasswordRequired
	case len(password) < minPasswordLength:
		return core.ErrPasswordTooShort
	case len(password) > maxPasswordLength:
		return core.ErrPasswordTooLong
	}
	return nil
}
