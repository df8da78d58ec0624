package domain

import (
	"errors"
	"net/mail"
	"strings"
)

const (
	MaxNameLength     = 100
	MaxEmailLength    = 254
	MinPasswordLength = 8
	// bcrypt ignores everything past 72 bytes
	MaxPasswordBytes = 72
)

// Account validation errors
var (
	ErrNameRequired     = errors.New("name is required")
	ErrNameTooLong      = errors.New("name must be at most 100 characters")
	ErrEmailRequired    = errors.New("email is required")
	ErrInvalidEmail     = errors.New("please provide a valid email")
	ErrPasswordRequired = errors.New("password is required")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrPasswordTooLong  = errors.New("password must be at most 72 bytes")
	ErrMissingLogin     = errors.New("please provide an email and password")
	ErrInvalidAvatar    = errors.New("avatar must be an uploaded avatar key or an http(s) URL")
)

func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameRequired
	}
	if len([]rune(name)) > MaxNameLength {
		return ErrNameTooLong
	}
	return nil
}

func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrEmailRequired
	}
	if len(email) > MaxEmailLength {
		return ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return ErrInvalidEmail
	}
	if !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return ErrInvalidEmail
	}
	return nil
}

func ValidatePassword(password string) error {
	if password == "" {
		return ErrPasswordRequired
	}
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}

// ValidateSignup checks all fields of a new account.
func ValidateSignup(name, email, password string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := ValidateEmail(email); err != nil {
		return err
	}
	return ValidatePassword(password)
}
