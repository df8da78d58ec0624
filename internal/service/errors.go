package service

import "errors"

var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("current password is incorrect")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email already registered")
	ErrResetTokenInvalid  = errors.New("token is invalid or has expired")
	ErrEmailDelivery      = errors.New("email delivery failed")
	ErrInvalidToken       = errors.New("invalid token")
)

// ValidationError reports bad client input. It matches ErrValidation as
// well as the underlying cause.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() []error {
	return []error{ErrValidation, e.Err}
}

func invalid(err error) error {
	return &ValidationError{Err: err}
}
