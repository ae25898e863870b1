package services

import "errors"

var (
	// ErrValidation is returned when a required field is empty.
	ErrValidation = errors.New("both fields are required")

	// ErrPasswordTooLong is returned when a password exceeds what the
	// hasher accepts.
	ErrPasswordTooLong = errors.New("password is too long")

	// ErrInvalidCredentials is returned for an unknown username or a wrong
	// password. The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid username or password")
)
