package users

import "errors"

var (
	// ErrEmailTaken indicates a signup with an already registered email.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials indicates a failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidInput indicates a malformed signup or login request.
	ErrInvalidInput = errors.New("invalid input")
)
