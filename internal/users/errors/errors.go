package errors

import "errors"

var (
	ErrNotFound = errors.New("user not found")

	ErrInvalidID = errors.New("invalid user ID format")

	ErrEmailTaken = errors.New("email is already registered")

	ErrBlocked = errors.New("user account is blocked")
)
