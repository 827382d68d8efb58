package domain

import "errors"

var (
	// ErrValidation request carries empty or malformed fields
	ErrValidation = errors.New("validation failed")
	// ErrProfileNotFound no directory record for the requested user
	ErrProfileNotFound = errors.New("profile not found")
)
