package storage

import "errors"

// Common storage errors
var (
	// ErrUserNotFound indicates that user was not found in storage
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates that user with this username or email already exists
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrInvalidRecord indicates that a stored row holds a value the model does not know
	ErrInvalidRecord = errors.New("invalid stored record")
)
