package repository

import "errors"

var (
	// ErrDuplicateEmail indicates a user already exists for the normalized email.
	ErrDuplicateEmail = errors.New("repository: email already registered")
	// ErrStorage wraps failures of the underlying storage medium.
	ErrStorage = errors.New("repository: storage failure")
)
