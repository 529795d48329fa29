package service

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed input. The wrapped message is safe to
	// show to the caller.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized is the single answer to a failed login. It never says
	// whether the user exists.
	ErrUnauthorized = errors.New("invalid username or password")

	ErrInvalidCredential = errors.New("invalid credential")
	ErrExpiredCredential = errors.New("credential expired")

	// ErrInvalidQuery marks a filter field outside the allow-list.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrNotFound is returned for missing and out-of-scope resources alike.
	ErrNotFound = errors.New("not found")

	ErrStorage       = errors.New("storage failure")
	ErrConfiguration = errors.New("configuration error")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func storageErr(err error) error {
	return fmt.Errorf("%w: %w", ErrStorage, err)
}
