package models

import "errors"

// Domain errors returned by the service and repository layers. Handlers
// dispatch on these with errors.Is to pick the HTTP status; anything else
// is treated as an internal storage failure.
var (
	ErrAccountExists     = errors.New("account with this email already exists")
	ErrAccountNotFound   = errors.New("account not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInvalidEmail      = errors.New("invalid email address")

	// ErrVersionConflict signals a lost optimistic-concurrency race on a
	// balance update. The service retries; it never reaches the handler
	// unless retries are exhausted.
	ErrVersionConflict = errors.New("account was modified concurrently")
)
