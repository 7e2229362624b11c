package domain

import "errors"

// Sentinel errors used throughout the application.
// The HTTP layer translates these to status codes via a single mapError function.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidEventKind = errors.New("event kind must not be empty")
	ErrInvalidRecipient = errors.New("recipient must not be empty")
)
