package inventory

import "errors"

// Sentinel errors for inventory fetches.
// Use errors.Is() to check for these in calling code.
var (
	// ErrUnavailable indicates the collaborator could not be reached.
	ErrUnavailable = errors.New("inventory: collaborator unavailable")

	// ErrBadResponse indicates the collaborator answered with a status
	// or body the client could not use.
	ErrBadResponse = errors.New("inventory: unexpected response")

	// ErrNotConfigured indicates no base URL was configured for the
	// collaborator.
	ErrNotConfigured = errors.New("inventory: not configured")
)
