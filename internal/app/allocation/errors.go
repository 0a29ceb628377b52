// internal/app/allocation/errors.go
package allocation

import "errors"

var (
	// ErrUserNotFound is returned when an allocation is requested for a
	// user that does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrConflict is returned by a Ledger when a batch insert collided
	// with an assignment written concurrently for the same user. The
	// engine retries once before letting it surface.
	ErrConflict = errors.New("assignment write conflict")
)
