package venue

import "errors"

var (
	// ErrInvalidConfig is returned by New when rows, columns or the hold period is not positive.
	ErrInvalidConfig = errors.New("invalid venue configuration")

	// ErrInvalidInput rejects a hold request with a non-positive seat count or no customer.
	ErrInvalidInput = errors.New("invalid hold request")

	// ErrNotAvailable means the pool could not assemble the requested number of seats.
	ErrNotAvailable = errors.New("requested seats are not available")

	// ErrHoldNotFound is returned when a hold is unknown, already reserved or expired.
	ErrHoldNotFound = errors.New("hold not found")

	// ErrDuplicateHold is returned when a hold id is registered twice.
	ErrDuplicateHold = errors.New("hold id already registered")
)
