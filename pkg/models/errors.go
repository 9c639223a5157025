package models

import "errors"

// Engine-level error taxonomy. Handlers map these onto HTTP statuses,
// everything else wraps with %w and checks with errors.Is.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInsufficientSeats = errors.New("insufficient seats")
	ErrInvalidState      = errors.New("invalid booking state")
	ErrAlreadyReleased   = errors.New("reservation already released")
	ErrPaymentDeclined   = errors.New("payment declined")
	ErrNotFound          = errors.New("not found")
)
