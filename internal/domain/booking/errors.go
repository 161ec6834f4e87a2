package booking

import "errors"

var (
	ErrBookingNotFound  = errors.New("booking not found")
	ErrOrderNotFound    = errors.New("payment order not found")
	ErrOrderConsumed    = errors.New("payment order already consumed")
	ErrSignatureInvalid = errors.New("payment signature verification failed")
	ErrSeatConflict     = errors.New("seat is not available for the requested window")

	ErrIllegalTransition        = errors.New("illegal booking status transition")
	ErrApprovalDeadlineExceeded = errors.New("approval payment window has elapsed")
)

// ValidationErrors carries per-field validation failures from request intake.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	return "booking request validation failed"
}
