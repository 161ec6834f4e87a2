package booking

import (
	"time"

	"github.com/google/uuid"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// CreateBookingRequest is the public intake payload. Seat, date and time
// window are optional; a request without a seat is a plan-only booking and a
// request without a window claims the seat for the whole term.
type CreateBookingRequest struct {
	Name      string     `json:"name" validate:"required,min=2,max=100"`
	Email     string     `json:"email" validate:"required,email"`
	Mobile    string     `json:"mobile" validate:"required,mobile"`
	Address   string     `json:"address" validate:"required,min=5,max=500"`
	LibraryID uuid.UUID  `json:"library_id" validate:"required"`
	PlanID    uuid.UUID  `json:"plan_id" validate:"required"`
	SeatID    *uuid.UUID `json:"seat_id,omitempty"`
	Date      string     `json:"date,omitempty"`
	StartTime string     `json:"start_time,omitempty"`
	EndTime   string     `json:"end_time,omitempty"`
	Purpose   string     `json:"purpose,omitempty" validate:"omitempty,max=200"`
}

// ValidateSchedule checks the optional date and time window fields beyond
// what tag validation covers: formats, date not in the past, start before
// end, and no dangling half-window.
func (r *CreateBookingRequest) ValidateSchedule(now time.Time) map[string]string {
	errs := make(map[string]string)

	var date time.Time
	if r.Date != "" {
		var err error
		date, err = time.Parse(dateLayout, r.Date)
		if err != nil {
			errs["date"] = "must be in YYYY-MM-DD format"
		} else if date.Before(now.Truncate(24 * time.Hour)) {
			errs["date"] = "must not be in the past"
		}
	}

	if (r.StartTime == "") != (r.EndTime == "") {
		errs["start_time"] = "start_time and end_time must be provided together"
		return errs
	}
	if r.StartTime == "" {
		return errs
	}
	if r.Date == "" {
		errs["date"] = "date is required when a time window is given"
	}

	start, err := time.Parse(timeLayout, r.StartTime)
	if err != nil {
		errs["start_time"] = "must be in HH:MM format"
	}
	end, err := time.Parse(timeLayout, r.EndTime)
	if err != nil {
		errs["end_time"] = "must be in HH:MM format"
	}
	if len(errs) == 0 && !start.Before(end) {
		errs["end_time"] = "must be after start_time"
	}
	return errs
}

// VerifyPaymentRequest carries the checkout receipt posted back by the
// client after the gateway reports success.
type VerifyPaymentRequest struct {
	OrderID   string `json:"order_id" validate:"required"`
	PaymentID string `json:"payment_id" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

// DecisionRequest is the admin approval/rejection payload
type DecisionRequest struct {
	Status string `json:"status" validate:"required,decision"`
}

// CheckoutPrefill is passed through to the gateway checkout widget
type CheckoutPrefill struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Mobile string `json:"mobile"`
}

// CheckoutResponse is everything the client needs to open the gateway
// checkout. The gateway key secret never appears here.
type CheckoutResponse struct {
	OrderID       string          `json:"order_id"`
	KeyID         string          `json:"key_id"`
	AmountPaise   int64           `json:"amount_paise"`
	Currency      string          `json:"currency"`
	CorrelationID string          `json:"correlation_id"`
	Prefill       CheckoutPrefill `json:"prefill"`
}

// Projection is the public read model of a booking: status, the token
// amount already paid, and the assigned seat number when one is held.
type Projection struct {
	BookingID   uuid.UUID `json:"booking_id"`
	Status      Status    `json:"status"`
	AmountPaise int64     `json:"amount_paise"`
	SeatNumber  *string   `json:"seat_number,omitempty"`
}
