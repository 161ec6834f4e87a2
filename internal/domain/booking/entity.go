package booking

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status represents booking lifecycle status
type Status string

const (
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusRejected        Status = "rejected"
	StatusConfirmed       Status = "confirmed"
	StatusExpired         Status = "expired"
)

// IsTerminal reports whether no further transitions are allowed
func (s Status) IsTerminal() bool {
	return s == StatusRejected || s == StatusConfirmed || s == StatusExpired
}

// OrderPurpose distinguishes the two payments a booking goes through
type OrderPurpose string

const (
	OrderPurposeToken OrderPurpose = "token"
	OrderPurposeFinal OrderPurpose = "final"
)

// OrderStatus represents gateway order lifecycle on our side
type OrderStatus string

const (
	OrderStatusCreated  OrderStatus = "created"
	OrderStatusConsumed OrderStatus = "consumed"
	OrderStatusExpired  OrderStatus = "expired"
)

// PaymentOrder tracks a gateway-side order. At most one order per
// (correlation id, purpose) may be open at a time; resubmission of the same
// logical request reuses the open order instead of creating another.
type PaymentOrder struct {
	ID             uuid.UUID     `db:"id" json:"id"`
	CorrelationID  string        `db:"correlation_id" json:"correlation_id"`
	GatewayOrderID string        `db:"gateway_order_id" json:"gateway_order_id"`
	Purpose        OrderPurpose  `db:"purpose" json:"purpose"`
	AmountPaise    int64         `db:"amount_paise" json:"amount_paise"`
	Currency       string        `db:"currency" json:"currency"`
	Status         OrderStatus   `db:"status" json:"status"`
	BookingID      uuid.NullUUID `db:"booking_id" json:"booking_id,omitempty"`
	RequestJSON    []byte        `db:"request_json" json:"-"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updated_at"`
}

// Booking is the durable record created only after the token payment has
// been verified server-side. Rows are never deleted; terminal statuses
// close them out for audit.
type Booking struct {
	ID      uuid.UUID `db:"id" json:"id"`
	Name    string    `db:"name" json:"name"`
	Email   string    `db:"email" json:"email"`
	Mobile  string    `db:"mobile" json:"mobile"`
	Address string    `db:"address" json:"address"`

	LibraryID uuid.UUID     `db:"library_id" json:"library_id"`
	PlanID    uuid.UUID     `db:"plan_id" json:"plan_id"`
	SeatID    uuid.NullUUID `db:"seat_id" json:"seat_id,omitempty"`

	RequestedDate sql.NullTime   `db:"requested_date" json:"requested_date,omitempty"`
	StartTime     sql.NullString `db:"start_time" json:"start_time,omitempty"`
	EndTime       sql.NullString `db:"end_time" json:"end_time,omitempty"`
	Purpose       sql.NullString `db:"purpose" json:"purpose,omitempty"`

	TokenAmountPaise int64 `db:"token_amount_paise" json:"token_amount_paise"`
	TotalAmountPaise int64 `db:"total_amount_paise" json:"total_amount_paise"`

	Status Status `db:"status" json:"status"`

	// NeedsSeatAssignment is set when the requested seat was lost between
	// order creation and payment verification; the paid request is kept and
	// flagged for manual seat assignment.
	NeedsSeatAssignment bool `db:"needs_seat_assignment" json:"needs_seat_assignment"`

	TokenPaymentID sql.NullString `db:"token_payment_id" json:"-"`
	FinalPaymentID sql.NullString `db:"final_payment_id" json:"-"`

	ApprovalDeadline sql.NullTime  `db:"approval_deadline" json:"approval_deadline,omitempty"`
	DecidedAt        sql.NullTime  `db:"decided_at" json:"decided_at,omitempty"`
	DecidedBy        uuid.NullUUID `db:"decided_by" json:"decided_by,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// IsTerminal reports whether the booking has reached a closed status
func (b *Booking) IsTerminal() bool {
	return b.Status.IsTerminal()
}

// CorrelationID derives a deterministic identifier for a logical booking
// request from its identity + library + seat + date tuple, so resubmitting
// the same request maps onto the same in-flight payment order.
func CorrelationID(email, mobile string, libraryID uuid.UUID, seatID uuid.NullUUID, date string) string {
	parts := []string{
		strings.ToLower(strings.TrimSpace(email)),
		strings.TrimSpace(mobile),
		libraryID.String(),
	}
	if seatID.Valid {
		parts = append(parts, seatID.UUID.String())
	}
	if date != "" {
		parts = append(parts, date)
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
