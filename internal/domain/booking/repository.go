package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Repository defines booking and payment-order storage
type Repository interface {
	// Payment orders
	GetOpenOrder(ctx context.Context, correlationID string, purpose OrderPurpose) (*PaymentOrder, error)
	CreateOrder(ctx context.Context, order *PaymentOrder) error
	GetOrderByGatewayID(ctx context.Context, gatewayOrderID string) (*PaymentOrder, error)
	ConsumeOrder(ctx context.Context, id uuid.UUID, bookingID uuid.UUID) error

	// Bookings
	CreateVerified(ctx context.Context, b *Booking, orderID uuid.UUID) (*Booking, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	GetByTokenPaymentID(ctx context.Context, paymentID string) (*Booking, error)
	UpdateStatus(ctx context.Context, b *Booking, from Status) error
	List(ctx context.Context, status Status, limit, offset int) ([]*Booking, error)
	GetProjection(ctx context.Context, id uuid.UUID) (*Projection, error)

	SeatAvailable(ctx context.Context, b *Booking) (bool, error)
	ExpireOverdueApprovals(ctx context.Context, now time.Time) (int64, error)

	RecordEvent(ctx context.Context, bookingID uuid.UUID, event string, actor uuid.NullUUID, detail string) error
}

var (
	// errDuplicateOrder surfaces the partial unique index on open orders;
	// the service resolves it by re-reading the open order.
	errDuplicateOrder = errors.New("open payment order already exists")
	// errDuplicateReceipt surfaces the unique index on token_payment_id;
	// the service resolves it by returning the existing booking.
	errDuplicateReceipt = errors.New("payment receipt already recorded")
)

type repository struct {
	db *sqlx.DB
}

// NewRepository creates a booking repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetOpenOrder(ctx context.Context, correlationID string, purpose OrderPurpose) (*PaymentOrder, error) {
	var order PaymentOrder
	query := `
		SELECT * FROM payment_orders
		WHERE correlation_id = $1 AND purpose = $2 AND status = 'created'
	`
	err := r.db.GetContext(ctx, &order, query, correlationID, purpose)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get open order: %w", err)
	}
	return &order, nil
}

func (r *repository) CreateOrder(ctx context.Context, order *PaymentOrder) error {
	query := `
		INSERT INTO payment_orders (
			id, correlation_id, gateway_order_id, purpose, amount_paise,
			currency, status, booking_id, request_json, created_at, updated_at
		) VALUES (
			:id, :correlation_id, :gateway_order_id, :purpose, :amount_paise,
			:currency, :status, :booking_id, :request_json, NOW(), NOW()
		)
	`
	_, err := r.db.NamedExecContext(ctx, query, order)
	if isUniqueViolation(err) {
		return errDuplicateOrder
	}
	if err != nil {
		return fmt.Errorf("failed to create payment order: %w", err)
	}
	return nil
}

func (r *repository) GetOrderByGatewayID(ctx context.Context, gatewayOrderID string) (*PaymentOrder, error) {
	var order PaymentOrder
	query := `SELECT * FROM payment_orders WHERE gateway_order_id = $1`
	err := r.db.GetContext(ctx, &order, query, gatewayOrderID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment order: %w", err)
	}
	return &order, nil
}

func (r *repository) ConsumeOrder(ctx context.Context, id uuid.UUID, bookingID uuid.UUID) error {
	query := `
		UPDATE payment_orders
		SET status = 'consumed', booking_id = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'created'
	`
	result, err := r.db.ExecContext(ctx, query, id, bookingID)
	if err != nil {
		return fmt.Errorf("failed to consume payment order: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrOrderConsumed
	}
	return nil
}

// seatConflictQuery reports whether any live booking already claims the
// seat in a way that overlaps the candidate. A claim without a date holds
// the seat for the whole term and conflicts with everything; dated claims
// conflict only on the same date, and then only when the time windows
// overlap (a missing window means the whole day).
const seatConflictQuery = `
	SELECT EXISTS (
		SELECT 1 FROM bookings
		WHERE seat_id = $1
		  AND status IN ('pending_approval', 'approved', 'confirmed')
		  AND (
			requested_date IS NULL
			OR CAST($2 AS date) IS NULL
			OR (
				requested_date = CAST($2 AS date)
				AND (
					start_time IS NULL
					OR CAST($3 AS time) IS NULL
					OR (start_time < CAST($4 AS time) AND end_time > CAST($3 AS time))
				)
			)
		  )
	)
`

func (r *repository) SeatAvailable(ctx context.Context, b *Booking) (bool, error) {
	if !b.SeatID.Valid {
		return true, nil
	}
	var conflict bool
	err := r.db.GetContext(ctx, &conflict, seatConflictQuery,
		b.SeatID.UUID, nullDate(b.RequestedDate), nullString(b.StartTime), nullString(b.EndTime))
	if err != nil {
		return false, fmt.Errorf("failed to check seat availability: %w", err)
	}
	return !conflict, nil
}

// CreateVerified inserts the booking and consumes its token payment order in
// one transaction. When a seat is requested, the seat row is locked first and
// the claim re-checked under the lock; if the seat was lost since checkout,
// the booking is stored seatless and flagged for manual assignment so the
// paid request is never dropped.
func (r *repository) CreateVerified(ctx context.Context, b *Booking, orderID uuid.UUID) (*Booking, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if b.SeatID.Valid {
		var seatID uuid.UUID
		err := tx.GetContext(ctx, &seatID, `SELECT id FROM seats WHERE id = $1 FOR UPDATE`, b.SeatID.UUID)
		if err == sql.ErrNoRows {
			b.SeatID = uuid.NullUUID{}
			b.NeedsSeatAssignment = true
		} else if err != nil {
			return nil, fmt.Errorf("failed to lock seat: %w", err)
		} else {
			var conflict bool
			err = tx.GetContext(ctx, &conflict, seatConflictQuery,
				b.SeatID.UUID, nullDate(b.RequestedDate), nullString(b.StartTime), nullString(b.EndTime))
			if err != nil {
				return nil, fmt.Errorf("failed to check seat availability: %w", err)
			}
			if conflict {
				b.SeatID = uuid.NullUUID{}
				b.NeedsSeatAssignment = true
			}
		}
	}

	query := `
		INSERT INTO bookings (
			id, name, email, mobile, address, library_id, plan_id, seat_id,
			requested_date, start_time, end_time, purpose,
			token_amount_paise, total_amount_paise, status,
			needs_seat_assignment, token_payment_id, created_at, updated_at
		) VALUES (
			:id, :name, :email, :mobile, :address, :library_id, :plan_id, :seat_id,
			:requested_date, :start_time, :end_time, :purpose,
			:token_amount_paise, :total_amount_paise, :status,
			:needs_seat_assignment, :token_payment_id, NOW(), NOW()
		)
	`
	if _, err := tx.NamedExecContext(ctx, query, b); err != nil {
		if isUniqueViolation(err) {
			return nil, errDuplicateReceipt
		}
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE payment_orders
		SET status = 'consumed', booking_id = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'created'
	`, orderID, b.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to consume payment order: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return nil, ErrOrderConsumed
	}

	detail := "token payment verified"
	if b.NeedsSeatAssignment {
		detail = "token payment verified; requested seat no longer available"
	}
	if err := recordEventTx(ctx, tx, b.ID, "created", uuid.NullUUID{}, detail); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return b, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	var b Booking
	err := r.db.GetContext(ctx, &b, `SELECT * FROM bookings WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &b, nil
}

func (r *repository) GetByTokenPaymentID(ctx context.Context, paymentID string) (*Booking, error) {
	var b Booking
	err := r.db.GetContext(ctx, &b, `SELECT * FROM bookings WHERE token_payment_id = $1`, paymentID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking by payment: %w", err)
	}
	return &b, nil
}

// UpdateStatus applies a pre-validated transition with a compare-and-swap on
// the previous status. Zero rows means another actor already moved the
// booking, which the caller handles as an illegal transition.
func (r *repository) UpdateStatus(ctx context.Context, b *Booking, from Status) error {
	query := `
		UPDATE bookings
		SET status = $1, approval_deadline = $2, decided_at = $3, decided_by = $4,
		    final_payment_id = $5, updated_at = NOW()
		WHERE id = $6 AND status = $7
	`
	result, err := r.db.ExecContext(ctx, query,
		b.Status, b.ApprovalDeadline, b.DecidedAt, b.DecidedBy, b.FinalPaymentID, b.ID, from)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrIllegalTransition
	}
	return nil
}

func (r *repository) List(ctx context.Context, status Status, limit, offset int) ([]*Booking, error) {
	var bookings []*Booking
	var err error
	if status != "" {
		query := `SELECT * FROM bookings WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		err = r.db.SelectContext(ctx, &bookings, query, status, limit, offset)
	} else {
		query := `SELECT * FROM bookings ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		err = r.db.SelectContext(ctx, &bookings, query, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

func (r *repository) GetProjection(ctx context.Context, id uuid.UUID) (*Projection, error) {
	var row struct {
		BookingID   uuid.UUID      `db:"id"`
		Status      Status         `db:"status"`
		AmountPaise int64          `db:"token_amount_paise"`
		SeatNumber  sql.NullString `db:"seat_number"`
	}
	query := `
		SELECT b.id, b.status, b.token_amount_paise, s.seat_number
		FROM bookings b
		LEFT JOIN seats s ON s.id = b.seat_id
		WHERE b.id = $1
	`
	err := r.db.GetContext(ctx, &row, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking projection: %w", err)
	}
	p := &Projection{
		BookingID:   row.BookingID,
		Status:      row.Status,
		AmountPaise: row.AmountPaise,
	}
	if row.SeatNumber.Valid {
		p.SeatNumber = &row.SeatNumber.String
	}
	return p, nil
}

// ExpireOverdueApprovals closes approved bookings whose payment window has
// elapsed and expires their open final payment orders. The status guard in
// the UPDATE is the tie-breaker against a concurrently verifying payment.
func (r *repository) ExpireOverdueApprovals(ctx context.Context, now time.Time) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryxContext(ctx, `
		UPDATE bookings
		SET status = 'expired', decided_at = $1, updated_at = NOW()
		WHERE status = 'approved' AND approval_deadline IS NOT NULL AND approval_deadline < $1
		RETURNING id
	`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire bookings: %w", err)
	}
	var expired []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan expired booking: %w", err)
		}
		expired = append(expired, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to read expired bookings: %w", err)
	}
	if len(expired) == 0 {
		return 0, nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE payment_orders
		SET status = 'expired', updated_at = NOW()
		WHERE status = 'created' AND booking_id = ANY($1)
	`, pq.Array(expired))
	if err != nil {
		return 0, fmt.Errorf("failed to expire payment orders: %w", err)
	}

	for _, id := range expired {
		if err := recordEventTx(ctx, tx, id, "expired", uuid.NullUUID{}, "approval payment window elapsed"); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return int64(len(expired)), nil
}

func (r *repository) RecordEvent(ctx context.Context, bookingID uuid.UUID, event string, actor uuid.NullUUID, detail string) error {
	query := `
		INSERT INTO booking_events (id, booking_id, event, actor_id, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`
	_, err := r.db.ExecContext(ctx, query, uuid.New(), bookingID, event, actor, detail)
	if err != nil {
		return fmt.Errorf("failed to record booking event: %w", err)
	}
	return nil
}

func recordEventTx(ctx context.Context, tx *sqlx.Tx, bookingID uuid.UUID, event string, actor uuid.NullUUID, detail string) error {
	query := `
		INSERT INTO booking_events (id, booking_id, event, actor_id, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`
	_, err := tx.ExecContext(ctx, query, uuid.New(), bookingID, event, actor, detail)
	if err != nil {
		return fmt.Errorf("failed to record booking event: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

func nullDate(t sql.NullTime) interface{} {
	if !t.Valid {
		return nil
	}
	return t.Time.Format("2006-01-02")
}

func nullString(s sql.NullString) interface{} {
	if !s.Valid {
		return nil
	}
	return s.String
}
