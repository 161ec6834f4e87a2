package account

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines member account storage
type Repository interface {
	// Create inserts the account unless one already exists for its booking;
	// it reports whether a row was actually inserted.
	Create(ctx context.Context, account *Account) (bool, error)
	GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates an account repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, account *Account) (bool, error) {
	query := `
		INSERT INTO accounts (
			id, booking_id, library_id, name, email, mobile,
			password_hash, role, is_active, created_at, updated_at
		) VALUES (
			:id, :booking_id, :library_id, :name, :email, :mobile,
			:password_hash, :role, :is_active, NOW(), NOW()
		)
		ON CONFLICT (booking_id) DO NOTHING
	`
	result, err := r.db.NamedExecContext(ctx, query, account)
	if err != nil {
		return false, fmt.Errorf("failed to create account: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (r *repository) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*Account, error) {
	var account Account
	query := `SELECT * FROM accounts WHERE booking_id = $1`
	err := r.db.GetContext(ctx, &account, query, bookingID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account by booking: %w", err)
	}
	return &account, nil
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	var account Account
	query := `SELECT * FROM accounts WHERE email = $1`
	err := r.db.GetContext(ctx, &account, query, email)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}
	return &account, nil
}
