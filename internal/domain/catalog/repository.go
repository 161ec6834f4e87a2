package catalog

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines read-only catalog lookups. Seat reservations are not
// written here; they live with the booking records.
type Repository interface {
	GetLibraryByID(ctx context.Context, id uuid.UUID) (*Library, error)
	GetActivePlan(ctx context.Context, planID, libraryID uuid.UUID) (*Plan, error)
	GetSeat(ctx context.Context, seatID, libraryID uuid.UUID) (*Seat, error)
	ListActivePlans(ctx context.Context, libraryID uuid.UUID) ([]*Plan, error)
	ListSeats(ctx context.Context, libraryID uuid.UUID) ([]*Seat, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates catalog repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetLibraryByID(ctx context.Context, id uuid.UUID) (*Library, error) {
	query := `
		SELECT id, name, address, city, is_active, created_at
		FROM libraries
		WHERE id = $1 AND is_active = true
	`
	var lib Library
	err := r.db.GetContext(ctx, &lib, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &lib, nil
}

func (r *repository) GetActivePlan(ctx context.Context, planID, libraryID uuid.UUID) (*Plan, error) {
	query := `
		SELECT id, library_id, name, price_paise, duration_months, is_active, created_at
		FROM plans
		WHERE id = $1 AND library_id = $2 AND is_active = true
	`
	var plan Plan
	err := r.db.GetContext(ctx, &plan, query, planID, libraryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repository) GetSeat(ctx context.Context, seatID, libraryID uuid.UUID) (*Seat, error) {
	query := `
		SELECT id, library_id, seat_number, is_active, created_at
		FROM seats
		WHERE id = $1 AND library_id = $2 AND is_active = true
	`
	var seat Seat
	err := r.db.GetContext(ctx, &seat, query, seatID, libraryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &seat, nil
}

func (r *repository) ListActivePlans(ctx context.Context, libraryID uuid.UUID) ([]*Plan, error) {
	query := `
		SELECT id, library_id, name, price_paise, duration_months, is_active, created_at
		FROM plans
		WHERE library_id = $1 AND is_active = true
		ORDER BY price_paise
	`
	var plans []*Plan
	if err := r.db.SelectContext(ctx, &plans, query, libraryID); err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *repository) ListSeats(ctx context.Context, libraryID uuid.UUID) ([]*Seat, error) {
	query := `
		SELECT id, library_id, seat_number, is_active, created_at
		FROM seats
		WHERE library_id = $1 AND is_active = true
		ORDER BY seat_number
	`
	var seats []*Seat
	if err := r.db.SelectContext(ctx, &seats, query, libraryID); err != nil {
		return nil, err
	}
	return seats, nil
}
