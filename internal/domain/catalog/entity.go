package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Library represents a registered library
type Library struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Address   string    `db:"address" json:"address"`
	City      string    `db:"city" json:"city"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Plan represents a subscription plan offered by a library
type Plan struct {
	ID             uuid.UUID `db:"id" json:"id"`
	LibraryID      uuid.UUID `db:"library_id" json:"library_id"`
	Name           string    `db:"name" json:"name"`
	PricePaise     int64     `db:"price_paise" json:"price_paise"`
	DurationMonths int       `db:"duration_months" json:"duration_months"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Seat represents a physical seat in a library
type Seat struct {
	ID         uuid.UUID `db:"id" json:"id"`
	LibraryID  uuid.UUID `db:"library_id" json:"library_id"`
	SeatNumber string    `db:"seat_number" json:"seat_number"`
	IsActive   bool      `db:"is_active" json:"is_active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
