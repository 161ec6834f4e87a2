package account

import (
	"time"

	"github.com/google/uuid"
)

// Account is a member account provisioned after a confirmed booking. One
// booking maps to at most one account.
type Account struct {
	ID           uuid.UUID `db:"id" json:"id"`
	BookingID    uuid.UUID `db:"booking_id" json:"booking_id"`
	LibraryID    uuid.UUID `db:"library_id" json:"library_id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	Mobile       string    `db:"mobile" json:"mobile"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Roles
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)
