package account

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/libraryconnekto/booking-api/internal/pkg/email"
	"github.com/libraryconnekto/booking-api/internal/pkg/password"
)

const generatedPasswordLength = 12

// ProvisionInput carries everything needed to open a member account for a
// confirmed booking
type ProvisionInput struct {
	BookingID   uuid.UUID
	LibraryID   uuid.UUID
	LibraryName string
	Name        string
	Email       string
	Mobile      string
	SeatNumber  string
}

// Service provisions member accounts
type Service struct {
	repo   Repository
	sender email.Sender
}

// NewService creates an account service
func NewService(repo Repository, sender email.Sender) *Service {
	return &Service{repo: repo, sender: sender}
}

// Provision opens a member account for a confirmed booking and emails the
// generated credentials. The unique booking constraint makes it safe to call
// more than once: replays find the existing account and do nothing.
func (s *Service) Provision(ctx context.Context, in ProvisionInput) error {
	plain, err := password.Generate(generatedPasswordLength)
	if err != nil {
		return fmt.Errorf("failed to generate password: %w", err)
	}
	hash, err := password.Hash(plain)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	account := &Account{
		ID:           uuid.New(),
		BookingID:    in.BookingID,
		LibraryID:    in.LibraryID,
		Name:         in.Name,
		Email:        in.Email,
		Mobile:       in.Mobile,
		PasswordHash: hash,
		Role:         RoleMember,
		IsActive:     true,
	}

	inserted, err := s.repo.Create(ctx, account)
	if err != nil {
		return err
	}
	if !inserted {
		log.Info().
			Str("booking_id", in.BookingID.String()).
			Msg("account already provisioned for booking")
		return nil
	}

	if s.sender != nil {
		err := s.sender.SendTemplate(ctx, in.Email, in.Name, "account_credentials",
			"Your library membership is active", map[string]interface{}{
				"Name":        in.Name,
				"LibraryName": in.LibraryName,
				"Email":       in.Email,
				"Password":    plain,
				"SeatNumber":  in.SeatNumber,
			})
		if err != nil {
			// The account exists; credentials can be re-issued by support
			log.Error().Err(err).
				Str("booking_id", in.BookingID.String()).
				Msg("failed to send credentials email")
		}
	}
	return nil
}

// GetByBookingID returns the account provisioned for a booking, or nil
func (s *Service) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*Account, error) {
	return s.repo.GetByBookingID(ctx, bookingID)
}
