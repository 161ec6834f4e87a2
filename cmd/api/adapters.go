package main

import (
	"context"
	"fmt"
	"time"

	"github.com/libraryconnekto/booking-api/internal/domain/account"
	"github.com/libraryconnekto/booking-api/internal/domain/booking"
	"github.com/libraryconnekto/booking-api/internal/domain/catalog"
	"github.com/libraryconnekto/booking-api/internal/pkg/email"
)

// emailNotifier implements booking.Notifier on top of the templated email
// service.
type emailNotifier struct {
	sender      email.Sender
	catalog     catalog.Repository
	frontendURL string
	window      time.Duration
}

func (n *emailNotifier) BookingApproved(ctx context.Context, b *booking.Booking) error {
	libraryName, err := n.libraryName(ctx, b)
	if err != nil {
		return err
	}
	return n.sender.SendTemplate(ctx, b.Email, b.Name, "booking_approved",
		"Your seat booking was approved", map[string]interface{}{
			"Name":          b.Name,
			"LibraryName":   libraryName,
			"BookingID":     b.ID.String(),
			"PaymentWindow": formatWindow(n.window),
			"PaymentURL":    fmt.Sprintf("%s/bookings/%s/payment", n.frontendURL, b.ID),
		})
}

func (n *emailNotifier) BookingRejected(ctx context.Context, b *booking.Booking) error {
	libraryName, err := n.libraryName(ctx, b)
	if err != nil {
		return err
	}
	return n.sender.SendTemplate(ctx, b.Email, b.Name, "booking_rejected",
		"Update on your seat booking", map[string]interface{}{
			"Name":        b.Name,
			"LibraryName": libraryName,
			"BookingID":   b.ID.String(),
		})
}

func (n *emailNotifier) libraryName(ctx context.Context, b *booking.Booking) (string, error) {
	library, err := n.catalog.GetLibraryByID(ctx, b.LibraryID)
	if err != nil {
		return "", err
	}
	if library == nil {
		return "the library", nil
	}
	return library.Name, nil
}

func formatWindow(d time.Duration) string {
	if hours := int(d.Hours()); hours >= 1 {
		return fmt.Sprintf("%d hours", hours)
	}
	return d.String()
}

// accountProvisioner implements booking.Provisioner by delegating to the
// account service with catalog details resolved.
type accountProvisioner struct {
	accounts *account.Service
	catalog  catalog.Repository
}

func (p *accountProvisioner) Provision(ctx context.Context, b *booking.Booking) error {
	in := account.ProvisionInput{
		BookingID: b.ID,
		LibraryID: b.LibraryID,
		Name:      b.Name,
		Email:     b.Email,
		Mobile:    b.Mobile,
	}

	library, err := p.catalog.GetLibraryByID(ctx, b.LibraryID)
	if err != nil {
		return err
	}
	if library != nil {
		in.LibraryName = library.Name
	}

	if b.SeatID.Valid {
		seat, err := p.catalog.GetSeat(ctx, b.SeatID.UUID, b.LibraryID)
		if err != nil {
			return err
		}
		if seat != nil {
			in.SeatNumber = seat.SeatNumber
		}
	}

	return p.accounts.Provision(ctx, in)
}
