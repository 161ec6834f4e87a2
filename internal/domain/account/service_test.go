package account

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

type stubRepo struct {
	byBooking map[uuid.UUID]*Account
}

func newStubRepo() *stubRepo {
	return &stubRepo{byBooking: make(map[uuid.UUID]*Account)}
}

func (r *stubRepo) Create(_ context.Context, account *Account) (bool, error) {
	if _, ok := r.byBooking[account.BookingID]; ok {
		return false, nil
	}
	r.byBooking[account.BookingID] = account
	return true, nil
}

func (r *stubRepo) GetByBookingID(_ context.Context, bookingID uuid.UUID) (*Account, error) {
	return r.byBooking[bookingID], nil
}

func (r *stubRepo) GetByEmail(_ context.Context, email string) (*Account, error) {
	for _, a := range r.byBooking {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, nil
}

type stubSender struct {
	sent []map[string]interface{}
}

func (s *stubSender) SendTemplate(_ context.Context, _, _, _, _ string, data interface{}) error {
	s.sent = append(s.sent, data.(map[string]interface{}))
	return nil
}

func TestProvisionCreatesAccountAndSendsCredentials(t *testing.T) {
	repo := newStubRepo()
	sender := &stubSender{}
	svc := NewService(repo, sender)

	in := ProvisionInput{
		BookingID:   uuid.New(),
		LibraryID:   uuid.New(),
		LibraryName: "Central Reading Hall",
		Name:        "Asha Verma",
		Email:       "asha@example.com",
		Mobile:      "9876543210",
		SeatNumber:  "A-14",
	}
	if err := svc.Provision(context.Background(), in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	account := repo.byBooking[in.BookingID]
	if account == nil {
		t.Fatalf("account not created")
	}
	if account.Role != RoleMember || !account.IsActive {
		t.Errorf("unexpected account: role=%s active=%v", account.Role, account.IsActive)
	}
	if account.PasswordHash == "" {
		t.Errorf("password hash not set")
	}

	if len(sender.sent) != 1 {
		t.Fatalf("expected one credentials email, got %d", len(sender.sent))
	}
	plain, _ := sender.sent[0]["Password"].(string)
	if plain == "" {
		t.Errorf("credentials email missing password")
	}
	if plain == account.PasswordHash {
		t.Errorf("plaintext password must not equal the stored hash")
	}
}

func TestProvisionIsIdempotentPerBooking(t *testing.T) {
	repo := newStubRepo()
	sender := &stubSender{}
	svc := NewService(repo, sender)

	in := ProvisionInput{
		BookingID: uuid.New(),
		LibraryID: uuid.New(),
		Name:      "Asha Verma",
		Email:     "asha@example.com",
		Mobile:    "9876543210",
	}
	if err := svc.Provision(context.Background(), in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first := repo.byBooking[in.BookingID]

	if err := svc.Provision(context.Background(), in); err != nil {
		t.Fatalf("replay should succeed: %v", err)
	}
	if repo.byBooking[in.BookingID] != first {
		t.Errorf("replay replaced the existing account")
	}
	if len(sender.sent) != 1 {
		t.Errorf("credentials must be sent exactly once, sent %d times", len(sender.sent))
	}
}
