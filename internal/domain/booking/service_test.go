package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/libraryconnekto/booking-api/internal/domain/catalog"
	"github.com/libraryconnekto/booking-api/internal/pkg/razorpay"
)

// ---- stubs ----

type stubRepo struct {
	orders    map[string]*PaymentOrder // by gateway order id
	bookings  map[uuid.UUID]*Booking
	byPayment map[string]*Booking
	events    []string

	seatLost bool // seat becomes unavailable between checkout and verification

	// beforeUpdateStatus runs once before the next status CAS, letting a
	// test interleave a concurrent writer.
	beforeUpdateStatus func()
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		orders:    make(map[string]*PaymentOrder),
		bookings:  make(map[uuid.UUID]*Booking),
		byPayment: make(map[string]*Booking),
	}
}

func (r *stubRepo) GetOpenOrder(_ context.Context, correlationID string, purpose OrderPurpose) (*PaymentOrder, error) {
	for _, o := range r.orders {
		if o.CorrelationID == correlationID && o.Purpose == purpose && o.Status == OrderStatusCreated {
			return o, nil
		}
	}
	return nil, nil
}

func (r *stubRepo) CreateOrder(_ context.Context, order *PaymentOrder) error {
	for _, o := range r.orders {
		if o.CorrelationID == order.CorrelationID && o.Purpose == order.Purpose && o.Status == OrderStatusCreated {
			return errDuplicateOrder
		}
	}
	r.orders[order.GatewayOrderID] = order
	return nil
}

func (r *stubRepo) GetOrderByGatewayID(_ context.Context, gatewayOrderID string) (*PaymentOrder, error) {
	return r.orders[gatewayOrderID], nil
}

func (r *stubRepo) ConsumeOrder(_ context.Context, id uuid.UUID, bookingID uuid.UUID) error {
	for _, o := range r.orders {
		if o.ID == id {
			if o.Status != OrderStatusCreated {
				return ErrOrderConsumed
			}
			o.Status = OrderStatusConsumed
			o.BookingID = uuid.NullUUID{UUID: bookingID, Valid: true}
			return nil
		}
	}
	return ErrOrderConsumed
}

func (r *stubRepo) CreateVerified(_ context.Context, b *Booking, orderID uuid.UUID) (*Booking, error) {
	if _, ok := r.byPayment[b.TokenPaymentID.String]; ok {
		return nil, errDuplicateReceipt
	}
	if b.SeatID.Valid && r.seatLost {
		b.SeatID = uuid.NullUUID{}
		b.NeedsSeatAssignment = true
	}
	for _, o := range r.orders {
		if o.ID == orderID {
			if o.Status != OrderStatusCreated {
				return nil, ErrOrderConsumed
			}
			o.Status = OrderStatusConsumed
			o.BookingID = uuid.NullUUID{UUID: b.ID, Valid: true}
		}
	}
	r.bookings[b.ID] = b
	r.byPayment[b.TokenPaymentID.String] = b
	r.events = append(r.events, "created")
	return b, nil
}

func (r *stubRepo) GetByID(_ context.Context, id uuid.UUID) (*Booking, error) {
	return r.bookings[id], nil
}

func (r *stubRepo) GetByTokenPaymentID(_ context.Context, paymentID string) (*Booking, error) {
	return r.byPayment[paymentID], nil
}

func (r *stubRepo) UpdateStatus(_ context.Context, b *Booking, from Status) error {
	if r.beforeUpdateStatus != nil {
		hook := r.beforeUpdateStatus
		r.beforeUpdateStatus = nil
		hook()
	}
	current, ok := r.bookings[b.ID]
	if !ok || current.Status != from {
		return ErrIllegalTransition
	}
	r.bookings[b.ID] = b
	if b.TokenPaymentID.Valid {
		r.byPayment[b.TokenPaymentID.String] = b
	}
	return nil
}

func (r *stubRepo) List(_ context.Context, status Status, _, _ int) ([]*Booking, error) {
	var out []*Booking
	for _, b := range r.bookings {
		if status == "" || b.Status == status {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *stubRepo) GetProjection(_ context.Context, id uuid.UUID) (*Projection, error) {
	b, ok := r.bookings[id]
	if !ok {
		return nil, nil
	}
	return &Projection{BookingID: b.ID, Status: b.Status, AmountPaise: b.TokenAmountPaise}, nil
}

func (r *stubRepo) SeatAvailable(_ context.Context, b *Booking) (bool, error) {
	return !r.seatLost, nil
}

func (r *stubRepo) ExpireOverdueApprovals(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for _, b := range r.bookings {
		if b.Status == StatusApproved && b.ApprovalDeadline.Valid && b.ApprovalDeadline.Time.Before(now) {
			b.Status = StatusExpired
			n++
		}
	}
	return n, nil
}

func (r *stubRepo) RecordEvent(_ context.Context, _ uuid.UUID, event string, _ uuid.NullUUID, _ string) error {
	r.events = append(r.events, event)
	return nil
}

type stubGateway struct {
	orderSeq   int
	fail       bool
	validSig   string
	createdIDs []string
}

func (g *stubGateway) CreateOrder(_ context.Context, req razorpay.CreateOrderRequest) (*razorpay.Order, error) {
	if g.fail {
		return nil, razorpay.ErrGatewayUnavailable
	}
	g.orderSeq++
	id := fmt.Sprintf("order_test%03d", g.orderSeq)
	g.createdIDs = append(g.createdIDs, id)
	return &razorpay.Order{ID: id, Amount: req.Amount, Currency: req.Currency, Receipt: req.Receipt, Status: "created"}, nil
}

func (g *stubGateway) VerifySignature(_, _, signature string) bool {
	return signature == g.validSig
}

func (g *stubGateway) KeyID() string { return "rzp_test_stub" }

type stubCatalog struct {
	library *catalog.Library
	plan    *catalog.Plan
	seat    *catalog.Seat
}

func (c *stubCatalog) GetLibraryByID(_ context.Context, id uuid.UUID) (*catalog.Library, error) {
	if c.library != nil && c.library.ID == id {
		return c.library, nil
	}
	return nil, nil
}

func (c *stubCatalog) GetActivePlan(_ context.Context, planID, _ uuid.UUID) (*catalog.Plan, error) {
	if c.plan != nil && c.plan.ID == planID {
		return c.plan, nil
	}
	return nil, nil
}

func (c *stubCatalog) GetSeat(_ context.Context, seatID, _ uuid.UUID) (*catalog.Seat, error) {
	if c.seat != nil && c.seat.ID == seatID {
		return c.seat, nil
	}
	return nil, nil
}

func (c *stubCatalog) ListActivePlans(_ context.Context, _ uuid.UUID) ([]*catalog.Plan, error) {
	return []*catalog.Plan{c.plan}, nil
}

func (c *stubCatalog) ListSeats(_ context.Context, _ uuid.UUID) ([]*catalog.Seat, error) {
	return []*catalog.Seat{c.seat}, nil
}

type stubNotifier struct {
	approved int
	rejected int
}

func (n *stubNotifier) BookingApproved(_ context.Context, _ *Booking) error {
	n.approved++
	return nil
}

func (n *stubNotifier) BookingRejected(_ context.Context, _ *Booking) error {
	n.rejected++
	return nil
}

type stubProvisioner struct {
	calls int
}

func (p *stubProvisioner) Provision(_ context.Context, _ *Booking) error {
	p.calls++
	return nil
}

// ---- fixture ----

type fixture struct {
	repo        *stubRepo
	gateway     *stubGateway
	catalog     *stubCatalog
	notifier    *stubNotifier
	provisioner *stubProvisioner
	service     *Service
}

func newFixture() *fixture {
	libraryID := uuid.New()
	cat := &stubCatalog{
		library: &catalog.Library{ID: libraryID, Name: "Central Reading Hall"},
		plan:    &catalog.Plan{ID: uuid.New(), LibraryID: libraryID, Name: "Monthly", PricePaise: 150000, DurationMonths: 1, IsActive: true},
		seat:    &catalog.Seat{ID: uuid.New(), LibraryID: libraryID, SeatNumber: "A-14"},
	}
	f := &fixture{
		repo:        newStubRepo(),
		gateway:     &stubGateway{validSig: "good-signature"},
		catalog:     cat,
		notifier:    &stubNotifier{},
		provisioner: &stubProvisioner{},
	}
	f.service = NewService(f.repo, f.catalog, f.gateway, nil, f.notifier, f.provisioner, Config{
		TokenAmountPaise: 100,
		Currency:         "INR",
		ApprovalWindow:   48 * time.Hour,
	})
	return f
}

func (f *fixture) validRequest() *CreateBookingRequest {
	seatID := f.catalog.seat.ID
	return &CreateBookingRequest{
		Name:      "Asha Verma",
		Email:     "asha@example.com",
		Mobile:    "9876543210",
		Address:   "12 MG Road, Pune",
		LibraryID: f.catalog.library.ID,
		PlanID:    f.catalog.plan.ID,
		SeatID:    &seatID,
		Date:      time.Now().AddDate(0, 0, 7).Format("2006-01-02"),
		StartTime: "09:00",
		EndTime:   "13:00",
	}
}

// submitAndVerify walks a request through checkout and token verification
func (f *fixture) submitAndVerify(t *testing.T) *Booking {
	t.Helper()
	ctx := context.Background()

	checkout, err := f.service.SubmitRequest(ctx, f.validRequest())
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	b, err := f.service.VerifyTokenPayment(ctx, &VerifyPaymentRequest{
		OrderID:   checkout.OrderID,
		PaymentID: "pay_test001",
		Signature: "good-signature",
	})
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	return b
}

func (f *fixture) approve(t *testing.T, b *Booking) *Booking {
	t.Helper()
	nb, err := f.service.Decide(context.Background(), b.ID, "approved", uuid.New())
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	return nb
}

// ---- tests ----

func TestSubmitRequestReturnsCheckout(t *testing.T) {
	f := newFixture()

	checkout, err := f.service.SubmitRequest(context.Background(), f.validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if checkout.OrderID == "" {
		t.Errorf("expected gateway order id")
	}
	if checkout.KeyID != "rzp_test_stub" {
		t.Errorf("expected checkout key id, got %q", checkout.KeyID)
	}
	if checkout.AmountPaise != 100 {
		t.Errorf("token amount = %d, want 100", checkout.AmountPaise)
	}
	if checkout.Prefill.Email != "asha@example.com" {
		t.Errorf("prefill not populated")
	}
	if len(f.repo.bookings) != 0 {
		t.Errorf("no booking row should exist before verification")
	}
}

func TestSubmitRequestReusesOpenOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.service.SubmitRequest(ctx, f.validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := f.service.SubmitRequest(ctx, f.validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.OrderID != second.OrderID {
		t.Errorf("resubmission created a second order: %s vs %s", first.OrderID, second.OrderID)
	}
	if len(f.gateway.createdIDs) != 1 {
		t.Errorf("gateway called %d times, want 1", len(f.gateway.createdIDs))
	}
}

func TestSubmitRequestValidation(t *testing.T) {
	f := newFixture()

	req := f.validRequest()
	req.Mobile = "12345"
	req.Email = "not-an-email"

	_, err := f.service.SubmitRequest(context.Background(), req)
	var fieldErrs ValidationErrors
	if !errors.As(err, &fieldErrs) {
		t.Fatalf("expected validation errors, got %v", err)
	}
	if fieldErrs["mobile"] == "" || fieldErrs["email"] == "" {
		t.Errorf("expected mobile and email errors, got %v", fieldErrs)
	}
	if len(f.gateway.createdIDs) != 0 {
		t.Errorf("no order should be created for an invalid request")
	}
}

func TestSubmitRequestUnknownPlan(t *testing.T) {
	f := newFixture()

	req := f.validRequest()
	req.PlanID = uuid.New()

	_, err := f.service.SubmitRequest(context.Background(), req)
	var fieldErrs ValidationErrors
	if !errors.As(err, &fieldErrs) {
		t.Fatalf("expected validation errors, got %v", err)
	}
	if fieldErrs["plan_id"] == "" {
		t.Errorf("expected plan_id error, got %v", fieldErrs)
	}
}

func TestSubmitRequestSeatConflict(t *testing.T) {
	f := newFixture()
	f.repo.seatLost = true

	_, err := f.service.SubmitRequest(context.Background(), f.validRequest())
	if !errors.Is(err, ErrSeatConflict) {
		t.Fatalf("expected ErrSeatConflict, got %v", err)
	}
	if len(f.gateway.createdIDs) != 0 {
		t.Errorf("no order should be created when the seat is taken")
	}
}

func TestSubmitRequestGatewayDown(t *testing.T) {
	f := newFixture()
	f.gateway.fail = true

	_, err := f.service.SubmitRequest(context.Background(), f.validRequest())
	if !errors.Is(err, razorpay.ErrGatewayUnavailable) {
		t.Fatalf("expected gateway error, got %v", err)
	}
}

func TestVerifyTokenPaymentCreatesBooking(t *testing.T) {
	f := newFixture()
	b := f.submitAndVerify(t)

	if b.Status != StatusPendingApproval {
		t.Errorf("status = %s, want pending_approval", b.Status)
	}
	if !b.SeatID.Valid || b.SeatID.UUID != f.catalog.seat.ID {
		t.Errorf("seat not assigned")
	}
	if b.NeedsSeatAssignment {
		t.Errorf("seat flag should not be set")
	}
	if b.TokenAmountPaise != 100 || b.TotalAmountPaise != 150000 {
		t.Errorf("amounts = %d/%d, want 100/150000", b.TokenAmountPaise, b.TotalAmountPaise)
	}

	order := f.repo.orders["order_test001"]
	if order.Status != OrderStatusConsumed {
		t.Errorf("token order should be consumed")
	}
	if len(f.repo.events) == 0 || f.repo.events[0] != "created" {
		t.Errorf("creation event not recorded: %v", f.repo.events)
	}
}

func TestVerifyTokenPaymentIdempotent(t *testing.T) {
	f := newFixture()
	first := f.submitAndVerify(t)

	second, err := f.service.VerifyTokenPayment(context.Background(), &VerifyPaymentRequest{
		OrderID:   "order_test001",
		PaymentID: "pay_test001",
		Signature: "good-signature",
	})
	if err != nil {
		t.Fatalf("replay should succeed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("replay created a second booking")
	}
	if len(f.repo.bookings) != 1 {
		t.Errorf("expected exactly one booking, got %d", len(f.repo.bookings))
	}
}

func TestVerifyTokenPaymentTamperedSignature(t *testing.T) {
	f := newFixture()
	checkout, err := f.service.SubmitRequest(context.Background(), f.validRequest())
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	_, err = f.service.VerifyTokenPayment(context.Background(), &VerifyPaymentRequest{
		OrderID:   checkout.OrderID,
		PaymentID: "pay_test001",
		Signature: "forged",
	})
	if !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
	if len(f.repo.bookings) != 0 {
		t.Errorf("no booking should be created for a forged receipt")
	}
	if f.repo.orders[checkout.OrderID].Status != OrderStatusCreated {
		t.Errorf("order must stay open after a failed verification")
	}
}

func TestVerifyTokenPaymentUnknownOrder(t *testing.T) {
	f := newFixture()

	_, err := f.service.VerifyTokenPayment(context.Background(), &VerifyPaymentRequest{
		OrderID:   "order_unknown",
		PaymentID: "pay_test001",
		Signature: "good-signature",
	})
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestVerifyTokenPaymentSeatLost(t *testing.T) {
	f := newFixture()
	checkout, err := f.service.SubmitRequest(context.Background(), f.validRequest())
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	// Seat taken after checkout opened
	f.repo.seatLost = true

	b, err := f.service.VerifyTokenPayment(context.Background(), &VerifyPaymentRequest{
		OrderID:   checkout.OrderID,
		PaymentID: "pay_test001",
		Signature: "good-signature",
	})
	if err != nil {
		t.Fatalf("paid request must not be dropped: %v", err)
	}
	if b.SeatID.Valid {
		t.Errorf("lost seat should not be assigned")
	}
	if !b.NeedsSeatAssignment {
		t.Errorf("booking should be flagged for manual seat assignment")
	}
	if b.Status != StatusPendingApproval {
		t.Errorf("status = %s, want pending_approval", b.Status)
	}
}

func TestVerifyTokenPaymentPlanDeactivatedAfterCheckout(t *testing.T) {
	f := newFixture()
	checkout, err := f.service.SubmitRequest(context.Background(), f.validRequest())
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	// Library retires the plan while the checkout is open
	f.catalog.plan = nil

	b, err := f.service.VerifyTokenPayment(context.Background(), &VerifyPaymentRequest{
		OrderID:   checkout.OrderID,
		PaymentID: "pay_test001",
		Signature: "good-signature",
	})
	if err != nil {
		t.Fatalf("paid request must not be dropped: %v", err)
	}
	if b.Status != StatusPendingApproval {
		t.Errorf("status = %s, want pending_approval", b.Status)
	}
	if b.TotalAmountPaise != 150000 {
		t.Errorf("total = %d, want the price quoted at checkout (150000)", b.TotalAmountPaise)
	}
	if f.repo.orders[checkout.OrderID].Status != OrderStatusConsumed {
		t.Errorf("token order should be consumed")
	}
}

func TestDecideApprove(t *testing.T) {
	f := newFixture()
	b := f.submitAndVerify(t)
	admin := uuid.New()

	nb, err := f.service.Decide(context.Background(), b.ID, "approved", admin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nb.Status != StatusApproved {
		t.Errorf("status = %s, want approved", nb.Status)
	}
	if !nb.ApprovalDeadline.Valid {
		t.Fatalf("approval deadline not set")
	}
	window := time.Until(nb.ApprovalDeadline.Time)
	if window < 47*time.Hour || window > 49*time.Hour {
		t.Errorf("deadline %v from now, want ~48h", window)
	}
	if !nb.DecidedBy.Valid || nb.DecidedBy.UUID != admin {
		t.Errorf("decided_by not stamped")
	}
	if f.notifier.approved != 1 {
		t.Errorf("approval notification not sent")
	}
}

func TestDecideReject(t *testing.T) {
	f := newFixture()
	b := f.submitAndVerify(t)

	nb, err := f.service.Decide(context.Background(), b.ID, "rejected", uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nb.Status != StatusRejected {
		t.Errorf("status = %s, want rejected", nb.Status)
	}
	if nb.ApprovalDeadline.Valid {
		t.Errorf("rejected booking should not get a payment deadline")
	}
	if f.notifier.rejected != 1 {
		t.Errorf("rejection notification not sent")
	}
}

func TestDecideTwiceIsIllegal(t *testing.T) {
	f := newFixture()
	b := f.submitAndVerify(t)
	f.approve(t, b)

	_, err := f.service.Decide(context.Background(), b.ID, "rejected", uuid.New())
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
}

func TestFinalPaymentFlow(t *testing.T) {
	f := newFixture()
	b := f.submitAndVerify(t)
	f.approve(t, b)
	ctx := context.Background()

	checkout, err := f.service.InitiateFinalPayment(ctx, b.ID)
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	if checkout.AmountPaise != 150000 {
		t.Errorf("final amount = %d, want plan price 150000", checkout.AmountPaise)
	}

	// Initiating again reuses the open order
	again, err := f.service.InitiateFinalPayment(ctx, b.ID)
	if err != nil {
		t.Fatalf("re-initiate failed: %v", err)
	}
	if again.OrderID != checkout.OrderID {
		t.Errorf("re-initiation created a second final order")
	}

	confirmed, err := f.service.VerifyFinalPayment(ctx, b.ID, &VerifyPaymentRequest{
		OrderID:   checkout.OrderID,
		PaymentID: "pay_final001",
		Signature: "good-signature",
	})
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if confirmed.Status != StatusConfirmed {
		t.Errorf("status = %s, want confirmed", confirmed.Status)
	}
	if f.provisioner.calls != 1 {
		t.Errorf("provisioner called %d times, want 1", f.provisioner.calls)
	}

	// Replaying the receipt must not provision twice
	replay, err := f.service.VerifyFinalPayment(ctx, b.ID, &VerifyPaymentRequest{
		OrderID:   checkout.OrderID,
		PaymentID: "pay_final001",
		Signature: "good-signature",
	})
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if replay.ID != confirmed.ID {
		t.Errorf("replay returned a different booking")
	}
	if f.provisioner.calls != 1 {
		t.Errorf("provisioner must run exactly once, ran %d times", f.provisioner.calls)
	}
}

func TestVerifyFinalPaymentLosesRaceToIdenticalConfirmation(t *testing.T) {
	f := newFixture()
	b := f.submitAndVerify(t)
	f.approve(t, b)
	ctx := context.Background()

	checkout, err := f.service.InitiateFinalPayment(ctx, b.ID)
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}

	// A concurrent verification of the same receipt confirms the booking
	// between this request's read and its status CAS
	f.repo.beforeUpdateStatus = func() {
		winner := *f.repo.bookings[b.ID]
		winner.Status = StatusConfirmed
		winner.FinalPaymentID = sql.NullString{String: "pay_final001", Valid: true}
		f.repo.bookings[b.ID] = &winner
	}

	confirmed, err := f.service.VerifyFinalPayment(ctx, b.ID, &VerifyPaymentRequest{
		OrderID:   checkout.OrderID,
		PaymentID: "pay_final001",
		Signature: "good-signature",
	})
	if err != nil {
		t.Fatalf("losing an identical confirmation race must not error: %v", err)
	}
	if confirmed.Status != StatusConfirmed {
		t.Errorf("status = %s, want confirmed", confirmed.Status)
	}
	if f.provisioner.calls != 0 {
		t.Errorf("the losing request must not provision; the winner does")
	}
}

func TestFinalPaymentOnRejectedBooking(t *testing.T) {
	f := newFixture()
	b := f.submitAndVerify(t)
	if _, err := f.service.Decide(context.Background(), b.ID, "rejected", uuid.New()); err != nil {
		t.Fatalf("reject failed: %v", err)
	}

	_, err := f.service.InitiateFinalPayment(context.Background(), b.ID)
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
}

func TestFinalPaymentAfterDeadline(t *testing.T) {
	f := newFixture()
	b := f.submitAndVerify(t)
	nb := f.approve(t, b)

	// Move the deadline into the past, as if 49 hours had gone by
	nb.ApprovalDeadline = sql.NullTime{Time: time.Now().Add(-time.Hour), Valid: true}
	f.repo.bookings[nb.ID] = nb

	_, err := f.service.InitiateFinalPayment(context.Background(), nb.ID)
	if !errors.Is(err, ErrApprovalDeadlineExceeded) {
		t.Fatalf("expected ErrApprovalDeadlineExceeded, got %v", err)
	}
	if f.repo.bookings[nb.ID].Status != StatusExpired {
		t.Errorf("overdue booking should be expired on touch")
	}
	if f.provisioner.calls != 0 {
		t.Errorf("nothing should be provisioned for an expired booking")
	}
}

func TestExpireOverdueApprovals(t *testing.T) {
	f := newFixture()
	b := f.submitAndVerify(t)
	nb := f.approve(t, b)

	nb.ApprovalDeadline = sql.NullTime{Time: time.Now().Add(-time.Minute), Valid: true}
	f.repo.bookings[nb.ID] = nb

	n, err := f.service.ExpireOverdueApprovals(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expired %d bookings, want 1", n)
	}
	if f.repo.bookings[nb.ID].Status != StatusExpired {
		t.Errorf("booking not expired by sweep")
	}
}

func TestGetProjection(t *testing.T) {
	f := newFixture()
	b := f.submitAndVerify(t)

	p, err := f.service.GetProjection(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.BookingID != b.ID || p.Status != StatusPendingApproval || p.AmountPaise != 100 {
		t.Errorf("unexpected projection: %+v", p)
	}

	_, err = f.service.GetProjection(context.Background(), uuid.New())
	if !errors.Is(err, ErrBookingNotFound) {
		t.Fatalf("expected ErrBookingNotFound, got %v", err)
	}
}
