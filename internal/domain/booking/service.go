package booking

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/libraryconnekto/booking-api/internal/domain/catalog"
	"github.com/libraryconnekto/booking-api/internal/pkg/razorpay"
	"github.com/libraryconnekto/booking-api/internal/pkg/validator"
)

// Gateway abstracts the payment gateway for order creation and receipt
// verification
type Gateway interface {
	CreateOrder(ctx context.Context, req razorpay.CreateOrderRequest) (*razorpay.Order, error)
	VerifySignature(orderID, paymentID, signature string) bool
	KeyID() string
}

// Notifier delivers decision outcomes to the requester. Implementations
// must not block the decision path on delivery failures.
type Notifier interface {
	BookingApproved(ctx context.Context, b *Booking) error
	BookingRejected(ctx context.Context, b *Booking) error
}

// Provisioner creates the member account after a booking is confirmed.
// Implementations must be idempotent on booking id.
type Provisioner interface {
	Provision(ctx context.Context, b *Booking) error
}

// Config carries booking policy knobs
type Config struct {
	TokenAmountPaise int64
	Currency         string
	ApprovalWindow   time.Duration
}

// Service orchestrates the booking payment workflow
type Service struct {
	repo        Repository
	catalog     catalog.Repository
	gateway     Gateway
	checkout    *CheckoutStore
	notifier    Notifier
	provisioner Provisioner
	cfg         Config
}

// NewService creates a booking service
func NewService(repo Repository, catalogRepo catalog.Repository, gateway Gateway, checkout *CheckoutStore, notifier Notifier, provisioner Provisioner, cfg Config) *Service {
	return &Service{
		repo:        repo,
		catalog:     catalogRepo,
		gateway:     gateway,
		checkout:    checkout,
		notifier:    notifier,
		provisioner: provisioner,
		cfg:         cfg,
	}
}

// SubmitRequest validates an intake request, reuses or creates the token
// payment order for it, and returns the checkout handoff. No booking row
// exists yet; that happens only after VerifyTokenPayment.
func (s *Service) SubmitRequest(ctx context.Context, req *CreateBookingRequest) (*CheckoutResponse, error) {
	now := time.Now()

	fieldErrs := validator.Validate(req)
	if fieldErrs == nil {
		fieldErrs = make(map[string]string)
	}
	for field, msg := range req.ValidateSchedule(now) {
		fieldErrs[field] = msg
	}

	var plan *catalog.Plan
	if _, ok := fieldErrs["library_id"]; !ok {
		library, err := s.catalog.GetLibraryByID(ctx, req.LibraryID)
		if err != nil {
			return nil, err
		}
		if library == nil {
			fieldErrs["library_id"] = "Library not found"
		} else if _, ok := fieldErrs["plan_id"]; !ok {
			plan, err = s.catalog.GetActivePlan(ctx, req.PlanID, req.LibraryID)
			if err != nil {
				return nil, err
			}
			if plan == nil {
				fieldErrs["plan_id"] = "Plan not found or inactive"
			}
		}
	}

	var seatID uuid.NullUUID
	if req.SeatID != nil {
		seat, err := s.catalog.GetSeat(ctx, *req.SeatID, req.LibraryID)
		if err != nil {
			return nil, err
		}
		if seat == nil {
			fieldErrs["seat_id"] = "Seat not found in this library"
		} else {
			seatID = uuid.NullUUID{UUID: seat.ID, Valid: true}
		}
	}

	if len(fieldErrs) > 0 {
		return nil, ValidationErrors(fieldErrs)
	}

	// Courtesy availability check before taking the token payment. The
	// binding check runs again under lock at verification time.
	candidate := bookingFromRequest(req, seatID, plan, s.cfg.TokenAmountPaise)
	available, err := s.repo.SeatAvailable(ctx, candidate)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, ErrSeatConflict
	}

	correlationID := CorrelationID(req.Email, req.Mobile, req.LibraryID, seatID, req.Date)

	order, err := s.repo.GetOpenOrder(ctx, correlationID, OrderPurposeToken)
	if err != nil {
		return nil, err
	}
	if order == nil {
		snapshot := &orderSnapshot{Request: *req, TotalAmountPaise: plan.PricePaise}
		order, err = s.createOrder(ctx, correlationID, OrderPurposeToken, s.cfg.TokenAmountPaise, uuid.NullUUID{}, snapshot)
		if err != nil {
			return nil, err
		}
	}

	checkout := &CheckoutResponse{
		OrderID:       order.GatewayOrderID,
		KeyID:         s.gateway.KeyID(),
		AmountPaise:   order.AmountPaise,
		Currency:      order.Currency,
		CorrelationID: correlationID,
		Prefill: CheckoutPrefill{
			Name:   req.Name,
			Email:  req.Email,
			Mobile: req.Mobile,
		},
	}
	s.cacheCheckout(ctx, checkout)
	return checkout, nil
}

// orderSnapshot is what an open token order needs to produce a booking on
// its own: the intake request plus the plan price as quoted at checkout.
// Catalog changes after checkout cannot invalidate a paid receipt.
type orderSnapshot struct {
	Request          CreateBookingRequest `json:"request"`
	TotalAmountPaise int64                `json:"total_amount_paise"`
}

func (s *Service) createOrder(ctx context.Context, correlationID string, purpose OrderPurpose, amount int64, bookingID uuid.NullUUID, snapshot *orderSnapshot) (*PaymentOrder, error) {
	gwOrder, err := s.gateway.CreateOrder(ctx, razorpay.CreateOrderRequest{
		Amount:   amount,
		Currency: s.cfg.Currency,
		Receipt:  correlationID,
		Notes:    map[string]string{"correlation_id": correlationID, "purpose": string(purpose)},
	})
	if err != nil {
		return nil, err
	}

	order := &PaymentOrder{
		ID:             uuid.New(),
		CorrelationID:  correlationID,
		GatewayOrderID: gwOrder.ID,
		Purpose:        purpose,
		AmountPaise:    amount,
		Currency:       s.cfg.Currency,
		Status:         OrderStatusCreated,
		BookingID:      bookingID,
	}
	if snapshot != nil {
		data, err := json.Marshal(snapshot)
		if err != nil {
			return nil, fmt.Errorf("failed to snapshot booking request: %w", err)
		}
		order.RequestJSON = data
	}

	err = s.repo.CreateOrder(ctx, order)
	if errors.Is(err, errDuplicateOrder) {
		// Lost a concurrent-submit race; the winner's order is the open one
		return s.repo.GetOpenOrder(ctx, correlationID, purpose)
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

// GetCheckout returns the cached checkout session for an open correlation
// id, or nil when none is cached.
func (s *Service) GetCheckout(ctx context.Context, correlationID string) (*CheckoutResponse, error) {
	if s.checkout == nil {
		return nil, nil
	}
	return s.checkout.Get(ctx, correlationID)
}

// VerifyTokenPayment validates the checkout receipt and, on success, creates
// the booking in pending_approval atomically with consuming the order.
// Replayed receipts return the already-created booking.
func (s *Service) VerifyTokenPayment(ctx context.Context, req *VerifyPaymentRequest) (*Booking, error) {
	if fieldErrs := validator.Validate(req); fieldErrs != nil {
		return nil, ValidationErrors(fieldErrs)
	}

	if existing, err := s.repo.GetByTokenPaymentID(ctx, req.PaymentID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	order, err := s.repo.GetOrderByGatewayID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil || order.Purpose != OrderPurposeToken {
		return nil, ErrOrderNotFound
	}
	if order.Status != OrderStatusCreated {
		return nil, ErrOrderConsumed
	}

	if !s.gateway.VerifySignature(req.OrderID, req.PaymentID, req.Signature) {
		log.Warn().
			Str("order_id", req.OrderID).
			Str("payment_id", req.PaymentID).
			Msg("token payment signature verification failed")
		return nil, ErrSignatureInvalid
	}

	// Build the booking from the snapshot taken at checkout. The plan may
	// have been deactivated or repriced since; the paid receipt still gets
	// its booking, at the price that was quoted, for the admin to decide on.
	var snapshot orderSnapshot
	if err := json.Unmarshal(order.RequestJSON, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to restore booking request: %w", err)
	}
	intake := snapshot.Request

	var seatID uuid.NullUUID
	if intake.SeatID != nil {
		seatID = uuid.NullUUID{UUID: *intake.SeatID, Valid: true}
	}
	b := bookingFromRequest(&intake, seatID, nil, order.AmountPaise)
	b.TotalAmountPaise = snapshot.TotalAmountPaise
	b.ID = uuid.New()
	b.Status = StatusPendingApproval
	b.TokenPaymentID = sql.NullString{String: req.PaymentID, Valid: true}

	created, err := s.repo.CreateVerified(ctx, b, order.ID)
	if errors.Is(err, errDuplicateReceipt) {
		return s.repo.GetByTokenPaymentID(ctx, req.PaymentID)
	}
	if err != nil {
		return nil, err
	}

	if s.checkout != nil {
		if err := s.checkout.Delete(ctx, order.CorrelationID); err != nil {
			log.Warn().Err(err).Str("correlation_id", order.CorrelationID).Msg("failed to drop checkout session")
		}
	}

	if created.NeedsSeatAssignment {
		log.Info().
			Str("booking_id", created.ID.String()).
			Msg("booking created without seat; requested seat lost before verification")
	}
	return created, nil
}

// Decide applies an admin approval or rejection. Approval starts the final
// payment window; rejection is terminal and the token amount is not
// refunded.
func (s *Service) Decide(ctx context.Context, bookingID uuid.UUID, decision string, adminID uuid.UUID) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrBookingNotFound
	}

	event := EventReject
	if decision == string(StatusApproved) || decision == "approve" {
		event = EventApprove
	}

	now := time.Now()
	nb, err := Transition(b, event, adminID, now)
	if err != nil {
		return nil, err
	}
	if event == EventApprove {
		nb.ApprovalDeadline = sql.NullTime{Time: now.Add(s.cfg.ApprovalWindow), Valid: true}
	}

	if err := s.repo.UpdateStatus(ctx, nb, b.Status); err != nil {
		return nil, err
	}

	actor := uuid.NullUUID{UUID: adminID, Valid: true}
	if err := s.repo.RecordEvent(ctx, nb.ID, string(event), actor, "admin decision"); err != nil {
		log.Error().Err(err).Str("booking_id", nb.ID.String()).Msg("failed to record decision event")
	}

	s.notify(ctx, nb, event)
	return nb, nil
}

func (s *Service) notify(ctx context.Context, b *Booking, event Event) {
	if s.notifier == nil {
		return
	}
	var err error
	switch event {
	case EventApprove:
		err = s.notifier.BookingApproved(ctx, b)
	case EventReject:
		err = s.notifier.BookingRejected(ctx, b)
	default:
		return
	}
	if err != nil {
		log.Error().Err(err).
			Str("booking_id", b.ID.String()).
			Str("event", string(event)).
			Msg("failed to send booking notification")
	}
}

// InitiateFinalPayment creates or reuses the final payment order for an
// approved booking.
func (s *Service) InitiateFinalPayment(ctx context.Context, bookingID uuid.UUID) (*CheckoutResponse, error) {
	b, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrBookingNotFound
	}
	if b, err = s.requireApproved(ctx, b, time.Now()); err != nil {
		return nil, err
	}

	correlationID := "final:" + b.ID.String()
	order, err := s.repo.GetOpenOrder(ctx, correlationID, OrderPurposeFinal)
	if err != nil {
		return nil, err
	}
	if order == nil {
		bookingRef := uuid.NullUUID{UUID: b.ID, Valid: true}
		order, err = s.createOrder(ctx, correlationID, OrderPurposeFinal, b.TotalAmountPaise, bookingRef, nil)
		if err != nil {
			return nil, err
		}
	}

	checkout := &CheckoutResponse{
		OrderID:       order.GatewayOrderID,
		KeyID:         s.gateway.KeyID(),
		AmountPaise:   order.AmountPaise,
		Currency:      order.Currency,
		CorrelationID: correlationID,
		Prefill: CheckoutPrefill{
			Name:   b.Name,
			Email:  b.Email,
			Mobile: b.Mobile,
		},
	}
	s.cacheCheckout(ctx, checkout)
	return checkout, nil
}

// VerifyFinalPayment validates the final payment receipt and confirms the
// booking. A receipt arriving after the approval deadline is rejected and
// the booking expires rather than confirming silently late.
func (s *Service) VerifyFinalPayment(ctx context.Context, bookingID uuid.UUID, req *VerifyPaymentRequest) (*Booking, error) {
	if fieldErrs := validator.Validate(req); fieldErrs != nil {
		return nil, ValidationErrors(fieldErrs)
	}

	b, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrBookingNotFound
	}
	if b.Status == StatusConfirmed && b.FinalPaymentID.Valid && b.FinalPaymentID.String == req.PaymentID {
		return b, nil
	}

	now := time.Now()
	if b, err = s.requireApproved(ctx, b, now); err != nil {
		return nil, err
	}

	order, err := s.repo.GetOrderByGatewayID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil || order.Purpose != OrderPurposeFinal || !order.BookingID.Valid || order.BookingID.UUID != b.ID {
		return nil, ErrOrderNotFound
	}
	if order.Status != OrderStatusCreated {
		return nil, ErrOrderConsumed
	}

	if !s.gateway.VerifySignature(req.OrderID, req.PaymentID, req.Signature) {
		log.Warn().
			Str("booking_id", b.ID.String()).
			Str("order_id", req.OrderID).
			Str("payment_id", req.PaymentID).
			Msg("final payment signature verification failed")
		return nil, ErrSignatureInvalid
	}

	nb, err := Transition(b, EventConfirm, uuid.Nil, now)
	if err != nil {
		return nil, err
	}
	nb.FinalPaymentID = sql.NullString{String: req.PaymentID, Valid: true}

	if err := s.repo.UpdateStatus(ctx, nb, b.Status); err != nil {
		if errors.Is(err, ErrIllegalTransition) {
			// Lost the CAS. Either a concurrent identical verification
			// already confirmed the booking, or the expiry sweep got there
			// first; re-read to tell which.
			current, gerr := s.repo.GetByID(ctx, b.ID)
			if gerr != nil {
				return nil, gerr
			}
			if current != nil && current.Status == StatusConfirmed &&
				current.FinalPaymentID.Valid && current.FinalPaymentID.String == req.PaymentID {
				return current, nil
			}
			return nil, ErrApprovalDeadlineExceeded
		}
		return nil, err
	}

	if err := s.repo.ConsumeOrder(ctx, order.ID, nb.ID); err != nil && !errors.Is(err, ErrOrderConsumed) {
		log.Error().Err(err).Str("booking_id", nb.ID.String()).Msg("failed to consume final payment order")
	}
	if err := s.repo.RecordEvent(ctx, nb.ID, string(EventConfirm), uuid.NullUUID{}, "final payment verified"); err != nil {
		log.Error().Err(err).Str("booking_id", nb.ID.String()).Msg("failed to record confirmation event")
	}
	if s.checkout != nil {
		if err := s.checkout.Delete(ctx, order.CorrelationID); err != nil {
			log.Warn().Err(err).Str("correlation_id", order.CorrelationID).Msg("failed to drop checkout session")
		}
	}

	if s.provisioner != nil {
		if err := s.provisioner.Provision(ctx, nb); err != nil {
			log.Error().Err(err).Str("booking_id", nb.ID.String()).Msg("failed to provision member account")
		}
	}
	return nb, nil
}

// requireApproved ensures the booking can still take a final payment. An
// approved booking past its deadline is expired on the spot.
func (s *Service) requireApproved(ctx context.Context, b *Booking, now time.Time) (*Booking, error) {
	switch b.Status {
	case StatusApproved:
	case StatusExpired:
		return nil, ErrApprovalDeadlineExceeded
	default:
		return nil, ErrIllegalTransition
	}

	if b.ApprovalDeadline.Valid && now.After(b.ApprovalDeadline.Time) {
		nb, err := Transition(b, EventExpire, uuid.Nil, now)
		if err != nil {
			return nil, err
		}
		if err := s.repo.UpdateStatus(ctx, nb, b.Status); err != nil && !errors.Is(err, ErrIllegalTransition) {
			return nil, err
		}
		if err := s.repo.RecordEvent(ctx, b.ID, string(EventExpire), uuid.NullUUID{}, "approval payment window elapsed"); err != nil {
			log.Error().Err(err).Str("booking_id", b.ID.String()).Msg("failed to record expiry event")
		}
		return nil, ErrApprovalDeadlineExceeded
	}
	return b, nil
}

// GetProjection returns the public read model for a booking
func (s *Service) GetProjection(ctx context.Context, id uuid.UUID) (*Projection, error) {
	p, err := s.repo.GetProjection(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrBookingNotFound
	}
	return p, nil
}

// GetBooking returns the full booking record for admin views
func (s *Service) GetBooking(ctx context.Context, id uuid.UUID) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrBookingNotFound
	}
	return b, nil
}

// List returns bookings for the admin queue, optionally filtered by status
func (s *Service) List(ctx context.Context, status Status, limit, offset int) ([]*Booking, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, status, limit, offset)
}

// ExpireOverdueApprovals closes out approved bookings whose payment window
// has elapsed; the sweep worker calls this on a timer.
func (s *Service) ExpireOverdueApprovals(ctx context.Context) (int64, error) {
	return s.repo.ExpireOverdueApprovals(ctx, time.Now())
}

func (s *Service) cacheCheckout(ctx context.Context, checkout *CheckoutResponse) {
	if s.checkout == nil {
		return
	}
	if err := s.checkout.Save(ctx, checkout); err != nil {
		log.Warn().Err(err).Str("correlation_id", checkout.CorrelationID).Msg("failed to cache checkout session")
	}
}

func bookingFromRequest(req *CreateBookingRequest, seatID uuid.NullUUID, plan *catalog.Plan, tokenAmount int64) *Booking {
	b := &Booking{
		Name:             req.Name,
		Email:            req.Email,
		Mobile:           req.Mobile,
		Address:          req.Address,
		LibraryID:        req.LibraryID,
		PlanID:           req.PlanID,
		SeatID:           seatID,
		TokenAmountPaise: tokenAmount,
	}
	if plan != nil {
		b.TotalAmountPaise = plan.PricePaise
	}
	if req.Date != "" {
		if date, err := time.Parse(dateLayout, req.Date); err == nil {
			b.RequestedDate = sql.NullTime{Time: date, Valid: true}
		}
	}
	if req.StartTime != "" {
		b.StartTime = sql.NullString{String: req.StartTime, Valid: true}
	}
	if req.EndTime != "" {
		b.EndTime = sql.NullString{String: req.EndTime, Valid: true}
	}
	if req.Purpose != "" {
		b.Purpose = sql.NullString{String: req.Purpose, Valid: true}
	}
	return b
}
