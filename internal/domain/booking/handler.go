package booking

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/libraryconnekto/booking-api/internal/domain/catalog"
	"github.com/libraryconnekto/booking-api/internal/middleware"
	"github.com/libraryconnekto/booking-api/internal/pkg/razorpay"
	"github.com/libraryconnekto/booking-api/internal/pkg/response"
	"github.com/libraryconnekto/booking-api/internal/pkg/validator"
)

// Handler serves the booking HTTP API
type Handler struct {
	service *Service
}

// NewHandler creates a booking handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the booking router. Intake and payment endpoints are
// public; the decision queue requires an admin token.
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Submit)
	r.Post("/verify", h.VerifyTokenPayment)
	r.Get("/checkout/{correlationID}", h.GetCheckout)
	r.Get("/{id}", h.GetProjection)
	r.Post("/{id}/payment", h.InitiateFinalPayment)
	r.Post("/{id}/payment/verify", h.VerifyFinalPayment)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(middleware.RequireAdmin())
		r.Get("/", h.List)
		r.Get("/{id}/details", h.GetBooking)
		r.Put("/{id}", h.Decide)
	})

	return r
}

// Submit handles POST /bookings
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	checkout, err := h.service.SubmitRequest(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.Created(w, checkout)
}

// VerifyTokenPayment handles POST /bookings/verify
func (h *Handler) VerifyTokenPayment(w http.ResponseWriter, r *http.Request) {
	var req VerifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	booking, err := h.service.VerifyTokenPayment(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.Created(w, booking)
}

// GetCheckout handles GET /bookings/checkout/{correlationID}
func (h *Handler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	correlationID := chi.URLParam(r, "correlationID")

	checkout, err := h.service.GetCheckout(r.Context(), correlationID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if checkout == nil {
		response.NotFound(w, "Checkout session not found or expired")
		return
	}
	response.OK(w, checkout)
}

// GetProjection handles GET /bookings/{id}
func (h *Handler) GetProjection(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid booking ID")
		return
	}

	projection, err := h.service.GetProjection(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, projection)
}

// InitiateFinalPayment handles POST /bookings/{id}/payment
func (h *Handler) InitiateFinalPayment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid booking ID")
		return
	}

	checkout, err := h.service.InitiateFinalPayment(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.Created(w, checkout)
}

// VerifyFinalPayment handles POST /bookings/{id}/payment/verify
func (h *Handler) VerifyFinalPayment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid booking ID")
		return
	}

	var req VerifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	booking, err := h.service.VerifyFinalPayment(r.Context(), id, &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, booking)
}

// Decide handles PUT /bookings/{id} (admin)
func (h *Handler) Decide(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid booking ID")
		return
	}

	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if fieldErrs := validator.Validate(&req); fieldErrs != nil {
		response.ValidationError(w, fieldErrs)
		return
	}

	adminID := middleware.GetUserID(r.Context())
	booking, err := h.service.Decide(r.Context(), id, req.Status, adminID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, booking)
}

// GetBooking handles GET /bookings/{id}/details (admin)
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid booking ID")
		return
	}

	booking, err := h.service.GetBooking(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, booking)
}

// List handles GET /bookings (admin)
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	status := Status(r.URL.Query().Get("status"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	bookings, err := h.service.List(r.Context(), status, limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, bookings)
}

// writeError maps workflow errors onto the response envelope
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var fieldErrs ValidationErrors
	switch {
	case errors.As(err, &fieldErrs):
		response.ValidationError(w, fieldErrs)
	case errors.Is(err, ErrBookingNotFound), errors.Is(err, ErrOrderNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, catalog.ErrLibraryNotFound), errors.Is(err, catalog.ErrPlanNotFound), errors.Is(err, catalog.ErrSeatNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrSeatConflict):
		response.RetryableError(w, http.StatusConflict, "SEAT_CONFLICT", err.Error())
	case errors.Is(err, ErrOrderConsumed):
		response.Conflict(w, err.Error())
	case errors.Is(err, ErrSignatureInvalid):
		response.Error(w, http.StatusBadRequest, "SIGNATURE_INVALID", err.Error())
	case errors.Is(err, ErrIllegalTransition):
		response.Conflict(w, err.Error())
	case errors.Is(err, ErrApprovalDeadlineExceeded):
		response.Gone(w, err.Error())
	case errors.Is(err, razorpay.ErrGatewayUnavailable):
		response.BadGateway(w, "Payment gateway is unavailable, please retry")
	case errors.Is(err, razorpay.ErrOrderRejected):
		response.Error(w, http.StatusBadRequest, "ORDER_REJECTED", "Payment gateway rejected the order")
	default:
		log.Error().Err(err).Msg("booking handler error")
		response.InternalError(w)
	}
}
