package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/libraryconnekto/booking-api/internal/pkg/response"
)

// Handler serves read-only catalog lookups
type Handler struct {
	repo Repository
}

// NewHandler creates catalog handler
func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// ListPlans handles GET /libraries/{id}/plans
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	libraryID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid library id")
		return
	}

	plans, err := h.repo.ListActivePlans(r.Context(), libraryID)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, plans)
}

// ListSeats handles GET /libraries/{id}/seats
func (h *Handler) ListSeats(w http.ResponseWriter, r *http.Request) {
	libraryID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid library id")
		return
	}

	seats, err := h.repo.ListSeats(r.Context(), libraryID)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, seats)
}

// Routes returns catalog router
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{id}/plans", h.ListPlans)
	r.Get("/{id}/seats", h.ListSeats)
	return r
}
