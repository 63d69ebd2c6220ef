package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/aptledger/internal/adapter/http/dto"
	"github.com/iho/aptledger/internal/domain"
	"github.com/iho/aptledger/internal/usecase"
)

// GuestService defines the behavior needed by GuestHandler.
type GuestService interface {
	CreateGuest(ctx context.Context, input usecase.CreateGuestInput) (*domain.Guest, error)
	ListGuests(ctx context.Context, apartmentID string) ([]*domain.Guest, error)
	DeleteGuest(ctx context.Context, apartmentID, guestID string) error
	CreateBooking(ctx context.Context, input usecase.CreateBookingInput) (*usecase.BookingResult, error)
}

// GuestHandler handles guest and booking HTTP requests.
type GuestHandler struct {
	guestUC GuestService
	access  Authorizer
}

// NewGuestHandler creates a new GuestHandler.
func NewGuestHandler(guestUC GuestService, access Authorizer) *GuestHandler {
	return &GuestHandler{guestUC: guestUC, access: access}
}

// Create registers a guest.
func (h *GuestHandler) Create(w http.ResponseWriter, r *http.Request) {
	apartment, ok := authorize(w, r, h.access, true)
	if !ok {
		return
	}

	var req dto.CreateGuestRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	guest, err := h.guestUC.CreateGuest(r.Context(), req.ToUseCaseInput(apartment.ID))
	if err != nil {
		writeDomainError(w, err, "failed to create guest")
		return
	}

	writeJSON(w, http.StatusCreated, dto.GuestFromDomain(guest))
}

// List lists guests.
func (h *GuestHandler) List(w http.ResponseWriter, r *http.Request) {
	apartment, ok := authorize(w, r, h.access, false)
	if !ok {
		return
	}

	guests, err := h.guestUC.ListGuests(r.Context(), apartment.ID)
	if err != nil {
		writeDomainError(w, err, "failed to list guests")
		return
	}

	writeJSON(w, http.StatusOK, dto.GuestsFromDomain(guests))
}

// Delete removes a guest.
func (h *GuestHandler) Delete(w http.ResponseWriter, r *http.Request) {
	apartment, ok := authorize(w, r, h.access, true)
	if !ok {
		return
	}

	if err := h.guestUC.DeleteGuest(r.Context(), apartment.ID, chi.URLParam(r, "guestID")); err != nil {
		writeDomainError(w, err, "failed to delete guest")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CreateBooking books a stay: it occupies the nights and records the tourist tax.
func (h *GuestHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	apartment, ok := authorize(w, r, h.access, true)
	if !ok {
		return
	}

	var req dto.CreateBookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.guestUC.CreateBooking(r.Context(), req.ToUseCaseInput(apartment.ID))
	if err != nil {
		writeDomainError(w, err, "failed to create booking")
		return
	}

	writeJSON(w, http.StatusCreated, dto.BookingFromResult(result))
}
