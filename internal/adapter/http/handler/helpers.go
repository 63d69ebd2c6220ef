package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/iho/aptledger/internal/adapter/http/dto"
	"github.com/iho/aptledger/internal/adapter/http/middleware"
	"github.com/iho/aptledger/internal/domain"
)

// maxBodyBytes caps decoded request bodies.
const maxBodyBytes = 1 << 20

// Authorizer resolves the apartment a caller may act on.
type Authorizer interface {
	Authorize(ctx context.Context, user *domain.User, apartmentID string, write bool) (*domain.Apartment, error)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// writeDomainError writes err with the status mapDomainError picks for it.
func writeDomainError(w http.ResponseWriter, err error, message string) {
	writeError(w, mapDomainError(err), message, err.Error())
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthenticated),
		errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrExpiredToken):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrInsufficientRole):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrInvalidDate),
		errors.Is(err, domain.ErrInvalidRange),
		errors.Is(err, domain.ErrInvalidShare),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrSamePayer),
		errors.Is(err, domain.ErrInvalidType),
		errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, domain.ErrInvalidCurrency),
		errors.Is(err, domain.ErrAmountTooLarge),
		errors.Is(err, domain.ErrAmountTooSmall),
		errors.Is(err, domain.ErrNotesTooLong),
		errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrPasswordTooWeak):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrPersistenceFailed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON decodes a size-limited request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return false
	}
	return true
}

// pathInt parses an integer URL parameter.
func pathInt(r *http.Request, name string) (int, error) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", domain.ErrInvalidArgument, name)
	}
	return v, nil
}

// pathMonth parses the year and zero-based month URL parameters.
func pathMonth(r *http.Request) (year, month int, err error) {
	if year, err = pathInt(r, "year"); err != nil {
		return 0, 0, err
	}
	if month, err = pathInt(r, "month"); err != nil {
		return 0, 0, err
	}
	return year, month, nil
}

// caller returns the authenticated user, or nil.
func caller(r *http.Request) *domain.User {
	user, _ := middleware.GetUserFromContext(r.Context())
	return user
}

// authorize checks the caller may act on the {id} apartment and writes the
// error response when not.
func authorize(w http.ResponseWriter, r *http.Request, az Authorizer, write bool) (*domain.Apartment, bool) {
	apartment, err := az.Authorize(r.Context(), caller(r), chi.URLParam(r, "id"), write)
	if err != nil {
		writeDomainError(w, err, "apartment access denied")
		return nil, false
	}
	return apartment, true
}
