package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/aptledger/internal/adapter/http/dto"
	"github.com/iho/aptledger/internal/domain"
	"github.com/iho/aptledger/internal/usecase"
)

// UserService defines the behavior needed by UserHandler.
type UserService interface {
	CreateUserForApartment(ctx context.Context, caller *domain.User, input usecase.ProvisionUserInput) (*domain.User, error)
	DeleteUserFromApartment(ctx context.Context, caller *domain.User, userID, apartmentID string) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

// UserHandler handles user provisioning.
type UserHandler struct {
	userUC UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userUC UserService) *UserHandler {
	return &UserHandler{userUC: userUC}
}

// Me returns the authenticated user.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := caller(r)
	if user == nil {
		writeDomainError(w, domain.ErrUnauthenticated, "not authenticated")
		return
	}

	stored, err := h.userUC.GetUser(r.Context(), user.ID)
	if err != nil {
		// Token users without a stored account still see their claims.
		if mapDomainError(err) != http.StatusNotFound {
			writeDomainError(w, err, "failed to load user")
			return
		}
		stored = user
	}

	writeJSON(w, http.StatusOK, dto.UserFromDomain(stored))
}

// Provision creates a user inside an apartment with a temporary password.
func (h *UserHandler) Provision(w http.ResponseWriter, r *http.Request) {
	var req dto.ProvisionUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.userUC.CreateUserForApartment(r.Context(), caller(r), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, err, "failed to provision user")
		return
	}

	writeJSON(w, http.StatusCreated, dto.UserFromDomain(user))
}

// Remove removes a user from an apartment and deletes the account.
func (h *UserHandler) Remove(w http.ResponseWriter, r *http.Request) {
	err := h.userUC.DeleteUserFromApartment(r.Context(), caller(r), chi.URLParam(r, "userID"), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "failed to remove user")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
