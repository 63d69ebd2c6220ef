package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/iho/aptledger/internal/adapter/http/dto"
	"github.com/iho/aptledger/internal/domain"
	"github.com/iho/aptledger/internal/usecase"
)

func TestUserHandler_Provision(t *testing.T) {
	svc := &stubUserService{
		createFn: func(ctx context.Context, caller *domain.User, input usecase.ProvisionUserInput) (*domain.User, error) {
			if caller == nil {
				return nil, domain.ErrUnauthenticated
			}
			if !caller.Role.CanProvision() {
				return nil, domain.ErrInsufficientRole
			}
			return &domain.User{ID: "u-1", Email: input.Email, Role: input.Role, HashedPassword: "secret-hash", ForcePasswordChange: true}, nil
		},
	}
	h := NewUserHandler(svc)

	body := `{"email":"marco@example.com","role":"viewer","apartmentId":"apt-1","tempPassword":"Temp1234"}`

	rr := httptest.NewRecorder()
	h.Provision(rr, newRequest(http.MethodPost, "/", body, managerUser))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if strings.Contains(rr.Body.String(), "secret-hash") {
		t.Fatalf("password hash leaked: %s", rr.Body.String())
	}

	var resp dto.UserResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Email != "marco@example.com" || resp.Role != domain.RoleViewer || !resp.ForcePasswordChange {
		t.Fatalf("unexpected user %+v", resp)
	}

	rr = httptest.NewRecorder()
	h.Provision(rr, newRequest(http.MethodPost, "/", body, viewerUser))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for viewer, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.Provision(rr, newRequest(http.MethodPost, "/", body, nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without user, got %d", rr.Code)
	}
}

func TestUserHandler_Remove(t *testing.T) {
	var gotUser, gotApartment string
	svc := &stubUserService{
		deleteFn: func(ctx context.Context, caller *domain.User, userID, apartmentID string) error {
			gotUser, gotApartment = userID, apartmentID
			return nil
		},
	}
	h := NewUserHandler(svc)

	rr := httptest.NewRecorder()
	h.Remove(rr, newRequest(http.MethodDelete, "/", "", managerUser, "id", "apt-1", "userID", "u-1"))

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if gotUser != "u-1" || gotApartment != "apt-1" {
		t.Fatalf("unexpected ids %s %s", gotUser, gotApartment)
	}
}

func TestUserHandler_MeFallsBackToClaims(t *testing.T) {
	svc := &stubUserService{
		getFn: func(ctx context.Context, id string) (*domain.User, error) {
			return nil, domain.ErrUserNotFound
		},
	}
	h := NewUserHandler(svc)

	rr := httptest.NewRecorder()
	h.Me(rr, newRequest(http.MethodGet, "/", "", managerUser))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp dto.UserResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil || resp.ID != "anna" {
		t.Fatalf("expected claims user, got %s (%v)", rr.Body.String(), err)
	}
}
