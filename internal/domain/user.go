package domain

import (
	"errors"
	"strings"
	"time"
)

// SystemUserID is the payer recorded on expenses the service derives itself.
const SystemUserID = "system"

// User represents an authenticated person with access to one or more apartments.
type User struct {
	ID                  string
	Email               string
	DisplayName         string
	HashedPassword      string
	Role                Role
	ForcePasswordChange bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Participant returns the user as a ledger participant.
func (u *User) Participant() Participant {
	name := u.DisplayName
	if name == "" {
		name = u.Email
	}
	if name == "" {
		name = u.ID
	}
	return Participant{ID: u.ID, DisplayName: name}
}

// DisplayNameFromEmail derives a display name from the local part of an email.
func DisplayNameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

// Role represents a user's access level
type Role string

const (
	// RoleSuperAdmin can manage every apartment and provision users anywhere
	RoleSuperAdmin Role = "superAdmin"

	// RoleManager can edit the apartments they own and provision users into them
	RoleManager Role = "manager"

	// RoleViewer can only view resources, no mutations
	RoleViewer Role = "viewer"
)

var validRoles = map[Role]bool{
	RoleSuperAdmin: true,
	RoleManager:    true,
	RoleViewer:     true,
}

// IsValid checks if the role is a valid role
func (r Role) IsValid() bool {
	return validRoles[r]
}

// CanEdit checks if the role can mutate apartment data
func (r Role) CanEdit() bool {
	return r == RoleSuperAdmin || r == RoleManager
}

// CanProvision checks if the role can create and delete users
func (r Role) CanProvision() bool {
	return r == RoleSuperAdmin || r == RoleManager
}

// Authentication errors
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInsufficientRole = errors.New("insufficient role for this operation")
)
