// Package auth manages marketplace accounts: registration, credential checks,
// sessions, and the admin approval gate every new account passes through.
package auth

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/veldlink/veldlink/internal/platform/httpx"
)

// Role partitions every account into exactly one marketplace persona.
type Role string

const (
	RoleBuyer       Role = "buyer"
	RoleSupplier    Role = "supplier"
	RoleTransporter Role = "transporter"
	RoleAdmin       Role = "admin"
)

// Valid reports whether the role is one of the known personas.
func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleSupplier, RoleTransporter, RoleAdmin:
		return true
	}
	return false
}

// Registerable reports whether the role may be chosen at self-registration.
// Admin accounts are provisioned out of band.
func (r Role) Registerable() bool {
	return r == RoleBuyer || r == RoleSupplier || r == RoleTransporter
}

// User represents a marketplace account.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CompanyName  string    `json:"company_name"`
	City         string    `json:"city"`
	Phone        string    `json:"phone,omitempty"`
	IsApproved   bool      `json:"is_approved"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

var (
	// ErrInvalidCredentials covers unknown emails and wrong passwords alike.
	ErrInvalidCredentials = fmt.Errorf("auth: invalid credentials: %w", httpx.ErrUnauthorized)
	// ErrEmailTaken indicates a duplicate registration attempt.
	ErrEmailTaken = fmt.Errorf("auth: email already registered: %w", httpx.ErrConflict)
	// ErrNotApproved blocks login until an admin approves the account.
	ErrNotApproved = fmt.Errorf("auth: account pending approval: %w", httpx.ErrForbidden)
	// ErrUserNotFound indicates the account does not exist.
	ErrUserNotFound = fmt.Errorf("auth: user not found: %w", httpx.ErrNotFound)
	// ErrInvalidRole indicates an unknown or non-registerable role.
	ErrInvalidRole = fmt.Errorf("auth: invalid role: %w", httpx.ErrValidation)
)
