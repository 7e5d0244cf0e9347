package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/veldlink/veldlink/internal/shared"
)

// Service wraps account business rules.
type Service struct {
	repo   Repository
	audit  *shared.AuditLogger
	logger *slog.Logger
}

// NewService constructs a new Service. The audit logger may be nil.
func NewService(repo Repository, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger}
}

// RegisterInput carries self-registration fields.
type RegisterInput struct {
	Email       string
	Password    string
	Role        Role
	CompanyName string
	City        string
	Phone       string
}

// Register creates a new unapproved account. Buyers, suppliers and
// transporters may self-register; admin accounts may not.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	if !in.Role.Registerable() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, in.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &User{
		ID:           uuid.New(),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: string(hash),
		Role:         in.Role,
		CompanyName:  strings.TrimSpace(in.CompanyName),
		City:         strings.TrimSpace(in.City),
		Phone:        strings.TrimSpace(in.Phone),
		IsApproved:   false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate validates email/password credentials. Unapproved accounts
// cannot log in.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsApproved {
		return nil, ErrNotApproved
	}
	return user, nil
}

// Profile returns the account for the given ID.
func (s *Service) Profile(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

// ListUsers returns accounts for the admin console.
func (s *Service) ListUsers(ctx context.Context, filter ListFilter, limit, offset int) ([]User, int, error) {
	if filter.Role != "" && !filter.Role.Valid() {
		return nil, 0, fmt.Errorf("%w: %q", ErrInvalidRole, filter.Role)
	}
	return s.repo.List(ctx, filter, limit, offset)
}

// Approve unlocks an account for login.
func (s *Service) Approve(ctx context.Context, adminID, userID uuid.UUID) (*User, error) {
	user, err := s.repo.SetApproval(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, adminID, "user.approve", user)
	return user, nil
}

// Suspend revokes approval; the account keeps its data but cannot log in.
func (s *Service) Suspend(ctx context.Context, adminID, userID uuid.UUID) (*User, error) {
	user, err := s.repo.SetApproval(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, adminID, "user.suspend", user)
	return user, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID uuid.UUID, action string, user *User) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: user.ID.String(),
		Meta:     map[string]any{"email": user.Email, "role": string(user.Role)},
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
