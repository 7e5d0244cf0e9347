package rfq

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/veldlink/veldlink/internal/auth"
	"github.com/veldlink/veldlink/internal/observability"
	"github.com/veldlink/veldlink/internal/shared"
)

// Service wraps RFQ business rules.
type Service struct {
	repo    Repository
	audit   *shared.AuditLogger
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewService constructs a new Service. Audit logger and metrics may be nil.
func NewService(repo Repository, audit *shared.AuditLogger, metrics *observability.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, metrics: metrics, logger: logger}
}

// CreateInput carries the buyer-submitted RFQ fields.
type CreateInput struct {
	CategoryID       uuid.UUID
	ProductName      string
	Quantity         float64
	Unit             string
	DeliveryAddress  string
	DeliveryCity     string
	DeliveryProvince string
	RequiredBy       *time.Time
	Notes            string
}

func (in CreateInput) validate() error {
	switch {
	case strings.TrimSpace(in.ProductName) == "":
		return fmt.Errorf("%w: product name is required", ErrInvalidRFQ)
	case in.Quantity <= 0:
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidRFQ)
	case strings.TrimSpace(in.Unit) == "":
		return fmt.Errorf("%w: unit is required", ErrInvalidRFQ)
	case strings.TrimSpace(in.DeliveryAddress) == "":
		return fmt.Errorf("%w: delivery address is required", ErrInvalidRFQ)
	case strings.TrimSpace(in.DeliveryCity) == "":
		return fmt.Errorf("%w: delivery city is required", ErrInvalidRFQ)
	}
	return nil
}

// Create opens a new RFQ for the buyer.
func (s *Service) Create(ctx context.Context, buyerID uuid.UUID, in CreateInput) (*RFQ, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	rec := &RFQ{
		ID:               uuid.New(),
		BuyerID:          buyerID,
		CategoryID:       in.CategoryID,
		ProductName:      strings.TrimSpace(in.ProductName),
		Quantity:         in.Quantity,
		Unit:             strings.TrimSpace(in.Unit),
		DeliveryAddress:  strings.TrimSpace(in.DeliveryAddress),
		DeliveryCity:     strings.TrimSpace(in.DeliveryCity),
		DeliveryProvince: strings.TrimSpace(in.DeliveryProvince),
		RequiredBy:       in.RequiredBy,
		Notes:            strings.TrimSpace(in.Notes),
		Status:           StatusNew,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}
	s.metrics.RecordTransition("rfq", string(StatusNew))
	return rec, nil
}

// Get fetches an RFQ, enforcing who may see it. Buyers see their own,
// suppliers see RFQs still open for quoting, admins see everything.
func (s *Service) Get(ctx context.Context, actorID uuid.UUID, role auth.Role, id uuid.UUID) (*RFQ, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch role {
	case auth.RoleAdmin:
		return rec, nil
	case auth.RoleBuyer:
		if rec.BuyerID != actorID {
			return nil, ErrNotOwner
		}
		return rec, nil
	case auth.RoleSupplier:
		if !rec.Status.CanQuote() {
			return nil, ErrNotFound
		}
		return rec, nil
	default:
		return nil, ErrNotFound
	}
}

// List returns RFQs visible to the actor.
func (s *Service) List(ctx context.Context, actorID uuid.UUID, role auth.Role, statuses []Status, limit, offset int) ([]RFQ, int, error) {
	for _, status := range statuses {
		if !status.Valid() {
			return nil, 0, fmt.Errorf("%w: unknown status %q", ErrInvalidRFQ, status)
		}
	}
	filter := ListFilter{Statuses: statuses}
	switch role {
	case auth.RoleAdmin:
	case auth.RoleBuyer:
		filter.BuyerID = actorID
	case auth.RoleSupplier:
		// Suppliers only browse RFQs still open for quoting.
		filter.Statuses = []Status{StatusNew, StatusSourcing}
	default:
		return nil, 0, ErrNotFound
	}
	return s.repo.List(ctx, filter, limit, offset)
}

// StartSourcing moves a fresh RFQ into active sourcing.
func (s *Service) StartSourcing(ctx context.Context, adminID, id uuid.UUID) (*RFQ, error) {
	if err := s.repo.UpdateStatus(ctx, id, StatusSourcing, StatusNew); err != nil {
		return nil, err
	}
	s.metrics.RecordTransition("rfq", string(StatusSourcing))
	s.recordAudit(ctx, adminID, "rfq.sourcing", id)
	return s.repo.Get(ctx, id)
}

// ReopenSourcing puts a quoted RFQ back on the sourcing board after its
// offer expired. The repository refuses while a pending or accepted offer
// still exists.
func (s *Service) ReopenSourcing(ctx context.Context, adminID, id uuid.UUID) (*RFQ, error) {
	if err := s.repo.ReopenSourcing(ctx, id); err != nil {
		return nil, err
	}
	s.metrics.RecordTransition("rfq", string(StatusSourcing))
	s.recordAudit(ctx, adminID, "rfq.reopen", id)
	return s.repo.Get(ctx, id)
}

// Cancel withdraws the RFQ. Only the owning buyer or an admin may cancel,
// and only while the RFQ is non-terminal.
func (s *Service) Cancel(ctx context.Context, actorID uuid.UUID, role auth.Role, id uuid.UUID) (*RFQ, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch role {
	case auth.RoleAdmin:
	case auth.RoleBuyer:
		if rec.BuyerID != actorID {
			return nil, ErrNotOwner
		}
	default:
		return nil, ErrNotOwner
	}
	if !rec.Status.CanCancel() {
		return nil, fmt.Errorf("%w: already %s", ErrInvalidTransition, rec.Status)
	}
	if err := s.repo.UpdateStatus(ctx, id, StatusCancelled, StatusNew, StatusSourcing, StatusQuoted); err != nil {
		return nil, err
	}
	s.metrics.RecordTransition("rfq", string(StatusCancelled))
	s.recordAudit(ctx, actorID, "rfq.cancel", id)
	return s.repo.Get(ctx, id)
}

func (s *Service) recordAudit(ctx context.Context, actorID uuid.UUID, action string, id uuid.UUID) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "rfq",
		EntityID: id.String(),
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
