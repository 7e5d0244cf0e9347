package order

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/veldlink/veldlink/internal/auth"
	"github.com/veldlink/veldlink/internal/observability"
	"github.com/veldlink/veldlink/internal/shared"
)

// Service wraps order business rules. Orders are only born inside the offer
// acceptance transaction; this service governs everything after that.
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

// Get fetches an order. Buyers see their own; admins see everything.
func (s *Service) Get(ctx context.Context, actorID uuid.UUID, role auth.Role, id uuid.UUID) (*Order, error) {
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
	default:
		return nil, ErrNotFound
	}
}

// List returns orders visible to the actor.
func (s *Service) List(ctx context.Context, actorID uuid.UUID, role auth.Role, status Status, limit, offset int) ([]Order, int, error) {
	filter := ListFilter{Status: status}
	switch role {
	case auth.RoleAdmin:
	case auth.RoleBuyer:
		filter.BuyerID = actorID
	default:
		return nil, 0, ErrNotFound
	}
	return s.repo.List(ctx, filter, limit, offset)
}

// VerifyPayment records the buyer's payment as received. Admin only; the
// order must still be in its freshly accepted state.
func (s *Service) VerifyPayment(ctx context.Context, adminID, id uuid.UUID) (*Order, error) {
	if err := s.repo.VerifyPayment(ctx, id); err != nil {
		return nil, err
	}
	s.metrics.RecordTransition("order", string(StatusPaymentVerified))
	s.recordAudit(ctx, adminID, "order.payment_verify", id)
	return s.repo.Get(ctx, id)
}

// Complete closes out a delivered order. Admin only.
func (s *Service) Complete(ctx context.Context, adminID, id uuid.UUID) (*Order, error) {
	if err := s.repo.Complete(ctx, id); err != nil {
		return nil, err
	}
	s.metrics.RecordTransition("order", string(StatusCompleted))
	s.recordAudit(ctx, adminID, "order.complete", id)
	return s.repo.Get(ctx, id)
}

func (s *Service) recordAudit(ctx context.Context, actorID uuid.UUID, action string, id uuid.UUID) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "order",
		EntityID: id.String(),
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
