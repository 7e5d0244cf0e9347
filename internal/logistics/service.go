package logistics

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

// Notifier fans job events out to the background mailer.
type Notifier interface {
	JobAssigned(ctx context.Context, job *Job)
}

// Service wraps logistics business rules.
type Service struct {
	repo     Repository
	notifier Notifier
	audit    *shared.AuditLogger
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewService constructs a new Service. Notifier, audit logger and metrics may
// be nil.
func NewService(repo Repository, notifier Notifier, audit *shared.AuditLogger, metrics *observability.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, notifier: notifier, audit: audit, metrics: metrics, logger: logger}
}

// CreateInput carries the admin-entered dispatch details.
type CreateInput struct {
	OrderID         uuid.UUID
	PickupAddress   string
	PickupCity      string
	DeliveryAddress string
	DeliveryCity    string
	DistanceKm      float64
	AgreedRate      float64
}

func (in CreateInput) validate() error {
	switch {
	case in.OrderID == uuid.Nil:
		return fmt.Errorf("%w: order is required", ErrInvalidJob)
	case strings.TrimSpace(in.PickupAddress) == "" || strings.TrimSpace(in.PickupCity) == "":
		return fmt.Errorf("%w: pickup address and city are required", ErrInvalidJob)
	case strings.TrimSpace(in.DeliveryAddress) == "" || strings.TrimSpace(in.DeliveryCity) == "":
		return fmt.Errorf("%w: delivery address and city are required", ErrInvalidJob)
	case in.DistanceKm < 0:
		return fmt.Errorf("%w: distance cannot be negative", ErrInvalidJob)
	case in.AgreedRate < 0:
		return fmt.Errorf("%w: agreed rate cannot be negative", ErrInvalidJob)
	}
	return nil
}

// Create raises a dispatch job against a payment-verified order. Admin only.
func (s *Service) Create(ctx context.Context, adminID uuid.UUID, in CreateInput) (*Job, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	job := &Job{
		ID:              uuid.New(),
		OrderID:         in.OrderID,
		PickupAddress:   strings.TrimSpace(in.PickupAddress),
		PickupCity:      strings.TrimSpace(in.PickupCity),
		DeliveryAddress: strings.TrimSpace(in.DeliveryAddress),
		DeliveryCity:    strings.TrimSpace(in.DeliveryCity),
		DistanceKm:      in.DistanceKm,
		AgreedRate:      in.AgreedRate,
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, err
	}
	s.metrics.RecordTransition("job", string(StatusPending))
	s.recordAudit(ctx, adminID, "job.create", job.ID, map[string]any{"order_id": job.OrderID.String()})
	return job, nil
}

// Claim lets a transporter take an open job. First come wins.
func (s *Service) Claim(ctx context.Context, transporterID, jobID uuid.UUID) (*Job, error) {
	return s.assign(ctx, transporterID, transporterID, jobID)
}

// Assign lets an admin hand an open job to a named transporter.
func (s *Service) Assign(ctx context.Context, adminID, transporterID, jobID uuid.UUID) (*Job, error) {
	return s.assign(ctx, adminID, transporterID, jobID)
}

func (s *Service) assign(ctx context.Context, actorID, transporterID, jobID uuid.UUID) (*Job, error) {
	if err := s.repo.Claim(ctx, jobID, transporterID); err != nil {
		return nil, err
	}
	job, err := s.repo.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordTransition("job", string(StatusAssigned))
	s.recordAudit(ctx, actorID, "job.assign", jobID, map[string]any{"transporter_id": transporterID.String()})
	if s.notifier != nil {
		s.notifier.JobAssigned(ctx, job)
	}
	return job, nil
}

// Advance moves the transporter's job one step forward: picked_up, in_transit
// or delivered. POD upload and completion have their own operations.
func (s *Service) Advance(ctx context.Context, transporterID, jobID uuid.UUID, to Status) (*Job, error) {
	if to != StatusPickedUp && to != StatusInTransit && to != StatusDelivered {
		return nil, fmt.Errorf("%w: %s is not a transporter step", ErrInvalidTransition, to)
	}
	job, err := s.heldJob(ctx, transporterID, jobID)
	if err != nil {
		return nil, err
	}
	if !job.Status.CanAdvanceTo(to) {
		return nil, fmt.Errorf("%w: %s cannot move to %s", ErrInvalidTransition, job.Status, to)
	}
	if err := s.repo.Advance(ctx, jobID, job.Status, to); err != nil {
		return nil, err
	}
	s.metrics.RecordTransition("job", string(to))
	if to == StatusInTransit || to == StatusDelivered {
		s.metrics.RecordTransition("order", string(to))
	}
	s.recordAudit(ctx, transporterID, "job."+string(to), jobID, nil)
	return s.repo.Get(ctx, jobID)
}

// UploadPOD records the proof-of-delivery artifact URL on a delivered job.
// The file itself lives in external storage; only the URL is kept.
func (s *Service) UploadPOD(ctx context.Context, transporterID, jobID uuid.UUID, podURL string) (*Job, error) {
	if strings.TrimSpace(podURL) == "" {
		return nil, fmt.Errorf("%w: pod url is required", ErrInvalidJob)
	}
	if _, err := s.heldJob(ctx, transporterID, jobID); err != nil {
		return nil, err
	}
	if err := s.repo.RecordPOD(ctx, jobID, strings.TrimSpace(podURL)); err != nil {
		return nil, err
	}
	s.metrics.RecordTransition("job", string(StatusPODUploaded))
	s.recordAudit(ctx, transporterID, "job.pod_upload", jobID, map[string]any{"pod_url": podURL})
	return s.repo.Get(ctx, jobID)
}

// Complete closes out the job. Admin only, and never without a recorded POD.
func (s *Service) Complete(ctx context.Context, adminID, jobID uuid.UUID) (*Job, error) {
	job, err := s.repo.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.PODURL == "" {
		return nil, ErrMissingPOD
	}
	if !job.Status.CanAdvanceTo(StatusCompleted) {
		return nil, fmt.Errorf("%w: %s cannot move to %s", ErrInvalidTransition, job.Status, StatusCompleted)
	}
	if err := s.repo.Advance(ctx, jobID, job.Status, StatusCompleted); err != nil {
		return nil, err
	}
	s.metrics.RecordTransition("job", string(StatusCompleted))
	s.recordAudit(ctx, adminID, "job.complete", jobID, nil)
	return s.repo.Get(ctx, jobID)
}

// Get fetches a job. Transporters see open jobs and their own; admins see
// everything.
func (s *Service) Get(ctx context.Context, actorID uuid.UUID, role auth.Role, jobID uuid.UUID) (*Job, error) {
	job, err := s.repo.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	switch role {
	case auth.RoleAdmin:
		return job, nil
	case auth.RoleTransporter:
		if job.TransporterID == nil && job.Status == StatusPending {
			return job, nil
		}
		if job.TransporterID != nil && *job.TransporterID == actorID {
			return job, nil
		}
		return nil, ErrNotFound
	default:
		return nil, ErrNotFound
	}
}

// List returns jobs visible to the actor. Transporters get the open board
// plus their own assignments.
func (s *Service) List(ctx context.Context, actorID uuid.UUID, role auth.Role, status Status, limit, offset int) ([]Job, int, error) {
	filter := ListFilter{Status: status}
	switch role {
	case auth.RoleAdmin:
	case auth.RoleTransporter:
		filter.TransporterID = actorID
		filter.Unclaimed = true
	default:
		return nil, 0, ErrNotFound
	}
	return s.repo.List(ctx, filter, limit, offset)
}

func (s *Service) heldJob(ctx context.Context, transporterID, jobID uuid.UUID) (*Job, error) {
	job, err := s.repo.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.TransporterID == nil || *job.TransporterID != transporterID {
		return nil, ErrNotAssignee
	}
	return job, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID uuid.UUID, action string, id uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "job",
		EntityID: id.String(),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
