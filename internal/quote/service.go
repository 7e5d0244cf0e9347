package quote

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/veldlink/veldlink/internal/auth"
	"github.com/veldlink/veldlink/internal/rfq"
)

// RFQReader is the slice of the rfq module this service needs.
type RFQReader interface {
	Get(ctx context.Context, id uuid.UUID) (*rfq.RFQ, error)
}

// SupplierDirectory resolves supplier accounts, used to default the pickup
// city from the supplier's registered city.
type SupplierDirectory interface {
	Profile(ctx context.Context, id uuid.UUID) (*auth.User, error)
}

// Service wraps supplier quote business rules.
type Service struct {
	repo      Repository
	rfqs      RFQReader
	suppliers SupplierDirectory
}

// NewService constructs a new Service.
func NewService(repo Repository, rfqs RFQReader, suppliers SupplierDirectory) *Service {
	return &Service{repo: repo, rfqs: rfqs, suppliers: suppliers}
}

// SubmitInput carries the supplier-editable quote fields.
type SubmitInput struct {
	PricePerUnit float64
	LeadTimeDays int
	PickupCity   string
	Notes        string
}

func (in SubmitInput) validate() error {
	switch {
	case in.PricePerUnit <= 0:
		return fmt.Errorf("%w: price per unit must be positive", ErrInvalidQuote)
	case in.LeadTimeDays < 0:
		return fmt.Errorf("%w: lead time cannot be negative", ErrInvalidQuote)
	}
	return nil
}

// Submit creates or revises the supplier's quote on an RFQ. Quoting is only
// open while the RFQ is new or sourcing, and a selected quote never changes.
// A missing pickup city defaults to the supplier's registered city.
func (s *Service) Submit(ctx context.Context, supplierID, rfqID uuid.UUID, in SubmitInput) (*SupplierQuote, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	pickup := strings.TrimSpace(in.PickupCity)
	if pickup == "" {
		supplier, err := s.suppliers.Profile(ctx, supplierID)
		if err != nil {
			return nil, err
		}
		pickup = strings.TrimSpace(supplier.City)
		if pickup == "" {
			return nil, fmt.Errorf("%w: pickup city is required", ErrInvalidQuote)
		}
	}
	request, err := s.rfqs.Get(ctx, rfqID)
	if err != nil {
		return nil, err
	}
	if !request.Status.CanQuote() {
		return nil, fmt.Errorf("%w: rfq is %s", ErrRFQClosed, request.Status)
	}

	now := time.Now().UTC()
	q := &SupplierQuote{
		ID:           uuid.New(),
		RFQID:        rfqID,
		SupplierID:   supplierID,
		PricePerUnit: in.PricePerUnit,
		TotalPrice:   roundCents(in.PricePerUnit * request.Quantity),
		LeadTimeDays: in.LeadTimeDays,
		PickupCity:   pickup,
		Notes:        strings.TrimSpace(in.Notes),
		UpdatedAt:    now,
		CreatedAt:    now,
	}
	if err := s.repo.Upsert(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// Get fetches a quote, visible to its supplier and to admins only. Buyers
// never see supplier quotes; they see the derived client offer instead.
func (s *Service) Get(ctx context.Context, actorID uuid.UUID, role auth.Role, id uuid.UUID) (*SupplierQuote, error) {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if role != auth.RoleAdmin && q.SupplierID != actorID {
		return nil, ErrNotFound
	}
	return q, nil
}

// ForRFQ returns all quotes on an RFQ for the admin sourcing view.
func (s *Service) ForRFQ(ctx context.Context, rfqID uuid.UUID) ([]SupplierQuote, error) {
	return s.repo.ListByRFQ(ctx, rfqID)
}

// Mine returns the supplier's own quotes.
func (s *Service) Mine(ctx context.Context, supplierID uuid.UUID, limit, offset int) ([]SupplierQuote, int, error) {
	return s.repo.ListBySupplier(ctx, supplierID, limit, offset)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
