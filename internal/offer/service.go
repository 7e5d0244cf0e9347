package offer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/veldlink/veldlink/internal/auth"
	"github.com/veldlink/veldlink/internal/observability"
	"github.com/veldlink/veldlink/internal/order"
	"github.com/veldlink/veldlink/internal/pricing"
	"github.com/veldlink/veldlink/internal/quote"
	"github.com/veldlink/veldlink/internal/rfq"
	"github.com/veldlink/veldlink/internal/shared"
)

// QuoteReader is the slice of the quote module this service needs.
type QuoteReader interface {
	Get(ctx context.Context, id uuid.UUID) (*quote.SupplierQuote, error)
}

// RFQReader is the slice of the rfq module this service needs.
type RFQReader interface {
	Get(ctx context.Context, id uuid.UUID) (*rfq.RFQ, error)
}

// Notifier fans workflow events out to the background mailer. Implementations
// must not block on delivery.
type Notifier interface {
	OfferPublished(ctx context.Context, o *ClientOffer)
	OrderCreated(ctx context.Context, ord *order.Order)
}

// Defaults are the pricing knobs used when the admin does not override them.
type Defaults struct {
	MarginPercent float64
	RatePerKm     float64
	MinFee        float64
	ValidDays     int
}

// Service prices and publishes client offers and handles acceptance.
type Service struct {
	repo      Repository
	quotes    QuoteReader
	rfqs      RFQReader
	distances *pricing.DistanceResolver
	defaults  Defaults
	notifier  Notifier
	audit     *shared.AuditLogger
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewService constructs a new Service. Notifier, audit logger and metrics may
// be nil.
func NewService(repo Repository, quotes QuoteReader, rfqs RFQReader, distances *pricing.DistanceResolver,
	defaults Defaults, notifier Notifier, audit *shared.AuditLogger, metrics *observability.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo: repo, quotes: quotes, rfqs: rfqs, distances: distances,
		defaults: defaults, notifier: notifier, audit: audit, metrics: metrics, logger: logger,
	}
}

// PriceInput carries the admin pricing knobs. Nil pointers fall back to the
// configured defaults.
type PriceInput struct {
	QuoteID               uuid.UUID
	MarginPercent         *float64
	DistanceKm            *float64
	RatePerKm             *float64
	MinFee                *float64
	ValidDays             *int
	EstimatedDeliveryDays *int
}

// Preview prices a quote without persisting anything. The returned breakdown
// is bit-identical to what Create would store.
func (s *Service) Preview(ctx context.Context, in PriceInput) (pricing.Breakdown, error) {
	_, _, breakdown, err := s.price(ctx, in)
	return breakdown, err
}

// Create prices the quote and publishes the offer: quote claimed, offer row
// written, RFQ moved to quoted, all atomically.
func (s *Service) Create(ctx context.Context, adminID uuid.UUID, in PriceInput) (*ClientOffer, error) {
	q, request, breakdown, err := s.price(ctx, in)
	if err != nil {
		return nil, err
	}

	validDays := s.defaults.ValidDays
	if in.ValidDays != nil {
		validDays = *in.ValidDays
	}
	if validDays <= 0 {
		return nil, fmt.Errorf("%w: validity must be at least one day", ErrInvalidOffer)
	}
	deliveryDays := q.LeadTimeDays
	if in.EstimatedDeliveryDays != nil {
		deliveryDays = *in.EstimatedDeliveryDays
	}
	if deliveryDays < 0 {
		return nil, fmt.Errorf("%w: delivery estimate cannot be negative", ErrInvalidOffer)
	}

	now := time.Now().UTC()
	o := &ClientOffer{
		ID:                    uuid.New(),
		RFQID:                 request.ID,
		QuoteID:               q.ID,
		BuyerID:               request.BuyerID,
		Breakdown:             breakdown,
		EstimatedDeliveryDays: deliveryDays,
		ValidUntil:            now.AddDate(0, 0, validDays),
		Status:                StatusPending,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := s.repo.CreateFromQuote(ctx, o); err != nil {
		return nil, err
	}

	s.metrics.RecordOfferPriced()
	s.metrics.RecordTransition("offer", string(StatusPending))
	s.metrics.RecordTransition("rfq", string(rfq.StatusQuoted))
	s.recordAudit(ctx, adminID, "offer.create", o.ID, map[string]any{
		"rfq_id": o.RFQID.String(), "quote_id": o.QuoteID.String(), "final_total": breakdown.FinalTotal,
	})
	if s.notifier != nil {
		s.notifier.OfferPublished(ctx, o)
	}
	return o, nil
}

// Accept finalises the deal on behalf of the owning buyer and returns the
// created order.
func (s *Service) Accept(ctx context.Context, buyerID, offerID uuid.UUID) (*order.Order, error) {
	created, err := s.repo.Accept(ctx, offerID, buyerID, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	s.metrics.RecordTransition("offer", string(StatusAccepted))
	s.metrics.RecordTransition("order", string(order.StatusAccepted))
	s.metrics.RecordTransition("rfq", string(rfq.StatusAccepted))
	s.recordAudit(ctx, buyerID, "offer.accept", offerID, map[string]any{
		"order_id": created.ID.String(), "reference": created.Reference,
	})
	if s.notifier != nil {
		s.notifier.OrderCreated(ctx, created)
	}
	return created, nil
}

// Get fetches an offer. Buyers see only their own; projection to the buyer
// view happens at the API boundary.
func (s *Service) Get(ctx context.Context, actorID uuid.UUID, role auth.Role, id uuid.UUID) (*ClientOffer, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch role {
	case auth.RoleAdmin:
		return o, nil
	case auth.RoleBuyer:
		if o.BuyerID != actorID {
			return nil, ErrNotOwner
		}
		return o, nil
	default:
		return nil, ErrNotFound
	}
}

// List returns offers visible to the actor.
func (s *Service) List(ctx context.Context, actorID uuid.UUID, role auth.Role, status Status, limit, offset int) ([]ClientOffer, int, error) {
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

// ExpirePending sweeps pending offers past their validity window. Run from
// the background worker.
func (s *Service) ExpirePending(ctx context.Context) (int64, error) {
	n, err := s.repo.ExpirePending(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	for i := int64(0); i < n; i++ {
		s.metrics.RecordTransition("offer", string(StatusExpired))
	}
	return n, nil
}

func (s *Service) price(ctx context.Context, in PriceInput) (*quote.SupplierQuote, *rfq.RFQ, pricing.Breakdown, error) {
	q, err := s.quotes.Get(ctx, in.QuoteID)
	if err != nil {
		return nil, nil, pricing.Breakdown{}, err
	}
	request, err := s.rfqs.Get(ctx, q.RFQID)
	if err != nil {
		return nil, nil, pricing.Breakdown{}, err
	}

	km, err := s.distances.Resolve(ctx, q.PickupCity, request.DeliveryCity, in.DistanceKm)
	if err != nil {
		return nil, nil, pricing.Breakdown{}, err
	}

	margin := s.defaults.MarginPercent
	if in.MarginPercent != nil {
		margin = *in.MarginPercent
	}
	rate := s.defaults.RatePerKm
	if in.RatePerKm != nil {
		rate = *in.RatePerKm
	}
	minFee := s.defaults.MinFee
	if in.MinFee != nil {
		minFee = *in.MinFee
	}

	breakdown, err := pricing.Calculate(pricing.Input{
		SupplierCost:  q.TotalPrice,
		MarginPercent: margin,
		DistanceKm:    km,
		RatePerKm:     rate,
		MinFee:        minFee,
	})
	if err != nil {
		return nil, nil, pricing.Breakdown{}, err
	}
	return q, request, breakdown, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID uuid.UUID, action string, id uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "offer",
		EntityID: id.String(),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
