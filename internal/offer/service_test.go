package offer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/veldlink/veldlink/internal/auth"
	"github.com/veldlink/veldlink/internal/order"
	"github.com/veldlink/veldlink/internal/pricing"
	"github.com/veldlink/veldlink/internal/quote"
	"github.com/veldlink/veldlink/internal/rfq"
)

// worldRepo fakes the cross-table repository semantics in memory: quote
// selection, offer rows, order creation and RFQ status moves.
type worldRepo struct {
	quotes      map[uuid.UUID]*quote.SupplierQuote
	rfqs        map[uuid.UUID]*rfq.RFQ
	offers      map[uuid.UUID]*ClientOffer
	orders      map[uuid.UUID]*order.Order
	ordersByRFQ map[uuid.UUID]uuid.UUID
	seq         int
}

func newWorld() *worldRepo {
	return &worldRepo{
		quotes:      make(map[uuid.UUID]*quote.SupplierQuote),
		rfqs:        make(map[uuid.UUID]*rfq.RFQ),
		offers:      make(map[uuid.UUID]*ClientOffer),
		orders:      make(map[uuid.UUID]*order.Order),
		ordersByRFQ: make(map[uuid.UUID]uuid.UUID),
	}
}

func (w *worldRepo) addRFQ(buyerID uuid.UUID, quantity float64, city string, status rfq.Status) *rfq.RFQ {
	rec := &rfq.RFQ{ID: uuid.New(), BuyerID: buyerID, Quantity: quantity, DeliveryCity: city, Status: status}
	w.rfqs[rec.ID] = rec
	return rec
}

func (w *worldRepo) addQuote(rfqID uuid.UUID, totalPrice float64, pickupCity string, leadDays int) *quote.SupplierQuote {
	q := &quote.SupplierQuote{
		ID: uuid.New(), RFQID: rfqID, SupplierID: uuid.New(),
		TotalPrice: totalPrice, PickupCity: pickupCity, LeadTimeDays: leadDays,
	}
	w.quotes[q.ID] = q
	return q
}

func (w *worldRepo) Get(ctx context.Context, id uuid.UUID) (*ClientOffer, error) {
	o, ok := w.offers[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *o
	return &clone, nil
}

func (w *worldRepo) List(ctx context.Context, filter ListFilter, limit, offset int) ([]ClientOffer, int, error) {
	var out []ClientOffer
	for _, o := range w.offers {
		if filter.BuyerID != uuid.Nil && o.BuyerID != filter.BuyerID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		out = append(out, *o)
	}
	return out, len(out), nil
}

func (w *worldRepo) CreateFromQuote(ctx context.Context, o *ClientOffer) error {
	q, ok := w.quotes[o.QuoteID]
	if !ok {
		return fmt.Errorf("offer: quote not found: %w", ErrNotFound)
	}
	if q.IsSelected {
		return ErrQuoteAlreadySelected
	}
	if q.TotalPrice != o.Breakdown.SupplierCost {
		return ErrQuoteChanged
	}
	rec, ok := w.rfqs[o.RFQID]
	if !ok || !rec.Status.CanQuote() {
		return fmt.Errorf("offer: rfq not open for offers: %w", ErrNotPending)
	}
	q.IsSelected = true
	rec.Status = rfq.StatusQuoted
	clone := *o
	w.offers[o.ID] = &clone
	return nil
}

func (w *worldRepo) Accept(ctx context.Context, offerID, buyerID uuid.UUID, now time.Time) (*order.Order, error) {
	o, ok := w.offers[offerID]
	if !ok {
		return nil, ErrNotFound
	}
	if o.BuyerID != buyerID {
		return nil, ErrNotOwner
	}
	if o.Status != StatusPending {
		return nil, fmt.Errorf("%w: offer is %s", ErrNotPending, o.Status)
	}
	if now.After(o.ValidUntil) {
		o.Status = StatusExpired
		return nil, ErrOfferExpired
	}
	if _, exists := w.ordersByRFQ[o.RFQID]; exists {
		return nil, fmt.Errorf("offer: rfq already has an order: %w", ErrNotPending)
	}
	rec := w.rfqs[o.RFQID]
	if rec.Status != rfq.StatusQuoted {
		return nil, fmt.Errorf("offer: rfq no longer quoted: %w", ErrNotPending)
	}

	o.Status = StatusAccepted
	rec.Status = rfq.StatusAccepted
	w.seq++
	created := &order.Order{
		ID:            uuid.New(),
		Reference:     fmt.Sprintf("ORD-2608-%04d", w.seq),
		RFQID:         o.RFQID,
		OfferID:       o.ID,
		BuyerID:       o.BuyerID,
		Subtotal:      o.Breakdown.Subtotal,
		VATAmount:     o.Breakdown.VATAmount,
		FinalTotal:    o.Breakdown.FinalTotal,
		PaymentStatus: order.PaymentPending,
		Status:        order.StatusAccepted,
		CreatedAt:     now,
	}
	w.orders[created.ID] = created
	w.ordersByRFQ[o.RFQID] = created.ID
	clone := *created
	return &clone, nil
}

func (w *worldRepo) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	for _, o := range w.offers {
		if o.Status == StatusPending && o.ValidUntil.Before(now) {
			o.Status = StatusExpired
			n++
		}
	}
	return n, nil
}

func (w *worldRepo) GetQuote(ctx context.Context, id uuid.UUID) (*quote.SupplierQuote, error) {
	q, ok := w.quotes[id]
	if !ok {
		return nil, quote.ErrNotFound
	}
	clone := *q
	return &clone, nil
}

func (w *worldRepo) GetRFQ(ctx context.Context, id uuid.UUID) (*rfq.RFQ, error) {
	rec, ok := w.rfqs[id]
	if !ok {
		return nil, rfq.ErrNotFound
	}
	clone := *rec
	return &clone, nil
}

type quoteReaderFunc func(ctx context.Context, id uuid.UUID) (*quote.SupplierQuote, error)

func (f quoteReaderFunc) Get(ctx context.Context, id uuid.UUID) (*quote.SupplierQuote, error) {
	return f(ctx, id)
}

type rfqReaderFunc func(ctx context.Context, id uuid.UUID) (*rfq.RFQ, error)

func (f rfqReaderFunc) Get(ctx context.Context, id uuid.UUID) (*rfq.RFQ, error) {
	return f(ctx, id)
}

type routeTable map[string]float64

func (t routeTable) Lookup(ctx context.Context, cityA, cityB string) (float64, bool, error) {
	a, b := strings.ToLower(cityA), strings.ToLower(cityB)
	if b < a {
		a, b = b, a
	}
	km, ok := t[a+":"+b]
	return km, ok, nil
}

func newTestService(w *worldRepo, routes routeTable) *Service {
	resolver := pricing.NewDistanceResolver(routes)
	defaults := Defaults{MarginPercent: 15, RatePerKm: 25, MinFee: 1500, ValidDays: 7}
	return NewService(w, quoteReaderFunc(w.GetQuote), rfqReaderFunc(w.GetRFQ), resolver, defaults, nil, nil, nil, nil)
}

func TestCreatePricesWithDefaults(t *testing.T) {
	w := newWorld()
	buyer := uuid.New()
	rec := w.addRFQ(buyer, 100, "Johannesburg", rfq.StatusSourcing)
	q := w.addQuote(rec.ID, 10000, "Durban", 5)
	svc := newTestService(w, routeTable{"durban:johannesburg": 120})
	ctx := context.Background()

	o, err := svc.Create(ctx, uuid.New(), PriceInput{QuoteID: q.ID})
	require.NoError(t, err)
	require.Equal(t, 1500.0, o.Breakdown.MarginAmount)
	require.Equal(t, 3000.0, o.Breakdown.LogisticsFee)
	require.Equal(t, 16675.0, o.Breakdown.FinalTotal)
	require.Equal(t, StatusPending, o.Status)
	require.Equal(t, buyer, o.BuyerID)
	require.Equal(t, 5, o.EstimatedDeliveryDays)

	require.True(t, w.quotes[q.ID].IsSelected)
	require.Equal(t, rfq.StatusQuoted, w.rfqs[rec.ID].Status)
}

func TestCreateRejectsSelectedQuote(t *testing.T) {
	w := newWorld()
	rec := w.addRFQ(uuid.New(), 100, "Johannesburg", rfq.StatusSourcing)
	q := w.addQuote(rec.ID, 10000, "Durban", 5)
	q.IsSelected = true
	svc := newTestService(w, routeTable{"durban:johannesburg": 120})

	_, err := svc.Create(context.Background(), uuid.New(), PriceInput{QuoteID: q.ID})
	require.True(t, errors.Is(err, ErrQuoteAlreadySelected))
}

func TestCreateRejectsRevisedQuote(t *testing.T) {
	w := newWorld()
	rec := w.addRFQ(uuid.New(), 100, "Johannesburg", rfq.StatusSourcing)
	q := w.addQuote(rec.ID, 10000, "Durban", 5)

	// The quote price moves underneath the pricing step. Publishing must not
	// go through at the stale amount.
	raced := newWorld()
	raced.rfqs = w.rfqs
	raced.offers = w.offers
	revised := *q
	revised.TotalPrice = 12000
	raced.quotes[q.ID] = &revised
	svc := NewService(raced, quoteReaderFunc(w.GetQuote), rfqReaderFunc(w.GetRFQ),
		pricing.NewDistanceResolver(routeTable{"durban:johannesburg": 120}),
		Defaults{MarginPercent: 15, RatePerKm: 25, MinFee: 1500, ValidDays: 7}, nil, nil, nil, nil)

	_, err := svc.Create(context.Background(), uuid.New(), PriceInput{QuoteID: q.ID})
	require.True(t, errors.Is(err, ErrQuoteChanged))
	require.Empty(t, w.offers)
	require.False(t, raced.quotes[q.ID].IsSelected)
}

func TestCreateWithoutDistanceBlocks(t *testing.T) {
	w := newWorld()
	rec := w.addRFQ(uuid.New(), 100, "Musina", rfq.StatusNew)
	q := w.addQuote(rec.ID, 10000, "Upington", 5)
	svc := newTestService(w, routeTable{})
	ctx := context.Background()

	_, err := svc.Create(ctx, uuid.New(), PriceInput{QuoteID: q.ID})
	require.True(t, errors.Is(err, pricing.ErrMissingDistance))

	// A manual override unblocks the same quote.
	override := 900.0
	o, err := svc.Create(ctx, uuid.New(), PriceInput{QuoteID: q.ID, DistanceKm: &override})
	require.NoError(t, err)
	require.Equal(t, 900.0, o.Breakdown.DistanceKm)
}

func TestPreviewMatchesCreate(t *testing.T) {
	w := newWorld()
	rec := w.addRFQ(uuid.New(), 100, "Johannesburg", rfq.StatusSourcing)
	q := w.addQuote(rec.ID, 10000, "Durban", 5)
	svc := newTestService(w, routeTable{"durban:johannesburg": 120})
	ctx := context.Background()

	preview, err := svc.Preview(ctx, PriceInput{QuoteID: q.ID})
	require.NoError(t, err)
	require.False(t, w.quotes[q.ID].IsSelected)

	o, err := svc.Create(ctx, uuid.New(), PriceInput{QuoteID: q.ID})
	require.NoError(t, err)
	require.Equal(t, preview, o.Breakdown)
}

func TestAcceptCreatesOrderOnce(t *testing.T) {
	w := newWorld()
	buyer := uuid.New()
	rec := w.addRFQ(buyer, 100, "Johannesburg", rfq.StatusSourcing)
	q := w.addQuote(rec.ID, 10000, "Durban", 5)
	svc := newTestService(w, routeTable{"durban:johannesburg": 120})
	ctx := context.Background()

	o, err := svc.Create(ctx, uuid.New(), PriceInput{QuoteID: q.ID})
	require.NoError(t, err)

	_, err = svc.Accept(ctx, uuid.New(), o.ID)
	require.True(t, errors.Is(err, ErrNotOwner))

	created, err := svc.Accept(ctx, buyer, o.ID)
	require.NoError(t, err)
	require.Equal(t, o.Breakdown.Subtotal, created.Subtotal)
	require.Equal(t, o.Breakdown.VATAmount, created.VATAmount)
	require.Equal(t, 16675.0, created.FinalTotal)
	require.Equal(t, order.StatusAccepted, created.Status)
	require.Equal(t, order.PaymentPending, created.PaymentStatus)
	require.Equal(t, rfq.StatusAccepted, w.rfqs[rec.ID].Status)

	_, err = svc.Accept(ctx, buyer, o.ID)
	require.True(t, errors.Is(err, ErrNotPending))
	require.Len(t, w.orders, 1)
}

func TestAcceptExpiredOfferCreatesNoOrder(t *testing.T) {
	w := newWorld()
	buyer := uuid.New()
	rec := w.addRFQ(buyer, 100, "Johannesburg", rfq.StatusSourcing)
	q := w.addQuote(rec.ID, 10000, "Durban", 5)
	svc := newTestService(w, routeTable{"durban:johannesburg": 120})
	ctx := context.Background()

	o, err := svc.Create(ctx, uuid.New(), PriceInput{QuoteID: q.ID})
	require.NoError(t, err)
	w.offers[o.ID].ValidUntil = time.Now().Add(-time.Hour)

	_, err = svc.Accept(ctx, buyer, o.ID)
	require.True(t, errors.Is(err, ErrOfferExpired))
	require.Empty(t, w.orders)
	require.Equal(t, StatusExpired, w.offers[o.ID].Status)
}

func TestBuyerProjectionHidesCostAndMargin(t *testing.T) {
	w := newWorld()
	buyer := uuid.New()
	rec := w.addRFQ(buyer, 100, "Johannesburg", rfq.StatusSourcing)
	q := w.addQuote(rec.ID, 10000, "Durban", 5)
	svc := newTestService(w, routeTable{"durban:johannesburg": 120})
	ctx := context.Background()

	o, err := svc.Create(ctx, uuid.New(), PriceInput{QuoteID: q.ID})
	require.NoError(t, err)

	view := o.ForBuyer()
	require.Equal(t, 16675.0, view.FinalTotal)
	require.Equal(t, 15.0, view.VATPercent)
	require.Equal(t, o.ValidUntil, view.ValidUntil)
}

func TestExpirePendingSweep(t *testing.T) {
	w := newWorld()
	buyer := uuid.New()
	recA := w.addRFQ(buyer, 100, "Johannesburg", rfq.StatusSourcing)
	qA := w.addQuote(recA.ID, 10000, "Durban", 5)
	recB := w.addRFQ(buyer, 100, "Johannesburg", rfq.StatusSourcing)
	qB := w.addQuote(recB.ID, 8000, "Durban", 5)
	svc := newTestService(w, routeTable{"durban:johannesburg": 120})
	ctx := context.Background()

	stale, err := svc.Create(ctx, uuid.New(), PriceInput{QuoteID: qA.ID})
	require.NoError(t, err)
	w.offers[stale.ID].ValidUntil = time.Now().Add(-time.Hour)

	fresh, err := svc.Create(ctx, uuid.New(), PriceInput{QuoteID: qB.ID})
	require.NoError(t, err)

	n, err := svc.ExpirePending(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	require.Equal(t, StatusExpired, w.offers[stale.ID].Status)
	require.Equal(t, StatusPending, w.offers[fresh.ID].Status)

	_, err = svc.Accept(ctx, buyer, stale.ID)
	require.True(t, errors.Is(err, ErrNotPending))
}
