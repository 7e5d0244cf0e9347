package quote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/veldlink/veldlink/internal/auth"
	"github.com/veldlink/veldlink/internal/rfq"
)

type memoryRepo struct {
	quotes map[uuid.UUID]*SupplierQuote
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{quotes: make(map[uuid.UUID]*SupplierQuote)}
}

func (m *memoryRepo) Upsert(ctx context.Context, q *SupplierQuote) error {
	for _, existing := range m.quotes {
		if existing.RFQID == q.RFQID && existing.SupplierID == q.SupplierID {
			if existing.IsSelected {
				return ErrAlreadySelected
			}
			existing.PricePerUnit = q.PricePerUnit
			existing.TotalPrice = q.TotalPrice
			existing.LeadTimeDays = q.LeadTimeDays
			existing.PickupCity = q.PickupCity
			existing.Notes = q.Notes
			existing.UpdatedAt = q.UpdatedAt
			*q = *existing
			return nil
		}
	}
	clone := *q
	m.quotes[q.ID] = &clone
	return nil
}

func (m *memoryRepo) Get(ctx context.Context, id uuid.UUID) (*SupplierQuote, error) {
	q, ok := m.quotes[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *q
	return &clone, nil
}

func (m *memoryRepo) ListByRFQ(ctx context.Context, rfqID uuid.UUID) ([]SupplierQuote, error) {
	var out []SupplierQuote
	for _, q := range m.quotes {
		if q.RFQID == rfqID {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (m *memoryRepo) ListBySupplier(ctx context.Context, supplierID uuid.UUID, limit, offset int) ([]SupplierQuote, int, error) {
	var out []SupplierQuote
	for _, q := range m.quotes {
		if q.SupplierID == supplierID {
			out = append(out, *q)
		}
	}
	return out, len(out), nil
}

type stubDirectory struct {
	users map[uuid.UUID]*auth.User
}

func (s *stubDirectory) Profile(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

type stubRFQs struct {
	rfqs map[uuid.UUID]*rfq.RFQ
}

func (s *stubRFQs) Get(ctx context.Context, id uuid.UUID) (*rfq.RFQ, error) {
	rec, ok := s.rfqs[id]
	if !ok {
		return nil, rfq.ErrNotFound
	}
	clone := *rec
	return &clone, nil
}

func newStubRFQ(status rfq.Status, quantity float64) (*stubRFQs, uuid.UUID) {
	id := uuid.New()
	return &stubRFQs{rfqs: map[uuid.UUID]*rfq.RFQ{
		id: {ID: id, BuyerID: uuid.New(), Quantity: quantity, Status: status, CreatedAt: time.Now()},
	}}, id
}

func validSubmit() SubmitInput {
	return SubmitInput{PricePerUnit: 98.5, LeadTimeDays: 5, PickupCity: "Durban"}
}

func emptyDirectory() *stubDirectory {
	return &stubDirectory{users: make(map[uuid.UUID]*auth.User)}
}

func TestSubmitDerivesTotalFromRFQQuantity(t *testing.T) {
	rfqs, rfqID := newStubRFQ(rfq.StatusSourcing, 500)
	svc := NewService(newMemoryRepo(), rfqs, emptyDirectory())

	q, err := svc.Submit(context.Background(), uuid.New(), rfqID, validSubmit())
	require.NoError(t, err)
	require.Equal(t, 49250.0, q.TotalPrice)
	require.False(t, q.IsSelected)
}

func TestSubmitRevisesExistingQuote(t *testing.T) {
	rfqs, rfqID := newStubRFQ(rfq.StatusNew, 100)
	repo := newMemoryRepo()
	svc := NewService(repo, rfqs, emptyDirectory())
	supplier := uuid.New()
	ctx := context.Background()

	first, err := svc.Submit(ctx, supplier, rfqID, validSubmit())
	require.NoError(t, err)

	in := validSubmit()
	in.PricePerUnit = 95.0
	second, err := svc.Submit(ctx, supplier, rfqID, in)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 9500.0, second.TotalPrice)
	require.Len(t, repo.quotes, 1)
}

func TestSubmitClosedRFQ(t *testing.T) {
	rfqs, rfqID := newStubRFQ(rfq.StatusQuoted, 100)
	svc := NewService(newMemoryRepo(), rfqs, emptyDirectory())
	_, err := svc.Submit(context.Background(), uuid.New(), rfqID, validSubmit())
	require.True(t, errors.Is(err, ErrRFQClosed))
}

func TestSubmitSelectedQuoteIsImmutable(t *testing.T) {
	rfqs, rfqID := newStubRFQ(rfq.StatusSourcing, 100)
	repo := newMemoryRepo()
	svc := NewService(repo, rfqs, emptyDirectory())
	supplier := uuid.New()
	ctx := context.Background()

	q, err := svc.Submit(ctx, supplier, rfqID, validSubmit())
	require.NoError(t, err)
	repo.quotes[q.ID].IsSelected = true

	_, err = svc.Submit(ctx, supplier, rfqID, validSubmit())
	require.True(t, errors.Is(err, ErrAlreadySelected))
}

func TestSubmitDefaultsPickupToSupplierCity(t *testing.T) {
	rfqs, rfqID := newStubRFQ(rfq.StatusSourcing, 100)
	supplier := uuid.New()
	directory := &stubDirectory{users: map[uuid.UUID]*auth.User{
		supplier: {ID: supplier, Role: auth.RoleSupplier, City: "Gqeberha"},
	}}
	svc := NewService(newMemoryRepo(), rfqs, directory)
	ctx := context.Background()

	in := validSubmit()
	in.PickupCity = ""
	q, err := svc.Submit(ctx, supplier, rfqID, in)
	require.NoError(t, err)
	require.Equal(t, "Gqeberha", q.PickupCity)

	// An explicit pickup city still wins over the registered one.
	in.PickupCity = "Durban"
	q, err = svc.Submit(ctx, supplier, rfqID, in)
	require.NoError(t, err)
	require.Equal(t, "Durban", q.PickupCity)

	// No pickup city anywhere blocks the quote.
	directory.users[supplier].City = "  "
	in.PickupCity = ""
	_, err = svc.Submit(ctx, supplier, rfqID, in)
	require.True(t, errors.Is(err, ErrInvalidQuote))
}

func TestGetHidesOtherSuppliersQuotes(t *testing.T) {
	rfqs, rfqID := newStubRFQ(rfq.StatusSourcing, 100)
	svc := NewService(newMemoryRepo(), rfqs, emptyDirectory())
	supplier := uuid.New()
	ctx := context.Background()

	q, err := svc.Submit(ctx, supplier, rfqID, validSubmit())
	require.NoError(t, err)

	_, err = svc.Get(ctx, supplier, auth.RoleSupplier, q.ID)
	require.NoError(t, err)

	_, err = svc.Get(ctx, uuid.New(), auth.RoleSupplier, q.ID)
	require.True(t, errors.Is(err, ErrNotFound))

	_, err = svc.Get(ctx, uuid.New(), auth.RoleAdmin, q.ID)
	require.NoError(t, err)
}
