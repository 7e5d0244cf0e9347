package rfq

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/veldlink/veldlink/internal/auth"
)

type memoryRepo struct {
	rfqs         map[uuid.UUID]*RFQ
	activeOffers map[uuid.UUID]bool
	seq          int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		rfqs:         make(map[uuid.UUID]*RFQ),
		activeOffers: make(map[uuid.UUID]bool),
	}
}

func (m *memoryRepo) Create(ctx context.Context, rec *RFQ) error {
	m.seq++
	rec.Reference = fmt.Sprintf("RFQ-2608-%04d", m.seq)
	clone := *rec
	m.rfqs[rec.ID] = &clone
	return nil
}

func (m *memoryRepo) Get(ctx context.Context, id uuid.UUID) (*RFQ, error) {
	rec, ok := m.rfqs[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *rec
	return &clone, nil
}

func (m *memoryRepo) List(ctx context.Context, filter ListFilter, limit, offset int) ([]RFQ, int, error) {
	var out []RFQ
	for _, rec := range m.rfqs {
		if filter.BuyerID != uuid.Nil && rec.BuyerID != filter.BuyerID {
			continue
		}
		if len(filter.Statuses) > 0 {
			match := false
			for _, s := range filter.Statuses {
				if rec.Status == s {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, *rec)
	}
	return out, len(out), nil
}

func (m *memoryRepo) UpdateStatus(ctx context.Context, id uuid.UUID, to Status, allowedFrom ...Status) error {
	rec, ok := m.rfqs[id]
	if !ok {
		return ErrNotFound
	}
	for _, from := range allowedFrom {
		if rec.Status == from {
			rec.Status = to
			return nil
		}
	}
	return fmt.Errorf("%w: cannot move to %s", ErrInvalidTransition, to)
}

func (m *memoryRepo) ReopenSourcing(ctx context.Context, id uuid.UUID) error {
	rec, ok := m.rfqs[id]
	if !ok {
		return ErrNotFound
	}
	if rec.Status != StatusQuoted || m.activeOffers[id] {
		return fmt.Errorf("%w: cannot move to %s", ErrInvalidTransition, StatusSourcing)
	}
	rec.Status = StatusSourcing
	return nil
}

func validCreate() CreateInput {
	return CreateInput{
		ProductName:     "Reinforcing steel Y12",
		Quantity:        500,
		Unit:            "length",
		DeliveryAddress: "12 Foundry Rd",
		DeliveryCity:    "Johannesburg",
	}
}

func TestCreateStartsNew(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil, nil)
	rec, err := svc.Create(context.Background(), uuid.New(), validCreate())
	require.NoError(t, err)
	require.Equal(t, StatusNew, rec.Status)
	require.NotEmpty(t, rec.Reference)
}

func TestCreateValidates(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil, nil)
	in := validCreate()
	in.Quantity = 0
	_, err := svc.Create(context.Background(), uuid.New(), in)
	require.True(t, errors.Is(err, ErrInvalidRFQ))

	in = validCreate()
	in.DeliveryCity = ""
	_, err = svc.Create(context.Background(), uuid.New(), in)
	require.True(t, errors.Is(err, ErrInvalidRFQ))
}

func TestGetVisibility(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	buyer := uuid.New()
	rec, err := svc.Create(ctx, buyer, validCreate())
	require.NoError(t, err)

	_, err = svc.Get(ctx, buyer, auth.RoleBuyer, rec.ID)
	require.NoError(t, err)

	_, err = svc.Get(ctx, uuid.New(), auth.RoleBuyer, rec.ID)
	require.True(t, errors.Is(err, ErrNotOwner))

	// Suppliers see RFQs while they are open for quoting.
	_, err = svc.Get(ctx, uuid.New(), auth.RoleSupplier, rec.ID)
	require.NoError(t, err)

	require.NoError(t, repo.UpdateStatus(ctx, rec.ID, StatusAccepted, StatusNew))
	_, err = svc.Get(ctx, uuid.New(), auth.RoleSupplier, rec.ID)
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestStartSourcingOnlyFromNew(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	rec, err := svc.Create(ctx, uuid.New(), validCreate())
	require.NoError(t, err)

	got, err := svc.StartSourcing(ctx, uuid.New(), rec.ID)
	require.NoError(t, err)
	require.Equal(t, StatusSourcing, got.Status)

	_, err = svc.StartSourcing(ctx, uuid.New(), rec.ID)
	require.True(t, errors.Is(err, ErrInvalidTransition))
}

func TestCancelRules(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	buyer := uuid.New()
	rec, err := svc.Create(ctx, buyer, validCreate())
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, uuid.New(), auth.RoleBuyer, rec.ID)
	require.True(t, errors.Is(err, ErrNotOwner))

	got, err := svc.Cancel(ctx, buyer, auth.RoleBuyer, rec.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, got.Status)

	_, err = svc.Cancel(ctx, buyer, auth.RoleBuyer, rec.ID)
	require.True(t, errors.Is(err, ErrInvalidTransition))
}

func TestCancelRejectsOtherRoles(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	buyer := uuid.New()
	rec, err := svc.Create(ctx, buyer, validCreate())
	require.NoError(t, err)

	// Neither a supplier nor a transporter may cancel someone else's RFQ.
	_, err = svc.Cancel(ctx, uuid.New(), auth.RoleSupplier, rec.ID)
	require.True(t, errors.Is(err, ErrNotOwner))
	_, err = svc.Cancel(ctx, uuid.New(), auth.RoleTransporter, rec.ID)
	require.True(t, errors.Is(err, ErrNotOwner))

	got, err := repo.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, StatusNew, got.Status)

	// Admins may.
	cancelled, err := svc.Cancel(ctx, uuid.New(), auth.RoleAdmin, rec.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)
}

func TestReopenSourcingAfterOfferExpiry(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	rec, err := svc.Create(ctx, uuid.New(), validCreate())
	require.NoError(t, err)

	// Not reopenable before any offer existed.
	_, err = svc.ReopenSourcing(ctx, uuid.New(), rec.ID)
	require.True(t, errors.Is(err, ErrInvalidTransition))

	require.NoError(t, repo.UpdateStatus(ctx, rec.ID, StatusQuoted, StatusNew))

	// A live offer blocks the reopen.
	repo.activeOffers[rec.ID] = true
	_, err = svc.ReopenSourcing(ctx, uuid.New(), rec.ID)
	require.True(t, errors.Is(err, ErrInvalidTransition))

	// Once the offer expired the RFQ goes back on the board.
	repo.activeOffers[rec.ID] = false
	got, err := svc.ReopenSourcing(ctx, uuid.New(), rec.ID)
	require.NoError(t, err)
	require.Equal(t, StatusSourcing, got.Status)
}

func TestCancelBlockedOnceAccepted(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	buyer := uuid.New()
	rec, err := svc.Create(ctx, buyer, validCreate())
	require.NoError(t, err)
	require.NoError(t, repo.UpdateStatus(ctx, rec.ID, StatusAccepted, StatusNew))

	_, err = svc.Cancel(ctx, buyer, auth.RoleBuyer, rec.ID)
	require.True(t, errors.Is(err, ErrInvalidTransition))
}
