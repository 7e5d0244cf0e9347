package logistics

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/veldlink/veldlink/internal/auth"
	"github.com/veldlink/veldlink/internal/order"
)

type memoryRepo struct {
	jobs   map[uuid.UUID]*Job
	orders map[uuid.UUID]*order.Order
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		jobs:   make(map[uuid.UUID]*Job),
		orders: make(map[uuid.UUID]*order.Order),
	}
}

func (m *memoryRepo) addOrder(status order.Status) *order.Order {
	rec := &order.Order{ID: uuid.New(), Status: status}
	m.orders[rec.ID] = rec
	return rec
}

func (m *memoryRepo) Create(ctx context.Context, job *Job) error {
	rec, ok := m.orders[job.OrderID]
	if !ok || rec.Status != order.StatusPaymentVerified {
		return ErrOrderNotReady
	}
	clone := *job
	m.jobs[job.ID] = &clone
	return nil
}

func (m *memoryRepo) Get(ctx context.Context, id uuid.UUID) (*Job, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *job
	return &clone, nil
}

func (m *memoryRepo) List(ctx context.Context, filter ListFilter, limit, offset int) ([]Job, int, error) {
	var out []Job
	for _, job := range m.jobs {
		mine := filter.TransporterID != uuid.Nil && job.TransporterID != nil && *job.TransporterID == filter.TransporterID
		open := filter.Unclaimed && job.TransporterID == nil && job.Status == StatusPending
		if (filter.TransporterID != uuid.Nil || filter.Unclaimed) && !mine && !open {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		out = append(out, *job)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Claim(ctx context.Context, jobID, transporterID uuid.UUID) error {
	job, ok := m.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	if job.TransporterID != nil || job.Status != StatusPending {
		return ErrAlreadyClaimed
	}
	id := transporterID
	job.TransporterID = &id
	job.Status = StatusAssigned
	return nil
}

func (m *memoryRepo) Advance(ctx context.Context, jobID uuid.UUID, from, to Status) error {
	job, ok := m.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	if job.Status != from {
		return fmt.Errorf("%w: job not in %s", ErrInvalidTransition, from)
	}
	job.Status = to
	if to == StatusInTransit || to == StatusDelivered {
		if rec, ok := m.orders[job.OrderID]; ok {
			if rec.Status == order.StatusPaymentVerified || rec.Status == order.StatusInTransit {
				rec.Status = order.Status(to)
			}
		}
	}
	return nil
}

func (m *memoryRepo) RecordPOD(ctx context.Context, jobID uuid.UUID, podURL string) error {
	job, ok := m.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	if job.Status != StatusDelivered {
		return fmt.Errorf("%w: job not delivered yet", ErrInvalidTransition)
	}
	job.PODURL = podURL
	job.Status = StatusPODUploaded
	return nil
}

func validCreate(orderID uuid.UUID) CreateInput {
	return CreateInput{
		OrderID:         orderID,
		PickupAddress:   "4 Quarry Rd",
		PickupCity:      "Durban",
		DeliveryAddress: "12 Foundry Rd",
		DeliveryCity:    "Johannesburg",
		DistanceKm:      568,
		AgreedRate:      14200,
	}
}

func TestCreateRequiresVerifiedPayment(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil, nil)
	ctx := context.Background()
	admin := uuid.New()

	unpaid := repo.addOrder(order.StatusAccepted)
	_, err := svc.Create(ctx, admin, validCreate(unpaid.ID))
	require.True(t, errors.Is(err, ErrOrderNotReady))

	paid := repo.addOrder(order.StatusPaymentVerified)
	job, err := svc.Create(ctx, admin, validCreate(paid.ID))
	require.NoError(t, err)
	require.Equal(t, StatusPending, job.Status)
	require.Nil(t, job.TransporterID)
}

func TestClaimIsFirstComeFirstServed(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil, nil)
	ctx := context.Background()

	paid := repo.addOrder(order.StatusPaymentVerified)
	job, err := svc.Create(ctx, uuid.New(), validCreate(paid.ID))
	require.NoError(t, err)

	first := uuid.New()
	claimed, err := svc.Claim(ctx, first, job.ID)
	require.NoError(t, err)
	require.Equal(t, StatusAssigned, claimed.Status)
	require.Equal(t, first, *claimed.TransporterID)

	_, err = svc.Claim(ctx, uuid.New(), job.ID)
	require.True(t, errors.Is(err, ErrAlreadyClaimed))
}

func TestAdvanceWalksTheChainAndProjectsOrders(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil, nil)
	ctx := context.Background()

	paid := repo.addOrder(order.StatusPaymentVerified)
	job, err := svc.Create(ctx, uuid.New(), validCreate(paid.ID))
	require.NoError(t, err)

	transporter := uuid.New()
	_, err = svc.Claim(ctx, transporter, job.ID)
	require.NoError(t, err)

	// Skipping a step is rejected.
	_, err = svc.Advance(ctx, transporter, job.ID, StatusInTransit)
	require.True(t, errors.Is(err, ErrInvalidTransition))

	// Another transporter cannot drive the job.
	_, err = svc.Advance(ctx, uuid.New(), job.ID, StatusPickedUp)
	require.True(t, errors.Is(err, ErrNotAssignee))

	_, err = svc.Advance(ctx, transporter, job.ID, StatusPickedUp)
	require.NoError(t, err)

	got, err := svc.Advance(ctx, transporter, job.ID, StatusInTransit)
	require.NoError(t, err)
	require.Equal(t, StatusInTransit, got.Status)
	require.Equal(t, order.StatusInTransit, repo.orders[paid.ID].Status)

	got, err = svc.Advance(ctx, transporter, job.ID, StatusDelivered)
	require.NoError(t, err)
	require.Equal(t, StatusDelivered, got.Status)
	require.Equal(t, order.StatusDelivered, repo.orders[paid.ID].Status)
}

func TestCompletionRequiresPOD(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil, nil)
	ctx := context.Background()
	admin := uuid.New()

	paid := repo.addOrder(order.StatusPaymentVerified)
	job, err := svc.Create(ctx, admin, validCreate(paid.ID))
	require.NoError(t, err)

	transporter := uuid.New()
	_, err = svc.Claim(ctx, transporter, job.ID)
	require.NoError(t, err)
	for _, step := range []Status{StatusPickedUp, StatusInTransit, StatusDelivered} {
		_, err = svc.Advance(ctx, transporter, job.ID, step)
		require.NoError(t, err)
	}

	_, err = svc.Complete(ctx, admin, job.ID)
	require.True(t, errors.Is(err, ErrMissingPOD))

	_, err = svc.UploadPOD(ctx, uuid.New(), job.ID, "https://cdn.example.com/pod/1.pdf")
	require.True(t, errors.Is(err, ErrNotAssignee))

	got, err := svc.UploadPOD(ctx, transporter, job.ID, "https://cdn.example.com/pod/1.pdf")
	require.NoError(t, err)
	require.Equal(t, StatusPODUploaded, got.Status)

	got, err = svc.Complete(ctx, admin, job.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, got.Status)
	// Job completion never rewrites the order; the admin closes it out.
	require.Equal(t, order.StatusDelivered, repo.orders[paid.ID].Status)
}

func TestTransporterVisibility(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil, nil)
	ctx := context.Background()

	paidA := repo.addOrder(order.StatusPaymentVerified)
	paidB := repo.addOrder(order.StatusPaymentVerified)
	open, err := svc.Create(ctx, uuid.New(), validCreate(paidA.ID))
	require.NoError(t, err)
	mine, err := svc.Create(ctx, uuid.New(), validCreate(paidB.ID))
	require.NoError(t, err)

	transporter := uuid.New()
	_, err = svc.Claim(ctx, transporter, mine.ID)
	require.NoError(t, err)

	jobs, total, err := svc.List(ctx, transporter, auth.RoleTransporter, "", 20, 0)
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, jobs, 2)

	// Someone else's assigned job is invisible.
	_, err = svc.Get(ctx, uuid.New(), auth.RoleTransporter, mine.ID)
	require.True(t, errors.Is(err, ErrNotFound))

	// But an open job is on the board for everyone.
	_, err = svc.Get(ctx, uuid.New(), auth.RoleTransporter, open.ID)
	require.NoError(t, err)
}
