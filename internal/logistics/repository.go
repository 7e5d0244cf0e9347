package logistics

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veldlink/veldlink/internal/platform/db"
)

// ListFilter narrows job listings. Unclaimed selects open pending jobs; it is
// combined with TransporterID as an OR so transporters see the open board
// alongside their own work.
type ListFilter struct {
	TransporterID uuid.UUID
	Status        Status
	Unclaimed     bool
}

// Repository defines persistence operations for logistics jobs. Transitions
// into in_transit and delivered also project onto the owning order inside the
// same transaction.
type Repository interface {
	Create(ctx context.Context, job *Job) error
	Get(ctx context.Context, id uuid.UUID) (*Job, error)
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]Job, int, error)
	Claim(ctx context.Context, jobID, transporterID uuid.UUID) error
	Advance(ctx context.Context, jobID uuid.UUID, from, to Status) error
	RecordPOD(ctx context.Context, jobID uuid.UUID, podURL string) error
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const jobColumns = `id, order_id, transporter_id, pickup_address, pickup_city,
	delivery_address, delivery_city, distance_km, agreed_rate, pod_url, status, created_at, updated_at`

// Create inserts a job, but only while the order has verified payment. The
// guard lives in the insert itself so a racing order change cannot slip a job
// in against an unpaid order.
func (r *PGRepository) Create(ctx context.Context, job *Job) error {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO logistics_jobs (id, order_id, pickup_address, pickup_city, delivery_address, delivery_city,
			distance_km, agreed_rate, status, created_at, updated_at)
		SELECT $1, o.id, $3, $4, $5, $6, $7, $8, 'pending', $9, $9
		FROM orders o
		WHERE o.id = $2 AND o.status = 'payment_verified'
	`, job.ID, job.OrderID, job.PickupAddress, job.PickupCity, job.DeliveryAddress, job.DeliveryCity,
		job.DistanceKm, job.AgreedRate, job.CreatedAt)
	if err != nil {
		return fmt.Errorf("logistics: create job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotReady
	}
	return nil
}

// Get fetches a job by primary key.
func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (*Job, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM logistics_jobs WHERE id = $1`, id)
	return scanJob(row)
}

// List returns jobs matching the filter plus the total count.
func (r *PGRepository) List(ctx context.Context, filter ListFilter, limit, offset int) ([]Job, int, error) {
	where := []string{"1=1"}
	args := []any{}
	switch {
	case filter.TransporterID != uuid.Nil && filter.Unclaimed:
		args = append(args, filter.TransporterID)
		where = append(where, fmt.Sprintf("(transporter_id = $%d OR (transporter_id IS NULL AND status = 'pending'))", len(args)))
	case filter.TransporterID != uuid.Nil:
		args = append(args, filter.TransporterID)
		where = append(where, fmt.Sprintf("transporter_id = $%d", len(args)))
	case filter.Unclaimed:
		where = append(where, "transporter_id IS NULL AND status = 'pending'")
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM logistics_jobs WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("logistics: count jobs: %w", err)
	}

	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM logistics_jobs WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		jobColumns, cond, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("logistics: list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, 0, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, total, rows.Err()
}

// Claim assigns the job to a transporter, first come first served. The CAS on
// transporter_id IS NULL is the whole race guard.
func (r *PGRepository) Claim(ctx context.Context, jobID, transporterID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE logistics_jobs
		SET transporter_id = $2, status = 'assigned', updated_at = NOW()
		WHERE id = $1 AND transporter_id IS NULL AND status = 'pending'
	`, jobID, transporterID)
	if err != nil {
		return fmt.Errorf("logistics: claim job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.Get(ctx, jobID); err != nil {
			return err
		}
		return ErrAlreadyClaimed
	}
	return nil
}

// Advance moves the job one lifecycle step. in_transit and delivered mirror
// onto the owning order in the same transaction; the projection never runs
// backwards from the order side.
func (r *PGRepository) Advance(ctx context.Context, jobID uuid.UUID, from, to Status) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE logistics_jobs SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`,
			jobID, from, to)
		if err != nil {
			return fmt.Errorf("logistics: advance job: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: job not in %s", ErrInvalidTransition, from)
		}

		if to == StatusInTransit || to == StatusDelivered {
			_, err = tx.Exec(ctx, `
				UPDATE orders SET status = $2, updated_at = NOW()
				WHERE id = (SELECT order_id FROM logistics_jobs WHERE id = $1)
				  AND status IN ('payment_verified', 'in_transit')
			`, jobID, string(to))
			if err != nil {
				return fmt.Errorf("logistics: project order status: %w", err)
			}
		}
		return nil
	})
}

// RecordPOD stores the proof-of-delivery URL and moves the job to
// pod_uploaded.
func (r *PGRepository) RecordPOD(ctx context.Context, jobID uuid.UUID, podURL string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE logistics_jobs SET pod_url = $2, status = 'pod_uploaded', updated_at = NOW()
		WHERE id = $1 AND status = 'delivered'
	`, jobID, podURL)
	if err != nil {
		return fmt.Errorf("logistics: record pod: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.Get(ctx, jobID); err != nil {
			return err
		}
		return fmt.Errorf("%w: job not delivered yet", ErrInvalidTransition)
	}
	return nil
}

func scanJob(row pgx.Row) (*Job, error) {
	var (
		job    Job
		podURL *string
	)
	err := row.Scan(&job.ID, &job.OrderID, &job.TransporterID, &job.PickupAddress, &job.PickupCity,
		&job.DeliveryAddress, &job.DeliveryCity, &job.DistanceKm, &job.AgreedRate, &podURL,
		&job.Status, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("logistics: scan job: %w", err)
	}
	if podURL != nil {
		job.PODURL = *podURL
	}
	return &job, nil
}

var _ Repository = (*PGRepository)(nil)
