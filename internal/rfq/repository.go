package rfq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veldlink/veldlink/internal/shared"
)

// ListFilter narrows RFQ listings.
type ListFilter struct {
	BuyerID  uuid.UUID
	Statuses []Status
}

// Repository defines persistence operations for the rfq module.
type Repository interface {
	Create(ctx context.Context, r *RFQ) error
	Get(ctx context.Context, id uuid.UUID) (*RFQ, error)
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]RFQ, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, to Status, allowedFrom ...Status) error
	ReopenSourcing(ctx context.Context, id uuid.UUID) error
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const rfqColumns = `id, reference, buyer_id, category_id, product_name, quantity, unit,
	delivery_address, delivery_city, delivery_province, required_by, notes, status, created_at, updated_at`

// Create inserts the RFQ and reserves its reference number in one transaction.
func (r *PGRepository) Create(ctx context.Context, rec *RFQ) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("rfq: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	reference, err := shared.NextDocNumber(ctx, tx, "RFQ", rec.CreatedAt)
	if err != nil {
		return err
	}
	rec.Reference = reference

	var categoryID any
	if rec.CategoryID != uuid.Nil {
		categoryID = rec.CategoryID
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO rfqs (id, reference, buyer_id, category_id, product_name, quantity, unit,
			delivery_address, delivery_city, delivery_province, required_by, notes, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
	`, rec.ID, rec.Reference, rec.BuyerID, categoryID, rec.ProductName, rec.Quantity, rec.Unit,
		rec.DeliveryAddress, rec.DeliveryCity, rec.DeliveryProvince, rec.RequiredBy, rec.Notes, rec.Status, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("rfq: insert: %w", err)
	}
	return tx.Commit(ctx)
}

// Get fetches an RFQ by primary key.
func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (*RFQ, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+rfqColumns+` FROM rfqs WHERE id = $1`, id)
	return scanRFQ(row)
}

// List returns RFQs matching the filter plus the total count.
func (r *PGRepository) List(ctx context.Context, filter ListFilter, limit, offset int) ([]RFQ, int, error) {
	where := []string{"1=1"}
	args := []any{}
	if filter.BuyerID != uuid.Nil {
		args = append(args, filter.BuyerID)
		where = append(where, fmt.Sprintf("buyer_id = $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		args = append(args, statuses)
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM rfqs WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("rfq: count: %w", err)
	}

	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM rfqs WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		rfqColumns, cond, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("rfq: list: %w", err)
	}
	defer rows.Close()

	var out []RFQ
	for rows.Next() {
		rec, err := scanRFQ(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *rec)
	}
	return out, total, rows.Err()
}

// UpdateStatus moves the RFQ to a new status iff it currently sits in one of
// the allowed source states. Zero rows affected means either a lost race or a
// missing row; the caller gets the precise error.
func (r *PGRepository) UpdateStatus(ctx context.Context, id uuid.UUID, to Status, allowedFrom ...Status) error {
	from := make([]string, 0, len(allowedFrom))
	for _, s := range allowedFrom {
		from = append(from, string(s))
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE rfqs SET status = $2, updated_at = NOW() WHERE id = $1 AND status = ANY($3)`,
		id, to, from)
	if err != nil {
		return fmt.Errorf("rfq: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("%w: cannot move to %s", ErrInvalidTransition, to)
	}
	return nil
}

// ReopenSourcing moves a quoted RFQ back to sourcing, but only while no
// pending or accepted offer exists on it.
func (r *PGRepository) ReopenSourcing(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE rfqs SET status = 'sourcing', updated_at = NOW()
		WHERE id = $1 AND status = 'quoted'
		  AND NOT EXISTS (
			SELECT 1 FROM client_offers
			WHERE rfq_id = $1 AND status IN ('pending', 'accepted')
		  )`, id)
	if err != nil {
		return fmt.Errorf("rfq: reopen sourcing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("%w: cannot move to %s", ErrInvalidTransition, StatusSourcing)
	}
	return nil
}

func scanRFQ(row pgx.Row) (*RFQ, error) {
	var (
		rec        RFQ
		categoryID *uuid.UUID
		province   *string
		notes      *string
		requiredBy *time.Time
	)
	err := row.Scan(&rec.ID, &rec.Reference, &rec.BuyerID, &categoryID, &rec.ProductName, &rec.Quantity, &rec.Unit,
		&rec.DeliveryAddress, &rec.DeliveryCity, &province, &requiredBy, &notes, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("rfq: scan: %w", err)
	}
	if categoryID != nil {
		rec.CategoryID = *categoryID
	}
	if province != nil {
		rec.DeliveryProvince = *province
	}
	if notes != nil {
		rec.Notes = *notes
	}
	rec.RequiredBy = requiredBy
	return &rec, nil
}

var _ Repository = (*PGRepository)(nil)
