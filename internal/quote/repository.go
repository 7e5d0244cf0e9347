package quote

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines persistence operations for supplier quotes.
type Repository interface {
	Upsert(ctx context.Context, q *SupplierQuote) error
	Get(ctx context.Context, id uuid.UUID) (*SupplierQuote, error)
	ListByRFQ(ctx context.Context, rfqID uuid.UUID) ([]SupplierQuote, error)
	ListBySupplier(ctx context.Context, supplierID uuid.UUID, limit, offset int) ([]SupplierQuote, int, error)
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const quoteColumns = `id, rfq_id, supplier_id, price_per_unit, total_price, lead_time_days, pickup_city, notes, is_selected, created_at, updated_at`

// Upsert writes the supplier's quote for an RFQ, revising any previous one.
// A selected quote is immutable; the conditional update returns no row then.
func (r *PGRepository) Upsert(ctx context.Context, q *SupplierQuote) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO supplier_quotes (id, rfq_id, supplier_id, price_per_unit, total_price, lead_time_days, pickup_city, notes, is_selected, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE, $9, $9)
		ON CONFLICT (rfq_id, supplier_id) DO UPDATE
		SET price_per_unit = EXCLUDED.price_per_unit,
		    total_price    = EXCLUDED.total_price,
		    lead_time_days = EXCLUDED.lead_time_days,
		    pickup_city    = EXCLUDED.pickup_city,
		    notes          = EXCLUDED.notes,
		    updated_at     = EXCLUDED.updated_at
		WHERE supplier_quotes.is_selected = FALSE
		RETURNING `+quoteColumns,
		q.ID, q.RFQID, q.SupplierID, q.PricePerUnit, q.TotalPrice, q.LeadTimeDays, q.PickupCity, q.Notes, q.UpdatedAt)

	stored, err := scanQuote(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrAlreadySelected
		}
		return err
	}
	*q = *stored
	return nil
}

// Get fetches a quote by primary key.
func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (*SupplierQuote, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+quoteColumns+` FROM supplier_quotes WHERE id = $1`, id)
	return scanQuote(row)
}

// ListByRFQ returns all quotes on an RFQ, cheapest first.
func (r *PGRepository) ListByRFQ(ctx context.Context, rfqID uuid.UUID) ([]SupplierQuote, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+quoteColumns+` FROM supplier_quotes WHERE rfq_id = $1 ORDER BY total_price ASC`, rfqID)
	if err != nil {
		return nil, fmt.Errorf("quote: list by rfq: %w", err)
	}
	defer rows.Close()
	return collectQuotes(rows)
}

// ListBySupplier returns the supplier's quotes, newest first, plus the total.
func (r *PGRepository) ListBySupplier(ctx context.Context, supplierID uuid.UUID, limit, offset int) ([]SupplierQuote, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM supplier_quotes WHERE supplier_id = $1`, supplierID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("quote: count by supplier: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+quoteColumns+` FROM supplier_quotes WHERE supplier_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		supplierID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("quote: list by supplier: %w", err)
	}
	defer rows.Close()

	quotes, err := collectQuotes(rows)
	if err != nil {
		return nil, 0, err
	}
	return quotes, total, nil
}

func collectQuotes(rows pgx.Rows) ([]SupplierQuote, error) {
	var quotes []SupplierQuote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, *q)
	}
	return quotes, rows.Err()
}

func scanQuote(row pgx.Row) (*SupplierQuote, error) {
	var (
		q     SupplierQuote
		notes *string
	)
	err := row.Scan(&q.ID, &q.RFQID, &q.SupplierID, &q.PricePerUnit, &q.TotalPrice, &q.LeadTimeDays,
		&q.PickupCity, &notes, &q.IsSelected, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("quote: scan: %w", err)
	}
	if notes != nil {
		q.Notes = *notes
	}
	return &q, nil
}

var _ Repository = (*PGRepository)(nil)
