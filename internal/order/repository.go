package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ListFilter narrows order listings.
type ListFilter struct {
	BuyerID uuid.UUID
	Status  Status
}

// Repository defines persistence operations for the order module.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (*Order, error)
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]Order, int, error)
	VerifyPayment(ctx context.Context, id uuid.UUID) error
	Complete(ctx context.Context, id uuid.UUID) error
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const orderColumns = `id, reference, rfq_id, offer_id, buyer_id, subtotal, vat_amount, final_total, payment_status, status, created_at, updated_at`

// Get fetches an order by primary key.
func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return ScanOrder(row)
}

// List returns orders matching the filter plus the total count.
func (r *PGRepository) List(ctx context.Context, filter ListFilter, limit, offset int) ([]Order, int, error) {
	where := []string{"1=1"}
	args := []any{}
	if filter.BuyerID != uuid.Nil {
		args = append(args, filter.BuyerID)
		where = append(where, fmt.Sprintf("buyer_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("order: count: %w", err)
	}

	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM orders WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		orderColumns, cond, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("order: list: %w", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		rec, err := ScanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *rec)
	}
	return out, total, rows.Err()
}

// VerifyPayment marks payment received on a freshly accepted order. Both the
// payment flag and the order status move in one guarded update.
func (r *PGRepository) VerifyPayment(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE orders
		SET payment_status = 'verified', status = 'payment_verified', updated_at = NOW()
		WHERE id = $1 AND payment_status = 'pending' AND status = 'accepted'
	`, id)
	if err != nil {
		return fmt.Errorf("order: verify payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("%w: payment already verified or order moved on", ErrInvalidTransition)
	}
	return nil
}

// Complete closes out a delivered order.
func (r *PGRepository) Complete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE orders SET status = 'completed', updated_at = NOW()
		WHERE id = $1 AND status = 'delivered'
	`, id)
	if err != nil {
		return fmt.Errorf("order: complete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("%w: order must be delivered before completion", ErrInvalidTransition)
	}
	return nil
}

// ScanOrder maps one row onto an Order. Exported for sibling repositories
// that join into the orders table within their own transactions.
func ScanOrder(row pgx.Row) (*Order, error) {
	var rec Order
	err := row.Scan(&rec.ID, &rec.Reference, &rec.RFQID, &rec.OfferID, &rec.BuyerID,
		&rec.Subtotal, &rec.VATAmount, &rec.FinalTotal, &rec.PaymentStatus, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("order: scan: %w", err)
	}
	return &rec, nil
}

var _ Repository = (*PGRepository)(nil)
