package offer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veldlink/veldlink/internal/order"
	"github.com/veldlink/veldlink/internal/platform/db"
	"github.com/veldlink/veldlink/internal/shared"
)

// ListFilter narrows offer listings.
type ListFilter struct {
	BuyerID uuid.UUID
	Status  Status
}

// Repository defines persistence operations for client offers. Creation and
// acceptance are multi-table transactions touching supplier_quotes, rfqs and
// orders alongside client_offers.
type Repository interface {
	CreateFromQuote(ctx context.Context, o *ClientOffer) error
	Get(ctx context.Context, id uuid.UUID) (*ClientOffer, error)
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]ClientOffer, int, error)
	Accept(ctx context.Context, offerID, buyerID uuid.UUID, now time.Time) (*order.Order, error)
	ExpirePending(ctx context.Context, now time.Time) (int64, error)
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const offerColumns = `id, rfq_id, quote_id, buyer_id,
	supplier_cost, margin_percent, margin_amount, distance_km, logistics_fee,
	subtotal, vat_percent, vat_amount, final_total,
	estimated_delivery_days, valid_until, status, created_at, updated_at`

// CreateFromQuote publishes the offer: the source quote is claimed with a
// compare-and-set, the offer row is inserted, and the RFQ moves to quoted.
// All three writes share one transaction. The CAS pins the priced supplier
// cost, so a quote revised between pricing and publishing is rejected rather
// than published at a stale amount.
func (r *PGRepository) CreateFromQuote(ctx context.Context, o *ClientOffer) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE supplier_quotes SET is_selected = TRUE, updated_at = NOW()
			 WHERE id = $1 AND is_selected = FALSE AND total_price = $2`,
			o.QuoteID, o.Breakdown.SupplierCost)
		if err != nil {
			return fmt.Errorf("offer: select quote: %w", err)
		}
		if tag.RowsAffected() == 0 {
			var selected bool
			err := tx.QueryRow(ctx,
				`SELECT is_selected FROM supplier_quotes WHERE id = $1`, o.QuoteID).Scan(&selected)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return fmt.Errorf("offer: quote not found: %w", ErrNotFound)
				}
				return fmt.Errorf("offer: check quote: %w", err)
			}
			if selected {
				return ErrQuoteAlreadySelected
			}
			return ErrQuoteChanged
		}

		b := o.Breakdown
		_, err = tx.Exec(ctx, `
			INSERT INTO client_offers (id, rfq_id, quote_id, buyer_id,
				supplier_cost, margin_percent, margin_amount, distance_km, logistics_fee,
				subtotal, vat_percent, vat_amount, final_total,
				estimated_delivery_days, valid_until, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $17)
		`, o.ID, o.RFQID, o.QuoteID, o.BuyerID,
			b.SupplierCost, b.MarginPercent, b.MarginAmount, b.DistanceKm, b.LogisticsFee,
			b.Subtotal, b.VATPercent, b.VATAmount, b.FinalTotal,
			o.EstimatedDeliveryDays, o.ValidUntil, o.Status, o.CreatedAt)
		if err != nil {
			return fmt.Errorf("offer: insert: %w", err)
		}

		tag, err = tx.Exec(ctx,
			`UPDATE rfqs SET status = 'quoted', updated_at = NOW() WHERE id = $1 AND status IN ('new', 'sourcing')`,
			o.RFQID)
		if err != nil {
			return fmt.Errorf("offer: move rfq to quoted: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("offer: rfq not open for offers: %w", ErrNotPending)
		}
		return nil
	})
}

// Get fetches an offer by primary key.
func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (*ClientOffer, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+offerColumns+` FROM client_offers WHERE id = $1`, id)
	return scanOffer(row)
}

// List returns offers matching the filter plus the total count.
func (r *PGRepository) List(ctx context.Context, filter ListFilter, limit, offset int) ([]ClientOffer, int, error) {
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
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM client_offers WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("offer: count: %w", err)
	}

	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM client_offers WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		offerColumns, cond, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("offer: list: %w", err)
	}
	defer rows.Close()

	var out []ClientOffer
	for rows.Next() {
		rec, err := scanOffer(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *rec)
	}
	return out, total, rows.Err()
}

// Accept finalises the deal: the offer flips to accepted, the order row is
// created with its own document number, and the RFQ closes as accepted — all
// in a single transaction. A stale validity window flags the offer expired
// instead; that commit happens too, but no order exists afterwards.
func (r *PGRepository) Accept(ctx context.Context, offerID, buyerID uuid.UUID, now time.Time) (*order.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return nil, fmt.Errorf("offer: begin accept tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `SELECT `+offerColumns+` FROM client_offers WHERE id = $1 FOR UPDATE`, offerID)
	o, err := scanOffer(row)
	if err != nil {
		return nil, err
	}
	if o.BuyerID != buyerID {
		return nil, ErrNotOwner
	}
	if o.Status != StatusPending {
		return nil, fmt.Errorf("%w: offer is %s", ErrNotPending, o.Status)
	}
	if now.After(o.ValidUntil) {
		if _, err := tx.Exec(ctx,
			`UPDATE client_offers SET status = 'expired', updated_at = NOW() WHERE id = $1`, offerID); err != nil {
			return nil, fmt.Errorf("offer: flag expired: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("offer: commit expiry: %w", err)
		}
		return nil, ErrOfferExpired
	}

	tag, err := tx.Exec(ctx,
		`UPDATE client_offers SET status = 'accepted', updated_at = NOW() WHERE id = $1 AND status = 'pending'`,
		offerID)
	if err != nil {
		return nil, fmt.Errorf("offer: accept: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotPending
	}

	reference, err := shared.NextDocNumber(ctx, tx, "ORD", now)
	if err != nil {
		return nil, err
	}
	orderID := uuid.New()
	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, reference, rfq_id, offer_id, buyer_id, subtotal, vat_amount, final_total, payment_status, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending', 'accepted', $9, $9)
	`, orderID, reference, o.RFQID, o.ID, o.BuyerID,
		o.Breakdown.Subtotal, o.Breakdown.VATAmount, o.Breakdown.FinalTotal, now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("offer: rfq already has an order: %w", ErrNotPending)
		}
		return nil, fmt.Errorf("offer: create order: %w", err)
	}

	tag, err = tx.Exec(ctx,
		`UPDATE rfqs SET status = 'accepted', updated_at = NOW() WHERE id = $1 AND status = 'quoted'`,
		o.RFQID)
	if err != nil {
		return nil, fmt.Errorf("offer: close rfq: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("offer: rfq no longer quoted: %w", ErrNotPending)
	}

	orderRow := tx.QueryRow(ctx,
		`SELECT id, reference, rfq_id, offer_id, buyer_id, subtotal, vat_amount, final_total, payment_status, status, created_at, updated_at
		 FROM orders WHERE id = $1`, orderID)
	created, err := order.ScanOrder(orderRow)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("offer: commit accept: %w", err)
	}
	return created, nil
}

// ExpirePending flags pending offers whose validity window has passed.
// Acceptance re-checks the timestamp anyway; this keeps listings honest.
func (r *PGRepository) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE client_offers SET status = 'expired', updated_at = NOW() WHERE status = 'pending' AND valid_until < $1`,
		now)
	if err != nil {
		return 0, fmt.Errorf("offer: expire pending: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanOffer(row pgx.Row) (*ClientOffer, error) {
	var o ClientOffer
	err := row.Scan(&o.ID, &o.RFQID, &o.QuoteID, &o.BuyerID,
		&o.Breakdown.SupplierCost, &o.Breakdown.MarginPercent, &o.Breakdown.MarginAmount,
		&o.Breakdown.DistanceKm, &o.Breakdown.LogisticsFee,
		&o.Breakdown.Subtotal, &o.Breakdown.VATPercent, &o.Breakdown.VATAmount, &o.Breakdown.FinalTotal,
		&o.EstimatedDeliveryDays, &o.ValidUntil, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("offer: scan: %w", err)
	}
	return &o, nil
}

var _ Repository = (*PGRepository)(nil)
