package shared

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// RowQuerier is the smallest query surface both pgxpool.Pool and pgx.Tx offer.
type RowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NextDocNumber reserves the next document number for a doc type within the
// current month period, e.g. RFQ-2608-0007. Safe under concurrency via the
// document_sequences upsert.
func NextDocNumber(ctx context.Context, q RowQuerier, docType string, date time.Time) (string, error) {
	period := date.Format("0601")
	var seq int64
	err := q.QueryRow(ctx, `
		INSERT INTO document_sequences (doc_type, period, seq)
		VALUES ($1, $2, 1)
		ON CONFLICT (doc_type, period)
		DO UPDATE SET seq = document_sequences.seq + 1
		RETURNING seq
	`, docType, period).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("shared: next doc number: %w", err)
	}
	return fmt.Sprintf("%s-%s-%04d", docType, period, seq), nil
}
