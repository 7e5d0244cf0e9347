package app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veldlink/veldlink/internal/auth"
	"github.com/veldlink/veldlink/internal/platform/httpx"
)

// DashboardHandler serves the per-role landing counters.
type DashboardHandler struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewDashboardHandler constructs a DashboardHandler.
func NewDashboardHandler(pool *pgxpool.Pool, logger *slog.Logger) *DashboardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardHandler{pool: pool, logger: logger}
}

func (h *DashboardHandler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := auth.Identity(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	counts, err := h.counts(r.Context(), userID, role)
	if err != nil {
		h.logger.Error("dashboard counts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"role": role, "counts": counts})
}

func (h *DashboardHandler) counts(ctx context.Context, userID uuid.UUID, role auth.Role) (map[string]int64, error) {
	type query struct {
		key  string
		sql  string
		args []any
	}

	var queries []query
	switch role {
	case auth.RoleBuyer:
		queries = []query{
			{"open_rfqs", `SELECT COUNT(*) FROM rfqs WHERE buyer_id = $1 AND status IN ('new','sourcing','quoted')`, []any{userID}},
			{"pending_offers", `SELECT COUNT(*) FROM client_offers WHERE buyer_id = $1 AND status = 'pending'`, []any{userID}},
			{"active_orders", `SELECT COUNT(*) FROM orders WHERE buyer_id = $1 AND status <> 'completed'`, []any{userID}},
			{"completed_orders", `SELECT COUNT(*) FROM orders WHERE buyer_id = $1 AND status = 'completed'`, []any{userID}},
		}
	case auth.RoleSupplier:
		queries = []query{
			{"open_rfqs", `SELECT COUNT(*) FROM rfqs WHERE status IN ('new','sourcing')`, nil},
			{"my_quotes", `SELECT COUNT(*) FROM supplier_quotes WHERE supplier_id = $1`, []any{userID}},
			{"selected_quotes", `SELECT COUNT(*) FROM supplier_quotes WHERE supplier_id = $1 AND is_selected`, []any{userID}},
			{"active_products", `SELECT COUNT(*) FROM supplier_products WHERE supplier_id = $1 AND is_active`, []any{userID}},
		}
	case auth.RoleTransporter:
		queries = []query{
			{"open_jobs", `SELECT COUNT(*) FROM logistics_jobs WHERE transporter_id IS NULL AND status = 'pending'`, nil},
			{"active_jobs", `SELECT COUNT(*) FROM logistics_jobs WHERE transporter_id = $1 AND status <> 'completed'`, []any{userID}},
			{"completed_jobs", `SELECT COUNT(*) FROM logistics_jobs WHERE transporter_id = $1 AND status = 'completed'`, []any{userID}},
		}
	case auth.RoleAdmin:
		queries = []query{
			{"pending_users", `SELECT COUNT(*) FROM profiles WHERE NOT is_approved`, nil},
			{"open_rfqs", `SELECT COUNT(*) FROM rfqs WHERE status IN ('new','sourcing')`, nil},
			{"pending_offers", `SELECT COUNT(*) FROM client_offers WHERE status = 'pending'`, nil},
			{"active_orders", `SELECT COUNT(*) FROM orders WHERE status <> 'completed'`, nil},
			{"open_jobs", `SELECT COUNT(*) FROM logistics_jobs WHERE status <> 'completed'`, nil},
		}
	default:
		return nil, httpx.ErrForbidden
	}

	counts := make(map[string]int64, len(queries))
	for _, q := range queries {
		var n int64
		if err := h.pool.QueryRow(ctx, q.sql, q.args...).Scan(&n); err != nil {
			return nil, err
		}
		counts[q.key] = n
	}
	return counts, nil
}
