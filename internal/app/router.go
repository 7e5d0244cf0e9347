package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veldlink/veldlink/internal/auth"
	"github.com/veldlink/veldlink/internal/catalog"
	"github.com/veldlink/veldlink/internal/logistics"
	"github.com/veldlink/veldlink/internal/observability"
	"github.com/veldlink/veldlink/internal/offer"
	"github.com/veldlink/veldlink/internal/order"
	"github.com/veldlink/veldlink/internal/quote"
	"github.com/veldlink/veldlink/internal/rfq"
	"github.com/veldlink/veldlink/internal/shared"
	"github.com/veldlink/veldlink/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager

	AuthHandler      *auth.Handler
	CatalogHandler   *catalog.Handler
	RFQHandler       *rfq.Handler
	QuoteHandler     *quote.Handler
	OfferHandler     *offer.Handler
	OrderHandler     *order.Handler
	LogisticsHandler *logistics.Handler
	JobHandler       *jobs.Handler

	Pool    *pgxpool.Pool
	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with Veldlink defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	r.Route("/admin/users", func(r chi.Router) {
		r.Use(auth.RequireRole(auth.RoleAdmin))
		params.AuthHandler.MountAdminRoutes(r)
	})

	r.Route("/catalog", params.CatalogHandler.MountRoutes)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)
		r.Route("/rfqs", params.RFQHandler.MountRoutes)
		r.Route("/quotes", params.QuoteHandler.MountRoutes)
		r.Route("/offers", params.OfferHandler.MountRoutes)
		r.Route("/orders", params.OrderHandler.MountRoutes)
		r.Route("/logistics", params.LogisticsHandler.MountRoutes)

		dashboard := NewDashboardHandler(params.Pool, params.Logger)
		r.Get("/dashboard", dashboard.handleDashboard)
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
