package offer

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/veldlink/veldlink/internal/auth"
	"github.com/veldlink/veldlink/internal/platform/httpx"
	"github.com/veldlink/veldlink/internal/shared"
)

// Handler wires HTTP endpoints for client offers. Buyers receive the
// projected view; only admins ever see the full breakdown.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers offer routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(auth.RequireAuth)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(auth.RoleAdmin))
		r.Post("/", h.handleCreate)
		r.Post("/preview", h.handlePreview)
	})
	r.Get("/", h.handleList)
	r.Get("/{id}", h.handleGet)
	r.With(auth.RequireRole(auth.RoleBuyer)).Post("/{id}/accept", h.handleAccept)
}

type priceRequest struct {
	SupplierQuoteID       string   `json:"supplier_quote_id" validate:"required,uuid"`
	MarginPercent         *float64 `json:"margin_percent"`
	DistanceKm            *float64 `json:"distance_km"`
	LogisticsRatePerKm    *float64 `json:"logistics_rate_per_km"`
	MinLogisticsFee       *float64 `json:"min_logistics_fee"`
	ValidDays             *int     `json:"valid_days"`
	EstimatedDeliveryDays *int     `json:"estimated_delivery_days"`
}

func (h *Handler) decodePrice(w http.ResponseWriter, r *http.Request) (PriceInput, bool) {
	var req priceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return PriceInput{}, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return PriceInput{}, false
	}
	quoteID, err := uuid.Parse(req.SupplierQuoteID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed quote id")
		return PriceInput{}, false
	}
	return PriceInput{
		QuoteID:               quoteID,
		MarginPercent:         req.MarginPercent,
		DistanceKm:            req.DistanceKm,
		RatePerKm:             req.LogisticsRatePerKm,
		MinFee:                req.MinLogisticsFee,
		ValidDays:             req.ValidDays,
		EstimatedDeliveryDays: req.EstimatedDeliveryDays,
	}, true
}

func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodePrice(w, r)
	if !ok {
		return
	}
	breakdown, err := h.service.Preview(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"breakdown": breakdown})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodePrice(w, r)
	if !ok {
		return
	}
	adminID, _, _ := auth.Identity(r.Context())
	o, err := h.service.Create(r.Context(), adminID, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, o)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actorID, role, _ := auth.Identity(r.Context())
	status := Status(r.URL.Query().Get("status"))
	limit, offset := shared.PageParams(r, 20, 100)

	offers, total, err := h.service.List(r.Context(), actorID, role, status, limit, offset)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	if role == auth.RoleBuyer {
		views := make([]BuyerView, 0, len(offers))
		for i := range offers {
			views = append(views, offers[i].ForBuyer())
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"offers": views, "total": total})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"offers": offers, "total": total})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed offer id")
		return
	}
	actorID, role, _ := auth.Identity(r.Context())
	o, err := h.service.Get(r.Context(), actorID, role, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if role == auth.RoleBuyer {
		httpx.JSON(w, http.StatusOK, o.ForBuyer())
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *Handler) handleAccept(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed offer id")
		return
	}
	buyerID, _, _ := auth.Identity(r.Context())
	created, err := h.service.Accept(r.Context(), buyerID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}
