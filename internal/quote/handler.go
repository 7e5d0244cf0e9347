package quote

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

// Handler wires HTTP endpoints for supplier quotes.
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

// MountRoutes registers quote routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(auth.RequireAuth)
	r.With(auth.RequireRole(auth.RoleSupplier)).Put("/rfqs/{rfqID}", h.handleSubmit)
	r.With(auth.RequireRole(auth.RoleSupplier)).Get("/mine", h.handleMine)
	r.With(auth.RequireRole(auth.RoleAdmin)).Get("/rfqs/{rfqID}", h.handleForRFQ)
	r.Get("/{id}", h.handleGet)
}

type submitRequest struct {
	PricePerUnit float64 `json:"price_per_unit" validate:"required,gt=0"`
	LeadTimeDays int     `json:"lead_time_days" validate:"gte=0"`
	PickupCity   string  `json:"pickup_city"`
	Notes        string  `json:"notes"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	rfqID, err := uuid.Parse(chi.URLParam(r, "rfqID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed rfq id")
		return
	}
	var req submitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	supplierID, _, _ := auth.Identity(r.Context())
	q, err := h.service.Submit(r.Context(), supplierID, rfqID, SubmitInput{
		PricePerUnit: req.PricePerUnit,
		LeadTimeDays: req.LeadTimeDays,
		PickupCity:   req.PickupCity,
		Notes:        req.Notes,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) handleMine(w http.ResponseWriter, r *http.Request) {
	supplierID, _, _ := auth.Identity(r.Context())
	limit, offset := shared.PageParams(r, 20, 100)
	quotes, total, err := h.service.Mine(r.Context(), supplierID, limit, offset)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"quotes": quotes,
		"total":  total,
	})
}

func (h *Handler) handleForRFQ(w http.ResponseWriter, r *http.Request) {
	rfqID, err := uuid.Parse(chi.URLParam(r, "rfqID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed rfq id")
		return
	}
	quotes, err := h.service.ForRFQ(r.Context(), rfqID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"quotes": quotes})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed quote id")
		return
	}
	actorID, role, _ := auth.Identity(r.Context())
	q, err := h.service.Get(r.Context(), actorID, role, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}
