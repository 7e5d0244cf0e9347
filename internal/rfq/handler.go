package rfq

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/veldlink/veldlink/internal/auth"
	"github.com/veldlink/veldlink/internal/platform/httpx"
	"github.com/veldlink/veldlink/internal/shared"
)

// Handler wires HTTP endpoints for RFQs.
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

// MountRoutes registers RFQ routes. All of them require a session.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(auth.RequireAuth)
	r.With(auth.RequireRole(auth.RoleBuyer)).Post("/", h.handleCreate)
	r.Get("/", h.handleList)
	r.Get("/{id}", h.handleGet)
	r.Post("/{id}/cancel", h.handleCancel)
	r.With(auth.RequireRole(auth.RoleAdmin)).Post("/{id}/sourcing", h.handleStartSourcing)
	r.With(auth.RequireRole(auth.RoleAdmin)).Post("/{id}/reopen", h.handleReopen)
}

type createRequest struct {
	CategoryID       string  `json:"category_id"`
	ProductName      string  `json:"product_name" validate:"required"`
	Quantity         float64 `json:"quantity" validate:"required,gt=0"`
	Unit             string  `json:"unit" validate:"required"`
	DeliveryAddress  string  `json:"delivery_address" validate:"required"`
	DeliveryCity     string  `json:"delivery_city" validate:"required"`
	DeliveryProvince string  `json:"delivery_province"`
	RequiredBy       string  `json:"required_by"`
	Notes            string  `json:"notes"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	in := CreateInput{
		ProductName:      req.ProductName,
		Quantity:         req.Quantity,
		Unit:             req.Unit,
		DeliveryAddress:  req.DeliveryAddress,
		DeliveryCity:     req.DeliveryCity,
		DeliveryProvince: req.DeliveryProvince,
		Notes:            req.Notes,
	}
	if req.CategoryID != "" {
		id, err := uuid.Parse(req.CategoryID)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed category id")
			return
		}
		in.CategoryID = id
	}
	if req.RequiredBy != "" {
		ts, err := time.Parse("2006-01-02", req.RequiredBy)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "required_by must be YYYY-MM-DD")
			return
		}
		in.RequiredBy = &ts
	}

	buyerID, _, _ := auth.Identity(r.Context())
	rec, err := h.service.Create(r.Context(), buyerID, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rec)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actorID, role, _ := auth.Identity(r.Context())

	var statuses []Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			statuses = append(statuses, Status(strings.TrimSpace(part)))
		}
	}
	limit, offset := shared.PageParams(r, 20, 100)

	rfqs, total, err := h.service.List(r.Context(), actorID, role, statuses, limit, offset)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"rfqs":  rfqs,
		"total": total,
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed rfq id")
		return
	}
	actorID, role, _ := auth.Identity(r.Context())
	rec, err := h.service.Get(r.Context(), actorID, role, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed rfq id")
		return
	}
	actorID, role, _ := auth.Identity(r.Context())
	if role != auth.RoleBuyer && role != auth.RoleAdmin {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	rec, err := h.service.Cancel(r.Context(), actorID, role, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) handleReopen(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed rfq id")
		return
	}
	adminID, _, _ := auth.Identity(r.Context())
	rec, err := h.service.ReopenSourcing(r.Context(), adminID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) handleStartSourcing(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed rfq id")
		return
	}
	adminID, _, _ := auth.Identity(r.Context())
	rec, err := h.service.StartSourcing(r.Context(), adminID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}
