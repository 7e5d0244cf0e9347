package order

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/veldlink/veldlink/internal/auth"
	"github.com/veldlink/veldlink/internal/platform/httpx"
	"github.com/veldlink/veldlink/internal/shared"
)

// Handler wires HTTP endpoints for orders.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(auth.RequireAuth)
	r.Get("/", h.handleList)
	r.Get("/{id}", h.handleGet)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(auth.RoleAdmin))
		r.Post("/{id}/verify-payment", h.handleVerifyPayment)
		r.Post("/{id}/complete", h.handleComplete)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actorID, role, _ := auth.Identity(r.Context())
	status := Status(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "unknown status")
		return
	}
	limit, offset := shared.PageParams(r, 20, 100)

	orders, total, err := h.service.List(r.Context(), actorID, role, status, limit, offset)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"orders": orders,
		"total":  total,
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed order id")
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

func (h *Handler) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed order id")
		return
	}
	adminID, _, _ := auth.Identity(r.Context())
	rec, err := h.service.VerifyPayment(r.Context(), adminID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed order id")
		return
	}
	adminID, _, _ := auth.Identity(r.Context())
	rec, err := h.service.Complete(r.Context(), adminID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}
