package logistics

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

// Handler wires HTTP endpoints for logistics jobs.
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

// MountRoutes registers job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(auth.RequireAuth)
	r.Get("/", h.handleList)
	r.Get("/{id}", h.handleGet)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(auth.RoleAdmin))
		r.Post("/", h.handleCreate)
		r.Post("/{id}/assign", h.handleAssign)
		r.Post("/{id}/complete", h.handleComplete)
	})
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(auth.RoleTransporter))
		r.Post("/{id}/claim", h.handleClaim)
		r.Post("/{id}/advance", h.handleAdvance)
		r.Post("/{id}/pod", h.handlePOD)
	})
}

type createRequest struct {
	OrderID         string  `json:"order_id" validate:"required,uuid"`
	PickupAddress   string  `json:"pickup_address" validate:"required"`
	PickupCity      string  `json:"pickup_city" validate:"required"`
	DeliveryAddress string  `json:"delivery_address" validate:"required"`
	DeliveryCity    string  `json:"delivery_city" validate:"required"`
	DistanceKm      float64 `json:"distance_km" validate:"gte=0"`
	AgreedRate      float64 `json:"agreed_rate" validate:"gte=0"`
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
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed order id")
		return
	}

	adminID, _, _ := auth.Identity(r.Context())
	job, err := h.service.Create(r.Context(), adminID, CreateInput{
		OrderID:         orderID,
		PickupAddress:   req.PickupAddress,
		PickupCity:      req.PickupCity,
		DeliveryAddress: req.DeliveryAddress,
		DeliveryCity:    req.DeliveryCity,
		DistanceKm:      req.DistanceKm,
		AgreedRate:      req.AgreedRate,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, job)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actorID, role, _ := auth.Identity(r.Context())
	status := Status(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "unknown status")
		return
	}
	limit, offset := shared.PageParams(r, 20, 100)

	jobs, total, err := h.service.List(r.Context(), actorID, role, status, limit, offset)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"jobs":  jobs,
		"total": total,
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	jobID, ok := h.jobID(w, r)
	if !ok {
		return
	}
	actorID, role, _ := auth.Identity(r.Context())
	job, err := h.service.Get(r.Context(), actorID, role, jobID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, job)
}

func (h *Handler) handleClaim(w http.ResponseWriter, r *http.Request) {
	jobID, ok := h.jobID(w, r)
	if !ok {
		return
	}
	transporterID, _, _ := auth.Identity(r.Context())
	job, err := h.service.Claim(r.Context(), transporterID, jobID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, job)
}

type assignRequest struct {
	TransporterID string `json:"transporter_id" validate:"required,uuid"`
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
	jobID, ok := h.jobID(w, r)
	if !ok {
		return
	}
	var req assignRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	transporterID, err := uuid.Parse(req.TransporterID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed transporter id")
		return
	}

	adminID, _, _ := auth.Identity(r.Context())
	job, err := h.service.Assign(r.Context(), adminID, transporterID, jobID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, job)
}

type advanceRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) handleAdvance(w http.ResponseWriter, r *http.Request) {
	jobID, ok := h.jobID(w, r)
	if !ok {
		return
	}
	var req advanceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	transporterID, _, _ := auth.Identity(r.Context())
	job, err := h.service.Advance(r.Context(), transporterID, jobID, Status(req.Status))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, job)
}

type podRequest struct {
	PODURL string `json:"pod_url" validate:"required,url"`
}

func (h *Handler) handlePOD(w http.ResponseWriter, r *http.Request) {
	jobID, ok := h.jobID(w, r)
	if !ok {
		return
	}
	var req podRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	transporterID, _, _ := auth.Identity(r.Context())
	job, err := h.service.UploadPOD(r.Context(), transporterID, jobID, req.PODURL)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, job)
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	jobID, ok := h.jobID(w, r)
	if !ok {
		return
	}
	adminID, _, _ := auth.Identity(r.Context())
	job, err := h.service.Complete(r.Context(), adminID, jobID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, job)
}

func (h *Handler) jobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed job id")
		return uuid.Nil, false
	}
	return id, true
}
