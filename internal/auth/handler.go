package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/veldlink/veldlink/internal/platform/httpx"
	"github.com/veldlink/veldlink/internal/shared"
)

// Handler wires HTTP endpoints for account flows.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	sessions *shared.SessionManager
	validate *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:   logger,
		service:  service,
		sessions: sessions,
		validate: validator.New(),
	}
}

// MountRoutes registers public auth routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.With(RequireAuth).Get("/me", h.handleMe)
}

// MountAdminRoutes registers the admin user console.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/{id}/approve", h.handleApprove)
	r.Post("/{id}/suspend", h.handleSuspend)
}

type registerRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	Role        string `json:"role" validate:"required"`
	CompanyName string `json:"company_name" validate:"required"`
	City        string `json:"city" validate:"required"`
	Phone       string `json:"phone"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	user, err := h.service.Register(r.Context(), RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		Role:        Role(req.Role),
		CompanyName: req.CompanyName,
		City:        req.City,
		Phone:       req.Phone,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	sess.SetUser(user.ID.String(), string(user.Role))
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		h.sessions.Destroy(sess)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, _, _ := Identity(r.Context())
	user, err := h.service.Profile(r.Context(), userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{Role: Role(r.URL.Query().Get("role"))}
	switch r.URL.Query().Get("approved") {
	case "true":
		approved := true
		filter.Approved = &approved
	case "false":
		approved := false
		filter.Approved = &approved
	}
	limit, offset := shared.PageParams(r, 20, 100)

	users, total, err := h.service.ListUsers(r.Context(), filter, limit, offset)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"users": users,
		"total": total,
	})
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.setApproval(w, r, true)
}

func (h *Handler) handleSuspend(w http.ResponseWriter, r *http.Request) {
	h.setApproval(w, r, false)
}

func (h *Handler) setApproval(w http.ResponseWriter, r *http.Request, approved bool) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed user id")
		return
	}
	adminID, _, _ := Identity(r.Context())

	var user *User
	if approved {
		user, err = h.service.Approve(r.Context(), adminID, userID)
	} else {
		user, err = h.service.Suspend(r.Context(), adminID, userID)
	}
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}
