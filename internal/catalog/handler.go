package catalog

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

// Handler wires HTTP endpoints for the catalog.
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

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/categories", h.handleCategories)
	r.Get("/products", h.handleListProducts)
	r.Get("/products/{id}", h.handleGetProduct)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(auth.RoleSupplier))
		r.Post("/products", h.handleCreateProduct)
		r.Put("/products/{id}", h.handleUpdateProduct)
		r.Delete("/products/{id}", h.handleDeactivateProduct)
	})
}

func (h *Handler) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.Categories(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"categories": categories})
}

type productRequest struct {
	CategoryID     string  `json:"category_id" validate:"required,uuid"`
	Name           string  `json:"name" validate:"required"`
	Description    string  `json:"description"`
	Unit           string  `json:"unit" validate:"required"`
	PricePerUnit   float64 `json:"price_per_unit" validate:"required,gt=0"`
	StockAvailable float64 `json:"stock_available" validate:"gte=0"`
	LocationCity   string  `json:"location_city" validate:"required"`
}

func (h *Handler) decodeProduct(w http.ResponseWriter, r *http.Request) (ProductInput, bool) {
	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return ProductInput{}, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return ProductInput{}, false
	}
	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed category id")
		return ProductInput{}, false
	}
	return ProductInput{
		CategoryID:     categoryID,
		Name:           req.Name,
		Description:    req.Description,
		Unit:           req.Unit,
		PricePerUnit:   req.PricePerUnit,
		StockAvailable: req.StockAvailable,
		LocationCity:   req.LocationCity,
	}, true
}

func (h *Handler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}
	supplierID, _, _ := auth.Identity(r.Context())
	product, err := h.service.CreateProduct(r.Context(), supplierID, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, product)
}

func (h *Handler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed product id")
		return
	}
	in, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}
	supplierID, _, _ := auth.Identity(r.Context())
	product, err := h.service.UpdateProduct(r.Context(), supplierID, productID, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) handleDeactivateProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed product id")
		return
	}
	supplierID, _, _ := auth.Identity(r.Context())
	if err := h.service.DeactivateProduct(r.Context(), supplierID, productID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed product id")
		return
	}
	product, err := h.service.Product(r.Context(), productID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	filter := ProductFilter{ActiveOnly: true, City: r.URL.Query().Get("city")}
	if raw := r.URL.Query().Get("category_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed category id")
			return
		}
		filter.CategoryID = id
	}
	if raw := r.URL.Query().Get("supplier_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed supplier id")
			return
		}
		filter.SupplierID = id
	}
	limit, offset := shared.PageParams(r, 20, 100)

	products, total, err := h.service.Products(r.Context(), filter, limit, offset)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"products": products,
		"total":    total,
	})
}
