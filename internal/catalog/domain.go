// Package catalog holds the product categories and the supplier listings
// buyers browse before raising a request for quotation.
package catalog

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/veldlink/veldlink/internal/platform/httpx"
)

// Category is an admin-curated product grouping.
type Category struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Product is a supplier listing. LocationCity doubles as the default pickup
// city when a logistics job is priced against this product.
type Product struct {
	ID             uuid.UUID `json:"id"`
	SupplierID     uuid.UUID `json:"supplier_id"`
	CategoryID     uuid.UUID `json:"category_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	Unit           string    `json:"unit"`
	PricePerUnit   float64   `json:"price_per_unit"`
	StockAvailable float64   `json:"stock_available"`
	LocationCity   string    `json:"location_city"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

var (
	// ErrProductNotFound indicates an unknown or inactive listing.
	ErrProductNotFound = fmt.Errorf("catalog: product not found: %w", httpx.ErrNotFound)
	// ErrCategoryNotFound indicates an unknown category reference.
	ErrCategoryNotFound = fmt.Errorf("catalog: category not found: %w", httpx.ErrNotFound)
	// ErrNotOwner blocks suppliers from touching another supplier's listing.
	ErrNotOwner = fmt.Errorf("catalog: listing belongs to another supplier: %w", httpx.ErrForbidden)
	// ErrInvalidProduct indicates malformed listing fields.
	ErrInvalidProduct = fmt.Errorf("catalog: invalid product: %w", httpx.ErrValidation)
)
