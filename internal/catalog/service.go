package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service wraps catalog business rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ProductInput carries the supplier-editable listing fields.
type ProductInput struct {
	CategoryID     uuid.UUID
	Name           string
	Description    string
	Unit           string
	PricePerUnit   float64
	StockAvailable float64
	LocationCity   string
}

func (in ProductInput) validate() error {
	switch {
	case in.CategoryID == uuid.Nil:
		return fmt.Errorf("%w: category is required", ErrInvalidProduct)
	case strings.TrimSpace(in.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	case strings.TrimSpace(in.Unit) == "":
		return fmt.Errorf("%w: unit is required", ErrInvalidProduct)
	case in.PricePerUnit <= 0:
		return fmt.Errorf("%w: price per unit must be positive", ErrInvalidProduct)
	case in.StockAvailable < 0:
		return fmt.Errorf("%w: stock available cannot be negative", ErrInvalidProduct)
	case strings.TrimSpace(in.LocationCity) == "":
		return fmt.Errorf("%w: location city is required", ErrInvalidProduct)
	}
	return nil
}

// Categories lists the available product categories.
func (s *Service) Categories(ctx context.Context) ([]Category, error) {
	return s.repo.ListCategories(ctx)
}

// CreateProduct adds a listing owned by the given supplier.
func (s *Service) CreateProduct(ctx context.Context, supplierID uuid.UUID, in ProductInput) (*Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	product := &Product{
		ID:             uuid.New(),
		SupplierID:     supplierID,
		CategoryID:     in.CategoryID,
		Name:           strings.TrimSpace(in.Name),
		Description:    strings.TrimSpace(in.Description),
		Unit:           strings.TrimSpace(in.Unit),
		PricePerUnit:   in.PricePerUnit,
		StockAvailable: in.StockAvailable,
		LocationCity:   strings.TrimSpace(in.LocationCity),
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateProduct rewrites a listing. Only the owning supplier may edit it.
func (s *Service) UpdateProduct(ctx context.Context, supplierID, productID uuid.UUID, in ProductInput) (*Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.SupplierID != supplierID {
		return nil, ErrNotOwner
	}

	product.CategoryID = in.CategoryID
	product.Name = strings.TrimSpace(in.Name)
	product.Description = strings.TrimSpace(in.Description)
	product.Unit = strings.TrimSpace(in.Unit)
	product.PricePerUnit = in.PricePerUnit
	product.StockAvailable = in.StockAvailable
	product.LocationCity = strings.TrimSpace(in.LocationCity)
	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		return nil, err
	}
	return s.repo.GetProduct(ctx, productID)
}

// DeactivateProduct hides a listing from buyers without deleting history.
func (s *Service) DeactivateProduct(ctx context.Context, supplierID, productID uuid.UUID) error {
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	if product.SupplierID != supplierID {
		return ErrNotOwner
	}
	return s.repo.SetProductActive(ctx, productID, false)
}

// Product fetches a single listing.
func (s *Service) Product(ctx context.Context, id uuid.UUID) (*Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// Products lists listings for browse and admin views.
func (s *Service) Products(ctx context.Context, filter ProductFilter, limit, offset int) ([]Product, int, error) {
	return s.repo.ListProducts(ctx, filter, limit, offset)
}
