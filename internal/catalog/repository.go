package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProductFilter narrows product listings.
type ProductFilter struct {
	CategoryID uuid.UUID
	SupplierID uuid.UUID
	City       string
	ActiveOnly bool
}

// Repository defines persistence operations for the catalog module.
type Repository interface {
	ListCategories(ctx context.Context) ([]Category, error)
	CreateProduct(ctx context.Context, product *Product) error
	UpdateProduct(ctx context.Context, product *Product) error
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)
	ListProducts(ctx context.Context, filter ProductFilter, limit, offset int) ([]Product, int, error)
	SetProductActive(ctx context.Context, id uuid.UUID, active bool) error
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const productColumns = `id, supplier_id, category_id, name, description, unit, price_per_unit, stock_available, location_city, is_active, created_at, updated_at`

// ListCategories returns all categories ordered by name.
func (r *PGRepository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, created_at FROM product_categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list categories: %w", err)
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("catalog: scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// CreateProduct inserts a new listing.
func (r *PGRepository) CreateProduct(ctx context.Context, p *Product) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO supplier_products (id, supplier_id, category_id, name, description, unit, price_per_unit, stock_available, location_city, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
	`, p.ID, p.SupplierID, p.CategoryID, p.Name, p.Description, p.Unit, p.PricePerUnit, p.StockAvailable, p.LocationCity, p.IsActive, p.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("catalog: create product: %w", err)
	}
	return nil
}

// UpdateProduct rewrites the mutable listing fields.
func (r *PGRepository) UpdateProduct(ctx context.Context, p *Product) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE supplier_products
		SET category_id = $2, name = $3, description = $4, unit = $5, price_per_unit = $6, stock_available = $7, location_city = $8, updated_at = NOW()
		WHERE id = $1
	`, p.ID, p.CategoryID, p.Name, p.Description, p.Unit, p.PricePerUnit, p.StockAvailable, p.LocationCity)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("catalog: update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// GetProduct fetches a listing by ID.
func (r *PGRepository) GetProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	var p Product
	err := r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM supplier_products WHERE id = $1`, id).
		Scan(&p.ID, &p.SupplierID, &p.CategoryID, &p.Name, &p.Description, &p.Unit,
			&p.PricePerUnit, &p.StockAvailable, &p.LocationCity, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("catalog: get product: %w", err)
	}
	return &p, nil
}

// ListProducts returns listings matching the filter plus the total count.
func (r *PGRepository) ListProducts(ctx context.Context, filter ProductFilter, limit, offset int) ([]Product, int, error) {
	where := []string{"1=1"}
	args := []any{}
	if filter.CategoryID != uuid.Nil {
		args = append(args, filter.CategoryID)
		where = append(where, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if filter.SupplierID != uuid.Nil {
		args = append(args, filter.SupplierID)
		where = append(where, fmt.Sprintf("supplier_id = $%d", len(args)))
	}
	if filter.City != "" {
		args = append(args, filter.City)
		where = append(where, fmt.Sprintf("LOWER(location_city) = LOWER($%d)", len(args)))
	}
	if filter.ActiveOnly {
		where = append(where, "is_active")
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM supplier_products WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("catalog: count products: %w", err)
	}

	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM supplier_products WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		productColumns, cond, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("catalog: list products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.SupplierID, &p.CategoryID, &p.Name, &p.Description, &p.Unit,
			&p.PricePerUnit, &p.StockAvailable, &p.LocationCity, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("catalog: scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

// SetProductActive toggles listing visibility.
func (r *PGRepository) SetProductActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE supplier_products SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("catalog: set product active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
