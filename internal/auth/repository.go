package auth

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

// ListFilter narrows the admin user listing.
type ListFilter struct {
	Role     Role
	Approved *bool
}

// Repository defines persistence operations for the auth module.
type Repository interface {
	Create(ctx context.Context, user *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]User, int, error)
	SetApproval(ctx context.Context, id uuid.UUID, approved bool) (*User, error)
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, email, password_hash, role, company_name, city, phone, is_approved, created_at, updated_at`

// Create inserts a new profile row.
func (r *PGRepository) Create(ctx context.Context, user *User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO profiles (id, email, password_hash, role, company_name, city, phone, is_approved, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
	`, user.ID, user.Email, user.PasswordHash, user.Role, user.CompanyName, user.City, user.Phone, user.IsApproved, user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrEmailTaken
		}
		return fmt.Errorf("auth: create user: %w", err)
	}
	return nil
}

// FindByEmail fetches a user by email, case insensitively.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM profiles WHERE LOWER(email) = LOWER($1)`, email)
	return scanUser(row)
}

// FindByID fetches a user by primary key.
func (r *PGRepository) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM profiles WHERE id = $1`, id)
	return scanUser(row)
}

// List returns users matching the filter plus the total match count.
func (r *PGRepository) List(ctx context.Context, filter ListFilter, limit, offset int) ([]User, int, error) {
	where := []string{"1=1"}
	args := []any{}
	if filter.Role != "" {
		args = append(args, filter.Role)
		where = append(where, fmt.Sprintf("role = $%d", len(args)))
	}
	if filter.Approved != nil {
		args = append(args, *filter.Approved)
		where = append(where, fmt.Sprintf("is_approved = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM profiles WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("auth: count users: %w", err)
	}

	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM profiles WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		userColumns, cond, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("auth: list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *user)
	}
	return users, total, rows.Err()
}

// SetApproval flips the approval flag and returns the updated row.
func (r *PGRepository) SetApproval(ctx context.Context, id uuid.UUID, approved bool) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE profiles SET is_approved = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		id, approved)
	return scanUser(row)
}

func scanUser(row pgx.Row) (*User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Role, &user.CompanyName,
		&user.City, &user.Phone, &user.IsApproved, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("auth: scan user: %w", err)
	}
	return &user, nil
}

var _ Repository = (*PGRepository)(nil)
