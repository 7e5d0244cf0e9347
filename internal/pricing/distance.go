package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/veldlink/veldlink/internal/platform/httpx"
)

// ErrMissingDistance indicates no stored route and no manual override.
var ErrMissingDistance = fmt.Errorf("pricing: no route distance available: %w", httpx.ErrValidation)

// DistanceSource looks up the road distance between two cities.
type DistanceSource interface {
	Lookup(ctx context.Context, cityA, cityB string) (float64, bool, error)
}

// DistanceResolver resolves the distance for a pickup/delivery city pair,
// preferring an explicit admin override over the stored route table.
type DistanceResolver struct {
	source DistanceSource
}

// NewDistanceResolver constructs a resolver over the given source.
func NewDistanceResolver(source DistanceSource) *DistanceResolver {
	return &DistanceResolver{source: source}
}

// Resolve returns the distance in kilometres. A non-nil override always wins,
// same-city routes are zero, otherwise the route table answers (direction
// agnostic). Without any of these the calculation must not proceed.
func (r *DistanceResolver) Resolve(ctx context.Context, pickupCity, deliveryCity string, override *float64) (float64, error) {
	if override != nil {
		if *override < 0 {
			return 0, fmt.Errorf("%w: distance override cannot be negative", ErrInvalidInput)
		}
		return *override, nil
	}
	if pickupCity == "" || deliveryCity == "" {
		return 0, ErrMissingDistance
	}
	if strings.EqualFold(pickupCity, deliveryCity) {
		return 0, nil
	}
	km, ok, err := r.source.Lookup(ctx, pickupCity, deliveryCity)
	if err != nil {
		return 0, fmt.Errorf("pricing: lookup distance: %w", err)
	}
	if !ok {
		return 0, ErrMissingDistance
	}
	return km, nil
}

// CityDistanceRepo reads the city_distances table, with a small Redis cache
// in front since the route table changes rarely.
type CityDistanceRepo struct {
	pool     *pgxpool.Pool
	cache    *redis.Client
	cacheTTL time.Duration
}

// NewCityDistanceRepo constructs the repo. The cache client may be nil.
func NewCityDistanceRepo(pool *pgxpool.Pool, cache *redis.Client, ttl time.Duration) *CityDistanceRepo {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CityDistanceRepo{pool: pool, cache: cache, cacheTTL: ttl}
}

// Lookup finds the stored distance for a city pair in either direction.
func (r *CityDistanceRepo) Lookup(ctx context.Context, cityA, cityB string) (float64, bool, error) {
	key := cacheKey(cityA, cityB)
	if r.cache != nil {
		if cached, err := r.cache.Get(ctx, key).Float64(); err == nil {
			return cached, true, nil
		}
	}

	var km float64
	err := r.pool.QueryRow(ctx, `
		SELECT distance_km FROM city_distances
		WHERE (LOWER(city_from) = LOWER($1) AND LOWER(city_to) = LOWER($2))
		   OR (LOWER(city_from) = LOWER($2) AND LOWER(city_to) = LOWER($1))
		LIMIT 1
	`, cityA, cityB).Scan(&km)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}

	if r.cache != nil {
		_ = r.cache.Set(ctx, key, km, r.cacheTTL).Err()
	}
	return km, true, nil
}

// cacheKey is order independent so both directions hit the same entry.
func cacheKey(cityA, cityB string) string {
	a := strings.ToLower(strings.TrimSpace(cityA))
	b := strings.ToLower(strings.TrimSpace(cityB))
	if b < a {
		a, b = b, a
	}
	return "distance:" + a + ":" + b
}
