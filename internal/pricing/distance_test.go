package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type mapDistanceSource struct {
	routes map[string]float64
}

func (s *mapDistanceSource) Lookup(ctx context.Context, cityA, cityB string) (float64, bool, error) {
	km, ok := s.routes[cacheKey(cityA, cityB)]
	return km, ok, nil
}

func newMapSource(pairs map[[2]string]float64) *mapDistanceSource {
	src := &mapDistanceSource{routes: make(map[string]float64)}
	for pair, km := range pairs {
		src.routes[cacheKey(pair[0], pair[1])] = km
	}
	return src
}

func TestResolveKnownRouteEitherDirection(t *testing.T) {
	resolver := NewDistanceResolver(newMapSource(map[[2]string]float64{
		{"Johannesburg", "Durban"}: 568,
	}))
	ctx := context.Background()

	km, err := resolver.Resolve(ctx, "Johannesburg", "Durban", nil)
	require.NoError(t, err)
	require.Equal(t, 568.0, km)

	km, err = resolver.Resolve(ctx, "Durban", "Johannesburg", nil)
	require.NoError(t, err)
	require.Equal(t, 568.0, km)
}

func TestResolveSameCityIsZero(t *testing.T) {
	resolver := NewDistanceResolver(newMapSource(nil))
	km, err := resolver.Resolve(context.Background(), "Pretoria", "pretoria", nil)
	require.NoError(t, err)
	require.Equal(t, 0.0, km)
}

func TestResolveOverrideWins(t *testing.T) {
	resolver := NewDistanceResolver(newMapSource(map[[2]string]float64{
		{"Cape Town", "George"}: 430,
	}))
	override := 455.0
	km, err := resolver.Resolve(context.Background(), "Cape Town", "George", &override)
	require.NoError(t, err)
	require.Equal(t, 455.0, km)

	negative := -1.0
	_, err = resolver.Resolve(context.Background(), "Cape Town", "George", &negative)
	require.True(t, errors.Is(err, ErrInvalidInput))
}

func TestResolveUnknownRouteBlocks(t *testing.T) {
	resolver := NewDistanceResolver(newMapSource(nil))
	_, err := resolver.Resolve(context.Background(), "Upington", "Musina", nil)
	require.True(t, errors.Is(err, ErrMissingDistance))

	_, err = resolver.Resolve(context.Background(), "", "Musina", nil)
	require.True(t, errors.Is(err, ErrMissingDistance))
}
