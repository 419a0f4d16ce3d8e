// backend-go/internal/cache/cache_test.go
package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stockpilot/backend-go/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestForecastOptionsHash(t *testing.T) {
	opts := ForecastOptions{HorizonDays: 30, IncludeSeasonality: true}

	require.Equal(t, forecastOptionsHash(opts), forecastOptionsHash(opts))

	other := opts
	other.HorizonDays = 60
	require.NotEqual(t, forecastOptionsHash(opts), forecastOptionsHash(other))

	flipped := opts
	flipped.IncludeConfidenceIntervals = true
	require.NotEqual(t, forecastOptionsHash(opts), forecastOptionsHash(flipped))
}

func TestBuildForecastKey(t *testing.T) {
	key := buildForecastKey("prod-1", ForecastOptions{HorizonDays: 30})

	require.True(t, strings.HasPrefix(key, "reorder:forecast:prod-1:"))
	// Invalidation scans by product prefix, so the product id must come
	// before the options hash.
	require.Equal(t, 3, strings.Count(key, ":"))
}

func TestNoopForecastCacheNeverHits(t *testing.T) {
	cache := NewNoopForecastCache()
	ctx := context.Background()
	opts := ForecastOptions{HorizonDays: 30}

	require.NoError(t, cache.Set(ctx, "prod-1", opts, &domain.DemandForecast{ProductID: "prod-1"}))

	_, ok, err := cache.Get(ctx, "prod-1", opts)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryJobStore(t *testing.T) {
	current := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryJobStore(time.Hour).WithClock(func() time.Time { return current })
	ctx := context.Background()

	job := &domain.AnalysisJob{
		ID:     "job-1",
		Status: domain.JobRunning,
		Scope:  domain.AnalysisAll,
	}
	require.NoError(t, store.SaveJob(ctx, job))

	t.Run("returns a copy", func(t *testing.T) {
		got, err := store.GetJob(ctx, "job-1")
		require.NoError(t, err)
		require.Equal(t, domain.JobRunning, got.Status)

		got.Status = domain.JobFailed
		again, err := store.GetJob(ctx, "job-1")
		require.NoError(t, err)
		require.Equal(t, domain.JobRunning, again.Status)
	})

	t.Run("save refreshes TTL", func(t *testing.T) {
		current = current.Add(30 * time.Minute)
		job.Status = domain.JobCompleted
		require.NoError(t, store.SaveJob(ctx, job))

		current = current.Add(45 * time.Minute)
		got, err := store.GetJob(ctx, "job-1")
		require.NoError(t, err)
		require.Equal(t, domain.JobCompleted, got.Status)
	})

	t.Run("expires after TTL", func(t *testing.T) {
		current = current.Add(2 * time.Hour)
		_, err := store.GetJob(ctx, "job-1")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := store.GetJob(ctx, "missing")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
}
