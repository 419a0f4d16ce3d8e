// backend-go/internal/service/forecast_service_test.go
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stockpilot/backend-go/internal/cache"
	"github.com/stockpilot/backend-go/internal/domain"
	"github.com/stockpilot/backend-go/internal/repository"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	products   map[string]*domain.Product
	orders     []domain.OrderRecord
	orderCalls int
}

func (f *fakeCatalog) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, domain.NotFoundErrorf("product %s not found", id)
	}
	return p, nil
}

func (f *fakeCatalog) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, error) {
	out := make([]*domain.Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeCatalog) GetSupplier(ctx context.Context, id string) (*domain.Supplier, error) {
	return &domain.Supplier{ID: id, LeadTimeDays: 10}, nil
}

func (f *fakeCatalog) CountProducts(ctx context.Context, filter repository.ProductFilter) (int, error) {
	return len(f.products), nil
}

func (f *fakeCatalog) GetCompletedOrders(ctx context.Context, productID string, since time.Time) ([]domain.OrderRecord, error) {
	f.orderCalls++
	return f.orders, nil
}

// recordingCache counts real cache traffic around a map-backed store.
type recordingCache struct {
	mu            sync.Mutex
	entries       map[string]*domain.DemandForecast
	hits          int
	misses        int
	sets          int
	invalidations int
}

func newRecordingCache() *recordingCache {
	return &recordingCache{entries: make(map[string]*domain.DemandForecast)}
}

func (c *recordingCache) key(productID string, opts cache.ForecastOptions) string {
	return fmt.Sprintf("%s|%d|%t|%t|%t", productID, opts.HorizonDays,
		opts.IncludeConfidenceIntervals, opts.IncludeSeasonality, opts.IncludeExternalFactors)
}

func (c *recordingCache) Get(ctx context.Context, productID string, opts cache.ForecastOptions) (*domain.DemandForecast, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if forecast, ok := c.entries[c.key(productID, opts)]; ok {
		c.hits++
		return forecast, true, nil
	}
	c.misses++
	return nil, false, nil
}

func (c *recordingCache) Set(ctx context.Context, productID string, opts cache.ForecastOptions, forecast *domain.DemandForecast) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.entries[c.key(productID, opts)] = forecast
	return nil
}

func (c *recordingCache) Invalidate(ctx context.Context, productID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidations++
	prefix := productID + "|"
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}

type fakePatterns struct {
	mu       sync.Mutex
	stored   *domain.DemandPattern
	upserted []*domain.DemandPattern
}

func (f *fakePatterns) UpsertPattern(ctx context.Context, p *domain.DemandPattern) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserted = append(f.upserted, p)
	return nil
}

func (f *fakePatterns) GetPattern(ctx context.Context, productID string, periodDays int) (*domain.DemandPattern, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stored != nil && f.stored.ProductID == productID && f.stored.PeriodDays == periodDays {
		cp := *f.stored
		return &cp, nil
	}
	return nil, domain.NotFoundErrorf("no pattern")
}

func fixtureClock() time.Time {
	return time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)
}

func forecastFixture(c cache.ForecastCache) (*ForecastService, *fakeCatalog, *fakePatterns) {
	catalog := &fakeCatalog{products: map[string]*domain.Product{
		"prod-1": {
			ID: "prod-1", SKU: "SKU-1", SupplierID: "sup-1",
			CurrentStock: 40, LowStockThreshold: 20, UnitPrice: 10,
		},
	}}
	patterns := &fakePatterns{}
	svc := NewForecastService(catalog, catalog, patterns, c, 90).
		WithClock(fixtureClock)
	return svc, catalog, patterns
}

func TestForecastService_Generate(t *testing.T) {
	svc, _, _ := forecastFixture(cache.NewNoopForecastCache())

	forecast, err := svc.Generate(context.Background(), "prod-1", cache.ForecastOptions{
		HorizonDays:                30,
		IncludeConfidenceIntervals: true,
		IncludeSeasonality:         true,
	})
	require.NoError(t, err)

	require.Equal(t, "prod-1", forecast.ProductID)
	require.Len(t, forecast.ForecastedDemand, 30)
	require.Len(t, forecast.ConfidenceIntervals, 30)
	// No order history: series is synthetic
	require.Equal(t, domain.SeriesSynthetic, forecast.Source)
	require.GreaterOrEqual(t, forecast.Confidence, 50.0)
}

func TestForecastService_Memoizes(t *testing.T) {
	recorder := newRecordingCache()
	svc, _, _ := forecastFixture(recorder)
	opts := cache.ForecastOptions{HorizonDays: 30}

	first, err := svc.Generate(context.Background(), "prod-1", opts)
	require.NoError(t, err)
	second, err := svc.Generate(context.Background(), "prod-1", opts)
	require.NoError(t, err)

	require.Equal(t, 1, recorder.misses)
	require.Equal(t, 1, recorder.sets)
	require.Equal(t, 1, recorder.hits)
	require.Equal(t, first.ForecastedDemand, second.ForecastedDemand)
}

func TestForecastService_DistinctOptionsNotShared(t *testing.T) {
	recorder := newRecordingCache()
	svc, _, _ := forecastFixture(recorder)

	_, err := svc.Generate(context.Background(), "prod-1", cache.ForecastOptions{HorizonDays: 30})
	require.NoError(t, err)
	_, err = svc.Generate(context.Background(), "prod-1", cache.ForecastOptions{HorizonDays: 60})
	require.NoError(t, err)

	require.Equal(t, 2, recorder.misses)
	require.Equal(t, 2, recorder.sets)
	require.Zero(t, recorder.hits)
}

func TestForecastService_Validation(t *testing.T) {
	svc, _, _ := forecastFixture(cache.NewNoopForecastCache())
	ctx := context.Background()

	_, err := svc.Generate(ctx, "", cache.ForecastOptions{HorizonDays: 30})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Generate(ctx, "prod-1", cache.ForecastOptions{HorizonDays: 0})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Generate(ctx, "prod-1", cache.ForecastOptions{HorizonDays: 366})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Generate(ctx, "missing", cache.ForecastOptions{HorizonDays: 30})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestForecastService_RecomputePattern(t *testing.T) {
	svc, _, patterns := forecastFixture(cache.NewNoopForecastCache())

	pattern, err := svc.RecomputePattern(context.Background(), "prod-1")
	require.NoError(t, err)

	require.Equal(t, "prod-1", pattern.ProductID)
	require.Equal(t, 90, pattern.PeriodDays)
	require.Len(t, patterns.upserted, 1)
}

func TestForecastService_RecomputePatterns(t *testing.T) {
	svc, _, patterns := forecastFixture(cache.NewNoopForecastCache())

	updated, err := svc.RecomputePatterns(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, updated)
	require.Len(t, patterns.upserted, 1)
}

func TestForecastService_GenerateUsesFreshPattern(t *testing.T) {
	svc, catalog, patterns := forecastFixture(cache.NewNoopForecastCache())
	patterns.stored = &domain.DemandPattern{
		ProductID:         "prod-1",
		PeriodDays:        90,
		Source:            domain.SeriesObserved,
		AvgDailyDemand:    6,
		PeakDemand:        10,
		Variance:          0,
		SeasonalityFactor: 1,
		TrendFactor:       1,
		ComputedAt:        fixtureClock().Add(-time.Hour),
	}

	forecast, err := svc.Generate(context.Background(), "prod-1", cache.ForecastOptions{HorizonDays: 30})
	require.NoError(t, err)

	// Served from the persisted aggregate: no order history was read.
	require.Zero(t, catalog.orderCalls)
	require.Equal(t, domain.SeriesObserved, forecast.Source)
	require.Equal(t, 6.0, forecast.AvgDailyDemand)
	require.Len(t, forecast.ForecastedDemand, 30)
	for _, d := range forecast.ForecastedDemand {
		// Flat 6/day pattern plus bounded jitter.
		require.GreaterOrEqual(t, d, 5)
		require.LessOrEqual(t, d, 7)
	}
	require.Equal(t, 40/6, forecast.DaysUntilStockout)
}

func TestForecastService_GenerateIgnoresStalePattern(t *testing.T) {
	svc, catalog, patterns := forecastFixture(cache.NewNoopForecastCache())
	patterns.stored = &domain.DemandPattern{
		ProductID:      "prod-1",
		PeriodDays:     90,
		Source:         domain.SeriesObserved,
		AvgDailyDemand: 6,
		ComputedAt:     fixtureClock().Add(-48 * time.Hour),
	}

	forecast, err := svc.Generate(context.Background(), "prod-1", cache.ForecastOptions{HorizonDays: 30})
	require.NoError(t, err)

	// Stale aggregate: the series is rebuilt from raw orders.
	require.Positive(t, catalog.orderCalls)
	require.Equal(t, domain.SeriesSynthetic, forecast.Source)
}

func TestForecastService_RecomputePatternInvalidatesForecasts(t *testing.T) {
	recorder := newRecordingCache()
	svc, _, _ := forecastFixture(recorder)
	opts := cache.ForecastOptions{HorizonDays: 30}

	_, err := svc.Generate(context.Background(), "prod-1", opts)
	require.NoError(t, err)
	require.Equal(t, 1, recorder.sets)

	_, err = svc.RecomputePattern(context.Background(), "prod-1")
	require.NoError(t, err)
	require.Equal(t, 1, recorder.invalidations)
	require.Empty(t, recorder.entries)

	// The next read misses instead of serving the pre-recompute forecast.
	_, err = svc.Generate(context.Background(), "prod-1", opts)
	require.NoError(t, err)
	require.Equal(t, 2, recorder.misses)
	require.Zero(t, recorder.hits)
}
