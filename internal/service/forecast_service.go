// backend-go/internal/service/forecast_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/stockpilot/backend-go/internal/cache"
	"github.com/stockpilot/backend-go/internal/domain"
	"github.com/stockpilot/backend-go/internal/forecast"
	"github.com/stockpilot/backend-go/internal/repository"
)

// maxHorizonDays caps forecast requests.
const maxHorizonDays = 365

// patternMaxAge bounds how old a persisted demand pattern may be before the
// forecast path falls back to rebuilding the series from raw orders.
const patternMaxAge = 24 * time.Hour

// ForecastService generates demand forecasts, memoizing results per
// (product, option set) so repeated dashboard calls stay cheap.
type ForecastService struct {
	products repository.ProductStore
	orders   repository.OrderHistoryStore
	patterns repository.PatternStore

	builder   *forecast.SeriesBuilder
	projector *forecast.Projector
	cache     cache.ForecastCache

	lookbackDays int
	now          func() time.Time
}

// NewForecastService wires the forecast pipeline over its stores.
func NewForecastService(
	products repository.ProductStore,
	orders repository.OrderHistoryStore,
	patterns repository.PatternStore,
	forecastCache cache.ForecastCache,
	lookbackDays int,
) *ForecastService {
	if forecastCache == nil {
		forecastCache = cache.NewNoopForecastCache()
	}
	if lookbackDays <= 0 {
		lookbackDays = 90
	}
	return &ForecastService{
		products:     products,
		orders:       orders,
		patterns:     patterns,
		builder:      forecast.NewSeriesBuilder(orders),
		projector:    forecast.NewProjector(time.Now().UnixNano()),
		cache:        forecastCache,
		lookbackDays: lookbackDays,
		now:          time.Now,
	}
}

// WithClock overrides the service clock (series builder included).
func (s *ForecastService) WithClock(now func() time.Time) *ForecastService {
	s.now = now
	s.builder.WithClock(now)
	return s
}

// Generate builds (or returns the memoized) forecast for a product.
func (s *ForecastService) Generate(ctx context.Context, productID string, opts cache.ForecastOptions) (*domain.DemandForecast, error) {
	if productID == "" {
		return nil, domain.ValidationErrorf("product id is required")
	}
	if opts.HorizonDays <= 0 || opts.HorizonDays > maxHorizonDays {
		return nil, domain.ValidationErrorf("horizon must be within [1,%d] days, got %d", maxHorizonDays, opts.HorizonDays)
	}

	if cached, ok, err := s.cache.Get(ctx, productID, opts); err == nil && ok {
		return cached, nil
	} else if err != nil {
		log.Warn().Err(err).Str("product_id", productID).Msg("forecast cache get failed")
	}

	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	input := forecast.ProjectionInput{
		Product:                    product,
		HorizonDays:                opts.HorizonDays,
		IncludeConfidenceIntervals: opts.IncludeConfidenceIntervals,
		IncludeExternalFactors:     opts.IncludeExternalFactors,
		Now:                        s.now(),
	}

	if opts.IncludeExternalFactors {
		if supplier, err := s.products.GetSupplier(ctx, product.SupplierID); err == nil {
			input.Supplier = supplier
		} else {
			log.Warn().Err(err).Str("supplier_id", product.SupplierID).Msg("supplier lookup failed, skipping promotion factor")
		}

		since := s.now().AddDate(0, 0, -60)
		orders, err := s.orders.GetCompletedOrders(ctx, productID, since)
		if err != nil {
			return nil, fmt.Errorf("failed to load recent orders for %s: %w", productID, err)
		}
		input.RecentOrders = orders
	}

	var result *domain.DemandForecast
	if pattern := s.freshPattern(ctx, productID); pattern != nil {
		result = s.projector.ProjectFromPattern(input, pattern)
	} else {
		series, err := s.builder.Build(ctx, product, s.lookbackDays)
		if err != nil {
			return nil, err
		}

		input.Series = series
		input.Trend = forecast.AnalyzeTrend(series.Points)
		if opts.IncludeSeasonality {
			input.Seasonality = forecast.DetectSeasonality(series.Points)
		}

		result = s.projector.Project(input)
	}

	if err := s.cache.Set(ctx, productID, opts, result); err != nil {
		log.Warn().Err(err).Str("product_id", productID).Msg("forecast cache set failed")
	}

	return result, nil
}

// freshPattern returns the persisted demand pattern for the lookback window
// when one exists and is recent enough to project from.
func (s *ForecastService) freshPattern(ctx context.Context, productID string) *domain.DemandPattern {
	pattern, err := s.patterns.GetPattern(ctx, productID, s.lookbackDays)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.Warn().Err(err).Str("product_id", productID).Msg("demand pattern lookup failed")
		}
		return nil
	}
	if s.now().Sub(pattern.ComputedAt) > patternMaxAge {
		return nil
	}
	return pattern
}

// RecomputePattern rebuilds and persists the aggregated demand pattern for
// one product.
func (s *ForecastService) RecomputePattern(ctx context.Context, productID string) (*domain.DemandPattern, error) {
	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	series, err := s.builder.Build(ctx, product, s.lookbackDays)
	if err != nil {
		return nil, err
	}

	trend := forecast.AnalyzeTrend(series.Points)
	seasonality := forecast.DetectSeasonality(series.Points)

	pattern := forecast.BuildPattern(series, trend, seasonality, s.now())
	if err := s.patterns.UpsertPattern(ctx, pattern); err != nil {
		return nil, fmt.Errorf("failed to persist demand pattern for %s: %w", productID, err)
	}

	// Memoized forecasts predate the refreshed pattern; drop them so the next
	// read reflects it.
	if err := s.cache.Invalidate(ctx, productID); err != nil {
		log.Warn().Err(err).Str("product_id", productID).Msg("forecast cache invalidation failed")
	}

	return pattern, nil
}

// RecomputePatterns refreshes demand patterns for the whole catalog. Called
// from the scheduler; individual product failures are logged, not fatal.
func (s *ForecastService) RecomputePatterns(ctx context.Context) (int, error) {
	products, err := s.products.ListProducts(ctx, repository.ProductFilter{})
	if err != nil {
		return 0, fmt.Errorf("failed to enumerate products: %w", err)
	}

	updated := 0
	for _, p := range products {
		if _, err := s.RecomputePattern(ctx, p.ID); err != nil {
			log.Warn().Err(err).Str("product_id", p.ID).Msg("demand pattern recompute failed")
			continue
		}
		updated++
	}

	return updated, nil
}
