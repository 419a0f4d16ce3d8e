// backend-go/internal/repository/postgres/pattern_repository.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/stockpilot/backend-go/internal/domain"
	"github.com/stockpilot/backend-go/internal/repository"
)

type patternRepository struct {
	db *DB
}

// NewPatternRepository persists aggregated demand patterns.
func NewPatternRepository(db *DB) *patternRepository {
	return &patternRepository{db: db}
}

var _ repository.PatternStore = (*patternRepository)(nil)

func (r *patternRepository) UpsertPattern(ctx context.Context, p *domain.DemandPattern) error {
	query := `
		INSERT INTO demand_patterns (
			product_id, period_days, source, avg_daily_demand, peak_demand,
			variance, seasonality_factor, trend_factor, computed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (product_id, period_days)
		DO UPDATE SET
			source = EXCLUDED.source,
			avg_daily_demand = EXCLUDED.avg_daily_demand,
			peak_demand = EXCLUDED.peak_demand,
			variance = EXCLUDED.variance,
			seasonality_factor = EXCLUDED.seasonality_factor,
			trend_factor = EXCLUDED.trend_factor,
			computed_at = EXCLUDED.computed_at
	`

	_, err := r.db.ExecContext(ctx, query,
		p.ProductID, p.PeriodDays, p.Source, p.AvgDailyDemand, p.PeakDemand,
		p.Variance, p.SeasonalityFactor, p.TrendFactor, p.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert demand pattern for %s: %w", p.ProductID, err)
	}
	return nil
}

func (r *patternRepository) GetPattern(ctx context.Context, productID string, periodDays int) (*domain.DemandPattern, error) {
	query := `
		SELECT product_id, period_days, source, avg_daily_demand, peak_demand,
		       variance, seasonality_factor, trend_factor, computed_at
		FROM demand_patterns
		WHERE product_id = $1 AND period_days = $2
	`

	var pattern domain.DemandPattern
	if err := r.db.GetContext(ctx, &pattern, query, productID, periodDays); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundErrorf("no demand pattern for product %s over %d days", productID, periodDays)
		}
		return nil, fmt.Errorf("failed to load demand pattern for %s: %w", productID, err)
	}
	return &pattern, nil
}
