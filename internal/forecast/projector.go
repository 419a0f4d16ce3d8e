// backend-go/internal/forecast/projector.go
package forecast

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/stockpilot/backend-go/internal/domain"
)

// ProjectionInput bundles everything the projector needs for one product.
type ProjectionInput struct {
	Product     *domain.Product
	Supplier    *domain.Supplier
	Series      *domain.DemandSeries
	HorizonDays int
	Trend       domain.TrendResult
	Seasonality []domain.SeasonalPattern

	IncludeConfidenceIntervals bool
	IncludeExternalFactors     bool

	// RecentOrders covers at least the trailing 60 days and feeds the
	// market-trend ratio when external factors are requested.
	RecentOrders []domain.OrderRecord

	Now time.Time
}

// Projector composes base demand, trend, and seasonality into day-by-day
// forecasts with optional confidence bounds and external-factor adjustments.
type Projector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewProjector creates a projector with its own jitter source.
func NewProjector(seed int64) *Projector {
	return &Projector{rng: rand.New(rand.NewSource(seed))}
}

// Project produces a forecast over the horizon. It never fails: with under 7
// history points it degrades to a conservative flat forecast and logs the
// degradation.
func (p *Projector) Project(in ProjectionInput) *domain.DemandForecast {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	var points []domain.DemandPoint
	source := domain.SeriesSynthetic
	if in.Series != nil {
		points = in.Series.Points
		source = in.Series.Source
	}

	if len(points) < minObservedDays {
		log.Warn().
			Str("product_id", in.Product.ID).
			Int("history_points", len(points)).
			Msg("insufficient demand history, degrading to basic forecast")
		return p.basicForecast(in, source, now)
	}

	mean, stddev := meanStddev(points)

	demand := make([]int, 0, in.HorizonDays)
	var intervals []domain.ConfidenceInterval
	if in.IncludeConfidenceIntervals {
		intervals = make([]domain.ConfidenceInterval, 0, in.HorizonDays)
	}

	for d := 1; d <= in.HorizonDays; d++ {
		value := mean

		trendFactor := 1 + in.Trend.Strength*0.01*float64(d)
		switch in.Trend.Direction {
		case domain.TrendIncreasing:
			value *= trendFactor
		case domain.TrendDecreasing:
			value /= trendFactor
		}

		targetDate := now.AddDate(0, 0, d)
		value *= SeasonalFactorFor(in.Seasonality, targetDate.Month())

		// ±10%-of-mean jitter
		value += (p.rand() - 0.5) * 0.2 * mean

		forecast := int(math.Max(0, math.Round(value)))
		demand = append(demand, forecast)

		if in.IncludeConfidenceIntervals {
			band := 1.96 * stddev
			intervals = append(intervals, domain.ConfidenceInterval{
				Lower: math.Max(0, float64(forecast)-band),
				Upper: float64(forecast) + band,
			})
		}
	}

	var external *domain.ExternalFactors
	if in.IncludeExternalFactors {
		external = p.externalFactors(in, now)
	}

	return &domain.DemandForecast{
		ProductID:           in.Product.ID,
		GeneratedAt:         now,
		HorizonDays:         in.HorizonDays,
		Source:              source,
		AvgDailyDemand:      mean,
		ForecastedDemand:    demand,
		ConfidenceIntervals: intervals,
		Trend:               in.Trend,
		Seasonality:         in.Seasonality,
		ExternalFactors:     external,
		Confidence:          blendConfidence(len(points), mean, stddev, in.Trend, in.Seasonality),
		DaysUntilStockout:   daysUntilStockout(in.Product.CurrentStock, mean),
	}
}

// ProjectFromPattern forecasts from a persisted demand aggregate without
// rebuilding the daily series. Trend and seasonality enter as the flat factors
// the pattern stored, so the day shape is coarser than a full projection.
// Series, Trend, and Seasonality on the input are ignored.
func (p *Projector) ProjectFromPattern(in ProjectionInput, pattern *domain.DemandPattern) *domain.DemandForecast {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	mean := pattern.AvgDailyDemand
	stddev := math.Sqrt(pattern.Variance)
	trend := trendFromFactor(pattern.TrendFactor)

	demand := make([]int, 0, in.HorizonDays)
	var intervals []domain.ConfidenceInterval
	if in.IncludeConfidenceIntervals {
		intervals = make([]domain.ConfidenceInterval, 0, in.HorizonDays)
	}

	for d := 1; d <= in.HorizonDays; d++ {
		value := mean

		trendFactor := 1 + trend.Strength*0.01*float64(d)
		switch trend.Direction {
		case domain.TrendIncreasing:
			value *= trendFactor
		case domain.TrendDecreasing:
			value /= trendFactor
		}

		value *= pattern.SeasonalityFactor

		// ±10%-of-mean jitter
		value += (p.rand() - 0.5) * 0.2 * mean

		forecast := int(math.Max(0, math.Round(value)))
		demand = append(demand, forecast)

		if in.IncludeConfidenceIntervals {
			band := 1.96 * stddev
			intervals = append(intervals, domain.ConfidenceInterval{
				Lower: math.Max(0, float64(forecast)-band),
				Upper: float64(forecast) + band,
			})
		}
	}

	var external *domain.ExternalFactors
	if in.IncludeExternalFactors {
		external = p.externalFactors(in, now)
	}

	return &domain.DemandForecast{
		ProductID:           in.Product.ID,
		GeneratedAt:         now,
		HorizonDays:         in.HorizonDays,
		Source:              pattern.Source,
		AvgDailyDemand:      mean,
		ForecastedDemand:    demand,
		ConfidenceIntervals: intervals,
		Trend:               trend,
		ExternalFactors:     external,
		Confidence:          blendConfidence(pattern.PeriodDays, mean, stddev, trend, nil),
		DaysUntilStockout:   daysUntilStockout(in.Product.CurrentStock, mean),
	}
}

// trendFromFactor reconstructs a trend classification from the scalar factor a
// pattern stores.
func trendFromFactor(factor float64) domain.TrendResult {
	switch {
	case factor > 1:
		return domain.TrendResult{
			Direction:  domain.TrendIncreasing,
			Strength:   domain.Clamp(factor-1, 0, 1),
			Confidence: 70,
		}
	case factor < 1:
		return domain.TrendResult{
			Direction:  domain.TrendDecreasing,
			Strength:   domain.Clamp(1-factor, 0, 1),
			Confidence: 70,
		}
	default:
		return domain.TrendResult{Direction: domain.TrendStable, Strength: 0, Confidence: 70}
	}
}

// basicForecast is the conservative degradation path: flat demand of one unit
// per day at fixed 50 confidence.
func (p *Projector) basicForecast(in ProjectionInput, source domain.SeriesSource, now time.Time) *domain.DemandForecast {
	const avgDaily = 1.0

	demand := make([]int, in.HorizonDays)
	for i := range demand {
		demand[i] = int(avgDaily)
	}

	var intervals []domain.ConfidenceInterval
	if in.IncludeConfidenceIntervals {
		intervals = make([]domain.ConfidenceInterval, in.HorizonDays)
		for i := range intervals {
			intervals[i] = domain.ConfidenceInterval{Lower: avgDaily, Upper: avgDaily}
		}
	}

	var external *domain.ExternalFactors
	if in.IncludeExternalFactors {
		external = p.externalFactors(in, now)
	}

	return &domain.DemandForecast{
		ProductID:           in.Product.ID,
		GeneratedAt:         now,
		HorizonDays:         in.HorizonDays,
		Source:              source,
		AvgDailyDemand:      avgDaily,
		ForecastedDemand:    demand,
		ConfidenceIntervals: intervals,
		Trend:               domain.TrendResult{Direction: domain.TrendStable, Strength: 0, Confidence: 50},
		ExternalFactors:     external,
		Confidence:          50,
		DaysUntilStockout:   daysUntilStockout(in.Product.CurrentStock, avgDaily),
	}
}

func (p *Projector) externalFactors(in ProjectionInput, now time.Time) *domain.ExternalFactors {
	factors := &domain.ExternalFactors{
		UpcomingHoliday:  holidayWithin(now, in.HorizonDays),
		MarketTrendRatio: MarketTrendRatio(in.RecentOrders, now),
	}
	if in.Supplier != nil {
		factors.ActivePromotion = in.Supplier.ActivePromotion
	}
	return factors
}

func (p *Projector) rand() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Float64()
}

// holidayWithin checks the fixed holiday calendar (year-end run-up, Halloween,
// July 4, New Year) over the horizon.
func holidayWithin(now time.Time, horizonDays int) bool {
	for d := 1; d <= horizonDays; d++ {
		date := now.AddDate(0, 0, d)
		month, day := date.Month(), date.Day()
		switch {
		case month == time.December && day >= 20:
			return true
		case month == time.October && day == 31:
			return true
		case month == time.July && day == 4:
			return true
		case month == time.January && day == 1:
			return true
		}
	}
	return false
}

// MarketTrendRatio compares the trailing 30-day average order quantity with
// the 30 days before that. Either window being empty yields a neutral 1.0.
func MarketTrendRatio(orders []domain.OrderRecord, now time.Time) float64 {
	recentCutoff := now.AddDate(0, 0, -30)
	priorCutoff := now.AddDate(0, 0, -60)

	var recentSum, priorSum float64
	var recentN, priorN int
	for _, o := range orders {
		switch {
		case o.OrderedAt.After(recentCutoff):
			recentSum += float64(o.Quantity)
			recentN++
		case o.OrderedAt.After(priorCutoff):
			priorSum += float64(o.Quantity)
			priorN++
		}
	}

	if recentN == 0 || priorN == 0 {
		return 1.0
	}

	priorAvg := priorSum / float64(priorN)
	if priorAvg == 0 {
		return 1.0
	}

	return (recentSum / float64(recentN)) / priorAvg
}

// blendConfidence combines data volume, trend fit, and seasonal fit into the
// overall forecast confidence. Not a statistical bound, a heuristic score.
func blendConfidence(historyDays int, mean, stddev float64, trend domain.TrendResult, seasonality []domain.SeasonalPattern) float64 {
	confidence := 70.0

	switch {
	case historyDays >= 90:
		confidence += 15
	case historyDays >= 30:
		confidence += 10
	case historyDays >= 14:
		confidence += 5
	}

	confidence += 0.2 * trend.Confidence

	if len(seasonality) > 0 {
		var sum float64
		for _, s := range seasonality {
			sum += s.Confidence
		}
		confidence += 0.1 * (sum / float64(len(seasonality)))
	}

	if mean > 0 {
		cv := stddev / mean
		switch {
		case cv > 1.0:
			confidence -= 10
		case cv < 0.3:
			confidence += 10
		}
	}

	return domain.Clamp(confidence, 50, 100)
}

func daysUntilStockout(currentStock int, avgDaily float64) int {
	if avgDaily <= 0 {
		return domain.StockoutUnknown
	}
	return int(math.Floor(float64(currentStock) / avgDaily))
}

func meanStddev(points []domain.DemandPoint) (float64, float64) {
	if len(points) == 0 {
		return 0, 0
	}

	var sum float64
	for _, p := range points {
		sum += float64(p.Quantity)
	}
	mean := sum / float64(len(points))

	var variance float64
	for _, p := range points {
		d := float64(p.Quantity) - mean
		variance += d * d
	}
	variance /= float64(len(points))

	return mean, math.Sqrt(variance)
}

// BuildPattern aggregates a series into the persisted DemandPattern row.
func BuildPattern(series *domain.DemandSeries, trend domain.TrendResult, seasonality []domain.SeasonalPattern, computedAt time.Time) *domain.DemandPattern {
	mean, stddev := meanStddev(series.Points)

	peak := 0
	for _, p := range series.Points {
		if p.Quantity > peak {
			peak = p.Quantity
		}
	}

	seasonalityFactor := 1.0
	if len(seasonality) > 0 {
		var sum float64
		for _, s := range seasonality {
			sum += s.Factor
		}
		seasonalityFactor = sum / float64(len(seasonality))
	}

	trendFactor := 1.0
	switch trend.Direction {
	case domain.TrendIncreasing:
		trendFactor = 1 + trend.Strength
	case domain.TrendDecreasing:
		trendFactor = 1 - trend.Strength
	}

	return &domain.DemandPattern{
		ProductID:         series.ProductID,
		PeriodDays:        len(series.Points),
		Source:            series.Source,
		AvgDailyDemand:    mean,
		PeakDemand:        peak,
		Variance:          stddev * stddev,
		SeasonalityFactor: seasonalityFactor,
		TrendFactor:       trendFactor,
		ComputedAt:        computedAt,
	}
}
