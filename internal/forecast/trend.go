// backend-go/internal/forecast/trend.go
package forecast

import (
	"math"

	"github.com/stockpilot/backend-go/internal/domain"
)

// minTrendPoints is the minimum series length for a meaningful fit.
const minTrendPoints = 14

// AnalyzeTrend fits an ordinary least squares line to demand over day index
// and classifies its direction and strength. Short series yield a neutral
// result rather than an error.
func AnalyzeTrend(points []domain.DemandPoint) domain.TrendResult {
	n := len(points)
	if n < minTrendPoints {
		return domain.TrendResult{
			Direction:  domain.TrendStable,
			Strength:   0,
			Confidence: 50,
		}
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, p := range points {
		x := float64(i)
		y := float64(p.Quantity)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	fn := float64(n)
	mean := sumY / fn

	denom := fn*sumXX - sumX*sumX
	if denom == 0 || mean == 0 {
		return domain.TrendResult{
			Direction:  domain.TrendStable,
			Strength:   0,
			Confidence: 50,
		}
	}

	slope := (fn*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / fn

	relSlope := slope / mean

	direction := domain.TrendStable
	switch {
	case math.Abs(relSlope) < 0.01:
		direction = domain.TrendStable
	case relSlope > 0:
		direction = domain.TrendIncreasing
	default:
		direction = domain.TrendDecreasing
	}

	strength := math.Min(1, math.Abs(relSlope)*10)

	// R² against the fitted line
	var ssRes, ssTot float64
	for i, p := range points {
		y := float64(p.Quantity)
		fitted := intercept + slope*float64(i)
		ssRes += (y - fitted) * (y - fitted)
		ssTot += (y - mean) * (y - mean)
	}

	r2 := 0.0
	if ssTot > 0 {
		r2 = 1 - ssRes/ssTot
	}

	return domain.TrendResult{
		Direction:  direction,
		Strength:   strength,
		Confidence: domain.Clamp(r2*100, 50, 100),
	}
}
