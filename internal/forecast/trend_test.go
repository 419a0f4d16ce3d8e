// backend-go/internal/forecast/trend_test.go
package forecast

import (
	"testing"
	"time"

	"github.com/stockpilot/backend-go/internal/domain"
	"github.com/stretchr/testify/require"
)

func seriesOf(quantities ...int) []domain.DemandPoint {
	start := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	points := make([]domain.DemandPoint, 0, len(quantities))
	for i, q := range quantities {
		points = append(points, domain.DemandPoint{
			Date:     start.AddDate(0, 0, i),
			Quantity: q,
		})
	}
	return points
}

func TestAnalyzeTrend_ShortSeriesIsNeutral(t *testing.T) {
	result := AnalyzeTrend(seriesOf(1, 2, 3, 4, 5))

	require.Equal(t, domain.TrendStable, result.Direction)
	require.Zero(t, result.Strength)
	require.Equal(t, 50.0, result.Confidence)
}

func TestAnalyzeTrend_Increasing(t *testing.T) {
	// Strictly rising 30-day series
	quantities := make([]int, 30)
	for i := range quantities {
		quantities[i] = 10 + i
	}

	result := AnalyzeTrend(seriesOf(quantities...))

	require.Equal(t, domain.TrendIncreasing, result.Direction)
	require.Greater(t, result.Strength, 0.0)
	require.LessOrEqual(t, result.Strength, 1.0)
	// A perfect linear fit has R^2 of 1
	require.InDelta(t, 100.0, result.Confidence, 0.01)
}

func TestAnalyzeTrend_Decreasing(t *testing.T) {
	quantities := make([]int, 30)
	for i := range quantities {
		quantities[i] = 100 - 2*i
	}

	result := AnalyzeTrend(seriesOf(quantities...))

	require.Equal(t, domain.TrendDecreasing, result.Direction)
	require.Greater(t, result.Strength, 0.0)
}

func TestAnalyzeTrend_FlatIsStable(t *testing.T) {
	quantities := make([]int, 30)
	for i := range quantities {
		quantities[i] = 7
	}

	result := AnalyzeTrend(seriesOf(quantities...))

	require.Equal(t, domain.TrendStable, result.Direction)
	require.Zero(t, result.Strength)
}

func TestAnalyzeTrend_AllZeroIsStable(t *testing.T) {
	result := AnalyzeTrend(seriesOf(make([]int, 20)...))

	require.Equal(t, domain.TrendStable, result.Direction)
	require.Equal(t, 50.0, result.Confidence)
}

func TestAnalyzeTrend_ConfidenceBounds(t *testing.T) {
	// Noisy series: fit quality is poor but confidence stays floored at 50
	result := AnalyzeTrend(seriesOf(5, 50, 3, 47, 8, 44, 2, 51, 6, 45, 4, 49, 7, 46, 3, 50))

	require.GreaterOrEqual(t, result.Confidence, 50.0)
	require.LessOrEqual(t, result.Confidence, 100.0)
}
