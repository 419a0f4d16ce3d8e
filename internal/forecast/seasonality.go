// backend-go/internal/forecast/seasonality.go
package forecast

import (
	"sort"
	"time"

	"github.com/stockpilot/backend-go/internal/domain"
)

const (
	// minSeasonalityPoints is the minimum history for seasonal detection.
	minSeasonalityPoints = 90
	// minMonthObservations is the minimum samples per calendar month before
	// that month emits a pattern.
	minMonthObservations = 3
)

// DetectSeasonality computes per-calendar-month demand multipliers. The
// returned set is sparse: a month without enough data is simply absent, and
// consumers must treat missing months as factor 1.0.
func DetectSeasonality(points []domain.DemandPoint) []domain.SeasonalPattern {
	if len(points) < minSeasonalityPoints {
		return nil
	}

	byMonth := make(map[time.Month][]float64)
	var total float64
	for _, p := range points {
		q := float64(p.Quantity)
		byMonth[p.Date.Month()] = append(byMonth[p.Date.Month()], q)
		total += q
	}

	overallMean := total / float64(len(points))
	if overallMean <= 0 {
		return nil
	}

	patterns := make([]domain.SeasonalPattern, 0, len(byMonth))
	for month, values := range byMonth {
		if len(values) < minMonthObservations {
			continue
		}

		var sum float64
		for _, v := range values {
			sum += v
		}
		monthMean := sum / float64(len(values))
		if monthMean <= 0 {
			continue
		}

		var variance float64
		for _, v := range values {
			variance += (v - monthMean) * (v - monthMean)
		}
		variance /= float64(len(values))

		patterns = append(patterns, domain.SeasonalPattern{
			Month:      month,
			Factor:     monthMean / overallMean,
			Confidence: domain.Clamp(100-(variance/monthMean)*10, 50, 100),
		})
	}

	sort.Slice(patterns, func(i, j int) bool { return patterns[i].Month < patterns[j].Month })

	return patterns
}

// SeasonalFactorFor returns the multiplier for a month, defaulting to 1.0
// when the detector emitted no pattern for it.
func SeasonalFactorFor(patterns []domain.SeasonalPattern, month time.Month) float64 {
	for _, p := range patterns {
		if p.Month == month {
			return p.Factor
		}
	}
	return 1.0
}
