// backend-go/internal/analysis/scheduler.go
package analysis

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/stockpilot/backend-go/internal/domain"
	"github.com/stockpilot/backend-go/internal/repository"
	"github.com/stockpilot/backend-go/internal/service"
)

// Scheduler periodically kicks off catalog-wide analysis runs. Settings are
// re-read every tick so toggling auto reorder or changing the cadence takes
// effect without a restart.
type Scheduler struct {
	policies  repository.PolicyStore
	orch      *Orchestrator
	forecasts *service.ForecastService

	minInterval time.Duration
	stop        chan struct{}
}

func NewScheduler(
	policies repository.PolicyStore,
	orch *Orchestrator,
	forecasts *service.ForecastService,
	minInterval time.Duration,
) *Scheduler {
	if minInterval <= 0 {
		minInterval = 15 * time.Minute
	}
	return &Scheduler{
		policies:    policies,
		orch:        orch,
		forecasts:   forecasts,
		minInterval: minInterval,
		stop:        make(chan struct{}),
	}
}

// Run blocks until the context is cancelled or Stop is called. The first run
// waits out a full interval, so a process restart does not refire the
// whole-catalog analysis ahead of the configured cadence.
func (s *Scheduler) Run(ctx context.Context) {
	log.Info().Dur("min_interval", s.minInterval).Msg("analysis scheduler started")
	interval := s.cadence(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("analysis scheduler stopped")
			return
		case <-s.stop:
			log.Info().Msg("analysis scheduler stopped")
			return
		case <-time.After(interval):
		}

		interval = s.tick(ctx)
	}
}

// cadence reads the configured run interval without triggering anything.
func (s *Scheduler) cadence(ctx context.Context) time.Duration {
	settings, err := s.policies.GetSettings(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to read reorder settings, using minimum interval")
		return s.minInterval
	}

	interval := time.Duration(settings.AnalysisFrequencyHours) * time.Hour
	if interval < s.minInterval {
		interval = s.minInterval
	}
	return interval
}

// Stop signals Run to exit. Safe to call once.
func (s *Scheduler) Stop() {
	close(s.stop)
}

// tick runs one scheduling decision and returns the wait until the next one.
func (s *Scheduler) tick(ctx context.Context) time.Duration {
	settings, err := s.policies.GetSettings(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to read reorder settings, retrying")
		return s.minInterval
	}

	interval := time.Duration(settings.AnalysisFrequencyHours) * time.Hour
	if interval < s.minInterval {
		interval = s.minInterval
	}

	if !settings.AutoReorderEnabled {
		log.Debug().Msg("auto reorder disabled, skipping scheduled run")
		return interval
	}

	if updated, err := s.forecasts.RecomputePatterns(ctx); err != nil {
		log.Warn().Err(err).Msg("scheduled pattern recompute failed")
	} else {
		log.Debug().Int("patterns", updated).Msg("demand patterns refreshed")
	}

	job, err := s.orch.StartAnalysis(ctx, domain.AnalysisAll, "", false)
	if err != nil {
		log.Error().Err(err).Msg("scheduled analysis failed to start")
		return interval
	}
	log.Info().Str("job_id", job.ID).Msg("scheduled analysis started")

	return interval
}
