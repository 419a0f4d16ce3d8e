// backend-go/internal/analysis/orchestrator.go
package analysis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/stockpilot/backend-go/internal/cache"
	"github.com/stockpilot/backend-go/internal/domain"
	"github.com/stockpilot/backend-go/internal/reorder"
	"github.com/stockpilot/backend-go/internal/repository"
	"github.com/stockpilot/backend-go/internal/service"
)

// perProductEstimate is the pessimistic wall time budgeted per product when
// estimating job completion.
const perProductEstimate = 500 * time.Millisecond

// Orchestrator runs asynchronous reorder analysis jobs. StartAnalysis
// returns immediately with a job id; the run itself fans product evaluation
// out over a bounded worker pool and records progress in the job store.
type Orchestrator struct {
	jobs      cache.JobStore
	products  repository.ProductStore
	engine    *reorder.Engine
	forecasts *service.ForecastService
	exporter  *Exporter

	workerCount int
	horizonDays int
	now         func() time.Time

	wg sync.WaitGroup
}

func NewOrchestrator(
	jobs cache.JobStore,
	products repository.ProductStore,
	engine *reorder.Engine,
	forecasts *service.ForecastService,
	exporter *Exporter,
	workerCount, horizonDays int,
) *Orchestrator {
	if workerCount <= 0 {
		workerCount = 4
	}
	if horizonDays <= 0 {
		horizonDays = 30
	}
	return &Orchestrator{
		jobs:        jobs,
		products:    products,
		engine:      engine,
		forecasts:   forecasts,
		exporter:    exporter,
		workerCount: workerCount,
		horizonDays: horizonDays,
		now:         time.Now,
	}
}

// WithClock overrides the orchestrator clock for tests.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// StartAnalysis validates the request, registers the job as started, and
// launches the run in the background. Scoped runs fail fast on an unknown
// target so the caller gets a 404 instead of a failed job.
func (o *Orchestrator) StartAnalysis(ctx context.Context, scope domain.AnalysisScope, targetID string, urgencyOnly bool) (*domain.AnalysisJob, error) {
	parsed, ok := domain.ParseAnalysisScope(string(scope))
	if !ok {
		return nil, domain.ValidationErrorf("unknown analysis scope %q", scope)
	}
	if parsed != domain.AnalysisAll && targetID == "" {
		return nil, domain.ValidationErrorf("scope %s requires a target id", parsed)
	}
	if parsed == domain.AnalysisAll && targetID != "" {
		return nil, domain.ValidationErrorf("scope all does not take a target id")
	}
	if parsed == domain.AnalysisProduct {
		if _, err := o.products.GetProduct(ctx, targetID); err != nil {
			return nil, err
		}
	}

	now := o.now()
	job := &domain.AnalysisJob{
		ID:                  uuid.NewString(),
		Status:              domain.JobStarted,
		Scope:               parsed,
		TargetID:            targetID,
		UrgencyOnly:         urgencyOnly,
		EstimatedCompletion: o.estimateCompletion(ctx, parsed, targetID, now),
		StartedAt:           now,
	}

	if err := o.jobs.SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to register job: %w", err)
	}

	// The run gets its own copy so the caller's view stays immutable, and a
	// detached context so it outlives the HTTP request that started it.
	runJob := *job
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.run(context.Background(), &runJob)
	}()

	return job, nil
}

// GetJob returns the recorded state of an analysis job.
func (o *Orchestrator) GetJob(ctx context.Context, id string) (*domain.AnalysisJob, error) {
	if id == "" {
		return nil, domain.ValidationErrorf("job id is required")
	}
	return o.jobs.GetJob(ctx, id)
}

// Wait blocks until all in-flight runs finish. Used during shutdown and in
// tests.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) run(ctx context.Context, job *domain.AnalysisJob) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("job_id", job.ID).Msg("analysis run panicked")
			o.fail(ctx, job, fmt.Errorf("analysis run panicked: %v", r))
		}
	}()

	job.Status = domain.JobRunning
	if err := o.jobs.SaveJob(ctx, job); err != nil {
		log.Error().Err(err).Str("job_id", job.ID).Msg("failed to mark job running")
	}

	products, err := o.products.ListProducts(ctx, scopeFilter(job.Scope, job.TargetID))
	if err != nil {
		o.fail(ctx, job, fmt.Errorf("failed to enumerate products: %w", err))
		return
	}

	suggestions, err := o.evaluateAll(ctx, job, products)
	if err != nil {
		o.fail(ctx, job, err)
		return
	}

	if o.exporter != nil && len(suggestions) > 0 {
		if path, err := o.exporter.Export(ctx, job, suggestions); err != nil {
			log.Warn().Err(err).Str("job_id", job.ID).Msg("suggestion export failed")
		} else {
			log.Info().Str("job_id", job.ID).Str("path", path).Msg("suggestions exported")
		}
	}

	now := o.now()
	job.Status = domain.JobCompleted
	job.SuggestionsCount = len(suggestions)
	job.CompletedAt = &now
	if err := o.jobs.SaveJob(ctx, job); err != nil {
		log.Error().Err(err).Str("job_id", job.ID).Msg("failed to mark job completed")
	}

	log.Info().
		Str("job_id", job.ID).
		Str("scope", string(job.Scope)).
		Int("products", len(products)).
		Int("suggestions", len(suggestions)).
		Dur("elapsed", now.Sub(job.StartedAt)).
		Msg("analysis completed")
}

// evaluateAll fans products out over workerCount goroutines. The first
// evaluation error cancels the run; forecast degradation is tolerated.
func (o *Orchestrator) evaluateAll(ctx context.Context, job *domain.AnalysisJob, products []*domain.Product) ([]*domain.ReorderSuggestion, error) {
	jobChan := make(chan *domain.Product, len(products))
	errChan := make(chan error, o.workerCount)

	var mu sync.Mutex
	suggestions := make([]*domain.ReorderSuggestion, 0)

	var wg sync.WaitGroup
	for i := 0; i < o.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for product := range jobChan {
				suggestion, err := o.evaluate(ctx, job, product)
				if err != nil {
					select {
					case errChan <- err:
					default:
					}
					return
				}
				if suggestion != nil {
					mu.Lock()
					suggestions = append(suggestions, suggestion)
					mu.Unlock()
				}
			}
		}()
	}

	for _, product := range products {
		jobChan <- product
	}
	close(jobChan)

	wg.Wait()
	close(errChan)

	if err := <-errChan; err != nil {
		return nil, err
	}
	return suggestions, nil
}

func (o *Orchestrator) evaluate(ctx context.Context, job *domain.AnalysisJob, product *domain.Product) (*domain.ReorderSuggestion, error) {
	opts := cache.ForecastOptions{
		HorizonDays:        o.horizonDays,
		IncludeSeasonality: true,
	}

	forecast, err := o.forecasts.Generate(ctx, product.ID, opts)
	if err != nil {
		// The engine has its own history-based fallback, so a failed
		// forecast degrades the reason text rather than the run.
		log.Warn().Err(err).Str("product_id", product.ID).Msg("forecast failed, evaluating without it")
		forecast = nil
	}

	return o.engine.Evaluate(ctx, product, forecast, job.UrgencyOnly)
}

func (o *Orchestrator) fail(ctx context.Context, job *domain.AnalysisJob, cause error) {
	now := o.now()
	job.Status = domain.JobFailed
	job.Error = cause.Error()
	job.CompletedAt = &now
	if err := o.jobs.SaveJob(ctx, job); err != nil {
		log.Error().Err(err).Str("job_id", job.ID).Msg("failed to mark job failed")
	}
	log.Error().Err(cause).Str("job_id", job.ID).Msg("analysis failed")
}

// estimateCompletion budgets wall time from the product count when it is
// cheap to know, and falls back to a flat window otherwise.
func (o *Orchestrator) estimateCompletion(ctx context.Context, scope domain.AnalysisScope, targetID string, now time.Time) time.Time {
	if scope == domain.AnalysisProduct {
		return now.Add(perProductEstimate)
	}

	count, err := o.products.CountProducts(ctx, scopeFilter(scope, targetID))
	if err != nil {
		return now.Add(2 * time.Minute)
	}

	perWorker := (count + o.workerCount - 1) / o.workerCount
	estimate := time.Duration(perWorker) * perProductEstimate
	if estimate < perProductEstimate {
		estimate = perProductEstimate
	}
	return now.Add(estimate)
}

func scopeFilter(scope domain.AnalysisScope, targetID string) repository.ProductFilter {
	switch scope {
	case domain.AnalysisCategory:
		return repository.ProductFilter{CategoryID: targetID}
	case domain.AnalysisSupplier:
		return repository.ProductFilter{SupplierID: targetID}
	case domain.AnalysisProduct:
		return repository.ProductFilter{ProductID: targetID}
	default:
		return repository.ProductFilter{}
	}
}
