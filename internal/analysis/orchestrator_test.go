// backend-go/internal/analysis/orchestrator_test.go
package analysis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stockpilot/backend-go/internal/cache"
	"github.com/stockpilot/backend-go/internal/domain"
	"github.com/stockpilot/backend-go/internal/policy"
	"github.com/stockpilot/backend-go/internal/reorder"
	"github.com/stockpilot/backend-go/internal/repository"
	"github.com/stockpilot/backend-go/internal/service"
	"github.com/stretchr/testify/require"
)

type memCatalog struct {
	mu         sync.Mutex
	products   map[string]*domain.Product
	suppliers  map[string]*domain.Supplier
	listErr    error
	listCalls  int
	countCalls int
}

func (m *memCatalog) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, domain.NotFoundErrorf("product %s not found", id)
	}
	return p, nil
}

func (m *memCatalog) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]*domain.Product, 0, len(m.products))
	for _, p := range m.products {
		if filter.ProductID != "" && p.ID != filter.ProductID {
			continue
		}
		if filter.CategoryID != "" && p.CategoryID != filter.CategoryID {
			continue
		}
		if filter.SupplierID != "" && p.SupplierID != filter.SupplierID {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *memCatalog) CountProducts(ctx context.Context, filter repository.ProductFilter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.countCalls++
	if m.listErr != nil {
		return 0, m.listErr
	}
	return len(m.products), nil
}

func (m *memCatalog) GetSupplier(ctx context.Context, id string) (*domain.Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.suppliers[id]
	if !ok {
		return nil, domain.NotFoundErrorf("supplier %s not found", id)
	}
	return s, nil
}

func (m *memCatalog) GetCompletedOrders(ctx context.Context, productID string, since time.Time) ([]domain.OrderRecord, error) {
	return nil, nil
}

type memSuggestions struct {
	mu          sync.Mutex
	suggestions map[string]*domain.ReorderSuggestion
	insertErr   error
}

func newMemSuggestions() *memSuggestions {
	return &memSuggestions{suggestions: make(map[string]*domain.ReorderSuggestion)}
}

func (s *memSuggestions) InsertSuggestion(ctx context.Context, sg *domain.ReorderSuggestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	s.suggestions[sg.ID] = sg
	return nil
}

func (s *memSuggestions) GetSuggestion(ctx context.Context, id string) (*domain.ReorderSuggestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sg, ok := s.suggestions[id]
	if !ok {
		return nil, domain.NotFoundErrorf("suggestion %s not found", id)
	}
	return sg, nil
}

func (s *memSuggestions) ListSuggestions(ctx context.Context, filter domain.SuggestionFilter, now time.Time) ([]*domain.ReorderSuggestion, error) {
	return nil, nil
}

func (s *memSuggestions) HasPendingSuggestion(ctx context.Context, productID string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sg := range s.suggestions {
		if sg.ProductID == productID && sg.Status == domain.SuggestionPending {
			return true, nil
		}
	}
	return false, nil
}

func (s *memSuggestions) ApplyAction(ctx context.Context, id string, newStatus domain.SuggestionStatus, history *domain.ReorderHistory) (*domain.ReorderSuggestion, error) {
	return nil, domain.NotFoundErrorf("suggestion %s not found", id)
}

func (s *memSuggestions) ListHistory(ctx context.Context, productID string, limit int) ([]*domain.ReorderHistory, error) {
	return nil, nil
}

type noPolicies struct{}

func (noPolicies) CreatePolicy(ctx context.Context, p *domain.ReorderPolicy) error { return nil }
func (noPolicies) UpdatePolicy(ctx context.Context, id string, u domain.PolicyUpdate) (*domain.ReorderPolicy, error) {
	return nil, nil
}
func (noPolicies) ListPolicies(ctx context.Context, onlyActive bool) ([]*domain.ReorderPolicy, error) {
	return nil, nil
}
func (noPolicies) PoliciesFor(ctx context.Context, productID, categoryID, supplierID string) ([]*domain.ReorderPolicy, error) {
	return nil, nil
}
func (noPolicies) GetSettings(ctx context.Context) (*domain.ReorderSettings, error) {
	return &domain.ReorderSettings{AutoReorderEnabled: true, AnalysisFrequencyHours: 24}, nil
}
func (noPolicies) UpdateSettings(ctx context.Context, u domain.SettingsUpdate) (*domain.ReorderSettings, error) {
	return nil, nil
}

type memPatterns struct {
	mu       sync.Mutex
	patterns map[string]*domain.DemandPattern
}

func (m *memPatterns) UpsertPattern(ctx context.Context, p *domain.DemandPattern) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.patterns == nil {
		m.patterns = make(map[string]*domain.DemandPattern)
	}
	m.patterns[p.ProductID] = p
	return nil
}

func (m *memPatterns) GetPattern(ctx context.Context, productID string, periodDays int) (*domain.DemandPattern, error) {
	return nil, domain.NotFoundErrorf("no pattern")
}

func orchestratorFixture(catalog *memCatalog, suggestions *memSuggestions) *Orchestrator {
	engine := reorder.NewEngine(catalog, catalog, suggestions, policy.NewResolver(noPolicies{}), 72*time.Hour)
	forecasts := service.NewForecastService(catalog, catalog, &memPatterns{}, cache.NewNoopForecastCache(), 90)
	jobs := cache.NewMemoryJobStore(time.Hour)
	return NewOrchestrator(jobs, catalog, engine, forecasts, nil, 2, 30)
}

func analysisCatalog() *memCatalog {
	return &memCatalog{
		products: map[string]*domain.Product{
			"prod-low": {
				ID: "prod-low", SKU: "LOW-1", SupplierID: "sup-1",
				CurrentStock: 5, LowStockThreshold: 20, UnitPrice: 2,
			},
			"prod-ok": {
				ID: "prod-ok", SKU: "OK-1", SupplierID: "sup-1",
				CurrentStock: 500, LowStockThreshold: 20, UnitPrice: 2,
			},
		},
		suppliers: map[string]*domain.Supplier{
			"sup-1": {ID: "sup-1", LeadTimeDays: 10, ReliabilityScore: 80},
		},
	}
}

func TestOrchestrator_RunCompletes(t *testing.T) {
	catalog := analysisCatalog()
	suggestions := newMemSuggestions()
	orch := orchestratorFixture(catalog, suggestions)

	job, err := orch.StartAnalysis(context.Background(), domain.AnalysisAll, "", false)
	require.NoError(t, err)
	require.Equal(t, domain.JobStarted, job.Status)
	require.NotEmpty(t, job.ID)
	require.False(t, job.EstimatedCompletion.IsZero())

	orch.Wait()

	final, err := orch.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, domain.JobCompleted, final.Status)
	require.NotNil(t, final.CompletedAt)

	// Only the low-stock product qualifies.
	require.Equal(t, 1, final.SuggestionsCount)
	require.Len(t, suggestions.suggestions, 1)
}

func TestOrchestrator_SingleEnumerationPerRun(t *testing.T) {
	catalog := analysisCatalog()
	orch := orchestratorFixture(catalog, newMemSuggestions())

	_, err := orch.StartAnalysis(context.Background(), domain.AnalysisAll, "", false)
	require.NoError(t, err)

	orch.Wait()

	catalog.mu.Lock()
	defer catalog.mu.Unlock()
	// The completion estimate counts rows; only the worker run lists them.
	require.Equal(t, 1, catalog.countCalls)
	require.Equal(t, 1, catalog.listCalls)
}

func TestOrchestrator_ProductScope(t *testing.T) {
	catalog := analysisCatalog()
	suggestions := newMemSuggestions()
	orch := orchestratorFixture(catalog, suggestions)

	job, err := orch.StartAnalysis(context.Background(), domain.AnalysisProduct, "prod-ok", false)
	require.NoError(t, err)

	orch.Wait()

	final, err := orch.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, domain.JobCompleted, final.Status)
	require.Zero(t, final.SuggestionsCount)
}

func TestOrchestrator_ValidatesScope(t *testing.T) {
	orch := orchestratorFixture(analysisCatalog(), newMemSuggestions())

	_, err := orch.StartAnalysis(context.Background(), "warehouse", "", false)
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = orch.StartAnalysis(context.Background(), domain.AnalysisCategory, "", false)
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = orch.StartAnalysis(context.Background(), domain.AnalysisAll, "cat-1", false)
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestOrchestrator_UnknownProductFailsFast(t *testing.T) {
	orch := orchestratorFixture(analysisCatalog(), newMemSuggestions())

	_, err := orch.StartAnalysis(context.Background(), domain.AnalysisProduct, "missing", false)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOrchestrator_EnumerationFailureFailsJob(t *testing.T) {
	catalog := analysisCatalog()
	orch := orchestratorFixture(catalog, newMemSuggestions())

	catalog.mu.Lock()
	catalog.listErr = domain.ValidationErrorf("catalog offline")
	catalog.mu.Unlock()

	job, err := orch.StartAnalysis(context.Background(), domain.AnalysisAll, "", false)
	require.NoError(t, err)

	orch.Wait()

	final, err := orch.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, domain.JobFailed, final.Status)
	require.Contains(t, final.Error, "catalog offline")
	require.NotNil(t, final.CompletedAt)
}

func TestOrchestrator_UnknownJob(t *testing.T) {
	orch := orchestratorFixture(analysisCatalog(), newMemSuggestions())

	_, err := orch.GetJob(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
