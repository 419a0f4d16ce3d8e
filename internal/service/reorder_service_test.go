// backend-go/internal/service/reorder_service_test.go
package service

import (
	"context"
	"testing"
	"time"

	"github.com/stockpilot/backend-go/internal/domain"
	"github.com/stretchr/testify/require"
)

type fakeSuggestionStore struct {
	suggestions []*domain.ReorderSuggestion
	history     []*domain.ReorderHistory
	listedAt    time.Time
}

func (f *fakeSuggestionStore) InsertSuggestion(ctx context.Context, s *domain.ReorderSuggestion) error {
	f.suggestions = append(f.suggestions, s)
	return nil
}

func (f *fakeSuggestionStore) GetSuggestion(ctx context.Context, id string) (*domain.ReorderSuggestion, error) {
	for _, s := range f.suggestions {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, domain.NotFoundErrorf("suggestion %s not found", id)
}

func (f *fakeSuggestionStore) ListSuggestions(ctx context.Context, filter domain.SuggestionFilter, now time.Time) ([]*domain.ReorderSuggestion, error) {
	f.listedAt = now
	return f.suggestions, nil
}

func (f *fakeSuggestionStore) HasPendingSuggestion(ctx context.Context, productID string, now time.Time) (bool, error) {
	return false, nil
}

func (f *fakeSuggestionStore) ApplyAction(ctx context.Context, id string, newStatus domain.SuggestionStatus, history *domain.ReorderHistory) (*domain.ReorderSuggestion, error) {
	return nil, domain.NotFoundErrorf("suggestion %s not found", id)
}

func (f *fakeSuggestionStore) ListHistory(ctx context.Context, productID string, limit int) ([]*domain.ReorderHistory, error) {
	return f.history, nil
}

type fakePolicyStore struct {
	created  []*domain.ReorderPolicy
	settings domain.ReorderSettings
}

func (f *fakePolicyStore) CreatePolicy(ctx context.Context, p *domain.ReorderPolicy) error {
	f.created = append(f.created, p)
	return nil
}

func (f *fakePolicyStore) UpdatePolicy(ctx context.Context, id string, u domain.PolicyUpdate) (*domain.ReorderPolicy, error) {
	return nil, domain.NotFoundErrorf("policy %s not found", id)
}

func (f *fakePolicyStore) ListPolicies(ctx context.Context, onlyActive bool) ([]*domain.ReorderPolicy, error) {
	return f.created, nil
}

func (f *fakePolicyStore) PoliciesFor(ctx context.Context, productID, categoryID, supplierID string) ([]*domain.ReorderPolicy, error) {
	return nil, nil
}

func (f *fakePolicyStore) GetSettings(ctx context.Context) (*domain.ReorderSettings, error) {
	s := f.settings
	return &s, nil
}

func (f *fakePolicyStore) UpdateSettings(ctx context.Context, u domain.SettingsUpdate) (*domain.ReorderSettings, error) {
	u.Apply(&f.settings, time.Now())
	s := f.settings
	return &s, nil
}

func serviceNow() time.Time {
	return time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)
}

func suggestionAt(id string, status domain.SuggestionStatus, urgency domain.Urgency, cost float64, expires time.Time) *domain.ReorderSuggestion {
	return &domain.ReorderSuggestion{
		ID:            id,
		ProductID:     "prod-" + id,
		Status:        status,
		Urgency:       urgency,
		EstimatedCost: cost,
		ExpiresAt:     expires,
	}
}

func TestReorderService_ListSuggestionsSummary(t *testing.T) {
	now := serviceNow()
	live := now.Add(24 * time.Hour)
	store := &fakeSuggestionStore{suggestions: []*domain.ReorderSuggestion{
		suggestionAt("a", domain.SuggestionPending, domain.UrgencyCritical, 100, live),
		suggestionAt("b", domain.SuggestionPending, domain.UrgencyHigh, 50, live),
		suggestionAt("c", domain.SuggestionApproved, domain.UrgencyLow, 30, live),
	}}

	svc := NewReorderService(store, &fakePolicyStore{}, nil).WithClock(serviceNow)

	suggestions, summary, err := svc.ListSuggestions(context.Background(), domain.SuggestionFilter{})
	require.NoError(t, err)

	require.Len(t, suggestions, 3)
	require.Equal(t, 3, summary.Total)
	require.Equal(t, 2, summary.PendingCount)
	require.Equal(t, 150.0, summary.TotalEstimatedCost)
	require.Equal(t, 1, summary.ByUrgency[domain.UrgencyCritical])
	require.Equal(t, 1, summary.ByUrgency[domain.UrgencyHigh])
	require.Equal(t, 1, summary.ByUrgency[domain.UrgencyLow])
	// The store gets the service clock for its expiry cutoff.
	require.Equal(t, serviceNow(), store.listedAt)
}

func TestReorderService_ListSuggestionsDropsExpiredPending(t *testing.T) {
	now := serviceNow()
	store := &fakeSuggestionStore{suggestions: []*domain.ReorderSuggestion{
		suggestionAt("stale", domain.SuggestionPending, domain.UrgencyHigh, 50, now.Add(-time.Hour)),
		suggestionAt("live", domain.SuggestionPending, domain.UrgencyHigh, 70, now.Add(time.Hour)),
		// Approved suggestions stay listed regardless of expiry.
		suggestionAt("done", domain.SuggestionApproved, domain.UrgencyLow, 30, now.Add(-time.Hour)),
	}}

	svc := NewReorderService(store, &fakePolicyStore{}, nil).WithClock(serviceNow)

	suggestions, summary, err := svc.ListSuggestions(context.Background(), domain.SuggestionFilter{})
	require.NoError(t, err)
	require.Len(t, suggestions, 2)
	require.Equal(t, 1, summary.PendingCount)

	withExpired, _, err := svc.ListSuggestions(context.Background(), domain.SuggestionFilter{IncludeExpired: true})
	require.NoError(t, err)
	require.Len(t, withExpired, 3)
}

func TestReorderService_ListSuggestionsValidation(t *testing.T) {
	svc := NewReorderService(&fakeSuggestionStore{}, &fakePolicyStore{}, nil)
	ctx := context.Background()

	_, _, err := svc.ListSuggestions(ctx, domain.SuggestionFilter{Urgency: "severe"})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, _, err = svc.ListSuggestions(ctx, domain.SuggestionFilter{Status: "open"})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, _, err = svc.ListSuggestions(ctx, domain.SuggestionFilter{MinConfidence: 120})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestReorderService_ProcessSuggestionValidatesAction(t *testing.T) {
	svc := NewReorderService(&fakeSuggestionStore{}, &fakePolicyStore{}, nil)

	_, err := svc.ProcessSuggestion(context.Background(), "sug-1", "archive", "", nil)
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.ProcessSuggestion(context.Background(), "", "approve", "", nil)
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestReorderService_CreatePolicy(t *testing.T) {
	store := &fakePolicyStore{}
	svc := NewReorderService(&fakeSuggestionStore{}, store, nil).WithClock(serviceNow)

	created, err := svc.CreatePolicy(context.Background(), &domain.ReorderPolicy{
		Scope:              domain.ScopeProduct,
		ProductID:          "prod-1",
		MinStockMultiplier: 2.0,
		IsActive:           true,
	})
	require.NoError(t, err)

	require.NotEmpty(t, created.ID)
	require.Equal(t, serviceNow(), created.CreatedAt)
	require.Len(t, store.created, 1)
}

func TestReorderService_CreatePolicyScopeInvariant(t *testing.T) {
	svc := NewReorderService(&fakeSuggestionStore{}, &fakePolicyStore{}, nil)
	ctx := context.Background()

	// Two scope ids set at once
	_, err := svc.CreatePolicy(ctx, &domain.ReorderPolicy{
		Scope:              domain.ScopeProduct,
		ProductID:          "prod-1",
		CategoryID:         "cat-1",
		MinStockMultiplier: 2.0,
	})
	require.ErrorIs(t, err, domain.ErrValidation)

	// Global with a target
	_, err = svc.CreatePolicy(ctx, &domain.ReorderPolicy{
		Scope:              domain.ScopeGlobal,
		ProductID:          "prod-1",
		MinStockMultiplier: 2.0,
	})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.CreatePolicy(ctx, nil)
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestReorderService_UpdateSettings(t *testing.T) {
	store := &fakePolicyStore{settings: domain.ReorderSettings{AnalysisFrequencyHours: 24}}
	svc := NewReorderService(&fakeSuggestionStore{}, store, nil)

	enabled := true
	hours := 6
	updated, err := svc.UpdateSettings(context.Background(), domain.SettingsUpdate{
		AutoReorderEnabled:     &enabled,
		AnalysisFrequencyHours: &hours,
	})
	require.NoError(t, err)
	require.True(t, updated.AutoReorderEnabled)
	require.Equal(t, 6, updated.AnalysisFrequencyHours)

	bad := 0
	_, err = svc.UpdateSettings(context.Background(), domain.SettingsUpdate{AnalysisFrequencyHours: &bad})
	require.ErrorIs(t, err, domain.ErrValidation)
}
