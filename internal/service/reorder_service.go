// backend-go/internal/service/reorder_service.go
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stockpilot/backend-go/internal/domain"
	"github.com/stockpilot/backend-go/internal/reorder"
	"github.com/stockpilot/backend-go/internal/repository"
)

// ReorderService fronts suggestion listings, suggestion processing, and the
// policy/settings CRUD used by the admin dashboard.
type ReorderService struct {
	suggestions repository.SuggestionStore
	policies    repository.PolicyStore
	engine      *reorder.Engine
	now         func() time.Time
}

func NewReorderService(
	suggestions repository.SuggestionStore,
	policies repository.PolicyStore,
	engine *reorder.Engine,
) *ReorderService {
	return &ReorderService{
		suggestions: suggestions,
		policies:    policies,
		engine:      engine,
		now:         time.Now,
	}
}

// WithClock overrides the service clock for tests.
func (s *ReorderService) WithClock(now func() time.Time) *ReorderService {
	s.now = now
	return s
}

// ListSuggestions returns filtered suggestions plus the dashboard summary.
// The summary is computed over the returned page, expired pendings excluded
// unless the filter asks for them.
func (s *ReorderService) ListSuggestions(ctx context.Context, filter domain.SuggestionFilter) ([]*domain.ReorderSuggestion, *domain.SuggestionSummary, error) {
	if filter.Urgency != "" {
		if _, ok := domain.ParseUrgency(string(filter.Urgency)); !ok {
			return nil, nil, domain.ValidationErrorf("unknown urgency %q", filter.Urgency)
		}
	}
	if filter.Status != "" {
		if _, ok := domain.ParseSuggestionStatus(string(filter.Status)); !ok {
			return nil, nil, domain.ValidationErrorf("unknown status %q", filter.Status)
		}
	}
	if filter.MinConfidence < 0 || filter.MinConfidence > 100 {
		return nil, nil, domain.ValidationErrorf("min_confidence must be within [0,100]")
	}

	now := s.now()
	suggestions, err := s.suggestions.ListSuggestions(ctx, filter, now)
	if err != nil {
		return nil, nil, err
	}

	if !filter.IncludeExpired {
		kept := suggestions[:0]
		for _, sg := range suggestions {
			if sg.Status == domain.SuggestionPending && sg.Expired(now) {
				continue
			}
			kept = append(kept, sg)
		}
		suggestions = kept
	}

	summary := &domain.SuggestionSummary{
		Total:     len(suggestions),
		ByUrgency: make(map[domain.Urgency]int),
	}
	for _, sg := range suggestions {
		summary.ByUrgency[sg.Urgency]++
		if sg.Status == domain.SuggestionPending {
			summary.PendingCount++
			summary.TotalEstimatedCost += sg.EstimatedCost
		}
	}

	return suggestions, summary, nil
}

// GetSuggestion returns a single suggestion by id.
func (s *ReorderService) GetSuggestion(ctx context.Context, id string) (*domain.ReorderSuggestion, error) {
	if id == "" {
		return nil, domain.ValidationErrorf("suggestion id is required")
	}
	return s.suggestions.GetSuggestion(ctx, id)
}

// ProcessSuggestion applies an approve/reject/modify action to a pending
// suggestion and records the audit trail.
func (s *ReorderService) ProcessSuggestion(ctx context.Context, id, action, reason string, mods *domain.SuggestionModifications) (*domain.ReorderSuggestion, error) {
	if id == "" {
		return nil, domain.ValidationErrorf("suggestion id is required")
	}
	parsed, ok := domain.ParseSuggestionAction(action)
	if !ok {
		return nil, domain.ValidationErrorf("unknown action %q, expected approve, reject or modify", action)
	}
	return s.engine.Process(ctx, id, parsed, reason, mods)
}

// ListHistory returns the most recent audit records for a product.
func (s *ReorderService) ListHistory(ctx context.Context, productID string, limit int) ([]*domain.ReorderHistory, error) {
	if productID == "" {
		return nil, domain.ValidationErrorf("product id is required")
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return s.suggestions.ListHistory(ctx, productID, limit)
}

// CreatePolicy validates and persists a new reorder policy.
func (s *ReorderService) CreatePolicy(ctx context.Context, policy *domain.ReorderPolicy) (*domain.ReorderPolicy, error) {
	if policy == nil {
		return nil, domain.ValidationErrorf("policy body is required")
	}
	if err := domain.ValidatePolicy(policy); err != nil {
		return nil, err
	}

	now := s.now()
	policy.ID = uuid.New().String()
	policy.CreatedAt = now
	policy.UpdatedAt = now

	if err := s.policies.CreatePolicy(ctx, policy); err != nil {
		return nil, err
	}
	return policy, nil
}

// UpdatePolicy applies a partial update to an existing policy.
func (s *ReorderService) UpdatePolicy(ctx context.Context, id string, update domain.PolicyUpdate) (*domain.ReorderPolicy, error) {
	if id == "" {
		return nil, domain.ValidationErrorf("policy id is required")
	}
	if err := update.Validate(); err != nil {
		return nil, err
	}
	return s.policies.UpdatePolicy(ctx, id, update)
}

// ListPolicies returns reorder policies, optionally only active ones.
func (s *ReorderService) ListPolicies(ctx context.Context, onlyActive bool) ([]*domain.ReorderPolicy, error) {
	return s.policies.ListPolicies(ctx, onlyActive)
}

// GetSettings returns the reorder settings singleton.
func (s *ReorderService) GetSettings(ctx context.Context) (*domain.ReorderSettings, error) {
	return s.policies.GetSettings(ctx)
}

// UpdateSettings applies a partial update to the settings singleton.
func (s *ReorderService) UpdateSettings(ctx context.Context, update domain.SettingsUpdate) (*domain.ReorderSettings, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}
	return s.policies.UpdateSettings(ctx, update)
}
