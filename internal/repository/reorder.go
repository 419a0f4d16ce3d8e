// backend-go/internal/repository/reorder.go
package repository

import (
	"context"
	"time"

	"github.com/stockpilot/backend-go/internal/domain"
)

// PolicyStore persists reorder policies and the settings singleton.
type PolicyStore interface {
	CreatePolicy(ctx context.Context, policy *domain.ReorderPolicy) error
	UpdatePolicy(ctx context.Context, id string, update domain.PolicyUpdate) (*domain.ReorderPolicy, error)
	ListPolicies(ctx context.Context, onlyActive bool) ([]*domain.ReorderPolicy, error)
	// PoliciesFor returns the active policies whose scope ids match the
	// product, its supplier, or its category, plus any global policy.
	PoliciesFor(ctx context.Context, productID, categoryID, supplierID string) ([]*domain.ReorderPolicy, error)

	GetSettings(ctx context.Context) (*domain.ReorderSettings, error)
	UpdateSettings(ctx context.Context, update domain.SettingsUpdate) (*domain.ReorderSettings, error)
}

// SuggestionStore persists reorder suggestions and their audit history.
type SuggestionStore interface {
	InsertSuggestion(ctx context.Context, s *domain.ReorderSuggestion) error
	GetSuggestion(ctx context.Context, id string) (*domain.ReorderSuggestion, error)
	// ListSuggestions filters against now for the expiry cutoff so callers
	// control the clock.
	ListSuggestions(ctx context.Context, filter domain.SuggestionFilter, now time.Time) ([]*domain.ReorderSuggestion, error)
	// HasPendingSuggestion reports whether an unexpired pending suggestion
	// already exists for the product.
	HasPendingSuggestion(ctx context.Context, productID string, now time.Time) (bool, error)

	// ApplyAction transitions a pending suggestion to newStatus and appends
	// the audit record in one atomic unit. A suggestion that is not pending
	// fails with domain.ErrConflict; an unknown id with domain.ErrNotFound.
	ApplyAction(ctx context.Context, id string, newStatus domain.SuggestionStatus, history *domain.ReorderHistory) (*domain.ReorderSuggestion, error)

	ListHistory(ctx context.Context, productID string, limit int) ([]*domain.ReorderHistory, error)
}

// PatternStore persists aggregated demand patterns per (product, period).
type PatternStore interface {
	UpsertPattern(ctx context.Context, p *domain.DemandPattern) error
	GetPattern(ctx context.Context, productID string, periodDays int) (*domain.DemandPattern, error)
}
