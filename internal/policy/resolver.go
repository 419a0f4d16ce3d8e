// backend-go/internal/policy/resolver.go
package policy

import (
	"context"
	"fmt"

	"github.com/stockpilot/backend-go/internal/domain"
	"github.com/stockpilot/backend-go/internal/repository"
)

// Default tunables applied when no persisted policy matches a product.
const (
	DefaultMinStockMultiplier = 1.5
	DefaultSafetyStockDays    = 7
)

// Resolver picks the most specific active reorder policy for a product:
// product > supplier > category > global default.
type Resolver struct {
	policies repository.PolicyStore
}

// NewResolver creates a policy resolver over the policy store.
func NewResolver(policies repository.PolicyStore) *Resolver {
	return &Resolver{policies: policies}
}

// Resolve returns the winning policy with the scope level that matched. When
// nothing matches, the library default applies with MatchedScope global.
func (r *Resolver) Resolve(ctx context.Context, product *domain.Product) (*domain.ResolvedPolicy, error) {
	if product == nil {
		return nil, domain.ValidationErrorf("product is required")
	}

	candidates, err := r.policies.PoliciesFor(ctx, product.ID, product.CategoryID, product.SupplierID)
	if err != nil {
		return nil, fmt.Errorf("failed to load policies for product %s: %w", product.ID, err)
	}

	// First active match in precedence order wins.
	for _, scope := range []domain.PolicyScope{domain.ScopeProduct, domain.ScopeSupplier, domain.ScopeCategory, domain.ScopeGlobal} {
		for _, p := range candidates {
			if !p.IsActive || p.Scope != scope {
				continue
			}
			if !matches(p, product) {
				continue
			}
			return &domain.ResolvedPolicy{ReorderPolicy: *p, MatchedScope: scope}, nil
		}
	}

	return DefaultPolicy(), nil
}

// DefaultPolicy is the library-wide fallback used when no stored policy
// applies.
func DefaultPolicy() *domain.ResolvedPolicy {
	return &domain.ResolvedPolicy{
		ReorderPolicy: domain.ReorderPolicy{
			Scope:              domain.ScopeGlobal,
			MinStockMultiplier: DefaultMinStockMultiplier,
			SafetyStockDays:    DefaultSafetyStockDays,
			IsActive:           true,
		},
		MatchedScope: domain.ScopeGlobal,
	}
}

func matches(p *domain.ReorderPolicy, product *domain.Product) bool {
	switch p.Scope {
	case domain.ScopeProduct:
		return p.ProductID == product.ID
	case domain.ScopeSupplier:
		return p.SupplierID == product.SupplierID
	case domain.ScopeCategory:
		return p.CategoryID == product.CategoryID
	case domain.ScopeGlobal:
		return true
	default:
		return false
	}
}
