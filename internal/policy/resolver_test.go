// backend-go/internal/policy/resolver_test.go
package policy

import (
	"context"
	"testing"

	"github.com/stockpilot/backend-go/internal/domain"
	"github.com/stretchr/testify/require"
)

type stubPolicyStore struct {
	policies []*domain.ReorderPolicy
	err      error
}

func (s *stubPolicyStore) CreatePolicy(ctx context.Context, policy *domain.ReorderPolicy) error {
	return nil
}

func (s *stubPolicyStore) UpdatePolicy(ctx context.Context, id string, update domain.PolicyUpdate) (*domain.ReorderPolicy, error) {
	return nil, nil
}

func (s *stubPolicyStore) ListPolicies(ctx context.Context, onlyActive bool) ([]*domain.ReorderPolicy, error) {
	return s.policies, nil
}

func (s *stubPolicyStore) PoliciesFor(ctx context.Context, productID, categoryID, supplierID string) ([]*domain.ReorderPolicy, error) {
	return s.policies, s.err
}

func (s *stubPolicyStore) GetSettings(ctx context.Context) (*domain.ReorderSettings, error) {
	return &domain.ReorderSettings{}, nil
}

func (s *stubPolicyStore) UpdateSettings(ctx context.Context, update domain.SettingsUpdate) (*domain.ReorderSettings, error) {
	return nil, nil
}

func resolverProduct() *domain.Product {
	return &domain.Product{
		ID:         "prod-1",
		CategoryID: "cat-1",
		SupplierID: "sup-1",
	}
}

func policyAt(scope domain.PolicyScope, multiplier float64) *domain.ReorderPolicy {
	p := &domain.ReorderPolicy{
		ID:                 string(scope) + "-policy",
		Scope:              scope,
		MinStockMultiplier: multiplier,
		IsActive:           true,
	}
	switch scope {
	case domain.ScopeProduct:
		p.ProductID = "prod-1"
	case domain.ScopeCategory:
		p.CategoryID = "cat-1"
	case domain.ScopeSupplier:
		p.SupplierID = "sup-1"
	}
	return p
}

func TestResolver_Precedence(t *testing.T) {
	store := &stubPolicyStore{policies: []*domain.ReorderPolicy{
		policyAt(domain.ScopeGlobal, 1.1),
		policyAt(domain.ScopeCategory, 1.2),
		policyAt(domain.ScopeSupplier, 1.3),
		policyAt(domain.ScopeProduct, 1.4),
	}}

	resolved, err := NewResolver(store).Resolve(context.Background(), resolverProduct())
	require.NoError(t, err)

	require.Equal(t, domain.ScopeProduct, resolved.MatchedScope)
	require.Equal(t, 1.4, resolved.MinStockMultiplier)
}

func TestResolver_SupplierBeatsCategory(t *testing.T) {
	store := &stubPolicyStore{policies: []*domain.ReorderPolicy{
		policyAt(domain.ScopeCategory, 1.2),
		policyAt(domain.ScopeSupplier, 1.3),
	}}

	resolved, err := NewResolver(store).Resolve(context.Background(), resolverProduct())
	require.NoError(t, err)

	require.Equal(t, domain.ScopeSupplier, resolved.MatchedScope)
}

func TestResolver_InactiveSkipped(t *testing.T) {
	productPolicy := policyAt(domain.ScopeProduct, 1.4)
	productPolicy.IsActive = false

	store := &stubPolicyStore{policies: []*domain.ReorderPolicy{
		productPolicy,
		policyAt(domain.ScopeGlobal, 1.1),
	}}

	resolved, err := NewResolver(store).Resolve(context.Background(), resolverProduct())
	require.NoError(t, err)

	require.Equal(t, domain.ScopeGlobal, resolved.MatchedScope)
	require.Equal(t, 1.1, resolved.MinStockMultiplier)
}

func TestResolver_MismatchedTargetSkipped(t *testing.T) {
	otherProduct := policyAt(domain.ScopeProduct, 2.0)
	otherProduct.ProductID = "prod-other"

	store := &stubPolicyStore{policies: []*domain.ReorderPolicy{otherProduct}}

	resolved, err := NewResolver(store).Resolve(context.Background(), resolverProduct())
	require.NoError(t, err)

	require.Equal(t, domain.ScopeGlobal, resolved.MatchedScope)
	require.Equal(t, DefaultMinStockMultiplier, resolved.MinStockMultiplier)
}

func TestResolver_DefaultWhenEmpty(t *testing.T) {
	resolved, err := NewResolver(&stubPolicyStore{}).Resolve(context.Background(), resolverProduct())
	require.NoError(t, err)

	require.Equal(t, domain.ScopeGlobal, resolved.MatchedScope)
	require.Equal(t, DefaultMinStockMultiplier, resolved.MinStockMultiplier)
	require.Equal(t, DefaultSafetyStockDays, resolved.SafetyStockDays)
	require.True(t, resolved.IsActive)
}

func TestResolver_NilProduct(t *testing.T) {
	_, err := NewResolver(&stubPolicyStore{}).Resolve(context.Background(), nil)
	require.ErrorIs(t, err, domain.ErrValidation)
}
