// backend-go/internal/repository/postgres/policy_repository.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/stockpilot/backend-go/internal/domain"
	"github.com/stockpilot/backend-go/internal/repository"
)

type policyRepository struct {
	db *DB
}

// NewPolicyRepository persists reorder policies plus the settings singleton.
func NewPolicyRepository(db *DB) *policyRepository {
	return &policyRepository{db: db}
}

var _ repository.PolicyStore = (*policyRepository)(nil)

const policyColumns = `
	id, scope, COALESCE(product_id, '') AS product_id,
	COALESCE(category_id, '') AS category_id, COALESCE(supplier_id, '') AS supplier_id,
	min_stock_multiplier, max_order_quantity, preferred_order_quantity,
	safety_stock_days, review_frequency_days, auto_approve_threshold,
	is_active, created_at, updated_at
`

func (r *policyRepository) CreatePolicy(ctx context.Context, policy *domain.ReorderPolicy) error {
	query := `
		INSERT INTO reorder_policies (
			id, scope, product_id, category_id, supplier_id,
			min_stock_multiplier, max_order_quantity, preferred_order_quantity,
			safety_stock_days, review_frequency_days, auto_approve_threshold,
			is_active, created_at, updated_at
		) VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''),
			$6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.ExecContext(ctx, query,
		policy.ID, policy.Scope, policy.ProductID, policy.CategoryID, policy.SupplierID,
		policy.MinStockMultiplier, policy.MaxOrderQuantity, policy.PreferredOrderQuantity,
		policy.SafetyStockDays, policy.ReviewFrequencyDays, policy.AutoApproveThreshold,
		policy.IsActive, policy.CreatedAt, policy.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return domain.ConflictErrorf("a policy for this scope target already exists")
		}
		return fmt.Errorf("failed to insert policy: %w", err)
	}
	return nil
}

func (r *policyRepository) UpdatePolicy(ctx context.Context, id string, update domain.PolicyUpdate) (*domain.ReorderPolicy, error) {
	set := make([]string, 0, 8)
	args := make([]interface{}, 0, 9)

	add := func(column string, value interface{}) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.MinStockMultiplier != nil {
		add("min_stock_multiplier", *update.MinStockMultiplier)
	}
	if update.MaxOrderQuantity != nil {
		add("max_order_quantity", *update.MaxOrderQuantity)
	}
	if update.PreferredOrderQuantity != nil {
		add("preferred_order_quantity", *update.PreferredOrderQuantity)
	}
	if update.SafetyStockDays != nil {
		add("safety_stock_days", *update.SafetyStockDays)
	}
	if update.ReviewFrequencyDays != nil {
		add("review_frequency_days", *update.ReviewFrequencyDays)
	}
	if update.AutoApproveThreshold != nil {
		add("auto_approve_threshold", *update.AutoApproveThreshold)
	}
	if update.IsActive != nil {
		add("is_active", *update.IsActive)
	}
	if len(set) == 0 {
		return nil, domain.ValidationErrorf("no policy fields to update")
	}
	add("updated_at", time.Now())

	args = append(args, id)
	query := "UPDATE reorder_policies SET "
	for i, clause := range set {
		if i > 0 {
			query += ", "
		}
		query += clause
	}
	query += fmt.Sprintf(" WHERE id = $%d RETURNING "+policyColumns, len(args))

	var policy domain.ReorderPolicy
	if err := r.db.GetContext(ctx, &policy, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundErrorf("policy %s not found", id)
		}
		return nil, fmt.Errorf("failed to update policy %s: %w", id, err)
	}
	return &policy, nil
}

func (r *policyRepository) ListPolicies(ctx context.Context, onlyActive bool) ([]*domain.ReorderPolicy, error) {
	query := `SELECT ` + policyColumns + ` FROM reorder_policies`
	if onlyActive {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY scope, created_at`

	policies := make([]*domain.ReorderPolicy, 0)
	if err := r.db.SelectContext(ctx, &policies, query); err != nil {
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}
	return policies, nil
}

func (r *policyRepository) PoliciesFor(ctx context.Context, productID, categoryID, supplierID string) ([]*domain.ReorderPolicy, error) {
	query := `
		SELECT ` + policyColumns + `
		FROM reorder_policies
		WHERE is_active
		  AND (scope = 'global'
		   OR (scope = 'product' AND product_id = $1)
		   OR (scope = 'category' AND category_id = $2)
		   OR (scope = 'supplier' AND supplier_id = $3))
	`

	policies := make([]*domain.ReorderPolicy, 0)
	if err := r.db.SelectContext(ctx, &policies, query, productID, categoryID, supplierID); err != nil {
		return nil, fmt.Errorf("failed to load policies for product %s: %w", productID, err)
	}
	return policies, nil
}

func (r *policyRepository) GetSettings(ctx context.Context) (*domain.ReorderSettings, error) {
	query := `
		SELECT auto_reorder_enabled, analysis_frequency_hours,
		       default_confidence_threshold, max_auto_approve_amount, updated_at
		FROM reorder_settings
		WHERE id = 1
	`

	var settings domain.ReorderSettings
	if err := r.db.GetContext(ctx, &settings, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundErrorf("reorder settings not initialized")
		}
		return nil, fmt.Errorf("failed to load reorder settings: %w", err)
	}

	if err := r.db.SelectContext(ctx, &settings.NotificationEmails,
		`SELECT email FROM reorder_notification_emails ORDER BY email`); err != nil {
		return nil, fmt.Errorf("failed to load notification emails: %w", err)
	}
	return &settings, nil
}

func (r *policyRepository) UpdateSettings(ctx context.Context, update domain.SettingsUpdate) (*domain.ReorderSettings, error) {
	settings, err := r.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	update.Apply(settings, time.Now())

	err = r.db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE reorder_settings
			SET auto_reorder_enabled = $1, analysis_frequency_hours = $2,
			    default_confidence_threshold = $3, max_auto_approve_amount = $4,
			    updated_at = $5
			WHERE id = 1
		`, settings.AutoReorderEnabled, settings.AnalysisFrequencyHours,
			settings.DefaultConfidenceThreshold, settings.MaxAutoApproveAmount, settings.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to update settings: %w", err)
		}

		if update.NotificationEmails == nil {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM reorder_notification_emails`); err != nil {
			return fmt.Errorf("failed to clear notification emails: %w", err)
		}
		for _, email := range settings.NotificationEmails {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO reorder_notification_emails (email) VALUES ($1)`, email); err != nil {
				return fmt.Errorf("failed to insert notification email: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settings, nil
}
