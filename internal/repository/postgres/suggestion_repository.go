// backend-go/internal/repository/postgres/suggestion_repository.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/stockpilot/backend-go/internal/domain"
	"github.com/stockpilot/backend-go/internal/repository"
)

type suggestionRepository struct {
	db *DB
}

// NewSuggestionRepository persists reorder suggestions and their audit trail.
func NewSuggestionRepository(db *DB) *suggestionRepository {
	return &suggestionRepository{db: db}
}

var _ repository.SuggestionStore = (*suggestionRepository)(nil)

const suggestionColumns = `
	id, product_id, supplier_id, suggested_quantity, estimated_cost,
	urgency, confidence_score, reason, lead_time_days, status,
	created_by_ai, created_at, expires_at
`

func (r *suggestionRepository) InsertSuggestion(ctx context.Context, s *domain.ReorderSuggestion) error {
	query := `
		INSERT INTO reorder_suggestions (` + suggestionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.ProductID, s.SupplierID, s.SuggestedQuantity, s.EstimatedCost,
		s.Urgency, s.ConfidenceScore, s.Reason, s.LeadTimeDays, s.Status,
		s.CreatedByAI, s.CreatedAt, s.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert suggestion: %w", err)
	}
	return nil
}

func (r *suggestionRepository) GetSuggestion(ctx context.Context, id string) (*domain.ReorderSuggestion, error) {
	query := `SELECT ` + suggestionColumns + ` FROM reorder_suggestions WHERE id = $1`

	var suggestion domain.ReorderSuggestion
	if err := r.db.GetContext(ctx, &suggestion, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundErrorf("suggestion %s not found", id)
		}
		return nil, fmt.Errorf("failed to load suggestion %s: %w", id, err)
	}
	return &suggestion, nil
}

func (r *suggestionRepository) ListSuggestions(ctx context.Context, filter domain.SuggestionFilter, now time.Time) ([]*domain.ReorderSuggestion, error) {
	query := `
		SELECT ` + suggestionColumns + `
		FROM reorder_suggestions s
		WHERE 1=1
	`
	args := make([]interface{}, 0, 6)

	if filter.Urgency != "" {
		args = append(args, filter.Urgency)
		query += fmt.Sprintf(" AND urgency = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.MinConfidence > 0 {
		args = append(args, filter.MinConfidence)
		query += fmt.Sprintf(" AND confidence_score >= $%d", len(args))
	}
	if filter.CategoryID != "" {
		args = append(args, filter.CategoryID)
		query += fmt.Sprintf(" AND EXISTS (SELECT 1 FROM products p WHERE p.id = s.product_id AND p.category_id = $%d)", len(args))
	}
	if filter.SupplierID != "" {
		args = append(args, filter.SupplierID)
		query += fmt.Sprintf(" AND supplier_id = $%d", len(args))
	}
	if !filter.IncludeExpired {
		args = append(args, now)
		query += fmt.Sprintf(" AND (status <> 'pending' OR expires_at > $%d)", len(args))
	}

	// Critical first, then freshest.
	query += `
		ORDER BY CASE urgency
			WHEN 'critical' THEN 0
			WHEN 'high' THEN 1
			WHEN 'medium' THEN 2
			ELSE 3
		END, created_at DESC
	`

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	suggestions := make([]*domain.ReorderSuggestion, 0)
	if err := r.db.SelectContext(ctx, &suggestions, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list suggestions: %w", err)
	}
	return suggestions, nil
}

func (r *suggestionRepository) HasPendingSuggestion(ctx context.Context, productID string, now time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM reorder_suggestions
			WHERE product_id = $1 AND status = 'pending' AND expires_at > $2
		)
	`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, productID, now); err != nil {
		return false, fmt.Errorf("failed to check pending suggestions for %s: %w", productID, err)
	}
	return exists, nil
}

// ApplyAction transitions a pending suggestion and appends its audit record
// in one transaction. The status guard in the UPDATE makes concurrent actions
// on the same suggestion lose with a conflict instead of double-applying.
func (r *suggestionRepository) ApplyAction(ctx context.Context, id string, newStatus domain.SuggestionStatus, history *domain.ReorderHistory) (*domain.ReorderSuggestion, error) {
	var updated domain.ReorderSuggestion

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			UPDATE reorder_suggestions
			SET status = $1
			WHERE id = $2 AND status = 'pending'
			RETURNING `+suggestionColumns,
			newStatus, id)

		if err := row.Scan(
			&updated.ID, &updated.ProductID, &updated.SupplierID,
			&updated.SuggestedQuantity, &updated.EstimatedCost,
			&updated.Urgency, &updated.ConfidenceScore, &updated.Reason,
			&updated.LeadTimeDays, &updated.Status, &updated.CreatedByAI,
			&updated.CreatedAt, &updated.ExpiresAt,
		); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return r.classifyActionMiss(ctx, tx, id)
			}
			return fmt.Errorf("failed to transition suggestion %s: %w", id, err)
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO reorder_history (
				id, suggestion_id, product_id, action_taken,
				suggested_quantity, actual_quantity, suggested_cost, actual_cost,
				supplier_id, reason, accuracy_score, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, history.ID, history.SuggestionID, history.ProductID, history.ActionTaken,
			history.SuggestedQuantity, history.ActualQuantity, history.SuggestedCost,
			history.ActualCost, history.SupplierID, history.Reason,
			history.AccuracyScore, history.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to append reorder history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// classifyActionMiss distinguishes an unknown suggestion from one that was
// already processed.
func (r *suggestionRepository) classifyActionMiss(ctx context.Context, tx *sql.Tx, id string) error {
	var status domain.SuggestionStatus
	err := tx.QueryRowContext(ctx,
		`SELECT status FROM reorder_suggestions WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFoundErrorf("suggestion %s not found", id)
	}
	if err != nil {
		return fmt.Errorf("failed to inspect suggestion %s: %w", id, err)
	}
	return domain.ConflictErrorf("suggestion %s is %s, only pending suggestions can be processed", id, status)
}

func (r *suggestionRepository) ListHistory(ctx context.Context, productID string, limit int) ([]*domain.ReorderHistory, error) {
	query := `
		SELECT id, suggestion_id, product_id, action_taken,
		       suggested_quantity, actual_quantity, suggested_cost, actual_cost,
		       supplier_id, reason, accuracy_score, created_at
		FROM reorder_history
		WHERE product_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	history := make([]*domain.ReorderHistory, 0)
	if err := r.db.SelectContext(ctx, &history, query, productID, limit); err != nil {
		return nil, fmt.Errorf("failed to list reorder history for %s: %w", productID, err)
	}
	return history, nil
}
