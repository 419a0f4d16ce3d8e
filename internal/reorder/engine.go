// backend-go/internal/reorder/engine.go
package reorder

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/stockpilot/backend-go/internal/domain"
	"github.com/stockpilot/backend-go/internal/policy"
	"github.com/stockpilot/backend-go/internal/repository"
)

// Engine converts current stock, the resolved policy, and demand signals into
// ranked reorder suggestions, and applies their lifecycle actions.
type Engine struct {
	products    repository.ProductStore
	orders      repository.OrderHistoryStore
	suggestions repository.SuggestionStore
	resolver    *policy.Resolver

	suggestionTTL time.Duration
	now           func() time.Time
}

// NewEngine wires a suggestion engine over its stores.
func NewEngine(
	products repository.ProductStore,
	orders repository.OrderHistoryStore,
	suggestions repository.SuggestionStore,
	resolver *policy.Resolver,
	suggestionTTL time.Duration,
) *Engine {
	if suggestionTTL <= 0 {
		suggestionTTL = 72 * time.Hour
	}
	return &Engine{
		products:      products,
		orders:        orders,
		suggestions:   suggestions,
		resolver:      resolver,
		suggestionTTL: suggestionTTL,
		now:           time.Now,
	}
}

// WithClock overrides the engine's clock.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Evaluate builds and persists a suggestion for the product when its stock
// sits at or below the policy's restock cutoff. It returns nil when the
// product needs no reorder, already has an unexpired pending suggestion, or
// is filtered out by urgencyOnly.
func (e *Engine) Evaluate(ctx context.Context, product *domain.Product, forecast *domain.DemandForecast, urgencyOnly bool) (*domain.ReorderSuggestion, error) {
	if product == nil {
		return nil, domain.ValidationErrorf("product is required")
	}
	if product.LowStockThreshold <= 0 {
		return nil, nil
	}

	resolved, err := e.resolver.Resolve(ctx, product)
	if err != nil {
		return nil, err
	}

	cutoff := float64(product.LowStockThreshold) * resolved.MinStockMultiplier
	if float64(product.CurrentStock) > cutoff {
		return nil, nil
	}

	urgency := classifyUrgency(product.CurrentStock, product.LowStockThreshold)
	if urgencyOnly && urgency != domain.UrgencyCritical && urgency != domain.UrgencyHigh {
		return nil, nil
	}

	now := e.now()

	// A product with a live pending suggestion is skipped rather than
	// duplicated on every re-run.
	pending, err := e.suggestions.HasPendingSuggestion(ctx, product.ID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to check pending suggestions for %s: %w", product.ID, err)
	}
	if pending {
		log.Debug().Str("product_id", product.ID).Msg("pending suggestion exists, skipping")
		return nil, nil
	}

	supplier, err := e.products.GetSupplier(ctx, product.SupplierID)
	if err != nil {
		return nil, fmt.Errorf("failed to load supplier %s: %w", product.SupplierID, err)
	}

	since := now.AddDate(0, 0, -90)
	history, err := e.orders.GetCompletedOrders(ctx, product.ID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load order history for %s: %w", product.ID, err)
	}

	avgOrderQty := float64(product.LowStockThreshold) * 2
	if len(history) > 0 {
		var sum float64
		for _, o := range history {
			sum += float64(o.Quantity)
		}
		avgOrderQty = sum / float64(len(history))
	}

	safetyStock := float64(product.LowStockThreshold) * 0.5
	leadTimeDemand := avgOrderQty * (float64(supplier.LeadTimeDays) / 30.0)
	quantity := int(math.Ceil(leadTimeDemand + safetyStock))
	if quantity < 1 {
		quantity = 1
	}
	if resolved.MaxOrderQuantity > 0 && quantity > resolved.MaxOrderQuantity {
		quantity = resolved.MaxOrderQuantity
	}

	confidence := math.Min(95, float64(len(history))*10+supplier.ReliabilityScore*0.5)

	suggestion := &domain.ReorderSuggestion{
		ID:                uuid.NewString(),
		ProductID:         product.ID,
		SupplierID:        supplier.ID,
		SuggestedQuantity: quantity,
		EstimatedCost:     float64(quantity) * product.UnitPrice,
		Urgency:           urgency,
		ConfidenceScore:   domain.Clamp(confidence, 0, 100),
		Reason:            buildReason(product, resolved, forecast, urgency),
		LeadTimeDays:      supplier.LeadTimeDays,
		Status:            domain.SuggestionPending,
		CreatedByAI:       true,
		CreatedAt:         now,
		ExpiresAt:         now.Add(e.suggestionTTL),
	}

	if err := e.suggestions.InsertSuggestion(ctx, suggestion); err != nil {
		return nil, fmt.Errorf("failed to persist suggestion for %s: %w", product.ID, err)
	}

	log.Info().
		Str("product_id", product.ID).
		Str("urgency", string(urgency)).
		Int("quantity", quantity).
		Msg("reorder suggestion created")

	return suggestion, nil
}

// Process applies a lifecycle action to a pending suggestion with at-most-once
// semantics: the status transition and the audit record commit together.
func (e *Engine) Process(ctx context.Context, id string, action domain.SuggestionAction, reason string, mods *domain.SuggestionModifications) (*domain.ReorderSuggestion, error) {
	current, err := e.suggestions.GetSuggestion(ctx, id)
	if err != nil {
		return nil, err
	}

	actualQty := current.SuggestedQuantity
	actualSupplier := current.SupplierID
	var newStatus domain.SuggestionStatus

	switch action {
	case domain.ActionApprove:
		newStatus = domain.SuggestionApproved
	case domain.ActionReject:
		newStatus = domain.SuggestionRejected
		actualQty = 0
	case domain.ActionModify:
		newStatus = domain.SuggestionApproved
		if mods != nil {
			if mods.Quantity != nil {
				if *mods.Quantity <= 0 {
					return nil, domain.ValidationErrorf("modified quantity must be positive")
				}
				actualQty = *mods.Quantity
			}
			if mods.SupplierID != nil && *mods.SupplierID != "" {
				actualSupplier = *mods.SupplierID
			}
		}
	default:
		return nil, domain.ValidationErrorf("unknown action %q", action)
	}

	unitPrice := 0.0
	if current.SuggestedQuantity > 0 {
		unitPrice = current.EstimatedCost / float64(current.SuggestedQuantity)
	}

	history := &domain.ReorderHistory{
		ID:                uuid.NewString(),
		SuggestionID:      current.ID,
		ProductID:         current.ProductID,
		ActionTaken:       string(newStatus),
		SuggestedQuantity: current.SuggestedQuantity,
		ActualQuantity:    actualQty,
		SuggestedCost:     current.EstimatedCost,
		ActualCost:        float64(actualQty) * unitPrice,
		SupplierID:        actualSupplier,
		Reason:            reason,
		AccuracyScore:     accuracyScore(current.SuggestedQuantity, actualQty, action),
		CreatedAt:         e.now(),
	}

	updated, err := e.suggestions.ApplyAction(ctx, id, newStatus, history)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("suggestion_id", id).
		Str("action", string(action)).
		Str("status", string(updated.Status)).
		Msg("suggestion processed")

	return updated, nil
}

// classifyUrgency maps the stock ratio onto the four-tier scale.
func classifyUrgency(currentStock, lowStockThreshold int) domain.Urgency {
	ratio := float64(currentStock) / float64(lowStockThreshold)
	switch {
	case ratio <= 0.5:
		return domain.UrgencyCritical
	case ratio <= 0.8:
		return domain.UrgencyHigh
	case ratio <= 1.2:
		return domain.UrgencyMedium
	default:
		return domain.UrgencyLow
	}
}

// accuracyScore grades how close the taken action stayed to the suggestion.
func accuracyScore(suggested, actual int, action domain.SuggestionAction) float64 {
	switch action {
	case domain.ActionReject:
		return 0
	case domain.ActionApprove:
		return 100
	}

	if suggested <= 0 {
		return 0
	}
	deviation := math.Abs(float64(actual-suggested)) / float64(suggested) * 100
	return domain.Clamp(100-deviation, 0, 100)
}

func buildReason(product *domain.Product, resolved *domain.ResolvedPolicy, forecast *domain.DemandForecast, urgency domain.Urgency) string {
	reason := fmt.Sprintf("stock %d at or below %.2fx low-stock threshold %d (%s policy, urgency %s)",
		product.CurrentStock, resolved.MinStockMultiplier, product.LowStockThreshold, resolved.MatchedScope, urgency)

	if forecast != nil && forecast.DaysUntilStockout != domain.StockoutUnknown {
		reason += fmt.Sprintf("; projected stockout in %d days", forecast.DaysUntilStockout)
	}

	return reason
}
