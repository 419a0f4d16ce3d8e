// backend-go/internal/domain/models.go
package domain

import "time"

// Product is the slice of the product catalog the reorder core reads.
// CRUD for products lives outside this service.
type Product struct {
	ID                string    `json:"id" db:"id"`
	SKU               string    `json:"sku" db:"sku"`
	Name              string    `json:"name" db:"name"`
	CategoryID        string    `json:"category_id" db:"category_id"`
	CategoryName      string    `json:"category_name" db:"category_name"`
	SupplierID        string    `json:"supplier_id" db:"supplier_id"`
	CurrentStock      int       `json:"current_stock" db:"current_stock"`
	LowStockThreshold int       `json:"low_stock_threshold" db:"low_stock_threshold"`
	UnitPrice         float64   `json:"unit_price" db:"unit_price"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// Supplier carries the supplier attributes the suggestion engine needs.
type Supplier struct {
	ID               string  `json:"id" db:"id"`
	Name             string  `json:"name" db:"name"`
	LeadTimeDays     int     `json:"lead_time_days" db:"lead_time_days"`
	ReliabilityScore float64 `json:"reliability_score" db:"reliability_score"`
	ActivePromotion  bool    `json:"active_promotion" db:"active_promotion"`
}

// OrderRecord is a completed order line used for demand estimation.
type OrderRecord struct {
	ProductID string    `json:"product_id" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	OrderedAt time.Time `json:"ordered_at" db:"ordered_at"`
}

// DemandPoint is one day of observed or synthesized demand.
type DemandPoint struct {
	Date     time.Time `json:"date"`
	Quantity int       `json:"quantity"`
}

// SeriesSource tags how a demand series was produced. Consumers weight
// forecast confidence differently for synthetic series.
type SeriesSource string

const (
	SeriesObserved  SeriesSource = "observed"
	SeriesSynthetic SeriesSource = "synthetic"
)

// DemandSeries is a fully materialized daily demand window, oldest first.
type DemandSeries struct {
	ProductID string        `json:"product_id"`
	Points    []DemandPoint `json:"points"`
	Source    SeriesSource  `json:"source"`
}

// TrendDirection classifies the fitted demand trend.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// TrendResult is the output of the trend analyzer.
type TrendResult struct {
	Direction  TrendDirection `json:"direction"`
	Strength   float64        `json:"strength"`   // [0,1]
	Confidence float64        `json:"confidence"` // [50,100]
}

// SeasonalPattern is a per-calendar-month demand multiplier. The set emitted
// by the detector is sparse; a missing month means factor 1.0.
type SeasonalPattern struct {
	Month      time.Month `json:"month"`
	Factor     float64    `json:"factor"`
	Confidence float64    `json:"confidence"` // [50,100]
}

// ConfidenceInterval bounds one forecasted day.
type ConfidenceInterval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// ExternalFactors are optional forecast adjustments derived from the calendar,
// the supplier, and recent order volume.
type ExternalFactors struct {
	UpcomingHoliday  bool    `json:"upcoming_holiday"`
	ActivePromotion  bool    `json:"active_promotion"`
	MarketTrendRatio float64 `json:"market_trend_ratio"`
}

// StockoutUnknown is returned as DaysUntilStockout when average daily demand
// is zero or negative.
const StockoutUnknown = 9999

// DemandForecast is the day-by-day projection for one product.
type DemandForecast struct {
	ProductID           string               `json:"product_id"`
	GeneratedAt         time.Time            `json:"generated_at"`
	HorizonDays         int                  `json:"horizon_days"`
	Source              SeriesSource         `json:"source"`
	AvgDailyDemand      float64              `json:"avg_daily_demand"`
	ForecastedDemand    []int                `json:"forecasted_demand"`
	ConfidenceIntervals []ConfidenceInterval `json:"confidence_intervals,omitempty"`
	Trend               TrendResult          `json:"trend"`
	Seasonality         []SeasonalPattern    `json:"seasonality,omitempty"`
	ExternalFactors     *ExternalFactors     `json:"external_factors,omitempty"`
	Confidence          float64              `json:"confidence"` // [50,100]
	DaysUntilStockout   int                  `json:"days_until_stockout"`
}

// DemandPattern is the persisted per (product, period) demand aggregate.
// Forecasting reads it when fresh instead of rebuilding the daily series.
type DemandPattern struct {
	ProductID         string       `json:"product_id" db:"product_id"`
	PeriodDays        int          `json:"period_days" db:"period_days"`
	Source            SeriesSource `json:"source" db:"source"`
	AvgDailyDemand    float64      `json:"avg_daily_demand" db:"avg_daily_demand"`
	PeakDemand        int          `json:"peak_demand" db:"peak_demand"`
	Variance          float64      `json:"variance" db:"variance"`
	SeasonalityFactor float64      `json:"seasonality_factor" db:"seasonality_factor"`
	TrendFactor       float64      `json:"trend_factor" db:"trend_factor"`
	ComputedAt        time.Time    `json:"computed_at" db:"computed_at"`
}

// PolicyScope is the entity level a reorder policy applies to.
type PolicyScope string

const (
	ScopeGlobal   PolicyScope = "global"
	ScopeCategory PolicyScope = "category"
	ScopeSupplier PolicyScope = "supplier"
	ScopeProduct  PolicyScope = "product"
)

// ReorderPolicy holds the reorder tunables at one scope. A non-global policy
// sets exactly one of ProductID/CategoryID/SupplierID.
type ReorderPolicy struct {
	ID                     string      `json:"id" db:"id"`
	Scope                  PolicyScope `json:"scope" db:"scope"`
	ProductID              string      `json:"product_id,omitempty" db:"product_id"`
	CategoryID             string      `json:"category_id,omitempty" db:"category_id"`
	SupplierID             string      `json:"supplier_id,omitempty" db:"supplier_id"`
	MinStockMultiplier     float64     `json:"min_stock_multiplier" db:"min_stock_multiplier"`
	MaxOrderQuantity       int         `json:"max_order_quantity" db:"max_order_quantity"`
	PreferredOrderQuantity int         `json:"preferred_order_quantity" db:"preferred_order_quantity"`
	SafetyStockDays        int         `json:"safety_stock_days" db:"safety_stock_days"`
	ReviewFrequencyDays    int         `json:"review_frequency_days" db:"review_frequency_days"`
	AutoApproveThreshold   float64     `json:"auto_approve_threshold" db:"auto_approve_threshold"`
	IsActive               bool        `json:"is_active" db:"is_active"`
	CreatedAt              time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time   `json:"updated_at" db:"updated_at"`
}

// ResolvedPolicy is a policy plus the scope level that matched, kept for
// audit/reason text on suggestions.
type ResolvedPolicy struct {
	ReorderPolicy
	MatchedScope PolicyScope `json:"matched_scope"`
}

// Urgency is the qualitative stockout risk tier.
type Urgency string

const (
	UrgencyCritical Urgency = "critical"
	UrgencyHigh     Urgency = "high"
	UrgencyMedium   Urgency = "medium"
	UrgencyLow      Urgency = "low"
)

// SuggestionStatus is the lifecycle state of a reorder suggestion.
type SuggestionStatus string

const (
	SuggestionPending  SuggestionStatus = "pending"
	SuggestionApproved SuggestionStatus = "approved"
	SuggestionRejected SuggestionStatus = "rejected"
	SuggestionOrdered  SuggestionStatus = "ordered"
)

// ReorderSuggestion is an actionable restock recommendation.
type ReorderSuggestion struct {
	ID                string           `json:"id" db:"id"`
	ProductID         string           `json:"product_id" db:"product_id"`
	SupplierID        string           `json:"supplier_id" db:"supplier_id"`
	SuggestedQuantity int              `json:"suggested_quantity" db:"suggested_quantity"`
	EstimatedCost     float64          `json:"estimated_cost" db:"estimated_cost"`
	Urgency           Urgency          `json:"urgency" db:"urgency"`
	ConfidenceScore   float64          `json:"confidence_score" db:"confidence_score"` // [0,100]
	Reason            string           `json:"reason" db:"reason"`
	LeadTimeDays      int              `json:"lead_time_days" db:"lead_time_days"`
	Status            SuggestionStatus `json:"status" db:"status"`
	CreatedByAI       bool             `json:"created_by_ai" db:"created_by_ai"`
	CreatedAt         time.Time        `json:"created_at" db:"created_at"`
	ExpiresAt         time.Time        `json:"expires_at" db:"expires_at"`
}

// Expired reports whether a pending suggestion has gone stale.
func (s *ReorderSuggestion) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// ReorderHistory is the append-only audit record for a suggestion action.
type ReorderHistory struct {
	ID                string    `json:"id" db:"id"`
	SuggestionID      string    `json:"suggestion_id" db:"suggestion_id"`
	ProductID         string    `json:"product_id" db:"product_id"`
	ActionTaken       string    `json:"action_taken" db:"action_taken"`
	SuggestedQuantity int       `json:"suggested_quantity" db:"suggested_quantity"`
	ActualQuantity    int       `json:"actual_quantity" db:"actual_quantity"`
	SuggestedCost     float64   `json:"suggested_cost" db:"suggested_cost"`
	ActualCost        float64   `json:"actual_cost" db:"actual_cost"`
	SupplierID        string    `json:"supplier_id" db:"supplier_id"`
	Reason            string    `json:"reason" db:"reason"`
	AccuracyScore     float64   `json:"accuracy_score" db:"accuracy_score"` // [0,100]
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}

// JobStatus is the analysis job state machine.
type JobStatus string

const (
	JobStarted   JobStatus = "started"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// AnalysisScope selects which products an analysis run covers.
type AnalysisScope string

const (
	AnalysisAll      AnalysisScope = "all"
	AnalysisCategory AnalysisScope = "category"
	AnalysisSupplier AnalysisScope = "supplier"
	AnalysisProduct  AnalysisScope = "product"
)

// AnalysisJob tracks one asynchronous analysis run.
type AnalysisJob struct {
	ID                  string        `json:"id"`
	Status              JobStatus     `json:"status"`
	Scope               AnalysisScope `json:"scope"`
	TargetID            string        `json:"target_id,omitempty"`
	UrgencyOnly         bool          `json:"urgency_only"`
	EstimatedCompletion time.Time     `json:"estimated_completion"`
	SuggestionsCount    int           `json:"suggestions_count"`
	Error               string        `json:"error,omitempty"`
	StartedAt           time.Time     `json:"started_at"`
	CompletedAt         *time.Time    `json:"completed_at,omitempty"`
}

// ReorderSettings is the singleton run configuration for the scheduler and
// the suggestion engine. It is threaded explicitly, never held as a global.
type ReorderSettings struct {
	AutoReorderEnabled         bool      `json:"auto_reorder_enabled" db:"auto_reorder_enabled"`
	AnalysisFrequencyHours     int       `json:"analysis_frequency_hours" db:"analysis_frequency_hours"`
	DefaultConfidenceThreshold float64   `json:"default_confidence_threshold" db:"default_confidence_threshold"` // [0,100]
	MaxAutoApproveAmount       float64   `json:"max_auto_approve_amount" db:"max_auto_approve_amount"`
	NotificationEmails         []string  `json:"notification_emails"`
	UpdatedAt                  time.Time `json:"updated_at" db:"updated_at"`
}

// SuggestionSummary is the aggregate block returned alongside suggestion
// listings for the dashboard.
type SuggestionSummary struct {
	Total              int             `json:"total"`
	ByUrgency          map[Urgency]int `json:"by_urgency"`
	PendingCount       int             `json:"pending_count"`
	TotalEstimatedCost float64         `json:"total_estimated_cost"`
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
