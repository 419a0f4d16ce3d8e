package domain

import "time"

// SuggestionFilter narrows suggestion listings. Zero values mean "no filter".
type SuggestionFilter struct {
	Urgency        Urgency          `json:"urgency,omitempty"`
	CategoryID     string           `json:"category_id,omitempty"`
	SupplierID     string           `json:"supplier_id,omitempty"`
	Status         SuggestionStatus `json:"status,omitempty"`
	MinConfidence  float64          `json:"min_confidence,omitempty"`
	IncludeExpired bool             `json:"include_expired,omitempty"`
	Limit          int              `json:"limit,omitempty"`
	Offset         int              `json:"offset,omitempty"`
}

// SuggestionModifications overrides fields of a suggestion during a modify
// action. Nil fields keep the suggested values.
type SuggestionModifications struct {
	Quantity   *int    `json:"quantity,omitempty"`
	SupplierID *string `json:"supplier_id,omitempty"`
}

// PolicyUpdate is a typed partial update for a reorder policy. Nil fields are
// left untouched; each set field is validated individually.
type PolicyUpdate struct {
	MinStockMultiplier     *float64 `json:"min_stock_multiplier,omitempty"`
	MaxOrderQuantity       *int     `json:"max_order_quantity,omitempty"`
	PreferredOrderQuantity *int     `json:"preferred_order_quantity,omitempty"`
	SafetyStockDays        *int     `json:"safety_stock_days,omitempty"`
	ReviewFrequencyDays    *int     `json:"review_frequency_days,omitempty"`
	AutoApproveThreshold   *float64 `json:"auto_approve_threshold,omitempty"`
	IsActive               *bool    `json:"is_active,omitempty"`
}

// Validate checks every set field of a policy update.
func (u PolicyUpdate) Validate() error {
	if u.MinStockMultiplier != nil && *u.MinStockMultiplier <= 0 {
		return ValidationErrorf("min_stock_multiplier must be positive")
	}
	if u.MaxOrderQuantity != nil && *u.MaxOrderQuantity < 0 {
		return ValidationErrorf("max_order_quantity must not be negative")
	}
	if u.PreferredOrderQuantity != nil && *u.PreferredOrderQuantity < 0 {
		return ValidationErrorf("preferred_order_quantity must not be negative")
	}
	if u.SafetyStockDays != nil && *u.SafetyStockDays < 0 {
		return ValidationErrorf("safety_stock_days must not be negative")
	}
	if u.ReviewFrequencyDays != nil && *u.ReviewFrequencyDays <= 0 {
		return ValidationErrorf("review_frequency_days must be positive")
	}
	if u.AutoApproveThreshold != nil && (*u.AutoApproveThreshold < 0 || *u.AutoApproveThreshold > 100) {
		return ValidationErrorf("auto_approve_threshold must be within [0,100]")
	}
	return nil
}

// SettingsUpdate is a typed partial update for the reorder settings singleton.
type SettingsUpdate struct {
	AutoReorderEnabled         *bool     `json:"auto_reorder_enabled,omitempty"`
	AnalysisFrequencyHours     *int      `json:"analysis_frequency_hours,omitempty"`
	DefaultConfidenceThreshold *float64  `json:"default_confidence_threshold,omitempty"`
	MaxAutoApproveAmount       *float64  `json:"max_auto_approve_amount,omitempty"`
	NotificationEmails         *[]string `json:"notification_emails,omitempty"`
}

// Validate checks every set field of a settings update.
func (u SettingsUpdate) Validate() error {
	if u.AnalysisFrequencyHours != nil && *u.AnalysisFrequencyHours <= 0 {
		return ValidationErrorf("analysis_frequency_hours must be positive")
	}
	if u.DefaultConfidenceThreshold != nil && (*u.DefaultConfidenceThreshold < 0 || *u.DefaultConfidenceThreshold > 100) {
		return ValidationErrorf("default_confidence_threshold must be within [0,100]")
	}
	if u.MaxAutoApproveAmount != nil && *u.MaxAutoApproveAmount < 0 {
		return ValidationErrorf("max_auto_approve_amount must not be negative")
	}
	return nil
}

// Apply copies set fields onto the settings value and stamps UpdatedAt.
func (u SettingsUpdate) Apply(s *ReorderSettings, now time.Time) {
	if u.AutoReorderEnabled != nil {
		s.AutoReorderEnabled = *u.AutoReorderEnabled
	}
	if u.AnalysisFrequencyHours != nil {
		s.AnalysisFrequencyHours = *u.AnalysisFrequencyHours
	}
	if u.DefaultConfidenceThreshold != nil {
		s.DefaultConfidenceThreshold = *u.DefaultConfidenceThreshold
	}
	if u.MaxAutoApproveAmount != nil {
		s.MaxAutoApproveAmount = *u.MaxAutoApproveAmount
	}
	if u.NotificationEmails != nil {
		s.NotificationEmails = append([]string(nil), (*u.NotificationEmails)...)
	}
	s.UpdatedAt = now
}

// ValidatePolicy checks the scope invariant of a reorder policy: a non-global
// policy sets exactly one of product/category/supplier.
func ValidatePolicy(p *ReorderPolicy) error {
	set := 0
	if p.ProductID != "" {
		set++
	}
	if p.CategoryID != "" {
		set++
	}
	if p.SupplierID != "" {
		set++
	}

	switch p.Scope {
	case ScopeGlobal:
		if set != 0 {
			return ValidationErrorf("global policy must not set a scope id")
		}
	case ScopeProduct:
		if set != 1 || p.ProductID == "" {
			return ValidationErrorf("product policy must set product_id only")
		}
	case ScopeCategory:
		if set != 1 || p.CategoryID == "" {
			return ValidationErrorf("category policy must set category_id only")
		}
	case ScopeSupplier:
		if set != 1 || p.SupplierID == "" {
			return ValidationErrorf("supplier policy must set supplier_id only")
		}
	default:
		return ValidationErrorf("unknown policy scope %q", p.Scope)
	}

	if p.MinStockMultiplier <= 0 {
		return ValidationErrorf("min_stock_multiplier must be positive")
	}
	if p.SafetyStockDays < 0 {
		return ValidationErrorf("safety_stock_days must not be negative")
	}
	return nil
}
