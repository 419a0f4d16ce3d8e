package domain

import "strings"

// SuggestionAction is a lifecycle action requested on a pending suggestion.
type SuggestionAction string

const (
	ActionApprove SuggestionAction = "approve"
	ActionReject  SuggestionAction = "reject"
	ActionModify  SuggestionAction = "modify"
)

var suggestionActions = map[string]SuggestionAction{
	"approve": ActionApprove,
	"reject":  ActionReject,
	"modify":  ActionModify,
}

// ParseSuggestionAction returns the action for a label (case-insensitive).
func ParseSuggestionAction(label string) (SuggestionAction, bool) {
	action, ok := suggestionActions[strings.ToLower(strings.TrimSpace(label))]

	return action, ok
}

var urgencies = map[string]Urgency{
	"critical": UrgencyCritical,
	"high":     UrgencyHigh,
	"medium":   UrgencyMedium,
	"low":      UrgencyLow,
}

// ParseUrgency returns the urgency tier for a label (case-insensitive).
func ParseUrgency(label string) (Urgency, bool) {
	u, ok := urgencies[strings.ToLower(strings.TrimSpace(label))]

	return u, ok
}

// urgencyRank orders tiers from most to least urgent for ranking suggestions.
var urgencyRank = map[Urgency]int{
	UrgencyCritical: 0,
	UrgencyHigh:     1,
	UrgencyMedium:   2,
	UrgencyLow:      3,
}

// UrgencyRank returns the sort rank of an urgency tier (critical first).
func UrgencyRank(u Urgency) int {
	if rank, ok := urgencyRank[u]; ok {
		return rank
	}

	return len(urgencyRank)
}

var analysisScopes = map[string]AnalysisScope{
	"all":      AnalysisAll,
	"category": AnalysisCategory,
	"supplier": AnalysisSupplier,
	"product":  AnalysisProduct,
}

// ParseAnalysisScope returns the scope for a label (case-insensitive).
func ParseAnalysisScope(label string) (AnalysisScope, bool) {
	scope, ok := analysisScopes[strings.ToLower(strings.TrimSpace(label))]

	return scope, ok
}

var suggestionStatuses = map[string]SuggestionStatus{
	"pending":  SuggestionPending,
	"approved": SuggestionApproved,
	"rejected": SuggestionRejected,
	"ordered":  SuggestionOrdered,
}

// ParseSuggestionStatus returns the status for a label (case-insensitive).
func ParseSuggestionStatus(label string) (SuggestionStatus, bool) {
	status, ok := suggestionStatuses[strings.ToLower(strings.TrimSpace(label))]

	return status, ok
}
