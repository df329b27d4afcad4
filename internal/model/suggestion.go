package model

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SuggestionType classifies an optimization suggestion. Priorities live in
// config.SuggestionTypeInfo.
type SuggestionType string

const (
	SuggestionPrediction     SuggestionType = "PREDICTION"
	SuggestionSuggestion     SuggestionType = "SUGGESTION"
	SuggestionRecommendation SuggestionType = "RECOMMENDATION"
	SuggestionAnalysis       SuggestionType = "ANALYSIS"
	SuggestionAlert          SuggestionType = "ALERT"
	SuggestionWarning        SuggestionType = "WARNING"
	SuggestionInsight        SuggestionType = "INSIGHT"
	SuggestionGoalTracking   SuggestionType = "GOAL_TRACKING"
	SuggestionSavings        SuggestionType = "SAVINGS_OPPORTUNITY"
)

// AllSuggestionTypes lists every suggestion type.
var AllSuggestionTypes = []SuggestionType{
	SuggestionPrediction, SuggestionSuggestion, SuggestionRecommendation,
	SuggestionAnalysis, SuggestionAlert, SuggestionWarning, SuggestionInsight,
	SuggestionGoalTracking, SuggestionSavings,
}

// ParseSuggestionType is case-insensitive; empty means RECOMMENDATION.
func ParseSuggestionType(s string) (SuggestionType, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return SuggestionRecommendation, nil
	}
	return parseEnum("type", s, AllSuggestionTypes)
}

// RecommendedBusiness is one business entry in a suggestion payload.
type RecommendedBusiness struct {
	ID            string          `json:"id"`
	Name          string          `json:"name,omitempty"`
	EstimatedCost decimal.Decimal `json:"estimated_cost"`
}

// SuggestionPayload is the model output. Every field is optional.
type SuggestionPayload struct {
	OptimizedBudget         *decimal.Decimal           `json:"optimized_budget,omitempty"`
	RecommendedCategories   []string                   `json:"recommended_categories,omitempty"`
	SuggestedCategoryLimits map[string]decimal.Decimal `json:"suggested_category_limits,omitempty"`
	RecommendedBusinesses   []RecommendedBusiness      `json:"recommended_businesses,omitempty"`
	PredictedSavings        *decimal.Decimal           `json:"predicted_savings,omitempty"`
	Alerts                  []string                   `json:"alerts,omitempty"`
	Confidence              *float64                   `json:"confidence,omitempty"`
	ModelVersion            string                     `json:"model_version,omitempty"`
}

// DecodePayload parses raw model output. Empty input and JSON null decode to
// an empty payload; anything not shaped like the payload wraps ErrInvalidPayload.
func DecodePayload(raw []byte) (SuggestionPayload, error) {
	var p SuggestionPayload
	if len(strings.TrimSpace(string(raw))) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return SuggestionPayload{}, &payloadError{err: err}
	}
	return p, nil
}

type payloadError struct{ err error }

func (e *payloadError) Error() string { return ErrInvalidPayload.Error() + ": " + e.err.Error() }
func (e *payloadError) Unwrap() []error {
	return []error{ErrInvalidPayload, e.err}
}

// Suggestion is an ingested optimization suggestion.
type Suggestion struct {
	ID         string
	UserID     string
	BudgetID   string // optional
	Type       SuggestionType
	Confidence float64
	Payload    SuggestionPayload
	Raw        json.RawMessage
	Applied    bool
	AppliedAt  *time.Time
	CreatedAt  time.Time
}

// BusinessIDs projects recommended business ids in payload order.
func (s Suggestion) BusinessIDs() []string {
	ids := make([]string, 0, len(s.Payload.RecommendedBusinesses))
	for _, b := range s.Payload.RecommendedBusinesses {
		if b.ID != "" {
			ids = append(ids, b.ID)
		}
	}
	return ids
}

// OptimizedTotal projects the optimized budget total, if present.
func (s Suggestion) OptimizedTotal() (decimal.Decimal, bool) {
	if s.Payload.OptimizedBudget == nil {
		return decimal.Zero, false
	}
	return *s.Payload.OptimizedBudget, true
}

// Alerts projects alert strings, never nil.
func (s Suggestion) Alerts() []string {
	if s.Payload.Alerts == nil {
		return []string{}
	}
	return append([]string(nil), s.Payload.Alerts...)
}

// Savings projects predicted savings, zero when absent.
func (s Suggestion) Savings() decimal.Decimal {
	if s.Payload.PredictedSavings == nil {
		return decimal.Zero
	}
	return *s.Payload.PredictedSavings
}

// LimitCategories returns the payload's limit categories in sorted order.
func (s Suggestion) LimitCategories() []string {
	names := make([]string, 0, len(s.Payload.SuggestedCategoryLimits))
	for name := range s.Payload.SuggestedCategoryLimits {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
