package mlclient

import (
	"encoding/json"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/bopt/internal/model"
)

// OptimizeRequest asks the service to split a total across categories.
// Priorities, when set, are weights aligned with Categories.
type OptimizeRequest struct {
	TotalBudget float64  `json:"total_budget"`
	Categories  []string `json:"categories"`
	Priorities  []int    `json:"priorities,omitempty"`
}

// OptimizeResponse is the service's proposed allocation.
type OptimizeResponse struct {
	Allocation map[string]decimal.Decimal `json:"optimized_allocation"`
	Savings    decimal.Decimal            `json:"savings"`
}

// Payload converts the allocation into a suggestion payload. The optimized
// total is the sum of the allocation.
func (r OptimizeResponse) Payload(confidence float64, version string) model.SuggestionPayload {
	names := make([]string, 0, len(r.Allocation))
	total := decimal.Zero
	for name, amt := range r.Allocation {
		names = append(names, name)
		total = total.Add(amt)
	}
	sort.Strings(names)

	savings := r.Savings
	p := model.SuggestionPayload{
		RecommendedCategories:   names,
		SuggestedCategoryLimits: r.Allocation,
		PredictedSavings:        &savings,
		Confidence:              &confidence,
		ModelVersion:            version,
	}
	if total.IsPositive() {
		p.OptimizedBudget = &total
	}
	return p
}

// RawPayload is Payload encoded for ingestion.
func (r OptimizeResponse) RawPayload(confidence float64, version string) ([]byte, error) {
	return json.Marshal(r.Payload(confidence, version))
}

// Item is one historical spend line.
type Item struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Month    string  `json:"month"`
}

// PredictRequest asks for spend forecasts.
type PredictRequest struct {
	Items       []Item `json:"items"`
	MonthsAhead int    `json:"months_ahead"`
}

// MonthForecast is the per-category forecast for one future month.
type MonthForecast struct {
	Month       string                     `json:"month"`
	Predictions map[string]decimal.Decimal `json:"predictions"`
}

// PredictResponse carries forecasts and the model's confidence in them.
type PredictResponse struct {
	Predictions []MonthForecast `json:"predictions"`
	Confidence  float64         `json:"confidence"`
}

// Payload turns the first forecast month into a PREDICTION payload: its
// per-category amounts become suggested limits and their sum the optimized
// total.
func (r PredictResponse) Payload(version string) model.SuggestionPayload {
	confidence := r.Confidence
	p := model.SuggestionPayload{Confidence: &confidence, ModelVersion: version}
	if len(r.Predictions) == 0 {
		return p
	}
	next := r.Predictions[0].Predictions
	total := decimal.Zero
	for name, amt := range next {
		p.RecommendedCategories = append(p.RecommendedCategories, name)
		total = total.Add(amt)
	}
	sort.Strings(p.RecommendedCategories)
	p.SuggestedCategoryLimits = next
	if total.IsPositive() {
		p.OptimizedBudget = &total
	}
	return p
}

// Analysis summarizes historical spend.
type Analysis struct {
	TotalSpending   decimal.Decimal            `json:"total_spending"`
	ByCategory      map[string]decimal.Decimal `json:"by_category"`
	Percentages     map[string]float64         `json:"percentages"`
	HighestCategory string                     `json:"highest_category"`
	Recommendations []string                   `json:"recommendations"`
}

// Payload turns an analysis into an ANALYSIS suggestion payload.
func (a Analysis) Payload(confidence float64, version string) model.SuggestionPayload {
	var cats []string
	if a.HighestCategory != "" {
		cats = []string{a.HighestCategory}
	}
	return model.SuggestionPayload{
		RecommendedCategories: cats,
		Alerts:                a.Recommendations,
		Confidence:            &confidence,
		ModelVersion:          version,
	}
}

// Health is the service health probe body.
type Health struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}
