package config

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/bopt/internal/model"
)

// PeriodInfo holds the canonical length of a budget period.
type PeriodInfo struct {
	Days           int
	PeriodsPerYear int
}

// Periods maps each budget period to its length. CUSTOM has no canonical length.
var Periods = map[model.Period]PeriodInfo{
	model.PeriodDaily:     {Days: 1, PeriodsPerYear: 365},
	model.PeriodWeekly:    {Days: 7, PeriodsPerYear: 52},
	model.PeriodBiweekly:  {Days: 15, PeriodsPerYear: 24},
	model.PeriodMonthly:   {Days: 30, PeriodsPerYear: 12},
	model.PeriodQuarterly: {Days: 90, PeriodsPerYear: 4},
	model.PeriodBiannual:  {Days: 180, PeriodsPerYear: 2},
	model.PeriodYearly:    {Days: 365, PeriodsPerYear: 1},
	model.PeriodCustom:    {},
}

// PeriodEnd returns start plus the period length, or the zero time for CUSTOM.
func PeriodEnd(p model.Period, start time.Time) time.Time {
	info := Periods[p]
	if info.Days == 0 {
		return time.Time{}
	}
	return start.AddDate(0, 0, info.Days)
}

// DailyBudget spreads total over the period's days. CUSTOM returns total.
func DailyBudget(p model.Period, total decimal.Decimal) decimal.Decimal {
	info := Periods[p]
	if info.Days == 0 {
		return total
	}
	return total.Div(decimal.NewFromInt(int64(info.Days))).Round(2)
}

// AnnualBudget scales total to a year. CUSTOM returns total.
func AnnualBudget(p model.Period, total decimal.Decimal) decimal.Decimal {
	info := Periods[p]
	if info.PeriodsPerYear == 0 {
		return total
	}
	return total.Mul(decimal.NewFromInt(int64(info.PeriodsPerYear)))
}

// IsShortTerm reports periods shorter than 30 days.
func IsShortTerm(p model.Period) bool {
	d := Periods[p].Days
	return d > 0 && d < 30
}

// BusinessTypeInfo holds spend metadata for a business type.
type BusinessTypeInfo struct {
	AvgCustomerSpend float64
	Adjustment       float64
}

// BusinessTypes maps each business type to its spend metadata.
var BusinessTypes = map[model.BusinessType]BusinessTypeInfo{
	model.BusinessRestaurant:   {AvgCustomerSpend: 50, Adjustment: 1.5},
	model.BusinessGym:          {AvgCustomerSpend: 30, Adjustment: 1.3},
	model.BusinessGrocery:      {AvgCustomerSpend: 20, Adjustment: 1.1},
	model.BusinessBakery:       {AvgCustomerSpend: 15, Adjustment: 1.2},
	model.BusinessStore:        {AvgCustomerSpend: 25, Adjustment: 1.1},
	model.BusinessStreetVendor: {AvgCustomerSpend: 10, Adjustment: 0.8},
}

// EstimatedMonthlyBudget is average spend x clients per day x 30 days.
func EstimatedMonthlyBudget(t model.BusinessType, clientsPerDay int) decimal.Decimal {
	info := BusinessTypes[t]
	return decimal.NewFromFloat(info.AvgCustomerSpend).
		Mul(decimal.NewFromInt(int64(clientsPerDay))).
		Mul(decimal.NewFromInt(30))
}

// AdjustedPrice scales a base price by the business type's factor.
func AdjustedPrice(t model.BusinessType, base decimal.Decimal) decimal.Decimal {
	info, ok := BusinessTypes[t]
	if !ok {
		return base
	}
	return base.Mul(decimal.NewFromFloat(info.Adjustment)).Round(2)
}

// SuggestionTypeInfo ranks a suggestion type. Lower priority is more urgent.
type SuggestionTypeInfo struct {
	Priority       int
	ActionRequired bool
}

// SuggestionTypes maps each suggestion type to its rank.
var SuggestionTypes = map[model.SuggestionType]SuggestionTypeInfo{
	model.SuggestionPrediction:     {Priority: 3, ActionRequired: false},
	model.SuggestionSuggestion:     {Priority: 2, ActionRequired: true},
	model.SuggestionRecommendation: {Priority: 2, ActionRequired: true},
	model.SuggestionAnalysis:       {Priority: 4, ActionRequired: false},
	model.SuggestionAlert:          {Priority: 1, ActionRequired: true},
	model.SuggestionWarning:        {Priority: 2, ActionRequired: true},
	model.SuggestionInsight:        {Priority: 3, ActionRequired: false},
	model.SuggestionGoalTracking:   {Priority: 3, ActionRequired: false},
	model.SuggestionSavings:        {Priority: 1, ActionRequired: true},
}

// Priority returns the type's rank, or a rank below every known type.
func Priority(t model.SuggestionType) int {
	if info, ok := SuggestionTypes[t]; ok {
		return info.Priority
	}
	return 99
}

// IsHighPriority reports priority <= 2.
func IsHighPriority(t model.SuggestionType) bool {
	return Priority(t) <= 2
}

// IsCritical reports ALERT and WARNING.
func IsCritical(t model.SuggestionType) bool {
	return t == model.SuggestionAlert || t == model.SuggestionWarning
}
