package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/theirongolddev/bopt/internal/model"
)

func TestPeriods(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, start.AddDate(0, 0, 30), PeriodEnd(model.PeriodMonthly, start))
	assert.True(t, PeriodEnd(model.PeriodCustom, start).IsZero())

	assert.True(t, DailyBudget(model.PeriodMonthly, decimal.NewFromInt(300)).Equal(decimal.NewFromInt(10)))
	assert.True(t, AnnualBudget(model.PeriodBiweekly, decimal.NewFromInt(100)).Equal(decimal.NewFromInt(2400)))

	assert.True(t, IsShortTerm(model.PeriodWeekly))
	assert.True(t, IsShortTerm(model.PeriodBiweekly))
	assert.False(t, IsShortTerm(model.PeriodMonthly))
	assert.False(t, IsShortTerm(model.PeriodCustom))

	for _, p := range model.AllPeriods {
		_, ok := Periods[p]
		assert.True(t, ok, "missing period %s", p)
	}
}

func TestEstimatedMonthlyBudget(t *testing.T) {
	got := EstimatedMonthlyBudget(model.BusinessRestaurant, 10)
	assert.True(t, got.Equal(decimal.NewFromInt(15000)), "got %s", got)

	assert.True(t, AdjustedPrice(model.BusinessStreetVendor, decimal.NewFromInt(10)).Equal(decimal.NewFromInt(8)))
}

func TestSuggestionPriorities(t *testing.T) {
	assert.True(t, IsHighPriority(model.SuggestionAlert))
	assert.True(t, IsHighPriority(model.SuggestionWarning))
	assert.False(t, IsHighPriority(model.SuggestionAnalysis))
	assert.True(t, IsCritical(model.SuggestionWarning))
	assert.False(t, IsCritical(model.SuggestionSavings))
	assert.Equal(t, 99, Priority("BOGUS"))
}

func TestTiers(t *testing.T) {
	assert.True(t, ApplyDiscount(TierPremium, decimal.NewFromInt(200)).Equal(decimal.NewFromInt(180)))
	assert.True(t, ApplyDiscount(TierUser, decimal.NewFromInt(200)).Equal(decimal.NewFromInt(200)))
	assert.True(t, CanTransact(TierBusiness, 500))
	assert.False(t, CanTransact(TierBusiness, 501))
	assert.True(t, HasAccess(TierAdmin, 3))
	assert.False(t, HasAccess(TierPremium, 3))

	tests := []struct {
		spend   int64
		savings float64
		want    Tier
	}{
		{100, 50, TierUser},
		{1000, 5, TierUser},
		{1000, 12, TierPremium},
		{2500, 0, TierPremium},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RecommendTier(decimal.NewFromInt(tt.spend), tt.savings))
	}

	tier, err := ParseTier("premium")
	assert.NoError(t, err)
	assert.Equal(t, TierPremium, tier)
	_, err = ParseTier("gold")
	assert.Error(t, err)
}
