package model

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestStatusPredicates(t *testing.T) {
	tests := []struct {
		status            BudgetStatus
		editable, accepts bool
		terminal          bool
	}{
		{StatusDraft, true, false, false},
		{StatusActive, false, true, false},
		{StatusPaused, true, false, false},
		{StatusExceeded, false, true, false},
		{StatusCompleted, false, false, true},
		{StatusCancelled, false, false, true},
		{StatusArchived, false, false, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.editable, tt.status.Editable(), "%s editable", tt.status)
		assert.Equal(t, tt.accepts, tt.status.AcceptsExpenses(), "%s accepts", tt.status)
		assert.Equal(t, tt.terminal, tt.status.Terminal(), "%s terminal", tt.status)
	}
}

func TestParseEnums(t *testing.T) {
	s, err := ParseBudgetStatus(" exceeded ")
	require.NoError(t, err)
	assert.Equal(t, StatusExceeded, s)

	_, err = ParsePeriod("fortnightly")
	assert.True(t, IsValidation(err))

	m, err := ParsePaymentMethod("")
	require.NoError(t, err)
	assert.Equal(t, PaymentOther, m)

	st, err := ParseSuggestionType("")
	require.NoError(t, err)
	assert.Equal(t, SuggestionRecommendation, st)

	bt, err := ParseBusinessType("panaderia")
	require.NoError(t, err)
	assert.Equal(t, BusinessBakery, bt)
}

func TestLimitUsage(t *testing.T) {
	lim := CategoryLimit{Allocated: dec("200"), Spent: dec("50")}
	assert.True(t, lim.PercentUsed().Equal(dec("25")))
	assert.False(t, lim.NearLimit(DefaultNearLimitPercent))
	assert.True(t, lim.CanAfford(dec("150")))
	assert.False(t, lim.CanAfford(dec("150.01")))

	lim.Charge(dec("150"))
	assert.True(t, lim.PercentUsed().Equal(dec("100")))
	assert.True(t, lim.NearLimit(DefaultNearLimitPercent))
	assert.False(t, lim.OverLimit())

	lim.Charge(dec("1"))
	assert.True(t, lim.OverLimit())
	assert.True(t, lim.Remaining().Equal(dec("-1")))

	unallocated := CategoryLimit{Spent: dec("900")}
	assert.True(t, unallocated.PercentUsed().IsZero())
	assert.True(t, unallocated.OverLimit())
}

func TestRefundFloorsAtZero(t *testing.T) {
	lim := CategoryLimit{Allocated: dec("10"), Spent: dec("5")}
	lim.Refund(dec("3"))
	assert.True(t, lim.Spent.Equal(dec("2")))
	lim.Refund(dec("3"))
	assert.True(t, lim.Spent.IsZero())
	lim.Refund(dec("3"))
	assert.True(t, lim.Spent.IsZero())
}

func TestLedgerTotalsAndConsistency(t *testing.T) {
	l := Ledger{
		Budget: Budget{Total: dec("1000")},
		Limits: []CategoryLimit{
			{Category: "food", Allocated: dec("200"), Spent: dec("200")},
			{Category: "travel", Spent: dec("900")},
		},
		Expenses: []Expense{
			{ID: "e1", Category: "food", Amount: dec("50")},
			{ID: "e2", Category: "food", Amount: dec("150")},
			{ID: "e3", Category: "travel", Amount: dec("900")},
		},
	}
	assert.True(t, l.TotalSpent().Equal(dec("1100")))
	assert.True(t, l.LimitSpent().Equal(l.TotalSpent()))
	assert.True(t, l.Allocated().Equal(dec("200")))
	assert.True(t, l.Remaining().Equal(dec("-100")))
	assert.True(t, l.OverBudget())
	assert.True(t, l.Consistent())
	assert.Equal(t, 1, l.Expense("e2"))
	assert.Equal(t, -1, l.Expense("nope"))
	require.NotNil(t, l.Limit("travel"))
	assert.Nil(t, l.Limit("fuel"))

	l.Limit("food").Spent = dec("199")
	assert.False(t, l.Consistent())

	// An expense whose category has no limit is drift too.
	orphan := Ledger{Expenses: []Expense{{Category: "fuel", Amount: dec("1")}}}
	assert.False(t, orphan.Consistent())
}

func TestDaysLeft(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, Budget{}.DaysLeft(now))
	assert.Equal(t, 0, Budget{End: now.Add(-time.Hour)}.DaysLeft(now))
	assert.Equal(t, 3, Budget{End: now.Add(3*24*time.Hour + time.Hour)}.DaysLeft(now))
	assert.True(t, Budget{End: now.Add(-time.Second)}.Expired(now))
	assert.False(t, Budget{}.Expired(now))
}

func TestPriceRange(t *testing.T) {
	p := PriceRange{Min: dec("10"), Max: dec("40")}
	assert.NoError(t, p.Validate())
	assert.True(t, p.Contains(dec("10")))
	assert.True(t, p.Contains(dec("40")))
	assert.False(t, p.Contains(dec("41")))
	assert.True(t, p.CoveredBy(dec("100")))
	assert.False(t, p.CoveredBy(dec("9.99")))
	assert.True(t, p.Midpoint().Equal(dec("25")))

	p.Avg = dec("18")
	assert.True(t, p.Midpoint().Equal(dec("18")))

	assert.True(t, IsValidation(PriceRange{Min: dec("-1"), Max: dec("1")}.Validate()))
	assert.True(t, IsValidation(PriceRange{Min: dec("5"), Max: dec("1")}.Validate()))
}

func TestReviews(t *testing.T) {
	assert.Nil(t, AverageRating(nil))
	avg := AverageRating([]Review{{Score: 5}, {Score: 4}, {Score: 2}})
	require.NotNil(t, avg)
	assert.InDelta(t, 11.0/3, *avg, 1e-9)

	cutoff := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := Review{Score: 4, At: cutoff.Add(time.Hour)}
	assert.True(t, r.Positive())
	assert.True(t, r.RecentSince(cutoff))
	assert.False(t, Review{Score: 3, At: cutoff}.Positive())
	assert.False(t, Review{At: cutoff}.RecentSince(cutoff))

	assert.NoError(t, ValidateScore(1))
	assert.Error(t, ValidateScore(0))
	assert.Error(t, ValidateScore(6))

	b := Business{Categories: []string{"Food", "bakery"}}
	assert.True(t, b.HasCategory("coffee", "food"))
	assert.False(t, b.HasCategory("gym"))
}

func TestDecodePayload(t *testing.T) {
	p, err := DecodePayload(nil)
	require.NoError(t, err)
	assert.Nil(t, p.OptimizedBudget)

	p, err = DecodePayload([]byte(`null`))
	require.NoError(t, err)
	assert.Empty(t, p.Alerts)

	p, err = DecodePayload([]byte(`{"optimized_budget":"850.50","alerts":["a"],"unknown":1}`))
	require.NoError(t, err)
	require.NotNil(t, p.OptimizedBudget)
	assert.True(t, p.OptimizedBudget.Equal(dec("850.50")))

	_, err = DecodePayload([]byte(`{"alerts":"not-a-list"}`))
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = DecodePayload([]byte(`{`))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestSuggestionProjections(t *testing.T) {
	empty := Suggestion{}
	assert.Empty(t, empty.BusinessIDs())
	_, ok := empty.OptimizedTotal()
	assert.False(t, ok)
	assert.NotNil(t, empty.Alerts())
	assert.Empty(t, empty.Alerts())
	assert.True(t, empty.Savings().IsZero())
	assert.Empty(t, empty.LimitCategories())

	total, savings := dec("900"), dec("120")
	s := Suggestion{Payload: SuggestionPayload{
		OptimizedBudget:  &total,
		PredictedSavings: &savings,
		Alerts:           []string{"dining trending up"},
		RecommendedBusinesses: []RecommendedBusiness{
			{ID: "b2"}, {Name: "no id"}, {ID: "b1"},
		},
		SuggestedCategoryLimits: map[string]decimal.Decimal{
			"transport": dec("100"), "food": dec("300"),
		},
	}}
	got, ok := s.OptimizedTotal()
	assert.True(t, ok)
	assert.True(t, got.Equal(total))
	assert.True(t, s.Savings().Equal(savings))
	assert.Equal(t, []string{"b2", "b1"}, s.BusinessIDs())
	assert.Equal(t, []string{"food", "transport"}, s.LimitCategories())

	// Alerts returns a copy.
	s.Alerts()[0] = "changed"
	assert.Equal(t, "dining trending up", s.Payload.Alerts[0])
}

func TestErrorTaxonomy(t *testing.T) {
	err := fmt.Errorf("activate: %w", &TransitionError{From: StatusCompleted, Action: "activate"})
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
	assert.Contains(t, err.Error(), "cannot activate budget in status COMPLETED")

	nf := NotFound("budget", "b1")
	assert.ErrorIs(t, nf, ErrNotFound)
	assert.Contains(t, nf.Error(), `budget "b1"`)

	ve := Invalid("amount", "must be positive", "-5")
	var target *ValidationError
	require.True(t, errors.As(fmt.Errorf("post: %w", ve), &target))
	assert.Equal(t, "amount", target.Field)
	assert.Equal(t, "validation error on field 'amount': must be positive (got -5)", ve.Error())
	assert.Equal(t, "validation error on field 'x': bad", Invalid("x", "bad", nil).Error())
	assert.False(t, IsValidation(ErrNotFound))
}
