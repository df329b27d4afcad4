package optimizer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/bopt/internal/ledger"
	"github.com/theirongolddev/bopt/internal/model"
	"github.com/theirongolddev/bopt/internal/store"
)

type fixture struct {
	ctx    context.Context
	st     *store.Memory
	ledger *ledger.Service
	opt    *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemory()
	require.NoError(t, st.Update(ctx, func(w store.Writer) error {
		for _, c := range []model.Category{
			{Name: "food", Usage: model.UsageBoth},
			{Name: "rent", Usage: model.UsageExpense},
			{Name: "gyms", Usage: model.UsageBusiness},
		} {
			if err := w.PutCategory(ctx, c); err != nil {
				return err
			}
		}
		return nil
	}))
	led := ledger.New(st, ledger.DefaultOptions())
	return &fixture{ctx: ctx, st: st, ledger: led, opt: New(st, led, Options{})}
}

func (f *fixture) budget(t *testing.T) model.Budget {
	t.Helper()
	b, err := f.ledger.Create(f.ctx, ledger.NewBudget{
		OwnerID: "u1", Name: "household", Total: decimal.NewFromInt(1000),
		Limits: map[string]decimal.Decimal{"food": decimal.NewFromInt(200)},
	})
	require.NoError(t, err)
	return b
}

func (f *fixture) ingest(t *testing.T, budgetID string, confidence float64, payload string) model.Suggestion {
	t.Helper()
	sg, err := f.opt.Ingest(f.ctx, NewSuggestion{
		UserID: "u1", BudgetID: budgetID, Confidence: confidence, Payload: []byte(payload),
	})
	require.NoError(t, err)
	return sg
}

func TestIngest(t *testing.T) {
	f := newFixture(t)
	b := f.budget(t)

	sg := f.ingest(t, b.ID, 0.9, `{"optimized_budget": "900", "alerts": ["trim food"], "recommended_businesses": [{"id": "b1", "estimated_cost": "12.50"}]}`)
	assert.False(t, sg.Applied)
	assert.Equal(t, model.SuggestionRecommendation, sg.Type)

	got, err := f.opt.Get(f.ctx, sg.ID)
	require.NoError(t, err)
	total, ok := got.OptimizedTotal()
	require.True(t, ok)
	assert.True(t, total.Equal(decimal.NewFromInt(900)))
	assert.Equal(t, []string{"trim food"}, got.Alerts())
	assert.Equal(t, []string{"b1"}, got.BusinessIDs())
	assert.True(t, got.Savings().IsZero())
}

func TestIngest_PartialPayloadIsFine(t *testing.T) {
	f := newFixture(t)
	sg := f.ingest(t, "", 0.5, `{}`)
	_, ok := sg.OptimizedTotal()
	assert.False(t, ok)
	assert.NotNil(t, sg.Alerts())
	assert.Empty(t, sg.Alerts())
	assert.Empty(t, sg.BusinessIDs())

	sg = f.ingest(t, "", 0.5, "")
	assert.Empty(t, sg.LimitCategories())
}

func TestIngest_Rejects(t *testing.T) {
	f := newFixture(t)
	for name, tt := range map[string]struct {
		in   NewSuggestion
		want error
	}{
		"bad json":       {NewSuggestion{UserID: "u1", Confidence: 0.9, Payload: []byte(`{"alerts": 7`)}, model.ErrInvalidPayload},
		"wrong shape":    {NewSuggestion{UserID: "u1", Confidence: 0.9, Payload: []byte(`{"alerts": "x"}`)}, model.ErrInvalidPayload},
		"not an object":  {NewSuggestion{UserID: "u1", Confidence: 0.9, Payload: []byte(`[1, 2]`)}, model.ErrInvalidPayload},
		"unknown budget": {NewSuggestion{UserID: "u1", BudgetID: "nope", Confidence: 0.9}, model.ErrNotFound},
	} {
		_, err := f.opt.Ingest(f.ctx, tt.in)
		assert.ErrorIs(t, err, tt.want, name)
	}

	for name, in := range map[string]NewSuggestion{
		"no user":    {Confidence: 0.9},
		"confidence": {UserID: "u1", Confidence: 1.2},
		"type":       {UserID: "u1", Confidence: 0.9, Type: "GUESS"},
	} {
		_, err := f.opt.Ingest(f.ctx, in)
		assert.True(t, model.IsValidation(err), name)
	}

	all, err := f.opt.List(f.ctx, store.SuggestionFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestApply_ConfidenceBoundary(t *testing.T) {
	f := newFixture(t)
	b := f.budget(t)

	low := f.ingest(t, b.ID, 0.65, `{"suggested_category_limits": {"food": "150"}}`)
	_, err := f.opt.Apply(f.ctx, low.ID)
	assert.ErrorIs(t, err, model.ErrLowConfidence)

	l, err := f.ledger.Get(f.ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, l.Limit("food").Allocated.Equal(decimal.NewFromInt(200)), "no mutation")
	got, err := f.opt.Get(f.ctx, low.ID)
	require.NoError(t, err)
	assert.False(t, got.Applied)

	edge := f.ingest(t, b.ID, 0.70, `{"suggested_category_limits": {"food": "150"}}`)
	res, err := f.opt.Apply(f.ctx, edge.ID)
	require.NoError(t, err)
	assert.True(t, res.Suggestion.Applied)
	require.NotNil(t, res.Suggestion.AppliedAt)
}

func TestApply_LimitsAndTotal(t *testing.T) {
	f := newFixture(t)
	b := f.budget(t)
	sg := f.ingest(t, b.ID, 0.9, `{
		"optimized_budget": "850",
		"suggested_category_limits": {"food": "180", "rent": "500"}
	}`)

	res, err := f.opt.Apply(f.ctx, sg.ID)
	require.NoError(t, err)
	assert.True(t, res.TotalChanged)
	require.Len(t, res.Limits, 2)
	assert.Equal(t, "food", res.Limits[0].Category)
	assert.Equal(t, "rent", res.Limits[1].Category)

	l, err := f.ledger.Get(f.ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, l.Budget.Total.Equal(decimal.NewFromInt(850)))
	assert.True(t, l.Limit("food").Allocated.Equal(decimal.NewFromInt(180)))
	assert.True(t, l.Limit("rent").Allocated.Equal(decimal.NewFromInt(500)))

	_, err = f.opt.Apply(f.ctx, sg.ID)
	assert.ErrorIs(t, err, model.ErrAlreadyApplied)
}

func TestApply_ActiveBudgetKeepsTotalAndSpend(t *testing.T) {
	f := newFixture(t)
	b := f.budget(t)
	_, err := f.ledger.Activate(f.ctx, b.ID)
	require.NoError(t, err)
	_, err = f.ledger.Post(f.ctx, ledger.NewExpense{BudgetID: b.ID, Category: "food", Amount: decimal.NewFromInt(60)})
	require.NoError(t, err)

	sg := f.ingest(t, b.ID, 0.8, `{"optimized_budget": "700", "suggested_category_limits": {"food": "100"}}`)
	res, err := f.opt.Apply(f.ctx, sg.ID)
	require.NoError(t, err)
	assert.False(t, res.TotalChanged)

	l, err := f.ledger.Get(f.ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, l.Budget.Total.Equal(decimal.NewFromInt(1000)))
	food := l.Limit("food")
	assert.True(t, food.Allocated.Equal(decimal.NewFromInt(100)))
	assert.True(t, food.Spent.Equal(decimal.NewFromInt(60)))
	assert.True(t, l.Consistent())
}

func TestApply_AllOrNothing(t *testing.T) {
	f := newFixture(t)
	b := f.budget(t)

	for name, payload := range map[string]string{
		"unknown category":  `{"optimized_budget": "500", "suggested_category_limits": {"food": "10", "zzz": "5"}}`,
		"business category": `{"optimized_budget": "500", "suggested_category_limits": {"food": "10", "gyms": "5"}}`,
		"negative":          `{"optimized_budget": "500", "suggested_category_limits": {"food": "10", "rent": "-5"}}`,
	} {
		sg := f.ingest(t, b.ID, 0.9, payload)
		_, err := f.opt.Apply(f.ctx, sg.ID)
		require.Error(t, err, name)

		l, err := f.ledger.Get(f.ctx, b.ID)
		require.NoError(t, err)
		assert.True(t, l.Limit("food").Allocated.Equal(decimal.NewFromInt(200)), name)
		assert.True(t, l.Budget.Total.Equal(decimal.NewFromInt(1000)), name)
		got, err := f.opt.Get(f.ctx, sg.ID)
		require.NoError(t, err)
		assert.False(t, got.Applied, name)
	}
}

func TestApply_TerminalBudget(t *testing.T) {
	f := newFixture(t)
	b := f.budget(t)
	sg := f.ingest(t, b.ID, 0.9, `{"suggested_category_limits": {"food": "10"}}`)
	_, err := f.ledger.Cancel(f.ctx, b.ID)
	require.NoError(t, err)

	_, err = f.opt.Apply(f.ctx, sg.ID)
	assert.ErrorIs(t, err, model.ErrBudgetNotEditable)
}

func TestApply_WithoutBudget(t *testing.T) {
	f := newFixture(t)
	sg := f.ingest(t, "", 0.9, `{"alerts": ["spend less"]}`)
	res, err := f.opt.Apply(f.ctx, sg.ID)
	require.NoError(t, err)
	assert.True(t, res.Suggestion.Applied)

	sg = f.ingest(t, "", 0.9, `{"suggested_category_limits": {"food": "10"}}`)
	_, err = f.opt.Apply(f.ctx, sg.ID)
	assert.True(t, model.IsValidation(err))

	_, err = f.opt.Apply(f.ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestApply_ConcurrentAppliesOnce(t *testing.T) {
	f := newFixture(t)
	b := f.budget(t)
	sg := f.ingest(t, b.ID, 0.9, `{"suggested_category_limits": {"food": "50"}}`)

	var wg sync.WaitGroup
	errs := make([]error, 20)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.opt.Apply(f.ctx, sg.ID)
		}(i)
	}
	wg.Wait()

	var ok, already int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, model.ErrAlreadyApplied):
			already++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, len(errs)-1, already)
}

func TestList_Order(t *testing.T) {
	f := newFixture(t)
	clock := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	f.opt.opts.Now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	mk := func(typ model.SuggestionType) string {
		sg, err := f.opt.Ingest(f.ctx, NewSuggestion{UserID: "u1", Type: typ, Confidence: 0.9})
		require.NoError(t, err)
		return sg.ID
	}
	analysis := mk(model.SuggestionAnalysis)
	alertOld := mk(model.SuggestionAlert)
	rec := mk(model.SuggestionRecommendation)
	alertNew := mk(model.SuggestionAlert)

	got, err := f.opt.List(f.ctx, store.SuggestionFilter{UserID: "u1"})
	require.NoError(t, err)
	var order []string
	for _, sg := range got {
		order = append(order, sg.ID)
	}
	assert.Equal(t, []string{alertNew, alertOld, rec, analysis}, order)

	_, err = f.opt.Apply(f.ctx, rec)
	require.NoError(t, err)
	pending, err := f.opt.List(f.ctx, store.SuggestionFilter{UserID: "u1", PendingOnly: true})
	require.NoError(t, err)
	assert.Len(t, pending, 3)
}
