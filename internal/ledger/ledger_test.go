package ledger

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/bopt/internal/model"
	"github.com/theirongolddev/bopt/internal/store"
)

var (
	ctx = context.Background()
	now = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	st     *store.Memory
	svc    *Service
	events []Event
	mu     sync.Mutex
}

func newFixture(t *testing.T, mutate func(*Options)) *fixture {
	t.Helper()
	f := &fixture{st: store.NewMemory()}
	opts := DefaultOptions()
	opts.Now = func() time.Time { return now }
	opts.OnEvent = func(e Event) {
		f.mu.Lock()
		f.events = append(f.events, e)
		f.mu.Unlock()
	}
	if mutate != nil {
		mutate(&opts)
	}
	f.svc = New(f.st, opts)

	require.NoError(t, f.st.Update(ctx, func(w store.Writer) error {
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
	return f
}

// activeBudget creates and activates a 1000.00 budget with a 200 food limit.
func (f *fixture) activeBudget(t *testing.T) model.Budget {
	t.Helper()
	b, err := f.svc.Create(ctx, NewBudget{
		OwnerID: "u1", Name: "May", Total: dec("1000.00"), Period: model.PeriodMonthly,
		Start:  now.AddDate(0, 0, -1),
		Limits: map[string]decimal.Decimal{"food": dec("200"), "rent": dec("0")},
	})
	require.NoError(t, err)
	b, err = f.svc.Activate(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusActive, b.Status)
	return b
}

func (f *fixture) post(t *testing.T, budgetID, category, amount string) model.Expense {
	t.Helper()
	e, err := f.svc.Post(ctx, NewExpense{BudgetID: budgetID, Category: category, Amount: dec(amount), Method: model.PaymentCash})
	require.NoError(t, err)
	return e
}

func (f *fixture) kinds() []EventKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]EventKind, len(f.events))
	for i, e := range f.events {
		out[i] = e.Kind
	}
	return out
}

func TestNext(t *testing.T) {
	tests := []struct {
		from   model.BudgetStatus
		action Action
		want   model.BudgetStatus
		ok     bool
	}{
		{model.StatusDraft, ActionActivate, model.StatusActive, true},
		{model.StatusPaused, ActionActivate, model.StatusActive, true},
		{model.StatusActive, ActionActivate, model.StatusActive, false},
		{model.StatusActive, ActionPause, model.StatusPaused, true},
		{model.StatusExceeded, ActionPause, model.StatusPaused, true},
		{model.StatusDraft, ActionPause, model.StatusDraft, false},
		{model.StatusDraft, ActionComplete, model.StatusCompleted, true},
		{model.StatusExceeded, ActionComplete, model.StatusCompleted, true},
		{model.StatusCompleted, ActionComplete, model.StatusCompleted, true},
		{model.StatusCancelled, ActionComplete, model.StatusCancelled, true},
		{model.StatusPaused, ActionCancel, model.StatusCancelled, true},
		{model.StatusCompleted, ActionCancel, model.StatusCompleted, false},
		{model.StatusCompleted, ActionArchive, model.StatusArchived, true},
		{model.StatusCancelled, ActionArchive, model.StatusArchived, true},
		{model.StatusActive, ActionArchive, model.StatusActive, false},
		{model.StatusArchived, ActionArchive, model.StatusArchived, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.action), func(t *testing.T) {
			got, err := Next(tt.from, tt.action)
			assert.Equal(t, tt.want, got)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, model.ErrInvalidStateTransition)
			}
		})
	}
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t, nil)
	tests := []struct {
		name string
		in   NewBudget
	}{
		{"no owner", NewBudget{Name: "x", Total: dec("1")}},
		{"no name", NewBudget{OwnerID: "u1", Total: dec("1")}},
		{"zero total", NewBudget{OwnerID: "u1", Name: "x", Total: dec("0")}},
		{"custom without end", NewBudget{OwnerID: "u1", Name: "x", Total: dec("1"), Period: model.PeriodCustom}},
		{"end before start", NewBudget{OwnerID: "u1", Name: "x", Total: dec("1"), Start: now, End: now.Add(-time.Hour)}},
		{"negative limit", NewBudget{OwnerID: "u1", Name: "x", Total: dec("1"), Limits: map[string]decimal.Decimal{"food": dec("-1")}}},
		{"business-only category", NewBudget{OwnerID: "u1", Name: "x", Total: dec("1"), Limits: map[string]decimal.Decimal{"gyms": dec("1")}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tt.in)
			assert.True(t, model.IsValidation(err), "got %v", err)
		})
	}

	_, err := f.svc.Create(ctx, NewBudget{OwnerID: "u1", Name: "x", Total: dec("1"), Limits: map[string]decimal.Decimal{"ghost": dec("1")}})
	assert.ErrorIs(t, err, model.ErrNotFound)

	budgets, err := f.svc.List(ctx, store.BudgetFilter{})
	require.NoError(t, err)
	assert.Empty(t, budgets, "failed creates must not leave budgets behind")
}

func TestCreate_DerivesEndFromPeriod(t *testing.T) {
	f := newFixture(t, nil)
	b, err := f.svc.Create(ctx, NewBudget{OwnerID: "u1", Name: "wk", Total: dec("70"), Period: model.PeriodWeekly, Start: now})
	require.NoError(t, err)
	assert.Equal(t, model.StatusDraft, b.Status)
	assert.Equal(t, now.AddDate(0, 0, 7), b.End)
}

func TestPost_WorkedExample(t *testing.T) {
	f := newFixture(t, nil)
	b := f.activeBudget(t)

	f.post(t, b.ID, "food", "50")
	alerts, err := f.svc.Alerts(ctx, b.ID)
	require.NoError(t, err)
	food := findAlert(t, alerts, "food")
	assert.True(t, food.Spent.Equal(dec("50")))
	assert.True(t, food.PercentUsed.Equal(dec("25")))
	assert.False(t, food.Near)
	assert.False(t, food.Over)

	f.post(t, b.ID, "food", "150")
	alerts, _ = f.svc.Alerts(ctx, b.ID)
	food = findAlert(t, alerts, "food")
	assert.True(t, food.Spent.Equal(dec("200")))
	assert.True(t, food.PercentUsed.Equal(dec("100")))
	assert.True(t, food.Near)
	assert.False(t, food.Over, "spent == allocated is not over")

	l, err := f.svc.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, l.Budget.Status)

	f.post(t, b.ID, "rent", "900")
	l, err = f.svc.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, l.TotalSpent().Equal(dec("1100")))
	assert.Equal(t, model.StatusExceeded, l.Budget.Status)
	assert.True(t, l.Consistent())

	assert.Contains(t, f.kinds(), EventLimitNear)
	assert.Contains(t, f.kinds(), EventBudgetExceeded)
	assert.Contains(t, f.kinds(), EventLimitOver, "rent has nothing allocated")
}

func findAlert(t *testing.T, alerts []LimitAlert, category string) LimitAlert {
	t.Helper()
	for _, a := range alerts {
		if a.Category == category {
			return a
		}
	}
	t.Fatalf("no alert for %s", category)
	return LimitAlert{}
}

func TestPost_RequiresSpendingStatus(t *testing.T) {
	f := newFixture(t, nil)
	b, err := f.svc.Create(ctx, NewBudget{OwnerID: "u1", Name: "d", Total: dec("10")})
	require.NoError(t, err)

	_, err = f.svc.Post(ctx, NewExpense{BudgetID: b.ID, Category: "food", Amount: dec("1")})
	assert.ErrorIs(t, err, model.ErrBudgetNotEditable, "draft")

	_, err = f.svc.Activate(ctx, b.ID)
	require.NoError(t, err)
	_, err = f.svc.Pause(ctx, b.ID)
	require.NoError(t, err)
	_, err = f.svc.Post(ctx, NewExpense{BudgetID: b.ID, Category: "food", Amount: dec("1")})
	assert.ErrorIs(t, err, model.ErrBudgetNotEditable, "paused")
}

func TestPost_Validation(t *testing.T) {
	f := newFixture(t, nil)
	b := f.activeBudget(t)

	for _, amt := range []string{"0", "-5"} {
		_, err := f.svc.Post(ctx, NewExpense{BudgetID: b.ID, Category: "food", Amount: dec(amt)})
		assert.True(t, model.IsValidation(err), "amount %s", amt)
	}
	_, err := f.svc.Post(ctx, NewExpense{BudgetID: b.ID, Category: "food", Amount: dec("1"), Method: "BARTER"})
	assert.True(t, model.IsValidation(err))

	_, err = f.svc.Post(ctx, NewExpense{BudgetID: b.ID, Category: "ghost", Amount: dec("1")})
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = f.svc.Post(ctx, NewExpense{BudgetID: "nope", Category: "food", Amount: dec("1")})
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = f.svc.Post(ctx, NewExpense{BudgetID: b.ID, Category: "gyms", Amount: dec("1")})
	assert.True(t, model.IsValidation(err), "business-only category")
}

func TestPost_AutoCreateLimits(t *testing.T) {
	t.Run("enabled", func(t *testing.T) {
		f := newFixture(t, nil)
		b, err := f.svc.Create(ctx, NewBudget{OwnerID: "u1", Name: "x", Total: dec("100")})
		require.NoError(t, err)
		_, err = f.svc.Activate(ctx, b.ID)
		require.NoError(t, err)

		f.post(t, b.ID, "food", "10")
		l, _ := f.svc.Get(ctx, b.ID)
		lim := l.Limit("food")
		require.NotNil(t, lim)
		assert.True(t, lim.Allocated.IsZero())
		assert.True(t, lim.Spent.Equal(dec("10")))
	})

	t.Run("disabled", func(t *testing.T) {
		f := newFixture(t, func(o *Options) { o.AutoCreateLimits = false })
		b, err := f.svc.Create(ctx, NewBudget{OwnerID: "u1", Name: "x", Total: dec("100")})
		require.NoError(t, err)
		_, err = f.svc.Activate(ctx, b.ID)
		require.NoError(t, err)

		_, err = f.svc.Post(ctx, NewExpense{BudgetID: b.ID, Category: "food", Amount: dec("10")})
		assert.True(t, model.IsValidation(err))
		l, _ := f.svc.Get(ctx, b.ID)
		assert.Empty(t, l.Expenses)
	})
}

func TestRetract(t *testing.T) {
	f := newFixture(t, nil)
	b := f.activeBudget(t)
	e := f.post(t, b.ID, "food", "80")

	require.NoError(t, f.svc.Retract(ctx, e.ID))
	l, _ := f.svc.Get(ctx, b.ID)
	assert.True(t, l.Limit("food").Spent.IsZero())
	assert.Empty(t, l.Expenses)

	err := f.svc.Retract(ctx, e.ID)
	assert.ErrorIs(t, err, model.ErrNotFound, "second retract")
	l2, _ := f.svc.Get(ctx, b.ID)
	assert.Equal(t, l, l2, "failed retract must not mutate")
}

func TestRetract_FloorsAtZero(t *testing.T) {
	lim := model.CategoryLimit{Spent: dec("5")}
	lim.Refund(dec("12"))
	assert.True(t, lim.Spent.IsZero())
	lim.Refund(dec("1"))
	assert.True(t, lim.Spent.IsZero())
}

func TestExceeded_AutoRevert(t *testing.T) {
	f := newFixture(t, nil)
	b := f.activeBudget(t)
	big := f.post(t, b.ID, "rent", "1000")
	over := f.post(t, b.ID, "food", "0.01")

	l, _ := f.svc.Get(ctx, b.ID)
	require.Equal(t, model.StatusExceeded, l.Budget.Status)

	// still accepts expenses while exceeded
	f.post(t, b.ID, "food", "1")
	require.NoError(t, f.svc.Retract(ctx, over.ID))
	l, _ = f.svc.Get(ctx, b.ID)
	assert.Equal(t, model.StatusExceeded, l.Budget.Status, "1001 > 1000")

	require.NoError(t, f.svc.Retract(ctx, big.ID))
	l, _ = f.svc.Get(ctx, b.ID)
	assert.Equal(t, model.StatusActive, l.Budget.Status)
	assert.Contains(t, f.kinds(), EventBudgetReverted)
}

func TestExceeded_NoRevertWhenDisabled(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.AutoRevertExceeded = false })
	b := f.activeBudget(t)
	e := f.post(t, b.ID, "rent", "1000.01")

	require.NoError(t, f.svc.Retract(ctx, e.ID))
	l, _ := f.svc.Get(ctx, b.ID)
	assert.Equal(t, model.StatusExceeded, l.Budget.Status)
}

func TestExceeded_AtTotalIsNotOver(t *testing.T) {
	f := newFixture(t, nil)
	b := f.activeBudget(t)
	f.post(t, b.ID, "rent", "1000.00")
	l, _ := f.svc.Get(ctx, b.ID)
	assert.Equal(t, model.StatusActive, l.Budget.Status)
}

func TestActivate_ResumesIntoExceeded(t *testing.T) {
	f := newFixture(t, nil)
	b := f.activeBudget(t)
	f.post(t, b.ID, "rent", "1500")
	_, err := f.svc.Pause(ctx, b.ID)
	require.NoError(t, err)

	got, err := f.svc.Activate(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusExceeded, got.Status)
}

func TestEditing_OnlyWhenEditable(t *testing.T) {
	f := newFixture(t, nil)
	b := f.activeBudget(t)
	f.post(t, b.ID, "food", "30")

	_, err := f.svc.SetLimit(ctx, b.ID, "food", dec("500"))
	assert.ErrorIs(t, err, model.ErrBudgetNotEditable)
	_, err = f.svc.SetTotal(ctx, b.ID, dec("2000"))
	assert.ErrorIs(t, err, model.ErrBudgetNotEditable)

	_, err = f.svc.Pause(ctx, b.ID)
	require.NoError(t, err)
	lim, err := f.svc.SetLimit(ctx, b.ID, "food", dec("500"))
	require.NoError(t, err)
	assert.True(t, lim.Spent.Equal(dec("30")), "spend is preserved")
	got, err := f.svc.SetTotal(ctx, b.ID, dec("2000"))
	require.NoError(t, err)
	assert.True(t, got.Total.Equal(dec("2000")))
}

func TestTerminalTransitions(t *testing.T) {
	f := newFixture(t, nil)
	b := f.activeBudget(t)

	got, err := f.svc.Complete(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)

	got, err = f.svc.Complete(ctx, b.ID)
	require.NoError(t, err, "complete is idempotent once terminal")
	assert.Equal(t, model.StatusCompleted, got.Status)

	_, err = f.svc.Cancel(ctx, b.ID)
	assert.ErrorIs(t, err, model.ErrInvalidStateTransition)
	_, err = f.svc.Activate(ctx, b.ID)
	assert.ErrorIs(t, err, model.ErrInvalidStateTransition)

	got, err = f.svc.Archive(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusArchived, got.Status)

	var te *model.TransitionError
	_, err = f.svc.Archive(ctx, b.ID)
	require.True(t, errors.As(err, &te))
	assert.Equal(t, model.StatusArchived, te.From)
}

func TestCompleteExpired(t *testing.T) {
	f := newFixture(t, nil)
	past, err := f.svc.Create(ctx, NewBudget{OwnerID: "u1", Name: "old", Total: dec("10"),
		Period: model.PeriodWeekly, Start: now.AddDate(0, 0, -10)})
	require.NoError(t, err)
	_, err = f.svc.Activate(ctx, past.ID)
	require.NoError(t, err)
	current := f.activeBudget(t)

	done, err := f.svc.CompleteExpired(ctx)
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, past.ID, done[0].ID)
	assert.Equal(t, model.StatusCompleted, done[0].Status)

	l, _ := f.svc.Get(ctx, current.ID)
	assert.Equal(t, model.StatusActive, l.Budget.Status)
	assert.Contains(t, f.kinds(), EventBudgetCompleted)
}

func TestExpiringAndNearLimits(t *testing.T) {
	f := newFixture(t, nil)
	b := f.activeBudget(t) // ends 29 days from now
	f.post(t, b.ID, "food", "170")

	soon, err := f.svc.Expiring(ctx, "u1", 30*24*time.Hour)
	require.NoError(t, err)
	assert.Len(t, soon, 1)
	soon, err = f.svc.Expiring(ctx, "u1", 7*24*time.Hour)
	require.NoError(t, err)
	assert.Empty(t, soon)

	near, err := f.svc.NearLimits(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, near, 1)
	assert.Equal(t, "food", near[0].Category)
	assert.True(t, near[0].PercentUsed.Equal(dec("85")))
}

func TestCanAfford(t *testing.T) {
	f := newFixture(t, nil)
	b := f.activeBudget(t)
	f.post(t, b.ID, "food", "150")

	ok, err := f.svc.CanAfford(ctx, b.ID, "food", dec("50"))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = f.svc.CanAfford(ctx, b.ID, "food", dec("50.01"))
	assert.False(t, ok)
	ok, _ = f.svc.CanAfford(ctx, b.ID, "rent", dec("1"))
	assert.False(t, ok)
}

func TestSpentMatchesPostedExpenses(t *testing.T) {
	f := newFixture(t, nil)
	b := f.activeBudget(t)
	rng := rand.New(rand.NewSource(7))

	var live []model.Expense
	for i := 0; i < 200; i++ {
		if len(live) > 0 && rng.Intn(3) == 0 {
			k := rng.Intn(len(live))
			require.NoError(t, f.svc.Retract(ctx, live[k].ID))
			live = append(live[:k], live[k+1:]...)
		} else {
			cat := []string{"food", "rent"}[rng.Intn(2)]
			amt := decimal.New(int64(rng.Intn(20000)+1), -2)
			e, err := f.svc.Post(ctx, NewExpense{BudgetID: b.ID, Category: cat, Amount: amt})
			require.NoError(t, err)
			live = append(live, e)
		}

		l, err := f.svc.Get(ctx, b.ID)
		require.NoError(t, err)
		want := decimal.Zero
		for _, e := range live {
			want = want.Add(e.Amount)
		}
		require.True(t, l.LimitSpent().Equal(want), "step %d: limits %s != expenses %s", i, l.LimitSpent(), want)
		require.Equal(t, l.OverBudget(), l.Budget.Status == model.StatusExceeded, "step %d", i)
	}
}

func TestConcurrentPosts(t *testing.T) {
	f := newFixture(t, nil)
	b := f.activeBudget(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Post(ctx, NewExpense{BudgetID: b.ID, Category: "food", Amount: dec("2")})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	l, _ := f.svc.Get(ctx, b.ID)
	assert.Len(t, l.Expenses, 50)
	assert.True(t, l.Limit("food").Spent.Equal(dec("100")))
	assert.Zero(t, f.svc.locks.size())
}

func TestDelete(t *testing.T) {
	f := newFixture(t, nil)
	b := f.activeBudget(t)
	e := f.post(t, b.ID, "food", "1")

	require.NoError(t, f.svc.Delete(ctx, b.ID))
	_, err := f.svc.Get(ctx, b.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.ErrorIs(t, f.svc.Retract(ctx, e.ID), model.ErrNotFound)
}

func TestSummarize(t *testing.T) {
	f := newFixture(t, nil)
	b := f.activeBudget(t)
	f.post(t, b.ID, "food", "190")

	l, _ := f.svc.Get(ctx, b.ID)
	sum := f.svc.Summarize(l)
	assert.True(t, sum.Spent.Equal(dec("190")))
	assert.True(t, sum.Remaining.Equal(dec("810")))
	assert.True(t, sum.Allocated.Equal(dec("200")))
	assert.Equal(t, 1, sum.Expenses)
	assert.Equal(t, 1, sum.Alerts)
}
