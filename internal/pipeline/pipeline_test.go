package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/bopt/internal/config"
	"github.com/theirongolddev/bopt/internal/ledger"
	"github.com/theirongolddev/bopt/internal/model"
	"github.com/theirongolddev/bopt/internal/store"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func writeFile(t *testing.T, dir, name string, lines ...string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600))
}

func newLedger(t *testing.T) (*ledger.Service, []string) {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemory()
	require.NoError(t, st.Update(ctx, func(w store.Writer) error {
		for _, name := range []string{"food", "rent"} {
			if err := w.PutCategory(ctx, model.Category{Name: name, Usage: model.UsageBoth}); err != nil {
				return err
			}
		}
		return nil
	}))
	led := ledger.New(st, ledger.DefaultOptions())

	var ids []string
	for _, name := range []string{"home", "trip"} {
		b, err := led.Create(ctx, ledger.NewBudget{OwnerID: "u1", Name: name, Total: decimal.NewFromInt(500)})
		require.NoError(t, err)
		_, err = led.Activate(ctx, b.ID)
		require.NoError(t, err)
		ids = append(ids, b.ID)
	}
	return led, ids
}

func TestLoadAndImport(t *testing.T) {
	ctx := context.Background()
	led, budgets := newLedger(t)
	home, trip := budgets[0], budgets[1]

	dir := t.TempDir()
	writeFile(t, dir, "a.jsonl",
		`{"type":"expense","id":"e1","category":"food","amount":"40","method":"CASH"}`,
		`{"type":"expense","id":"e2","category":"rent","amount":"300"}`,
		`{"type":"expense","id":"bad","category":"ghost","amount":"1"}`,
		`garbage`,
		`{"type":"expense","category":"food","amount":"-3"}`,
	)
	writeFile(t, dir, "march/b.jsonl",
		`{"type":"expense","id":"t1","budget_id":"`+trip+`","category":"food","amount":"80"}`,
		`{"type":"retract","id":"e1"}`,
		`{"type":"retract","id":"never-posted"}`,
	)

	var lastCurrent, lastTotal int
	res, err := Load(dir, home, func(c, n int) { lastCurrent, lastTotal = c, n })
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalFiles)
	assert.Equal(t, 2, res.ParsedFiles)
	assert.Equal(t, 2, res.BatchCount)
	assert.Equal(t, 1, res.ParseErrors)
	assert.Len(t, res.Records, 6)
	assert.Equal(t, 2, lastCurrent)
	assert.Equal(t, 2, lastTotal)

	imp := Import(ctx, led, res.Records, nil)
	assert.Equal(t, 3, imp.Posted)
	assert.Equal(t, 1, imp.Retracted)
	assert.Equal(t, 1, imp.Missing)
	assert.Equal(t, 1, imp.Rejected)
	require.Len(t, imp.Errors, 1)
	assert.Contains(t, imp.Errors[0], "a.jsonl:3")

	l, err := led.Get(ctx, home)
	require.NoError(t, err)
	assert.True(t, l.TotalSpent().Equal(dec("300")))
	assert.True(t, l.Consistent())
	l, err = led.Get(ctx, trip)
	require.NoError(t, err)
	assert.True(t, l.TotalSpent().Equal(dec("80")))

	// a second run ends in the same state; e1 was deleted so it posts and retracts again
	again := Import(ctx, led, res.Records, nil)
	assert.Equal(t, 1, again.Posted)
	assert.Equal(t, 2, again.Duplicates)
	assert.Equal(t, 1, again.Retracted)
	assert.Equal(t, 1, again.Missing)
	l, err = led.Get(ctx, home)
	require.NoError(t, err)
	assert.True(t, l.TotalSpent().Equal(dec("300")))
}

func TestLoad_MissingDir(t *testing.T) {
	res, err := Load(filepath.Join(t.TempDir(), "none"), "", nil)
	require.NoError(t, err)
	assert.Zero(t, res.TotalFiles)
	assert.Empty(t, res.Records)
}

func at(day, hour int) time.Time {
	return time.Date(2026, 3, day, hour, 0, 0, 0, time.Local)
}

func sampleExpenses() []model.Expense {
	return []model.Expense{
		{ID: "1", Category: "food", Amount: dec("10"), Method: model.PaymentCash, At: at(1, 9)},
		{ID: "2", Category: "food", Amount: dec("30"), Method: model.PaymentCreditCard, At: at(1, 13), BusinessID: "b1"},
		{ID: "3", Category: "rent", Amount: dec("100"), Method: model.PaymentBankTransfer, At: at(3, 9)},
		{ID: "4", Category: "fun", Amount: dec("60"), Method: model.PaymentCrypto, At: at(9, 20)},
	}
}

func TestAggregate(t *testing.T) {
	fees := config.NewFeeSchedule(config.FeeOverrides{})
	s := Aggregate(sampleExpenses(), fees, at(1, 0), at(5, 0))

	assert.Equal(t, 3, s.Expenses)
	assert.True(t, s.Total.Equal(dec("140")))
	// credit card 2.5% of 30
	assert.True(t, s.Fees.Equal(dec("0.75")), s.Fees.String())
	assert.True(t, s.TotalWithFees.Equal(dec("140.75")))
	assert.True(t, s.Largest.Equal(dec("100")))
	assert.Equal(t, 2, s.ActiveDays)
	assert.True(t, s.PerDay.Equal(dec("70")))
	assert.Equal(t, 2, s.Categories)
	assert.Equal(t, 1, s.Businesses)
	assert.InDelta(t, 130.0/140.0, s.DigitalShare, 1e-9)
}

func TestAggregate_FeeOverrides(t *testing.T) {
	fees := config.NewFeeSchedule(config.FeeOverrides{Overrides: map[string]float64{"credit_card": 0}})
	s := Aggregate(sampleExpenses(), fees, time.Time{}, time.Time{})
	// only crypto 3% of 60 remains
	assert.True(t, s.Fees.Equal(dec("1.8")), s.Fees.String())
}

func TestAggregateDays(t *testing.T) {
	days := AggregateDays(sampleExpenses(), config.FeeSchedule{}, at(1, 0), at(4, 0))
	require.Len(t, days, 3)
	assert.True(t, days[0].Date.Equal(at(3, 0)))
	assert.True(t, days[1].Amount.IsZero(), "gap day filled")
	assert.Equal(t, 2, days[2].Expenses)
	assert.True(t, days[2].Fees.Equal(dec("0.75")))
}

func TestAggregateCategories(t *testing.T) {
	cats := AggregateCategories(sampleExpenses(), time.Time{}, time.Time{})
	require.Len(t, cats, 3)
	assert.Equal(t, []string{"rent", "fun", "food"}, []string{cats[0].Category, cats[1].Category, cats[2].Category})
	assert.InDelta(t, 50.0, cats[0].SharePercent, 1e-9)
}

func TestAggregateMethods(t *testing.T) {
	totals, rows := AggregateMethods(sampleExpenses(), config.FeeSchedule{}, time.Time{}, time.Time{})
	assert.True(t, totals.Amount.Equal(dec("200")))
	assert.True(t, totals.Fees.Equal(dec("2.55")), totals.Fees.String())
	require.Len(t, rows, 4)
	assert.Equal(t, model.PaymentBankTransfer, rows[0].Method)
	assert.Equal(t, model.PaymentCrypto, rows[1].Method)
	assert.InDelta(t, 3.0, rows[1].FeePercent, 1e-9)
}

func TestAggregateHourlyAndMonths(t *testing.T) {
	exp := sampleExpenses()
	exp = append(exp, model.Expense{ID: "5", Category: "food", Amount: dec("5"), At: time.Date(2026, 4, 2, 9, 0, 0, 0, time.Local)})

	hours := AggregateHourly(exp, time.Time{}, time.Time{})
	require.Len(t, hours, 24)
	assert.Equal(t, 3, hours[9].Expenses)
	assert.True(t, hours[9].Amount.Equal(dec("115")))

	months := AggregateMonths(exp, time.Time{}, time.Time{})
	require.Len(t, months, 4)
	assert.Equal(t, "2026-03", months[0].Month)
	assert.Equal(t, "food", months[0].Category)
	assert.True(t, months[0].Amount.Equal(dec("40")))
	assert.Equal(t, "2026-04", months[3].Month)
}

func TestFilterByCategory(t *testing.T) {
	assert.Len(t, FilterByCategory(sampleExpenses(), "FO"), 2)
	assert.Len(t, FilterByCategory(sampleExpenses(), ""), 4)
}
