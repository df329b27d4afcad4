package pipeline

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/bopt/internal/config"
	"github.com/theirongolddev/bopt/internal/model"
)

// FeeTotals holds aggregate payment fees.
type FeeTotals struct {
	Amount        decimal.Decimal
	Fees          decimal.Decimal
	TotalWithFees decimal.Decimal
}

// AggregateMethods computes per-payment-method spend and fees, largest
// spend first. Fee rates are resolved at each expense's time.
func AggregateMethods(expenses []model.Expense, fees config.FeeSchedule, since, until time.Time) (FeeTotals, []model.MethodSpend) {
	filtered := FilterByTime(expenses, since, until)

	var totals FeeTotals
	byMethod := make(map[model.PaymentMethod]*model.MethodSpend)

	for _, e := range filtered {
		fee := fees.Fee(e.Method, e.At, e.Amount)

		totals.Amount = totals.Amount.Add(e.Amount)
		totals.Fees = totals.Fees.Add(fee)

		row, ok := byMethod[e.Method]
		if !ok {
			row = &model.MethodSpend{Method: e.Method}
			byMethod[e.Method] = row
		}
		row.Expenses++
		row.Amount = row.Amount.Add(e.Amount)
		row.Fees = row.Fees.Add(fee)
	}

	totals.TotalWithFees = totals.Amount.Add(totals.Fees)

	rows := make([]model.MethodSpend, 0, len(byMethod))
	for _, row := range byMethod {
		if row.Amount.IsPositive() {
			row.FeePercent = row.Fees.Mul(hundred).Div(row.Amount).InexactFloat64()
		}
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Amount.Equal(rows[j].Amount) {
			return rows[i].Amount.GreaterThan(rows[j].Amount)
		}
		return rows[i].Method < rows[j].Method
	})
	return totals, rows
}
