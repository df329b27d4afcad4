package model

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// DefaultNearLimitPercent is the usage at which a limit counts as near its ceiling.
var DefaultNearLimitPercent = decimal.NewFromInt(80)

// CategoryLimit is a per-category ceiling and running total within a budget.
// Spent is maintained only by the reconciler and never drops below zero.
type CategoryLimit struct {
	BudgetID  string
	Category  string
	Allocated decimal.Decimal
	Spent     decimal.Decimal
	UpdatedAt time.Time
}

// PercentUsed is spent/allocated*100, or 0 when nothing is allocated.
func (c CategoryLimit) PercentUsed() decimal.Decimal {
	if !c.Allocated.IsPositive() {
		return decimal.Zero
	}
	return c.Spent.Div(c.Allocated).Mul(hundred)
}

// NearLimit reports PercentUsed >= threshold.
func (c CategoryLimit) NearLimit(threshold decimal.Decimal) bool {
	return c.PercentUsed().GreaterThanOrEqual(threshold)
}

// OverLimit reports spent > allocated.
func (c CategoryLimit) OverLimit() bool {
	return c.Spent.GreaterThan(c.Allocated)
}

// Remaining is allocated minus spent. Negative when over the limit.
func (c CategoryLimit) Remaining() decimal.Decimal {
	return c.Allocated.Sub(c.Spent)
}

// CanAfford reports spent + amount <= allocated.
func (c CategoryLimit) CanAfford(amount decimal.Decimal) bool {
	return c.Spent.Add(amount).LessThanOrEqual(c.Allocated)
}

// Charge adds amount to spent.
func (c *CategoryLimit) Charge(amount decimal.Decimal) {
	c.Spent = c.Spent.Add(amount)
}

// Refund subtracts amount from spent, flooring at zero.
func (c *CategoryLimit) Refund(amount decimal.Decimal) {
	c.Spent = decimal.Max(decimal.Zero, c.Spent.Sub(amount))
}
