// Package model defines the domain types shared by the ledger, matcher and optimizer.
package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BudgetStatus is a budget's lifecycle state.
type BudgetStatus string

const (
	StatusDraft     BudgetStatus = "DRAFT"
	StatusActive    BudgetStatus = "ACTIVE"
	StatusPaused    BudgetStatus = "PAUSED"
	StatusCompleted BudgetStatus = "COMPLETED"
	StatusExceeded  BudgetStatus = "EXCEEDED"
	StatusCancelled BudgetStatus = "CANCELLED"
	StatusArchived  BudgetStatus = "ARCHIVED"
)

// AllStatuses lists every budget status in lifecycle order.
var AllStatuses = []BudgetStatus{
	StatusDraft, StatusActive, StatusPaused, StatusExceeded,
	StatusCompleted, StatusCancelled, StatusArchived,
}

// ParseBudgetStatus is case-insensitive.
func ParseBudgetStatus(s string) (BudgetStatus, error) {
	return parseEnum("status", strings.ToUpper(strings.TrimSpace(s)), AllStatuses)
}

// Editable reports whether limits and totals may be changed.
func (s BudgetStatus) Editable() bool {
	return s == StatusDraft || s == StatusPaused
}

// AcceptsExpenses reports whether expenses may be posted or retracted.
func (s BudgetStatus) AcceptsExpenses() bool {
	return s == StatusActive || s == StatusExceeded
}

// Terminal reports whether the status is final apart from archival.
func (s BudgetStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusArchived
}

// Period is a budget's recurrence. Durations live in config.PeriodInfo.
type Period string

const (
	PeriodDaily     Period = "DAILY"
	PeriodWeekly    Period = "WEEKLY"
	PeriodBiweekly  Period = "BIWEEKLY"
	PeriodMonthly   Period = "MONTHLY"
	PeriodQuarterly Period = "QUARTERLY"
	PeriodBiannual  Period = "BIANNUAL"
	PeriodYearly    Period = "YEARLY"
	PeriodCustom    Period = "CUSTOM"
)

// AllPeriods lists every period.
var AllPeriods = []Period{
	PeriodDaily, PeriodWeekly, PeriodBiweekly, PeriodMonthly,
	PeriodQuarterly, PeriodBiannual, PeriodYearly, PeriodCustom,
}

// ParsePeriod is case-insensitive.
func ParsePeriod(s string) (Period, error) {
	return parseEnum("period", strings.ToUpper(strings.TrimSpace(s)), AllPeriods)
}

// Budget is a bounded spending plan. Limits and expenses are owned by id
// reference and loaded together as a Ledger.
type Budget struct {
	ID        string
	OwnerID   string
	Name      string
	Total     decimal.Decimal
	Start     time.Time
	End       time.Time
	Period    Period
	Status    BudgetStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether now is past the budget's end.
func (b Budget) Expired(now time.Time) bool {
	return !b.End.IsZero() && now.After(b.End)
}

// DaysLeft returns whole days until End, never negative.
func (b Budget) DaysLeft(now time.Time) int {
	if b.End.IsZero() || !b.End.After(now) {
		return 0
	}
	return int(b.End.Sub(now).Hours() / 24)
}

// Ledger is a budget together with its category limits and posted expenses.
type Ledger struct {
	Budget   Budget
	Limits   []CategoryLimit
	Expenses []Expense
}

// TotalSpent sums posted expenses. It is computed, never stored.
func (l *Ledger) TotalSpent() decimal.Decimal {
	sum := decimal.Zero
	for _, e := range l.Expenses {
		sum = sum.Add(e.Amount)
	}
	return sum
}

// LimitSpent sums the running totals of every category limit.
func (l *Ledger) LimitSpent() decimal.Decimal {
	sum := decimal.Zero
	for _, c := range l.Limits {
		sum = sum.Add(c.Spent)
	}
	return sum
}

// Allocated sums every category allocation.
func (l *Ledger) Allocated() decimal.Decimal {
	sum := decimal.Zero
	for _, c := range l.Limits {
		sum = sum.Add(c.Allocated)
	}
	return sum
}

// Remaining is total minus spent. Negative when over budget.
func (l *Ledger) Remaining() decimal.Decimal {
	return l.Budget.Total.Sub(l.TotalSpent())
}

// OverBudget reports totalSpent > total.
func (l *Ledger) OverBudget() bool {
	return l.TotalSpent().GreaterThan(l.Budget.Total)
}

// Limit returns a pointer into Limits for the named category.
func (l *Ledger) Limit(category string) *CategoryLimit {
	for i := range l.Limits {
		if l.Limits[i].Category == category {
			return &l.Limits[i]
		}
	}
	return nil
}

// Expense returns the index of the expense with the given id, or -1.
func (l *Ledger) Expense(id string) int {
	for i := range l.Expenses {
		if l.Expenses[i].ID == id {
			return i
		}
	}
	return -1
}

// Consistent reports whether per-category spend matches the posted expenses.
func (l *Ledger) Consistent() bool {
	want := make(map[string]decimal.Decimal, len(l.Limits))
	for _, e := range l.Expenses {
		want[e.Category] = want[e.Category].Add(e.Amount)
	}
	for _, c := range l.Limits {
		if !c.Spent.Equal(want[c.Category]) {
			return false
		}
		delete(want, c.Category)
	}
	for _, amt := range want {
		if !amt.IsZero() {
			return false
		}
	}
	return true
}
