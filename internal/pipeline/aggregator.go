// Package pipeline loads expense imports and aggregates spend.
package pipeline

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/bopt/internal/config"
	"github.com/theirongolddev/bopt/internal/model"
)

var hundred = decimal.NewFromInt(100)

// Aggregate computes summary statistics over expenses within [since, until).
func Aggregate(expenses []model.Expense, fees config.FeeSchedule, since, until time.Time) model.SpendSummary {
	filtered := FilterByTime(expenses, since, until)

	stats := model.SpendSummary{Total: decimal.Zero, Fees: decimal.Zero, Largest: decimal.Zero}
	activeDays := make(map[string]struct{})
	categories := make(map[string]struct{})
	businesses := make(map[string]struct{})
	digital := decimal.Zero

	for _, e := range filtered {
		stats.Expenses++
		stats.Total = stats.Total.Add(e.Amount)
		stats.Fees = stats.Fees.Add(fees.Fee(e.Method, e.At, e.Amount))
		if e.Amount.GreaterThan(stats.Largest) {
			stats.Largest = e.Amount
		}
		if config.IsDigital(e.Method) {
			digital = digital.Add(e.Amount)
		}
		activeDays[e.At.Local().Format("2006-01-02")] = struct{}{}
		categories[e.Category] = struct{}{}
		if e.BusinessID != "" {
			businesses[e.BusinessID] = struct{}{}
		}
	}

	stats.TotalWithFees = stats.Total.Add(stats.Fees)
	stats.ActiveDays = len(activeDays)
	stats.Categories = len(categories)
	stats.Businesses = len(businesses)
	if stats.ActiveDays > 0 {
		stats.PerDay = stats.Total.Div(decimal.NewFromInt(int64(stats.ActiveDays))).Round(2)
	}
	if stats.Total.IsPositive() {
		stats.DigitalShare = digital.Div(stats.Total).InexactFloat64()
	}
	return stats
}

// AggregateDays computes per-day spend, most recent first. Every day in
// the range is present so charts show gaps as zeros.
func AggregateDays(expenses []model.Expense, fees config.FeeSchedule, since, until time.Time) []model.DailySpend {
	filtered := FilterByTime(expenses, since, until)

	dayMap := make(map[string]*model.DailySpend)
	for _, e := range filtered {
		dayKey := e.At.Local().Format("2006-01-02")
		ds, ok := dayMap[dayKey]
		if !ok {
			t, _ := time.ParseInLocation("2006-01-02", dayKey, time.Local)
			ds = &model.DailySpend{Date: t}
			dayMap[dayKey] = ds
		}
		ds.Expenses++
		ds.Amount = ds.Amount.Add(e.Amount)
		ds.Fees = ds.Fees.Add(fees.Fee(e.Method, e.At, e.Amount))
	}

	if !since.IsZero() && !until.IsZero() {
		day := startOfDay(since)
		for day.Before(until) {
			dayKey := day.Format("2006-01-02")
			if _, ok := dayMap[dayKey]; !ok {
				dayMap[dayKey] = &model.DailySpend{Date: day}
			}
			day = day.AddDate(0, 0, 1)
		}
	}

	days := make([]model.DailySpend, 0, len(dayMap))
	for _, ds := range dayMap {
		days = append(days, *ds)
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Date.After(days[j].Date)
	})
	return days
}

// AggregateCategories computes per-category spend, largest first.
func AggregateCategories(expenses []model.Expense, since, until time.Time) []model.CategorySpend {
	filtered := FilterByTime(expenses, since, until)

	catMap := make(map[string]*model.CategorySpend)
	total := decimal.Zero
	for _, e := range filtered {
		cs, ok := catMap[e.Category]
		if !ok {
			cs = &model.CategorySpend{Category: e.Category}
			catMap[e.Category] = cs
		}
		cs.Expenses++
		cs.Amount = cs.Amount.Add(e.Amount)
		total = total.Add(e.Amount)
	}

	cats := make([]model.CategorySpend, 0, len(catMap))
	for _, cs := range catMap {
		if total.IsPositive() {
			cs.SharePercent = cs.Amount.Mul(hundred).Div(total).InexactFloat64()
		}
		cats = append(cats, *cs)
	}
	sort.Slice(cats, func(i, j int) bool {
		if !cats[i].Amount.Equal(cats[j].Amount) {
			return cats[i].Amount.GreaterThan(cats[j].Amount)
		}
		return cats[i].Category < cats[j].Category
	})
	return cats
}

// AggregateHourly computes spend by hour of day.
func AggregateHourly(expenses []model.Expense, since, until time.Time) []model.HourlySpend {
	filtered := FilterByTime(expenses, since, until)

	hours := make([]model.HourlySpend, 24)
	for i := range hours {
		hours[i].Hour = i
	}
	for _, e := range filtered {
		h := e.At.Local().Hour()
		hours[h].Expenses++
		hours[h].Amount = hours[h].Amount.Add(e.Amount)
	}
	return hours
}

// AggregateMonths computes spend per calendar month and category, ordered
// by month then category. It feeds the model service's history input.
func AggregateMonths(expenses []model.Expense, since, until time.Time) []model.MonthCategorySpend {
	filtered := FilterByTime(expenses, since, until)

	type key struct{ month, category string }
	sums := make(map[key]decimal.Decimal)
	for _, e := range filtered {
		k := key{e.At.Local().Format("2006-01"), e.Category}
		sums[k] = sums[k].Add(e.Amount)
	}

	out := make([]model.MonthCategorySpend, 0, len(sums))
	for k, amt := range sums {
		out = append(out, model.MonthCategorySpend{Month: k.month, Category: k.category, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Month != out[j].Month {
			return out[i].Month < out[j].Month
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// FilterByTime returns expenses made within [since, until). Zero bounds are open.
func FilterByTime(expenses []model.Expense, since, until time.Time) []model.Expense {
	if since.IsZero() && until.IsZero() {
		return expenses
	}

	var result []model.Expense
	for _, e := range expenses {
		if !since.IsZero() && e.At.Before(since) {
			continue
		}
		if !until.IsZero() && !e.At.Before(until) {
			continue
		}
		result = append(result, e)
	}
	return result
}

// FilterByCategory returns expenses whose category contains the substring.
func FilterByCategory(expenses []model.Expense, category string) []model.Expense {
	if category == "" {
		return expenses
	}
	var result []model.Expense
	for _, e := range expenses {
		if containsIgnoreCase(e.Category, category) {
			result = append(result, e)
		}
	}
	return result
}

func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func startOfDay(t time.Time) time.Time {
	l := t.Local()
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, time.Local)
}
