package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SpendSummary holds aggregate spend over a time range.
type SpendSummary struct {
	Expenses      int
	Total         decimal.Decimal
	Fees          decimal.Decimal
	TotalWithFees decimal.Decimal
	Largest       decimal.Decimal
	ActiveDays    int
	PerDay        decimal.Decimal // per active day
	Categories    int
	Businesses    int
	DigitalShare  float64 // share of Total paid by digital methods, 0..1
}

// DailySpend holds spend for a single day.
type DailySpend struct {
	Date     time.Time
	Expenses int
	Amount   decimal.Decimal
	Fees     decimal.Decimal
}

// CategorySpend holds spend for one category.
type CategorySpend struct {
	Category     string
	Expenses     int
	Amount       decimal.Decimal
	SharePercent float64
}

// MethodSpend holds spend and fees for one payment method.
type MethodSpend struct {
	Method     PaymentMethod
	Expenses   int
	Amount     decimal.Decimal
	Fees       decimal.Decimal
	FeePercent float64 // effective fee rate over Amount
}

// HourlySpend holds spend for one hour of the day.
type HourlySpend struct {
	Hour     int
	Expenses int
	Amount   decimal.Decimal
}

// MonthCategorySpend is spend for one category in one calendar month.
type MonthCategorySpend struct {
	Month    string // 2006-01
	Category string
	Amount   decimal.Decimal
}
