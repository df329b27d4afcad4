package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is how an expense was paid. Fees live in config.PaymentInfo.
type PaymentMethod string

const (
	PaymentCash          PaymentMethod = "CASH"
	PaymentDebitCard     PaymentMethod = "DEBIT_CARD"
	PaymentCreditCard    PaymentMethod = "CREDIT_CARD"
	PaymentBankTransfer  PaymentMethod = "BANK_TRANSFER"
	PaymentMobile        PaymentMethod = "MOBILE_PAYMENT"
	PaymentQRCode        PaymentMethod = "QR_CODE"
	PaymentDigitalWallet PaymentMethod = "DIGITAL_WALLET"
	PaymentCheck         PaymentMethod = "CHECK"
	PaymentCrypto        PaymentMethod = "CRYPTOCURRENCY"
	PaymentOther         PaymentMethod = "OTHER"
)

// AllPaymentMethods lists every payment method.
var AllPaymentMethods = []PaymentMethod{
	PaymentCash, PaymentDebitCard, PaymentCreditCard, PaymentBankTransfer,
	PaymentMobile, PaymentQRCode, PaymentDigitalWallet, PaymentCheck,
	PaymentCrypto, PaymentOther,
}

// ParsePaymentMethod is case-insensitive; empty means OTHER.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return PaymentOther, nil
	}
	return parseEnum("payment_method", s, AllPaymentMethods)
}

// Expense is a posted spend against one category of one budget.
type Expense struct {
	ID         string
	BudgetID   string
	Category   string
	OwnerID    string
	BusinessID string // optional
	Amount     decimal.Decimal
	Method     PaymentMethod
	At         time.Time
	Note       string
}

// CategoryUsage restricts where a category may be used.
type CategoryUsage string

const (
	UsageExpense  CategoryUsage = "EXPENSE"
	UsageBusiness CategoryUsage = "BUSINESS"
	UsageBoth     CategoryUsage = "BOTH"
)

// ParseCategoryUsage is case-insensitive; empty means BOTH.
func ParseCategoryUsage(s string) (CategoryUsage, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return UsageBoth, nil
	}
	return parseEnum("usage", s, []CategoryUsage{UsageExpense, UsageBusiness, UsageBoth})
}

// Category is reference data keyed by its unique name.
type Category struct {
	Name         string
	Usage        CategoryUsage
	BusinessType BusinessType // optional
	Description  string
}

// ForExpenses reports whether expenses and limits may use this category.
func (c Category) ForExpenses() bool {
	return c.Usage == UsageExpense || c.Usage == UsageBoth
}

// ForBusinesses reports whether businesses may be tagged with this category.
func (c Category) ForBusinesses() bool {
	return c.Usage == UsageBusiness || c.Usage == UsageBoth
}
