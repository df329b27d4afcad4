package config

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/bopt/internal/model"
)

// PaymentInfo holds the fee schedule and settlement flags for a payment method.
type PaymentInfo struct {
	FeePercent    float64
	Instantaneous bool
	Traceable     bool
}

type paymentInfoVersion struct {
	EffectiveFrom time.Time
	Info          PaymentInfo
}

// DefaultPayments maps each payment method to its schedule.
var DefaultPayments = map[model.PaymentMethod]PaymentInfo{
	model.PaymentCash:          {FeePercent: 0, Instantaneous: true, Traceable: false},
	model.PaymentDebitCard:     {FeePercent: 0, Instantaneous: true, Traceable: true},
	model.PaymentCreditCard:    {FeePercent: 2.5, Instantaneous: false, Traceable: true},
	model.PaymentBankTransfer:  {FeePercent: 0, Instantaneous: true, Traceable: true},
	model.PaymentMobile:        {FeePercent: 1.0, Instantaneous: true, Traceable: true},
	model.PaymentQRCode:        {FeePercent: 0.5, Instantaneous: true, Traceable: true},
	model.PaymentDigitalWallet: {FeePercent: 1.5, Instantaneous: true, Traceable: true},
	model.PaymentCheck:         {FeePercent: 0, Instantaneous: true, Traceable: true},
	model.PaymentCrypto:        {FeePercent: 3.0, Instantaneous: false, Traceable: true},
	model.PaymentOther:         {FeePercent: 0, Instantaneous: true, Traceable: false},
}

// defaultPaymentHistory stores effective-dated schedules per method.
// Entries must be sorted by EffectiveFrom ascending.
var defaultPaymentHistory = makeDefaultPaymentHistory(DefaultPayments)

func makeDefaultPaymentHistory(base map[model.PaymentMethod]PaymentInfo) map[model.PaymentMethod][]paymentInfoVersion {
	history := make(map[model.PaymentMethod][]paymentInfoVersion, len(base))
	for method, info := range base {
		history[method] = []paymentInfoVersion{{Info: info}}
	}
	return history
}

// LookupPayment returns the current schedule for a method.
func LookupPayment(method model.PaymentMethod) (PaymentInfo, bool) {
	return LookupPaymentAt(method, time.Time{})
}

// LookupPaymentAt returns the schedule in effect at the given time.
// If at is zero, the latest entry is used.
func LookupPaymentAt(method model.PaymentMethod, at time.Time) (PaymentInfo, bool) {
	versions, ok := defaultPaymentHistory[method]
	if !ok || len(versions) == 0 {
		p, fallback := DefaultPayments[method]
		return p, fallback
	}

	if at.IsZero() {
		return versions[len(versions)-1].Info, true
	}

	at = at.UTC()
	selected := versions[0].Info
	for _, v := range versions {
		if v.EffectiveFrom.IsZero() || !at.Before(v.EffectiveFrom.UTC()) {
			selected = v.Info
			continue
		}
		break
	}
	return selected, true
}

// FeeSchedule resolves fee percentages, letting user overrides win.
type FeeSchedule struct {
	overrides map[model.PaymentMethod]float64
}

// NewFeeSchedule builds a schedule from config overrides. Unknown method
// names are ignored.
func NewFeeSchedule(o FeeOverrides) FeeSchedule {
	s := FeeSchedule{overrides: make(map[model.PaymentMethod]float64, len(o.Overrides))}
	for name, pct := range o.Overrides {
		m, err := model.ParsePaymentMethod(name)
		if err != nil {
			continue
		}
		s.overrides[m] = pct
	}
	return s
}

// Percent returns the fee percentage for method at time at.
func (s FeeSchedule) Percent(method model.PaymentMethod, at time.Time) float64 {
	if pct, ok := s.overrides[method]; ok {
		return pct
	}
	info, _ := LookupPaymentAt(method, at)
	return info.FeePercent
}

// Fee computes the fee charged on amount, rounded to cents.
func (s FeeSchedule) Fee(method model.PaymentMethod, at time.Time, amount decimal.Decimal) decimal.Decimal {
	pct := decimal.NewFromFloat(s.Percent(method, at))
	return amount.Mul(pct).Div(decimal.NewFromInt(100)).Round(2)
}

// CalculateFee computes the default fee on amount.
func CalculateFee(method model.PaymentMethod, amount decimal.Decimal) decimal.Decimal {
	return FeeSchedule{}.Fee(method, time.Time{}, amount)
}

// TotalWithFee returns what the payer is charged: amount plus its fee.
func (s FeeSchedule) TotalWithFee(method model.PaymentMethod, at time.Time, amount decimal.Decimal) decimal.Decimal {
	return amount.Add(s.Fee(method, at, amount))
}

// IsDigital reports whether the method settles electronically.
func IsDigital(method model.PaymentMethod) bool {
	return method != model.PaymentCash && method != model.PaymentCheck
}
