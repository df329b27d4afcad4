package config

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Tier is an account plan.
type Tier string

const (
	TierUser     Tier = "USER"
	TierPremium  Tier = "PREMIUM"
	TierBusiness Tier = "BUSINESS"
	TierAdmin    Tier = "ADMIN"
)

// TierInfo holds the benefits attached to an account tier.
type TierInfo struct {
	DiscountPercent  float64
	TransactionLimit int
	AccessLevel      int
}

// Tiers maps each account tier to its benefits.
var Tiers = map[Tier]TierInfo{
	TierUser:     {DiscountPercent: 0, TransactionLimit: 100, AccessLevel: 1},
	TierPremium:  {DiscountPercent: 10, TransactionLimit: 1000, AccessLevel: 2},
	TierBusiness: {DiscountPercent: 5, TransactionLimit: 500, AccessLevel: 2},
	TierAdmin:    {DiscountPercent: 15, TransactionLimit: 999999, AccessLevel: 3},
}

// ParseTier is case-insensitive; empty means USER.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToUpper(strings.TrimSpace(s)))
	if t == "" {
		return TierUser, nil
	}
	if _, ok := Tiers[t]; !ok {
		return "", fmt.Errorf("unknown account tier %q", s)
	}
	return t, nil
}

// ApplyDiscount returns amount reduced by the tier's discount.
func ApplyDiscount(t Tier, amount decimal.Decimal) decimal.Decimal {
	info := Tiers[t]
	off := amount.Mul(decimal.NewFromFloat(info.DiscountPercent)).Div(decimal.NewFromInt(100))
	return amount.Sub(off).Round(2)
}

// CanTransact reports whether count is within the tier's monthly limit.
func CanTransact(t Tier, count int) bool {
	return count <= Tiers[t].TransactionLimit
}

// HasAccess reports whether the tier reaches the required access level.
func HasAccess(t Tier, level int) bool {
	return Tiers[t].AccessLevel >= level
}

// RecommendTier picks a plan from monthly spend and the savings percentage a
// premium discount would yield.
func RecommendTier(monthlySpend decimal.Decimal, savingsPercent float64) Tier {
	switch {
	case monthlySpend.LessThan(decimal.NewFromInt(500)):
		return TierUser
	case monthlySpend.LessThanOrEqual(decimal.NewFromInt(2000)):
		if savingsPercent > 10 {
			return TierPremium
		}
		return TierUser
	default:
		return TierPremium
	}
}
