package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/bopt/internal/geo"
)

// BusinessType is a closed set of business kinds. Spend metadata lives in config.BusinessTypeInfo.
type BusinessType string

const (
	BusinessRestaurant   BusinessType = "RESTAURANTE"
	BusinessGym          BusinessType = "GIMNASIO"
	BusinessGrocery      BusinessType = "ABASTO"
	BusinessBakery       BusinessType = "PANADERIA"
	BusinessStore        BusinessType = "TIENDA"
	BusinessStreetVendor BusinessType = "VENDEDOR_AMBULANTE"
)

// AllBusinessTypes lists every business type.
var AllBusinessTypes = []BusinessType{
	BusinessRestaurant, BusinessGym, BusinessGrocery,
	BusinessBakery, BusinessStore, BusinessStreetVendor,
}

// ParseBusinessType is case-insensitive.
func ParseBusinessType(s string) (BusinessType, error) {
	return parseEnum("business_type", strings.ToUpper(strings.TrimSpace(s)), AllBusinessTypes)
}

// PriceRange is the span of a business's offerings.
type PriceRange struct {
	Min decimal.Decimal
	Max decimal.Decimal
	Avg decimal.Decimal
}

// Validate checks 0 <= Min <= Max.
func (p PriceRange) Validate() error {
	if p.Min.IsNegative() {
		return Invalid("price.min", "must not be negative", p.Min.String())
	}
	if p.Max.LessThan(p.Min) {
		return Invalid("price.max", "must be at least the minimum", p.Max.String())
	}
	return nil
}

// Contains reports price within [Min, Max].
func (p PriceRange) Contains(price decimal.Decimal) bool {
	return price.GreaterThanOrEqual(p.Min) && price.LessThanOrEqual(p.Max)
}

// CoveredBy reports whether budget reaches at least the cheapest offering.
func (p PriceRange) CoveredBy(budget decimal.Decimal) bool {
	return p.Min.LessThanOrEqual(budget)
}

// Midpoint returns Avg, or (Min+Max)/2 when Avg is unset.
func (p PriceRange) Midpoint() decimal.Decimal {
	if !p.Avg.IsZero() {
		return p.Avg
	}
	return p.Min.Add(p.Max).Div(decimal.NewFromInt(2))
}

// Business is a catalog entry. Rating is derived from its reviews and is nil
// when it has none.
type Business struct {
	ID         string
	Name       string
	Type       BusinessType
	Location   geo.Coordinate
	Address    string
	City       string
	Country    string
	Price      PriceRange
	Categories []string
	Rating     *float64
	Reviews    int
	Active     bool
	CreatedAt  time.Time
}

// HasCategory reports whether the business is tagged with any of names.
func (b Business) HasCategory(names ...string) bool {
	for _, c := range b.Categories {
		for _, n := range names {
			if strings.EqualFold(c, n) {
				return true
			}
		}
	}
	return false
}

// Review is one user's score for a business.
type Review struct {
	ID         string
	BusinessID string
	UserID     string
	Score      int
	Comment    string
	Verified   bool
	At         time.Time
}

// ValidateScore checks the 1..5 range.
func ValidateScore(score int) error {
	if score < 1 || score > 5 {
		return Invalid("score", "must be between 1 and 5", score)
	}
	return nil
}

// Positive reports score >= 4.
func (r Review) Positive() bool { return r.Score >= 4 }

// RecentSince reports whether the review was written after cutoff.
func (r Review) RecentSince(cutoff time.Time) bool { return r.At.After(cutoff) }

// AverageRating returns the mean score, or nil with no reviews.
func AverageRating(reviews []Review) *float64 {
	if len(reviews) == 0 {
		return nil
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Score
	}
	avg := float64(sum) / float64(len(reviews))
	return &avg
}
