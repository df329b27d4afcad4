package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/bopt/internal/geo"
)

// SearchRecord is one recorded business search and, later, the result the
// user picked.
type SearchRecord struct {
	ID           string
	OwnerID      string
	At           time.Time
	Origin       geo.Coordinate
	RadiusMeters float64
	Budget       decimal.Decimal
	Categories   []string
	MinRating    *float64
	Results      int
	SelectedID   string
}

// FiltersUsed counts the optional filters the search applied.
func (s SearchRecord) FiltersUsed() int {
	n := 0
	if len(s.Categories) > 0 {
		n++
	}
	if s.MinRating != nil {
		n++
	}
	return n
}
