// Package matcher ranks catalog businesses for a location and a spend.
//
// Find is pure and safe for any number of concurrent calls over a shared
// catalog snapshot.
package matcher

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/bopt/internal/geo"
	"github.com/theirongolddev/bopt/internal/model"
)

// Query selects and ranks businesses.
type Query struct {
	Origin       geo.Coordinate
	RadiusMeters float64
	// Budget is the amount available to spend. A business is affordable when
	// its cheapest offering fits in it.
	Budget     decimal.Decimal
	Categories []string
	MinRating  *float64
	// StrictPrice requires Budget to fall inside the business's price range
	// instead of merely reaching its minimum.
	StrictPrice bool
	// Limit caps the number of matches; zero means no cap.
	Limit int
}

// Validate rejects malformed queries.
func (q Query) Validate() error {
	if err := q.Origin.Validate(); err != nil {
		return model.Invalid("origin", err.Error(), q.Origin.String())
	}
	if math.IsNaN(q.RadiusMeters) || q.RadiusMeters < 0 {
		return model.Invalid("radius", "must not be negative", q.RadiusMeters)
	}
	if q.Budget.IsNegative() {
		return model.Invalid("budget", "must not be negative", q.Budget.String())
	}
	if q.MinRating != nil && (*q.MinRating < 0 || *q.MinRating > 5) {
		return model.Invalid("min_rating", "must be between 0 and 5", *q.MinRating)
	}
	if q.Limit < 0 {
		return model.Invalid("limit", "must not be negative", q.Limit)
	}
	return nil
}

// Match is a ranked business with its distance from the query origin.
type Match struct {
	Business       model.Business
	DistanceMeters float64
}

// Find filters catalog to active, nearby, affordable businesses in the
// requested categories with at least the minimum rating, ordered by distance
// ascending, then rating descending, then id. No match is not an error.
func Find(catalog []model.Business, q Query) ([]Match, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(catalog))
	var out []Match
	for _, b := range catalog {
		if seen[b.ID] {
			continue
		}
		seen[b.ID] = true

		if !b.Active {
			continue
		}
		d := geo.Distance(q.Origin, b.Location)
		if d > q.RadiusMeters {
			continue
		}
		if !affordable(b.Price, q) {
			continue
		}
		if len(q.Categories) > 0 && !b.HasCategory(q.Categories...) {
			continue
		}
		if q.MinRating != nil && (b.Rating == nil || *b.Rating < *q.MinRating) {
			continue
		}
		out = append(out, Match{Business: b, DistanceMeters: d})
	}

	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func affordable(p model.PriceRange, q Query) bool {
	if q.StrictPrice {
		return p.Contains(q.Budget)
	}
	return p.CoveredBy(q.Budget)
}

func less(a, b Match) bool {
	if a.DistanceMeters != b.DistanceMeters {
		return a.DistanceMeters < b.DistanceMeters
	}
	ra, rb := rating(a.Business), rating(b.Business)
	if ra != rb {
		return ra > rb
	}
	return a.Business.ID < b.Business.ID
}

// rating ranks unrated businesses below every rated one.
func rating(b model.Business) float64 {
	if b.Rating == nil {
		return -1
	}
	return *b.Rating
}
