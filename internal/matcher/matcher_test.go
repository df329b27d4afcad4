package matcher

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/bopt/internal/geo"
	"github.com/theirongolddev/bopt/internal/model"
)

func ptr(f float64) *float64 { return &f }

func biz(id string, lat, lon float64, min, max int64, rating *float64, cats ...string) model.Business {
	return model.Business{
		ID:         id,
		Name:       id,
		Type:       model.BusinessStore,
		Location:   geo.Coordinate{Lat: lat, Lon: lon},
		Price:      model.PriceRange{Min: decimal.NewFromInt(min), Max: decimal.NewFromInt(max)},
		Categories: cats,
		Rating:     rating,
		Active:     true,
	}
}

func ids(ms []Match) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Business.ID
	}
	return out
}

func TestFind_OriginAndOneDegree(t *testing.T) {
	catalog := []model.Business{
		biz("here", 0, 0, 1, 10, nil),
		biz("far", 1, 1, 1, 10, nil),
	}
	got, err := Find(catalog, Query{RadiusMeters: 1000, Budget: decimal.NewFromInt(5)})
	require.NoError(t, err)
	require.Equal(t, []string{"here"}, ids(got))
	assert.Zero(t, got[0].DistanceMeters)

	got, err = Find(catalog, Query{RadiusMeters: 157_000, Budget: decimal.NewFromInt(5)})
	require.NoError(t, err)
	assert.Equal(t, []string{"here"}, ids(got))

	got, err = Find(catalog, Query{RadiusMeters: 157_300, Budget: decimal.NewFromInt(5)})
	require.NoError(t, err)
	assert.Equal(t, []string{"here", "far"}, ids(got))
}

func TestFind_Filters(t *testing.T) {
	inactive := biz("inactive", 0, 0, 1, 10, ptr(5), "food")
	inactive.Active = false
	catalog := []model.Business{
		inactive,
		biz("pricey", 0, 0.001, 50, 90, ptr(5), "food"),
		biz("gym", 0, 0.001, 1, 10, ptr(5), "fitness"),
		biz("unrated", 0, 0.001, 1, 10, nil, "food"),
		biz("low", 0, 0.001, 1, 10, ptr(2.5), "food"),
		biz("good", 0, 0.002, 1, 10, ptr(4), "FOOD", "dinner"),
	}
	q := Query{RadiusMeters: 500, Budget: decimal.NewFromInt(20), Categories: []string{"food"}, MinRating: ptr(3)}
	got, err := Find(catalog, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"good"}, ids(got))

	q.MinRating = nil
	got, err = Find(catalog, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"low", "unrated", "good"}, ids(got), "unrated ranks below rated at equal distance")

	q.Categories = nil
	got, err = Find(catalog, q)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"gym", "unrated", "low", "good"}, ids(got))
}

func TestFind_Affordability(t *testing.T) {
	catalog := []model.Business{biz("b", 0, 0, 10, 20, nil)}
	for _, tt := range []struct {
		budget int64
		strict bool
		want   int
	}{
		{9, false, 0},
		{10, false, 1},
		{50, false, 1},
		{10, true, 1},
		{20, true, 1},
		{21, true, 0},
	} {
		got, err := Find(catalog, Query{RadiusMeters: 1, Budget: decimal.NewFromInt(tt.budget), StrictPrice: tt.strict})
		require.NoError(t, err)
		assert.Len(t, got, tt.want, "budget %d strict %v", tt.budget, tt.strict)
	}
}

func TestFind_OrderAndDedupe(t *testing.T) {
	catalog := []model.Business{
		biz("c", 0, 0.01, 1, 2, ptr(3)),
		biz("b", 0, 0.01, 1, 2, ptr(4)),
		biz("a", 0, 0.01, 1, 2, ptr(4)),
		biz("near", 0, 0.001, 1, 2, ptr(1)),
		biz("a", 0, 0.01, 1, 2, ptr(4)),
	}
	got, err := Find(catalog, Query{RadiusMeters: 5000, Budget: decimal.NewFromInt(2)})
	require.NoError(t, err)
	assert.Equal(t, []string{"near", "a", "b", "c"}, ids(got))

	got, err = Find(catalog, Query{RadiusMeters: 5000, Budget: decimal.NewFromInt(2), Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"near", "a"}, ids(got))
}

func TestFind_EmptyIsNotAnError(t *testing.T) {
	got, err := Find(nil, Query{RadiusMeters: 10})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFind_Validation(t *testing.T) {
	for name, q := range map[string]Query{
		"origin":     {Origin: geo.Coordinate{Lat: 100}},
		"radius":     {RadiusMeters: -1},
		"budget":     {Budget: decimal.NewFromInt(-1)},
		"min rating": {MinRating: ptr(6)},
		"limit":      {Limit: -2},
	} {
		_, err := Find(nil, q)
		assert.True(t, model.IsValidation(err), name)
	}
}

func randomCatalog(rng *rand.Rand, n int) []model.Business {
	out := make([]model.Business, n)
	for i := range out {
		var r *float64
		if rng.Intn(4) > 0 {
			r = ptr(float64(rng.Intn(9)+2) / 2)
		}
		lo := int64(rng.Intn(50))
		b := biz(
			string(rune('A'+i%26))+decimal.NewFromInt(int64(i)).String(),
			rng.Float64()*0.2-0.1, rng.Float64()*0.2-0.1,
			lo, lo+int64(rng.Intn(50)), r,
			[]string{"food", "fitness", "grocery"}[rng.Intn(3)],
		)
		b.Active = rng.Intn(10) > 0
		out[i] = b
	}
	return out
}

func TestFind_OutputIsSortedFilteredSubset(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	catalog := randomCatalog(rng, 500)
	q := Query{RadiusMeters: 8000, Budget: decimal.NewFromInt(30), Categories: []string{"food", "grocery"}, MinRating: ptr(2.5)}

	got, err := Find(catalog, q)
	require.NoError(t, err)
	require.NotEmpty(t, got)

	byID := make(map[string]model.Business, len(catalog))
	for _, b := range catalog {
		byID[b.ID] = b
	}
	for _, m := range got {
		b, ok := byID[m.Business.ID]
		require.True(t, ok)
		assert.True(t, b.Active)
		assert.LessOrEqual(t, m.DistanceMeters, q.RadiusMeters)
		assert.True(t, b.Price.Min.LessThanOrEqual(q.Budget))
		assert.True(t, b.HasCategory(q.Categories...))
		require.NotNil(t, b.Rating)
		assert.GreaterOrEqual(t, *b.Rating, *q.MinRating)
	}
	assert.True(t, sort.SliceIsSorted(got, func(i, j int) bool { return less(got[i], got[j]) }))
}

func BenchmarkFind(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	catalog := randomCatalog(rng, 10_000)
	q := Query{RadiusMeters: 5000, Budget: decimal.NewFromInt(25), Categories: []string{"food"}}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Find(catalog, q); err != nil {
			b.Fatal(err)
		}
	}
}
