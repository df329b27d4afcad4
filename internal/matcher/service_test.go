package matcher

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/bopt/internal/catalog"
	"github.com/theirongolddev/bopt/internal/geo"
	"github.com/theirongolddev/bopt/internal/ledger"
	"github.com/theirongolddev/bopt/internal/model"
	"github.com/theirongolddev/bopt/internal/store"
)

func TestServiceForBudget(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	cat := catalog.New(st, nil)
	led := ledger.New(st, ledger.DefaultOptions())
	svc := NewService(cat, led, st, nil)

	_, err := cat.AddCategory(ctx, model.Category{Name: "food"})
	require.NoError(t, err)
	cheap, err := cat.AddBusiness(ctx, catalog.NewBusiness{
		Name: "cheap", Type: model.BusinessBakery, Location: geo.Coordinate{Lat: 0, Lon: 0.001},
		Price: model.PriceRange{Min: decimal.NewFromInt(5), Max: decimal.NewFromInt(15)}, Categories: []string{"food"},
	})
	require.NoError(t, err)
	_, err = cat.AddBusiness(ctx, catalog.NewBusiness{
		Name: "fancy", Type: model.BusinessRestaurant, Location: geo.Coordinate{Lat: 0, Lon: 0.002},
		Price: model.PriceRange{Min: decimal.NewFromInt(80), Max: decimal.NewFromInt(200)}, Categories: []string{"food"},
	})
	require.NoError(t, err)

	b, err := led.Create(ctx, ledger.NewBudget{OwnerID: "u1", Name: "food", Total: decimal.NewFromInt(100)})
	require.NoError(t, err)
	_, err = led.Activate(ctx, b.ID)
	require.NoError(t, err)
	_, err = led.Post(ctx, ledger.NewExpense{BudgetID: b.ID, Category: "food", Amount: decimal.NewFromInt(40)})
	require.NoError(t, err)

	res, err := svc.ForBudget(ctx, "", b.ID, Query{RadiusMeters: 1000})
	require.NoError(t, err)
	assert.True(t, res.Budget.Equal(decimal.NewFromInt(60)))
	require.Len(t, res.Matches, 1)
	assert.Equal(t, cheap.ID, res.Matches[0].Business.ID)
	require.NotEmpty(t, res.SearchID)

	require.NoError(t, svc.Select(ctx, res.SearchID, cheap.ID))
	assert.ErrorIs(t, svc.Select(ctx, res.SearchID, "ghost"), model.ErrNotFound)
	assert.ErrorIs(t, svc.Select(ctx, "ghost", cheap.ID), model.ErrNotFound)

	hist, err := svc.History(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, cheap.ID, hist[0].SelectedID)
	assert.Equal(t, 1, hist[0].Results)
	assert.WithinDuration(t, time.Now(), hist[0].At, time.Minute)

	// overspent budgets search with nothing to spend
	_, err = led.Post(ctx, ledger.NewExpense{BudgetID: b.ID, Category: "food", Amount: decimal.NewFromInt(100)})
	require.NoError(t, err)
	res, err = svc.ForBudget(ctx, "", b.ID, Query{RadiusMeters: 1000})
	require.NoError(t, err)
	assert.True(t, res.Budget.IsZero())
	assert.Empty(t, res.Matches)
}

func TestServiceSearch_AnonymousNotRecorded(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := NewService(catalog.New(st, nil), ledger.New(st, ledger.DefaultOptions()), st, nil)

	res, err := svc.Search(ctx, "", Query{RadiusMeters: 10})
	require.NoError(t, err)
	assert.Empty(t, res.SearchID)
	hist, err := svc.History(ctx, "", 0)
	require.NoError(t, err)
	assert.Empty(t, hist)
}
