package matcher

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/theirongolddev/bopt/internal/logging"
	"github.com/theirongolddev/bopt/internal/model"
	"github.com/theirongolddev/bopt/internal/store"
)

// Catalog supplies the businesses to match against.
type Catalog interface {
	Snapshot(ctx context.Context) ([]model.Business, error)
}

// Ledgers supplies the remaining budget for budget-scoped searches.
type Ledgers interface {
	Get(ctx context.Context, budgetID string) (model.Ledger, error)
}

// Service runs searches and keeps each owner's search history.
type Service struct {
	catalog Catalog
	ledgers Ledgers
	store   store.Store
	log     *zap.Logger
	now     func() time.Time
}

// NewService wires a matcher over a catalog, the ledger and the history store.
func NewService(c Catalog, l Ledgers, st store.Store, log *zap.Logger) *Service {
	return &Service{catalog: c, ledgers: l, store: st, log: logging.OrNop(log).Named("matcher"), now: time.Now}
}

// Result is a completed search.
type Result struct {
	SearchID string
	Budget   decimal.Decimal
	Matches  []Match
}

// Search matches q against the current catalog. Searches by a known owner
// are recorded in their history.
func (s *Service) Search(ctx context.Context, ownerID string, q Query) (Result, error) {
	businesses, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return Result{}, err
	}
	matches, err := Find(businesses, q)
	if err != nil {
		return Result{}, err
	}

	res := Result{Budget: q.Budget, Matches: matches}
	if ownerID == "" {
		return res, nil
	}

	rec := model.SearchRecord{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		At:           s.now(),
		Origin:       q.Origin,
		RadiusMeters: q.RadiusMeters,
		Budget:       q.Budget,
		Categories:   q.Categories,
		MinRating:    q.MinRating,
		Results:      len(matches),
	}
	if err := s.store.Update(ctx, func(w store.Writer) error { return w.PutSearch(ctx, rec) }); err != nil {
		// history is best effort
		s.log.Warn("recording search", zap.String("owner_id", ownerID), zap.Error(err))
		return res, nil
	}
	res.SearchID = rec.ID
	s.log.Debug("search", zap.String("search_id", rec.ID), zap.Int("results", len(matches)),
		zap.Int("filters", rec.FiltersUsed()))
	return res, nil
}

// ForBudget searches with the budget's remaining amount as the spend,
// floored at zero.
func (s *Service) ForBudget(ctx context.Context, ownerID, budgetID string, q Query) (Result, error) {
	l, err := s.ledgers.Get(ctx, budgetID)
	if err != nil {
		return Result{}, err
	}
	q.Budget = decimal.Max(decimal.Zero, l.Remaining())
	if ownerID == "" {
		ownerID = l.Budget.OwnerID
	}
	return s.Search(ctx, ownerID, q)
}

// Select records the business the user picked from a search.
func (s *Service) Select(ctx context.Context, searchID, businessID string) error {
	return s.store.Update(ctx, func(w store.Writer) error {
		rec, err := w.Search(ctx, searchID)
		if err != nil {
			return err
		}
		if _, err := w.Business(ctx, businessID); err != nil {
			return err
		}
		rec.SelectedID = businessID
		return w.PutSearch(ctx, rec)
	})
}

// History returns an owner's most recent searches, newest first.
func (s *Service) History(ctx context.Context, ownerID string, limit int) ([]model.SearchRecord, error) {
	return s.store.Searches(ctx, ownerID, limit)
}
