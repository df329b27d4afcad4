package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/theirongolddev/bopt/internal/model"
	"github.com/theirongolddev/bopt/internal/store"
)

// openStatuses are the statuses a sweep may still complete.
var openStatuses = []model.BudgetStatus{
	model.StatusDraft, model.StatusActive, model.StatusPaused, model.StatusExceeded,
}

// LimitAlert is the derived usage state of one category limit.
type LimitAlert struct {
	BudgetID    string
	BudgetName  string
	Category    string
	Allocated   decimal.Decimal
	Spent       decimal.Decimal
	PercentUsed decimal.Decimal
	Near        bool
	Over        bool
}

// Alerting reports whether the limit is near or over its ceiling.
func (a LimitAlert) Alerting() bool { return a.Near || a.Over }

func (s *Service) alertFor(b model.Budget, lim model.CategoryLimit) LimitAlert {
	return LimitAlert{
		BudgetID:    b.ID,
		BudgetName:  b.Name,
		Category:    lim.Category,
		Allocated:   lim.Allocated,
		Spent:       lim.Spent,
		PercentUsed: lim.PercentUsed(),
		Near:        lim.NearLimit(s.opts.NearLimitPercent),
		Over:        lim.OverLimit(),
	}
}

// Alerts returns the usage state of every limit on a budget.
func (s *Service) Alerts(ctx context.Context, budgetID string) ([]LimitAlert, error) {
	l, err := s.store.Ledger(ctx, budgetID)
	if err != nil {
		return nil, err
	}
	out := make([]LimitAlert, 0, len(l.Limits))
	for _, lim := range l.Limits {
		out = append(out, s.alertFor(l.Budget, lim))
	}
	return out, nil
}

// NearLimits returns alerting limits across an owner's spending budgets.
// An empty owner matches every budget.
func (s *Service) NearLimits(ctx context.Context, ownerID string) ([]LimitAlert, error) {
	budgets, err := s.store.Budgets(ctx, store.BudgetFilter{
		OwnerID:  ownerID,
		Statuses: []model.BudgetStatus{model.StatusActive, model.StatusExceeded},
	})
	if err != nil {
		return nil, err
	}
	var out []LimitAlert
	for _, b := range budgets {
		alerts, err := s.Alerts(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		for _, a := range alerts {
			if a.Alerting() {
				out = append(out, a)
			}
		}
	}
	return out, nil
}

// Expiring returns open budgets that end within the window from now.
func (s *Service) Expiring(ctx context.Context, ownerID string, within time.Duration) ([]model.Budget, error) {
	now := s.opts.Now()
	budgets, err := s.store.Budgets(ctx, store.BudgetFilter{
		OwnerID:   ownerID,
		Statuses:  openStatuses,
		EndBefore: now.Add(within),
	})
	if err != nil {
		return nil, err
	}
	out := budgets[:0]
	for _, b := range budgets {
		if !b.Expired(now) {
			out = append(out, b)
		}
	}
	return out, nil
}

// CompleteExpired completes every open budget whose end has passed.
func (s *Service) CompleteExpired(ctx context.Context) ([]model.Budget, error) {
	now := s.opts.Now()
	due, err := s.store.Budgets(ctx, store.BudgetFilter{Statuses: openStatuses, EndBefore: now})
	if err != nil {
		return nil, err
	}

	var done []model.Budget
	var errs []error
	for _, b := range due {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		out, err := s.Complete(ctx, b.ID)
		if err != nil {
			s.log.Warn("completing expired budget", zap.String("budget_id", b.ID), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		done = append(done, out)
	}
	if len(done) > 0 {
		s.log.Info("expired budgets completed", zap.Int("count", len(done)))
	}
	return done, errors.Join(errs...)
}

// Summary is the headline state of one budget.
type Summary struct {
	Budget    model.Budget
	Spent     decimal.Decimal
	Remaining decimal.Decimal
	Allocated decimal.Decimal
	Expenses  int
	Alerts    int
}

// Summarize derives a Summary from a loaded ledger.
func (s *Service) Summarize(l model.Ledger) Summary {
	sum := Summary{
		Budget:    l.Budget,
		Spent:     l.TotalSpent(),
		Remaining: l.Remaining(),
		Allocated: l.Allocated(),
		Expenses:  len(l.Expenses),
	}
	for _, lim := range l.Limits {
		if s.alertFor(l.Budget, lim).Alerting() {
			sum.Alerts++
		}
	}
	return sum
}
