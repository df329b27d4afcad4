// Package ledger owns budgets, their category limits and the expenses posted
// against them. All writes to one budget are serialized.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/theirongolddev/bopt/internal/config"
	"github.com/theirongolddev/bopt/internal/logging"
	"github.com/theirongolddev/bopt/internal/model"
	"github.com/theirongolddev/bopt/internal/store"
)

// Options tunes ledger behavior.
type Options struct {
	// AutoCreateLimits adds a zero-allocation limit when an expense is posted
	// to a category the budget has no limit for. When false such posts fail.
	AutoCreateLimits bool
	// AutoRevertExceeded returns an EXCEEDED budget to ACTIVE once spend drops
	// back to or under its total.
	AutoRevertExceeded bool
	// NearLimitPercent is the usage at which a limit raises a near-limit alert.
	NearLimitPercent decimal.Decimal

	Now     func() time.Time
	Logger  *zap.Logger
	OnEvent func(Event)
}

// DefaultOptions mirrors the default engine config.
func DefaultOptions() Options {
	return Options{
		AutoCreateLimits:   true,
		AutoRevertExceeded: true,
		NearLimitPercent:   model.DefaultNearLimitPercent,
	}
}

// OptionsFromConfig builds Options from the engine section.
func OptionsFromConfig(e config.EngineConfig) Options {
	o := DefaultOptions()
	o.AutoCreateLimits = e.AutoCreateLimits
	o.AutoRevertExceeded = e.AutoRevertExceeded
	if e.NearLimitPercent > 0 {
		o.NearLimitPercent = e.NearLimit()
	}
	return o
}

// Service is the budget ledger and expense reconciler.
type Service struct {
	store store.Store
	opts  Options
	log   *zap.Logger
	locks *keyedMutex
}

// New creates a ledger over st.
func New(st store.Store, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NearLimitPercent.IsZero() {
		opts.NearLimitPercent = model.DefaultNearLimitPercent
	}
	return &Service{
		store: st,
		opts:  opts,
		log:   logging.OrNop(opts.Logger).Named("ledger"),
		locks: newKeyedMutex(),
	}
}

// Lock takes the exclusive per-budget lock shared by every ledger writer.
// Other packages that mutate a ledger must hold it for the whole write.
func (s *Service) Lock(budgetID string) (unlock func()) {
	return s.locks.Lock(budgetID)
}

// Options returns the service's effective options.
func (s *Service) Options() Options { return s.opts }

func (s *Service) emit(events []Event) {
	if s.opts.OnEvent == nil {
		return
	}
	for _, e := range events {
		s.opts.OnEvent(e)
	}
}

// NewBudget describes a budget to create.
type NewBudget struct {
	OwnerID string
	Name    string
	Total   decimal.Decimal
	Period  model.Period
	Start   time.Time
	End     time.Time // derived from Period when zero
	Limits  map[string]decimal.Decimal
}

// Create stores a new DRAFT budget with its initial limits.
func (s *Service) Create(ctx context.Context, in NewBudget) (model.Budget, error) {
	now := s.opts.Now()
	if strings.TrimSpace(in.OwnerID) == "" {
		return model.Budget{}, model.Invalid("owner_id", "required", nil)
	}
	if strings.TrimSpace(in.Name) == "" {
		return model.Budget{}, model.Invalid("name", "required", nil)
	}
	if !in.Total.IsPositive() {
		return model.Budget{}, model.Invalid("total", "must be positive", in.Total.String())
	}
	if in.Period == "" {
		in.Period = model.PeriodMonthly
	}
	if _, ok := config.Periods[in.Period]; !ok {
		return model.Budget{}, model.Invalid("period", "unknown value", string(in.Period))
	}
	if in.Start.IsZero() {
		in.Start = now
	}
	if in.End.IsZero() {
		in.End = config.PeriodEnd(in.Period, in.Start)
		if in.End.IsZero() {
			return model.Budget{}, model.Invalid("end", "required for CUSTOM period", nil)
		}
	}
	if !in.End.After(in.Start) {
		return model.Budget{}, model.Invalid("end", "must be after start", in.End.Format(time.RFC3339))
	}

	b := model.Budget{
		ID:        uuid.NewString(),
		OwnerID:   in.OwnerID,
		Name:      strings.TrimSpace(in.Name),
		Total:     in.Total,
		Start:     in.Start,
		End:       in.End,
		Period:    in.Period,
		Status:    model.StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.store.Update(ctx, func(w store.Writer) error {
		if err := w.PutBudget(ctx, b); err != nil {
			return err
		}
		for name, amt := range in.Limits {
			if err := CheckAllocation(ctx, w, name, amt); err != nil {
				return err
			}
			lim := model.CategoryLimit{BudgetID: b.ID, Category: name, Allocated: amt, UpdatedAt: now}
			if err := w.PutLimit(ctx, lim); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return model.Budget{}, err
	}
	s.log.Info("budget created", zap.String("budget_id", b.ID), zap.String("owner_id", b.OwnerID),
		zap.String("total", b.Total.String()), zap.Int("limits", len(in.Limits)))
	return b, nil
}

// CheckAllocation validates a limit's category and amount against r.
func CheckAllocation(ctx context.Context, r store.Reader, category string, allocated decimal.Decimal) error {
	if allocated.IsNegative() {
		return model.Invalid("allocated", "must not be negative", allocated.String())
	}
	c, err := r.Category(ctx, category)
	if err != nil {
		return err
	}
	if !c.ForExpenses() {
		return model.Invalid("category", "not usable for expenses", category)
	}
	return nil
}

// Get loads a budget's ledger.
func (s *Service) Get(ctx context.Context, budgetID string) (model.Ledger, error) {
	return s.store.Ledger(ctx, budgetID)
}

// List returns budgets matching f.
func (s *Service) List(ctx context.Context, f store.BudgetFilter) ([]model.Budget, error) {
	return s.store.Budgets(ctx, f)
}

// Activate moves a DRAFT or PAUSED budget to ACTIVE.
func (s *Service) Activate(ctx context.Context, budgetID string) (model.Budget, error) {
	return s.transition(ctx, budgetID, ActionActivate)
}

// Pause moves an ACTIVE or EXCEEDED budget to PAUSED.
func (s *Service) Pause(ctx context.Context, budgetID string) (model.Budget, error) {
	return s.transition(ctx, budgetID, ActionPause)
}

// Complete finishes a budget. Completing a terminal budget changes nothing.
func (s *Service) Complete(ctx context.Context, budgetID string) (model.Budget, error) {
	return s.transition(ctx, budgetID, ActionComplete)
}

// Cancel abandons a non-terminal budget.
func (s *Service) Cancel(ctx context.Context, budgetID string) (model.Budget, error) {
	return s.transition(ctx, budgetID, ActionCancel)
}

// Archive freezes a COMPLETED or CANCELLED budget.
func (s *Service) Archive(ctx context.Context, budgetID string) (model.Budget, error) {
	return s.transition(ctx, budgetID, ActionArchive)
}

func (s *Service) transition(ctx context.Context, budgetID string, a Action) (model.Budget, error) {
	unlock := s.locks.Lock(budgetID)
	defer unlock()

	var out model.Budget
	var events []Event
	err := s.store.Update(ctx, func(w store.Writer) error {
		l, err := w.Ledger(ctx, budgetID)
		if err != nil {
			return err
		}
		from := l.Budget.Status
		to, err := Next(from, a)
		if err != nil {
			return err
		}
		out = l.Budget
		if to == from {
			return nil
		}

		l.Budget.Status = to
		if to == model.StatusActive {
			// spend may already be past the total when resuming
			settle(&l, s.opts.AutoRevertExceeded)
		}
		l.Budget.UpdatedAt = s.opts.Now()
		if err := w.PutBudget(ctx, l.Budget); err != nil {
			return err
		}
		out = l.Budget
		events = append(events, statusEvent(l.Budget, from, s.opts.Now()))
		return nil
	})
	if err != nil {
		return model.Budget{}, err
	}
	if len(events) > 0 {
		s.log.Info("budget status changed", zap.String("budget_id", budgetID),
			zap.String("action", string(a)), zap.String("status", string(out.Status)))
	}
	s.emit(events)
	return out, nil
}

// SetLimit upserts a category allocation on an editable budget, keeping its spend.
func (s *Service) SetLimit(ctx context.Context, budgetID, category string, allocated decimal.Decimal) (model.CategoryLimit, error) {
	unlock := s.locks.Lock(budgetID)
	defer unlock()

	var out model.CategoryLimit
	err := s.store.Update(ctx, func(w store.Writer) error {
		l, err := w.Ledger(ctx, budgetID)
		if err != nil {
			return err
		}
		if !l.Budget.Status.Editable() {
			return fmt.Errorf("%w: budget %s is %s", model.ErrBudgetNotEditable, budgetID, l.Budget.Status)
		}
		if err := CheckAllocation(ctx, w, category, allocated); err != nil {
			return err
		}
		out = UpsertLimit(&l, category, allocated, s.opts.Now())
		return w.PutLimit(ctx, out)
	})
	if err != nil {
		return model.CategoryLimit{}, err
	}
	s.log.Info("limit set", zap.String("budget_id", budgetID), zap.String("category", category),
		zap.String("allocated", allocated.String()))
	return out, nil
}

// UpsertLimit sets the allocation for category inside l and returns the
// resulting limit. Spend is preserved.
func UpsertLimit(l *model.Ledger, category string, allocated decimal.Decimal, now time.Time) model.CategoryLimit {
	lim := l.Limit(category)
	if lim == nil {
		l.Limits = append(l.Limits, model.CategoryLimit{BudgetID: l.Budget.ID, Category: category})
		lim = &l.Limits[len(l.Limits)-1]
	}
	lim.Allocated = allocated
	lim.UpdatedAt = now
	return *lim
}

// SetTotal changes an editable budget's total.
func (s *Service) SetTotal(ctx context.Context, budgetID string, total decimal.Decimal) (model.Budget, error) {
	if !total.IsPositive() {
		return model.Budget{}, model.Invalid("total", "must be positive", total.String())
	}
	unlock := s.locks.Lock(budgetID)
	defer unlock()

	var out model.Budget
	err := s.store.Update(ctx, func(w store.Writer) error {
		b, err := w.Budget(ctx, budgetID)
		if err != nil {
			return err
		}
		if !b.Status.Editable() {
			return fmt.Errorf("%w: budget %s is %s", model.ErrBudgetNotEditable, budgetID, b.Status)
		}
		b.Total = total
		b.UpdatedAt = s.opts.Now()
		out = b
		return w.PutBudget(ctx, b)
	})
	return out, err
}

// Delete removes a budget with its limits and expenses.
func (s *Service) Delete(ctx context.Context, budgetID string) error {
	unlock := s.locks.Lock(budgetID)
	defer unlock()

	err := s.store.Update(ctx, func(w store.Writer) error {
		return w.DeleteBudget(ctx, budgetID)
	})
	if err == nil {
		s.log.Info("budget deleted", zap.String("budget_id", budgetID))
	}
	return err
}
