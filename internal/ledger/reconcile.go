package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/theirongolddev/bopt/internal/model"
	"github.com/theirongolddev/bopt/internal/store"
)

// NewExpense describes an expense to post.
type NewExpense struct {
	ID         string // generated when empty
	BudgetID   string
	Category   string
	OwnerID    string // defaults to the budget owner
	BusinessID string
	Amount     decimal.Decimal
	Method     model.PaymentMethod
	At         time.Time
	Note       string
}

func (in NewExpense) validate() error {
	if strings.TrimSpace(in.BudgetID) == "" {
		return model.Invalid("budget_id", "required", nil)
	}
	if strings.TrimSpace(in.Category) == "" {
		return model.Invalid("category", "required", nil)
	}
	if !in.Amount.IsPositive() {
		return model.Invalid("amount", "must be positive", in.Amount.String())
	}
	if _, err := model.ParsePaymentMethod(string(in.Method)); err != nil {
		return err
	}
	return nil
}

// Post records an expense and charges it to its category limit in one
// transaction, then re-evaluates the budget's EXCEEDED status. Category
// limits are advisory: a post is never refused for exceeding one.
func (s *Service) Post(ctx context.Context, in NewExpense) (model.Expense, error) {
	if err := in.validate(); err != nil {
		return model.Expense{}, err
	}
	if in.Method == "" {
		in.Method = model.PaymentOther
	}
	now := s.opts.Now()
	if in.At.IsZero() {
		in.At = now
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}

	unlock := s.locks.Lock(in.BudgetID)
	defer unlock()

	var out model.Expense
	var events []Event
	err := s.store.Update(ctx, func(w store.Writer) error {
		events = events[:0]
		l, err := w.Ledger(ctx, in.BudgetID)
		if err != nil {
			return err
		}
		if !l.Budget.Status.AcceptsExpenses() {
			return fmt.Errorf("%w: budget %s is %s", model.ErrBudgetNotEditable, in.BudgetID, l.Budget.Status)
		}
		if _, err := w.Expense(ctx, in.ID); err == nil {
			return model.Invalid("id", "expense already posted", in.ID)
		}
		cat, err := w.Category(ctx, in.Category)
		if err != nil {
			return err
		}
		if !cat.ForExpenses() {
			return model.Invalid("category", "not usable for expenses", in.Category)
		}

		lim := l.Limit(in.Category)
		if lim == nil {
			if !s.opts.AutoCreateLimits {
				return model.Invalid("category", "budget has no limit for category", in.Category)
			}
			l.Limits = append(l.Limits, model.CategoryLimit{BudgetID: l.Budget.ID, Category: in.Category})
			lim = &l.Limits[len(l.Limits)-1]
		}
		before := *lim
		lim.Charge(in.Amount)
		lim.UpdatedAt = now

		owner := in.OwnerID
		if owner == "" {
			owner = l.Budget.OwnerID
		}
		out = model.Expense{
			ID:         in.ID,
			BudgetID:   in.BudgetID,
			Category:   in.Category,
			OwnerID:    owner,
			BusinessID: in.BusinessID,
			Amount:     in.Amount,
			Method:     in.Method,
			At:         in.At,
			Note:       in.Note,
		}
		l.Expenses = append(l.Expenses, out)

		from := l.Budget.Status
		changed := settle(&l, s.opts.AutoRevertExceeded)
		if !l.Consistent() {
			return fmt.Errorf("%w: budget %s", model.ErrIntegrity, l.Budget.ID)
		}

		if err := w.PutExpense(ctx, out); err != nil {
			return err
		}
		if err := w.PutLimit(ctx, *lim); err != nil {
			return err
		}
		if changed {
			l.Budget.UpdatedAt = now
			if err := w.PutBudget(ctx, l.Budget); err != nil {
				return err
			}
			events = append(events, statusEvent(l.Budget, from, now))
		}
		events = append(events, limitEvents(before, *lim, s.opts.NearLimitPercent, now)...)
		return nil
	})
	if err != nil {
		s.log.Debug("post rejected", zap.String("budget_id", in.BudgetID), zap.Error(err))
		return model.Expense{}, err
	}

	s.log.Info("expense posted", zap.String("budget_id", out.BudgetID), zap.String("expense_id", out.ID),
		zap.String("category", out.Category), zap.String("amount", out.Amount.String()))
	s.emit(events)
	return out, nil
}

// Retract removes a posted expense and refunds its category limit, flooring
// spend at zero. Retracting an unknown expense returns ErrNotFound and
// changes nothing. ARCHIVED budgets are read-only.
func (s *Service) Retract(ctx context.Context, expenseID string) error {
	e, err := s.store.Expense(ctx, expenseID)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(e.BudgetID)
	defer unlock()

	now := s.opts.Now()
	var events []Event
	err = s.store.Update(ctx, func(w store.Writer) error {
		events = events[:0]
		l, err := w.Ledger(ctx, e.BudgetID)
		if err != nil {
			return err
		}
		idx := l.Expense(expenseID)
		if idx < 0 {
			// retracted by someone else between the lookup and the lock
			return model.NotFound("expense", expenseID)
		}
		if l.Budget.Status == model.StatusArchived {
			return fmt.Errorf("%w: budget %s is %s", model.ErrBudgetNotEditable, l.Budget.ID, l.Budget.Status)
		}
		gone := l.Expenses[idx]
		l.Expenses = append(l.Expenses[:idx], l.Expenses[idx+1:]...)

		lim := l.Limit(gone.Category)
		if lim != nil {
			lim.Refund(gone.Amount)
			lim.UpdatedAt = now
		}

		from := l.Budget.Status
		changed := settle(&l, s.opts.AutoRevertExceeded)
		if !l.Consistent() {
			return fmt.Errorf("%w: budget %s", model.ErrIntegrity, l.Budget.ID)
		}

		if err := w.DeleteExpense(ctx, expenseID); err != nil {
			return err
		}
		if lim != nil {
			if err := w.PutLimit(ctx, *lim); err != nil {
				return err
			}
		}
		if changed {
			l.Budget.UpdatedAt = now
			if err := w.PutBudget(ctx, l.Budget); err != nil {
				return err
			}
			events = append(events, statusEvent(l.Budget, from, now))
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("expense retracted", zap.String("budget_id", e.BudgetID), zap.String("expense_id", expenseID),
		zap.String("amount", e.Amount.String()))
	s.emit(events)
	return nil
}

// CanAfford reports whether amount fits in the remaining allocation of the
// budget's category limit. A category without a limit has nothing allocated.
func (s *Service) CanAfford(ctx context.Context, budgetID, category string, amount decimal.Decimal) (bool, error) {
	l, err := s.store.Ledger(ctx, budgetID)
	if err != nil {
		return false, err
	}
	lim := l.Limit(category)
	if lim == nil {
		return model.CategoryLimit{}.CanAfford(amount), nil
	}
	return lim.CanAfford(amount), nil
}
