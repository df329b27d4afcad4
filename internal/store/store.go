// Package store persists budgets, catalog data and suggestions. Store
// implementations are transactional at the Update level: either every write
// made inside fn is committed or none is.
package store

import (
	"context"
	"time"

	"github.com/theirongolddev/bopt/internal/model"
)

// BudgetFilter narrows a budget listing. Zero fields match everything.
type BudgetFilter struct {
	OwnerID   string
	Statuses  []model.BudgetStatus
	EndBefore time.Time
}

func (f BudgetFilter) match(b model.Budget) bool {
	if f.OwnerID != "" && b.OwnerID != f.OwnerID {
		return false
	}
	if len(f.Statuses) > 0 && !hasStatus(f.Statuses, b.Status) {
		return false
	}
	if !f.EndBefore.IsZero() && (b.End.IsZero() || !b.End.Before(f.EndBefore)) {
		return false
	}
	return true
}

func hasStatus(all []model.BudgetStatus, s model.BudgetStatus) bool {
	for _, v := range all {
		if v == s {
			return true
		}
	}
	return false
}

// ExpenseFilter narrows an expense listing. From is inclusive, To exclusive.
type ExpenseFilter struct {
	BudgetID string
	OwnerID  string
	Category string
	From     time.Time
	To       time.Time
}

func (f ExpenseFilter) match(e model.Expense) bool {
	switch {
	case f.BudgetID != "" && e.BudgetID != f.BudgetID:
		return false
	case f.OwnerID != "" && e.OwnerID != f.OwnerID:
		return false
	case f.Category != "" && e.Category != f.Category:
		return false
	case !f.From.IsZero() && e.At.Before(f.From):
		return false
	case !f.To.IsZero() && !e.At.Before(f.To):
		return false
	}
	return true
}

// SuggestionFilter narrows a suggestion listing.
type SuggestionFilter struct {
	UserID      string
	BudgetID    string
	PendingOnly bool
}

func (f SuggestionFilter) match(s model.Suggestion) bool {
	switch {
	case f.UserID != "" && s.UserID != f.UserID:
		return false
	case f.BudgetID != "" && s.BudgetID != f.BudgetID:
		return false
	case f.PendingOnly && s.Applied:
		return false
	}
	return true
}

// Reader is the read side shared by stores and open transactions.
type Reader interface {
	Budget(ctx context.Context, id string) (model.Budget, error)
	Ledger(ctx context.Context, budgetID string) (model.Ledger, error)
	Budgets(ctx context.Context, f BudgetFilter) ([]model.Budget, error)
	Expense(ctx context.Context, id string) (model.Expense, error)
	Expenses(ctx context.Context, f ExpenseFilter) ([]model.Expense, error)
	Category(ctx context.Context, name string) (model.Category, error)
	Categories(ctx context.Context) ([]model.Category, error)
	Business(ctx context.Context, id string) (model.Business, error)
	Businesses(ctx context.Context, activeOnly bool) ([]model.Business, error)
	Review(ctx context.Context, id string) (model.Review, error)
	Reviews(ctx context.Context, businessID string) ([]model.Review, error)
	Suggestion(ctx context.Context, id string) (model.Suggestion, error)
	Suggestions(ctx context.Context, f SuggestionFilter) ([]model.Suggestion, error)
	Search(ctx context.Context, id string) (model.SearchRecord, error)
	Searches(ctx context.Context, ownerID string, limit int) ([]model.SearchRecord, error)
}

// Writer is the write side available inside Update.
type Writer interface {
	Reader
	PutBudget(ctx context.Context, b model.Budget) error
	DeleteBudget(ctx context.Context, id string) error
	PutLimit(ctx context.Context, l model.CategoryLimit) error
	PutExpense(ctx context.Context, e model.Expense) error
	DeleteExpense(ctx context.Context, id string) error
	PutCategory(ctx context.Context, c model.Category) error
	PutBusiness(ctx context.Context, b model.Business) error
	PutReview(ctx context.Context, r model.Review) error
	DeleteReview(ctx context.Context, id string) error
	PutSuggestion(ctx context.Context, s model.Suggestion) error
	PutSearch(ctx context.Context, s model.SearchRecord) error
}

// Store is a transactional persistence backend.
type Store interface {
	Reader
	// Update runs fn in a transaction. A non-nil error from fn discards
	// every write fn made.
	Update(ctx context.Context, fn func(w Writer) error) error
	Close() error
}
