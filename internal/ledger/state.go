package ledger

import (
	"github.com/theirongolddev/bopt/internal/model"
)

// Action is a user-invoked budget lifecycle change.
type Action string

const (
	ActionActivate Action = "activate"
	ActionPause    Action = "pause"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
	ActionArchive  Action = "archive"
)

// Next returns the status that results from applying a to a budget in from.
// Completing an already terminal budget is a no-op.
func Next(from model.BudgetStatus, a Action) (model.BudgetStatus, error) {
	switch a {
	case ActionActivate:
		if from == model.StatusDraft || from == model.StatusPaused {
			return model.StatusActive, nil
		}
	case ActionPause:
		if from == model.StatusActive || from == model.StatusExceeded {
			return model.StatusPaused, nil
		}
	case ActionComplete:
		if from.Terminal() {
			return from, nil
		}
		return model.StatusCompleted, nil
	case ActionCancel:
		if !from.Terminal() {
			return model.StatusCancelled, nil
		}
	case ActionArchive:
		if from == model.StatusCompleted || from == model.StatusCancelled {
			return model.StatusArchived, nil
		}
	}
	return from, &model.TransitionError{From: from, Action: string(a)}
}

// settle applies the automatic EXCEEDED transition, and its reversal when
// revert is set. It reports whether the status changed.
func settle(l *model.Ledger, revert bool) bool {
	switch {
	case l.Budget.Status == model.StatusActive && l.OverBudget():
		l.Budget.Status = model.StatusExceeded
		return true
	case revert && l.Budget.Status == model.StatusExceeded && !l.OverBudget():
		l.Budget.Status = model.StatusActive
		return true
	}
	return false
}
