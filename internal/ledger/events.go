package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/bopt/internal/model"
)

// EventKind names a ledger notification.
type EventKind string

const (
	EventStatusChanged   EventKind = "status_changed"
	EventBudgetExceeded  EventKind = "budget_exceeded"
	EventBudgetReverted  EventKind = "budget_reverted"
	EventBudgetCompleted EventKind = "budget_completed"
	EventLimitNear       EventKind = "limit_near"
	EventLimitOver       EventKind = "limit_over"
)

// Event is emitted after a committed ledger change.
type Event struct {
	Kind     EventKind `json:"kind"`
	BudgetID string    `json:"budget_id"`
	Category string    `json:"category,omitempty"`
	Status   string    `json:"status,omitempty"`
	Message  string    `json:"message"`
	At       time.Time `json:"at"`
}

func statusEvent(b model.Budget, from model.BudgetStatus, at time.Time) Event {
	kind := EventStatusChanged
	switch {
	case b.Status == model.StatusExceeded:
		kind = EventBudgetExceeded
	case from == model.StatusExceeded && b.Status == model.StatusActive:
		kind = EventBudgetReverted
	case b.Status == model.StatusCompleted:
		kind = EventBudgetCompleted
	}
	return Event{
		Kind:     kind,
		BudgetID: b.ID,
		Status:   string(b.Status),
		Message:  fmt.Sprintf("%s: %s -> %s", b.Name, from, b.Status),
		At:       at,
	}
}

// limitEvents reports thresholds crossed between before and after.
func limitEvents(before, after model.CategoryLimit, near decimal.Decimal, at time.Time) []Event {
	var out []Event
	if !before.OverLimit() && after.OverLimit() {
		out = append(out, Event{
			Kind:     EventLimitOver,
			BudgetID: after.BudgetID,
			Category: after.Category,
			Message:  fmt.Sprintf("%s over limit: %s of %s", after.Category, after.Spent, after.Allocated),
			At:       at,
		})
	} else if after.Allocated.IsPositive() && !before.NearLimit(near) && after.NearLimit(near) {
		out = append(out, Event{
			Kind:     EventLimitNear,
			BudgetID: after.BudgetID,
			Category: after.Category,
			Message:  fmt.Sprintf("%s at %s%% of limit", after.Category, after.PercentUsed().StringFixed(0)),
			At:       at,
		})
	}
	return out
}
