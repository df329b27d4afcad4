package tui

import (
	"context"
	"sort"
	"time"

	"github.com/theirongolddev/bopt/internal/ledger"
	"github.com/theirongolddev/bopt/internal/model"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
)

// Backend supplies dashboard data and performs the few actions the
// dashboard can take.
type Backend interface {
	Snapshot(ctx context.Context, q Query) (Snapshot, error)
	Apply(ctx context.Context, suggestionID string) error
}

// Query scopes a snapshot. An empty owner means every owner.
type Query struct {
	Owner string
	Days  int
}

// BudgetView is one budget with its derived totals and sorted limits.
type BudgetView struct {
	Summary ledger.Summary
	Limits  []model.CategoryLimit
}

// Snapshot is everything the dashboard renders, loaded in one pass.
type Snapshot struct {
	StorePath   string
	NearLimit   decimal.Decimal
	Budgets     []BudgetView
	Alerts      []ledger.LimitAlert
	Expiring    []model.Budget
	Suggestions []model.Suggestion
	Spend       model.SpendSummary
	Daily       []model.DailySpend // newest first
	Categories  []model.CategorySpend
}

// nearFraction is the near-limit line as a fraction, 0.8 until data loads.
func (a App) nearFraction() float64 {
	if !a.snap.NearLimit.IsPositive() {
		return 0.8
	}
	return a.snap.NearLimit.Div(decimal.NewFromInt(100)).InexactFloat64()
}

// SortLimits orders limits by category name.
func SortLimits(limits []model.CategoryLimit) []model.CategoryLimit {
	out := append([]model.CategoryLimit(nil), limits...)
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// DataLoadedMsg is sent when a snapshot load finishes.
type DataLoadedMsg struct {
	Snapshot Snapshot
	LoadTime time.Duration
	Err      error
}

// AppliedMsg reports the outcome of applying a suggestion.
type AppliedMsg struct {
	ID  string
	Err error
}

const loadTimeout = 30 * time.Second

func loadDataCmd(b Backend, q Query) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		start := time.Now()
		snap, err := b.Snapshot(ctx, q)
		return DataLoadedMsg{Snapshot: snap, LoadTime: time.Since(start), Err: err}
	}
}

func applyCmd(b Backend, id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		return AppliedMsg{ID: id, Err: b.Apply(ctx, id)}
	}
}
