package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/theirongolddev/bopt/internal/config"
	"github.com/theirongolddev/bopt/internal/ledger"
	"github.com/theirongolddev/bopt/internal/model"
	"github.com/theirongolddev/bopt/internal/tui/components"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	snap    Snapshot
	err     error
	queries []Query
	applied []string
}

func (f *fakeBackend) Snapshot(_ context.Context, q Query) (Snapshot, error) {
	f.queries = append(f.queries, q)
	return f.snap, f.err
}

func (f *fakeBackend) Apply(_ context.Context, id string) error {
	f.applied = append(f.applied, id)
	return nil
}

func testSnapshot() Snapshot {
	now := time.Now()
	groceries := model.Budget{
		ID: "b1", Name: "Groceries", Status: model.StatusActive,
		Total: decimal.NewFromInt(500), Period: model.PeriodMonthly,
		Start: now.AddDate(0, 0, -10), End: now.AddDate(0, 0, 20),
	}
	trip := model.Budget{
		ID: "b2", Name: "Trip", Status: model.StatusExceeded,
		Total: decimal.NewFromInt(100), Period: model.PeriodWeekly,
	}
	food := model.CategoryLimit{BudgetID: "b1", Category: "food", Allocated: decimal.NewFromInt(200), Spent: decimal.NewFromInt(190)}
	return Snapshot{
		StorePath: "/tmp/bopt.db",
		NearLimit: decimal.NewFromInt(80),
		Budgets: []BudgetView{
			{Summary: ledger.Summary{Budget: groceries, Spent: decimal.NewFromInt(190), Remaining: decimal.NewFromInt(310), Allocated: decimal.NewFromInt(200), Expenses: 3, Alerts: 1}, Limits: []model.CategoryLimit{food}},
			{Summary: ledger.Summary{Budget: trip, Spent: decimal.NewFromInt(120), Remaining: decimal.NewFromInt(-20)}},
		},
		Alerts: []ledger.LimitAlert{{
			BudgetID: "b1", BudgetName: "Groceries", Category: "food",
			Allocated: food.Allocated, Spent: food.Spent, PercentUsed: decimal.NewFromInt(95), Near: true,
		}},
		Suggestions: []model.Suggestion{
			{ID: "s1-aaaa", Type: model.SuggestionRecommendation, Confidence: 0.9, BudgetID: "b1", CreatedAt: now},
			{ID: "s2-bbbb", Type: model.SuggestionAnalysis, Confidence: 0.5, Applied: true, CreatedAt: now},
		},
		Daily: []model.DailySpend{
			{Date: now, Amount: decimal.NewFromInt(40)},
			{Date: now.AddDate(0, 0, -1), Amount: decimal.NewFromInt(150)},
		},
		Categories: []model.CategorySpend{{Category: "food", Amount: decimal.NewFromInt(190)}},
	}
}

func loadedApp(t *testing.T, b *fakeBackend) App {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	a := NewApp(b, Options{Owner: "u1", Days: 30})
	m, _ := a.Update(tea.WindowSizeMsg{Width: 140, Height: 45})
	m, _ = m.Update(DataLoadedMsg{Snapshot: b.snap})
	return m.(App)
}

func press(t *testing.T, a App, keys ...string) (App, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var m tea.Model
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m, cmd = a.Update(msg)
		a = m.(App)
	}
	return a, cmd
}

func TestTabAtXMatchesTabWidths(t *testing.T) {
	for active := range components.Tabs {
		a := App{activeTab: active}
		pos := 0
		for i, tab := range components.Tabs {
			w := components.TabVisualWidth(tab, i == active)
			x := pos + w/2
			assert.Equal(t, i, a.tabAtX(x), "active=%d x=%d", active, x)
			pos += w + 1
		}
		assert.Equal(t, -1, a.tabAtX(pos+50))
	}
}

func TestNewAppDefaults(t *testing.T) {
	a := NewApp(&fakeBackend{}, Options{})
	assert.Equal(t, 30, a.days)
	assert.Equal(t, 30*time.Second, a.refreshInterval)
	assert.Equal(t, Query{Days: 30}, a.query())
}

func TestLoadCmdUsesOwnerAndDays(t *testing.T) {
	b := &fakeBackend{snap: testSnapshot()}
	a := NewApp(b, Options{Owner: "u1", Days: 14})
	msg := loadDataCmd(b, a.query())()
	loaded, ok := msg.(DataLoadedMsg)
	require.True(t, ok)
	assert.NoError(t, loaded.Err)
	assert.Equal(t, []Query{{Owner: "u1", Days: 14}}, b.queries)
}

func TestKeysSwitchTabsAndMoveCursor(t *testing.T) {
	a := loadedApp(t, &fakeBackend{snap: testSnapshot()})

	a, _ = press(t, a, "b")
	assert.Equal(t, tabBudgets, a.activeTab)
	a, _ = press(t, a, "j", "j", "j")
	assert.Equal(t, 1, a.budgetCursor, "cursor clamps to the last budget")
	a, _ = press(t, a, "g")
	assert.Equal(t, 0, a.budgetCursor)

	a, _ = press(t, a, "s")
	assert.Equal(t, tabSuggestions, a.activeTab)
	a, _ = press(t, a, "x")
	assert.Equal(t, tabSettings, a.activeTab)
	a, _ = press(t, a, "o")
	assert.Equal(t, tabOverview, a.activeTab)
}

func TestApplySelectedSuggestion(t *testing.T) {
	b := &fakeBackend{snap: testSnapshot()}
	a := loadedApp(t, b)

	a, cmd := press(t, a, "s", "a")
	require.NotNil(t, cmd)
	assert.True(t, a.applying)

	msg := cmd()
	applied, ok := msg.(AppliedMsg)
	require.True(t, ok)
	assert.Equal(t, "s1-aaaa", applied.ID)
	assert.Equal(t, []string{"s1-aaaa"}, b.applied)

	m, reload := a.Update(applied)
	a = m.(App)
	assert.False(t, a.applying)
	assert.Contains(t, a.notice, "applied s1")
	assert.NotNil(t, reload)
}

func TestApplyAlreadyAppliedIsRefused(t *testing.T) {
	b := &fakeBackend{snap: testSnapshot()}
	a := loadedApp(t, b)

	a, cmd := press(t, a, "s", "j", "a")
	assert.Nil(t, cmd)
	assert.Contains(t, a.notice, "already applied")
	assert.Empty(t, b.applied)
}

func TestAppliedErrorKeepsData(t *testing.T) {
	a := loadedApp(t, &fakeBackend{snap: testSnapshot()})
	m, cmd := a.Update(AppliedMsg{ID: "s1-aaaa", Err: model.ErrLowConfidence})
	a = m.(App)
	assert.Nil(t, cmd)
	assert.Contains(t, a.notice, "failed")
	assert.Len(t, a.snap.Budgets, 2)
}

func TestLoadErrorShownInView(t *testing.T) {
	b := &fakeBackend{}
	a := loadedApp(t, b)
	m, _ := a.Update(DataLoadedMsg{Err: errors.New("disk on fire")})
	a = m.(App)
	assert.Contains(t, a.View(), "disk on fire")
}

func TestViewsRenderEveryTab(t *testing.T) {
	a := loadedApp(t, &fakeBackend{snap: testSnapshot()})

	assert.Contains(t, a.View(), "Open Budgets")
	a, _ = press(t, a, "b")
	assert.Contains(t, a.View(), "Groceries")
	assert.Contains(t, a.View(), "Category Limits")
	a, _ = press(t, a, "s")
	assert.Contains(t, a.View(), "RECOMMENDATION")
	a, _ = press(t, a, "x")
	assert.Contains(t, a.View(), "ML Base URL")
}

func TestNarrowTerminal(t *testing.T) {
	a := loadedApp(t, &fakeBackend{snap: testSnapshot()})
	m, _ := a.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	assert.Contains(t, m.(App).View(), "too narrow")
}

func TestSettingsSaveThreshold(t *testing.T) {
	a := loadedApp(t, &fakeBackend{snap: testSnapshot()})
	a, _ = press(t, a, "x", "down", "down", "down", "down")
	require.Equal(t, settingsFieldThreshold, a.settings.cursor)

	a, _ = press(t, a, "enter")
	require.True(t, a.settings.editing)
	a.settings.input.SetValue("0.8")
	a, _ = press(t, a, "enter")
	assert.False(t, a.settings.editing)
	require.NoError(t, a.settings.saveErr)

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.InDelta(t, 0.8, cfg.Engine.ConfidenceThreshold, 1e-9)
}

func TestSettingsRejectsBadThreshold(t *testing.T) {
	a := loadedApp(t, &fakeBackend{snap: testSnapshot()})
	a.activeTab = tabSettings
	a.settings.cursor = settingsFieldThreshold
	a, _ = press(t, a, "enter")
	a.settings.input.SetValue("1.5")
	a, _ = press(t, a, "enter")
	assert.Error(t, a.settings.saveErr)
	assert.False(t, config.Exists())
}

func TestChartDateLabels(t *testing.T) {
	d := func(m time.Month, day int) model.DailySpend {
		return model.DailySpend{Date: time.Date(2026, m, day, 0, 0, 0, 0, time.Local)}
	}
	labels := chartDateLabels([]model.DailySpend{d(2, 2), d(2, 1), d(1, 31)})
	assert.Equal(t, []string{"Jan", "Feb", "2"}, labels)
}
