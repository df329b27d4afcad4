package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/bopt/internal/model"
)

// Memory is an in-process Store. Update works on a private copy of the data
// and swaps it in on success, so readers never see a partial write.
type Memory struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	data    *memData
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: newMemData()}
}

func (m *Memory) snapshot() *memData {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data
}

// Update implements Store.
func (m *Memory) Update(ctx context.Context, fn func(w Writer) error) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	next := m.snapshot().clone()
	if err := fn(next); err != nil {
		return err
	}

	m.mu.Lock()
	m.data = next
	m.mu.Unlock()
	return nil
}

// Close implements Store.
func (m *Memory) Close() error { return nil }

func (m *Memory) Budget(ctx context.Context, id string) (model.Budget, error) {
	return m.snapshot().Budget(ctx, id)
}

func (m *Memory) Ledger(ctx context.Context, budgetID string) (model.Ledger, error) {
	return m.snapshot().Ledger(ctx, budgetID)
}

func (m *Memory) Budgets(ctx context.Context, f BudgetFilter) ([]model.Budget, error) {
	return m.snapshot().Budgets(ctx, f)
}

func (m *Memory) Expense(ctx context.Context, id string) (model.Expense, error) {
	return m.snapshot().Expense(ctx, id)
}

func (m *Memory) Expenses(ctx context.Context, f ExpenseFilter) ([]model.Expense, error) {
	return m.snapshot().Expenses(ctx, f)
}

func (m *Memory) Category(ctx context.Context, name string) (model.Category, error) {
	return m.snapshot().Category(ctx, name)
}

func (m *Memory) Categories(ctx context.Context) ([]model.Category, error) {
	return m.snapshot().Categories(ctx)
}

func (m *Memory) Business(ctx context.Context, id string) (model.Business, error) {
	return m.snapshot().Business(ctx, id)
}

func (m *Memory) Businesses(ctx context.Context, activeOnly bool) ([]model.Business, error) {
	return m.snapshot().Businesses(ctx, activeOnly)
}

func (m *Memory) Review(ctx context.Context, id string) (model.Review, error) {
	return m.snapshot().Review(ctx, id)
}

func (m *Memory) Reviews(ctx context.Context, businessID string) ([]model.Review, error) {
	return m.snapshot().Reviews(ctx, businessID)
}

func (m *Memory) Suggestion(ctx context.Context, id string) (model.Suggestion, error) {
	return m.snapshot().Suggestion(ctx, id)
}

func (m *Memory) Suggestions(ctx context.Context, f SuggestionFilter) ([]model.Suggestion, error) {
	return m.snapshot().Suggestions(ctx, f)
}

func (m *Memory) Search(ctx context.Context, id string) (model.SearchRecord, error) {
	return m.snapshot().Search(ctx, id)
}

func (m *Memory) Searches(ctx context.Context, ownerID string, limit int) ([]model.SearchRecord, error) {
	return m.snapshot().Searches(ctx, ownerID, limit)
}

// memData is one immutable generation of the store. Values are copied on
// the way in and out, so a generation is never mutated after it is published.
type memData struct {
	budgets     map[string]model.Budget
	limits      map[string]map[string]model.CategoryLimit
	expenses    map[string]model.Expense
	categories  map[string]model.Category
	businesses  map[string]model.Business
	reviews     map[string]model.Review
	suggestions map[string]model.Suggestion
	searches    map[string]model.SearchRecord
}

func newMemData() *memData {
	return &memData{
		budgets:     make(map[string]model.Budget),
		limits:      make(map[string]map[string]model.CategoryLimit),
		expenses:    make(map[string]model.Expense),
		categories:  make(map[string]model.Category),
		businesses:  make(map[string]model.Business),
		reviews:     make(map[string]model.Review),
		suggestions: make(map[string]model.Suggestion),
		searches:    make(map[string]model.SearchRecord),
	}
}

func (d *memData) clone() *memData {
	c := newMemData()
	copyMap(c.budgets, d.budgets)
	for id, byCat := range d.limits {
		inner := make(map[string]model.CategoryLimit, len(byCat))
		copyMap(inner, byCat)
		c.limits[id] = inner
	}
	copyMap(c.expenses, d.expenses)
	copyMap(c.categories, d.categories)
	copyMap(c.businesses, d.businesses)
	copyMap(c.reviews, d.reviews)
	copyMap(c.suggestions, d.suggestions)
	copyMap(c.searches, d.searches)
	return c
}

func copyMap[K comparable, V any](dst, src map[K]V) {
	for k, v := range src {
		dst[k] = v
	}
}

func (d *memData) Budget(_ context.Context, id string) (model.Budget, error) {
	b, ok := d.budgets[id]
	if !ok {
		return model.Budget{}, model.NotFound("budget", id)
	}
	return b, nil
}

func (d *memData) Ledger(ctx context.Context, budgetID string) (model.Ledger, error) {
	b, err := d.Budget(ctx, budgetID)
	if err != nil {
		return model.Ledger{}, err
	}
	l := model.Ledger{Budget: b}
	for _, lim := range d.limits[budgetID] {
		l.Limits = append(l.Limits, lim)
	}
	sort.Slice(l.Limits, func(i, j int) bool { return l.Limits[i].Category < l.Limits[j].Category })
	l.Expenses, _ = d.Expenses(ctx, ExpenseFilter{BudgetID: budgetID})
	return l, nil
}

func (d *memData) Budgets(_ context.Context, f BudgetFilter) ([]model.Budget, error) {
	var out []model.Budget
	for _, b := range d.budgets {
		if f.match(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (d *memData) Expense(_ context.Context, id string) (model.Expense, error) {
	e, ok := d.expenses[id]
	if !ok {
		return model.Expense{}, model.NotFound("expense", id)
	}
	return e, nil
}

func (d *memData) Expenses(_ context.Context, f ExpenseFilter) ([]model.Expense, error) {
	var out []model.Expense
	for _, e := range d.expenses {
		if f.match(e) {
			out = append(out, e)
		}
	}
	sortExpenses(out)
	return out, nil
}

func sortExpenses(out []model.Expense) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].At.Equal(out[j].At) {
			return out[i].At.Before(out[j].At)
		}
		return out[i].ID < out[j].ID
	})
}

func (d *memData) Category(_ context.Context, name string) (model.Category, error) {
	c, ok := d.categories[name]
	if !ok {
		return model.Category{}, model.NotFound("category", name)
	}
	return c, nil
}

func (d *memData) Categories(_ context.Context) ([]model.Category, error) {
	out := make([]model.Category, 0, len(d.categories))
	for _, c := range d.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (d *memData) Business(_ context.Context, id string) (model.Business, error) {
	b, ok := d.businesses[id]
	if !ok {
		return model.Business{}, model.NotFound("business", id)
	}
	return cloneBusiness(b), nil
}

func (d *memData) Businesses(_ context.Context, activeOnly bool) ([]model.Business, error) {
	var out []model.Business
	for _, b := range d.businesses {
		if activeOnly && !b.Active {
			continue
		}
		out = append(out, cloneBusiness(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (d *memData) Review(_ context.Context, id string) (model.Review, error) {
	r, ok := d.reviews[id]
	if !ok {
		return model.Review{}, model.NotFound("review", id)
	}
	return r, nil
}

func (d *memData) Reviews(_ context.Context, businessID string) ([]model.Review, error) {
	var out []model.Review
	for _, r := range d.reviews {
		if r.BusinessID == businessID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].At.Equal(out[j].At) {
			return out[i].At.Before(out[j].At)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (d *memData) Suggestion(_ context.Context, id string) (model.Suggestion, error) {
	s, ok := d.suggestions[id]
	if !ok {
		return model.Suggestion{}, model.NotFound("suggestion", id)
	}
	return cloneSuggestion(s), nil
}

func (d *memData) Suggestions(_ context.Context, f SuggestionFilter) ([]model.Suggestion, error) {
	var out []model.Suggestion
	for _, s := range d.suggestions {
		if f.match(s) {
			out = append(out, cloneSuggestion(s))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (d *memData) Search(_ context.Context, id string) (model.SearchRecord, error) {
	s, ok := d.searches[id]
	if !ok {
		return model.SearchRecord{}, model.NotFound("search", id)
	}
	return cloneSearch(s), nil
}

func (d *memData) Searches(_ context.Context, ownerID string, limit int) ([]model.SearchRecord, error) {
	var out []model.SearchRecord
	for _, s := range d.searches {
		if ownerID == "" || s.OwnerID == ownerID {
			out = append(out, cloneSearch(s))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].At.Equal(out[j].At) {
			return out[i].At.After(out[j].At)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (d *memData) PutBudget(_ context.Context, b model.Budget) error {
	d.budgets[b.ID] = b
	return nil
}

func (d *memData) DeleteBudget(_ context.Context, id string) error {
	if _, ok := d.budgets[id]; !ok {
		return model.NotFound("budget", id)
	}
	delete(d.budgets, id)
	delete(d.limits, id)
	for eid, e := range d.expenses {
		if e.BudgetID == id {
			delete(d.expenses, eid)
		}
	}
	return nil
}

func (d *memData) PutLimit(_ context.Context, l model.CategoryLimit) error {
	if _, ok := d.budgets[l.BudgetID]; !ok {
		return model.NotFound("budget", l.BudgetID)
	}
	byCat, ok := d.limits[l.BudgetID]
	if !ok {
		byCat = make(map[string]model.CategoryLimit)
		d.limits[l.BudgetID] = byCat
	}
	byCat[l.Category] = l
	return nil
}

func (d *memData) PutExpense(_ context.Context, e model.Expense) error {
	if _, ok := d.budgets[e.BudgetID]; !ok {
		return model.NotFound("budget", e.BudgetID)
	}
	d.expenses[e.ID] = e
	return nil
}

func (d *memData) DeleteExpense(_ context.Context, id string) error {
	if _, ok := d.expenses[id]; !ok {
		return model.NotFound("expense", id)
	}
	delete(d.expenses, id)
	return nil
}

func (d *memData) PutCategory(_ context.Context, c model.Category) error {
	d.categories[c.Name] = c
	return nil
}

func (d *memData) PutBusiness(_ context.Context, b model.Business) error {
	d.businesses[b.ID] = cloneBusiness(b)
	return nil
}

func (d *memData) PutReview(_ context.Context, r model.Review) error {
	if _, ok := d.businesses[r.BusinessID]; !ok {
		return model.NotFound("business", r.BusinessID)
	}
	d.reviews[r.ID] = r
	return nil
}

func (d *memData) DeleteReview(_ context.Context, id string) error {
	if _, ok := d.reviews[id]; !ok {
		return model.NotFound("review", id)
	}
	delete(d.reviews, id)
	return nil
}

func (d *memData) PutSuggestion(_ context.Context, s model.Suggestion) error {
	d.suggestions[s.ID] = cloneSuggestion(s)
	return nil
}

func (d *memData) PutSearch(_ context.Context, s model.SearchRecord) error {
	d.searches[s.ID] = cloneSearch(s)
	return nil
}

func cloneBusiness(b model.Business) model.Business {
	b.Categories = append([]string(nil), b.Categories...)
	if b.Rating != nil {
		r := *b.Rating
		b.Rating = &r
	}
	return b
}

func cloneSearch(s model.SearchRecord) model.SearchRecord {
	s.Categories = append([]string(nil), s.Categories...)
	if s.MinRating != nil {
		r := *s.MinRating
		s.MinRating = &r
	}
	return s
}

func cloneSuggestion(s model.Suggestion) model.Suggestion {
	s.Raw = append(json.RawMessage(nil), s.Raw...)
	if s.AppliedAt != nil {
		t := *s.AppliedAt
		s.AppliedAt = &t
	}
	p := s.Payload
	p.RecommendedCategories = append([]string(nil), p.RecommendedCategories...)
	p.RecommendedBusinesses = append([]model.RecommendedBusiness(nil), p.RecommendedBusinesses...)
	p.Alerts = append([]string(nil), p.Alerts...)
	if p.SuggestedCategoryLimits != nil {
		limits := make(map[string]decimal.Decimal, len(p.SuggestedCategoryLimits))
		copyMap(limits, p.SuggestedCategoryLimits)
		p.SuggestedCategoryLimits = limits
	}
	s.Payload = p
	return s
}

var (
	_ Store  = (*Memory)(nil)
	_ Writer = (*memData)(nil)
)
