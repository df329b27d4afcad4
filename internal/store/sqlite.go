package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/bopt/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLite is a Store backed by a SQLite database file.
type SQLite struct {
	queries
	db *sql.DB
}

// Open opens or creates the database at the given path.
func Open(dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating store dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+
		"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)"+
		"&_pragma=busy_timeout(5000)&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("opening store db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLite{queries: queries{q: db}, db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Update implements Store.
func (s *SQLite) Update(ctx context.Context, fn func(w Writer) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(queries{q: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries implements Writer over either the database or an open transaction.
type queries struct {
	q querier
}

type scanner interface {
	Scan(dest ...any) error
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}

func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func notFound(err error, kind, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return model.NotFound(kind, id)
	}
	return err
}

func affected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.NotFound(kind, id)
	}
	return nil
}

// --- budgets ---

const budgetCols = `id, owner_id, name, total, start_at, end_at, period, status, created_at, updated_at`

func scanBudget(row scanner) (model.Budget, error) {
	var b model.Budget
	var total, start, end, period, status, created, updated string
	if err := row.Scan(&b.ID, &b.OwnerID, &b.Name, &total, &start, &end, &period, &status, &created, &updated); err != nil {
		return b, err
	}
	var err error
	if b.Total, err = parseDecimal(total); err != nil {
		return b, fmt.Errorf("budget %s total: %w", b.ID, err)
	}
	b.Start = parseTime(start)
	b.End = parseTime(end)
	b.Period = model.Period(period)
	b.Status = model.BudgetStatus(status)
	b.CreatedAt = parseTime(created)
	b.UpdatedAt = parseTime(updated)
	return b, nil
}

func (q queries) Budget(ctx context.Context, id string) (model.Budget, error) {
	row := q.q.QueryRowContext(ctx, "SELECT "+budgetCols+" FROM budgets WHERE id = ?", id)
	b, err := scanBudget(row)
	if err != nil {
		return b, notFound(err, "budget", id)
	}
	return b, nil
}

func (q queries) Budgets(ctx context.Context, f BudgetFilter) ([]model.Budget, error) {
	var where []string
	var args []any
	if f.OwnerID != "" {
		where = append(where, "owner_id = ?")
		args = append(args, f.OwnerID)
	}
	if len(f.Statuses) > 0 {
		marks := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			marks[i] = "?"
			args = append(args, string(s))
		}
		where = append(where, "status IN ("+strings.Join(marks, ",")+")")
	}
	if !f.EndBefore.IsZero() {
		where = append(where, "end_at != '' AND end_at < ?")
		args = append(args, fmtTime(f.EndBefore))
	}

	query := "SELECT " + budgetCols + " FROM budgets"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id"

	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (q queries) PutBudget(ctx context.Context, b model.Budget) error {
	// Upsert rather than REPLACE so limits and expenses are not cascaded away.
	_, err := q.q.ExecContext(ctx, `INSERT INTO budgets (`+budgetCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_id = excluded.owner_id, name = excluded.name, total = excluded.total,
			start_at = excluded.start_at, end_at = excluded.end_at, period = excluded.period,
			status = excluded.status, updated_at = excluded.updated_at`,
		b.ID, b.OwnerID, b.Name, b.Total.String(), fmtTime(b.Start), fmtTime(b.End),
		string(b.Period), string(b.Status), fmtTime(b.CreatedAt), fmtTime(b.UpdatedAt),
	)
	return err
}

func (q queries) DeleteBudget(ctx context.Context, id string) error {
	res, err := q.q.ExecContext(ctx, "DELETE FROM budgets WHERE id = ?", id)
	if err != nil {
		return err
	}
	return affected(res, "budget", id)
}

func (q queries) Ledger(ctx context.Context, budgetID string) (model.Ledger, error) {
	b, err := q.Budget(ctx, budgetID)
	if err != nil {
		return model.Ledger{}, err
	}
	l := model.Ledger{Budget: b}

	rows, err := q.q.QueryContext(ctx, `SELECT budget_id, category, allocated, spent, updated_at
		FROM category_limits WHERE budget_id = ? ORDER BY category`, budgetID)
	if err != nil {
		return l, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var lim model.CategoryLimit
		var allocated, spent string
		var updated sql.NullString
		if err := rows.Scan(&lim.BudgetID, &lim.Category, &allocated, &spent, &updated); err != nil {
			return l, err
		}
		if lim.Allocated, err = parseDecimal(allocated); err != nil {
			return l, fmt.Errorf("limit %s/%s allocated: %w", budgetID, lim.Category, err)
		}
		if lim.Spent, err = parseDecimal(spent); err != nil {
			return l, fmt.Errorf("limit %s/%s spent: %w", budgetID, lim.Category, err)
		}
		lim.UpdatedAt = parseTime(updated.String)
		l.Limits = append(l.Limits, lim)
	}
	if err := rows.Err(); err != nil {
		return l, err
	}

	l.Expenses, err = q.Expenses(ctx, ExpenseFilter{BudgetID: budgetID})
	return l, err
}

func (q queries) PutLimit(ctx context.Context, l model.CategoryLimit) error {
	if _, err := q.Budget(ctx, l.BudgetID); err != nil {
		return err
	}
	_, err := q.q.ExecContext(ctx, `INSERT OR REPLACE INTO category_limits
		(budget_id, category, allocated, spent, updated_at) VALUES (?, ?, ?, ?, ?)`,
		l.BudgetID, l.Category, l.Allocated.String(), l.Spent.String(), fmtTime(l.UpdatedAt),
	)
	return err
}

// --- expenses ---

const expenseCols = `id, budget_id, category, owner_id, business_id, amount, method, at, note`

func scanExpense(row scanner) (model.Expense, error) {
	var e model.Expense
	var business, note sql.NullString
	var amount, method, at string
	if err := row.Scan(&e.ID, &e.BudgetID, &e.Category, &e.OwnerID, &business, &amount, &method, &at, &note); err != nil {
		return e, err
	}
	var err error
	if e.Amount, err = parseDecimal(amount); err != nil {
		return e, fmt.Errorf("expense %s amount: %w", e.ID, err)
	}
	e.BusinessID = business.String
	e.Method = model.PaymentMethod(method)
	e.At = parseTime(at)
	e.Note = note.String
	return e, nil
}

func (q queries) Expense(ctx context.Context, id string) (model.Expense, error) {
	row := q.q.QueryRowContext(ctx, "SELECT "+expenseCols+" FROM expenses WHERE id = ?", id)
	e, err := scanExpense(row)
	if err != nil {
		return e, notFound(err, "expense", id)
	}
	return e, nil
}

func (q queries) Expenses(ctx context.Context, f ExpenseFilter) ([]model.Expense, error) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		where = append(where, cond)
		args = append(args, v)
	}
	if f.BudgetID != "" {
		add("budget_id = ?", f.BudgetID)
	}
	if f.OwnerID != "" {
		add("owner_id = ?", f.OwnerID)
	}
	if f.Category != "" {
		add("category = ?", f.Category)
	}
	if !f.From.IsZero() {
		add("at >= ?", fmtTime(f.From))
	}
	if !f.To.IsZero() {
		add("at < ?", fmtTime(f.To))
	}

	query := "SELECT " + expenseCols + " FROM expenses"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY at, id"

	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (q queries) PutExpense(ctx context.Context, e model.Expense) error {
	if _, err := q.Budget(ctx, e.BudgetID); err != nil {
		return err
	}
	_, err := q.q.ExecContext(ctx, `INSERT OR REPLACE INTO expenses (`+expenseCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.BudgetID, e.Category, e.OwnerID, e.BusinessID, e.Amount.String(),
		string(e.Method), fmtTime(e.At), e.Note,
	)
	return err
}

func (q queries) DeleteExpense(ctx context.Context, id string) error {
	res, err := q.q.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", id)
	if err != nil {
		return err
	}
	return affected(res, "expense", id)
}

// --- categories ---

func scanCategory(row scanner) (model.Category, error) {
	var c model.Category
	var usage string
	var btype, desc sql.NullString
	if err := row.Scan(&c.Name, &usage, &btype, &desc); err != nil {
		return c, err
	}
	c.Usage = model.CategoryUsage(usage)
	c.BusinessType = model.BusinessType(btype.String)
	c.Description = desc.String
	return c, nil
}

func (q queries) Category(ctx context.Context, name string) (model.Category, error) {
	row := q.q.QueryRowContext(ctx,
		"SELECT name, usage, business_type, description FROM categories WHERE name = ?", name)
	c, err := scanCategory(row)
	if err != nil {
		return c, notFound(err, "category", name)
	}
	return c, nil
}

func (q queries) Categories(ctx context.Context) ([]model.Category, error) {
	rows, err := q.q.QueryContext(ctx,
		"SELECT name, usage, business_type, description FROM categories ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (q queries) PutCategory(ctx context.Context, c model.Category) error {
	_, err := q.q.ExecContext(ctx, `INSERT OR REPLACE INTO categories
		(name, usage, business_type, description) VALUES (?, ?, ?, ?)`,
		c.Name, string(c.Usage), string(c.BusinessType), c.Description)
	return err
}

// --- businesses ---

const businessCols = `id, name, type, lat, lon, address, city, country,
	price_min, price_max, price_avg, rating, review_count, active, created_at`

func scanBusiness(row scanner) (model.Business, error) {
	var b model.Business
	var btype, pmin, pmax, pavg, created string
	var address, city, country sql.NullString
	var rating sql.NullFloat64
	var active int
	if err := row.Scan(&b.ID, &b.Name, &btype, &b.Location.Lat, &b.Location.Lon,
		&address, &city, &country, &pmin, &pmax, &pavg, &rating, &b.Reviews, &active, &created); err != nil {
		return b, err
	}
	var err error
	if b.Price.Min, err = parseDecimal(pmin); err != nil {
		return b, fmt.Errorf("business %s price_min: %w", b.ID, err)
	}
	if b.Price.Max, err = parseDecimal(pmax); err != nil {
		return b, fmt.Errorf("business %s price_max: %w", b.ID, err)
	}
	if b.Price.Avg, err = parseDecimal(pavg); err != nil {
		return b, fmt.Errorf("business %s price_avg: %w", b.ID, err)
	}
	b.Type = model.BusinessType(btype)
	b.Address = address.String
	b.City = city.String
	b.Country = country.String
	if rating.Valid {
		r := rating.Float64
		b.Rating = &r
	}
	b.Active = active != 0
	b.CreatedAt = parseTime(created)
	return b, nil
}

func (q queries) businessCategories(ctx context.Context) (map[string][]string, error) {
	rows, err := q.q.QueryContext(ctx,
		"SELECT business_id, category FROM business_categories ORDER BY business_id, position")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string][]string)
	for rows.Next() {
		var id, cat string
		if err := rows.Scan(&id, &cat); err != nil {
			return nil, err
		}
		out[id] = append(out[id], cat)
	}
	return out, rows.Err()
}

func (q queries) Business(ctx context.Context, id string) (model.Business, error) {
	row := q.q.QueryRowContext(ctx, "SELECT "+businessCols+" FROM businesses WHERE id = ?", id)
	b, err := scanBusiness(row)
	if err != nil {
		return b, notFound(err, "business", id)
	}

	rows, err := q.q.QueryContext(ctx,
		"SELECT category FROM business_categories WHERE business_id = ? ORDER BY position", id)
	if err != nil {
		return b, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var cat string
		if err := rows.Scan(&cat); err != nil {
			return b, err
		}
		b.Categories = append(b.Categories, cat)
	}
	return b, rows.Err()
}

func (q queries) Businesses(ctx context.Context, activeOnly bool) ([]model.Business, error) {
	cats, err := q.businessCategories(ctx)
	if err != nil {
		return nil, err
	}

	query := "SELECT " + businessCols + " FROM businesses"
	if activeOnly {
		query += " WHERE active = 1"
	}
	query += " ORDER BY id"

	rows, err := q.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.Business
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, err
		}
		b.Categories = cats[b.ID]
		out = append(out, b)
	}
	return out, rows.Err()
}

func (q queries) PutBusiness(ctx context.Context, b model.Business) error {
	var rating any
	if b.Rating != nil {
		rating = *b.Rating
	}
	_, err := q.q.ExecContext(ctx, `INSERT INTO businesses (`+businessCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, type = excluded.type, lat = excluded.lat, lon = excluded.lon,
			address = excluded.address, city = excluded.city, country = excluded.country,
			price_min = excluded.price_min, price_max = excluded.price_max, price_avg = excluded.price_avg,
			rating = excluded.rating, review_count = excluded.review_count, active = excluded.active`,
		b.ID, b.Name, string(b.Type), b.Location.Lat, b.Location.Lon, b.Address, b.City, b.Country,
		b.Price.Min.String(), b.Price.Max.String(), b.Price.Avg.String(), rating, b.Reviews,
		boolInt(b.Active), fmtTime(b.CreatedAt),
	)
	if err != nil {
		return err
	}

	// Replace category tags
	if _, err := q.q.ExecContext(ctx, "DELETE FROM business_categories WHERE business_id = ?", b.ID); err != nil {
		return err
	}
	for i, cat := range b.Categories {
		_, err := q.q.ExecContext(ctx, `INSERT OR IGNORE INTO business_categories
			(business_id, category, position) VALUES (?, ?, ?)`, b.ID, cat, i)
		if err != nil {
			return err
		}
	}
	return nil
}

// --- reviews ---

const reviewCols = `id, business_id, user_id, score, comment, verified, at`

func scanReview(row scanner) (model.Review, error) {
	var r model.Review
	var comment sql.NullString
	var verified int
	var at string
	if err := row.Scan(&r.ID, &r.BusinessID, &r.UserID, &r.Score, &comment, &verified, &at); err != nil {
		return r, err
	}
	r.Comment = comment.String
	r.Verified = verified != 0
	r.At = parseTime(at)
	return r, nil
}

func (q queries) Review(ctx context.Context, id string) (model.Review, error) {
	row := q.q.QueryRowContext(ctx, "SELECT "+reviewCols+" FROM reviews WHERE id = ?", id)
	r, err := scanReview(row)
	if err != nil {
		return r, notFound(err, "review", id)
	}
	return r, nil
}

func (q queries) Reviews(ctx context.Context, businessID string) ([]model.Review, error) {
	rows, err := q.q.QueryContext(ctx,
		"SELECT "+reviewCols+" FROM reviews WHERE business_id = ? ORDER BY at, id", businessID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (q queries) PutReview(ctx context.Context, r model.Review) error {
	if _, err := q.Business(ctx, r.BusinessID); err != nil {
		return err
	}
	_, err := q.q.ExecContext(ctx, `INSERT OR REPLACE INTO reviews (`+reviewCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.BusinessID, r.UserID, r.Score, r.Comment, boolInt(r.Verified), fmtTime(r.At))
	return err
}

func (q queries) DeleteReview(ctx context.Context, id string) error {
	res, err := q.q.ExecContext(ctx, "DELETE FROM reviews WHERE id = ?", id)
	if err != nil {
		return err
	}
	return affected(res, "review", id)
}

// --- suggestions ---

const suggestionCols = `id, user_id, budget_id, type, confidence, payload, applied, applied_at, created_at`

func scanSuggestion(row scanner) (model.Suggestion, error) {
	var s model.Suggestion
	var budget, appliedAt sql.NullString
	var stype, payload, created string
	var applied int
	if err := row.Scan(&s.ID, &s.UserID, &budget, &stype, &s.Confidence, &payload, &applied, &appliedAt, &created); err != nil {
		return s, err
	}
	p, err := model.DecodePayload([]byte(payload))
	if err != nil {
		return s, fmt.Errorf("suggestion %s: %w", s.ID, err)
	}
	s.BudgetID = budget.String
	s.Type = model.SuggestionType(stype)
	s.Payload = p
	s.Raw = json.RawMessage(payload)
	s.Applied = applied != 0
	if appliedAt.Valid && appliedAt.String != "" {
		t := parseTime(appliedAt.String)
		s.AppliedAt = &t
	}
	s.CreatedAt = parseTime(created)
	return s, nil
}

func (q queries) Suggestion(ctx context.Context, id string) (model.Suggestion, error) {
	row := q.q.QueryRowContext(ctx, "SELECT "+suggestionCols+" FROM suggestions WHERE id = ?", id)
	s, err := scanSuggestion(row)
	if err != nil {
		return s, notFound(err, "suggestion", id)
	}
	return s, nil
}

func (q queries) Suggestions(ctx context.Context, f SuggestionFilter) ([]model.Suggestion, error) {
	var where []string
	var args []any
	if f.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.BudgetID != "" {
		where = append(where, "budget_id = ?")
		args = append(args, f.BudgetID)
	}
	if f.PendingOnly {
		where = append(where, "applied = 0")
	}

	query := "SELECT " + suggestionCols + " FROM suggestions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id"

	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.Suggestion
	for rows.Next() {
		s, err := scanSuggestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (q queries) PutSuggestion(ctx context.Context, s model.Suggestion) error {
	payload := []byte(s.Raw)
	if len(payload) == 0 {
		var err error
		if payload, err = json.Marshal(s.Payload); err != nil {
			return fmt.Errorf("encoding payload: %w", err)
		}
	}
	appliedAt := ""
	if s.AppliedAt != nil {
		appliedAt = fmtTime(*s.AppliedAt)
	}
	_, err := q.q.ExecContext(ctx, `INSERT OR REPLACE INTO suggestions (`+suggestionCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.BudgetID, string(s.Type), s.Confidence, string(payload),
		boolInt(s.Applied), appliedAt, fmtTime(s.CreatedAt))
	return err
}

// --- searches ---

const searchCols = `id, owner_id, at, lat, lon, radius_m, budget, categories, min_rating, results, selected_id`

func scanSearch(row scanner) (model.SearchRecord, error) {
	var s model.SearchRecord
	var at, budget, cats string
	var minRating sql.NullFloat64
	var selected sql.NullString
	if err := row.Scan(&s.ID, &s.OwnerID, &at, &s.Origin.Lat, &s.Origin.Lon, &s.RadiusMeters,
		&budget, &cats, &minRating, &s.Results, &selected); err != nil {
		return s, err
	}
	var err error
	if s.Budget, err = parseDecimal(budget); err != nil {
		return s, fmt.Errorf("search %s budget: %w", s.ID, err)
	}
	if cats != "" {
		if err := json.Unmarshal([]byte(cats), &s.Categories); err != nil {
			return s, fmt.Errorf("search %s categories: %w", s.ID, err)
		}
	}
	if minRating.Valid {
		r := minRating.Float64
		s.MinRating = &r
	}
	s.At = parseTime(at)
	s.SelectedID = selected.String
	return s, nil
}

func (q queries) Search(ctx context.Context, id string) (model.SearchRecord, error) {
	row := q.q.QueryRowContext(ctx, "SELECT "+searchCols+" FROM searches WHERE id = ?", id)
	s, err := scanSearch(row)
	if err != nil {
		return s, notFound(err, "search", id)
	}
	return s, nil
}

func (q queries) Searches(ctx context.Context, ownerID string, limit int) ([]model.SearchRecord, error) {
	query := "SELECT " + searchCols + " FROM searches"
	var args []any
	if ownerID != "" {
		query += " WHERE owner_id = ?"
		args = append(args, ownerID)
	}
	query += " ORDER BY at DESC, id"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.SearchRecord
	for rows.Next() {
		s, err := scanSearch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (q queries) PutSearch(ctx context.Context, s model.SearchRecord) error {
	cats, err := json.Marshal(s.Categories)
	if err != nil {
		return err
	}
	var minRating any
	if s.MinRating != nil {
		minRating = *s.MinRating
	}
	_, err = q.q.ExecContext(ctx, `INSERT OR REPLACE INTO searches (`+searchCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.OwnerID, fmtTime(s.At), s.Origin.Lat, s.Origin.Lon, s.RadiusMeters,
		s.Budget.String(), string(cats), minRating, s.Results, s.SelectedID)
	return err
}

var (
	_ Store  = (*SQLite)(nil)
	_ Writer = queries{}
)
