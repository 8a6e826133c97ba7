// Package storage is the SQLite persistence layer. All aggregate reads
// coalesce empty sums to zero so callers never see NULL totals.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"fintrack/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// InsertExpense stores a new expense row and returns its ID.
func (r *SQLiteRepository) InsertExpense(ctx context.Context, e core.Expense) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (date, category, amount_cents, notes) VALUES (?, ?, ?, ?)`,
		e.Date.ISO(), e.Category, e.Amount.Cents, e.Notes)
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("expense last insert id: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", id,
		"date", e.Date.ISO(),
		"category", e.Category,
		"amount_cents", e.Amount.Cents)

	return id, nil
}

// InsertIncome stores a new income row and returns its ID.
func (r *SQLiteRepository) InsertIncome(ctx context.Context, in core.Income) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO income (date, source, amount_cents, notes) VALUES (?, ?, ?, ?)`,
		in.Date.ISO(), in.Source, in.Amount.Cents, in.Notes)
	if err != nil {
		return 0, fmt.Errorf("insert income: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("income last insert id: %w", err)
	}

	slog.InfoContext(ctx, "Income saved",
		"id", id,
		"date", in.Date.ISO(),
		"source", in.Source,
		"amount_cents", in.Amount.Cents)

	return id, nil
}

// InsertBudget stores a new budget row and returns its ID.
func (r *SQLiteRepository) InsertBudget(ctx context.Context, b core.Budget) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (category, limit_cents, period, start_date) VALUES (?, ?, ?, ?)`,
		b.Category, b.Limit.Cents, string(b.Period), b.StartDate.ISO())
	if err != nil {
		return 0, fmt.Errorf("insert budget: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("budget last insert id: %w", err)
	}
	return id, nil
}

// ListExpenses returns the most recent expenses, newest date first.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, limit int) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, date, category, amount_cents, notes FROM expenses ORDER BY date DESC, id DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var (
			e       core.Expense
			dateStr string
			cents   int64
		)
		if err := rows.Scan(&e.ID, &dateStr, &e.Category, &cents, &e.Notes); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		if e.Date, err = core.ParseDate(dateStr); err != nil {
			return nil, fmt.Errorf("parse expense date %q: %w", dateStr, err)
		}
		e.Amount = core.Money{Cents: cents}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListIncome returns the most recent income rows, newest date first.
func (r *SQLiteRepository) ListIncome(ctx context.Context, limit int) ([]core.Income, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, date, source, amount_cents, notes FROM income ORDER BY date DESC, id DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("list income: %w", err)
	}
	defer rows.Close()

	var out []core.Income
	for rows.Next() {
		var (
			in      core.Income
			dateStr string
			cents   int64
		)
		if err := rows.Scan(&in.ID, &dateStr, &in.Source, &cents, &in.Notes); err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		if in.Date, err = core.ParseDate(dateStr); err != nil {
			return nil, fmt.Errorf("parse income date %q: %w", dateStr, err)
		}
		in.Amount = core.Money{Cents: cents}
		out = append(out, in)
	}
	return out, rows.Err()
}

// ListBudgets returns budget rows, optionally filtered by period.
func (r *SQLiteRepository) ListBudgets(ctx context.Context, period core.BudgetPeriod) ([]core.Budget, error) {
	query := `SELECT id, category, limit_cents, period, start_date FROM budgets`
	args := []any{}
	if period != "" {
		query += ` WHERE period = ?`
		args = append(args, string(period))
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		var (
			b         core.Budget
			cents     int64
			periodStr string
			startStr  string
		)
		if err := rows.Scan(&b.ID, &b.Category, &cents, &periodStr, &startStr); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		b.Limit = core.Money{Cents: cents}
		b.Period = core.BudgetPeriod(periodStr)
		if b.StartDate, err = core.ParseDate(startStr); err != nil {
			return nil, fmt.Errorf("parse budget start date %q: %w", startStr, err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// CurrentBudget returns the most recently inserted budget row for a
// category, or ErrNotFound when none exists.
func (r *SQLiteRepository) CurrentBudget(ctx context.Context, category string) (core.Budget, error) {
	var (
		b         core.Budget
		cents     int64
		periodStr string
		startStr  string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, category, limit_cents, period, start_date FROM budgets WHERE category = ? ORDER BY id DESC LIMIT 1`,
		category).Scan(&b.ID, &b.Category, &cents, &periodStr, &startStr)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, ErrNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("current budget for %s: %w", category, err)
	}
	b.Limit = core.Money{Cents: cents}
	b.Period = core.BudgetPeriod(periodStr)
	if b.StartDate, err = core.ParseDate(startStr); err != nil {
		return core.Budget{}, fmt.Errorf("parse budget start date %q: %w", startStr, err)
	}
	return b, nil
}

// SumExpenses totals expense amounts, optionally within a range.
func (r *SQLiteRepository) SumExpenses(ctx context.Context, rng *core.DateRange) (core.Money, error) {
	return r.sumAmounts(ctx, "expenses", rng)
}

// SumIncome totals income amounts, optionally within a range.
func (r *SQLiteRepository) SumIncome(ctx context.Context, rng *core.DateRange) (core.Money, error) {
	return r.sumAmounts(ctx, "income", rng)
}

func (r *SQLiteRepository) sumAmounts(ctx context.Context, table string, rng *core.DateRange) (core.Money, error) {
	var cents int64
	var err error
	if rng != nil {
		err = r.db.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(amount_cents), 0) FROM `+table+` WHERE date BETWEEN ? AND ?`,
			rng.Start.ISO(), rng.End.ISO()).Scan(&cents)
	} else {
		err = r.db.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(amount_cents), 0) FROM `+table).Scan(&cents)
	}
	if err != nil {
		return core.Money{}, fmt.Errorf("sum %s: %w", table, err)
	}
	return core.Money{Cents: cents}, nil
}

// SumCategoryExpenses totals expenses for one category, optionally
// within a range.
func (r *SQLiteRepository) SumCategoryExpenses(ctx context.Context, category string, rng *core.DateRange) (core.Money, error) {
	var cents int64
	var err error
	if rng != nil {
		err = r.db.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(amount_cents), 0) FROM expenses WHERE category = ? AND date BETWEEN ? AND ?`,
			category, rng.Start.ISO(), rng.End.ISO()).Scan(&cents)
	} else {
		err = r.db.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(amount_cents), 0) FROM expenses WHERE category = ?`,
			category).Scan(&cents)
	}
	if err != nil {
		return core.Money{}, fmt.Errorf("sum category expenses: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

// ExpenseTotalsByCategory groups expense sums per category, largest
// first. A non-positive limit returns every category.
func (r *SQLiteRepository) ExpenseTotalsByCategory(ctx context.Context, rng *core.DateRange, limit int) ([]core.CategoryTotal, error) {
	query := `SELECT category, SUM(amount_cents) AS total FROM expenses`
	args := []any{}
	if rng != nil {
		query += ` WHERE date BETWEEN ? AND ?`
		args = append(args, rng.Start.ISO(), rng.End.ISO())
	}
	query += ` GROUP BY category ORDER BY total DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("expense totals by category: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryTotal
	for rows.Next() {
		var (
			ct    core.CategoryTotal
			cents int64
		)
		if err := rows.Scan(&ct.Category, &cents); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		ct.Total = core.Money{Cents: cents}
		out = append(out, ct)
	}
	return out, rows.Err()
}

// ExpenseTotalsByMonth groups expense sums by YYYY-MM, most recent
// month first.
func (r *SQLiteRepository) ExpenseTotalsByMonth(ctx context.Context, limit int) ([]core.MonthTotal, error) {
	return r.monthTotals(ctx, "expenses", limit)
}

// IncomeTotalsByMonth groups income sums by YYYY-MM, most recent
// month first.
func (r *SQLiteRepository) IncomeTotalsByMonth(ctx context.Context, limit int) ([]core.MonthTotal, error) {
	return r.monthTotals(ctx, "income", limit)
}

func (r *SQLiteRepository) monthTotals(ctx context.Context, table string, limit int) ([]core.MonthTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT strftime('%Y-%m', date) AS month, SUM(amount_cents) AS total
		 FROM `+table+`
		 GROUP BY month
		 ORDER BY month DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("month totals for %s: %w", table, err)
	}
	defer rows.Close()

	var out []core.MonthTotal
	for rows.Next() {
		var (
			mt    core.MonthTotal
			cents sql.NullInt64
		)
		if err := rows.Scan(&mt.Month, &cents); err != nil {
			return nil, fmt.Errorf("scan month total: %w", err)
		}
		mt.Total = core.Money{Cents: cents.Int64}
		out = append(out, mt)
	}
	return out, rows.Err()
}

// MonthlyFlows outer-joins monthly income and expense sums so a month
// with activity on either side appears, the missing side as zero.
func (r *SQLiteRepository) MonthlyFlows(ctx context.Context, limit int) ([]core.MonthFlow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT m.month,
		        COALESCE(i.income, 0) AS income,
		        COALESCE(e.expense, 0) AS expense
		 FROM (
		     SELECT DISTINCT strftime('%Y-%m', date) AS month FROM (
		         SELECT date FROM income UNION ALL SELECT date FROM expenses
		     )
		 ) m
		 LEFT JOIN (
		     SELECT strftime('%Y-%m', date) AS month, SUM(amount_cents) AS income FROM income GROUP BY month
		 ) i ON i.month = m.month
		 LEFT JOIN (
		     SELECT strftime('%Y-%m', date) AS month, SUM(amount_cents) AS expense FROM expenses GROUP BY month
		 ) e ON e.month = m.month
		 ORDER BY m.month DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("monthly flows: %w", err)
	}
	defer rows.Close()

	var out []core.MonthFlow
	for rows.Next() {
		var (
			mf              core.MonthFlow
			income, expense int64
		)
		if err := rows.Scan(&mf.Month, &income, &expense); err != nil {
			return nil, fmt.Errorf("scan monthly flow: %w", err)
		}
		mf.Income = core.Money{Cents: income}
		mf.Expense = core.Money{Cents: expense}
		mf.Savings = mf.Income.Sub(mf.Expense)
		out = append(out, mf)
	}
	return out, rows.Err()
}

// RecentExpenses returns the newest expenses as tagged transactions.
func (r *SQLiteRepository) RecentExpenses(ctx context.Context, limit int) ([]core.Transaction, error) {
	expenses, err := r.ListExpenses(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]core.Transaction, len(expenses))
	for i, e := range expenses {
		out[i] = core.Transaction{
			Date:     e.Date,
			Category: e.Category,
			Amount:   e.Amount,
			Notes:    e.Notes,
			Kind:     core.KindExpense,
		}
	}
	return out, nil
}

// RecentIncome returns the newest income rows as tagged transactions,
// the source presented as the category.
func (r *SQLiteRepository) RecentIncome(ctx context.Context, limit int) ([]core.Transaction, error) {
	income, err := r.ListIncome(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]core.Transaction, len(income))
	for i, in := range income {
		out[i] = core.Transaction{
			Date:     in.Date,
			Category: in.Source,
			Amount:   in.Amount,
			Notes:    in.Notes,
			Kind:     core.KindIncome,
		}
	}
	return out, nil
}

// BudgetVsActual left-joins monthly (or unset-period) budgets against
// the given month's expense sums per category.
func (r *SQLiteRepository) BudgetVsActual(ctx context.Context, month string) ([]core.BudgetActual, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT b.category,
		        b.limit_cents,
		        COALESCE(SUM(e.amount_cents), 0) AS spent
		 FROM budgets b
		 LEFT JOIN expenses e
		   ON b.category = e.category AND strftime('%Y-%m', e.date) = ?
		 WHERE b.period = 'monthly' OR b.period IS NULL OR b.period = ''
		 GROUP BY b.category, b.limit_cents`, month)
	if err != nil {
		return nil, fmt.Errorf("budget vs actual for %s: %w", month, err)
	}
	defer rows.Close()

	var out []core.BudgetActual
	for rows.Next() {
		var (
			ba           core.BudgetActual
			limit, spent int64
		)
		if err := rows.Scan(&ba.Category, &limit, &spent); err != nil {
			return nil, fmt.Errorf("scan budget vs actual: %w", err)
		}
		ba.Budget = core.Money{Cents: limit}
		ba.Spent = core.Money{Cents: spent}
		ba.Remaining = ba.Budget.Sub(ba.Spent)
		out = append(out, ba)
	}
	return out, rows.Err()
}

// ExpenseTrends sums expenses per calendar day, oldest first.
func (r *SQLiteRepository) ExpenseTrends(ctx context.Context) ([]core.DateTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT date, SUM(amount_cents) AS total FROM expenses GROUP BY date ORDER BY date ASC`)
	if err != nil {
		return nil, fmt.Errorf("expense trends: %w", err)
	}
	defer rows.Close()

	var out []core.DateTotal
	for rows.Next() {
		var (
			dt      core.DateTotal
			dateStr string
			cents   int64
		)
		if err := rows.Scan(&dateStr, &cents); err != nil {
			return nil, fmt.Errorf("scan expense trend: %w", err)
		}
		if dt.Date, err = core.ParseDate(dateStr); err != nil {
			return nil, fmt.Errorf("parse trend date %q: %w", dateStr, err)
		}
		dt.Total = core.Money{Cents: cents}
		out = append(out, dt)
	}
	return out, rows.Err()
}
