package export

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/core"
)

// Store is the read surface the monthly report is built from.
type Store interface {
	SumExpenses(ctx context.Context, rng *core.DateRange) (core.Money, error)
	SumIncome(ctx context.Context, rng *core.DateRange) (core.Money, error)
	ExpenseTotalsByCategory(ctx context.Context, rng *core.DateRange, limit int) ([]core.CategoryTotal, error)
}

// MonthlyReport is one closed month's flow and category breakdown.
type MonthlyReport struct {
	Month      string
	Flow       core.MonthFlow
	Categories []core.CategoryTotal
}

// BuildMonthlyReport summarizes the calendar month preceding now. The
// export cron runs on the first of a month, so the report always
// covers a completed month rather than the one just started.
func BuildMonthlyReport(ctx context.Context, store Store, now time.Time) (MonthlyReport, error) {
	rng := core.MonthRange(now.Year(), now.Month()-1)
	month := rng.Start.YearMonth()

	income, err := store.SumIncome(ctx, &rng)
	if err != nil {
		return MonthlyReport{}, fmt.Errorf("sum income for %s: %w", month, err)
	}
	expense, err := store.SumExpenses(ctx, &rng)
	if err != nil {
		return MonthlyReport{}, fmt.Errorf("sum expenses for %s: %w", month, err)
	}
	categories, err := store.ExpenseTotalsByCategory(ctx, &rng, 0)
	if err != nil {
		return MonthlyReport{}, fmt.Errorf("category totals for %s: %w", month, err)
	}

	return MonthlyReport{
		Month: month,
		Flow: core.MonthFlow{
			Month:   month,
			Income:  income,
			Expense: expense,
			Savings: income.Sub(expense),
		},
		Categories: categories,
	}, nil
}
