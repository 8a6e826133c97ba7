package query

import (
	"context"
	"math"
	"sort"
	"time"

	"fintrack/internal/core"
)

// RangeTotal is a single total over an inclusive date range.
type RangeTotal struct {
	Start string     `json:"start"`
	End   string     `json:"end"`
	Total core.Money `json:"total"`
}

// RangeIncomeTotal mirrors RangeTotal for income queries.
type RangeIncomeTotal struct {
	Start string     `json:"start"`
	End   string     `json:"end"`
	Total core.Money `json:"total_income"`
}

// RangeFlow is income, expense and their difference over one range.
type RangeFlow struct {
	Start   string     `json:"start"`
	End     string     `json:"end"`
	Income  core.Money `json:"income"`
	Expense core.Money `json:"expense"`
	Savings core.Money `json:"savings"`
}

// SavingsReport summarizes income vs expenses with a savings rate.
type SavingsReport struct {
	TotalIncome   core.Money `json:"total_income"`
	TotalExpenses core.Money `json:"total_expenses"`
	Savings       core.Money `json:"savings"`
	SavingsRate   float64    `json:"savings_rate"`
}

// BudgetReport is the budget-vs-actual rows for one month.
type BudgetReport struct {
	Month   string              `json:"month"`
	Budgets []core.BudgetActual `json:"budgets"`
}

// MonthComparison holds the two fixed windows compared side by side.
type MonthComparison struct {
	LastMonth RangeTotal `json:"last_month"`
	ThisMonth RangeTotal `json:"this_month"`
}

// Prediction is a forecast for the next calendar month.
type Prediction struct {
	PredictedMonth string   `json:"predicted_month"`
	PredictedTotal float64  `json:"predicted_total"`
	BasedOnMonths  []string `json:"based_on_months"`
}

// Notice carries a human-readable message payload.
type Notice struct {
	Message string `json:"message"`
}

func (r *Router) topExpenseCategories(ctx context.Context, p Params) (any, error) {
	rows, err := r.store.ExpenseTotalsByCategory(ctx, p.DateRange, p.Limit)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []core.CategoryTotal{}
	}
	return rows, nil
}

func (r *Router) monthlyExpenseSummary(ctx context.Context, p Params) (any, error) {
	if p.DateRange != nil {
		total, err := r.store.SumExpenses(ctx, p.DateRange)
		if err != nil {
			return nil, err
		}
		return RangeTotal{Start: p.DateRange.Start.ISO(), End: p.DateRange.End.ISO(), Total: total}, nil
	}
	rows, err := r.store.ExpenseTotalsByMonth(ctx, monthsWindow)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []core.MonthTotal{}
	}
	return rows, nil
}

func (r *Router) incomeVsExpense(ctx context.Context, p Params) (any, error) {
	if p.DateRange != nil {
		income, err := r.store.SumIncome(ctx, p.DateRange)
		if err != nil {
			return nil, err
		}
		expense, err := r.store.SumExpenses(ctx, p.DateRange)
		if err != nil {
			return nil, err
		}
		return RangeFlow{
			Start:   p.DateRange.Start.ISO(),
			End:     p.DateRange.End.ISO(),
			Income:  income,
			Expense: expense,
			Savings: income.Sub(expense),
		}, nil
	}
	rows, err := r.store.MonthlyFlows(ctx, monthsWindow)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []core.MonthFlow{}
	}
	return rows, nil
}

func (r *Router) budgetVsActual(ctx context.Context, p Params) (any, error) {
	month := r.now().UTC().Format("2006-01")
	if p.DateRange != nil {
		month = p.DateRange.Start.YearMonth()
	}
	rows, err := r.store.BudgetVsActual(ctx, month)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []core.BudgetActual{}
	}
	return BudgetReport{Month: month, Budgets: rows}, nil
}

func (r *Router) recentTransactions(ctx context.Context, p Params) (any, error) {
	expenses, err := r.store.RecentExpenses(ctx, p.Limit)
	if err != nil {
		return nil, err
	}
	income, err := r.store.RecentIncome(ctx, p.Limit)
	if err != nil {
		return nil, err
	}

	combined := append(expenses, income...)
	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].Date.After(combined[j].Date.Time)
	})
	if len(combined) > p.Limit {
		combined = combined[:p.Limit]
	}
	if combined == nil {
		combined = []core.Transaction{}
	}
	return combined, nil
}

func (r *Router) savingsSummary(ctx context.Context, p Params) (any, error) {
	income, err := r.store.SumIncome(ctx, p.DateRange)
	if err != nil {
		return nil, err
	}
	expenses, err := r.store.SumExpenses(ctx, p.DateRange)
	if err != nil {
		return nil, err
	}

	savings := income.Sub(expenses)
	// A zero-income period reports rate 0, never NaN or an error.
	rate := 0.0
	if income.Cents > 0 {
		rate = round2(float64(savings.Cents) / float64(income.Cents) * 100)
	}
	return SavingsReport{
		TotalIncome:   income,
		TotalExpenses: expenses,
		Savings:       savings,
		SavingsRate:   rate,
	}, nil
}

func (r *Router) expenseBreakdown(ctx context.Context, p Params) (any, error) {
	rng := p.DateRange
	if rng == nil {
		now := r.now().UTC()
		current := core.MonthRange(now.Year(), now.Month())
		rng = &current
	}
	// No limit: the breakdown reports every category in the window.
	rows, err := r.store.ExpenseTotalsByCategory(ctx, rng, 0)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []core.CategoryTotal{}
	}
	return rows, nil
}

func (r *Router) monthlyIncomeSummary(ctx context.Context, p Params) (any, error) {
	if p.DateRange != nil {
		total, err := r.store.SumIncome(ctx, p.DateRange)
		if err != nil {
			return nil, err
		}
		return RangeIncomeTotal{Start: p.DateRange.Start.ISO(), End: p.DateRange.End.ISO(), Total: total}, nil
	}
	rows, err := r.store.IncomeTotalsByMonth(ctx, monthsWindow)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []core.MonthTotal{}
	}
	return rows, nil
}

// compareMonthlyExpenses always compares the two fixed windows of the
// current and the previous calendar month, regardless of any date
// phrase parsed out of the query.
func (r *Router) compareMonthlyExpenses(ctx context.Context, _ Params) (any, error) {
	now := r.now().UTC()
	thisMonth := core.MonthRange(now.Year(), now.Month())
	lastMonth := core.MonthRange(now.Year(), now.Month()-1)

	lastTotal, err := r.store.SumExpenses(ctx, &lastMonth)
	if err != nil {
		return nil, err
	}
	thisTotal, err := r.store.SumExpenses(ctx, &thisMonth)
	if err != nil {
		return nil, err
	}
	return MonthComparison{
		LastMonth: RangeTotal{Start: lastMonth.Start.ISO(), End: lastMonth.End.ISO(), Total: lastTotal},
		ThisMonth: RangeTotal{Start: thisMonth.Start.ISO(), End: thisMonth.End.ISO(), Total: thisTotal},
	}, nil
}

// predictFutureExpenses forecasts next month as the arithmetic mean of
// the most recent months with recorded expenses, at most three. Fewer
// months still predict; only zero months reports a notice instead.
func (r *Router) predictFutureExpenses(ctx context.Context, _ Params) (any, error) {
	rows, err := r.store.ExpenseTotalsByMonth(ctx, 3)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return Notice{Message: "Not enough data to predict."}, nil
	}

	var sum float64
	months := make([]string, len(rows))
	for i, row := range rows {
		sum += row.Total.Amount()
		months[i] = row.Month
	}
	avg := round2(sum / float64(len(rows)))

	nextMonth := time.Date(r.now().UTC().Year(), r.now().UTC().Month(), 1, 0, 0, 0, 0, time.UTC).
		AddDate(0, 1, 0).Format("2006-01")

	return Prediction{
		PredictedMonth: nextMonth,
		PredictedTotal: avg,
		BasedOnMonths:  months,
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
