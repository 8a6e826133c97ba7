package query

import (
	"context"
	"testing"
	"time"

	"fintrack/internal/core"
)

func testRouter(store *fakeStore, clock func() time.Time) *Router {
	return NewRouter(store, NewRuleBasedClassifier(), WithClock(clock))
}

func TestSavingsSummary(t *testing.T) {
	store := &fakeStore{
		incomeTotal:  core.Money{Cents: 500_000},
		expenseTotal: core.Money{Cents: 350_000},
	}
	r := testRouter(store, juneClock())

	payload, err := r.savingsSummary(context.Background(), Params{})
	if err != nil {
		t.Fatal(err)
	}
	report := payload.(SavingsReport)
	if report.Savings.Cents != 150_000 {
		t.Errorf("savings = %d", report.Savings.Cents)
	}
	if report.SavingsRate != 30.0 {
		t.Errorf("rate = %v, want 30", report.SavingsRate)
	}
}

func TestSavingsSummaryZeroIncome(t *testing.T) {
	store := &fakeStore{expenseTotal: core.Money{Cents: 10_000}}
	r := testRouter(store, juneClock())

	payload, err := r.savingsSummary(context.Background(), Params{})
	if err != nil {
		t.Fatal(err)
	}
	report := payload.(SavingsReport)
	if report.SavingsRate != 0 {
		t.Errorf("rate = %v, want 0 with no income", report.SavingsRate)
	}
	if report.Savings.Cents != -10_000 {
		t.Errorf("savings = %d, want -10000", report.Savings.Cents)
	}
}

func TestSavingsRateRounding(t *testing.T) {
	store := &fakeStore{
		incomeTotal:  core.Money{Cents: 30_000},
		expenseTotal: core.Money{Cents: 20_000},
	}
	r := testRouter(store, juneClock())

	payload, err := r.savingsSummary(context.Background(), Params{})
	if err != nil {
		t.Fatal(err)
	}
	// 10000/30000 = 33.333...%, rounded to two decimals.
	if rate := payload.(SavingsReport).SavingsRate; rate != 33.33 {
		t.Errorf("rate = %v, want 33.33", rate)
	}
}

func TestPredictFutureExpenses(t *testing.T) {
	store := &fakeStore{monthTotals: []core.MonthTotal{
		{Month: "2025-06", Total: core.Money{Cents: 150_000}},
		{Month: "2025-05", Total: core.Money{Cents: 100_000}},
	}}
	r := testRouter(store, juneClock())

	payload, err := r.predictFutureExpenses(context.Background(), Params{})
	if err != nil {
		t.Fatal(err)
	}
	p := payload.(Prediction)
	if p.PredictedTotal != 1250.0 {
		t.Errorf("predicted = %v, want 1250.0", p.PredictedTotal)
	}
	if p.PredictedMonth != "2025-07" {
		t.Errorf("month = %q, want 2025-07", p.PredictedMonth)
	}
	if len(p.BasedOnMonths) != 2 || p.BasedOnMonths[0] != "2025-06" {
		t.Errorf("based on = %v", p.BasedOnMonths)
	}
	if store.gotLimit != 3 {
		t.Errorf("limit = %d, want 3", store.gotLimit)
	}
}

func TestPredictFutureExpensesNoData(t *testing.T) {
	r := testRouter(&fakeStore{}, juneClock())

	payload, err := r.predictFutureExpenses(context.Background(), Params{})
	if err != nil {
		t.Fatal(err)
	}
	notice, ok := payload.(Notice)
	if !ok || notice.Message != "Not enough data to predict." {
		t.Errorf("payload = %#v", payload)
	}
}

func TestPredictFutureExpensesDecemberRollover(t *testing.T) {
	store := &fakeStore{monthTotals: []core.MonthTotal{
		{Month: "2024-12", Total: core.Money{Cents: 100_000}},
	}}
	december := func() time.Time {
		return time.Date(2024, time.December, 20, 9, 0, 0, 0, time.UTC)
	}
	r := testRouter(store, december)

	payload, err := r.predictFutureExpenses(context.Background(), Params{})
	if err != nil {
		t.Fatal(err)
	}
	if p := payload.(Prediction); p.PredictedMonth != "2025-01" {
		t.Errorf("month = %q, want 2025-01", p.PredictedMonth)
	}
}

func TestCompareMonthlyExpenses(t *testing.T) {
	store := &fakeStore{sumByStart: map[string]core.Money{
		"2025-05-01": {Cents: 90_000},
		"2025-06-01": {Cents: 110_000},
	}}
	r := testRouter(store, juneClock())

	// Date phrases in the query are ignored; the windows are fixed.
	payload, err := r.compareMonthlyExpenses(context.Background(), Params{
		DateRange: &core.DateRange{Start: core.NewDate(2020, time.January, 1), End: core.NewDate(2020, time.January, 31)},
	})
	if err != nil {
		t.Fatal(err)
	}
	cmp := payload.(MonthComparison)
	if cmp.LastMonth.Start != "2025-05-01" || cmp.LastMonth.End != "2025-05-31" {
		t.Errorf("last month = [%s, %s]", cmp.LastMonth.Start, cmp.LastMonth.End)
	}
	if cmp.ThisMonth.Start != "2025-06-01" || cmp.ThisMonth.End != "2025-06-30" {
		t.Errorf("this month = [%s, %s]", cmp.ThisMonth.Start, cmp.ThisMonth.End)
	}
	if cmp.LastMonth.Total.Cents != 90_000 || cmp.ThisMonth.Total.Cents != 110_000 {
		t.Errorf("totals = %d / %d", cmp.LastMonth.Total.Cents, cmp.ThisMonth.Total.Cents)
	}
}

func TestCompareMonthlyExpensesJanuary(t *testing.T) {
	store := &fakeStore{sumByStart: map[string]core.Money{}}
	january := func() time.Time {
		return time.Date(2025, time.January, 10, 9, 0, 0, 0, time.UTC)
	}
	r := testRouter(store, january)

	payload, err := r.compareMonthlyExpenses(context.Background(), Params{})
	if err != nil {
		t.Fatal(err)
	}
	cmp := payload.(MonthComparison)
	if cmp.LastMonth.Start != "2024-12-01" || cmp.LastMonth.End != "2024-12-31" {
		t.Errorf("last month = [%s, %s], want December 2024", cmp.LastMonth.Start, cmp.LastMonth.End)
	}
}

func TestRecentTransactions(t *testing.T) {
	day := func(d int) core.Date { return core.NewDate(2025, time.June, d) }
	store := &fakeStore{
		recentExp: []core.Transaction{
			{Date: day(10), Category: "Food", Amount: core.Money{Cents: 1_000}, Kind: core.KindExpense},
			{Date: day(8), Category: "Transport", Amount: core.Money{Cents: 2_000}, Kind: core.KindExpense},
		},
		recentInc: []core.Transaction{
			{Date: day(9), Category: "Salary", Amount: core.Money{Cents: 500_000}, Kind: core.KindIncome},
		},
	}
	r := testRouter(store, juneClock())

	payload, err := r.recentTransactions(context.Background(), Params{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	rows := payload.([]core.Transaction)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2 after truncation", len(rows))
	}
	if rows[0].Category != "Food" || rows[1].Category != "Salary" {
		t.Errorf("order = %s, %s; want Food, Salary", rows[0].Category, rows[1].Category)
	}
}

func TestRecentTransactionsEmpty(t *testing.T) {
	r := testRouter(&fakeStore{}, juneClock())

	payload, err := r.recentTransactions(context.Background(), Params{Limit: 5})
	if err != nil {
		t.Fatal(err)
	}
	rows, ok := payload.([]core.Transaction)
	if !ok || rows == nil || len(rows) != 0 {
		t.Errorf("payload = %#v, want empty non-nil slice", payload)
	}
}

func TestBudgetVsActualUsesRangeMonth(t *testing.T) {
	store := &fakeStore{budgetRows: []core.BudgetActual{
		{Category: "Food", Budget: core.Money{Cents: 50_000}, Spent: core.Money{Cents: 20_000}, Remaining: core.Money{Cents: 30_000}},
	}}
	r := testRouter(store, juneClock())

	rng := core.MonthRange(2025, time.March)
	payload, err := r.budgetVsActual(context.Background(), Params{DateRange: &rng})
	if err != nil {
		t.Fatal(err)
	}
	report := payload.(BudgetReport)
	if report.Month != "2025-03" {
		t.Errorf("month = %q, want 2025-03", report.Month)
	}
	if store.gotMonth != "2025-03" {
		t.Errorf("queried month = %q", store.gotMonth)
	}
}

func TestBudgetVsActualDefaultsToCurrentMonth(t *testing.T) {
	r := testRouter(&fakeStore{}, juneClock())

	payload, err := r.budgetVsActual(context.Background(), Params{})
	if err != nil {
		t.Fatal(err)
	}
	if report := payload.(BudgetReport); report.Month != "2025-06" {
		t.Errorf("month = %q, want 2025-06", report.Month)
	}
}

func TestExpenseBreakdownDefaultsToCurrentMonth(t *testing.T) {
	store := &fakeStore{categoryTotals: []core.CategoryTotal{
		{Category: "Food", Total: core.Money{Cents: 12_000}},
	}}
	r := testRouter(store, juneClock())

	payload, err := r.expenseBreakdown(context.Background(), Params{Limit: 5})
	if err != nil {
		t.Fatal(err)
	}
	if store.gotRange == nil || store.gotRange.Start.ISO() != "2025-06-01" {
		t.Errorf("range = %+v, want current month", store.gotRange)
	}
	if store.gotLimit != 0 {
		t.Errorf("limit = %d, want 0 (all categories)", store.gotLimit)
	}
	if rows := payload.([]core.CategoryTotal); len(rows) != 1 {
		t.Errorf("rows = %d", len(rows))
	}
}

func TestIncomeVsExpenseWithRange(t *testing.T) {
	store := &fakeStore{
		incomeTotal: core.Money{Cents: 400_000},
		sumByStart: map[string]core.Money{
			"2025-06-01": {Cents: 250_000},
		},
	}
	r := testRouter(store, juneClock())

	rng := core.MonthRange(2025, time.June)
	payload, err := r.incomeVsExpense(context.Background(), Params{DateRange: &rng})
	if err != nil {
		t.Fatal(err)
	}
	flow := payload.(RangeFlow)
	if flow.Savings.Cents != 150_000 {
		t.Errorf("savings = %d", flow.Savings.Cents)
	}
}

func TestIncomeVsExpenseMonthlySeries(t *testing.T) {
	store := &fakeStore{flows: []core.MonthFlow{
		{Month: "2025-06", Income: core.Money{Cents: 400_000}, Expense: core.Money{Cents: 300_000}, Savings: core.Money{Cents: 100_000}},
		{Month: "2025-05", Income: core.Money{}, Expense: core.Money{Cents: 50_000}, Savings: core.Money{Cents: -50_000}},
	}}
	r := testRouter(store, juneClock())

	payload, err := r.incomeVsExpense(context.Background(), Params{})
	if err != nil {
		t.Fatal(err)
	}
	rows := payload.([]core.MonthFlow)
	if len(rows) != 2 {
		t.Fatalf("rows = %d", len(rows))
	}
	// Months with only one side still appear, with the other side zero.
	if rows[1].Income.Cents != 0 || rows[1].Savings.Cents != -50_000 {
		t.Errorf("row = %+v", rows[1])
	}
}
