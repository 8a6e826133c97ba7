// Package query is the natural-language query router: it classifies a
// free-text question into one of a closed set of intents, extracts
// structured parameters from the text, and dispatches to the
// aggregation handler for that intent.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fintrack/internal/core"
)

// ErrEmptyQuery is returned before any classification when the query
// text is empty or blank.
var ErrEmptyQuery = errors.New("empty query")

// errorCouldNotUnderstand is the payload message for queries that
// classify to unknown or reach no handler.
const errorCouldNotUnderstand = "Could not understand query"

const (
	defaultLimit = 5
	monthsWindow = 12
)

// Store is the read surface the router consumes. All aggregates
// must report zero, never absence, for empty result sets.
type Store interface {
	SumExpenses(ctx context.Context, rng *core.DateRange) (core.Money, error)
	SumIncome(ctx context.Context, rng *core.DateRange) (core.Money, error)
	ExpenseTotalsByCategory(ctx context.Context, rng *core.DateRange, limit int) ([]core.CategoryTotal, error)
	ExpenseTotalsByMonth(ctx context.Context, limit int) ([]core.MonthTotal, error)
	IncomeTotalsByMonth(ctx context.Context, limit int) ([]core.MonthTotal, error)
	MonthlyFlows(ctx context.Context, limit int) ([]core.MonthFlow, error)
	RecentExpenses(ctx context.Context, limit int) ([]core.Transaction, error)
	RecentIncome(ctx context.Context, limit int) ([]core.Transaction, error)
	BudgetVsActual(ctx context.Context, month string) ([]core.BudgetActual, error)
}

// Result is the envelope returned for every handled query.
type Result struct {
	Intent Intent  `json:"intent"`
	Result any     `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
	Params *Params `json:"params,omitempty"`
}

type handlerFunc func(ctx context.Context, p Params) (any, error)

// Router orchestrates classify, extract and dispatch for one query.
type Router struct {
	store      Store
	classifier Classifier
	extractor  *Extractor
	now        func() time.Time
	handlers   map[Intent]handlerFunc
}

// Option configures a Router.
type Option func(*Router)

// WithClock fixes the router's notion of "now" for relative date
// phrases and current-month defaults.
func WithClock(now func() time.Time) Option {
	return func(r *Router) {
		r.now = now
		r.extractor.Now = now
	}
}

// NewRouter wires a router over the given store and classifier. Every
// dispatchable intent gets a handler here; the exhaustiveness test
// keeps this map and the intent set in sync.
func NewRouter(store Store, classifier Classifier, opts ...Option) *Router {
	r := &Router{
		store:      store,
		classifier: classifier,
		extractor:  NewExtractor(),
		now:        time.Now,
	}
	r.handlers = map[Intent]handlerFunc{
		IntentTopExpenseCategories:  r.topExpenseCategories,
		IntentMonthlyExpenseSummary: r.monthlyExpenseSummary,
		IntentIncomeVsExpense:       r.incomeVsExpense,
		IntentBudgetVsActual:        r.budgetVsActual,
		IntentRecentTransactions:    r.recentTransactions,
		IntentSavingsSummary:        r.savingsSummary,
		IntentExpenseBreakdown:      r.expenseBreakdown,
		IntentMonthlyIncomeSummary:  r.monthlyIncomeSummary,
		IntentCompareMonthly:        r.compareMonthlyExpenses,
		IntentPredictExpenses:       r.predictFutureExpenses,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HandleQuery resolves one free-text question. Empty input fails with
// ErrEmptyQuery before classification; an unclassifiable query comes
// back as a structured error payload with a nil error; only store and
// embedding failures surface as errors.
func (r *Router) HandleQuery(ctx context.Context, text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrEmptyQuery
	}

	cl, err := r.classifier.Classify(ctx, text)
	if err != nil {
		return Result{}, fmt.Errorf("classify query: %w", err)
	}

	params := r.extractor.Extract(text)
	if params.Limit <= 0 {
		params.Limit = defaultLimit
	}

	slog.InfoContext(ctx, "Query classified",
		"intent", cl.Intent,
		"confidence", cl.Confidence,
		"limit", params.Limit,
		"has_date_range", params.DateRange != nil)

	handler, ok := r.handlers[cl.Intent]
	if !ok {
		return Result{Intent: cl.Intent, Error: errorCouldNotUnderstand, Params: &params}, nil
	}

	payload, err := handler(ctx, params)
	if err != nil {
		return Result{}, fmt.Errorf("handle %s: %w", cl.Intent, err)
	}
	return Result{Intent: cl.Intent, Result: payload}, nil
}
