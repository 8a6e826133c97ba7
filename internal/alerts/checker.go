// Package alerts watches month-to-date spending against monthly
// budgets and emits alerts when a category crosses its threshold.
package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/events"
)

// DefaultThresholdPct is the budget usage percentage above which an
// alert fires.
const DefaultThresholdPct = 90.0

type Store interface {
	ListBudgets(ctx context.Context, period core.BudgetPeriod) ([]core.Budget, error)
	SumCategoryExpenses(ctx context.Context, category string, rng *core.DateRange) (core.Money, error)
}

type Checker struct {
	store        Store
	publisher    events.Publisher
	thresholdPct float64
	now          func() time.Time
}

type Option func(*Checker)

func WithThreshold(pct float64) Option {
	return func(c *Checker) { c.thresholdPct = pct }
}

func WithClock(now func() time.Time) Option {
	return func(c *Checker) { c.now = now }
}

func NewChecker(store Store, publisher events.Publisher, opts ...Option) *Checker {
	c := &Checker{
		store:        store,
		publisher:    publisher,
		thresholdPct: DefaultThresholdPct,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check evaluates every monthly budget for the current month and
// publishes an alert for each category at or above the threshold.
// Returns the alerts that fired.
func (c *Checker) Check(ctx context.Context) ([]*events.BudgetAlert, error) {
	budgets, err := c.store.ListBudgets(ctx, core.PeriodMonthly)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}

	now := c.now()
	rng := core.MonthRange(now.Year(), now.Month())
	month := rng.Start.YearMonth()

	var fired []*events.BudgetAlert
	for _, b := range budgets {
		if b.Limit.Cents <= 0 {
			continue
		}

		spent, err := c.store.SumCategoryExpenses(ctx, b.Category, &rng)
		if err != nil {
			return fired, fmt.Errorf("sum expenses for %s: %w", b.Category, err)
		}

		usage := float64(spent.Cents) / float64(b.Limit.Cents) * 100
		if usage < c.thresholdPct {
			continue
		}

		alert := events.NewBudgetAlert(b.Category, month, b.Limit.Amount(), spent.Amount(), usage)
		fired = append(fired, alert)

		slog.WarnContext(ctx, "budget threshold crossed",
			"category", b.Category,
			"month", month,
			"usage_pct", usage)

		if c.publisher != nil {
			if err := c.publisher.PublishBudgetAlert(ctx, alert); err != nil {
				slog.ErrorContext(ctx, "failed to publish budget alert",
					"error", err,
					"category", b.Category)
			}
		}
	}

	return fired, nil
}
