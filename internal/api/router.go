// Package api implements the fintrack REST API using chi.
package api

import (
	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted under /api.
func NewRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(RequestID)

	r.Route("/api", func(r chi.Router) {
		// Transactions CRUD.
		r.Post("/expenses", h.CreateExpense)
		r.Get("/expenses", h.ListExpenses)
		r.Post("/income", h.CreateIncome)
		r.Get("/income", h.ListIncome)
		r.Post("/budgets", h.CreateBudget)
		r.Get("/budgets", h.ListBudgets)

		// Aggregates.
		r.Get("/expenses/total", h.ExpenseTotal)
		r.Get("/expenses/top", h.TopCategories)
		r.Get("/expenses/trends", h.ExpenseTrends)
		r.Get("/budgets/status", h.BudgetStatus)
		r.Get("/savings", h.SavingsSummary)

		// Market data.
		r.Get("/market/price", h.MarketPrice)

		// Natural language queries.
		r.Post("/query", h.Query)
		r.Post("/nlq", h.NLQ)
	})

	return r
}
