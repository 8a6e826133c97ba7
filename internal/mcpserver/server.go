// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes finance tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"fintrack/internal/core"
	"fintrack/internal/query"
	"fintrack/internal/storage"
)

// Server wraps the MCP server with finance tools.
type Server struct {
	mcp    *server.MCPServer
	repo   *storage.SQLiteRepository
	router *query.Router
}

// New creates a new MCP server with all finance tools registered.
func New(repo *storage.SQLiteRepository, router *query.Router) *Server {
	s := &Server{repo: repo, router: router}

	s.mcp = server.NewMCPServer(
		"Fintrack",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("finance_query",
		mcp.WithDescription("Answer a natural language question about expenses, income, budgets and savings. "+
			"Examples: 'top 5 expense category totals', 'how much did I save', 'total expenses this month'."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Natural language question")),
	), s.financeQuery)

	s.mcp.AddTool(mcp.NewTool("add_expense",
		mcp.WithDescription("Record an expense."),
		mcp.WithString("date", mcp.Required(), mcp.Description("Date in YYYY-MM-DD format")),
		mcp.WithString("category", mcp.Required(), mcp.Description("Expense category (e.g. Food, Transport)")),
		mcp.WithNumber("amount", mcp.Required(), mcp.Description("Amount spent, in currency units")),
		mcp.WithString("notes", mcp.Description("Optional free-text notes")),
	), s.addExpense)

	s.mcp.AddTool(mcp.NewTool("add_income",
		mcp.WithDescription("Record income."),
		mcp.WithString("date", mcp.Required(), mcp.Description("Date in YYYY-MM-DD format")),
		mcp.WithString("source", mcp.Required(), mcp.Description("Income source (e.g. Salary)")),
		mcp.WithNumber("amount", mcp.Required(), mcp.Description("Amount received, in currency units")),
		mcp.WithString("notes", mcp.Description("Optional free-text notes")),
	), s.addIncome)

	s.mcp.AddTool(mcp.NewTool("add_budget",
		mcp.WithDescription("Set a spending limit for a category. A new limit replaces the previous one."),
		mcp.WithString("category", mcp.Required(), mcp.Description("Budget category")),
		mcp.WithNumber("limit_amount", mcp.Required(), mcp.Description("Spending limit, in currency units")),
		mcp.WithString("period", mcp.Description("Budget period: monthly (default) or weekly")),
	), s.addBudget)

	s.mcp.AddTool(mcp.NewTool("budget_status",
		mcp.WithDescription("Compare budgets against actual spending. With a category, reports that "+
			"category's total spending against its current limit; otherwise reports every budget for a month."),
		mcp.WithString("category", mcp.Description("Budget category to check (optional)")),
		mcp.WithString("month", mcp.Description("Month in YYYY-MM format (defaults to the current month)")),
	), s.budgetStatus)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) financeQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := s.router.HandleQuery(ctx, q)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(result, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) addExpense(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dateStr, err := req.RequireString("date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	category, err := req.RequireString("category")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	amount, err := req.RequireFloat("amount")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	date, err := core.ParseDate(dateStr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid date %q: expected YYYY-MM-DD", dateStr)), nil
	}

	expense := core.Expense{
		Date:     date,
		Category: category,
		Amount:   core.Money{Cents: int64(math.Round(amount * 100))},
		Notes:    req.GetString("notes", ""),
	}
	if err := expense.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	id, err := s.repo.InsertExpense(ctx, expense)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("recorded expense %d: %s %s on %s", id, expense.Amount, category, date.ISO())), nil
}

func (s *Server) addIncome(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dateStr, err := req.RequireString("date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	amount, err := req.RequireFloat("amount")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	date, err := core.ParseDate(dateStr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid date %q: expected YYYY-MM-DD", dateStr)), nil
	}

	income := core.Income{
		Date:   date,
		Source: source,
		Amount: core.Money{Cents: int64(math.Round(amount * 100))},
		Notes:  req.GetString("notes", ""),
	}
	if err := income.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	id, err := s.repo.InsertIncome(ctx, income)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("recorded income %d: %s from %s on %s", id, income.Amount, source, date.ISO())), nil
}

func (s *Server) addBudget(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category, err := req.RequireString("category")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit, err := req.RequireFloat("limit_amount")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	period := core.BudgetPeriod(req.GetString("period", string(core.PeriodMonthly)))
	now := time.Now()

	budget := core.Budget{
		Category:  category,
		Limit:     core.Money{Cents: int64(math.Round(limit * 100))},
		Period:    period,
		StartDate: core.NewDate(now.Year(), now.Month(), now.Day()),
	}
	if err := budget.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	id, err := s.repo.InsertBudget(ctx, budget)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("set %s budget %d for %s at %s", period, id, category, budget.Limit)), nil
}

func (s *Server) budgetStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if category := req.GetString("category", ""); category != "" {
		return s.categoryBudgetStatus(ctx, category)
	}

	month := req.GetString("month", time.Now().Format("2006-01"))

	budgets, err := s.repo.BudgetVsActual(ctx, month)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(map[string]any{"month": month, "budgets": budgets}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

// categoryBudgetStatus reports one category's total spending against
// the most recently set limit for it.
func (s *Server) categoryBudgetStatus(ctx context.Context, category string) (*mcp.CallToolResult, error) {
	spent, err := s.repo.SumCategoryExpenses(ctx, category, nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	budget, err := s.repo.CurrentBudget(ctx, category)
	if errors.Is(err, storage.ErrNotFound) {
		out, _ := json.MarshalIndent(map[string]any{
			"category": category,
			"spent":    spent,
			"limit":    nil,
			"status":   "No budget set",
		}, "", "  ")
		return mcp.NewToolResultText(string(out)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	status := "OK"
	if spent.Cents > budget.Limit.Cents {
		status = "Exceeded"
	}
	out, _ := json.MarshalIndent(map[string]any{
		"category": category,
		"spent":    spent,
		"limit":    budget.Limit,
		"status":   status,
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}
