package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"fintrack/internal/categorize"
	"fintrack/internal/core"
	"fintrack/internal/events"
	"fintrack/internal/market"
	"fintrack/internal/query"
	"fintrack/internal/storage"
)

const defaultListLimit = 50

// Handler holds API route handlers.
type Handler struct {
	repo        *storage.SQLiteRepository
	queryRouter *query.Router
	nlqRouter   *query.Router
	categorizer *categorize.Categorizer
	market      *market.Client
	publisher   events.Publisher
}

// NewHandler creates a Handler. queryRouter serves the rule-based
// endpoint and nlqRouter the similarity-based one; they may share the
// same underlying router. publisher and market may be nil.
func NewHandler(repo *storage.SQLiteRepository, queryRouter, nlqRouter *query.Router,
	categorizer *categorize.Categorizer, marketClient *market.Client, publisher events.Publisher) *Handler {
	return &Handler{
		repo:        repo,
		queryRouter: queryRouter,
		nlqRouter:   nlqRouter,
		categorizer: categorizer,
		market:      marketClient,
		publisher:   publisher,
	}
}

func cents(amount float64) core.Money {
	return core.Money{Cents: int64(math.Round(amount * 100))}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

func queryLimit(r *http.Request) int {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}

// queryRange parses optional start/end query parameters into a date
// range. Both must be present for a range to apply.
func queryRange(r *http.Request) (*core.DateRange, error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")
	if startStr == "" && endStr == "" {
		return nil, nil
	}
	start, err := core.ParseDate(startStr)
	if err != nil {
		return nil, errors.New("invalid start date, expected YYYY-MM-DD")
	}
	end, err := core.ParseDate(endStr)
	if err != nil {
		return nil, errors.New("invalid end date, expected YYYY-MM-DD")
	}
	return &core.DateRange{Start: start, End: end}, nil
}

// CreateExpense handles POST /api/expenses.
func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req CreateExpenseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	date, _ := core.ParseDate(req.Date)
	category := req.Category
	if category == "" && h.categorizer != nil {
		category = h.categorizer.Categorize(req.Notes)
	}

	expense := core.Expense{
		Date:     date,
		Category: category,
		Amount:   cents(req.Amount),
		Notes:    req.Notes,
	}
	if err := expense.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	id, err := h.repo.InsertExpense(r.Context(), expense)
	if err != nil {
		slog.ErrorContext(r.Context(), "create expense failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	if h.publisher != nil {
		if err := h.publisher.PublishTransactionRecorded(r.Context(), string(core.KindExpense), id); err != nil {
			slog.ErrorContext(r.Context(), "publish expense event failed", "error", err, "id", id)
		}
	}

	writeJSON(w, http.StatusCreated, CreatedResponse{ID: id})
}

// ListExpenses handles GET /api/expenses.
func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := h.repo.ListExpenses(r.Context(), queryLimit(r))
	if err != nil {
		slog.ErrorContext(r.Context(), "list expenses failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"expenses": expenses})
}

// CreateIncome handles POST /api/income.
func (h *Handler) CreateIncome(w http.ResponseWriter, r *http.Request) {
	var req CreateIncomeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	date, _ := core.ParseDate(req.Date)
	income := core.Income{
		Date:   date,
		Source: req.Source,
		Amount: cents(req.Amount),
		Notes:  req.Notes,
	}
	if err := income.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	id, err := h.repo.InsertIncome(r.Context(), income)
	if err != nil {
		slog.ErrorContext(r.Context(), "create income failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	if h.publisher != nil {
		if err := h.publisher.PublishTransactionRecorded(r.Context(), string(core.KindIncome), id); err != nil {
			slog.ErrorContext(r.Context(), "publish income event failed", "error", err, "id", id)
		}
	}

	writeJSON(w, http.StatusCreated, CreatedResponse{ID: id})
}

// ListIncome handles GET /api/income.
func (h *Handler) ListIncome(w http.ResponseWriter, r *http.Request) {
	income, err := h.repo.ListIncome(r.Context(), queryLimit(r))
	if err != nil {
		slog.ErrorContext(r.Context(), "list income failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"income": income})
}

// CreateBudget handles POST /api/budgets.
func (h *Handler) CreateBudget(w http.ResponseWriter, r *http.Request) {
	var req CreateBudgetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	period := core.BudgetPeriod(req.Period)
	if period == "" {
		period = core.PeriodMonthly
	}
	startDate := core.NewDate(time.Now().Year(), time.Now().Month(), time.Now().Day())
	if req.StartDate != "" {
		startDate, _ = core.ParseDate(req.StartDate)
	}

	budget := core.Budget{
		Category:  req.Category,
		Limit:     cents(req.LimitAmount),
		Period:    period,
		StartDate: startDate,
	}
	if err := budget.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	id, err := h.repo.InsertBudget(r.Context(), budget)
	if err != nil {
		slog.ErrorContext(r.Context(), "create budget failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusCreated, CreatedResponse{ID: id})
}

// ListBudgets handles GET /api/budgets.
func (h *Handler) ListBudgets(w http.ResponseWriter, r *http.Request) {
	period := core.BudgetPeriod(r.URL.Query().Get("period"))
	budgets, err := h.repo.ListBudgets(r.Context(), period)
	if err != nil {
		slog.ErrorContext(r.Context(), "list budgets failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"budgets": budgets})
}

// ExpenseTotal handles GET /api/expenses/total.
func (h *Handler) ExpenseTotal(w http.ResponseWriter, r *http.Request) {
	rng, err := queryRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	total, err := h.repo.SumExpenses(r.Context(), rng)
	if err != nil {
		slog.ErrorContext(r.Context(), "sum expenses failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, TotalResponse{Total: total})
}

// TopCategories handles GET /api/expenses/top.
func (h *Handler) TopCategories(w http.ResponseWriter, r *http.Request) {
	rng, err := queryRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 5
	}
	totals, err := h.repo.ExpenseTotalsByCategory(r.Context(), rng, limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "top categories failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if totals == nil {
		totals = []core.CategoryTotal{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": totals})
}

// ExpenseTrends handles GET /api/expenses/trends.
func (h *Handler) ExpenseTrends(w http.ResponseWriter, r *http.Request) {
	trends, err := h.repo.ExpenseTrends(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "expense trends failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if trends == nil {
		trends = []core.DateTotal{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"trends": trends})
}

// Budget status values reported per category.
const (
	budgetStatusOK       = "OK"
	budgetStatusExceeded = "Exceeded"
	budgetStatusNotSet   = "No budget set"
)

// BudgetStatus handles GET /api/budgets/status. With a category
// parameter it reports that category's all-time spending against its
// current limit; otherwise it reports budget vs actual for a month.
func (h *Handler) BudgetStatus(w http.ResponseWriter, r *http.Request) {
	if category := r.URL.Query().Get("category"); category != "" {
		h.categoryBudgetStatus(w, r, category)
		return
	}

	month := r.URL.Query().Get("month")
	if month == "" {
		month = time.Now().Format("2006-01")
	}
	budgets, err := h.repo.BudgetVsActual(r.Context(), month)
	if err != nil {
		slog.ErrorContext(r.Context(), "budget status failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if budgets == nil {
		budgets = []core.BudgetActual{}
	}
	writeJSON(w, http.StatusOK, BudgetStatusResponse{Month: month, Budgets: budgets})
}

// categoryBudgetStatus compares all-time spending in one category
// against the most recently set budget row for it.
func (h *Handler) categoryBudgetStatus(w http.ResponseWriter, r *http.Request, category string) {
	spent, err := h.repo.SumCategoryExpenses(r.Context(), category, nil)
	if err != nil {
		slog.ErrorContext(r.Context(), "sum category expenses failed", "error", err, "category", category)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	budget, err := h.repo.CurrentBudget(r.Context(), category)
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusOK, CategoryBudgetStatusResponse{
			Category: category,
			Spent:    spent,
			Status:   budgetStatusNotSet,
		})
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "current budget lookup failed", "error", err, "category", category)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	status := budgetStatusOK
	if spent.Cents > budget.Limit.Cents {
		status = budgetStatusExceeded
	}
	writeJSON(w, http.StatusOK, CategoryBudgetStatusResponse{
		Category: category,
		Spent:    spent,
		Limit:    &budget.Limit,
		Status:   status,
	})
}

// SavingsSummary handles GET /api/savings.
func (h *Handler) SavingsSummary(w http.ResponseWriter, r *http.Request) {
	income, err := h.repo.SumIncome(r.Context(), nil)
	if err != nil {
		slog.ErrorContext(r.Context(), "sum income failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	expenses, err := h.repo.SumExpenses(r.Context(), nil)
	if err != nil {
		slog.ErrorContext(r.Context(), "sum expenses failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, SavingsResponse{
		TotalIncome:   income,
		TotalExpenses: expenses,
		Savings:       income.Sub(expenses),
	})
}

// MarketPrice handles GET /api/market/price.
func (h *Handler) MarketPrice(w http.ResponseWriter, r *http.Request) {
	if h.market == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("market data is not configured"))
		return
	}
	price, err := h.market.SpotPrice(r.Context(), r.URL.Query().Get("coin"), r.URL.Query().Get("currency"))
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, price)
}

// Query handles POST /api/query using the rule-based classifier.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	h.handleQuery(w, r, h.queryRouter)
}

// NLQ handles POST /api/nlq using the similarity classifier.
func (h *Handler) NLQ(w http.ResponseWriter, r *http.Request) {
	h.handleQuery(w, r, h.nlqRouter)
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request, router *query.Router) {
	var req QueryRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := router.HandleQuery(r.Context(), req.Query)
	if err != nil {
		if errors.Is(err, query.ErrEmptyQuery) {
			writeJSON(w, http.StatusBadRequest, errorBody("query is required"))
			return
		}
		slog.ErrorContext(r.Context(), "query failed", "error", err, "query", req.Query)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, result)
}
