package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"fintrack/internal/categorize"
	"fintrack/internal/query"
	"fintrack/internal/storage"
)

// testEnv sets up a temp SQLite repository and router for testing.
func testEnv(t *testing.T) (*storage.SQLiteRepository, http.Handler) {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "api-test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	router := query.NewRouter(repo, query.NewRuleBasedClassifier())
	h := NewHandler(repo, router, router, categorize.Default(), nil, nil)
	return repo, NewRouter(h)
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateAndListExpenses(t *testing.T) {
	_, router := testEnv(t)

	w := postJSON(t, router, "/api/expenses", map[string]any{
		"date":     "2025-06-10",
		"category": "Food",
		"amount":   12.50,
		"notes":    "lunch",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var created CreatedResponse
	_ = json.Unmarshal(w.Body.Bytes(), &created)
	if created.ID == 0 {
		t.Error("create should return a non-zero ID")
	}

	w = get(t, router, "/api/expenses")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var list struct {
		Expenses []struct {
			Category string  `json:"category"`
			Amount   float64 `json:"amount"`
		} `json:"expenses"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Expenses) != 1 {
		t.Fatalf("expenses = %d, want 1", len(list.Expenses))
	}
	if list.Expenses[0].Category != "Food" || list.Expenses[0].Amount != 12.50 {
		t.Errorf("expense = %+v", list.Expenses[0])
	}
}

func TestCreateExpenseAutoCategorize(t *testing.T) {
	_, router := testEnv(t)

	w := postJSON(t, router, "/api/expenses", map[string]any{
		"date":   "2025-06-10",
		"amount": 30.0,
		"notes":  "uber to airport",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}

	w = get(t, router, "/api/expenses")
	var list struct {
		Expenses []struct {
			Category string `json:"category"`
		} `json:"expenses"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Expenses) != 1 || list.Expenses[0].Category != "Transport" {
		t.Errorf("expenses = %+v, want derived category Transport", list.Expenses)
	}
}

func TestCreateExpenseValidation(t *testing.T) {
	_, router := testEnv(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing date", map[string]any{"amount": 10.0}},
		{"bad date", map[string]any{"date": "10/06/2025", "amount": 10.0}},
		{"zero amount", map[string]any{"date": "2025-06-10", "amount": 0}},
		{"negative amount", map[string]any{"date": "2025-06-10", "amount": -5.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, router, "/api/expenses", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400, body = %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestBudgetStatus(t *testing.T) {
	_, router := testEnv(t)

	w := postJSON(t, router, "/api/budgets", map[string]any{
		"category":     "Food",
		"limit_amount": 500.0,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create budget status = %d, body = %s", w.Code, w.Body.String())
	}

	w = postJSON(t, router, "/api/expenses", map[string]any{
		"date":     "2025-06-10",
		"category": "Food",
		"amount":   120.0,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create expense status = %d", w.Code)
	}

	w = get(t, router, "/api/budgets/status?month=2025-06")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var status BudgetStatusResponse
	_ = json.Unmarshal(w.Body.Bytes(), &status)
	if status.Month != "2025-06" {
		t.Errorf("month = %q, want 2025-06", status.Month)
	}
	if len(status.Budgets) != 1 {
		t.Fatalf("budgets = %d, want 1", len(status.Budgets))
	}
	b := status.Budgets[0]
	if b.Category != "Food" {
		t.Errorf("category = %q", b.Category)
	}
	if b.Spent.Cents != 12000 || b.Remaining.Cents != 38000 {
		t.Errorf("spent = %d, remaining = %d", b.Spent.Cents, b.Remaining.Cents)
	}
}

func TestCategoryBudgetStatus(t *testing.T) {
	_, router := testEnv(t)

	// Two budget rows for the same category; the latest one is current.
	postJSON(t, router, "/api/budgets", map[string]any{
		"category": "Food", "limit_amount": 500.0,
	})
	postJSON(t, router, "/api/budgets", map[string]any{
		"category": "Food", "limit_amount": 100.0,
	})
	postJSON(t, router, "/api/expenses", map[string]any{
		"date": "2025-06-10", "category": "Food", "amount": 120.0,
	})

	w := get(t, router, "/api/budgets/status?category=Food")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var status CategoryBudgetStatusResponse
	_ = json.Unmarshal(w.Body.Bytes(), &status)
	if status.Category != "Food" {
		t.Errorf("category = %q", status.Category)
	}
	if status.Limit == nil || status.Limit.Cents != 10000 {
		t.Errorf("limit = %+v, want the latest budget row (100.00)", status.Limit)
	}
	if status.Spent.Cents != 12000 {
		t.Errorf("spent = %d, want 12000", status.Spent.Cents)
	}
	if status.Status != "Exceeded" {
		t.Errorf("status = %q, want Exceeded", status.Status)
	}
}

func TestCategoryBudgetStatusOK(t *testing.T) {
	_, router := testEnv(t)

	postJSON(t, router, "/api/budgets", map[string]any{
		"category": "Transport", "limit_amount": 200.0,
	})
	postJSON(t, router, "/api/expenses", map[string]any{
		"date": "2025-06-10", "category": "Transport", "amount": 50.0,
	})

	w := get(t, router, "/api/budgets/status?category=Transport")
	var status CategoryBudgetStatusResponse
	_ = json.Unmarshal(w.Body.Bytes(), &status)
	if status.Status != "OK" {
		t.Errorf("status = %q, want OK", status.Status)
	}
}

func TestCategoryBudgetStatusNoBudget(t *testing.T) {
	_, router := testEnv(t)

	postJSON(t, router, "/api/expenses", map[string]any{
		"date": "2025-06-10", "category": "Travel", "amount": 80.0,
	})

	w := get(t, router, "/api/budgets/status?category=Travel")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var status CategoryBudgetStatusResponse
	_ = json.Unmarshal(w.Body.Bytes(), &status)
	if status.Limit != nil {
		t.Errorf("limit = %+v, want null", status.Limit)
	}
	if status.Spent.Cents != 8000 {
		t.Errorf("spent = %d, want 8000", status.Spent.Cents)
	}
	if status.Status != "No budget set" {
		t.Errorf("status = %q, want 'No budget set'", status.Status)
	}
}

func TestSavingsSummary(t *testing.T) {
	_, router := testEnv(t)

	postJSON(t, router, "/api/income", map[string]any{
		"date": "2025-06-01", "source": "Salary", "amount": 5000.0,
	})
	postJSON(t, router, "/api/expenses", map[string]any{
		"date": "2025-06-10", "category": "Rent", "amount": 1500.0,
	})

	w := get(t, router, "/api/savings")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		TotalIncome   float64 `json:"total_income"`
		TotalExpenses float64 `json:"total_expenses"`
		Savings       float64 `json:"savings"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.TotalIncome != 5000 || resp.TotalExpenses != 1500 || resp.Savings != 3500 {
		t.Errorf("savings = %+v", resp)
	}
}

func TestQueryEndpoint(t *testing.T) {
	_, router := testEnv(t)

	postJSON(t, router, "/api/expenses", map[string]any{
		"date": "2025-06-10", "category": "Food", "amount": 45.0,
	})
	postJSON(t, router, "/api/expenses", map[string]any{
		"date": "2025-06-11", "category": "Transport", "amount": 20.0,
	})

	w := postJSON(t, router, "/api/query", map[string]any{
		"query": "top 5 expenses by category",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var result struct {
		Intent string `json:"intent"`
		Result []struct {
			Category string  `json:"category"`
			Total    float64 `json:"total"`
		} `json:"result"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &result)
	if result.Intent != "top_expense_categories" {
		t.Errorf("intent = %q", result.Intent)
	}
	if len(result.Result) != 2 || result.Result[0].Category != "Food" {
		t.Errorf("result = %+v", result.Result)
	}
}

func TestQueryEmpty(t *testing.T) {
	_, router := testEnv(t)

	for _, q := range []string{"", "   "} {
		w := postJSON(t, router, "/api/query", map[string]any{"query": q})
		if w.Code != http.StatusBadRequest {
			t.Errorf("query %q status = %d, want 400", q, w.Code)
		}
	}
}

func TestQueryUnknownIntent(t *testing.T) {
	_, router := testEnv(t)

	w := postJSON(t, router, "/api/query", map[string]any{"query": "what is the meaning of life"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var result struct {
		Intent string `json:"intent"`
		Error  string `json:"error"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &result)
	if result.Intent != "unknown" {
		t.Errorf("intent = %q, want unknown", result.Intent)
	}
	if result.Error != "Could not understand query" {
		t.Errorf("error = %q", result.Error)
	}
}

func TestMarketPriceUnconfigured(t *testing.T) {
	_, router := testEnv(t)

	w := get(t, router, "/api/market/price?coin=bitcoin")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}
