package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"fintrack/internal/core"
)

// CreateExpenseRequest is the request body for recording an expense.
// Category is optional; when empty it is derived from the notes.
type CreateExpenseRequest struct {
	Date     string  `json:"date"`
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Notes    string  `json:"notes"`
}

func (r CreateExpenseRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Date, validation.Required, validation.Date("2006-01-02")),
		validation.Field(&r.Amount, validation.Required, validation.Min(0.01)),
	)
}

// CreateIncomeRequest is the request body for recording income.
type CreateIncomeRequest struct {
	Date   string  `json:"date"`
	Source string  `json:"source"`
	Amount float64 `json:"amount"`
	Notes  string  `json:"notes"`
}

func (r CreateIncomeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Date, validation.Required, validation.Date("2006-01-02")),
		validation.Field(&r.Source, validation.Required),
		validation.Field(&r.Amount, validation.Required, validation.Min(0.01)),
	)
}

// CreateBudgetRequest is the request body for setting a budget limit.
type CreateBudgetRequest struct {
	Category    string  `json:"category"`
	LimitAmount float64 `json:"limit_amount"`
	Period      string  `json:"period"`
	StartDate   string  `json:"start_date"`
}

func (r CreateBudgetRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Category, validation.Required),
		validation.Field(&r.LimitAmount, validation.Required, validation.Min(0.01)),
		validation.Field(&r.Period, validation.In("", string(core.PeriodMonthly), string(core.PeriodWeekly))),
		validation.Field(&r.StartDate, validation.Date("2006-01-02")),
	)
}

// QueryRequest is the request body for natural language queries.
type QueryRequest struct {
	Query string `json:"query"`
}

// CreatedResponse echoes the ID of a newly stored row.
type CreatedResponse struct {
	ID int64 `json:"id"`
}

// TotalResponse wraps a single aggregate amount.
type TotalResponse struct {
	Total core.Money `json:"total"`
}

// BudgetStatusResponse reports budget usage for one month.
type BudgetStatusResponse struct {
	Month   string              `json:"month"`
	Budgets []core.BudgetActual `json:"budgets"`
}

// CategoryBudgetStatusResponse reports all-time spending in one
// category against its current limit. Limit is null when no budget
// row exists for the category.
type CategoryBudgetStatusResponse struct {
	Category string      `json:"category"`
	Spent    core.Money  `json:"spent"`
	Limit    *core.Money `json:"limit"`
	Status   string      `json:"status"`
}

// SavingsResponse summarizes all-time income against expenses.
type SavingsResponse struct {
	TotalIncome   core.Money `json:"total_income"`
	TotalExpenses core.Money `json:"total_expenses"`
	Savings       core.Money `json:"savings"`
}
