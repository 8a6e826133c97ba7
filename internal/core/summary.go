package core

// CategoryTotal is a per-category expense sum.
type CategoryTotal struct {
	Category string `json:"category"`
	Total    Money  `json:"total"`
}

// MonthTotal is a per-month sum keyed by the YYYY-MM prefix.
type MonthTotal struct {
	Month string `json:"month"`
	Total Money  `json:"total"`
}

// MonthFlow pairs income and expense activity for one month. A month
// appears when either side has activity; the missing side is zero.
type MonthFlow struct {
	Month   string `json:"month"`
	Income  Money  `json:"income"`
	Expense Money  `json:"expense"`
	Savings Money  `json:"savings"`
}

// BudgetActual compares a budget limit against actual spending.
type BudgetActual struct {
	Category  string `json:"category"`
	Budget    Money  `json:"budget"`
	Spent     Money  `json:"spent"`
	Remaining Money  `json:"remaining"`
}

// DateTotal is a per-day expense sum used for trend output.
type DateTotal struct {
	Date  Date  `json:"date"`
	Total Money `json:"total"`
}
