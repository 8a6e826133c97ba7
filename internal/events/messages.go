package events

import (
	"encoding/json"
	"time"
)

// Routing keys for the finance events queue.
const (
	TypeTransactionRecorded = "transaction_recorded"
	TypeBudgetAlert         = "budget_alert"
)

// TransactionRecorded announces a newly stored expense or income row.
// Consumers fetch the full record from the database by ID.
type TransactionRecorded struct {
	Type      string    `json:"type"`
	Kind      string    `json:"kind"`
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionRecorded(kind string, id int64) *TransactionRecorded {
	return &TransactionRecorded{
		Type:      TypeTransactionRecorded,
		Kind:      kind,
		ID:        id,
		Timestamp: time.Now(),
	}
}

func (m *TransactionRecorded) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionRecordedFromJSON(data []byte) (*TransactionRecorded, error) {
	var msg TransactionRecorded
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// BudgetAlert is raised when month-to-date spending in a category
// crosses the warning threshold of its monthly budget.
type BudgetAlert struct {
	Type      string    `json:"type"`
	Category  string    `json:"category"`
	Month     string    `json:"month"`
	Budget    float64   `json:"budget"`
	Spent     float64   `json:"spent"`
	UsagePct  float64   `json:"usage_pct"`
	Timestamp time.Time `json:"timestamp"`
}

func NewBudgetAlert(category, month string, budget, spent, usagePct float64) *BudgetAlert {
	return &BudgetAlert{
		Type:      TypeBudgetAlert,
		Category:  category,
		Month:     month,
		Budget:    budget,
		Spent:     spent,
		UsagePct:  usagePct,
		Timestamp: time.Now(),
	}
}

func (m *BudgetAlert) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BudgetAlertFromJSON(data []byte) (*BudgetAlert, error) {
	var msg BudgetAlert
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
