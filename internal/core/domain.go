package core

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	PeriodMonthly BudgetPeriod = "monthly"
	PeriodWeekly  BudgetPeriod = "weekly"
)

const (
	KindExpense TransactionKind = "expense"
	KindIncome  TransactionKind = "income"
)

type (
	// BudgetPeriod is the recurrence of a budget limit.
	BudgetPeriod string

	// TransactionKind distinguishes money going out from money coming in.
	TransactionKind string

	Date struct {
		time.Time
	}

	// DateRange is an inclusive pair of calendar dates.
	DateRange struct {
		Start Date
		End   Date
	}

	// Expense is a recorded outgoing amount. Immutable once created.
	Expense struct {
		ID       int64  `json:"id,omitempty"`
		Date     Date   `json:"date"`
		Category string `json:"category"`
		Amount   Money  `json:"amount"`
		Notes    string `json:"notes,omitempty"`
	}

	// Income is a recorded incoming amount. Immutable once created.
	Income struct {
		ID     int64  `json:"id,omitempty"`
		Date   Date   `json:"date"`
		Source string `json:"source"`
		Amount Money  `json:"amount"`
		Notes  string `json:"notes,omitempty"`
	}

	// Budget is a spending limit for a category. Several rows may exist
	// for one category; the most recently inserted row is the current one.
	Budget struct {
		ID        int64        `json:"id,omitempty"`
		Category  string       `json:"category"`
		Limit     Money        `json:"limit_amount"`
		Period    BudgetPeriod `json:"period"`
		StartDate Date         `json:"start_date"`
	}

	// Transaction is a unified view over expenses and income used when
	// listing recent activity. For income rows the source is presented
	// as the category.
	Transaction struct {
		Date     Date            `json:"date"`
		Category string          `json:"category"`
		Amount   Money           `json:"amount"`
		Notes    string          `json:"notes,omitempty"`
		Kind     TransactionKind `json:"kind"`
	}
)

// NewDate creates a Date from year, month, day in UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO calendar date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// ISO renders the date as YYYY-MM-DD.
func (d Date) ISO() string {
	return d.Format("2006-01-02")
}

// YearMonth renders the YYYY-MM prefix used for month grouping.
func (d Date) YearMonth() string {
	return d.Format("2006-01")
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.ISO() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MonthRange returns the inclusive range covering one calendar month.
// Day zero of the following month normalizes to the last day of this
// one, which keeps leap years and December rollover correct.
func MonthRange(year int, month time.Month) DateRange {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
	return DateRange{Start: Date{Time: start}, End: Date{Time: end}}
}

func (e Expense) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Date, validation.By(dateSet)),
		validation.Field(&e.Category, validation.Required, validation.Length(1, 100)),
		validation.Field(&e.Amount, validation.By(amountPositive)),
		validation.Field(&e.Notes, validation.Length(0, 500)),
	)
}

func (i Income) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Date, validation.By(dateSet)),
		validation.Field(&i.Source, validation.Required, validation.Length(1, 100)),
		validation.Field(&i.Amount, validation.By(amountPositive)),
		validation.Field(&i.Notes, validation.Length(0, 500)),
	)
}

func (b Budget) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.Category, validation.Required, validation.Length(1, 100)),
		validation.Field(&b.Limit, validation.By(amountPositive)),
		validation.Field(&b.Period, validation.Required, validation.In(PeriodMonthly, PeriodWeekly)),
		validation.Field(&b.StartDate, validation.By(dateSet)),
	)
}

func dateSet(value interface{}) error {
	d, _ := value.(Date)
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func amountPositive(value interface{}) error {
	m, _ := value.(Money)
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}
