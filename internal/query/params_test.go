package query

import (
	"testing"
	"time"

	"fintrack/internal/core"
)

func fixedExtractor(year int, month time.Month, day int) *Extractor {
	return &Extractor{Now: func() time.Time {
		return time.Date(year, month, day, 10, 30, 0, 0, time.UTC)
	}}
}

func TestDetectLimit(t *testing.T) {
	e := NewExtractor()

	tests := []struct {
		text string
		want int
	}{
		{"top 5 expense categories", 5},
		{"last 10 transactions", 10},
		{"recent 3 purchases", 3},
		{"show me 25 things", 25},
		{"top expense categories", 0},
		{"how much did I save", 0},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := e.detectLimit(tt.text); got != tt.want {
				t.Errorf("detectLimit(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestDetectDateRange(t *testing.T) {
	tests := []struct {
		name      string
		extractor *Extractor
		text      string
		wantStart string
		wantEnd   string
	}{
		{
			name:      "this month",
			extractor: fixedExtractor(2025, time.June, 15),
			text:      "total expenses this month",
			wantStart: "2025-06-01",
			wantEnd:   "2025-06-30",
		},
		{
			name:      "last month",
			extractor: fixedExtractor(2025, time.June, 15),
			text:      "spending last month",
			wantStart: "2025-05-01",
			wantEnd:   "2025-05-31",
		},
		{
			name:      "last month january rollover",
			extractor: fixedExtractor(2025, time.January, 5),
			text:      "expenses last month",
			wantStart: "2024-12-01",
			wantEnd:   "2024-12-31",
		},
		{
			name:      "explicit year month",
			extractor: fixedExtractor(2025, time.June, 15),
			text:      "expenses in 2024-11",
			wantStart: "2024-11-01",
			wantEnd:   "2024-11-30",
		},
		{
			name:      "leap february",
			extractor: fixedExtractor(2025, time.June, 15),
			text:      "total for 2024-02",
			wantStart: "2024-02-01",
			wantEnd:   "2024-02-29",
		},
		{
			name:      "in month name with year",
			extractor: fixedExtractor(2025, time.June, 15),
			text:      "expenses in March 2024",
			wantStart: "2024-03-01",
			wantEnd:   "2024-03-31",
		},
		{
			name:      "in month name defaults to current year",
			extractor: fixedExtractor(2025, time.June, 15),
			text:      "what did I spend in august",
			wantStart: "2025-08-01",
			wantEnd:   "2025-08-31",
		},
		{
			name:      "abbreviated month name",
			extractor: fixedExtractor(2025, time.June, 15),
			text:      "spending in Dec 2024",
			wantStart: "2024-12-01",
			wantEnd:   "2024-12-31",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := tt.extractor.detectDateRange(tt.text)
			if rng == nil {
				t.Fatalf("detectDateRange(%q) = nil, want range", tt.text)
			}
			if rng.Start.ISO() != tt.wantStart || rng.End.ISO() != tt.wantEnd {
				t.Errorf("detectDateRange(%q) = [%s, %s], want [%s, %s]",
					tt.text, rng.Start.ISO(), rng.End.ISO(), tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestDetectDateRangeAbsent(t *testing.T) {
	e := fixedExtractor(2025, time.June, 15)

	for _, text := range []string{
		"top 5 expense categories",
		"expenses in 2025-13", // invalid month
		"spending in Floptober",
	} {
		if rng := e.detectDateRange(text); rng != nil {
			t.Errorf("detectDateRange(%q) = [%s, %s], want nil",
				text, rng.Start.ISO(), rng.End.ISO())
		}
	}
}

func TestDetectDateRangePriority(t *testing.T) {
	// "this month" outranks an explicit year-month in the same text.
	e := fixedExtractor(2025, time.June, 15)
	rng := e.detectDateRange("this month vs 2024-01")
	if rng == nil || rng.Start.ISO() != "2025-06-01" {
		t.Errorf("range = %+v, want this month to win", rng)
	}
}

func TestDetectCategory(t *testing.T) {
	e := NewExtractor()

	tests := []struct {
		text string
		want string
	}{
		{"how much on food this month", "Food"},
		{"TRANSPORT spending", "Transport"},
		{"rent for june", "Rent"},
		{"my travel budget", "Travel"},
		{"foodie adventures", ""}, // whole word only
		{"top 5 categories", ""},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := e.detectCategory(tt.text); got != tt.want {
				t.Errorf("detectCategory(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestDetectKind(t *testing.T) {
	e := NewExtractor()

	tests := []struct {
		text string
		want core.TransactionKind
	}{
		{"monthly income summary", core.KindIncome},
		{"salary received", core.KindIncome},
		{"what did I spend", core.KindExpense},
		{"recent purchases", core.KindExpense},
		{"income vs spending", core.KindIncome}, // income words win
		{"budget status", ""},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := e.detectKind(tt.text); got != tt.want {
				t.Errorf("detectKind(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtract(t *testing.T) {
	e := fixedExtractor(2025, time.June, 15)

	p := e.Extract("top 3 food expenses this month")
	if p.Limit != 3 {
		t.Errorf("Limit = %d, want 3", p.Limit)
	}
	if p.Category != "Food" {
		t.Errorf("Category = %q, want Food", p.Category)
	}
	if p.Kind != core.KindExpense {
		t.Errorf("Kind = %q, want expense", p.Kind)
	}
	if p.DateRange == nil || p.DateRange.Start.ISO() != "2025-06-01" {
		t.Errorf("DateRange = %+v, want June 2025", p.DateRange)
	}
}
