package query

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
)

// Params holds the structured parameters pulled out of free query
// text. Absent signals are zero values, never errors.
type Params struct {
	Limit     int                  `json:"limit"`
	DateRange *core.DateRange      `json:"date_range,omitempty"`
	Category  string               `json:"category,omitempty"`
	Kind      core.TransactionKind `json:"type,omitempty"`
}

// KnownCategories is the closed vocabulary matched during category
// detection. Matches are reported with the label capitalized.
var KnownCategories = []string{"food", "transport", "shopping", "rent", "travel", "bills", "other"}

var (
	limitPattern     = regexp.MustCompile(`(?i)(top|last|recent)?\s*(\d{1,3})`)
	yearMonthPattern = regexp.MustCompile(`\b(\d{4})-(0[1-9]|1[0-2])\b`)
	inMonthPattern   = regexp.MustCompile(`(?i)in\s+([A-Za-z]+)(?:\s+(\d{4}))?`)

	categoryPatterns = func() map[string]*regexp.Regexp {
		m := make(map[string]*regexp.Regexp, len(KnownCategories))
		for _, cat := range KnownCategories {
			m[cat] = regexp.MustCompile(`(?i)\b` + cat + `\b`)
		}
		return m
	}()

	incomeWords  = []string{"income", "salary", "earned"}
	expenseWords = []string{"expense", "spent", "spending", "purchase"}
)

// Extractor pulls Params out of raw query text with pattern rules.
// The clock is injectable so relative phrases ("this month") resolve
// deterministically under test.
type Extractor struct {
	Now func() time.Time
}

func NewExtractor() *Extractor {
	return &Extractor{Now: time.Now}
}

// Extract never fails; each detector independently yields its zero
// value when the text carries no signal.
func (e *Extractor) Extract(text string) Params {
	return Params{
		Limit:     e.detectLimit(text),
		DateRange: e.detectDateRange(text),
		Category:  e.detectCategory(text),
		Kind:      e.detectKind(text),
	}
}

// detectLimit finds a small integer, optionally preceded by a
// qualifier word. Zero means no limit was present.
func (e *Extractor) detectLimit(text string) int {
	m := limitPattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return 0
	}
	return n
}

// detectDateRange tries the supported date phrases in priority order;
// the first hit wins. Unparseable month names yield no range.
func (e *Extractor) detectDateRange(text string) *core.DateRange {
	q := strings.ToLower(text)
	now := e.Now().UTC()

	if strings.Contains(q, "this month") {
		rng := core.MonthRange(now.Year(), now.Month())
		return &rng
	}
	if strings.Contains(q, "last month") {
		// First of this month minus a day lands in the previous
		// month, including the January rollover into last year.
		lastOfPrev := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
		rng := core.MonthRange(lastOfPrev.Year(), lastOfPrev.Month())
		return &rng
	}

	if m := yearMonthPattern.FindStringSubmatch(text); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		rng := core.MonthRange(year, time.Month(month))
		return &rng
	}

	if m := inMonthPattern.FindStringSubmatch(text); m != nil {
		year := now.Year()
		if m[2] != "" {
			year, _ = strconv.Atoi(m[2])
		}
		month, ok := parseMonthName(m[1])
		if !ok {
			return nil
		}
		rng := core.MonthRange(year, month)
		return &rng
	}

	return nil
}

// parseMonthName accepts full and abbreviated month names in any case.
func parseMonthName(name string) (time.Month, bool) {
	if name == "" {
		return 0, false
	}
	normalized := strings.ToUpper(name[:1]) + strings.ToLower(name[1:])
	if t, err := time.Parse("January", normalized); err == nil {
		return t.Month(), true
	}
	if t, err := time.Parse("Jan", normalized); err == nil {
		return t.Month(), true
	}
	return 0, false
}

// detectCategory matches the closed vocabulary as whole words,
// case-insensitive; the first vocabulary entry that matches wins.
func (e *Extractor) detectCategory(text string) string {
	for _, cat := range KnownCategories {
		if categoryPatterns[cat].MatchString(text) {
			return strings.ToUpper(cat[:1]) + cat[1:]
		}
	}
	return ""
}

// detectKind is a keyword presence test; income words are checked
// before expense words, so "income" beats "spent" in the same query.
func (e *Extractor) detectKind(text string) core.TransactionKind {
	q := strings.ToLower(text)
	for _, w := range incomeWords {
		if strings.Contains(q, w) {
			return core.KindIncome
		}
	}
	for _, w := range expenseWords {
		if strings.Contains(q, w) {
			return core.KindExpense
		}
	}
	return ""
}
