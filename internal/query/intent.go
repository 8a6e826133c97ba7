package query

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Intent is the closed category of question a query belongs to.
type Intent string

const (
	IntentTopExpenseCategories  Intent = "top_expense_categories"
	IntentMonthlyExpenseSummary Intent = "monthly_expense_summary"
	IntentIncomeVsExpense       Intent = "income_vs_expense_savings"
	IntentBudgetVsActual        Intent = "budget_vs_actual"
	IntentRecentTransactions    Intent = "recent_transactions"
	IntentSavingsSummary        Intent = "savings_summary"
	IntentExpenseBreakdown      Intent = "expense_breakdown"
	IntentMonthlyIncomeSummary  Intent = "monthly_income_summary"
	IntentCompareMonthly        Intent = "compare_monthly_expenses"
	IntentPredictExpenses       Intent = "predict_future_expenses"
	IntentUnknown               Intent = "unknown"
)

// Intents returns every dispatchable intent in catalog order. The
// order matters: similarity ties break toward the earlier entry.
func Intents() []Intent {
	return []Intent{
		IntentTopExpenseCategories,
		IntentMonthlyExpenseSummary,
		IntentIncomeVsExpense,
		IntentBudgetVsActual,
		IntentRecentTransactions,
		IntentSavingsSummary,
		IntentExpenseBreakdown,
		IntentMonthlyIncomeSummary,
		IntentCompareMonthly,
		IntentPredictExpenses,
	}
}

// IntentDef pairs an intent with the natural-language description the
// similarity classifier embeds and ranks against.
type IntentDef struct {
	Name        Intent `yaml:"name"`
	Description string `yaml:"desc"`
}

//go:embed intents.yaml
var embeddedCatalog []byte

// DefaultCatalog returns the built-in intent catalog.
func DefaultCatalog() []IntentDef {
	defs, err := ParseCatalog(embeddedCatalog)
	if err != nil {
		// The embedded catalog is fixed at build time; a parse failure
		// here is a programming error.
		panic(fmt.Sprintf("embedded intent catalog: %v", err))
	}
	return defs
}

// ParseCatalog decodes a YAML intent catalog and rejects entries whose
// name is not part of the closed intent set.
func ParseCatalog(data []byte) ([]IntentDef, error) {
	var doc struct {
		Intents []IntentDef `yaml:"intents"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode intent catalog: %w", err)
	}
	if len(doc.Intents) == 0 {
		return nil, fmt.Errorf("intent catalog is empty")
	}

	known := make(map[Intent]bool, len(Intents()))
	for _, it := range Intents() {
		known[it] = true
	}
	for _, def := range doc.Intents {
		if !known[def.Name] {
			return nil, fmt.Errorf("intent catalog names unknown intent %q", def.Name)
		}
		if def.Description == "" {
			return nil, fmt.Errorf("intent %q has no description", def.Name)
		}
	}
	return doc.Intents, nil
}

// LoadCatalogFile reads an intent catalog override from disk.
func LoadCatalogFile(path string) ([]IntentDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read intent catalog: %w", err)
	}
	return ParseCatalog(data)
}
