package finance

import "github.com/triumph135/protrack-sub000/internal/model"

// BudgetStatus classifies spend against a category budget
type BudgetStatus string

const (
	BudgetStatusNoBudget BudgetStatus = "no_budget"
	BudgetStatusOver     BudgetStatus = "over"
	BudgetStatusWarning  BudgetStatus = "warning"
	BudgetStatusOnTrack  BudgetStatus = "on_track"
)

// BudgetVariance compares actual spend against the budget ceiling for one
// category. Variance is budget minus actual: positive means under budget.
type BudgetVariance struct {
	Actual      float64      `json:"actual"`
	Budget      float64      `json:"budget"`
	Variance    float64      `json:"variance"`
	PercentUsed float64      `json:"percent_used"`
	Status      BudgetStatus `json:"status"`
}

// Variance computes the spend-vs-budget comparison for one category.
// Spending against a zero budget is its own state, distinct from over
// budget. The percent-used division is guarded so a zero budget yields 0.
func Variance(actual, budget float64) BudgetVariance {
	v := BudgetVariance{
		Actual:   actual,
		Budget:   budget,
		Variance: budget - actual,
	}

	if budget > 0 {
		v.PercentUsed = actual / budget * 100
	}

	switch {
	case budget == 0 && actual > 0:
		v.Status = BudgetStatusNoBudget
	case v.PercentUsed >= 100:
		v.Status = BudgetStatusOver
	case v.PercentUsed >= 80:
		v.Status = BudgetStatusWarning
	default:
		v.Status = BudgetStatusOnTrack
	}

	return v
}

// VarianceReport builds the per-category comparison of aggregated actuals
// against the stored project budget.
func VarianceReport(summary CostSummary, budget *model.ProjectBudget) map[model.CostCategory]BudgetVariance {
	report := make(map[model.CostCategory]BudgetVariance, len(model.AllCostCategories))
	for _, category := range model.AllCostCategories {
		var ceiling float64
		if budget != nil {
			ceiling = budget.ForCategory(category)
		}
		report[category] = Variance(summary.Totals[category], ceiling)
	}
	return report
}
