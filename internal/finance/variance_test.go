package finance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/triumph135/protrack-sub000/internal/model"
)

func TestVariance(t *testing.T) {
	tests := []struct {
		name        string
		actual      float64
		budget      float64
		variance    float64
		percentUsed float64
		status      BudgetStatus
	}{
		{
			name:   "under budget on track",
			actual: 500, budget: 1000,
			variance: 500, percentUsed: 50,
			status: BudgetStatusOnTrack,
		},
		{
			name:   "warning at eighty percent",
			actual: 800, budget: 1000,
			variance: 200, percentUsed: 80,
			status: BudgetStatusWarning,
		},
		{
			name:   "over at exactly one hundred percent",
			actual: 1000, budget: 1000,
			variance: 0, percentUsed: 100,
			status: BudgetStatusOver,
		},
		{
			name:   "over budget negative variance",
			actual: 1200, budget: 1000,
			variance: -200, percentUsed: 120,
			status: BudgetStatusOver,
		},
		{
			name:   "spend with no budget set",
			actual: 300, budget: 0,
			variance: -300, percentUsed: 0,
			status: BudgetStatusNoBudget,
		},
		{
			name:   "no budget no spend",
			actual: 0, budget: 0,
			variance: 0, percentUsed: 0,
			status: BudgetStatusOnTrack,
		},
		{
			name:   "just below warning threshold",
			actual: 799.99, budget: 1000,
			variance: 200.01, percentUsed: 79.999,
			status: BudgetStatusOnTrack,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Variance(tt.actual, tt.budget)
			assert.InDelta(t, tt.variance, v.Variance, 1e-9)
			assert.InDelta(t, tt.percentUsed, v.PercentUsed, 1e-9)
			assert.Equal(t, tt.status, v.Status)
		})
	}
}

func TestVarianceZeroBudgetGuard(t *testing.T) {
	v := Variance(250, 0)

	assert.Equal(t, 0.0, v.PercentUsed)
	assert.False(t, math.IsNaN(v.PercentUsed))
	assert.False(t, math.IsInf(v.PercentUsed, 0))
}

func TestVarianceReport(t *testing.T) {
	summary := AggregateCosts([]model.ProjectCost{
		{Category: model.CategoryMaterial, Cost: 900},
		{Category: model.CategoryLabor, STHours: 10, STRate: 20},
		{Category: model.CategoryConsumable, Cost: 50},
	})
	budget := &model.ProjectBudget{
		Material: 1000,
		Labor:    100,
	}

	report := VarianceReport(summary, budget)
	assert.Len(t, report, len(model.AllCostCategories))

	material := report[model.CategoryMaterial]
	assert.Equal(t, BudgetStatusWarning, material.Status)
	assert.Equal(t, 100.0, material.Variance)

	labor := report[model.CategoryLabor]
	assert.Equal(t, BudgetStatusOver, labor.Status)
	assert.Equal(t, -100.0, labor.Variance)

	consumable := report[model.CategoryConsumable]
	assert.Equal(t, BudgetStatusNoBudget, consumable.Status)

	equipment := report[model.CategoryEquipment]
	assert.Equal(t, BudgetStatusOnTrack, equipment.Status)
}

func TestVarianceReportNilBudget(t *testing.T) {
	summary := AggregateCosts([]model.ProjectCost{
		{Category: model.CategoryMaterial, Cost: 100},
	})

	report := VarianceReport(summary, nil)

	assert.Equal(t, BudgetStatusNoBudget, report[model.CategoryMaterial].Status)
	assert.Equal(t, BudgetStatusOnTrack, report[model.CategoryLabor].Status)
}
