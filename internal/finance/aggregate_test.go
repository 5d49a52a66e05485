package finance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/triumph135/protrack-sub000/internal/model"
)

func uintPtr(v uint) *uint {
	return &v
}

func TestAggregateCosts(t *testing.T) {
	costs := []model.ProjectCost{
		{Category: model.CategoryMaterial, Cost: 100},
		{Category: model.CategoryMaterial, Cost: 50},
		{
			Category: model.CategoryLabor,
			STHours:  8, STRate: 25,
			OTHours: 2, OTRate: 37.5,
			PerDiem: 20,
		},
	}

	summary := AggregateCosts(costs)

	assert.Equal(t, 150.0, summary.Totals[model.CategoryMaterial])
	assert.Equal(t, 295.0, summary.Totals[model.CategoryLabor])
	assert.Equal(t, 2, summary.Counts[model.CategoryMaterial])
	assert.Equal(t, 1, summary.Counts[model.CategoryLabor])
}

func TestAggregateCostsEmptyInput(t *testing.T) {
	summary := AggregateCosts(nil)

	// Every category must be present with zeros, not absent
	assert.Len(t, summary.Totals, len(model.AllCostCategories))
	assert.Len(t, summary.Counts, len(model.AllCostCategories))
	for _, category := range model.AllCostCategories {
		total, ok := summary.Totals[category]
		assert.True(t, ok, "missing total for %s", category)
		assert.Zero(t, total)
		count, ok := summary.Counts[category]
		assert.True(t, ok, "missing count for %s", category)
		assert.Zero(t, count)
	}
}

func TestAggregateCostsNegativePassthrough(t *testing.T) {
	costs := []model.ProjectCost{
		{Category: model.CategoryEquipment, Cost: 500},
		{Category: model.CategoryEquipment, Cost: -200},
	}

	summary := AggregateCosts(costs)
	assert.Equal(t, 300.0, summary.Totals[model.CategoryEquipment])
	assert.Equal(t, 2, summary.Counts[model.CategoryEquipment])
}

func TestAggregateCostsLaborIgnoresStoredCost(t *testing.T) {
	// A stale cached cost must not leak into totals
	costs := []model.ProjectCost{
		{Category: model.CategoryLabor, Cost: 12345, STHours: 10, STRate: 30},
	}

	summary := AggregateCosts(costs)
	assert.Equal(t, 300.0, summary.Totals[model.CategoryLabor])
}

func TestCostSummaryGrandTotal(t *testing.T) {
	costs := []model.ProjectCost{
		{Category: model.CategoryMaterial, Cost: 100},
		{Category: model.CategoryConsumable, Cost: 25},
		{Category: model.CategoryCapLeases, Cost: 75},
	}

	assert.Equal(t, 200.0, AggregateCosts(costs).GrandTotal())
}

func TestParseChangeOrderScope(t *testing.T) {
	scope, err := ParseChangeOrderScope("")
	assert.NoError(t, err)
	assert.True(t, scope.All)

	scope, err = ParseChangeOrderScope("all")
	assert.NoError(t, err)
	assert.True(t, scope.All)

	scope, err = ParseChangeOrderScope("base")
	assert.NoError(t, err)
	assert.True(t, scope.Base)

	scope, err = ParseChangeOrderScope("42")
	assert.NoError(t, err)
	assert.Equal(t, uint(42), scope.ID)
	assert.False(t, scope.All)
	assert.False(t, scope.Base)

	_, err = ParseChangeOrderScope("not-a-number")
	assert.Error(t, err)
}

func TestFilterByChangeOrder(t *testing.T) {
	costs := []model.ProjectCost{
		{ID: 1, Category: model.CategoryMaterial, ChangeOrderID: nil},
		{ID: 2, Category: model.CategoryMaterial, ChangeOrderID: uintPtr(7)},
		{ID: 3, Category: model.CategoryLabor, ChangeOrderID: uintPtr(7)},
		{ID: 4, Category: model.CategoryLabor, ChangeOrderID: uintPtr(9)},
	}

	all := FilterByChangeOrder(costs, ScopeAll())
	assert.Len(t, all, 4)

	base := FilterByChangeOrder(costs, ScopeBase())
	assert.Len(t, base, 1)
	assert.Equal(t, uint(1), base[0].ID)

	co7 := FilterByChangeOrder(costs, ScopeChangeOrder(7))
	assert.Len(t, co7, 2)
	assert.Equal(t, uint(2), co7[0].ID)
	assert.Equal(t, uint(3), co7[1].ID)
}

func TestFilterInvoicesByChangeOrder(t *testing.T) {
	invoices := []model.CustomerInvoice{
		{ID: 1, Amount: 100, ChangeOrderID: nil},
		{ID: 2, Amount: 200, ChangeOrderID: uintPtr(3)},
	}

	base := FilterInvoicesByChangeOrder(invoices, ScopeBase())
	assert.Len(t, base, 1)
	assert.Equal(t, uint(1), base[0].ID)

	co3 := FilterInvoicesByChangeOrder(invoices, ScopeChangeOrder(3))
	assert.Len(t, co3, 1)
	assert.Equal(t, uint(2), co3[0].ID)
}
