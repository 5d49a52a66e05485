package finance

import (
	"fmt"
	"strconv"

	"github.com/triumph135/protrack-sub000/internal/model"
)

// CostSummary holds per-category cost totals and row counts for one project
// scope. Every known category is always present, zero-valued when no rows
// fall in it.
type CostSummary struct {
	Totals map[model.CostCategory]float64 `json:"totals"`
	Counts map[model.CostCategory]int     `json:"counts"`
}

// NewCostSummary returns an empty summary with all categories at zero
func NewCostSummary() CostSummary {
	summary := CostSummary{
		Totals: make(map[model.CostCategory]float64, len(model.AllCostCategories)),
		Counts: make(map[model.CostCategory]int, len(model.AllCostCategories)),
	}
	for _, category := range model.AllCostCategories {
		summary.Totals[category] = 0
		summary.Counts[category] = 0
	}
	return summary
}

// GrandTotal sums the totals across every category
func (s CostSummary) GrandTotal() float64 {
	var total float64
	for _, amount := range s.Totals {
		total += amount
	}
	return total
}

// AggregateCosts groups cost rows into per-category totals and counts.
// Labor rows contribute their derived line total, every other category its
// stored cost. Amounts are passed through unmodified, negatives included.
func AggregateCosts(costs []model.ProjectCost) CostSummary {
	summary := NewCostSummary()
	for i := range costs {
		cost := &costs[i]
		summary.Totals[cost.Category] += cost.LineTotal()
		summary.Counts[cost.Category]++
	}
	return summary
}

// ChangeOrderScope selects which slice of a project's rows to include:
// everything, base-contract rows only, or rows tied to one change order.
type ChangeOrderScope struct {
	All  bool
	Base bool
	ID   uint
}

// ScopeAll includes every row regardless of change order
func ScopeAll() ChangeOrderScope {
	return ChangeOrderScope{All: true}
}

// ScopeBase includes only rows with no change order reference
func ScopeBase() ChangeOrderScope {
	return ChangeOrderScope{Base: true}
}

// ScopeChangeOrder includes only rows tied to the given change order
func ScopeChangeOrder(id uint) ChangeOrderScope {
	return ChangeOrderScope{ID: id}
}

// ParseChangeOrderScope interprets the change_order_id query value: empty
// or "all" means unfiltered, "base" means base contract only, anything else
// must be a change order ID.
func ParseChangeOrderScope(raw string) (ChangeOrderScope, error) {
	switch raw {
	case "", "all":
		return ScopeAll(), nil
	case "base":
		return ScopeBase(), nil
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return ChangeOrderScope{}, fmt.Errorf("invalid change order filter %q", raw)
	}
	return ScopeChangeOrder(uint(id)), nil
}

// Matches reports whether a row with the given change order reference falls
// inside the scope.
func (s ChangeOrderScope) Matches(changeOrderID *uint) bool {
	switch {
	case s.All:
		return true
	case s.Base:
		return changeOrderID == nil
	default:
		return changeOrderID != nil && *changeOrderID == s.ID
	}
}

// FilterByChangeOrder returns the cost rows that fall inside the scope
func FilterByChangeOrder(costs []model.ProjectCost, scope ChangeOrderScope) []model.ProjectCost {
	if scope.All {
		return costs
	}
	filtered := make([]model.ProjectCost, 0, len(costs))
	for _, cost := range costs {
		if scope.Matches(cost.ChangeOrderID) {
			filtered = append(filtered, cost)
		}
	}
	return filtered
}

// FilterInvoicesByChangeOrder returns the invoice rows that fall inside the scope
func FilterInvoicesByChangeOrder(invoices []model.CustomerInvoice, scope ChangeOrderScope) []model.CustomerInvoice {
	if scope.All {
		return invoices
	}
	filtered := make([]model.CustomerInvoice, 0, len(invoices))
	for _, invoice := range invoices {
		if scope.Matches(invoice.ChangeOrderID) {
			filtered = append(filtered, invoice)
		}
	}
	return filtered
}
