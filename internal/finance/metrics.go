package finance

import "github.com/triumph135/protrack-sub000/internal/model"

// Metrics is the derived financial picture of one project
type Metrics struct {
	BaseContractValue     float64 `json:"base_contract_value"`
	ChangeOrderValue      float64 `json:"change_order_value"`
	TotalContractValue    float64 `json:"total_contract_value"`
	TotalProjectCosts     float64 `json:"total_project_costs"`
	TotalInvoicedAmount   float64 `json:"total_invoiced_amount"`
	AmountYetToBill       float64 `json:"amount_yet_to_bill"`
	GrossProfit           float64 `json:"gross_profit"`
	GrossProfitPercentage float64 `json:"gross_profit_percentage"`
}

// ProjectFinancials combines the base contract, change orders, cost rows and
// customer invoices of one project into its derived metrics. All values are
// full precision floats; rounding happens only at display formatting.
func ProjectFinancials(baseContract float64, changeOrders []model.ChangeOrder, costs []model.ProjectCost, invoices []model.CustomerInvoice) Metrics {
	m := Metrics{BaseContractValue: baseContract}

	for _, order := range changeOrders {
		m.ChangeOrderValue += order.AdditionalContractValue
	}
	m.TotalContractValue = baseContract + m.ChangeOrderValue

	m.TotalProjectCosts = AggregateCosts(costs).GrandTotal()

	for _, invoice := range invoices {
		m.TotalInvoicedAmount += invoice.Amount
	}

	m.AmountYetToBill = m.TotalContractValue - m.TotalInvoicedAmount
	m.GrossProfit = m.TotalContractValue - m.TotalProjectCosts

	// Guard the division so an empty contract yields 0, not NaN or Inf
	if m.TotalContractValue > 0 {
		m.GrossProfitPercentage = m.GrossProfit / m.TotalContractValue * 100
	}

	return m
}
