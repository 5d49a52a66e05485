package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/triumph135/protrack-sub000/internal/finance"
	"github.com/triumph135/protrack-sub000/internal/model"
	"github.com/triumph135/protrack-sub000/pkg/database"
	"github.com/triumph135/protrack-sub000/pkg/logger"
	"github.com/triumph135/protrack-sub000/prometheus"
)

// GetProjectFinancials computes the financial snapshot of a project. The
// change_order_id filter narrows costs and invoices, while the contract
// value always includes every change order.
func GetProjectFinancials(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordEntityOperation("financials", "get")

	projectID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		log.Error("Invalid project ID", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid project ID"})
	}

	tenantID, ok := c.Get("tenant_id").(uint)
	if !ok {
		log.Error("Failed to get tenant ID from context")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant context required"})
	}

	var project model.Project
	if result := database.GetDB().Where("id = ? AND tenant_id = ?", projectID, tenantID).First(&project); result.Error != nil {
		log.Error("Project not found or does not belong to tenant",
			zap.Uint64("project_id", projectID),
			zap.Uint("tenant_id", tenantID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "project not found"})
	}

	scope, err := finance.ParseChangeOrderScope(c.QueryParam("change_order_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var changeOrders []model.ChangeOrder
	if result := database.GetDB().Where("project_id = ? AND tenant_id = ?", projectID, tenantID).Find(&changeOrders); result.Error != nil {
		log.Error("Failed to load change orders",
			zap.Uint64("project_id", projectID),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load financials"})
	}

	costQuery := database.GetDB().Where("project_id = ? AND tenant_id = ?", projectID, tenantID)
	costQuery = applyChangeOrderScope(costQuery, scope)
	var costs []model.ProjectCost
	if result := costQuery.Find(&costs); result.Error != nil {
		log.Error("Failed to load costs",
			zap.Uint64("project_id", projectID),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load financials"})
	}

	invoiceQuery := database.GetDB().Where("project_id = ? AND tenant_id = ?", projectID, tenantID)
	invoiceQuery = applyChangeOrderScope(invoiceQuery, scope)
	var invoices []model.CustomerInvoice
	if result := invoiceQuery.Find(&invoices); result.Error != nil {
		log.Error("Failed to load invoices",
			zap.Uint64("project_id", projectID),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load financials"})
	}

	metrics := finance.ProjectFinancials(project.ContractValue, changeOrders, costs, invoices)
	summary := finance.AggregateCosts(costs)

	log.Info("Project financials computed",
		zap.Uint64("project_id", projectID),
		zap.Float64("total_contract_value", metrics.TotalContractValue),
		zap.Float64("gross_profit", metrics.GrossProfit),
		zap.Uint("tenant_id", tenantID))

	return c.JSON(http.StatusOK, echo.Map{
		"project_id": project.ID,
		"job_number": project.JobNumber,
		"metrics":    metrics,
		"summary": echo.Map{
			"totals": summary.Totals,
			"counts": summary.Counts,
		},
		"display": echo.Map{
			"base_contract_value":     finance.FormatCurrency(metrics.BaseContractValue),
			"change_order_value":      finance.FormatCurrency(metrics.ChangeOrderValue),
			"total_contract_value":    finance.FormatCurrency(metrics.TotalContractValue),
			"total_project_costs":     finance.FormatCurrency(metrics.TotalProjectCosts),
			"total_invoiced_amount":   finance.FormatCurrency(metrics.TotalInvoicedAmount),
			"amount_yet_to_bill":      finance.FormatCurrency(metrics.AmountYetToBill),
			"gross_profit":            finance.FormatCurrency(metrics.GrossProfit),
			"gross_profit_percentage": finance.FormatPercent(metrics.GrossProfitPercentage),
		},
	})
}
