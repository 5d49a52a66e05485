package finance

import "github.com/shopspring/decimal"

// FormatCurrency renders an amount with two decimal places for display.
// Calculations stay full precision; only the rendered string is rounded.
func FormatCurrency(amount float64) string {
	return decimal.NewFromFloat(amount).StringFixed(2)
}

// FormatPercent renders a percentage with one decimal place for display
func FormatPercent(percent float64) string {
	return decimal.NewFromFloat(percent).StringFixed(1)
}
