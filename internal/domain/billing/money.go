package billing

import "github.com/shopspring/decimal"

// Round2 rounds a currency value to two decimal places.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// FormatFixed2 renders v with exactly two decimals, e.g. 70 -> "70.00".
func FormatFixed2(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
