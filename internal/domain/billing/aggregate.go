package billing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mamadbah2/milkman/internal/domain/models"
)

// UnknownCustomerName labels rows whose customer is missing from the snapshot.
const UnknownCustomerName = "Unknown"

// SortBy selects the ordering of a monthly breakdown.
type SortBy string

const (
	SortByAmount  SortBy = "amount"
	SortByName    SortBy = "name"
	SortByBalance SortBy = "balance"
)

// ParseSortBy maps a query value onto a SortBy. An empty value means SortByAmount.
func ParseSortBy(value string) (SortBy, error) {
	switch SortBy(strings.ToLower(strings.TrimSpace(value))) {
	case "", SortByAmount:
		return SortByAmount, nil
	case SortByName:
		return SortByName, nil
	case SortByBalance:
		return SortByBalance, nil
	default:
		return "", NewValidationError("sort", fmt.Sprintf("must be amount, name or balance, got %q", value))
	}
}

// SummarizeMonth aggregates the entries of month into totals and a per-customer
// breakdown. Customers who only paid during the month get a zero row so a balance can
// be attached to them. Rows are ordered by billed amount, highest first, ties keeping
// first-seen order.
func SummarizeMonth(customers []models.Customer, entries []models.DiaryEntry, payments []models.Payment, month string) models.MonthlySummary {
	names := make(map[string]string, len(customers))
	for _, c := range customers {
		names[c.ID] = c.Name
	}
	nameOf := func(customerID string) string {
		if name, ok := names[customerID]; ok && name != "" {
			return name
		}
		return UnknownCustomerName
	}

	summary := models.MonthlySummary{Month: month}

	index := make(map[string]int)
	rows := make([]models.CustomerMonthlyData, 0)

	for _, e := range entries {
		if !InMonth(e.Date, month) {
			continue
		}
		summary.TotalQuantity += e.Quantity
		summary.TotalRevenue += e.Amount
		summary.DeliveryCount++

		i, ok := index[e.CustomerID]
		if !ok {
			i = len(rows)
			index[e.CustomerID] = i
			rows = append(rows, models.CustomerMonthlyData{
				CustomerID:   e.CustomerID,
				CustomerName: nameOf(e.CustomerID),
			})
		}
		rows[i].TotalQuantity += e.Quantity
		rows[i].TotalAmount += e.Amount
		rows[i].DeliveryCount++
	}

	for _, p := range payments {
		if !InMonth(p.Date, month) {
			continue
		}
		if _, ok := index[p.CustomerID]; ok {
			continue
		}
		index[p.CustomerID] = len(rows)
		rows = append(rows, models.CustomerMonthlyData{
			CustomerID:   p.CustomerID,
			CustomerName: nameOf(p.CustomerID),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].TotalAmount > rows[j].TotalAmount
	})
	summary.CustomerBreakdown = rows

	return summary
}

// PaidInMonth sums the payments of one customer dated within month.
func PaidInMonth(customerID string, payments []models.Payment, month string) float64 {
	var paid float64
	for _, p := range payments {
		if p.CustomerID == customerID && InMonth(p.Date, month) {
			paid += p.Amount
		}
	}
	return paid
}

// BalanceForRow returns what the row's customer still owes for month. Negative values
// mean the customer overpaid and are returned as is.
func BalanceForRow(row models.CustomerMonthlyData, payments []models.Payment, month string) float64 {
	return row.TotalAmount - PaidInMonth(row.CustomerID, payments, month)
}

// SortBreakdown returns a reordered copy of rows. Name ordering ignores case; amount
// and balance order highest first. Ties keep their input order.
func SortBreakdown(rows []models.CustomerMonthlyData, by SortBy, payments []models.Payment, month string) []models.CustomerMonthlyData {
	out := make([]models.CustomerMonthlyData, len(rows))
	copy(out, rows)

	switch by {
	case SortByName:
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].CustomerName) < strings.ToLower(out[j].CustomerName)
		})
	case SortByBalance:
		balances := make(map[string]float64, len(out))
		for _, row := range out {
			balances[row.CustomerID] = BalanceForRow(row, payments, month)
		}
		sort.SliceStable(out, func(i, j int) bool {
			return balances[out[i].CustomerID] > balances[out[j].CustomerID]
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].TotalAmount > out[j].TotalAmount
		})
	}

	return out
}
