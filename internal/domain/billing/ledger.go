package billing

import (
	"math"

	"github.com/mamadbah2/milkman/internal/domain/models"
)

// SummarizeCustomer computes the lifetime ledger of one customer over every entry and
// payment regardless of date. Records of other customers are ignored.
func SummarizeCustomer(customerID string, entries []models.DiaryEntry, payments []models.Payment) models.CustomerLedger {
	ledger := models.CustomerLedger{CustomerID: customerID}

	for _, e := range entries {
		if e.CustomerID != customerID {
			continue
		}
		ledger.TotalDeliveredLiters += e.Quantity
		ledger.TotalBilled += e.Amount
	}
	for _, p := range payments {
		if p.CustomerID != customerID {
			continue
		}
		ledger.TotalPaid += p.Amount
	}
	ledger.Balance = ledger.TotalBilled - ledger.TotalPaid

	return ledger
}

// DerivedUnitPrice is the effective price per litre of an entry, or 0 when the
// quantity is not positive.
func DerivedUnitPrice(entry models.DiaryEntry) float64 {
	if entry.Quantity <= 0 {
		return 0
	}
	return entry.Amount / entry.Quantity
}

// ApplyUnitPriceCorrection returns the amount entry would carry at newUnitPrice,
// rounded to two decimals. On a non-positive price it returns the unchanged amount
// and a ValidationError.
func ApplyUnitPriceCorrection(entry models.DiaryEntry, newUnitPrice float64) (float64, error) {
	if math.IsNaN(newUnitPrice) || math.IsInf(newUnitPrice, 0) || newUnitPrice <= 0 {
		return entry.Amount, NewValidationError("pricePerUnit", "must be greater than 0")
	}
	if entry.Quantity <= 0 {
		return entry.Amount, NewValidationError("quantity", "must be greater than 0")
	}
	return Round2(entry.Quantity * newUnitPrice), nil
}
