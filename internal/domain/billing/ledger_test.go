package billing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/milkman/internal/domain/models"
)

func TestSummarizeCustomer(t *testing.T) {
	entries := []models.DiaryEntry{
		entry("c1", "2023-12-30", 2, 120),
		entry("c1", "2024-03-05", 1.5, 90),
		entry("c2", "2024-03-05", 10, 600),
	}
	payments := []models.Payment{
		payment("c1", "2024-01-01", 100),
		payment("c2", "2024-01-01", 600),
	}

	ledger := SummarizeCustomer("c1", entries, payments)

	assert.Equal(t, "c1", ledger.CustomerID)
	assert.Equal(t, 3.5, ledger.TotalDeliveredLiters)
	assert.Equal(t, 210.0, ledger.TotalBilled)
	assert.Equal(t, 100.0, ledger.TotalPaid)
	assert.Equal(t, 110.0, ledger.Balance)
}

func TestSummarizeCustomer_Empty(t *testing.T) {
	ledger := SummarizeCustomer("c1", nil, nil)

	assert.Equal(t, models.CustomerLedger{CustomerID: "c1"}, ledger)
}

func TestDerivedUnitPrice(t *testing.T) {
	assert.Equal(t, 60.0, DerivedUnitPrice(models.DiaryEntry{Quantity: 2, Amount: 120}))
	assert.Equal(t, 0.0, DerivedUnitPrice(models.DiaryEntry{Quantity: 0, Amount: 120}))
	assert.Equal(t, 0.0, DerivedUnitPrice(models.DiaryEntry{Quantity: -1, Amount: 120}))
}

func TestApplyUnitPriceCorrection(t *testing.T) {
	e := models.DiaryEntry{Quantity: 1.5, Amount: 90}

	amount, err := ApplyUnitPriceCorrection(e, 62.333)
	require.NoError(t, err)
	assert.Equal(t, 93.5, amount)

	amount, err = ApplyUnitPriceCorrection(e, 55)
	require.NoError(t, err)
	assert.Equal(t, 82.5, amount)
}

func TestApplyUnitPriceCorrection_Rejects(t *testing.T) {
	e := models.DiaryEntry{Quantity: 2, Amount: 120}

	for _, price := range []float64{0, -10, math.NaN(), math.Inf(1)} {
		amount, err := ApplyUnitPriceCorrection(e, price)

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "pricePerUnit", verr.Field)
		assert.Equal(t, 120.0, amount)
	}
	assert.Equal(t, 120.0, e.Amount)
}
