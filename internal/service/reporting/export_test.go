package reporting

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mamadbah2/milkman/internal/domain/models"
	"github.com/mamadbah2/milkman/internal/repository/memory"
)

type recordingSheet struct {
	sheetRange string
	rows       [][]interface{}
	err        error
}

func (r *recordingSheet) AppendRows(_ context.Context, sheetRange string, rows [][]interface{}) error {
	r.sheetRange = sheetRange
	r.rows = append(r.rows, rows...)
	return r.err
}

func TestWriteCSV_Scenario(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, scenario(), "2024-03"))

	want := "Customer,Deliveries,Quantity (L),Billed (₹),Paid (₹),Balance (₹)\n" +
		"Ravi,1,2.00,120.00,50.00,70.00\n" +
		"\n" +
		"Total,1,2.00,120.00,,\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSV_EmptyMonth(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, scenario(), "2023-12"))

	want := "Customer,Deliveries,Quantity (L),Billed (₹),Paid (₹),Balance (₹)\n" +
		"\n" +
		"Total,0,0.00,0.00,,\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSV_QuotesNamesWithCommas(t *testing.T) {
	snap := scenario()
	snap.Customers[0].Name = "Ravi, Flat 2"

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, snap, "2024-03"))
	assert.Contains(t, buf.String(), "\"Ravi, Flat 2\",1,2.00,120.00,50.00,70.00\n")
}

func TestWriteCSV_PaymentOnlyCustomer(t *testing.T) {
	snap := scenario()
	snap.Payments = append(snap.Payments, models.Payment{ID: "p2", CustomerID: "c1", Amount: 30, Date: "2024-04-20"})

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, snap, "2024-04"))
	assert.Contains(t, buf.String(), "Ravi,1,1.00,60.00,30.00,30.00\n")
}

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "milkman-report-2024-03.csv", ExportFilename("2024-03", "csv"))
	assert.Equal(t, "milkman-report-2024-03.xlsx", ExportFilename("2024-03", "xlsx"))
}

func TestExportXLSX(t *testing.T) {
	svc, _ := newTestService(scenario())

	data, err := svc.ExportXLSX(context.Background(), "u1", "2024-03")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(f.GetSheetName(f.GetActiveSheetIndex()))
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 4)
	assert.Equal(t, exportHeader, rows[0])
	assert.Equal(t, "Ravi", rows[1][0])
	assert.Equal(t, "70", rows[1][5])
	assert.Equal(t, "Total", rows[3][0])
	assert.Equal(t, "120", rows[3][3])
}

func TestExportToSheet(t *testing.T) {
	sheet := &recordingSheet{}
	svc := NewService(staticSource{snap: scenario()}, memory.New(), sheet, time.UTC, nil)

	n, err := svc.ExportToSheet(context.Background(), "u1", "2024-03")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, SheetRange, sheet.sheetRange)
	require.Len(t, sheet.rows, 1)
	assert.Equal(t, []interface{}{"2024-03", "Ravi", 1, "2.00", "120.00", "50.00", "70.00"}, sheet.rows[0])
}

func TestExportToSheet_Disabled(t *testing.T) {
	svc, _ := newTestService(scenario())

	_, err := svc.ExportToSheet(context.Background(), "u1", "2024-03")
	assert.ErrorIs(t, err, ErrSheetsDisabled)
}

func TestExportToSheet_AppendFailure(t *testing.T) {
	sheet := &recordingSheet{err: errors.New("quota exceeded")}
	svc := NewService(staticSource{snap: scenario()}, memory.New(), sheet, time.UTC, nil)

	_, err := svc.ExportToSheet(context.Background(), "u1", "2024-03")
	assert.ErrorContains(t, err, "quota exceeded")
}
