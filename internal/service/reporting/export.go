package reporting

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/mamadbah2/milkman/internal/domain/billing"
	"github.com/mamadbah2/milkman/internal/domain/models"
)

// SheetRange is where monthly rows are appended in the configured spreadsheet.
const SheetRange = "Reports!A:G"

var exportHeader = []string{"Customer", "Deliveries", "Quantity (L)", "Billed (₹)", "Paid (₹)", "Balance (₹)"}

// ExportFilename names the downloaded report of month with the given extension.
func ExportFilename(month, ext string) string {
	return fmt.Sprintf("milkman-report-%s.%s", month, ext)
}

// WriteCSV renders the breakdown of month as CSV: a header, one row per customer,
// a blank line and a totals row.
func WriteCSV(w io.Writer, snap models.Snapshot, month string) error {
	if _, err := billing.ParseMonth(month); err != nil {
		return err
	}
	summary := billing.SummarizeMonth(snap.Customers, snap.Entries, snap.Payments, month)

	cw := csv.NewWriter(w)
	records := make([][]string, 0, len(summary.CustomerBreakdown)+3)
	records = append(records, exportHeader)
	for _, r := range summary.CustomerBreakdown {
		row := rowFor(r, snap.Payments, month)
		records = append(records, []string{
			r.CustomerName,
			strconv.Itoa(r.DeliveryCount),
			billing.FormatFixed2(r.TotalQuantity),
			billing.FormatFixed2(r.TotalAmount),
			billing.FormatFixed2(row.Paid),
			billing.FormatFixed2(row.Balance),
		})
	}
	records = append(records, []string{})
	records = append(records, []string{
		"Total",
		strconv.Itoa(summary.DeliveryCount),
		billing.FormatFixed2(summary.TotalQuantity),
		billing.FormatFixed2(summary.TotalRevenue),
		"",
		"",
	})

	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// ExportCSV returns the CSV report of month for userID.
func (s *Service) ExportCSV(ctx context.Context, userID, month string) ([]byte, error) {
	snap, err := s.source.Snapshot(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, snap, month); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportXLSX returns the same rows as ExportCSV in a single-sheet workbook, numbers kept numeric.
func (s *Service) ExportXLSX(ctx context.Context, userID, month string) ([]byte, error) {
	report, err := s.MonthlyReport(ctx, userID, Query{Month: month})
	if err != nil {
		return nil, err
	}
	return buildWorkbook(report)
}

func buildWorkbook(report MonthlyReport) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	header := make([]interface{}, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	row := 2
	for _, r := range report.Rows {
		values := []interface{}{
			r.CustomerName,
			r.DeliveryCount,
			billing.Round2(r.TotalQuantity),
			billing.Round2(r.TotalAmount),
			billing.Round2(r.Paid),
			billing.Round2(r.Balance),
		}
		if err := setRow(f, sheet, row, values); err != nil {
			return nil, err
		}
		row++
	}

	totals := []interface{}{
		"Total",
		report.Summary.DeliveryCount,
		billing.Round2(report.Summary.TotalQuantity),
		billing.Round2(report.Summary.TotalRevenue),
	}
	if err := setRow(f, sheet, row+1, totals); err != nil {
		return nil, err
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("cell for row %d: %w", row, err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

// ExportToSheet appends one row per customer of month to the configured spreadsheet
// and returns the number of rows written.
func (s *Service) ExportToSheet(ctx context.Context, userID, month string) (int, error) {
	if s.sheets == nil {
		return 0, ErrSheetsDisabled
	}
	report, err := s.MonthlyReport(ctx, userID, Query{Month: month})
	if err != nil {
		return 0, err
	}

	rows := make([][]interface{}, 0, len(report.Rows))
	for _, r := range report.Rows {
		rows = append(rows, []interface{}{
			month,
			r.CustomerName,
			r.DeliveryCount,
			billing.FormatFixed2(r.TotalQuantity),
			billing.FormatFixed2(r.TotalAmount),
			billing.FormatFixed2(r.Paid),
			billing.FormatFixed2(r.Balance),
		})
	}

	if err := s.sheets.AppendRows(ctx, SheetRange, rows); err != nil {
		return 0, fmt.Errorf("export month %s to sheet: %w", month, err)
	}

	s.logger.Info("monthly report exported to sheet",
		zap.String("account", userID),
		zap.String("month", month),
		zap.Int("rows", len(rows)))

	return len(rows), nil
}
