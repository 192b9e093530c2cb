package report

import (
	"fmt"
	"io"
	"time"

	"github.com/example/ec-storefront/internal/domain/order"
	"github.com/xuri/excelize/v2"
)

const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	DailyFilename    = "daily_sales_report.xlsx"
	DetailedFilename = "detailed_orders_report.xlsx"

	dailySheet  = "Daily Sales"
	ordersSheet = "Orders"
)

// WriteDailyXLSX writes the per-day sheet with a trailing TOTAL row.
func WriteDailyXLSX(w io.Writer, rows []DailyRow) error {
	records := make([][]any, 0, len(rows)+2)
	records = append(records, []any{"Date", "TotalSales", "Orders"})
	for _, r := range rows {
		records = append(records, []any{r.Date, r.Total.InexactFloat64(), r.Orders})
	}
	sum := Summarize(rows)
	records = append(records, []any{"TOTAL", sum.TotalSales.InexactFloat64(), sum.OrdersCount})
	return writeSheet(w, dailySheet, records)
}

// WriteOrdersXLSX writes one row per order.
func WriteOrdersXLSX(w io.Writer, orders []*order.Order) error {
	records := make([][]any, 0, len(orders)+1)
	records = append(records, []any{"OrderID", "DateTime", "UserID", "Status", "TotalAmount"})
	for _, o := range orders {
		records = append(records, []any{
			o.ID,
			o.CreatedAt.UTC().Format(time.RFC3339),
			o.UserID,
			string(o.Status),
			o.TotalAmount.InexactFloat64(),
		})
	}
	return writeSheet(w, ordersSheet, records)
}

func writeSheet(w io.Writer, sheet string, records [][]any) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	for i, record := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
