package infra

import (
	"bytes"
	"fmt"

	"github.com/sachero10/backend-tienda-ropa/internal/dto"

	"github.com/xuri/excelize/v2"
)

// XLSXContentType is the MIME type of RenderSalesReport's output.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	sheetSummary = "Summary"
	sheetSales   = "Sales"
)

// RenderSalesReport writes a two-sheet workbook: totals and per-method
// breakdown on the first sheet, one row per sale on the second.
func RenderSalesReport(r *dto.SalesReportResponse) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(sheetSales); err != nil {
		return nil, err
	}

	summary := [][]interface{}{
		{"Start", r.Period.Start},
		{"End", r.Period.End},
		{"Sales", r.SalesCount},
		{"Revenue", r.TotalRevenue.InexactFloat64()},
		{"Discounts", r.TotalDiscount.InexactFloat64()},
		{},
		{"Method", "Total", "Payments"},
	}
	for _, m := range r.ByMethod {
		summary = append(summary, []interface{}{m.Method, m.Total.InexactFloat64(), m.Count})
	}
	if err := writeRows(f, sheetSummary, summary); err != nil {
		return nil, err
	}

	rows := [][]interface{}{{"Sale", "Created at", "Items", "Discount", "Total", "Payments"}}
	for _, s := range r.Sales {
		units := 0
		for _, it := range s.Items {
			units += it.Quantity
		}
		methods := ""
		for i, p := range s.Payments {
			if i > 0 {
				methods += ", "
			}
			methods += fmt.Sprintf("%s %s", p.Method, p.Amount.StringFixed(2))
		}
		rows = append(rows, []interface{}{
			s.ID, s.CreatedAt, units, s.Discount.InexactFloat64(), s.Total.InexactFloat64(), methods,
		})
	}
	if err := writeRows(f, sheetSales, rows); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("xlsx: write: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("xlsx: %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
