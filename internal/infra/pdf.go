package infra

// pdf.go renders a thermal-style receipt (74mm wide) for a committed sale:
// store header, sale id and timestamp, one row per item, discount, bold total
// and the payment breakdown.

import (
	"bytes"
	"fmt"

	"github.com/sachero10/backend-tienda-ropa/internal/model"

	"github.com/go-pdf/fpdf"
)

// ReceiptContentType is the MIME type of RenderReceipt's output.
const ReceiptContentType = "application/pdf"

// RenderReceipt returns the receipt PDF for a sale loaded with its items,
// variants, products and payments.
func RenderReceipt(sale *model.Sale, storeName, currency string) ([]byte, error) {
	rows := len(sale.Items) + len(sale.Payments)
	height := 70 + float64(rows)*5

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 74, Ht: height},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.SetAutoPageBreak(false, 4)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 8

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(contentW, 7, tr(storeName), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 5, "Sale receipt", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 7)
	pdf.CellFormat(contentW, 4, sale.ID.String(), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, sale.CreatedAt.UTC().Format("2006-01-02 15:04 UTC"), "", 1, "L", false, 0, "")
	pdf.Ln(2)
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	col1 := contentW * 0.52
	col2 := contentW * 0.16
	col3 := contentW * 0.32

	pdf.SetFont("Helvetica", "B", 7)
	pdf.CellFormat(col1, 5, "Item", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 5, "Qty", "B", 0, "C", false, 0, "")
	pdf.CellFormat(col3, 5, "Subtotal", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	for _, item := range sale.Items {
		pdf.CellFormat(col1, 5, tr(itemLabel(item)), "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 5, fmt.Sprintf("x%d", item.Quantity), "", 0, "C", false, 0, "")
		pdf.CellFormat(col3, 5, money(currency, item.Subtotal().StringFixed(2)), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	if !sale.Discount.IsZero() {
		pdf.CellFormat(col1+col2, 5, "Discount:", "", 0, "L", false, 0, "")
		pdf.CellFormat(col3, 5, "-"+money(currency, sale.Discount.StringFixed(2)), "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1+col2, 6, "TOTAL:", "", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 6, money(currency, sale.Total.StringFixed(2)), "", 1, "R", false, 0, "")

	pdf.Ln(2)
	pdf.SetFont("Helvetica", "", 7)
	for _, p := range sale.Payments {
		pdf.CellFormat(col1+col2, 4, tr("Paid ("+p.Method+"):"), "", 0, "L", false, 0, "")
		pdf.CellFormat(col3, 4, money(currency, p.Amount.StringFixed(2)), "", 1, "R", false, 0, "")
	}

	pdf.Ln(3)
	pdf.SetFont("Helvetica", "I", 7)
	pdf.CellFormat(contentW, 4, "Thank you for your purchase!", "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render receipt: %w", err)
	}
	return buf.Bytes(), nil
}

// itemLabel is "Product SIZE/COLOR", cut to fit the column.
func itemLabel(item model.SaleItem) string {
	label := item.VariantID.String()[:8]
	if v := item.Variant; v != nil {
		label = v.SKU
		if v.Product != nil {
			label = fmt.Sprintf("%s %s/%s", v.Product.Name, v.Size, v.Color)
		}
	}
	if r := []rune(label); len(r) > 24 {
		label = string(r[:23]) + "."
	}
	return label
}

func money(currency, amount string) string {
	if currency == "" {
		return "$" + amount
	}
	return currency + " " + amount
}
