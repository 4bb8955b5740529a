package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/smartration/backend/internal/domain"
)

const (
	itemsSheet   = "Items"
	summarySheet = "Summary"
)

// Categorizer names the food category of a receipt item
type Categorizer interface {
	Categorize(name string) string
}

// ReceiptExporter writes parsed receipts as XLSX workbooks
type ReceiptExporter struct {
	categorizer Categorizer
}

// NewReceiptExporter creates an exporter. categorizer may be nil, in which
// case the category column is left out.
func NewReceiptExporter(categorizer Categorizer) *ReceiptExporter {
	return &ReceiptExporter{categorizer: categorizer}
}

// ReceiptXLSX renders one receipt: an Items sheet with a row per line item
// and a Summary sheet with store, date, item count and totals.
func (e *ReceiptExporter) ReceiptXLSX(record *domain.ReceiptRecord) ([]byte, error) {
	if record == nil {
		return nil, fmt.Errorf("%w: no receipt", domain.ErrInvalidRequest)
	}

	f := excelize.NewFile()
	defer f.Close()

	// Rename the default sheet rather than leaving an empty "Sheet1"
	if err := f.SetSheetName("Sheet1", itemsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, err
	}

	if err := e.writeItems(f, record.Items); err != nil {
		return nil, err
	}
	if err := writeSummary(f, record); err != nil {
		return nil, err
	}

	index, _ := f.GetSheetIndex(itemsSheet)
	f.SetActiveSheet(index)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *ReceiptExporter) writeItems(f *excelize.File, items []domain.ReceiptItem) error {
	headers := []any{"Item", "Unit Price", "Quantity", "Line Total"}
	if e.categorizer != nil {
		headers = append(headers, "Category")
	}
	if err := f.SetSheetRow(itemsSheet, "A1", &headers); err != nil {
		return err
	}

	for i, item := range items {
		row := []any{item.Name, item.UnitPrice, item.Quantity, item.LineTotal()}
		if e.categorizer != nil {
			row = append(row, e.categorizer.Categorize(item.Name))
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(itemsSheet, cell, &row); err != nil {
			return err
		}
	}

	if len(items) > 0 {
		style, err := f.NewStyle(&excelize.Style{NumFmt: 2}) // 0.00
		if err != nil {
			return err
		}
		last := len(items) + 1
		_ = f.SetCellStyle(itemsSheet, "B2", fmt.Sprintf("B%d", last), style)
		_ = f.SetCellStyle(itemsSheet, "D2", fmt.Sprintf("D%d", last), style)
	}

	_ = f.SetColWidth(itemsSheet, "A", "A", 32)
	_ = f.SetColWidth(itemsSheet, "B", "D", 12)
	_ = f.SetColWidth(itemsSheet, "E", "E", 14)
	return nil
}

func writeSummary(f *excelize.File, record *domain.ReceiptRecord) error {
	var itemsTotal float64
	for _, item := range record.Items {
		itemsTotal += item.LineTotal()
	}

	rows := [][]any{
		{"Store", record.Store},
		{"Date", record.Date},
		{"Items", len(record.Items)},
		{"Items Total", itemsTotal},
		{"Receipt Total", record.Total},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
	}

	_ = f.SetColWidth(summarySheet, "A", "A", 16)
	_ = f.SetColWidth(summarySheet, "B", "B", 32)
	return nil
}
