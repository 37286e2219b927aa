package invoice

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/zombor/invoice-extractor/internal/fields"
	"github.com/zombor/invoice-extractor/internal/pipeline"
)

const exportSheet = "InvoiceData"

// Table is the tabular form of a result. When the result has line items,
// each item is a row; otherwise the record is a single row.
type Table struct {
	Header []string
	Rows   [][]any
}

// NewTable flattens a result for export
func NewTable(res pipeline.Result) Table {
	switch res.Kind {
	case pipeline.KindCandidates:
		rec := fields.NewInvoiceRecord()
		if res.Candidates != nil {
			rec = *res.Candidates
		}
		if rec.HasLineItems() {
			return lineItemTable(rec.LineItems)
		}
		return Table{
			Header: []string{"vendor_names", "invoice_numbers", "invoice_dates", "total_amounts", "tax_amounts"},
			Rows: [][]any{{
				strings.Join(rec.VendorNames, "; "),
				strings.Join(rec.InvoiceNumbers, "; "),
				strings.Join(rec.InvoiceDates, "; "),
				joinAmounts(rec.TotalAmounts),
				joinAmounts(rec.TaxAmounts),
			}},
		}
	default:
		g := res.SingleGuess
		if items := g.LineItems(); len(items) > 0 {
			return lineItemTable(items)
		}
		row := []any{g.InvoiceNumber(), g.VendorName(), g.InvoiceDate(), "", ""}
		if v, ok := g.TotalAmount(); ok {
			row[3] = v
		}
		if v, ok := g.TaxAmount(); ok {
			row[4] = v
		}
		return Table{
			Header: []string{"invoice_number", "vendor_name", "invoice_date", "total_amount", "tax_amount"},
			Rows:   [][]any{row},
		}
	}
}

func lineItemTable(items []fields.LineItem) Table {
	t := Table{Header: []string{"description", "amount"}}
	for _, it := range items {
		t.Rows = append(t.Rows, []any{it.Description, it.Amount})
	}
	return t
}

func joinAmounts(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = formatAmount(v)
	}
	return strings.Join(parts, "; ")
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// WriteCSV writes the table as CSV with a header row
func (t Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, row := range t.Rows {
		rec := make([]string, len(row))
		for i, v := range row {
			switch x := v.(type) {
			case float64:
				rec[i] = formatAmount(x)
			default:
				rec[i] = fmt.Sprint(x)
			}
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// XLSX renders the table as a single-sheet workbook
func (t Table) XLSX() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}

	header := make([]any, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}
	for i, row := range t.Rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := row
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
