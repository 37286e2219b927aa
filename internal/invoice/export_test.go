package invoice

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/xuri/excelize/v2"

	"github.com/zombor/invoice-extractor/internal/document"
	"github.com/zombor/invoice-extractor/internal/fields"
	"github.com/zombor/invoice-extractor/internal/pipeline"
	"github.com/zombor/invoice-extractor/internal/scanning"
)

var _ = Describe("Export", func() {
	Describe("NewTable", func() {
		When("the local record has line items", func() {
			It("should export one row per item", func() {
				rec := fields.NewInvoiceRecord()
				rec.VendorNames = []string{"ACME"}
				rec.LineItems = []fields.LineItem{
					{Description: "Widget", Amount: 10},
					{Description: "Gadget", Amount: 2.5},
				}

				t := NewTable(pipeline.CandidatesResult(rec, document.ReadablePDF, ""))
				Expect(t.Header).To(Equal([]string{"description", "amount"}))
				Expect(t.Rows).To(Equal([][]any{{"Widget", 10.0}, {"Gadget", 2.5}}))
			})
		})

		When("the local record has no line items", func() {
			It("should join each candidate list into a single row", func() {
				rec := fields.NewInvoiceRecord()
				rec.VendorNames = []string{"ACME", "Globex"}
				rec.InvoiceNumbers = []string{"INV-1"}
				rec.TotalAmounts = []float64{100, 118}

				t := NewTable(pipeline.CandidatesResult(rec, document.Image, ""))
				Expect(t.Header).To(Equal([]string{"vendor_names", "invoice_numbers", "invoice_dates", "total_amounts", "tax_amounts"}))
				Expect(t.Rows).To(Equal([][]any{{"ACME; Globex", "INV-1", "", "100.00; 118.00", ""}}))
			})
		})

		When("the result is a remote guess", func() {
			It("should export the guess fields", func() {
				g := scanning.Guess{
					"invoice_number": "INV-9",
					"vendor_name":    "ACME",
					"invoice_date":   "2024-01-31",
					"total_amount":   "$1,180.00",
					"tax_amount":     nil,
				}

				t := NewTable(pipeline.SingleGuessResult(g))
				Expect(t.Header).To(Equal([]string{"invoice_number", "vendor_name", "invoice_date", "total_amount", "tax_amount"}))
				Expect(t.Rows).To(Equal([][]any{{"INV-9", "ACME", "2024-01-31", 1180.0, ""}}))
			})

			It("should prefer the guessed line items", func() {
				g := scanning.Guess{
					"line_items": []any{
						map[string]any{"description": "Consulting", "amount": 500.0},
					},
				}

				t := NewTable(pipeline.SingleGuessResult(g))
				Expect(t.Header).To(Equal([]string{"description", "amount"}))
				Expect(t.Rows).To(Equal([][]any{{"Consulting", 500.0}}))
			})

			It("should export an empty guess as a blank row", func() {
				t := NewTable(pipeline.SingleGuessResult(nil))
				Expect(t.Rows).To(Equal([][]any{{"", "", "", "", ""}}))
			})
		})
	})

	Describe("WriteCSV", func() {
		It("should write a header and amounts with two decimals", func() {
			t := Table{
				Header: []string{"description", "amount"},
				Rows:   [][]any{{"Widget, large", 10.0}, {"Gadget", 2.5}},
			}

			var buf bytes.Buffer
			Expect(t.WriteCSV(&buf)).To(Succeed())
			Expect(buf.String()).To(Equal("description,amount\n\"Widget, large\",10.00\nGadget,2.50\n"))
		})
	})

	Describe("XLSX", func() {
		It("should write a readable workbook", func() {
			t := Table{
				Header: []string{"description", "amount"},
				Rows:   [][]any{{"Widget", 10.5}},
			}

			data, err := t.XLSX()
			Expect(err).NotTo(HaveOccurred())

			f, err := excelize.OpenReader(bytes.NewReader(data))
			Expect(err).NotTo(HaveOccurred())
			defer f.Close()

			Expect(f.GetSheetList()).To(Equal([]string{"InvoiceData"}))
			rows, err := f.GetRows("InvoiceData")
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(Equal([][]string{{"description", "amount"}, {"Widget", "10.5"}}))
		})
	})
})
