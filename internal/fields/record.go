// Package fields recovers invoice fields from unstructured text.
package fields

// LineItem is one itemized row of an invoice
type LineItem struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// InvoiceRecord holds every candidate value found for each invoice field.
// Slices are never nil, so empty categories encode as [].
type InvoiceRecord struct {
	VendorNames    []string   `json:"vendor_names"`
	InvoiceNumbers []string   `json:"invoice_numbers"`
	InvoiceDates   []string   `json:"invoice_dates"`
	TotalAmounts   []float64  `json:"total_amounts"`
	TaxAmounts     []float64  `json:"tax_amounts"`
	LineItems      []LineItem `json:"line_items"`
}

// NewInvoiceRecord returns a record with every category present and empty
func NewInvoiceRecord() InvoiceRecord {
	return InvoiceRecord{
		VendorNames:    []string{},
		InvoiceNumbers: []string{},
		InvoiceDates:   []string{},
		TotalAmounts:   []float64{},
		TaxAmounts:     []float64{},
		LineItems:      []LineItem{},
	}
}

// HasLineItems reports whether any line item was found
func (r InvoiceRecord) HasLineItems() bool {
	return len(r.LineItems) > 0
}

// appendUnique appends the values of src not already in dst, keeping
// first-seen order
func appendUnique(dst []string, src ...string) []string {
	seen := make(map[string]struct{}, len(dst))
	for _, s := range dst {
		seen[s] = struct{}{}
	}
	for _, s := range src {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		dst = append(dst, s)
	}
	return dst
}
