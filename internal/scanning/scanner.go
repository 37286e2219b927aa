// Package scanning extracts invoice fields by sending the document image to a
// hosted multimodal model and normalizing its free-form reply.
package scanning

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/zombor/invoice-extractor/internal/fields"
)

// ErrMissingCredentials is returned by a provider constructor when its API
// key is not configured
var ErrMissingCredentials = errors.New("missing API credentials")

// Scanner defines the interface for remote invoice extraction
type Scanner interface {
	// ScanInvoice sends the document to the model and returns its best guess
	ScanInvoice(ctx context.Context, data []byte, ext string) (Guess, error)
	// Close closes the scanner and releases resources
	Close() error
}

// RemoteError is a transport, authentication, status or timeout failure
// talking to the hosted model
type RemoteError struct {
	Provider   string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s request failed (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Guess is the flat JSON object returned by the model. Keys are whatever the
// model produced; the accessors read the six expected fields best-effort.
type Guess map[string]any

// IsEmpty reports whether nothing was extracted
func (g Guess) IsEmpty() bool {
	return len(g) == 0
}

func (g Guess) InvoiceNumber() string { return g.str("invoice_number") }
func (g Guess) VendorName() string    { return g.str("vendor_name") }
func (g Guess) InvoiceDate() string   { return g.str("invoice_date") }

func (g Guess) TotalAmount() (float64, bool) { return toAmount(g["total_amount"]) }
func (g Guess) TaxAmount() (float64, bool)   { return toAmount(g["tax_amount"]) }

// LineItems returns the items that have a description or a readable amount
func (g Guess) LineItems() []fields.LineItem {
	items := []fields.LineItem{}
	raw, ok := g["line_items"].([]any)
	if !ok {
		return items
	}
	for _, r := range raw {
		obj, ok := r.(map[string]any)
		if !ok {
			continue
		}
		desc := strings.TrimSpace(toString(obj["description"]))
		amount, ok := toAmount(obj["amount"])
		if desc == "" && !ok {
			continue
		}
		items = append(items, fields.LineItem{Description: desc, Amount: amount})
	}
	return items
}

func (g Guess) str(key string) string {
	return strings.TrimSpace(toString(g[key]))
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// toAmount accepts numbers and numeric strings such as "$1,234.50"
func toAmount(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		s := strings.NewReplacer(",", "", "$", "", "₹", "", "€", "", "£", "", " ", "").Replace(strings.TrimSpace(t))
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
