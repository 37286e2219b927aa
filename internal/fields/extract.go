package fields

import (
	"context"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/zombor/invoice-extractor/internal/ner"
)

var (
	invoiceNumberPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:Invoice|Inv|Bill)\s*(?:No\.?|Number)?\s*[:#\-]?\s*([A-Z0-9\-\/]+)`),
		regexp.MustCompile(`(?i)(?:Invoice|Inv|Bill)[^\w\d]?\s*#?\s*([A-Z0-9\-\/]+)`),
	}

	datePattern = regexp.MustCompile(`(\d{4}[-/]\d{2}[-/]\d{2}|\d{2}[-/]\d{2}[-/]\d{4})`)

	totalPattern = regexp.MustCompile(`(?i)(Total Amount|Total Due|Amount Due|Grand Total|Total)\s*[:\-]?\s*[₹$€£]?\s*([0-9,]+\.\d{2})`)
	taxPattern   = regexp.MustCompile(`(?i)(GST|VAT|Tax)\s*[:\-]?\s*[₹$€£]?\s*([0-9,]+\.\d{2})`)

	wordPattern    = regexp.MustCompile(`[a-zA-Z]{3,}`)
	decimalPattern = regexp.MustCompile(`\d+\.\d{2}`)
	numberPattern  = regexp.MustCompile(`^\+?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)
)

// Extractor pulls candidate invoice fields out of raw text
type Extractor struct {
	recognizer ner.Recognizer
	logger     *slog.Logger
}

// NewExtractor creates an Extractor. A nil recognizer finds no vendors.
func NewExtractor(recognizer ner.Recognizer, logger *slog.Logger) *Extractor {
	if recognizer == nil {
		recognizer = ner.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{recognizer: recognizer, logger: logger}
}

// Extract runs every field extractor over text. Each one is independent;
// a failure in one leaves its category empty.
func (e *Extractor) Extract(ctx context.Context, text string) InvoiceRecord {
	rec := NewInvoiceRecord()

	rec.VendorNames = e.vendorNames(ctx, text)
	rec.InvoiceNumbers = InvoiceNumbers(text)
	rec.InvoiceDates = InvoiceDates(text)
	rec.TotalAmounts = TotalAmounts(text)
	rec.TaxAmounts = TaxAmounts(text)
	rec.LineItems = LineItems(text)

	e.logger.Debug("fields.extract.ok",
		"vendors", len(rec.VendorNames),
		"invoice_numbers", len(rec.InvoiceNumbers),
		"dates", len(rec.InvoiceDates),
		"totals", len(rec.TotalAmounts),
		"taxes", len(rec.TaxAmounts),
		"line_items", len(rec.LineItems),
	)
	return rec
}

func (e *Extractor) vendorNames(ctx context.Context, text string) []string {
	names := []string{}
	if strings.TrimSpace(text) == "" {
		return names
	}

	entities, err := e.recognizer.Recognize(ctx, text)
	if err != nil {
		e.logger.Warn("fields.ner.failed", "error", err)
		return names
	}
	for _, ent := range entities {
		if ent.Group != ner.GroupOrganization {
			continue
		}
		if w := strings.TrimSpace(ent.Word); w != "" {
			names = appendUnique(names, w)
		}
	}
	return names
}

// InvoiceNumbers returns the distinct invoice identifiers found by either
// label pattern
func InvoiceNumbers(text string) []string {
	out := []string{}
	for _, re := range invoiceNumberPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			out = appendUnique(out, m[1])
		}
	}
	return out
}

// InvoiceDates returns the distinct date-like tokens in text. Dates are not
// checked against the calendar.
func InvoiceDates(text string) []string {
	return appendUnique([]string{}, datePattern.FindAllString(text, -1)...)
}

// TotalAmounts returns every amount labeled as a total, in text order
func TotalAmounts(text string) []float64 {
	return labeledAmounts(totalPattern, text)
}

// TaxAmounts returns every amount labeled as tax, in text order
func TaxAmounts(text string) []float64 {
	return labeledAmounts(taxPattern, text)
}

func labeledAmounts(re *regexp.Regexp, text string) []float64 {
	out := []float64{}
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if v, ok := tryParseAmount(m[2]); ok {
			out = append(out, v)
		}
	}
	return out
}

// LineItems treats any line with a word and a decimal as an item whose
// amount is the last whitespace-separated token. Descriptions that merely
// end in a number are a known source of false items.
func LineItems(text string) []LineItem {
	out := []LineItem{}
	for _, line := range strings.Split(text, "\n") {
		if !wordPattern.MatchString(line) || !decimalPattern.MatchString(line) {
			continue
		}

		line = strings.TrimRight(line, " \t\r")
		idx := strings.LastIndexAny(line, " \t")
		if idx < 0 {
			continue
		}
		amount, ok := tryParseAmount(line[idx+1:])
		if !ok {
			continue
		}
		out = append(out, LineItem{
			Description: strings.TrimSpace(line[:idx]),
			Amount:      amount,
		})
	}
	return out
}

// tryParseAmount parses a locale-formatted amount with thousands separators.
// Only plain decimal notation is accepted, so hex floats, inf and nan are not
// amounts. Values must be finite and non-negative.
func tryParseAmount(s string) (float64, bool) {
	s = strings.NewReplacer(",", "", " ", "").Replace(strings.TrimSpace(s))
	if !numberPattern.MatchString(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}
