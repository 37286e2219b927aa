package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrMalformedPDF is returned when a PDF cannot be read structurally
var ErrMalformedPDF = errors.New("malformed PDF")

// TextBlock is a region of text on a page, positioned by its top-left corner
// in points with the origin at the top of the page
type TextBlock struct {
	Top     float64
	Left    float64
	Content string
}

// LayoutReader returns the text blocks of every page of a PDF, in page order
type LayoutReader interface {
	PageBlocks(ctx context.Context, data []byte) ([][]TextBlock, error)
}

// RunLayout groups the positioned text runs reported by ledongthuc/pdf into
// blocks. Runs on the same baseline form a row; a row is split into separate
// blocks wherever the horizontal gap is wider than ColumnGap.
type RunLayout struct {
	RowTolerance    float64 // max baseline difference within a row, in points
	ColumnGap       float64 // gap that starts a new block, in points
	WordSpaceFactor float64 // gap (times font size) that implies a space
}

// NewRunLayout creates a RunLayout with defaults tuned for invoices
func NewRunLayout() *RunLayout {
	return &RunLayout{
		RowTolerance:    2.0,
		ColumnGap:       24.0,
		WordSpaceFactor: 0.25,
	}
}

// PageBlocks reads every page of the PDF. The reader panics on some broken
// content streams, so panics are reported as ErrMalformedPDF.
func (l *RunLayout) PageBlocks(ctx context.Context, data []byte) (pages [][]TextBlock, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("%w: %v", ErrMalformedPDF, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPDF, err)
	}

	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, nil)
			continue
		}
		texts := page.Content().Text
		pages = append(pages, l.blocks(texts, pageHeight(page, texts)))
	}
	return pages, nil
}

func pageHeight(page pdf.Page, texts []pdf.Text) float64 {
	box := page.V.Key("MediaBox")
	if box.Kind() == pdf.Array && box.Len() == 4 {
		if h := box.Index(3).Float64() - box.Index(1).Float64(); h > 0 {
			return h
		}
	}
	var h float64
	for _, t := range texts {
		h = math.Max(h, t.Y+t.FontSize)
	}
	return h
}

func (l *RunLayout) blocks(texts []pdf.Text, height float64) []TextBlock {
	if len(texts) == 0 {
		return nil
	}

	sorted := make([]pdf.Text, len(texts))
	copy(sorted, texts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Y > sorted[j].Y
	})

	var rows [][]pdf.Text
	for _, t := range sorted {
		n := len(rows)
		if n > 0 && math.Abs(rows[n-1][0].Y-t.Y) <= l.RowTolerance {
			rows[n-1] = append(rows[n-1], t)
			continue
		}
		rows = append(rows, []pdf.Text{t})
	}

	var out []TextBlock
	for _, row := range rows {
		sort.SliceStable(row, func(i, j int) bool {
			return row[i].X < row[j].X
		})
		out = append(out, l.splitRow(row, height)...)
	}
	return out
}

func (l *RunLayout) splitRow(row []pdf.Text, height float64) []TextBlock {
	var (
		out  []TextBlock
		b    strings.Builder
		left = row[0].X
		size = row[0].FontSize
		end  = row[0].X
	)
	baseline := row[0].Y

	flush := func() {
		out = append(out, TextBlock{
			Top:     height - (baseline + size),
			Left:    left,
			Content: b.String(),
		})
		b.Reset()
	}

	for i, t := range row {
		if i > 0 {
			gap := t.X - end
			switch {
			case gap > l.ColumnGap:
				flush()
				left, size = t.X, t.FontSize
			case gap > l.WordSpaceFactor*t.FontSize && !endsWithSpace(b.String()) && !strings.HasPrefix(t.S, " "):
				b.WriteByte(' ')
			}
		}
		b.WriteString(t.S)
		size = math.Max(size, t.FontSize)
		end = math.Max(end, t.X+t.W)
	}
	flush()
	return out
}

func endsWithSpace(s string) bool {
	return s == "" || strings.HasSuffix(s, " ")
}
