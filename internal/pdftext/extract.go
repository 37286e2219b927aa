// Package pdftext recovers reading-ordered text from PDFs that carry a text layer.
//
// Blocks are ordered top-to-bottom, then left-to-right, by their rounded
// top-left corner. There is no column or table detection: a two-column page
// interleaves its columns line by line. This is a known limitation.
package pdftext

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
)

const blockSeparator = "\n\n"

// Extractor linearizes the layout of readable PDFs
type Extractor struct {
	layout LayoutReader
	logger *slog.Logger
}

// NewExtractor creates an Extractor. A nil layout defaults to RunLayout.
func NewExtractor(layout LayoutReader, logger *slog.Logger) *Extractor {
	if layout == nil {
		layout = NewRunLayout()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{layout: layout, logger: logger}
}

// ExtractReadable returns the text of every page in natural reading order
func (e *Extractor) ExtractReadable(ctx context.Context, data []byte) (string, error) {
	pages, err := e.layout.PageBlocks(ctx, data)
	if err != nil {
		return "", fmt.Errorf("reading PDF layout: %w", err)
	}

	text := Linearize(pages)
	e.logger.Debug("pdftext.extract.ok", "pages", len(pages), "text_len", len(text))
	return text, nil
}

// Linearize orders each page's blocks by (rounded top, rounded left), drops
// empty blocks and joins the rest with a blank line. Pages flow together.
func Linearize(pages [][]TextBlock) string {
	var parts []string
	for _, blocks := range pages {
		ordered := make([]TextBlock, len(blocks))
		copy(ordered, blocks)
		sort.SliceStable(ordered, func(i, j int) bool {
			ti, tj := math.Round(ordered[i].Top), math.Round(ordered[j].Top)
			if ti != tj {
				return ti < tj
			}
			return math.Round(ordered[i].Left) < math.Round(ordered[j].Left)
		})

		for _, b := range ordered {
			if s := strings.TrimSpace(b.Content); s != "" {
				parts = append(parts, s)
			}
		}
	}
	return strings.Join(parts, blockSeparator)
}
