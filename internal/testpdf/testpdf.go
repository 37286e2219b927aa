// Package testpdf builds small, well-formed PDF documents for tests.
package testpdf

import (
	"bytes"
	"fmt"
	"strings"
)

// Line is a run of text drawn at a baseline position, in points from the
// bottom-left corner of a US Letter page
type Line struct {
	X, Y float64
	Text string
}

// Page is a page made of text lines. A page with no lines has no text layer.
type Page struct {
	Lines []Line
}

const (
	pageWidth  = 612
	pageHeight = 792
	fontSize   = 12
)

// Build renders pages into a PDF with a Helvetica font and a valid xref table
func Build(pages ...Page) []byte {
	if len(pages) == 0 {
		pages = []Page{{}}
	}

	var objects []string
	objects = append(objects, "<< /Type /Catalog /Pages 2 0 R >>")

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objects = append(objects, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))

	widths := make([]string, 0, 95)
	for c := 32; c <= 126; c++ {
		widths = append(widths, "556")
	}
	objects = append(objects, fmt.Sprintf(
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding /FirstChar 32 /LastChar 126 /Widths [%s] >>",
		strings.Join(widths, " ")))

	for i, p := range pages {
		objects = append(objects, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d %d] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
			pageWidth, pageHeight, 5+2*i))

		var content strings.Builder
		for _, l := range p.Lines {
			fmt.Fprintf(&content, "BT /F1 %d Tf %.2f %.2f Td (%s) Tj ET\n", fontSize, l.X, l.Y, escape(l.Text))
		}
		objects = append(objects, fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", content.Len(), content.String()))
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

// Text builds a single-page PDF with one line per string, top to bottom
func Text(lines ...string) []byte {
	page := Page{}
	for i, l := range lines {
		page.Lines = append(page.Lines, Line{X: 72, Y: float64(720 - 20*i), Text: l})
	}
	return Build(page)
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
