package document

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// TextProber returns the embedded text of every page of a PDF, concatenated
type TextProber interface {
	ProbeText(data []byte) (string, error)
}

// FitzProber probes PDFs with MuPDF through go-fitz
type FitzProber struct{}

// ProbeText opens the PDF from memory and concatenates the text of all pages.
// Panics from the native layer are turned into errors.
func (FitzProber) ProbeText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("probing PDF: %v", r)
		}
	}()

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	var b strings.Builder
	for i := 0; i < doc.NumPage(); i++ {
		pageText, err := doc.Text(i)
		if err != nil {
			return "", fmt.Errorf("reading text of page %d: %w", i+1, err)
		}
		b.WriteString(pageText)
	}
	return b.String(), nil
}

// Classifier picks a processing regime for a document
type Classifier struct {
	prober TextProber
	logger *slog.Logger
}

// NewClassifier creates a Classifier. A nil prober defaults to go-fitz.
func NewClassifier(prober TextProber, logger *slog.Logger) *Classifier {
	if prober == nil {
		prober = FitzProber{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{prober: prober, logger: logger}
}

// Classify decides how a document is processed. Images are trusted by
// extension alone. PDFs are probed for a text layer; a PDF that cannot be
// parsed is treated as scanned so it still reaches OCR.
func (c *Classifier) Classify(ext string, data []byte) Class {
	ext = NormalizeExt(ext)
	switch {
	case IsImageExt(ext):
		return Image
	case ext == pdfExt:
		text, err := c.prober.ProbeText(data)
		if err != nil {
			c.logger.Debug("classify.probe_failed", "error", err, "size", len(data))
			return ScannedPDF
		}
		if strings.TrimSpace(text) == "" {
			return ScannedPDF
		}
		return ReadablePDF
	default:
		return Unsupported
	}
}
