// Package pipeline routes a document through local or remote extraction.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/invoice-extractor/internal/document"
	"github.com/zombor/invoice-extractor/internal/fields"
	"github.com/zombor/invoice-extractor/internal/ocr"
	"github.com/zombor/invoice-extractor/internal/scanning"
)

// Strategy selects the extraction path
type Strategy int

const (
	Local Strategy = iota
	Remote
)

func (s Strategy) String() string {
	if s == Remote {
		return "remote"
	}
	return "local"
}

// ParseStrategy maps a method name to a Strategy. "normal" and "groq" are
// accepted for the local and remote paths respectively.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "local", "normal":
		return Local, nil
	case "remote", "groq":
		return Remote, nil
	default:
		return Local, inputError("parsing method", fmt.Errorf("%w: %q", ErrInvalidMethod, s))
	}
}

// Classifier picks the processing regime of a document
type Classifier interface {
	Classify(ext string, data []byte) document.Class
}

// ReadableExtractor reads the text layer of a PDF
type ReadableExtractor interface {
	ExtractReadable(ctx context.Context, data []byte) (string, error)
}

// Recognizer reads text from scanned PDFs and images
type Recognizer interface {
	ExtractScanned(ctx context.Context, data []byte) (string, error)
	ExtractImage(ctx context.Context, img image.Image) (string, error)
}

// FieldExtractor turns raw text into candidate fields
type FieldExtractor interface {
	Extract(ctx context.Context, text string) fields.InvoiceRecord
}

// Components are the collaborators of a Pipeline. Scanner may be nil when no
// remote provider is configured.
type Components struct {
	Classifier Classifier
	Readable   ReadableExtractor
	Recognizer Recognizer
	Fields     FieldExtractor
	Scanner    scanning.Scanner
}

// Pipeline is stateless apart from its collaborators and safe for concurrent use
type Pipeline struct {
	c      Components
	logger *slog.Logger
}

// New creates a Pipeline
func New(c Components, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{c: c, logger: logger}
}

// Process extracts invoice data from doc using the chosen strategy
func (p *Pipeline) Process(ctx context.Context, doc document.RawDocument, strategy Strategy) (Result, error) {
	start := time.Now()
	logger := p.logger.With("request_id", uuid.NewString(), "strategy", strategy.String(), "ext", doc.Extension)
	logger.Info("pipeline.process.start", "bytes", len(doc.Data))

	var (
		res Result
		err error
	)
	if len(doc.Data) == 0 {
		err = inputError("reading document", ErrNoData)
	} else if strategy == Remote {
		res, err = p.remote(ctx, doc)
	} else {
		res, err = p.local(ctx, doc, logger)
	}

	if err != nil {
		logger.Error("pipeline.process.failed", "kind", KindOf(err).String(), "error", err, "duration_ms", time.Since(start).Milliseconds())
		return Result{}, err
	}
	logger.Info("pipeline.process.ok", "result", string(res.Kind), "duration_ms", time.Since(start).Milliseconds())
	return res, nil
}

func (p *Pipeline) local(ctx context.Context, doc document.RawDocument, logger *slog.Logger) (Result, error) {
	class := p.c.Classifier.Classify(doc.Extension, doc.Data)
	logger.Debug("pipeline.classified", "class", class.String())

	var (
		text string
		err  error
	)
	switch class {
	case document.ReadablePDF:
		text, err = p.c.Readable.ExtractReadable(ctx, doc.Data)
		if err != nil {
			return Result{}, extractionError("extracting PDF text", err)
		}
	case document.ScannedPDF:
		text, err = p.c.Recognizer.ExtractScanned(ctx, doc.Data)
		if err != nil {
			return Result{}, extractionError("recognizing scanned PDF", err)
		}
	case document.Image:
		img, err := ocr.DecodeImage(doc.Data, doc.Extension)
		if err != nil {
			return Result{}, inputError("decoding image", err)
		}
		text, err = p.c.Recognizer.ExtractImage(ctx, img)
		if err != nil {
			return Result{}, extractionError("recognizing image", err)
		}
	default:
		return Result{}, inputError("classifying document", fmt.Errorf("%w: %q", ErrUnsupportedType, doc.Extension))
	}

	rec := p.c.Fields.Extract(ctx, text)
	return CandidatesResult(rec, class, text), nil
}

func (p *Pipeline) remote(ctx context.Context, doc document.RawDocument) (Result, error) {
	if p.c.Scanner == nil {
		return Result{}, &Error{Kind: KindConfiguration, Op: "scanning invoice", Err: ErrNoScanner}
	}

	g, err := p.c.Scanner.ScanInvoice(ctx, doc.Data, doc.Extension)
	if err != nil {
		return Result{}, remoteError("scanning invoice", err)
	}
	return SingleGuessResult(g), nil
}
