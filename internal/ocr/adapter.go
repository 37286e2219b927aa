// Package ocr turns scanned PDFs and raster images into plain text with an
// optical recognition engine.
package ocr

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"time"
)

// Config controls rasterization and recognition
type Config struct {
	Lang          string        // recognition language, e.g. "eng"
	DPI           int           // rasterization resolution
	MaxPages      int           // pages rendered per PDF, 0 for all
	TolerantPages bool          // skip pages that fail instead of aborting
	Timeout       time.Duration // per document, 0 for none
}

// DefaultConfig returns the defaults used when a field is left zero
func DefaultConfig() Config {
	return Config{
		Lang:    "eng",
		DPI:     200,
		Timeout: 2 * time.Minute,
	}
}

// Adapter extracts text from scanned PDFs and images
type Adapter struct {
	cfg        Config
	rasterizer Rasterizer
	engine     Engine
	logger     *slog.Logger
}

// NewAdapter creates an Adapter. A nil rasterizer defaults to FitzRasterizer.
func NewAdapter(cfg Config, rasterizer Rasterizer, engine Engine, logger *slog.Logger) *Adapter {
	def := DefaultConfig()
	if cfg.Lang == "" {
		cfg.Lang = def.Lang
	}
	if cfg.DPI <= 0 {
		cfg.DPI = def.DPI
	}
	if rasterizer == nil {
		rasterizer = FitzRasterizer{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{cfg: cfg, rasterizer: rasterizer, engine: engine, logger: logger}
}

// ExtractScanned renders every page and recognizes each one as a single
// uniform block. Page outputs are concatenated in page order.
func (a *Adapter) ExtractScanned(ctx context.Context, data []byte) (string, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	pages, err := a.rasterizer.Rasterize(ctx, data, a.cfg.DPI, a.cfg.MaxPages)
	if err != nil {
		return "", fmt.Errorf("rasterizing PDF: %w", err)
	}
	if len(pages) == 0 {
		return "", ErrNoPages
	}

	opts := Options{Lang: a.cfg.Lang, PSM: PSMSingleBlock}

	var (
		b       strings.Builder
		failed  int
		lastErr error
	)
	for i, page := range pages {
		text, err := a.engine.Recognize(ctx, page, opts)
		if err != nil {
			if !a.cfg.TolerantPages || ctx.Err() != nil {
				return "", fmt.Errorf("recognizing page %d: %w", i+1, err)
			}
			a.logger.Warn("ocr.page.failed", "page", i+1, "error", err)
			failed++
			lastErr = err
			continue
		}
		b.WriteString(text)
	}
	if failed == len(pages) {
		return "", fmt.Errorf("recognizing pages: all %d failed: %w", failed, lastErr)
	}

	a.logger.Debug("ocr.scanned.ok", "pages", len(pages), "failed_pages", failed)
	return strings.TrimSpace(b.String()), nil
}

// ExtractImage recognizes a single decoded image
func (a *Adapter) ExtractImage(ctx context.Context, img image.Image) (string, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	text, err := a.engine.Recognize(ctx, img, Options{Lang: a.cfg.Lang})
	if err != nil {
		return "", fmt.Errorf("recognizing image: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func (a *Adapter) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, a.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}
