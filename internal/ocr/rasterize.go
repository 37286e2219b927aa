package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// ErrNoPages is returned when a PDF renders to zero pages
var ErrNoPages = errors.New("PDF has no pages")

// Rasterizer renders PDF pages to images, in page order. maxPages <= 0
// renders every page.
type Rasterizer interface {
	Rasterize(ctx context.Context, data []byte, dpi, maxPages int) ([]image.Image, error)
}

// FitzRasterizer renders pages with MuPDF through go-fitz
type FitzRasterizer struct{}

func (FitzRasterizer) Rasterize(ctx context.Context, data []byte, dpi, maxPages int) (pages []image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("rendering PDF: %v", r)
		}
	}()

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	n := doc.NumPage()
	if maxPages > 0 && n > maxPages {
		n = maxPages
	}
	if n == 0 {
		return nil, ErrNoPages
	}

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := doc.ImageDPI(i, float64(dpi))
		if err != nil {
			return nil, fmt.Errorf("rendering page %d: %w", i+1, err)
		}
		pages = append(pages, img)
	}
	return pages, nil
}

// PopplerRasterizer renders pages with pdftoppm from a configured toolkit
// directory
type PopplerRasterizer struct {
	dir    string
	runner Runner
	logger *slog.Logger
}

// NewPopplerRasterizer creates a PopplerRasterizer for the pdftoppm binary in dir
func NewPopplerRasterizer(dir string, runner Runner, logger *slog.Logger) *PopplerRasterizer {
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PopplerRasterizer{dir: dir, runner: runner, logger: logger}
}

// Binary is the full path of the pdftoppm executable
func (p *PopplerRasterizer) Binary() string {
	return filepath.Join(p.dir, "pdftoppm")
}

func (p *PopplerRasterizer) Rasterize(ctx context.Context, data []byte, dpi, maxPages int) ([]image.Image, error) {
	workDir, err := os.MkdirTemp("", "invoice-raster-*")
	if err != nil {
		return nil, fmt.Errorf("creating work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	input := filepath.Join(workDir, "input.pdf")
	if err := os.WriteFile(input, data, 0o600); err != nil {
		return nil, fmt.Errorf("writing PDF: %w", err)
	}

	prefix := filepath.Join(workDir, "page")
	args := []string{"-png", "-r", strconv.Itoa(dpi)}
	if maxPages > 0 {
		args = append(args, "-f", "1", "-l", strconv.Itoa(maxPages))
	}
	args = append(args, input, prefix)

	if _, stderr, err := p.runner.Run(ctx, p.Binary(), nil, p.logger, args...); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w: %s", err, truncate(strings.TrimSpace(string(stderr)), 512))
	}

	matches, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, ErrNoPages
	}
	sort.Slice(matches, func(i, j int) bool {
		return pageIndexFromName(matches[i]) < pageIndexFromName(matches[j])
	})

	pages := make([]image.Image, 0, len(matches))
	for _, path := range matches {
		img, err := decodeFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading rendered page %s: %w", filepath.Base(path), err)
		}
		pages = append(pages, img)
	}
	return pages, nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	return img, err
}

// pageIndexFromName returns the zero-based page of a pdftoppm output file,
// whose suffix is zero-padded to the width of the page count
func pageIndexFromName(path string) int {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if idx := strings.LastIndex(base, "-"); idx >= 0 {
		if v, err := strconv.Atoi(base[idx+1:]); err == nil {
			return v - 1
		}
	}
	return 0
}
