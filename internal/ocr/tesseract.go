package ocr

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"strconv"
	"strings"
)

// PSMSingleBlock asks the engine to treat a page as one uniform block of text
const PSMSingleBlock = 6

// Options tune a single recognition call
type Options struct {
	Lang string
	PSM  int // 0 leaves the engine's default segmentation
}

// Engine recognizes the text in an image
type Engine interface {
	Recognize(ctx context.Context, img image.Image, opts Options) (string, error)
}

// Tesseract runs the tesseract CLI, feeding the image as PNG on stdin
type Tesseract struct {
	binary      string
	tessdataDir string
	runner      Runner
	logger      *slog.Logger
}

// NewTesseract creates a Tesseract engine. An empty binary means "tesseract"
// on PATH; a nil runner uses ExecRunner.
func NewTesseract(binary, tessdataDir string, runner Runner, logger *slog.Logger) *Tesseract {
	if binary == "" {
		binary = "tesseract"
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tesseract{
		binary:      binary,
		tessdataDir: tessdataDir,
		runner:      runner,
		logger:      logger,
	}
}

// Recognize returns the raw engine output for img
func (t *Tesseract) Recognize(ctx context.Context, img image.Image, opts Options) (string, error) {
	data, err := EncodePNG(img)
	if err != nil {
		return "", err
	}

	lang := opts.Lang
	if lang == "" {
		lang = "eng"
	}
	args := []string{"stdin", "stdout", "-l", lang}
	if opts.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(opts.PSM))
	}
	if t.tessdataDir != "" {
		args = append(args, "--tessdata-dir", t.tessdataDir)
	}

	stdout, stderr, err := t.runner.Run(ctx, t.binary, data, t.logger, args...)
	if err != nil {
		if msg := strings.TrimSpace(string(stderr)); msg != "" {
			return "", fmt.Errorf("running tesseract: %w: %s", err, truncate(msg, 512))
		}
		return "", fmt.Errorf("running tesseract: %w", err)
	}
	return string(stdout), nil
}
