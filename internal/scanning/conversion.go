package scanning

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image/jpeg"
	"strings"

	"github.com/zombor/invoice-extractor/internal/ocr"
)

const (
	payloadQuality = 90
	payloadDPI     = 200
)

// Payload turns an uploaded document into the single JPEG image sent to the
// model
type Payload struct {
	rasterizer ocr.Rasterizer
	dpi        int
}

// NewPayload creates a Payload. A nil rasterizer defaults to go-fitz.
func NewPayload(rasterizer ocr.Rasterizer, dpi int) *Payload {
	if rasterizer == nil {
		rasterizer = ocr.FitzRasterizer{}
	}
	if dpi <= 0 {
		dpi = payloadDPI
	}
	return &Payload{rasterizer: rasterizer, dpi: dpi}
}

// Encode returns JPEG bytes for the document. Only the first page of a PDF
// is sent; images are flattened onto white before re-encoding.
func (p *Payload) Encode(ctx context.Context, data []byte, ext string) ([]byte, error) {
	if strings.EqualFold(strings.TrimPrefix(strings.TrimSpace(ext), "."), "pdf") {
		pages, err := p.rasterizer.Rasterize(ctx, data, p.dpi, 1)
		if err != nil {
			return nil, fmt.Errorf("converting PDF to image: %w", err)
		}
		if len(pages) == 0 {
			return nil, ocr.ErrNoPages
		}

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, ocr.Flatten(pages[0]), &jpeg.Options{Quality: payloadQuality}); err != nil {
			return nil, fmt.Errorf("encoding JPEG: %w", err)
		}
		return buf.Bytes(), nil
	}

	img, err := ocr.DecodeImage(data, ext)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: payloadQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeBase64 is Encode followed by standard base64
func (p *Payload) EncodeBase64(ctx context.Context, data []byte, ext string) (string, error) {
	b, err := p.Encode(ctx, data, ext)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// dataURI wraps base64 JPEG data for image_url message parts
func dataURI(b64 string) string {
	return "data:image/jpeg;base64," + b64
}
