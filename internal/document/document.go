package document

import (
	"path/filepath"
	"strings"
)

// Class is the processing regime chosen for a document
type Class int

const (
	Unsupported Class = iota
	ReadablePDF
	ScannedPDF
	Image
)

func (c Class) String() string {
	switch c {
	case ReadablePDF:
		return "readable_pdf"
	case ScannedPDF:
		return "scanned_pdf"
	case Image:
		return "image"
	default:
		return "unsupported"
	}
}

// MarshalText lets Class appear by name in JSON payloads
func (c Class) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText reads a Class by name. Unknown names become Unsupported.
func (c *Class) UnmarshalText(b []byte) error {
	switch string(b) {
	case "readable_pdf":
		*c = ReadablePDF
	case "scanned_pdf":
		*c = ScannedPDF
	case "image":
		*c = Image
	default:
		*c = Unsupported
	}
	return nil
}

// RawDocument is an uploaded document as handed to the pipeline.
// The caller owns Data; nothing downstream mutates or retains it.
type RawDocument struct {
	Data      []byte
	Extension string
}

// New builds a RawDocument from a filename, taking the extension from it
func New(filename string, data []byte) RawDocument {
	return RawDocument{Data: data, Extension: NormalizeExt(filepath.Ext(filename))}
}

const pdfExt = ".pdf"

// imageExts is the raster allow-list. Anything here is classified as an image
// without looking at the bytes.
var imageExts = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".bmp":  {},
	".tiff": {},
	".tif":  {},
	".webp": {},
	".heic": {},
	".heif": {},
}

// NormalizeExt lower-cases an extension and makes sure it has a leading dot
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// IsImageExt reports whether ext is on the raster allow-list
func IsImageExt(ext string) bool {
	_, ok := imageExts[NormalizeExt(ext)]
	return ok
}

// IsPDFExt reports whether ext denotes a PDF
func IsPDFExt(ext string) bool {
	return NormalizeExt(ext) == pdfExt
}
