// Package invoice is the HTTP boundary around the extraction pipeline: it
// accepts uploads, keeps results in bbolt and exports them as CSV or XLSX.
package invoice

import (
	"time"

	"github.com/zombor/invoice-extractor/internal/pipeline"
)

// Extraction is a persisted pipeline result
type Extraction struct {
	ID        string          `json:"id"`
	Filename  string          `json:"filename"` // stored upload, relative to the storage root
	Original  string          `json:"original_filename"`
	Extension string          `json:"extension"`
	Method    string          `json:"method"`
	Result    pipeline.Result `json:"result"`
	CreatedAt time.Time       `json:"created_at"`
}
