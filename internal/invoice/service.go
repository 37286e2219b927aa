package invoice

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/invoice-extractor/internal/document"
	"github.com/zombor/invoice-extractor/internal/pipeline"
)

// Processor runs a document through extraction
type Processor interface {
	Process(ctx context.Context, doc document.RawDocument, strategy pipeline.Strategy) (pipeline.Result, error)
}

// IDGenerator generates unique IDs for extractions
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return uuid.NewString()
}

type systemTime struct{}

func (systemTime) Now() time.Time {
	return time.Now().UTC()
}

// Service handles extraction operations
type Service struct {
	db          DB
	storage     Storage
	processor   Processor
	idGenerator IDGenerator
	timeSource  TimeSource
	logger      *slog.Logger
}

// NewService creates a new Service with UUID ids and the system clock
func NewService(db DB, storage Storage, processor Processor, logger *slog.Logger) *Service {
	return NewServiceWithDeps(db, storage, processor, uuidGenerator{}, systemTime{}, logger)
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, storage Storage, processor Processor, idGen IDGenerator, timeSrc TimeSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:          db,
		storage:     storage,
		processor:   processor,
		idGenerator: idGen,
		timeSource:  timeSrc,
		logger:      logger,
	}
}

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	spaceRuns   = regexp.MustCompile(`\s+`)
)

// sanitizeFilename drops special characters and truncates long phone-generated names
func sanitizeFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	base = unsafeChars.ReplaceAllString(base, "")
	base = strings.TrimSpace(spaceRuns.ReplaceAllString(base, " "))

	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "invoice"
	}
	if ext = unsafeChars.ReplaceAllString(strings.TrimPrefix(ext, "."), ""); ext != "" {
		ext = "." + ext
	}
	return base + ext
}

// Extract runs the upload through the pipeline and keeps the result and the
// uploaded file. Failed extractions are not stored.
func (s *Service) Extract(ctx context.Context, filename string, data []byte, method string) (*Extraction, error) {
	strategy, err := pipeline.ParseStrategy(method)
	if err != nil {
		return nil, err
	}

	doc := document.New(filename, data)
	result, err := s.processor.Process(ctx, doc, strategy)
	if err != nil {
		return nil, err
	}

	id := s.idGenerator.Generate()
	clean := sanitizeFilename(filename)
	saved, err := s.storage.Save(fmt.Sprintf("%s_%s", id, strings.ReplaceAll(clean, " ", "_")), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	e := &Extraction{
		ID:        id,
		Filename:  saved,
		Original:  clean,
		Extension: doc.Extension,
		Method:    strategy.String(),
		Result:    result,
		CreatedAt: s.timeSource.Now(),
	}
	if err := s.db.SaveExtraction(e); err != nil {
		if delErr := s.storage.Delete(saved); delErr != nil {
			s.logger.Warn("invoice.cleanup.failed", "filename", saved, "error", delErr)
		}
		return nil, fmt.Errorf("saving extraction to database: %w", err)
	}

	s.logger.Info("invoice.extract.saved", "id", id, "method", e.Method, "result", string(result.Kind))
	return e, nil
}

// GetExtraction retrieves an extraction by ID
func (s *Service) GetExtraction(id string) (*Extraction, error) {
	e, err := s.db.GetExtraction(id)
	if err != nil {
		return nil, fmt.Errorf("getting extraction: %w", err)
	}
	return e, nil
}

// ListExtractions returns all extractions
func (s *Service) ListExtractions() ([]*Extraction, error) {
	list, err := s.db.ListExtractions()
	if err != nil {
		return nil, fmt.Errorf("listing extractions: %w", err)
	}
	return list, nil
}

// DeleteExtraction removes an extraction and its uploaded file
func (s *Service) DeleteExtraction(id string) error {
	e, err := s.db.GetExtraction(id)
	if err != nil {
		return fmt.Errorf("getting extraction for deletion: %w", err)
	}

	if err := s.storage.Delete(e.Filename); err != nil {
		s.logger.Warn("invoice.delete.file_failed", "filename", e.Filename, "error", err)
	}

	if err := s.db.DeleteExtraction(id); err != nil {
		return fmt.Errorf("deleting extraction from database: %w", err)
	}
	return nil
}

// GetExtractionFile returns the uploaded document of an extraction
func (s *Service) GetExtractionFile(id string) ([]byte, *Extraction, error) {
	e, err := s.db.GetExtraction(id)
	if err != nil {
		return nil, nil, fmt.Errorf("getting extraction: %w", err)
	}
	data, err := s.storage.Get(e.Filename)
	if err != nil {
		return nil, nil, fmt.Errorf("getting extraction file: %w", err)
	}
	return data, e, nil
}
