package pipeline

import (
	"errors"
	"fmt"

	"github.com/zombor/invoice-extractor/internal/ocr"
	"github.com/zombor/invoice-extractor/internal/pdftext"
	"github.com/zombor/invoice-extractor/internal/scanning"
)

// Kind classifies a pipeline failure
type Kind int

const (
	// KindInput is a problem with the request itself. Not retryable.
	KindInput Kind = iota + 1
	// KindExtraction is a whole-document layout, rendering or recognition failure
	KindExtraction
	// KindConfiguration is a missing credential or collaborator, found before any network call
	KindConfiguration
	// KindRemoteProtocol is a transport, auth, status or timeout failure calling the hosted model
	KindRemoteProtocol
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindExtraction:
		return "extraction"
	case KindConfiguration:
		return "configuration"
	case KindRemoteProtocol:
		return "remote_protocol"
	default:
		return "unknown"
	}
}

var (
	ErrNoData          = errors.New("no usable document bytes")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrInvalidMethod   = errors.New("invalid extraction method")
	ErrNoScanner       = errors.New("no remote scanner configured")

	ErrInvalidImage       = ocr.ErrInvalidImage
	ErrNoPages            = ocr.ErrNoPages
	ErrMalformedPDF       = pdftext.ErrMalformedPDF
	ErrMissingCredentials = scanning.ErrMissingCredentials
)

// Error is a pipeline failure tagged with its Kind
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, or 0 when err is not a pipeline error
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}

func inputError(op string, err error) error {
	return &Error{Kind: KindInput, Op: op, Err: err}
}

func extractionError(op string, err error) error {
	return &Error{Kind: KindExtraction, Op: op, Err: err}
}

// remoteError sorts a scanner failure into the taxonomy
func remoteError(op string, err error) error {
	var re *scanning.RemoteError
	switch {
	case errors.As(err, &re):
		return &Error{Kind: KindRemoteProtocol, Op: op, Err: err}
	case errors.Is(err, ErrMissingCredentials):
		return &Error{Kind: KindConfiguration, Op: op, Err: err}
	case errors.Is(err, ErrInvalidImage):
		return &Error{Kind: KindInput, Op: op, Err: err}
	default:
		return &Error{Kind: KindExtraction, Op: op, Err: err}
	}
}
