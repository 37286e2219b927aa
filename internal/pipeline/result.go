package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/zombor/invoice-extractor/internal/document"
	"github.com/zombor/invoice-extractor/internal/fields"
	"github.com/zombor/invoice-extractor/internal/scanning"
)

// ResultKind names the populated variant of a Result
type ResultKind string

const (
	KindCandidates  ResultKind = "candidates"
	KindSingleGuess ResultKind = "single_guess"
)

// Result is either the local candidate sets or the remote single guess.
// Exactly one variant is populated; the two are never merged.
type Result struct {
	Kind        ResultKind
	Candidates  *fields.InvoiceRecord
	SingleGuess scanning.Guess

	// Class and RawText are set on the local path only
	Class   document.Class
	RawText string
}

// CandidatesResult wraps a local extraction
func CandidatesResult(rec fields.InvoiceRecord, class document.Class, rawText string) Result {
	return Result{Kind: KindCandidates, Candidates: &rec, Class: class, RawText: rawText}
}

// SingleGuessResult wraps a remote extraction
func SingleGuessResult(g scanning.Guess) Result {
	if g == nil {
		g = scanning.Guess{}
	}
	return Result{Kind: KindSingleGuess, SingleGuess: g}
}

type resultJSON struct {
	Kind        ResultKind            `json:"kind"`
	Candidates  *fields.InvoiceRecord `json:"candidates,omitempty"`
	SingleGuess *scanning.Guess       `json:"single_guess,omitempty"`
	Class       *document.Class       `json:"class,omitempty"`
	RawText     string                `json:"raw_text,omitempty"`
}

func (r Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{Kind: r.Kind}
	switch r.Kind {
	case KindCandidates:
		out.Candidates = r.Candidates
		out.Class = &r.Class
		out.RawText = r.RawText
	case KindSingleGuess:
		g := r.SingleGuess
		if g == nil {
			g = scanning.Guess{}
		}
		out.SingleGuess = &g
	default:
		return nil, fmt.Errorf("unknown result kind %q", r.Kind)
	}
	return json.Marshal(out)
}

func (r *Result) UnmarshalJSON(b []byte) error {
	var in resultJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}

	switch in.Kind {
	case KindCandidates:
		rec := fields.NewInvoiceRecord()
		if in.Candidates != nil {
			rec = *in.Candidates
		}
		var class document.Class
		if in.Class != nil {
			class = *in.Class
		}
		*r = CandidatesResult(rec, class, in.RawText)
	case KindSingleGuess:
		var g scanning.Guess
		if in.SingleGuess != nil {
			g = *in.SingleGuess
		}
		*r = SingleGuessResult(g)
	default:
		return fmt.Errorf("unknown result kind %q", in.Kind)
	}
	return nil
}
