// Package ner recognizes named entities in free text.
package ner

import (
	"context"
	"sync"
)

// GroupOrganization is the entity group for company and vendor names
const GroupOrganization = "ORG"

// Entity is one aggregated entity span
type Entity struct {
	Group string  `json:"entity_group"`
	Word  string  `json:"word"`
	Score float64 `json:"score"`
	Start int     `json:"start"`
	End   int     `json:"end"`
}

// Recognizer finds grouped entities in text
type Recognizer interface {
	Recognize(ctx context.Context, text string) ([]Entity, error)
}

// Lazy builds its Recognizer on first use and reuses it for the life of the
// process. A construction error is remembered and returned on every call.
type Lazy struct {
	build func() (Recognizer, error)

	once sync.Once
	r    Recognizer
	err  error
}

// NewLazy wraps a Recognizer constructor
func NewLazy(build func() (Recognizer, error)) *Lazy {
	return &Lazy{build: build}
}

func (l *Lazy) Recognize(ctx context.Context, text string) ([]Entity, error) {
	l.once.Do(func() {
		l.r, l.err = l.build()
	})
	if l.err != nil {
		return nil, l.err
	}
	return l.r.Recognize(ctx, text)
}

// Static returns the same entities for any text
type Static []Entity

func (s Static) Recognize(ctx context.Context, text string) ([]Entity, error) {
	return s, nil
}

// Nop never finds anything
type Nop struct{}

func (Nop) Recognize(ctx context.Context, text string) ([]Entity, error) {
	return nil, nil
}
