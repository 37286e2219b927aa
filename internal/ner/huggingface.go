package ner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultModel is a BERT model fine-tuned for PER/ORG/LOC/MISC
	DefaultModel = "dslim/bert-base-NER"
	// DefaultBaseURL is the hosted inference endpoint prefix
	DefaultBaseURL = "https://api-inference.huggingface.co/models/"
)

// HuggingFace calls a token-classification inference endpoint
type HuggingFace struct {
	url    string
	token  string
	client *http.Client
	logger *slog.Logger
}

// NewHuggingFace creates a HuggingFace recognizer. An empty url uses the
// hosted DefaultModel; a url ending in "/" has DefaultModel appended.
func NewHuggingFace(url, token string, logger *slog.Logger) *HuggingFace {
	if url == "" {
		url = DefaultBaseURL
	}
	if strings.HasSuffix(url, "/") {
		url += DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HuggingFace{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

type inferenceRequest struct {
	Inputs     string              `json:"inputs"`
	Parameters inferenceParameters `json:"parameters"`
}

type inferenceParameters struct {
	AggregationStrategy string `json:"aggregation_strategy"`
}

// Recognize returns the entities found in text, with sub-word tokens merged
func (h *HuggingFace) Recognize(ctx context.Context, text string) ([]Entity, error) {
	body, err := json.Marshal(inferenceRequest{
		Inputs:     text,
		Parameters: inferenceParameters{AggregationStrategy: "simple"},
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling NER endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("NER endpoint error (status %d): %s", resp.StatusCode, string(msg))
	}

	var entities []Entity
	if err := json.NewDecoder(resp.Body).Decode(&entities); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	h.logger.Debug("ner.recognize.ok", "entities", len(entities))
	return entities, nil
}
