package scanning

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const DefaultGeminiModel = "gemini-2.5-pro"

// Gemini implements the Scanner interface using Google Gemini
type Gemini struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	timeout time.Duration
	payload *Payload
	logger  *slog.Logger
}

// NewGemini creates a new Gemini Scanner instance
func NewGemini(cfg ProviderConfig, payload *Payload, logger *slog.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: %w", ErrMissingCredentials)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if payload == nil {
		payload = NewPayload(nil, 0)
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}
	model.SetTemperature(float32(cfg.Temperature))

	return &Gemini{
		client:  client,
		model:   model,
		timeout: cfg.Timeout,
		payload: payload,
		logger:  logger,
	}, nil
}

// ScanInvoice sends the first page of the document to Gemini
func (g *Gemini) ScanInvoice(ctx context.Context, data []byte, ext string) (Guess, error) {
	jpegData, err := g.payload.Encode(ctx, data, ext)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	// genai.ImageData expects just the format suffix, not the MIME type
	resp, err := g.model.GenerateContent(ctx, genai.ImageData("jpeg", jpegData), genai.Text(userPrompt))
	if err != nil {
		return nil, &RemoteError{Provider: "gemini", Err: err}
	}

	var text strings.Builder
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text.WriteString(string(t))
			}
		}
	}

	return ParseResponse(text.String(), g.logger), nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
