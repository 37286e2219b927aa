package scanning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1/"
	DefaultGroqModel   = "meta-llama/llama-4-scout-17b-16e-instruct"
)

// ProviderConfig configures a hosted model provider
type ProviderConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// Groq implements the Scanner interface using Groq's OpenAI-compatible API
type Groq struct {
	client      openai.Client
	model       string
	temperature float64
	timeout     time.Duration
	payload     *Payload
	logger      *slog.Logger
}

// NewGroq creates a new Groq Scanner instance
func NewGroq(cfg ProviderConfig, payload *Payload, logger *slog.Logger) (*Groq, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("groq: %w", ErrMissingCredentials)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGroqBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGroqModel
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

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(0),
	)

	return &Groq{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		payload:     payload,
		logger:      logger,
	}, nil
}

// ScanInvoice sends the first page of the document to Groq
func (g *Groq) ScanInvoice(ctx context.Context, data []byte, ext string) (Guess, error) {
	b64, err := g.payload.EncodeBase64(ctx, data, ext)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(userPrompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: dataURI(b64),
				}),
			}),
		},
		Temperature: openai.Float(g.temperature),
	})
	if err != nil {
		return nil, groqError(err)
	}

	var content string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}
	g.logger.Debug("remote.groq.ok", "model", g.model, "duration_ms", time.Since(start).Milliseconds(), "content_len", len(content))

	return ParseResponse(content, g.logger), nil
}

func groqError(err error) *RemoteError {
	remote := &RemoteError{Provider: "groq", Err: err}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		remote.StatusCode = apiErr.StatusCode
	}
	return remote
}

// Close is a no-op for the HTTP client
func (g *Groq) Close() error {
	return nil
}
