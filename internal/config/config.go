// Package config reads the server settings from flags, INVOICE_EXTRACTOR_*
// environment variables and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/invoice-extractor/internal/ner"
	"github.com/zombor/invoice-extractor/internal/scanning"
)

const EnvPrefix = "INVOICE_EXTRACTOR"

// Config holds everything main needs to wire the server
type Config struct {
	Port        int
	DBPath      string
	StoragePath string
	LogLevel    string
	LogFormat   string

	Scanner       string
	GroqKey       string
	GroqURL       string
	GroqModel     string
	GeminiKey     string
	GeminiModel   string
	OllamaURL     string
	OllamaModel   string
	RemoteTimeout time.Duration
	Temperature   float64

	Rasterizer    string
	PopplerPath   string
	DPI           int
	MaxPages      int
	Tesseract     string
	TessdataDir   string
	OCRLang       string
	OCRTimeout    time.Duration
	TolerantPages bool

	NERURL   string
	NERToken string

	AuthUser string
	AuthPass string

	ShowVersion bool
}

// LoadDotEnv loads variables from the given files (".env" when none are
// given). Missing files are ignored and set variables are never overridden.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		_ = godotenv.Load(p)
	}
}

// Parse reads flags from args and INVOICE_EXTRACTOR_* variables from the
// environment. API keys fall back to GROQ_API_KEY and GEMINI_API_KEY.
func Parse(args []string) (*Config, error) {
	c := &Config{}
	fs := ff.NewFlagSet("invoice-extractor")

	fs.IntVar(&c.Port, 0, "port", 8080, "HTTP server port")
	fs.StringVar(&c.DBPath, 0, "db", "invoice-extractor.db", "Database file path")
	fs.StringVar(&c.StoragePath, 0, "storage", "./uploads", "Upload storage directory")
	fs.StringVar(&c.LogLevel, 0, "log-level", "info", "Log level: debug, info, warn or error")
	fs.StringVar(&c.LogFormat, 0, "log-format", "text", "Log format: text or json")

	fs.StringVar(&c.Scanner, 0, "scanner", "groq", "Remote scanner: groq, gemini, ollama or none")
	fs.StringVar(&c.GroqKey, 0, "groq-key", "", "Groq API key (or set GROQ_API_KEY env var)")
	fs.StringVar(&c.GroqURL, 0, "groq-url", scanning.DefaultGroqBaseURL, "Groq OpenAI-compatible base URL")
	fs.StringVar(&c.GroqModel, 0, "groq-model", scanning.DefaultGroqModel, "Groq vision model")
	fs.StringVar(&c.GeminiKey, 0, "gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
	fs.StringVar(&c.GeminiModel, 0, "gemini-model", scanning.DefaultGeminiModel, "Google Gemini model name")
	fs.StringVar(&c.OllamaURL, 0, "ollama-url", scanning.DefaultOllamaBaseURL, "Ollama API base URL")
	fs.StringVar(&c.OllamaModel, 0, "ollama-model", scanning.DefaultOllamaModel, "Ollama model name")
	fs.DurationVar(&c.RemoteTimeout, 0, "remote-timeout", 60*time.Second, "Timeout for one remote extraction")
	fs.Float64Var(&c.Temperature, 0, "temperature", 0.3, "Sampling temperature for remote models")

	fs.StringVar(&c.Rasterizer, 0, "rasterizer", "fitz", "PDF rasterizer: fitz or poppler")
	fs.StringVar(&c.PopplerPath, 0, "poppler-path", "", "Directory containing pdftoppm")
	fs.IntVar(&c.DPI, 0, "dpi", 200, "Rasterization resolution")
	fs.IntVar(&c.MaxPages, 0, "max-pages", 0, "Maximum PDF pages to OCR (0 means all)")
	fs.StringVar(&c.Tesseract, 0, "tesseract", "tesseract", "Tesseract binary")
	fs.StringVar(&c.TessdataDir, 0, "tessdata-dir", "", "Tesseract tessdata directory")
	fs.StringVar(&c.OCRLang, 0, "ocr-lang", "eng", "Tesseract language")
	fs.DurationVar(&c.OCRTimeout, 0, "ocr-timeout", 2*time.Minute, "Timeout for OCR of one document")
	fs.BoolVar(&c.TolerantPages, 0, "tolerant-pages", "Skip PDF pages that fail OCR instead of failing the document")

	fs.StringVar(&c.NERURL, 0, "ner-url", "", "Token classification endpoint for vendor names, e.g. "+ner.DefaultBaseURL+" (empty disables)")
	fs.StringVar(&c.NERToken, 0, "ner-token", "", "Bearer token for the NER endpoint (or set HF_TOKEN env var)")

	fs.StringVar(&c.AuthUser, 0, "auth-user", "", "Basic auth username (optional)")
	fs.StringVar(&c.AuthPass, 0, "auth-pass", "", "Basic auth password (optional)")
	fs.BoolVar(&c.ShowVersion, 0, "version", "Show version information")

	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix(EnvPrefix)); err != nil {
		return nil, fmt.Errorf("%s\n%w", ffhelp.Flags(fs), err)
	}

	c.GroqKey = orEnv(c.GroqKey, "GROQ_API_KEY")
	c.GeminiKey = orEnv(c.GeminiKey, "GEMINI_API_KEY")
	c.NERToken = orEnv(c.NERToken, "HF_TOKEN")
	return c, nil
}

func orEnv(v, key string) string {
	if v != "" {
		return v
	}
	return os.Getenv(key)
}

// Validate reports settings that should stop startup
func (c *Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}

	switch c.Scanner {
	case "groq", "gemini", "ollama", "none":
	default:
		errs = append(errs, fmt.Errorf("unknown scanner %q (groq, gemini, ollama or none)", c.Scanner))
	}

	switch c.Rasterizer {
	case "fitz":
	case "poppler":
		if c.PopplerPath == "" {
			errs = append(errs, errors.New("poppler rasterizer needs --poppler-path"))
		} else if info, err := os.Stat(filepath.Join(c.PopplerPath, "pdftoppm")); err != nil || info.IsDir() {
			errs = append(errs, fmt.Errorf("pdftoppm not found in %s", c.PopplerPath))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown rasterizer %q (fitz or poppler)", c.Rasterizer))
	}

	if c.DPI <= 0 {
		errs = append(errs, fmt.Errorf("dpi must be positive, got %d", c.DPI))
	}
	if c.MaxPages < 0 {
		errs = append(errs, fmt.Errorf("max-pages must not be negative, got %d", c.MaxPages))
	}
	if c.RemoteTimeout <= 0 || c.OCRTimeout <= 0 {
		errs = append(errs, errors.New("timeouts must be positive"))
	}

	return errors.Join(errs...)
}

// Level parses the configured log level
func (c *Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return lvl, nil
}

// NewLogger builds the process logger for w
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	lvl, err := c.Level()
	if err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
