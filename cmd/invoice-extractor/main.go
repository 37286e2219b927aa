package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/zombor/invoice-extractor/internal/config"
	"github.com/zombor/invoice-extractor/internal/document"
	"github.com/zombor/invoice-extractor/internal/fields"
	"github.com/zombor/invoice-extractor/internal/invoice"
	"github.com/zombor/invoice-extractor/internal/ner"
	"github.com/zombor/invoice-extractor/internal/ocr"
	"github.com/zombor/invoice-extractor/internal/pdftext"
	"github.com/zombor/invoice-extractor/internal/pipeline"
	"github.com/zombor/invoice-extractor/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	config.LoadDotEnv()
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration:\n%v\n", err)
		os.Exit(1)
	}

	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	// Initialize database
	slog.Info("Initializing database...", "path", cfg.DBPath)
	db, err := invoice.NewBoltDB(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize storage
	slog.Info("Initializing storage...", "path", cfg.StoragePath)
	store, err := invoice.NewLocalStorage(cfg.StoragePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	var rasterizer ocr.Rasterizer = ocr.FitzRasterizer{}
	if cfg.Rasterizer == "poppler" {
		rasterizer = ocr.NewPopplerRasterizer(cfg.PopplerPath, nil, logger)
	}

	scanner := newScanner(cfg, scanning.NewPayload(rasterizer, cfg.DPI), logger)
	if scanner != nil {
		defer scanner.Close()
	}

	var recognizer ner.Recognizer = ner.Nop{}
	if cfg.NERURL != "" {
		slog.Info("Vendor recognition enabled", "url", cfg.NERURL)
		recognizer = ner.NewLazy(func() (ner.Recognizer, error) {
			return ner.NewHuggingFace(cfg.NERURL, cfg.NERToken, logger), nil
		})
	}

	components := pipeline.Components{
		Classifier: document.NewClassifier(document.FitzProber{}, logger),
		Readable:   pdftext.NewExtractor(pdftext.NewRunLayout(), logger),
		Recognizer: ocr.NewAdapter(ocr.Config{
			Lang:          cfg.OCRLang,
			DPI:           cfg.DPI,
			MaxPages:      cfg.MaxPages,
			TolerantPages: cfg.TolerantPages,
			Timeout:       cfg.OCRTimeout,
		}, rasterizer, ocr.NewTesseract(cfg.Tesseract, cfg.TessdataDir, nil, logger), logger),
		Fields:  fields.NewExtractor(recognizer, logger),
		Scanner: scanner,
	}

	service := invoice.NewService(db, store, pipeline.New(components, logger), logger)
	server := invoice.NewServer(service, invoice.BasicAuth{
		Username: cfg.AuthUser,
		Password: cfg.AuthPass,
	}, logger)

	if cfg.AuthUser != "" || cfg.AuthPass != "" {
		slog.Info("Basic auth enabled", "user", cfg.AuthUser)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf(":%d", cfg.Port)
	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)
	if err := server.Start(ctx, addr); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	slog.Info("Shutting down...")
}

// newScanner builds the configured remote provider. Missing credentials leave
// the server running without one; remote requests then fail as a
// configuration error.
func newScanner(cfg *config.Config, payload *scanning.Payload, logger *slog.Logger) scanning.Scanner {
	pc := scanning.ProviderConfig{
		Temperature: cfg.Temperature,
		Timeout:     cfg.RemoteTimeout,
	}

	var (
		scanner scanning.Scanner
		err     error
	)
	switch cfg.Scanner {
	case "groq":
		pc.APIKey, pc.BaseURL, pc.Model = cfg.GroqKey, cfg.GroqURL, cfg.GroqModel
		slog.Info("Initializing Groq scanner...", "model", pc.Model)
		var g *scanning.Groq
		if g, err = scanning.NewGroq(pc, payload, logger); err == nil {
			scanner = g
		}
	case "gemini":
		pc.APIKey, pc.Model = cfg.GeminiKey, cfg.GeminiModel
		slog.Info("Initializing Gemini scanner...", "model", pc.Model)
		var g *scanning.Gemini
		if g, err = scanning.NewGemini(pc, payload, logger); err == nil {
			scanner = g
		}
	case "ollama":
		pc.BaseURL, pc.Model = cfg.OllamaURL, cfg.OllamaModel
		slog.Info("Initializing Ollama scanner...", "url", pc.BaseURL, "model", pc.Model)
		var o *scanning.Ollama
		if o, err = scanning.NewOllama(pc, payload, logger); err == nil {
			scanner = o
		}
	default:
		slog.Info("Remote extraction disabled")
		return nil
	}

	if err != nil {
		slog.Warn("Remote extraction unavailable", "scanner", cfg.Scanner, "error", err)
		return nil
	}
	return scanner
}
