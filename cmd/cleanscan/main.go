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
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/zombor/cleanscan/internal/config"
	"github.com/zombor/cleanscan/internal/geo"
	"github.com/zombor/cleanscan/internal/scan"
	"github.com/zombor/cleanscan/internal/scanning"
	"github.com/zombor/cleanscan/internal/telegram"
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

	cfg, help, err := config.Parse(os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", help)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if cfg.ShowVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	logger, err := cfg.Logger(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Fatal error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	classifier, err := newClassifier(ctx, cfg)
	if err != nil {
		return err
	}
	defer classifier.Close()

	locator, closeLocator, err := newLocator(cfg)
	if err != nil {
		return err
	}
	defer closeLocator()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := scan.NewMetrics(registry)

	service := scan.NewService(classifier, locator, metrics, cfg.Timeout)

	if cfg.TelegramToken != "" {
		bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
		if err != nil {
			return fmt.Errorf("initializing telegram bot: %w", err)
		}
		router := telegram.NewRouter(bot, service, scan.NewLimiter(cfg.RatePerMinute, cfg.RateBurst), metrics)
		go router.Run(ctx, bot)
	}

	server := scan.NewServer(service, scan.ServerConfig{
		BasicAuth:     scan.BasicAuth{Username: cfg.AuthUser, Password: cfg.AuthPass},
		RatePerMinute: cfg.RatePerMinute,
		RateBurst:     cfg.RateBurst,
		Gatherer:      registry,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version, "provider", classifier.Name())
	if cfg.AuthUser != "" || cfg.AuthPass != "" {
		slog.Info("Basic auth enabled", "user", cfg.AuthUser)
	}

	return server.Start(ctx, addr)
}

// newClassifier initializes the configured classification provider
func newClassifier(ctx context.Context, cfg *config.Config) (scanning.Classifier, error) {
	switch cfg.Provider {
	case config.ProviderGateway:
		slog.Info("Initializing AI gateway classifier...", "url", cfg.GatewayURL, "model", cfg.GatewayModel)
		return scanning.NewGateway(cfg.GatewayURL, cfg.GatewayKey, cfg.GatewayModel, cfg.Timeout), nil
	case config.ProviderGemini:
		slog.Info("Initializing Gemini classifier...", "model", cfg.GeminiModel)
		c, err := scanning.NewGemini(ctx, cfg.GeminiKey, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("initializing gemini: %w", err)
		}
		return c, nil
	case config.ProviderVertex:
		slog.Info("Initializing Vertex AI classifier...", "project", cfg.VertexProject, "location", cfg.VertexLocation, "model", cfg.VertexModel)
		c, err := scanning.NewVertex(ctx, cfg.VertexProject, cfg.VertexLocation, cfg.VertexModel, cfg.VertexCredentials)
		if err != nil {
			return nil, fmt.Errorf("initializing vertex: %w", err)
		}
		return c, nil
	case config.ProviderOllama:
		slog.Info("Initializing Ollama classifier...", "url", cfg.OllamaURL, "model", cfg.OllamaModel)
		return scanning.NewOllama(cfg.OllamaURL, cfg.OllamaModel, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("invalid provider %q", cfg.Provider)
	}
}

// newLocator builds the reverse geocoder, cached in bbolt when a cache file
// is configured. A nil locator means coordinates are never resolved.
func newLocator(cfg *config.Config) (geo.Locator, func(), error) {
	noop := func() {}
	if cfg.GeocoderURL == "" {
		slog.Info("Reverse geocoding disabled")
		return nil, noop, nil
	}

	nominatim := geo.NewNominatim(cfg.GeocoderURL, 10*time.Second)
	if cfg.GeocodeCache == "" {
		return nominatim, noop, nil
	}

	slog.Info("Initializing geocode cache...", "path", cfg.GeocodeCache)
	cache, err := geo.NewBoltCache(cfg.GeocodeCache)
	if err != nil {
		return nil, noop, fmt.Errorf("initializing geocode cache: %w", err)
	}
	return geo.NewCached(nominatim, cache), func() {
		if err := cache.Close(); err != nil {
			slog.Error("Error closing geocode cache", "error", err)
		}
	}, nil
}
