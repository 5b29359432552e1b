package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/cleanscan/internal/geo"
	"github.com/zombor/cleanscan/internal/scanning"
)

// EnvPrefix prefixes every flag's environment variable, e.g. CLEANSCAN_PORT
const EnvPrefix = "CLEANSCAN"

// Classification providers
const (
	ProviderGateway = "gateway"
	ProviderGemini  = "gemini"
	ProviderVertex  = "vertex"
	ProviderOllama  = "ollama"
)

// Config is the process configuration
type Config struct {
	Port     int
	Provider string

	GatewayURL   string
	GatewayKey   string
	GatewayModel string

	GeminiKey   string
	GeminiModel string

	VertexProject     string
	VertexLocation    string
	VertexModel       string
	VertexCredentials string

	OllamaURL   string
	OllamaModel string

	GeocoderURL  string
	GeocodeCache string

	AuthUser string
	AuthPass string

	RatePerMinute int
	RateBurst     int
	Timeout       time.Duration

	TelegramToken string

	LogLevel  string
	LogFormat string

	ShowVersion bool
}

// Parse reads flags from args and CLEANSCAN_* environment variables.
// API keys left empty fall back to their conventional variables, read
// through getenv. On error the returned string is the flag help.
func Parse(args []string, getenv func(string) string) (*Config, string, error) {
	fs := ff.NewFlagSet("cleanscan")
	var (
		port           = fs.IntLong("port", 8080, "HTTP server port")
		provider       = fs.StringLong("provider", ProviderGateway, "Classification provider: 'gateway', 'gemini', 'vertex' or 'ollama'")
		gatewayURL     = fs.StringLong("gateway-url", scanning.DefaultGatewayURL, "OpenAI-compatible AI gateway base URL")
		gatewayKey     = fs.StringLong("gateway-key", "", "AI gateway API key (or set GATEWAY_API_KEY / LOVABLE_API_KEY env var)")
		gatewayModel   = fs.StringLong("gateway-model", scanning.DefaultGatewayModel, "AI gateway model name")
		geminiKey      = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel    = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		vertexProject  = fs.StringLong("vertex-project", "", "Google Cloud project for Vertex AI")
		vertexLocation = fs.StringLong("vertex-location", "us-central1", "Vertex AI location")
		vertexModel    = fs.StringLong("vertex-model", "gemini-2.5-flash", "Vertex AI model name")
		vertexCreds    = fs.StringLong("vertex-credentials", "", "Service account credentials file (default: application default credentials)")
		ollamaURL      = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel    = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, qwen2.5vl)")
		geocoderURL    = fs.StringLong("geocoder-url", geo.DefaultNominatimURL, "Nominatim base URL for reverse geocoding; empty disables geocoding")
		geocodeCache   = fs.StringLong("geocode-cache", "cleanscan-geo.db", "Reverse-geocode cache file; empty disables caching")
		authUser       = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass       = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		ratePerMinute  = fs.IntLong("rate-per-minute", 10, "Scans allowed per client per minute; 0 disables limiting")
		rateBurst      = fs.IntLong("rate-burst", 3, "Scans a client may make in a burst")
		timeoutSeconds = fs.IntLong("timeout-seconds", 60, "Classification timeout in seconds")
		telegramToken  = fs.StringLong("telegram-token", "", "Telegram bot token; enables the bot (or set TELEGRAM_BOT_TOKEN env var)")
		logLevel       = fs.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		logFormat      = fs.StringLong("log-format", "text", "Log format: 'text' or 'json'")
		showVersion    = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix(EnvPrefix)); err != nil {
		return nil, fmt.Sprint(ffhelp.Flags(fs)), err
	}

	cfg := &Config{
		Port:              *port,
		Provider:          strings.ToLower(strings.TrimSpace(*provider)),
		GatewayURL:        *gatewayURL,
		GatewayKey:        firstSet(*gatewayKey, getenv("GATEWAY_API_KEY"), getenv("LOVABLE_API_KEY")),
		GatewayModel:      *gatewayModel,
		GeminiKey:         firstSet(*geminiKey, getenv("GEMINI_API_KEY")),
		GeminiModel:       *geminiModel,
		VertexProject:     *vertexProject,
		VertexLocation:    *vertexLocation,
		VertexModel:       *vertexModel,
		VertexCredentials: *vertexCreds,
		OllamaURL:         *ollamaURL,
		OllamaModel:       *ollamaModel,
		GeocoderURL:       *geocoderURL,
		GeocodeCache:      *geocodeCache,
		AuthUser:          *authUser,
		AuthPass:          *authPass,
		RatePerMinute:     *ratePerMinute,
		RateBurst:         *rateBurst,
		Timeout:           time.Duration(*timeoutSeconds) * time.Second,
		TelegramToken:     firstSet(*telegramToken, getenv("TELEGRAM_BOT_TOKEN")),
		LogLevel:          *logLevel,
		LogFormat:         strings.ToLower(*logFormat),
		ShowVersion:       *showVersion,
	}
	return cfg, fmt.Sprint(ffhelp.Flags(fs)), nil
}

// Validate checks the provider selection and its credentials
func (c *Config) Validate() error {
	var errs []error

	switch c.Provider {
	case ProviderGateway:
		if c.GatewayKey == "" {
			errs = append(errs, errors.New("gateway API key is required. Set --gateway-key flag or GATEWAY_API_KEY environment variable"))
		}
	case ProviderGemini:
		if c.GeminiKey == "" {
			errs = append(errs, errors.New("gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable"))
		}
	case ProviderVertex:
		if c.VertexProject == "" {
			errs = append(errs, errors.New("vertex AI project is required. Set --vertex-project flag"))
		}
	case ProviderOllama:
		if c.OllamaURL == "" {
			errs = append(errs, errors.New("ollama URL is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid provider %q: valid providers are gateway, gemini, vertex or ollama", c.Provider))
	}

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", c.Port))
	}
	if c.Timeout <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}
	if _, err := c.level(); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("invalid log format %q: valid formats are text or json", c.LogFormat))
	}

	return errors.Join(errs...)
}

// Logger builds the process logger writing to w
func (c *Config) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := c.level()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func (c *Config) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return level, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return level, nil
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
