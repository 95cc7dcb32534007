package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/api"
	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/flow"
	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/genai"
	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/geo"
	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/store"
	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/whatsapp"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for service state
	DefaultStateDir = "/var/lib/ritaj"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "ritaj.db"
	// DefaultWhatsAppDBFileName is the default whatsmeow device database filename
	DefaultWhatsAppDBFileName = "whatsmeow.db"
)

// Messaging backends selectable with -whatsapp-backend.
const (
	BackendCloud     = "cloud"
	BackendTwilio    = "twilio"
	BackendWhatsmeow = "whatsmeow"
	BackendNone      = "none"
)

// Config holds environment configuration
type Config struct {
	StateDir        string        `envconfig:"RITAJ_STATE_DIR" default:"/var/lib/ritaj"`
	DatabaseURL     string        `envconfig:"DATABASE_URL"`
	APIAddr         string        `envconfig:"API_ADDR" default:":8080"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"debug"`
	GeminiAPIKey    string        `envconfig:"GEMINI_API_KEY"`
	OpenAIAPIKey    string        `envconfig:"OPENAI_API_KEY"`
	ModelBaseURL    string        `envconfig:"MODEL_BASE_URL"`
	ModelName       string        `envconfig:"MODEL_NAME"`
	ModelTimeout    time.Duration `envconfig:"MODEL_TIMEOUT" default:"30s"`
	ModelDebug      bool          `envconfig:"MODEL_DEBUG"`
	WhatsAppBackend string        `envconfig:"WHATSAPP_BACKEND" default:"cloud"`
	WhatsAppDBDSN   string        `envconfig:"WHATSAPP_DB_DSN"`
	AppSecret       string        `envconfig:"WHATSAPP_APP_SECRET"`
	VerifyToken     string        `envconfig:"VERIFY_TOKEN"`
	GoogleMapsKey   string        `envconfig:"GOOGLE_MAPS_API_KEY"`
	DistanceCheck   bool          `envconfig:"DISTANCE_CHECK_ENABLED"`
	SessionTTL      time.Duration `envconfig:"SESSION_IDLE_TTL" default:"2h"`
	CallBindingTTL  time.Duration `envconfig:"CALL_BINDING_TTL" default:"1h"`
	Timezone        string        `envconfig:"RESTAURANT_TIMEZONE" default:"Asia/Dubai"`
	RateLimit       float64       `envconfig:"WEBHOOK_RATE_LIMIT" default:"2"`
	RateBurst       int           `envconfig:"WEBHOOK_RATE_BURST" default:"5"`
	AdminToken      string        `envconfig:"ADMIN_TOKEN"`
	SeedMenu        bool          `envconfig:"SEED_MENU" default:"true"`
}

// ModelAPIKey returns the Gemini key, falling back to the OpenAI key.
func (c Config) ModelAPIKey() string {
	if c.GeminiAPIKey != "" {
		return c.GeminiAPIKey
	}
	return c.OpenAIAPIKey
}

// Flags holds command line flag values
type Flags struct {
	stateDir        *string
	dbDSN           *string
	apiAddr         *string
	modelAPIKey     *string
	modelBaseURL    *string
	model           *string
	modelTimeout    *time.Duration
	whatsappBackend *string
	whatsappDSN     *string
	qrOutput        *string
	numeric         *bool
	distanceCheck   *bool
	sessionTTL      *time.Duration
	callTTL         *time.Duration
}

// initializeLogger sets up structured text logging at the given level (debug by default)
func initializeLogger(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil || level == "" {
		lvl = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return Config{}, fmt.Errorf("invalid environment configuration: %w", err)
	}

	slog.Debug("environment variables loaded",
		"RITAJ_STATE_DIR", config.StateDir,
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"API_ADDR", config.APIAddr,
		"MODEL_API_KEY_SET", config.ModelAPIKey() != "",
		"WHATSAPP_BACKEND", config.WhatsAppBackend,
		"DISTANCE_CHECK_ENABLED", config.DistanceCheck,
		"RESTAURANT_TIMEZONE", config.Timezone,
		"ADMIN_TOKEN_SET", config.AdminToken != "")
	return config, nil
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config, args []string) (Flags, error) {
	fs := flag.NewFlagSet("ritaj", flag.ContinueOnError)
	flags := Flags{
		stateDir:        fs.String("state-dir", config.StateDir, "state directory for the SQLite database, lock and whatsmeow session (overrides $RITAJ_STATE_DIR)"),
		dbDSN:           fs.String("db-dsn", config.DatabaseURL, "Postgres URL or SQLite path (overrides $DATABASE_URL; default <state-dir>/ritaj.db)"),
		apiAddr:         fs.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		modelAPIKey:     fs.String("model-api-key", config.ModelAPIKey(), "model API key (overrides $GEMINI_API_KEY / $OPENAI_API_KEY)"),
		modelBaseURL:    fs.String("model-base-url", config.ModelBaseURL, "OpenAI-compatible endpoint (overrides $MODEL_BASE_URL)"),
		model:           fs.String("model", config.ModelName, "model id (overrides $MODEL_NAME)"),
		modelTimeout:    fs.Duration("model-timeout", config.ModelTimeout, "timeout of one model call (overrides $MODEL_TIMEOUT)"),
		whatsappBackend: fs.String("whatsapp-backend", config.WhatsAppBackend, "messaging backend: cloud, twilio, whatsmeow or none (overrides $WHATSAPP_BACKEND)"),
		whatsappDSN:     fs.String("whatsapp-db-dsn", config.WhatsAppDBDSN, "whatsmeow device database (overrides $WHATSAPP_DB_DSN)"),
		qrOutput:        fs.String("qr-output", "", "path to write the whatsmeow login QR code"),
		numeric:         fs.Bool("numeric-code", false, "print the raw whatsmeow login code instead of a QR code"),
		distanceCheck:   fs.Bool("distance-check", config.DistanceCheck, "reject delivery addresses outside the delivery radius (overrides $DISTANCE_CHECK_ENABLED)"),
		sessionTTL:      fs.Duration("session-ttl", config.SessionTTL, "idle time before a conversation is evicted (overrides $SESSION_IDLE_TTL)"),
		callTTL:         fs.Duration("call-ttl", config.CallBindingTTL, "lifetime of a call to phone binding (overrides $CALL_BINDING_TTL)"),
	}
	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}

	if *flags.dbDSN == "" {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", *flags.dbDSN)
	}
	if *flags.whatsappDSN == "" {
		*flags.whatsappDSN = "file:" + filepath.Join(*flags.stateDir, DefaultWhatsAppDBFileName) + "?_foreign_keys=on"
	}

	switch *flags.whatsappBackend {
	case BackendCloud, BackendTwilio, BackendWhatsmeow, BackendNone:
	default:
		return Flags{}, fmt.Errorf("unknown whatsapp backend %q", *flags.whatsappBackend)
	}

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_type", store.DetectDSNType(*flags.dbDSN),
		"apiAddr", *flags.apiAddr,
		"modelKeySet", *flags.modelAPIKey != "",
		"model", *flags.model,
		"whatsappBackend", *flags.whatsappBackend,
		"distanceCheck", *flags.distanceCheck,
		"sessionTTL", *flags.sessionTTL,
		"callTTL", *flags.callTTL)
	return flags, nil
}

// ensureDirectoriesExist creates the state directory and the SQLite file's directory
func ensureDirectoriesExist(flags Flags) error {
	if err := os.MkdirAll(*flags.stateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory %s: %w", *flags.stateDir, err)
	}
	if store.DetectDSNType(*flags.dbDSN) == "sqlite3" {
		dir := filepath.Dir(*flags.dbDSN)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}
	return nil
}

// buildWhatsAppOptions constructs whatsmeow configuration options
func buildWhatsAppOptions(flags Flags) []whatsapp.Option {
	var waOpts []whatsapp.Option
	if *flags.qrOutput != "" {
		waOpts = append(waOpts, whatsapp.WithQRCodeOutput(*flags.qrOutput))
	}
	if *flags.numeric {
		waOpts = append(waOpts, whatsapp.WithNumericCode())
	}
	if *flags.whatsappDSN != "" {
		waOpts = append(waOpts, whatsapp.WithDBDSN(*flags.whatsappDSN))
	}
	return waOpts
}

// buildGenAIOptions constructs model client options
func buildGenAIOptions(config Config, flags Flags) []genai.Option {
	var genaiOpts []genai.Option
	if *flags.modelAPIKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.modelAPIKey))
	}
	if *flags.modelBaseURL != "" {
		genaiOpts = append(genaiOpts, genai.WithBaseURL(*flags.modelBaseURL))
	}
	if *flags.model != "" {
		genaiOpts = append(genaiOpts, genai.WithModel(*flags.model))
	}
	if *flags.modelTimeout > 0 {
		genaiOpts = append(genaiOpts, genai.WithTimeout(*flags.modelTimeout))
	}
	if config.ModelDebug {
		genaiOpts = append(genaiOpts, genai.WithDebugMode(true, *flags.stateDir))
	}
	return genaiOpts
}

// buildDispatcherOptions wires the delivery distance policy when enabled
func buildDispatcherOptions(config Config, flags Flags) []flow.DispatcherOption {
	if !*flags.distanceCheck {
		return nil
	}
	if config.GoogleMapsKey == "" {
		slog.Warn("Distance check enabled without GOOGLE_MAPS_API_KEY; every address will be rejected")
	}
	policy := geo.NewDistancePolicy(geo.NewGoogleGeocoder(config.GoogleMapsKey))
	return []flow.DispatcherOption{flow.WithDeliveryCheck(policy)}
}

// buildRegistryOptions constructs session registry options
func buildRegistryOptions(flags Flags) []flow.RegistryOption {
	return []flow.RegistryOption{flow.WithIdleTTL(*flags.sessionTTL)}
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(config Config, flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if config.AdminToken != "" {
		apiOpts = append(apiOpts, api.WithAdminToken(config.AdminToken))
	}
	if config.VerifyToken != "" {
		apiOpts = append(apiOpts, api.WithVerifyToken(config.VerifyToken))
	}
	if config.AppSecret != "" {
		apiOpts = append(apiOpts, api.WithAppSecret(config.AppSecret))
	}
	apiOpts = append(apiOpts, api.WithRateLimit(config.RateLimit, config.RateBurst))
	return apiOpts
}
