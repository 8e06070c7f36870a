package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/SafePath-UK/SafePath/internal/api"
	"github.com/SafePath-UK/SafePath/internal/engine"
	"github.com/SafePath-UK/SafePath/internal/genai"
	"github.com/SafePath-UK/SafePath/internal/lockfile"
	"github.com/SafePath-UK/SafePath/internal/matcher"
	"github.com/SafePath-UK/SafePath/internal/messaging"
	"github.com/SafePath-UK/SafePath/internal/phrasebank"
	"github.com/SafePath-UK/SafePath/internal/store"
	"github.com/SafePath-UK/SafePath/internal/twiliosms"
	"github.com/SafePath-UK/SafePath/internal/util"
	"github.com/SafePath-UK/SafePath/internal/whatsapp"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for SafePath state data
	DefaultStateDir = "/var/lib/safepath"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "safepath.db"
	// DefaultWhatsAppDBFileName is the default whatsmeow session database filename
	DefaultWhatsAppDBFileName = "whatsmeow.db"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Ensure required directories exist
	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	// One instance per state directory
	lock, err := lockfile.AcquireLock(*flags.stateDir)
	if err != nil {
		slog.Error("Failed to acquire state directory lock", "error", err)
		os.Exit(1)
	}
	defer lock.Release()

	slog.Info("Bootstrapping SafePath with configured modules")
	if err := run(flags); err != nil {
		slog.Error("SafePath failed to run", "error", err)
		lock.Release()
		os.Exit(1)
	}
	slog.Info("SafePath exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL string
	WhatsAppDSN string
	StateDir    string
	OpenAIKey   string
	APIAddr     string
	Channel     string
}

// Flags holds command line flag values
type Flags struct {
	qrOutput  *string
	numeric   *bool
	stateDir  *string
	dbDSN     *string
	waDSN     *string
	openaiKey *string
	apiAddr   *string
	channel   *string
}

// initializeLogger sets up structured logging; SAFEPATH_DEBUG=true
// lowers the level to debug.
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("SAFEPATH_DEBUG", false) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		WhatsAppDSN: os.Getenv("WHATSAPP_DB_DSN"),
		StateDir:    os.Getenv("SAFEPATH_STATE_DIR"),
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		APIAddr:     os.Getenv("API_ADDR"),
		Channel:     os.Getenv("MESSAGING_CHANNEL"),
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No SAFEPATH_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	} else {
		slog.Debug("SAFEPATH_STATE_DIR found in environment", "state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}
	if config.WhatsAppDSN == "" {
		config.WhatsAppDSN = filepath.Join(config.StateDir, DefaultWhatsAppDBFileName)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"WHATSAPP_DB_DSN_SET", config.WhatsAppDSN != "",
		"SAFEPATH_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr,
		"MESSAGING_CHANNEL", config.Channel)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		qrOutput:  flag.String("qr-output", "", "path to write WhatsApp login QR code"),
		numeric:   flag.Bool("numeric-code", false, "use numeric WhatsApp login code instead of QR code"),
		stateDir:  flag.String("state-dir", config.StateDir, "state directory for SafePath data (overrides $SAFEPATH_STATE_DIR)"),
		dbDSN:     flag.String("db-dsn", config.DatabaseURL, "database DSN for the session store (overrides $DATABASE_URL)"),
		waDSN:     flag.String("whatsapp-db-dsn", config.WhatsAppDSN, "database DSN for the whatsmeow session store (overrides $WHATSAPP_DB_DSN)"),
		openaiKey: flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key for the reply classifier (overrides $OPENAI_API_KEY)"),
		apiAddr:   flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		channel:   flag.String("channel", config.Channel, "messaging channel: whatsapp, twilio, or empty for API only (overrides $MESSAGING_CHANNEL)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"qrOutput", *flags.qrOutput,
		"numeric", *flags.numeric,
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"waDSN_set", *flags.waDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"apiAddr", *flags.apiAddr,
		"channel", *flags.channel)

	// Update database DSNs if the state directory moved but the DSNs kept their defaults
	if *flags.stateDir != config.StateDir {
		if *flags.dbDSN == filepath.Join(config.StateDir, DefaultDBFileName) {
			*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
			slog.Debug("Updated dbDSN based on state directory", "new_state_dir", *flags.stateDir)
		}
		if *flags.waDSN == filepath.Join(config.StateDir, DefaultWhatsAppDBFileName) {
			*flags.waDSN = filepath.Join(*flags.stateDir, DefaultWhatsAppDBFileName)
			slog.Debug("Updated waDSN based on state directory", "new_state_dir", *flags.stateDir)
		}
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if err := os.MkdirAll(*flags.stateDir, 0755); err != nil {
		slog.Error("Failed to create state directory", "error", err, "state_dir", *flags.stateDir)
		return err
	}
	if !strings.Contains(*flags.dbDSN, "postgres://") && !strings.Contains(*flags.dbDSN, "host=") {
		dbDir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating directory for file-based database", "dir", dbDir)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			slog.Error("Failed to create database directory", "error", err, "dir", dbDir)
			return err
		}
	}
	return nil
}

// run wires the modules together and blocks until shutdown.
func run(flags Flags) error {
	bank, err := phrasebank.Load()
	if err != nil {
		return err
	}

	st, err := buildStore(flags)
	if err != nil {
		return err
	}
	defer st.Close()

	eng := engine.New(bank, buildClassifier(flags), matcher.New(st))
	server := api.NewServer(eng, st)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	msgService, err := buildMessagingService(flags)
	if err != nil {
		return err
	}
	if msgService != nil {
		if err := msgService.Start(ctx); err != nil {
			return err
		}
		defer msgService.Stop()

		handler := messaging.NewResponseHandler(msgService)
		handler.SetFallback(messaging.NewTriageResponder(msgService, st, eng).Action())
		handler.Start(ctx)

		if ts, ok := msgService.(*messaging.TwilioService); ok {
			server.RegisterWebhook("POST /webhook/twilio", ts.TwilioWebhookHandler)
		}
		slog.Info("Messaging channel started", "channel", *flags.channel)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Run(*flags.apiAddr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
		return server.Stop(context.Background())
	}
}

// buildStore selects a store backend from the configured DSN.
func buildStore(flags Flags) (store.Store, error) {
	dsn := *flags.dbDSN
	if dsn == "" {
		slog.Debug("No database DSN provided, using in-memory store")
		return store.NewInMemoryStore(), nil
	}
	if store.DetectDSNType(dsn) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_type", "postgresql")
		return store.NewPostgresStore(store.WithDSN(dsn))
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "dsn_type", "sqlite", "db_path", dsn)
	return store.NewSQLiteStore(store.WithDSN(dsn))
}

// buildClassifier creates the optional GenAI reply classifier. Without an
// API key the engine falls back to deterministic interpretation only.
func buildClassifier(flags Flags) engine.Classifier {
	client, err := genai.NewClient(genai.WithAPIKey(*flags.openaiKey))
	if err != nil {
		slog.Warn("GenAI classifier disabled", "reason", err)
		return nil
	}
	return client
}

// buildMessagingService creates the configured messaging channel, or nil
// when the deployment is API-only.
func buildMessagingService(flags Flags) (messaging.Service, error) {
	switch *flags.channel {
	case "":
		slog.Debug("No messaging channel configured, running API only")
		return nil, nil
	case "whatsapp":
		waOpts := []whatsapp.Option{whatsapp.WithDBDSN(*flags.waDSN)}
		if *flags.qrOutput != "" {
			waOpts = append(waOpts, whatsapp.WithQRCodeOutput(*flags.qrOutput))
		}
		if *flags.numeric {
			waOpts = append(waOpts, whatsapp.WithNumericCode())
		}
		client, err := whatsapp.NewClient(waOpts...)
		if err != nil {
			return nil, err
		}
		return messaging.NewWhatsAppService(client), nil
	case "twilio":
		client, err := twiliosms.NewClient()
		if err != nil {
			return nil, err
		}
		return messaging.NewTwilioService(client), nil
	default:
		slog.Warn("Unknown messaging channel, running API only", "channel", *flags.channel)
		return nil, nil
	}
}
