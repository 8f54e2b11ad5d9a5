package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/SwiftSendNG/SwiftSend/internal/api"
	"github.com/SwiftSendNG/SwiftSend/internal/engine"
	"github.com/SwiftSendNG/SwiftSend/internal/genai"
	"github.com/SwiftSendNG/SwiftSend/internal/lockfile"
	"github.com/SwiftSendNG/SwiftSend/internal/messaging"
	"github.com/SwiftSendNG/SwiftSend/internal/router"
	"github.com/SwiftSendNG/SwiftSend/internal/scheduler"
	"github.com/SwiftSendNG/SwiftSend/internal/store"
	"github.com/SwiftSendNG/SwiftSend/internal/twiliowhatsapp"
	"github.com/SwiftSendNG/SwiftSend/internal/util"
	"github.com/SwiftSendNG/SwiftSend/internal/wacloud"
	"github.com/SwiftSendNG/SwiftSend/internal/whatsapp"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for SwiftSend state data
	DefaultStateDir = "/var/lib/swiftsend"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "swiftsend.db"
	// DefaultTransport is the messaging transport used when none is configured
	DefaultTransport = "cloud"
	// sweepCron runs the stale pending-delivery and link-code sweeps hourly
	sweepCron = "0 * * * *"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	lock, err := lockfile.AcquireLock(*flags.stateDir)
	if err != nil {
		slog.Error("Failed to acquire state directory lock", "error", err)
		os.Exit(1)
	}
	defer lock.Release()

	st, err := buildStore(flags)
	if err != nil {
		slog.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	gateway, err := buildGateway(flags)
	if err != nil {
		slog.Error("Failed to initialize messaging gateway", "error", err)
		os.Exit(1)
	}

	eng := engine.NewEngine(st)
	dispatcher := messaging.NewDispatcher(gateway)
	deduper := store.NewDeduper(store.DefaultDedupTTL)

	var routerOpts []router.Option
	if *flags.openaiKey != "" {
		os.Setenv("OPENAI_API_KEY", *flags.openaiKey)
		classifier, err := genai.NewClient()
		if err != nil {
			slog.Warn("GenAI classifier unavailable, rule parser only", "error", err)
		} else {
			routerOpts = append(routerOpts, router.WithClassifier(classifier))
		}
	}
	rt := router.NewRouter(st, eng, dispatcher, deduper, routerOpts...)

	sched := scheduler.NewScheduler()
	defer sched.Stop()
	if err := sched.AddJob("stale-sweep", sweepCron, func() {
		if _, err := eng.ExpirePending(context.Background()); err != nil {
			slog.Error("Stale delivery sweep failed", "error", err)
		}
		if n, err := st.DeleteExpiredLinkCodes(time.Now()); err != nil {
			slog.Error("Link code sweep failed", "error", err)
		} else if n > 0 {
			slog.Debug("Swept expired link codes", "count", n)
		}
	}); err != nil {
		slog.Error("Failed to schedule sweeps", "error", err)
		os.Exit(1)
	}

	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if *flags.verifyToken != "" {
		apiOpts = append(apiOpts, api.WithVerifyToken(*flags.verifyToken))
	}
	server := api.NewServer(st, eng, rt, gateway, apiOpts...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("Bootstrapping SwiftSend", "transport", *flags.transport, "api_addr", *flags.apiAddr)
	if err := server.Run(ctx); err != nil {
		slog.Error("SwiftSend failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("SwiftSend exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL  string
	StateDir     string
	Transport    string
	OpenAIKey    string
	APIAddr      string
	VerifyToken  string
	CloudToken   string
	CloudPhoneID string
	WhatsmeowDSN string
}

// Flags holds command line flag values
type Flags struct {
	stateDir     *string
	dbDSN        *string
	transport    *string
	openaiKey    *string
	apiAddr      *string
	verifyToken  *string
	cloudToken   *string
	cloudPhoneID *string
	whatsmeowDSN *string
	qrOutput     *string
	numeric      *bool
}

// initializeLogger sets up structured logging. SWIFTSEND_DEBUG=true lowers
// the level to debug.
func initializeLogger() {
	level := slog.LevelInfo
	if util.BoolEnv("SWIFTSEND_DEBUG", false) {
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
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		StateDir:     util.EnvOr("SWIFTSEND_STATE_DIR", DefaultStateDir),
		Transport:    util.EnvOr("SWIFTSEND_TRANSPORT", DefaultTransport),
		OpenAIKey:    os.Getenv("OPENAI_API_KEY"),
		APIAddr:      os.Getenv("API_ADDR"),
		VerifyToken:  os.Getenv("WEBHOOK_VERIFY_TOKEN"),
		CloudToken:   os.Getenv("WHATSAPP_CLOUD_TOKEN"),
		CloudPhoneID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
		WhatsmeowDSN: os.Getenv("WHATSAPP_DB_DSN"),
	}

	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"SWIFTSEND_STATE_DIR", config.StateDir,
		"SWIFTSEND_TRANSPORT", config.Transport,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr,
		"WEBHOOK_VERIFY_TOKEN_SET", config.VerifyToken != "",
		"WHATSAPP_CLOUD_TOKEN_SET", config.CloudToken != "")

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:     flag.String("state-dir", config.StateDir, "state directory for SwiftSend data (overrides $SWIFTSEND_STATE_DIR)"),
		dbDSN:        flag.String("db-dsn", config.DatabaseURL, "database DSN for the store (overrides $DATABASE_URL)"),
		transport:    flag.String("transport", config.Transport, "messaging transport: cloud, whatsmeow, or twilio (overrides $SWIFTSEND_TRANSPORT)"),
		openaiKey:    flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key for intent assist (overrides $OPENAI_API_KEY)"),
		apiAddr:      flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		verifyToken:  flag.String("verify-token", config.VerifyToken, "webhook verification token (overrides $WEBHOOK_VERIFY_TOKEN)"),
		cloudToken:   flag.String("cloud-token", config.CloudToken, "WhatsApp Cloud API access token (overrides $WHATSAPP_CLOUD_TOKEN)"),
		cloudPhoneID: flag.String("cloud-phone-id", config.CloudPhoneID, "WhatsApp Cloud API phone number id (overrides $WHATSAPP_PHONE_NUMBER_ID)"),
		whatsmeowDSN: flag.String("whatsmeow-dsn", config.WhatsmeowDSN, "whatsmeow session database DSN (overrides $WHATSAPP_DB_DSN)"),
		qrOutput:     flag.String("qr-output", "", "path to write whatsmeow login QR code"),
		numeric:      flag.Bool("numeric-code", false, "use numeric whatsmeow login code instead of QR code"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"transport", *flags.transport,
		"apiAddr", *flags.apiAddr)

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if store.DetectDSNType(*flags.dbDSN) != "postgres" {
		dir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating state directory for file-based database", "state_dir", dir)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.MkdirAll(*flags.stateDir, 0755)
}

// buildStore selects the store backend from the DSN.
func buildStore(flags Flags) (store.Store, error) {
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
		return store.NewPostgresStore(store.WithDSN(*flags.dbDSN))
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", *flags.dbDSN)
	return store.NewSQLiteStore(store.WithDSN(*flags.dbDSN))
}

// buildGateway constructs the messaging transport selected by configuration.
func buildGateway(flags Flags) (messaging.Gateway, error) {
	switch *flags.transport {
	case "whatsmeow":
		var waOpts []whatsapp.Option
		if *flags.whatsmeowDSN != "" {
			waOpts = append(waOpts, whatsapp.WithDBDSN(*flags.whatsmeowDSN))
		}
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
		client, err := twiliowhatsapp.NewClient()
		if err != nil {
			return nil, err
		}
		return messaging.NewTwilioService(client), nil

	default:
		client, err := wacloud.NewClient(
			wacloud.WithToken(*flags.cloudToken),
			wacloud.WithPhoneNumberID(*flags.cloudPhoneID),
		)
		if err != nil {
			return nil, err
		}
		return messaging.NewCloudService(client), nil
	}
}
