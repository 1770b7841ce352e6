package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/getemily/emily-api/internal/api"
	"github.com/getemily/emily-api/internal/auth"
	"github.com/getemily/emily-api/internal/connections"
	"github.com/getemily/emily-api/internal/genai"
	"github.com/getemily/emily-api/internal/store"
	"github.com/getemily/emily-api/internal/util"
	"github.com/getemily/emily-api/internal/wizard"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for Emily state data
	DefaultStateDir = "/var/lib/emily"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "emily.db"
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

	if *flags.jwtSecret == "" {
		slog.Error("No JWT secret configured; set EMILY_JWT_SECRET or --jwt-secret")
		os.Exit(1)
	}

	st, err := buildStore(flags)
	if err != nil {
		slog.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	// Keep the interface nil when Redis is absent; a typed nil pointer
	// inside the interface would defeat the Manager's cache check.
	var cache store.SessionStore
	if rc := buildSessionCache(flags); rc != nil {
		cache = rc
		defer rc.Close()
	}

	manager := wizard.NewManager(st, cache)
	submitter := wizard.NewSubmitter(st, manager)
	conns := connections.NewService(st, buildConnectionOptions(flags)...)
	generator := buildGenerator(flags)
	verifier := auth.NewVerifier(*flags.jwtSecret)

	server := api.NewServer(st, manager, submitter, conns, generator, verifier, buildAPIOptions(flags)...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Bootstrapping Emily API with configured modules")
	slog.Debug("Final configuration", "state_dir", *flags.stateDir, "dsn_set", *flags.dbDSN != "", "redis_set", *flags.redisAddr != "", "api_addr", *flags.apiAddr)
	if err := server.Run(ctx); err != nil {
		slog.Error("Emily API failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("Emily API exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL    string
	StateDir       string
	RedisAddr      string
	RedisPassword  string
	OpenAIKey      string
	JWTSecret      string
	APIAddr        string
	OAuthRedirect  string
	AllowedOrigins string
}

// Flags holds command line flag values
type Flags struct {
	stateDir       *string
	dbDSN          *string
	redisAddr      *string
	redisPassword  *string
	openaiKey      *string
	jwtSecret      *string
	apiAddr        *string
	oauthRedirect  *string
	allowedOrigins *string
}

// initializeLogger sets up structured logging; EMILY_DEBUG enables debug level
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("EMILY_DEBUG", false) {
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
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		StateDir:       os.Getenv("EMILY_STATE_DIR"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		JWTSecret:      os.Getenv("EMILY_JWT_SECRET"),
		APIAddr:        os.Getenv("API_ADDR"),
		OAuthRedirect:  os.Getenv("OAUTH_REDIRECT_URI"),
		AllowedOrigins: os.Getenv("ALLOWED_ORIGINS"),
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No EMILY_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	} else {
		slog.Debug("EMILY_STATE_DIR found in environment", "state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"EMILY_STATE_DIR", config.StateDir,
		"REDIS_ADDR", config.RedisAddr,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"EMILY_JWT_SECRET_SET", config.JWTSecret != "",
		"API_ADDR", config.APIAddr,
		"OAUTH_REDIRECT_URI", config.OAuthRedirect,
		"ALLOWED_ORIGINS", config.AllowedOrigins)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:       flag.String("state-dir", config.StateDir, "state directory for Emily data (overrides $EMILY_STATE_DIR)"),
		dbDSN:          flag.String("db-dsn", config.DatabaseURL, "database DSN for the durable store (overrides $DATABASE_URL)"),
		redisAddr:      flag.String("redis-addr", config.RedisAddr, "Redis address for wizard session caching (overrides $REDIS_ADDR)"),
		redisPassword:  flag.String("redis-password", config.RedisPassword, "Redis password (overrides $REDIS_PASSWORD)"),
		openaiKey:      flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		jwtSecret:      flag.String("jwt-secret", config.JWTSecret, "shared secret for bearer token verification (overrides $EMILY_JWT_SECRET)"),
		apiAddr:        flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		oauthRedirect:  flag.String("oauth-redirect-uri", config.OAuthRedirect, "OAuth gateway redirect URI (overrides $OAUTH_REDIRECT_URI)"),
		allowedOrigins: flag.String("allowed-origins", config.AllowedOrigins, "comma-separated origins accepted on OAuth callbacks (overrides $ALLOWED_ORIGINS)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"redisAddr", *flags.redisAddr,
		"openaiKeySet", *flags.openaiKey != "",
		"jwtSecretSet", *flags.jwtSecret != "",
		"apiAddr", *flags.apiAddr,
		"oauthRedirect", *flags.oauthRedirect,
		"allowedOrigins", *flags.allowedOrigins)

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "dsn_updated", true, "old_state_dir", config.StateDir, "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if store.DetectDSNType(*flags.dbDSN) == "sqlite" {
		stateDir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
			return err
		}
	}
	return nil
}

// buildStore constructs the durable store from the configured DSN
func buildStore(flags Flags) (store.Store, error) {
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_type", "postgresql", "dsn_set", true)
		return store.NewPostgresStore(store.WithPostgresDSN(*flags.dbDSN))
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "dsn_type", "sqlite", "db_path", *flags.dbDSN)
	return store.NewSQLiteStore(store.WithSQLiteDSN(*flags.dbDSN))
}

// buildSessionCache constructs the Redis session cache when configured.
// Without Redis the wizard still works; sessions just skip the cache tier.
func buildSessionCache(flags Flags) *store.RedisSessionStore {
	if *flags.redisAddr == "" {
		slog.Debug("No Redis address provided, wizard sessions will not be cached")
		return nil
	}
	var redisOpts []store.RedisOption
	redisOpts = append(redisOpts, store.WithRedisAddr(*flags.redisAddr))
	if *flags.redisPassword != "" {
		redisOpts = append(redisOpts, store.WithRedisPassword(*flags.redisPassword))
	}
	cache, err := store.NewRedisSessionStore(redisOpts...)
	if err != nil {
		slog.Warn("Failed to connect to Redis, continuing without session cache", "error", err)
		return nil
	}
	return cache
}

// buildConnectionOptions constructs connection service configuration options
func buildConnectionOptions(flags Flags) []connections.Option {
	var connOpts []connections.Option
	if *flags.oauthRedirect != "" {
		connOpts = append(connOpts, connections.WithGatewayRedirectURI(*flags.oauthRedirect))
	}
	if origins := util.SplitList(*flags.allowedOrigins); len(origins) > 0 {
		connOpts = append(connOpts, connections.WithAllowedOrigins(origins...))
	}
	return connOpts
}

// buildGenerator constructs the content generator when an API key is configured
func buildGenerator(flags Flags) *genai.Generator {
	if *flags.openaiKey == "" {
		slog.Debug("No OpenAI API key provided, content generation disabled")
		return nil
	}
	generator, err := genai.NewGenerator(genai.WithAPIKey(*flags.openaiKey))
	if err != nil {
		slog.Warn("Failed to initialize content generator", "error", err)
		return nil
	}
	return generator
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	return apiOpts
}
