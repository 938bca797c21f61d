// Package config provides application configuration loaded from an optional
// YAML file, a .env file and environment variables, with defaults and
// validation. It centralizes server, database, feed, sync, broadcast and
// observability settings.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "matchday-live")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// AuthConfig holds the credentials accepted by the sync trigger and admin routes.
type AuthConfig struct {
	CronSecret string // CRON_SECRET, compared against the x-cron-secret header
	JWTSecret  string // ADMIN_JWT_SECRET, HS256 key for admin sessions
	AdminRole  string // ADMIN_ROLE, required value of the user_role claim
}

// FeedConfig configures the external fixture feed client.
type FeedConfig struct {
	BaseURL string        // FEED_BASE_URL
	APIKey  string        // FEED_API_KEY
	Host    string        // FEED_RAPIDAPI_HOST; when set, RapidAPI headers are used
	Timeout time.Duration // FEED_TIMEOUT
	Proxy   string        // FEED_PROXY, optional http(s) proxy URL
	RPS     float64       // FEED_RPS, outbound requests per second (0 = unlimited)
}

// SyncConfig configures the sync engine and its in-process scheduler.
type SyncConfig struct {
	SchedulerEnabled bool          // SYNC_SCHEDULER_ENABLED
	Interval         time.Duration // SYNC_INTERVAL
	InterMatchDelay  time.Duration // SYNC_INTER_MATCH_DELAY
	MatchTimeout     time.Duration // SYNC_MATCH_TIMEOUT
	ErrorRingSize    int           // SYNC_ERROR_RING_SIZE
}

// NATSConfig configures fan-out of live updates over NATS JetStream.
type NATSConfig struct {
	Enabled       bool   // NATS_ENABLED
	URL           string // NATS_URL
	Stream        string // NATS_STREAM
	SubjectPrefix string // NATS_SUBJECT_PREFIX
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // 0 disables; the timer stream is long-lived
	IdleTimeout       time.Duration // e.g. 60s
	ShutdownTimeout   time.Duration // graceful shutdown budget
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	LogRedact      bool   // scrub credentials and PII from access logs
	SwaggerEnabled bool   // enable Swagger UI route
	PprofEnabled   bool   // expose /debug/pprof
	APIBasePath    string // base path for API routes

	// Database
	DBDriver    string // sqlite|postgres
	DBPath      string // SQLite path
	DatabaseURL string // Postgres DSN

	Auth AuthConfig
	Feed FeedConfig
	Sync SyncConfig
	NATS NATSConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from config/matchday.yaml (or CONFIG_FILE), a .env
// file and the environment, applies defaults, normalizes values, and validates
// the result. Environment variables win over the file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	if f := strings.TrimSpace(os.Getenv("CONFIG_FILE")); f != "" {
		v.SetConfigFile(f)
	} else {
		v.SetConfigName("matchday")
		v.SetConfigType("yaml")
		v.AddConfigPath("config")
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return Config{}, errors.New("config file: " + err.Error())
		}
	}
	src := source{v: v}

	cfg := Config{
		// Server
		Port:              src.str("PORT", "8080"),
		ReadTimeout:       src.dur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: src.dur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      src.dur("WRITE_TIMEOUT", 0),
		IdleTimeout:       src.dur("IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:   src.dur("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxHeaderBytes:    src.integer("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(src.str("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(src.str("LOG_LEVEL", "info")),
		LogPretty:      src.boolean("LOG_PRETTY", false),
		LogRedact:      src.boolean("LOG_REDACT", true),
		SwaggerEnabled: src.boolean("SWAGGER_ENABLED", false),
		PprofEnabled:   src.boolean("PPROF_ENABLED", false),
		APIBasePath:    normalizeBasePath(src.str("API_BASE_PATH", "/api/v1")),

		// Database
		DBDriver:    strings.ToLower(src.str("DB_DRIVER", "sqlite")),
		DBPath:      src.str("DB_PATH", "matchday.db"),
		DatabaseURL: src.str("DATABASE_URL", ""),

		Auth: AuthConfig{
			CronSecret: src.str("CRON_SECRET", ""),
			JWTSecret:  src.str("ADMIN_JWT_SECRET", ""),
			AdminRole:  src.str("ADMIN_ROLE", "admin"),
		},

		Feed: FeedConfig{
			BaseURL: strings.TrimRight(src.str("FEED_BASE_URL", "https://v3.football.api-sports.io"), "/"),
			APIKey:  src.str("FEED_API_KEY", ""),
			Host:    src.str("FEED_RAPIDAPI_HOST", ""),
			Timeout: src.dur("FEED_TIMEOUT", 10*time.Second),
			Proxy:   src.str("FEED_PROXY", ""),
			RPS:     src.float("FEED_RPS", 5.0),
		},

		Sync: SyncConfig{
			SchedulerEnabled: src.boolean("SYNC_SCHEDULER_ENABLED", false),
			Interval:         src.dur("SYNC_INTERVAL", 30*time.Second),
			InterMatchDelay:  src.dur("SYNC_INTER_MATCH_DELAY", time.Second),
			MatchTimeout:     src.dur("SYNC_MATCH_TIMEOUT", 20*time.Second),
			ErrorRingSize:    src.integer("SYNC_ERROR_RING_SIZE", 10),
		},

		NATS: NATSConfig{
			Enabled:       src.boolean("NATS_ENABLED", false),
			URL:           src.str("NATS_URL", "nats://127.0.0.1:4222"),
			Stream:        src.str("NATS_STREAM", "MATCHDAY"),
			SubjectPrefix: src.str("NATS_SUBJECT_PREFIX", "matchday"),
		},

		// Rate limiting
		RateRPS:   src.float("RATE_RPS", 5.0),
		RateBurst: src.integer("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(src.str("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: src.boolean("ENABLE_HSTS", false),
			HSTSMaxAge: src.dur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: src.dur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     src.boolean("OTEL_ENABLED", false),
			Endpoint:    src.str("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    src.boolean("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: src.str("OTEL_SERVICE_NAME", "matchday-live"),
			SampleRatio: src.float("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.DBDriver == "postgresql" {
		cfg.DBDriver = "postgres"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.IdleTimeout <= 0 || cfg.ShutdownTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.WriteTimeout < 0 {
		return cfg, errors.New("WRITE_TIMEOUT must be >= 0")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	switch cfg.DBDriver {
	case "sqlite":
		if strings.TrimSpace(cfg.DBPath) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return cfg, errors.New("DATABASE_URL required when DB_DRIVER=postgres")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be sqlite or postgres")
	}
	if cfg.Feed.Timeout <= 0 {
		return cfg, errors.New("FEED_TIMEOUT must be > 0")
	}
	if cfg.Feed.RPS < 0 {
		return cfg, errors.New("FEED_RPS must be >= 0")
	}
	if cfg.Sync.Interval <= 0 {
		return cfg, errors.New("SYNC_INTERVAL must be > 0")
	}
	if cfg.Sync.InterMatchDelay < 0 {
		return cfg, errors.New("SYNC_INTER_MATCH_DELAY must be >= 0")
	}
	if cfg.Sync.MatchTimeout <= 0 {
		return cfg, errors.New("SYNC_MATCH_TIMEOUT must be > 0")
	}
	if cfg.Sync.ErrorRingSize < 1 {
		return cfg, errors.New("SYNC_ERROR_RING_SIZE must be >= 1")
	}
	if cfg.NATS.Enabled && strings.TrimSpace(cfg.NATS.URL) == "" {
		return cfg, errors.New("NATS_URL required when NATS_ENABLED")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers ----

// source reads raw values through viper so a key may come from the
// environment or the config file. Unparseable values fall back to defaults.
type source struct {
	v *viper.Viper
}

func (s source) raw(k string) string {
	if s.v == nil {
		return strings.TrimSpace(os.Getenv(k))
	}
	return strings.TrimSpace(s.v.GetString(k))
}

func (s source) str(k, def string) string {
	if v := s.raw(k); v != "" {
		return v
	}
	return def
}

func (s source) float(k string, def float64) float64 {
	if v := s.raw(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func (s source) integer(k string, def int) int {
	if v := s.raw(k); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func (s source) boolean(k string, def bool) bool {
	switch strings.ToLower(s.raw(k)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	return def
}

func (s source) dur(k string, def time.Duration) time.Duration {
	if v := s.raw(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
