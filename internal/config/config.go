package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration sourced from an optional YAML file and env vars.
type Config struct {
	Port          string        `yaml:"port"`
	Env           string        `yaml:"env"`
	DatabaseURL   string        `yaml:"database_url"`
	RedisURL      string        `yaml:"redis_url"`
	SessionSecret string        `yaml:"session_secret"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	FrontendURL   string        `yaml:"frontend_url"`
	CORSOrigins   []string      `yaml:"cors_origins"`
	AuthRate      int           `yaml:"auth_rate_per_minute"`
	LogLevel      string        `yaml:"log_level"`
	AIEngine      AIEngine      `yaml:"ai_engine"`
}

// AIEngine configures the external prediction service.
type AIEngine struct {
	URL          string        `yaml:"url"`
	Retries      int           `yaml:"retries"`
	RetryDelay   time.Duration `yaml:"retry_delay"`
	Timeout      time.Duration `yaml:"timeout"`
	PingInterval time.Duration `yaml:"ping_interval"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		Port:       "5000",
		Env:        "development",
		SessionTTL: 7 * 24 * time.Hour,
		AuthRate:   30,
		LogLevel:   "info",
		AIEngine: AIEngine{
			URL:          "http://127.0.0.1:5001",
			Retries:      2,
			RetryDelay:   2 * time.Second,
			Timeout:      50 * time.Second,
			PingInterval: 13 * time.Minute,
		},
	}
}

// Load reads CONFIG_FILE (if set), applies environment overrides and validates.
func Load() (Config, error) {
	cfg := Defaults()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Port = fallback(os.Getenv("PORT"), cfg.Port)
	cfg.Env = fallback(os.Getenv("APP_ENV"), fallback(os.Getenv("NODE_ENV"), cfg.Env))
	cfg.DatabaseURL = fallback(os.Getenv("DATABASE_URL"), fallback(os.Getenv("MONGO_URI"), cfg.DatabaseURL))
	cfg.RedisURL = fallback(os.Getenv("REDIS_URL"), cfg.RedisURL)
	cfg.SessionSecret = fallback(os.Getenv("SESSION_SECRET"), fallback(os.Getenv("JWT_SECRET"), cfg.SessionSecret))
	cfg.FrontendURL = fallback(os.Getenv("FRONTEND_URL"), cfg.FrontendURL)
	cfg.LogLevel = fallback(os.Getenv("LOG_LEVEL"), cfg.LogLevel)
	cfg.AIEngine.URL = fallback(os.Getenv("AI_ENGINE_URL"), cfg.AIEngine.URL)

	if hours, ok := positiveInt(os.Getenv("SESSION_TTL_HOURS")); ok {
		cfg.SessionTTL = time.Duration(hours) * time.Hour
	}
	if rate, ok := positiveInt(os.Getenv("AUTH_RATE_PER_MINUTE")); ok {
		cfg.AuthRate = rate
	}
	if retries, err := strconv.Atoi(strings.TrimSpace(os.Getenv("AI_ENGINE_RETRIES"))); err == nil && retries >= 0 {
		cfg.AIEngine.Retries = retries
	}
	if ms, err := strconv.Atoi(strings.TrimSpace(os.Getenv("AI_ENGINE_RETRY_DELAY_MS"))); err == nil && ms >= 0 {
		cfg.AIEngine.RetryDelay = time.Duration(ms) * time.Millisecond
	}
	if secs, ok := positiveInt(os.Getenv("AI_ENGINE_TIMEOUT_SECONDS")); ok {
		cfg.AIEngine.Timeout = time.Duration(secs) * time.Second
	}
	if mins, err := strconv.Atoi(strings.TrimSpace(os.Getenv("AI_ENGINE_PING_MINUTES"))); err == nil && mins >= 0 {
		cfg.AIEngine.PingInterval = time.Duration(mins) * time.Minute
	}

	if origins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS")); origins != "" {
		cfg.CORSOrigins = parseCSV(origins)
	}
	if len(cfg.CORSOrigins) == 0 {
		if cfg.FrontendURL != "" {
			cfg.CORSOrigins = []string{cfg.FrontendURL, "http://localhost:3000"}
		} else {
			cfg.CORSOrigins = []string{"*"}
		}
	}
}

// Validate performs minimal validation of required settings.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.SessionSecret == "" {
		return errors.New("SESSION_SECRET is required")
	}
	if !strings.HasPrefix(c.AIEngine.URL, "http://") && !strings.HasPrefix(c.AIEngine.URL, "https://") {
		return fmt.Errorf("AI_ENGINE_URL must be an http or https url, got %q", c.AIEngine.URL)
	}
	return nil
}

// Production reports whether cookies must be cross-site secure.
func (c Config) Production() bool {
	return strings.EqualFold(c.Env, "production")
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

// SlogLevel maps LogLevel onto slog levels, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func positiveInt(raw string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
