package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the recipe service
type Config struct {
	// Server
	Port           string
	Environment    string
	AllowedOrigins []string

	// Completion provider
	Provider  string
	APIKey    string
	BaseURL   string
	Model     string
	FastModel string

	// Optional infrastructure; empty disables it
	RedisURL     string
	NATSURL      string
	OTLPEndpoint string

	// Limits
	RateLimitPerMinute int
	GenerationTimeout  time.Duration
}

// Load reads configuration from environment variables, after loading an
// optional .env file from the working directory
func Load() *Config {
	_ = godotenv.Load()

	provider := strings.ToLower(getEnv("LLM_PROVIDER", ProviderFireworks))
	preset := Presets[provider]

	return &Config{
		Port:           getEnv("PORT", "5174"),
		Environment:    getEnv("GO_ENV", "development"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),

		Provider:  provider,
		APIKey:    getEnv("LLM_API_KEY", os.Getenv(preset.KeyEnv)),
		BaseURL:   getEnv("LLM_BASE_URL", preset.BaseURL),
		Model:     getEnv("LLM_MODEL", preset.Model),
		FastModel: getEnv("LLM_FAST_MODEL", preset.FastModel),

		RedisURL:     os.Getenv("REDIS_URL"),
		NATSURL:      os.Getenv("NATS_URL"),
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 20),
		GenerationTimeout:  getEnvDuration("GENERATION_TIMEOUT", 2*time.Minute),
	}
}

// Validate reports settings the service cannot start with
func (c *Config) Validate() error {
	var errs []error
	if _, ok := Presets[c.Provider]; !ok {
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER %q", c.Provider))
	}
	if c.APIKey == "" {
		errs = append(errs, errors.New("missing API key: set LLM_API_KEY or the provider key variable"))
	}
	if c.Model == "" {
		errs = append(errs, errors.New("missing LLM_MODEL"))
	}
	if c.RateLimitPerMinute <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_PER_MINUTE must be positive"))
	}
	if c.GenerationTimeout <= 0 {
		errs = append(errs, errors.New("GENERATION_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

// Preset returns the preset of the configured provider
func (c *Config) Preset() Preset {
	return Presets[c.Provider]
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
