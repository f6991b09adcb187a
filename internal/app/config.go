package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/xenking/form-order-summary/internal/domain/currency"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (ORDERS_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (ORDERS_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	// RedisAddr enables the Redis settings store and rate limiter when set.
	RedisAddr         string `default:"" usage:"Redis address, host:port (ORDERS_REDIS_ADDR or REDIS_ADDR)" flag:"redis-addr"`
	RedisPassword     string `default:"" usage:"Redis password" flag:"redis-password"`
	SettingsNamespace string `default:"orders:settings" usage:"Redis key prefix of settings" flag:"settings-namespace"`
	DefaultCurrency   string `default:"USD" usage:"Currency used when neither entry, form nor settings name one" flag:"default-currency"`
	RateLimit         RateLimitConfig
	CORS              CORSConfig
	Graceful          GracefulConfig
}

// RateLimitConfig controls the fixed window limiter on entry submission.
type RateLimitConfig struct {
	Max    int64         `default:"30" usage:"Max submissions per client per window"`
	Window time.Duration `default:"1m" usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins []string `default:"*" usage:"Allowed CORS origins"`
	MaxAge  int      `default:"86400" usage:"Preflight cache lifetime in seconds" flag:"cors-max-age"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from flags, environment variables and YAML
// config files, then applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{
		Files: []string{"config.yaml", "/etc/orders/config.yaml"},
	})
}

func loadConfig(ac aconfig.Config) (*Config, error) {
	var cfg Config
	ac.EnvPrefix = "ORDERS"
	ac.FileDecoders = map[string]aconfig.FileDecoder{
		".yaml": aconfigyaml.New(),
	}
	if err := aconfig.LoaderFor(&cfg, ac).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set ORDERS_DATABASE_URL or DATABASE_URL")
	}
	if !currency.Valid(c.DefaultCurrency) {
		return errors.Errorf("unsupported default currency %q", c.DefaultCurrency)
	}
	if c.RedisAddr != "" && (c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0) {
		return errors.New("rate limit max and window must be positive")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's ORDERS_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.RedisAddr == "" {
		c.RedisAddr = os.Getenv("REDIS_ADDR")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
