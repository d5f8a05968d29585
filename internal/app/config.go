package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Storage backends.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds the complete application configuration, loadable from
// environment variables (QBUY_ prefix), flags, or YAML config files.
type Config struct {
	Addr               string `default:"0.0.0.0:8080" usage:"API server listen address"`
	Storage            string `default:"postgres" usage:"Storage backend: postgres or memory"`
	DatabaseURL        string `usage:"PostgreSQL connection URL (QBUY_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	ImageBaseURL       string `default:"" usage:"Base URL prepended to product image paths" flag:"image-base-url"`
	APIKeyPepper       string `usage:"HMAC pepper for API key hashing" flag:"api-key-pepper"`
	DefaultWalletMoney int64  `default:"5000" usage:"Wallet balance of new accounts" flag:"default-wallet-money"`
	SeedCatalog        bool   `default:"false" usage:"Load the embedded catalog on start (memory storage)" flag:"seed-catalog"`
	Redis              RedisConfig
	Kafka              KafkaConfig
	Outbox             OutboxConfig
	RateLimit          RateLimitConfig
	Graceful           GracefulConfig
}

// RedisConfig enables the cart cache when Addr is set.
type RedisConfig struct {
	Addr     string        `default:"" usage:"Redis address; empty disables the cart cache"`
	Password string        `default:"" usage:"Redis password"`
	DB       int           `default:"0" usage:"Redis database"`
	TTL      time.Duration `default:"5m" usage:"Cart cache entry lifetime"`
}

// KafkaConfig enables order event publishing when Brokers is set.
type KafkaConfig struct {
	Brokers []string `usage:"Kafka bootstrap brokers; empty disables event publishing"`
	Topic   string   `default:"qbuy.orders" usage:"Topic for order events"`
}

// OutboxConfig controls the outbox relay.
type OutboxConfig struct {
	Interval  time.Duration `default:"1s" usage:"Outbox poll interval"`
	BatchSize int           `default:"100" usage:"Events published per poll"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from flags, environment variables and YAML
// config files, then applies platform defaults and validates the result.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{})
}

func loadConfig(base aconfig.Config) (*Config, error) {
	base.EnvPrefix = "QBUY"
	base.Files = []string{"config.yaml", "/etc/qbuy/config.yaml"}
	base.FileDecoders = map[string]aconfig.FileDecoder{
		".yaml": aconfigyaml.New(),
	}

	var cfg Config
	if err := aconfig.LoaderFor(&cfg, base).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps the platform-provided DATABASE_URL and PORT
// onto the QBUY_ configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}

func (c *Config) validate() error {
	switch c.Storage {
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return errors.New("database URL is required: set QBUY_DATABASE_URL or DATABASE_URL")
		}
		if c.APIKeyPepper == "" {
			return errors.New("API key pepper is required with postgres storage: set QBUY_API_KEY_PEPPER")
		}
	case StorageMemory:
	default:
		return errors.Errorf("unknown storage %q: want %q or %q", c.Storage, StoragePostgres, StorageMemory)
	}
	if c.DefaultWalletMoney < 0 {
		return errors.Errorf("default wallet money must not be negative, got %d", c.DefaultWalletMoney)
	}
	if c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("rate limit max and window must be positive")
	}
	return nil
}
