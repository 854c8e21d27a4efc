package config

import (
	"fmt"
	"log"
	"sync"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel string `env:"BH_LOG_LEVEL" envDefault:"info"`

	SourceBaseURL string `env:"BH_SOURCE_BASE_URL" envDefault:"https://www.gutenberg.org"`
	FeedURL       string `env:"BH_FEED_URL"`

	DatalakeRoot string `env:"BH_DATALAKE_ROOT" envDefault:"data/datalake"`
	ControlDir   string `env:"BH_CONTROL_DIR" envDefault:"data/control"`

	DatamartBackend string `env:"BH_DATAMART_BACKEND" envDefault:"sqlite"`
	SQLitePath      string `env:"BH_SQLITE_PATH" envDefault:"data/datamarts/metadata.db"`
	PostgresDSN     string `env:"BH_POSTGRES_DSN"`
	RedisAddr       string `env:"BH_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword   string `env:"BH_REDIS_PASSWORD"`
	RedisDB         int    `env:"BH_REDIS_DB" envDefault:"0"`

	RunBatchSize int `env:"BH_RUN_BATCH_SIZE" envDefault:"0"`
	RunDelayMS   int `env:"BH_RUN_DELAY_MS" envDefault:"100"`
}

func (c *Config) Validate() error {
	switch c.DatamartBackend {
	case "sqlite", "postgres", "redis":
	default:
		return fmt.Errorf("BH_DATAMART_BACKEND must be one of sqlite, postgres, redis (got %q)", c.DatamartBackend)
	}

	if c.DatamartBackend == "postgres" && c.PostgresDSN == "" {
		return fmt.Errorf("BH_POSTGRES_DSN is required when BH_DATAMART_BACKEND is postgres")
	}

	if c.DatamartBackend == "redis" && c.RedisAddr == "" {
		return fmt.Errorf("BH_REDIS_ADDR is required when BH_DATAMART_BACKEND is redis")
	}

	if c.SourceBaseURL == "" {
		return fmt.Errorf("BH_SOURCE_BASE_URL cannot be empty")
	}

	if c.RunBatchSize < 0 {
		return fmt.Errorf("BH_RUN_BATCH_SIZE cannot be negative")
	}

	if c.RunDelayMS < 0 {
		return fmt.Errorf("BH_RUN_DELAY_MS cannot be negative")
	}

	return nil
}

var (
	cfg  *Config
	once sync.Once
)

func GetConfig() *Config {
	once.Do(func() {
		_ = godotenv.Load()
		cfg = &Config{}
		if err := env.Parse(cfg); err != nil {
			log.Fatalf("failed to parse config: %v", err)
		}
		if err := cfg.Validate(); err != nil {
			log.Fatalf("config validation failed: %v", err)
		}
	})
	return cfg
}
