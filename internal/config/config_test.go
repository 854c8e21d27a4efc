package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		LogLevel:        "info",
		SourceBaseURL:   "https://www.gutenberg.org",
		DatalakeRoot:    "data/datalake",
		ControlDir:      "data/control",
		DatamartBackend: "sqlite",
		SQLitePath:      "data/datamarts/metadata.db",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid sqlite", func(c *Config) {}, false},
		{"valid redis", func(c *Config) {
			c.DatamartBackend = "redis"
			c.RedisAddr = "localhost:6379"
		}, false},
		{"unknown backend", func(c *Config) { c.DatamartBackend = "cassandra" }, true},
		{"postgres without dsn", func(c *Config) { c.DatamartBackend = "postgres" }, true},
		{"postgres with dsn", func(c *Config) {
			c.DatamartBackend = "postgres"
			c.PostgresDSN = "postgres://localhost/books?sslmode=disable"
		}, false},
		{"redis without addr", func(c *Config) {
			c.DatamartBackend = "redis"
			c.RedisAddr = ""
		}, true},
		{"empty source url", func(c *Config) { c.SourceBaseURL = "" }, true},
		{"negative batch size", func(c *Config) { c.RunBatchSize = -1 }, true},
		{"negative delay", func(c *Config) { c.RunDelayMS = -5 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
