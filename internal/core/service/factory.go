package service

import (
	"fmt"
	"os"
	"path/filepath"

	"bookharvest/internal/adapters/datamart/bunstore"
	"bookharvest/internal/adapters/datamart/redisstore"
	"bookharvest/internal/adapters/source"
	"bookharvest/internal/config"
	"bookharvest/internal/core/domain/ports"
)

func CreateFetcher(cfg *config.Config) ports.BookFetcher {
	return source.NewGutenbergFetcher(cfg.SourceBaseURL, cfg.LogLevel)
}

// CreateMetadataStore opens the configured datamart backend. A backend
// that cannot be reached fails here, before any processing starts.
func CreateMetadataStore(cfg *config.Config) (ports.MetadataStore, error) {
	switch cfg.DatamartBackend {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create datamart dir: %w", err)
		}
		return bunstore.NewSQLite(cfg.SQLitePath)
	case "postgres":
		return bunstore.NewPostgres(cfg.PostgresDSN)
	case "redis":
		return redisstore.New(redisstore.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	default:
		return nil, fmt.Errorf("unknown datamart backend %q", cfg.DatamartBackend)
	}
}
