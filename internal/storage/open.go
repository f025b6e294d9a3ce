package storage

import (
	"context"
	"fmt"
)

// Config selects and configures the snapshot backend.
//
// Driver values:
//   - "file" (default): single JSON document at Path
//   - "postgres": rows via gorm, full-snapshot rewrite per save
//   - "mongo": three collections, full-snapshot rewrite per save
type Config struct {
	Driver      string `mapstructure:"storage_driver"`
	Path        string `mapstructure:"storage_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
	MongoURI    string `mapstructure:"mongo_uri"`
	MongoDB     string `mapstructure:"mongo_db"`
}

// Open initializes the configured backend.
func Open(ctx context.Context, cfg Config) (Backend, error) {
	switch cfg.Driver {
	case "", "file":
		return openFile(cfg.Path)
	case "postgres":
		return openPostgres(cfg.PostgresDSN)
	case "mongo":
		return openMongo(ctx, cfg.MongoURI, cfg.MongoDB)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
