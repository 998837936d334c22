package repository

import (
	"context"
	"fmt"

	"github.com/weiawesome/watch-party/internal/config"
	"github.com/weiawesome/watch-party/pkg/database"
)

// New opens the durable store selected by cfg.Driver. SQL drivers are
// migrated before returning.
func New(ctx context.Context, cfg config.DatabaseConfig) (Repository, error) {
	if cfg.Driver == "mongo" {
		return NewMongoRepository(ctx, cfg.MongoURI, cfg.MongoDatabase)
	}

	db, err := database.New(cfg.SQL())
	if err != nil {
		return nil, err
	}
	repo := NewGormRepository(db)
	if err := repo.Migrate(); err != nil {
		database.Close(db)
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return repo, nil
}
