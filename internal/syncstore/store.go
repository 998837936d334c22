package syncstore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/weiawesome/watch-party/internal/config"
	"github.com/weiawesome/watch-party/internal/domain"
)

// Store holds the latest playback snapshot of each room. Set is
// latest-write-wins; timestamps inside snapshots are not compared.
type Store interface {
	Set(ctx context.Context, roomID string, snapshot domain.SyncSnapshot) error
	// Get returns nil, nil when no playback event has happened in roomID.
	Get(ctx context.Context, roomID string) (*domain.SyncSnapshot, error)
}

// New builds the store for cfg.Driver. The redis driver needs client.
func New(cfg config.SyncConfig, client *redis.Client) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("redis sync driver requires a redis connection")
		}
		return NewRedisStore(client, cfg.KeyPrefix, cfg.TTL), nil
	default:
		return nil, fmt.Errorf("unsupported sync driver: %s", cfg.Driver)
	}
}
