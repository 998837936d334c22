package cache

import (
	"context"
	"errors"
	"time"
)

var ErrCacheMiss = errors.New("cache miss")

// Cache stores JSON documents by key. It is never authoritative: callers
// fall back to the durable store on any error.
type Cache interface {
	// Get decodes the cached value into dest or returns ErrCacheMiss.
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	RoomKey(roomID string) string
	UserKey(userID string) string
	LobbyKey(lobbyID string) string
}
