package cache

import (
	"context"
	"fmt"
	"time"
)

// NoopCache always misses. Used when redis is disabled or unreachable.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string, interface{}) error { return ErrCacheMiss }

func (NoopCache) Set(context.Context, string, interface{}, time.Duration) error { return nil }

func (NoopCache) Delete(context.Context, ...string) error { return nil }

func (NoopCache) RoomKey(roomID string) string   { return fmt.Sprintf("room:%s", roomID) }
func (NoopCache) UserKey(userID string) string   { return fmt.Sprintf("user:%s", userID) }
func (NoopCache) LobbyKey(lobbyID string) string { return fmt.Sprintf("lobby:%s", lobbyID) }

var _ Cache = NoopCache{}
