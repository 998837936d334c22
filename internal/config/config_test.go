package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 8081, cfg.Server.WSPort)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 30*time.Second, cfg.WebSocket.PingInterval)
	assert.Equal(t, 60*time.Second, cfg.WebSocket.PongWait)
	assert.Equal(t, int64(8192), cfg.WebSocket.MaxMessageSize)
	assert.Equal(t, 256, cfg.WebSocket.SendBuffer)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "lofi-party", cfg.Database.MongoDatabase)
	assert.Equal(t, "memory", cfg.Sync.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Sync.TTL)
	assert.Equal(t, "none", cfg.Events.Driver)
	assert.Equal(t, "watch-party-events", cfg.Events.Kafka.Topic)
	assert.Equal(t, 2000, cfg.Chat.MaxMessageLength)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("WS_PORT", "9001")
	t.Setenv("REDIS_URL", "redis://localhost:6380/2")
	t.Setenv("MONGODB_URL", "mongodb://mongo:27017")
	t.Setenv("EVENTS_DRIVER", "kafka")

	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.HTTPPort)
	assert.Equal(t, 9001, cfg.Server.WSPort)
	assert.Equal(t, "redis://localhost:6380/2", cfg.Redis.URL)
	assert.Equal(t, "redis://localhost:6380/2", cfg.Redis.Client().URL)
	assert.Equal(t, "mongodb://mongo:27017", cfg.Database.MongoURI)
	assert.Equal(t, "kafka", cfg.Events.Driver)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
server:
  ws_port: 7000
websocket:
  pong_wait: 15s
sync:
  driver: redis
  key_prefix: "party:"
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o644))

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.WSPort)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 15*time.Second, cfg.WebSocket.PongWait)
	assert.Equal(t, "redis", cfg.Sync.Driver)
	assert.Equal(t, "party:", cfg.Sync.KeyPrefix)
}

func TestDatabaseConfig_SQL(t *testing.T) {
	c := DatabaseConfig{Driver: "postgres", Host: "db", Port: 5433, Name: "wp", SSLMode: "disable"}
	sql := c.SQL()
	assert.Equal(t, "postgres", sql.Driver)
	assert.Equal(t, "wp", sql.DBName)
	assert.Equal(t, 5433, sql.Port)
}
