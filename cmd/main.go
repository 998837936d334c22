package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/weiawesome/watch-party/internal/cache"
	"github.com/weiawesome/watch-party/internal/config"
	"github.com/weiawesome/watch-party/internal/handler"
	"github.com/weiawesome/watch-party/internal/hub"
	"github.com/weiawesome/watch-party/internal/repository"
	"github.com/weiawesome/watch-party/internal/service"
	"github.com/weiawesome/watch-party/internal/syncstore"
	pkgconfig "github.com/weiawesome/watch-party/pkg/config"
	"github.com/weiawesome/watch-party/pkg/database"
	pkglog "github.com/weiawesome/watch-party/pkg/log"
	"github.com/weiawesome/watch-party/pkg/pubsub"
)

const version = "1.0.0"

func main() {
	if _, err := pkgconfig.LoadDotEnv(); err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load .env")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	pkglog.Init(cfg.Log.Logger("watch-party"))
	logger := pkglog.L()

	logger.Info().Str("version", version).
		Int("http_port", cfg.Server.HTTPPort).Int("ws_port", cfg.Server.WSPort).
		Str("db_driver", cfg.Database.Driver).Str("sync_driver", cfg.Sync.Driver).
		Msg("starting watch party relay")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize durable store
	repo, err := repository.New(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer repo.Close()
	logger.Info().Str("driver", cfg.Database.Driver).Msg("database initialized")

	// Initialize Redis, falling back to in-process state when unavailable
	redisClient := initRedis(cfg)
	if redisClient != nil {
		defer redisClient.Close()
	}

	var c cache.Cache = cache.NoopCache{}
	if redisClient != nil {
		c = cache.NewRedisCache(redisClient, cfg.Cache.Prefix)
	}

	syncCfg := cfg.Sync
	if syncCfg.Driver == "redis" && redisClient == nil {
		logger.Warn().Msg("redis sync store configured without redis, using memory store")
		syncCfg.Driver = "memory"
	}
	syncStore, err := syncstore.New(syncCfg, redisClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize sync store")
	}

	publisher, err := pubsub.NewPublisher(cfg.Events, redisClient)
	if err != nil {
		logger.Warn().Err(err).Str("driver", cfg.Events.Driver).Msg("activity feed disabled")
		publisher = pubsub.NoopPublisher{}
	}
	defer publisher.Close()

	// Initialize services
	h := hub.NewHub()
	messageSvc := service.NewMessageService(repo, repo, c, cfg.Cache.TTL, cfg.Chat.MaxMessageLength)
	roomSvc := service.NewRoomService(repo, repo, c, cfg.Cache.TTL)
	userSvc := service.NewUserService(repo, c, cfg.Cache.TTL, service.NewUsernameGenerator(time.Now().UnixNano()))

	// Initialize handlers
	router := handler.NewEventRouter(h, messageSvc, syncStore, publisher)
	wsHandler := handler.NewWSHandler(router, cfg.WebSocket)
	httpHandler := handler.NewHTTPHandler(roomSvc, userSvc, h, syncStore)

	// Setup Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))
	httpHandler.RegisterRoutes(r)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	mux := http.NewServeMux()
	wsHandler.RegisterRoutes(mux)
	wsServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.WSPort),
		Handler: pkglog.HTTPMiddleware(logger)(mux),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", httpServer.Addr).Msg("http api listening")
		return serve(httpServer)
	})
	g.Go(func() error {
		logger.Info().Str("addr", wsServer.Addr).Msg("websocket relay listening")
		return serve(wsServer)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down watch party relay")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Shutdown does not wait for hijacked connections.
		wsHandler.CloseAll()
		return errors.Join(httpServer.Shutdown(shutdownCtx), wsServer.Shutdown(shutdownCtx))
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
	}
	logger.Info().Msg("watch party relay stopped")
}

func serve(s *http.Server) error {
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// initRedis connects when Redis is enabled. A failed connection is logged
// and nil is returned so the relay runs on in-process state.
func initRedis(cfg *config.Config) *redis.Client {
	l := pkglog.L()
	if !cfg.Redis.Enabled {
		l.Info().Msg("redis disabled, cache and sync store are in-process")
		return nil
	}

	client, err := database.NewRedis(cfg.Redis.Client())
	if err != nil {
		l.Warn().Err(err).Msg("redis unavailable, cache and sync store are in-process")
		return nil
	}
	l.Info().Msg("connected to redis")
	return client
}
