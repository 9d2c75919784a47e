package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/weiawesome/wes-live-chat/live-chat-service/internal/cache"
	"github.com/weiawesome/wes-live-chat/live-chat-service/internal/config"
	"github.com/weiawesome/wes-live-chat/live-chat-service/internal/domain"
	"github.com/weiawesome/wes-live-chat/live-chat-service/internal/emitter"
	"github.com/weiawesome/wes-live-chat/live-chat-service/internal/handler"
	"github.com/weiawesome/wes-live-chat/live-chat-service/internal/relay"
	"github.com/weiawesome/wes-live-chat/live-chat-service/internal/repository"
	"github.com/weiawesome/wes-live-chat/live-chat-service/internal/service"
	"github.com/weiawesome/wes-live-chat/pkg/database"
	pkglog "github.com/weiawesome/wes-live-chat/pkg/log"
	"github.com/weiawesome/wes-live-chat/pkg/pubsub"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// Initialize structured logger
	pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Pretty,
		ServiceName: "live-chat-service",
	})
	logger := pkglog.L()

	// Connect to database using GORM
	db, err := database.New(&database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		FilePath:        cfg.Database.FilePath,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        cfg.Database.LogLevel,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := database.AutoMigrate(db, &domain.UserModel{}, &domain.ChatMessageModel{}); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("database migration completed")

	messageRepo := repository.NewGormMessageRepository(db)

	// Transcript cache
	var transcriptCache cache.TranscriptCache = cache.NoopCache{}
	if cfg.Cache.Enabled {
		redisCache, err := cache.NewRedisTranscriptCache(cfg.Redis, cfg.Cache.Prefix)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis cache")
		}
		transcriptCache = redisCache
		logger.Info().Dur("ttl", cfg.Cache.TTL).Msg("redis transcript cache enabled")
	}

	// Event bus, optionally relayed across instances
	bus := emitter.New()
	var publisher service.Publisher = bus

	relayCtx, stopRelay := context.WithCancel(context.Background())

	var (
		chatRelay *relay.Relay
		relayPS   *pubsub.RedisPubSub
	)
	if cfg.Relay.Enabled {
		relayPS, err = pubsub.NewRedisPubSub(cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis pubsub")
		}
		instanceID := uuid.New().String()
		chatRelay = relay.New(bus, relayPS, pubsub.ChatEventsChannel(cfg.Relay.Namespace), instanceID)
		go chatRelay.Run(relayCtx)
		publisher = chatRelay
		logger.Info().Str(pkglog.FieldInstance, instanceID).Msg("cross-instance relay enabled")
	}

	chatService := service.NewChatService(messageRepo, transcriptCache, publisher, service.Options{
		MaxMessageLength:    cfg.Chat.MaxMessageLength,
		DefaultHistoryLimit: cfg.Chat.DefaultHistoryLimit,
		MaxHistoryLimit:     cfg.Chat.MaxHistoryLimit,
		CacheTTL:            cfg.Cache.TTL,
	})
	// Registered before any stream so loads split ahead of viewer re-fetches.
	bus.Subscribe(domain.EventMessage, chatService.HandleMessageEvent)

	// HTTP handlers
	streamHandler := handler.NewStreamHandler(bus, cfg.Stream)
	httpHandler := handler.NewHandler(chatService, streamHandler)

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))
	httpHandler.RegisterRoutes(r)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Event streams never finish on their own; end them when shutdown starts.
	srv.RegisterOnShutdown(streamHandler.Shutdown)

	go func() {
		logger.Info().Str("addr", addr).Msg("live-chat-service starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.Shutdown.Timeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				return srv.Shutdown(ctx)
			},
			"relay": func(ctx context.Context) error {
				stopRelay()
				if chatRelay == nil {
					return nil
				}
				select {
				case <-chatRelay.Done():
				case <-ctx.Done():
				}
				return relayPS.Close()
			},
			"transcript-cache": func(ctx context.Context) error {
				return transcriptCache.Close()
			},
			"database": func(ctx context.Context) error {
				return database.Close(db)
			},
		},
	)

	exitCode := <-wait
	logger.Info().Int("exit_code", exitCode).Msg("live-chat-service stopped")
	os.Exit(exitCode)
}
