// Package main runs the event bot backend: the administrative HTTP API,
// the interaction webhook, the roster feed, and the bus listeners that
// keep Discord in sync with stored events.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/heraldbot/backend/config"
	"github.com/heraldbot/backend/internal/auth"
	"github.com/heraldbot/backend/internal/crud"
	"github.com/heraldbot/backend/internal/discord"
	"github.com/heraldbot/backend/internal/events"
	"github.com/heraldbot/backend/internal/interactions"
	"github.com/heraldbot/backend/internal/middleware"
	"github.com/heraldbot/backend/internal/mirror"
	"github.com/heraldbot/backend/internal/pending"
	"github.com/heraldbot/backend/internal/realtime"
	"github.com/heraldbot/backend/internal/registration"
	"github.com/heraldbot/backend/internal/reminder"
	"github.com/heraldbot/backend/internal/timezone"
	"github.com/heraldbot/backend/pkg/bus"
	"github.com/heraldbot/backend/pkg/database"
	"github.com/heraldbot/backend/pkg/queue"
	"github.com/heraldbot/backend/pkg/response"
	"github.com/heraldbot/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := bus.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()
	notices := bus.New(rdb, logger)

	var covers coverStore = noCovers{}
	if cfg.AWS.Region != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			CoversBucket:    cfg.AWS.CoversBucket,
			DefaultCoverKey: cfg.AWS.DefaultCover,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		} else {
			covers = s3Client
		}
	}

	gateway := discord.NewRESTClient(cfg.Discord.BotToken, cfg.Discord.EventRoleName, logger)
	store := events.NewRepository(pool)
	timezoneRepo := timezone.NewRepository(pool)
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	selections := pending.NewCache(time.Duration(cfg.Pending.TTLMinutes) * time.Minute)
	controller := registration.NewController(selections, store, notices, logger)
	coordinator := mirror.NewCoordinator(store, gateway, covers, notices, logger)

	hub := realtime.NewHub(logger)
	feed := realtime.NewFeed(hub, store, logger)

	authHandler := auth.NewHandler(cfg.Admin, jwtService, logger)
	crudHandler := crud.NewHandler(store, timezoneRepo, gateway, covers, notices, logger)
	timezoneHandler := timezone.NewHandler(timezoneRepo, logger)

	interactionHandler, err := interactions.NewHandler(controller, cfg.Discord.PublicKey, logger)
	if err != nil {
		logger.Fatal("interactions", zap.Error(err))
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	// Bus listeners. Mirror and message updates for an altered event run
	// independently, as does the roster feed.
	subscribe(notices, bus.KindEventCreated, logger, func(notice bus.EventNotice) {
		coordinator.OnEventCreated(workerCtx, notice)
	})
	subscribe(notices, bus.KindEventAltered, logger, func(notice bus.EventNotice) {
		coordinator.OnEventAlteredMirror(workerCtx, notice)
	})
	subscribe(notices, bus.KindEventAltered, logger, func(notice bus.EventNotice) {
		coordinator.OnEventAlteredMessages(workerCtx, notice)
	})
	subscribe(notices, bus.KindEventAltered, logger, func(notice bus.EventNotice) {
		feed.OnEventAltered(workerCtx, notice)
	})
	subscribe(notices, bus.KindScheduledEventUserAdd, logger, func(notice bus.ScheduledEventUserNotice) {
		coordinator.OnScheduledEventUserAdd(workerCtx, notice)
	})
	subscribe(notices, bus.KindScheduledEventUserRemove, logger, func(notice bus.ScheduledEventUserNotice) {
		coordinator.OnScheduledEventUserRemove(workerCtx, notice)
	})

	// Background loops: reminder scanning, nightly prune, selection sweep.
	jobQueue := queue.NewQueue(rdb, logger)
	scanner := reminder.NewScanner(store, jobQueue, logger)
	go scanner.Run(workerCtx)
	pruner := crud.NewPruner(store, gateway, covers, logger)
	go pruner.Run(workerCtx)
	go sweepSelections(workerCtx, selections, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Discord interaction webhook (signature-verified, no JWT)
	router.POST("/interactions", interactionHandler.Handle)

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
	}

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.POST("/events", middleware.RequireRole(auth.RoleAdmin), crudHandler.Create)
		api.GET("/events/:id", crudHandler.Get)
		api.PATCH("/events/:id", middleware.RequireRole(auth.RoleAdmin), crudHandler.Edit)
		api.DELETE("/events/:id", middleware.RequireRole(auth.RoleAdmin), crudHandler.Delete)
		api.POST("/events/:id/announce", middleware.RequireRole(auth.RoleAdmin), crudHandler.Announce)

		api.GET("/users/:id/timezone", timezoneHandler.Get)
		api.PUT("/users/:id/timezone", timezoneHandler.Set)
	}

	// WebSocket roster feed (channel_id in query)
	router.GET("/ws", realtime.ServeWs(hub, logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

// subscribe wires a typed handler to a bus kind. Payloads that fail to
// decode are dropped with a warning.
func subscribe[T any](notices *bus.Bus, kind bus.Kind, logger *zap.Logger, handler func(T)) {
	if _, err := notices.Subscribe(kind, func(payload []byte) {
		var notice T
		if err := json.Unmarshal(payload, &notice); err != nil {
			logger.Warn("dropping undecodable notice", zap.String("kind", string(kind)), zap.Error(err))
			return
		}
		handler(notice)
	}); err != nil {
		logger.Fatal("subscribe", zap.String("kind", string(kind)), zap.Error(err))
	}
}

func sweepSelections(ctx context.Context, selections *pending.Cache, logger *zap.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := selections.Sweep(); n > 0 {
				logger.Debug("swept expired selections", zap.Int("count", n))
			}
		}
	}
}

// coverStore is the cover image surface the server wires: the mirror
// coordinator reads and writes covers, the CRUD layer deletes them.
type coverStore interface {
	mirror.CoverStore
	crud.Covers
}

// noCovers is used when S3 is not configured; events then simply have no
// cover images.
type noCovers struct{}

func (noCovers) Default(context.Context) ([]byte, error) { return nil, nil }

func (noCovers) PutCover(context.Context, int64, string, []byte) (string, error) { return "", nil }

func (noCovers) GetCover(context.Context, int64) ([]byte, error) { return nil, nil }

func (noCovers) DeleteCover(context.Context, int64) error { return nil }

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
