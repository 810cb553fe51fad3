package main

import (
	"campusconnect/backend/internal/api/handler"
	"campusconnect/backend/internal/auth"
	"campusconnect/backend/internal/chat"
	"campusconnect/backend/internal/chathub"
	"campusconnect/backend/internal/config"
	"campusconnect/backend/internal/logging"
	"campusconnect/backend/internal/storage"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies(cfg *config.Config, log *slog.Logger) (*gorm.DB, *redis.Client, error) {
	dsn, err := cfg.PostgresDSN()
	if err != nil {
		return nil, nil, err
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, nil, err
	}
	if err := storage.Migrate(db); err != nil {
		return nil, nil, err
	}

	if cfg.RedisAddr == "" {
		log.Info("REDIS_ADDR not set, cross-instance relay disabled")
		return db, nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, nil, err
	}

	log.Info("database and redis connections established, migrations complete")
	return db, rdb, nil
}

func main() {
	bootLog := logging.New("info")
	cfg, err := config.Load(bootLog)
	if err != nil {
		bootLog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)
	log.Info("starting CampusConnect chat backend", "addr", cfg.Addr())

	db, rdb, err := setupDependencies(cfg, log)
	if err != nil {
		log.Error("failed to initialise dependencies", "error", err)
		os.Exit(1)
	}
	store := storage.NewStorageService(db, rdb, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chatSvc := chat.NewService(store, cfg.ChatLimits(), log)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL)
	registry := chathub.NewRegistry(log)
	gateway := chathub.NewGateway(tokens, chatSvc, registry, cfg.Gateway(), log)

	relayCtx, stopRelay := context.WithCancel(context.Background())
	defer stopRelay()
	if rdb != nil {
		relay := chathub.NewRedisRelay(store, log)
		registry.SetPublisher(relay)
		go func() {
			if err := relay.Run(relayCtx, gateway.DeliverRemote); err != nil {
				log.Error("relay stopped", "error", err)
			}
		}()
	}

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	handler.NewHandler(chatSvc, gateway, tokens, cfg.AllowedOrigins(), log).RegisterRoutes(r)

	server := &http.Server{
		Addr:           cfg.Addr(),
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown", "error", err)
	}
	stopRelay()
	if err := gateway.Shutdown(shutdownCtx); err != nil {
		log.Warn("live sessions did not finish in time", "error", err)
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("shutdown complete")
}
