package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"feedesk/config"
	"feedesk/internal/database"
	"feedesk/internal/events"
	"feedesk/internal/logger"
	"feedesk/internal/middleware"
	"feedesk/internal/router"
	"feedesk/internal/ws"
	"feedesk/pkg/cloudinary"
	"feedesk/pkg/receipt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logger.New(&cfg.Log)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	db, err := database.NewDB(&cfg.Database, log)
	if err != nil {
		log.Fatal("database", zap.Error(err))
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	store, err := receiptStore(cfg)
	if err != nil {
		log.Fatal("receipt store", zap.Error(err))
	}

	var limiter middleware.Limiter
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			log.Warn("redis unreachable, rate limiting falls back to memory", zap.Error(err))
		} else {
			limiter = middleware.NewRedisRateLimiter(rdb, cfg.RateLimit.Prefix, cfg.RateLimit.Requests, cfg.RateLimit.Window)
			log.Info("rate limiting via redis", zap.String("addr", cfg.Redis.Addr))
		}
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.RabbitMQ.URL != "" {
		amqpPub, err := events.NewAMQPPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue)
		if err != nil {
			log.Warn("rabbitmq unavailable, payment events stay in process", zap.Error(err))
		} else {
			defer amqpPub.Close()
			publisher = amqpPub
			log.Info("publishing payment events", zap.String("queue", cfg.RabbitMQ.Queue))
		}
	}

	engine, err := router.Setup(cfg, db, router.Deps{
		Receipts:  store,
		Limiter:   limiter,
		Publisher: publisher,
		Hub:       ws.NewHub(),
		Log:       log,
	})
	if err != nil {
		log.Fatal("router", zap.Error(err))
	}
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		log.Info("server listening", zap.String("port", cfg.Server.Port), zap.String("env", cfg.Server.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown", zap.Error(err))
	}
	log.Info("server stopped")
}

func receiptStore(cfg *config.Config) (receipt.Store, error) {
	if cfg.Receipts.Backend == "cloudinary" {
		client, err := cloudinary.NewClientFromParams(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret)
		if err != nil {
			return nil, err
		}
		return receipt.NewCloudStore(client, cfg.Cloudinary.Folder), nil
	}
	return receipt.NewDiskStore(cfg.Receipts.Dir)
}
