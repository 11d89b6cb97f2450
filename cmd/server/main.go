package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"event-ticket-ledger/config"
	"event-ticket-ledger/internal/cache"
	"event-ticket-ledger/internal/clock"
	"event-ticket-ledger/internal/database"
	"event-ticket-ledger/internal/handler"
	"event-ticket-ledger/internal/middleware"
	"event-ticket-ledger/internal/model"
	"event-ticket-ledger/internal/queue"
	"event-ticket-ledger/internal/repository"
	"event-ticket-ledger/internal/service"
	"event-ticket-ledger/internal/worker"
	"event-ticket-ledger/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file loaded before reading the environment")
	configFile := pflag.String("config", "", "optional YAML file overriding environment settings")
	issueToken := pflag.String("issue-token", "", "print a signed bearer token for the given principal and exit")
	tokenTTL := pflag.Duration("token-ttl", 24*time.Hour, "lifetime of tokens printed by --issue-token")
	pflag.Parse()

	// .env 不存在時直接使用環境變數
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("Failed to load %s: %v", *envFile, err)
	}

	cfg := config.LoadConfig()
	if *configFile != "" {
		if err := config.LoadFile(*configFile, cfg); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	if err := logger.Configure(cfg.Log.Level, cfg.Log.Development); err != nil {
		log.Fatalf("Failed to configure logger: %v", err)
	}
	defer logger.L.Sync()

	if cfg.Server.JWTSecret == "" {
		logger.L.Fatal("JWT_SECRET is required")
	}

	if *issueToken != "" {
		token, err := middleware.IssueToken(cfg.Server.JWTSecret, model.Principal(*issueToken), *tokenTTL, time.Now())
		if err != nil {
			logger.L.Fatal("Failed to issue token", zap.Error(err))
		}
		fmt.Println(token)
		return
	}

	if err := run(cfg); err != nil {
		logger.L.Fatal("Server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	store, storeCloser, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	closers = append(closers, storeCloser)

	var rdb *redis.Client
	if cfg.Notify.Sink == "redis" || cfg.RateLimit.Enabled {
		rdb, err = database.InitRedis(ctx, &cfg.Redis)
		if err != nil {
			return fmt.Errorf("init redis: %w", err)
		}
		closers = append(closers, func() { rdb.Close() })
	}

	q, queueCloser, err := openQueue(ctx, cfg, rdb)
	if err != nil {
		return err
	}
	closers = append(closers, queueCloser)

	clk := clock.NewSystem()
	svc := service.NewLedgerService(store, clk,
		service.WithPolicy(service.Policy{
			PurchaseCooldown: cfg.Ledger.PurchaseCooldown,
			MaxPerPurchase:   cfg.Ledger.MaxPerPurchase,
		}),
		service.WithCallbackWait(cfg.Ledger.CallbackWait),
	)

	relay := worker.NewNotificationRelay(store, q, cfg.Notify.RelayInterval, cfg.Notify.RelayBatch)
	if err := relay.Start(ctx); err != nil {
		return fmt.Errorf("start relay: %w", err)
	}
	if err := worker.NewNotificationConsumer(q, worker.LogNotification).Start(ctx); err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}

	gin.SetMode(cfg.Server.GinMode)
	protected := []gin.HandlerFunc{middleware.Authenticate(cfg.Server.JWTSecret)}
	if cfg.RateLimit.Enabled {
		limiter := cache.NewRedisTokenBucket(rdb, cache.TokenBucketConfig{
			Capacity:       cfg.RateLimit.Capacity,
			RefillInterval: cfg.RateLimit.RefillInterval,
			Prefix:         cfg.RateLimit.Prefix,
		}, clk)
		protected = append(protected, middleware.RateLimit(limiter, limiter.Capacity()))
	}
	router := handler.NewRouter(svc, clk, protected...)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.L.Info("HTTP server listening",
			zap.String("addr", srv.Addr),
			zap.String("store", cfg.Store.Driver),
			zap.String("notify_sink", cfg.Notify.Sink))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.L.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, func(), error) {
	switch cfg.Store.Driver {
	case "memory":
		return repository.NewMemoryStore(), func() {}, nil
	case "postgres":
		pool, err := database.InitDatabase(ctx, &cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("init database: %w", err)
		}
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return repository.NewPostgresStore(pool), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func openQueue(ctx context.Context, cfg *config.Config, rdb *redis.Client) (queue.NotificationQueue, func(), error) {
	switch cfg.Notify.Sink {
	case "memory":
		return queue.NewNotificationQueue(1000), func() {}, nil
	case "redis":
		hostname, _ := os.Hostname()
		consumerID := hostname + "-" + uuid.NewString()[:8]
		q, err := queue.NewRedisStreamNotificationQueue(ctx, rdb, consumerID, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("init redis stream: %w", err)
		}
		return q, func() {}, nil
	case "amqp":
		q, err := queue.NewAMQPNotificationQueue(cfg.Notify.AMQPURL, cfg.Notify.AMQPQueue)
		if err != nil {
			return nil, nil, fmt.Errorf("init amqp: %w", err)
		}
		return q, func() { q.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown notify sink %q", cfg.Notify.Sink)
	}
}
