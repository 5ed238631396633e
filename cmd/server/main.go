package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"astba/training/internal/cache"
	"astba/training/internal/config"
	"astba/training/internal/db"
	traininggrpc "astba/training/internal/grpc"
	internalhttp "astba/training/internal/http"
	"astba/training/internal/logging"
	"astba/training/internal/memdb"
	"astba/training/internal/operations"
	"astba/training/internal/store"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: cfg.LogOutput,
	}, logging.DefaultServiceName)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var st store.Store
	switch cfg.StoreDriver {
	case config.DriverMemory:
		logger.Warn("using the in-memory store, data is lost on restart")
		st = memdb.New()
	case config.DriverPostgres:
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("db connection failed", zap.Error(err))
		}
		defer pool.Close()
		if cfg.MigrateOnStart {
			if err := db.Migrate(ctx, pool); err != nil {
				logger.Fatal("db migration failed", zap.Error(err))
			}
		}
		st = db.NewStore(pool)
	default:
		logger.Fatal("unknown store driver", zap.String("driver", cfg.StoreDriver))
	}

	policy := operations.DefaultPolicy()
	policy.EnforceBulkCapacity = cfg.EnforceBulkCapacity
	policy.BulkEnrollConcurrency = cfg.BulkEnrollConcurrency
	policy.DefaultMaxParticipants = cfg.DefaultMaxParticipants
	opts := []operations.Option{operations.WithLogger(logger), operations.WithPolicy(policy)}

	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			cancel()
			logger.Fatal("redis ping failed", zap.Error(err))
		}
		cancel()
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close error", zap.Error(err))
			}
		}()
		opts = append(opts, operations.WithCache(cache.NewStatsCache(redisClient, cfg.StatsCacheTTL)))
	}

	svc := operations.NewService(st, opts...)

	server, err := internalhttp.NewServer(cfg, svc, logger)
	if err != nil {
		logger.Fatal("server init failed", zap.Error(err))
	}
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	var grpcServer *grpc.Server
	if cfg.ServiceAuthToken == "" {
		logger.Warn("SERVICE_AUTH_TOKEN is empty, grpc server disabled")
	} else {
		grpcServer, err = traininggrpc.NewServer(cfg.ServiceAuthToken, svc, logger)
		if err != nil {
			logger.Fatal("grpc server init failed", zap.Error(err))
		}
		listener, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			logger.Fatal("grpc listen error", zap.Error(err))
		}
		go func() {
			logger.Info("grpc listening", zap.String("addr", cfg.GRPCAddr))
			if err := grpcServer.Serve(listener); err != nil {
				logger.Error("grpc server error", zap.Error(err))
			}
		}()
	}

	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", zap.Error(err))
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
}
