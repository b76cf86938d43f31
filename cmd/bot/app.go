package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xaenox/daylog-bot/internal/extractor"
	"github.com/xaenox/daylog-bot/internal/metrics"
	"github.com/xaenox/daylog-bot/internal/storage"
	"github.com/xaenox/daylog-bot/internal/tracker"
	"github.com/xaenox/daylog-bot/pkg/config"
)

// app holds everything the commands share and must close.
type app struct {
	service *tracker.Service
	store   storage.Storage
	redis   *redis.Client
}

func newLogger(cfg config.LoggingConfig) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Development {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	loc, err := cfg.Tracker.Location()
	if err != nil {
		return nil, err
	}

	store, err := openStorage(cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	a := &app{store: store}

	var locker storage.Locker
	if cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := a.redis.Ping(pingCtx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		logger.Info("Using Redis locks", zap.String("addr", cfg.Redis.Addr))
		locker = storage.NewRedisLocker(a.redis, cfg.Redis.LockTTL)
	} else {
		locker = storage.NewKeyedMutex()
	}

	a.service = tracker.NewService(
		tracker.Config{Location: loc, MaxRetries: cfg.Tracker.MaxRetries},
		tracker.Deps{
			Storage: store,
			Locker:  locker,
			Extractor: extractor.NewGPTExtractor(
				cfg.OpenAI.APIKey,
				cfg.OpenAI.Model,
				cfg.OpenAI.MaxTokens,
				cfg.OpenAI.Temperature,
				logger,
			),
			Transcriber: extractor.NewWhisperTranscriber(cfg.OpenAI.APIKey, cfg.OpenAI.TranscriptionModel, logger),
			Metrics:     metrics.DefaultMetrics(),
			Tracer:      metrics.NewTracer(),
			Logger:      logger,
		},
	)
	return a, nil
}

func openStorage(cfg config.DatabaseConfig, logger *zap.Logger) (storage.Storage, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		logger.Info("Using PostgreSQL storage", zap.String("host", cfg.Host), zap.String("dbname", cfg.DBName))
		return storage.NewPostgresStorage(storage.DatabaseConfig{
			Host:     cfg.Host,
			Port:     cfg.Port,
			User:     cfg.User,
			Password: cfg.Password,
			DBName:   cfg.DBName,
			SSLMode:  cfg.SSLMode,
		}, logger)
	case config.DriverSQLite:
		logger.Info("Using SQLite storage", zap.String("path", cfg.SQLitePath))
		return storage.NewSQLiteStorage(cfg.SQLitePath, logger)
	default:
		logger.Info("Using in-memory storage")
		return storage.NewMemoryStorage(), nil
	}
}

func (a *app) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}

func serveMetrics(addr string, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", zap.Error(err))
		}
	}()
	logger.Info("Serving metrics", zap.String("addr", addr))
	return srv
}
