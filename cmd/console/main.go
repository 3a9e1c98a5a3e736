package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/tbalint/messaging-console/internal/api"
	"github.com/tbalint/messaging-console/internal/cache"
	"github.com/tbalint/messaging-console/internal/client"
	"github.com/tbalint/messaging-console/internal/config"
	"github.com/tbalint/messaging-console/internal/repo"
	"github.com/tbalint/messaging-console/internal/scheduler"
	"github.com/tbalint/messaging-console/internal/sweep"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadAll()
	if err != nil {
		log.Fatal(err)
	}

	store, err := openStore(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	gw := client.NewGatewayClient(cfg.Gateway.URL, cfg.Gateway.APIKey)

	sweeper, err := sweep.New(store, gw, cfg.Scheduler.BatchSize)
	if err != nil {
		log.Fatal(err)
	}

	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		receipts := cache.NewRedisCache(rdb, cfg.Redis.TTL)
		sweeper.WithSentHook(func(ctx context.Context, id, gatewayMessageID string, sentAt time.Time) error {
			if err := receipts.StoreSent(ctx, id, gatewayMessageID, sentAt); err != nil {
				slog.Warn("failed to cache delivery receipt", "id", id, "error", err)
			}
			return nil
		})
	}

	sched, err := scheduler.New(cfg.Scheduler.Interval, func(ctx context.Context) {
		sum, err := sweeper.Run(ctx)
		if err != nil {
			slog.Error("sweep failed", "error", err)
			return
		}
		if sum.CandidatesFound > 0 {
			slog.Info("sweep finished",
				"candidates", sum.CandidatesFound, "sent", sum.Sent, "failed", sum.Failed)
		}
	})
	if err != nil {
		log.Fatal(err)
	}
	sched.Start()
	defer sched.Stop()

	h := api.NewHandler(sched, sweeper, api.Repos{
		Messages:  store,
		Contacts:  store,
		Templates: store,
		Keys:      store,
		Users:     store,
	})

	var handler http.Handler = api.Router(h)
	if cfg.Auth.Required {
		handler = api.RequireAPIKey(store, handler)
	}
	handler = loggingMiddleware(handler)

	slog.Info("messaging console starting",
		"addr", cfg.Server.Address,
		"driver", cfg.Database.Driver,
		"interval", cfg.Scheduler.Interval.String(),
		"batch", cfg.Scheduler.BatchSize,
		"redis", cfg.Redis.Enabled,
		"auth", cfg.Auth.Required,
	)

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal(err)
	}
}

func openStore(cfg *config.Config) (*repo.Store, error) {
	dsn := cfg.Database.PostgresURL
	if cfg.Database.Driver == repo.DriverSQLite {
		dsn = cfg.Database.SQLitePath
	}

	store, err := repo.Open(cfg.Database.Driver, dsn)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := store.Ping(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
