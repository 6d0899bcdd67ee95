package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/splax/moviegate/internal/app/migrate"
	"github.com/splax/moviegate/internal/catalog"
	"github.com/splax/moviegate/internal/gate"
	httpx "github.com/splax/moviegate/internal/http"
	"github.com/splax/moviegate/internal/repository"
	"github.com/splax/moviegate/internal/repository/filestore"
	"github.com/splax/moviegate/internal/repository/postgres"
	"github.com/splax/moviegate/internal/repository/redisstore"
	"github.com/splax/moviegate/internal/service/auth"
	"github.com/splax/moviegate/internal/session"
	"github.com/splax/moviegate/internal/web"
	"github.com/splax/moviegate/pkg/config"
	"github.com/splax/moviegate/pkg/crypto"
	"github.com/splax/moviegate/pkg/jwt"
	"github.com/splax/moviegate/pkg/logger"
)

const storeReadyTimeout = 30 * time.Second

func main() {
	cfg, err := config.LoadAPIConfig()
	if err != nil {
		logger.New("api", slog.LevelInfo).Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New("api", logger.ParseLevel(cfg.LogLevel))
	if cfg.SecretDefault {
		log.Warn("JWT_SECRET not set, using development fallback secret")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	users, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open credential store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	tokens, err := jwt.NewService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		log.Error("failed to configure token service", "error", err)
		os.Exit(1)
	}
	authSvc := auth.New(users, crypto.NewHasher(cfg.BcryptCost), tokens, log)
	sessions := session.New(cfg.CookieSecure)
	accessGate := gate.New(sessions, tokens, log)

	pages, err := web.New()
	if err != nil {
		log.Error("failed to load templates", "error", err)
		os.Exit(1)
	}
	if cfg.TMDBToken == "" {
		log.Warn("TMDB_TOKEN not set, movie lists will be empty")
	}
	movies := catalog.New(cfg.TMDBBaseURL, cfg.TMDBToken, cfg.TMDBCacheDir, log)

	router, err := httpx.NewRouter(httpx.Deps{
		Logger:      log,
		Auth:        authSvc,
		Sessions:    sessions,
		Gate:        accessGate,
		Catalog:     movies,
		Pages:       pages,
		TokenTTL:    tokens.TTL(),
		CORSOrigins: cfg.CORSOrigins,
		Health:      users.Ping,
	})
	if err != nil {
		log.Error("failed to build router", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("api server starting", "addr", cfg.Addr, "store", cfg.StoreDriver, "environment", cfg.Environment)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("api server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}

// openStore builds the configured credential store and waits for it to answer.
func openStore(ctx context.Context, cfg config.APIConfig, log *slog.Logger) (repository.UserRepository, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		runner, err := migrate.New(pool, cfg.DatabaseURL, log)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		if err := waitReady(ctx, log, runner.Ping); err != nil {
			runner.Close()
			return nil, nil, err
		}
		if err := runner.Ensure(ctx); err != nil {
			runner.Close()
			return nil, nil, err
		}
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			runner.Close()
			return nil, nil, err
		}
		return postgres.New(db), closeAll(db, runner.Close), nil
	case config.StoreDriverRedis:
		client := redisstore.Dial(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		store := redisstore.New(client)
		if err := waitReady(ctx, log, store.Ping); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return store, func() { _ = client.Close() }, nil
	default:
		store := filestore.New(cfg.UsersFile)
		if err := store.Ping(ctx); err != nil {
			return nil, nil, err
		}
		log.Info("using file credential store", "path", cfg.UsersFile)
		return store, func() {}, nil
	}
}

func waitReady(ctx context.Context, log *slog.Logger, ping func(context.Context) error) error {
	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := ping(pingCtx); err != nil {
			log.Warn("credential store not ready", "attempt", attempt, "error", err)
			return struct{}{}, err
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxElapsedTime(storeReadyTimeout))
	return err
}

func closeAll(db *sql.DB, rest ...func()) func() {
	return func() {
		_ = db.Close()
		for _, fn := range rest {
			fn()
		}
	}
}
