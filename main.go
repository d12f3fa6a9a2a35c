package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/msomdec/authcore/internal/config"
	"github.com/msomdec/authcore/internal/domain"
	"github.com/msomdec/authcore/internal/handler"
	"github.com/msomdec/authcore/internal/metrics"
	"github.com/msomdec/authcore/internal/repository/postgres"
	"github.com/msomdec/authcore/internal/repository/redis"
	"github.com/msomdec/authcore/internal/repository/sqlite"
	"github.com/msomdec/authcore/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logOpts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	logger := slog.New(slog.NewMultiHandler(
		slog.NewTextHandler(os.Stdout, logOpts),
		slog.NewJSONHandler(os.Stderr, logOpts),
	))
	slog.SetDefault(logger)

	if cfg.UsingDevSecret {
		slog.Warn("JWT_SECRET is not set; signing tokens with the public development secret")
	}

	db, err := openDatabase(context.Background(), cfg)
	if err != nil {
		slog.Error("failed to open database", "driver", cfg.DatabaseDriver, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database ready", "driver", cfg.DatabaseDriver)

	reg := metrics.NewRegistry()
	m := metrics.New(reg)

	var hasher service.PasswordHasher
	switch cfg.PasswordHasher {
	case "argon2id":
		hasher = service.NewArgon2idHasher(cfg.HashSlots)
	default:
		hasher = service.NewBcryptHasher(cfg.BcryptCost, cfg.HashSlots)
	}

	tokens := service.NewTokenIssuer([]byte(cfg.JWTSecret))
	authService := service.NewAuthService(db.Users(), m.InstrumentHasher(hasher), tokens)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, authService, m, cfg.CookieSecure)
	mux.Handle("GET /metrics", metrics.Handler(reg))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.RequestLogger(handler.SecurityHeaders(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "hasher", cfg.PasswordHasher)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func openDatabase(ctx context.Context, cfg *config.Config) (domain.Database, error) {
	switch cfg.DatabaseDriver {
	case "postgres":
		return postgres.New(ctx, cfg.DatabaseURL)
	case "redis":
		return redis.New(ctx, cfg.RedisURL)
	default:
		return sqlite.New(cfg.DatabasePath)
	}
}
