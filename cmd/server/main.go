// Command authcore-server starts the authentication service.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/and161185/authcore/internal/config"
	"github.com/and161185/authcore/internal/migrate"
	"github.com/and161185/authcore/internal/repository/postgres"
	"github.com/and161185/authcore/internal/server/httpapi"
	"github.com/and161185/authcore/internal/service"
	"github.com/and161185/authcore/migrations"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main parses configuration, runs migrations, and starts the HTTP server.
func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		// No logger yet.
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
		zap.Bool("production", cfg.Production),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// DB pool, with boot-time retry while the server is still coming up.
	db, err := postgres.Connect(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("database connect", zap.Error(err))
	}
	defer db.Close()

	// Migrations run on a dedicated connection before the listener starts;
	// an unknown schema state is fatal.
	if err := runMigrations(ctx, cfg.DatabaseDSN); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	// Repositories
	userRepo := postgres.NewUserRepo(db)
	sessionRepo := postgres.NewSessionRepo(db)

	// Services
	authSvc := service.NewAuth(userRepo, sessionRepo, cfg.SessionTTL(), logger)

	api := httpapi.New(authSvc, cfg.Production, logger, func(r *http.Request) error {
		return db.Ping(r.Context())
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	// Wait for stop
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}

// runMigrations applies pending schema files on a dedicated connection,
// released as soon as the run finishes.
func runMigrations(ctx context.Context, dsn string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close(ctx) }()

	return migrate.Up(ctx, conn, migrations.FS)
}
