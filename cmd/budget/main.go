package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"budget/internal/auth"
	"budget/internal/cache"
	"budget/internal/cli"
	apphttp "budget/internal/http"
	"budget/internal/ledger"
	"budget/internal/log"
)

func main() {
	logger := cli.SetupLogger()
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(logger)

	store := cli.InitStore(logger, cfg.SQLiteDBPath)
	defer store.Close()

	svc := ledger.NewService(store, ledger.Config{
		CacheSize: cfg.CacheSize,
		CacheTTL:  cfg.CacheTTL,
	})

	authenticator, err := auth.LoadCredentials(cfg.CredentialsFile)
	if err != nil {
		logger.Error("Failed to load credentials", log.FieldError, err, "path", cfg.CredentialsFile)
		os.Exit(1)
	}
	sessions := auth.NewSessions(cfg.SessionTTL)

	srv := apphttp.NewServer(":"+cfg.Port, svc, authenticator, sessions)

	janitor := cache.NewJanitor()
	svc.RegisterCaches(janitor)
	srv.RegisterCleaners(janitor)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting budget server", "port", cfg.Port, "db", cfg.SQLiteDBPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return janitor.Run(ctx, cfg.CacheCleanupInterval)
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
