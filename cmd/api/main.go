package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/pageturnhq/bookshelf-backend/api/routes"
	"github.com/pageturnhq/bookshelf-backend/internal/books"
	"github.com/pageturnhq/bookshelf-backend/internal/lending"
	"github.com/pageturnhq/bookshelf-backend/internal/search"
	"github.com/pageturnhq/bookshelf-backend/pkg/config"
	"github.com/pageturnhq/bookshelf-backend/pkg/db"
	"github.com/pageturnhq/bookshelf-backend/pkg/logger"
	"github.com/pageturnhq/bookshelf-backend/pkg/metrics"
	"github.com/pageturnhq/bookshelf-backend/pkg/migrate"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	repo := books.NewRepository(dbClient.DB())

	booksService, err := books.NewService(repo, dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create books service", err)
		os.Exit(1)
	}

	httpMetrics := metrics.NewHTTPMetrics(prometheus.DefaultRegisterer)
	lendingMetrics := metrics.NewLendingMetrics(prometheus.DefaultRegisterer)
	lendingService, err := lending.NewService(repo, dbClient, lendingMetrics, logg, cfg.Lending.OperationTimeout)
	if err != nil {
		logg.Error(context.Background(), "failed to create lending service", err)
		os.Exit(1)
	}

	searchService, err := search.NewService(repo)
	if err != nil {
		logg.Error(context.Background(), "failed to create search service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, httpMetrics, booksService, lendingService, searchService),
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			_ = dbClient.Close()
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	cleanupErr := multierr.Combine(
		server.Shutdown(shutdownCtx),
		dbClient.Close(),
	)
	if cleanupErr != nil {
		logg.Error(ctx, "shutdown finished with errors", cleanupErr)
		os.Exit(1)
	}

	logg.Info(ctx, "api server shut down gracefully")
}
