/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the production simulation service.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags, load configuration (viper + .env)
  2. Build the zap logger
  3. Open the repository (sqlite or postgres) and apply migrations
  4. Start the run queue, failing runs a previous process left behind
  5. Configure the HTTP router and serve until SIGINT/SIGTERM

COMMAND-LINE FLAGS:
  -config  YAML configuration file (default: search ./prodsim.yaml)
  -port    HTTP server port, overrides http.addr
  -db      SQLite database path, forces the sqlite driver
           Use ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (http.shutdown_timeout)
  3. Stop the run queue (running simulations are canceled)
  4. Close the repository

EXAMPLES:
  ./server -db="./data/prodsim.db"
  ./server -port=3000
  PRODSIM_DATABASE_DRIVER=postgres PRODSIM_DATABASE_DSN=postgres://... ./server

SEE ALSO:
  - config/config.go: Keys and defaults
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/warp/production-engine/api"
	"github.com/warp/production-engine/config"
	"github.com/warp/production-engine/factory"
	"github.com/warp/production-engine/generic"
	"github.com/warp/production-engine/store/postgres"
	"github.com/warp/production-engine/store/sqlite"
)

// repository is what the server needs from a store beyond api.Repository.
type repository interface {
	api.Repository
	Close() error
}

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	port := flag.Int("port", 0, "HTTP server port (overrides http.addr)")
	dbPath := flag.String("db", "", "SQLite database path (forces the sqlite driver)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port > 0 {
		cfg.HTTP.Addr = fmt.Sprintf(":%d", *port)
	}
	if *dbPath != "" {
		cfg.Database.Driver = "sqlite"
		cfg.Database.DSN = *dbPath
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, journal, err := openRepository(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	defer func() { _ = repo.Close() }()
	logger.Info("database ready", zap.String("driver", cfg.Database.Driver))

	var metrics *api.Metrics
	if cfg.Metrics.Enabled {
		metrics = api.NewMetrics()
	}

	queue := api.NewRunQueue(repo, api.RunQueueOptions{
		Workers:   cfg.Runner.Workers,
		QueueSize: cfg.Runner.QueueSize,
		Logger:    logger.Named("runqueue"),
		Metrics:   metrics,
		Journal:   journal,
	})
	if _, err := queue.Recover(ctx); err != nil {
		logger.Warn("Failed to recover interrupted runs", zap.Error(err))
	}
	queue.Start()

	f := factory.NewScenarioFactory()
	f.Defaults = cfg.Settings()

	handler := api.NewHandler(repo, f, queue, metrics, logger.Named("api"))
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		ExposeMetrics:  cfg.Metrics.Enabled,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  2 * cfg.HTTP.ReadTimeout,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", cfg.HTTP.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	queue.Stop()

	logger.Info("server stopped")
}

// openRepository returns the configured store and, for sqlite, a journal
// factory that persists each run's cash ledger.
func openRepository(ctx context.Context, db config.DatabaseConfig) (repository, func(string) generic.Store, error) {
	switch db.Driver {
	case "postgres":
		st, err := postgres.New(ctx, db.DSN)
		if err != nil {
			return nil, nil, err
		}
		return st, nil, nil
	default:
		st, err := sqlite.New(db.DSN)
		if err != nil {
			return nil, nil, err
		}
		return st, func(runID string) generic.Store { return st.Entries(runID) }, nil
	}
}
