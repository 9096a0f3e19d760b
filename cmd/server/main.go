/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the points console server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load environment configuration, apply flag overrides
  2. Install the global zap logger
  3. Initialize SQLite store
  4. Wire engine, payout queue, reconciliation, disputes
  5. Start the linkage repair scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default from PORT, else 8080)
  -db      SQLite database path (default from DATABASE_PATH)
           Use ":memory:" for in-memory database
  -dev     Enable reset and scenario loading endpoints

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the repair scheduler
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/points.db"

  # Demo mode with in-memory database
  ./server -db=":memory:" -dev

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Environment configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cashloop/points-console/api"
	"github.com/cashloop/points-console/config"
	"github.com/cashloop/points-console/dispute"
	"github.com/cashloop/points-console/ledger"
	"github.com/cashloop/points-console/payout"
	"github.com/cashloop/points-console/reconcile"
	"github.com/cashloop/points-console/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Flags override the environment.
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	dev := flag.Bool("dev", cfg.Dev, "enable reset and scenario endpoints")
	flag.Parse()

	// Logger
	logger, err := newLogger(*dev)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	// Wire the domain services
	engine := ledger.NewEngine(store, store)
	payouts := payout.NewQueue(engine)
	reconciler := reconcile.NewService(store, store, store)
	disputes := dispute.NewService(store)

	handler := &api.Handler{
		Ledger:      engine,
		Payouts:     payouts,
		Reconcile:   reconciler,
		Disputes:    disputes,
		Companies:   store,
		ScenarioDir: cfg.ScenarioDir,
	}
	if *dev {
		handler.Reset = func() error {
			return store.Reset(context.Background())
		}
	}

	// Background linkage repair
	var scheduler *reconcile.RepairScheduler
	if cfg.RepairInterval > 0 {
		scheduler = reconcile.NewRepairScheduler(reconciler, cfg.RepairInterval)
		scheduler.Start()
	}

	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.Int("port", *port),
			zap.String("db", *dbPath),
			zap.Bool("dev", *dev))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("forced shutdown", zap.Error(err))
	}
	if scheduler != nil {
		scheduler.Stop()
	}

	logger.Info("server stopped")
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
