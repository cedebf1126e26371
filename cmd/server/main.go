/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the back-office ledger server: configuration,
  logging, storage, the integrity engine, the HTTP router, and graceful
  shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags (override environment)
  2. Load configuration (.env + environment)
  3. Build logger
  4. Open SQLite gateway
  5. Construct engine and router
  6. Serve with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: from PORT env, 8080)
  -db      SQLite database path (default: from DB_PATH env, ledger.db)
           Use ":memory:" for an in-memory database
  -env     Path to .env file (default: .env)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM: stop accepting connections, wait up to 30s for
  in-flight requests, close the database, exit.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/finbooks/ledger-engine/api"
	"github.com/finbooks/ledger-engine/internal/config"
	"github.com/finbooks/ledger-engine/internal/logger"
	"github.com/finbooks/ledger-engine/ledger"
	"github.com/finbooks/ledger-engine/store/sqlite"
)

func main() {
	port := flag.Int("port", 0, "HTTP server port (overrides PORT)")
	dbPath := flag.String("db", "", "SQLite database path (overrides DB_PATH)")
	envFile := flag.String("env", ".env", "path to .env file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	gw, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("db", cfg.DBPath).Msg("failed to open database")
	}
	defer gw.Close()

	engine := ledger.NewEngine(gw, gw, ledger.Settings{InvoicePrefix: cfg.InvoicePrefix}, log)
	handler := api.NewHandler(engine, log)
	router := api.NewRouter(handler, cfg.AllowedOrigins)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Port).Str("db", cfg.DBPath).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}

	log.Info().Msg("server stopped")
}
