package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avolkov/spimexfeed/config"
	"github.com/avolkov/spimexfeed/internal/app"
	"github.com/avolkov/spimexfeed/internal/fetch"
	"github.com/avolkov/spimexfeed/internal/ingestion"
	"github.com/avolkov/spimexfeed/internal/logger"
	"github.com/avolkov/spimexfeed/internal/storage"
)

// startServer initializes and starts the HTTP server in a separate goroutine.
//
// Parameters:
//   - router (http.Handler): The HTTP router (Gin Engine) configured with all routes.
//   - port (string): The port where the server will listen for incoming requests.
//
// Returns:
//   - *http.Server: The initialized HTTP server instance.
func startServer(router http.Handler, port string) *http.Server {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.L().Info().Str("port", port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal().Err(err).Msg("server failed to start")
		}
	}()

	return server
}

// gracefulShutdown gracefully terminates the HTTP server and cleans up resources
// when an OS interrupt signal (SIGINT, SIGTERM) is received.
//
// Parameters:
//   - ctx (context.Context): A context with timeout for graceful shutdown.
//   - server (*http.Server): The HTTP server instance to shut down.
//   - cleanup (func()): Cleanup callback to release resources (e.g., DB connections).
func gracefulShutdown(ctx context.Context, server *http.Server, cleanup func()) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	logger.L().Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.L().Fatal().Err(err).Msg("server forced to shutdown")
	}

	cleanup()
	logger.L().Info().Msg("server exited gracefully")
}

// parseDay accepts a calendar date as either 2006-01-02 or 20060102.
func parseDay(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "20060102"} {
		if d, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD or YYYYMMDD)", s)
}

// main is the entry point of the spimexfeed application.
//
// Modes (selected via --mode flag):
//   - ingest: Downloads SPIMEX daily trading reports for a date range and
//     persists the extracted records.
//   - api:    Starts the REST API to expose the stored trading results.
//
// Flags:
//   - --mode: Execution mode ("ingest" or "api"). Default: "ingest".
//   - --from: First report date to ingest (YYYY-MM-DD or YYYYMMDD). Default: first day of the current month.
//   - --to:   Last report date to ingest. Default: today.
//   - --dir:  Directory where downloaded reports are stored. Default: from config (REPORTS_DIR).
//   - --port: Port for the API server. Defaults to value from config (SERVER_PORT).
func main() {
	ctx := context.Background()

	// Load configuration from environment or .env file
	config.LoadConfig()

	// Initialize JSON logger
	logger.Init()

	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local)

	// Parse CLI flags (override config defaults if provided)
	mode := flag.String("mode", "ingest", "Mode: ingest or api")
	fromFlag := flag.String("from", monthStart.Format("2006-01-02"), "First report date (YYYY-MM-DD or YYYYMMDD)")
	toFlag := flag.String("to", now.Format("2006-01-02"), "Last report date (YYYY-MM-DD or YYYYMMDD)")
	dir := flag.String("dir", config.AppConfig.Ingest.Dir, "Directory for downloaded reports")
	port := flag.String("port", config.AppConfig.Server.Port, "Port for API mode")
	flag.Parse()

	switch *mode {
	case "ingest":
		// Ingestion mode: download daily reports and persist trading results
		from, err := parseDay(*fromFlag)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("invalid --from")
		}
		to, err := parseDay(*toFlag)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("invalid --to")
		}
		if to.Before(from) {
			logger.L().Fatal().
				Str("from", from.Format("2006-01-02")).
				Str("to", to.Format("2006-01-02")).
				Msg("--to precedes --from")
		}

		logger.L().Info().
			Str("from", from.Format("2006-01-02")).
			Str("to", to.Format("2006-01-02")).
			Msg("running ingestion")

		// Direct DB connection for ingestion
		db, err := app.InitPostgres(config.AppConfig)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("db connect error")
		}
		defer func() { _ = db.Close() }()

		repo := storage.NewRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			logger.L().Fatal().Err(err).Msg("schema bootstrap failed")
		}

		client := &http.Client{Timeout: 60 * time.Second}
		fetcher := fetch.New(client, *dir, config.AppConfig.Ingest.Concurrency)

		if err := ingestion.ProcessRange(ctx, repo, fetcher, config.AppConfig.Ingest.BaseURL, *dir, from, to); err != nil {
			logger.L().Fatal().Err(err).Msg("ingestion failed")
		}
		logger.L().Info().Msg("ingestion completed successfully")

	case "api":
		// API mode: start the HTTP server
		logger.L().Info().Msg("starting API server")

		router, cleanup, err := app.InitializeApp()
		if err != nil {
			logger.L().Fatal().Err(err).Msg("app init error")
		}

		server := startServer(router, *port)
		gracefulShutdown(ctx, server, cleanup)

	default:
		logger.L().Fatal().Str("mode", *mode).Msg("unknown mode")
	}
}
