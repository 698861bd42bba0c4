package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dmoroney/saverdash/internal/api/handlers"
	"github.com/dmoroney/saverdash/internal/api/middleware"
	"github.com/dmoroney/saverdash/internal/jobs"
	"github.com/dmoroney/saverdash/internal/jobs/inmemory"
	"github.com/dmoroney/saverdash/internal/logger"
	"github.com/dmoroney/saverdash/internal/snapshot"
	"github.com/dmoroney/saverdash/internal/upbank"
)

func main() {
	// Parse command-line flags
	var (
		port     = flag.String("port", "8080", "HTTP server port")
		token    = flag.String("token", os.Getenv("UP_TOKEN"), "Up personal access token (or set UP_TOKEN env)")
		timezone = flag.String("timezone", "UTC", "Time zone for bucketing transactions into calendar dates")
		pageSize = flag.Int("page-size", 100, "Transactions page size for API fetches")
	)
	flag.Parse()

	// Initialize logger
	log := logger.New()

	if *token == "" {
		log.Fatal().Msg("No Up token configured - pass -token or set UP_TOKEN")
	}

	loc, err := time.LoadLocation(*timezone)
	if err != nil {
		log.Fatal().Err(err).Str("timezone", *timezone).Msg("Unknown time zone")
	}

	client, err := upbank.NewClient(*token,
		upbank.WithPageSize(*pageSize),
		upbank.WithLogger(logger.WithComponent(log, "upbank")),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid Up token")
	}

	ctx := context.Background()

	// Fail fast on a bad credential before serving anything.
	pingCtx, cancelPing := context.WithTimeout(ctx, 15*time.Second)
	if err := client.Ping(pingCtx); err != nil {
		cancelPing()
		if upbank.IsAuthError(err) {
			log.Fatal().Err(err).Msg("Up token rejected - generate a new personal access token")
		}
		log.Warn().Err(err).Msg("Could not reach the Up API at startup, continuing anyway")
	} else {
		cancelPing()
	}

	// Snapshot store and job infrastructure
	snapStore := snapshot.NewStore()
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(10, 1, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	// Refresh jobs re-fetch everything and swap the snapshot in one step.
	jobHandler := func(ctx context.Context, job jobs.Job) error {
		refreshJob, ok := job.(*jobs.RefreshJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().Str("job_id", refreshJob.JobID).Msg("Processing refresh job")

		snap, err := snapshot.Fetch(ctx, client, upbank.TransactionOptions{Since: refreshJob.Since})
		if err != nil {
			log.Error().Err(err).Str("job_id", refreshJob.JobID).Msg("Snapshot refresh failed")
			return err
		}
		snapStore.Replace(snap)

		log.Info().
			Str("job_id", refreshJob.JobID).
			Int("accounts", len(snap.Accounts)).
			Msg("Snapshot refreshed")

		return nil
	}

	go func() {
		log.Info().Msg("Starting refresh worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Refresh worker stopped with error")
		}
	}()

	// Populate the snapshot without waiting for the first manual refresh.
	if err := jobQueue.PublishRefresh(ctx, &jobs.RefreshJob{}); err != nil {
		log.Error().Err(err).Msg("Failed to enqueue initial refresh")
	}

	// Initialize handlers
	accountsHandler := handlers.NewAccountsHandler(snapStore, log)
	seriesHandler := handlers.NewSeriesHandler(snapStore, loc, logger.WithComponent(log, "series"))
	refreshHandler := handlers.NewRefreshHandler(jobQueue, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	// Create router
	mux := http.NewServeMux()

	mux.HandleFunc("/api/accounts", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			accountsHandler.ListAccounts(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/series", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			seriesHandler.GetSeries(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/refresh", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			refreshHandler.EnqueueRefresh(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"status":         "healthy",
			"snapshot_ready": snapStore.Ready(),
			"time":           time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware. RequestID runs before Logger so access log lines
	// carry the request ID.
	handler := middleware.Recovery(log)(
		middleware.RequestID(
			middleware.Logger(log)(
				middleware.CORS(mux),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight refreshes
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	log.Info().Msg("Server exited")
}
