package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresuchdata/rop-engine/internal/api"
	"github.com/andresuchdata/rop-engine/internal/bootstrap"
	"github.com/andresuchdata/rop-engine/internal/config"
	"github.com/andresuchdata/rop-engine/internal/pipeline"
	"github.com/andresuchdata/rop-engine/internal/repository/postgres"
	"github.com/andresuchdata/rop-engine/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.Configure(cfg.Server.Mode, cfg.Server.LogLevel)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	components, err := bootstrap.Build(cfg, db)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize services")
	}

	scheduler, err := startScheduler(cfg.ROP.Schedule, components.Orchestrator)
	if err != nil {
		logger.Log.Fatal().Err(err).Str("schedule", cfg.ROP.Schedule).Msg("Invalid ROP_SCHEDULE")
	}

	// Initialize HTTP server
	router := api.NewRouter(&api.Services{
		ROPService:    components.ROP,
		Orchestrator:  components.Orchestrator,
		ReportService: components.Reports,
	}, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	if scheduler != nil {
		// wait for a running batch to finish
		<-scheduler.Stop().Done()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}

// startScheduler runs the batch calculation on the cron spec. An empty spec
// leaves scheduling to the host.
func startScheduler(spec string, orchestrator *pipeline.Orchestrator) (*cron.Cron, error) {
	if spec == "" {
		return nil, nil
	}

	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := scheduler.AddFunc(spec, func() {
		run, err := orchestrator.CalculateAll(context.Background())
		if err != nil {
			logger.Log.Error().Err(err).Msg("Scheduled ROP calculation failed")
			return
		}
		logger.Log.Info().
			Int64("run_id", run.ID).
			Int("suggestions", run.SuggestionCount).
			Int("errors", len(run.Errors)).
			Msg("Scheduled ROP calculation finished")
	})
	if err != nil {
		return nil, err
	}

	scheduler.Start()
	logger.Log.Info().Str("schedule", spec).Msg("ROP batch scheduler started")
	return scheduler, nil
}
