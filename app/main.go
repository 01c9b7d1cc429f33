package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/lysyi3m/cap-comb/app/alerting"
	"github.com/lysyi3m/cap-comb/app/api"
	"github.com/lysyi3m/cap-comb/app/cfg"
	"github.com/lysyi3m/cap-comb/app/database"
	"github.com/lysyi3m/cap-comb/app/observability"
	"github.com/lysyi3m/cap-comb/app/publish"
	"github.com/lysyi3m/cap-comb/app/snapshot"
	"github.com/lysyi3m/cap-comb/app/source"
	"github.com/lysyi3m/cap-comb/app/tasks"
)

func main() {
	if err := run(); err != nil {
		slog.Error("CAP Comb stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	appCfg, err := cfg.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if appCfg == nil {
		// help requested
		return nil
	}

	slog.SetDefault(observability.NewLogger(os.Stdout, appCfg.LogLevel, appCfg.LogFormat))

	slog.Info("Starting CAP Comb", "version", appCfg.Version, "port", appCfg.Port, "workers", appCfg.WorkerCount)

	db, err := database.Open(appCfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	slog.Debug("Database ready", "path", appCfg.DBPath)

	configCache := source.NewConfigCache(appCfg.SourcesDir)
	if err := configCache.Run(); err != nil {
		return fmt.Errorf("failed to load source configurations: %w", err)
	}
	slog.Info("Source configurations loaded", "count", configCache.GetConfigCount(), "dir", appCfg.SourcesDir)

	var publisher publish.Publisher = publish.NoopPublisher{}
	if appCfg.KafkaEnabled() {
		publisher = publish.NewKafkaPublisher(appCfg.KafkaBrokers, appCfg.KafkaTopic, slog.Default())
		slog.Info("Publishing alerts to Kafka", "brokers", appCfg.KafkaBrokers, "topic", appCfg.KafkaTopic)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			slog.Warn("Publisher close error", "error", err)
		}
	}()

	sourceRepo := database.NewSourceRepository(db)
	snapshots := snapshot.NewStore()

	deps := &tasks.Deps{
		ConfigCache:      configCache,
		SourceRepo:       sourceRepo,
		Client:           alerting.NewClient(&http.Client{}, slog.Default()),
		Filterer:         source.NewFilterer(),
		Snapshots:        snapshots,
		Publisher:        publisher,
		Metrics:          observability.NewMetrics(),
		Clock:            clockwork.NewRealClock(),
		UserAgent:        appCfg.UserAgent,
		FetchConcurrency: appCfg.FetchConcurrency,
	}

	scheduler := tasks.NewScheduler(deps, time.Duration(appCfg.SchedulerInterval)*time.Second, appCfg.WorkerCount)
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(configCache, sourceRepo, snapshots, scheduler, appCfg.Version)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      api.NewServer(handler, appCfg.APIAccessKey),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case runErr = <-serverErrChan:
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP server shutdown error", "error", err)
	}

	return runErr
}
