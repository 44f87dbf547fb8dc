package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/im-Prabhasha/VolumeTracker/internal/config"
	httpiface "github.com/im-Prabhasha/VolumeTracker/internal/interfaces/http"
	"github.com/im-Prabhasha/VolumeTracker/internal/interfaces/ws"
	"github.com/im-Prabhasha/VolumeTracker/internal/providers/coingecko"
	"github.com/im-Prabhasha/VolumeTracker/internal/scheduler"
	"github.com/im-Prabhasha/VolumeTracker/internal/telemetry"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the refresh scheduler and dashboard API",
		Long:  "Fetches the market listing on a timer and serves /api/assets, /api/summary, /api/refresh, /health, /metrics, and /ws until interrupted.",
		RunE:  runServe,
	}

	cmd.Flags().String("config", "", "Path to YAML config file")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	setLogLevel(cfg.Log.Level)

	metrics := telemetry.NewMetrics()
	client := coingecko.NewClient(cfg.Provider(), metrics)
	refresher := scheduler.New(client, cfg.Interval(), metrics)
	hub := ws.NewHub(metrics)

	refresher.OnRefresh(func(snap scheduler.Snapshot) {
		hub.Broadcast(ws.RefreshNotice{
			Type:            "refresh",
			BatchID:         snap.Batch.ID,
			FetchedAt:       snap.Batch.FetchedAt,
			Records:         len(snap.Batch.Records),
			HighVolumeCount: snap.Summary.HighVolumeCount,
		})
	})

	server := httpiface.NewServer(cfg.Server, refresher, hub, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		if err := refresher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("Refresh scheduler exited")
		}
	}()

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	log.Info().
		Str("version", version).
		Dur("refresh_interval", cfg.Interval()).
		Msg("voltracker serving")

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		stop()
		<-schedulerDone
		return fmt.Errorf("http server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("HTTP shutdown incomplete")
	}
	<-schedulerDone

	log.Info().Msg("voltracker stopped")
	return nil
}
