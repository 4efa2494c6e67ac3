package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"videobridge/internal/adapters/storage/memory"
	"videobridge/internal/domain"
	cfgpkg "videobridge/internal/infrastructure/config"
	"videobridge/internal/infrastructure/engine"
	"videobridge/internal/infrastructure/fetcher"
	httpapi "videobridge/internal/infrastructure/httpapi"
	obs "videobridge/internal/infrastructure/observability"
	"videobridge/internal/usecase"
)

func main() {
	cfg := cfgpkg.FromEnv()

	logger := obs.NewLogger(cfg.LogLevel)
	logger.Info().Str("addr", cfg.Addr).Str("engine", cfg.EngineURL).Msg("starting videobridge")

	metrics := obs.NewMetrics()

	registry := memory.NewRegistry()
	mux := usecase.NewMultiplexer(registry, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := engine.Dial(ctx, cfg, logger, metrics, mux)
	if err != nil {
		logger.Error().Err(err).Msg("engine dial failed")
		os.Exit(1)
	}

	deps := &httpapi.Deps{Cfg: cfg, Logger: logger, Metrics: metrics, Mux: mux}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewRouter(deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("ops server error")
			os.Exit(1)
		}
	}()

	runErr := make(chan error, 1)
	go func() { runErr <- client.Run(ctx) }()

	fetch := fetcher.New(mux, logger, cfg.FetchTimeout)
	if cfg.SourceURI != "" {
		sid, events, err := client.CreateSession(ctx, domain.SourceDescriptor{
			URI:        cfg.SourceURI,
			FormatHint: cfg.SourceFormatHint,
			Custom:     true,
		})
		if err != nil {
			logger.Error().Err(err).Str("uri", cfg.SourceURI).Msg("session create failed")
		} else {
			go fetch.Run(ctx, sid, events)
			if err := client.Play(ctx, sid); err != nil {
				logger.Error().Err(err).Int64("session", sid).Msg("play failed")
			}
		}
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-stop:
	case err := <-runErr:
		if err != nil {
			logger.Error().Err(err).Msg("engine stream error")
		}
	}

	client.Close()
	cancel()

	sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer scancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Error().Err(err).Msg("ops server shutdown error")
	}
	logger.Info().Msg("videobridge stopped")
}
