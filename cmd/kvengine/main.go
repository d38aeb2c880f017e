// Command kvengine wires the in-memory keyspace, the command executor,
// the pub/sub broker, and their adapters (plain TCP, the read-only
// WebSocket observer, and a Prometheus /metrics endpoint) into a
// runnable server.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	_ "go.uber.org/automaxprocs"

	"github.com/adred-codev/kvengine/internal/clusterbridge"
	"github.com/adred-codev/kvengine/internal/command"
	"github.com/adred-codev/kvengine/internal/config"
	"github.com/adred-codev/kvengine/internal/executor"
	"github.com/adred-codev/kvengine/internal/metrics"
	"github.com/adred-codev/kvengine/internal/server"
	"github.com/adred-codev/kvengine/internal/server/wsadmin"
)

func main() {
	debug := flag.Bool("debug", false, "enable debug logging (overrides KV_LOG_LEVEL)")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load(&logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	if *debug {
		cfg.LogLevel = "debug"
	}
	switch cfg.LogLevel {
	case "error":
		logger = logger.Level(zerolog.ErrorLevel)
	case "info":
		logger = logger.Level(zerolog.InfoLevel)
	default:
		logger = logger.Level(zerolog.DebugLevel)
	}
	logger.Info().Int("port", cfg.Port).Str("db_filename", cfg.DBFilename).Msg("starting kvengine")

	exec := executor.New(logger, cfg.ConfigPath)

	ctx, cancel := context.WithCancel(context.Background())
	go exec.Run(ctx)

	if cfg.DBFilename != "" {
		if resp := exec.Execute(command.Command{Kind: command.Load, Path: cfg.DBFilename}); resp.Kind == executor.ErrorResponse {
			logger.Warn().Str("err", resp.Err).Str("path", cfg.DBFilename).Msg("no snapshot loaded at startup")
		}
	}

	var bridge *clusterbridge.Bridge
	if cfg.NATSURL != "" {
		bridge, err = clusterbridge.Connect(cfg.NATSURL, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("clusterbridge unavailable, continuing single-process")
		} else {
			bridge.Start(ctx)
			exec.Mirror = bridge.MirrorPublish
			if err := bridge.SubscribeMirror(exec); err != nil {
				logger.Warn().Err(err).Msg("clusterbridge mirror subscribe failed")
			}
			defer bridge.Close()
		}
	}

	addr := ":" + strconv.Itoa(cfg.Port)
	srv := server.New(exec, logger)
	go func() {
		if err := srv.ListenAndServe(ctx, addr); err != nil {
			logger.Error().Err(err).Msg("tcp server stopped")
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/observe", wsadmin.New(exec, logger))
	httpAddr := ":" + strconv.Itoa(cfg.Port+1)
	httpSrv := &http.Server{Addr: httpAddr, Handler: mux}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("admin http server stopped")
		}
	}()

	logger.Info().Str("tcp_addr", addr).Str("http_addr", httpAddr).Msg("kvengine ready")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpSrv.Shutdown(shutdownCtx)

	if cfg.DBFilename != "" {
		// Persist before cancelling the executor's run loop: Execute
		// blocks on a reply that only arrives while Run is still draining
		// requests.
		if resp := exec.Execute(command.Command{Kind: command.Store, Path: cfg.DBFilename}); resp.Kind == executor.ErrorResponse {
			logger.Error().Str("err", resp.Err).Msg("failed to persist snapshot on shutdown")
		}
	}
	cancel()
}
