package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/glizzus/opus2mp3/internal/config"
	"github.com/glizzus/opus2mp3/internal/generator"
	"github.com/glizzus/opus2mp3/internal/handler"
	"github.com/glizzus/opus2mp3/internal/metrics"
	"github.com/glizzus/opus2mp3/internal/schedule"
	"github.com/glizzus/opus2mp3/internal/staging"
	"github.com/glizzus/opus2mp3/internal/transcode"
)

const shutdownTimeout = 15 * time.Second

func runServerForever(ctx context.Context) error {
	if err := config.LoadEnv(); err != nil {
		if os.IsNotExist(err) {
			slog.Warn("No .env file found, continuing without it")
		} else {
			return fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	transcodeConfig, err := config.NewTranscodeConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load transcode config: %w", err)
	}
	stagingConfig, err := config.NewStagingConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load staging config: %w", err)
	}
	if err := stagingConfig.CheckTranscoderTimeout(transcodeConfig.TranscoderTimeout); err != nil {
		return fmt.Errorf("invalid staging config: %w", err)
	}
	serverConfig, err := config.NewServerConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load server config: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	opts := transcode.DefaultOptions()

	pool := transcode.NewStreamingPool(transcodeConfig.BufferPoolSlots, opts)
	m.WatchPool(pool)
	streaming, err := transcode.NewStreaming(pool, opts, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to create streaming converter: %w", err)
	}

	stagingDir, err := staging.EnsureDir(transcodeConfig.StagingDir)
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	staged, err := transcode.NewStaged(transcode.StagedConfig{
		Tool:    transcodeConfig.TranscoderPath,
		Dir:     stagingDir,
		Timeout: transcodeConfig.TranscoderTimeout,
	}, opts, &generator.HexIDGenerator{}, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to create staged converter: %w", err)
	}

	gin.SetMode(serverConfig.GinMode)
	server, err := handler.NewServer([]handler.Converter{
		transcode.NewService(transcode.StrategyStreaming, streaming, m, slog.Default()),
		transcode.NewService(transcode.StrategyStaged, staged, m, slog.Default()),
	}, handler.ServerOptions{
		DefaultStrategy: transcodeConfig.Strategy,
		MaxBodyBytes:    serverConfig.MaxBodyBytes,
		Gatherer:        reg,
		Logger:          slog.Default(),
	})
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	if next, err := schedule.NextRunTimesAfter(stagingConfig.SweepCron, time.Now().UTC(), 1); err == nil {
		slog.Info("Staging janitor scheduled",
			"cron", stagingConfig.SweepCron,
			"maxAge", stagingConfig.MaxAge,
			"nextRun", next[0],
		)
	}

	go func() {
		err := schedule.RunCron(ctx, stagingConfig.SweepCron, func(ctx context.Context) {
			result := staging.Sweep(ctx, stagingDir, stagingConfig.MaxAge, slog.Default())
			if len(result.Removed) > 0 || len(result.Errors) > 0 {
				slog.InfoContext(ctx, "Swept staging directory",
					"dir", stagingDir,
					"removed", len(result.Removed),
					"errors", len(result.Errors),
				)
			}
		})
		if err != nil {
			slog.Error("Staging janitor stopped", "error", err)
		}
	}()

	httpServer := &http.Server{
		Addr:              serverConfig.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Listening",
			"addr", serverConfig.Addr,
			"defaultStrategy", transcodeConfig.Strategy,
			"stagingDir", stagingDir,
			"poolSlots", pool.Cap(),
		)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runServerForever(ctx); err != nil {
		log.Fatalf("Server exited with error: %v", err)
	}
}
