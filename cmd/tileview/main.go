package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"tileview/internal/camera"
	"tileview/internal/config"
	"tileview/internal/frame_budget"
	"tileview/internal/frame_loop"
	httphandlers "tileview/internal/http"
	"tileview/internal/logger"
	"tileview/internal/metrics"
	"tileview/internal/retrieval"
	"tileview/internal/sector"
	"tileview/internal/tile_catalog"
	"tileview/internal/tile_loader"
	"tileview/internal/viewer"
	"tileview/internal/vips_decoder"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	shutdownVips := vips_decoder.Startup(cfg.VipsMaxCacheMB, cfg.VipsConcurrency, log)
	defer shutdownVips()

	log.Info("Starting tileview",
		zap.Int("port", cfg.Port),
		zap.String("tile_dir", cfg.TileDir),
		zap.Int("screen_width", cfg.ScreenWidth),
		zap.Int("screen_height", cfg.ScreenHeight),
		zap.Int("target_fps", cfg.TargetFPS),
	)

	decoder := vips_decoder.New()
	catalog, err := tile_catalog.Open(cfg.TileDir, decoder, log)
	if err != nil {
		log.Fatal("Failed to open tile catalog", zap.Error(err))
	}

	provider := metrics.NewProvider()
	m := metrics.New(provider.Registerer())

	screen := sector.Size{Width: float64(cfg.ScreenWidth), Height: float64(cfg.ScreenHeight)}
	loader := tile_loader.New(cfg.TileDir, cfg.TileExt, decoder)
	sched := retrieval.New(loader, cfg.Workers, log)
	budget := frame_budget.NewController(cfg.DecodeWindow, cfg.BudgetFraction, log, m)
	v := viewer.New(catalog, sched, budget, viewer.Options{Screen: screen, Fuzziness: cfg.LODFuzziness}, log, m)

	cam := camera.New(screen, catalog.MaxLOD, cfg.LODFuzziness, cfg.MaxZoom)
	loop := frame_loop.New(v, cam, cfg.TargetFPS, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		if err := loop.Run(ctx); err != nil {
			log.Error("Frame loop failed", zap.Error(err))
		}
	}()

	handlers := httphandlers.New(httphandlers.Options{
		AllowedOrigin: cfg.AllowedOrigin,
		Metrics:       provider.Handler(),
	}, log, loop, cam)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handlers.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	log.Info("Server started", zap.Int("port", cfg.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// The loop releases every cached image before libvips shuts down.
	cancel()
	<-loopDone

	log.Info("Server stopped")
}
