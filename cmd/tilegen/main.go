package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"tileview/internal/logger"
	"tileview/internal/tile_builder"
	"tileview/internal/vips_decoder"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	src := flag.String("src", "", "source image (tif, jpg, png or webp)")
	out := flag.String("out", "./tiles", "output tile root")
	tile := flag.Int("tile", 256, "tile size in pixels")
	ext := flag.String("ext", "png", "tile format: png or jpg")
	workers := flag.Int("workers", 4, "tiles cut in parallel")
	logLevel := flag.String("log-level", "info", "debug, info, warn or error")
	vipsCacheMB := flag.Int("vips-cache-mb", 256, "libvips operation cache in MB")
	flag.Parse()

	if *src == "" {
		flag.Usage()
		return fmt.Errorf("missing -src")
	}

	log, err := logger.New(*logLevel, "console")
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	shutdownVips := vips_decoder.Startup(*vipsCacheMB, 1, log)
	defer shutdownVips()

	source, err := vips_decoder.OpenSource(*src)
	if err != nil {
		log.Error("Failed to open source image", zap.String("src", *src), zap.Error(err))
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	builder := tile_builder.New(*out, tile_builder.Options{Tile: *tile, Ext: *ext, Workers: *workers}, log)
	if _, err := builder.Build(ctx, source); err != nil {
		log.Error("Build failed", zap.Error(err))
		return err
	}
	return nil
}
