package vips_decoder

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"tileview/internal/frame_budget"
	"tileview/internal/metrics"
	"tileview/internal/retrieval"
	"tileview/internal/sector"
	"tileview/internal/tile_cache"
	"tileview/internal/tile_catalog"
	"tileview/internal/tile_loader"
	"tileview/internal/viewer"
)

func TestMain(m *testing.M) {
	shutdown := Startup(16, 1, zap.NewNop())
	code := m.Run()
	shutdown()
	os.Exit(code)
}

// noisePNG encodes a size x size tile that does not compress away, so a cut
// through the file lands inside the pixel data.
func noisePNG(t *testing.T, size int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	seed := uint32(1)
	for y := range size {
		for x := range size {
			seed = seed*1664525 + 1013904223
			img.Set(x, y, color.RGBA{R: uint8(seed >> 24), G: uint8(seed >> 16), B: uint8(seed >> 8), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestDecode(t *testing.T) {
	dir := t.TempDir()
	data := noisePNG(t, 256)
	good := filepath.Join(dir, "good.png")
	truncated := filepath.Join(dir, "truncated.png")
	writeFile(t, good, data)
	writeFile(t, truncated, data[:len(data)/2])

	img, err := New().Decode(good)
	if err != nil {
		t.Fatal(err)
	}
	if img.Width() != 256 || img.Height() != 256 {
		t.Fatalf("size %dx%d", img.Width(), img.Height())
	}
	img.Release()
	img.Release()

	if img, err := New().Decode(truncated); err == nil {
		img.Release()
		t.Fatal("truncated tile decoded")
	}

	if _, err := New().Decode(filepath.Join(dir, "tile.bmp")); !errors.Is(err, tile_loader.ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestTruncatedTileIsMissing(t *testing.T) {
	root := t.TempDir()
	data := noisePNG(t, 256)
	writeFile(t, filepath.Join(root, "0", "0,0.png"), data)
	writeFile(t, filepath.Join(root, "0", "1,0.png"), data[:len(data)/2])

	log := zaptest.NewLogger(t)
	dec := New()
	cat, err := tile_catalog.Open(root, dec, log)
	if err != nil {
		t.Fatal(err)
	}
	m := metrics.New(prometheus.NewRegistry())
	sched := retrieval.New(tile_loader.New(root, "png", dec), 2, log)
	budget := frame_budget.NewController(frame_budget.DefaultWindow, frame_budget.DefaultFraction, log, m)
	v := viewer.New(cat, sched, budget, viewer.Options{Screen: sector.Size{Width: 400, Height: 200}}, log, m)
	defer v.Close()

	// Centred on the shared edge of sectors (0,0) and (1,0).
	cam := sector.Camera{XOffset: 256, YOffset: 128, Zoom: 1}
	for range 10 {
		if _, err := v.Tick(context.Background(), cam, time.Now(), time.Second); err != nil {
			t.Fatal(err)
		}
		if v.Stats().InFlight == 0 {
			break
		}
	}

	if st := v.Status(tile_cache.Key{X: 0, Y: 0}); st != tile_cache.StatusPresent {
		t.Fatalf("intact tile status %v", st)
	}
	if st := v.Status(tile_cache.Key{X: 1, Y: 0}); st != tile_cache.StatusMissing {
		t.Fatalf("truncated tile status %v, want missing", st)
	}
}
