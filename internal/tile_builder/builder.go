package tile_builder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tileview/internal/tile_cache"
	"tileview/internal/tile_loader"
)

// Source is a large image that can be cut into encoded tiles. Cut is called
// from several goroutines at once.
type Source interface {
	Size() (width, height int)
	Cut(r Region, tile int, ext string) ([]byte, error)
}

type Options struct {
	Tile    int
	Ext     string
	Workers int
}

// Result summarises a build.
type Result struct {
	Plan    Plan
	Written int64
	Bytes   int64
}

type Builder struct {
	out  string
	opts Options
	log  *zap.Logger
}

func New(out string, opts Options, log *zap.Logger) *Builder {
	if opts.Tile <= 0 {
		opts.Tile = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	opts.Ext = strings.TrimPrefix(opts.Ext, ".")
	if opts.Ext == "" {
		opts.Ext = "png"
	}
	return &Builder{out: out, opts: opts, log: log}
}

// Build writes every level of the pyramid to <out>/<lod>/<x>,<y>.<ext>. The
// first failing tile stops the build.
func (b *Builder) Build(ctx context.Context, src Source) (Result, error) {
	w, h := src.Size()
	plan, err := NewPlan(w, h, b.opts.Tile)
	if err != nil {
		return Result{}, err
	}
	res := Result{Plan: plan}

	b.log.Info("Building tile pyramid",
		zap.Int("width", w),
		zap.Int("height", h),
		zap.Int("tile", plan.Tile),
		zap.Int("max_lod", plan.MaxLOD),
		zap.Int("tiles", plan.Count()),
	)

	for lod := 0; lod <= plan.MaxLOD; lod++ {
		if err := os.MkdirAll(filepath.Join(b.out, fmt.Sprint(lod)), 0755); err != nil {
			return res, fmt.Errorf("failed to create level directory: %w", err)
		}
	}

	var written, size atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Workers)

	for lod := 0; lod <= plan.MaxLOD; lod++ {
		for _, r := range plan.Regions(lod) {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				data, err := src.Cut(r, plan.Tile, b.opts.Ext)
				if err != nil {
					return fmt.Errorf("failed to cut tile %d/%d,%d: %w", r.LOD, r.X, r.Y, err)
				}
				path := tile_loader.Path(b.out, b.opts.Ext, tile_cache.Key{X: r.X, Y: r.Y, LOD: r.LOD})
				if err := writeAtomic(path, data); err != nil {
					return err
				}
				written.Add(1)
				size.Add(int64(len(data)))
				return nil
			})
		}
	}

	err = g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	res.Written = written.Load()
	res.Bytes = size.Load()
	if err != nil {
		return res, err
	}

	b.log.Info("Tile pyramid written",
		zap.String("out", b.out),
		zap.Int64("tiles", res.Written),
		zap.Int64("bytes", res.Bytes),
	)
	return res, nil
}

// writeAtomic writes through a temp file so readers never see a partial tile.
func writeAtomic(path string, data []byte) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write tile: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write tile: %w", err)
	}
	return nil
}
