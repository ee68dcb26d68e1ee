package viewer

import (
	"context"
	"slices"
	"time"

	"go.uber.org/zap"

	"tileview/internal/frame_budget"
	"tileview/internal/metrics"
	"tileview/internal/retrieval"
	"tileview/internal/sector"
	"tileview/internal/tile_cache"
	"tileview/internal/tile_catalog"
)

type Options struct {
	Screen    sector.Size
	Fuzziness float64
}

// Viewer owns the tile cache, the in-flight retrievals and the frame budget.
// All methods run on the frame goroutine.
type Viewer struct {
	catalog   *tile_catalog.Catalog
	screen    sector.Size
	fuzziness float64

	cache   *tile_cache.Cache
	sched   *retrieval.Scheduler
	budget  *frame_budget.Controller
	log     *zap.Logger
	metrics *metrics.Metrics
}

func New(catalog *tile_catalog.Catalog, sched *retrieval.Scheduler, budget *frame_budget.Controller, opts Options, log *zap.Logger, m *metrics.Metrics) *Viewer {
	if opts.Fuzziness <= 0 {
		opts.Fuzziness = sector.DefaultFuzziness
	}
	return &Viewer{
		catalog:   catalog,
		screen:    opts.Screen,
		fuzziness: opts.Fuzziness,
		cache:     tile_cache.New(),
		sched:     sched,
		budget:    budget,
		log:       log,
		metrics:   m,
	}
}

// DrawEntry is one tile ready to blit at Origin, scaled to Size.
type DrawEntry struct {
	Key    tile_cache.Key
	Image  tile_cache.Image
	Origin sector.Point
	Size   sector.Size
}

// Frame is what one tick did.
type Frame struct {
	Camera    sector.Camera
	LOD       int
	Draws     []DrawEntry
	Prune     tile_cache.PruneResult
	Queued    int
	Retrieval frame_budget.Report
	Duration  time.Duration
}

func (v *Viewer) Viewport(cam sector.Camera) sector.Viewport {
	return sector.Viewport{
		Camera:    cam,
		Screen:    v.screen,
		Tile:      v.catalog.Tile,
		MaxLOD:    v.catalog.MaxLOD,
		Fuzziness: v.fuzziness,
	}
}

func (v *Viewer) Catalog() *tile_catalog.Catalog { return v.catalog }
func (v *Viewer) Screen() sector.Size            { return v.screen }

// Tick runs one frame: prune the cache, queue the missing tiles of the current
// lod, build the draw list, then spend what is left of the frame finishing
// retrievals.
func (v *Viewer) Tick(ctx context.Context, cam sector.Camera, frameStart time.Time, limit time.Duration) (Frame, error) {
	vp := v.Viewport(cam)
	lod := vp.LOD()

	f := Frame{Camera: cam, LOD: lod}
	f.Prune = v.Prune(vp, lod)
	f.Queued = v.QueueDesired(vp, lod)
	f.Draws = v.DrawList(vp)

	rep, err := v.budget.Retrieve(ctx, v.sched, v.cache, lod, frameStart, limit)
	f.Retrieval = rep
	f.Duration = time.Since(frameStart)

	v.metrics.ObserveFrame(v.sched.Len(), v.cache.Len(), rep.Deferred)
	return f, err
}

// Prune applies the eviction policy for the viewport at lod.
func (v *Viewer) Prune(vp sector.Viewport, lod int) tile_cache.PruneResult {
	res := v.cache.Prune(vp, lod)
	if res.Offscreen > 0 || res.CrossLOD > 0 {
		v.metrics.ObserveEvicted(res.Offscreen, res.CrossLOD)
		v.log.Debug("Tiles evicted",
			zap.Int("offscreen", res.Offscreen),
			zap.Int("cross_lod", res.CrossLOD),
			zap.Int("lod", lod),
		)
	}
	return res
}

// QueueDesired starts a retrieval for every sector of the desired range at lod
// that has neither a cache entry nor a retrieval in flight.
func (v *Viewer) QueueDesired(vp sector.Viewport, lod int) int {
	queued := 0
	vp.Desired(lod).Each(func(s sector.Sector) bool {
		key := tile_cache.NewKey(s, lod)
		if !v.cache.Has(key) && v.sched.Queue(key) {
			queued++
		}
		return true
	})
	return queued
}

// DrawList returns every cached image lying in its own lod's desired range,
// coarsest lod first, so finer tiles paint over the coarse fallback.
func (v *Viewer) DrawList(vp sector.Viewport) []DrawEntry {
	byLOD := make(map[int][]tile_cache.Key)
	for _, k := range v.cache.Keys() {
		byLOD[k.LOD] = append(byLOD[k.LOD], k)
	}

	var draws []DrawEntry
	for lod := v.catalog.MaxLOD; lod >= 0; lod-- {
		keys := byLOD[lod]
		if len(keys) == 0 {
			continue
		}
		r := vp.Desired(lod)
		for _, k := range keys {
			if !r.Contains(k.Sector()) {
				continue
			}
			st, img := v.cache.Lookup(k)
			if st != tile_cache.StatusPresent {
				continue
			}
			origin, size := sector.Rect(k.Sector(), lod, vp.Camera, vp.Screen, vp.Tile)
			draws = append(draws, DrawEntry{Key: k, Image: img, Origin: origin, Size: size})
		}
	}
	return draws
}

// Status reports the lifecycle state of key.
func (v *Viewer) Status(key tile_cache.Key) tile_cache.Status {
	st, _ := v.cache.Lookup(key)
	if st == tile_cache.StatusUnrequested && v.sched.InFlight(key) {
		return tile_cache.StatusPending
	}
	return st
}

// Stats is a point-in-time summary of the engine.
type Stats struct {
	CacheEntries  int              `json:"cache_entries"`
	CachePresent  int              `json:"cache_present"`
	InFlight      int              `json:"in_flight"`
	InFlightKeys  []tile_cache.Key `json:"in_flight_keys,omitempty"`
	AverageDecode time.Duration    `json:"average_decode_ns"`
}

func (v *Viewer) Stats() Stats {
	pending := v.sched.Pending()
	slices.SortFunc(pending, tile_cache.Compare)
	return Stats{
		CacheEntries:  v.cache.Len(),
		CachePresent:  v.cache.Present(),
		InFlight:      len(pending),
		InFlightKeys:  pending,
		AverageDecode: v.budget.AverageDecode(),
	}
}

// Close cancels outstanding retrievals and releases every cached image.
func (v *Viewer) Close() {
	v.sched.Close()
	v.cache.Clear()
}
