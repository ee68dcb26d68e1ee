package tile_cache

import (
	"tileview/internal/sector"
)

// PruneResult counts what a maintenance pass removed.
type PruneResult struct {
	Offscreen int
	CrossLOD  int
	// ViewCached is true when the desired range at the current lod had an
	// entry for every sector after the off-screen sweep.
	ViewCached bool
}

// ViewCached reports whether every sector of the desired range at lod has an
// entry, present or missing.
func (c *Cache) ViewCached(vp sector.Viewport, lod int) bool {
	cached := true
	vp.Desired(lod).Each(func(s sector.Sector) bool {
		if !c.Has(NewKey(s, lod)) {
			cached = false
		}
		return cached
	})
	return cached
}

// Prune runs the once-per-frame eviction policy against the viewport at lod.
//
// First every entry that is off screen at its own lod is evicted, so coarse
// tiles still covering the view survive. Then, only once the desired range at
// lod is fully cached, every entry that is not exactly (lod, inside desired
// range) is evicted too. Until then the coarser tiles are the fallback that
// hides gaps in the finer level.
func (c *Cache) Prune(vp sector.Viewport, lod int) PruneResult {
	var res PruneResult

	ranges := make(map[int]sector.Range)
	desired := func(l int) sector.Range {
		r, ok := ranges[l]
		if !ok {
			r = vp.Desired(l)
			ranges[l] = r
		}
		return r
	}

	for _, k := range c.Keys() {
		if !desired(k.LOD).Contains(k.Sector()) {
			c.Evict(k)
			res.Offscreen++
		}
	}

	res.ViewCached = c.ViewCached(vp, lod)
	if !res.ViewCached {
		return res
	}

	want := desired(lod)
	for _, k := range c.Keys() {
		if k.LOD != lod || !want.Contains(k.Sector()) {
			c.Evict(k)
			res.CrossLOD++
		}
	}
	return res
}
