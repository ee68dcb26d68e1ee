package tile_cache

import (
	"testing"

	"tileview/internal/sector"
)

type fakeImage struct {
	released int
}

func (f *fakeImage) Width() int  { return 256 }
func (f *fakeImage) Height() int { return 256 }
func (f *fakeImage) Release()    { f.released++ }

func TestLookupTriState(t *testing.T) {
	c := New()
	img := &fakeImage{}
	present := Key{X: 1, Y: 2, LOD: 0}
	missing := Key{X: -1, Y: 0, LOD: 0}

	c.Insert(present, img)
	c.Insert(missing, nil)

	if st, got := c.Lookup(present); st != StatusPresent || got != img {
		t.Fatalf("present: got %v %v", st, got)
	}
	if st, got := c.Lookup(missing); st != StatusMissing || got != nil {
		t.Fatalf("missing: got %v %v", st, got)
	}
	if st, _ := c.Lookup(Key{X: 9, Y: 9}); st != StatusUnrequested {
		t.Fatalf("absent: got %v", st)
	}
	if !c.Has(missing) {
		t.Fatal("confirmed-missing entry must count as cached")
	}
	if c.Len() != 2 || c.Present() != 1 {
		t.Fatalf("Len=%d Present=%d", c.Len(), c.Present())
	}
}

func TestRemoveTransfersOwnership(t *testing.T) {
	c := New()
	img := &fakeImage{}
	k := Key{X: 0, Y: 0, LOD: 1}
	c.Insert(k, img)

	got, ok := c.Remove(k)
	if !ok || got != img {
		t.Fatalf("Remove = %v, %v", got, ok)
	}
	if img.released != 0 {
		t.Fatal("Remove must not release; the caller owns the image")
	}
	if c.Has(k) {
		t.Fatal("key still cached after Remove")
	}
	if _, ok := c.Remove(k); ok {
		t.Fatal("second Remove reported an entry")
	}
}

func TestInsertReplacingReleasesOld(t *testing.T) {
	c := New()
	old, repl := &fakeImage{}, &fakeImage{}
	k := Key{X: 3, Y: 3}
	c.Insert(k, old)
	c.Insert(k, repl)
	if old.released != 1 || repl.released != 0 {
		t.Fatalf("old released %d, new released %d", old.released, repl.released)
	}
}

func TestKeysSorted(t *testing.T) {
	c := New()
	c.Insert(Key{X: 1, Y: 0, LOD: 1}, nil)
	c.Insert(Key{X: 5, Y: -1, LOD: 0}, nil)
	c.Insert(Key{X: 0, Y: 0, LOD: 0}, nil)

	want := []Key{{X: 5, Y: -1, LOD: 0}, {X: 0, Y: 0, LOD: 0}, {X: 1, Y: 0, LOD: 1}}
	got := c.Keys()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Keys() = %v, want %v", got, want)
		}
	}
}

func TestClearReleasesAll(t *testing.T) {
	c := New()
	a, b := &fakeImage{}, &fakeImage{}
	c.Insert(Key{X: 0}, a)
	c.Insert(Key{X: 1}, b)
	c.Insert(Key{X: 2}, nil)
	c.Clear()
	if c.Len() != 0 || a.released != 1 || b.released != 1 {
		t.Fatalf("Len=%d a=%d b=%d", c.Len(), a.released, b.released)
	}
}

func testViewport() sector.Viewport {
	return sector.Viewport{
		Camera:    sector.Camera{XOffset: 0, YOffset: 0, Zoom: 0.2},
		Screen:    sector.Size{Width: 512, Height: 512},
		Tile:      sector.Size{Width: 256, Height: 256},
		MaxLOD:    3,
		Fuzziness: sector.DefaultFuzziness,
	}
}

func fill(c *Cache, r sector.Range, lod int, images map[Key]*fakeImage) {
	r.Each(func(s sector.Sector) bool {
		img := &fakeImage{}
		k := NewKey(s, lod)
		images[k] = img
		c.Insert(k, img)
		return true
	})
}

func TestPruneOffscreenUsesEachKeysOwnLOD(t *testing.T) {
	vp := testViewport()
	c := New()

	far := &fakeImage{}
	farKey := Key{X: 100, Y: 100, LOD: 0}
	c.Insert(farKey, far)

	coarse := &fakeImage{}
	coarseKey := NewKey(vp.Desired(3).Min, 3)
	c.Insert(coarseKey, coarse)

	res := c.Prune(vp, vp.LOD())

	if res.Offscreen != 1 || c.Has(farKey) || far.released != 1 {
		t.Fatalf("far tile: offscreen=%d cached=%v released=%d", res.Offscreen, c.Has(farKey), far.released)
	}
	if !c.Has(coarseKey) || coarse.released != 0 {
		t.Fatal("coarse tile on screen at its own lod must survive while the view is incomplete")
	}
	if res.ViewCached {
		t.Fatal("view reported cached with an empty target lod")
	}
}

func TestPruneCrossLODGatedOnFullView(t *testing.T) {
	vp := testViewport()
	lod := vp.LOD()
	if lod != 2 {
		t.Fatalf("test viewport selects lod %d, want 2", lod)
	}

	c := New()
	stale := map[Key]*fakeImage{}
	fill(c, vp.Desired(1), 1, stale)

	target := map[Key]*fakeImage{}
	want := vp.Desired(2)
	fill(c, want, 2, target)

	// Leave one target sector unrequested.
	hole := NewKey(want.Max, 2)
	img, _ := c.Remove(hole)
	img.Release()

	res := c.Prune(vp, lod)
	if res.CrossLOD != 0 || res.ViewCached {
		t.Fatalf("incomplete view evicted %d cross-lod tiles", res.CrossLOD)
	}
	for k, img := range stale {
		if !c.Has(k) || img.released != 0 {
			t.Fatalf("stale lod 1 tile %v evicted before lod 2 was complete", k)
		}
	}

	// A confirmed-missing entry completes the view.
	c.Insert(hole, nil)
	res = c.Prune(vp, lod)
	if !res.ViewCached {
		t.Fatal("view not reported cached")
	}
	if res.CrossLOD != len(stale) {
		t.Fatalf("CrossLOD = %d, want %d", res.CrossLOD, len(stale))
	}
	for k, img := range stale {
		if c.Has(k) || img.released != 1 {
			t.Fatalf("stale tile %v not evicted", k)
		}
	}
	if c.Len() != want.Len() {
		t.Fatalf("cache holds %d entries, want %d", c.Len(), want.Len())
	}
}

func TestViewCached(t *testing.T) {
	vp := testViewport()
	c := New()
	if c.ViewCached(vp, 3) {
		t.Fatal("empty cache reported cached")
	}
	vp.Desired(3).Each(func(s sector.Sector) bool {
		c.Insert(NewKey(s, 3), nil)
		return true
	})
	if !c.ViewCached(vp, 3) {
		t.Fatal("all-missing view must count as cached")
	}
}
