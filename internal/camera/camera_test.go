package camera

import (
	"math"
	"sync"
	"testing"

	"tileview/internal/sector"
)

var screen = sector.Size{Width: 800, Height: 600}

func TestNewDefaultZoom(t *testing.T) {
	c := New(screen, 3, sector.DefaultFuzziness, 20)
	cam := c.Snapshot()
	if cam.Zoom != 0.25 || cam.XOffset != 0 || cam.YOffset != 0 {
		t.Fatalf("camera = %+v", cam)
	}
	// 0.25 is not below 1/2^2, so level 2 is not reached yet.
	if lod := sector.LODFromZoom(cam.Zoom, 3, sector.DefaultFuzziness); lod != 1 {
		t.Fatalf("default zoom selects lod %d, want 1", lod)
	}
	// Any zoom out from there switches to level 2.
	if lod := sector.LODFromZoom(c.ZoomAt(0.9, sector.Point{}).Zoom, 3, sector.DefaultFuzziness); lod != 2 {
		t.Fatalf("zoomed out default selects lod %d, want 2", lod)
	}
}

func TestZoomClamped(t *testing.T) {
	c := New(screen, 2, sector.DefaultFuzziness, 20)
	minZoom, maxZoom := c.Limits()
	if minZoom != 0.125 || maxZoom != 20 {
		t.Fatalf("limits = %v, %v", minZoom, maxZoom)
	}
	if got := c.Set(sector.Camera{Zoom: 100}).Zoom; got != 20 {
		t.Fatalf("zoom = %v, want 20", got)
	}
	if got := c.Set(sector.Camera{Zoom: 0.0001}).Zoom; got != 0.125 {
		t.Fatalf("zoom = %v, want 0.125", got)
	}
}

func TestPan(t *testing.T) {
	c := New(screen, 0, sector.DefaultFuzziness, 20)
	c.Pan(10, -5)
	cam := c.Pan(1, 1)
	if cam.XOffset != 11 || cam.YOffset != -4 {
		t.Fatalf("camera = %+v", cam)
	}
}

func TestZoomAtKeepsPointFixed(t *testing.T) {
	c := New(screen, 4, sector.DefaultFuzziness, 20)
	c.Set(sector.Camera{XOffset: 100, YOffset: -50, Zoom: 1})

	at := sector.Point{X: 700, Y: 120}
	before := sector.ScreenToWorld(at, c.Snapshot(), screen)
	cam := c.ZoomAt(1.5, at)
	after := sector.ScreenToWorld(at, cam, screen)

	if cam.Zoom != 1.5 {
		t.Fatalf("zoom = %v", cam.Zoom)
	}
	if math.Abs(before.X-after.X) > 1e-9 || math.Abs(before.Y-after.Y) > 1e-9 {
		t.Fatalf("world point moved from %+v to %+v", before, after)
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New(screen, 2, sector.DefaultFuzziness, 20)
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				c.Pan(1, 0)
				c.ZoomAt(1.01, sector.Point{X: float64(i), Y: 0})
				c.Snapshot()
			}
		}()
	}
	wg.Wait()
}
