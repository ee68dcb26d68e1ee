package camera

import (
	"math"
	"sync"

	"tileview/internal/sector"
)

// Controller holds the camera between frames. Input handlers write to it from
// any goroutine; the frame loop takes one Snapshot per tick.
type Controller struct {
	mu      sync.Mutex
	cam     sector.Camera
	screen  sector.Size
	minZoom float64
	maxZoom float64
}

// New starts at the world origin with a zoom of 1/2^(maxLOD-1). At the default
// fuzziness that zoom sits exactly on the switch to level maxLOD-1, so the view
// opens at level maxLOD-2. Zoom is clamped to [fuzziness/2^(maxLOD+1), maxZoom].
func New(screen sector.Size, maxLOD int, fuzziness, maxZoom float64) *Controller {
	c := &Controller{
		screen:  screen,
		minZoom: fuzziness / math.Ldexp(1, maxLOD+1),
		maxZoom: maxZoom,
	}
	c.cam = sector.Camera{Zoom: c.clamp(1 / math.Ldexp(1, maxLOD-1))}
	return c
}

func (c *Controller) clamp(z float64) float64 {
	return math.Min(math.Max(z, c.minZoom), c.maxZoom)
}

func (c *Controller) Snapshot() sector.Camera {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cam
}

// Limits returns the zoom clamp.
func (c *Controller) Limits() (minZoom, maxZoom float64) {
	return c.minZoom, c.maxZoom
}

func (c *Controller) Set(cam sector.Camera) sector.Camera {
	c.mu.Lock()
	defer c.mu.Unlock()
	cam.Zoom = c.clamp(cam.Zoom)
	c.cam = cam
	return c.cam
}

// Pan moves the camera by a world-space delta.
func (c *Controller) Pan(dx, dy float64) sector.Camera {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cam.XOffset += dx
	c.cam.YOffset += dy
	return c.cam
}

// ZoomAt multiplies the zoom by factor while keeping the world point under
// the screen position at fixed on screen.
func (c *Controller) ZoomAt(factor float64, at sector.Point) sector.Camera {
	c.mu.Lock()
	defer c.mu.Unlock()

	world := sector.ScreenToWorld(at, c.cam, c.screen)
	c.cam.Zoom = c.clamp(c.cam.Zoom * factor)
	c.cam.XOffset = world.X - (at.X-c.screen.Width/2)/c.cam.Zoom
	c.cam.YOffset = world.Y - (at.Y-c.screen.Height/2)/c.cam.Zoom
	return c.cam
}
