package sector

import "math"

// DefaultFuzziness biases LOD switching; 1.0 switches to lod l once the zoom
// drops below 1/2^l.
const DefaultFuzziness = 1.0

// LODFromZoom picks the largest level l in 0..maxLOD with zoom < fuzziness/2^l,
// stopping at the first level that fails. Zero when even level 0 fails.
func LODFromZoom(zoom float64, maxLOD int, fuzziness float64) int {
	lod := 0
	for level := 0; level <= maxLOD; level++ {
		if zoom < fuzziness/math.Ldexp(1, level) {
			lod = level
		} else {
			break
		}
	}
	return lod
}

// Viewport is the per-frame view descriptor. It is derived from the camera
// every frame and never stored.
type Viewport struct {
	Camera    Camera
	Screen    Size
	Tile      Size
	MaxLOD    int
	Fuzziness float64
}

// LOD is the level selected for the camera's zoom.
func (v Viewport) LOD() int {
	return LODFromZoom(v.Camera.Zoom, v.MaxLOD, v.Fuzziness)
}

// Desired is the inclusive sector range covering the screen at lod.
func (v Viewport) Desired(lod int) Range {
	return ScreenSectors(v.Camera, v.Screen, v.Tile, lod)
}

// OnScreen reports whether a sector lies in the desired range of its own lod.
func (v Viewport) OnScreen(s Sector, lod int) bool {
	return v.Desired(lod).Contains(s)
}
