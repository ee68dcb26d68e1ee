package sector

import "math"

// Camera is the viewport state written by the input layer once per frame.
// The offset is the world position shown at the centre of the screen.
type Camera struct {
	XOffset float64 `json:"x_offset"`
	YOffset float64 `json:"y_offset"`
	Zoom    float64 `json:"zoom"`
}

// Size is a width/height pair in pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sector is an integer tile-grid coordinate at some LOD.
type Sector struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Range is an inclusive rectangle of sectors.
type Range struct {
	Min Sector `json:"min"`
	Max Sector `json:"max"`
}

func (r Range) Contains(s Sector) bool {
	return s.X >= r.Min.X && s.X <= r.Max.X && s.Y >= r.Min.Y && s.Y <= r.Max.Y
}

// Len returns the number of sectors in the range.
func (r Range) Len() int {
	if r.Max.X < r.Min.X || r.Max.Y < r.Min.Y {
		return 0
	}
	return (r.Max.X - r.Min.X + 1) * (r.Max.Y - r.Min.Y + 1)
}

// Each visits every sector row by row. Returning false stops the walk.
func (r Range) Each(fn func(Sector) bool) {
	for y := r.Min.Y; y <= r.Max.Y; y++ {
		for x := r.Min.X; x <= r.Max.X; x++ {
			if !fn(Sector{X: x, Y: y}) {
				return
			}
		}
	}
}

func WorldToScreen(p Point, cam Camera, screen Size) Point {
	return Point{
		X: screen.Width/2 + (p.X-cam.XOffset)*cam.Zoom,
		Y: screen.Height/2 + (p.Y-cam.YOffset)*cam.Zoom,
	}
}

func ScreenToWorld(p Point, cam Camera, screen Size) Point {
	return Point{
		X: cam.XOffset + (p.X-screen.Width/2)/cam.Zoom,
		Y: cam.YOffset + (p.Y-screen.Height/2)/cam.Zoom,
	}
}

// TileWorldSize is the world footprint of one tile at lod: tile * 2^lod.
func TileWorldSize(tile Size, lod int) Size {
	scale := math.Ldexp(1, lod)
	return Size{Width: tile.Width * scale, Height: tile.Height * scale}
}

// SectorAt returns the sector containing screen point p at lod. The quotient is
// floored so that sectors stay contiguous across the world origin: world x of
// -0.5 tiles is sector -1, not 0.
func SectorAt(p Point, cam Camera, screen Size, tile Size, lod int) Sector {
	w := ScreenToWorld(p, cam, screen)
	size := TileWorldSize(tile, lod)
	return Sector{
		X: int(math.Floor(w.X / size.Width)),
		Y: int(math.Floor(w.Y / size.Height)),
	}
}

// ScreenSectors returns the desired range: the sectors from the one under the
// top-left screen corner to the one under the bottom-right corner.
func ScreenSectors(cam Camera, screen Size, tile Size, lod int) Range {
	return Range{
		Min: SectorAt(Point{}, cam, screen, tile, lod),
		Max: SectorAt(Point{X: screen.Width, Y: screen.Height}, cam, screen, tile, lod),
	}
}

// Rect places a sector on screen: its top-left corner and its scaled size.
func Rect(s Sector, lod int, cam Camera, screen Size, tile Size) (Point, Size) {
	size := TileWorldSize(tile, lod)
	origin := WorldToScreen(Point{X: size.Width * float64(s.X), Y: size.Height * float64(s.Y)}, cam, screen)
	return origin, Size{Width: size.Width * cam.Zoom, Height: size.Height * cam.Zoom}
}

// GridLines returns the screen positions of the sector boundaries crossing the
// screen at lod, for debug overlays.
func GridLines(cam Camera, screen Size, tile Size, lod int) (xs, ys []float64) {
	r := ScreenSectors(cam, screen, tile, lod)
	size := TileWorldSize(tile, lod)
	for x := r.Min.X; x <= r.Max.X; x++ {
		xs = append(xs, WorldToScreen(Point{X: size.Width * float64(x)}, cam, screen).X)
	}
	for y := r.Min.Y; y <= r.Max.Y; y++ {
		ys = append(ys, WorldToScreen(Point{Y: size.Height * float64(y)}, cam, screen).Y)
	}
	return xs, ys
}
