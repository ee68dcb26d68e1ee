package tile_builder

import (
	"fmt"
	"math"
)

// Plan describes the pyramid cut from one source image. Level 0 is full
// resolution; each level above halves it, and MaxLOD is the first level at
// which the whole image fits in a single tile.
type Plan struct {
	Width  int
	Height int
	Tile   int
	MaxLOD int
}

func NewPlan(width, height, tile int) (Plan, error) {
	if width <= 0 || height <= 0 {
		return Plan{}, fmt.Errorf("invalid source size %dx%d", width, height)
	}
	if tile <= 0 {
		return Plan{}, fmt.Errorf("invalid tile size %d", tile)
	}
	return Plan{
		Width:  width,
		Height: height,
		Tile:   tile,
		MaxLOD: maxLOD(width, height, tile),
	}, nil
}

func maxLOD(width, height, tile int) int {
	maxDim := math.Max(float64(width), float64(height))
	l := int(math.Ceil(math.Log2(maxDim / float64(tile))))
	if l < 0 {
		return 0
	}
	return l
}

// Span is the number of source pixels one tile covers at lod.
func (p Plan) Span(lod int) int {
	return p.Tile << lod
}

// Grid returns the tile columns and rows at lod.
func (p Plan) Grid(lod int) (cols, rows int) {
	span := p.Span(lod)
	return (p.Width + span - 1) / span, (p.Height + span - 1) / span
}

// Count is the number of tiles over all levels.
func (p Plan) Count() int {
	n := 0
	for l := 0; l <= p.MaxLOD; l++ {
		cols, rows := p.Grid(l)
		n += cols * rows
	}
	return n
}

// Region is one output tile: the source rectangle it is cut from and the
// scale that brings a full span down to the tile size. Regions on the right
// and bottom edges are clipped to the image and get padded after scaling.
type Region struct {
	LOD    int
	X      int
	Y      int
	Left   int
	Top    int
	Width  int
	Height int
	Scale  float64
}

func (p Plan) Regions(lod int) []Region {
	span := p.Span(lod)
	cols, rows := p.Grid(lod)
	regions := make([]Region, 0, cols*rows)
	for y := range rows {
		for x := range cols {
			left, top := x*span, y*span
			regions = append(regions, Region{
				LOD:    lod,
				X:      x,
				Y:      y,
				Left:   left,
				Top:    top,
				Width:  min(span, p.Width-left),
				Height: min(span, p.Height-top),
				Scale:  float64(p.Tile) / float64(span),
			})
		}
	}
	return regions
}
