package frame_loop

import (
	"time"

	"tileview/internal/sector"
	"tileview/internal/tile_cache"
	"tileview/internal/viewer"
)

// Draw is one blit of the render sink: the tile, where it lands on screen
// and the pixel size of its decoded image.
type Draw struct {
	Key         tile_cache.Key `json:"key"`
	X           float64        `json:"x"`
	Y           float64        `json:"y"`
	Width       float64        `json:"width"`
	Height      float64        `json:"height"`
	ImageWidth  int            `json:"image_width"`
	ImageHeight int            `json:"image_height"`
}

type Grid struct {
	XS []float64 `json:"xs"`
	YS []float64 `json:"ys"`
}

// Snapshot is the published, immutable result of one frame. It holds no
// images, only their geometry, so readers on other goroutines never touch
// cache-owned memory.
type Snapshot struct {
	Frame           uint64        `json:"frame"`
	Time            time.Time     `json:"time"`
	Camera          sector.Camera `json:"camera"`
	LOD             int           `json:"lod"`
	MaxLOD          int           `json:"max_lod"`
	Tile            sector.Size   `json:"tile"`
	Screen          sector.Size   `json:"screen"`
	Draws           []Draw        `json:"draws"`
	Rendered        int           `json:"rendered"`
	Queued          int           `json:"queued"`
	Decoded         int           `json:"decoded"`
	Missing         int           `json:"missing"`
	Cancelled       int           `json:"cancelled"`
	Deferred        bool          `json:"deferred"`
	Stats           viewer.Stats  `json:"stats"`
	AverageDecodeMS float64       `json:"average_decode_ms"`
	FrameMS         float64       `json:"frame_ms"`
	Grid            Grid          `json:"grid"`
}

func newSnapshot(n uint64, at time.Time, v *viewer.Viewer, f viewer.Frame) *Snapshot {
	cat := v.Catalog()
	screen := v.Screen()
	stats := v.Stats()

	draws := make([]Draw, 0, len(f.Draws))
	for _, d := range f.Draws {
		draws = append(draws, Draw{
			Key:         d.Key,
			X:           d.Origin.X,
			Y:           d.Origin.Y,
			Width:       d.Size.Width,
			Height:      d.Size.Height,
			ImageWidth:  d.Image.Width(),
			ImageHeight: d.Image.Height(),
		})
	}
	xs, ys := sector.GridLines(f.Camera, screen, cat.Tile, f.LOD)

	return &Snapshot{
		Frame:           n,
		Time:            at,
		Camera:          f.Camera,
		LOD:             f.LOD,
		MaxLOD:          cat.MaxLOD,
		Tile:            cat.Tile,
		Screen:          screen,
		Draws:           draws,
		Rendered:        len(draws),
		Queued:          f.Queued,
		Decoded:         f.Retrieval.Decoded,
		Missing:         f.Retrieval.Missing,
		Cancelled:       f.Retrieval.Cancelled,
		Deferred:        f.Retrieval.Deferred,
		Stats:           stats,
		AverageDecodeMS: float64(stats.AverageDecode) / float64(time.Millisecond),
		FrameMS:         float64(f.Duration) / float64(time.Millisecond),
		Grid:            Grid{XS: xs, YS: ys},
	}
}
