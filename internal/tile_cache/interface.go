package tile_cache

import (
	"fmt"

	"tileview/internal/sector"
)

// Key identifies one on-disk tile: sector coordinates plus level of detail.
type Key struct {
	X   int `json:"x"`
	Y   int `json:"y"`
	LOD int `json:"lod"`
}

func NewKey(s sector.Sector, lod int) Key {
	return Key{X: s.X, Y: s.Y, LOD: lod}
}

func (k Key) Sector() sector.Sector {
	return sector.Sector{X: k.X, Y: k.Y}
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%d,%d", k.LOD, k.X, k.Y)
}

// Less orders keys by lod, then row, then column.
func (k Key) Less(o Key) bool {
	if k.LOD != o.LOD {
		return k.LOD < o.LOD
	}
	if k.Y != o.Y {
		return k.Y < o.Y
	}
	return k.X < o.X
}

// Compare is Less as a three-way comparison, for slices.SortFunc.
func Compare(a, b Key) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	default:
		return 0
	}
}

// Image is a decoded tile. The cache owns every Image stored in it; whoever
// takes one out is responsible for calling Release.
type Image interface {
	Width() int
	Height() int
	Release()
}

// Status is the lifecycle state of a tile key.
type Status int

const (
	// StatusUnrequested: no cache entry and no retrieval in flight.
	StatusUnrequested Status = iota
	// StatusPending: a retrieval is in flight.
	StatusPending
	// StatusPresent: decoded and cached.
	StatusPresent
	// StatusMissing: a load was attempted and produced no image. Never retried.
	StatusMissing
)

func (s Status) String() string {
	switch s {
	case StatusUnrequested:
		return "unrequested"
	case StatusPending:
		return "pending"
	case StatusPresent:
		return "present"
	case StatusMissing:
		return "missing"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}
