package tile_catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"go.uber.org/zap"

	"tileview/internal/sector"
	"tileview/internal/tile_loader"
)

var (
	ErrNoLODs  = errors.New("tile root has no level 0 directory")
	ErrNoTiles = errors.New("level 0 directory holds no tiles")
)

// Catalog describes a tile root on disk.
type Catalog struct {
	Root string
	// MaxLOD is the highest level in the contiguous run 0,1,2,... of level
	// directories. A gap ends the run: with 0,1,3 on disk MaxLOD is 1.
	MaxLOD int
	// Tile is the pixel size of the reference tile, used for all world-size math.
	Tile      sector.Size
	Reference string
}

// Open scans root for levels and decodes one level 0 tile to learn the tile size.
// Any failure is fatal to startup; there is no partial catalog.
func Open(root string, decoder tile_loader.Decoder, log *zap.Logger) (*Catalog, error) {
	maxLOD, err := MaxLOD(root)
	if err != nil {
		return nil, err
	}

	ref, err := referenceTile(filepath.Join(root, "0"))
	if err != nil {
		return nil, err
	}

	img, err := decoder.Decode(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to decode reference tile %s: %w", ref, err)
	}
	tile := sector.Size{Width: float64(img.Width()), Height: float64(img.Height())}
	img.Release()

	if tile.Width <= 0 || tile.Height <= 0 {
		return nil, fmt.Errorf("reference tile %s has empty size", ref)
	}

	log.Info("Tile catalog opened",
		zap.String("root", root),
		zap.Int("max_lod", maxLOD),
		zap.Float64("tile_width", tile.Width),
		zap.Float64("tile_height", tile.Height),
		zap.String("reference", ref),
	)

	return &Catalog{
		Root:      root,
		MaxLOD:    maxLOD,
		Tile:      tile,
		Reference: ref,
	}, nil
}

// MaxLOD returns the last level directory of the contiguous run starting at 0.
func MaxLOD(root string) (int, error) {
	if !isDir(filepath.Join(root, "0")) {
		return 0, fmt.Errorf("%s: %w", root, ErrNoLODs)
	}
	maxLOD := 0
	for l := 1; isDir(filepath.Join(root, strconv.Itoa(l))); l++ {
		maxLOD = l
	}
	return maxLOD, nil
}

// referenceTile returns the first tile file under dir, recursively, in lexical
// order. Files not named <x>,<y>.<ext> (editor leftovers, half-written .tmp
// files) are skipped.
func referenceTile(dir string) (string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if _, _, err := tile_loader.ParseName(d.Name()); err != nil {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to read tile directory: %w", err)
	}
	if len(files) == 0 {
		return "", fmt.Errorf("%s: %w", dir, ErrNoTiles)
	}
	slices.Sort(files)
	return files[0], nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
