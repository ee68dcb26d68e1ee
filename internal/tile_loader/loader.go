package tile_loader

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"tileview/internal/tile_cache"
)

var ErrUnsupportedFormat = errors.New("unsupported image format")

// Decoder turns a file into a decoded tile image. A failure is not
// distinguished by cause.
type Decoder interface {
	Decode(path string) (tile_cache.Image, error)
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func(path string) (tile_cache.Image, error)

func (f DecoderFunc) Decode(path string) (tile_cache.Image, error) { return f(path) }

// Loader resolves tile keys against a tile root laid out as
// <root>/<lod>/<x>,<y>.<ext>.
type Loader struct {
	root    string
	ext     string
	decoder Decoder
}

func New(root, ext string, decoder Decoder) *Loader {
	return &Loader{
		root:    root,
		ext:     strings.TrimPrefix(ext, "."),
		decoder: decoder,
	}
}

// Path builds the on-disk location of a tile.
func Path(root, ext string, key tile_cache.Key) string {
	name := strconv.Itoa(key.X) + "," + strconv.Itoa(key.Y) + "." + strings.TrimPrefix(ext, ".")
	return filepath.Join(root, strconv.Itoa(key.LOD), name)
}

// ParseName parses a "<x>,<y>.<ext>" file name back into sector indices.
func ParseName(name string) (x, y int, err error) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	xs, ys, ok := strings.Cut(base, ",")
	if !ok {
		return 0, 0, fmt.Errorf("tile name %q: missing comma", name)
	}
	if x, err = strconv.Atoi(xs); err != nil {
		return 0, 0, fmt.Errorf("tile name %q: %w", name, err)
	}
	if y, err = strconv.Atoi(ys); err != nil {
		return 0, 0, fmt.Errorf("tile name %q: %w", name, err)
	}
	return x, y, nil
}

func (l *Loader) Path(key tile_cache.Key) string {
	return Path(l.root, l.ext, key)
}

// Load decodes the tile for key. The decode itself is not interruptible; ctx
// is only checked before starting.
func (l *Loader) Load(ctx context.Context, key tile_cache.Key) (tile_cache.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := l.decoder.Decode(l.Path(key))
	if err != nil {
		return nil, fmt.Errorf("failed to load tile %s: %w", key, err)
	}
	return img, nil
}
