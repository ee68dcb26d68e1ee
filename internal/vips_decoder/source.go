package vips_decoder

import (
	"fmt"
	"strings"

	"github.com/cshum/vipsgen/vips"

	"tileview/internal/tile_builder"
	"tileview/internal/tile_loader"
)

// Source cuts tiles out of one large image on disk. vips operations modify
// the image in place, so every Cut opens its own handle; random access keeps
// that cheap for tiled TIFFs.
type Source struct {
	path   string
	width  int
	height int
}

func OpenSource(path string) (*Source, error) {
	img, err := loadImage(path, vips.AccessRandom)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer img.Close()
	return &Source{path: path, width: img.Width(), height: img.Height()}, nil
}

func (s *Source) Size() (int, int) { return s.width, s.height }

func (s *Source) Cut(r tile_builder.Region, tile int, ext string) ([]byte, error) {
	image, err := loadImage(s.path, vips.AccessRandom)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer image.Close()

	if err := image.ExtractArea(r.Left, r.Top, r.Width, r.Height); err != nil {
		return nil, fmt.Errorf("failed to extract area: %w", err)
	}

	// Every tile of a level shares one scale, edge tiles included.
	if r.Scale != 1 {
		resizeOpts := vips.DefaultResizeOptions()
		resizeOpts.Kernel = vips.KernelLanczos3
		if err := image.Resize(r.Scale, resizeOpts); err != nil {
			return nil, fmt.Errorf("failed to resize: %w", err)
		}
	}

	// Pad edge tiles at the bottom/right so the grid stays aligned
	if image.Width() < tile || image.Height() < tile {
		embedOpts := vips.DefaultEmbedOptions()
		embedOpts.Extend = vips.ExtendBackground
		embedOpts.Background = []float64{221, 221, 221} // #ddd
		if err := image.Embed(0, 0, tile, tile, embedOpts); err != nil {
			return nil, fmt.Errorf("failed to pad: %w", err)
		}
	}

	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "jpg", "jpeg":
		jpegOpts := vips.DefaultJpegsaveBufferOptions()
		jpegOpts.Q = 82
		jpegOpts.Interlace = false
		return image.JpegsaveBuffer(jpegOpts)
	case "png":
		return image.PngsaveBuffer(vips.DefaultPngsaveBufferOptions())
	default:
		return nil, fmt.Errorf("%w: %s", tile_loader.ErrUnsupportedFormat, ext)
	}
}
