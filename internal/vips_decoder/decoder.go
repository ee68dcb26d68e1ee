package vips_decoder

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cshum/vipsgen/vips"

	"tileview/internal/tile_cache"
	"tileview/internal/tile_loader"
)

// Image is a tile decoded by libvips.
type Image struct {
	img *vips.Image
}

func (v *Image) Width() int  { return v.img.Width() }
func (v *Image) Height() int { return v.img.Height() }

// Release frees the libvips image. Safe to call more than once.
func (v *Image) Release() {
	if v.img == nil {
		return
	}
	v.img.Close()
	v.img = nil
}

// Decoder decodes tiles with libvips. vips.Startup must have run.
type Decoder struct{}

func New() *Decoder {
	return &Decoder{}
}

// Decode fully decodes the tile before returning. vips loaders only read the
// header, so the pixels are pulled through once here: a tile with a valid
// header but corrupt or truncated data fails now, not at first draw, and the
// time spent is the real decode cost.
func (d *Decoder) Decode(path string) (tile_cache.Image, error) {
	img, err := loadImage(path, vips.AccessRandom)
	if err != nil {
		return nil, err
	}
	if _, err := img.Avg(); err != nil {
		img.Close()
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return &Image{img: img}, nil
}

// loadImage loads an image based on file extension. Any decode error, a
// truncated file included, fails the load instead of yielding partial pixels.
func loadImage(path string, access vips.Access) (*vips.Image, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".tif", ".tiff":
		opts := vips.DefaultTiffloadOptions()
		opts.Access = access
		opts.FailOn = vips.FailOnError
		return vips.NewTiffload(path, opts)
	case ".jpg", ".jpeg":
		opts := vips.DefaultJpegloadOptions()
		opts.Access = access
		opts.FailOn = vips.FailOnError
		return vips.NewJpegload(path, opts)
	case ".png":
		opts := vips.DefaultPngloadOptions()
		opts.Access = access
		opts.FailOn = vips.FailOnError
		return vips.NewPngload(path, opts)
	case ".webp":
		opts := vips.DefaultWebploadOptions()
		opts.Access = access
		opts.FailOn = vips.FailOnError
		return vips.NewWebpload(path, opts)
	default:
		return nil, fmt.Errorf("%w: %s", tile_loader.ErrUnsupportedFormat, ext)
	}
}
