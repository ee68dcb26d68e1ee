package tile_loader

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"tileview/internal/tile_cache"
)

type stubImage struct{}

func (stubImage) Width() int  { return 1 }
func (stubImage) Height() int { return 1 }
func (stubImage) Release()    {}

func TestPath(t *testing.T) {
	tests := []struct {
		key  tile_cache.Key
		ext  string
		want string
	}{
		{tile_cache.Key{X: 0, Y: 0, LOD: 0}, "png", filepath.Join("root", "0", "0,0.png")},
		{tile_cache.Key{X: -3, Y: 12, LOD: 4}, ".jpg", filepath.Join("root", "4", "-3,12.jpg")},
	}
	for _, tt := range tests {
		if got := Path("root", tt.ext, tt.key); got != tt.want {
			t.Errorf("Path(%v) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestParseName(t *testing.T) {
	x, y, err := ParseName("-3,12.png")
	if err != nil || x != -3 || y != 12 {
		t.Fatalf("ParseName = %d, %d, %v", x, y, err)
	}
	for _, bad := range []string{"3.png", "a,1.png", "1,b.png"} {
		if _, _, err := ParseName(bad); err == nil {
			t.Errorf("ParseName(%q) accepted", bad)
		}
	}
}

func TestLoadUsesPathConvention(t *testing.T) {
	var gotPath string
	l := New("tiles", "png", DecoderFunc(func(path string) (tile_cache.Image, error) {
		gotPath = path
		return stubImage{}, nil
	}))

	img, err := l.Load(context.Background(), tile_cache.Key{X: 2, Y: -1, LOD: 3})
	if err != nil || img == nil {
		t.Fatalf("Load: %v %v", img, err)
	}
	if want := filepath.Join("tiles", "3", "2,-1.png"); gotPath != want {
		t.Fatalf("decoded %q, want %q", gotPath, want)
	}
}

func TestLoadWrapsDecodeError(t *testing.T) {
	boom := errors.New("boom")
	l := New("tiles", "png", DecoderFunc(func(string) (tile_cache.Image, error) { return nil, boom }))
	if _, err := l.Load(context.Background(), tile_cache.Key{}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped boom", err)
	}
}

func TestLoadCancelled(t *testing.T) {
	called := false
	l := New("tiles", "png", DecoderFunc(func(string) (tile_cache.Image, error) {
		called = true
		return stubImage{}, nil
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.Load(ctx, tile_cache.Key{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if called {
		t.Fatal("decoder ran after cancellation")
	}
}
