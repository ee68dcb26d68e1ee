package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port           int     `env:"PORT" envDefault:"8080"`
	TileDir        string  `env:"TILE_DIR" envDefault:"./tiles"`
	TileExt        string  `env:"TILE_EXT" envDefault:"png"`
	ScreenWidth    int     `env:"SCREEN_WIDTH" envDefault:"1280"`
	ScreenHeight   int     `env:"SCREEN_HEIGHT" envDefault:"720"`
	TargetFPS      int     `env:"TARGET_FPS" envDefault:"60"`
	LODFuzziness   float64 `env:"LOD_FUZZINESS" envDefault:"1.0"`
	BudgetFraction float64 `env:"BUDGET_FRACTION" envDefault:"0.7"`
	DecodeWindow   int     `env:"DECODE_WINDOW" envDefault:"100"`
	Workers        int     `env:"RETRIEVAL_WORKERS" envDefault:"4"`
	MaxZoom        float64 `env:"MAX_ZOOM" envDefault:"20"`
	AllowedOrigin  string  `env:"ALLOWED_ORIGIN"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	VipsMaxCacheMB  int `env:"VIPS_MAX_CACHE_MB" envDefault:"64"`
	VipsConcurrency int `env:"VIPS_CONCURRENCY" envDefault:"1"`
}

// Load reads an optional .env file, then the environment.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.ScreenWidth <= 0 || c.ScreenHeight <= 0:
		return fmt.Errorf("invalid screen size %dx%d", c.ScreenWidth, c.ScreenHeight)
	case c.TargetFPS <= 0:
		return fmt.Errorf("invalid TARGET_FPS %d", c.TargetFPS)
	case c.LODFuzziness <= 0:
		return fmt.Errorf("invalid LOD_FUZZINESS %v", c.LODFuzziness)
	case c.BudgetFraction <= 0:
		return fmt.Errorf("invalid BUDGET_FRACTION %v", c.BudgetFraction)
	case c.DecodeWindow <= 0:
		return fmt.Errorf("invalid DECODE_WINDOW %d", c.DecodeWindow)
	case c.Workers <= 0:
		return fmt.Errorf("invalid RETRIEVAL_WORKERS %d", c.Workers)
	case c.MaxZoom <= 0:
		return fmt.Errorf("invalid MAX_ZOOM %v", c.MaxZoom)
	}
	return nil
}

// FrameBudget is the wall-clock limit of one frame.
func (c *Config) FrameBudget() time.Duration {
	return time.Second / time.Duration(c.TargetFPS)
}
