// Package config handles relief tool configuration loading and management.
package config

import (
	"errors"
	"fmt"

	"github.com/ironsheep/relief-tools-mcp/internal/imaging"
	"github.com/ironsheep/relief-tools-mcp/internal/relief"
)

// Config holds all tool settings.
type Config struct {
	Board    BoardConfig    `yaml:"board"`
	Relief   ReliefConfig   `yaml:"relief"`
	Quantize QuantizeConfig `yaml:"quantize"`
	Export   ExportConfig   `yaml:"export"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// BoardConfig holds the physical footprint of the printed board.
type BoardConfig struct {
	WidthMm  float64 `yaml:"width_mm"`
	HeightMm float64 `yaml:"height_mm"`
}

// ReliefConfig holds layer extrusion settings.
type ReliefConfig struct {
	BaseHeight   float64                      `yaml:"base_height"`
	LayerHeights [imaging.PaletteSize]float64 `yaml:"layer_heights"`
	Tactile      bool                         `yaml:"tactile"`
}

// QuantizeConfig holds color reduction settings.
type QuantizeConfig struct {
	Seed              uint64  `yaml:"seed"` // 0 = random
	Iterations        int     `yaml:"iterations"`
	CleanupIterations int     `yaml:"cleanup_iterations"`
	PreBlurRadius     float64 `yaml:"pre_blur_radius"`
}

// ExportConfig holds output settings.
type ExportConfig struct {
	OutputDir     string `yaml:"output_dir"`
	Format        string `yaml:"format"` // stl or 3mf
	ThumbnailSize int    `yaml:"thumbnail_size"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Export formats.
const (
	FormatSTL = "stl"
	Format3MF = "3mf"
)

// Default returns a Config with sensible default values.
func Default() *Config {
	s := relief.DefaultSettings()
	return &Config{
		Board: BoardConfig{
			WidthMm:  s.WidthMm,
			HeightMm: s.HeightMm,
		},
		Relief: ReliefConfig{
			BaseHeight:   s.BaseHeight,
			LayerHeights: s.LayerHeights,
			Tactile:      s.IsTactile,
		},
		Quantize: QuantizeConfig{
			Seed:              0,
			Iterations:        10,
			CleanupIterations: 2,
			PreBlurRadius:     0,
		},
		Export: ExportConfig{
			OutputDir:     "out",
			Format:        Format3MF,
			ThumbnailSize: 256,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Settings returns the relief settings described by the board and relief
// sections.
func (c *Config) Settings() relief.Settings {
	return relief.Settings{
		BaseHeight:   c.Relief.BaseHeight,
		LayerHeights: c.Relief.LayerHeights,
		IsTactile:    c.Relief.Tactile,
		WidthMm:      c.Board.WidthMm,
		HeightMm:     c.Board.HeightMm,
	}
}

// Validate checks every section and returns all problems found.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Settings().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Quantize.Iterations < 1 {
		errs = append(errs, fmt.Errorf("quantize.iterations must be at least 1, got %d", c.Quantize.Iterations))
	}
	if c.Quantize.CleanupIterations < 0 {
		errs = append(errs, fmt.Errorf("quantize.cleanup_iterations must not be negative, got %d", c.Quantize.CleanupIterations))
	}
	if c.Quantize.PreBlurRadius < 0 {
		errs = append(errs, fmt.Errorf("quantize.pre_blur_radius must not be negative, got %g", c.Quantize.PreBlurRadius))
	}
	switch c.Export.Format {
	case FormatSTL, Format3MF:
	default:
		errs = append(errs, fmt.Errorf("export.format must be %q or %q, got %q", FormatSTL, Format3MF, c.Export.Format))
	}
	if c.Export.ThumbnailSize < 1 {
		errs = append(errs, fmt.Errorf("export.thumbnail_size must be positive, got %d", c.Export.ThumbnailSize))
	}
	return errors.Join(errs...)
}
