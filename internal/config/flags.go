package config

import "flag"

// Flags holds command-line overrides. Zero values leave the file or default
// value untouched.
type Flags struct {
	Config    string
	Debug     bool
	LogFile   string
	Seed      uint64
	WidthMm   float64
	HeightMm  float64
	Flat      bool
	OutputDir string
	Format    string
}

// RegisterFlags defines the shared configuration flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.Config, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.LogFile, "log-file", "", "Also write logs to this file")
	fs.Uint64Var(&f.Seed, "seed", 0, "Random seed for color clustering (0 = random)")
	fs.Float64Var(&f.WidthMm, "width-mm", 0, "Board width in millimetres")
	fs.Float64Var(&f.HeightMm, "height-mm", 0, "Board height in millimetres")
	fs.BoolVar(&f.Flat, "flat", false, "Use the first layer height for every layer")
	fs.StringVar(&f.OutputDir, "out", "", "Output directory")
	fs.StringVar(&f.Format, "format", "", "Export format: stl or 3mf")
	return f
}

// ConfigPath returns the explicit config path if provided via -config.
func (f *Flags) ConfigPath() string {
	if f == nil {
		return ""
	}
	return f.Config
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.LogFile != "" {
		cfg.Logging.LogFile = f.LogFile
	}
	if f.Seed != 0 {
		cfg.Quantize.Seed = f.Seed
	}
	if f.WidthMm > 0 {
		cfg.Board.WidthMm = f.WidthMm
	}
	if f.HeightMm > 0 {
		cfg.Board.HeightMm = f.HeightMm
	}
	if f.Flat {
		cfg.Relief.Tactile = false
	}
	if f.OutputDir != "" {
		cfg.Export.OutputDir = f.OutputDir
	}
	if f.Format != "" {
		cfg.Export.Format = f.Format
	}
}
