package config

import (
	"flag"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points config discovery at an empty directory tree
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("HOME", filepath.Join(dir, "home"))
	t.Chdir(dir)
	return dir
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 100.0, cfg.Board.WidthMm)
	assert.Equal(t, 100.0, cfg.Board.HeightMm)
	assert.Equal(t, 0.8, cfg.Relief.BaseHeight)
	assert.Equal(t, [4]float64{0.6, 0.8, 1.0, 1.2}, cfg.Relief.LayerHeights)
	assert.True(t, cfg.Relief.Tactile)
	assert.Equal(t, 10, cfg.Quantize.Iterations)
	assert.Equal(t, 2, cfg.Quantize.CleanupIterations)
	assert.Equal(t, Format3MF, cfg.Export.Format)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "relief.yaml")

	yamlContent := `
board:
  width_mm: 60
  height_mm: 40

relief:
  base_height: 1.0
  layer_heights: [0.4, 0.4, 0.6, 0.8]
  tactile: false

quantize:
  seed: 42
  cleanup_iterations: 3
  pre_blur_radius: 1.5

export:
  output_dir: "prints"
  format: stl

logging:
  level: "debug"
  log_file: "relief.log"
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	cfg := Default()
	require.NoError(t, loadFromFile(cfg, configPath))

	assert.Equal(t, 60.0, cfg.Board.WidthMm)
	assert.Equal(t, 40.0, cfg.Board.HeightMm)
	assert.Equal(t, 1.0, cfg.Relief.BaseHeight)
	assert.Equal(t, [4]float64{0.4, 0.4, 0.6, 0.8}, cfg.Relief.LayerHeights)
	assert.False(t, cfg.Relief.Tactile)
	assert.Equal(t, uint64(42), cfg.Quantize.Seed)
	assert.Equal(t, 3, cfg.Quantize.CleanupIterations)
	assert.Equal(t, 1.5, cfg.Quantize.PreBlurRadius)
	assert.Equal(t, "prints", cfg.Export.OutputDir)
	assert.Equal(t, FormatSTL, cfg.Export.Format)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Keys absent from the file keep their defaults.
	assert.Equal(t, 10, cfg.Quantize.Iterations)
	assert.Equal(t, 256, cfg.Export.ThumbnailSize)

	s := cfg.Settings()
	assert.Equal(t, 60.0, s.WidthMm)
	assert.False(t, s.IsTactile)
}

func TestLoadFromFileInvalid(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "board: [unclosed"},
		{"wrong layer count", "relief:\n  layer_heights: [1, 2]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))
			assert.Error(t, loadFromFile(Default(), path))
		})
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	err := loadFromFile(Default(), "/nonexistent/path/relief.yaml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero width", func(c *Config) { c.Board.WidthMm = 0 }, "board size"},
		{"negative layer", func(c *Config) { c.Relief.LayerHeights[3] = -0.2 }, "layer height 3"},
		{"no iterations", func(c *Config) { c.Quantize.Iterations = 0 }, "quantize.iterations"},
		{"negative cleanup", func(c *Config) { c.Quantize.CleanupIterations = -1 }, "cleanup_iterations"},
		{"negative blur", func(c *Config) { c.Quantize.PreBlurRadius = -1 }, "pre_blur_radius"},
		{"bad format", func(c *Config) { c.Export.Format = "obj" }, "export.format"},
		{"zero thumbnail", func(c *Config) { c.Export.ThumbnailSize = 0 }, "thumbnail_size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Quantize.Iterations = 0
	cfg.Export.Format = "obj"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quantize.iterations")
	assert.Contains(t, err.Error(), "export.format")
}

func TestFlags(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	f := RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{
		"-debug", "-seed", "7", "-width-mm", "80", "-flat", "-out", "dist", "-format", "stl",
	}))

	cfg := Default()
	f.apply(cfg)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, uint64(7), cfg.Quantize.Seed)
	assert.Equal(t, 80.0, cfg.Board.WidthMm)
	assert.Equal(t, 100.0, cfg.Board.HeightMm, "unset flags keep the current value")
	assert.False(t, cfg.Relief.Tactile)
	assert.Equal(t, "dist", cfg.Export.OutputDir)
	assert.Equal(t, FormatSTL, cfg.Export.Format)
}

func TestNilFlags(t *testing.T) {
	var f *Flags
	assert.Empty(t, f.ConfigPath())

	cfg := Default()
	f.apply(cfg)
	assert.Equal(t, Default(), cfg)
}

func TestConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/xdg")
	dir := ConfigDir()
	assert.NotEmpty(t, dir)
	if runtime.GOOS == "linux" {
		assert.Equal(t, filepath.Join("/custom/xdg", "relief-tools"), dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	dir := isolate(t)
	assert.Empty(t, findConfigFile())

	local := filepath.Join(dir, "relief.yaml")
	require.NoError(t, os.WriteFile(local, []byte("board:\n  width_mm: 50\n"), 0644))
	assert.Equal(t, "./relief.yaml", findConfigFile())
}

func TestLoadPriority(t *testing.T) {
	dir := isolate(t)
	configPath := filepath.Join(dir, "explicit.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("board:\n  width_mm: 50\n  height_mm: 30\n"), 0644))

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	f := RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"-config", configPath, "-height-mm", "25"}))

	cfg, err := Load(f)
	require.NoError(t, err)

	assert.Equal(t, 50.0, cfg.Board.WidthMm, "file overrides default")
	assert.Equal(t, 25.0, cfg.Board.HeightMm, "flag overrides file")
	assert.Equal(t, 0.8, cfg.Relief.BaseHeight, "default survives")
}

func TestLoad_NoFile(t *testing.T) {
	isolate(t)
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_InvalidResult(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("export:\n  format: obj\n"), 0644))

	_, err := Load(&Flags{Config: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "relief.yaml")
	cfg := Default()
	cfg.Board.WidthMm = 42
	require.NoError(t, cfg.SaveTo(path))

	loaded := Default()
	require.NoError(t, loadFromFile(loaded, path))
	assert.Equal(t, cfg, loaded)
}
