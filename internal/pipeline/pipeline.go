// Package pipeline wires the relief stages together: fit a raster to the board,
// quantize it to four colors, clean up speckles, then build and encode one
// solid per color.
//
// Preparation (fit, quantize, cleanup) runs once per source raster and yields
// an immutable Source. Every export rebuilds masks and meshes from the Source
// for the requested settings, so one Source can serve many exports, including
// concurrent ones.
package pipeline

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ironsheep/relief-tools-mcp/internal/config"
	"github.com/ironsheep/relief-tools-mcp/internal/despeckle"
	"github.com/ironsheep/relief-tools-mcp/internal/imaging"
	"github.com/ironsheep/relief-tools-mcp/internal/mesh"
	"github.com/ironsheep/relief-tools-mcp/internal/quantize"
	"github.com/ironsheep/relief-tools-mcp/internal/relief"
	"github.com/ironsheep/relief-tools-mcp/internal/stl"
	"github.com/ironsheep/relief-tools-mcp/internal/threemf"
)

// Observer is notified as each stage starts.
type Observer func(stage Stage)

// Options controls preparation.
type Options struct {
	// WidthMm and HeightMm set the board footprint and with it the grid
	// resolution (imaging.PixelsPerMM pixels per millimetre).
	WidthMm  float64
	HeightMm float64

	// Seed makes quantization reproducible. Zero picks a random seed.
	Seed uint64

	// Iterations caps K-Means refinement rounds.
	Iterations int

	// CleanupIterations is the number of despeckle passes. Zero disables
	// cleanup.
	CleanupIterations int

	// PreBlurRadius applies a Gaussian blur before quantization. Zero disables
	// it.
	PreBlurRadius float64

	// ThumbnailSize is the longest side of the 3MF preview image.
	ThumbnailSize int

	Logger   *zap.Logger
	Observer Observer
}

// DefaultOptions returns options matching config.Default.
func DefaultOptions() Options {
	return OptionsFromConfig(config.Default())
}

// OptionsFromConfig maps the board and quantize sections of cfg to Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		WidthMm:           cfg.Board.WidthMm,
		HeightMm:          cfg.Board.HeightMm,
		Seed:              cfg.Quantize.Seed,
		Iterations:        cfg.Quantize.Iterations,
		CleanupIterations: cfg.Quantize.CleanupIterations,
		PreBlurRadius:     cfg.Quantize.PreBlurRadius,
		ThumbnailSize:     cfg.Export.ThumbnailSize,
	}
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o Options) notify(stage Stage) {
	if o.Observer != nil {
		o.Observer(stage)
	}
}

func (o Options) source() rand.Source {
	if o.Seed == 0 {
		return nil
	}
	return rand.NewPCG(o.Seed, o.Seed^0x9e3779b97f4a7c15)
}

// Source is a prepared raster: the board-sized image, its palette and the
// cleaned index grid. It is never modified after Prepare returns.
type Source struct {
	Image    *image.NRGBA
	Palette  imaging.Palette
	Grid     *imaging.IndexGrid
	Quantize *quantize.Result

	// CleanupChanged is the number of cells the despeckle passes reassigned.
	CleanupChanged int

	opts Options
	log  *zap.Logger
}

// Load decodes the raster at path. Failures are reported as ErrInput.
func Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, stageErr(StageDecode, ErrInput, err)
	}
	defer f.Close()

	img, err := imaging.Decode(f)
	if err != nil {
		return nil, stageErr(StageDecode, ErrInput, err)
	}
	return img, nil
}

// Prepare fits img to the board, quantizes it and cleans up speckles.
func Prepare(img image.Image, opts Options) (*Source, error) {
	log := opts.logger()

	opts.notify(StageFit)
	if img == nil || img.Bounds().Empty() {
		return nil, stageErr(StageFit, ErrInput, imaging.ErrEmptyImage)
	}
	w, h, err := imaging.BoardResolution(opts.WidthMm, opts.HeightMm)
	if err != nil {
		return nil, stageErr(StageFit, ErrInput, err)
	}
	fitted, err := imaging.FitToBoard(img, w, h)
	if err != nil {
		return nil, stageErr(StageFit, ErrInput, err)
	}
	log.Debug("fitted source to board",
		zap.Int("src_width", img.Bounds().Dx()),
		zap.Int("src_height", img.Bounds().Dy()),
		zap.Int("width", w),
		zap.Int("height", h))

	opts.notify(StageQuantize)
	qres, err := quantize.Quantize(imaging.Smooth(fitted, opts.PreBlurRadius), quantize.Options{
		MaxIterations: opts.Iterations,
		Source:        opts.source(),
		Logger:        log.Named("quantize"),
	})
	if err != nil {
		return nil, stageErr(StageQuantize, ErrInput, err)
	}

	opts.notify(StageCleanup)
	grid := despeckle.Clean(qres.Grid, opts.CleanupIterations)
	changed := 0
	for i, v := range grid.Cells {
		if v != qres.Grid.Cells[i] {
			changed++
		}
	}
	log.Debug("cleaned index grid",
		zap.Int("passes", opts.CleanupIterations),
		zap.Int("changed", changed))

	return &Source{
		Image:          fitted,
		Palette:        qres.Palette,
		Grid:           grid,
		Quantize:       qres,
		CleanupChanged: changed,
		opts:           opts,
		log:            log,
	}, nil
}

// Counts returns the number of cleaned grid cells per palette index.
func (s *Source) Counts() [imaging.PaletteSize]int {
	return s.Grid.Counts()
}

// Stack builds the relief layer stack for settings. The settings must describe
// the same board footprint the source was prepared for.
func (s *Source) Stack(settings relief.Settings) (*relief.Stack, error) {
	s.opts.notify(StageRelief)
	if err := settings.Validate(); err != nil {
		return nil, stageErr(StageRelief, ErrInput, err)
	}
	w, h, err := imaging.BoardResolution(settings.WidthMm, settings.HeightMm)
	if err != nil {
		return nil, stageErr(StageRelief, ErrInput, err)
	}
	if w != s.Grid.Width || h != s.Grid.Height {
		return nil, stageErr(StageRelief, ErrInput, fmt.Errorf(
			"board %gx%g mm needs a %dx%d grid, source was prepared at %dx%d",
			settings.WidthMm, settings.HeightMm, w, h, s.Grid.Width, s.Grid.Height))
	}

	st, err := relief.Build(s.Grid, s.Palette, settings)
	if err != nil {
		return nil, stageErr(StageRelief, ErrInput, err)
	}
	return st, nil
}

// LayerMesh is a layer together with its solid.
type LayerMesh struct {
	Layer relief.Layer
	Mesh  *mesh.Mesh
}

// Meshes builds the solid of every non-empty layer, in palette order.
func (s *Source) Meshes(settings relief.Settings) ([]LayerMesh, error) {
	st, err := s.Stack(settings)
	if err != nil {
		return nil, err
	}

	s.opts.notify(StageMesh)
	layers := st.Occupied()
	s.log.Debug("built relief stack",
		zap.Int("layers", len(layers)),
		zap.Float64("total_height", st.TotalHeight()))
	out := make([]LayerMesh, 0, len(layers))
	for _, l := range layers {
		m, err := mesh.Build(l.Mask, l.Z.Min, l.Z.Max, st.CellWidth, st.CellHeight)
		if err != nil {
			return nil, stageErr(StageMesh, ErrMesh, fmt.Errorf("%s: %w", l.Name(), err))
		}
		if ce := s.log.Check(zap.DebugLevel, "built layer mesh"); ce != nil {
			lo, hi := m.Bounds()
			ce.Write(
				zap.String("layer", l.Name()),
				zap.Int("cells", l.Mask.Count),
				zap.Int("triangles", m.Len()),
				zap.Int("open_edges", m.OpenEdges()),
				zap.Float64("volume", m.Volume()),
				zap.Float64("size_x", hi.X-lo.X),
				zap.Float64("size_y", hi.Y-lo.Y),
				zap.Float64("z_min", lo.Z),
				zap.Float64("z_max", hi.Z))
		}
		out = append(out, LayerMesh{Layer: l, Mesh: m})
	}
	return out, nil
}

// ExportSTL encodes one binary STL document per non-empty layer. Nothing is
// returned unless every layer encodes.
func (s *Source) ExportSTL(settings relief.Settings) ([]stl.File, error) {
	meshes, err := s.Meshes(settings)
	if err != nil {
		return nil, err
	}

	s.opts.notify(StageEncode)
	files := make([]stl.File, 0, len(meshes))
	for _, lm := range meshes {
		data, err := stl.Marshal(lm.Mesh)
		if err != nil {
			return nil, stageErr(StageEncode, ErrEncoding, fmt.Errorf("%s: %w", lm.Layer.Name(), err))
		}
		files = append(files, stl.File{Name: stl.FileName(lm.Layer.Name()), Data: data})
	}
	return files, nil
}

// WriteSTL exports the layers and writes them into dir. Files are written only
// after every layer has been encoded.
func (s *Source) WriteSTL(dir string, settings relief.Settings) ([]string, error) {
	files, err := s.ExportSTL(settings)
	if err != nil {
		return nil, err
	}

	s.opts.notify(StageWrite)
	paths, err := stl.WriteFiles(dir, files)
	if err != nil {
		return nil, stageErr(StageWrite, ErrEncoding, err)
	}
	s.log.Info("wrote STL layers", zap.String("dir", dir), zap.Int("files", len(paths)))
	return paths, nil
}

// Thumbnail renders the cleaned grid in palette colors and encodes it as a PNG
// no larger than the configured thumbnail size.
func (s *Source) Thumbnail() ([]byte, error) {
	thumb := imaging.Thumbnail(s.Grid.Render(s.Palette), s.opts.ThumbnailSize)
	var buf bytes.Buffer
	if err := imaging.EncodePNG(&buf, thumb); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Preview renders the cleaned grid as a base64 PNG, upscaled by scale.
func (s *Source) Preview(scale int) (*imaging.PreviewResult, error) {
	return imaging.RenderPreview(s.Grid, s.Palette, scale)
}

// ExportProject writes a 3MF archive of every non-empty layer to w, using the
// given archive writer factory. A nil factory uses threemf.NewZipWriter.
func (s *Source) ExportProject(w io.Writer, settings relief.Settings, newArchive func(io.Writer) threemf.ArchiveWriter) error {
	meshes, err := s.Meshes(settings)
	if err != nil {
		return err
	}

	s.opts.notify(StageEncode)
	thumb, err := s.Thumbnail()
	if err != nil {
		return stageErr(StageEncode, ErrEncoding, err)
	}

	pkg := threemf.Package{Title: "relief", Thumbnail: thumb}
	for _, lm := range meshes {
		pkg.Objects = append(pkg.Objects, threemf.Object{
			Name:  lm.Layer.Name(),
			Color: lm.Layer.Color,
			Mesh:  lm.Mesh,
		})
	}

	if newArchive == nil {
		newArchive = threemf.NewZipWriter
	}
	if err := threemf.Write(newArchive(w), pkg); err != nil {
		return stageErr(StageEncode, ErrEncoding, err)
	}
	return nil
}

// Write3MF writes the 3MF archive to path. The archive is assembled in a
// temporary file next to path and renamed into place only when complete.
func (s *Source) Write3MF(path string, settings relief.Settings) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return stageErr(StageWrite, ErrEncoding, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return stageErr(StageWrite, ErrEncoding, err)
	}
	tmpName := tmp.Name()

	if err := s.ExportProject(tmp, settings, nil); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	s.opts.notify(StageWrite)
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return stageErr(StageWrite, ErrEncoding, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return stageErr(StageWrite, ErrEncoding, err)
	}
	s.log.Info("wrote 3MF project", zap.String("path", path))
	return nil
}

// ProjectPath names the 3MF project for the raster at source inside dir: the
// raster's base name with a .3mf extension.
func ProjectPath(dir, source string) string {
	base := filepath.Base(source)
	return filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+".3mf")
}
