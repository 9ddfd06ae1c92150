package server

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ironsheep/relief-tools-mcp/internal/config"
	"github.com/ironsheep/relief-tools-mcp/internal/imaging"
	"github.com/ironsheep/relief-tools-mcp/internal/pipeline"
	"github.com/ironsheep/relief-tools-mcp/internal/relief"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "relief_quantize").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.log.Warn("tool failed", zap.String("tool", params.Name), zap.Error(err))
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Merges overrides over the server configuration
//  3. Loads or reuses the prepared source
//  4. Calls the pipeline
//  5. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	switch name {
	// Source inspection
	case "relief_load":
		return s.handleReliefLoad(args)
	case "relief_dominant_colors":
		return s.handleReliefDominantColors(args)

	// Quantization and layout
	case "relief_quantize":
		return s.handleReliefQuantize(args)
	case "relief_stack":
		return s.handleReliefStack(args)

	// Export
	case "relief_export_stl":
		return s.handleReliefExportSTL(args)
	case "relief_export_3mf":
		return s.handleReliefExport3MF(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Shared arguments ===

// reliefArgs are the optional overrides every pipeline tool accepts. Unset
// fields keep the server configuration.
type reliefArgs struct {
	WidthMm           *float64    `json:"width_mm"`
	HeightMm          *float64    `json:"height_mm"`
	BaseHeight        *float64    `json:"base_height"`
	LayerHeights      *[4]float64 `json:"layer_heights"`
	Tactile           *bool       `json:"tactile"`
	Seed              *uint64     `json:"seed"`
	CleanupIterations *int        `json:"cleanup_iterations"`
}

// config returns a copy of the server configuration with the overrides
// applied.
func (a reliefArgs) config(base *config.Config) (*config.Config, error) {
	cfg := *base
	if a.WidthMm != nil {
		cfg.Board.WidthMm = *a.WidthMm
	}
	if a.HeightMm != nil {
		cfg.Board.HeightMm = *a.HeightMm
	}
	if a.BaseHeight != nil {
		cfg.Relief.BaseHeight = *a.BaseHeight
	}
	if a.LayerHeights != nil {
		cfg.Relief.LayerHeights = *a.LayerHeights
	}
	if a.Tactile != nil {
		cfg.Relief.Tactile = *a.Tactile
	}
	if a.Seed != nil {
		cfg.Quantize.Seed = *a.Seed
	}
	if a.CleanupIterations != nil {
		cfg.Quantize.CleanupIterations = *a.CleanupIterations
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// source returns the prepared source for path under cfg, preparing it on
// first use. Sources are kept for the lifetime of the server; with seed 0
// the first random quantization is the one that is reused.
func (s *Server) source(path string, cfg *config.Config) (*pipeline.Source, error) {
	if path == "" {
		return nil, errors.New("path is required")
	}
	key := sourceKey{
		path:       path,
		widthMm:    cfg.Board.WidthMm,
		heightMm:   cfg.Board.HeightMm,
		seed:       cfg.Quantize.Seed,
		iterations: cfg.Quantize.Iterations,
		cleanup:    cfg.Quantize.CleanupIterations,
		blur:       cfg.Quantize.PreBlurRadius,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if src, ok := s.sources[key]; ok {
		return src, nil
	}

	s.progress(pipeline.StageDecode)
	img, err := s.cache.Load(path)
	if err != nil {
		return nil, &pipeline.StageError{Stage: pipeline.StageDecode, Kind: pipeline.ErrInput, Err: err}
	}

	opts := pipeline.OptionsFromConfig(cfg)
	opts.Logger = s.log.Named("pipeline")
	opts.Observer = s.progress
	src, err := pipeline.Prepare(img, opts)
	if err != nil {
		return nil, err
	}
	s.sources[key] = src
	s.log.Info("prepared source",
		zap.String("path", path),
		zap.Int("grid_width", src.Grid.Width),
		zap.Int("grid_height", src.Grid.Height),
		zap.Strings("palette", src.Palette.Hex()))
	return src, nil
}

// === Source inspection handlers ===

type reliefLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleReliefLoad(args json.RawMessage) (interface{}, error) {
	var a reliefLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	s.forget(a.Path)
	return imaging.LoadImageInfo(s.cache, a.Path)
}

// forget drops the cached image and every source prepared from path, so the
// next call reads the file again.
func (s *Server) forget(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Evict(path)
	for key := range s.sources {
		if key.path == path {
			delete(s.sources, key)
		}
	}
}

type reliefDominantColorsArgs struct {
	Path  string `json:"path"`
	Count int    `json:"count"`
}

func (s *Server) handleReliefDominantColors(args json.RawMessage) (interface{}, error) {
	var a reliefDominantColorsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Count == 0 {
		a.Count = imaging.PaletteSize
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.DominantColors(img, a.Count)
}

// === Quantization and layout handlers ===

type reliefQuantizeArgs struct {
	Path string `json:"path"`
	reliefArgs
	PreviewScale int `json:"preview_scale"`
}

// quantizeResult describes a prepared source.
type quantizeResult struct {
	Palette        []string                 `json:"palette"`
	Counts         [imaging.PaletteSize]int `json:"counts"`
	Iterations     int                      `json:"iterations"`
	Degenerate     []int                    `json:"degenerate,omitempty"`
	GridWidth      int                      `json:"grid_width"`
	GridHeight     int                      `json:"grid_height"`
	CleanupChanged int                      `json:"cleanup_changed"`
	Preview        *imaging.PreviewResult   `json:"preview"`
}

func (s *Server) handleReliefQuantize(args json.RawMessage) (interface{}, error) {
	var a reliefQuantizeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	cfg, err := a.config(s.cfg)
	if err != nil {
		return nil, err
	}
	src, err := s.source(a.Path, cfg)
	if err != nil {
		return nil, err
	}

	preview, err := src.Preview(a.PreviewScale)
	if err != nil {
		return nil, err
	}
	return &quantizeResult{
		Palette:        src.Palette.Hex(),
		Counts:         src.Counts(),
		Iterations:     src.Quantize.Iterations,
		Degenerate:     src.Quantize.Degenerate,
		GridWidth:      src.Grid.Width,
		GridHeight:     src.Grid.Height,
		CleanupChanged: src.CleanupChanged,
		Preview:        preview,
	}, nil
}

// layerRange is one entry of the relief_stack result.
type layerRange struct {
	Index     int     `json:"index"`
	ZMin      float64 `json:"z_min"`
	ZMax      float64 `json:"z_max"`
	Thickness float64 `json:"thickness"`
}

type stackResult struct {
	Layers      []layerRange `json:"layers"`
	TotalHeight float64      `json:"total_height"`
	GridWidth   int          `json:"grid_width"`
	GridHeight  int          `json:"grid_height"`
	Flat        bool         `json:"flat"`
}

func (s *Server) handleReliefStack(args json.RawMessage) (interface{}, error) {
	var a reliefArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	cfg, err := a.config(s.cfg)
	if err != nil {
		return nil, err
	}
	settings := cfg.Settings()
	w, h, err := imaging.BoardResolution(settings.WidthMm, settings.HeightMm)
	if err != nil {
		return nil, err
	}

	ranges := relief.ZRanges(settings)
	res := &stackResult{
		Layers:      make([]layerRange, 0, len(ranges)),
		TotalHeight: ranges[len(ranges)-1].Max,
		GridWidth:   w,
		GridHeight:  h,
		Flat:        !settings.IsTactile,
	}
	for i, r := range ranges {
		res.Layers = append(res.Layers, layerRange{Index: i, ZMin: r.Min, ZMax: r.Max, Thickness: r.Thickness()})
	}
	return res, nil
}

// === Export handlers ===

type reliefExportSTLArgs struct {
	Path      string `json:"path"`
	OutputDir string `json:"output_dir"`
	reliefArgs
}

func (s *Server) handleReliefExportSTL(args json.RawMessage) (interface{}, error) {
	var a reliefExportSTLArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	cfg, err := a.config(s.cfg)
	if err != nil {
		return nil, err
	}
	src, err := s.source(a.Path, cfg)
	if err != nil {
		return nil, err
	}

	dir := a.OutputDir
	if dir == "" {
		dir = cfg.Export.OutputDir
	}
	files, err := src.WriteSTL(dir, cfg.Settings())
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"files":  files,
		"layers": len(files),
	}, nil
}

type reliefExport3MFArgs struct {
	Path       string `json:"path"`
	OutputPath string `json:"output_path"`
	reliefArgs
}

func (s *Server) handleReliefExport3MF(args json.RawMessage) (interface{}, error) {
	var a reliefExport3MFArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	cfg, err := a.config(s.cfg)
	if err != nil {
		return nil, err
	}
	src, err := s.source(a.Path, cfg)
	if err != nil {
		return nil, err
	}

	out := a.OutputPath
	if out == "" {
		out = pipeline.ProjectPath(cfg.Export.OutputDir, a.Path)
	}
	if err := src.Write3MF(out, cfg.Settings()); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"file":    out,
		"palette": src.Palette.Hex(),
	}, nil
}
