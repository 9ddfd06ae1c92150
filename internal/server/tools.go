package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Source inspection
		{
			Name:        "relief_load",
			Description: "Load a source image and return its dimensions, format and aspect ratio. The file is read again even if it was loaded before, and the decoded image is cached for later calls.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the source image file",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "relief_dominant_colors",
			Description: "Estimate the most prominent colors of a source image. This is a preview only and does not affect the relief palette.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the source image file",
					},
					"count": map[string]interface{}{
						"type":        "integer",
						"description": "Number of colors to return. Default 4",
						"default":     4,
					},
				},
				"required": []string{"path"},
			},
		},

		// Quantization and layout
		{
			Name:        "relief_quantize",
			Description: "Fit the image to the board, reduce it to four colors and clean up isolated pixels. Returns the palette, per-color cell counts and a PNG preview of the result.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the source image file",
					},
					"width_mm": map[string]interface{}{
						"type":        "number",
						"description": "Board width in millimetres. Defaults to the server configuration",
						"maximum":     1000,
					},
					"height_mm": map[string]interface{}{
						"type":        "number",
						"description": "Board height in millimetres. Defaults to the server configuration",
						"maximum":     1000,
					},
					"seed": map[string]interface{}{
						"type":        "integer",
						"description": "Quantization seed. 0 picks a random seed",
					},
					"cleanup_iterations": map[string]interface{}{
						"type":        "integer",
						"description": "Number of despeckle passes. 0 disables cleanup",
					},
					"preview_scale": map[string]interface{}{
						"type":        "integer",
						"description": "Integer upscale factor for the preview. Default 1. Lowered so neither side exceeds 4096 px",
						"default":     1,
						"minimum":     1,
						"maximum":     64,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "relief_stack",
			Description: "Compute the z-range of each of the four layers for the given relief settings, without touching an image.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"width_mm": map[string]interface{}{
						"type":        "number",
						"description": "Board width in millimetres. Defaults to the server configuration",
						"maximum":     1000,
					},
					"height_mm": map[string]interface{}{
						"type":        "number",
						"description": "Board height in millimetres. Defaults to the server configuration",
						"maximum":     1000,
					},
					"base_height": map[string]interface{}{
						"type":        "number",
						"description": "Extra thickness added under the first layer, in millimetres",
					},
					"layer_heights": map[string]interface{}{
						"type":        "array",
						"description": "Thickness of each of the four layers in millimetres",
						"items":       map[string]interface{}{"type": "number"},
						"minItems":    4,
						"maxItems":    4,
					},
					"tactile": map[string]interface{}{
						"type":        "boolean",
						"description": "Stack layers at their own heights. false prints every layer at the first layer height",
					},
				},
			},
		},

		// Export
		{
			Name:        "relief_export_stl",
			Description: "Quantize the image and write one binary STL solid per non-empty color layer.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the source image file",
					},
					"output_dir": map[string]interface{}{
						"type":        "string",
						"description": "Directory for the STL files. Defaults to the configured output directory",
					},
					"width_mm": map[string]interface{}{
						"type":        "number",
						"description": "Board width in millimetres. Defaults to the server configuration",
						"maximum":     1000,
					},
					"height_mm": map[string]interface{}{
						"type":        "number",
						"description": "Board height in millimetres. Defaults to the server configuration",
						"maximum":     1000,
					},
					"base_height": map[string]interface{}{
						"type":        "number",
						"description": "Extra thickness added under the first layer, in millimetres",
					},
					"layer_heights": map[string]interface{}{
						"type":        "array",
						"description": "Thickness of each of the four layers in millimetres",
						"items":       map[string]interface{}{"type": "number"},
						"minItems":    4,
						"maxItems":    4,
					},
					"tactile": map[string]interface{}{
						"type":        "boolean",
						"description": "Stack layers at their own heights. false prints every layer at the first layer height",
					},
					"seed": map[string]interface{}{
						"type":        "integer",
						"description": "Quantization seed. 0 picks a random seed",
					},
					"cleanup_iterations": map[string]interface{}{
						"type":        "integer",
						"description": "Number of despeckle passes. 0 disables cleanup",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "relief_export_3mf",
			Description: "Quantize the image and write a 3MF project with one colored object per non-empty layer and a thumbnail.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the source image file",
					},
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Path of the .3mf file. Defaults to <output_dir>/<image name>.3mf",
					},
					"width_mm": map[string]interface{}{
						"type":        "number",
						"description": "Board width in millimetres. Defaults to the server configuration",
						"maximum":     1000,
					},
					"height_mm": map[string]interface{}{
						"type":        "number",
						"description": "Board height in millimetres. Defaults to the server configuration",
						"maximum":     1000,
					},
					"base_height": map[string]interface{}{
						"type":        "number",
						"description": "Extra thickness added under the first layer, in millimetres",
					},
					"layer_heights": map[string]interface{}{
						"type":        "array",
						"description": "Thickness of each of the four layers in millimetres",
						"items":       map[string]interface{}{"type": "number"},
						"minItems":    4,
						"maxItems":    4,
					},
					"tactile": map[string]interface{}{
						"type":        "boolean",
						"description": "Stack layers at their own heights. false prints every layer at the first layer height",
					},
					"seed": map[string]interface{}{
						"type":        "integer",
						"description": "Quantization seed. 0 picks a random seed",
					},
					"cleanup_iterations": map[string]interface{}{
						"type":        "integer",
						"description": "Number of despeckle passes. 0 disables cleanup",
					},
				},
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
