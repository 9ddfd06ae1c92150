// Package server implements the MCP (Model Context Protocol) server for the
// relief tools.
//
// This package provides a JSON-RPC 2.0 server that exposes the relief pipeline
// (quantize an image to four colors, lay the colors out as stacked layers and
// export them for printing) through the MCP protocol.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// While a tool call runs, each pipeline stage is announced with a
// notifications/message notification whose data carries the stage name.
//
// # Available Tools
//
// Source inspection:
//   - relief_load: Load image and get metadata
//   - relief_dominant_colors: Approximate color preview
//
// Quantization and layout:
//   - relief_quantize: Four-color palette, cell counts and preview PNG
//   - relief_stack: Layer z-ranges for a set of relief settings
//
// Export:
//   - relief_export_stl: One binary STL per non-empty layer
//   - relief_export_3mf: Single 3MF project with colored objects
//
// Every pipeline tool accepts optional board, relief and quantize overrides
// (width_mm, height_mm, base_height, layer_heights, tactile, seed,
// cleanup_iterations). Unset overrides keep the server configuration.
//
// # Caching
//
// Decoded images are cached by path. Prepared sources (fitted, quantized and
// cleaned grids) are cached by path, board size and quantize parameters, so a
// relief_quantize followed by an export reuses the same palette. Both caches
// live for the lifetime of the server process.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string, prefixed with the failing pipeline stage
//
// # Usage
//
// The server is typically started by an MCP client:
//
//	srv := server.New(cfg, logger.Named("server"))
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
