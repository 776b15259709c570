// Package server implements the MCP (Model Context Protocol) server for
// charge stability diagram analysis.
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
// The notifications/initialized acknowledgment is accepted without a response.
//
// # Available Tools
//
// Diagrams:
//   - diagram_load: Load a diagram CSV and report its shape and axis
//   - diagram_calibrate: Report the noise calibration window and RMS
//   - diagram_scan: Detect transitions on every row
//   - diagram_extract_lines: Group the transition mask into line segments
//   - diagram_render: Render a heatmap, mask, overlay or line image as PNG
//
// Single traces (a diagram row, or inline x/y arrays):
//   - trace_detect: Confirmed transitions, optionally with per-step diagnostics
//   - trace_plot: PNG plot of the trace and its transitions
//
// Every detection tool accepts sigma and transconductance overrides on top of
// the server configuration.
//
// # Diagram Caching
//
// Loaded diagrams are cached by path for the lifetime of the server process.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
//	srv := server.New(cfg, server.WithLogger(log))
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
