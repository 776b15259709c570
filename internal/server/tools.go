package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func prop(typ, description string) map[string]interface{} {
	return map[string]interface{}{"type": typ, "description": description}
}

// pathProp is the diagram file argument shared by every diagram tool.
var pathProp = prop("string", "Path to the diagram CSV (first row: column coordinates, following rows: values)")

// detectorProps are the per-call detector overrides.
func detectorProps(extra map[string]interface{}) map[string]interface{} {
	props := map[string]interface{}{
		"path":             pathProp,
		"sigma":            prop("number", "Threshold multiplier on the noise RMS. Default from settings (3.0)"),
		"transconductance": prop("boolean", "Treat values as a derivative already (use raw samples). Default false"),
	}
	for k, v := range extra {
		props[k] = v
	}
	return props
}

func schema(props map[string]interface{}, required ...string) map[string]interface{} {
	s := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// traceProps select a trace: a diagram row, or inline x/y arrays.
func traceProps(extra map[string]interface{}) map[string]interface{} {
	props := detectorProps(map[string]interface{}{
		"row": prop("integer", "Diagram row to analyse (0-based). Calibration uses the whole diagram"),
		"x": map[string]interface{}{
			"type":        "array",
			"items":       map[string]interface{}{"type": "number"},
			"description": "Inline sweep coordinates, used when no path is given",
		},
		"y": map[string]interface{}{
			"type":        "array",
			"items":       map[string]interface{}{"type": "number"},
			"description": "Inline values, same length as x",
		},
	})
	for k, v := range extra {
		props[k] = v
	}
	return props
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Diagram information
		{
			Name:        "diagram_load",
			Description: "Load a charge stability diagram CSV and return its shape and value range. The diagram is cached for subsequent calls.",
			InputSchema: schema(map[string]interface{}{"path": pathProp}, "path"),
		},
		{
			Name:        "diagram_calibrate",
			Description: "Estimate the noise baseline of a diagram from its transition-free calibration window and return the window location and noise RMS.",
			InputSchema: schema(detectorProps(nil), "path"),
		},

		// Transition detection
		{
			Name:        "diagram_scan",
			Description: "Run the adaptive transition detector on every row and return the transition columns per row with rising/falling counts.",
			InputSchema: schema(detectorProps(nil), "path"),
		},
		{
			Name:        "diagram_extract_lines",
			Description: "Scan a diagram and group transitions into straight line segments. Returns segment endpoints, length, angle and pixel count.",
			InputSchema: schema(detectorProps(map[string]interface{}{
				"min_length": prop("integer", "Shortest segment kept, in cells. Default from settings (5)"),
			}), "path"),
		},
		{
			Name:        "diagram_render",
			Description: "Render a diagram as base64 PNG: heatmap, transition mask, heatmap with transitions overlaid, or extracted lines. Row 0 is drawn at the bottom.",
			InputSchema: schema(detectorProps(map[string]interface{}{
				"kind": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"heatmap", "mask", "overlay", "lines"},
					"description": "What to render. Default overlay",
					"default":     "overlay",
				},
				"scale": prop("integer", "Pixels per diagram cell. Default from settings (4)"),
			}), "path"),
		},

		// Single traces
		{
			Name:        "trace_detect",
			Description: "Detect transitions in one trace (a diagram row or inline x/y data). Optionally returns per-sample diagnostics: working value, filtered value, residual, threshold and trend reference.",
			InputSchema: schema(traceProps(map[string]interface{}{
				"diagnostics": prop("boolean", "Include per-sample diagnostics. Default false"),
			})),
		},
		{
			Name:        "trace_plot",
			Description: "Plot one trace with its confirmed transitions marked (rising green, falling red) as base64 PNG.",
			InputSchema: schema(traceProps(map[string]interface{}{
				"width":  prop("integer", "Plot width in pixels. Default 1024"),
				"height": prop("integer", "Plot height in pixels. Default 400"),
			})),
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
