package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/csd-transitions/internal/detection"
	"github.com/ironsheep/csd-transitions/internal/detector"
	"github.com/ironsheep/csd-transitions/internal/imaging"
	"github.com/ironsheep/csd-transitions/internal/scanner"
	"github.com/ironsheep/csd-transitions/internal/trace"
)

// errNoTrace is returned by trace tools called without a path or inline data.
var errNoTrace = errors.New("either path or inline y values are required")

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "diagram_load", "diagram_scan").
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
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.log.WithFields(logrus.Fields{"tool": params.Name}).WithError(err).Warn("tool failed")
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
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Diagram information
	case "diagram_load":
		return s.handleDiagramLoad(args)
	case "diagram_calibrate":
		return s.handleDiagramCalibrate(args)

	// Transition detection
	case "diagram_scan":
		return s.handleDiagramScan(ctx, args)
	case "diagram_extract_lines":
		return s.handleDiagramExtractLines(ctx, args)
	case "diagram_render":
		return s.handleDiagramRender(ctx, args)

	// Single traces
	case "trace_detect":
		return s.handleTraceDetect(args)
	case "trace_plot":
		return s.handleTracePlot(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func unmarshalArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// detectorArgs are the per-call overrides of the detector settings.
type detectorArgs struct {
	Path             string   `json:"path"`
	Sigma            *float64 `json:"sigma"`
	Transconductance *bool    `json:"transconductance"`
}

// detectorConfig applies the overrides to the server settings.
func (s *Server) detectorConfig(a detectorArgs) (detector.Config, error) {
	cfg := s.cfg
	if a.Sigma != nil {
		cfg.Detector.Sigma = *a.Sigma
	}
	if a.Transconductance != nil {
		cfg.Detector.Transconductance = *a.Transconductance
	}
	if err := cfg.Validate(); err != nil {
		return detector.Config{}, err
	}
	return cfg.Detector, nil
}

func (s *Server) load(path string) (*trace.Diagram, error) {
	if path == "" {
		return nil, errors.New("path is required")
	}
	return s.cache.Load(path)
}

func (s *Server) scan(ctx context.Context, a detectorArgs) (*trace.Diagram, *scanner.Mask, error) {
	cfg, err := s.detectorConfig(a)
	if err != nil {
		return nil, nil, err
	}
	d, err := s.load(a.Path)
	if err != nil {
		return nil, nil, err
	}
	sc := scanner.New(cfg,
		scanner.WithWorkers(s.cfg.Workers),
		scanner.WithLogger(s.log),
		scanner.WithMetrics(s.metrics),
	)
	mask, err := sc.Scan(ctx, d)
	if err != nil {
		return nil, nil, err
	}
	return d, mask, nil
}

// === Diagram Information Handlers ===

// DiagramInfo describes a loaded diagram.
type DiagramInfo struct {
	Name     string  `json:"name"`
	Rows     int     `json:"rows"`
	Cols     int     `json:"cols"`
	XMin     float64 `json:"x_min"`
	XMax     float64 `json:"x_max"`
	ValueMin float64 `json:"value_min"`
	ValueMax float64 `json:"value_max"`
}

func (s *Server) handleDiagramLoad(args json.RawMessage) (interface{}, error) {
	var a detectorArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	d, err := s.load(a.Path)
	if err != nil {
		return nil, err
	}

	info := &DiagramInfo{Name: d.Name, Rows: d.Rows(), Cols: d.Cols()}
	if d.Cols() > 0 {
		info.XMin, info.XMax = d.X[0], d.X[d.Cols()-1]
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, row := range d.Values {
		for _, v := range row {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if d.Rows() > 0 && d.Cols() > 0 {
		info.ValueMin, info.ValueMax = lo, hi
	}
	return info, nil
}

// CalibrationInfo summarises a noise calibration.
type CalibrationInfo struct {
	Row              int     `json:"row"`
	Columns          int     `json:"columns"`
	Residuals        int     `json:"residuals"`
	NoiseRMS         float64 `json:"noise_rms"`
	Transconductance bool    `json:"transconductance"`
}

func (s *Server) handleDiagramCalibrate(args json.RawMessage) (interface{}, error) {
	var a detectorArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	cfg, err := s.detectorConfig(a)
	if err != nil {
		return nil, err
	}
	d, err := s.load(a.Path)
	if err != nil {
		return nil, err
	}
	cal, err := detector.CalibrateDiagram(d, cfg)
	if err != nil {
		return nil, err
	}
	return &CalibrationInfo{
		Row:              cal.Row,
		Columns:          cal.Columns,
		Residuals:        len(cal.Residuals),
		NoiseRMS:         cal.RMS(),
		Transconductance: cal.Transconductance,
	}, nil
}

// === Transition Detection Handlers ===

// ScanResult summarises a diagram scan.
type ScanResult struct {
	Name    string `json:"name"`
	Rows    int    `json:"rows"`
	Cols    int    `json:"cols"`
	Rising  int    `json:"rising"`
	Falling int    `json:"falling"`

	// Columns[r] lists the transition columns of row r.
	Columns [][]int `json:"columns"`
}

func (s *Server) handleDiagramScan(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a detectorArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	d, mask, err := s.scan(ctx, a)
	if err != nil {
		return nil, err
	}

	res := &ScanResult{
		Name:    d.Name,
		Rows:    mask.Rows,
		Cols:    mask.Cols,
		Rising:  mask.Rising,
		Falling: mask.Falling,
		Columns: make([][]int, mask.Rows),
	}
	for r, row := range mask.Bits {
		res.Columns[r] = make([]int, 0)
		for c, ok := range row {
			if ok {
				res.Columns[r] = append(res.Columns[r], c)
			}
		}
	}
	return res, nil
}

type extractLinesArgs struct {
	detectorArgs
	MinLength int `json:"min_length"`
}

func (s *Server) extractorFor(minLength int) detection.Extractor {
	if minLength > 0 {
		return detection.NewHough(minLength)
	}
	return s.extractor
}

func (s *Server) handleDiagramExtractLines(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a extractLinesArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	_, mask, err := s.scan(ctx, a.detectorArgs)
	if err != nil {
		return nil, err
	}
	return s.extractorFor(a.MinLength).Extract(mask.Bits)
}

type renderArgs struct {
	detectorArgs
	Kind  string `json:"kind"`
	Scale int    `json:"scale"`
}

func (s *Server) handleDiagramRender(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a renderArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Scale <= 0 {
		a.Scale = s.cfg.PixelScale
	}
	if a.Kind == "" {
		a.Kind = "overlay"
	}

	var img image.Image
	switch a.Kind {
	case "heatmap":
		d, err := s.load(a.Path)
		if err != nil {
			return nil, err
		}
		if img, err = imaging.Heatmap(d, a.Scale); err != nil {
			return nil, err
		}
	case "mask", "overlay", "lines":
		d, mask, err := s.scan(ctx, a.detectorArgs)
		if err != nil {
			return nil, err
		}
		switch a.Kind {
		case "mask":
			img, err = imaging.MaskImage(mask.Bits, a.Scale, 0)
		case "overlay":
			img, err = imaging.Overlay(d, mask.Bits, a.Scale, "")
		default:
			var lines *detection.LinesResult
			if lines, err = s.extractor.Extract(mask.Bits); err == nil {
				img, err = imaging.LinesImage(lines.Labels, a.Scale)
			}
		}
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown render kind: %s", a.Kind)
	}
	return imaging.Encode(img)
}

// === Single Trace Handlers ===

type traceArgs struct {
	detectorArgs
	Row         int       `json:"row"`
	X           []float64 `json:"x"`
	Y           []float64 `json:"y"`
	Diagnostics bool      `json:"diagnostics"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
}

// TransitionPoint is one confirmed transition of a trace.
type TransitionPoint struct {
	Index     int                `json:"index"`
	X         float64            `json:"x"`
	Y         float64            `json:"y"`
	Direction detector.Direction `json:"direction"`
}

// TraceResult is the detection outcome of one trace.
type TraceResult struct {
	Name        string            `json:"name"`
	Length      int               `json:"length"`
	NoiseRMS    float64           `json:"noise_rms"`
	Rising      int               `json:"rising"`
	Falling     int               `json:"falling"`
	Transitions []TransitionPoint `json:"transitions"`
	Steps       []detector.Step   `json:"steps,omitempty"`
}

type resolvedTrace struct {
	name  string
	trace trace.Trace
	cfg   detector.Config
	cal   *detector.Calibration
}

// resolveTrace picks the trace a trace tool works on. Diagram rows are
// calibrated on the diagram, inline traces on their own leading samples.
func (s *Server) resolveTrace(a traceArgs) (*resolvedTrace, error) {
	cfg, err := s.detectorConfig(a.detectorArgs)
	if err != nil {
		return nil, err
	}
	rt := &resolvedTrace{cfg: cfg}

	if a.Path != "" {
		d, err := s.load(a.Path)
		if err != nil {
			return nil, err
		}
		if a.Row < 0 || a.Row >= d.Rows() {
			return nil, fmt.Errorf("row %d outside diagram of %d rows", a.Row, d.Rows())
		}
		if rt.cal, err = detector.CalibrateDiagram(d, cfg); err != nil {
			return nil, err
		}
		rt.name = fmt.Sprintf("%s row %d", d.Name, a.Row)
		rt.trace = d.Row(a.Row)
		return rt, nil
	}

	if len(a.Y) == 0 {
		return nil, errNoTrace
	}
	x := a.X
	if x == nil {
		x = make([]float64, len(a.Y))
		for i := range x {
			x[i] = float64(i)
		}
	}
	rt.name = "inline"
	rt.trace = trace.Trace{X: x, Y: a.Y}
	if rt.trace.Len() >= detector.LeadIn {
		if rt.cal, err = detector.CalibrateTrace(rt.trace, cfg); err != nil {
			return nil, err
		}
	}
	return rt, nil
}

func (rt *resolvedTrace) detect() (*detector.Result, error) {
	return detector.Detect(rt.trace, rt.cfg, rt.cal)
}

func (s *Server) handleTraceDetect(args json.RawMessage) (interface{}, error) {
	var a traceArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	rt, err := s.resolveTrace(a)
	if err != nil {
		return nil, err
	}
	res, err := rt.detect()
	if err != nil {
		return nil, err
	}

	out := &TraceResult{
		Name:        rt.name,
		Length:      rt.trace.Len(),
		Rising:      res.Rising,
		Falling:     res.Falling,
		Transitions: make([]TransitionPoint, 0, res.Count()),
	}
	if rt.cal != nil {
		out.NoiseRMS = rt.cal.RMS()
	}
	for _, i := range res.Indices() {
		out.Transitions = append(out.Transitions, TransitionPoint{
			Index:     i,
			X:         rt.trace.X[i],
			Y:         rt.trace.Y[i],
			Direction: res.Directions[i],
		})
	}
	if a.Diagnostics && rt.cal != nil {
		if out.Steps, err = detector.Steps(rt.trace, rt.cfg, rt.cal); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Server) handleTracePlot(args json.RawMessage) (interface{}, error) {
	var a traceArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	rt, err := s.resolveTrace(a)
	if err != nil {
		return nil, err
	}
	res, err := rt.detect()
	if err != nil {
		return nil, err
	}
	return imaging.PlotTraceResult(rt.trace, res, imaging.PlotOptions{
		Title:  rt.name,
		Width:  a.Width,
		Height: a.Height,
	})
}
