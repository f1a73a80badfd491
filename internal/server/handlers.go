package server

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/ironsheep/leafscan/internal/classifier"
	"github.com/ironsheep/leafscan/internal/imaging"
	"github.com/ironsheep/leafscan/internal/spots"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "leaf_predict").
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
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	switch name {
	// Pipeline stages
	case "leaf_preprocess":
		return s.handleLeafPreprocess(args)
	case "leaf_detect_spots":
		return s.handleLeafDetectSpots(args)
	case "leaf_color_descriptor":
		return s.handleLeafColorDescriptor(args)

	// Classification
	case "leaf_predict":
		return s.handleLeafPredict(args)
	case "leaf_load_model":
		return s.handleLeafLoadModel(args)
	case "leaf_train":
		return s.handleLeafTrain(args)

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

// optionalFloat maps NaN to nil so the value can be encoded as JSON.
func optionalFloat(f float64) *float64 {
	if math.IsNaN(f) {
		return nil
	}
	return &f
}

type pathArgs struct {
	Path string `json:"path"`
}

func decodePath(args json.RawMessage) (string, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return "", err
	}
	if a.Path == "" {
		return "", fmt.Errorf("path is required")
	}
	return a.Path, nil
}

// === Pipeline Stage Handlers ===

// PreprocessResult describes the outputs of preprocessing.
type PreprocessResult struct {
	Path       string       `json:"path"`
	Source     imaging.Size `json:"source"`
	Original   imaging.Size `json:"original"`
	Analysis   imaging.Size `json:"analysis"`
	BlurKernel int          `json:"blur_kernel"`
	ColorSpace string       `json:"color_space"`
}

func (s *Server) handleLeafPreprocess(args json.RawMessage) (interface{}, error) {
	path, err := decodePath(args)
	if err != nil {
		return nil, err
	}
	src, err := s.cache.Load(path)
	if err != nil {
		return nil, err
	}
	pre, err := s.analyzer.Preprocess(path)
	if err != nil {
		return nil, err
	}

	ob, ab := pre.Original.Bounds(), pre.Analysis.Bounds()
	return &PreprocessResult{
		Path:       path,
		Source:     imaging.Size{Width: src.Bounds().Dx(), Height: src.Bounds().Dy()},
		Original:   imaging.Size{Width: ob.Dx(), Height: ob.Dy()},
		Analysis:   imaging.Size{Width: ab.Dx(), Height: ab.Dy()},
		BlurKernel: s.analyzer.Config().Preprocess.BlurKernel,
		ColorSpace: "HSV (H 0-179, S 0-255, V 0-255)",
	}, nil
}

type detectSpotsArgs struct {
	Path           string `json:"path"`
	IncludeMask    bool   `json:"include_mask"`
	IncludeOverlay bool   `json:"include_overlay"`
}

// DetectSpotsResult lists the lesion regions found on one leaf.
type DetectSpotsResult struct {
	Path       string         `json:"path"`
	Count      int            `json:"count"`
	Regions    []spots.Region `json:"regions"`
	MaskPixels int            `json:"mask_pixels"`
	MaskPNG    string         `json:"mask_png,omitempty"`
	OverlayPNG string         `json:"overlay_png,omitempty"`
}

func (s *Server) handleLeafDetectSpots(args json.RawMessage) (interface{}, error) {
	var a detectSpotsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("path is required")
	}

	pre, res, err := s.analyzer.DetectSpots(a.Path)
	if err != nil {
		return nil, err
	}

	out := &DetectSpotsResult{
		Path:    a.Path,
		Count:   res.Count(),
		Regions: res.Regions,
	}
	for _, v := range res.Mask.Pix {
		if v != 0 {
			out.MaskPixels++
		}
	}
	if a.IncludeMask {
		if out.MaskPNG, err = res.MaskPNG(); err != nil {
			return nil, err
		}
	}
	if a.IncludeOverlay {
		overlay := spots.Overlay(pre.Original, res.Regions, spots.OutlineColor)
		if out.OverlayPNG, err = spots.EncodePNG(overlay); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// DescriptorResult is the color descriptor split into its three histograms.
type DescriptorResult struct {
	Path       string    `json:"path"`
	Length     int       `json:"length"`
	Hue        []float64 `json:"hue"`
	Saturation []float64 `json:"saturation"`
	Value      []float64 `json:"value"`
}

func (s *Server) handleLeafColorDescriptor(args json.RawMessage) (interface{}, error) {
	path, err := decodePath(args)
	if err != nil {
		return nil, err
	}
	d, err := s.analyzer.Descriptor(path)
	if err != nil {
		return nil, err
	}
	return &DescriptorResult{
		Path:       path,
		Length:     len(d),
		Hue:        d.Hue(),
		Saturation: d.Saturation(),
		Value:      d.Value(),
	}, nil
}

// === Classification Handlers ===

type predictArgs struct {
	Path         string `json:"path"`
	IncludeSpots bool   `json:"include_spots"`
}

// PredictResult is the screening verdict for one leaf.
type PredictResult struct {
	Path        string         `json:"path"`
	Prediction  string         `json:"prediction"`
	Diseased    bool           `json:"diseased"`
	Probability float64        `json:"probability"`
	Confidence  float64        `json:"confidence"`
	SpotCount   int            `json:"spot_count"`
	Spots       []spots.Region `json:"spots,omitempty"`
}

func (s *Server) handleLeafPredict(args json.RawMessage) (interface{}, error) {
	var a predictArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("path is required")
	}

	r, err := s.analyzer.Analyze(a.Path)
	if err != nil {
		return nil, err
	}
	out := &PredictResult{
		Path:        r.Path,
		Prediction:  r.Prediction,
		Diseased:    r.Diseased,
		Probability: r.Probability,
		Confidence:  r.Confidence(),
		SpotCount:   r.SpotCount,
	}
	if a.IncludeSpots {
		out.Spots = r.Spots
	}
	return out, nil
}

// ModelInfo describes the model installed in the server.
type ModelInfo struct {
	Path      string    `json:"path"`
	Trees     int       `json:"trees,omitempty"`
	TrainedAt time.Time `json:"trained_at"`
	TrainSize int       `json:"train_size"`
	TestSize  int       `json:"test_size"`
	Accuracy  *float64  `json:"accuracy,omitempty"`
	Skipped   *int      `json:"skipped,omitempty"`
}

func (s *Server) modelTrees() int {
	if f, ok := s.analyzer.Model().(*classifier.Forest); ok {
		return f.Trees()
	}
	return 0
}

func (s *Server) handleLeafLoadModel(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		a.Path = s.analyzer.Config().Model.Path
	}

	meta, err := s.analyzer.LoadModel(a.Path)
	if err != nil {
		return nil, err
	}
	return &ModelInfo{
		Path:      a.Path,
		Trees:     s.modelTrees(),
		TrainedAt: meta.TrainedAt,
		TrainSize: meta.TrainSize,
		TestSize:  meta.TestSize,
		Accuracy:  optionalFloat(meta.Accuracy),
	}, nil
}

type trainArgs struct {
	Dataset   string `json:"dataset"`
	ModelPath string `json:"model_path"`
}

func (s *Server) handleLeafTrain(args json.RawMessage) (interface{}, error) {
	var a trainArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Dataset == "" {
		return nil, fmt.Errorf("dataset is required")
	}
	if a.ModelPath == "" {
		a.ModelPath = s.analyzer.Config().Model.Path
	}

	res, err := s.analyzer.Train(context.Background(), a.Dataset, a.ModelPath)
	if err != nil {
		return nil, err
	}
	skipped := res.Skipped
	return &ModelInfo{
		Path:      a.ModelPath,
		Trees:     res.Model.Trees(),
		TrainedAt: res.Metadata.TrainedAt,
		TrainSize: res.TrainSize,
		TestSize:  res.TestSize,
		Accuracy:  optionalFloat(res.Accuracy),
		Skipped:   &skipped,
	}, nil
}
