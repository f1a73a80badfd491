package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the leaf image file",
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Pipeline stages
		{
			Name:        "leaf_preprocess",
			Description: "Load a leaf image and report its source size and the size of the resized original and smoothed HSV analysis images.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "leaf_detect_spots",
			Description: "Find brown and dark-yellow lesion regions on a leaf. Returns each region's area, mean HSV color, bounding box and outline, in discovery order. Coordinates are in the resized 256x256 frame.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"include_mask": map[string]interface{}{
						"type":        "boolean",
						"description": "Include the unfiltered lesion mask as base64 PNG. Default false",
						"default":     false,
					},
					"include_overlay": map[string]interface{}{
						"type":        "boolean",
						"description": "Include the resized leaf with region outlines drawn, as base64 PNG. Default false",
						"default":     false,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "leaf_color_descriptor",
			Description: "Compute the 170-value color descriptor of a leaf: normalized histograms of hue (50 bins), saturation (60) and value (60).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Classification
		{
			Name:        "leaf_predict",
			Description: "Classify a leaf as Healthy or Diseased with the loaded model. Also reports the number of detected lesion spots.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"include_spots": map[string]interface{}{
						"type":        "boolean",
						"description": "Include the detected regions in the result. Default false",
						"default":     false,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "leaf_load_model",
			Description: "Load a trained model artifact, replacing the current model.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Path to the model artifact. Defaults to the configured model path",
					},
				},
			},
		},
		{
			Name:        "leaf_train",
			Description: "Train a new model from a dataset directory containing healthy/ and diseased/ subdirectories, save it and make it the current model.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"dataset": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the dataset root",
					},
					"model_path": map[string]interface{}{
						"type":        "string",
						"description": "Where to write the model. Defaults to the configured model path",
					},
				},
				"required": []string{"dataset"},
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
