// Package server implements the MCP (Model Context Protocol) server for leaf
// screening tools.
//
// This package provides a JSON-RPC 2.0 server that exposes the leafscan
// pipeline through the MCP protocol, so an MCP client can screen leaf
// photographs, inspect detected lesions and retrain the classifier.
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
// # Available Tools
//
// Pipeline stages:
//   - leaf_preprocess: Source, original and analysis image dimensions
//   - leaf_detect_spots: Lesion regions, optionally with mask and overlay PNGs
//   - leaf_color_descriptor: The 170-bin HSV histogram descriptor
//
// Classification:
//   - leaf_predict: Healthy/Diseased label, probability and spot count
//   - leaf_load_model: Load a model artifact into the server
//   - leaf_train: Train from a dataset directory, save and load the result
//
// # Image Caching
//
// The server maintains an in-memory cache of decoded images, keyed by path
// and shared by every tool through the analyzer. The cache persists for the
// lifetime of the server process.
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
//	analyzer := pipeline.New(nil, cfg)
//	analyzer.LoadModel("")
//	srv := server.New(analyzer)
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
