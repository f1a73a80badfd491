// Package features summarizes a whole leaf as a normalized color histogram.
//
// The descriptor is built from three independent one-dimensional histograms
// over the analysis-space channels of every pixel in the frame:
//
//	hue         50 bins over [0,180)
//	saturation  60 bins over [0,256)
//	value       60 bins over [0,256)
//
// The histograms are concatenated in that order into a 170-element vector
// and divided by the total count, so the entries sum to 1. No spatial
// weighting or masking is applied; detected lesions play no part here.
package features
