// Package spots segments candidate disease lesions on a preprocessed leaf.
//
// Detection runs on the denoised analysis-space (HSV) image produced by the
// imaging package and follows a fixed pipeline:
//
//  1. Thresholding: every pixel whose H, S and V values fall inside an
//     inclusive box (brown and dark-yellow coloration by default) is marked
//     in a binary mask.
//  2. Contour finding: the outer border of each 8-connected component of the
//     mask is traced. Components lying inside another component's outline
//     are not reported separately, and holes are not traced.
//  3. Filtering: regions whose outline area is not strictly greater than the
//     noise threshold (100 by default) are discarded.
//  4. Color sampling: the mean HSV color of each retained region is taken
//     over exactly the pixels enclosed by its outline.
//
// # Ordering
//
// Regions are returned in discovery order, which is the raster order (top to
// bottom, left to right) of each component's first pixel. They are not sorted
// by size or significance.
//
// # Mask
//
// The returned mask is the raw threshold output. It still contains the small
// components discarded by the area filter and is intended for visualization
// and debugging, not as a per-region mask.
//
// # Area
//
// Area is the polygon area of the traced outline through pixel centers, so a
// filled w x h block has area (w-1)(h-1) and a one-pixel-wide line has area 0.
//
// # Backends
//
// The default build is pure Go. Building with the gocv tag replaces contour
// finding, area and masked means with their OpenCV equivalents through gocv;
// both backends honor the same contract.
package spots
