// Package imaging loads leaf photographs and prepares them for analysis.
//
// Two color representations flow through the system:
//
//   - Ingestion space: the 8-bit RGB image as decoded from storage. The
//     preprocessor hands this to the color feature extractor after resizing.
//   - Analysis space: 8-bit HSV using the OpenCV convention, hue in [0,180)
//     and saturation and value in [0,255]. Lesion tissue separates from
//     healthy tissue more cleanly here than in RGB.
//
// # Preprocessing
//
// Preprocess performs the fixed sequence decode, resize, convert, denoise:
//
//  1. Decode the file (PNG, JPEG, GIF, BMP, TIFF, WebP)
//  2. Resize to the exact target size with bilinear interpolation
//  3. Convert the resized image to HSV
//  4. Smooth the HSV channels with a small Gaussian kernel (5x5 by default)
//
// The resized RGB image and the smoothed HSV image are both returned. Images
// produced here are never modified afterwards; every transformation allocates
// a new image.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with (0,0) at the top-left corner. Images
// produced by this package always have their bounds anchored at the origin.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. All other functions are
// stateless and may be called concurrently on different images.
//
// # Error Handling
//
// Any failure to open or decode an input wraps ErrImageLoad so callers can
// skip a single bad file with errors.Is and continue a batch.
package imaging
