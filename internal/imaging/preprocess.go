package imaging

import (
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/disintegration/imaging"
)

// Default preprocessing parameters.
const (
	DefaultSize       = 256
	DefaultBlurKernel = 5
)

// Size is a target width and height in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DefaultTargetSize is the 256x256 frame every leaf is normalized to.
var DefaultTargetSize = Size{Width: DefaultSize, Height: DefaultSize}

// Options configures Preprocess. The zero value is not valid; start from
// DefaultOptions.
type Options struct {
	Size       Size
	BlurKernel int // side of the square smoothing kernel, odd and >= 1
}

// DefaultOptions returns a 256x256 target with a 5x5 smoothing kernel.
func DefaultOptions() Options {
	return Options{Size: DefaultTargetSize, BlurKernel: DefaultBlurKernel}
}

// Preprocessed holds the two outputs of the preprocessing stage.
type Preprocessed struct {
	// Original is the decoded image resized to the target size, still in
	// ingestion (RGB) space. The color feature extractor consumes this.
	Original *image.NRGBA

	// Analysis is Original converted to HSV and smoothed. The spot detector
	// consumes this.
	Analysis *HSV
}

// Preprocess loads the image at path and prepares it for analysis.
//
// Returns:
//   - *Preprocessed: resized RGB original and denoised HSV analysis image,
//     both exactly opts.Size.
//   - error: wraps ErrImageLoad if the file cannot be opened or decoded, or
//     describes invalid options.
func Preprocess(path string, opts Options) (*Preprocessed, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	img, err := Load(path)
	if err != nil {
		return nil, err
	}
	return PreprocessImage(img, opts)
}

// PreprocessImage runs the preprocessing stage on an already decoded image.
func PreprocessImage(img image.Image, opts Options) (*Preprocessed, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrImageLoad)
	}

	resized := Resize(img, opts.Size)
	analysis := Denoise(ToHSV(resized), opts.BlurKernel)

	return &Preprocessed{Original: resized, Analysis: analysis}, nil
}

// Resize scales img to exactly size using bilinear interpolation, ignoring the
// source aspect ratio. Both upscaling and downscaling are supported.
func Resize(img image.Image, size Size) *image.NRGBA {
	return imaging.Resize(img, size.Width, size.Height, imaging.Linear)
}

// Denoise smooths each HSV channel with a separable Gaussian of kernel x kernel
// taps. Hue is blurred linearly, without wrap-around at 180. A kernel of 1 or
// less returns a copy.
func Denoise(hsv *HSV, kernel int) *HSV {
	radius := float64(kernel-1) / 2
	if radius <= 0 {
		out := NewHSV(hsv.Rect)
		copy(out.Pix, hsv.Pix)
		return out
	}
	return fromChannels(blur.Gaussian(hsv, radius))
}

func (o Options) validate() error {
	if o.Size.Width <= 0 || o.Size.Height <= 0 {
		return fmt.Errorf("invalid target size %dx%d", o.Size.Width, o.Size.Height)
	}
	if o.BlurKernel < 1 || o.BlurKernel%2 == 0 {
		return fmt.Errorf("blur kernel must be a positive odd number, got %d", o.BlurKernel)
	}
	return nil
}
