package spots

import (
	"errors"
	"fmt"
	"image"

	"github.com/ironsheep/leafscan/internal/imaging"
)

// DefaultMinArea is the noise threshold: regions with area <= this are dropped.
const DefaultMinArea = 100.0

// ColorRange is an inclusive box in 8-bit HSV. A pixel is a lesion candidate
// when Lower[i] <= channel i <= Upper[i] for all three channels.
type ColorRange struct {
	Lower [3]uint8 `json:"lower"`
	Upper [3]uint8 `json:"upper"`
}

// LesionRange captures brown and dark-yellow lesion coloration: low hue,
// mid-to-high saturation, low-to-mid value.
var LesionRange = ColorRange{
	Lower: [3]uint8{0, 40, 20},
	Upper: [3]uint8{30, 255, 200},
}

// Contains reports whether the HSV triple lies inside the range.
func (r ColorRange) Contains(h, s, v uint8) bool {
	return h >= r.Lower[0] && h <= r.Upper[0] &&
		s >= r.Lower[1] && s <= r.Upper[1] &&
		v >= r.Lower[2] && v <= r.Upper[2]
}

// Params configures a Detector.
type Params struct {
	Range   ColorRange
	MinArea float64
}

// DefaultParams returns the lesion range with a 100-unit noise threshold.
func DefaultParams() Params {
	return Params{Range: LesionRange, MinArea: DefaultMinArea}
}

// HSVMean is the mean analysis-space color of a region.
type HSVMean struct {
	H float64 `json:"h"`
	S float64 `json:"s"`
	V float64 `json:"v"`
}

// Region is one connected lesion candidate.
type Region struct {
	// Area is the polygon area enclosed by Outline, always > the noise threshold.
	Area float64 `json:"area"`

	// Mean is the average HSV color over the pixels enclosed by Outline.
	Mean HSVMean `json:"mean_color"`

	// Outline traces the outer border; straight runs are reduced to their
	// end points.
	Outline []image.Point `json:"outline"`

	// Bounds is the bounding box of Outline (Max exclusive).
	Bounds image.Rectangle `json:"bounds"`

	// PixelCount is the number of pixels enclosed by Outline.
	PixelCount int `json:"pixel_count"`
}

// Result is the output of one detection call.
type Result struct {
	// Regions in discovery order.
	Regions []Region

	// Mask is the unfiltered threshold mask (255 = candidate lesion pixel),
	// including components later dropped by the area filter.
	Mask *image.Gray
}

// Count returns the number of retained regions.
func (r *Result) Count() int {
	return len(r.Regions)
}

// ErrNilImage is returned when detection is asked to run on no image.
var ErrNilImage = errors.New("spots: nil analysis image")

// Detector finds lesion regions with fixed parameters. It holds no state
// between calls and is safe for concurrent use.
type Detector struct {
	params Params
}

// NewDetector returns a detector using p.
func NewDetector(p Params) *Detector {
	return &Detector{params: p}
}

// Params returns the detector's configuration.
func (d *Detector) Params() Params {
	return d.params
}

// Detect runs detection with DefaultParams.
func Detect(hsv *imaging.HSV) (*Result, error) {
	return NewDetector(DefaultParams()).Detect(hsv)
}

// Detect thresholds hsv, traces the outer contour of every candidate
// component and returns those whose area exceeds the noise threshold.
//
// An image without lesion-colored pixels yields an empty Regions slice and an
// all-zero mask. The only error is a nil or empty input image.
func (d *Detector) Detect(hsv *imaging.HSV) (*Result, error) {
	if hsv == nil || hsv.Bounds().Empty() {
		return nil, ErrNilImage
	}

	mask := Threshold(hsv, d.params.Range)
	regions, err := findRegions(hsv, mask, d.params.MinArea)
	if err != nil {
		return nil, fmt.Errorf("spots: contour analysis failed: %w", err)
	}

	return &Result{Regions: regions, Mask: mask}, nil
}

// Threshold marks every pixel of hsv inside r with 255 and every other pixel
// with 0. The mask is anchored at the origin.
func Threshold(hsv *imaging.HSV, r ColorRange) *image.Gray {
	b := hsv.Bounds()
	mask := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))

	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			h, s, v := hsv.HSVAt(b.Min.X+x, b.Min.Y+y)
			if r.Contains(h, s, v) {
				mask.Pix[y*mask.Stride+x] = 255
			}
		}
	}
	return mask
}
