package features

import (
	"errors"
	"fmt"
	"image"

	"gonum.org/v1/gonum/floats"

	"github.com/ironsheep/leafscan/internal/imaging"
)

// Histogram layout.
const (
	HueBins        = 50
	SaturationBins = 60
	ValueBins      = 60

	// DescriptorLen is the fixed length of every Descriptor.
	DescriptorLen = HueBins + SaturationBins + ValueBins

	saturationOffset = HueBins
	valueOffset      = HueBins + SaturationBins
)

// ErrDegenerateImage is returned when an image has no pixels to normalize.
var ErrDegenerateImage = errors.New("features: image has no pixels")

// ErrDescriptorLength is returned when a raw vector is not DescriptorLen long.
var ErrDescriptorLength = errors.New("features: descriptor length mismatch")

// Descriptor is a normalized color histogram: hue bins, then saturation
// bins, then value bins. Entries are non-negative and sum to 1.
type Descriptor [DescriptorLen]float64

// Hue returns the hue section of the descriptor.
func (d *Descriptor) Hue() []float64 { return d[:saturationOffset] }

// Saturation returns the saturation section of the descriptor.
func (d *Descriptor) Saturation() []float64 { return d[saturationOffset:valueOffset] }

// Value returns the value section of the descriptor.
func (d *Descriptor) Value() []float64 { return d[valueOffset:] }

// Sum returns the sum of all entries, 1 for any valid descriptor.
func (d *Descriptor) Sum() float64 { return floats.Sum(d[:]) }

// FromSlice copies v into a Descriptor after checking its length.
func FromSlice(v []float64) (Descriptor, error) {
	var d Descriptor
	if len(v) != DescriptorLen {
		return d, fmt.Errorf("%w: got %d values, want %d", ErrDescriptorLength, len(v), DescriptorLen)
	}
	copy(d[:], v)
	return d, nil
}

// ExtractColorDescriptor computes the descriptor of an ingestion-space image.
//
// The image is always converted from RGB here, even when the caller already
// holds an HSV version: the smoothed analysis image used for spot detection
// must not leak into the whole-leaf color summary.
//
// Returns ErrDegenerateImage if img is nil or has zero pixels.
func ExtractColorDescriptor(img image.Image) (Descriptor, error) {
	if img == nil || img.Bounds().Empty() {
		return Descriptor{}, ErrDegenerateImage
	}
	return FromHSV(imaging.ToHSV(img))
}

// FromHSV computes the descriptor directly from an analysis-space image.
func FromHSV(hsv *imaging.HSV) (Descriptor, error) {
	var d Descriptor
	if hsv == nil || hsv.Bounds().Empty() {
		return d, ErrDegenerateImage
	}

	accumulate(hsv, &d)

	total := floats.Sum(d[:])
	if total == 0 {
		return Descriptor{}, ErrDegenerateImage
	}
	floats.Scale(1/total, d[:])
	return d, nil
}

// Counts returns the raw, unnormalized histogram of an analysis-space image.
func Counts(hsv *imaging.HSV) Descriptor {
	var d Descriptor
	if hsv != nil {
		accumulate(hsv, &d)
	}
	return d
}

// accumulate adds one count per channel per pixel into d.
func accumulate(hsv *imaging.HSV, d *Descriptor) {
	b := hsv.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			h, s, v := hsv.HSVAt(x, y)
			d[bin(int(h), imaging.HueRange, HueBins)]++
			d[saturationOffset+bin(int(s), imaging.SaturationRange, SaturationBins)]++
			d[valueOffset+bin(int(v), imaging.ValueRange, ValueBins)]++
		}
	}
}

// bin maps v in [0,limit) to one of n uniform bins.
func bin(v, limit, n int) int {
	i := v * n / limit
	if i >= n {
		i = n - 1
	}
	return i
}
