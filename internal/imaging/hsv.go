package imaging

import (
	"image"
	"image/color"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Channel ranges of the 8-bit analysis space.
const (
	HueRange        = 180 // hue occupies [0,180), two degrees per step
	SaturationRange = 256
	ValueRange      = 256
)

// HSV is an 8-bit image in analysis color space.
//
// Pixels are stored interleaved as H, S, V triples. Hue is in [0,180) (half
// degrees), saturation and value are in [0,255]. HSV implements image.Image by
// exposing the channels as an opaque NRGBA color with R=H, G=S and B=V, which
// lets generic image filters operate on it channel-wise.
type HSV struct {
	Pix    []uint8
	Stride int
	Rect   image.Rectangle
}

// NewHSV allocates an all-zero HSV image with the given bounds.
func NewHSV(r image.Rectangle) *HSV {
	return &HSV{
		Pix:    make([]uint8, 3*r.Dx()*r.Dy()),
		Stride: 3 * r.Dx(),
		Rect:   r,
	}
}

// ColorModel implements image.Image.
func (p *HSV) ColorModel() color.Model { return color.NRGBAModel }

// Bounds implements image.Image.
func (p *HSV) Bounds() image.Rectangle { return p.Rect }

// At implements image.Image.
func (p *HSV) At(x, y int) color.Color {
	if !(image.Point{x, y}.In(p.Rect)) {
		return color.NRGBA{}
	}
	h, s, v := p.HSVAt(x, y)
	return color.NRGBA{R: h, G: s, B: v, A: 255}
}

// PixOffset returns the index of the first element of Pix for pixel (x, y).
func (p *HSV) PixOffset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*3
}

// HSVAt returns the three channels at (x, y). The point must be in bounds.
func (p *HSV) HSVAt(x, y int) (h, s, v uint8) {
	i := p.PixOffset(x, y)
	return p.Pix[i], p.Pix[i+1], p.Pix[i+2]
}

// SetHSV stores the three channels at (x, y). Out-of-bounds points are ignored.
func (p *HSV) SetHSV(x, y int, h, s, v uint8) {
	if !(image.Point{x, y}.In(p.Rect)) {
		return
	}
	i := p.PixOffset(x, y)
	p.Pix[i], p.Pix[i+1], p.Pix[i+2] = h, s, v
}

// ToHSV converts an ingestion-space image to analysis space.
//
// Conversion goes through go-colorful on the 8-bit RGB value of each pixel and
// is then quantized to the 8-bit convention:
//
//	H = round(hue° / 2) mod 180
//	S = round(saturation * 255)
//	V = round(value * 255)
//
// Alpha is ignored. The result is anchored at the origin.
func ToHSV(img image.Image) *HSV {
	b := img.Bounds()
	out := NewHSV(image.Rect(0, 0, b.Dx(), b.Dy()))

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl := rgb8(img.At(x, y))
			h, s, v := RGBToHSV(r, g, bl)
			out.SetHSV(x-b.Min.X, y-b.Min.Y, h, s, v)
		}
	}
	return out
}

// RGBToHSV converts one 8-bit RGB triple to 8-bit analysis space.
func RGBToHSV(r, g, b uint8) (h, s, v uint8) {
	c := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	hue, sat, val := c.Hsv()

	hq := int(math.Round(hue/2)) % HueRange
	return uint8(hq), quantize(sat), quantize(val)
}

// HSVToRGB converts an 8-bit analysis-space triple back to RGB. It is the
// inverse of RGBToHSV up to quantization and is used to build test fixtures
// and overlays from lesion-space colors.
func HSVToRGB(h, s, v uint8) color.NRGBA {
	c := colorful.Hsv(float64(h)*2, float64(s)/255, float64(v)/255)
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

// fromChannels rebuilds an HSV image from an image whose R, G and B channels
// carry H, S and V, e.g. the output of a generic filter applied to an HSV.
func fromChannels(img image.Image) *HSV {
	b := img.Bounds()
	out := NewHSV(image.Rect(0, 0, b.Dx(), b.Dy()))

	if rgba, ok := img.(*image.RGBA); ok {
		for y := 0; y < b.Dy(); y++ {
			src := rgba.Pix[y*rgba.Stride : y*rgba.Stride+4*b.Dx()]
			dst := out.Pix[y*out.Stride : y*out.Stride+3*b.Dx()]
			for x := 0; x < b.Dx(); x++ {
				dst[3*x], dst[3*x+1], dst[3*x+2] = src[4*x], src[4*x+1], src[4*x+2]
			}
		}
		return out
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			out.SetHSV(x-b.Min.X, y-b.Min.Y, c.R, c.G, c.B)
		}
	}
	return out
}

// rgb8 returns the 8-bit, non-premultiplied RGB components of c.
func rgb8(c color.Color) (r, g, b uint8) {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return n.R, n.G, n.B
}

func quantize(f float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, f)) * 255))
}
