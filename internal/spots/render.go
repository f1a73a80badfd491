package spots

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/imgio"
)

// OutlineColor is the default color used by Overlay.
var OutlineColor = color.RGBA{255, 0, 255, 255}

// MaskPNG encodes the threshold mask as a base64 PNG for transport in JSON.
func (r *Result) MaskPNG() (string, error) {
	return EncodePNG(r.Mask)
}

// EncodePNG encodes img as a base64 PNG.
func EncodePNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := imgio.PNGEncoder()(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode png: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Overlay returns a copy of img with each region's outline drawn in c.
// Outline points are joined with straight segments and the loop is closed.
// img must share the coordinate frame of the analysis image (same size,
// origin-anchored), which holds for Preprocessed.Original.
func Overlay(img image.Image, regions []Region, c color.Color) *image.RGBA {
	out := clone.AsRGBA(img)
	for _, r := range regions {
		pts := r.Outline
		for i := range pts {
			drawLine(out, pts[i], pts[(i+1)%len(pts)], c)
		}
	}
	return out
}

// drawLine plots a Bresenham segment from a to b inclusive.
func drawLine(img *image.RGBA, a, b image.Point, c color.Color) {
	dx, dy := abs(b.X-a.X), -abs(b.Y-a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}
	e := dx + dy

	p := a
	for {
		img.Set(p.X, p.Y, c)
		if p == b {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			p.X += sx
		}
		if e2 <= dx {
			e += dx
			p.Y += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
