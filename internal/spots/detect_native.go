//go:build !gocv

package spots

import (
	"image"

	"github.com/ironsheep/leafscan/internal/imaging"
)

// findRegions traces external contours in mask and measures each one that
// passes the area filter.
func findRegions(hsv *imaging.HSV, mask *image.Gray, minArea float64) ([]Region, error) {
	contours, fills := findExternalContours(newBinaryGrid(mask))

	regions := make([]Region, 0)
	for i, c := range contours {
		outline := compressOutline(c.outline)
		area := polygonArea(outline)
		if area <= minArea {
			continue
		}

		mean, n := maskedMean(hsv, fills[i])
		regions = append(regions, Region{
			Area:       area,
			Mean:       mean,
			Outline:    outline,
			Bounds:     c.bounds,
			PixelCount: n,
		})
	}
	return regions, nil
}

// maskedMean averages the HSV channels over pixels where fill is set.
// fill coordinates are relative to the origin of hsv.
func maskedMean(hsv *imaging.HSV, fill *image.Alpha) (HSVMean, int) {
	var sh, ss, sv float64
	var n int

	origin := hsv.Bounds().Min
	b := fill.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if fill.AlphaAt(x, y).A == 0 {
				continue
			}
			h, s, v := hsv.HSVAt(origin.X+x, origin.Y+y)
			sh += float64(h)
			ss += float64(s)
			sv += float64(v)
			n++
		}
	}

	if n == 0 {
		return HSVMean{}, 0
	}
	return HSVMean{H: sh / float64(n), S: ss / float64(n), V: sv / float64(n)}, n
}
