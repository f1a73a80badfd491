//go:build gocv

package spots

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ironsheep/leafscan/internal/imaging"
)

// findRegions is the OpenCV backend: external contours with simple chain
// approximation, contour area, and a filled per-contour mask for the mean.
func findRegions(hsv *imaging.HSV, mask *image.Gray, minArea float64) ([]Region, error) {
	b := hsv.Bounds()
	w, h := b.Dx(), b.Dy()

	pix := make([]byte, 0, 3*w*h)
	for y := 0; y < h; y++ {
		off := hsv.PixOffset(b.Min.X, b.Min.Y+y)
		pix = append(pix, hsv.Pix[off:off+3*w]...)
	}
	src, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC3, pix)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap analysis image: %w", err)
	}
	defer src.Close()

	bin, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC1, append([]byte(nil), mask.Pix...))
	if err != nil {
		return nil, fmt.Errorf("failed to wrap mask: %w", err)
	}
	defer bin.Close()

	contours := gocv.FindContours(bin, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	regions := make([]Region, 0)
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		area := gocv.ContourArea(contour)
		if area <= minArea {
			continue
		}

		single := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC1)
		single.SetTo(gocv.NewScalar(0, 0, 0, 0))
		gocv.DrawContours(&single, contours, i, color.RGBA{255, 255, 255, 255}, -1)

		mean := src.MeanWithMask(single)
		n := gocv.CountNonZero(single)
		single.Close()

		regions = append(regions, Region{
			Area:       area,
			Mean:       HSVMean{H: mean.Val1, S: mean.Val2, V: mean.Val3},
			Outline:    contour.ToPoints(),
			Bounds:     gocv.BoundingRect(contour),
			PixelCount: n,
		})
	}
	return regions, nil
}
