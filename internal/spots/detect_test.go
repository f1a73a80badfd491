package spots

import (
	"errors"
	"image"
	"image/color"
	"math"
	"math/rand"
	"testing"

	"github.com/ironsheep/leafscan/internal/imaging"
)

// leafHSV is a healthy mid-green well outside the lesion range.
var leafHSV = [3]uint8{57, 164, 140}

// lesionHSV is a brown well inside the lesion range.
var lesionHSV = [3]uint8{15, 150, 120}

// createHSV returns a width x height analysis image filled with c.
func createHSV(width, height int, c [3]uint8) *imaging.HSV {
	img := imaging.NewHSV(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetHSV(x, y, c[0], c[1], c[2])
		}
	}
	return img
}

// fillRect paints r with c.
func fillRect(img *imaging.HSV, r image.Rectangle, c [3]uint8) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetHSV(x, y, c[0], c[1], c[2])
		}
	}
}

func countMask(mask *image.Gray) int {
	n := 0
	for _, v := range mask.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

func TestDetect_UniformLeaf(t *testing.T) {
	img := createHSV(256, 256, leafHSV)

	result, err := Detect(img)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if result.Count() != 0 {
		t.Errorf("expected no regions, got %d", result.Count())
	}
	if result.Regions == nil {
		t.Error("Regions should be empty, not nil")
	}
	if n := countMask(result.Mask); n != 0 {
		t.Errorf("expected all-zero mask, got %d set pixels", n)
	}
	if result.Mask.Bounds() != img.Bounds() {
		t.Errorf("mask bounds %v, want %v", result.Mask.Bounds(), img.Bounds())
	}
}

func TestDetect_SinglePatch(t *testing.T) {
	img := createHSV(256, 256, leafHSV)
	fillRect(img, image.Rect(100, 60, 120, 80), lesionHSV)

	result, err := Detect(img)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if result.Count() != 1 {
		t.Fatalf("expected 1 region, got %d", result.Count())
	}

	r := result.Regions[0]
	if r.Area != 361 {
		t.Errorf("Area = %g, want 361 (outline through pixel centers)", r.Area)
	}
	if r.PixelCount != 400 {
		t.Errorf("PixelCount = %d, want 400", r.PixelCount)
	}
	if r.Mean != (HSVMean{H: 15, S: 150, V: 120}) {
		t.Errorf("Mean = %+v, want patch color", r.Mean)
	}
	if r.Bounds != image.Rect(100, 60, 120, 80) {
		t.Errorf("Bounds = %v", r.Bounds)
	}

	wantOutline := []image.Point{{100, 60}, {100, 79}, {119, 79}, {119, 60}}
	if len(r.Outline) != len(wantOutline) {
		t.Fatalf("Outline = %v, want corners %v", r.Outline, wantOutline)
	}
	for i := range wantOutline {
		if r.Outline[i] != wantOutline[i] {
			t.Errorf("Outline[%d] = %v, want %v", i, r.Outline[i], wantOutline[i])
		}
	}

	if n := countMask(result.Mask); n != 400 {
		t.Errorf("mask has %d set pixels, want 400", n)
	}
}

func TestDetect_PreprocessedPatch(t *testing.T) {
	// Same scenario through the real preprocessing path: RGB in, blur applied
	rgb := image.NewNRGBA(image.Rect(0, 0, 256, 256))
	leaf := imaging.HSVToRGB(leafHSV[0], leafHSV[1], leafHSV[2])
	lesion := imaging.HSVToRGB(lesionHSV[0], lesionHSV[1], lesionHSV[2])
	for y := 0; y < 256; y++ {
		for x := 0; x < 256; x++ {
			c := leaf
			if x >= 118 && x < 138 && y >= 118 && y < 138 {
				c = lesion
			}
			rgb.SetNRGBA(x, y, c)
		}
	}

	pre, err := imaging.PreprocessImage(rgb, imaging.DefaultOptions())
	if err != nil {
		t.Fatalf("PreprocessImage failed: %v", err)
	}

	result, err := Detect(pre.Analysis)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if result.Count() != 1 {
		t.Fatalf("expected 1 region, got %d", result.Count())
	}

	r := result.Regions[0]
	if r.Area < 250 || r.Area > 420 {
		t.Errorf("Area = %g, want about 400 after smoothing", r.Area)
	}
	if math.Abs(r.Mean.H-float64(lesionHSV[0])) > 6 {
		t.Errorf("Mean.H = %.2f, want about %d", r.Mean.H, lesionHSV[0])
	}
	if math.Abs(r.Mean.S-float64(lesionHSV[1])) > 10 {
		t.Errorf("Mean.S = %.2f, want about %d", r.Mean.S, lesionHSV[1])
	}
	if math.Abs(r.Mean.V-float64(lesionHSV[2])) > 15 {
		t.Errorf("Mean.V = %.2f, want about %d", r.Mean.V, lesionHSV[2])
	}
}

func TestDetect_SmallComponentsStayInMask(t *testing.T) {
	img := createHSV(128, 128, leafHSV)
	fillRect(img, image.Rect(10, 10, 18, 18), lesionHSV) // area 49, dropped
	fillRect(img, image.Rect(60, 60, 80, 80), lesionHSV) // area 361, kept

	result, err := Detect(img)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if result.Count() != 1 {
		t.Fatalf("expected 1 region, got %d", result.Count())
	}
	if n := countMask(result.Mask); n != 64+400 {
		t.Errorf("mask has %d set pixels, want unfiltered 464", n)
	}
}

func TestDetect_AreaThresholdIsStrict(t *testing.T) {
	// An 11x11 block has outline area exactly 100
	img := createHSV(64, 64, leafHSV)
	fillRect(img, image.Rect(5, 5, 16, 16), lesionHSV)

	result, err := Detect(img)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if result.Count() != 0 {
		t.Errorf("area == threshold must be dropped, got %d regions", result.Count())
	}

	p := DefaultParams()
	p.MinArea = 99
	result, err = NewDetector(p).Detect(img)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if result.Count() != 1 || result.Regions[0].Area != 100 {
		t.Errorf("expected one region of area 100 with MinArea 99, got %+v", result.Regions)
	}
}

func TestDetect_DiscoveryOrder(t *testing.T) {
	img := createHSV(200, 200, leafHSV)
	fillRect(img, image.Rect(20, 120, 50, 150), lesionHSV)  // lower left, larger
	fillRect(img, image.Rect(150, 10, 170, 30), lesionHSV)  // upper right
	fillRect(img, image.Rect(100, 120, 115, 135), lesionHSV) // lower middle

	result, err := Detect(img)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if result.Count() != 3 {
		t.Fatalf("expected 3 regions, got %d", result.Count())
	}

	wantStarts := []image.Point{{150, 10}, {20, 120}, {100, 120}}
	for i, want := range wantStarts {
		if got := result.Regions[i].Bounds.Min; got != want {
			t.Errorf("region %d starts at %v, want %v", i, got, want)
		}
	}
}

func TestDetect_NestedComponentNotReported(t *testing.T) {
	img := createHSV(100, 100, leafHSV)
	// 40x40 ring, 4 pixels thick, with a separate lesion inside its hole
	fillRect(img, image.Rect(30, 30, 70, 70), lesionHSV)
	fillRect(img, image.Rect(34, 34, 66, 66), leafHSV)
	fillRect(img, image.Rect(45, 45, 55, 55), lesionHSV)

	result, err := Detect(img)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if result.Count() != 1 {
		t.Fatalf("expected only the outer region, got %d", result.Count())
	}

	r := result.Regions[0]
	if r.Area != 39*39 {
		t.Errorf("Area = %g, want %d", r.Area, 39*39)
	}
	// The mean covers everything inside the outline, holes included
	if r.PixelCount != 1600 {
		t.Errorf("PixelCount = %d, want 1600", r.PixelCount)
	}
	if r.Mean.H <= float64(lesionHSV[0]) || r.Mean.H >= float64(leafHSV[0]) {
		t.Errorf("Mean.H = %.2f should blend lesion and enclosed leaf", r.Mean.H)
	}
}

func TestDetect_DiagonalPixelsConnect(t *testing.T) {
	img := createHSV(64, 64, leafHSV)
	// Two 12x12 blocks touching only at a corner form one 8-connected region
	fillRect(img, image.Rect(10, 10, 22, 22), lesionHSV)
	fillRect(img, image.Rect(22, 22, 34, 34), lesionHSV)

	result, err := Detect(img)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if result.Count() != 1 {
		t.Fatalf("expected one region, got %d", result.Count())
	}
	if result.Regions[0].PixelCount != 288 {
		t.Errorf("PixelCount = %d, want 288", result.Regions[0].PixelCount)
	}
}

func TestDetect_RandomNoiseRespectsThreshold(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	img := imaging.NewHSV(image.Rect(0, 0, 128, 128))
	for y := 0; y < 128; y++ {
		for x := 0; x < 128; x++ {
			if rng.Intn(3) == 0 {
				img.SetHSV(x, y, lesionHSV[0], lesionHSV[1], lesionHSV[2])
			} else {
				img.SetHSV(x, y, leafHSV[0], leafHSV[1], leafHSV[2])
			}
		}
	}

	for _, minArea := range []float64{0, 10, 100, 500} {
		p := DefaultParams()
		p.MinArea = minArea
		result, err := NewDetector(p).Detect(img)
		if err != nil {
			t.Fatalf("Detect failed: %v", err)
		}
		for i, r := range result.Regions {
			if r.Area <= minArea {
				t.Errorf("minArea %g: region %d has area %g", minArea, i, r.Area)
			}
			if r.PixelCount <= 0 {
				t.Errorf("minArea %g: region %d encloses no pixels", minArea, i)
			}
		}
	}
}

func TestDetect_Idempotent(t *testing.T) {
	img := createHSV(64, 64, leafHSV)
	fillRect(img, image.Rect(10, 10, 40, 30), lesionHSV)

	a, err := Detect(img)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Detect(img)
	if err != nil {
		t.Fatal(err)
	}
	if a.Count() != b.Count() || a.Regions[0].Area != b.Regions[0].Area || a.Regions[0].Mean != b.Regions[0].Mean {
		t.Error("repeated detection on the same image differs")
	}
}

func TestDetect_NilImage(t *testing.T) {
	if _, err := Detect(nil); !errors.Is(err, ErrNilImage) {
		t.Errorf("expected ErrNilImage, got %v", err)
	}
	empty := imaging.NewHSV(image.Rect(0, 0, 0, 0))
	if _, err := Detect(empty); !errors.Is(err, ErrNilImage) {
		t.Errorf("expected ErrNilImage for empty image, got %v", err)
	}
}

func TestThreshold_Inclusive(t *testing.T) {
	r := ColorRange{Lower: [3]uint8{0, 40, 20}, Upper: [3]uint8{30, 255, 200}}

	tests := []struct {
		name    string
		h, s, v uint8
		want    bool
	}{
		{"lower corner", 0, 40, 20, true},
		{"upper corner", 30, 255, 200, true},
		{"hue above", 31, 100, 100, false},
		{"saturation below", 10, 39, 100, false},
		{"value below", 10, 100, 19, false},
		{"value above", 10, 100, 201, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := createHSV(1, 1, [3]uint8{tt.h, tt.s, tt.v})
			mask := Threshold(img, r)
			if got := mask.GrayAt(0, 0).Y == 255; got != tt.want {
				t.Errorf("Threshold(%d,%d,%d) = %v, want %v", tt.h, tt.s, tt.v, got, tt.want)
			}
		})
	}
}

func TestMaskPNGAndOverlay(t *testing.T) {
	img := createHSV(64, 64, leafHSV)
	fillRect(img, image.Rect(10, 10, 40, 40), lesionHSV)

	result, err := Detect(img)
	if err != nil {
		t.Fatal(err)
	}

	encoded, err := result.MaskPNG()
	if err != nil {
		t.Fatalf("MaskPNG failed: %v", err)
	}
	if encoded == "" {
		t.Error("MaskPNG returned empty string")
	}

	base := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	out := Overlay(base, result.Regions, OutlineColor)
	if got := out.RGBAAt(10, 25); got != OutlineColor {
		t.Errorf("outline pixel = %v, want %v", got, OutlineColor)
	}
	if got := out.RGBAAt(25, 25); got == OutlineColor {
		t.Error("interior pixel should not be drawn")
	}
	if base.NRGBAAt(10, 25) != (color.NRGBA{}) {
		t.Error("Overlay modified its input")
	}
}
