package spots

import (
	"image"
	"image/color"
)

// neighbors lists the 8 neighbor offsets counterclockwise on screen,
// starting east. Index arithmetic is mod 8.
var neighbors = [8]image.Point{
	{1, 0},   // E
	{1, -1},  // NE
	{0, -1},  // N
	{-1, -1}, // NW
	{-1, 0},  // W
	{-1, 1},  // SW
	{0, 1},   // S
	{1, 1},   // SE
}

const dirWest = 4

// binaryGrid is a 0/1 view of a mask with bounds anchored at the origin.
type binaryGrid struct {
	w, h int
	on   []bool
}

func newBinaryGrid(mask *image.Gray) *binaryGrid {
	b := mask.Bounds()
	g := &binaryGrid{w: b.Dx(), h: b.Dy(), on: make([]bool, b.Dx()*b.Dy())}
	for y := 0; y < g.h; y++ {
		row := mask.Pix[y*mask.Stride : y*mask.Stride+g.w]
		for x, v := range row {
			g.on[y*g.w+x] = v != 0
		}
	}
	return g
}

func (g *binaryGrid) at(p image.Point) bool {
	if p.X < 0 || p.Y < 0 || p.X >= g.w || p.Y >= g.h {
		return false
	}
	return g.on[p.Y*g.w+p.X]
}

// contour is one traced outer border.
type contour struct {
	start   image.Point     // first pixel in raster order
	outline []image.Point   // border pixels in traversal order
	bounds  image.Rectangle // bounding box of the outline, Max exclusive
}

// findExternalContours traces the outer border of every 8-connected
// component that is not enclosed by another component, in raster order of
// each component's first pixel. It also returns, per contour, the filled
// region enclosed by the outline (component pixels plus holes).
func findExternalContours(g *binaryGrid) ([]contour, []*image.Alpha) {
	labels := make([]int32, len(g.on))
	covered := make([]bool, len(g.on)) // pixels enclosed by an outer contour

	var contours []contour
	var fills []*image.Alpha
	var next int32

	for y := 0; y < g.h; y++ {
		for x := 0; x < g.w; x++ {
			i := y*g.w + x
			if !g.on[i] || labels[i] != 0 {
				continue
			}

			next++
			start := image.Point{x, y}
			labelComponent(g, labels, start, next)

			// Nested components are skipped, as with an external-only retrieval
			if covered[i] {
				continue
			}

			c := traceBorder(g, start)
			fill := fillEnclosed(g, labels, next, c.bounds)
			for fy := c.bounds.Min.Y; fy < c.bounds.Max.Y; fy++ {
				for fx := c.bounds.Min.X; fx < c.bounds.Max.X; fx++ {
					if fill.AlphaAt(fx, fy).A != 0 {
						covered[fy*g.w+fx] = true
					}
				}
			}

			contours = append(contours, c)
			fills = append(fills, fill)
		}
	}

	return contours, fills
}

// labelComponent assigns id to every pixel 8-connected to start.
// Uses an explicit stack to avoid deep recursion on large lesions.
func labelComponent(g *binaryGrid, labels []int32, start image.Point, id int32) {
	stack := []image.Point{start}
	labels[start.Y*g.w+start.X] = id

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, d := range neighbors {
			q := p.Add(d)
			if !g.at(q) {
				continue
			}
			j := q.Y*g.w + q.X
			if labels[j] != 0 {
				continue
			}
			labels[j] = id
			stack = append(stack, q)
		}
	}
}

// traceBorder follows the outer border of the component whose raster-first
// pixel is start (Suzuki-Abe border following, outer border case). The west
// neighbor of start is background by construction.
func traceBorder(g *binaryGrid, start image.Point) contour {
	c := contour{start: start}

	// Search clockwise from west for the first foreground neighbor
	first := -1
	for k := 0; k < 8; k++ {
		d := (dirWest - k + 8) % 8
		if g.at(start.Add(neighbors[d])) {
			first = d
			break
		}
	}
	if first < 0 {
		c.outline = []image.Point{start}
		c.bounds = image.Rectangle{Min: start, Max: start.Add(image.Point{1, 1})}
		return c
	}

	p1 := start.Add(neighbors[first])
	prev, cur := p1, start
	for {
		// Search counterclockwise, starting just past the previous point
		back := direction(cur, prev)
		var next image.Point
		for k := 1; k <= 8; k++ {
			d := (back + k) % 8
			q := cur.Add(neighbors[d])
			if g.at(q) {
				next = q
				break
			}
		}

		c.outline = append(c.outline, cur)
		if next == start && cur == p1 {
			break
		}
		prev, cur = cur, next
	}

	c.bounds = outlineBounds(c.outline)
	return c
}

// direction returns the neighbor index d such that from + neighbors[d] == to.
func direction(from, to image.Point) int {
	delta := to.Sub(from)
	for d, n := range neighbors {
		if n == delta {
			return d
		}
	}
	return 0
}

func outlineBounds(pts []image.Point) image.Rectangle {
	r := image.Rectangle{Min: pts[0], Max: pts[0].Add(image.Point{1, 1})}
	for _, p := range pts[1:] {
		r = r.Union(image.Rectangle{Min: p, Max: p.Add(image.Point{1, 1})})
	}
	return r
}

// fillEnclosed returns a mask of the pixels enclosed by the outline of
// component id: every pixel in bounds that background cannot reach from
// outside the box. Only pixels of the component itself act as walls, and
// background moves 4-connected so it cannot slip between diagonal border
// pixels. The returned mask has the same bounds as the outline.
func fillEnclosed(g *binaryGrid, labels []int32, id int32, bounds image.Rectangle) *image.Alpha {
	fill := image.NewAlpha(bounds)

	// Work in the bounding box grown by one pixel of guaranteed background
	box := bounds.Inset(-1)
	bw, bh := box.Dx(), box.Dy()
	outside := make([]bool, bw*bh)
	wall := make([]bool, bw*bh)
	for y := 1; y < bh-1; y++ {
		for x := 1; x < bw-1; x++ {
			p := image.Point{box.Min.X + x, box.Min.Y + y}
			wall[y*bw+x] = labels[p.Y*g.w+p.X] == id
		}
	}

	stack := []image.Point{{0, 0}}
	outside[0] = true
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, d := range [4]image.Point{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
			q := p.Add(d)
			if q.X < 0 || q.Y < 0 || q.X >= bw || q.Y >= bh {
				continue
			}
			j := q.Y*bw + q.X
			if outside[j] || wall[j] {
				continue
			}
			outside[j] = true
			stack = append(stack, q)
		}
	}

	for y := 1; y < bh-1; y++ {
		for x := 1; x < bw-1; x++ {
			if !outside[y*bw+x] {
				fill.SetAlpha(box.Min.X+x, box.Min.Y+y, color.Alpha{A: 255})
			}
		}
	}
	return fill
}

// compressOutline drops points that lie in the middle of a straight run,
// keeping only the end points of horizontal, vertical and diagonal segments.
func compressOutline(pts []image.Point) []image.Point {
	n := len(pts)
	if n <= 2 {
		out := make([]image.Point, n)
		copy(out, pts)
		return out
	}

	out := make([]image.Point, 0, n)
	for i, p := range pts {
		in := p.Sub(pts[(i-1+n)%n])
		next := pts[(i+1)%n].Sub(p)
		if in != next {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		// Degenerate loop with no direction change
		out = append(out, pts[0])
	}
	return out
}

// polygonArea returns the absolute shoelace area of a closed polygon.
func polygonArea(pts []image.Point) float64 {
	n := len(pts)
	if n < 3 {
		return 0
	}
	var sum int
	for i, p := range pts {
		q := pts[(i+1)%n]
		sum += p.X*q.Y - q.X*p.Y
	}
	if sum < 0 {
		sum = -sum
	}
	return float64(sum) / 2
}
