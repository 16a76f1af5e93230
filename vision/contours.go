package vision

import (
	"image"
	"math"
)

// neighbours are listed clockwise in image coordinates (y grows downwards), starting from east
var neighbours = [8]image.Point{
	{X: 1, Y: 0},
	{X: 1, Y: 1},
	{X: 0, Y: 1},
	{X: -1, Y: 1},
	{X: -1, Y: 0},
	{X: -1, Y: -1},
	{X: 0, Y: -1},
	{X: 1, Y: -1},
}

// ExternalContours returns outer boundaries of 8-connected regions of the mask.
// Holes are ignored, and so are regions lying inside holes of other regions.
// Contours are compressed to the vertices where the boundary changes direction.
// Order of contours is raster order of each region's top-left pixel.
func ExternalContours(mask *Mask) [][]image.Point {
	w, h := mask.Width, mask.Height
	if w <= 0 || h <= 0 || len(mask.Pix) < w*h {
		return nil
	}
	outside := outerBackground(mask)
	visited := make([]bool, w*h)
	contours := make([][]image.Point, 0)
	stack := make([]int, 0, 64)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			if !mask.Pix[i] || visited[i] {
				continue
			}
			visited[i] = true
			stack = append(stack[:0], i)
			external := false
			area := 0
			for len(stack) > 0 {
				cur := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				area++
				cx, cy := cur%w, cur/w
				if !external && touchesOutside(cx, cy, w, h, outside) {
					external = true
				}
				for _, d := range neighbours {
					nx, ny := cx+d.X, cy+d.Y
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					ni := ny*w + nx
					if mask.Pix[ni] && !visited[ni] {
						visited[ni] = true
						stack = append(stack, ni)
					}
				}
			}
			if external {
				contours = append(contours, compressChain(traceBoundary(mask, image.Pt(x, y), area)))
			}
		}
	}
	return contours
}

// outerBackground marks background pixels 4-connected to the image border
func outerBackground(mask *Mask) []bool {
	w, h := mask.Width, mask.Height
	outside := make([]bool, w*h)
	queue := make([]int, 0, 2*(w+h))
	push := func(x, y int) {
		i := y*w + x
		if !mask.Pix[i] && !outside[i] {
			outside[i] = true
			queue = append(queue, i)
		}
	}
	for x := 0; x < w; x++ {
		push(x, 0)
		push(x, h-1)
	}
	for y := 0; y < h; y++ {
		push(0, y)
		push(w-1, y)
	}
	for len(queue) > 0 {
		cur := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		cx, cy := cur%w, cur/w
		if cx > 0 {
			push(cx-1, cy)
		}
		if cx < w-1 {
			push(cx+1, cy)
		}
		if cy > 0 {
			push(cx, cy-1)
		}
		if cy < h-1 {
			push(cx, cy+1)
		}
	}
	return outside
}

func touchesOutside(x, y, w, h int, outside []bool) bool {
	if x == 0 || y == 0 || x == w-1 || y == h-1 {
		return true
	}
	return outside[y*w+x-1] || outside[y*w+x+1] || outside[(y-1)*w+x] || outside[(y+1)*w+x]
}

// traceBoundary follows region's outer boundary clockwise with Moore-neighbour tracing.
// Start must be region's first pixel in raster order, so its west, north-west, north
// and north-east neighbours are background. Tracing stops when the start pixel is
// about to be left the same way it was left the first time.
func traceBoundary(mask *Mask, start image.Point, area int) []image.Point {
	contour := []image.Point{start}
	dir, ok := nextNeighbour(mask, start, 0)
	if !ok {
		return contour
	}
	second := start.Add(neighbours[dir])
	cur := second
	limit := 4*area + 8
	for steps := 0; steps < limit; steps++ {
		searchFrom := (dir + 7) % 8
		if dir%2 == 1 {
			searchFrom = (dir + 6) % 8
		}
		nd, _ := nextNeighbour(mask, cur, searchFrom)
		next := cur.Add(neighbours[nd])
		if cur == start && next == second {
			break
		}
		contour = append(contour, cur)
		cur, dir = next, nd
	}
	return contour
}

func nextNeighbour(mask *Mask, p image.Point, from int) (int, bool) {
	for i := 0; i < 8; i++ {
		d := (from + i) % 8
		q := p.Add(neighbours[d])
		if mask.At(q.X, q.Y) {
			return d, true
		}
	}
	return 0, false
}

// compressChain keeps only the points where direction of a closed chain changes
func compressChain(chain []image.Point) []image.Point {
	n := len(chain)
	if n < 3 {
		return chain
	}
	compressed := make([]image.Point, 0, n/2+1)
	for i := 0; i < n; i++ {
		prev := chain[(i-1+n)%n]
		next := chain[(i+1)%n]
		if chain[i].Sub(prev) != next.Sub(chain[i]) {
			compressed = append(compressed, chain[i])
		}
	}
	if len(compressed) == 0 {
		return chain[:1]
	}
	return compressed
}

// ContourArea returns absolute polygon area enclosed by contour (shoelace formula)
func ContourArea(contour []image.Point) float64 {
	n := len(contour)
	if n < 3 {
		return 0
	}
	sum := 0
	for i := 0; i < n; i++ {
		a := contour[i]
		b := contour[(i+1)%n]
		sum += a.X*b.Y - b.X*a.Y
	}
	return math.Abs(float64(sum)) / 2
}
