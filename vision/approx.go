package vision

// ApproxPolyDP simplifies polyline with Douglas-Peucker algorithm: every dropped point
// lies within epsilon of the simplified polyline. Closed curves are split at the point
// farthest from the first one and both halves are simplified independently.
func ApproxPolyDP(points []Point, epsilon float64, closed bool) []Point {
	n := len(points)
	if n < 3 {
		return append([]Point(nil), points...)
	}
	if !closed {
		return douglasPeucker(points, epsilon)
	}

	far := 1
	farDist := -1.0
	for i := 1; i < n; i++ {
		d := euclideanDistance(points[0], points[i])
		if d > farDist {
			far, farDist = i, d
		}
	}

	first := douglasPeucker(points[:far+1], epsilon)
	loop := make([]Point, 0, n-far+1)
	loop = append(loop, points[far:]...)
	loop = append(loop, points[0])
	second := douglasPeucker(loop, epsilon)

	result := make([]Point, 0, len(first)+len(second)-2)
	result = append(result, first[:len(first)-1]...)
	result = append(result, second[:len(second)-1]...)
	return result
}

func douglasPeucker(points []Point, epsilon float64) []Point {
	n := len(points)
	if n < 3 {
		return append([]Point(nil), points...)
	}
	keep := make([]bool, n)
	keep[0], keep[n-1] = true, true

	stack := [][2]int{{0, n - 1}}
	for len(stack) > 0 {
		seg := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		a, b := seg[0], seg[1]
		if b-a < 2 {
			continue
		}
		idx := -1
		maxDist := -1.0
		for i := a + 1; i < b; i++ {
			d := pointToLineDistance(points[i], points[a], points[b])
			if d > maxDist {
				idx, maxDist = i, d
			}
		}
		if maxDist > epsilon {
			keep[idx] = true
			stack = append(stack, [2]int{a, idx}, [2]int{idx, b})
		}
	}

	result := make([]Point, 0, n)
	for i, k := range keep {
		if k {
			result = append(result, points[i])
		}
	}
	return result
}
