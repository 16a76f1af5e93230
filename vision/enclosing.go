package vision

import (
	"math"
)

const (
	circleEps = 1e-7
)

// MinEnclosingCircle finds the smallest circle containing all points (incremental Welzl).
// Empty input gives zero circle
func MinEnclosingCircle(points []Point) Circle {
	if len(points) == 0 {
		return Circle{}
	}
	circle := Circle{Center: points[0]}
	for i := 1; i < len(points); i++ {
		if circle.Contains(points[i]) {
			continue
		}
		circle = Circle{Center: points[i]}
		for j := 0; j < i; j++ {
			if circle.Contains(points[j]) {
				continue
			}
			circle = circleFromTwo(points[i], points[j])
			for k := 0; k < j; k++ {
				if circle.Contains(points[k]) {
					continue
				}
				circle = circleFromThree(points[i], points[j], points[k])
			}
		}
	}
	return circle
}

func circleFromTwo(a, b Point) Circle {
	return Circle{
		Center: Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2},
		Radius: euclideanDistance(a, b) / 2,
	}
}

// circleFromThree returns circumcircle. Collinear points give the circle over the widest pair
func circleFromThree(a, b, c Point) Circle {
	ax, ay := b.X-a.X, b.Y-a.Y
	bx, by := c.X-a.X, c.Y-a.Y
	d := 2 * (ax*by - ay*bx)
	if math.Abs(d) < 1e-12 {
		widest := circleFromTwo(a, b)
		for _, candidate := range []Circle{circleFromTwo(a, c), circleFromTwo(b, c)} {
			if candidate.Radius > widest.Radius {
				widest = candidate
			}
		}
		return widest
	}
	aa := ax*ax + ay*ay
	bb := bx*bx + by*by
	ux := (by*aa - ay*bb) / d
	uy := (ax*bb - bx*aa) / d
	return Circle{
		Center: Point{X: a.X + ux, Y: a.Y + uy},
		Radius: math.Hypot(ux, uy),
	}
}
