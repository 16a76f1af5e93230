package vision

import (
	"image"
	"math"
)

type Point struct {
	X float64
	Y float64
}

func NewPoint(x, y float64) Point {
	return Point{
		X: x,
		Y: y,
	}
}

func NewPointFrom(point image.Point) Point {
	return Point{
		X: float64(point.X),
		Y: float64(point.Y),
	}
}

// Circle is a circle with floating point center
type Circle struct {
	Center Point
	Radius float64
}

// Contains checks whether point lies inside circle (with tolerance)
func (c Circle) Contains(p Point) bool {
	return euclideanDistance(c.Center, p) <= c.Radius+circleEps
}

func euclideanDistance(p1, p2 Point) float64 {
	return math.Hypot(p1.X-p2.X, p1.Y-p2.Y)
}

// pointToLineDistance returns distance from p to the line through a and b.
// Falls back to distance to a when a and b coincide
func pointToLineDistance(p, a, b Point) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	norm := math.Hypot(dx, dy)
	if norm == 0 {
		return euclideanDistance(p, a)
	}
	return math.Abs(dy*(p.X-a.X)-dx*(p.Y-a.Y)) / norm
}

func toPoints(contour []image.Point) []Point {
	points := make([]Point, len(contour))
	for i, pt := range contour {
		points[i] = NewPointFrom(pt)
	}
	return points
}
