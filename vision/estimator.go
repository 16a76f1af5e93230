package vision

import (
	"image"

	"github.com/LdDl/balltrack/media"
)

// Estimate is a ball position found on a single frame
type Estimate struct {
	X         float64
	Y         float64
	Timestamp int64
}

// Detection holds intermediate results of color segmentation
type Detection struct {
	// Contour is the largest external contour of the mask
	Contour []image.Point
	// Area enclosed by Contour
	Area float64
	// Polygon is the simplified Contour
	Polygon []Point
	// Circle is the minimum enclosing circle of Polygon
	Circle Circle
}

// Estimator finds a ball of given color with color segmentation
type Estimator struct {
	colorRange HSVRange
	epsilon    float64
}

// NewEstimatorDefault creates Estimator looking for near-white ball with 3px polygon tolerance
func NewEstimatorDefault() *Estimator {
	return NewEstimator(WhiteRange(), 3.0)
}

// NewEstimator creates Estimator for color range and polygon approximation tolerance (pixels)
func NewEstimator(colorRange HSVRange, epsilon float64) *Estimator {
	return &Estimator{
		colorRange: colorRange,
		epsilon:    epsilon,
	}
}

// Detect thresholds frame in HSV space, picks the external contour with maximum area
// (first one wins on ties), simplifies it and fits minimum enclosing circle.
// Returns false when no pixel matches the color range
func (estimator *Estimator) Detect(frame media.Frame) (Detection, bool) {
	mask := InRange(frame, estimator.colorRange)
	contours := ExternalContours(mask)
	if len(contours) == 0 {
		return Detection{}, false
	}
	best := 0
	bestArea := ContourArea(contours[0])
	for i := 1; i < len(contours); i++ {
		area := ContourArea(contours[i])
		if area > bestArea {
			best, bestArea = i, area
		}
	}
	polygon := ApproxPolyDP(toPoints(contours[best]), estimator.epsilon, true)
	return Detection{
		Contour: contours[best],
		Area:    bestArea,
		Polygon: polygon,
		Circle:  MinEnclosingCircle(polygon),
	}, true
}

// Estimate returns center of the detected ball paired with frame's timestamp
func (estimator *Estimator) Estimate(frame media.Frame) (Estimate, bool) {
	detection, ok := estimator.Detect(frame)
	if !ok {
		return Estimate{}, false
	}
	return Estimate{
		X:         detection.Circle.Center.X,
		Y:         detection.Circle.Center.Y,
		Timestamp: frame.Timestamp,
	}, true
}
