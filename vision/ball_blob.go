package vision

import (
	"math"

	kalman_filter "github.com/LdDl/kalman-filter"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// BallBlob is a tracked ball using 2D Kalman filter for center position
type BallBlob struct {
	id                    uuid.UUID
	currentCenter         Point
	predictedNextPosition Point
	radius                float64
	track                 []Point
	maxTrackLen           int
	active                bool
	noMatchTimes          int
	diagonal              float64
	tracker               *kalman_filter.Kalman2D
}

func NewBallBlobWithTime(currentCenter Point, radius float64, dt float64) *BallBlob {
	/* Kalman filter props */
	ux := 1.0
	uy := 1.0
	stdDevA := 2.0
	stdDevMx := 0.1
	stdDevMy := 0.1
	kf := kalman_filter.NewKalman2D(dt, ux, uy, stdDevA, stdDevMx, stdDevMy, kalman_filter.WithState2D(currentCenter.X, currentCenter.Y))
	blob := BallBlob{
		id:                    uuid.New(),
		currentCenter:         currentCenter,
		predictedNextPosition: currentCenter,
		radius:                radius,
		track:                 make([]Point, 0, 150),
		maxTrackLen:           150,
		active:                false,
		noMatchTimes:          0,
		diagonal:              2 * radius * math.Sqrt2,
		tracker:               kf,
	}
	blob.track = append(blob.track, blob.currentCenter)
	return &blob
}

func NewBallBlob(currentCenter Point, radius float64) *BallBlob {
	return NewBallBlobWithTime(currentCenter, radius, 1.0)
}

// Activate activates blob
func (blob *BallBlob) Activate() {
	blob.active = true
}

// Deactivate deactivates blob
func (blob *BallBlob) Deactivate() {
	blob.active = false
}

// IsActive returns whether blob was matched on the last frame
func (blob *BallBlob) IsActive() bool {
	return blob.active
}

// GetID returns blob's identifier
func (blob *BallBlob) GetID() uuid.UUID {
	return blob.id
}

// GetCenter returns blob's current (smoothed) center
func (blob *BallBlob) GetCenter() Point {
	return blob.currentCenter
}

// GetPredictedCenter returns center predicted for the next frame
func (blob *BallBlob) GetPredictedCenter() Point {
	return blob.predictedNextPosition
}

// GetRadius returns radius of the last matched detection
func (blob *BallBlob) GetRadius() float64 {
	return blob.radius
}

// GetDiagonal returns diagonal of the square bounding the ball
func (blob *BallBlob) GetDiagonal() float64 {
	return blob.diagonal
}

// GetTrack returns blob's current track. Be careful: this is not copy of track, but reference to it
func (blob *BallBlob) GetTrack() []Point {
	return blob.track
}

// GetMaxTrackLen returns blob's max track length
func (blob *BallBlob) GetMaxTrackLen() int {
	return blob.maxTrackLen
}

// SetMaxTrackLen sets blob's max track length
func (blob *BallBlob) SetMaxTrackLen(newMaxTrackLen int) {
	blob.maxTrackLen = newMaxTrackLen
}

// GetNoMatchTimes returns blob's no match times
func (blob *BallBlob) GetNoMatchTimes() int {
	return blob.noMatchTimes
}

// IncNoMatch increases blob's no match times
func (blob *BallBlob) IncNoMatch() {
	blob.noMatchTimes++
}

// ResetNoMatch resets blob's no match times
func (blob *BallBlob) ResetNoMatch() {
	blob.noMatchTimes = 0
}

// DistanceTo returns distance from blob's current center to the point
func (blob *BallBlob) DistanceTo(point Point) float64 {
	return euclideanDistance(blob.currentCenter, point)
}

// DistanceToPredicted returns distance from blob's predicted center to the point
func (blob *BallBlob) DistanceToPredicted(point Point) float64 {
	return euclideanDistance(blob.predictedNextPosition, point)
}

// PredictNextPosition execute Kalman filter's first step but without re-evaluating state vector based on Kalman gain
func (blob *BallBlob) PredictNextPosition() {
	blob.tracker.Predict()
	stateX, stateY := blob.tracker.GetState()
	blob.predictedNextPosition.X = stateX
	blob.predictedNextPosition.Y = stateY
}

// Update smooths measured center via Kalman filter's second step and appends it to the track
func (blob *BallBlob) Update(center Point, radius float64) error {
	err := blob.tracker.Update(center.X, center.Y)
	if err != nil {
		return errors.Wrap(err, "Can't update object tracker")
	}
	stateX, stateY := blob.tracker.GetState()
	blob.currentCenter = Point{X: stateX, Y: stateY}
	blob.radius = radius
	blob.diagonal = 2 * radius * math.Sqrt2
	blob.active = true
	blob.ResetNoMatch()
	blob.track = append(blob.track, blob.currentCenter)
	if len(blob.track) > blob.maxTrackLen {
		blob.track = blob.track[1:]
	}
	return nil
}
