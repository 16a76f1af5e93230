package vision

import (
	"math"

	"github.com/pkg/errors"
)

// BlobTracker keeps a single Kalman-smoothed ball track across frames
type BlobTracker struct {
	// Current track, nil when the ball is lost
	Object *BallBlob
	// Threshold distance in pixels. Default 60.0
	minDistThreshold float64
	// Max no match (max number of frames when ball could not be found again). Default is 15
	maxNoMatch int
	// Time between frames for Kalman filter
	dt float64
}

// NewBlobTrackerDefault creates default instance of BlobTracker for 30 fps
func NewBlobTrackerDefault() *BlobTracker {
	return NewBlobTracker(60.0, 15, 1.0/30.0)
}

// NewBlobTracker creates new instance of BlobTracker
func NewBlobTracker(minDistThreshold float64, maxNoMatch int, dt float64) *BlobTracker {
	return &BlobTracker{
		minDistThreshold: minDistThreshold,
		maxNoMatch:       maxNoMatch,
		dt:               dt,
	}
}

// MatchObject feeds detected center to the track and returns smoothed center.
// Detection too far from both current and predicted centers starts a new track
func (tracker *BlobTracker) MatchObject(center Point, radius float64) (Point, error) {
	if tracker.Object == nil {
		tracker.register(center, radius)
		return center, nil
	}
	object := tracker.Object
	object.Deactivate()
	object.PredictNextPosition()
	minDistance := math.Min(object.DistanceTo(center), object.DistanceToPredicted(center))
	if minDistance < object.GetDiagonal()*0.5 || minDistance < tracker.minDistThreshold {
		err := object.Update(center, radius)
		if err != nil {
			return center, errors.Wrapf(err, "Can't update blob with id %s", object.GetID().String())
		}
		return object.GetCenter(), nil
	}
	tracker.register(center, radius)
	return center, nil
}

// Miss registers a frame without detection. Track is dropped after too many misses
func (tracker *BlobTracker) Miss() {
	if tracker.Object == nil {
		return
	}
	tracker.Object.Deactivate()
	tracker.Object.IncNoMatch()
	if tracker.Object.GetNoMatchTimes() > tracker.maxNoMatch {
		tracker.Object = nil
	}
}

func (tracker *BlobTracker) register(center Point, radius float64) {
	blob := NewBallBlobWithTime(center, radius, tracker.dt)
	blob.Activate()
	tracker.Object = blob
}
