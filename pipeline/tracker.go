package pipeline

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/LdDl/balltrack/media"
	"github.com/LdDl/balltrack/vision"
	"github.com/pkg/errors"
)

// TrackerOptions tunes the tracking worker
type TrackerOptions struct {
	// Estimator defaults to vision.NewEstimatorDefault()
	Estimator *vision.Estimator
	// Smoothing enables Kalman smoothing of detected centers when not nil
	Smoothing *vision.BlobTracker
	// Logger defaults to slog.Default()
	Logger *slog.Logger
}

func (o *TrackerOptions) defaults() {
	if o.Estimator == nil {
		o.Estimator = vision.NewEstimatorDefault()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// TrackerStats are point-in-time counters
type TrackerStats struct {
	Frames     int64 `json:"frames"`
	Detections int64 `json:"detections"`
	Misses     int64 `json:"misses"`
}

// Tracker pops frames from the sink, estimates ball position and publishes it
type Tracker struct {
	sink   *FrameSink
	shared *SharedEstimate
	opts   TrackerOptions

	frames     atomic.Int64
	detections atomic.Int64
	misses     atomic.Int64
}

// NewTracker creates Tracker. Call Run to start the loop
func NewTracker(sink *FrameSink, shared *SharedEstimate, opts TrackerOptions) *Tracker {
	opts.defaults()
	return &Tracker{
		sink:   sink,
		shared: shared,
		opts:   opts,
	}
}

// Stats returns the current counters
func (t *Tracker) Stats() TrackerStats {
	return TrackerStats{
		Frames:     t.frames.Load(),
		Detections: t.detections.Load(),
		Misses:     t.misses.Load(),
	}
}

// Process estimates ball position on a single frame and publishes it.
// Frames without a ball leave the published estimate untouched
func (t *Tracker) Process(frame media.Frame) (vision.Estimate, bool) {
	t.frames.Add(1)
	detection, ok := t.opts.Estimator.Detect(frame)
	if !ok {
		t.misses.Add(1)
		if t.opts.Smoothing != nil {
			t.opts.Smoothing.Miss()
		}
		t.opts.Logger.Debug("no ball on frame", "timestamp", frame.Timestamp)
		return vision.Estimate{}, false
	}
	t.detections.Add(1)
	center := detection.Circle.Center
	if t.opts.Smoothing != nil {
		smoothed, err := t.opts.Smoothing.MatchObject(center, detection.Circle.Radius)
		if err != nil {
			t.opts.Logger.Warn("smoothing failed, using raw detection", "timestamp", frame.Timestamp, "error", err)
		} else {
			center = smoothed
			if object := t.opts.Smoothing.Object; object != nil {
				predicted := object.GetPredictedCenter()
				t.opts.Logger.Debug("ball smoothed", "timestamp", frame.Timestamp, "predicted_x", predicted.X, "predicted_y", predicted.Y, "radius", object.GetRadius())
			}
		}
	}
	estimate := vision.Estimate{
		X:         center.X,
		Y:         center.Y,
		Timestamp: frame.Timestamp,
	}
	t.shared.Store(estimate)
	t.opts.Logger.Debug("ball detected", "timestamp", frame.Timestamp, "x", estimate.X, "y", estimate.Y, "radius", detection.Circle.Radius)
	return estimate, true
}

// Run processes frames until the sink reports end of stream or ctx is cancelled
func (t *Tracker) Run(ctx context.Context) error {
	log := t.opts.Logger
	log.Info("tracker: started", "smoothing", t.opts.Smoothing != nil)
	for {
		frame, err := t.sink.Pop(ctx)
		if err != nil {
			if errors.Is(err, ErrEndOfStream) || ctx.Err() != nil {
				s := t.Stats()
				log.Info("tracker: stopped", "frames", s.Frames, "detections", s.Detections, "misses", s.Misses)
				return nil
			}
			return errors.Wrap(err, "Can't read frame")
		}
		t.Process(frame)
	}
}
