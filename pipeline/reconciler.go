package pipeline

import (
	"image"
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/LdDl/balltrack/telemetry"
	"github.com/LdDl/balltrack/vision"
	"github.com/pkg/errors"
)

// HistoryLookup returns ground-truth position recorded for a frame timestamp
type HistoryLookup interface {
	Lookup(timestamp int64) (image.Point, bool)
}

// Result is an outcome of reconciling one position report. Actual and Error are nil
// when ground truth for the timestamp is unavailable
type Result struct {
	Timestamp int64
	Predicted vision.Point
	Actual    *vision.Point
	Error     *vision.Point
}

// Found reports whether ground truth was available
func (r Result) Found() bool {
	return r.Actual != nil
}

// ReconcilerOptions tunes the reconciler
type ReconcilerOptions struct {
	// Stats collects errors when not nil
	Stats *ErrorStats
	// Logger defaults to slog.Default()
	Logger *slog.Logger
}

func (o *ReconcilerOptions) defaults() {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Reconciler compares reported positions with ground truth and acknowledges every report
type Reconciler struct {
	history HistoryLookup
	channel telemetry.Channel
	opts    ReconcilerOptions

	handled atomic.Int64
	missing atomic.Int64
}

// NewReconciler creates Reconciler sending acknowledgments to channel
func NewReconciler(history HistoryLookup, channel telemetry.Channel, opts ReconcilerOptions) *Reconciler {
	opts.defaults()
	return &Reconciler{
		history: history,
		channel: channel,
		opts:    opts,
	}
}

// Handle reconciles a single report. Acknowledgment is sent whether ground truth
// is found or not; only a failed send is returned as error
func (r *Reconciler) Handle(loc telemetry.Location) (Result, error) {
	r.handled.Add(1)
	res := Result{
		Timestamp: loc.Timestamp,
		Predicted: vision.NewPoint(loc.X, loc.Y),
	}
	actual, ok := r.history.Lookup(loc.Timestamp)
	if ok {
		a := vision.NewPointFrom(actual)
		e := vision.NewPoint(
			telemetry.Round2(math.Abs(res.Predicted.X-a.X)),
			telemetry.Round2(math.Abs(res.Predicted.Y-a.Y)),
		)
		res.Actual = &a
		res.Error = &e
		if r.opts.Stats != nil {
			r.opts.Stats.Add(res)
		}
		r.opts.Logger.Info("reconciled",
			"timestamp", res.Timestamp,
			"predicted_x", res.Predicted.X, "predicted_y", res.Predicted.Y,
			"actual_x", a.X, "actual_y", a.Y,
			"error_x", e.X, "error_y", e.Y,
		)
	} else {
		r.missing.Add(1)
		if r.opts.Stats != nil {
			r.opts.Stats.AddMissing()
		}
		r.opts.Logger.Warn("ground truth unavailable", "timestamp", res.Timestamp, "predicted_x", res.Predicted.X, "predicted_y", res.Predicted.Y)
	}

	err := r.channel.Send(telemetry.Ack{Timestamp: loc.Timestamp}.String())
	if err != nil {
		return res, errors.Wrapf(err, "Can't acknowledge timestamp %d", loc.Timestamp)
	}
	return res, nil
}

// Handled returns number of reports processed and how many of them had no ground truth
func (r *Reconciler) Handled() (total, missing int64) {
	return r.handled.Load(), r.missing.Load()
}

// Register installs location handler on the dispatcher
func (r *Reconciler) Register(d *telemetry.Dispatcher) {
	d.HandleLocation(func(loc telemetry.Location) {
		_, err := r.Handle(loc)
		if err != nil {
			r.opts.Logger.Warn("acknowledgment failed", "timestamp", loc.Timestamp, "error", err)
		}
	})
}
