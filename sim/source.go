package sim

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/LdDl/balltrack/media"
)

// Source produces paced frames from a Simulator: the first frame is produced
// immediately, frame n is due at start + n*period.
type Source struct {
	simulator *Simulator
	period    time.Duration
	start     time.Time
	produced  atomic.Int64
}

// NewSource wraps simulator into frame source running at frameRate
func NewSource(simulator *Simulator, frameRate int) *Source {
	if frameRate <= 0 {
		frameRate = DefaultOptions().FrameRate
	}
	return &Source{
		simulator: simulator,
		period:    time.Second / time.Duration(frameRate),
	}
}

// Next waits until the next frame is due and produces it
func (src *Source) Next(ctx context.Context) (media.Frame, error) {
	produced := src.produced.Load()
	if produced == 0 {
		src.start = time.Now()
	} else {
		due := src.start.Add(time.Duration(produced) * src.period)
		if wait := time.Until(due); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return media.Frame{}, ctx.Err()
			case <-timer.C:
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return media.Frame{}, err
	}
	src.produced.Add(1)
	return src.simulator.Tick(), nil
}

// Stream calls deliver for every produced frame until ctx is done or deliver fails.
// Cancellation is not reported as an error
func (src *Source) Stream(ctx context.Context, deliver func(media.Frame) error) error {
	for {
		frame, err := src.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := deliver(frame); err != nil {
			return err
		}
	}
}

// Produced returns number of frames produced so far. Safe to call concurrently with Next
func (src *Source) Produced() int64 {
	return src.produced.Load()
}
