// Package pipeline connects frame delivery, ball estimation, change-driven telemetry
// and reconciliation against ground truth.
package pipeline

import (
	"context"
	"io"
	"sync"

	"github.com/LdDl/balltrack/media"
	"github.com/pkg/errors"
)

const (
	// DefaultSinkCapacity is the number of frames buffered between receiver and tracker
	DefaultSinkCapacity = 100
)

var (
	// ErrEndOfStream is returned by FrameSink once it is closed (and drained for Pop)
	ErrEndOfStream = errors.New("end of frame stream")
)

// FrameSink is a bounded FIFO of frames. Push blocks while it is full, Pop blocks while it is empty
type FrameSink struct {
	frames    chan media.Frame
	done      chan struct{}
	closeOnce sync.Once
}

// NewFrameSink creates sink. Non-positive capacity means DefaultSinkCapacity
func NewFrameSink(capacity int) *FrameSink {
	if capacity <= 0 {
		capacity = DefaultSinkCapacity
	}
	return &FrameSink{
		frames: make(chan media.Frame, capacity),
		done:   make(chan struct{}),
	}
}

// Push enqueues frame, waiting for free space
func (s *FrameSink) Push(ctx context.Context, frame media.Frame) error {
	select {
	case <-s.done:
		return ErrEndOfStream
	default:
	}
	select {
	case s.frames <- frame:
		return nil
	case <-s.done:
		return ErrEndOfStream
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pop dequeues next frame, waiting for one to arrive. After Close remaining
// frames are still handed out, then ErrEndOfStream is returned
func (s *FrameSink) Pop(ctx context.Context) (media.Frame, error) {
	select {
	case frame := <-s.frames:
		return frame, nil
	default:
	}
	select {
	case frame := <-s.frames:
		return frame, nil
	case <-s.done:
		select {
		case frame := <-s.frames:
			return frame, nil
		default:
			return media.Frame{}, ErrEndOfStream
		}
	case <-ctx.Done():
		return media.Frame{}, ctx.Err()
	}
}

// Close signals end of stream. Safe to call more than once
func (s *FrameSink) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// Len returns number of buffered frames
func (s *FrameSink) Len() int {
	return len(s.frames)
}

// Cap returns sink capacity
func (s *FrameSink) Cap() int {
	return cap(s.frames)
}

// FrameReceiver is the receiving end of a video track
type FrameReceiver interface {
	// Recv returns next frame or io.EOF when the track ends
	Recv(ctx context.Context) (media.Frame, error)
}

// Receive moves frames from the track into the sink until the track ends, the sink is
// closed or ctx is cancelled; those cases return nil. Transport failures are returned.
// The sink is not closed here
func Receive(ctx context.Context, track FrameReceiver, sink *FrameSink) error {
	for {
		frame, err := track.Recv(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "Can't receive frame")
		}
		err = sink.Push(ctx, frame)
		if err != nil {
			if errors.Is(err, ErrEndOfStream) || ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}
