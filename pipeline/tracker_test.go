package pipeline

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/LdDl/balltrack/media"
	"github.com/LdDl/balltrack/sim"
	"github.com/LdDl/balltrack/vision"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ballFrame(t *testing.T, x, y int, ts int64) media.Frame {
	t.Helper()
	state := sim.KinematicState{X: x, Y: y, Radius: 20, Width: 320, Height: 240}
	frame := sim.NewWithState(state, 30, 0).Tick()
	frame.Timestamp = ts
	return frame
}

func TestTrackerProcess(t *testing.T) {
	var shared SharedEstimate
	tracker := NewTracker(NewFrameSink(1), &shared, TrackerOptions{})

	estimate, ok := tracker.Process(ballFrame(t, 100, 120, 3000))
	require.True(t, ok)
	assert.InDelta(t, 100, estimate.X, 2)
	assert.InDelta(t, 120, estimate.Y, 2)
	assert.Equal(t, int64(3000), estimate.Timestamp)

	// A frame without ball keeps previous estimate
	_, ok = tracker.Process(media.NewFrame(320, 240))
	assert.False(t, ok)
	got, ok := shared.Load()
	require.True(t, ok)
	assert.Equal(t, estimate, got)

	assert.Equal(t, TrackerStats{Frames: 2, Detections: 1, Misses: 1}, tracker.Stats())
}

func TestTrackerProcessMalformedFrame(t *testing.T) {
	var shared SharedEstimate
	tracker := NewTracker(NewFrameSink(1), &shared, TrackerOptions{})
	_, ok := tracker.Process(media.Frame{Width: 0, Height: 5})
	assert.False(t, ok)
	_, ok = tracker.Process(media.Frame{Width: 10, Height: 10, Data: make([]byte, 3)})
	assert.False(t, ok)
	_, ok = shared.Load()
	assert.False(t, ok)
}

func TestTrackerSmoothing(t *testing.T) {
	var shared SharedEstimate
	tracker := NewTracker(NewFrameSink(1), &shared, TrackerOptions{Smoothing: vision.NewBlobTrackerDefault()})
	for i := 0; i < 10; i++ {
		estimate, ok := tracker.Process(ballFrame(t, 60+5*i, 100, int64(i)*3000))
		require.True(t, ok)
		assert.False(t, math.IsNaN(estimate.X) || math.IsNaN(estimate.Y))
		assert.InDelta(t, 60+5*i, estimate.X, 20)
	}
}

func TestTrackerRunStopsAtEndOfStream(t *testing.T) {
	ctx := context.Background()
	sink := NewFrameSink(4)
	var shared SharedEstimate
	tracker := NewTracker(sink, &shared, TrackerOptions{})
	require.NoError(t, sink.Push(ctx, ballFrame(t, 50, 50, 0)))
	require.NoError(t, sink.Push(ctx, ballFrame(t, 70, 60, 3000)))
	sink.Close()

	done := make(chan error, 1)
	go func() { done <- tracker.Run(ctx) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("tracker should stop after the sink is drained")
	}
	got, ok := shared.Load()
	require.True(t, ok)
	assert.Equal(t, int64(3000), got.Timestamp)
	assert.Equal(t, int64(2), tracker.Stats().Frames)
}

func TestTrackerRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var shared SharedEstimate
	tracker := NewTracker(NewFrameSink(1), &shared, TrackerOptions{})
	done := make(chan error, 1)
	go func() { done <- tracker.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("tracker should stop on cancel")
	}
}
