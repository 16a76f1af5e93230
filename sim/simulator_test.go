package sim

import (
	"context"
	"image"
	"math"
	"testing"
	"time"

	"github.com/LdDl/balltrack/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	eps = 0.00001
)

func TestStepReflection(t *testing.T) {
	tests := []struct {
		name       string
		state      KinematicState
		wantAngle  float64
		wantBounce Bounce
		wantX      int
		wantY      int
	}{
		{
			name:       "bottom edge negates angle",
			state:      KinematicState{X: 400, Y: 360, Angle: math.Pi / 2, Speed: 20, Radius: 30, Width: 800, Height: 400},
			wantAngle:  -math.Pi / 2,
			wantBounce: Bounce{Vertical: true},
			wantX:      400,
			wantY:      370,
		},
		{
			name:       "right edge mirrors angle",
			state:      KinematicState{X: 760, Y: 200, Angle: 0, Speed: 20, Radius: 30, Width: 800, Height: 400},
			wantAngle:  math.Pi,
			wantBounce: Bounce{Horizontal: true},
			wantX:      770,
			wantY:      200,
		},
		{
			name:       "corner applies both",
			state:      KinematicState{X: 760, Y: 360, Angle: math.Pi / 4, Speed: 20, Radius: 30, Width: 800, Height: 400},
			wantAngle:  math.Pi + math.Pi/4,
			wantBounce: Bounce{Vertical: true, Horizontal: true},
			wantX:      770,
			wantY:      370,
		},
		{
			name:       "free flight",
			state:      KinematicState{X: 400, Y: 200, Angle: math.Pi / 3, Speed: 20, Radius: 30, Width: 800, Height: 400},
			wantAngle:  math.Pi / 3,
			wantBounce: Bounce{},
			wantX:      410,
			wantY:      217,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := tt.state
			bounce := state.Step()
			assert.Equal(t, tt.wantBounce, bounce)
			assert.InDelta(t, tt.wantAngle, state.Angle, eps)
			assert.Equal(t, tt.wantX, state.X)
			assert.Equal(t, tt.wantY, state.Y)
			assert.True(t, state.InBounds())
		})
	}
}

func TestSimulatorStaysInBounds(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		simulator, err := New(Options{Seed: seed, HistoryCapacity: 10})
		require.NoError(t, err)
		for i := 0; i < 2000; i++ {
			simulator.state.Step()
			state := simulator.State()
			if !state.InBounds() {
				t.Fatalf("seed %d tick %d: position (%d, %d) is out of bounds", seed, i, state.X, state.Y)
			}
		}
	}
}

func TestSimulatorInitialState(t *testing.T) {
	simulator, err := New(Options{Seed: 42})
	require.NoError(t, err)
	state := simulator.State()
	assert.True(t, state.InBounds())
	assert.GreaterOrEqual(t, state.Angle, 0.0)
	assert.Less(t, state.Angle, 2*math.Pi)
	assert.Equal(t, 20.0, state.Speed)

	again, err := New(Options{Seed: 42})
	require.NoError(t, err)
	assert.Equal(t, state, again.State())
}

func TestSimulatorRejectsTinyArea(t *testing.T) {
	_, err := New(Options{Width: 50, Height: 400, Radius: 30})
	assert.Error(t, err)
}

func TestTickRendersAndRecords(t *testing.T) {
	simulator := NewWithState(KinematicState{X: 100, Y: 100, Angle: 0, Speed: 20, Radius: 10, Width: 200, Height: 200}, 30, 0)

	first := simulator.Tick()
	second := simulator.Tick()
	assert.Equal(t, int64(0), first.Timestamp)
	assert.Equal(t, int64(media.VideoClockRate/30), second.Timestamp)
	assert.Equal(t, int64(3000), simulator.TimestampStep())
	assert.Equal(t, simulator.TimestampStep(), second.Timestamp-first.Timestamp)
	assert.Equal(t, media.VideoTimeBase(), second.TimeBase)

	pos, ok := simulator.History().Lookup(first.Timestamp)
	require.True(t, ok)
	assert.Equal(t, image.Pt(120, 100), pos)

	b, g, r := first.BGR(120, 100)
	assert.Equal(t, []uint8{255, 255, 255}, []uint8{b, g, r})
	b, g, r = first.BGR(120, 111)
	assert.Equal(t, []uint8{0, 0, 0}, []uint8{b, g, r})
	b, _, _ = first.BGR(130, 100)
	assert.Equal(t, uint8(255), b)
}

func TestSourcePacing(t *testing.T) {
	simulator, err := New(Options{Seed: 7, FrameRate: 50})
	require.NoError(t, err)
	source := NewSource(simulator, 50)

	start := time.Now()
	var timestamps []int64
	for i := 0; i < 4; i++ {
		frame, err := source.Next(context.Background())
		require.NoError(t, err)
		timestamps = append(timestamps, frame.Timestamp)
	}
	assert.GreaterOrEqual(t, time.Since(start), 55*time.Millisecond)
	assert.Equal(t, []int64{0, 1800, 3600, 5400}, timestamps)
	assert.Equal(t, int64(4), source.Produced())
}

func TestSourceStreamStopsOnCancel(t *testing.T) {
	simulator, err := New(Options{Seed: 7, FrameRate: 100})
	require.NoError(t, err)
	source := NewSource(simulator, 100)

	ctx, cancel := context.WithCancel(context.Background())
	delivered := 0
	err = source.Stream(ctx, func(media.Frame) error {
		delivered++
		if delivered == 3 {
			cancel()
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, delivered)
}
