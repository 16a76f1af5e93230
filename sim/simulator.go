// Package sim holds the bouncing ball simulation: kinematics, rendering,
// ground-truth position history and a paced frame source.
package sim

import (
	"image"
	"math"
	"math/rand/v2"
	"time"

	"github.com/LdDl/balltrack/media"
	"github.com/pkg/errors"
)

// Options configures a Simulator. Zero values are replaced by defaults
type Options struct {
	Width     int
	Height    int
	Radius    int
	Speed     float64
	FrameRate int
	// Seed for initial position and direction. Zero picks a time based seed
	Seed int64
	// HistoryCapacity bounds ground-truth history, 0 keeps everything
	HistoryCapacity int
}

// DefaultOptions returns 800x400 area, 30px ball moving 20px per tick at 30 fps
func DefaultOptions() Options {
	return Options{
		Width:           800,
		Height:          400,
		Radius:          30,
		Speed:           20,
		FrameRate:       30,
		HistoryCapacity: 3000,
	}
}

func (o *Options) defaults() {
	def := DefaultOptions()
	if o.Width <= 0 {
		o.Width = def.Width
	}
	if o.Height <= 0 {
		o.Height = def.Height
	}
	if o.Radius <= 0 {
		o.Radius = def.Radius
	}
	if o.Speed <= 0 {
		o.Speed = def.Speed
	}
	if o.FrameRate <= 0 {
		o.FrameRate = def.FrameRate
	}
	if o.Seed == 0 {
		o.Seed = time.Now().UnixNano()
	}
}

// Simulator advances a single ball and renders it into frames.
// It is not safe for concurrent use; History is.
type Simulator struct {
	state   KinematicState
	step    int64
	tick    int64
	color   [3]uint8
	history *History
}

// New creates Simulator with random initial position inside the area and random direction
func New(opts Options) (*Simulator, error) {
	opts.defaults()
	if opts.Width <= 2*opts.Radius || opts.Height <= 2*opts.Radius {
		return nil, errors.Errorf("area %dx%d is too small for radius %d", opts.Width, opts.Height, opts.Radius)
	}
	if opts.FrameRate > media.VideoClockRate {
		return nil, errors.Errorf("frame rate %d exceeds video clock rate", opts.FrameRate)
	}
	rng := rand.New(rand.NewPCG(uint64(opts.Seed), uint64(opts.Seed)>>1|1))
	state := KinematicState{
		X:      opts.Radius + rng.IntN(opts.Width-2*opts.Radius+1),
		Y:      opts.Radius + rng.IntN(opts.Height-2*opts.Radius+1),
		Angle:  rng.Float64() * 2 * math.Pi,
		Speed:  opts.Speed,
		Radius: opts.Radius,
		Width:  opts.Width,
		Height: opts.Height,
	}
	return NewWithState(state, opts.FrameRate, opts.HistoryCapacity), nil
}

// NewWithState creates Simulator from explicit initial state
func NewWithState(state KinematicState, frameRate, historyCapacity int) *Simulator {
	if frameRate <= 0 {
		frameRate = DefaultOptions().FrameRate
	}
	return &Simulator{
		state:   state,
		step:    int64(media.VideoClockRate / frameRate),
		color:   [3]uint8{255, 255, 255},
		history: NewHistory(historyCapacity),
	}
}

// Tick advances state, renders the ball and records ground truth under the frame's timestamp
func (s *Simulator) Tick() media.Frame {
	s.state.Step()

	frame := media.NewFrame(s.state.Width, s.state.Height)
	frame.Timestamp = s.tick * s.step
	s.tick++
	drawDisc(frame, s.state.X, s.state.Y, s.state.Radius, s.color)

	s.history.Record(frame.Timestamp, image.Pt(s.state.X, s.state.Y))
	return frame
}

// State returns copy of current kinematic state
func (s *Simulator) State() KinematicState {
	return s.state
}

// History returns ground-truth position history
func (s *Simulator) History() *History {
	return s.history
}

// TimestampStep returns timestamp increment between consecutive frames
func (s *Simulator) TimestampStep() int64 {
	return s.step
}

// drawDisc fills disc of given radius clipped to the frame
func drawDisc(frame media.Frame, cx, cy, radius int, bgr [3]uint8) {
	r2 := radius * radius
	for y := max(cy-radius, 0); y <= min(cy+radius, frame.Height-1); y++ {
		dy := y - cy
		for x := max(cx-radius, 0); x <= min(cx+radius, frame.Width-1); x++ {
			dx := x - cx
			if dx*dx+dy*dy <= r2 {
				frame.SetBGR(x, y, bgr[0], bgr[1], bgr[2])
			}
		}
	}
}
