package vision

import (
	"testing"

	"github.com/LdDl/balltrack/media"
)

func TestBGRToHSV(t *testing.T) {
	cases := []struct {
		name    string
		b, g, r uint8
		correct HSV
	}{
		{"white", 255, 255, 255, HSV{0, 0, 255}},
		{"black", 0, 0, 0, HSV{0, 0, 0}},
		{"red", 0, 0, 255, HSV{0, 255, 255}},
		{"green", 0, 255, 0, HSV{60, 255, 255}},
		{"blue", 255, 0, 0, HSV{120, 255, 255}},
		{"gray", 128, 128, 128, HSV{0, 0, 128}},
		{"hue wraps to zero", 1, 0, 255, HSV{0, 255, 255}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			answer := BGRToHSV(tc.b, tc.g, tc.r)
			if answer != tc.correct {
				t.Errorf("Wrong answer: %+v, correct answer: %+v", answer, tc.correct)
			}
		})
	}
}

func TestWhiteRange(t *testing.T) {
	rng := WhiteRange()
	if !rng.Contains(BGRToHSV(255, 255, 255)) {
		t.Errorf("White should be in range")
	}
	if !rng.Contains(BGRToHSV(210, 210, 210)) {
		t.Errorf("Light gray should be in range")
	}
	if rng.Contains(BGRToHSV(0, 0, 0)) {
		t.Errorf("Black should not be in range")
	}
	if rng.Contains(BGRToHSV(0, 0, 255)) {
		t.Errorf("Saturated red should not be in range")
	}
}

func TestInRange(t *testing.T) {
	frame := media.NewFrame(4, 3)
	frame.SetBGR(1, 1, 255, 255, 255)
	frame.SetBGR(3, 2, 240, 240, 240)
	frame.SetBGR(0, 0, 0, 0, 255)
	mask := InRange(frame, WhiteRange())
	if mask.Count() != 2 {
		t.Errorf("Expected 2 selected pixels, got %d", mask.Count())
	}
	if !mask.At(1, 1) || !mask.At(3, 2) || mask.At(0, 0) {
		t.Errorf("Wrong pixels selected: %v", mask.Pix)
	}
	if mask.At(-1, 0) || mask.At(4, 0) {
		t.Errorf("Pixels outside of mask should be unselected")
	}
}

func TestInRangeMalformedFrame(t *testing.T) {
	frames := []media.Frame{
		{Width: 0, Height: 5},
		{Width: 4, Height: 4, Data: make([]byte, 10)},
	}
	for _, frame := range frames {
		mask := InRange(frame, WhiteRange())
		if mask.Count() != 0 || len(mask.Pix) != 0 {
			t.Errorf("Frame %dx%d should give empty mask", frame.Width, frame.Height)
		}
	}
	if _, ok := NewEstimatorDefault().Estimate(frames[0]); ok {
		t.Errorf("Zero-sized frame should have no estimate")
	}
}
