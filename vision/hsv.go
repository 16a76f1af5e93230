package vision

import (
	"math"

	"github.com/LdDl/balltrack/media"
)

// HSV is a color in 8-bit HSV space: H in [0, 180), S and V in [0, 255]
type HSV struct {
	H uint8
	S uint8
	V uint8
}

// HSVRange is an inclusive range of HSV colors
type HSVRange struct {
	Lower HSV
	Upper HSV
}

// WhiteRange selects near-white pixels: any hue, low saturation, high value
func WhiteRange() HSVRange {
	return HSVRange{
		Lower: HSV{H: 0, S: 0, V: 200},
		Upper: HSV{H: 180, S: 55, V: 255},
	}
}

// Contains checks all three channels against the inclusive bounds
func (rng HSVRange) Contains(c HSV) bool {
	return c.H >= rng.Lower.H && c.H <= rng.Upper.H &&
		c.S >= rng.Lower.S && c.S <= rng.Upper.S &&
		c.V >= rng.Lower.V && c.V <= rng.Upper.V
}

// BGRToHSV converts 8-bit BGR color the same way OpenCV does for 8-bit images:
// hue is halved to fit [0, 180)
func BGRToHSV(b, g, r uint8) HSV {
	maxC := max(r, g, b)
	minC := min(r, g, b)
	v := float64(maxC)
	delta := float64(maxC) - float64(minC)

	s := 0.0
	if maxC != 0 {
		s = 255 * delta / v
	}

	h := 0.0
	if delta != 0 {
		switch maxC {
		case r:
			h = 60 * (float64(g) - float64(b)) / delta
		case g:
			h = 120 + 60*(float64(b)-float64(r))/delta
		default:
			h = 240 + 60*(float64(r)-float64(g))/delta
		}
		if h < 0 {
			h += 360
		}
	}
	hue := math.Round(h / 2)
	if hue >= 180 {
		hue -= 180
	}
	return HSV{
		H: uint8(hue),
		S: uint8(math.Round(s)),
		V: maxC,
	}
}

// Mask is a binary image, true marks selected pixels
type Mask struct {
	Width  int
	Height int
	Pix    []bool
}

// NewMask creates empty mask
func NewMask(width, height int) *Mask {
	return &Mask{
		Width:  width,
		Height: height,
		Pix:    make([]bool, width*height),
	}
}

// At returns false outside of the mask
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Pix[y*m.Width+x]
}

// Set marks pixel
func (m *Mask) Set(x, y int, v bool) {
	m.Pix[y*m.Width+x] = v
}

// Count returns number of selected pixels
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v {
			n++
		}
	}
	return n
}

// InRange thresholds every pixel of the BGR frame against the HSV range
func InRange(frame media.Frame, rng HSVRange) *Mask {
	if frame.Width <= 0 || frame.Height <= 0 || len(frame.Data) < frame.Width*frame.Height*media.BytesPerPixel {
		return NewMask(0, 0)
	}
	mask := NewMask(frame.Width, frame.Height)
	for i := range mask.Pix {
		idx := i * media.BytesPerPixel
		mask.Pix[i] = rng.Contains(BGRToHSV(frame.Data[idx], frame.Data[idx+1], frame.Data[idx+2]))
	}
	return mask
}
