package media

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

const (
	// VideoClockRate is the RTP video clock (ticks per second) used for frame timestamps
	VideoClockRate = 90000
	// BytesPerPixel is the size of a single BGR pixel
	BytesPerPixel = 3
	// MaxFramePixels bounds decoded frame size
	MaxFramePixels = 1 << 24

	headerSize = 24
)

var (
	// ErrShortFrame is returned when an encoded frame is smaller than its header claims
	ErrShortFrame = errors.New("encoded frame is truncated")
	// ErrBadDimensions is returned for empty or oversized frames
	ErrBadDimensions = errors.New("bad frame dimensions")
)

// TimeBase is the duration of one timestamp unit, as a fraction of a second
type TimeBase struct {
	Num int
	Den int
}

// VideoTimeBase returns 1/VideoClockRate
func VideoTimeBase() TimeBase {
	return TimeBase{Num: 1, Den: VideoClockRate}
}

// Frame is a single BGR raster with its presentation timestamp.
// Data is row-major, BytesPerPixel bytes per pixel in B, G, R order.
type Frame struct {
	Width     int
	Height    int
	Data      []byte
	Timestamp int64
	TimeBase  TimeBase
}

// NewFrame allocates a black frame of the given size
func NewFrame(width, height int) Frame {
	return Frame{
		Width:    width,
		Height:   height,
		Data:     make([]byte, width*height*BytesPerPixel),
		TimeBase: VideoTimeBase(),
	}
}

// BGR returns pixel's channels. No bounds checking is done
func (f Frame) BGR(x, y int) (uint8, uint8, uint8) {
	idx := (y*f.Width + x) * BytesPerPixel
	return f.Data[idx], f.Data[idx+1], f.Data[idx+2]
}

// SetBGR sets pixel's channels. No bounds checking is done
func (f Frame) SetBGR(x, y int, b, g, r uint8) {
	idx := (y*f.Width + x) * BytesPerPixel
	f.Data[idx] = b
	f.Data[idx+1] = g
	f.Data[idx+2] = r
}

// Seconds converts frame's timestamp to seconds using its time base
func (f Frame) Seconds() float64 {
	if f.TimeBase.Den == 0 {
		return 0
	}
	return float64(f.Timestamp) * float64(f.TimeBase.Num) / float64(f.TimeBase.Den)
}

// MarshalBinary encodes frame as a fixed big-endian header followed by raw pixels
func (f Frame) MarshalBinary() ([]byte, error) {
	if len(f.Data) != f.Width*f.Height*BytesPerPixel {
		return nil, errors.Errorf("frame data has %d bytes, expected %d for %dx%d", len(f.Data), f.Width*f.Height*BytesPerPixel, f.Width, f.Height)
	}
	buf := make([]byte, headerSize+len(f.Data))
	binary.BigEndian.PutUint64(buf[0:8], uint64(f.Timestamp))
	binary.BigEndian.PutUint32(buf[8:12], uint32(f.Width))
	binary.BigEndian.PutUint32(buf[12:16], uint32(f.Height))
	binary.BigEndian.PutUint32(buf[16:20], uint32(f.TimeBase.Num))
	binary.BigEndian.PutUint32(buf[20:24], uint32(f.TimeBase.Den))
	copy(buf[headerSize:], f.Data)
	return buf, nil
}

// UnmarshalFrame decodes frame produced by MarshalBinary. Pixels are copied
func UnmarshalFrame(data []byte) (Frame, error) {
	if len(data) < headerSize {
		return Frame{}, errors.Wrapf(ErrShortFrame, "got %d bytes of header", len(data))
	}
	frame := Frame{
		Timestamp: int64(binary.BigEndian.Uint64(data[0:8])),
		Width:     int(binary.BigEndian.Uint32(data[8:12])),
		Height:    int(binary.BigEndian.Uint32(data[12:16])),
		TimeBase: TimeBase{
			Num: int(binary.BigEndian.Uint32(data[16:20])),
			Den: int(binary.BigEndian.Uint32(data[20:24])),
		},
	}
	width := uint64(binary.BigEndian.Uint32(data[8:12]))
	height := uint64(binary.BigEndian.Uint32(data[12:16]))
	if width == 0 || height == 0 || width*height > MaxFramePixels || frame.Width <= 0 || frame.Height <= 0 {
		return Frame{}, errors.Wrapf(ErrBadDimensions, "%dx%d", width, height)
	}
	expected := frame.Width * frame.Height * BytesPerPixel
	if len(data)-headerSize != expected {
		return Frame{}, errors.Wrapf(ErrShortFrame, "got %d bytes of pixels for %dx%d", len(data)-headerSize, frame.Width, frame.Height)
	}
	frame.Data = make([]byte, expected)
	copy(frame.Data, data[headerSize:])
	return frame, nil
}
