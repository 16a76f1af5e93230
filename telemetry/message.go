// Package telemetry implements the line protocol exchanged over the data channel:
// position reports sent by the tracking side and acknowledgments sent back by the
// simulation side.
package telemetry

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/LdDl/balltrack/vision"
	"github.com/pkg/errors"
)

var (
	// ErrMalformed marks a line that does not follow the protocol grammar
	ErrMalformed = errors.New("malformed telemetry message")
)

const (
	locationToken  = "Location"
	timestampToken = "Timestamp"
	resultToken    = "result"
	displayedToken = "displayed"
)

// Kind tags message variants
type Kind int

const (
	KindUnrecognized Kind = iota
	KindLocation
	KindAck
)

func (k Kind) String() string {
	switch k {
	case KindLocation:
		return "location"
	case KindAck:
		return "ack"
	default:
		return "unrecognized"
	}
}

// Message is one of Location, Ack or Unrecognized
type Message interface {
	Kind() Kind
	String() string
}

// Location reports estimated ball position for a frame timestamp.
// Coordinates are carried with two decimal digits on the wire
type Location struct {
	X         float64
	Y         float64
	Timestamp int64
}

// NewLocation builds a position report from an estimate, rounding coordinates to 2 decimals
func NewLocation(estimate vision.Estimate) Location {
	return Location{
		X:         Round2(estimate.X),
		Y:         Round2(estimate.Y),
		Timestamp: estimate.Timestamp,
	}
}

func (Location) Kind() Kind { return KindLocation }

// String renders wire representation: "Location <x> <y> Timestamp <ts>"
func (l Location) String() string {
	return fmt.Sprintf("%s %.2f %.2f %s %d", locationToken, l.X, l.Y, timestampToken, l.Timestamp)
}

// Ack acknowledges a position report
type Ack struct {
	Timestamp int64
}

func (Ack) Kind() Kind { return KindAck }

// String renders wire representation: "result <ts> displayed"
func (a Ack) String() string {
	return fmt.Sprintf("%s %d %s", resultToken, a.Timestamp, displayedToken)
}

// Unrecognized carries a line which could not be decoded
type Unrecognized struct {
	Raw string
	Err error
}

func (Unrecognized) Kind() Kind { return KindUnrecognized }

func (u Unrecognized) String() string {
	return u.Raw
}

// Decode parses a single protocol line. It never fails: lines that do not follow the
// grammar are returned as Unrecognized with the reason
func Decode(line string) Message {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Unrecognized{Raw: line, Err: errors.Wrap(ErrMalformed, "empty line")}
	}
	switch fields[0] {
	case locationToken:
		loc, err := decodeLocation(fields)
		if err != nil {
			return Unrecognized{Raw: line, Err: err}
		}
		return loc
	case resultToken:
		ack, err := decodeAck(fields)
		if err != nil {
			return Unrecognized{Raw: line, Err: err}
		}
		return ack
	}
	return Unrecognized{Raw: line, Err: errors.Wrapf(ErrMalformed, "unknown message type %q", fields[0])}
}

func decodeLocation(fields []string) (Location, error) {
	if len(fields) != 5 || fields[3] != timestampToken {
		return Location{}, errors.Wrap(ErrMalformed, "location: want 'Location <x> <y> Timestamp <ts>'")
	}
	x, err := parseCoordinate(fields[1])
	if err != nil {
		return Location{}, errors.Wrap(err, "location: x")
	}
	y, err := parseCoordinate(fields[2])
	if err != nil {
		return Location{}, errors.Wrap(err, "location: y")
	}
	ts, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return Location{}, errors.Wrapf(ErrMalformed, "location: timestamp %q", fields[4])
	}
	return Location{X: x, Y: y, Timestamp: ts}, nil
}

func decodeAck(fields []string) (Ack, error) {
	if len(fields) != 3 || fields[2] != displayedToken {
		return Ack{}, errors.Wrap(ErrMalformed, "ack: want 'result <ts> displayed'")
	}
	ts, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return Ack{}, errors.Wrapf(ErrMalformed, "ack: timestamp %q", fields[1])
	}
	return Ack{Timestamp: ts}, nil
}

func parseCoordinate(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.Wrapf(ErrMalformed, "coordinate %q", s)
	}
	return v, nil
}

// Round2 rounds to 2 decimal digits exactly the way the wire format does,
// so that Round2(v) == Decode(Location{X: v}.String()).X
func Round2(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	if err != nil {
		return v
	}
	return r
}
