// Package signaling exchanges session descriptions and connectivity candidates
// between the two peers before the transport session is established.
package signaling

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// SDPType distinguishes offer from answer
type SDPType string

const (
	SDPTypeOffer  SDPType = "offer"
	SDPTypeAnswer SDPType = "answer"
)

const (
	typeCandidate = "candidate"
	typeBye       = "bye"
)

// Kind tags message variants
type Kind int

const (
	KindUnrecognized Kind = iota
	KindSessionDescription
	KindCandidate
	KindBye
)

func (k Kind) String() string {
	switch k {
	case KindSessionDescription:
		return "session_description"
	case KindCandidate:
		return "candidate"
	case KindBye:
		return "bye"
	default:
		return "unrecognized"
	}
}

// Message is one of SessionDescription, Candidate, Bye or Unrecognized
type Message interface {
	Kind() Kind
}

// SessionDescription describes a session offered or accepted by a peer
type SessionDescription struct {
	Type SDPType
	SDP  string
}

func (SessionDescription) Kind() Kind { return KindSessionDescription }

// Candidate is an address the remote peer may connect to
type Candidate struct {
	Candidate     string
	SDPMid        string
	SDPMLineIndex int
}

func (Candidate) Kind() Kind { return KindCandidate }

// Bye means no more signaling messages will follow
type Bye struct{}

func (Bye) Kind() Kind { return KindBye }

// Unrecognized carries a payload which could not be decoded
type Unrecognized struct {
	Raw []byte
	Err error
}

func (Unrecognized) Kind() Kind { return KindUnrecognized }

type envelope struct {
	Type      string `json:"type"`
	SDP       string `json:"sdp,omitempty"`
	Candidate string `json:"candidate,omitempty"`
	ID        string `json:"id,omitempty"`
	Label     *int   `json:"label,omitempty"`
}

// Encode serializes message to a single-line JSON object tagged with "type"
func Encode(msg Message) ([]byte, error) {
	var env envelope
	switch m := msg.(type) {
	case SessionDescription:
		if m.Type != SDPTypeOffer && m.Type != SDPTypeAnswer {
			return nil, errors.Errorf("unknown session description type %q", m.Type)
		}
		env = envelope{Type: string(m.Type), SDP: m.SDP}
	case Candidate:
		label := m.SDPMLineIndex
		env = envelope{Type: typeCandidate, Candidate: m.Candidate, ID: m.SDPMid, Label: &label}
	case Bye:
		env = envelope{Type: typeBye}
	default:
		return nil, errors.Errorf("can't encode message of kind %d", msg.Kind())
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, errors.Wrap(err, "Can't marshal signaling message")
	}
	return data, nil
}

// Decode parses a JSON object produced by Encode. Anything else yields Unrecognized
func Decode(data []byte) Message {
	var env envelope
	err := json.Unmarshal(data, &env)
	if err != nil {
		return Unrecognized{Raw: data, Err: errors.Wrap(err, "Can't unmarshal signaling message")}
	}
	switch env.Type {
	case string(SDPTypeOffer), string(SDPTypeAnswer):
		return SessionDescription{Type: SDPType(env.Type), SDP: env.SDP}
	case typeCandidate:
		c := Candidate{Candidate: env.Candidate, SDPMid: env.ID}
		if env.Label != nil {
			c.SDPMLineIndex = *env.Label
		}
		return c
	case typeBye:
		return Bye{}
	}
	return Unrecognized{Raw: data, Err: errors.Errorf("unknown signaling message type %q", env.Type)}
}
