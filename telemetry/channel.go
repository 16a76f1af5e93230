package telemetry

import (
	"github.com/pkg/errors"
)

var (
	// ErrChannelClosed is returned by Channel.Send once the remote side is gone
	ErrChannelClosed = errors.New("data channel closed")
)

// Channel is the outbound side of an ordered reliable message channel
type Channel interface {
	Send(msg string) error
}

// ChannelFunc adapts a function to Channel
type ChannelFunc func(msg string) error

// Send calls f(msg)
func (f ChannelFunc) Send(msg string) error {
	return f(msg)
}
