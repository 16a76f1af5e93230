package main

import (
	"context"
	"flag"
	"log/slog"
	"testing"

	"github.com/LdDl/balltrack/signaling"
	"github.com/LdDl/balltrack/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedSignaling struct {
	incoming []signaling.Message
	sent     []signaling.Message
	onSend   func(signaling.Message)
}

func (s *scriptedSignaling) Send(ctx context.Context, msg signaling.Message) error {
	s.sent = append(s.sent, msg)
	if s.onSend != nil {
		s.onSend(msg)
	}
	return nil
}

func (s *scriptedSignaling) Receive(ctx context.Context) (signaling.Message, error) {
	if len(s.incoming) == 0 {
		return signaling.Bye{}, nil
	}
	msg := s.incoming[0]
	s.incoming = s.incoming[1:]
	return msg, nil
}

func (s *scriptedSignaling) Close() error { return nil }

func TestSmoothingFlag(t *testing.T) {
	f := flag.Lookup("smoothing")
	require.NotNil(t, f)
	assert.Equal(t, "false", f.DefValue)
	for _, name := range []string{"config", "signaling", "signaling_host", "signaling_port", "log-level"} {
		assert.NotNil(t, flag.Lookup(name), name)
	}
}

func TestNegotiate(t *testing.T) {
	offerer := transport.NewOfferer(transport.OffererOptions{})
	defer offerer.Close(context.Background())
	offer, candidate, err := offerer.CreateOffer()
	require.NoError(t, err)

	sig := &scriptedSignaling{incoming: []signaling.Message{
		signaling.Unrecognized{},
		offer,
		signaling.Candidate{Candidate: "tcp 127.0.0.1 1"},
		candidate,
	}}
	sig.onSend = func(msg signaling.Message) {
		if answer, ok := msg.(signaling.SessionDescription); ok {
			require.NoError(t, offerer.SetRemoteDescription(answer))
		}
	}
	peer, err := negotiate(context.Background(), sig, transport.NewAnswerer(transport.AnswererOptions{}), slog.Default())
	require.NoError(t, err)
	defer peer.Close()

	require.Len(t, sig.sent, 1)
	answer, ok := sig.sent[0].(signaling.SessionDescription)
	require.True(t, ok)
	assert.Equal(t, signaling.SDPTypeAnswer, answer.Type)
	assert.Equal(t, offerer.SessionID(), peer.SessionID())

	accepted, err := offerer.Accept(context.Background())
	require.NoError(t, err)
	accepted.Close()
}

func TestNegotiateBye(t *testing.T) {
	sig := &scriptedSignaling{}
	_, err := negotiate(context.Background(), sig, transport.NewAnswerer(transport.AnswererOptions{}), slog.Default())
	assert.Error(t, err)
}
