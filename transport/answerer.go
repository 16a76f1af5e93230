package transport

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/LdDl/balltrack/signaling"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// AnswererOptions tunes the answering side
type AnswererOptions struct {
	// FrameBuffer of the created peer
	FrameBuffer int
	// Compression enables per-message deflate
	Compression bool
	// HandshakeTimeout defaults to 10s
	HandshakeTimeout time.Duration
	// Logger defaults to slog.Default()
	Logger *slog.Logger
}

func (o *AnswererOptions) defaults() {
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = 10 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Answerer accepts an offered session and connects to the offering side
type Answerer struct {
	opts AnswererOptions

	mu        sync.Mutex
	sessionID uuid.UUID
	peer      *Peer
}

// NewAnswerer creates Answerer
func NewAnswerer(opts AnswererOptions) *Answerer {
	opts.defaults()
	return &Answerer{
		opts: opts,
	}
}

// SetRemoteDescription accepts an offer
func (a *Answerer) SetRemoteDescription(desc signaling.SessionDescription) error {
	id, err := sessionFrom(desc, signaling.SDPTypeOffer)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sessionID = id
	return nil
}

// CreateAnswer returns answer for the accepted offer
func (a *Answerer) CreateAnswer() (signaling.SessionDescription, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sessionID == uuid.Nil {
		return signaling.SessionDescription{}, ErrNoSession
	}
	return signaling.SessionDescription{
		Type: signaling.SDPTypeAnswer,
		SDP:  sessionSDP(a.sessionID),
	}, nil
}

// AddCandidate connects to the candidate address. Once connected, later candidates
// are ignored and the same peer is returned
func (a *Answerer) AddCandidate(ctx context.Context, candidate signaling.Candidate) (*Peer, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.peer != nil {
		return a.peer, nil
	}
	if a.sessionID == uuid.Nil {
		return nil, ErrNoSession
	}
	if !strings.HasPrefix(candidate.Candidate, candidateScheme) {
		return nil, errors.Errorf("unsupported candidate %q", candidate.Candidate)
	}
	url := strings.TrimSuffix(candidate.Candidate, "/") + "/session/" + a.sessionID.String()
	dialer := websocket.Dialer{
		HandshakeTimeout:  a.opts.HandshakeTimeout,
		ReadBufferSize:    64 * 1024,
		WriteBufferSize:   4096,
		EnableCompression: a.opts.Compression,
	}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, errors.Wrapf(err, "Can't connect to %s: status %s", url, resp.Status)
		}
		return nil, errors.Wrapf(err, "Can't connect to %s", url)
	}
	a.opts.Logger.Info("transport: connected", "url", url)
	a.peer = newPeer(a.sessionID, conn, PeerOptions{
		FrameBuffer: a.opts.FrameBuffer,
		Logger:      a.opts.Logger,
	})
	return a.peer, nil
}
