package transport

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/LdDl/balltrack/signaling"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// OffererOptions tunes the offering side
type OffererOptions struct {
	// Listen address for incoming peer. Default: 127.0.0.1:0
	Listen string
	// FrameBuffer of the created peer
	FrameBuffer int
	// Compression enables per-message deflate
	Compression bool
	// AnswerTimeout is how long a connecting peer waits for the answer to arrive. Default: 10s
	AnswerTimeout time.Duration
	// Logger defaults to slog.Default()
	Logger *slog.Logger
}

func (o *OffererOptions) defaults() {
	if o.Listen == "" {
		o.Listen = "127.0.0.1:0"
	}
	if o.AnswerTimeout <= 0 {
		o.AnswerTimeout = 10 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Offerer creates the session and waits for the answering side to connect
type Offerer struct {
	sessionID uuid.UUID
	opts      OffererOptions
	router    chi.Router
	upgrader  websocket.Upgrader
	peers     chan *Peer
	answered  chan struct{}

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
	remote   *signaling.SessionDescription
	accepted bool
}

// NewOfferer creates Offerer with a fresh session id
func NewOfferer(opts OffererOptions) *Offerer {
	opts.defaults()
	o := &Offerer{
		sessionID: uuid.New(),
		opts:      opts,
		router:    chi.NewRouter(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:    4096,
			WriteBufferSize:   64 * 1024,
			EnableCompression: opts.Compression,
		},
		peers:    make(chan *Peer, 1),
		answered: make(chan struct{}),
	}
	o.router.Get("/session/{sessionID}", o.handleSession)
	return o
}

// SessionID returns identifier of the offered session
func (o *Offerer) SessionID() uuid.UUID {
	return o.sessionID
}

// Handle mounts additional HTTP handler on the offerer's router
func (o *Offerer) Handle(pattern string, handler http.Handler) {
	o.router.Handle(pattern, handler)
}

// CreateOffer starts listening and returns session description with a candidate to connect to
func (o *Offerer) CreateOffer() (signaling.SessionDescription, signaling.Candidate, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.listener == nil {
		listener, err := net.Listen("tcp", o.opts.Listen)
		if err != nil {
			return signaling.SessionDescription{}, signaling.Candidate{}, errors.Wrapf(err, "Can't listen on %s", o.opts.Listen)
		}
		o.listener = listener
		o.server = &http.Server{
			Handler:           o.router,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func(server *http.Server) {
			err := server.Serve(listener)
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				o.opts.Logger.Error("transport: http server failed", "error", err)
			}
		}(o.server)
		o.opts.Logger.Info("transport: listening", "address", listener.Addr().String(), "session_id", o.sessionID.String())
	}
	offer := signaling.SessionDescription{
		Type: signaling.SDPTypeOffer,
		SDP:  sessionSDP(o.sessionID),
	}
	candidate := signaling.Candidate{
		Candidate: candidateScheme + o.listener.Addr().String(),
		SDPMid:    "0",
	}
	return offer, candidate, nil
}

// Addr returns listening address, nil before CreateOffer
func (o *Offerer) Addr() net.Addr {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.listener == nil {
		return nil
	}
	return o.listener.Addr()
}

// SetRemoteDescription accepts answer for the offered session
func (o *Offerer) SetRemoteDescription(desc signaling.SessionDescription) error {
	id, err := sessionFrom(desc, signaling.SDPTypeAnswer)
	if err != nil {
		return err
	}
	if id != o.sessionID {
		return errors.Wrapf(ErrSessionMismatch, "answer for %s", id)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.remote == nil {
		close(o.answered)
	}
	o.remote = &desc
	return nil
}

// RemoteDescription returns the accepted answer
func (o *Offerer) RemoteDescription() (signaling.SessionDescription, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.remote == nil {
		return signaling.SessionDescription{}, false
	}
	return *o.remote, true
}

// Accept waits for the answering side to connect
func (o *Offerer) Accept(ctx context.Context) (*Peer, error) {
	select {
	case peer := <-o.peers:
		return peer, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops HTTP server. Accepted peers are closed by their owners
func (o *Offerer) Close(ctx context.Context) error {
	o.mu.Lock()
	server := o.server
	o.mu.Unlock()
	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

func (o *Offerer) handleSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if id != o.sessionID.String() {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	// The answer travels over signaling and may arrive after the peer dials
	timer := time.NewTimer(o.opts.AnswerTimeout)
	defer timer.Stop()
	select {
	case <-o.answered:
	case <-timer.C:
		http.Error(w, "session not answered", http.StatusForbidden)
		return
	case <-r.Context().Done():
		return
	}
	o.mu.Lock()
	if o.accepted {
		o.mu.Unlock()
		http.Error(w, "session already connected", http.StatusConflict)
		return
	}
	o.accepted = true
	o.mu.Unlock()

	conn, err := o.upgrader.Upgrade(w, r, nil)
	if err != nil {
		o.opts.Logger.Warn("transport: upgrade failed", "remote", r.RemoteAddr, "error", err)
		o.mu.Lock()
		o.accepted = false
		o.mu.Unlock()
		return
	}
	o.opts.Logger.Info("transport: peer connected", "remote", r.RemoteAddr, "session_id", id)
	o.peers <- newPeer(o.sessionID, conn, PeerOptions{
		FrameBuffer: o.opts.FrameBuffer,
		Logger:      o.opts.Logger,
	})
}
