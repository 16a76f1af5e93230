// Package transport carries the video track and the data channel between the two
// peers over a single WebSocket connection: binary messages are encoded frames,
// text messages belong to the data channel.
package transport

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LdDl/balltrack/media"
	"github.com/LdDl/balltrack/telemetry"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer: enough for a raw full HD frame
	maxMessageSize = 8 << 20

	// DefaultFrameBuffer is the number of received frames kept before the oldest is dropped
	DefaultFrameBuffer = 8
)

// PeerOptions tunes a peer connection
type PeerOptions struct {
	// FrameBuffer defaults to DefaultFrameBuffer
	FrameBuffer int
	// Logger defaults to slog.Default()
	Logger *slog.Logger
}

func (o *PeerOptions) defaults() {
	if o.FrameBuffer <= 0 {
		o.FrameBuffer = DefaultFrameBuffer
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Peer is an established session with the remote side
type Peer struct {
	sessionID uuid.UUID
	conn      *websocket.Conn
	opts      PeerOptions

	writeMu sync.Mutex
	frames  chan media.Frame
	dropped atomic.Int64

	startOnce sync.Once
	closeOnce sync.Once
	done      chan struct{}
}

func newPeer(sessionID uuid.UUID, conn *websocket.Conn, opts PeerOptions) *Peer {
	opts.defaults()
	return &Peer{
		sessionID: sessionID,
		conn:      conn,
		opts:      opts,
		frames:    make(chan media.Frame, opts.FrameBuffer),
		done:      make(chan struct{}),
	}
}

// SessionID returns identifier of the session this peer belongs to
func (p *Peer) SessionID() uuid.UUID {
	return p.sessionID
}

// Start launches read and keepalive loops. Data channel messages are passed to
// onMessage in arrival order from a single goroutine. Nil onMessage drops them
func (p *Peer) Start(onMessage func(msg string)) {
	p.startOnce.Do(func() {
		go p.readPump(onMessage)
		go p.pingPump()
	})
}

// Send writes data channel message
func (p *Peer) Send(msg string) error {
	return p.write(websocket.TextMessage, []byte(msg))
}

// SendFrame writes encoded frame to the video track
func (p *Peer) SendFrame(frame media.Frame) error {
	data, err := frame.MarshalBinary()
	if err != nil {
		return errors.Wrap(err, "Can't encode frame")
	}
	return p.write(websocket.BinaryMessage, data)
}

// Recv returns next received frame. After the connection ends buffered frames are
// still returned, then io.EOF
func (p *Peer) Recv(ctx context.Context) (media.Frame, error) {
	select {
	case frame := <-p.frames:
		return frame, nil
	case <-p.done:
		select {
		case frame := <-p.frames:
			return frame, nil
		default:
			return media.Frame{}, io.EOF
		}
	case <-ctx.Done():
		return media.Frame{}, ctx.Err()
	}
}

// Done is closed when the connection ends
func (p *Peer) Done() <-chan struct{} {
	return p.done
}

// Dropped returns number of received frames dropped because the buffer was full
func (p *Peer) Dropped() int64 {
	return p.dropped.Load()
}

// Close sends close message and closes connection
func (p *Peer) Close() error {
	var err error
	p.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		p.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		err = p.conn.Close()
		close(p.done)
	})
	return err
}

func (p *Peer) shutdown() {
	p.closeOnce.Do(func() {
		p.conn.Close()
		close(p.done)
	})
}

func (p *Peer) write(messageType int, data []byte) error {
	select {
	case <-p.done:
		return telemetry.ErrChannelClosed
	default:
	}
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	err := p.conn.WriteMessage(messageType, data)
	if err != nil {
		select {
		case <-p.done:
			return telemetry.ErrChannelClosed
		default:
		}
		if errors.Is(err, websocket.ErrCloseSent) {
			return telemetry.ErrChannelClosed
		}
		return errors.Wrap(err, "Can't write message")
	}
	return nil
}

func (p *Peer) readPump(onMessage func(string)) {
	defer p.shutdown()
	log := p.opts.Logger

	p.conn.SetReadLimit(maxMessageSize)
	p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		p.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, data, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("transport: read failed", "session_id", p.sessionID.String(), "error", err)
			} else {
				log.Info("transport: peer closed", "session_id", p.sessionID.String())
			}
			return
		}
		p.conn.SetReadDeadline(time.Now().Add(pongWait))
		switch messageType {
		case websocket.TextMessage:
			if onMessage != nil {
				onMessage(string(data))
			}
		case websocket.BinaryMessage:
			frame, err := media.UnmarshalFrame(data)
			if err != nil {
				log.Warn("transport: bad frame", "size", len(data), "error", err)
				continue
			}
			p.enqueue(frame)
		}
	}
}

// enqueue drops the oldest buffered frame when the buffer is full. Only readPump calls it
func (p *Peer) enqueue(frame media.Frame) {
	for {
		select {
		case p.frames <- frame:
			return
		default:
		}
		select {
		case <-p.frames:
			p.dropped.Add(1)
		default:
		}
	}
}

func (p *Peer) pingPump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			err := p.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			if err != nil {
				p.opts.Logger.Debug("transport: ping failed", "error", err)
				return
			}
		}
	}
}
