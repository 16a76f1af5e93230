package signaling

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/LdDl/balltrack/config"
	"github.com/pkg/errors"
)

const (
	MethodTCPSocket  = "tcp-socket"
	MethodUnixSocket = "unix-socket"

	dialRetryInterval = 100 * time.Millisecond
)

var (
	// ErrUnknownMethod is returned by New for unsupported signaling methods
	ErrUnknownMethod = errors.New("unknown signaling method")
)

// Signaling is a bidirectional message exchange with the remote peer
type Signaling interface {
	Send(ctx context.Context, msg Message) error
	Receive(ctx context.Context) (Message, error)
	Close() error
}

// New creates signaling for the configured method
func New(cfg config.SignalingConfig, logger *slog.Logger) (Signaling, error) {
	switch cfg.Method {
	case MethodTCPSocket:
		return NewStream("tcp", net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)), logger), nil
	case MethodUnixSocket:
		return NewStream("unix", cfg.Path, logger), nil
	}
	return nil, errors.Wrapf(ErrUnknownMethod, "%q", cfg.Method)
}

// Stream carries newline-delimited JSON messages over a stream socket.
// The side which sends first listens and accepts a single peer, the side
// which receives first dials (retrying until ctx ends)
type Stream struct {
	network string
	address string
	logger  *slog.Logger

	// connectMu serializes connection establishment, mu guards the fields below
	connectMu sync.Mutex
	mu        sync.Mutex
	listener  net.Listener
	conn      net.Conn
	reader    *bufio.Reader
	closed    bool

	writeMu sync.Mutex
}

// NewStream creates unconnected stream signaling. Nil logger means slog.Default()
func NewStream(network, address string, logger *slog.Logger) *Stream {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stream{
		network: network,
		address: address,
		logger:  logger,
	}
}

// Send writes message, listening for the peer first when not connected yet
func (s *Stream) Send(ctx context.Context, msg Message) error {
	data, err := Encode(msg)
	if err != nil {
		return err
	}
	conn, _, err := s.connection(ctx, true)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetWriteDeadline(deadline)
		defer conn.SetWriteDeadline(time.Time{})
	}
	_, err = conn.Write(append(data, '\n'))
	if err != nil {
		return errors.Wrap(err, "Can't write signaling message")
	}
	s.logger.Debug("signaling: sent", "kind", msg.Kind().String(), "size", len(data))
	return nil
}

// Receive reads next message, dialing the peer first when not connected yet.
// Closed connection yields Bye
func (s *Stream) Receive(ctx context.Context) (Message, error) {
	conn, reader, err := s.connection(ctx, false)
	if err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Now())
	})
	defer stop()
	line, err := reader.ReadBytes('\n')
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
			return Bye{}, nil
		}
		return nil, errors.Wrap(err, "Can't read signaling message")
	}
	msg := Decode(line)
	if u, ok := msg.(Unrecognized); ok {
		s.logger.Warn("signaling: unrecognized message", "error", u.Err)
	}
	return msg, nil
}

// Close closes connection and listener
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	var err error
	if s.conn != nil {
		err = s.conn.Close()
	}
	if s.listener != nil {
		if lerr := s.listener.Close(); lerr != nil && err == nil {
			err = lerr
		}
	}
	return err
}

// Addr returns listening address once the stream listens
func (s *Stream) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Stream) connection(ctx context.Context, listen bool) (net.Conn, *bufio.Reader, error) {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()
	s.mu.Lock()
	closed, conn, reader := s.closed, s.conn, s.reader
	s.mu.Unlock()
	if closed {
		return nil, nil, errors.Wrap(net.ErrClosed, "signaling is closed")
	}
	if conn != nil {
		return conn, reader, nil
	}
	var err error
	if listen {
		conn, err = s.accept(ctx)
	} else {
		conn, err = s.dial(ctx)
	}
	if err != nil {
		return nil, nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		conn.Close()
		return nil, nil, errors.Wrap(net.ErrClosed, "signaling is closed")
	}
	s.conn = conn
	s.reader = bufio.NewReader(conn)
	return s.conn, s.reader, nil
}

func (s *Stream) accept(ctx context.Context) (net.Conn, error) {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()
	if listener == nil {
		if s.network == "unix" {
			os.Remove(s.address)
		}
		var lc net.ListenConfig
		var err error
		listener, err = lc.Listen(ctx, s.network, s.address)
		if err != nil {
			return nil, errors.Wrapf(err, "Can't listen on %s %s", s.network, s.address)
		}
		s.mu.Lock()
		s.listener = listener
		s.mu.Unlock()
		s.logger.Info("signaling: waiting for peer", "network", s.network, "address", listener.Addr().String())
	}
	stop := context.AfterFunc(ctx, func() {
		listener.Close()
	})
	defer stop()
	conn, err := listener.Accept()
	if err != nil {
		if ctx.Err() != nil {
			s.mu.Lock()
			s.listener = nil
			s.mu.Unlock()
			return nil, ctx.Err()
		}
		return nil, errors.Wrap(err, "Can't accept signaling peer")
	}
	s.logger.Info("signaling: peer connected", "remote", conn.RemoteAddr().String())
	return conn, nil
}

func (s *Stream) dial(ctx context.Context) (net.Conn, error) {
	var dialer net.Dialer
	for {
		conn, err := dialer.DialContext(ctx, s.network, s.address)
		if err == nil {
			s.logger.Info("signaling: connected", "network", s.network, "address", s.address)
			return conn, nil
		}
		s.logger.Debug("signaling: dial failed, retrying", "address", s.address, "error", err)
		select {
		case <-ctx.Done():
			return nil, errors.Wrapf(ctx.Err(), "Can't connect to %s %s", s.network, s.address)
		case <-time.After(dialRetryInterval):
		}
	}
}
