package telemetry

import (
	"log/slog"
	"sync"
)

// Dispatcher decodes inbound lines and routes them to handlers registered per message kind.
// Dispatch is synchronous, so handlers observe messages in arrival order
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[Kind]func(Message)
	logger   *slog.Logger
}

// NewDispatcher creates dispatcher without handlers. Nil logger means slog.Default()
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		handlers: make(map[Kind]func(Message)),
		logger:   logger,
	}
}

// Handle registers handler for the kind, replacing previous one
func (d *Dispatcher) Handle(kind Kind, handler func(Message)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[kind] = handler
}

// HandleLocation registers typed handler for position reports
func (d *Dispatcher) HandleLocation(handler func(Location)) {
	d.Handle(KindLocation, func(msg Message) {
		handler(msg.(Location))
	})
}

// HandleAck registers typed handler for acknowledgments
func (d *Dispatcher) HandleAck(handler func(Ack)) {
	d.Handle(KindAck, func(msg Message) {
		handler(msg.(Ack))
	})
}

// Dispatch decodes raw line and invokes matching handler. Returns decoded message.
// Unrecognized lines without a registered handler are logged and dropped
func (d *Dispatcher) Dispatch(raw string) Message {
	msg := Decode(raw)
	d.mu.RLock()
	handler, ok := d.handlers[msg.Kind()]
	d.mu.RUnlock()
	if !ok {
		if u, isUnrecognized := msg.(Unrecognized); isUnrecognized {
			d.logger.Warn("dropping malformed message", "raw", u.Raw, "error", u.Err)
		} else {
			d.logger.Debug("no handler for message", "kind", msg.Kind().String(), "raw", raw)
		}
		return msg
	}
	handler(msg)
	return msg
}
