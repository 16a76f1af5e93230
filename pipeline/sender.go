package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LdDl/balltrack/telemetry"
	"github.com/LdDl/balltrack/vision"
	"github.com/pkg/errors"
)

// SenderOptions tunes the telemetry sender
type SenderOptions struct {
	// Interval is the polling period. Default: 100ms
	Interval time.Duration
	// PendingAcks bounds the number of reports waiting for acknowledgment. Default: 256
	PendingAcks int
	// Logger defaults to slog.Default()
	Logger *slog.Logger
	// Now defaults to time.Now
	Now func() time.Time
}

func (o *SenderOptions) defaults() {
	if o.Interval <= 0 {
		o.Interval = 100 * time.Millisecond
	}
	if o.PendingAcks <= 0 {
		o.PendingAcks = 256
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// SenderStats are point-in-time counters
type SenderStats struct {
	Polls      int64         `json:"polls"`
	Sent       int64         `json:"sent"`
	Errors     int64         `json:"errors"`
	Acks       int64         `json:"acks"`
	AvgLatency time.Duration `json:"avg_latency"`
}

// TelemetrySender polls SharedEstimate and sends a position report only when the
// estimate differs from the last one sent successfully
type TelemetrySender struct {
	shared  *SharedEstimate
	channel telemetry.Channel
	opts    SenderOptions

	mu       sync.Mutex
	last     vision.Estimate
	hasLast  bool
	pending  map[int64]time.Time
	sentTime []int64

	polls     atomic.Int64
	sent      atomic.Int64
	errors    atomic.Int64
	acks      atomic.Int64
	latencyNs atomic.Int64
}

// NewTelemetrySender creates sender. Call Run to start polling
func NewTelemetrySender(shared *SharedEstimate, channel telemetry.Channel, opts SenderOptions) *TelemetrySender {
	opts.defaults()
	return &TelemetrySender{
		shared:  shared,
		channel: channel,
		opts:    opts,
		pending: make(map[int64]time.Time),
	}
}

// Stats returns the current counters
func (s *TelemetrySender) Stats() SenderStats {
	st := SenderStats{
		Polls:  s.polls.Load(),
		Sent:   s.sent.Load(),
		Errors: s.errors.Load(),
		Acks:   s.acks.Load(),
	}
	if st.Acks > 0 {
		st.AvgLatency = time.Duration(s.latencyNs.Load() / st.Acks)
	}
	return st
}

// Poll performs a single change-detection step. Returns true when a report was sent.
// If sending fails the last-sent estimate is not advanced, so the same change is
// tried again on the next poll
func (s *TelemetrySender) Poll() (bool, error) {
	s.polls.Add(1)
	estimate, ok := s.shared.Load()
	if !ok {
		return false, nil
	}
	s.mu.Lock()
	unchanged := s.hasLast && estimate == s.last
	s.mu.Unlock()
	if unchanged {
		return false, nil
	}

	msg := telemetry.NewLocation(estimate)
	err := s.channel.Send(msg.String())
	if err != nil {
		s.errors.Add(1)
		return false, errors.Wrapf(err, "Can't send location for timestamp %d", estimate.Timestamp)
	}
	s.sent.Add(1)

	s.mu.Lock()
	s.last = estimate
	s.hasLast = true
	s.trackPending(estimate.Timestamp)
	s.mu.Unlock()

	s.opts.Logger.Debug("location sent", "timestamp", msg.Timestamp, "x", msg.X, "y", msg.Y)
	return true, nil
}

// trackPending must be called with mu held
func (s *TelemetrySender) trackPending(timestamp int64) {
	if _, ok := s.pending[timestamp]; !ok {
		s.sentTime = append(s.sentTime, timestamp)
	}
	s.pending[timestamp] = s.opts.Now()
	for len(s.pending) > s.opts.PendingAcks && len(s.sentTime) > 0 {
		delete(s.pending, s.sentTime[0])
		s.sentTime = s.sentTime[1:]
	}
}

// Acknowledge matches acknowledgment with a sent report and returns round-trip latency.
// False means the report is unknown (never sent, already acknowledged or evicted)
func (s *TelemetrySender) Acknowledge(ack telemetry.Ack) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sentAt, ok := s.pending[ack.Timestamp]
	if !ok {
		return 0, false
	}
	delete(s.pending, ack.Timestamp)
	for len(s.sentTime) > 0 {
		if _, waiting := s.pending[s.sentTime[0]]; waiting {
			break
		}
		s.sentTime = s.sentTime[1:]
	}
	latency := s.opts.Now().Sub(sentAt)
	s.acks.Add(1)
	s.latencyNs.Add(int64(latency))
	return latency, true
}

// Pending returns number of reports waiting for acknowledgment
func (s *TelemetrySender) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Register installs acknowledgment handler which logs round-trip latency
func (s *TelemetrySender) Register(d *telemetry.Dispatcher) {
	d.HandleAck(func(ack telemetry.Ack) {
		latency, ok := s.Acknowledge(ack)
		if !ok {
			s.opts.Logger.Info(ack.String(), "timestamp", ack.Timestamp)
			return
		}
		s.opts.Logger.Info(ack.String(), "timestamp", ack.Timestamp, "latency", latency)
	})
}

// Run polls on a fixed interval until ctx is cancelled or the channel closes (both return nil).
// Other send failures are logged and retried on the next tick
func (s *TelemetrySender) Run(ctx context.Context) error {
	log := s.opts.Logger
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()
	log.Info("telemetry: started", "interval", s.opts.Interval)
	for {
		select {
		case <-ctx.Done():
			log.Info("telemetry: stopped", "sent", s.sent.Load())
			return nil
		case <-ticker.C:
			_, err := s.Poll()
			if err == nil {
				continue
			}
			if errors.Is(err, telemetry.ErrChannelClosed) {
				log.Info("telemetry: channel closed", "sent", s.sent.Load())
				return nil
			}
			log.Warn("telemetry: send failed", "error", err)
		}
	}
}
