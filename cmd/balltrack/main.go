package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/LdDl/balltrack/config"
	"github.com/LdDl/balltrack/pipeline"
	"github.com/LdDl/balltrack/signaling"
	"github.com/LdDl/balltrack/telemetry"
	"github.com/LdDl/balltrack/transport"
	"github.com/LdDl/balltrack/vision"
	"github.com/pkg/errors"
)

var (
	common    = config.RegisterFlags(flag.CommandLine)
	smoothing = flag.Bool("smoothing", false, "Smooth detected centers with Kalman filter (overrides tracker.smoothing)")
)

func main() {
	flag.Parse()

	cfg, err := common.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(2)
	}
	if *smoothing {
		cfg.Tracker.Smoothing = true
	}

	logger, err := config.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		slog.Error("invalid log configuration", "error", err)
		os.Exit(2)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("balltrack failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	sink := pipeline.NewFrameSink(cfg.Tracker.QueueCapacity)
	var shared pipeline.SharedEstimate
	trackerOpts := pipeline.TrackerOptions{
		Estimator: vision.NewEstimator(cfg.Tracker.ColorRange(), cfg.Tracker.ApproxEpsilon),
		Logger:    logger,
	}
	if cfg.Tracker.Smoothing {
		trackerOpts.Smoothing = vision.NewBlobTracker(cfg.Tracker.MaxJump, cfg.Tracker.MaxMisses, 1.0/float64(cfg.Simulation.FrameRate))
	}
	tracker := pipeline.NewTracker(sink, &shared, trackerOpts)

	var wg sync.WaitGroup
	// The tracker worker ends when the sink is closed and drained
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tracker.Run(context.Background()); err != nil {
			logger.Error("tracker failed", "error", err)
		}
	}()
	defer func() {
		sink.Close()
		wg.Wait()
	}()

	sig, err := signaling.New(cfg.Signaling, logger)
	if err != nil {
		return err
	}
	defer sig.Close()

	answerer := transport.NewAnswerer(transport.AnswererOptions{
		FrameBuffer: cfg.Transport.FrameBuffer,
		Compression: cfg.Transport.Compression,
		Logger:      logger,
	})
	peer, err := negotiate(ctx, sig, answerer, logger)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer peer.Close()
	sig.Close()

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	dispatcher := telemetry.NewDispatcher(logger)
	sender := pipeline.NewTelemetrySender(&shared, peer, pipeline.SenderOptions{
		Interval:    cfg.Telemetry.PollInterval,
		PendingAcks: cfg.Telemetry.PendingAcks,
		Logger:      logger,
	})
	sender.Register(dispatcher)
	peer.Start(func(msg string) {
		dispatcher.Dispatch(msg)
	})

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := sender.Run(sessionCtx); err != nil {
			logger.Error("telemetry failed", "error", err)
		}
	}()

	err = pipeline.Receive(sessionCtx, peer, sink)
	cancel()

	trackerStats := tracker.Stats()
	senderStats := sender.Stats()
	logger.Info("session finished",
		"frames", trackerStats.Frames,
		"detections", trackerStats.Detections,
		"misses", trackerStats.Misses,
		"dropped_frames", peer.Dropped(),
		"reports", senderStats.Sent,
		"acks", senderStats.Acks,
		"avg_latency", senderStats.AvgLatency,
	)
	return err
}

// negotiate answers the offer and connects to the first candidate
func negotiate(ctx context.Context, sig signaling.Signaling, answerer *transport.Answerer, logger *slog.Logger) (*transport.Peer, error) {
	for {
		msg, err := sig.Receive(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "Can't receive signaling message")
		}
		switch m := msg.(type) {
		case signaling.SessionDescription:
			if err := answerer.SetRemoteDescription(m); err != nil {
				logger.Warn("signaling: bad remote description", "error", err)
				continue
			}
			answer, err := answerer.CreateAnswer()
			if err != nil {
				return nil, err
			}
			if err := sig.Send(ctx, answer); err != nil {
				return nil, errors.Wrap(err, "Can't send answer")
			}
		case signaling.Candidate:
			peer, err := answerer.AddCandidate(ctx, m)
			if err != nil {
				logger.Warn("signaling: can't use candidate", "candidate", m.Candidate, "error", err)
				continue
			}
			return peer, nil
		case signaling.Bye:
			return nil, errors.New("signaling ended before session was established")
		case signaling.Unrecognized:
			logger.Warn("signaling: dropped message", "error", m.Err)
		}
	}
}
