package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/LdDl/balltrack/config"
	"github.com/LdDl/balltrack/pipeline"
	"github.com/LdDl/balltrack/report"
	"github.com/LdDl/balltrack/signaling"
	"github.com/LdDl/balltrack/sim"
	"github.com/LdDl/balltrack/telemetry"
	"github.com/LdDl/balltrack/transport"
	"github.com/pkg/errors"
)

var (
	common    = config.RegisterFlags(flag.CommandLine)
	listen    = flag.String("listen", "", "Transport listen address (overrides transport.listen)")
	seed      = flag.Int64("seed", 0, "Simulation seed, 0 picks a time-based one (overrides simulation.seed)")
	errorPlot = flag.String("error-plot", "", "Write reconciliation error plot to this file on exit (overrides report.error_plot)")
)

func main() {
	flag.Parse()

	cfg, err := common.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(2)
	}
	if *listen != "" {
		cfg.Transport.Listen = *listen
	}
	if *seed != 0 {
		cfg.Simulation.Seed = *seed
	}
	if *errorPlot != "" {
		cfg.Report.ErrorPlot = *errorPlot
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
		logger.Error("ballsim failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	simulator, err := sim.New(sim.Options{
		Width:           cfg.Simulation.Width,
		Height:          cfg.Simulation.Height,
		Radius:          cfg.Simulation.Radius,
		Speed:           cfg.Simulation.Speed,
		FrameRate:       cfg.Simulation.FrameRate,
		Seed:            cfg.Simulation.Seed,
		HistoryCapacity: cfg.Simulation.HistoryCapacity,
	})
	if err != nil {
		return errors.Wrap(err, "Can't create simulator")
	}
	source := sim.NewSource(simulator, cfg.Simulation.FrameRate)
	stats := pipeline.NewErrorStats(cfg.Report.MaxSamples)

	offerer := transport.NewOfferer(transport.OffererOptions{
		Listen:      cfg.Transport.Listen,
		FrameBuffer: cfg.Transport.FrameBuffer,
		Compression: cfg.Transport.Compression,
		Logger:      logger,
	})
	var reconciler *pipeline.Reconciler
	var reconcilerMu sync.Mutex
	offerer.Handle("/stats", statsHandler(source, simulator.History(), stats, func() *pipeline.Reconciler {
		reconcilerMu.Lock()
		defer reconcilerMu.Unlock()
		return reconciler
	}))
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		offerer.Close(shutdownCtx)
	}()

	sig, err := signaling.New(cfg.Signaling, logger)
	if err != nil {
		return err
	}
	defer sig.Close()

	offer, candidate, err := offerer.CreateOffer()
	if err != nil {
		return err
	}
	if err := sig.Send(ctx, offer); err != nil {
		return errors.Wrap(err, "Can't send offer")
	}
	if err := sig.Send(ctx, candidate); err != nil {
		return errors.Wrap(err, "Can't send candidate")
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		handleSignaling(ctx, sig, offerer, logger)
	}()

	peer, err := offerer.Accept(ctx)
	if err != nil {
		sig.Close()
		wg.Wait()
		if ctx.Err() != nil {
			return nil
		}
		return errors.Wrap(err, "Can't accept peer")
	}
	defer peer.Close()
	if answer, ok := offerer.RemoteDescription(); ok {
		logger.Info("session established", "session_id", peer.SessionID().String(), "answer", string(answer.Type))
	}
	// The answer was read before the peer was let in, nothing else is expected over signaling
	sig.Close()
	wg.Wait()

	dispatcher := telemetry.NewDispatcher(logger)
	reconcilerMu.Lock()
	reconciler = pipeline.NewReconciler(simulator.History(), peer, pipeline.ReconcilerOptions{
		Stats:  stats,
		Logger: logger,
	})
	reconciler.Register(dispatcher)
	reconcilerMu.Unlock()
	peer.Start(func(msg string) {
		dispatcher.Dispatch(msg)
	})

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-peer.Done():
			cancel()
		case <-streamCtx.Done():
		}
	}()
	logger.Info("streaming", "width", cfg.Simulation.Width, "height", cfg.Simulation.Height, "frame_rate", cfg.Simulation.FrameRate, "timestamp_step", simulator.TimestampStep())
	err = source.Stream(streamCtx, peer.SendFrame)
	if err != nil && !errors.Is(err, telemetry.ErrChannelClosed) {
		return errors.Wrap(err, "Can't stream frames")
	}

	summary := stats.Summary()
	total, missing := reconciler.Handled()
	logger.Info("session finished",
		"frames", source.Produced(),
		"reports", total,
		"missing", missing,
		"mean_error_x", summary.MeanX, "mean_error_y", summary.MeanY,
		"p95_error_x", summary.P95X, "p95_error_y", summary.P95Y,
		"max_error_x", summary.MaxX, "max_error_y", summary.MaxY,
	)
	if cfg.Report.ErrorPlot != "" {
		err := report.WriteErrorPlot(cfg.Report.ErrorPlot, stats.Samples(), summary)
		if err != nil {
			logger.Warn("can't write error plot", "path", cfg.Report.ErrorPlot, "error", err)
		} else {
			logger.Info("error plot written", "path", cfg.Report.ErrorPlot)
		}
	}
	return nil
}

// handleSignaling applies the answer, ignores candidates (the answering side
// connects to us) and returns on bye
func handleSignaling(ctx context.Context, sig signaling.Signaling, offerer *transport.Offerer, logger *slog.Logger) {
	for {
		msg, err := sig.Receive(ctx)
		if err != nil {
			if ctx.Err() == nil {
				logger.Debug("signaling: receive stopped", "error", err)
			}
			return
		}
		switch m := msg.(type) {
		case signaling.SessionDescription:
			if err := offerer.SetRemoteDescription(m); err != nil {
				logger.Warn("signaling: bad remote description", "error", err)
			}
		case signaling.Candidate:
			logger.Debug("signaling: candidate ignored", "candidate", m.Candidate)
		case signaling.Bye:
			return
		case signaling.Unrecognized:
			logger.Warn("signaling: dropped message", "error", m.Err)
		}
	}
}

type simStats struct {
	Frames  int64                 `json:"frames"`
	History int                   `json:"history"`
	Reports int64                 `json:"reports"`
	Missing int64                 `json:"missing"`
	Error   pipeline.ErrorSummary `json:"error"`
}

func statsHandler(source *sim.Source, history *sim.History, stats *pipeline.ErrorStats, reconciler func() *pipeline.Reconciler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := simStats{
			Frames:  source.Produced(),
			History: history.Len(),
			Error:   stats.Summary(),
		}
		if rec := reconciler(); rec != nil {
			resp.Reports, resp.Missing = rec.Handled()
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}
