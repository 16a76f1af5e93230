package pipeline

import (
	"bytes"
	"image"
	"log/slog"
	"testing"

	"github.com/LdDl/balltrack/sim"
	"github.com/LdDl/balltrack/telemetry"
	"github.com/LdDl/balltrack/vision"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func historyOf(points map[int64]image.Point) *sim.History {
	h := sim.NewHistory(0)
	for ts, p := range points {
		h.Record(ts, p)
	}
	return h
}

func TestReconcilerError(t *testing.T) {
	channel := &recordingChannel{}
	stats := NewErrorStats(0)
	r := NewReconciler(historyOf(map[int64]image.Point{7: {X: 120, Y: 80}}), channel, ReconcilerOptions{Stats: stats})

	msg := telemetry.Decode("Location 119.50 81.20 Timestamp 7")
	require.Equal(t, telemetry.KindLocation, msg.Kind())
	res, err := r.Handle(msg.(telemetry.Location))
	require.NoError(t, err)

	actual := vision.NewPoint(120, 80)
	errXY := vision.NewPoint(0.5, 1.2)
	want := Result{
		Timestamp: 7,
		Predicted: vision.NewPoint(119.5, 81.2),
		Actual:    &actual,
		Error:     &errXY,
	}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, res.Found())
	assert.Equal(t, []string{"result 7 displayed"}, channel.messages())
	assert.Equal(t, 1, stats.Summary().Count)
}

func TestReconcilerMissingTimestamp(t *testing.T) {
	var buf bytes.Buffer
	channel := &recordingChannel{}
	stats := NewErrorStats(0)
	r := NewReconciler(historyOf(nil), channel, ReconcilerOptions{
		Stats:  stats,
		Logger: slog.New(slog.NewTextHandler(&buf, nil)),
	})

	res, err := r.Handle(telemetry.Location{X: 1, Y: 2, Timestamp: 42})
	require.NoError(t, err)
	assert.False(t, res.Found())
	assert.Nil(t, res.Error)
	assert.Equal(t, []string{"result 42 displayed"}, channel.messages())
	assert.Contains(t, buf.String(), "ground truth unavailable")

	total, missing := r.Handled()
	assert.Equal(t, int64(1), total)
	assert.Equal(t, int64(1), missing)
	assert.Equal(t, int64(1), stats.Summary().Missing)
}

func TestReconcilerAckFailure(t *testing.T) {
	channel := &recordingChannel{}
	channel.fail(telemetry.ErrChannelClosed)
	r := NewReconciler(historyOf(map[int64]image.Point{1: {X: 1, Y: 1}}), channel, ReconcilerOptions{})
	res, err := r.Handle(telemetry.Location{X: 1, Y: 1, Timestamp: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, telemetry.ErrChannelClosed))
	assert.True(t, res.Found())
}

func TestReconcilerRegister(t *testing.T) {
	channel := &recordingChannel{}
	r := NewReconciler(historyOf(map[int64]image.Point{3000: {X: 10, Y: 10}}), channel, ReconcilerOptions{})
	d := telemetry.NewDispatcher(nil)
	r.Register(d)

	d.Dispatch("Location 10.00 10.00 Timestamp 3000")
	d.Dispatch("Location broken")
	d.Dispatch("Location 11.00 10.00 Timestamp 6000")

	assert.Equal(t, []string{"result 3000 displayed", "result 6000 displayed"}, channel.messages())
	total, missing := r.Handled()
	assert.Equal(t, int64(2), total)
	assert.Equal(t, int64(1), missing)
}
