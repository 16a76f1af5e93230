package config

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/LdDl/balltrack/vision"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "balltrack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, vision.WhiteRange(), cfg.Tracker.ColorRange())
	assert.Equal(t, time.Second/30, cfg.Simulation.FrameInterval())
}

func TestLoadConfigMergesDefaults(t *testing.T) {
	path := writeConfig(t, `
signaling:
  port: 9000
simulation:
  speed: 12.5
  seed: 42
telemetry:
  poll_interval: 250ms
tracker:
  smoothing: true
log:
  format: json
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	want := DefaultConfig()
	want.Signaling.Port = 9000
	want.Simulation.Speed = 12.5
	want.Simulation.Seed = 42
	want.Telemetry.PollInterval = 250 * time.Millisecond
	want.Tracker.Smoothing = true
	want.Log.Format = "json"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "signaling: [not, a, map]"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "signaling:\n  method: carrier-pigeon\n"))
	assert.ErrorContains(t, err, "unsupported signaling.method")
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad port", func(c *Config) { c.Signaling.Port = 0 }, "signaling.port"},
		{"unix without path", func(c *Config) { c.Signaling.Method = "unix-socket"; c.Signaling.Path = "" }, "signaling.path"},
		{"tiny area", func(c *Config) { c.Simulation.Width = 50 }, "too small"},
		{"zero frame rate", func(c *Config) { c.Simulation.FrameRate = 0 }, "frame_rate"},
		{"hue out of range", func(c *Config) { c.Tracker.Upper.H = 200 }, "tracker.upper"},
		{"zero queue", func(c *Config) { c.Tracker.QueueCapacity = 0 }, "queue_capacity"},
		{"zero poll", func(c *Config) { c.Telemetry.PollInterval = 0 }, "poll_interval"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tc.want)
		})
	}
}

func TestFlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, "signaling:\n  host: 10.0.0.1\n  port: 9000\nlog:\n  level: warn\n")
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	flags := RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--config", path, "--signaling_port", "7000", "--log-level", "debug"}))

	cfg, err := flags.Load()
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", cfg.Signaling.Host, "unset flag must not override file")
	assert.Equal(t, 7000, cfg.Signaling.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, flags.IsSet("signaling_port"))
	assert.False(t, flags.IsSet("signaling_host"))
}

func TestFlagsDefaults(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	flags := RegisterFlags(fs)
	require.NoError(t, fs.Parse(nil))
	cfg, err := flags.Load()
	require.NoError(t, err)
	assert.Equal(t, "tcp-socket", cfg.Signaling.Method)
	assert.Equal(t, "127.0.0.1", cfg.Signaling.Host)
	assert.Equal(t, 8080, cfg.Signaling.Port)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(LogConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", "timestamp", 7)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"timestamp":7`)

	_, err = NewLogger(LogConfig{Level: "info", Format: "xml"}, &buf)
	assert.Error(t, err)
}
