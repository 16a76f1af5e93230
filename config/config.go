// Package config holds settings shared by both binaries: YAML file, defaults,
// command-line overrides and logger construction.
package config

import (
	"os"
	"time"

	"github.com/LdDl/balltrack/vision"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds the full configuration
type Config struct {
	Signaling  SignalingConfig  `yaml:"signaling"`
	Simulation SimulationConfig `yaml:"simulation"`
	Tracker    TrackerConfig    `yaml:"tracker"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Transport  TransportConfig  `yaml:"transport"`
	Report     ReportConfig     `yaml:"report"`
	Log        LogConfig        `yaml:"log"`
}

// SignalingConfig selects how session descriptions are exchanged
type SignalingConfig struct {
	Method string `yaml:"method"` // tcp-socket | unix-socket
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Path   string `yaml:"path"` // unix-socket only
}

// SimulationConfig configures the bouncing ball
type SimulationConfig struct {
	Width           int     `yaml:"width"`
	Height          int     `yaml:"height"`
	Radius          int     `yaml:"radius"`
	Speed           float64 `yaml:"speed"`
	FrameRate       int     `yaml:"frame_rate"`
	Seed            int64   `yaml:"seed"`             // 0 picks a time-based seed
	HistoryCapacity int     `yaml:"history_capacity"` // 0 keeps every timestamp
}

// HSVConfig is a color bound in 8-bit HSV space
type HSVConfig struct {
	H int `yaml:"h"`
	S int `yaml:"s"`
	V int `yaml:"v"`
}

// TrackerConfig configures the tracking side
type TrackerConfig struct {
	QueueCapacity int       `yaml:"queue_capacity"`
	Lower         HSVConfig `yaml:"lower"`
	Upper         HSVConfig `yaml:"upper"`
	ApproxEpsilon float64   `yaml:"approx_epsilon"`
	Smoothing     bool      `yaml:"smoothing"`
	MaxJump       float64   `yaml:"max_jump"`
	MaxMisses     int       `yaml:"max_misses"`
}

// TelemetryConfig configures position reports
type TelemetryConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	PendingAcks  int           `yaml:"pending_acks"`
}

// TransportConfig configures the peer session
type TransportConfig struct {
	Listen      string `yaml:"listen"`
	FrameBuffer int    `yaml:"frame_buffer"`
	Compression bool   `yaml:"compression"`
}

// ReportConfig configures reconciliation output
type ReportConfig struct {
	ErrorPlot  string `yaml:"error_plot"` // empty disables the plot
	MaxSamples int    `yaml:"max_samples"`
}

// LogConfig configures logging
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// DefaultConfig returns sane defaults.
func DefaultConfig() *Config {
	return &Config{
		Signaling: SignalingConfig{
			Method: "tcp-socket",
			Host:   "127.0.0.1",
			Port:   8080,
			Path:   "balltrack.sock",
		},
		Simulation: SimulationConfig{
			Width:           800,
			Height:          400,
			Radius:          30,
			Speed:           20,
			FrameRate:       30,
			HistoryCapacity: 3000,
		},
		Tracker: TrackerConfig{
			QueueCapacity: 100,
			Lower:         HSVConfig{H: 0, S: 0, V: 200},
			Upper:         HSVConfig{H: 180, S: 55, V: 255},
			ApproxEpsilon: 3,
			Smoothing:     false,
			MaxJump:       60,
			MaxMisses:     15,
		},
		Telemetry: TelemetryConfig{
			PollInterval: 100 * time.Millisecond,
			PendingAcks:  256,
		},
		Transport: TransportConfig{
			Listen:      "127.0.0.1:0",
			FrameBuffer: 8,
			Compression: true,
		},
		Report: ReportConfig{
			MaxSamples: 10000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig reads and parses a YAML config file. Returns DefaultConfig merged with the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, cfg.Validate()
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	switch c.Signaling.Method {
	case "tcp-socket":
		if c.Signaling.Host == "" {
			return errors.New("signaling.host is required")
		}
		if c.Signaling.Port <= 0 || c.Signaling.Port > 65535 {
			return errors.Errorf("signaling.port %d is out of range", c.Signaling.Port)
		}
	case "unix-socket":
		if c.Signaling.Path == "" {
			return errors.New("signaling.path is required for unix-socket")
		}
	default:
		return errors.Errorf("unsupported signaling.method %q (use tcp-socket or unix-socket)", c.Signaling.Method)
	}

	sim := c.Simulation
	if sim.Radius <= 0 {
		return errors.New("simulation.radius must be > 0")
	}
	if sim.Width <= 2*sim.Radius || sim.Height <= 2*sim.Radius {
		return errors.Errorf("simulation area %dx%d is too small for radius %d", sim.Width, sim.Height, sim.Radius)
	}
	if sim.FrameRate <= 0 {
		return errors.New("simulation.frame_rate must be > 0")
	}
	if sim.HistoryCapacity < 0 {
		return errors.New("simulation.history_capacity must be >= 0")
	}

	tr := c.Tracker
	if tr.QueueCapacity <= 0 {
		return errors.New("tracker.queue_capacity must be > 0")
	}
	for name, bound := range map[string]HSVConfig{"lower": tr.Lower, "upper": tr.Upper} {
		if bound.H < 0 || bound.H > 180 || bound.S < 0 || bound.S > 255 || bound.V < 0 || bound.V > 255 {
			return errors.Errorf("tracker.%s is out of HSV range", name)
		}
	}
	if tr.ApproxEpsilon < 0 {
		return errors.New("tracker.approx_epsilon must be >= 0")
	}
	if tr.Smoothing && (tr.MaxJump <= 0 || tr.MaxMisses < 0) {
		return errors.New("tracker.max_jump must be > 0 and tracker.max_misses >= 0 when smoothing is on")
	}

	if c.Telemetry.PollInterval <= 0 {
		return errors.New("telemetry.poll_interval must be > 0")
	}
	if c.Telemetry.PendingAcks <= 0 {
		return errors.New("telemetry.pending_acks must be > 0")
	}
	if c.Transport.FrameBuffer <= 0 {
		return errors.New("transport.frame_buffer must be > 0")
	}
	if c.Report.MaxSamples <= 0 {
		return errors.New("report.max_samples must be > 0")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.Errorf("unsupported log.format %q (use text or json)", c.Log.Format)
	}
	return nil
}

// ColorRange converts HSV bounds to the estimator's color range
func (t TrackerConfig) ColorRange() vision.HSVRange {
	return vision.HSVRange{
		Lower: vision.HSV{H: uint8(t.Lower.H), S: uint8(t.Lower.S), V: uint8(t.Lower.V)},
		Upper: vision.HSV{H: uint8(t.Upper.H), S: uint8(t.Upper.S), V: uint8(t.Upper.V)},
	}
}

// FrameInterval returns the time between two simulated frames
func (s SimulationConfig) FrameInterval() time.Duration {
	return time.Second / time.Duration(s.FrameRate)
}
