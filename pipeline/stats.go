package pipeline

import (
	"sort"
	"sync"

	"github.com/LdDl/balltrack/media"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultMaxSamples bounds ErrorStats memory
const DefaultMaxSamples = 10000

// ErrorSample is a per-axis reconciliation error at a stream time
type ErrorSample struct {
	Timestamp int64
	Seconds   float64
	X         float64
	Y         float64
}

// ErrorSummary aggregates collected samples
type ErrorSummary struct {
	Count   int     `json:"count"`
	Missing int64   `json:"missing"`
	MeanX   float64 `json:"mean_x"`
	MeanY   float64 `json:"mean_y"`
	StdDevX float64 `json:"std_dev_x"`
	StdDevY float64 `json:"std_dev_y"`
	MaxX    float64 `json:"max_x"`
	MaxY    float64 `json:"max_y"`
	P95X    float64 `json:"p95_x"`
	P95Y    float64 `json:"p95_y"`
}

// ErrorStats keeps the most recent reconciliation errors
type ErrorStats struct {
	mu         sync.Mutex
	samples    []ErrorSample
	maxSamples int
	missing    int64
}

// NewErrorStats creates collector. Non-positive maxSamples means DefaultMaxSamples
func NewErrorStats(maxSamples int) *ErrorStats {
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}
	return &ErrorStats{
		samples:    make([]ErrorSample, 0, min(maxSamples, 1024)),
		maxSamples: maxSamples,
	}
}

// Add stores error of a reconciled result. Results without ground truth are counted as missing
func (s *ErrorStats) Add(res Result) {
	if res.Error == nil {
		s.AddMissing()
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.samples) == s.maxSamples {
		copy(s.samples, s.samples[1:])
		s.samples = s.samples[:len(s.samples)-1]
	}
	s.samples = append(s.samples, ErrorSample{
		Timestamp: res.Timestamp,
		Seconds:   float64(res.Timestamp) / media.VideoClockRate,
		X:         res.Error.X,
		Y:         res.Error.Y,
	})
}

// AddMissing counts a report without ground truth
func (s *ErrorStats) AddMissing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.missing++
}

// Samples returns copy of collected samples in arrival order
func (s *ErrorStats) Samples() []ErrorSample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ErrorSample(nil), s.samples...)
}

// Summary computes mean, standard deviation, maximum and 95th percentile per axis
func (s *ErrorStats) Summary() ErrorSummary {
	s.mu.Lock()
	xs := make([]float64, len(s.samples))
	ys := make([]float64, len(s.samples))
	for i, sample := range s.samples {
		xs[i] = sample.X
		ys[i] = sample.Y
	}
	summary := ErrorSummary{
		Count:   len(s.samples),
		Missing: s.missing,
	}
	s.mu.Unlock()

	if summary.Count == 0 {
		return summary
	}
	summary.MeanX, summary.StdDevX = stat.MeanStdDev(xs, nil)
	summary.MeanY, summary.StdDevY = stat.MeanStdDev(ys, nil)
	if summary.Count == 1 {
		summary.StdDevX, summary.StdDevY = 0, 0
	}
	summary.MaxX = floats.Max(xs)
	summary.MaxY = floats.Max(ys)
	sort.Float64s(xs)
	sort.Float64s(ys)
	summary.P95X = stat.Quantile(0.95, stat.Empirical, xs, nil)
	summary.P95Y = stat.Quantile(0.95, stat.Empirical, ys, nil)
	return summary
}
