package pipeline

import (
	"sync/atomic"

	"github.com/LdDl/balltrack/vision"
)

// SharedEstimate is a single slot holding the latest estimate. Store replaces the whole
// value at once, so readers never see coordinates and timestamp from different frames
type SharedEstimate struct {
	slot atomic.Pointer[vision.Estimate]
}

// Store overwrites current estimate
func (s *SharedEstimate) Store(estimate vision.Estimate) {
	s.slot.Store(&estimate)
}

// Load returns current estimate. False means nothing was stored yet
func (s *SharedEstimate) Load() (vision.Estimate, bool) {
	p := s.slot.Load()
	if p == nil {
		return vision.Estimate{}, false
	}
	return *p, true
}
