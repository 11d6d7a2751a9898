// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"sync/atomic"

	"loopfx/internal/block"
)

// DefaultSafetyThreshold is the absolute sample level that trips the latch.
const DefaultSafetyThreshold = 0.99

// SafetyMonitor latches when a processed block exceeds the threshold. Once
// latched, every following block is silenced until Clear is called from the
// control context. Inspect runs in the audio callback and never blocks.
type SafetyMonitor struct {
	tripped   atomic.Bool
	peak      atomic.Uint64 // float64 bits of the tripping peak
	threshold atomic.Uint64 // float64 bits
}

// NewSafetyMonitor returns an untripped monitor using DefaultSafetyThreshold.
func NewSafetyMonitor() *SafetyMonitor {
	m := &SafetyMonitor{}
	m.SetThreshold(DefaultSafetyThreshold)
	return m
}

// Tripped reports whether the latch is set.
func (m *SafetyMonitor) Tripped() bool { return m.tripped.Load() }

// Inspect scans b and sets the latch when its peak exceeds the threshold. It
// reports true only for the block that set the latch. NaN samples trip it too.
func (m *SafetyMonitor) Inspect(b block.Buffer) bool {
	if m.tripped.Load() {
		return false
	}
	thr := m.Threshold()
	peak := 0.0
	for _, ch := range b {
		for _, v := range ch {
			a := math.Abs(v)
			if a > peak || a != a {
				peak = a
			}
		}
	}
	if !(peak <= thr) {
		m.peak.Store(math.Float64bits(peak))
		m.tripped.Store(true)
		return true
	}
	return false
}

// Clear releases the latch.
func (m *SafetyMonitor) Clear() {
	m.tripped.Store(false)
}

// Peak returns the peak of the block that last set the latch.
func (m *SafetyMonitor) Peak() float64 {
	return math.Float64frombits(m.peak.Load())
}

// SetThreshold adjusts the trip level. Values are clamped to (0, 1].
func (m *SafetyMonitor) SetThreshold(threshold float64) {
	if !(threshold > 0) {
		threshold = math.SmallestNonzeroFloat64
	}
	if threshold > 1.0 {
		threshold = 1.0
	}
	m.threshold.Store(math.Float64bits(threshold))
}

// Threshold returns the current trip level.
func (m *SafetyMonitor) Threshold() float64 {
	return math.Float64frombits(m.threshold.Load())
}
