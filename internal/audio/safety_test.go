// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"testing"

	"loopfx/internal/block"
	"loopfx/internal/effects"
	"loopfx/internal/feed"
)

func TestSafetyInspect(t *testing.T) {
	tests := []struct {
		desc  string
		block block.Buffer
		trip  bool
	}{
		{"Quiet block", block.Buffer{{0.1, -0.5, 0.3}}, false},
		{"At threshold", block.Buffer{{0.99, -0.99}}, false},
		{"Positive overshoot", block.Buffer{{0.2, 1.2}}, true},
		{"Negative overshoot", block.Buffer{{0.2}, {-1.0}}, true},
		{"NaN sample", block.Buffer{{0.1, math.NaN(), 0.1}}, true},
		{"Infinite sample", block.Buffer{{math.Inf(-1)}}, true},
		{"Empty block", block.Buffer{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			m := NewSafetyMonitor()
			if got := m.Inspect(tt.block); got != tt.trip {
				t.Errorf("Inspect = %v, want %v", got, tt.trip)
			}
			if m.Tripped() != tt.trip {
				t.Errorf("Tripped = %v, want %v", m.Tripped(), tt.trip)
			}
		})
	}
}

func TestSafetyLatchHoldsUntilCleared(t *testing.T) {
	m := NewSafetyMonitor()
	if !m.Inspect(block.Buffer{{1.5}}) {
		t.Fatal("expected trip")
	}
	if m.Peak() != 1.5 {
		t.Errorf("Peak = %v, want 1.5", m.Peak())
	}
	// Already latched: later blocks do not report a new trip.
	if m.Inspect(block.Buffer{{2.0}}) {
		t.Error("second trip reported while latched")
	}
	if m.Peak() != 1.5 {
		t.Errorf("Peak changed while latched: %v", m.Peak())
	}

	m.Clear()
	if m.Tripped() {
		t.Fatal("latch still set after Clear")
	}
	if m.Inspect(block.Buffer{{0.5}}) {
		t.Error("quiet block tripped after Clear")
	}
}

func TestSafetyThresholdBoundaries(t *testing.T) {
	tests := []struct {
		input    float64
		expected float64
	}{
		{0.5, 0.5},
		{1.0, 1.0},
		{1.5, 1.0},
		{-0.1, math.SmallestNonzeroFloat64},
		{math.NaN(), math.SmallestNonzeroFloat64},
	}

	m := NewSafetyMonitor()
	for _, tt := range tests {
		m.SetThreshold(tt.input)
		if got := m.Threshold(); got != tt.expected {
			t.Errorf("SetThreshold(%v) -> %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestProcessorLatch(t *testing.T) {
	p, q := newTestProcessor(t, 1)
	play(p, sineAsset(t, 1, 1, 0.9))
	p.Params().Set(effects.Gain, 3)

	b := make(block.Buffer, 1)
	b[0] = make([]float64, testFrames)

	// The tripping block itself goes out unchanged.
	p.Process(b)
	if !p.Safety().Tripped() {
		t.Fatal("expected the safety latch to trip")
	}
	if b.Peak() <= DefaultSafetyThreshold {
		t.Errorf("tripping block peak = %v, want it emitted unchanged", b.Peak())
	}
	e := waitEvent(t, q, feed.SafetyTripped)
	if e.Peak <= DefaultSafetyThreshold {
		t.Errorf("event peak = %v", e.Peak)
	}

	// Every following block is silent and the transport does not move.
	pos := p.Transport().Position()
	for range 3 {
		p.Process(b)
		if b.Peak() != 0 {
			t.Fatalf("latched block peak = %v, want silence", b.Peak())
		}
		if p.Tap().Snapshot().Peak() != 0 {
			t.Fatal("tap did not capture the silenced block")
		}
	}
	if got := p.Transport().Position(); got != pos {
		t.Errorf("position moved while latched: %v -> %v", pos, got)
	}

	p.Params().Set(effects.Gain, 1)
	p.Safety().Clear()
	p.Process(b)
	if b.Peak() == 0 {
		t.Error("output still silent after clearing the latch")
	}
	if p.Safety().Tripped() {
		t.Error("latch tripped again at unity gain")
	}
}
