// SPDX-License-Identifier: MIT
package effects

import (
	"math"

	"loopfx/internal/block"
)

// FilterKind selects the state-variable filter output.
type FilterKind int

const (
	LowPass FilterKind = iota
	HighPass
)

// butterworthK is 1/Q for a maximally flat second-order response.
var butterworthK = math.Sqrt2

// StateVariable is a second-order topology-preserving state-variable filter.
// It keeps two integrator states per channel, so cutoff changes between
// blocks take effect without clicks or instability.
type StateVariable struct {
	kind       FilterKind
	sampleRate float64
	cutoff     float64

	a1, a2, a3 float64
	ic1, ic2   []float64
}

// NewStateVariable returns an unprepared filter.
func NewStateVariable(kind FilterKind) *StateVariable {
	return &StateVariable{kind: kind}
}

// Prepare sizes the per-channel state and clears it.
func (f *StateVariable) Prepare(sampleRate float64, channels int) {
	f.sampleRate = sampleRate
	f.ic1 = make([]float64, channels)
	f.ic2 = make([]float64, channels)
	f.cutoff = 0
}

// Reset clears the integrator state.
func (f *StateVariable) Reset() {
	clear(f.ic1)
	clear(f.ic2)
}

// SetCutoff updates the coefficients. The cutoff is held between 20 Hz and
// just under Nyquist.
func (f *StateVariable) SetCutoff(hz float64) {
	if f.sampleRate <= 0 {
		return
	}
	hz = math.Min(math.Max(hz, 20), 0.49*f.sampleRate)
	if hz == f.cutoff {
		return
	}
	f.cutoff = hz

	g := math.Tan(math.Pi * hz / f.sampleRate)
	f.a1 = 1 / (1 + g*(g+butterworthK))
	f.a2 = g * f.a1
	f.a3 = g * f.a2
}

// Cutoff returns the effective cutoff in Hz.
func (f *StateVariable) Cutoff() float64 { return f.cutoff }

// Process filters b in place. Channels beyond the prepared count pass through.
func (f *StateVariable) Process(b block.Buffer) {
	if f.cutoff == 0 {
		return
	}
	for ch := range min(len(b), len(f.ic1)) {
		ic1, ic2 := f.ic1[ch], f.ic2[ch]
		x := b[ch]
		for i, v0 := range x {
			v3 := v0 - ic2
			v1 := f.a1*ic1 + f.a2*v3
			v2 := ic2 + f.a2*ic1 + f.a3*v3
			ic1 = 2*v1 - ic1
			ic2 = 2*v2 - ic2
			if f.kind == LowPass {
				x[i] = v2
			} else {
				x[i] = v0 - butterworthK*v1 - v2
			}
		}
		f.ic1[ch], f.ic2[ch] = ic1, ic2
	}
}
