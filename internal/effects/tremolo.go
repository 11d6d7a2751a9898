// SPDX-License-Identifier: MIT
package effects

import (
	"math"

	dsp "github.com/cwbudde/algo-dsp/dsp/effects/modulation"
	vecmath "github.com/cwbudde/algo-vecmath"

	"loopfx/internal/block"
)

const twoPi = 2 * math.Pi

// Tremolo modulates amplitude with a sine LFO shared by all channels. The LFO
// phase carries over from block to block.
type Tremolo struct {
	sampleRate float64
	lfo        *dsp.Tremolo
	phase      float64
	env        []float64
}

// NewTremolo returns an unprepared tremolo.
func NewTremolo() *Tremolo { return &Tremolo{} }

// Prepare builds the LFO and allocates the envelope scratch for blocks up
// to maxFrames.
func (t *Tremolo) Prepare(sampleRate float64, maxFrames int) {
	t.sampleRate = sampleRate
	t.env = make([]float64, maxFrames)
	t.phase = 0
	// No smoothing and a fully wet mix: Process(1) yields the raw envelope.
	lfo, err := dsp.NewTremolo(sampleRate,
		dsp.WithTremoloSmoothingMs(0),
		dsp.WithTremoloMix(1))
	if err != nil {
		t.lfo = nil
		return
	}
	t.lfo = lfo
}

// Reset rewinds the LFO.
func (t *Tremolo) Reset() {
	t.phase = 0
	if t.lfo != nil {
		t.lfo.Reset()
	}
}

// Phase returns the LFO phase in [0, 2π).
func (t *Tremolo) Phase() float64 { return t.phase }

// Process applies the tremolo with the given rate (Hz) and depth (0..1).
// Frames beyond the prepared size are left unmodulated.
func (t *Tremolo) Process(b block.Buffer, rate, depth float64) {
	n := min(b.Frames(), len(t.env))
	if n == 0 || t.lfo == nil {
		return
	}
	if t.lfo.SetRateHz(rate) != nil || t.lfo.SetDepth(depth) != nil {
		return
	}
	inc := twoPi * rate / t.sampleRate
	env := t.env[:n]
	for i := range env {
		env[i] = t.lfo.Process(1)
		t.phase += inc
		if t.phase >= twoPi {
			t.phase -= twoPi
		}
	}

	for _, ch := range b {
		vecmath.MulBlockInPlace(ch[:n], env)
	}
}
