// SPDX-License-Identifier: MIT
package effects

import (
	vecmath "github.com/cwbudde/algo-vecmath"

	"loopfx/internal/block"
)

// Chain runs the effect stages in their fixed order. Stage state persists
// across blocks; Reset is only for a fresh stream.
type Chain struct {
	lpf   *StateVariable
	hpf   *StateVariable
	comp  *Compressor
	trem  *Tremolo
	ready bool
}

// NewChain returns an unprepared chain.
func NewChain() *Chain {
	return &Chain{
		lpf:  NewStateVariable(LowPass),
		hpf:  NewStateVariable(HighPass),
		comp: NewCompressor(),
		trem: NewTremolo(),
	}
}

// Prepare allocates stage state, including one compressor per channel. It
// must not run concurrently with Process.
func (c *Chain) Prepare(sampleRate float64, channels, maxFrames int) {
	c.lpf.Prepare(sampleRate, channels)
	c.hpf.Prepare(sampleRate, channels)
	c.comp.Prepare(sampleRate, channels)
	c.trem.Prepare(sampleRate, maxFrames)
	c.ready = sampleRate > 0
}

// Reset clears every stage.
func (c *Chain) Reset() {
	c.lpf.Reset()
	c.hpf.Reset()
	c.comp.Reset()
	c.trem.Reset()
}

// Process transforms b in place using one snapshot of the parameters.
func (c *Chain) Process(b block.Buffer, s Snapshot) {
	if !c.ready {
		return
	}
	c.lpf.SetCutoff(s.LowPassHz)
	c.lpf.Process(b)

	c.hpf.SetCutoff(s.HighPassHz)
	c.hpf.Process(b)

	c.comp.Set(s.ThresholdDB, s.Ratio, s.AttackMs, s.ReleaseMs)
	c.comp.Process(b)

	if s.TremoloEnabled && s.TremoloDepth > 0 {
		c.trem.Process(b, s.TremoloRate, s.TremoloDepth)
	}

	if s.Gain != 1 {
		for _, ch := range b {
			vecmath.ScaleBlock(ch, ch, s.Gain)
		}
	}
}

// Tremolo exposes the tremolo stage, for inspecting its phase.
func (c *Chain) Tremolo() *Tremolo { return c.trem }

