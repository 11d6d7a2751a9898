// SPDX-License-Identifier: MIT
package effects

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/effects/dynamics"

	"loopfx/internal/block"
)

// ballisticsScale converts a time constant in ms to the half-life the
// dynamics package expects, so a setting of T ms gives a smoothing
// coefficient of exp(-2π·1000/(T·fs)).
const ballisticsScale = math.Ln2 / (2 * math.Pi)

// Time limits of dynamics.Compressor, in half-life ms.
const (
	minAttackHalfLife  = 0.1
	maxAttackHalfLife  = 1000
	minReleaseHalfLife = 1
	maxReleaseHalfLife = 5000
	maxRatio           = 100
)

// Compressor is a hard-knee feed-forward peak compressor. Each channel runs
// its own dynamics.Compressor, so channels track independent envelopes.
type Compressor struct {
	ch []*dynamics.Compressor

	thresholdDB, ratio, attackMs, releaseMs float64
	primed                                  bool
}

// NewCompressor returns an unprepared compressor.
func NewCompressor() *Compressor { return &Compressor{} }

// Prepare builds one compressor per channel. A non-positive sample rate
// leaves the stage unprepared.
func (c *Compressor) Prepare(sampleRate float64, channels int) {
	c.ch = c.ch[:0]
	c.primed = false
	for range channels {
		comp, err := dynamics.NewCompressor(sampleRate)
		if err != nil {
			c.ch = nil
			return
		}
		// Hard knee, no makeup: above threshold the gain is
		// (env/threshold)^(1/ratio - 1).
		_ = comp.SetKnee(0)
		_ = comp.SetMakeupGain(0)
		c.ch = append(c.ch, comp)
	}
}

// Reset clears the envelopes.
func (c *Compressor) Reset() {
	for _, comp := range c.ch {
		comp.Reset()
	}
}

// Set updates threshold (dB), ratio, attack and release (ms). Unchanged
// values are skipped so the per-block call stays cheap.
func (c *Compressor) Set(thresholdDB, ratio, attackMs, releaseMs float64) {
	ratio = math.Min(math.Max(ratio, 1), maxRatio)
	attack := math.Min(math.Max(attackMs*ballisticsScale, minAttackHalfLife), maxAttackHalfLife)
	release := math.Min(math.Max(releaseMs*ballisticsScale, minReleaseHalfLife), maxReleaseHalfLife)

	for _, comp := range c.ch {
		if !c.primed || thresholdDB != c.thresholdDB {
			_ = comp.SetThreshold(thresholdDB)
		}
		if !c.primed || ratio != c.ratio {
			_ = comp.SetRatio(ratio)
		}
		if !c.primed || attackMs != c.attackMs {
			_ = comp.SetAttack(attack)
		}
		if !c.primed || releaseMs != c.releaseMs {
			_ = comp.SetRelease(release)
		}
	}
	c.thresholdDB, c.ratio, c.attackMs, c.releaseMs = thresholdDB, ratio, attackMs, releaseMs
	c.primed = len(c.ch) > 0
}

// Process compresses b in place.
func (c *Compressor) Process(b block.Buffer) {
	for ch := range min(len(b), len(c.ch)) {
		c.ch[ch].ProcessInPlace(b[ch])
	}
}
