// SPDX-License-Identifier: MIT
package playback

import (
	"math"

	vecmath "github.com/cwbudde/algo-vecmath"

	"loopfx/internal/block"
)

// FadeOutGain is the equal-power fade-out gain at index i of a window of
// length n: 1 at i=0 falling to 0 at i=n-1.
func FadeOutGain(i, n int) float64 {
	if n < 2 {
		return 1
	}
	return math.Cos(math.Pi / 2 * float64(i) / float64(n-1))
}

// FadeInGain mirrors FadeOutGain: 0 at i=0 rising to 1 at i=n-1.
func FadeInGain(i, n int) float64 {
	if n < 2 {
		return 1
	}
	return math.Sin(math.Pi / 2 * float64(i) / float64(n-1))
}

// Crossfader applies fade windows to parts of a block. The gain curve is
// rendered into preallocated scratch space and multiplied into each channel.
type Crossfader struct {
	gains []float64
}

// NewCrossfader returns a crossfader able to render windows of up to maxLen
// samples. Longer requests are shortened to maxLen.
func NewCrossfader(maxLen int) *Crossfader {
	return &Crossfader{gains: make([]float64, max(maxLen, 0))}
}

// FadeOut fades the last min(fadeLen, n) samples of the window [off, off+n).
// Windows shorter than two samples are left untouched.
func (c *Crossfader) FadeOut(b block.Buffer, off, n, fadeLen int) {
	l := c.length(n, fadeLen)
	if l < 2 {
		return
	}
	g := c.gains[:l]
	for i := range g {
		g[i] = FadeOutGain(i, l)
	}
	c.apply(b, off+n-l, g)
}

// FadeIn fades the first min(fadeLen, n) samples of the window [off, off+n).
func (c *Crossfader) FadeIn(b block.Buffer, off, n, fadeLen int) {
	l := c.length(n, fadeLen)
	if l < 2 {
		return
	}
	g := c.gains[:l]
	for i := range g {
		g[i] = FadeInGain(i, l)
	}
	c.apply(b, off, g)
}

func (c *Crossfader) length(n, fadeLen int) int {
	return min(n, fadeLen, len(c.gains))
}

func (c *Crossfader) apply(b block.Buffer, off int, g []float64) {
	if off < 0 || off+len(g) > b.Frames() {
		return
	}
	for _, ch := range b {
		vecmath.MulBlockInPlace(ch[off:off+len(g)], g)
	}
}
