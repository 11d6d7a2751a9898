// SPDX-License-Identifier: MIT
package playback

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/interp"
)

// readChannel fills dst with src sampled at pos, pos+step, pos+2*step, ...
// using cubic Hermite interpolation. Positions outside src read as silence.
func readChannel(dst, src []float64, pos, step float64) {
	if step == 1 && pos == math.Trunc(pos) && pos >= 0 {
		i0 := int(min(pos, float64(len(src))))
		n := copy(dst, src[i0:])
		clear(dst[n:])
		return
	}
	for i := range dst {
		dst[i] = sampleAt(src, pos+float64(i)*step)
	}
}

// sampleAt interpolates src at a fractional frame position with a 4-point
// Hermite kernel. Neighbours past either end repeat the edge sample; integer
// positions return the sample itself.
func sampleAt(src []float64, p float64) float64 {
	last := len(src) - 1
	if last < 0 || !(p >= 0) || p > float64(last) {
		return 0
	}
	i := int(p)
	t := p - float64(i)
	if t == 0 {
		return src[i]
	}
	return interp.Hermite4(t, src[max(i-1, 0)], src[i], src[min(i+1, last)], src[min(i+2, last)])
}
