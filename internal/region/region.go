// SPDX-License-Identifier: MIT

/*
Package region decides which part of an asset loops.

A Region is a pair of times in seconds. The Selector draws new regions for the
random and granular modes from an injectable RandomSource so that tests can
script the draws and check exact bounds. The selector never allocates and may
be called from the audio context.
*/
package region

import (
	"math"
	"math/rand/v2"
	"time"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// MinAssetSeconds is the shortest asset the selector will draw regions from.
const MinAssetSeconds = 0.05

// Region is a span of the asset in seconds. A valid region satisfies
// 0 <= Start <= End <= asset length.
type Region struct {
	Start float64
	End   float64
}

// Length returns End - Start.
func (r Region) Length() float64 { return r.End - r.Start }

// Empty reports whether the region has no extent.
func (r Region) Empty() bool { return !(r.End > r.Start) }

// Clamp forces the region into [0, length]. An end before the start is raised
// to the start.
func (r Region) Clamp(length float64) Region {
	length = math.Max(length, 0)
	r.Start = clamp(r.Start, 0, length)
	r.End = clamp(r.End, 0, length)
	if r.End < r.Start {
		r.End = r.Start
	}
	return r
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(math.Max(v, lo), hi)
}

// Bounds returns the minimum and maximum region length drawn in mode m.
// ok is false for modes that do not draw regions.
func Bounds(m Mode) (minLen, maxLen float64, ok bool) {
	switch m {
	case RandomRegion:
		return 0.1, 3.0, true
	case GranularRegion:
		return 0.05, 0.20, true
	default:
		return 0, 0, false
	}
}

// RandomSource yields uniformly distributed values in [0, 1).
type RandomSource interface {
	Float64() float64
}

// Change describes a freshly selected region for display. Colors are kept as
// values so building a Change never allocates.
type Change struct {
	StartNorm     float64
	EndNorm       float64
	RegionColor   colorful.Color
	RegionAlpha   float64
	PlayheadColor colorful.Color
}

// Selector draws regions for the random and granular modes. A Selector is not
// safe for concurrent use; it belongs to the audio context.
type Selector struct {
	rng RandomSource
}

// NewSelector returns a selector drawing from rng, or from a time-seeded PCG
// generator when rng is nil.
func NewSelector(rng RandomSource) *Selector {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
	return &Selector{rng: rng}
}

// Select draws a new region for mode within an asset of length seconds.
// It returns false, leaving the caller's region untouched, when the mode does
// not draw regions or the asset is too short.
func (s *Selector) Select(mode Mode, length float64) (Region, bool) {
	minLen, maxLen, ok := Bounds(mode)
	if !ok || !(length > MinAssetSeconds) {
		return Region{}, false
	}
	if minLen > length {
		minLen = length / 2
	}

	start := s.rng.Float64() * math.Max(length-minLen, 0)
	span := minLen + s.rng.Float64()*(maxLen-minLen)
	r := Region{Start: start, End: math.Min(start+span, length)}
	return r.Clamp(length), true
}

// Announce builds the display notification for r, drawing a fresh pair of
// colors.
func (s *Selector) Announce(r Region, length float64) Change {
	c := Change{RegionAlpha: 0.3}
	if length > 0 {
		c.StartNorm = clamp(r.Start/length, 0, 1)
		c.EndNorm = clamp(r.End/length, 0, 1)
	}
	c.RegionColor = colorful.Hsv(s.rng.Float64()*360, 0.4+0.4*s.rng.Float64(), 1.0)
	c.PlayheadColor = colorful.Hsv(s.rng.Float64()*360, 0.9, 0.95)
	return c
}
