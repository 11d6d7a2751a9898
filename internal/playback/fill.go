// SPDX-License-Identifier: MIT
package playback

import (
	"math"

	"loopfx/internal/block"
	"loopfx/internal/feed"
	"loopfx/internal/region"
	"loopfx/internal/source"
)

// Fill renders the next block into b. ratio scales playback speed; 1 plays at
// the asset's native speed and values <= 0 count as 1. Fill never allocates,
// locks or blocks, and always writes every frame of every channel of b.
//
// Every loop mode goes through the same bounded fill: read up to the active
// boundary, fade out, jump to the wrap target, fade in, and repeat until the
// block is full.
func (t *Transport) Fill(b block.Buffer, ratio float64) {
	a := t.sync()
	n := b.Frames()
	if a == nil || !t.playing.Load() || n == 0 {
		b.Clear()
		t.publishPosition(a)
		return
	}

	if !(ratio > 0) || math.IsInf(ratio, 0) {
		ratio = 1
	}
	step := ratio * a.SampleRate() / t.deviceRate
	fadeLen := int(math.Round(t.crossfadeMs.Load() * t.deviceRate / 1000))
	mode := t.lastMode

	off := 0
	fadeIn := false
	emptyWraps := 0
	for off < n {
		remaining := n - off
		bound, loops := t.boundary(a, mode)
		k := t.samplesBefore(bound, step, remaining)

		if k >= remaining {
			t.read(a, b, off, remaining, step)
			if fadeIn {
				t.fader.FadeIn(b, off, remaining, fadeLen)
			}
			break
		}

		if !loops {
			t.read(a, b, off, k, step)
			b.ClearRange(off+k, remaining-k)
			t.pos = bound
			if t.playing.CompareAndSwap(true, false) {
				t.events.Post(feed.Event{Kind: feed.PlaybackEnded})
			}
			break
		}

		if k == 0 {
			// Two wraps in a row without output means the boundary sits
			// inside one output sample; play through it.
			if emptyWraps++; emptyWraps > 1 {
				t.read(a, b, off, remaining, step)
				break
			}
		} else {
			emptyWraps = 0
			t.read(a, b, off, k, step)
			if fadeIn {
				t.fader.FadeIn(b, off, k, fadeLen)
			}
			t.fader.FadeOut(b, off, k, fadeLen)
			off += k
		}
		t.wrap(a, mode)
		fadeIn = true
	}

	// The last sample of a block can land on or past the boundary without a
	// split; wrap now so the next block starts inside the loop.
	if bound, loops := t.boundary(a, mode); loops && t.pos >= bound {
		t.wrap(a, mode)
	}
	t.publishPosition(a)
}

// sync applies pending control-context changes at the block boundary and
// returns the asset to read from.
func (t *Transport) sync() *source.Asset {
	a := t.asset.Load()
	if a != t.current {
		t.current = a
		t.active = region.Region{}
		t.pos = 0
		t.published.store(t.active)
	}
	if a == nil {
		t.regionReq.Store(nil)
		t.seekPending.Store(false)
		return nil
	}

	length := a.LengthSeconds()
	if r := t.regionReq.Swap(nil); r != nil {
		t.active = r.Clamp(length)
		t.published.store(t.active)
	}
	if t.seekPending.Swap(false) {
		t.pos = t.toFrames(a, clampSeconds(t.seekTarget.Load(), length))
	}

	mode := region.Mode(t.mode.Load())
	switch {
	case mode != t.lastMode:
		t.lastMode = mode
		if mode.Regenerates() && t.regenerate(a, mode) {
			t.pos = t.toFrames(a, t.active.Start)
		}
	case mode.Regenerates() && t.active.Empty():
		if t.regenerate(a, mode) {
			t.pos = t.toFrames(a, t.active.Start)
		}
	}
	return a
}

// boundary returns the frame at which the current span ends and whether
// reaching it wraps (true) or ends playback (false).
func (t *Transport) boundary(a *source.Asset, mode region.Mode) (float64, bool) {
	if mode.Bounded() && !t.active.Empty() {
		return t.toFrames(a, t.active.End), true
	}
	return float64(a.Frames()), mode == region.FullLoop
}

// wrap moves the read position to the wrap target of the current mode,
// drawing a new region first in the random and granular modes.
func (t *Transport) wrap(a *source.Asset, mode region.Mode) {
	if !mode.Bounded() || t.active.Empty() {
		t.pos = 0
		return
	}
	if mode.Regenerates() {
		t.regenerate(a, mode)
	}
	t.pos = t.toFrames(a, t.active.Start)
}

// regenerate draws a new region and announces it. It reports false, keeping
// the current region, when the selector refuses.
func (t *Transport) regenerate(a *source.Asset, mode region.Mode) bool {
	length := a.LengthSeconds()
	r, ok := t.selector.Select(mode, length)
	if !ok {
		return false
	}
	t.active = r
	t.published.store(r)
	t.events.Post(feed.Event{Kind: feed.RegionChanged, Region: t.selector.Announce(r, length)})
	return true
}

// samplesBefore returns how many output samples, capped at limit, are read
// before the position reaches bound.
func (t *Transport) samplesBefore(bound, step float64, limit int) int {
	if !(t.pos < bound) {
		return 0
	}
	d := (bound - t.pos) / step
	if d >= float64(limit) {
		return limit
	}
	return int(math.Ceil(d))
}

func (t *Transport) read(a *source.Asset, b block.Buffer, off, count int, step float64) {
	if count <= 0 {
		return
	}
	for ch := range b {
		readChannel(b[ch][off:off+count], a.Channel(ch%a.Channels()), t.pos, step)
	}
	t.pos = snap(t.pos + float64(count)*step)
}

func (t *Transport) toFrames(a *source.Asset, sec float64) float64 {
	return snap(sec * a.SampleRate())
}

func (t *Transport) publishPosition(a *source.Asset) {
	if a == nil {
		t.position.Store(0)
		return
	}
	t.position.Store(t.pos / a.SampleRate())
}

func snap(frames float64) float64 {
	if r := math.Round(frames); math.Abs(frames-r) < snapEpsilon {
		return r
	}
	return frames
}
