// SPDX-License-Identifier: MIT

/*
Package playback implements the looping transport: it owns the playback
position, the loop mode and the active region, and fills output blocks from
the loaded asset.

Two contexts touch a Transport. The control context calls the setters
(Start, Stop, SetPosition, SetMode, SetRegion, SetCrossfadeMs, SetAsset); they
only store into atomics and never wait. The audio context calls Fill once per
callback; Fill picks up pending control changes at the block boundary, renders
the block, and publishes the resulting position and region for readers.

Inside the audio context position is a fractional source frame. The public API
speaks seconds.
*/
package playback

import (
	"math"
	"sync/atomic"

	"loopfx/internal/feed"
	"loopfx/internal/region"
	"loopfx/internal/source"
)

// snapEpsilon pulls positions within a millionth of a frame onto the frame.
const snapEpsilon = 1e-6

// Transport fills blocks from an asset according to the current loop mode.
type Transport struct {
	events *feed.Queue

	// Written by the control context.
	asset       atomic.Pointer[source.Asset]
	playing     atomic.Bool
	mode        atomic.Int32
	crossfadeMs atomicFloat
	seekPending atomic.Bool
	seekTarget  atomicFloat // seconds
	regionReq   atomic.Pointer[region.Region]

	// Published by the audio context.
	position  atomicFloat // seconds
	published regionCell

	// Owned by the audio context.
	selector   *region.Selector
	fader      *Crossfader
	current    *source.Asset
	active     region.Region
	lastMode   region.Mode
	pos        float64
	deviceRate float64
}

// New creates a stopped transport with no asset. deviceRate is the output
// sample rate, maxFrames the largest block Fill will be asked for. rng may be
// nil; events may be nil to discard notifications.
func New(deviceRate float64, maxFrames int, rng region.RandomSource, events *feed.Queue) *Transport {
	t := &Transport{
		events:   events,
		selector: region.NewSelector(rng),
	}
	t.Prepare(deviceRate, maxFrames)
	return t
}

// Prepare sets the output rate and maximum block size. It must not be called
// while Fill may run.
func (t *Transport) Prepare(deviceRate float64, maxFrames int) {
	if !(deviceRate > 0) {
		deviceRate = 44100
	}
	t.deviceRate = deviceRate
	t.fader = NewCrossfader(maxFrames)
}

// SetAsset installs a newly loaded asset. Playback stops, the position returns
// to zero and the region is cleared. A nil asset unloads.
func (t *Transport) SetAsset(a *source.Asset) {
	t.playing.Store(false)
	t.regionReq.Store(&region.Region{})
	t.asset.Store(a)
	t.seek(0)
}

// Asset returns the installed asset, or nil.
func (t *Transport) Asset() *source.Asset { return t.asset.Load() }

// Start begins playback. It is a no-op without an asset. Starting from the end
// of the asset in a non-looping mode rewinds first.
func (t *Transport) Start() {
	a := t.asset.Load()
	if a == nil || t.playing.Load() {
		return
	}
	if t.Mode() == region.Off && t.Position() >= a.LengthSeconds() {
		t.seek(0)
	}
	t.playing.Store(true)
}

// Stop halts playback, keeping the position.
func (t *Transport) Stop() { t.playing.Store(false) }

// IsPlaying reports the transport state.
func (t *Transport) IsPlaying() bool { return t.playing.Load() }

// SetPosition moves the playhead to sec, clamped to [0, Length()].
func (t *Transport) SetPosition(sec float64) {
	t.seek(clampSeconds(sec, t.Length()))
}

func (t *Transport) seek(sec float64) {
	t.seekTarget.Store(sec)
	t.seekPending.Store(true)
}

// Position returns the playhead in seconds. A seek that the audio context has
// not yet applied is reported as already done.
func (t *Transport) Position() float64 {
	if t.seekPending.Load() {
		return t.seekTarget.Load()
	}
	return t.position.Load()
}

// NormalizedPosition returns Position as a fraction of Length, for visualizers.
func (t *Transport) NormalizedPosition() float64 {
	l := t.Length()
	if l <= 0 {
		return 0
	}
	return math.Min(math.Max(t.Position()/l, 0), 1)
}

// Length returns the asset duration in seconds, or 0 without an asset.
func (t *Transport) Length() float64 {
	if a := t.asset.Load(); a != nil {
		return a.LengthSeconds()
	}
	return 0
}

// SetMode switches the loop mode. Switching into a random or granular mode
// draws a fresh region and jumps to it at the next block.
func (t *Transport) SetMode(m region.Mode) { t.mode.Store(int32(m)) }

// Mode returns the requested loop mode.
func (t *Transport) Mode() region.Mode { return region.Mode(t.mode.Load()) }

// SetRegion sets the loop region in seconds. Bounds are clamped to the asset
// and an end before the start is raised to the start. The change applies at
// the next block.
func (t *Transport) SetRegion(start, end float64) {
	r := region.Region{Start: start, End: end}.Clamp(t.Length())
	t.regionReq.Store(&r)
}

// LoopRegion loops [start, end) from its start. A transport in a mode that
// ignores regions (off, full) switches to the fixed region loop; random and
// granular keep their mode. An empty range changes nothing and reports false.
func (t *Transport) LoopRegion(start, end float64) bool {
	r := region.Region{Start: start, End: end}.Clamp(t.Length())
	if r.Empty() {
		return false
	}
	if !t.Mode().Bounded() {
		t.SetMode(region.FixedRegionLoop)
	}
	t.regionReq.Store(&r)
	t.seek(r.Start)
	return true
}

// Region returns the active region, or the pending one if a SetRegion has not
// been applied yet.
func (t *Transport) Region() region.Region {
	if r := t.regionReq.Load(); r != nil {
		return *r
	}
	return t.published.load()
}

// SetCrossfadeMs sets the fade applied at every loop boundary. Zero disables
// fading; negative and NaN values count as zero.
func (t *Transport) SetCrossfadeMs(ms float64) {
	if !(ms > 0) {
		ms = 0
	}
	t.crossfadeMs.Store(ms)
}

// CrossfadeMs returns the crossfade setting.
func (t *Transport) CrossfadeMs() float64 { return t.crossfadeMs.Load() }

func clampSeconds(sec, length float64) float64 {
	if !(sec > 0) {
		return 0
	}
	return math.Min(sec, length)
}
