// SPDX-License-Identifier: MIT
package audio

import (
	"sync"

	"loopfx/internal/block"
)

// Tap keeps a copy of the most recent output block for visualizers. The lock
// is held only while samples are copied in or out.
type Tap struct {
	channels  int
	maxFrames int

	mu     sync.Mutex
	buf    block.Buffer
	frames int
	seq    uint64
}

// NewTap preallocates storage for blocks of up to maxFrames frames.
func NewTap(channels, maxFrames int) *Tap {
	return &Tap{
		channels:  channels,
		maxFrames: maxFrames,
		buf:       block.New(channels, maxFrames),
	}
}

// Capture copies b into the tap. Frames beyond the preallocated size are
// dropped. Called from the audio callback; it never allocates.
func (t *Tap) Capture(b block.Buffer) {
	t.mu.Lock()
	n := 0
	for ch := range t.buf {
		if ch < len(b) {
			n = copy(t.buf[ch], b[ch])
		} else {
			clear(t.buf[ch])
		}
	}
	t.frames = n
	t.seq++
	t.mu.Unlock()
}

// Snapshot returns a copy of the last captured block.
func (t *Tap) Snapshot() block.Buffer {
	b, _ := t.SnapshotInto(nil)
	return b
}

// SnapshotInto copies the last captured block into dst and returns it with
// the capture sequence number. dst is grown to the tap's full size before
// the lock is taken, so a reused dst never allocates. The sequence number
// lets pollers skip work when nothing new has been captured.
func (t *Tap) SnapshotInto(dst block.Buffer) (block.Buffer, uint64) {
	dst = dst.Resize(t.channels, t.maxFrames)

	t.mu.Lock()
	defer t.mu.Unlock()
	for ch := range dst {
		dst[ch] = dst[ch][:t.frames]
		copy(dst[ch], t.buf[ch])
	}
	return dst, t.seq
}

// Mono mixes the last captured block down to one channel into dst.
func (t *Tap) Mono(dst []float64) ([]float64, uint64) {
	if cap(dst) < t.maxFrames {
		dst = make([]float64, t.maxFrames)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	dst = dst[:t.frames]
	clear(dst)
	if len(t.buf) == 0 {
		return dst, t.seq
	}
	scale := 1 / float64(len(t.buf))
	for _, ch := range t.buf {
		for i, v := range ch[:t.frames] {
			dst[i] += v * scale
		}
	}
	return dst, t.seq
}
