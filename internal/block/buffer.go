// SPDX-License-Identifier: MIT
/*
Package block defines the planar sample buffer shared by the transport, the
effect chain and the output backends.

A Buffer holds one []float64 per channel. Every channel has the same length,
which is the number of frames in the block. Helpers here never allocate unless
their name says so (New, Clone, Resize), so they can be used from the audio
callback.
*/
package block

// Buffer is a planar block of audio: Buffer[ch][frame].
type Buffer [][]float64

// New allocates a zeroed buffer with the given channel and frame counts.
func New(channels, frames int) Buffer {
	if channels < 0 {
		channels = 0
	}
	if frames < 0 {
		frames = 0
	}
	b := make(Buffer, channels)
	for ch := range b {
		b[ch] = make([]float64, frames)
	}
	return b
}

// Channels returns the channel count.
func (b Buffer) Channels() int { return len(b) }

// Frames returns the number of frames per channel.
func (b Buffer) Frames() int {
	if len(b) == 0 {
		return 0
	}
	return len(b[0])
}

// Clear zeroes every sample.
func (b Buffer) Clear() {
	for _, ch := range b {
		clear(ch)
	}
}

// ClearRange zeroes n frames starting at off on every channel. Out-of-range
// parts of the window are ignored.
func (b Buffer) ClearRange(off, n int) {
	off, n = b.window(off, n)
	for _, ch := range b {
		clear(ch[off : off+n])
	}
}

// Peak returns the largest absolute sample value across all channels.
func (b Buffer) Peak() float64 {
	var peak float64
	for _, ch := range b {
		for _, v := range ch {
			if v < 0 {
				v = -v
			}
			if v > peak {
				peak = v
			}
		}
	}
	return peak
}

// CopyFrom copies as many frames and channels as both buffers share and
// returns the number of frames copied.
func (b Buffer) CopyFrom(src Buffer) int {
	n := 0
	for ch := range b {
		if ch >= len(src) {
			clear(b[ch])
			continue
		}
		n = copy(b[ch], src[ch])
	}
	return n
}

// Clone returns a deep copy.
func (b Buffer) Clone() Buffer {
	out := make(Buffer, len(b))
	for ch := range b {
		out[ch] = append([]float64(nil), b[ch]...)
	}
	return out
}

// Resize returns a buffer with the requested shape, reusing the existing
// backing arrays when their capacity allows it. Contents are not preserved.
func (b Buffer) Resize(channels, frames int) Buffer {
	if cap(b) < channels {
		b = append(b[:cap(b)], make(Buffer, channels-cap(b))...)
	}
	b = b[:channels]
	for ch := range b {
		if cap(b[ch]) < frames {
			b[ch] = make([]float64, frames)
		}
		b[ch] = b[ch][:frames]
	}
	return b
}

// View points dst at the first n frames of every channel of b and returns it.
// dst must have capacity for b's channels. No sample storage is allocated, so
// a host can hand a shorter block to the processor from a fixed-size buffer.
func (b Buffer) View(dst Buffer, n int) Buffer {
	dst = dst[:len(b)]
	for ch := range b {
		if n > len(b[ch]) {
			n = len(b[ch])
		}
		dst[ch] = b[ch][:n]
	}
	return dst
}

// Interleave writes the buffer into dst as interleaved float32 frames and
// returns the number of frames written. Channels missing from b are written as
// silence; extra channels in b are dropped.
func (b Buffer) Interleave(dst []float32, channels int) int {
	if channels <= 0 {
		return 0
	}
	frames := len(dst) / channels
	if f := b.Frames(); f < frames {
		frames = f
	}
	for i := range frames {
		for ch := range channels {
			var v float64
			if ch < len(b) {
				v = b[ch][i]
			}
			dst[i*channels+ch] = float32(v)
		}
	}
	return frames
}

func (b Buffer) window(off, n int) (int, int) {
	frames := b.Frames()
	if off < 0 {
		n += off
		off = 0
	}
	if off > frames {
		off = frames
	}
	if n < 0 {
		n = 0
	}
	if off+n > frames {
		n = frames - off
	}
	return off, n
}
