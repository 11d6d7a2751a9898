// SPDX-License-Identifier: MIT

/*
Package source provides decoded, immutable audio assets and the machinery to
produce them from files.

An Asset is built once by a Decoder and never mutated afterwards, so the audio
context can read from it without locks. Loading a different file creates a new
Asset; the old one is simply dropped once nothing references it.

Samples are stored planar as float64 in [-1, 1], one slice per channel, at the
file's native sample rate. Rate conversion happens in the playback read stage.
*/
package source

import (
	"fmt"
	"math"

	"loopfx/internal/block"

	"gonum.org/v1/gonum/floats"
)

// Asset is a fully decoded audio file.
type Asset struct {
	Path string

	sampleRate float64
	data       block.Buffer
}

// NewAsset wraps planar sample data. The data is owned by the asset from here on.
func NewAsset(sampleRate float64, data block.Buffer) (*Asset, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("%w: sample rate %v", ErrUnsupportedFormat, sampleRate)
	}
	if data.Channels() == 0 || data.Frames() == 0 {
		return nil, ErrEmptyAsset
	}
	for ch := range data {
		if len(data[ch]) != data.Frames() {
			return nil, fmt.Errorf("%w: channel %d has %d frames, want %d",
				ErrUnsupportedFormat, ch, len(data[ch]), data.Frames())
		}
	}
	return &Asset{sampleRate: sampleRate, data: data}, nil
}

// FromInterleaved de-interleaves float32 samples into a new asset. Trailing
// samples that do not make up a whole frame are dropped.
func FromInterleaved(sampleRate float64, channels int, samples []float32) (*Asset, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("%w: %d channels", ErrUnsupportedFormat, channels)
	}
	frames := len(samples) / channels
	data := block.New(channels, frames)
	for i := range frames {
		for ch := range channels {
			data[ch][i] = float64(samples[i*channels+ch])
		}
	}
	return NewAsset(sampleRate, data)
}

// SampleRate returns the native rate in Hz.
func (a *Asset) SampleRate() float64 { return a.sampleRate }

// Channels returns the channel count.
func (a *Asset) Channels() int { return a.data.Channels() }

// Frames returns the length in sample frames.
func (a *Asset) Frames() int { return a.data.Frames() }

// LengthSeconds returns the duration.
func (a *Asset) LengthSeconds() float64 {
	return float64(a.data.Frames()) / a.sampleRate
}

// Channel returns the samples of one channel. Callers must not modify the
// returned slice.
func (a *Asset) Channel(ch int) []float64 { return a.data[ch] }

// ReadRange copies count frames starting at frame start into dst[ch][:count].
// dst may have fewer channels than the asset; extra asset channels are skipped
// and a mono asset is copied into every dst channel.
func (a *Asset) ReadRange(start, count int, dst block.Buffer) error {
	if a == nil {
		return ErrNotOpened
	}
	if start < 0 || count < 0 || start+count > a.Frames() {
		return fmt.Errorf("%w: [%d, %d) of %d frames", ErrOutOfRange, start, start+count, a.Frames())
	}
	if dst.Frames() < count {
		return fmt.Errorf("%w: destination holds %d frames, need %d", ErrOutOfRange, dst.Frames(), count)
	}
	for ch := range dst {
		copy(dst[ch][:count], a.data[ch%a.Channels()][start:start+count])
	}
	return nil
}

// Span is the minimum and maximum sample value inside one overview bin.
type Span struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Overview reduces the asset to bins min/max pairs across all channels, for
// drawing a waveform. It returns nil for bins <= 0.
func (a *Asset) Overview(bins int) []Span {
	if bins <= 0 {
		return nil
	}
	frames := a.Frames()
	if bins > frames {
		bins = frames
	}
	out := make([]Span, bins)
	for b := range out {
		lo := b * frames / bins
		hi := (b + 1) * frames / bins
		span := Span{Min: math.Inf(1), Max: math.Inf(-1)}
		for _, ch := range a.data {
			span.Min = math.Min(span.Min, floats.Min(ch[lo:hi]))
			span.Max = math.Max(span.Max, floats.Max(ch[lo:hi]))
		}
		out[b] = span
	}
	return out
}
