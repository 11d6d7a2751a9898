// SPDX-License-Identifier: MIT

// Package audiotest holds signal generators and fixtures shared by the
// package tests. Nothing outside _test.go files imports it.
package audiotest

import (
	"math"
	"os"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"loopfx/internal/block"
)

// Sine returns channels copies of a sine at freq Hz.
func Sine(channels, frames int, sampleRate, freq, amp float64) block.Buffer {
	b := block.New(channels, frames)
	for i := range frames {
		v := amp * math.Sin(2*math.Pi*freq*float64(i)/sampleRate)
		for ch := range b {
			b[ch][i] = v
		}
	}
	return b
}

// Complex returns a 440 Hz tone with two harmonics, peaking below 0.9.
func Complex(channels, frames int, sampleRate float64) block.Buffer {
	b := block.New(channels, frames)
	for i := range frames {
		tm := float64(i) / sampleRate
		v := 0.45*math.Sin(2*math.Pi*440*tm) +
			0.27*math.Sin(2*math.Pi*880*tm) +
			0.18*math.Sin(2*math.Pi*1320*tm)
		for ch := range b {
			b[ch][i] = v
		}
	}
	return b
}

// Ramp returns a buffer whose sample value equals its frame index, so a test
// can read back exactly which source frame landed where.
func Ramp(channels, frames int) block.Buffer {
	b := block.New(channels, frames)
	for ch := range b {
		for i := range b[ch] {
			b[ch][i] = float64(i)
		}
	}
	return b
}

// Constant returns a buffer filled with v.
func Constant(channels, frames int, v float64) block.Buffer {
	b := block.New(channels, frames)
	for ch := range b {
		for i := range b[ch] {
			b[ch][i] = v
		}
	}
	return b
}

// ScriptedRand replays Values in order, wrapping around at the end.
type ScriptedRand struct {
	Values []float64
	next   int
}

func (s *ScriptedRand) Float64() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	v := s.Values[s.next%len(s.Values)]
	s.next++
	return v
}

// Draws reports how many values have been consumed.
func (s *ScriptedRand) Draws() int { return s.next }

// WriteWAV encodes b as integer PCM at the given bit depth. Samples are
// expected in [-1, 1].
func WriteWAV(t testing.TB, path string, sampleRate, bitDepth int, b block.Buffer) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	channels := b.Channels()
	scale := float64(int64(1)<<(bitDepth-1) - 1)
	data := make([]int, b.Frames()*channels)
	for i := range b.Frames() {
		for ch := range channels {
			data[i*channels+ch] = int(math.Round(b[ch][i] * scale))
		}
	}

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder %s: %v", path, err)
	}
}

// FindPeakBin returns the index of the largest magnitude in [startBin, endBin].
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}
	startBin = max(startBin, 0)
	endBin = min(endBin, len(magnitudes)-1)

	peakBin := startBin
	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > magnitudes[peakBin] {
			peakBin = bin
		}
	}
	return peakBin
}
