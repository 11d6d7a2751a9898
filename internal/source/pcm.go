// SPDX-License-Identifier: MIT
package source

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"

	"loopfx/internal/block"
)

const wavFormatPCM = 1

func decodeWAV(r io.ReadSeeker) (*Asset, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a WAV file", ErrUnsupportedFormat)
	}
	if dec.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: WAV format tag %d", ErrUnsupportedFormat, dec.WavAudioFormat)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("reading WAV samples: %w", err)
	}
	// 8-bit WAV is stored unsigned.
	return fromIntBuffer(buf, int(dec.BitDepth), dec.BitDepth == 8)
}

func decodeAIFF(r io.ReadSeeker) (*Asset, error) {
	dec := aiff.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not an AIFF file", ErrUnsupportedFormat)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("reading AIFF samples: %w", err)
	}
	return fromIntBuffer(buf, int(dec.BitDepth), false)
}

// fromIntBuffer normalizes go-audio integer PCM to [-1, 1].
func fromIntBuffer(buf *goaudio.IntBuffer, bitDepth int, unsigned bool) (*Asset, error) {
	if buf == nil || buf.Format == nil || buf.Format.NumChannels <= 0 {
		return nil, fmt.Errorf("%w: missing PCM format", ErrUnsupportedFormat)
	}
	if bitDepth < 8 || bitDepth > 32 {
		return nil, fmt.Errorf("%w: %d-bit PCM", ErrUnsupportedFormat, bitDepth)
	}
	channels := buf.Format.NumChannels
	scale := float64(int64(1) << (bitDepth - 1))
	offset := 0.0
	if unsigned {
		offset = scale
	}

	frames := len(buf.Data) / channels
	data := block.New(channels, frames)
	for i := range frames {
		for ch := range channels {
			data[ch][i] = (float64(buf.Data[i*channels+ch]) - offset) / scale
		}
	}
	return NewAsset(float64(buf.Format.SampleRate), data)
}

// go-mp3 always produces 16-bit little-endian stereo.
func decodeMP3(r io.ReadSeeker) (*Asset, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("reading MP3 samples: %w", err)
	}

	const channels = 2
	frames := len(raw) / (2 * channels)
	data := block.New(channels, frames)
	for i := range frames {
		for ch := range channels {
			off := (i*channels + ch) * 2
			v := int16(binary.LittleEndian.Uint16(raw[off:]))
			data[ch][i] = float64(v) / 32768.0
		}
	}
	return NewAsset(float64(dec.SampleRate()), data)
}

func decodeVorbis(r io.ReadSeeker) (*Asset, error) {
	samples, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	return FromInterleaved(float64(format.SampleRate), format.Channels, samples)
}
