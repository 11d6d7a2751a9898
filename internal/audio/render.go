// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"fmt"
	"io"
	"math"

	"loopfx/internal/block"

	"github.com/go-audio/wav"
)

// Render runs p offline for up to seconds of output and writes the result to
// w as a WAV file. Rendering ends early when the transport stops on its own.
// It returns the number of frames written.
func Render(ctx context.Context, p *Processor, w io.WriteSeeker, seconds float64, bitDepth int) (int, error) {
	if bitDepth != 16 && bitDepth != 24 {
		return 0, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}
	if !(seconds > 0) || math.IsInf(seconds, 0) {
		return 0, fmt.Errorf("render duration must be positive, got %v", seconds)
	}

	rate := int(p.SampleRate())
	channels := p.Channels()
	enc := wav.NewEncoder(w, rate, bitDepth, channels, 1)
	pcm := newPCMWriter(rate, channels, bitDepth, p.MaxFrames())

	buf := block.New(channels, p.MaxFrames())
	view := make(block.Buffer, channels)
	total := int(math.Round(seconds * p.SampleRate()))

	written := 0
	for written < total {
		if err := ctx.Err(); err != nil {
			enc.Close()
			return written, err
		}
		n := min(total-written, p.MaxFrames())
		b := buf.View(view, n)
		p.Process(b)
		if err := pcm.write(enc, b, n); err != nil {
			enc.Close()
			return written, err
		}
		written += n
		if !p.Transport().IsPlaying() {
			break
		}
	}

	if err := enc.Close(); err != nil {
		return written, fmt.Errorf("failed to finalize render: %w", err)
	}
	return written, nil
}
