// SPDX-License-Identifier: MIT
package audio

import (
	"testing"

	"loopfx/internal/block"
	"loopfx/internal/effects"
	"loopfx/internal/region"
)

func TestProcessorSilentWithoutAsset(t *testing.T) {
	p, _ := newTestProcessor(t, 2)
	b := block.New(2, testFrames)
	b[0][0] = 1 // stale data must be overwritten
	p.Process(b)
	if b.Peak() != 0 {
		t.Errorf("peak = %v, want silence", b.Peak())
	}
	if p.Safety().Tripped() {
		t.Error("silence tripped the latch")
	}
}

func TestProcessorFeedsTap(t *testing.T) {
	p, _ := newTestProcessor(t, 2)
	play(p, sineAsset(t, 1, 1, 0.5))

	b := block.New(2, testFrames)
	p.Process(b)

	snap := p.Tap().Snapshot()
	if snap.Frames() != testFrames {
		t.Fatalf("tap frames = %d, want %d", snap.Frames(), testFrames)
	}
	for ch := range b {
		for i := range b[ch] {
			if snap[ch][i] != b[ch][i] {
				t.Fatalf("tap[%d][%d] = %v, output %v", ch, i, snap[ch][i], b[ch][i])
			}
		}
	}
}

func TestProcessorAppliesTempo(t *testing.T) {
	p, _ := newTestProcessor(t, 1)
	play(p, sineAsset(t, 1, 2, 0.5))
	p.Params().Set(effects.TempoRatio, 2)

	b := block.New(1, testFrames)
	p.Process(b)

	want := 2.0 * testFrames / testRate
	if got := p.Transport().Position(); got != want {
		t.Errorf("position = %v, want %v", got, want)
	}
}

func TestProcessorDoesNotAllocate(t *testing.T) {
	p, _ := newTestProcessor(t, 2)
	play(p, sineAsset(t, 2, 1, 0.5))
	p.Transport().SetMode(region.FullLoop)
	p.Params().SetEnabled(effects.TremoloEnabled, true)
	p.Params().Set(effects.Gain, 0.8)

	b := block.New(2, testFrames)
	p.Process(b)

	allocs := testing.AllocsPerRun(100, func() {
		p.Process(b)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations, got %.1f", allocs)
	}
}

func BenchmarkProcessor(b *testing.B) {
	p, _ := newTestProcessor(b, 2)
	play(p, sineAsset(b, 2, 4, 0.5))
	p.Transport().SetMode(region.FullLoop)
	buf := block.New(2, testFrames)

	for b.Loop() {
		p.Process(buf)
	}
}
