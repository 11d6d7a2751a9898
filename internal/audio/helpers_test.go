// SPDX-License-Identifier: MIT
package audio

import (
	"testing"
	"time"

	"loopfx/internal/audiotest"
	"loopfx/internal/effects"
	"loopfx/internal/feed"
	"loopfx/internal/playback"
	"loopfx/internal/source"
)

const (
	testRate   = 8000
	testFrames = 256
)

// newTestProcessor returns a processor with the compressor neutralized so
// that levels are predictable.
func newTestProcessor(t testing.TB, channels int) (*Processor, *feed.Queue) {
	t.Helper()
	q := feed.NewQueue(16)
	tr := playback.New(testRate, testFrames, nil, q)
	params := effects.NewParameters()
	params.Set(effects.Ratio, 1)
	return NewProcessor(tr, params, q, testRate, channels, testFrames), q
}

func sineAsset(t testing.TB, channels int, seconds, amp float64) *source.Asset {
	t.Helper()
	frames := int(seconds * testRate)
	a, err := source.NewAsset(testRate, audiotest.Sine(channels, frames, testRate, 440, amp))
	if err != nil {
		t.Fatalf("NewAsset: %v", err)
	}
	return a
}

func play(p *Processor, a *source.Asset) {
	p.Transport().SetAsset(a)
	p.Transport().Start()
}

func waitEvent(t *testing.T, q *feed.Queue, kind feed.Kind) feed.Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case e := <-q.Events():
			if e.Kind == kind {
				return e
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %v event", kind)
			return feed.Event{}
		}
	}
}
