// SPDX-License-Identifier: MIT
package feed

import (
	"context"
	"sync"
	"testing"
	"time"

	colorful "github.com/lucasb-eyer/go-colorful"

	"loopfx/internal/region"
	"loopfx/internal/source"
)

type recorder struct {
	mu        sync.Mutex
	regions   []string
	playheads []float64
	trips     []float64
	ended     int
	loaded    []string
}

func (r *recorder) OnRegionChanged(start, end float64, regionColor, playheadColor string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.regions = append(r.regions, regionColor+"/"+playheadColor)
}

func (r *recorder) OnPlayheadUpdate(pos float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.playheads = append(r.playheads, pos)
}

func (r *recorder) OnSafetyTripped(peak float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trips = append(r.trips, peak)
}

func (r *recorder) OnPlaybackEnded() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ended++
}

func (r *recorder) OnAssetLoaded(path string, length float64, overview []source.Span) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded = append(r.loaded, path)
}

func (r *recorder) playheadCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.playheads)
}

type fixedPlayhead float64

func (p fixedPlayhead) NormalizedPosition() float64 { return float64(p) }

func TestQueueDropsWhenFull(t *testing.T) {
	q := NewQueue(2)
	for i := range 5 {
		ok := q.Post(Event{Kind: PlaybackEnded})
		if want := i < 2; ok != want {
			t.Errorf("Post #%d = %v, want %v", i, ok, want)
		}
	}
	if q.Dropped() != 3 {
		t.Errorf("Dropped = %d, want 3", q.Dropped())
	}

	var nilQueue *Queue
	if nilQueue.Post(Event{}) {
		t.Error("nil queue accepted an event")
	}
}

func TestQueuePostDoesNotAllocate(t *testing.T) {
	q := NewQueue(1)
	e := Event{Kind: RegionChanged, Region: region.Change{StartNorm: 0.1, EndNorm: 0.2}}
	allocs := testing.AllocsPerRun(100, func() {
		q.Post(e)
		select {
		case <-q.Events():
		default:
		}
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations, got %.1f", allocs)
	}
}

func TestDeliverFansOut(t *testing.T) {
	d := NewDispatcher(NewQueue(4), nil, time.Second)
	a, b := &recorder{}, &recorder{}
	d.Subscribe(a)
	d.Subscribe(b)

	d.Deliver(Event{Kind: RegionChanged, Region: region.Change{
		RegionColor:   colorful.Color{R: 1, G: 0, B: 0},
		PlayheadColor: colorful.Color{R: 0, G: 0, B: 1},
	}})
	d.Deliver(Event{Kind: SafetyTripped, Peak: 1.2})
	d.Deliver(Event{Kind: PlaybackEnded})
	d.Deliver(Event{Kind: AssetLoaded, Path: "loop.wav"})

	for _, r := range []*recorder{a, b} {
		if len(r.regions) != 1 || r.regions[0] != "#ff0000/#0000ff" {
			t.Errorf("regions = %v", r.regions)
		}
		if len(r.trips) != 1 || r.trips[0] != 1.2 {
			t.Errorf("trips = %v", r.trips)
		}
		if r.ended != 1 {
			t.Errorf("ended = %d", r.ended)
		}
		if len(r.loaded) != 1 || r.loaded[0] != "loop.wav" {
			t.Errorf("loaded = %v", r.loaded)
		}
	}
}

func TestRunDrainsQueueAndPollsPlayhead(t *testing.T) {
	q := NewQueue(4)
	d := NewDispatcher(q, fixedPlayhead(0.25), 5*time.Millisecond)
	rec := &recorder{}
	d.Subscribe(rec)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	q.Post(Event{Kind: PlaybackEnded})

	deadline := time.Now().Add(2 * time.Second)
	for rec.playheadCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned %v", err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.ended != 1 {
		t.Errorf("ended = %d, want 1", rec.ended)
	}
	if len(rec.playheads) < 2 || rec.playheads[0] != 0.25 {
		t.Errorf("playheads = %v", rec.playheads)
	}
}
