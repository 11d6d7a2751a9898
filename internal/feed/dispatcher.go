// SPDX-License-Identifier: MIT
package feed

import (
	"context"
	"sync"
	"time"

	"loopfx/internal/log"
	"loopfx/internal/source"
)

// Visualizer receives display notifications on the control context.
type Visualizer interface {
	OnRegionChanged(startNorm, endNorm float64, regionColor, playheadColor string)
	OnPlayheadUpdate(position float64)
	OnSafetyTripped(peak float64)
	OnPlaybackEnded()
}

// AssetObserver is implemented by visualizers that also draw the waveform.
type AssetObserver interface {
	OnAssetLoaded(path string, lengthSec float64, overview []source.Span)
}

// PlayheadSource reports the playhead as a fraction of the asset length.
type PlayheadSource interface {
	NormalizedPosition() float64
}

// Dispatcher drains a Queue and polls a PlayheadSource, forwarding both to
// the subscribed visualizers.
type Dispatcher struct {
	queue    *Queue
	playhead PlayheadSource
	interval time.Duration

	mu          sync.RWMutex
	visualizers []Visualizer

	lastDropped uint64
}

// NewDispatcher creates a dispatcher. playhead may be nil, in which case no
// playhead updates are sent.
func NewDispatcher(q *Queue, playhead PlayheadSource, interval time.Duration) *Dispatcher {
	if interval <= 0 {
		interval = 40 * time.Millisecond
	}
	return &Dispatcher{queue: q, playhead: playhead, interval: interval}
}

// Subscribe adds v. It may be called while Run is active.
func (d *Dispatcher) Subscribe(v Visualizer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.visualizers = append(d.visualizers, v)
}

// Run delivers events until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-d.queue.Events():
			d.Deliver(e)
		case <-ticker.C:
			d.tick()
		}
	}
}

// Deliver forwards one event to every visualizer.
func (d *Dispatcher) Deliver(e Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	switch e.Kind {
	case RegionChanged:
		regionHex := e.Region.RegionColor.Clamped().Hex()
		playheadHex := e.Region.PlayheadColor.Clamped().Hex()
		log.Debugf("feed: region [%.3f, %.3f]", e.Region.StartNorm, e.Region.EndNorm)
		for _, v := range d.visualizers {
			v.OnRegionChanged(e.Region.StartNorm, e.Region.EndNorm, regionHex, playheadHex)
		}
	case PlaybackEnded:
		log.Infof("feed: playback reached the end of the asset")
		for _, v := range d.visualizers {
			v.OnPlaybackEnded()
		}
	case SafetyTripped:
		log.Warnf("feed: safety latch tripped at peak %.3f, output muted until cleared", e.Peak)
		for _, v := range d.visualizers {
			v.OnSafetyTripped(e.Peak)
		}
	case AssetLoaded:
		for _, v := range d.visualizers {
			if obs, ok := v.(AssetObserver); ok {
				obs.OnAssetLoaded(e.Path, e.Length, e.Overview)
			}
		}
	case LoadFailed:
		log.Errorf("feed: loading %s failed: %v", e.Path, e.Err)
	default:
		log.Warnf("feed: dropping event of unknown kind %d", e.Kind)
	}
}

func (d *Dispatcher) tick() {
	if dropped := d.queue.Dropped(); dropped != d.lastDropped {
		log.Warnf("feed: %d events dropped on a full queue", dropped-d.lastDropped)
		d.lastDropped = dropped
	}
	if d.playhead == nil {
		return
	}
	pos := d.playhead.NormalizedPosition()

	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, v := range d.visualizers {
		v.OnPlayheadUpdate(pos)
	}
}
