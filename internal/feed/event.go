// SPDX-License-Identifier: MIT

/*
Package feed carries notifications from the audio context to the control
context.

The audio context never calls into observers directly. It posts small value
Events into a bounded Queue and moves on; if the queue is full the event is
dropped and counted. A Dispatcher running in the control context drains the
queue, polls the playhead, and fans events out to every subscribed Visualizer.
*/
package feed

import (
	"sync/atomic"

	"loopfx/internal/region"
	"loopfx/internal/source"
)

// Kind identifies an Event.
type Kind uint8

const (
	RegionChanged Kind = iota + 1
	PlaybackEnded
	SafetyTripped
	AssetLoaded
	LoadFailed
)

func (k Kind) String() string {
	switch k {
	case RegionChanged:
		return "region"
	case PlaybackEnded:
		return "ended"
	case SafetyTripped:
		return "safety"
	case AssetLoaded:
		return "loaded"
	case LoadFailed:
		return "load_failed"
	default:
		return "unknown"
	}
}

// Event is posted by value. Fields not used by a Kind are left zero.
type Event struct {
	Kind   Kind
	Region region.Change // RegionChanged
	Peak   float64       // SafetyTripped

	// Posted from the control context only.
	Path     string        // AssetLoaded, LoadFailed
	Length   float64       // AssetLoaded, seconds
	Overview []source.Span // AssetLoaded
	Err      error         // LoadFailed
}

// Queue is a bounded multi-producer, single-consumer event queue.
type Queue struct {
	ch      chan Event
	dropped atomic.Uint64
}

// NewQueue returns a queue holding up to size events.
func NewQueue(size int) *Queue {
	if size < 1 {
		size = 1
	}
	return &Queue{ch: make(chan Event, size)}
}

// Post enqueues e without blocking. It reports false and counts a drop when
// the queue is full. A nil queue drops silently.
func (q *Queue) Post(e Event) bool {
	if q == nil {
		return false
	}
	select {
	case q.ch <- e:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Events is the consumer side of the queue.
func (q *Queue) Events() <-chan Event { return q.ch }

// Dropped returns the number of events lost to a full queue.
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }
