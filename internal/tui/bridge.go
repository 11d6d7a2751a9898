// SPDX-License-Identifier: MIT
package tui

import (
	"sync/atomic"

	"loopfx/internal/source"

	tea "github.com/charmbracelet/bubbletea"
)

type regionMsg struct {
	startNorm, endNorm float64
	regionColor        string
	playheadColor      string
}

type safetyMsg struct{ peak float64 }

type endedMsg struct{}

type loadedMsg struct {
	path     string
	length   float64
	overview []source.Span
}

// Bridge is a feed.Visualizer that hands feed events to a Bubble Tea model.
// Callbacks never block the dispatcher; when the model falls behind, events
// are dropped and counted.
type Bridge struct {
	ch      chan tea.Msg
	dropped atomic.Uint64
}

// NewBridge returns a bridge buffering up to size messages.
func NewBridge(size int) *Bridge {
	if size < 1 {
		size = 1
	}
	return &Bridge{ch: make(chan tea.Msg, size)}
}

func (b *Bridge) push(msg tea.Msg) {
	select {
	case b.ch <- msg:
	default:
		b.dropped.Add(1)
	}
}

// Dropped returns the number of messages discarded on a full buffer.
func (b *Bridge) Dropped() uint64 { return b.dropped.Load() }

func (b *Bridge) OnRegionChanged(startNorm, endNorm float64, regionColor, playheadColor string) {
	b.push(regionMsg{startNorm: startNorm, endNorm: endNorm, regionColor: regionColor, playheadColor: playheadColor})
}

// OnPlayheadUpdate is ignored; the model reads the position from Status on
// its own tick.
func (b *Bridge) OnPlayheadUpdate(float64) {}

func (b *Bridge) OnSafetyTripped(peak float64) { b.push(safetyMsg{peak: peak}) }

func (b *Bridge) OnPlaybackEnded() { b.push(endedMsg{}) }

func (b *Bridge) OnAssetLoaded(path string, lengthSec float64, overview []source.Span) {
	b.push(loadedMsg{path: path, length: lengthSec, overview: overview})
}

// wait delivers the next bridged message to the program.
func (b *Bridge) wait() tea.Cmd {
	return func() tea.Msg { return <-b.ch }
}
