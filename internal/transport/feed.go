// SPDX-License-Identifier: MIT
package transport

import (
	"loopfx/internal/feed"
	"loopfx/internal/log"
	"loopfx/internal/source"
)

// Feed adapts dispatcher callbacks into messages on a Transport.
type Feed struct {
	t Transport
}

var (
	_ feed.Visualizer    = (*Feed)(nil)
	_ feed.AssetObserver = (*Feed)(nil)
)

// NewFeed returns a visualizer that forwards every callback to t.
func NewFeed(t Transport) *Feed { return &Feed{t: t} }

func (f *Feed) send(msg any) {
	if err := f.t.Send(msg); err != nil {
		log.Debugf("Transport: send failed: %v", err)
	}
}

func (f *Feed) OnRegionChanged(startNorm, endNorm float64, regionColor, playheadColor string) {
	f.send(RegionMessage{
		Type:          TypeRegion,
		Start:         startNorm,
		End:           endNorm,
		RegionColor:   regionColor,
		PlayheadColor: playheadColor,
	})
}

func (f *Feed) OnPlayheadUpdate(position float64) {
	f.send(PlayheadMessage{Type: TypePlayhead, Position: position})
}

func (f *Feed) OnSafetyTripped(peak float64) {
	f.send(SafetyMessage{Type: TypeSafety, Peak: peak})
}

func (f *Feed) OnPlaybackEnded() {
	f.send(EndedMessage{Type: TypeEnded})
}

func (f *Feed) OnAssetLoaded(path string, lengthSec float64, overview []source.Span) {
	f.send(LoadedMessage{Type: TypeLoaded, Path: path, Length: lengthSec, Overview: overview})
}
