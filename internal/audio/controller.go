// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"loopfx/internal/config"
	"loopfx/internal/effects"
	"loopfx/internal/feed"
	"loopfx/internal/log"
	"loopfx/internal/playback"
	"loopfx/internal/region"
	"loopfx/internal/source"
)

// OverviewBins is the waveform overview resolution sent on load.
const OverviewBins = 512

// Status is a point-in-time view of the engine for display.
type Status struct {
	Path          string
	Playing       bool
	Position      float64
	Length        float64
	Mode          region.Mode
	Region        region.Region
	CrossfadeMs   float64
	SafetyTripped bool
	SafetyPeak    float64
	Recording     bool
	DroppedEvents uint64
}

// Controller is the control-context surface of the engine. Its methods are
// safe to call from any goroutine and never touch the audio callback other
// than through the transport's and parameters' atomics.
type Controller struct {
	processor *Processor
	loader    *source.Loader
	events    *feed.Queue
	recording config.RecordingConfig
	autoplay  atomic.Bool

	loadRegion atomic.Pointer[region.Region]

	mu       sync.Mutex // guards recorder
	recorder *Recorder
}

// NewController builds a controller around p. Loads go through loader, whose
// Run must be started separately.
func NewController(p *Processor, loader *source.Loader, events *feed.Queue, rec config.RecordingConfig) *Controller {
	return &Controller{
		processor: p,
		loader:    loader,
		events:    events,
		recording: rec,
	}
}

func (c *Controller) transport() *playback.Transport { return c.processor.Transport() }

// SetAutoplay makes a successful load start playback.
func (c *Controller) SetAutoplay(on bool) { c.autoplay.Store(on) }

// SetLoadRegion makes every later load loop [start, end] seconds, switching
// an off or full-loop transport to the fixed region loop. An empty range
// clears it.
func (c *Controller) SetLoadRegion(start, end float64) {
	if !(end > start) {
		c.loadRegion.Store(nil)
		return
	}
	c.loadRegion.Store(&region.Region{Start: start, End: end})
}

// Load requests path to be decoded in the background. The result is applied
// by Run.
func (c *Controller) Load(path string) error {
	return c.loader.Request(path)
}

// LoadAsset installs an already decoded asset.
func (c *Controller) LoadAsset(a *source.Asset) {
	if a == nil {
		return
	}
	c.transport().SetAsset(a)
	if r := c.loadRegion.Load(); r != nil && !c.transport().LoopRegion(r.Start, r.End) {
		log.Warnf("Region %.2f-%.2fs lies outside %s, playing without it", r.Start, r.End, a.Path)
	}
	c.events.Post(feed.Event{
		Kind:     feed.AssetLoaded,
		Path:     a.Path,
		Length:   a.LengthSeconds(),
		Overview: a.Overview(OverviewBins),
	})
	if c.autoplay.Load() {
		c.transport().Start()
	}
}

// Play starts the transport. It is a no-op without an asset.
func (c *Controller) Play() { c.transport().Start() }

// Stop pauses the transport at its current position.
func (c *Controller) Stop() { c.transport().Stop() }

// TogglePlay flips between playing and stopped.
func (c *Controller) TogglePlay() {
	if c.transport().IsPlaying() {
		c.Stop()
	} else {
		c.Play()
	}
}

// SetPosition seeks to sec, clamped to the asset.
func (c *Controller) SetPosition(sec float64) { c.transport().SetPosition(sec) }

// SetMode selects the loop mode.
func (c *Controller) SetMode(m region.Mode) { c.transport().SetMode(m) }

// CycleMode advances to the next loop mode and returns it.
func (c *Controller) CycleMode() region.Mode {
	m := c.transport().Mode().Next()
	c.transport().SetMode(m)
	return m
}

// SetRegion sets the fixed loop region in seconds.
func (c *Controller) SetRegion(start, end float64) { c.transport().SetRegion(start, end) }

// LoopRegion loops [start, end) seconds from its start, selecting the fixed
// region loop when the current mode ignores regions. It reports false for an
// empty range.
func (c *Controller) LoopRegion(start, end float64) bool {
	return c.transport().LoopRegion(start, end)
}

// SetCrossfadeMs sets the loop boundary crossfade length.
func (c *Controller) SetCrossfadeMs(ms float64) { c.transport().SetCrossfadeMs(ms) }

// Params returns the live effect parameters.
func (c *Controller) Params() *effects.Parameters { return c.processor.Params() }

// ClearSafety acknowledges a safety trip and resumes output.
func (c *Controller) ClearSafety() {
	if c.processor.Safety().Tripped() {
		log.Infof("Safety latch cleared by user")
	}
	c.processor.Safety().Clear()
}

// Status collects the current engine state.
func (c *Controller) Status() Status {
	t := c.transport()
	s := Status{
		Playing:       t.IsPlaying(),
		Position:      t.Position(),
		Length:        t.Length(),
		Mode:          t.Mode(),
		Region:        t.Region(),
		CrossfadeMs:   t.CrossfadeMs(),
		SafetyTripped: c.processor.Safety().Tripped(),
		SafetyPeak:    c.processor.Safety().Peak(),
		Recording:     c.IsRecording(),
		DroppedEvents: c.events.Dropped(),
	}
	if a := t.Asset(); a != nil {
		s.Path = a.Path
	}
	return s
}

// StartRecording begins recording the processed output to a new file in the
// configured directory and returns its path.
func (c *Controller) StartRecording() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.recorder != nil {
		return "", ErrAlreadyRecording
	}
	p := c.processor
	path := RecordingPath(c.recording.OutputDir, time.Now())
	r, err := StartRecording(path, int(p.SampleRate()), p.Channels(), c.recording.BitDepth, p.MaxFrames())
	if err != nil {
		return "", err
	}
	c.recorder = r
	p.AttachRecorder(r)
	return path, nil
}

// StopRecording finalizes the current recording, if any.
func (c *Controller) StopRecording() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.recorder == nil {
		return nil
	}
	c.processor.DetachRecorder()
	err := c.recorder.Close()
	log.Infof("Recording %s finished (%d frames)", c.recorder.Path(), c.recorder.Frames())
	c.recorder = nil
	return err
}

// IsRecording reports whether a recording is in progress.
func (c *Controller) IsRecording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recorder != nil
}

// Run applies load results until ctx is cancelled, then finalizes any open
// recording.
func (c *Controller) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			if err := c.StopRecording(); err != nil {
				return fmt.Errorf("failed to stop recording: %w", err)
			}
			return nil
		case res := <-c.loader.Results():
			c.apply(res)
		}
	}
}

func (c *Controller) apply(res source.LoadResult) {
	if res.Err != nil {
		c.events.Post(feed.Event{Kind: feed.LoadFailed, Path: res.Path, Err: res.Err})
		return
	}
	c.LoadAsset(res.Asset)
}
