// SPDX-License-Identifier: MIT
/*
Package audio hosts the real-time pipeline and the control surface around it:
  - Processor runs once per output block: safety latch gate, transport fill,
    effect chain, safety inspection, visualization tap, recording hand-off
  - Engine (PortAudio) and OtoBackend (oto) drive a Processor from the device
  - Controller is the control-context API used by the TUI and the CLI

Thread Safety:
  - The Processor is only ever called from one audio context at a time
  - Control state reaches it through atomics in the transport and parameters
  - Pre-allocated buffers only; Process never allocates
*/
package audio

import (
	"sync/atomic"

	"loopfx/internal/block"
	"loopfx/internal/effects"
	"loopfx/internal/feed"
	"loopfx/internal/playback"
)

// Processor is the per-callback pipeline.
type Processor struct {
	transport *playback.Transport
	params    *effects.Parameters
	chain     *effects.Chain
	safety    *SafetyMonitor
	tap       *Tap
	events    *feed.Queue
	recorder  atomic.Pointer[Recorder]

	sampleRate float64
	channels   int
	maxFrames  int
}

// NewProcessor wires a processor around an existing transport and parameter
// set and prepares it for the given device format.
func NewProcessor(t *playback.Transport, params *effects.Parameters, events *feed.Queue,
	sampleRate float64, channels, maxFrames int) *Processor {
	p := &Processor{
		transport: t,
		params:    params,
		chain:     effects.NewChain(),
		safety:    NewSafetyMonitor(),
		events:    events,
	}
	p.Prepare(sampleRate, channels, maxFrames)
	return p
}

// Prepare resizes every stage for a new device format. It must not run
// concurrently with Process.
func (p *Processor) Prepare(sampleRate float64, channels, maxFrames int) {
	p.sampleRate = sampleRate
	p.channels = channels
	p.maxFrames = maxFrames
	p.transport.Prepare(sampleRate, maxFrames)
	p.chain.Prepare(sampleRate, channels, maxFrames)
	p.tap = NewTap(channels, maxFrames)
}

// Process renders one block into b. b must not exceed the prepared shape.
func (p *Processor) Process(b block.Buffer) {
	if p.safety.Tripped() {
		b.Clear()
		p.finish(b)
		return
	}

	snap := p.params.Snapshot()
	p.transport.Fill(b, snap.TempoRatio)
	p.chain.Process(b, snap)

	if p.safety.Inspect(b) {
		p.events.Post(feed.Event{Kind: feed.SafetyTripped, Peak: p.safety.Peak()})
	}
	p.finish(b)
}

func (p *Processor) finish(b block.Buffer) {
	p.tap.Capture(b)
	if r := p.recorder.Load(); r != nil {
		r.Submit(b)
	}
}

// AttachRecorder starts handing processed blocks to r.
func (p *Processor) AttachRecorder(r *Recorder) { p.recorder.Store(r) }

// DetachRecorder stops the hand-off and returns the previous recorder, if any.
func (p *Processor) DetachRecorder() *Recorder { return p.recorder.Swap(nil) }

// Transport returns the processor's transport.
func (p *Processor) Transport() *playback.Transport { return p.transport }

// Params returns the shared parameter set.
func (p *Processor) Params() *effects.Parameters { return p.params }

// Chain returns the effect chain.
func (p *Processor) Chain() *effects.Chain { return p.chain }

// Safety returns the safety monitor.
func (p *Processor) Safety() *SafetyMonitor { return p.safety }

// Tap returns the visualization tap.
func (p *Processor) Tap() *Tap { return p.tap }

// SampleRate returns the prepared device rate.
func (p *Processor) SampleRate() float64 { return p.sampleRate }

// Channels returns the prepared channel count.
func (p *Processor) Channels() int { return p.channels }

// MaxFrames returns the largest block Process accepts.
func (p *Processor) MaxFrames() int { return p.maxFrames }
