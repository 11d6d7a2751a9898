// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"loopfx/internal/block"
	"loopfx/internal/config"
	"loopfx/internal/log"

	"github.com/gordonklaus/portaudio"
)

// Backend is an output host driving a Processor.
type Backend interface {
	Start() error
	Stop() error
	Close() error
	Name() string
}

// NewBackend opens the backend named in cfg.
func NewBackend(cfg config.AudioConfig, p *Processor) (Backend, error) {
	switch cfg.Backend {
	case config.BackendPortAudio:
		return NewEngine(cfg, p)
	case config.BackendOto:
		return NewOtoBackend(cfg, p)
	default:
		return nil, fmt.Errorf("unknown audio backend %q", cfg.Backend)
	}
}

// Engine drives a Processor from a PortAudio output stream.
type Engine struct {
	config    config.AudioConfig
	processor *Processor

	outputDevice  *portaudio.DeviceInfo
	outputLatency time.Duration
	outputStream  *portaudio.Stream

	// Pre-allocated planar block and a view into it sized per callback.
	block block.Buffer
	view  block.Buffer

	callbacks atomic.Uint64
	overruns  atomic.Uint64 // callbacks larger than the prepared block
}

var _ Backend = (*Engine)(nil)

// NewEngine initializes PortAudio and resolves the output device. The caller
// owns the engine and must Close it, which also terminates PortAudio.
func NewEngine(cfg config.AudioConfig, p *Processor) (*Engine, error) {
	if err := Initialize(); err != nil {
		return nil, err
	}
	outputDevice, err := OutputDevice(cfg.OutputDevice)
	if err != nil {
		Terminate()
		return nil, err
	}

	engine := &Engine{
		config:       cfg,
		processor:    p,
		outputDevice: outputDevice,
		block:        block.New(cfg.Channels, cfg.FramesPerBuffer),
		view:         make(block.Buffer, cfg.Channels),
	}

	if cfg.LowLatency {
		engine.outputLatency = outputDevice.DefaultLowOutputLatency
	} else {
		engine.outputLatency = outputDevice.DefaultHighOutputLatency
	}

	log.Infof("Audio: PortAudio output %q (%.0f Hz, %d ch, %d frames, latency %v)",
		outputDevice.Name, cfg.SampleRate, cfg.Channels, cfg.FramesPerBuffer, engine.outputLatency)
	return engine, nil
}

// Name identifies the backend.
func (e *Engine) Name() string { return config.BackendPortAudio }

// Start opens and starts the output stream.
func (e *Engine) Start() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: 0, // No input device
			Device:   nil,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: e.config.Channels,
			Device:   e.outputDevice,
			Latency:  e.outputLatency,
		},
		FramesPerBuffer: e.config.FramesPerBuffer,
		SampleRate:      e.config.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.processOutputStream)
	if err != nil {
		return fmt.Errorf("failed to open output stream: %w", err)
	}
	e.outputStream = stream

	if err := e.outputStream.Start(); err != nil {
		e.outputStream.Close()
		e.outputStream = nil
		return fmt.Errorf("failed to start output stream: %w", err)
	}

	return nil
}

// Stop stops and closes the output stream if it is running.
func (e *Engine) Stop() error {
	if e.outputStream != nil {
		if err := e.outputStream.Stop(); err != nil {
			return err
		}

		if err := e.outputStream.Close(); err != nil {
			return err
		}

		e.outputStream = nil
	}

	return nil
}

// Close stops the stream and terminates PortAudio.
func (e *Engine) Close() error {
	if err := e.Stop(); err != nil {
		return err
	}
	if n := e.overruns.Load(); n > 0 {
		log.Warnf("Audio: %d callbacks exceeded %d frames", n, e.config.FramesPerBuffer)
	}
	return Terminate()
}

// Callbacks returns the number of output callbacks served.
func (e *Engine) Callbacks() uint64 { return e.callbacks.Load() }

// processOutputStream is the core audio callback.
// Performance Critical:
// - Runs in a dedicated OS thread (LockOSThread)
// - Uses pre-allocated buffers only
// - No dynamic allocations in the hot path
func (e *Engine) processOutputStream(out []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	e.callbacks.Add(1)
	renderInterleaved(e.processor, e.block, e.view, out, e.config.Channels, &e.overruns)
}

// renderInterleaved fills out by running p over as many blocks as needed.
func renderInterleaved(p *Processor, buf, view block.Buffer, out []float32, channels int, overruns *atomic.Uint64) {
	frames := len(out) / channels
	maxFrames := buf.Frames()
	if maxFrames == 0 {
		clear(out)
		return
	}
	if frames > maxFrames {
		overruns.Add(1)
	}
	for off := 0; off < frames; {
		n := min(frames-off, maxFrames)
		b := buf.View(view, n)
		p.Process(b)
		b.Interleave(out[off*channels:(off+n)*channels], channels)
		off += n
	}
	clear(out[frames*channels:])
}
