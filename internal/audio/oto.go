// SPDX-License-Identifier: MIT
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"loopfx/internal/block"
	"loopfx/internal/config"
	"loopfx/internal/log"

	"github.com/ebitengine/oto/v3"
)

// OtoBackend drives a Processor through oto's pull model: the oto player
// reads float32 little-endian frames from the backend as an io.Reader.
type OtoBackend struct {
	ctx       *oto.Context
	player    *oto.Player
	processor *Processor
	channels  int

	// Read state, owned by oto's reader goroutine.
	block   block.Buffer
	view    block.Buffer
	pending []float32 // interleaved frames rendered but not yet read
	readPos int

	started bool
	mutex   sync.Mutex // Only for setup/control operations
}

var _ Backend = (*OtoBackend)(nil)

// NewOtoBackend creates the oto context and a player reading from the backend.
func NewOtoBackend(cfg config.AudioConfig, p *Processor) (*OtoBackend, error) {
	bufferTime := time.Duration(float64(cfg.FramesPerBuffer) / cfg.SampleRate * float64(time.Second))
	op := &oto.NewContextOptions{
		SampleRate:   int(cfg.SampleRate),
		ChannelCount: cfg.Channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   bufferTime,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready

	o := &OtoBackend{
		ctx:       ctx,
		processor: p,
		channels:  cfg.Channels,
		block:     block.New(cfg.Channels, cfg.FramesPerBuffer),
		view:      make(block.Buffer, cfg.Channels),
		pending:   make([]float32, cfg.FramesPerBuffer*cfg.Channels),
	}
	o.readPos = len(o.pending)
	o.player = ctx.NewPlayer(o)

	log.Infof("Audio: oto output (%.0f Hz, %d ch, buffer %v)", cfg.SampleRate, cfg.Channels, bufferTime)
	return o, nil
}

// Name identifies the backend.
func (o *OtoBackend) Name() string { return config.BackendOto }

// Read implements io.Reader for the oto player. Whole blocks are rendered
// through the processor and handed out across as many reads as needed.
func (o *OtoBackend) Read(p []byte) (int, error) {
	const sampleSize = 4
	n := 0
	for n+sampleSize <= len(p) {
		if o.readPos >= len(o.pending) {
			b := o.block.View(o.view, o.block.Frames())
			o.processor.Process(b)
			b.Interleave(o.pending, o.channels)
			o.readPos = 0
		}
		for o.readPos < len(o.pending) && n+sampleSize <= len(p) {
			binary.LittleEndian.PutUint32(p[n:], math.Float32bits(o.pending[o.readPos]))
			o.readPos++
			n += sampleSize
		}
	}
	return n, nil
}

// Start begins playback.
func (o *OtoBackend) Start() error {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if !o.started && o.player != nil {
		o.player.Play()
		o.started = true
	}
	return nil
}

// Stop pauses playback.
func (o *OtoBackend) Stop() error {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if o.started && o.player != nil {
		o.player.Pause()
		o.started = false
	}
	return nil
}

// Close releases the player.
func (o *OtoBackend) Close() error {
	o.Stop()
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if o.player != nil {
		err := o.player.Close()
		o.player = nil
		return err
	}
	return nil
}
