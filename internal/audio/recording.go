// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"loopfx/internal/block"
	"loopfx/internal/log"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrAlreadyRecording is returned when a recording is started twice.
var ErrAlreadyRecording = errors.New("audio: already recording")

// recorderPoolSize is the number of blocks that can be queued for the writer.
const recorderPoolSize = 16

type pendingBlock struct {
	data   block.Buffer
	frames int
}

// Recorder writes processed output to a WAV file. The audio callback hands
// blocks over with Submit, which copies into a pooled buffer and never waits;
// a writer goroutine does the encoding and file I/O.
type Recorder struct {
	path    string
	free    chan *pendingBlock
	filled  chan *pendingBlock
	stop    chan struct{}
	done    chan error
	dropped atomic.Uint64
	written atomic.Uint64

	file *os.File
	enc  *wav.Encoder
	pcm  *pcmWriter
}

// StartRecording creates path and starts the writer goroutine.
func StartRecording(path string, sampleRate, channels, bitDepth, maxFrames int) (*Recorder, error) {
	if bitDepth != 16 && bitDepth != 24 {
		return nil, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create recording dir: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording: %w", err)
	}

	r := &Recorder{
		path:   path,
		free:   make(chan *pendingBlock, recorderPoolSize),
		filled: make(chan *pendingBlock, recorderPoolSize),
		stop:   make(chan struct{}),
		done:   make(chan error, 1),
		file:   file,
		enc:    wav.NewEncoder(file, sampleRate, bitDepth, channels, 1),
		pcm:    newPCMWriter(sampleRate, channels, bitDepth, maxFrames),
	}
	for range recorderPoolSize {
		r.free <- &pendingBlock{data: block.New(channels, maxFrames)}
	}

	go r.run()
	log.Infof("Recording to %s (%d Hz, %d-bit, %d ch)", path, sampleRate, bitDepth, channels)
	return r, nil
}

// RecordingPath builds a timestamped file name inside dir.
func RecordingPath(dir string, now time.Time) string {
	return filepath.Join(dir, "loopfx-"+now.Format("20060102-150405")+".wav")
}

// Path returns the output file path.
func (r *Recorder) Path() string { return r.path }

// Dropped returns the number of blocks lost because the writer fell behind.
func (r *Recorder) Dropped() uint64 { return r.dropped.Load() }

// Frames returns the number of frames written so far.
func (r *Recorder) Frames() uint64 { return r.written.Load() }

// Submit queues a copy of b for writing. It reports false when no pooled
// buffer is free, in which case the block is dropped.
func (r *Recorder) Submit(b block.Buffer) bool {
	var p *pendingBlock
	select {
	case p = <-r.free:
	default:
		r.dropped.Add(1)
		return false
	}
	p.frames = p.data.CopyFrom(b)
	// filled has room for every pooled buffer, so this never blocks.
	r.filled <- p
	return true
}

func (r *Recorder) run() {
	var err error
	write := func(p *pendingBlock) {
		if err == nil {
			err = r.pcm.write(r.enc, p.data, p.frames)
			r.written.Add(uint64(p.frames))
		}
		r.free <- p
	}
	for {
		select {
		case p := <-r.filled:
			write(p)
		case <-r.stop:
			for {
				select {
				case p := <-r.filled:
					write(p)
				default:
					r.done <- err
					return
				}
			}
		}
	}
}

// Close stops the writer, flushes queued blocks and finalizes the WAV header.
// The recorder must be detached from the processor first.
func (r *Recorder) Close() error {
	close(r.stop)
	err := <-r.done
	if cerr := r.enc.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("failed to finalize recording: %w", cerr)
	}
	if cerr := r.file.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if n := r.Dropped(); n > 0 {
		log.Warnf("Recording %s dropped %d blocks", r.path, n)
	}
	return err
}

// pcmWriter converts planar float blocks to the encoder's integer format
// using one reusable IntBuffer.
type pcmWriter struct {
	buf   *audio.IntBuffer
	scale float64
	max   int
}

func newPCMWriter(sampleRate, channels, bitDepth, maxFrames int) *pcmWriter {
	full := 1 << (bitDepth - 1)
	return &pcmWriter{
		buf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: channels,
				SampleRate:  sampleRate,
			},
			Data:           make([]int, maxFrames*channels),
			SourceBitDepth: bitDepth,
		},
		scale: float64(full - 1),
		max:   full - 1,
	}
}

func (w *pcmWriter) write(enc *wav.Encoder, b block.Buffer, frames int) error {
	channels := w.buf.Format.NumChannels
	need := frames * channels
	if cap(w.buf.Data) < need {
		w.buf.Data = make([]int, need)
	}
	data := w.buf.Data[:need]
	for i := range frames {
		for ch := range channels {
			var v float64
			if ch < len(b) {
				v = b[ch][i]
			}
			s := int(v * w.scale)
			if s > w.max {
				s = w.max
			} else if s < -w.max-1 {
				s = -w.max - 1
			}
			data[i*channels+ch] = s
		}
	}
	w.buf.Data = data
	if err := enc.Write(w.buf); err != nil {
		return fmt.Errorf("failed to write samples: %w", err)
	}
	return nil
}
