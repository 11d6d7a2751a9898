// SPDX-License-Identifier: MIT
package source

import (
	"context"
	"errors"
	"time"

	"loopfx/internal/log"
)

// ErrLoaderBusy is returned by Request when a load is already queued.
var ErrLoaderBusy = errors.New("source: a load is already pending")

// LoadResult is delivered once per request.
type LoadResult struct {
	Path    string
	Asset   *Asset
	Err     error
	Elapsed time.Duration
}

// Loader decodes files on its own goroutine so that neither the audio context
// nor the control loop waits on disk or codec work.
type Loader struct {
	registry *Registry
	requests chan string
	results  chan LoadResult
}

// NewLoader returns a loader using reg, or the default registry when reg is nil.
func NewLoader(reg *Registry) *Loader {
	if reg == nil {
		reg = defaultRegistry
	}
	return &Loader{
		registry: reg,
		requests: make(chan string, 1),
		results:  make(chan LoadResult, 1),
	}
}

// Request queues path for decoding. Only one request may be pending at a time.
func (l *Loader) Request(path string) error {
	select {
	case l.requests <- path:
		return nil
	default:
		return ErrLoaderBusy
	}
}

// Results delivers one LoadResult per accepted request.
func (l *Loader) Results() <-chan LoadResult {
	return l.results
}

// Run decodes requests until ctx is cancelled.
func (l *Loader) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case path := <-l.requests:
			start := time.Now()
			asset, err := l.registry.Open(path)
			res := LoadResult{Path: path, Asset: asset, Err: err, Elapsed: time.Since(start)}
			if err != nil {
				log.Warnf("source: load %s failed: %v", path, err)
			} else {
				log.Infof("source: loaded %s (%d ch, %.0f Hz, %.2fs) in %v",
					path, asset.Channels(), asset.SampleRate(), asset.LengthSeconds(), res.Elapsed)
			}
			select {
			case l.results <- res:
			case <-ctx.Done():
				return nil
			}
		}
	}
}
