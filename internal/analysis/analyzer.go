// SPDX-License-Identifier: MIT
package analysis

import (
	"context"
	"time"

	"loopfx/internal/log"
	"loopfx/internal/transport"
)

// Onset detection defaults.
const (
	DefaultOnsetThreshold = 0.05
	DefaultOnsetRatio     = 1.5
)

// Analyzer polls the visualization tap from the control context and
// publishes level, band and onset snapshots to its transports. The spectrum
// it updates is shared with the UDP publisher.
type Analyzer struct {
	source     MonoSource
	spectrum   *Spectrum
	bands      *BandEnergy
	onset      *OnsetDetector
	interval   time.Duration
	transports []transport.Transport

	mono    []float64
	levels  []float64
	lastSeq uint64
}

// NewAnalyzer builds an analyzer over src using spectrum for frequency data.
func NewAnalyzer(src MonoSource, spectrum *Spectrum, interval time.Duration) (*Analyzer, error) {
	bands, err := NewBandEnergy(spectrum, DefaultBands(spectrum.SampleRate()))
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Analyzer{
		source:   src,
		spectrum: spectrum,
		bands:    bands,
		onset:    NewOnsetDetector(DefaultOnsetThreshold, DefaultOnsetRatio),
		interval: interval,
		mono:     make([]float64, spectrum.Size()),
	}, nil
}

// AddTransport registers t to receive snapshots. Not safe once Run started.
func (a *Analyzer) AddTransport(t transport.Transport) {
	a.transports = append(a.transports, t)
}

// Spectrum returns the spectrum updated by the analyzer.
func (a *Analyzer) Spectrum() *Spectrum { return a.spectrum }

// Run updates and publishes at the configured interval until ctx is done.
func (a *Analyzer) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if msg, ok := a.Update(); ok {
				a.publish(msg)
			}
		}
	}
}

// Update analyzes the latest captured block. It reports false when nothing
// new has been captured since the previous call.
func (a *Analyzer) Update() (transport.SnapshotMessage, bool) {
	mono, seq := a.source.Mono(a.mono)
	a.mono = mono
	if seq == a.lastSeq {
		return transport.SnapshotMessage{}, false
	}
	a.lastSeq = seq

	a.spectrum.Process(mono)
	a.levels = a.bands.Levels(a.levels)

	peak := 0.0
	for _, v := range mono {
		if v < 0 {
			v = -v
		}
		peak = max(peak, v)
	}

	msg := transport.SnapshotMessage{
		Type:  transport.TypeSnapshot,
		RMS:   RMS(mono),
		Peak:  peak,
		Onset: a.onset.Process(mono),
		Bands: make(map[string]float64, len(a.levels)),
	}
	for i, band := range a.bands.Bands() {
		msg.Bands[band.Name] = a.levels[i]
	}
	return msg, true
}

func (a *Analyzer) publish(msg transport.SnapshotMessage) {
	for _, t := range a.transports {
		if err := t.Send(msg); err != nil {
			log.Debugf("Analysis: snapshot send failed: %v", err)
		}
	}
}
