// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
)

// FrequencyBand defines the name and frequency range for an energy band.
type FrequencyBand struct {
	Name   string  `json:"name"`
	LowHz  float64 `json:"low_hz"`
	HighHz float64 `json:"high_hz"`
}

// DefaultBands splits the audible range into six bands, the last ending at
// the Nyquist frequency of sampleRate.
func DefaultBands(sampleRate float64) []FrequencyBand {
	return []FrequencyBand{
		{Name: "sub", LowHz: 20, HighHz: 60},
		{Name: "bass", LowHz: 60, HighHz: 250},
		{Name: "lowMid", LowHz: 250, HighHz: 500},
		{Name: "mid", LowHz: 500, HighHz: 2000},
		{Name: "highMid", LowHz: 2000, HighHz: 4000},
		{Name: "treble", LowHz: 4000, HighHz: sampleRate / 2},
	}
}

// BandEnergy reduces a spectrum to one level per band: the square root of the
// summed bin energy, clamped to [0, 1].
type BandEnergy struct {
	bands    []FrequencyBand
	provider SpectrumProvider
	binBand  []int // band index per bin, -1 outside every band
	mags     []float64
}

// NewBandEnergy maps the provider's bins onto bands.
func NewBandEnergy(provider SpectrumProvider, bands []FrequencyBand) (*BandEnergy, error) {
	if provider == nil {
		return nil, fmt.Errorf("band energy requires a spectrum provider")
	}
	if len(bands) == 0 {
		return nil, fmt.Errorf("band energy requires at least one band")
	}

	bins := provider.Size()/2 + 1
	binBand := make([]int, bins)
	for i := range binBand {
		binBand[i] = -1
		freq := provider.FrequencyForBin(i)
		for b, band := range bands {
			if freq >= band.LowHz && freq < band.HighHz {
				binBand[i] = b
				break
			}
		}
	}

	return &BandEnergy{
		bands:    bands,
		provider: provider,
		binBand:  binBand,
		mags:     make([]float64, bins),
	}, nil
}

// Bands returns the band definitions.
func (p *BandEnergy) Bands() []FrequencyBand { return p.bands }

// Levels computes the band levels from the provider's latest spectrum into dst
// and returns it.
func (p *BandEnergy) Levels(dst []float64) []float64 {
	if cap(dst) < len(p.bands) {
		dst = make([]float64, len(p.bands))
	}
	dst = dst[:len(p.bands)]
	clear(dst)

	if err := p.provider.MagnitudesInto(p.mags); err != nil {
		return dst
	}
	for i, m := range p.mags {
		if b := p.binBand[i]; b >= 0 {
			dst[b] += m * m
		}
	}
	for b := range dst {
		dst[b] = math.Min(1.0, math.Sqrt(dst[b]))
	}
	return dst
}
