// SPDX-License-Identifier: MIT
package analysis

// MonoSource supplies the most recent output block mixed down to mono, along
// with a sequence number that changes whenever a new block is captured.
type MonoSource interface {
	Mono(dst []float64) ([]float64, uint64)
}

// SpectrumProvider gives access to the latest magnitude spectrum. It decouples
// consumers (band levels, the UDP publisher) from the concrete Spectrum.
type SpectrumProvider interface {
	Magnitudes() []float64                // Magnitudes returns a copy of the latest magnitude spectrum.
	MagnitudesInto(dest []float64) error  // MagnitudesInto copies the spectrum without allocating.
	FrequencyForBin(binIndex int) float64 // FrequencyForBin returns the center frequency (Hz) of a bin.
	Size() int                            // Size returns the number of FFT points.
	SampleRate() float64                  // SampleRate returns the analysis sample rate.
}
