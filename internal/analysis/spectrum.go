// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math/cmplx"
	"strings"
	"sync"

	"loopfx/internal/log"
	"loopfx/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"
)

// WindowFunc defines the type for selecting an FFT window function.
type WindowFunc int

// Enum for available window functions.
const (
	BartlettHann WindowFunc = iota
	Blackman
	BlackmanNuttall
	Hann
	Hamming
	Lanczos
	Nuttall
)

var windowNames = map[WindowFunc]string{
	BartlettHann:    "bartletthann",
	Blackman:        "blackman",
	BlackmanNuttall: "blackmannuttall",
	Hann:            "hann",
	Hamming:         "hamming",
	Lanczos:         "lanczos",
	Nuttall:         "nuttall",
}

func (w WindowFunc) String() string {
	if name, ok := windowNames[w]; ok {
		return name
	}
	return fmt.Sprintf("window(%d)", int(w))
}

// Pre-allocated buffers for FFT calculations.
type fftWorkspace struct {
	input     []float64    // Windowed input signal.
	fftOutput []complex128 // FFT complex results.
	magnitude []float64    // Calculated magnitudes.
	window    []float64    // Pre-calculated window coefficients.
	mu        sync.RWMutex // Protects the magnitude buffer.
}

// Spectrum computes the magnitude spectrum of mono snapshots of the output.
// Magnitudes are scaled so that a full-scale sine centred on a bin reads 1.
type Spectrum struct {
	fft        *fourier.FFT
	size       int
	sampleRate float64
	norm       float64
	workspace  fftWorkspace
}

var _ SpectrumProvider = (*Spectrum)(nil)

// NewSpectrum returns a Spectrum of size points. size must be a power of two.
func NewSpectrum(size int, sampleRate float64, windowType WindowFunc) (*Spectrum, error) {
	if !bitint.IsPowerOfTwo(size) {
		return nil, fmt.Errorf("fft size must be a power of 2, got %d", size)
	}
	if !(sampleRate > 0) {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}

	coeffs := make([]float64, size)
	applyWindow(coeffs, windowType)
	bins := size/2 + 1

	log.Debugf("Analysis: spectrum size %d, rate %.1f Hz, window %v", size, sampleRate, windowType)

	return &Spectrum{
		fft:        fourier.NewFFT(size),
		size:       size,
		sampleRate: sampleRate,
		norm:       2 / floats.Sum(coeffs),
		workspace: fftWorkspace{
			input:     make([]float64, size),
			fftOutput: make([]complex128, bins),
			magnitude: make([]float64, bins),
			window:    coeffs,
		},
	}, nil
}

// Process windows mono, zero-padding or truncating it to the FFT size, and
// updates the magnitudes.
func (s *Spectrum) Process(mono []float64) {
	s.workspace.mu.Lock()
	defer s.workspace.mu.Unlock()

	in := s.workspace.input
	n := copy(in, mono)
	clear(in[n:])
	floats.Mul(in, s.workspace.window)

	s.fft.Coefficients(s.workspace.fftOutput, in)
	for i, c := range s.workspace.fftOutput {
		s.workspace.magnitude[i] = cmplx.Abs(c) * s.norm
	}
}

// Magnitudes returns a copy of the latest magnitudes.
func (s *Spectrum) Magnitudes() []float64 {
	s.workspace.mu.RLock()
	defer s.workspace.mu.RUnlock()
	return append([]float64(nil), s.workspace.magnitude...)
}

// MagnitudesInto copies the latest magnitudes into dest, which must hold
// exactly Size()/2+1 values.
func (s *Spectrum) MagnitudesInto(dest []float64) error {
	s.workspace.mu.RLock()
	defer s.workspace.mu.RUnlock()

	if len(dest) != len(s.workspace.magnitude) {
		return fmt.Errorf("destination slice length %d does not match required length %d",
			len(dest), len(s.workspace.magnitude))
	}
	copy(dest, s.workspace.magnitude)
	return nil
}

// FrequencyForBin returns the center frequency (Hz) for a bin, or 0 when the
// bin is out of range. Size and rate never change, so no lock is taken.
func (s *Spectrum) FrequencyForBin(binIndex int) float64 {
	if binIndex < 0 || binIndex >= len(s.workspace.fftOutput) {
		return 0.0
	}
	return float64(binIndex) * (s.sampleRate / float64(s.size))
}

// BinWidth returns the frequency resolution in Hz.
func (s *Spectrum) BinWidth() float64 { return s.sampleRate / float64(s.size) }

// Size returns the number of FFT points.
func (s *Spectrum) Size() int { return s.size }

// SampleRate returns the analysis sample rate.
func (s *Spectrum) SampleRate() float64 { return s.sampleRate }

// ParseWindowFunc converts a string name (case-insensitive) to a WindowFunc,
// returning Hann and an error if the name is unknown.
func ParseWindowFunc(name string) (WindowFunc, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "hanning" {
		return Hann, nil
	}
	for w, wn := range windowNames {
		if wn == n {
			return w, nil
		}
	}
	return Hann, fmt.Errorf("unknown FFT window function name: '%s'", name)
}

// applyWindow fills coeffs with the selected window, Hann for unknown types.
func applyWindow(coeffs []float64, windowType WindowFunc) {
	// The gonum windows multiply in place.
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch windowType {
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	case Hann:
		window.Hann(coeffs)
	default:
		log.Warnf("Analysis: Unknown window function type %d, defaulting to Hann", windowType)
		window.Hann(coeffs)
	}
}
