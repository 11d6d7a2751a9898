// SPDX-License-Identifier: MIT
package analysis

import "math"

// OnsetDetector flags sudden rises in block energy, for visualizers that
// pulse on hits. It is a plain energy-ratio detector.
type OnsetDetector struct {
	threshold      float64 // Minimum RMS for an onset
	minEnergyRatio float64 // Minimum rise over the previous block
	lastEnergy     float64
}

// NewOnsetDetector returns a detector with the given RMS threshold and
// minimum energy ratio.
func NewOnsetDetector(threshold, minEnergyRatio float64) *OnsetDetector {
	return &OnsetDetector{threshold: threshold, minEnergyRatio: minEnergyRatio}
}

// Process reports whether mono starts an onset relative to the previous call.
func (d *OnsetDetector) Process(mono []float64) bool {
	current := RMS(mono)
	onset := current > d.threshold &&
		(d.lastEnergy == 0 || current/d.lastEnergy > d.minEnergyRatio)
	d.lastEnergy = current
	return onset
}

// Reset forgets the previous block.
func (d *OnsetDetector) Reset() { d.lastEnergy = 0 }

// RMS returns the root mean square of samples.
func RMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0.0
	}
	var sumSquare float64
	for _, v := range samples {
		sumSquare += v * v
	}
	return math.Sqrt(sumSquare / float64(len(samples)))
}
