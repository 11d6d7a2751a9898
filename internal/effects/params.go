// SPDX-License-Identifier: MIT

/*
Package effects implements the per-block effect chain: low-pass and high-pass
state-variable filters, a feed-forward compressor, tremolo and output gain,
in that order.

Parameters are plain atomics. The control context writes them at any time and
the audio context takes a Snapshot once per block, so a block may see a mix of
old and new values across fields but never a torn value within one.
*/
package effects

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"
)

// ID names one effect parameter.
type ID int

const (
	Gain ID = iota
	TempoRatio
	LowPassHz
	HighPassHz
	ThresholdDB
	Ratio
	AttackMs
	ReleaseMs
	TremoloRate
	TremoloDepth
	TremoloEnabled

	numParams
)

// Spec describes the range and default of a parameter. Booleans are stored as
// 0 or 1.
type Spec struct {
	Key     string
	Label   string
	Unit    string
	Min     float64
	Max     float64
	Default float64
	Bool    bool
}

// Gain tops out at +10 dB; tempo spans 20..300 BPM around 120.
var specs = [numParams]Spec{
	Gain:           {Key: "gain", Label: "Gain", Min: 0, Max: 3.1623, Default: 1},
	TempoRatio:     {Key: "tempo_ratio", Label: "Tempo", Unit: "x", Min: 1.0 / 6, Max: 2.5, Default: 1},
	LowPassHz:      {Key: "lpf_cutoff", Label: "LPF", Unit: "Hz", Min: 20, Max: 20000, Default: 20000},
	HighPassHz:     {Key: "hpf_cutoff", Label: "HPF", Unit: "Hz", Min: 20, Max: 20000, Default: 20},
	ThresholdDB:    {Key: "comp_threshold", Label: "Threshold", Unit: "dB", Min: -60, Max: 0, Default: -20},
	Ratio:          {Key: "comp_ratio", Label: "Ratio", Unit: ":1", Min: 1, Max: 20, Default: 2},
	AttackMs:       {Key: "comp_attack", Label: "Attack", Unit: "ms", Min: 1, Max: 200, Default: 10},
	ReleaseMs:      {Key: "comp_release", Label: "Release", Unit: "ms", Min: 5, Max: 1000, Default: 100},
	TremoloRate:    {Key: "tremolo_rate", Label: "Trem rate", Unit: "Hz", Min: 0.1, Max: 10, Default: 5},
	TremoloDepth:   {Key: "tremolo_depth", Label: "Trem depth", Min: 0, Max: 1, Default: 0.5},
	TremoloEnabled: {Key: "tremolo_enabled", Label: "Tremolo", Min: 0, Max: 1, Default: 0, Bool: true},
}

// SpecOf returns the description of id.
func SpecOf(id ID) Spec { return specs[id] }

// All lists every parameter ID in chain order.
func All() []ID {
	ids := make([]ID, numParams)
	for i := range ids {
		ids[i] = ID(i)
	}
	return ids
}

// Lookup finds a parameter by its key.
func Lookup(key string) (ID, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	for i, s := range specs {
		if s.Key == key {
			return ID(i), true
		}
	}
	return 0, false
}

func (id ID) String() string {
	if id < 0 || id >= numParams {
		return fmt.Sprintf("param(%d)", int(id))
	}
	return specs[id].Key
}

// Clamp limits v to the parameter's range and snaps booleans to 0 or 1.
func (s Spec) Clamp(v float64) float64 {
	v = math.Min(math.Max(v, s.Min), s.Max)
	if s.Bool {
		if v >= 0.5 {
			return 1
		}
		return 0
	}
	return v
}

// TempoRatioFromBPM maps a tempo in beats per minute to a playback ratio,
// with 120 BPM as unity.
func TempoRatioFromBPM(bpm float64) float64 {
	return bpm / 120
}

// Parameters holds the live effect settings.
type Parameters struct {
	values [numParams]atomic.Uint64
}

// NewParameters returns parameters at their defaults.
func NewParameters() *Parameters {
	p := &Parameters{}
	p.Reset()
	return p
}

// Reset restores every default.
func (p *Parameters) Reset() {
	for i := range p.values {
		p.values[i].Store(math.Float64bits(specs[i].Default))
	}
}

// Get returns the current value of id.
func (p *Parameters) Get(id ID) float64 {
	return math.Float64frombits(p.values[id].Load())
}

// Set stores v clamped to the range of id. NaN is ignored.
func (p *Parameters) Set(id ID, v float64) {
	if math.IsNaN(v) {
		return
	}
	p.values[id].Store(math.Float64bits(specs[id].Clamp(v)))
}

// SetByKey sets the parameter named key.
func (p *Parameters) SetByKey(key string, v float64) error {
	id, ok := Lookup(key)
	if !ok {
		return fmt.Errorf("unknown effect parameter %q", key)
	}
	p.Set(id, v)
	return nil
}

// SetEnabled stores a boolean parameter.
func (p *Parameters) SetEnabled(id ID, on bool) {
	if on {
		p.Set(id, 1)
	} else {
		p.Set(id, 0)
	}
}

// SetTempoBPM sets the tempo ratio from a BPM value.
func (p *Parameters) SetTempoBPM(bpm float64) {
	p.Set(TempoRatio, TempoRatioFromBPM(bpm))
}

// Snapshot is the set of values used for one block.
type Snapshot struct {
	Gain           float64
	TempoRatio     float64
	LowPassHz      float64
	HighPassHz     float64
	ThresholdDB    float64
	Ratio          float64
	AttackMs       float64
	ReleaseMs      float64
	TremoloRate    float64
	TremoloDepth   float64
	TremoloEnabled bool
}

// Snapshot reads every parameter once.
func (p *Parameters) Snapshot() Snapshot {
	return Snapshot{
		Gain:           p.Get(Gain),
		TempoRatio:     p.Get(TempoRatio),
		LowPassHz:      p.Get(LowPassHz),
		HighPassHz:     p.Get(HighPassHz),
		ThresholdDB:    p.Get(ThresholdDB),
		Ratio:          p.Get(Ratio),
		AttackMs:       p.Get(AttackMs),
		ReleaseMs:      p.Get(ReleaseMs),
		TremoloRate:    p.Get(TremoloRate),
		TremoloDepth:   p.Get(TremoloDepth),
		TremoloEnabled: p.Get(TremoloEnabled) != 0,
	}
}
