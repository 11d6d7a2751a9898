// SPDX-License-Identifier: MIT
package effects

import (
	"math"
	"testing"

	"loopfx/internal/audiotest"
	"loopfx/internal/block"
)

const fs = 44100.0

func rms(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

// settledRMS filters a sine through f in 512-frame blocks and measures the
// output RMS over the second half.
func settledRMS(f *StateVariable, freq float64) float64 {
	const frames = 8192
	in := audiotest.Sine(1, frames, fs, freq, 1)
	for off := 0; off < frames; off += 512 {
		f.Process(block.Buffer{in[0][off : off+512]})
	}
	return rms(in[0][frames/2:]) / (1 / math.Sqrt2)
}

func TestLowPassResponse(t *testing.T) {
	tests := []struct {
		freq    float64
		minGain float64
		maxGain float64
	}{
		{100, 0.95, 1.01},
		{1000, 0.68, 0.73}, // -3 dB at the cutoff
		{10000, 0, 0.02},
	}
	for _, tt := range tests {
		f := NewStateVariable(LowPass)
		f.Prepare(fs, 1)
		f.SetCutoff(1000)
		if g := settledRMS(f, tt.freq); g < tt.minGain || g > tt.maxGain {
			t.Errorf("LPF 1 kHz at %v Hz: gain %.4f outside [%v, %v]", tt.freq, g, tt.minGain, tt.maxGain)
		}
	}
}

func TestHighPassResponse(t *testing.T) {
	tests := []struct {
		freq    float64
		minGain float64
		maxGain float64
	}{
		{50, 0, 0.01},
		{1000, 0.68, 0.73},
		{10000, 0.98, 1.01},
	}
	for _, tt := range tests {
		f := NewStateVariable(HighPass)
		f.Prepare(fs, 1)
		f.SetCutoff(1000)
		if g := settledRMS(f, tt.freq); g < tt.minGain || g > tt.maxGain {
			t.Errorf("HPF 1 kHz at %v Hz: gain %.4f outside [%v, %v]", tt.freq, g, tt.minGain, tt.maxGain)
		}
	}
}

func TestCutoffClamp(t *testing.T) {
	f := NewStateVariable(LowPass)
	f.Prepare(fs, 2)
	f.SetCutoff(30000)
	if f.Cutoff() != 0.49*fs {
		t.Errorf("cutoff = %v, want %v", f.Cutoff(), 0.49*fs)
	}
	f.SetCutoff(1)
	if f.Cutoff() != 20 {
		t.Errorf("cutoff = %v, want 20", f.Cutoff())
	}
}

func TestCompressorBelowThresholdIsTransparent(t *testing.T) {
	c := NewCompressor()
	c.Prepare(fs, 2)
	c.Set(-20, 4, 10, 100)

	in := audiotest.Sine(2, 4096, fs, 220, 0.05) // -26 dBFS peak
	out := in.Clone()
	c.Process(out)
	for ch := range in {
		for i := range in[ch] {
			if out[ch][i] != in[ch][i] {
				t.Fatalf("ch %d frame %d changed: %v -> %v", ch, i, in[ch][i], out[ch][i])
			}
		}
	}
}

func TestCompressorSteadyStateGain(t *testing.T) {
	c := NewCompressor()
	c.Prepare(fs, 1)
	c.Set(-20, 4, 1, 50)

	b := audiotest.Constant(1, 4096, 1)
	c.Process(b)

	// Settled envelope is 1.0: gain = (1/0.1)^(1/4-1) = 10^-0.75
	want := math.Pow(10, -0.75)
	if got := b[0][4095]; math.Abs(got-want) > 1e-6 {
		t.Errorf("settled output = %v, want %v", got, want)
	}
	if b[0][0] <= want {
		t.Errorf("attack should not clamp instantly: first sample %v", b[0][0])
	}
}

func TestCompressorUnityRatio(t *testing.T) {
	c := NewCompressor()
	c.Prepare(fs, 1)
	c.Set(-40, 1, 10, 100)
	b := audiotest.Constant(1, 512, 0.8)
	c.Process(b)
	for i, v := range b[0] {
		if v != 0.8 {
			t.Fatalf("ratio 1 changed frame %d to %v", i, v)
		}
	}
}

func TestCompressorAttackBallistics(t *testing.T) {
	const attackMs = 10
	c := NewCompressor()
	c.Prepare(fs, 1)
	c.Set(-20, 4, attackMs, 100)

	b := audiotest.Constant(1, 200, 1)
	c.Process(b)

	// The envelope rises as 1 - a^k with a = exp(-2π·1000/(T·fs)).
	a := math.Exp(-2 * math.Pi * 1000 / (attackMs * fs))
	for _, k := range []int{100, 150, 200} {
		env := 1 - math.Pow(a, float64(k))
		want := math.Pow(env/0.1, 1.0/4-1)
		if got := b[0][k-1]; math.Abs(got-want) > 1e-9 {
			t.Errorf("frame %d = %v, want %v", k-1, got, want)
		}
	}
}

func TestCompressorChannelsIndependent(t *testing.T) {
	c := NewCompressor()
	c.Prepare(fs, 2)
	c.Set(-20, 8, 1, 50)

	b := audiotest.Constant(2, 2048, 1)
	for i := range b[1] {
		b[1][i] = 0.05
	}
	c.Process(b)
	if b[0][2047] >= 0.5 {
		t.Errorf("loud channel not compressed: %v", b[0][2047])
	}
	for i, v := range b[1] {
		if v != 0.05 {
			t.Fatalf("quiet channel changed at frame %d: %v", i, v)
		}
	}
}

func TestTremoloPhaseContinuity(t *testing.T) {
	const rate, depth = 7.3, 0.8

	split := NewTremolo()
	split.Prepare(fs, 1024)
	first := audiotest.Constant(1, 300, 1)
	second := audiotest.Constant(1, 300, 1)
	split.Process(first, rate, depth)
	endPhase := split.Phase()
	split.Process(second, rate, depth)

	whole := NewTremolo()
	whole.Prepare(fs, 1024)
	both := audiotest.Constant(1, 600, 1)
	whole.Process(both, rate, depth)

	joined := append(append([]float64{}, first[0]...), second[0]...)
	for i := range joined {
		if math.Abs(joined[i]-both[0][i]) > 1e-12 {
			t.Fatalf("frame %d: split %v, whole %v", i, joined[i], both[0][i])
		}
	}

	wantPhase := math.Mod(300*2*math.Pi*rate/fs, 2*math.Pi)
	if math.Abs(endPhase-wantPhase) > 1e-9 {
		t.Errorf("phase after block 1 = %v, want %v", endPhase, wantPhase)
	}
	if p := split.Phase(); p < 0 || p >= 2*math.Pi {
		t.Errorf("phase %v outside [0, 2π)", p)
	}
}

func TestTremoloEnvelopeRange(t *testing.T) {
	tr := NewTremolo()
	tr.Prepare(fs, 8192)
	b := audiotest.Constant(1, 8192, 1)
	tr.Process(b, 10, 0.5)
	lo, hi := 2.0, -1.0
	for _, v := range b[0] {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	if lo < 0.5-1e-9 || hi > 1+1e-9 || hi-lo < 0.49 {
		t.Errorf("envelope spans [%v, %v], want [0.5, 1]", lo, hi)
	}
}

func TestChainDefaultsAndGain(t *testing.T) {
	c := NewChain()
	c.Prepare(fs, 2, 512)
	p := NewParameters()
	p.Set(ThresholdDB, 0) // keep the compressor out of the way
	p.Set(Gain, 2)

	in := audiotest.Sine(2, 512, fs, 440, 0.25)
	out := in.Clone()
	c.Process(out, p.Snapshot())

	// Filters at 20 Hz / 20 kHz leave a 440 Hz tone within a few percent.
	if g := rms(out[0][256:]) / rms(in[0][256:]); math.Abs(g-2) > 0.1 {
		t.Errorf("chain gain = %v, want ~2", g)
	}
}

func TestChainTremoloOnlyWhenEnabled(t *testing.T) {
	c := NewChain()
	c.Prepare(fs, 1, 512)
	p := NewParameters()
	p.Set(ThresholdDB, 0)

	b := audiotest.Constant(1, 512, 0.5)
	c.Process(b, p.Snapshot())
	if c.Tremolo().Phase() != 0 {
		t.Error("disabled tremolo advanced its phase")
	}

	p.SetEnabled(TremoloEnabled, true)
	c.Process(b, p.Snapshot())
	if c.Tremolo().Phase() == 0 {
		t.Error("enabled tremolo did not advance")
	}
}

func TestChainDoesNotAllocate(t *testing.T) {
	c := NewChain()
	c.Prepare(fs, 2, 512)
	p := NewParameters()
	p.SetEnabled(TremoloEnabled, true)
	p.Set(Gain, 0.8)
	b := audiotest.Complex(2, 512, fs)

	allocs := testing.AllocsPerRun(100, func() {
		c.Process(b, p.Snapshot())
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations, got %.1f", allocs)
	}
}

func BenchmarkChain(b *testing.B) {
	c := NewChain()
	c.Prepare(48000, 2, 512)
	p := NewParameters()
	p.SetEnabled(TremoloEnabled, true)
	buf := audiotest.Complex(2, 512, 48000)

	for b.Loop() {
		c.Process(buf, p.Snapshot())
	}
}
