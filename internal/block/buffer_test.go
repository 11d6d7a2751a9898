// SPDX-License-Identifier: MIT
package block

import "testing"

func TestNewShape(t *testing.T) {
	b := New(2, 128)
	if b.Channels() != 2 || b.Frames() != 128 {
		t.Fatalf("shape = %dx%d, want 2x128", b.Channels(), b.Frames())
	}
	if New(0, 10).Frames() != 0 {
		t.Error("empty buffer should report zero frames")
	}
}

func TestClearRangeClamps(t *testing.T) {
	tests := []struct {
		name     string
		off, n   int
		wantZero []bool
	}{
		{"middle", 1, 2, []bool{false, true, true, false}},
		{"negative offset", -1, 2, []bool{true, false, false, false}},
		{"past end", 3, 10, []bool{false, false, false, true}},
		{"zero length", 2, 0, []bool{false, false, false, false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Buffer{{1, 1, 1, 1}}
			b.ClearRange(tt.off, tt.n)
			for i, z := range tt.wantZero {
				if (b[0][i] == 0) != z {
					t.Errorf("sample %d = %v, want zeroed=%v", i, b[0][i], z)
				}
			}
		})
	}
}

func TestPeak(t *testing.T) {
	b := Buffer{{0.1, -0.7, 0.2}, {0.3, 0.5, -0.2}}
	if got := b.Peak(); got != 0.7 {
		t.Errorf("Peak = %v, want 0.7", got)
	}
}

func TestResizeReusesStorage(t *testing.T) {
	b := New(2, 256)
	first := &b[0][0]
	b = b.Resize(2, 128)
	if &b[0][0] != first {
		t.Error("Resize to a smaller shape should reuse the backing array")
	}
	b = b.Resize(3, 512)
	if b.Channels() != 3 || b.Frames() != 512 {
		t.Errorf("shape = %dx%d, want 3x512", b.Channels(), b.Frames())
	}
}

func TestInterleave(t *testing.T) {
	b := Buffer{{1, 2}, {3, 4}}
	dst := make([]float32, 6)
	if n := b.Interleave(dst, 3); n != 2 {
		t.Fatalf("frames = %d, want 2", n)
	}
	want := []float32{1, 3, 0, 2, 4, 0}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("dst[%d] = %v, want %v", i, dst[i], want[i])
		}
	}
}

func TestViewSharesStorage(t *testing.T) {
	b := New(2, 8)
	dst := make(Buffer, 2)
	v := b.View(dst, 3)
	if v.Frames() != 3 || v.Channels() != 2 {
		t.Fatalf("view shape = %dx%d, want 2x3", v.Channels(), v.Frames())
	}
	v[1][2] = 5
	if b[1][2] != 5 {
		t.Error("view does not alias the source buffer")
	}
	if got := b.View(dst, 100).Frames(); got != 8 {
		t.Errorf("oversized view frames = %d, want 8", got)
	}
}

func TestHelpersDoNotAllocate(t *testing.T) {
	b := New(2, 512)
	src := New(2, 512)
	view := make(Buffer, 2)
	allocs := testing.AllocsPerRun(100, func() {
		b.Clear()
		b.CopyFrom(src)
		_ = b.Peak()
		b.ClearRange(10, 100)
		_ = src.View(view, 64)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations, got %.1f", allocs)
	}
}
