// SPDX-License-Identifier: MIT
package udp

import (
	"errors"
	"net"
	"testing"
	"time"

	"loopfx/internal/analysis"
	"loopfx/internal/audiotest"
)

func TestPacketRoundTrip(t *testing.T) {
	mags := []float64{0, 0.5, 1, 0.25}
	b := AppendPacket(nil, 7, 123456789, 15.625, mags)
	if len(b) != HeaderSize+len(mags)*4 {
		t.Fatalf("packet size = %d, want %d", len(b), HeaderSize+len(mags)*4)
	}

	p, err := ParsePacket(b)
	if err != nil {
		t.Fatalf("ParsePacket: %v", err)
	}
	if p.Sequence != 7 || p.Timestamp != 123456789 || p.BinWidth != 15.625 {
		t.Errorf("header = %+v", p)
	}
	for i, m := range mags {
		if p.Magnitudes[i] != float32(m) {
			t.Errorf("magnitude %d = %v, want %v", i, p.Magnitudes[i], m)
		}
	}
}

func TestParsePacketShort(t *testing.T) {
	if _, err := ParsePacket(make([]byte, HeaderSize-1)); err != ErrShortPacket {
		t.Errorf("err = %v, want ErrShortPacket", err)
	}
	b := AppendPacket(nil, 1, 0, 1, []float64{1, 2})
	if _, err := ParsePacket(b[:len(b)-1]); err != ErrShortPacket {
		t.Errorf("truncated body err = %v, want ErrShortPacket", err)
	}
}

func TestAppendPacketReusesBuffer(t *testing.T) {
	mags := make([]float64, 257)
	buf := make([]byte, 0, HeaderSize+len(mags)*4)
	allocs := testing.AllocsPerRun(100, func() {
		buf = AppendPacket(buf[:0], 1, 2, 3, mags)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations, got %.1f", allocs)
	}
}

func TestNewUDPPublisherValidation(t *testing.T) {
	s, _ := analysis.NewSpectrum(256, 8000, analysis.Hann)
	if _, err := NewUDPPublisher(time.Millisecond, nil, s); err == nil {
		t.Error("expected error for nil sender")
	}
	sender := &UDPSender{}
	if _, err := NewUDPPublisher(time.Millisecond, sender, nil); err == nil {
		t.Error("expected error for nil spectrum")
	}
}

func TestPublisherSendsSpectrum(t *testing.T) {
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()

	sender, err := NewUDPSender(listener.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewUDPSender: %v", err)
	}
	defer sender.Close()

	s, _ := analysis.NewSpectrum(256, 8000, analysis.Hann)
	s.Process(audiotest.Sine(1, 256, 8000, 1000, 0.5)[0])

	pub, err := NewUDPPublisher(5*time.Millisecond, sender, s)
	if err != nil {
		t.Fatalf("NewUDPPublisher: %v", err)
	}
	pub.Start()
	pub.Start() // no-op while running
	defer pub.Close()

	buf := make([]byte, 4096)
	listener.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := listener.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	p, err := ParsePacket(buf[:n])
	if err != nil {
		t.Fatalf("ParsePacket: %v", err)
	}
	if p.Sequence != 1 {
		t.Errorf("sequence = %d, want 1", p.Sequence)
	}
	if len(p.Magnitudes) != 129 {
		t.Errorf("magnitudes = %d, want 129", len(p.Magnitudes))
	}
	if p.BinWidth != 31.25 {
		t.Errorf("bin width = %v, want 31.25", p.BinWidth)
	}
	if peak := audiotest.FindPeakBin(float64s(p.Magnitudes), 1, 128); peak != 32 {
		t.Errorf("peak bin = %d, want 32", peak)
	}
	if packets, bytes := sender.Stats(); packets == 0 || bytes < uint64(n) {
		t.Errorf("stats = %d packets, %d bytes", packets, bytes)
	}

	if err := pub.Stop(); err != nil {
		t.Errorf("Stop: %v", err)
	}
	if err := pub.Stop(); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}

func TestSenderClosed(t *testing.T) {
	sender, err := NewUDPSender("127.0.0.1:9")
	if err != nil {
		t.Fatalf("NewUDPSender: %v", err)
	}
	if err := sender.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := sender.Send([]byte{1}); !errors.Is(err, ErrSenderClosed) {
		t.Errorf("Send after Close = %v, want ErrSenderClosed", err)
	}
	if err := sender.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func float64s(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}
