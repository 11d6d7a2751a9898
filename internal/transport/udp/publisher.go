// SPDX-License-Identifier: MIT
package udp

import (
	"fmt"
	"sync"
	"time"

	"loopfx/internal/analysis"
	"loopfx/internal/log"
)

// UDPPublisher periodically reads the latest magnitude spectrum, packs it (see
// AppendPacket) and sends it through a UDPSender. It runs in its own
// goroutine between Start and Stop.
type UDPPublisher struct {
	sender   *UDPSender
	spectrum analysis.SpectrumProvider
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // Protects ticker and doneChan during Start/Stop.

	sequenceNum uint32
	failures    int

	// Reused on every tick.
	magBuffer []float64
	packet    []byte
}

// NewUDPPublisher creates and initializes a new UDPPublisher. If the interval
// is not positive it defaults to 16ms (~60Hz).
func NewUDPPublisher(interval time.Duration, sender *UDPSender, spectrum analysis.SpectrumProvider) (*UDPPublisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	if spectrum == nil {
		return nil, fmt.Errorf("UDPPublisher: spectrum provider cannot be nil")
	}

	if interval <= 0 {
		interval = 16 * time.Millisecond
		log.Warnf("UDPPublisher: Invalid interval provided, defaulting to %s", interval)
	}

	bins := spectrum.Size()/2 + 1
	log.Infof("UDPPublisher: Initializing (Interval: %s, FFT Bins: %d)", interval, bins)

	return &UDPPublisher{
		sender:    sender,
		spectrum:  spectrum,
		interval:  interval,
		magBuffer: make([]float64, bins),
		packet:    make([]byte, 0, HeaderSize+bins*4),
	}, nil
}

// Start begins the periodic publishing process. Calling Start while running
// is a no-op.
func (p *UDPPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		log.Warnf("UDPPublisher: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	// Capture locals so the goroutine never reads p.ticker/p.doneChan.
	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-ticker.C:
				p.publish(time.Now())
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the publisher goroutine to terminate and waits for it.
// It is safe to call Stop multiple times.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}

	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	log.Debugf("UDPPublisher: stopped after %d packets", p.sequenceNum)
	return nil
}

// publish builds and sends one packet.
func (p *UDPPublisher) publish(now time.Time) {
	if err := p.spectrum.MagnitudesInto(p.magBuffer); err != nil {
		log.Errorf("UDPPublisher: Error getting magnitudes: %v", err)
		return
	}

	p.sequenceNum++
	binWidth := float32(p.spectrum.SampleRate() / float64(p.spectrum.Size()))
	p.packet = AppendPacket(p.packet[:0], p.sequenceNum, now.UnixNano(), binWidth, p.magBuffer)

	if err := p.sender.Send(p.packet); err != nil {
		// Log the first failure and every hundredth after it.
		if p.failures%100 == 0 {
			log.Warnf("UDPPublisher: %v", err)
		}
		p.failures++
		return
	}
	log.Debugf("UDPPublisher: Sent packet %d (%d bytes)", p.sequenceNum, len(p.packet))
}

// Close implements the io.Closer interface. It stops the publisher goroutine.
func (p *UDPPublisher) Close() error {
	return p.Stop()
}

var _ interface{ Close() error } = (*UDPPublisher)(nil)
