// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"loopfx/internal/analysis"
	"loopfx/internal/audio"
	"loopfx/internal/config"
	"loopfx/internal/effects"
	"loopfx/internal/feed"
	"loopfx/internal/log"
	"loopfx/internal/playback"
	"loopfx/internal/region"
	"loopfx/internal/source"
	"loopfx/internal/transport"
	"loopfx/internal/transport/udp"
	"loopfx/internal/tui"
	"loopfx/pkg/build"

	"golang.org/x/sync/errgroup"
)

const bridgeSize = 64

// newProcessor builds the transport, parameters and processor described by
// cfg. The transport starts stopped with no asset.
func newProcessor(cfg *config.Config, events *feed.Queue) (*audio.Processor, error) {
	params := effects.NewParameters()
	if cfg.Effects.Preset != "" {
		if err := params.LoadPreset(cfg.Effects.Preset); err != nil {
			return nil, err
		}
		log.Infof("Loaded effect preset %s", cfg.Effects.Preset)
	}

	mode, err := region.ParseMode(cfg.Playback.Mode)
	if err != nil {
		return nil, err
	}
	t := playback.New(cfg.Audio.SampleRate, cfg.Audio.FramesPerBuffer, nil, events)
	t.SetMode(mode)
	t.SetCrossfadeMs(cfg.Playback.CrossfadeMs)

	return audio.NewProcessor(t, params, events,
		cfg.Audio.SampleRate, cfg.Audio.Channels, cfg.Audio.FramesPerBuffer), nil
}

// runEngine runs the interactive session until the user quits or a signal
// arrives.
func runEngine(parent context.Context, cfg *config.Config, headless bool) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Infof("Starting %s", build.Get())

	events := feed.NewQueue(cfg.Visualizer.EventQueueSize)
	proc, err := newProcessor(cfg, events)
	if err != nil {
		return err
	}

	loader := source.NewLoader(nil)
	ctl := audio.NewController(proc, loader, events, cfg.Recording)
	ctl.SetAutoplay(cfg.Playback.Autoplay)
	ctl.SetLoadRegion(cfg.Playback.RegionStart, cfg.Playback.RegionEnd)

	dispatcher := feed.NewDispatcher(events, proc.Transport(), cfg.Visualizer.PlayheadInterval)
	var bridge *tui.Bridge
	if !headless {
		bridge = tui.NewBridge(bridgeSize)
		dispatcher.Subscribe(bridge)
		// Keep log lines off the alternate screen.
		sink := logSink(cfg)
		log.SetOutput(sink)
		defer func() {
			log.SetOutput(os.Stderr)
			if sink != os.Stderr {
				sink.Close()
			}
		}()
	}

	var feeds []transport.Transport
	if cfg.Visualizer.WebSocketAddr != "" {
		ws := transport.NewWebSocketTransport(cfg.Visualizer.WebSocketAddr)
		if err := ws.Start(); err != nil {
			ws.Close()
			return fmt.Errorf("websocket feed: %w", err)
		}
		defer ws.Close()
		feeds = append(feeds, ws)
	}
	if cfg.Debug {
		feeds = append(feeds, transport.NewLoggingTransport())
	}
	for _, t := range feeds {
		dispatcher.Subscribe(transport.NewFeed(t))
	}

	spectrum, err := analysis.NewSpectrum(cfg.Audio.FramesPerBuffer, cfg.Audio.SampleRate, analysis.Hann)
	if err != nil {
		return err
	}
	analyzer, err := analysis.NewAnalyzer(proc.Tap(), spectrum, cfg.Visualizer.SnapshotInterval)
	if err != nil {
		return err
	}
	for _, t := range feeds {
		analyzer.AddTransport(t)
	}

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewUDPSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			return err
		}
		defer sender.Close()
		publisher, err := udp.NewUDPPublisher(cfg.Transport.UDPSendInterval, sender, spectrum)
		if err != nil {
			return err
		}
		publisher.Start()
		defer publisher.Close()
	}

	backend, err := audio.NewBackend(cfg.Audio, proc)
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Errorf("Error closing %s backend: %v", backend.Name(), err)
		}
	}()
	if err := backend.Start(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return loader.Run(gctx) })
	g.Go(func() error { return ctl.Run(gctx) })
	g.Go(func() error { return dispatcher.Run(gctx) })
	g.Go(func() error { return analyzer.Run(gctx) })

	if cfg.Playback.File != "" {
		if err := ctl.Load(cfg.Playback.File); err != nil {
			log.Errorf("Could not queue %s: %v", cfg.Playback.File, err)
		}
	}
	if cfg.Recording.Enabled {
		if path, err := ctl.StartRecording(); err != nil {
			log.Errorf("Could not start recording: %v", err)
		} else {
			log.Infof("Recording to %s", path)
		}
	}

	if headless {
		log.Infof("Running headless on %s, press Ctrl+C to stop", backend.Name())
	} else {
		g.Go(func() error {
			// Quitting the UI ends the session.
			defer stop()
			return tui.Run(ctl, bridge, build.Get().Name+" "+build.Get().Version, gctx.Done())
		})
	}

	err = g.Wait()
	if stopErr := backend.Stop(); stopErr != nil {
		log.Warnf("Error stopping %s backend: %v", backend.Name(), stopErr)
	}
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return err
}

// logSink returns where log lines go while the terminal UI owns the screen:
// a file in debug mode, nowhere otherwise.
func logSink(cfg *config.Config) *os.File {
	if cfg.Debug {
		if f, err := os.OpenFile("loopfx.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			return f
		}
	}
	devNull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if err != nil {
		return os.Stderr
	}
	return devNull
}
