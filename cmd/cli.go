// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"os"

	"loopfx/internal/config"
	"loopfx/internal/log"
	"loopfx/pkg/build"

	"github.com/spf13/cobra"
)

// options collects the command line flags. Only flags the user actually set
// override the configuration file.
type options struct {
	configPath string
	verbose    bool

	device          int
	backend         string
	sampleRate      float64
	framesPerBuffer int
	channels        int
	lowLatency      bool

	file      string
	mode      string
	crossfade float64
	preset    string
	autoplay  bool
	record    bool
	headless  bool
	wsAddr    string
	udp       bool
	udpTarget string
}

// Execute parses os.Args and runs the selected command.
func Execute() error {
	root := newRootCmd()
	root.SetArgs(os.Args[1:])
	return root.Execute()
}

func newRootCmd() *cobra.Command {
	return buildRootCmd(&options{})
}

func buildRootCmd(opts *options) *cobra.Command {
	buildInfo := build.Get()

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name + " [file]",
		Short:         "Loop playback engine with a real-time effect chain",
		Version:       buildInfo.Version,
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.Playback.File = args[0]
			}
			return runEngine(cmd.Context(), cfg, opts.headless)
		},
	}
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// Audio device configuration, shared with render.
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "",
		"Configuration file (default: ./config.yaml or ./loopfx.yaml if present)")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false,
		"Show verbose output")
	pf.IntVarP(&opts.device, "device", "d", config.DefaultDeviceID,
		"Output device ID. Use 'list' command to see available devices.")
	pf.StringVar(&opts.backend, "backend", config.DefaultBackend,
		"Audio backend (portaudio or oto)")
	pf.Float64VarP(&opts.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	pf.IntVarP(&opts.framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	pf.IntVarP(&opts.channels, "channels", "c", config.DefaultChannels,
		"Number of output channels (1=mono, 2=stereo)")
	pf.BoolVarP(&opts.lowLatency, "low-latency", "l", config.DefaultLowLatency,
		"Use low latency mode for real-time processing")
	pf.StringVarP(&opts.mode, "mode", "m", config.DefaultMode,
		"Loop mode (off, full, region, random, granular)")
	pf.Float64Var(&opts.crossfade, "crossfade", config.DefaultCrossfadeMs,
		"Crossfade at loop boundaries in milliseconds")
	pf.StringVarP(&opts.preset, "preset", "p", "",
		"Effect parameter preset to load")

	// Interactive session only.
	f := rootCmd.Flags()
	f.StringVarP(&opts.file, "file", "f", "", "Audio file to load at startup")
	f.BoolVarP(&opts.autoplay, "autoplay", "a", false, "Start playing as soon as the file is loaded")
	f.BoolVarP(&opts.record, "record", "r", false, "Record the processed output from startup")
	f.BoolVar(&opts.headless, "headless", false, "Run without the terminal UI until interrupted")
	f.StringVar(&opts.wsAddr, "ws-addr", config.DefaultWebSocketAddr,
		"Listen address of the visualizer websocket feed (empty disables it)")
	f.BoolVar(&opts.udp, "udp", false, "Publish the spectrum over UDP")
	f.StringVar(&opts.udpTarget, "udp-target", config.DefaultUDPTargetAddress,
		"Target address of UDP spectrum packets")

	rootCmd.AddCommand(
		newListCmd(),
		newRenderCmd(opts),
		newPresetCmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}

// load reads the configuration file, applies the flags that were set on the
// command line, validates the result and configures logging.
func (o *options) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}

	fl := cmd.Flags()
	if fl.Changed("device") {
		cfg.Audio.OutputDevice = o.device
	}
	if fl.Changed("backend") {
		cfg.Audio.Backend = o.backend
	}
	if fl.Changed("sample-rate") {
		cfg.Audio.SampleRate = o.sampleRate
	}
	if fl.Changed("frames-per-buffer") {
		cfg.Audio.FramesPerBuffer = o.framesPerBuffer
	}
	if fl.Changed("channels") {
		cfg.Audio.Channels = o.channels
	}
	if fl.Changed("low-latency") {
		cfg.Audio.LowLatency = o.lowLatency
	}
	if fl.Changed("mode") {
		cfg.Playback.Mode = o.mode
	}
	if fl.Changed("crossfade") {
		cfg.Playback.CrossfadeMs = o.crossfade
	}
	if fl.Changed("preset") {
		cfg.Effects.Preset = o.preset
	}
	if fl.Changed("file") {
		cfg.Playback.File = o.file
	}
	if fl.Changed("autoplay") {
		cfg.Playback.Autoplay = o.autoplay
	}
	if fl.Changed("record") {
		cfg.Recording.Enabled = o.record
	}
	if fl.Changed("ws-addr") {
		cfg.Visualizer.WebSocketAddr = o.wsAddr
	}
	if fl.Changed("udp") {
		cfg.Transport.UDPEnabled = o.udp
	}
	if fl.Changed("udp-target") {
		cfg.Transport.UDPTargetAddress = o.udpTarget
	}
	if o.verbose {
		cfg.Debug = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	log.Configure(cfg.LogLevel, cfg.Debug)
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), build.Get())
		},
	}
}
