// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"loopfx/internal/region"
	"loopfx/pkg/bitint"

	"gopkg.in/yaml.v3"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug      bool             `yaml:"debug"`      // Enable debug logging.
	LogLevel   string           `yaml:"log_level"`  // Logging level (e.g., "debug", "info", "warn", "error").
	Audio      AudioConfig      `yaml:"audio"`      // Output device and block settings.
	Playback   PlaybackConfig   `yaml:"playback"`   // Transport settings applied at startup.
	Effects    EffectsConfig    `yaml:"effects"`    // Effect parameter preset.
	Visualizer VisualizerConfig `yaml:"visualizer"` // Visualizer feed settings.
	Recording  RecordingConfig  `yaml:"recording"`  // Recording of the processed output.
	Transport  TransportConfig  `yaml:"transport"`  // UDP spectrum publishing.
}

// AudioConfig holds settings related to the output stream.
type AudioConfig struct {
	Backend         string  `yaml:"backend"`           // "portaudio" or "oto".
	OutputDevice    int     `yaml:"output_device"`     // PortAudio device index (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Device sample rate in Hz.
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames per audio callback.
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency settings from the device.
	Channels        int     `yaml:"channels"`          // Output channels (1 or 2).
}

// PlaybackConfig holds the transport state applied once the engine is up.
type PlaybackConfig struct {
	File        string  `yaml:"file"`         // Audio file loaded at startup (optional).
	Mode        string  `yaml:"mode"`         // off, full, region, random, granular.
	CrossfadeMs float64 `yaml:"crossfade_ms"` // Crossfade at loop boundaries.
	Autoplay    bool    `yaml:"autoplay"`     // Start playing once the file is loaded.
	RegionStart float64 `yaml:"region_start"` // Fixed region start in seconds.
	RegionEnd   float64 `yaml:"region_end"`   // Fixed region end in seconds.
}

// EffectsConfig points at a YAML parameter preset.
type EffectsConfig struct {
	Preset string `yaml:"preset"` // Path of a preset written by "loopfx preset save".
}

// VisualizerConfig controls the feed consumed by external visualizers.
type VisualizerConfig struct {
	WebSocketAddr    string        `yaml:"websocket_addr"`    // Listen address for the websocket feed ("" disables it).
	PlayheadInterval time.Duration `yaml:"playhead_interval"` // Interval between playhead updates.
	SnapshotInterval time.Duration `yaml:"snapshot_interval"` // Interval between spectrum/band updates.
	EventQueueSize   int           `yaml:"event_queue_size"`  // Capacity of the audio->control event queue.
}

// RecordingConfig holds settings related to recording the processed output.
type RecordingConfig struct {
	Enabled   bool   `yaml:"enabled"`    // Record the processed output to file.
	OutputDir string `yaml:"output_dir"` // Directory to save recorded audio files.
	BitDepth  int    `yaml:"bit_depth"`  // Bit depth for recorded audio (16 or 24).
}

// TransportConfig holds settings related to sending processed data over the network.
type TransportConfig struct {
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Enable sending spectrum data over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target address and port for UDP packets.
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Interval between UDP packets.
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Audio: AudioConfig{
			Backend:         DefaultBackend,
			OutputDevice:    DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      DefaultLowLatency,
			Channels:        DefaultChannels,
		},
		Playback: PlaybackConfig{
			Mode:        DefaultMode,
			CrossfadeMs: DefaultCrossfadeMs,
		},
		Visualizer: VisualizerConfig{
			WebSocketAddr:    DefaultWebSocketAddr,
			PlayheadInterval: DefaultPlayheadInterval * time.Millisecond,
			SnapshotInterval: DefaultSnapshotInterval * time.Millisecond,
			EventQueueSize:   DefaultEventQueueSize,
		},
		Recording: RecordingConfig{
			OutputDir: DefaultRecordingDir,
			BitDepth:  DefaultRecordingBitDepth,
		},
		Transport: TransportConfig{
			UDPTargetAddress: DefaultUDPTargetAddress,
			UDPSendInterval:  DefaultUDPSendIntervalMs * time.Millisecond,
		},
	}
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("config.yaml"). If no file is found, it uses built-in
// defaults. After loading defaults or from file, it applies environment variable
// overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		candidates := []string{
			"config.yaml",
			"loopfx.yaml",
		}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
		if path == "" {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment overrides win over the file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration against the engine's limits.
func (c *Config) Validate() error {
	var errs []error

	switch c.Audio.Backend {
	case BackendPortAudio, BackendOto:
	default:
		errs = append(errs, fmt.Errorf("audio.backend %q is not one of %q, %q",
			c.Audio.Backend, BackendPortAudio, BackendOto))
	}
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		errs = append(errs, fmt.Errorf("audio.sample_rate %.0f outside [%d, %d]",
			c.Audio.SampleRate, MinSampleRate, MaxSampleRate))
	}
	if !bitint.IsPowerOfTwo(c.Audio.FramesPerBuffer) || c.Audio.FramesPerBuffer > MaxBufferFrames {
		errs = append(errs, fmt.Errorf("audio.frames_per_buffer %d must be a power of two <= %d",
			c.Audio.FramesPerBuffer, MaxBufferFrames))
	}
	if c.Audio.Channels < 1 || c.Audio.Channels > MaxChannels {
		errs = append(errs, fmt.Errorf("audio.channels %d outside [1, %d]", c.Audio.Channels, MaxChannels))
	}
	if c.Audio.OutputDevice < MinDeviceID {
		errs = append(errs, fmt.Errorf("audio.output_device %d is invalid", c.Audio.OutputDevice))
	}
	if _, err := region.ParseMode(c.Playback.Mode); err != nil {
		errs = append(errs, fmt.Errorf("playback.mode: %w", err))
	}
	if c.Playback.CrossfadeMs < 0 {
		errs = append(errs, fmt.Errorf("playback.crossfade_ms must not be negative"))
	}
	if c.Visualizer.EventQueueSize <= 0 {
		errs = append(errs, fmt.Errorf("visualizer.event_queue_size must be positive"))
	}
	if c.Visualizer.PlayheadInterval <= 0 || c.Visualizer.SnapshotInterval <= 0 {
		errs = append(errs, fmt.Errorf("visualizer intervals must be positive"))
	}
	if c.Recording.BitDepth != 16 && c.Recording.BitDepth != 24 {
		errs = append(errs, fmt.Errorf("recording.bit_depth %d must be 16 or 24", c.Recording.BitDepth))
	}
	if c.Transport.UDPEnabled {
		if c.Transport.UDPTargetAddress == "" {
			errs = append(errs, fmt.Errorf("transport.udp_target_address must be set when UDP is enabled"))
		}
		if c.Transport.UDPSendInterval <= 0 {
			errs = append(errs, fmt.Errorf("transport.udp_send_interval must be positive when UDP is enabled"))
		}
	}

	return errors.Join(errs...)
}

// applyEnvOverrides lets ENV_* variables override file and default values.
// Unparseable values are ignored.
func (cfg *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = bVal
		}
	}
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		cfg.LogLevel = val
	}
	if val, ok := os.LookupEnv("ENV_BACKEND"); ok {
		cfg.Audio.Backend = val
	}
	if val, ok := os.LookupEnv("ENV_WS_ADDR"); ok {
		cfg.Visualizer.WebSocketAddr = val
	}

	// ENV_UDP_{...} are specific to the transport layer.
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.UDPEnabled = bVal
		}
	}
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		cfg.Transport.UDPTargetAddress = val
	}
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			cfg.Transport.UDPSendInterval = dur
		}
	}
}
