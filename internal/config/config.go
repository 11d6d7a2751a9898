package config

// Core configuration constants that define the boundaries and defaults
// for the playback engine.
const (
	DefaultBackend         = BackendPortAudio
	DefaultDeviceID        = MinDeviceID // System default output device
	DefaultChannels        = 2           // Stereo output
	DefaultFramesPerBuffer = 512         // Balanced latency/performance
	DefaultLowLatency      = false
	DefaultSampleRate      = 44100 // CD-quality audio
	DefaultLogLevel        = "info"

	DefaultMode        = "off"
	DefaultCrossfadeMs = 10.0

	DefaultWebSocketAddr     = ":8080"
	DefaultPlayheadInterval  = 40  // ms, ~25Hz like a UI repaint timer
	DefaultSnapshotInterval  = 100 // ms
	DefaultEventQueueSize    = 64
	DefaultUDPTargetAddress  = "127.0.0.1:9090"
	DefaultUDPSendIntervalMs = 33

	DefaultRecordingDir      = "./recordings"
	DefaultRecordingBitDepth = 16

	// Hardware and processing limits
	MinDeviceID     = -1     // -1 represents system default device
	MinSampleRate   = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate   = 192000 // Maximum supported sample rate (Hz)
	MaxBufferFrames = 8192   // Maximum frames per buffer (power of 2)
	MaxChannels     = 2
)

// Output backends.
const (
	BackendPortAudio = "portaudio"
	BackendOto       = "oto"
)
