// SPDX-License-Identifier: MIT
package transport

import "loopfx/internal/source"

// Transport defines a generic interface for sending feed messages to
// visualizers. Implementations must be safe for concurrent use and must not
// block the caller on slow consumers.
type Transport interface {
	Send(data any) error
	Close() error
}

// Message types, carried in every message's "type" field.
const (
	TypeRegion   = "region"
	TypePlayhead = "playhead"
	TypeSafety   = "safety"
	TypeEnded    = "ended"
	TypeLoaded   = "loaded"
	TypeSnapshot = "snapshot"
)

// RegionMessage announces a new loop region in normalized coordinates.
type RegionMessage struct {
	Type          string  `json:"type"`
	Start         float64 `json:"start"`
	End           float64 `json:"end"`
	RegionColor   string  `json:"regionColor"`
	PlayheadColor string  `json:"playheadColor"`
}

// PlayheadMessage carries the normalized playhead position.
type PlayheadMessage struct {
	Type     string  `json:"type"`
	Position float64 `json:"position"`
}

// SafetyMessage reports a safety latch trip.
type SafetyMessage struct {
	Type string  `json:"type"`
	Peak float64 `json:"peak"`
}

// EndedMessage reports that playback reached the end of the asset.
type EndedMessage struct {
	Type string `json:"type"`
}

// LoadedMessage describes a newly loaded asset and its waveform overview.
type LoadedMessage struct {
	Type     string        `json:"type"`
	Path     string        `json:"path"`
	Length   float64       `json:"length"`
	Overview []source.Span `json:"overview"`
}

// SnapshotMessage carries levels of the latest output block.
type SnapshotMessage struct {
	Type  string             `json:"type"`
	RMS   float64            `json:"rms"`
	Peak  float64            `json:"peak"`
	Onset bool               `json:"onset"`
	Bands map[string]float64 `json:"bands"`
}
