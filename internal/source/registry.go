// SPDX-License-Identifier: MIT
package source

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// Decoder turns an encoded stream into an Asset.
type Decoder interface {
	Decode(r io.ReadSeeker) (*Asset, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(r io.ReadSeeker) (*Asset, error)

func (f DecoderFunc) Decode(r io.ReadSeeker) (*Asset, error) { return f(r) }

// Registry maps lower-case file extensions (".wav") to decoders.
type Registry struct {
	mu     sync.RWMutex
	codecs map[string]Decoder
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{codecs: make(map[string]Decoder)}
}

// DefaultRegistry returns a registry with every built-in format.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(".wav", DecoderFunc(decodeWAV))
	r.Register(".wave", DecoderFunc(decodeWAV))
	r.Register(".aif", DecoderFunc(decodeAIFF))
	r.Register(".aiff", DecoderFunc(decodeAIFF))
	r.Register(".mp3", DecoderFunc(decodeMP3))
	r.Register(".ogg", DecoderFunc(decodeVorbis))
	r.Register(".oga", DecoderFunc(decodeVorbis))
	return r
}

// Register adds or replaces the decoder for ext.
func (r *Registry) Register(ext string, d Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[normalizeExt(ext)] = d
}

// Lookup returns the decoder for ext.
func (r *Registry) Lookup(ext string) (Decoder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.codecs[normalizeExt(ext)]
	return d, ok
}

// Extensions lists the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.codecs))
	for ext := range r.codecs {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// Open decodes the file at path using the decoder registered for its extension.
func (r *Registry) Open(path string) (*Asset, error) {
	ext := filepath.Ext(path)
	dec, ok := r.Lookup(ext)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	asset, err := dec.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	asset.Path = path
	return asset, nil
}

var defaultRegistry = DefaultRegistry()

// Open decodes path with the default registry.
func Open(path string) (*Asset, error) {
	return defaultRegistry.Open(path)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
