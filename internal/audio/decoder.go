// Package audio provides streaming PCM decoding for the formats the
// analyser understands.
package audio

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// ErrUnsupportedFormat is returned when no backend is registered for a file.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// StreamInfo describes the decoded stream
type StreamInfo struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// Decoder yields interleaved samples normalised to ±1.0.
//
// Read fills buf with whole frames and returns the number of samples
// written. At end of stream it returns 0, io.EOF.
type Decoder interface {
	Info() StreamInfo
	Read(buf []float64) (int, error)
	Close() error
}

// Opener opens a decoder for a path.
type Opener interface {
	Open(path string) (Decoder, error)
}

// OpenFunc opens one file format
type OpenFunc func(path string) (Decoder, error)

// Registry selects a decoder backend by file extension.
type Registry struct {
	backends map[string]OpenFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]OpenFunc)}
}

// DefaultRegistry returns a registry with the WAV, FLAC and MP3 backends.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(".wav", OpenWAV)
	r.Register(".wave", OpenWAV)
	r.Register(".flac", OpenFLAC)
	r.Register(".mp3", OpenMP3)
	return r
}

// Register binds ext (with leading dot, any case) to open.
func (r *Registry) Register(ext string, open OpenFunc) {
	r.backends[strings.ToLower(ext)] = open
}

// Extensions lists the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.backends))
	for ext := range r.backends {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Open opens path with the backend registered for its extension.
func (r *Registry) Open(path string) (Decoder, error) {
	ext := strings.ToLower(filepath.Ext(path))
	open, ok := r.backends[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	dec, err := open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return dec, nil
}

// Probe opens path only to read its stream parameters.
func (r *Registry) Probe(path string) (StreamInfo, error) {
	dec, err := r.Open(path)
	if err != nil {
		return StreamInfo{}, err
	}
	info := dec.Info()
	if err := dec.Close(); err != nil {
		return StreamInfo{}, fmt.Errorf("failed to close %s: %w", path, err)
	}
	return info, nil
}

// frameAligned trims n down to a whole number of frames.
func frameAligned(n, channels int) int {
	if channels <= 0 {
		return 0
	}
	return n - n%channels
}

// intScale returns the divisor that maps signed integer samples of the
// given bit depth onto ±1.0.
func intScale(bitDepth int) float64 {
	return float64(int64(1) << (bitDepth - 1))
}
