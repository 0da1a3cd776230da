// Package tags persists ReplayGain results: as Vorbis comments inside
// FLAC files and as records in a local library database.
package tags

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Vorbis comment / TXXX field names
const (
	FieldTrackGain = "REPLAYGAIN_TRACK_GAIN"
	FieldTrackPeak = "REPLAYGAIN_TRACK_PEAK"
	FieldAlbumGain = "REPLAYGAIN_ALBUM_GAIN"
	FieldAlbumPeak = "REPLAYGAIN_ALBUM_PEAK"
)

// ErrUnsupportedFile is returned by stores that cannot write a file's format.
var ErrUnsupportedFile = errors.New("file format does not support tag writing")

// MediaInfo is a snapshot of one file's loudness metadata.
type MediaInfo struct {
	Path       string  `json:"path"`
	Album      string  `json:"album"`
	Channels   int     `json:"channels"`
	SampleRate int     `json:"sample_rate"`
	TrackGain  float64 `json:"track_gain"`
	TrackPeak  float64 `json:"track_peak"`
	AlbumGain  float64 `json:"album_gain"`
	AlbumPeak  float64 `json:"album_peak"`
}

// Store persists updated loudness values. prev is the snapshot the caller
// started from so implementations can write only what changed.
type Store interface {
	UpdateTags(prev, updated MediaInfo) error
}

// StoreFunc adapts a function to Store
type StoreFunc func(prev, updated MediaInfo) error

func (f StoreFunc) UpdateTags(prev, updated MediaInfo) error {
	return f(prev, updated)
}

// Discard accepts every update and persists nothing.
var Discard Store = StoreFunc(func(MediaInfo, MediaInfo) error { return nil })

// IgnoreUnsupported wraps s so that ErrUnsupportedFile is not reported.
// Use it when another store in a MultiStore records those files.
func IgnoreUnsupported(s Store) Store {
	return StoreFunc(func(prev, updated MediaInfo) error {
		if err := s.UpdateTags(prev, updated); err != nil && !errors.Is(err, ErrUnsupportedFile) {
			return err
		}
		return nil
	})
}

// MultiStore forwards each update to every store, in order.
type MultiStore []Store

func (m MultiStore) UpdateTags(prev, updated MediaInfo) error {
	var errs []error
	for _, s := range m {
		if err := s.UpdateTags(prev, updated); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FormatGain renders a gain the way ReplayGain tags store it.
func FormatGain(gain float64) string {
	return fmt.Sprintf("%.2f dB", gain)
}

// FormatPeak renders a linear peak amplitude.
func FormatPeak(peak float64) string {
	return fmt.Sprintf("%.6f", peak)
}

// ParseGain accepts "-6.54 dB", "-6.54dB" or a bare number.
func ParseGain(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && strings.EqualFold(s[len(s)-2:], "db") {
		s = strings.TrimSpace(s[:len(s)-2])
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid gain %q: %w", s, err)
	}
	return v, nil
}

// ParsePeak parses a linear peak amplitude.
func ParsePeak(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid peak %q: %w", s, err)
	}
	return v, nil
}

// SameGain reports whether two gains are equal at the 0.01 dB precision
// they are stored with.
func SameGain(a, b float64) bool {
	return math.Round(a*100) == math.Round(b*100)
}

// SamePeak reports whether two peaks are equal at stored precision.
func SamePeak(a, b float64) bool {
	return math.Round(a*1e6) == math.Round(b*1e6)
}

// changedFields lists the ReplayGain fields whose values differ between
// prev and updated, with their formatted new values.
func changedFields(prev, updated MediaInfo) map[string]string {
	fields := make(map[string]string, 4)
	if !SameGain(prev.TrackGain, updated.TrackGain) {
		fields[FieldTrackGain] = FormatGain(updated.TrackGain)
	}
	if !SamePeak(prev.TrackPeak, updated.TrackPeak) {
		fields[FieldTrackPeak] = FormatPeak(updated.TrackPeak)
	}
	if !SameGain(prev.AlbumGain, updated.AlbumGain) {
		fields[FieldAlbumGain] = FormatGain(updated.AlbumGain)
	}
	if !SamePeak(prev.AlbumPeak, updated.AlbumPeak) {
		fields[FieldAlbumPeak] = FormatPeak(updated.AlbumPeak)
	}
	return fields
}
