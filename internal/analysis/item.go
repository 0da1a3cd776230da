package analysis

import (
	"cmp"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/linuxmatters/replaygain/internal/audio"
	"github.com/linuxmatters/replaygain/internal/tags"
)

// Item is one track submitted for analysis. Duplicates are other paths to
// the same audio; they receive exactly the tags written to Path.
type Item struct {
	Path       string
	Duplicates []string
	Channels   int
	SampleRate int
	Album      string

	// Values currently stored for the track
	TrackGain float64
	TrackPeak float64
	AlbumGain float64
	AlbumPeak float64
}

// Key returns the album bucket the item belongs to.
func (it Item) Key() AlbumKey {
	return AlbumKey{Channels: it.Channels, SampleRate: it.SampleRate, Album: it.Album}
}

// Paths returns the primary path followed by the duplicates.
func (it Item) Paths() []string {
	paths := make([]string, 0, 1+len(it.Duplicates))
	paths = append(paths, it.Path)
	return append(paths, it.Duplicates...)
}

// Media returns the metadata snapshot of the item as stored at path.
func (it Item) Media(path string) tags.MediaInfo {
	return tags.MediaInfo{
		Path:       path,
		Album:      it.Album,
		Channels:   it.Channels,
		SampleRate: it.SampleRate,
		TrackGain:  it.TrackGain,
		TrackPeak:  it.TrackPeak,
		AlbumGain:  it.AlbumGain,
		AlbumPeak:  it.AlbumPeak,
	}
}

// AlbumKey groups tracks that are analysed together.
type AlbumKey struct {
	Channels   int
	SampleRate int
	Album      string
}

func (k AlbumKey) String() string {
	name := k.Album
	if name == "" {
		name = "(no album)"
	}
	return fmt.Sprintf("%s [%d ch, %d Hz]", name, k.Channels, k.SampleRate)
}

// Compare orders keys by channel count, then sample rate, then album name.
func Compare(a, b AlbumKey) int {
	if c := cmp.Compare(a.Channels, b.Channels); c != 0 {
		return c
	}
	if c := cmp.Compare(a.SampleRate, b.SampleRate); c != 0 {
		return c
	}
	return cmp.Compare(a.Album, b.Album)
}

// Prober reports a file's stream parameters without decoding it.
type Prober interface {
	Probe(path string) (audio.StreamInfo, error)
}

// TagReader returns the tags already stored for a path.
type TagReader func(path string) (tags.Existing, error)

// BuildItems turns paths into items. Paths that resolve to the same file
// are folded into one item, the first spelling becoming the primary.
// Paths that cannot be probed are left out and reported in the returned
// error; tag read failures only leave the item's stored values empty.
func BuildItems(paths []string, prober Prober, readTags TagReader) ([]Item, error) {
	var items []Item
	var errs []error
	byFile := make(map[string]int)

	for _, path := range paths {
		id := fileIdentity(path)
		if i, ok := byFile[id]; ok {
			if items[i].Path != path && !contains(items[i].Duplicates, path) {
				items[i].Duplicates = append(items[i].Duplicates, path)
			}
			continue
		}

		info, err := prober.Probe(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		item := Item{
			Path:       path,
			Channels:   info.Channels,
			SampleRate: info.SampleRate,
		}
		if readTags != nil {
			if existing, err := readTags(path); err == nil {
				item.Album = existing.Album
				item.TrackGain = existing.TrackGain
				item.TrackPeak = existing.TrackPeak
				item.AlbumGain = existing.AlbumGain
				item.AlbumPeak = existing.AlbumPeak
			}
		}

		byFile[id] = len(items)
		items = append(items, item)
	}

	return items, errors.Join(errs...)
}

// fileIdentity resolves symlinks and relative paths so aliases compare equal.
func fileIdentity(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
