package tags

import (
	"fmt"
	"os"
	"strings"

	"github.com/dhowden/tag"
)

// Existing holds the tags already present in a file.
type Existing struct {
	Album     string
	TrackGain float64
	TrackPeak float64
	AlbumGain float64
	AlbumPeak float64
}

// ReadFile reads the album name and any ReplayGain values from path.
// Fields that are absent or unparseable are left at zero.
func ReadFile(path string) (Existing, error) {
	f, err := os.Open(path)
	if err != nil {
		return Existing{}, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return Existing{}, fmt.Errorf("failed to read tags from %s: %w", path, err)
	}

	e := Existing{Album: m.Album()}
	values := replayGainValues(m.Raw())
	if v, ok := values[FieldTrackGain]; ok {
		e.TrackGain, _ = ParseGain(v)
	}
	if v, ok := values[FieldTrackPeak]; ok {
		e.TrackPeak, _ = ParsePeak(v)
	}
	if v, ok := values[FieldAlbumGain]; ok {
		e.AlbumGain, _ = ParseGain(v)
	}
	if v, ok := values[FieldAlbumPeak]; ok {
		e.AlbumPeak, _ = ParsePeak(v)
	}
	return e, nil
}

// replayGainValues collects REPLAYGAIN_* entries from a raw tag map.
// Vorbis comments appear as plain keys; ID3v2 stores them in TXXX frames
// keyed by description.
func replayGainValues(raw map[string]interface{}) map[string]string {
	out := make(map[string]string, 4)
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			name := strings.ToUpper(k)
			if strings.HasPrefix(name, "REPLAYGAIN_") {
				out[name] = val
			}
		case *tag.Comm:
			name := strings.ToUpper(val.Description)
			if strings.HasPrefix(name, "REPLAYGAIN_") {
				out[name] = val.Text
			}
		}
	}
	return out
}
