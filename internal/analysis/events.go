package analysis

// EventKind identifies what the worker just did
type EventKind int

const (
	// EventTrackStarted: the worker is about to open a track
	EventTrackStarted EventKind = iota
	// EventTrackAnalyzed: a track ran to end of stream and produced a gain
	EventTrackAnalyzed
	// EventTrackSkipped: no decoder opened, or decoding failed mid-track
	EventTrackSkipped
	// EventTrackInsufficient: the track was shorter than one RMS window
	EventTrackInsufficient
	// EventAlbumAnalyzed: album gain was computed for a named album
	EventAlbumAnalyzed
	// EventAlbumSkipped: the album's sample rate cannot be analysed
	EventAlbumSkipped
	// EventIdle: the queue drained and the worker is waiting again
	EventIdle
)

func (k EventKind) String() string {
	switch k {
	case EventTrackStarted:
		return "track started"
	case EventTrackAnalyzed:
		return "track analysed"
	case EventTrackSkipped:
		return "track skipped"
	case EventTrackInsufficient:
		return "track too short"
	case EventAlbumAnalyzed:
		return "album analysed"
	case EventAlbumSkipped:
		return "album skipped"
	case EventIdle:
		return "idle"
	default:
		return "unknown"
	}
}

// Event reports progress from the worker goroutine. Track events carry
// the item as it stands after the event; album events carry the key and
// the album values.
type Event struct {
	Kind  EventKind
	Key   AlbumKey
	Item  Item
	Gain  float64
	Peak  float64
	Err   error
	Items int // tracks in the album, for album events
}
