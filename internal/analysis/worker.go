// Package analysis runs ReplayGain analysis on a single background
// goroutine. Tracks are grouped into album buckets keyed by channel count,
// sample rate and album name; each bucket is decoded track by track, the
// track gains are written as each track finishes and the album gain once
// the whole bucket is done.
package analysis

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/linuxmatters/replaygain/internal/audio"
	"github.com/linuxmatters/replaygain/internal/gain"
	"github.com/linuxmatters/replaygain/internal/tags"
)

// DefaultChunkFrames is the number of frames requested per decoder read.
const DefaultChunkFrames = 4096

// Option configures a Worker
type Option func(*Worker)

// WithLogger sets the logger used for skipped files and failed writes.
func WithLogger(logger zerolog.Logger) Option {
	return func(w *Worker) {
		w.log = logger.With().Str("component", "analysis").Logger()
	}
}

// WithChunkFrames sets the frames requested per decoder read.
func WithChunkFrames(frames int) Option {
	return func(w *Worker) {
		if frames > 0 {
			w.chunkFrames = frames
		}
	}
}

// WithObserver registers fn to receive events. fn runs on the worker
// goroutine and should return quickly.
func WithObserver(fn func(Event)) Option {
	return func(w *Worker) {
		w.observer = fn
	}
}

// Worker owns the album queue and the goroutine that drains it.
type Worker struct {
	opener      audio.Opener
	store       tags.Store
	log         zerolog.Logger
	chunkFrames int
	observer    func(Event)

	mu    sync.Mutex
	queue map[AlbumKey][]Item

	// wake holds a token while queue is non-empty
	wake     chan struct{}
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	pending atomic.Int64

	// owned by the worker goroutine
	analyzer *gain.Analyzer
}

// New starts a worker that decodes through opener and persists results to
// store.
func New(opener audio.Opener, store tags.Store, opts ...Option) *Worker {
	w := &Worker{
		opener:      opener,
		store:       store,
		log:         zerolog.Nop(),
		chunkFrames: DefaultChunkFrames,
		queue:       make(map[AlbumKey][]Item),
		wake:        make(chan struct{}, 1),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
		analyzer:    gain.NewAnalyzer(),
	}
	for _, opt := range opts {
		opt(w)
	}

	go w.run()
	return w
}

// Calculate queues items for analysis and returns immediately. Items that
// are not mono or stereo are ignored, as are paths already waiting in the
// same album bucket.
func (w *Worker) Calculate(items []Item) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, it := range items {
		if it.Channels != 1 && it.Channels != 2 {
			w.log.Debug().Str("path", it.Path).Int("channels", it.Channels).Msg("Ignoring track that is neither mono nor stereo")
			continue
		}

		key := it.Key()
		bucket := w.queue[key]
		if hasPath(bucket, it.Path) {
			continue
		}

		it.Duplicates = append([]string(nil), it.Duplicates...)
		w.queue[key] = append(bucket, it)
		w.pending.Add(1)
	}

	if len(w.queue) > 0 {
		select {
		case w.wake <- struct{}{}:
		default:
		}
	}
}

func hasPath(bucket []Item, path string) bool {
	for _, it := range bucket {
		if it.Path == path {
			return true
		}
	}
	return false
}

// Stop asks the worker to finish the current chunk and waits for the
// goroutine to exit. Queued work is dropped. Calling Stop again is a no-op.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	<-w.done
}

// PendingCount is the number of queued or in-flight tracks. It is advisory
// and may briefly disagree with the queue contents.
func (w *Worker) PendingCount() int64 {
	return w.pending.Load()
}

func (w *Worker) cancelled() bool {
	select {
	case <-w.stop:
		return true
	default:
		return false
	}
}

func (w *Worker) emit(e Event) {
	if w.observer != nil {
		w.observer(e)
	}
}

func (w *Worker) run() {
	defer close(w.done)

	for {
		select {
		case <-w.stop:
			return
		case <-w.wake:
		}

		for !w.cancelled() {
			key, items, ok := w.pop()
			if !ok {
				break
			}
			w.processAlbum(key, items)
		}

		if w.cancelled() {
			return
		}
		w.emit(Event{Kind: EventIdle})
	}
}

// pop removes and returns the smallest bucket. When it takes the last one
// it clears the wake token.
func (w *Worker) pop() (AlbumKey, []Item, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.queue) == 0 {
		return AlbumKey{}, nil, false
	}

	first := true
	var key AlbumKey
	for k := range w.queue {
		if first || Compare(k, key) < 0 {
			key, first = k, false
		}
	}

	items := w.queue[key]
	delete(w.queue, key)

	if len(w.queue) == 0 {
		select {
		case <-w.wake:
		default:
		}
	}
	return key, items, true
}

type trackOutcome int

const (
	trackDone trackOutcome = iota
	trackSkipped
	trackCancelled
)

func (w *Worker) processAlbum(key AlbumKey, items []Item) {
	log := w.log.With().Str("album", key.Album).Int("channels", key.Channels).Int("sample_rate", key.SampleRate).Logger()

	if err := w.analyzer.Init(key.SampleRate); err != nil {
		log.Warn().Err(err).Int("tracks", len(items)).Msg("Skipping album")
		w.emit(Event{Kind: EventAlbumSkipped, Key: key, Err: err, Items: len(items)})
		return
	}

	for i := range items {
		if w.cancelled() {
			return
		}
		if w.analyzeTrack(key, &items[i], log) == trackCancelled {
			return
		}
	}

	if key.Album == "" || w.cancelled() {
		return
	}

	albumGain, albumPeak := w.analyzer.AlbumGain()
	if albumGain == gain.NotEnoughSamples {
		return
	}

	for i := range items {
		it := &items[i]
		if tags.SameGain(it.AlbumGain, albumGain) && tags.SamePeak(it.AlbumPeak, albumPeak) {
			continue
		}
		prev := *it
		it.AlbumGain, it.AlbumPeak = albumGain, albumPeak
		w.persist(prev, *it, log)
	}

	log.Debug().Float64("gain", albumGain).Float64("peak", albumPeak).Msg("Album analysed")
	w.emit(Event{Kind: EventAlbumAnalyzed, Key: key, Gain: albumGain, Peak: albumPeak, Items: len(items)})
}

func (w *Worker) analyzeTrack(key AlbumKey, it *Item, log zerolog.Logger) trackOutcome {
	w.emit(Event{Kind: EventTrackStarted, Key: key, Item: *it})

	dec, path := w.openItem(key, *it, log)
	if dec == nil {
		w.emit(Event{Kind: EventTrackSkipped, Key: key, Item: *it})
		return trackSkipped
	}
	defer dec.Close()

	finished, err := w.feed(dec, key.Channels)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Decoding failed, abandoning track")
		w.analyzer.DiscardTitle()
		w.emit(Event{Kind: EventTrackSkipped, Key: key, Item: *it, Err: err})
		return trackSkipped
	}
	if !finished {
		return trackCancelled
	}

	trackGain, trackPeak := w.analyzer.TitleGain()
	if trackGain == gain.NotEnoughSamples {
		log.Debug().Str("path", it.Path).Msg("Track too short for analysis")
		w.pending.Add(-1)
		w.emit(Event{Kind: EventTrackInsufficient, Key: key, Item: *it})
		return trackDone
	}

	if !tags.SameGain(it.TrackGain, trackGain) || !tags.SamePeak(it.TrackPeak, trackPeak) {
		prev := *it
		it.TrackGain, it.TrackPeak = trackGain, trackPeak
		w.persist(prev, *it, log)
	}

	w.pending.Add(-1)
	w.emit(Event{Kind: EventTrackAnalyzed, Key: key, Item: *it, Gain: trackGain, Peak: trackPeak})
	return trackDone
}

// openItem tries the primary path and then each duplicate. A decoder whose
// stream does not match the album key is closed and the next path tried.
func (w *Worker) openItem(key AlbumKey, it Item, log zerolog.Logger) (audio.Decoder, string) {
	for _, path := range it.Paths() {
		dec, err := w.opener.Open(path)
		if err != nil {
			log.Debug().Err(err).Str("path", path).Msg("Cannot open")
			continue
		}
		info := dec.Info()
		if info.Channels != key.Channels || info.SampleRate != key.SampleRate {
			log.Debug().Str("path", path).Int("channels", info.Channels).Int("sample_rate", info.SampleRate).Msg("Stream does not match album")
			dec.Close()
			continue
		}
		return dec, path
	}
	return nil, ""
}

// feed decodes dec to the end, feeding the analyzer. It reports false if
// stop was requested before the end of stream.
func (w *Worker) feed(dec audio.Decoder, channels int) (bool, error) {
	buf := make([]float64, w.chunkFrames*channels)
	left := make([]float64, w.chunkFrames)
	var right []float64
	if channels == 2 {
		right = make([]float64, w.chunkFrames)
	}

	for {
		if w.cancelled() {
			return false, nil
		}

		n, err := dec.Read(buf)
		if n > 0 {
			frames := n / channels
			deinterleave(buf[:frames*channels], channels, left, right)
			var r []float64
			if right != nil {
				r = right[:frames]
			}
			if aerr := w.analyzer.AnalyzeSamples(left[:frames], r, channels); aerr != nil {
				return false, aerr
			}
		}
		if errors.Is(err, io.EOF) || (n == 0 && err == nil) {
			return true, nil
		}
		if err != nil {
			return false, err
		}
	}
}

// deinterleave splits interleaved samples into scaled channel buffers.
func deinterleave(buf []float64, channels int, left, right []float64) {
	if channels == 1 {
		for i, s := range buf {
			left[i] = s * gain.Scale
		}
		return
	}
	for i := 0; i < len(buf)/2; i++ {
		left[i] = buf[2*i] * gain.Scale
		right[i] = buf[2*i+1] * gain.Scale
	}
}

// persist writes updated to the primary path and every duplicate.
func (w *Worker) persist(prev, updated Item, log zerolog.Logger) {
	for _, path := range updated.Paths() {
		if err := w.store.UpdateTags(prev.Media(path), updated.Media(path)); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Failed to update tags")
		}
	}
}
