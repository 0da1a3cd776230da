package analysis

import (
	"errors"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/linuxmatters/replaygain/internal/audio"
	"github.com/linuxmatters/replaygain/internal/tags"
)

const eventTimeout = 5 * time.Second

// fakeTrack is the audio behind one path in a fakeOpener.
type fakeTrack struct {
	info    audio.StreamInfo
	samples []float64 // interleaved, normalised

	infinite bool  // keep producing samples until closed
	openErr  error // returned by Open
	readErr  error // returned once samples are exhausted, instead of io.EOF

	gate    chan struct{} // first Read waits for this to close
	started chan struct{} // closed on first Read
	once    sync.Once
}

// sineTrack returns frames of a sine at amplitude on every channel.
func sineTrack(sampleRate, channels, frames int, freq, amplitude float64) *fakeTrack {
	samples := make([]float64, frames*channels)
	for i := 0; i < frames; i++ {
		v := amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
		for ch := 0; ch < channels; ch++ {
			samples[i*channels+ch] = v
		}
	}
	return &fakeTrack{
		info:    audio.StreamInfo{SampleRate: sampleRate, Channels: channels, BitDepth: 16},
		samples: samples,
		started: make(chan struct{}),
	}
}

func (tr *fakeTrack) waitStarted(t *testing.T) {
	t.Helper()
	select {
	case <-tr.started:
	case <-time.After(eventTimeout):
		t.Fatal("track was never read")
	}
}

type fakeOpener struct {
	mu     sync.Mutex
	tracks map[string]*fakeTrack
	opened []string
}

func newFakeOpener() *fakeOpener {
	return &fakeOpener{tracks: make(map[string]*fakeTrack)}
}

func (o *fakeOpener) add(path string, tr *fakeTrack) *fakeTrack {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.tracks[path] = tr
	return tr
}

func (o *fakeOpener) Open(path string) (audio.Decoder, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.opened = append(o.opened, path)
	tr, ok := o.tracks[path]
	if !ok {
		return nil, errors.New("no such file")
	}
	if tr.openErr != nil {
		return nil, tr.openErr
	}
	return &fakeDecoder{track: tr}, nil
}

func (o *fakeOpener) openedPaths() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.opened...)
}

type fakeDecoder struct {
	track *fakeTrack
	pos   int
	phase int
}

func (d *fakeDecoder) Info() audio.StreamInfo { return d.track.info }

func (d *fakeDecoder) Read(buf []float64) (int, error) {
	tr := d.track
	if tr.started != nil {
		tr.once.Do(func() { close(tr.started) })
	}
	if tr.gate != nil && d.pos == 0 && d.phase == 0 {
		<-tr.gate
	}

	want := len(buf) - len(buf)%tr.info.Channels
	if tr.infinite {
		for i := 0; i < want; i++ {
			buf[i] = 0.5 * math.Sin(float64(d.phase+i)/7)
		}
		d.phase += want
		return want, nil
	}

	n := copy(buf[:want], tr.samples[d.pos:])
	d.pos += n
	if n == 0 {
		if tr.readErr != nil {
			return 0, tr.readErr
		}
		return 0, io.EOF
	}
	return n, nil
}

func (d *fakeDecoder) Close() error { return nil }

type storeCall struct {
	prev, updated tags.MediaInfo
}

type fakeStore struct {
	mu    sync.Mutex
	calls []storeCall
	err   error
}

func (s *fakeStore) UpdateTags(prev, updated tags.MediaInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, storeCall{prev, updated})
	return s.err
}

func (s *fakeStore) snapshot() []storeCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]storeCall(nil), s.calls...)
}

func (s *fakeStore) callsFor(path string) []storeCall {
	var out []storeCall
	for _, c := range s.snapshot() {
		if c.updated.Path == path {
			out = append(out, c)
		}
	}
	return out
}

// recorder collects worker events in order.
type recorder struct {
	ch chan Event
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan Event, 1024)}
}

func (r *recorder) observe(e Event) {
	select {
	case r.ch <- e:
	default:
	}
}

// waitFor returns every event up to and including the first of kind.
func (r *recorder) waitFor(t *testing.T, kind EventKind) []Event {
	t.Helper()

	var seen []Event
	deadline := time.After(eventTimeout)
	for {
		select {
		case e := <-r.ch:
			seen = append(seen, e)
			if e.Kind == kind {
				return seen
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %v; saw %v", kind, kinds(seen))
			return nil
		}
	}
}

func kinds(events []Event) []EventKind {
	out := make([]EventKind, len(events))
	for i, e := range events {
		out[i] = e.Kind
	}
	return out
}

func ofKind(events []Event, kind EventKind) []Event {
	var out []Event
	for _, e := range events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// newTestWorker starts a worker over fakes and stops it when the test ends.
func newTestWorker(t *testing.T, opener *fakeOpener, store *fakeStore) (*Worker, *recorder) {
	t.Helper()

	rec := newRecorder()
	w := New(opener, store, WithObserver(rec.observe), WithChunkFrames(1024))
	t.Cleanup(w.Stop)
	return w, rec
}

// blockWorker queues a gated track in the smallest possible bucket and
// waits until the worker is stuck reading it. The returned release func
// lets the worker continue; it also runs at cleanup.
func blockWorker(t *testing.T, w *Worker, opener *fakeOpener) (release func()) {
	t.Helper()

	gate := make(chan struct{})
	tr := sineTrack(8000, 1, 8000, 440, 0.5)
	tr.gate = gate
	opener.add("blocker.wav", tr)

	var once sync.Once
	release = func() { once.Do(func() { close(gate) }) }
	t.Cleanup(release)

	w.Calculate([]Item{{Path: "blocker.wav", Channels: 1, SampleRate: 8000}})
	tr.waitStarted(t)
	return release
}

func (w *Worker) queuedPaths(key AlbumKey) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var paths []string
	for _, it := range w.queue[key] {
		paths = append(paths, it.Path)
	}
	return paths
}
