package main

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/linuxmatters/replaygain/internal/analysis"
	"github.com/linuxmatters/replaygain/internal/cli"
	"github.com/linuxmatters/replaygain/internal/config"
	"github.com/linuxmatters/replaygain/internal/tags"
	"github.com/rs/zerolog"
)

var timeZero time.Time

func TestResultsObserve(t *testing.T) {
	items := []analysis.Item{
		{Path: "a/01.flac", Channels: 2, SampleRate: 44100, Album: "A"},
		{Path: "a/02.flac", Channels: 2, SampleRate: 44100, Album: "A"},
		{Path: "x/short.wav", Channels: 1, SampleRate: 8000},
		{Path: "y/hi.flac", Channels: 2, SampleRate: 96000, Album: "Hi"},
	}
	res := newResults(items)

	res.observe(analysis.Event{Kind: analysis.EventTrackStarted, Item: items[0]})
	res.observe(analysis.Event{Kind: analysis.EventTrackAnalyzed, Item: items[0], Gain: -3, Peak: 0.8})
	res.observe(analysis.Event{Kind: analysis.EventTrackSkipped, Item: items[1], Err: errors.New("bad")})
	res.observe(analysis.Event{Kind: analysis.EventAlbumAnalyzed, Key: items[0].Key(), Gain: -4, Peak: 0.9, Items: 2})
	res.observe(analysis.Event{Kind: analysis.EventTrackInsufficient, Item: items[2]})
	res.observe(analysis.Event{Kind: analysis.EventAlbumSkipped, Key: items[3].Key(), Items: 1})
	res.observe(analysis.Event{Kind: analysis.EventIdle})

	want := cli.Summary{Analysed: 1, Skipped: 2, TooShort: 1, Albums: 1, AlbumSkipped: 1}
	if got := res.Summary(); got != want {
		t.Errorf("Summary() = %+v, want %+v", got, want)
	}

	entries := res.reportData(timeZero, timeZero, false).Entries
	if e := entries[0]; e.TrackGain != -3 || e.TrackPeak != 0.8 || e.AlbumGain != -4 || e.Status != "" {
		t.Errorf("entry 0 = %+v", e)
	}
	if e := entries[1]; e.Status != "skipped" || !math.IsNaN(e.TrackGain) || e.AlbumGain != -4 {
		t.Errorf("entry 1 = %+v", e)
	}
	if e := entries[2]; e.Status != "too short" || !math.IsNaN(e.AlbumGain) {
		t.Errorf("entry 2 = %+v", e)
	}
	if e := entries[3]; e.Status != "unsupported sample rate" {
		t.Errorf("entry 3 = %+v", e)
	}
}

func TestBuildStore(t *testing.T) {
	lib, err := tags.OpenLibrary(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer lib.Close()

	noFileTags := config.Default()
	noFileTags.WriteFileTags = false

	tests := []struct {
		name    string
		cfg     config.Config
		library *tags.Library
		dryRun  bool
		stores  int // -1 for tags.Discard
	}{
		{"dry run", config.Default(), lib, true, -1},
		{"file tags only", config.Default(), nil, false, 1},
		{"file tags and library", config.Default(), lib, false, 2},
		{"library only", noFileTags, lib, false, 1},
		{"nothing to write", noFileTags, nil, false, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := buildStore(tt.cfg, tt.library, tt.dryRun)
			multi, ok := store.(tags.MultiStore)
			if tt.stores < 0 {
				if ok {
					t.Errorf("buildStore() = %d stores, want Discard", len(multi))
				}
				return
			}
			if !ok || len(multi) != tt.stores {
				t.Errorf("buildStore() = %#v, want %d stores", store, tt.stores)
			}
		})
	}
}

func TestUnwrapJoined(t *testing.T) {
	a, b := errors.New("a"), errors.New("b")
	if got := unwrapJoined(errors.Join(a, b)); len(got) != 2 {
		t.Errorf("unwrapJoined(join) = %v", got)
	}
	if got := unwrapJoined(a); len(got) != 1 || got[0] != a {
		t.Errorf("unwrapJoined(a) = %v", got)
	}
}
