package main

import (
	"sync"
	"time"

	"github.com/linuxmatters/replaygain/internal/analysis"
	"github.com/linuxmatters/replaygain/internal/cli"
	"github.com/linuxmatters/replaygain/internal/logging"
)

// results folds worker events into report rows and summary counts
type results struct {
	mu      sync.Mutex
	entries []logging.ReportEntry
	byPath  map[string]int
	summary cli.Summary
}

func newResults(items []analysis.Item) *results {
	r := &results{
		entries: make([]logging.ReportEntry, len(items)),
		byPath:  make(map[string]int, len(items)),
	}
	for i, it := range items {
		r.entries[i] = logging.NewReportEntry(it.Path, it.Album, it.Channels, it.SampleRate)
		r.byPath[it.Path] = i
	}
	return r
}

func (r *results) observe(e analysis.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch e.Kind {
	case analysis.EventTrackAnalyzed:
		if entry := r.entry(e.Item.Path); entry != nil {
			entry.TrackGain, entry.TrackPeak = e.Gain, e.Peak
			entry.Status = ""
		}
		r.summary.Analysed++

	case analysis.EventTrackInsufficient:
		if entry := r.entry(e.Item.Path); entry != nil {
			entry.Status = "too short"
		}
		r.summary.TooShort++

	case analysis.EventTrackSkipped:
		if entry := r.entry(e.Item.Path); entry != nil {
			entry.Status = "skipped"
		}
		r.summary.Skipped++

	case analysis.EventAlbumAnalyzed:
		r.forAlbum(e.Key, func(entry *logging.ReportEntry) {
			entry.AlbumGain, entry.AlbumPeak = e.Gain, e.Peak
		})
		r.summary.Albums++

	case analysis.EventAlbumSkipped:
		r.forAlbum(e.Key, func(entry *logging.ReportEntry) {
			entry.Status = "unsupported sample rate"
		})
		r.summary.AlbumSkipped++
		r.summary.Skipped += e.Items
	}
}

func (r *results) entry(path string) *logging.ReportEntry {
	i, ok := r.byPath[path]
	if !ok {
		return nil
	}
	return &r.entries[i]
}

func (r *results) forAlbum(key analysis.AlbumKey, fn func(*logging.ReportEntry)) {
	for i := range r.entries {
		e := &r.entries[i]
		if e.Album == key.Album && e.Channels == key.Channels && e.SampleRate == key.SampleRate {
			fn(e)
		}
	}
}

func (r *results) Summary() cli.Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summary
}

func (r *results) reportData(start, end time.Time, dryRun bool) logging.ReportData {
	r.mu.Lock()
	defer r.mu.Unlock()
	return logging.ReportData{
		StartTime: start,
		EndTime:   end,
		DryRun:    dryRun,
		Entries:   append([]logging.ReportEntry(nil), r.entries...),
	}
}
