package logging

import (
	"cmp"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// ReportFile is the default results report name
const ReportFile = "replaygain-report.txt"

// ReportEntry is one file's outcome. Gains and peaks that were not
// measured are math.NaN().
type ReportEntry struct {
	Path       string
	Album      string
	Channels   int
	SampleRate int
	Status     string // empty when the track was analysed normally

	TrackGain float64
	TrackPeak float64
	AlbumGain float64
	AlbumPeak float64
}

// NewReportEntry returns an entry with every measurement missing.
func NewReportEntry(path, album string, channels, sampleRate int) ReportEntry {
	return ReportEntry{
		Path:       path,
		Album:      album,
		Channels:   channels,
		SampleRate: sampleRate,
		TrackGain:  math.NaN(),
		TrackPeak:  math.NaN(),
		AlbumGain:  math.NaN(),
		AlbumPeak:  math.NaN(),
	}
}

// ReportData contains all the information needed to write a results report
type ReportData struct {
	StartTime time.Time
	EndTime   time.Time
	DryRun    bool
	Entries   []ReportEntry
}

// writeSection writes a section header with title and dashed underline.
// The underline length matches the title length.
func writeSection(w io.Writer, title string) {
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("-", len(title)))
}

// WriteReport writes the results report to path.
func WriteReport(path string, data ReportData) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}

	RenderReport(f, data)

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}
	return nil
}

// RenderReport writes the report body to w: a header, one table per
// album in sorted order, and a status summary.
func RenderReport(w io.Writer, data ReportData) {
	fmt.Fprintln(w, "ReplayGain Analysis Report")
	fmt.Fprintln(w, "==========================")
	fmt.Fprintf(w, "Finished: %s\n", data.EndTime.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "Elapsed: %s\n", formatDuration(data.EndTime.Sub(data.StartTime)))
	if data.DryRun {
		fmt.Fprintln(w, "Dry run: no tags were written")
	}
	fmt.Fprintln(w, "")

	entries := slices.Clone(data.Entries)
	slices.SortFunc(entries, func(a, b ReportEntry) int {
		return cmp.Or(
			cmp.Compare(a.Album, b.Album),
			cmp.Compare(a.Channels, b.Channels),
			cmp.Compare(a.SampleRate, b.SampleRate),
			cmp.Compare(a.Path, b.Path),
		)
	})

	statuses := make(map[string]int)
	for start := 0; start < len(entries); {
		end := start + 1
		for end < len(entries) && sameGroup(entries[start], entries[end]) {
			end++
		}
		writeAlbumTable(w, entries[start:end])
		for _, e := range entries[start:end] {
			statuses[cmp.Or(e.Status, "analysed")]++
		}
		start = end
	}

	writeSection(w, "Summary")
	fmt.Fprintf(w, "Files: %d\n", len(entries))
	keys := make([]string, 0, len(statuses))
	for k := range statuses {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %d\n", k, statuses[k])
	}
}

func sameGroup(a, b ReportEntry) bool {
	return a.Album == b.Album && a.Channels == b.Channels && a.SampleRate == b.SampleRate
}

func writeAlbumTable(w io.Writer, group []ReportEntry) {
	first := group[0]
	title := first.Album
	if title == "" {
		title = "(no album)"
	}
	writeSection(w, fmt.Sprintf("%s [%s, %d Hz]", title, channelName(first.Channels), first.SampleRate))

	table := NewMetricTable()
	for _, e := range group {
		table.AddGainRow(filepath.Base(e.Path), e.TrackGain, e.TrackPeak, e.AlbumGain, e.AlbumPeak, e.Status)
	}
	fmt.Fprint(w, table.String())
	fmt.Fprintln(w, "")
}

// formatDuration renders d as "1m23s" or "4.2s".
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return d.Round(time.Second).String()
}

func channelName(channels int) string {
	switch channels {
	case 1:
		return "mono"
	case 2:
		return "stereo"
	default:
		return fmt.Sprintf("%d channels", channels)
	}
}
