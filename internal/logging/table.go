package logging

import (
	"fmt"
	"math"
	"strings"

	"github.com/linuxmatters/replaygain/internal/gain"
)

// MetricRow represents a single row in a results table.
// Values are pre-formatted strings so gain and peak columns can use different precision.
type MetricRow struct {
	Label  string   // Row label, usually the file name
	Values []string // One value per column
	Note   string   // Optional status text (only shown if non-empty)
}

// MetricTable formats aligned columns of per-file measurements.
// Handles variable column widths, missing values, and an optional note column.
type MetricTable struct {
	Headers []string    // Column headers, e.g. ["Track Gain", "Track Peak"]
	Rows    []MetricRow // Data rows
}

// String renders the table with aligned columns.
// - Labels are left-aligned
// - Values are right-aligned within their column
// - Note column only shown if any row has one
func (t *MetricTable) String() string {
	if len(t.Rows) == 0 {
		return ""
	}

	hasNote := false
	for _, row := range t.Rows {
		if row.Note != "" {
			hasNote = true
			break
		}
	}

	labelWidth := len("File")
	for _, row := range t.Rows {
		labelWidth = max(labelWidth, len(row.Label))
	}

	valueWidths := make([]int, len(t.Headers))
	for i, header := range t.Headers {
		valueWidths[i] = len(header)
	}
	for _, row := range t.Rows {
		for i, val := range row.Values {
			if i < len(valueWidths) {
				valueWidths[i] = max(valueWidths[i], len(val))
			}
		}
	}

	var sb, header strings.Builder

	header.WriteString(fmt.Sprintf("%-*s  ", labelWidth, "File"))
	for i, h := range t.Headers {
		header.WriteString(fmt.Sprintf("%*s  ", valueWidths[i], h))
	}
	if hasNote {
		header.WriteString("Note")
	}
	sb.WriteString(strings.TrimRight(header.String(), " "))
	sb.WriteString("\n")

	for _, row := range t.Rows {
		var line strings.Builder
		line.WriteString(fmt.Sprintf("%-*s  ", labelWidth, row.Label))

		for i := range t.Headers {
			val := MissingValue
			if i < len(row.Values) && row.Values[i] != "" {
				val = row.Values[i]
			}
			line.WriteString(fmt.Sprintf("%*s  ", valueWidths[i], val))
		}

		if hasNote {
			line.WriteString(row.Note)
		}

		sb.WriteString(strings.TrimRight(line.String(), " "))
		sb.WriteString("\n")
	}

	return sb.String()
}

// MissingValue is the placeholder for unavailable measurements
const MissingValue = "-"

// formatGain formats a gain adjustment with an explicit sign, e.g. "+2.51".
// The analyzer's not-enough-samples sentinel, NaN and Inf render as MissingValue.
func formatGain(value float64) string {
	if math.IsNaN(value) || math.IsInf(value, 0) || value == gain.NotEnoughSamples {
		return MissingValue
	}
	return fmt.Sprintf("%+.2f", value)
}

// formatPeak formats a linear peak (1.0 = full scale) to six decimals.
func formatPeak(value float64) string {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return MissingValue
	}
	return fmt.Sprintf("%.6f", value)
}

// peakDBFS converts a linear peak for display alongside the raw value.
// Silence (0) and missing values render as MissingValue.
func peakDBFS(value float64) string {
	if math.IsNaN(value) || value <= 0 {
		return MissingValue
	}
	return fmt.Sprintf("%.1f", 20*math.Log10(value))
}

// NewMetricTable creates a new MetricTable with the standard ReplayGain headers.
func NewMetricTable() *MetricTable {
	return &MetricTable{
		Headers: []string{"Track Gain", "Track Peak", "dBFS", "Album Gain", "Album Peak"},
		Rows:    make([]MetricRow, 0),
	}
}

// AddRow adds a row to the table with pre-formatted values.
func (t *MetricTable) AddRow(label string, values []string, note string) {
	t.Rows = append(t.Rows, MetricRow{
		Label:  label,
		Values: values,
		Note:   note,
	})
}

// AddGainRow adds a row of numeric values, formatting them automatically.
// Pass math.NaN() for missing values - they will display as "-".
func (t *MetricTable) AddGainRow(label string, trackGain, trackPeak, albumGain, albumPeak float64, note string) {
	t.AddRow(label, []string{
		formatGain(trackGain),
		formatPeak(trackPeak),
		peakDBFS(trackPeak),
		formatGain(albumGain),
		formatPeak(albumPeak),
	}, note)
}
