package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	goodIcon   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00AA00")).Render("✓")
	warnIcon   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500")).Render("!")
	errorIcon  = lipgloss.NewStyle().Foreground(lipgloss.Color("#A40000")).Render("✗")
	queuedIcon = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Render("○")
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

// renderProgressView renders the main view while the worker runs
func renderProgressView(m Model) string {
	var b strings.Builder

	b.WriteString(renderHeader(m))
	b.WriteString("\n\n")

	b.WriteString(renderFileQueue(m))
	b.WriteString("\n")

	b.WriteString(renderOverallProgress(m))

	return b.String()
}

// renderHeader renders the application header
func renderHeader(m Model) string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#A40000")).
		Render("ReplayGain 🔊 - Track and Album Loudness")

	subtitle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		Italic(true).
		Render(fmt.Sprintf("Analysing %d file(s)", m.TotalFiles))

	return title + "\n" + subtitle
}

// renderFileQueue renders the files that fit on screen, keeping the
// active one visible
func renderFileQueue(m Model) string {
	start, end := visibleRange(len(m.Files), m.CurrentIndex, m.Height-8)

	var b strings.Builder
	if start > 0 {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("   ... %d more above", start)))
		b.WriteString("\n")
	}
	for i := start; i < end; i++ {
		b.WriteString(renderFileEntry(m.Files[i], m.spinnerIndex))
		b.WriteString("\n")
	}
	if end < len(m.Files) {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("   ... %d more below", len(m.Files)-end)))
		b.WriteString("\n")
	}
	return b.String()
}

// visibleRange returns the window of rows to show around current
func visibleRange(total, current, rows int) (int, int) {
	if rows <= 0 || total <= rows {
		return 0, total
	}
	start := max(0, current-rows/2)
	end := min(total, start+rows)
	return end - rows, end
}

// renderFileEntry renders a single file line
func renderFileEntry(file FileProgress, spinnerIndex int) string {
	fileName := filepath.Base(file.Path)

	switch file.Status {
	case StatusComplete:
		summary := fmt.Sprintf("track %+.2f dB, peak %.6f", file.TrackGain, file.TrackPeak)
		if file.HasAlbum {
			summary += fmt.Sprintf(" | album %+.2f dB", file.AlbumGain)
		}
		return fmt.Sprintf(" %s %s  %s", goodIcon, fileName, mutedStyle.Render(summary))

	case StatusAnalyzing:
		spinner := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500")).Render(spinnerFrames[spinnerIndex])
		return fmt.Sprintf(" %s %s  %s", spinner, fileName, mutedStyle.Render(formatElapsed(file.ElapsedTime)))

	case StatusTooShort:
		return fmt.Sprintf(" %s %s  %s", warnIcon, fileName, mutedStyle.Render("too short to measure"))

	case StatusError:
		return fmt.Sprintf(" %s %s  Error: %v", errorIcon, fileName, file.Error)

	default:
		return fmt.Sprintf(" %s %s", queuedIcon, fileName)
	}
}

// renderProgressBar renders a progress bar
func renderProgressBar(progress float64, width int) string {
	progress = min(max(progress, 0), 1)
	filled := int(progress * float64(width))
	empty := width - filled

	filledStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#A40000"))
	emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))

	bar := filledStyle.Render(strings.Repeat("━", filled)) +
		emptyStyle.Render(strings.Repeat("━", empty))

	return fmt.Sprintf("%s %3d%%", bar, int(progress*100))
}

// renderOverallProgress renders the overall progress footer
func renderOverallProgress(m Model) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#888888")).
		Padding(0, 1).
		Width(60)

	finished := m.CompletedFiles + m.ShortFiles + m.FailedFiles
	progress := 0.0
	if m.TotalFiles > 0 {
		progress = float64(finished) / float64(m.TotalFiles)
	}

	var content strings.Builder
	content.WriteString(renderProgressBar(progress, 40))
	content.WriteString("\n")
	content.WriteString(fmt.Sprintf("%d of %d done | %d pending | %s",
		finished, m.TotalFiles, m.Pending, formatElapsed(time.Since(m.StartTime))))

	return box.Render(content.String())
}

// renderCompletionSummary renders the final completion summary
func renderCompletionSummary(m Model) string {
	var b strings.Builder

	headline := "✨ Analysis Complete!"
	if m.Cancelled {
		headline = "Analysis Cancelled"
	}
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00AA00")).
		Render(headline)
	b.WriteString(header)
	b.WriteString("\n\n")

	for _, file := range m.Files {
		if file.Status == StatusQueued {
			continue
		}
		b.WriteString(renderFileEntry(file, 0))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", 60))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%d analysed, %d too short, %d failed, %d album(s) in %s\n",
		m.CompletedFiles, m.ShortFiles, m.FailedFiles, m.Albums,
		formatElapsed(time.Since(m.StartTime))))

	return b.String()
}

// formatElapsed formats elapsed time as MM:SS or HH:MM:SS
func formatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
