package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	primaryColor = lipgloss.Color("#A40000")
	accentColor  = lipgloss.Color("#FFA500")
	mutedColor   = lipgloss.Color("#888888")
	textColor    = lipgloss.Color("#FFFFFF")
	goodColor    = lipgloss.Color("#00AA00")
)

// Styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	WarnStyle = lipgloss.NewStyle().
			Foreground(accentColor)

	KeyStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	ValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor)

	GoodStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(goodColor)
)

// Title is the program banner
const Title = "ReplayGain 🔊"

// PrintVersion prints version information
func PrintVersion(version string) {
	fmt.Println(TitleStyle.Render(Title))
	fmt.Printf("%s %s\n", KeyStyle.Render("Version:"), ValueStyle.Render(version))
	fmt.Println()
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", ErrorStyle.Render("Error:"), message)
}

// PrintWarning prints a non-fatal problem
func PrintWarning(message string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", WarnStyle.Render("Warning:"), message)
}

// Summary counts the outcome of a run
type Summary struct {
	Analysed     int
	Skipped      int
	TooShort     int
	Albums       int
	AlbumSkipped int
}

// PrintSummary writes the end-of-run counts to w.
func PrintSummary(w io.Writer, s Summary) {
	row := func(key string, n int, style lipgloss.Style) {
		fmt.Fprintf(w, "  %s %s\n", KeyStyle.Render(fmt.Sprintf("%-16s", key)), style.Render(fmt.Sprint(n)))
	}

	fmt.Fprintln(w)
	row("Tracks analysed:", s.Analysed, GoodStyle)
	if s.TooShort > 0 {
		row("Too short:", s.TooShort, WarnStyle)
	}
	if s.Skipped > 0 {
		row("Skipped:", s.Skipped, ErrorStyle)
	}
	row("Albums:", s.Albums, ValueStyle)
	if s.AlbumSkipped > 0 {
		row("Albums skipped:", s.AlbumSkipped, ErrorStyle)
	}
	fmt.Fprintln(w)
}
