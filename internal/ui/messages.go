package ui

import (
	"time"

	"github.com/linuxmatters/replaygain/internal/analysis"
)

// EventMsg carries a worker event into the program
type EventMsg struct {
	analysis.Event
}

// AllCompleteMsg indicates the run has finished and the UI should exit
type AllCompleteMsg struct{}

// tickMsg drives the spinner and the pending-count poll
type tickMsg time.Time
