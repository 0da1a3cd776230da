// Package ui provides the Bubbletea terminal user interface for replaygain
package ui

import (
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/linuxmatters/replaygain/internal/analysis"
)

// PendingCounter reports how many submitted tracks are still unfinished
type PendingCounter interface {
	PendingCount() int64
}

var errNoReadableCopy = errors.New("no readable copy")

// tickInterval is how often the pending count is polled
const tickInterval = 100 * time.Millisecond

// Spinner frames for the active file
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// FileStatus represents the analysis state of a single file
type FileStatus int

const (
	StatusQueued FileStatus = iota
	StatusAnalyzing
	StatusComplete
	StatusTooShort
	StatusError
)

// FileProgress tracks progress for a single audio file
type FileProgress struct {
	Path   string
	Key    analysis.AlbumKey
	Status FileStatus

	StartTime   time.Time
	ElapsedTime time.Duration

	// Results
	TrackGain float64
	TrackPeak float64
	AlbumGain float64
	AlbumPeak float64
	HasAlbum  bool

	Error error
}

// Model is the Bubbletea model for the analysis UI
type Model struct {
	// File list, in submission order
	Files        []FileProgress
	byPath       map[string]int
	CurrentIndex int

	TotalFiles     int
	CompletedFiles int
	ShortFiles     int
	FailedFiles    int
	Albums         int

	// Pending is the worker's count as of the last tick
	Pending int64
	counter PendingCounter

	// Global state
	StartTime    time.Time
	Done         bool
	Cancelled    bool
	spinnerIndex int

	// Terminal dimensions
	Width  int
	Height int
}

// NewModel creates a new UI model for the submitted items
func NewModel(items []analysis.Item, counter PendingCounter) Model {
	files := make([]FileProgress, len(items))
	byPath := make(map[string]int, len(items))
	for i, it := range items {
		files[i] = FileProgress{
			Path:   it.Path,
			Key:    it.Key(),
			Status: StatusQueued,
		}
		byPath[it.Path] = i
	}

	return Model{
		Files:        files,
		byPath:       byPath,
		CurrentIndex: -1,
		TotalFiles:   len(items),
		Pending:      int64(len(items)),
		counter:      counter,
		StartTime:    time.Now(),
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// tickCmd returns a command that sends a tick message every tickInterval
func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.Cancelled = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case tickMsg:
		if m.Done {
			return m, nil
		}
		if m.counter != nil {
			m.Pending = m.counter.PendingCount()
		}
		m.spinnerIndex = (m.spinnerIndex + 1) % len(spinnerFrames)
		if m.CurrentIndex >= 0 {
			m.Files[m.CurrentIndex].ElapsedTime = time.Since(m.Files[m.CurrentIndex].StartTime)
		}
		return m, tickCmd()

	case EventMsg:
		m = m.applyEvent(msg.Event)
		if msg.Kind == analysis.EventIdle {
			return m.finish()
		}

	case AllCompleteMsg:
		return m.finish()
	}

	return m, nil
}

func (m Model) finish() (tea.Model, tea.Cmd) {
	if m.counter != nil {
		m.Pending = m.counter.PendingCount()
	}
	m.CurrentIndex = -1
	m.Done = true
	return m, tea.Quit
}

// applyEvent folds one worker event into the file list
func (m Model) applyEvent(e analysis.Event) Model {
	switch e.Kind {
	case analysis.EventTrackStarted:
		if i, ok := m.byPath[e.Item.Path]; ok {
			m.CurrentIndex = i
			m.Files[i].Status = StatusAnalyzing
			m.Files[i].StartTime = time.Now()
			m.Files[i].Error = nil
		}

	case analysis.EventTrackAnalyzed:
		if f := m.file(e.Item.Path); f != nil {
			f.Status = StatusComplete
			f.TrackGain, f.TrackPeak = e.Gain, e.Peak
			f.ElapsedTime = time.Since(f.StartTime)
			m.CompletedFiles++
		}

	case analysis.EventTrackInsufficient:
		if f := m.file(e.Item.Path); f != nil {
			f.Status = StatusTooShort
			m.ShortFiles++
		}

	case analysis.EventTrackSkipped:
		if f := m.file(e.Item.Path); f != nil {
			f.Status = StatusError
			f.Error = e.Err
			if f.Error == nil {
				f.Error = errNoReadableCopy
			}
			m.FailedFiles++
		}

	case analysis.EventAlbumAnalyzed:
		m.Albums++
		for i := range m.Files {
			if m.Files[i].Key == e.Key {
				m.Files[i].AlbumGain, m.Files[i].AlbumPeak = e.Gain, e.Peak
				m.Files[i].HasAlbum = true
			}
		}

	case analysis.EventAlbumSkipped:
		for i := range m.Files {
			if m.Files[i].Key == e.Key && m.Files[i].Status == StatusQueued {
				m.Files[i].Status = StatusError
				m.Files[i].Error = e.Err
				m.FailedFiles++
			}
		}
	}
	return m
}

func (m Model) file(path string) *FileProgress {
	i, ok := m.byPath[path]
	if !ok {
		return nil
	}
	return &m.Files[i]
}

// View renders the UI
func (m Model) View() string {
	if m.Width == 0 && !m.Done {
		return fmt.Sprintf("Initializing...\nFiles: %d\n", len(m.Files))
	}

	if m.Done {
		return renderCompletionSummary(m)
	}

	return renderProgressView(m)
}
