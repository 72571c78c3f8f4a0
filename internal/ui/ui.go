package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tapedeck/internal/models"
	"github.com/desertthunder/tapedeck/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	DownloadView ViewState = iota
	ResultView
)

const (
	recentLines = 6
	maxBarWidth = 60
)

// Model represents the TUI application state.
type Model struct {
	playlistID   string
	view         ViewState
	progressChan <-chan tasks.ProgressUpdate
	cancel       context.CancelFunc
	width        int
	height       int
	bar          progress.Model
	spinner      spinner.Model
	failures     list.Model
	help         help.Model
	keys         keyMap
	status       string
	completed    int
	total        int
	recent       []string
	cancelling   bool
	closed       bool
	result       *tasks.RunResult
	err          error
}

// NewModel creates a TUI model that renders updates from progressChan.
//
// cancel is invoked when the user aborts the download.
func NewModel(playlistID string, progressChan <-chan tasks.ProgressUpdate, cancel context.CancelFunc) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.title.UnsetMarginBottom()

	return &Model{
		playlistID:   playlistID,
		view:         DownloadView,
		progressChan: progressChan,
		cancel:       cancel,
		bar:          progress.New(progress.WithDefaultGradient(), progress.WithWidth(maxBarWidth)),
		spinner:      s,
		help:         help.New(),
		keys:         newKeyMap(),
		status:       "Starting...",
	}
}

// Init starts the spinner and begins listening for progress updates.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForProgress())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(min(msg.Width-20, maxBarWidth), 10)
		if m.view == ResultView {
			m.failures.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case DownloadView:
			return m.handleDownloadKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case spinner.TickMsg:
		if m.view != DownloadView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgProgressUpdate:
		m.apply(msg.data.(tasks.ProgressUpdate))
		return m, m.waitForProgress()

	case MsgProgressClosed:
		m.closed = true
		return m, nil

	case MsgDownloadComplete:
		done := msg.data.(downloadComplete)
		m.result = done.result
		m.err = done.err
		m.view = ResultView

		var outcomes []models.Outcome
		if m.result != nil {
			outcomes = m.result.Outcomes
		}
		items := failureItems(outcomes)
		if len(items) == 0 {
			return m, tea.Quit
		}

		m.failures = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.failures.Title = fmt.Sprintf("%d failed tracks", len(items))
		m.failures.SetShowHelp(false)
		m.failures.SetSize(max(m.width-4, 20), max(m.height-8, 10))
		return m, nil
	}
	return m, nil
}

// apply folds one progress update into the model.
func (m *Model) apply(u tasks.ProgressUpdate) {
	m.status = u.Message

	switch u.Phase {
	case tasks.FetchPlaylist:
		if total, ok := u.Data.(int); ok {
			m.total = total
		}
	case tasks.TrackDone:
		m.completed = u.Step
		m.total = u.Total

		line := u.Message
		if o, ok := u.Data.(models.Outcome); ok {
			if o.OK() {
				line = styles.ok.Render(line)
			} else {
				line = styles.err.Render(line)
			}
		}
		m.recent = append(m.recent, line)
		if len(m.recent) > recentLines {
			m.recent = m.recent[len(m.recent)-recentLines:]
		}
	}
}

func (m *Model) handleDownloadKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.cancel) && !m.cancelling {
		m.cancelling = true
		m.status = "Cancelling, waiting for running tracks..."
		if m.cancel != nil {
			m.cancel()
		}
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.quit) {
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.failures, cmd = m.failures.Update(msg)
	return m, cmd
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		if m.progressChan == nil {
			return progressClosedMsg()
		}

		update, ok := <-m.progressChan
		if !ok {
			return progressClosedMsg()
		}
		return progressUpdateMsg(update)
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case DownloadView:
		return m.renderDownload()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) percent() float64 {
	if m.total == 0 {
		return 0
	}
	return float64(m.completed) / float64(m.total)
}

func (m *Model) renderDownload() string {
	var b strings.Builder

	b.WriteString(styles.title.Render(fmt.Sprintf("Downloading playlist %s", m.playlistID)))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s  %d/%d\n\n", m.bar.ViewAs(m.percent()), m.completed, m.total)

	status := m.status
	if m.cancelling {
		status = styles.warn.Render(status)
	}
	fmt.Fprintf(&b, "%s %s\n\n", m.spinner.View(), status)

	for _, line := range m.recent {
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.cancel}))
	return b.String()
}

func (m *Model) renderResult() string {
	if m.result == nil {
		msg := "Download failed"
		if m.err != nil {
			msg = fmt.Sprintf("Download failed: %v", m.err)
		}
		return styles.err.Render(msg+"\n\nPress q to quit") + "\n"
	}

	var b strings.Builder
	summary := fmt.Sprintf("Done: %d ok, %d failed", m.result.Succeeded, m.result.Failed)
	if m.result.Failed == 0 {
		b.WriteString(styles.ok.Render(summary))
	} else {
		b.WriteString(styles.warn.Render(summary))
	}
	if m.result.Cancelled {
		b.WriteString(styles.err.Render(" (cancelled)"))
	}
	fmt.Fprintf(&b, "\nOutput: %s\n\n", m.result.TargetDir)

	if m.result.Failed > 0 {
		b.WriteString(m.failures.View())
		b.WriteString("\n\n")
		b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.up, m.keys.down, m.keys.quit}))
	}
	return b.String()
}
