package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ScanSource is the running scan the view observes. Snapshot returns the
// entries found so far and Result the final entries once Done is closed.
// *discovery.Scan implements it.
type ScanSource interface {
	Snapshot() []string
	Done() <-chan struct{}
	Result() []string
	Cancel() bool
}

const refreshInterval = 100 * time.Millisecond

type refreshMsg time.Time
type scanDoneMsg struct{ entries []string }

// scanKeyMap defines key bindings while scanning
type scanKeyMap struct {
	Stop key.Binding
	Quit key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k scanKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Stop, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k scanKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Stop, k.Quit}}
}

// ScanModel shows a discovery scan until it finishes.
type ScanModel struct {
	source  ScanSource
	window  time.Duration
	started time.Time

	entries  []string
	done     bool
	quitting bool
	now      time.Time

	Width   int
	Spinner spinner.Model
	Bar     progress.Model
	Help    help.Model
	Keys    scanKeyMap
}

// NewScanModel creates a view for source, which runs for window.
func NewScanModel(source ScanSource, window time.Duration) ScanModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 40

	now := time.Now()
	return ScanModel{
		source:  source,
		window:  window,
		started: now,
		now:     now,
		Width:   GetTerminalWidth(),
		Spinner: s,
		Bar:     bar,
		Help:    help.New(),
		Keys: scanKeyMap{
			Stop: key.NewBinding(
				key.WithKeys("c", "enter"),
				key.WithHelp("c", "stop early"),
			),
			Quit: key.NewBinding(
				key.WithKeys("q", "esc", "ctrl+c"),
				key.WithHelp("q", "quit"),
			),
		},
	}
}

// Init starts the spinner, the refresh ticker and the completion watch.
func (m ScanModel) Init() tea.Cmd {
	return tea.Batch(m.Spinner.Tick, refresh(), waitDone(m.source))
}

func refresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

func waitDone(src ScanSource) tea.Cmd {
	return func() tea.Msg {
		<-src.Done()
		return scanDoneMsg{entries: src.Result()}
	}
}

// Update handles messages and updates the model
func (m ScanModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.Keys.Quit):
			m.quitting = true
			m.source.Cancel()
			return m, tea.Quit
		case key.Matches(msg, m.Keys.Stop):
			// The scan answers through scanDoneMsg.
			m.source.Cancel()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.Width = clampWidth(msg.Width, nil)
		barWidth := m.Width - 20
		if barWidth > 50 {
			barWidth = 50
		}
		m.Bar.Width = barWidth
		return m, nil

	case refreshMsg:
		if m.done {
			return m, nil
		}
		m.now = time.Time(msg)
		m.entries = m.source.Snapshot()
		return m, refresh()

	case scanDoneMsg:
		m.done = true
		m.entries = msg.entries
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// Entries returns the entries shown last; final once Finished is true.
func (m ScanModel) Entries() []string {
	return m.entries
}

// Finished reports whether the scan completed (as opposed to the user
// quitting).
func (m ScanModel) Finished() bool {
	return m.done
}

// Percent is the elapsed share of the scan window.
func (m ScanModel) Percent() float64 {
	if m.done {
		return 1
	}
	if m.window <= 0 {
		return 0
	}
	p := float64(m.now.Sub(m.started)) / float64(m.window)
	if p > 1 {
		return 1
	}
	if p < 0 {
		return 0
	}
	return p
}

// View renders the scan screen
func (m ScanModel) View() string {
	if m.done || m.quitting {
		// The caller prints the summary box after the program exits.
		return ""
	}

	var b strings.Builder
	b.WriteString(LabelStyle.Render(fmt.Sprintf("%s Scanning for printers...", m.Spinner.View())))
	b.WriteString("\n\n")

	remaining := m.window - m.now.Sub(m.started)
	if remaining < 0 {
		remaining = 0
	}
	b.WriteString(lipgloss.NewStyle().PaddingLeft(2).Render(
		fmt.Sprintf("%s  %s left", m.Bar.ViewAs(m.Percent()), remaining.Round(100*time.Millisecond)),
	))
	b.WriteString("\n\n")

	if len(m.entries) == 0 {
		b.WriteString(HintStyle.Render("  No printers yet"))
		b.WriteString("\n")
	}
	for _, e := range m.entries {
		b.WriteString("  " + EntryMarker + " " + RenderEntry(e) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().PaddingLeft(2).Render(m.Help.View(m.Keys)))
	b.WriteString("\n")
	return b.String()
}

// RunScanView runs the view until the scan ends or the user quits. It
// returns the final entries and whether the scan completed.
func RunScanView(source ScanSource, window time.Duration, opts ...tea.ProgramOption) ([]string, bool, error) {
	p := tea.NewProgram(NewScanModel(source, window), opts...)
	final, err := p.Run()
	if err != nil {
		return nil, false, fmt.Errorf("scan view failed: %w", err)
	}
	m := final.(ScanModel)
	return m.Entries(), m.Finished(), nil
}
