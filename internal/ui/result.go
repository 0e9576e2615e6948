package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ResultType selects the box style
type ResultType int

const (
	ResultSuccess ResultType = iota
	ResultFailure
	ResultWarning
)

// Result is a bordered summary box.
type Result struct {
	Type  ResultType
	Title string
	Lines []string // pre-rendered body lines
	Error error
	Hints []string // shown under failures and warnings
	Width int
}

// NewScanResult summarizes a finished scan. An empty scan is a warning
// with hints, not a failure.
func NewScanResult(entries []string) *Result {
	if len(entries) == 0 {
		return &Result{
			Type:  ResultWarning,
			Title: "No printers found",
			Hints: []string{
				"Check the printer is powered on and joined to this network",
				"Multicast (mDNS) may be blocked; try --vendor any or --subnet",
				"Raise the window with --window if the printer is slow to answer",
			},
			Width: GetTerminalWidth(),
		}
	}

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, EntryMarker+" "+RenderEntry(e))
	}
	title := fmt.Sprintf("%d printer(s) found", len(entries))
	return &Result{Type: ResultSuccess, Title: title, Lines: lines, Width: GetTerminalWidth()}
}

// NewFailureResult creates a failure result box
func NewFailureResult(title string, err error, hints []string) *Result {
	return &Result{
		Type:  ResultFailure,
		Title: title,
		Error: err,
		Hints: hints,
		Width: GetTerminalWidth(),
	}
}

// SetWidth sets the terminal width for responsive rendering
func (r *Result) SetWidth(width int) *Result {
	r.Width = width
	return r
}

// AddDetail appends a "key: value" line.
func (r *Result) AddDetail(key, value string) *Result {
	r.Lines = append(r.Lines, ResultKeyStyle.Render(key+":")+" "+ResultValueStyle.Render(value))
	return r
}

// Render returns the styled result box as a string
func (r *Result) Render() string {
	width := r.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	var title string
	var border lipgloss.Color
	switch r.Type {
	case ResultFailure:
		title = ErrorTitleStyle.Render(fmt.Sprintf("%s  FAILED  ─  %s", FailureMarker, r.Title))
		border = ErrorColor
	case ResultWarning:
		title = WarningTitleStyle.Render(fmt.Sprintf("%s  %s", WarningMarker, r.Title))
		border = WarningColor
	default:
		title = SuccessTitleStyle.Render(fmt.Sprintf("%s  %s", SuccessMarker, r.Title))
		border = SuccessColor
	}

	lines := []string{"", title, ""}
	if r.Error != nil {
		lines = append(lines, ErrorMessageStyle.Render("Error: "+r.Error.Error()), "")
	}
	if len(r.Lines) > 0 {
		lines = append(lines, r.Lines...)
		lines = append(lines, "")
	}
	for _, h := range r.Hints {
		lines = append(lines, HintStyle.Render("  "+EntryMarker+" "+h))
	}
	if len(r.Hints) > 0 {
		lines = append(lines, "")
	}

	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(border).
		Width(width-2).
		Padding(0, 2).
		Render(strings.Join(lines, "\n"))
}

// String implements fmt.Stringer
func (r *Result) String() string {
	return r.Render()
}
