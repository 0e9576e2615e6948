package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Color palette
var (
	PrimaryColor = lipgloss.Color("#7D56F4") // Purple - headers, borders
	SuccessColor = lipgloss.Color("#43BF6D") // Green - found printers
	ErrorColor   = lipgloss.Color("#FF5555") // Red - errors
	WarningColor = lipgloss.Color("#FFA500") // Orange - empty results, busy
	MutedColor   = lipgloss.Color("#626262") // Gray - secondary info
	TextColor    = lipgloss.Color("#FFFFFF") // White - main content
)

// Layout constants
const (
	MinTerminalWidth = 60  // Minimum supported terminal width
	MaxContentWidth  = 100 // Maximum content width before capping
)

var (
	HeaderTitleStyle = lipgloss.NewStyle().
				Foreground(TextColor).
				Bold(true).
				PaddingLeft(2)

	HeaderCommandStyle = lipgloss.NewStyle().
				Foreground(MutedColor).
				PaddingLeft(2)

	HeaderParamKeyStyle = lipgloss.NewStyle().
				Foreground(MutedColor).
				PaddingLeft(2).
				Width(14)

	HeaderParamValueStyle = lipgloss.NewStyle().
				Foreground(TextColor)

	LabelStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			PaddingLeft(2)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor)

	// EntryAddressStyle renders the "TCP:<host>" part of an entry
	EntryAddressStyle = lipgloss.NewStyle().
				Foreground(SuccessColor)

	// EntryNameStyle renders the display name part of an entry
	EntryNameStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Bold(true)

	SuccessTitleStyle = lipgloss.NewStyle().
				Foreground(SuccessColor).
				Bold(true)

	WarningTitleStyle = lipgloss.NewStyle().
				Foreground(WarningColor).
				Bold(true)

	ErrorTitleStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	ErrorMessageStyle = lipgloss.NewStyle().
				Foreground(ErrorColor)

	ResultKeyStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Width(15)

	ResultValueStyle = lipgloss.NewStyle().
				Foreground(TextColor)

	HintStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Italic(true)
)

// Markers
const (
	SuccessMarker = "✓"
	FailureMarker = "✗"
	WarningMarker = "!"
	EntryMarker   = "•"
)

// IsTerminal reports whether stdout is an interactive terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// GetTerminalWidth returns the current terminal width, with fallback
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	return clampWidth(width, err)
}

func clampWidth(width int, err error) int {
	if err != nil || width < MinTerminalWidth {
		return MinTerminalWidth
	}
	if width > MaxContentWidth {
		return MaxContentWidth
	}
	return width
}

// RenderHorizontalDivider creates a horizontal line of the specified width
func RenderHorizontalDivider(width int) string {
	if width < 10 {
		width = 10
	}
	return lipgloss.NewStyle().
		Foreground(PrimaryColor).
		Render(strings.Repeat("─", width))
}

// RenderEntry styles a discovery entry "TCP:<host>:<name>".
func RenderEntry(entry string) string {
	addr, name := SplitEntry(entry)
	if name == "" {
		return EntryAddressStyle.Render(addr)
	}
	return EntryAddressStyle.Render(addr) + "  " + EntryNameStyle.Render(name)
}

// SplitEntry separates an entry into its address token and display name
// at the last colon, which keeps IPv6 hosts whole.
func SplitEntry(entry string) (addr, name string) {
	i := strings.LastIndex(entry, ":")
	if i <= 0 {
		return entry, ""
	}
	return entry[:i], entry[i+1:]
}
