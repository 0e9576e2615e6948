package ui

import (
	"fmt"
	"io"
	"os"
)

// Printer writes "run once" output. Plain mode skips styling for pipes.
type Printer struct {
	out   io.Writer
	width int
	plain bool
}

// NewPrinter creates a Printer for w (os.Stdout when nil). Styling is
// disabled when w is not a terminal.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	plain := w != io.Writer(os.Stdout) || !IsTerminal()
	return &Printer{out: w, width: GetTerminalWidth(), plain: plain}
}

// Plain reports whether styling is disabled.
func (p *Printer) Plain() bool {
	return p.plain
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// PrintHeader prints a command header box. Plain printers skip it.
func (p *Printer) PrintHeader(title, command string, params map[string]string) {
	if p.plain {
		return
	}
	p.Println(NewHeader(title, command, params).SetWidth(p.width).Render())
}

// PrintScanResult prints entries, one per line when plain.
func (p *Printer) PrintScanResult(entries []string) {
	if p.plain {
		for _, e := range entries {
			p.Println(e)
		}
		return
	}
	p.Println(NewScanResult(entries).SetWidth(p.width).Render())
}

// PrintFailure prints a failure box, or "error: ..." when plain.
func (p *Printer) PrintFailure(title string, err error, hints []string) {
	if p.plain {
		p.Println(fmt.Sprintf("error: %s: %v", title, err))
		return
	}
	p.Println(NewFailureResult(title, err, hints).SetWidth(p.width).Render())
}
