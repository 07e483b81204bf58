package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/nor2/wasi-harness/runtime"
)

var (
	streamLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#87CEEB"))

	successStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#90EE90"))

	failureStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B"))
)

// report prints the outcome of one execution: nonempty captured streams
// first, then the verdict line. Styling only applies when w is a terminal.
func report(w io.Writer, res *runtime.Result) {
	styled := false
	if f, ok := w.(*os.File); ok {
		styled = term.IsTerminal(int(f.Fd()))
	}
	style := func(s lipgloss.Style, text string) string {
		if styled {
			return s.Render(text)
		}
		return text
	}

	if len(res.Stdout) > 0 {
		fmt.Fprintf(w, "%s %s\n", style(streamLabelStyle, "Std out:"), res.Stdout)
	}
	if len(res.Stderr) > 0 {
		fmt.Fprintf(w, "%s %s\n", style(streamLabelStyle, "Std err:"), res.Stderr)
	}

	if res.Success() {
		fmt.Fprintln(w, style(successStyle, "Success"))
		return
	}

	detail := "unknown trap"
	if res.Trap != nil {
		detail = res.Trap.Trace
	}
	fmt.Fprintln(w, style(failureStyle, "Runtime Error: "+detail))
}
