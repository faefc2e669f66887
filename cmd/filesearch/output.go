package main

import (
	"fmt"
	"io"
	"os"
	"sync"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
)

// diag receives human-facing messages; command results go to the command's
// output writer so they can be piped.
var (
	diag   io.Writer = os.Stderr
	diagMu sync.Mutex
)

func diagln(line string) {
	diagMu.Lock()
	fmt.Fprintln(diag, line)
	diagMu.Unlock()
}

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func printSuccess(format string, args ...any) {
	diagln(colorize(colorGreen, "✓ "+fmt.Sprintf(format, args...)))
}

func printError(format string, args ...any) {
	diagln(colorize(colorRed, "✗ "+fmt.Sprintf(format, args...)))
}

func printWarning(format string, args ...any) {
	diagln(colorize(colorYellow, "⚠ "+fmt.Sprintf(format, args...)))
}

func printStep(format string, args ...any) {
	diagln(colorize(colorCyan, "→ "+fmt.Sprintf(format, args...)))
}

// printStatus writes an aligned "label: value" line to w.
func printStatus(w io.Writer, label string, format string, args ...any) {
	l := colorize(colorBold, fmt.Sprintf("%-14s", label+":"))
	fmt.Fprintf(w, "  %s %s\n", l, fmt.Sprintf(format, args...))
}
