// Package telemetry reports pipeline progress to stderr with an
// elapsed-time prefix, enriched with TTY-aware severity coloring and
// humanized counts.
package telemetry

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Logger reports elapsed-time-prefixed progress messages.
type Logger struct {
	start   time.Time
	verbose bool
	out     io.Writer
	warn    *color.Color
}

// New creates a Logger writing to stderr.
func New(verbose bool) *Logger {
	warn := color.New(color.FgYellow)
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		warn.DisableColor()
	}
	return &Logger{start: time.Now(), verbose: verbose, out: os.Stderr, warn: warn}
}

// Log prints a progress message with an elapsed-time prefix.
func (l *Logger) Log(format string, args ...any) {
	elapsed := time.Since(l.start)
	mins := int(elapsed.Minutes())
	secs := int(elapsed.Seconds()) % 60
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(l.out, "[%02d:%02d] %s\n", mins, secs, msg)
}

// Verbose prints only when verbose mode is enabled.
func (l *Logger) Verbose(format string, args ...any) {
	if l.verbose {
		l.Log(format, args...)
	}
}

// Warn prints a colorized warning, still elapsed-time-prefixed.
func (l *Logger) Warn(format string, args ...any) {
	elapsed := time.Since(l.start)
	mins := int(elapsed.Minutes())
	secs := int(elapsed.Seconds()) % 60
	msg := l.warn.Sprintf(format, args...)
	fmt.Fprintf(l.out, "[%02d:%02d] %s\n", mins, secs, msg)
}

// Count renders n with thousands grouping for human-scale progress lines
// (edge counts, path counts) instead of raw digit runs.
func Count(n int) string {
	return humanize.Comma(int64(n))
}
