// Package display renders per-database run status for the CLI, with
// colors when the terminal supports them.
package display

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// Service writes user-facing status lines. A quiet service suppresses
// everything except errors, for cron-driven runs.
type Service struct {
	out   io.Writer
	quiet bool

	success *color.Color
	warning *color.Color
	failure *color.Color
	info    *color.Color
}

// NewService creates a display service writing to stdout. Color output
// follows the terminal: disabled when stdout is not a TTY, when
// NO_COLOR is set, or when the terminal profile reports no color
// support.
func NewService(quiet bool) *Service {
	s := &Service{
		out:     os.Stdout,
		quiet:   quiet,
		success: color.New(color.FgGreen),
		warning: color.New(color.FgYellow),
		failure: color.New(color.FgRed, color.Bold),
		info:    color.New(color.FgCyan),
	}
	if !colorSupported() {
		for _, c := range []*color.Color{s.success, s.warning, s.failure, s.info} {
			c.DisableColor()
		}
	}
	return s
}

// NewServiceWithWriter is the test constructor; colors are disabled.
func NewServiceWithWriter(w io.Writer, quiet bool) *Service {
	s := NewService(quiet)
	s.out = w
	for _, c := range []*color.Color{s.success, s.warning, s.failure, s.info} {
		c.DisableColor()
	}
	return s
}

func colorSupported() bool {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return false
	}
	return termenv.ColorProfile() != termenv.Ascii
}

// Info prints a neutral status line.
func (s *Service) Info(format string, args ...interface{}) {
	if s.quiet {
		return
	}
	fmt.Fprintf(s.out, "%s %s\n", s.info.Sprint("•"), fmt.Sprintf(format, args...))
}

// Success prints a completed-step line.
func (s *Service) Success(format string, args ...interface{}) {
	if s.quiet {
		return
	}
	fmt.Fprintf(s.out, "%s %s\n", s.success.Sprint("✓"), fmt.Sprintf(format, args...))
}

// Warning prints a non-fatal problem line.
func (s *Service) Warning(format string, args ...interface{}) {
	if s.quiet {
		return
	}
	fmt.Fprintf(s.out, "%s %s\n", s.warning.Sprint("!"), fmt.Sprintf(format, args...))
}

// Error prints a failure line. Errors are shown even in quiet mode.
func (s *Service) Error(format string, args ...interface{}) {
	fmt.Fprintf(s.out, "%s %s\n", s.failure.Sprint("✗"), fmt.Sprintf(format, args...))
}
