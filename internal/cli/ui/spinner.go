package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner animates a message while a command works. One writer per terminal;
// Stop is idempotent and waits for the animation goroutine to clear the line.
type Spinner struct {
	w       io.Writer
	message string
	noColor bool
	done    chan struct{}
	stopped chan struct{}
	stop    sync.Once
}

// NewSpinner creates a spinner. Call Start to animate and Stop to clear it.
func NewSpinner(w io.Writer, message string, noColor bool) *Spinner {
	return &Spinner{
		w:       w,
		message: message,
		noColor: noColor,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start begins the animation.
func (s *Spinner) Start() {
	go func() {
		defer close(s.stopped)
		style := color.New(color.FgCyan)
		if s.noColor {
			style.DisableColor()
		}
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		frame := 0
		for {
			select {
			case <-s.done:
				fmt.Fprint(s.w, "\r\033[K")
				return
			case <-ticker.C:
				style.Fprintf(s.w, "\r%s %s", spinnerFrames[frame], s.message)
				frame = (frame + 1) % len(spinnerFrames)
			}
		}
	}()
}

// Stop halts the animation and clears the spinner line.
func (s *Spinner) Stop() {
	s.stop.Do(func() {
		close(s.done)
		<-s.stopped
	})
}

// WithSpinner runs fn behind a spinner and prints a one-line outcome.
func WithSpinner(w io.Writer, message string, noColor bool, fn func() error) error {
	s := NewSpinner(w, message, noColor)
	s.Start()
	err := fn()
	s.Stop()

	if err != nil {
		red := color.New(color.FgRed, color.Bold)
		if noColor {
			red.DisableColor()
		}
		red.Fprintf(w, "✗ %s\n", message)
		return err
	}
	green := color.New(color.FgGreen, color.Bold)
	if noColor {
		green.DisableColor()
	}
	green.Fprintf(w, "✓ %s\n", message)
	return nil
}
