package tui

import (
	"io"
	"time"

	"github.com/briandowns/spinner"
)

// Spinner shows progress on a terminal while the model is working.
// When disabled, Start and Stop do nothing.
type Spinner struct {
	s       *spinner.Spinner
	enabled bool
}

// NewSpinner returns a spinner writing to w with the given suffix text.
// Pass enabled=false when w is not a terminal.
func NewSpinner(w io.Writer, text string, enabled bool) *Spinner {
	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + text
	return &Spinner{s: s, enabled: enabled}
}

// Start begins animating.
func (s *Spinner) Start() {
	if s.enabled {
		s.s.Start()
	}
}

// Stop stops animating and clears the line.
func (s *Spinner) Stop() {
	if s.enabled {
		s.s.Stop()
	}
}

// SetText replaces the suffix text.
func (s *Spinner) SetText(text string) {
	s.s.Lock()
	s.s.Suffix = " " + text
	s.s.Unlock()
}

// Writer wraps w so that each write pauses a running spinner, keeping log
// lines off the animated line.
func (s *Spinner) Writer(w io.Writer) io.Writer {
	return &pausingWriter{sp: s, w: w}
}

type pausingWriter struct {
	sp *Spinner
	w  io.Writer
}

func (p *pausingWriter) Write(b []byte) (int, error) {
	if !p.sp.enabled || !p.sp.s.Active() {
		return p.w.Write(b)
	}
	p.sp.s.Stop()
	defer p.sp.s.Start()
	return p.w.Write(b)
}
