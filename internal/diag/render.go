package diag

import (
	"fmt"
	"io"
)

const (
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiReset  = "\x1b[0m"
)

// Render writes every diagnostic on s to w, one after another, colorized
// by category when s.Colorize is set, followed by a summary line noting
// the session id and whether the stack overflowed.
func (s *Stack) Render(w io.Writer) error {
	entries := s.Entries()
	for _, d := range entries {
		text := d.Error()
		if s.Colorize {
			switch d.Category {
			case Error:
				text = ansiRed + text + ansiReset
			case Warning:
				text = ansiYellow + text + ansiReset
			}
		}
		if _, err := fmt.Fprintln(w, text); err != nil {
			return err
		}
	}
	suffix := ""
	if s.Overflowed() {
		suffix = " (stack overflowed: oldest entries were dropped)"
	}
	_, err := fmt.Fprintf(w, "session %s: %d diagnostic(s)%s\n", s.Session, len(entries), suffix)
	return err
}
