package diag

import (
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
)

// Capacity is the error stack's fixed size (spec.md section 7: "the
// reference bound is 32").
const Capacity = 32

// Stack is a bounded, category-typed diagnostic stack. spec.md models it
// as thread-local global state; this module renders that as an explicit
// value, one per compilation, passed into every operation that may fail
// (see DESIGN.md's "Open Question decisions" for why). Stack is safe for
// concurrent use so a single *Stack can still be shared across goroutines
// compiling independent functions of the same module; the pipeline
// itself applies passes to one function at a time on one goroutine.
type Stack struct {
	mu         sync.Mutex
	entries    []*Diagnostic
	overflowed bool

	// Session correlates every diagnostic emitted by one compilation run,
	// surfaced in rendered output so a bug report's diagnostics can be
	// matched back to the driver invocation that produced them.
	Session uuid.UUID

	// Colorize reports whether Render should emit ANSI severity
	// coloring; it defaults to whether stderr is a terminal, the same
	// test go-isatty's own README demonstrates.
	Colorize bool
}

// NewStack returns an empty stack with a fresh session id.
func NewStack() *Stack {
	return &Stack{
		Session:  uuid.New(),
		Colorize: isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()),
	}
}

// Push records d. If d is an Error immediately following a Warning at
// the top of the stack, it overrides that warning in place — spec.md
// section 7's "warnings can be overridden by subsequent errors on the
// same stack slot." Otherwise, if the stack is at Capacity, the oldest
// entry is dropped (preserving the entry below it, the "oldest-but-one")
// and the overflow flag is set, so a caller always sees the original
// context (second-oldest surviving entry) plus the most proximate cause
// (newest entry).
func (s *Stack) Push(d *Diagnostic) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n := len(s.entries); n > 0 && d.Category == Error && s.entries[n-1].Category == Warning {
		s.entries[n-1] = d
		return
	}

	if len(s.entries) >= Capacity {
		s.entries = append(s.entries[:0], s.entries[1:]...)
		s.overflowed = true
	}
	s.entries = append(s.entries, d)
}

// Overflowed reports whether any entry has ever been dropped to make
// room for a new one.
func (s *Stack) Overflowed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overflowed
}

// HasErrors reports whether any entry on the stack is Category Error,
// the condition the driver checks to decide whether to stop the current
// pass (spec.md section 7's propagation policy).
func (s *Stack) HasErrors() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.entries {
		if d.Category == Error {
			return true
		}
	}
	return false
}

// Entries returns a snapshot of the stack's diagnostics, oldest first.
func (s *Stack) Entries() []*Diagnostic {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Diagnostic, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len reports how many diagnostics are currently recorded.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
