package diag

import (
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// Diagnostic is a single typed, located error or warning, rendered in
// the teacher's format (type+message, location, source line with a
// caret, call stack) extended with the category spec.md section 7 adds.
type Diagnostic struct {
	Kind     Kind
	Category Category
	Message  string
	Location Location
	Source   string // the source line the location points at, if known
	Stack    []Frame

	cause error // set via WithCause for KindInternal, stack-traced by pkg/errors
}

// New constructs a diagnostic. cat should normally be Warning or Error;
// Normal is reserved for informational entries pushed by -v style
// tooling, not genuine fault conditions.
func New(kind Kind, cat Category, message string, loc Location) *Diagnostic {
	return &Diagnostic{Kind: kind, Category: cat, Message: message, Location: loc}
}

// Internal wraps cause as a KindInternal/Error diagnostic, attaching a
// stack trace via pkg/errors so a compiler-bug report shows exactly
// where in the optimizer the panic-turned-error originated, the same
// way the teacher's error type always carried a populated CallStack.
func Internal(cause error, loc Location) *Diagnostic {
	return &Diagnostic{
		Kind:     KindInternal,
		Category: Error,
		Message:  cause.Error(),
		Location: loc,
		cause:    pkgerrors.WithStack(cause),
	}
}

// WithSource attaches the literal source line for caret rendering.
func (d *Diagnostic) WithSource(src string) *Diagnostic {
	d.Source = src
	return d
}

// WithFrame appends one call-stack frame (innermost last).
func (d *Diagnostic) WithFrame(f Frame) *Diagnostic {
	d.Stack = append(d.Stack, f)
	return d
}

// Error implements the error interface. Kept deliberately close to the
// teacher's SentraError.Error() layout: type+message, "at file:line:col",
// the source line plus a caret under the offending column, then the call
// stack innermost-first.
func (d *Diagnostic) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s]: %s\n", d.Kind, d.Category, d.Message)

	if d.Location.File != "" {
		fmt.Fprintf(&b, "  at %s:%d:%d\n", d.Location.File, d.Location.Line, d.Location.Column)
		if d.Source != "" {
			fmt.Fprintf(&b, "\n  %d | %s\n", d.Location.Line, d.Source)
			gutter := fmt.Sprintf("%d | ", d.Location.Line)
			b.WriteString("  " + strings.Repeat(" ", len(gutter)))
			if d.Location.Column > 0 {
				b.WriteString(strings.Repeat(" ", d.Location.Column-1))
			}
			b.WriteString("^\n")
		}
	}

	if len(d.Stack) > 0 {
		b.WriteString("\ncall stack:\n")
		for i := len(d.Stack) - 1; i >= 0; i-- {
			f := d.Stack[i]
			if f.Function != "" {
				fmt.Fprintf(&b, "  at %s (%s:%d:%d)\n", f.Function, f.File, f.Line, f.Column)
			} else {
				fmt.Fprintf(&b, "  at %s:%d:%d\n", f.File, f.Line, f.Column)
			}
		}
	}

	if d.cause != nil {
		fmt.Fprintf(&b, "\ncause:\n%+v\n", d.cause)
	}

	return b.String()
}

// Unwrap exposes the wrapped cause, if any, for errors.Is/As.
func (d *Diagnostic) Unwrap() error {
	return d.cause
}
