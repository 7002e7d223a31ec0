package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// IO handles command output. Warnings are collected and printed to stderr
// both before the first stdout line and at the end, so they survive
// truncation by head/tail. Any warning makes the exit code 1.
type IO struct {
	in       io.Reader
	out      io.Writer
	errOut   io.Writer
	errLabel string
	warnTag  string
	warnings []string
	started  bool
}

// NewIO creates a new IO instance. Labels are colored only when errOut is a
// terminal that supports it.
func NewIO(in io.Reader, out, errOut io.Writer) *IO {
	r := lipgloss.NewRenderer(errOut)

	return &IO{
		in:       in,
		out:      out,
		errOut:   errOut,
		errLabel: r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true).Render("error:"),
		warnTag:  r.NewStyle().Foreground(lipgloss.Color("11")).Render("warning:"),
	}
}

// stderrOnly returns an IO whose regular output also goes to stderr, for
// help printed alongside an error.
func (o *IO) stderrOnly() *IO {
	return NewIO(nil, o.errOut, o.errOut)
}

// Warn records an actionable warning.
//
// Parameters:
//   - issue: what went wrong
//   - action: what the operator should do about it
func (o *IO) Warn(issue string, action string) {
	o.warnings = append(o.warnings, fmt.Sprintf("%s: %s", issue, action))
}

// Println writes to stdout. On first call, any collected warnings
// are printed to stderr first.
func (o *IO) Println(a ...any) {
	o.flushWarningsStart()
	_, _ = fmt.Fprintln(o.out, a...)
}

// Printf writes formatted output to stdout. On first call, any collected
// warnings are printed to stderr first.
func (o *IO) Printf(format string, a ...any) {
	o.flushWarningsStart()
	_, _ = fmt.Fprintf(o.out, format, a...)
}

// ErrPrintln writes to stderr.
func (o *IO) ErrPrintln(a ...any) {
	_, _ = fmt.Fprintln(o.errOut, a...)
}

// PrintError writes err to stderr behind the error label.
func (o *IO) PrintError(err error) {
	_, _ = fmt.Fprintln(o.errOut, o.errLabel, err)
}

// Finish prints warnings to stderr and returns exit code.
// Returns 1 if any warnings, 0 otherwise.
func (o *IO) Finish() int {
	// No stdout output happened yet: print at the "start" position too.
	o.flushWarningsStart()

	for _, w := range o.warnings {
		_, _ = fmt.Fprintln(o.errOut, o.warnTag, w)
	}

	if len(o.warnings) > 0 {
		return 1
	}

	return 0
}

func (o *IO) flushWarningsStart() {
	if !o.started && len(o.warnings) > 0 {
		for _, w := range o.warnings {
			_, _ = fmt.Fprintln(o.errOut, o.warnTag, w)
		}

		o.started = true
	}
}
