package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
)

// Stage outcome labels understood by Display.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
)

// Display prints one line per stage. On a TTY a spinner runs while the
// stage is in flight.
type Display struct {
	out     io.Writer
	caps    TerminalCapabilities
	symbols Symbols

	mu      sync.Mutex
	spinner *spinner.Spinner
}

// NewDisplay creates a display writing to out.
func NewDisplay(out io.Writer, caps TerminalCapabilities) *Display {
	return &Display{out: out, caps: caps, symbols: SelectSymbols(caps)}
}

// StageStarted prints "[Stage n/total] Name..." and starts the spinner.
func (d *Display) StageStarted(index, total int, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	header := fmt.Sprintf("[Stage %d/%d]", index, total)
	label := humanize(name) + "..."
	if !d.caps.IsTTY {
		fmt.Fprintf(d.out, "%s %s\n", header, label)
		return
	}

	s := spinner.New(spinner.CharSets[d.symbols.SpinnerSet], 100*time.Millisecond, spinner.WithWriter(d.out))
	s.Suffix = " " + d.paint(color.FgCyan, header) + " " + label
	s.Start()
	d.spinner = s
}

// StageFinished stops the spinner and prints the outcome.
func (d *Display) StageFinished(index, total int, name, outcome string, elapsed time.Duration, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.spinner != nil {
		d.spinner.Stop()
		d.spinner = nil
	}

	header := fmt.Sprintf("[Stage %d/%d]", index, total)
	switch outcome {
	case OutcomeCompleted:
		fmt.Fprintf(d.out, "%s %s %s (%s)\n", d.paint(color.FgGreen, d.symbols.Checkmark), header, humanize(name), elapsed.Round(time.Millisecond))
	case OutcomeSkipped:
		fmt.Fprintf(d.out, "%s %s %s skipped\n", d.paint(color.FgYellow, d.symbols.Skipped), header, humanize(name))
	default:
		msg := ""
		if err != nil {
			msg = ": " + err.Error()
		}
		fmt.Fprintf(d.out, "%s %s %s failed%s\n", d.paint(color.FgRed, d.symbols.Failure), header, humanize(name), msg)
	}
}

func (d *Display) paint(attr color.Attribute, s string) string {
	if !d.caps.SupportsColor {
		return s
	}
	return color.New(attr, color.Bold).Sprint(s)
}

// humanize turns "code_generation" into "Code generation".
func humanize(name string) string {
	s := strings.ReplaceAll(name, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
