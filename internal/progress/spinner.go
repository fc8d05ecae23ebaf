package progress

import (
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
)

// Spinner shows an activity indicator while a step runs. On a terminal
// without TTY support it prints nothing until Stop reports the result.
type Spinner struct {
	out     io.Writer
	caps    TerminalCapabilities
	symbols ProgressSymbols
	message string
	s       *spinner.Spinner
}

// NewSpinner returns a spinner writing to out.
func NewSpinner(out io.Writer, caps TerminalCapabilities, message string) *Spinner {
	sp := &Spinner{
		out:     out,
		caps:    caps,
		symbols: SelectSymbols(caps),
		message: message,
	}
	if caps.IsTTY {
		sp.s = spinner.New(spinner.CharSets[sp.symbols.SpinnerSet], 100*time.Millisecond, spinner.WithWriter(out))
		sp.s.Suffix = " " + message
	}
	return sp
}

// Start begins animating.
func (sp *Spinner) Start() {
	if sp.s != nil {
		sp.s.Start()
	}
}

// Stop ends the animation and prints the outcome when the terminal is
// interactive. Non-interactive output stays silent on success.
func (sp *Spinner) Stop(err error) {
	if sp.s != nil {
		sp.s.Stop()
	}
	switch {
	case err != nil:
		fmt.Fprintf(sp.out, "%s %s\n", sp.symbols.Failure, sp.message)
	case sp.caps.IsTTY:
		fmt.Fprintf(sp.out, "%s %s\n", sp.symbols.Checkmark, sp.message)
	}
}
