package progress

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectSymbols(t *testing.T) {
	t.Parallel()

	unicode := SelectSymbols(TerminalCapabilities{SupportsUnicode: true})
	assert.Equal(t, "✓", unicode.Checkmark)
	assert.Equal(t, 14, unicode.SpinnerSet)

	ascii := SelectSymbols(TerminalCapabilities{})
	assert.Equal(t, "[FAIL]", ascii.Failure)
	assert.Equal(t, 9, ascii.SpinnerSet)
}

func TestSpinner_NonInteractive(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	sp := NewSpinner(&buf, TerminalCapabilities{}, "Loading")
	sp.Start()
	sp.Stop(nil)
	assert.Empty(t, buf.String())

	sp = NewSpinner(&buf, TerminalCapabilities{}, "Loading")
	sp.Start()
	sp.Stop(errors.New("boom"))
	assert.Equal(t, "[FAIL] Loading\n", buf.String())
}
