package errors

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Styles used when color output is enabled.
var (
	errorLabel  = color.New(color.FgRed, color.Bold)
	errorMsg    = color.New(color.FgRed)
	fixLabel    = color.New(color.FgGreen, color.Bold)
	usageLabel  = color.New(color.FgCyan, color.Bold)
	usageText   = color.New(color.FgCyan)
	bullet      = color.New(color.FgGreen)
	categoryFmt = color.New(color.FgYellow)
)

// FormatError formats a CLIError for display in the terminal.
func FormatError(err *CLIError) string {
	if err == nil {
		return ""
	}
	return formatError(err, true)
}

// FormatErrorPlain formats a CLIError without colors.
func FormatErrorPlain(err *CLIError) string {
	if err == nil {
		return ""
	}
	return formatError(err, false)
}

func formatError(err *CLIError, useColors bool) string {
	paint := func(c *color.Color, s string) string {
		if !useColors {
			return s
		}
		return c.Sprint(s)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s [%s]: %s\n",
		paint(errorLabel, "Error"),
		paint(categoryFmt, err.Category.String()),
		paint(errorMsg, err.Message))

	if err.Usage != "" {
		fmt.Fprintf(&sb, "\n%s%s\n", paint(usageLabel, "Usage: "), paint(usageText, err.Usage))
	}

	if len(err.Remediation) > 0 {
		fmt.Fprintf(&sb, "\n%s\n", paint(fixLabel, "To fix this:"))
		for _, step := range err.Remediation {
			fmt.Fprintf(&sb, "  %s %s\n", paint(bullet, "•"), step)
		}
	}

	return sb.String()
}

// FprintError prints a formatted CLIError to the given writer, with colors
// unless color output is disabled.
func FprintError(w io.Writer, err *CLIError) {
	if err == nil {
		return
	}
	fmt.Fprint(w, formatError(err, !color.NoColor))
}
