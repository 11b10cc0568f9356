package ui

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

// Formatter applies semantic formatting to text.
type Formatter struct {
	color  *color.Color
	prefix string
	suffix string
}

// Sprint formats the arguments and returns the resulting string.
func (f Formatter) Sprint(a ...interface{}) string {
	text := fmt.Sprint(a...)
	if noColor() {
		return f.prefix + text + f.suffix
	}
	return f.color.Sprint(text)
}

// Sprintf formats according to a format specifier and returns the resulting string.
func (f Formatter) Sprintf(format string, a ...interface{}) string {
	text := fmt.Sprintf(format, a...)
	if noColor() {
		return f.prefix + text + f.suffix
	}
	return f.color.Sprint(text)
}

// EnsureNewline ensures the string ends with a newline character.
func EnsureNewline(s string) string {
	if len(s) == 0 || s[len(s)-1] != '\n' {
		return s + "\n"
	}
	return s
}

// noColor returns true if color output should be disabled.
func noColor() bool {
	// https://no-color.org/
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return true
	}
	return color.NoColor
}

var (
	// Code formats runnable commands. Yellow, `backticks` without color.
	Code = Formatter{color.New(color.FgYellow), "`", "`"}

	// Path formats file or directory paths.
	Path = Formatter{color.New(color.FgYellow), "", ""}

	// Flag formats CLI flags like --config.
	Flag = Formatter{color.New(color.FgYellow), "", ""}

	Success = Formatter{color.New(color.FgGreen), "", ""}
	Error   = Formatter{color.New(color.FgRed), "", ""}
	Warning = Formatter{color.New(color.FgYellow), "", ""}
	Info    = Formatter{color.New(color.FgCyan), "", ""}

	// Highlight formats user values: identifiers, nominee addresses.
	// Cyan, 'single quotes' without color.
	Highlight = Formatter{color.New(color.FgCyan), "'", "'"}

	// Muted formats secondary text. Gray, (parentheses) without color.
	Muted = Formatter{color.New(color.FgHiBlack), "(", ")"}
)

var statusFormatters = map[string]Formatter{
	"SAFE":             {color.New(color.FgGreen, color.Bold), "[", "]"},
	"NO_DATA":          {color.New(color.FgHiBlack), "[", "]"},
	"EXECUTED":         {color.New(color.FgMagenta, color.Bold), "[", "]"},
	"ALREADY_EXECUTED": {color.New(color.FgMagenta), "[", "]"},
	"ERROR":            {color.New(color.FgRed, color.Bold), "[", "]"},
}

// Status formats a switch state name. Unknown states are rendered muted.
func Status(status string) string {
	f, ok := statusFormatters[status]
	if !ok {
		return Muted.Sprint(status)
	}
	return f.Sprint(status)
}
