// Package console prints operator-facing status lines. Commands report
// progress and results here; logrus is reserved for diagnostics.
package console

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

var (
	out io.Writer = os.Stdout

	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	blue   = color.New(color.FgBlue)
)

// SetOutput redirects console output, used by tests.
func SetOutput(w io.Writer) {
	out = w
}

func Successf(format string, args ...interface{}) {
	green.Fprintf(out, format+"\n", args...)
}

func Warnf(format string, args ...interface{}) {
	yellow.Fprintf(out, format+"\n", args...)
}

func Errorf(format string, args ...interface{}) {
	red.Fprintf(out, format+"\n", args...)
}

func Infof(format string, args ...interface{}) {
	blue.Fprintf(out, format+"\n", args...)
}

// Labelf prints a bold green label followed by a plain value, matching the
// banner style of the fixtures commands.
func Labelf(label string, format string, args ...interface{}) {
	color.New(color.FgGreen, color.Bold).Fprint(out, label)
	fmt.Fprintf(out, format+"\n", args...)
}
