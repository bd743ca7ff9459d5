package console

import (
	"fmt"
	"io"
	"os"
)

var (
	writer    io.Writer = os.Stdout
	errWriter io.Writer = os.Stderr
)

// Trace enables Debugf output.
var Trace bool

// SetOutput redirects standard and error output, tests capture it this way.
func SetOutput(w, errw io.Writer) {
	writer = w
	errWriter = errw
}

func line(w io.Writer, tag, msg string) {
	_, _ = fmt.Fprintf(w, "%s %s\n", tag, msg)
}

func Error(msg string) {
	line(errWriter, Red("ERROR:"), msg)
}

func Errorf(msg string, args ...interface{}) {
	Error(fmt.Sprintf(msg, args...))
}

func Warn(msg string) {
	line(errWriter, Yellow("WARN:"), msg)
}

func Warnf(msg string, args ...interface{}) {
	Warn(fmt.Sprintf(msg, args...))
}

func Info(msg string) {
	line(writer, White("..."), msg)
}

func Infof(msg string, args ...interface{}) {
	Info(fmt.Sprintf(msg, args...))
}

func Debugf(msg string, args ...interface{}) {
	if Trace {
		line(writer, White("[DEBUG]"), fmt.Sprintf(msg, args...))
	}
}

// PInfof prints a line prefixed with a picto.
func PInfof(picto, msg string, args ...interface{}) {
	line(writer, picto, fmt.Sprintf(msg, args...))
}

func Print(msg string) {
	_, _ = fmt.Fprintln(writer, msg)
}

func Printf(msg string, args ...interface{}) {
	_, _ = fmt.Fprintf(writer, msg, args...)
}
