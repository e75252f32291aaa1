// Package logx is the small logging surface shared by the bring-up packages.
// Firmware builds print through the runtime console; host tools hand in any
// io.Writer.
package logx

import (
	"fmt"
	"io"
)

// Logger is satisfied by *log.Logger and by the helpers below.
type Logger interface {
	Printf(format string, args ...any)
}

// New returns a Logger that writes one line per call to w.
func New(w io.Writer) Logger { return writerLogger{w: w} }

type writerLogger struct{ w io.Writer }

func (l writerLogger) Printf(format string, args ...any) {
	s := fmt.Sprintf(format, args...)
	if len(s) == 0 || s[len(s)-1] != '\n' {
		s += "\n"
	}
	_, _ = io.WriteString(l.w, s)
}

// Console prints through the builtin println (semihosting/UART on MCU).
var Console Logger = consoleLogger{}

type consoleLogger struct{}

func (consoleLogger) Printf(format string, args ...any) {
	println(fmt.Sprintf(format, args...))
}

// Nop discards everything.
var Nop Logger = nopLogger{}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// Or returns l, or Nop when l is nil.
func Or(l Logger) Logger {
	if l == nil {
		return Nop
	}
	return l
}
