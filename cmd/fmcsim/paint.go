package main

import (
	"bytes"
	"io"
	"strings"

	"fmcboot-go/x/logx"
)

const (
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBold   = "\x1b[1m"
	ansiReset  = "\x1b[0m"
)

func paint(colour, s string) string { return colour + s + ansiReset }

// lineColour picks a colour for one line of bring-up or probe output.
func lineColour(line string) string {
	l := strings.ToLower(line)
	switch {
	case strings.HasPrefix(l, "halt:"), strings.Contains(l, "fail"), strings.Contains(l, "error"), strings.Contains(l, "timeout"):
		return ansiRed
	case strings.HasSuffix(l, " ok"), strings.Contains(l, "live"), strings.HasPrefix(l, "test ok"):
		return ansiGreen
	case strings.HasPrefix(l, "clock:"), strings.HasPrefix(l, "pinmux:"), strings.HasPrefix(l, "fmc:"), strings.HasPrefix(l, "bringup:"):
		return ansiYellow
	}
	return ""
}

// lineWriter colours each complete line written through it.
type lineWriter struct {
	w   io.Writer
	buf []byte
}

func (lw *lineWriter) Write(p []byte) (int, error) {
	lw.buf = append(lw.buf, p...)
	for {
		i := bytes.IndexByte(lw.buf, '\n')
		if i < 0 {
			return len(p), nil
		}
		line := string(lw.buf[:i])
		lw.buf = lw.buf[i+1:]
		if c := lineColour(line); c != "" {
			line = paint(c, line)
		}
		if _, err := io.WriteString(lw.w, line+"\n"); err != nil {
			return len(p), err
		}
	}
}

// Flush writes any unterminated tail.
func (lw *lineWriter) Flush() error {
	if len(lw.buf) == 0 {
		return nil
	}
	_, err := lw.w.Write(lw.buf)
	lw.buf = nil
	return err
}

// logger returns a line-coloured logx.Logger on w.
func logger(w io.Writer) logx.Logger { return logx.New(&lineWriter{w: w}) }
