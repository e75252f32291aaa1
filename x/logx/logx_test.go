package logx

import (
	"bytes"
	"testing"
)

func TestWriterLoggerAppendsNewline(t *testing.T) {
	var b bytes.Buffer
	l := New(&b)
	l.Printf("clock: sysclk=%d", 72000000)
	l.Printf("done\n")
	if got, want := b.String(), "clock: sysclk=72000000\ndone\n"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestOrNil(t *testing.T) {
	if Or(nil) != Nop {
		t.Fatal("Or(nil) should be Nop")
	}
	l := New(&bytes.Buffer{})
	if Or(l) != l {
		t.Fatal("Or should pass through non-nil")
	}
}
