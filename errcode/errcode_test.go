package errcode

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodesAreStableStrings(t *testing.T) {
	cases := map[string]Code{
		"timeout":                        Timeout,
		"conflicting_binding":            ConflictingBinding,
		"unsupported_alternate_function": UnsupportedAltFunc,
		"unsupported_config":             UnsupportedConfig,
		"out_of_range":                   OutOfRange,
		"out_of_window":                  OutOfWindow,
		"stale_timing":                   StaleTiming,
		"not_ready":                      NotReady,
		"mismatch":                       Mismatch,
	}
	for want, c := range cases {
		if c.Error() != want {
			t.Fatalf("code %q mismatch: got %q", want, c.Error())
		}
	}
}

func TestEMatchesCodeThroughWrapping(t *testing.T) {
	base := New(OutOfWindow, "read8", "offset 0x20000")
	wrapped := fmt.Errorf("probe line 3: %w", Wrap("window", base))

	if !errors.Is(wrapped, OutOfWindow) {
		t.Fatalf("errors.Is should match code through wrapping: %v", wrapped)
	}
	if errors.Is(wrapped, Timeout) {
		t.Fatalf("unexpected match on timeout")
	}
	if got := Of(Wrap("window", base)); got != OutOfWindow {
		t.Fatalf("Of(Wrap) = %q", got)
	}
}

func TestOf(t *testing.T) {
	if Of(nil) != OK {
		t.Fatal("Of(nil) should be ok")
	}
	if Of(Busy) != Busy {
		t.Fatal("Of(Code) should return the code")
	}
	if Of(errors.New("x")) != Error {
		t.Fatal("Of(foreign) should be error")
	}
	if Wrap("op", nil) != nil {
		t.Fatal("Wrap(nil) should be nil")
	}
}

func TestEErrorFormat(t *testing.T) {
	e := &E{C: NotReady, Op: "pinmux", Msg: "port D clock disabled"}
	if got, want := e.Error(), "pinmux: not_ready: port D clock disabled"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
