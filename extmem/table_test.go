package extmem

import (
	"errors"
	"testing"

	"fmcboot-go/errcode"
)

func TestTableRowMajorLayout(t *testing.T) {
	bus := newMemBus(4096)
	w := NewWindow(bus, base, 4096)
	tb, err := NewTable(w, 0x40, 10, 50, W32)
	if err != nil {
		t.Fatal(err)
	}
	if tb.Size() != 2000 {
		t.Fatalf("size = %d", tb.Size())
	}
	if err := tb.Set(9, 49, 0xFFFD_FFFF); err != nil {
		t.Fatal(err)
	}
	// Last element: 0x40 + (9*50+49)*4.
	if got, _ := w.Read32(0x40 + 499*4); got != 0xFFFD_FFFF {
		t.Fatalf("raw = %#x", got)
	}
	loads := bus.loads
	got, err := tb.At(9, 49)
	if err != nil || got != 0xFFFD_FFFF {
		t.Fatalf("At = %#x, %v", got, err)
	}
	if bus.loads-loads != 1 {
		t.Fatalf("At took %d loads", bus.loads-loads)
	}
	if Signed(got, W32) != -131073 {
		t.Fatalf("signed = %d", Signed(got, W32))
	}
}

func TestTableBounds(t *testing.T) {
	bus := newMemBus(64)
	w := NewWindow(bus, base, 64)

	cases := []struct {
		name            string
		off, rows, cols uint32
		elem            Width
		code            errcode.Code
	}{
		{"beyond span", 8, 4, 4, W32, errcode.OutOfWindow},
		{"bad width", 0, 1, 1, 3, errcode.InvalidParams},
		{"empty", 0, 0, 4, W16, errcode.InvalidParams},
	}
	for _, c := range cases {
		if _, err := NewTable(w, c.off, c.rows, c.cols, c.elem); !errors.Is(err, c.code) {
			t.Fatalf("%s: got %v, want %s", c.name, err, c.code)
		}
	}

	tb, err := NewTable(w, 0, 2, 8, W16)
	if err != nil {
		t.Fatal(err)
	}
	stores := bus.stores
	for _, rc := range [][2]uint32{{2, 0}, {0, 8}, {5, 5}} {
		if err := tb.Set(rc[0], rc[1], 1); !errors.Is(err, errcode.OutOfRange) {
			t.Fatalf("Set%v: %v", rc, err)
		}
		if _, err := tb.At(rc[0], rc[1]); !errors.Is(err, errcode.OutOfRange) {
			t.Fatalf("At%v: %v", rc, err)
		}
	}
	if bus.stores != stores {
		t.Fatal("out-of-range index reached the bus")
	}
}
