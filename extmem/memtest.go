package extmem

import (
	"strconv"

	"fmcboot-go/errcode"
)

// TestError reports the first location that did not hold what was written.
type TestError struct {
	Phase  string
	Offset uint32
	Wrote  uint32
	Read   uint32
}

func (e *TestError) Error() string {
	return "extmem.test: " + e.Phase + ": offset 0x" + strconv.FormatUint(uint64(e.Offset), 16) +
		" wrote 0x" + strconv.FormatUint(uint64(e.Wrote), 16) +
		" read 0x" + strconv.FormatUint(uint64(e.Read), 16)
}

func (e *TestError) Code() errcode.Code { return errcode.Mismatch }

func (e *TestError) Is(target error) bool {
	c, ok := target.(errcode.Code)
	return ok && c == errcode.Mismatch
}

// Test runs a destructive check over the first length bytes of w (the whole
// window when length is zero): walking ones on the data bus, a power-of-two
// address sweep, then a pattern and its inverse over every byte.
func Test(w *Window, length uint32) error {
	if length == 0 {
		length = w.span
	}
	if length > w.span {
		return errcode.New(errcode.OutOfWindow, "extmem.test", "length beyond span")
	}
	if err := testData(w, length); err != nil {
		return err
	}
	if err := testAddress(w, length); err != nil {
		return err
	}
	return testMarch(w, length)
}

func testData(w *Window, length uint32) error {
	if length < 2 {
		for bit := 0; bit < 8; bit++ {
			if err := roundTrip(w, "data", W8, 0, 1<<bit); err != nil {
				return err
			}
		}
		return nil
	}
	for bit := 0; bit < 16; bit++ {
		if err := roundTrip(w, "data", W16, 0, 1<<bit); err != nil {
			return err
		}
	}
	return nil
}

func roundTrip(w *Window, phase string, width Width, off, v uint32) error {
	if err := w.Write(width, off, v); err != nil {
		return err
	}
	got, err := w.Read(width, off)
	if err != nil {
		return err
	}
	if got != v {
		return &TestError{Phase: phase, Offset: off, Wrote: v, Read: got}
	}
	return nil
}

const (
	patternA = 0xAA
	patternB = 0x55
)

// testAddress catches stuck and shorted address lines. Offset 0 and every
// power-of-two offset are written with distinct values; each is then
// rewritten in turn and the others checked for aliasing.
func testAddress(w *Window, length uint32) error {
	for off := uint32(1); off < length; off <<= 1 {
		if err := w.Write8(off, patternA); err != nil {
			return err
		}
	}
	if err := w.Write8(0, patternB); err != nil {
		return err
	}
	for off := uint32(1); off < length; off <<= 1 {
		got, err := w.Read8(off)
		if err != nil {
			return err
		}
		if got != patternA {
			return &TestError{Phase: "address", Offset: off, Wrote: patternA, Read: uint32(got)}
		}
	}
	for hit := uint32(1); hit < length; hit <<= 1 {
		if err := w.Write8(hit, patternB); err != nil {
			return err
		}
		if got, err := w.Read8(0); err != nil {
			return err
		} else if got != patternB {
			return &TestError{Phase: "address", Offset: 0, Wrote: patternB, Read: uint32(got)}
		}
		for off := uint32(1); off < length; off <<= 1 {
			if off == hit {
				continue
			}
			got, err := w.Read8(off)
			if err != nil {
				return err
			}
			if got != patternA {
				return &TestError{Phase: "address", Offset: off, Wrote: patternA, Read: uint32(got)}
			}
		}
		if err := w.Write8(hit, patternA); err != nil {
			return err
		}
	}
	return nil
}

// march value: folds the offset so neighbouring bytes and pages differ.
func marchByte(off uint32) uint8 {
	return uint8(off) ^ uint8(off>>8) ^ uint8(off>>16) ^ 0x5A
}

func testMarch(w *Window, length uint32) error {
	for _, inv := range []uint8{0, 0xFF} {
		for off := uint32(0); off < length; off++ {
			if err := w.Write8(off, marchByte(off)^inv); err != nil {
				return err
			}
		}
		for off := uint32(0); off < length; off++ {
			want := marchByte(off) ^ inv
			got, err := w.Read8(off)
			if err != nil {
				return err
			}
			if got != want {
				return &TestError{Phase: "march", Offset: off, Wrote: uint32(want), Read: uint32(got)}
			}
		}
	}
	return nil
}
