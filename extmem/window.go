// Package extmem issues volatile transactions through the address window of
// an enabled FMC bank. Each call is exactly one bus access (or the fixed pair
// of accesses for the split helpers); nothing is cached or merged.
package extmem

import (
	"io"
	"strconv"

	"fmcboot-go/errcode"
	"fmcboot-go/hw"
)

// Width is an access size in bytes.
type Width uint8

const (
	W8  Width = 1
	W16 Width = 2
	W32 Width = 4
)

func (w Width) valid() bool { return w == W8 || w == W16 || w == W32 }

// Window is the live address range of one bank. It is only handed out by the
// bank controller after a successful commit and stops accepting accesses
// once the bank is disabled.
type Window struct {
	bus    hw.Bus
	base   uintptr
	span   uint32
	closed bool
}

// NewWindow maps span bytes at base on bus.
func NewWindow(bus hw.Bus, base uintptr, span uint32) *Window {
	return &Window{bus: bus, base: base, span: span}
}

func (w *Window) Base() uintptr { return w.base }
func (w *Window) Span() uint32  { return w.span }
func (w *Window) Live() bool    { return !w.closed }

// Close marks the window dead. Later accesses fail with errcode.NotReady.
func (w *Window) Close() { w.closed = true }

func (w *Window) check(op string, off uint32, n Width) error {
	if w.closed {
		return errcode.New(errcode.NotReady, op, "window closed")
	}
	if !n.valid() {
		return errcode.New(errcode.InvalidParams, op, "width "+strconv.Itoa(int(n)))
	}
	if uint64(off)+uint64(n) > uint64(w.span) {
		return errcode.New(errcode.OutOfWindow, op,
			"offset 0x"+strconv.FormatUint(uint64(off), 16)+"+"+strconv.Itoa(int(n))+" beyond span 0x"+strconv.FormatUint(uint64(w.span), 16))
	}
	return nil
}

// Read loads width bytes at off.
func (w *Window) Read(width Width, off uint32) (uint32, error) {
	if err := w.check("extmem.read", off, width); err != nil {
		return 0, err
	}
	a := w.base + uintptr(off)
	switch width {
	case W8:
		return uint32(w.bus.Load8(a)), nil
	case W16:
		return uint32(w.bus.Load16(a)), nil
	default:
		return w.bus.Load32(a), nil
	}
}

// Write stores the low width bytes of v at off.
func (w *Window) Write(width Width, off uint32, v uint32) error {
	if err := w.check("extmem.write", off, width); err != nil {
		return err
	}
	a := w.base + uintptr(off)
	switch width {
	case W8:
		w.bus.Store8(a, uint8(v))
	case W16:
		w.bus.Store16(a, uint16(v))
	default:
		w.bus.Store32(a, v)
	}
	return nil
}

func (w *Window) Read8(off uint32) (uint8, error) {
	v, err := w.Read(W8, off)
	return uint8(v), err
}

func (w *Window) Write8(off uint32, v uint8) error { return w.Write(W8, off, uint32(v)) }

func (w *Window) Read16(off uint32) (uint16, error) {
	v, err := w.Read(W16, off)
	return uint16(v), err
}

func (w *Window) Write16(off uint32, v uint16) error { return w.Write(W16, off, uint32(v)) }

func (w *Window) Read32(off uint32) (uint32, error) { return w.Read(W32, off) }

func (w *Window) Write32(off uint32, v uint32) error { return w.Write(W32, off, v) }

// SplitStride is the distance between the low and high byte of a split
// 16-bit transfer. The board's byte lanes put the high byte two bytes up,
// not one.
const SplitStride = 2

func (w *Window) checkSplit(op string, off uint32) error {
	if w.closed {
		return errcode.New(errcode.NotReady, op, "window closed")
	}
	if uint64(off)+SplitStride+1 > uint64(w.span) {
		return errcode.New(errcode.OutOfWindow, op, "high byte beyond span")
	}
	return nil
}

// WriteSplit16 stores v as two byte transactions: low byte at off, high byte
// at off+SplitStride.
func (w *Window) WriteSplit16(off uint32, v uint16) error {
	if err := w.checkSplit("extmem.write_split16", off); err != nil {
		return err
	}
	if err := w.Write8(off, uint8(v)); err != nil {
		return err
	}
	return w.Write8(off+SplitStride, uint8(v>>8))
}

// ReadSplit16 is the inverse of WriteSplit16.
func (w *Window) ReadSplit16(off uint32) (uint16, error) {
	if err := w.checkSplit("extmem.read_split16", off); err != nil {
		return 0, err
	}
	lo, err := w.Read8(off)
	if err != nil {
		return 0, err
	}
	hi, err := w.Read8(off + SplitStride)
	if err != nil {
		return 0, err
	}
	return uint16(hi)<<8 | uint16(lo), nil
}

// ReadAt implements io.ReaderAt with byte transactions.
func (w *Window) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(w.span) {
		return 0, errcode.New(errcode.OutOfWindow, "extmem.read_at", "offset "+strconv.FormatInt(off, 10))
	}
	n := len(p)
	if rest := int64(w.span) - off; int64(n) > rest {
		n = int(rest)
	}
	for i := 0; i < n; i++ {
		v, err := w.Read8(uint32(off) + uint32(i))
		if err != nil {
			return i, err
		}
		p[i] = v
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt implements io.WriterAt with byte transactions. Nothing is written
// if p does not fit.
func (w *Window) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > int64(w.span) {
		return 0, errcode.New(errcode.OutOfWindow, "extmem.write_at",
			strconv.Itoa(len(p))+" bytes at "+strconv.FormatInt(off, 10))
	}
	for i, b := range p {
		if err := w.Write8(uint32(off)+uint32(i), b); err != nil {
			return i, err
		}
	}
	return len(p), nil
}

// Fill writes n copies of v starting at off.
func (w *Window) Fill(off, n uint32, v uint8) error {
	if uint64(off)+uint64(n) > uint64(w.span) {
		return errcode.New(errcode.OutOfWindow, "extmem.fill", "range beyond span")
	}
	for i := uint32(0); i < n; i++ {
		if err := w.Write8(off+i, v); err != nil {
			return err
		}
	}
	return nil
}
