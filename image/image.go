// Package image moves Intel HEX images in and out of the external memory
// window: pre-loaded parameter tables, captures of device contents, and
// read-back verification after a load.
package image

import (
	"io"
	"strconv"

	"github.com/marcinbor85/gohex"

	"fmcboot-go/errcode"
	"fmcboot-go/extmem"
)

// LineLength is the data bytes per record written by Dump.
const LineLength = 16

// segment is a HEX data segment relocated to a window offset.
type segment struct {
	off  uint32
	data []byte
}

func hexAddr(a uint32) string { return "0x" + strconv.FormatUint(uint64(a), 16) }

// place parses r and relocates every segment into w. Addresses at or above
// the window base are absolute; lower addresses are window offsets.
func place(w *extmem.Window, r io.Reader) ([]segment, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(r); err != nil {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "image.parse", Err: err}
	}
	base := uint64(w.Base())
	var segs []segment
	for _, s := range mem.GetDataSegments() {
		off := uint64(s.Address)
		if off >= base {
			off -= base
		}
		if off+uint64(len(s.Data)) > uint64(w.Span()) {
			return nil, errcode.New(errcode.OutOfWindow, "image",
				"segment "+hexAddr(s.Address)+"+"+strconv.Itoa(len(s.Data))+" outside window")
		}
		segs = append(segs, segment{off: uint32(off), data: s.Data})
	}
	return segs, nil
}

// Load writes the image in r into w and returns the number of bytes
// written. Every segment is checked against the window before the first
// write.
func Load(w *extmem.Window, r io.Reader) (int, error) {
	segs, err := place(w, r)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, s := range segs {
		m, err := w.WriteAt(s.data, int64(s.off))
		n += m
		if err != nil {
			return n, errcode.Wrap("image.load", err)
		}
	}
	return n, nil
}

// Verify reads back every segment of the image in r and fails with
// errcode.Mismatch at the first differing byte.
func Verify(w *extmem.Window, r io.Reader) error {
	segs, err := place(w, r)
	if err != nil {
		return err
	}
	for _, s := range segs {
		got := make([]byte, len(s.data))
		if _, err := w.ReadAt(got, int64(s.off)); err != nil {
			return errcode.Wrap("image.verify", err)
		}
		for i := range got {
			if got[i] != s.data[i] {
				a := uint32(w.Base()) + s.off + uint32(i)
				return errcode.New(errcode.Mismatch, "image.verify",
					hexAddr(a)+": got "+hexAddr(uint32(got[i]))+", want "+hexAddr(uint32(s.data[i])))
			}
		}
	}
	return nil
}

// Dump writes n bytes of w from off to out as Intel HEX at absolute
// addresses.
func Dump(w *extmem.Window, off, n uint32, out io.Writer) error {
	if uint64(off)+uint64(n) > uint64(w.Span()) {
		return errcode.New(errcode.OutOfWindow, "image.dump", "range beyond span")
	}
	buf := make([]byte, n)
	if _, err := w.ReadAt(buf, int64(off)); err != nil {
		return errcode.Wrap("image.dump", err)
	}
	mem := gohex.NewMemory()
	if err := mem.AddBinary(uint32(w.Base())+off, buf); err != nil {
		return &errcode.E{C: errcode.Error, Op: "image.dump", Err: err}
	}
	return mem.DumpIntelHex(out, LineLength)
}
