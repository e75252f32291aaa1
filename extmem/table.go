package extmem

import (
	"strconv"

	"fmcboot-go/errcode"
)

// Table is a row-major matrix of fixed-width elements stored in a window,
// the layout parameter tables are pre-loaded in. Every element access is one
// bus transaction of the element width.
type Table struct {
	w          *Window
	off        uint32
	rows, cols uint32
	elem       Width
}

// NewTable places a rows×cols table of elem-sized elements at off. The whole
// table must lie inside the window.
func NewTable(w *Window, off, rows, cols uint32, elem Width) (*Table, error) {
	if !elem.valid() {
		return nil, errcode.New(errcode.InvalidParams, "extmem.table", "element width "+strconv.Itoa(int(elem)))
	}
	if rows == 0 || cols == 0 {
		return nil, errcode.New(errcode.InvalidParams, "extmem.table", "empty table")
	}
	size := uint64(rows) * uint64(cols) * uint64(elem)
	if uint64(off)+size > uint64(w.Span()) {
		return nil, errcode.New(errcode.OutOfWindow, "extmem.table",
			strconv.FormatUint(size, 10)+" bytes at 0x"+strconv.FormatUint(uint64(off), 16)+" beyond span 0x"+strconv.FormatUint(uint64(w.Span()), 16))
	}
	return &Table{w: w, off: off, rows: rows, cols: cols, elem: elem}, nil
}

func (t *Table) Rows() uint32   { return t.rows }
func (t *Table) Cols() uint32   { return t.cols }
func (t *Table) Elem() Width    { return t.elem }
func (t *Table) Offset() uint32 { return t.off }

// Size is the table's footprint in bytes.
func (t *Table) Size() uint32 { return t.rows * t.cols * uint32(t.elem) }

// Addr returns the window offset of element (row, col).
func (t *Table) Addr(row, col uint32) (uint32, error) {
	if row >= t.rows || col >= t.cols {
		return 0, errcode.New(errcode.OutOfRange, "extmem.table",
			"("+strconv.FormatUint(uint64(row), 10)+","+strconv.FormatUint(uint64(col), 10)+") outside "+
				strconv.FormatUint(uint64(t.rows), 10)+"x"+strconv.FormatUint(uint64(t.cols), 10))
	}
	return t.off + (row*t.cols+col)*uint32(t.elem), nil
}

// At reads element (row, col).
func (t *Table) At(row, col uint32) (uint32, error) {
	a, err := t.Addr(row, col)
	if err != nil {
		return 0, err
	}
	return t.w.Read(t.elem, a)
}

// Set writes the low element-width bytes of v to (row, col).
func (t *Table) Set(row, col, v uint32) error {
	a, err := t.Addr(row, col)
	if err != nil {
		return err
	}
	return t.w.Write(t.elem, a, v)
}

// Signed sign-extends a value read from an element of width w.
func Signed(v uint32, w Width) int32 {
	switch w {
	case W8:
		return int32(int8(v))
	case W16:
		return int32(int16(v))
	default:
		return int32(v)
	}
}
