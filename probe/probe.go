// Package probe runs small scripts against a live window: writes, reads with
// expected values, fills, dumps and the destructive memory test. It is the
// bring-up smoke check run by the firmware and by fmcsim.
//
// One command per line, tokenised shell-style; '#' starts a comment.
//
//	w8|w16|w32 OFF VAL     write
//	w16s OFF VAL           split 16-bit write (low at OFF, high at OFF+2)
//	r8|r16|r32 OFF [WANT]  read, optionally checked
//	r16s OFF [WANT]        split 16-bit read
//	fill OFF LEN BYTE
//	dump OFF LEN
//	test [LEN]             destructive memory test
//	table OFF ROWS COLS [BITS]
//	                       select a row-major table (32-bit elements by default)
//	tw ROW COL VAL         write a table element
//	tr ROW COL [WANT]      read a table element, optionally checked
//
// Numbers take Go literal syntax (0x1f, 0b101, 31).
package probe

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"fmcboot-go/errcode"
	"fmcboot-go/extmem"
)

// Check is one failed read expectation.
type Check struct {
	Line int
	Cmd  string
	Off  uint32
	Want uint32
	Got  uint32
}

func (c Check) String() string {
	return fmt.Sprintf("line %d: %s 0x%x: got 0x%x, want 0x%x", c.Line, c.Cmd, c.Off, c.Got, c.Want)
}

// Report summarises a script run.
type Report struct {
	Commands int
	Reads    int
	Writes   int
	Checked  int
	Failures []Check
}

func (r Report) OK() bool { return len(r.Failures) == 0 }

type runner struct {
	w     *extmem.Window
	table *extmem.Table
	out   io.Writer
	rep   Report
	line  int
}

// Run executes script against w, echoing reads and dumps to out (which may
// be nil). Script and access errors stop the run. Failed expectations do
// not; they are collected and reported as errcode.Mismatch at the end.
func Run(w *extmem.Window, script string, out io.Writer) (Report, error) {
	if out == nil {
		out = io.Discard
	}
	r := &runner{w: w, out: out}
	sc := bufio.NewScanner(strings.NewReader(script))
	for sc.Scan() {
		r.line++
		args, err := shlex.Split(sc.Text())
		if err != nil {
			return r.rep, r.syntax(err.Error())
		}
		if len(args) == 0 {
			continue
		}
		r.rep.Commands++
		if err := r.exec(args[0], args[1:]); err != nil {
			return r.rep, err
		}
	}
	if len(r.rep.Failures) > 0 {
		return r.rep, errcode.New(errcode.Mismatch, "probe",
			strconv.Itoa(len(r.rep.Failures))+" of "+strconv.Itoa(r.rep.Checked)+" checks failed; first: "+r.rep.Failures[0].String())
	}
	return r.rep, nil
}

func (r *runner) syntax(msg string) error {
	return errcode.New(errcode.InvalidParams, "probe", "line "+strconv.Itoa(r.line)+": "+msg)
}

func (r *runner) wrap(err error) error {
	if err == nil {
		return nil
	}
	return errcode.Wrap("probe line "+strconv.Itoa(r.line), err)
}

var widths = map[string]extmem.Width{
	"8": extmem.W8, "16": extmem.W16, "32": extmem.W32,
}

func (r *runner) exec(cmd string, args []string) error {
	switch cmd {
	case "w8", "w16", "w32", "w16s":
		nums, err := r.nums(args, 2, 2)
		if err != nil {
			return err
		}
		r.rep.Writes++
		if cmd == "w16s" {
			if nums[1] > 0xFFFF {
				return r.syntax("value does not fit 16 bits")
			}
			return r.wrap(r.w.WriteSplit16(nums[0], uint16(nums[1])))
		}
		width := widths[cmd[1:]]
		if !fits(nums[1], width) {
			return r.syntax("value does not fit " + cmd[1:] + " bits")
		}
		return r.wrap(r.w.Write(width, nums[0], nums[1]))

	case "r8", "r16", "r32", "r16s":
		nums, err := r.nums(args, 1, 2)
		if err != nil {
			return err
		}
		r.rep.Reads++
		var got uint32
		if cmd == "r16s" {
			v, err := r.w.ReadSplit16(nums[0])
			if err != nil {
				return r.wrap(err)
			}
			got = uint32(v)
		} else {
			v, err := r.w.Read(widths[cmd[1:]], nums[0])
			if err != nil {
				return r.wrap(err)
			}
			got = v
		}
		fmt.Fprintf(r.out, "%s 0x%06x = 0x%x", cmd, nums[0], got)
		r.expect(cmd, nums[0], got, nums[1:])
		return nil

	case "table":
		nums, err := r.nums(args, 3, 4)
		if err != nil {
			return err
		}
		elem := extmem.W32
		if len(nums) == 4 {
			w, ok := widths[strconv.FormatUint(uint64(nums[3]), 10)]
			if !ok {
				return r.syntax("element bits must be 8, 16 or 32")
			}
			elem = w
		}
		t, err := extmem.NewTable(r.w, nums[0], nums[1], nums[2], elem)
		if err != nil {
			return r.wrap(err)
		}
		r.table = t
		return nil

	case "tw", "tr":
		if r.table == nil {
			return r.syntax(cmd + " before table")
		}
		min := 3
		if cmd == "tr" {
			min = 2
		}
		nums, err := r.nums(args, min, 3)
		if err != nil {
			return err
		}
		off, err := r.table.Addr(nums[0], nums[1])
		if err != nil {
			return r.wrap(err)
		}
		if cmd == "tw" {
			if !fits(nums[2], r.table.Elem()) {
				return r.syntax("value does not fit the element")
			}
			r.rep.Writes++
			return r.wrap(r.table.Set(nums[0], nums[1], nums[2]))
		}
		r.rep.Reads++
		got, err := r.table.At(nums[0], nums[1])
		if err != nil {
			return r.wrap(err)
		}
		fmt.Fprintf(r.out, "tr (%d,%d) 0x%06x = 0x%x", nums[0], nums[1], off, got)
		r.expect(cmd, off, got, nums[2:])
		return nil

	case "fill":
		nums, err := r.nums(args, 3, 3)
		if err != nil {
			return err
		}
		if nums[2] > 0xFF {
			return r.syntax("fill byte does not fit 8 bits")
		}
		r.rep.Writes += int(nums[1])
		return r.wrap(r.w.Fill(nums[0], nums[1], uint8(nums[2])))

	case "dump":
		nums, err := r.nums(args, 2, 2)
		if err != nil {
			return err
		}
		if uint64(nums[0])+uint64(nums[1]) > uint64(r.w.Span()) {
			return r.wrap(errcode.New(errcode.OutOfWindow, "dump", "range beyond span"))
		}
		buf := make([]byte, nums[1])
		if _, err := r.w.ReadAt(buf, int64(nums[0])); err != nil {
			return r.wrap(err)
		}
		r.rep.Reads += len(buf)
		d := hex.Dumper(r.out)
		if _, err := d.Write(buf); err != nil {
			return err
		}
		return d.Close()

	case "test":
		nums, err := r.nums(args, 0, 1)
		if err != nil {
			return err
		}
		var n uint32
		if len(nums) == 1 {
			n = nums[0]
		}
		r.rep.Checked++
		if err := extmem.Test(r.w, n); err != nil {
			var te *extmem.TestError
			if errors.As(err, &te) {
				r.rep.Failures = append(r.rep.Failures, Check{Line: r.line, Cmd: "test " + te.Phase, Off: te.Offset, Want: te.Wrote, Got: te.Read})
				fmt.Fprintf(r.out, "test FAIL %v\n", te)
				return nil
			}
			return r.wrap(err)
		}
		fmt.Fprintln(r.out, "test ok")
		return nil
	}
	return r.syntax("unknown command " + strconv.Quote(cmd))
}

// expect finishes a read line, checking got against want when one was given.
func (r *runner) expect(cmd string, off, got uint32, want []uint32) {
	if len(want) == 1 {
		r.rep.Checked++
		if got != want[0] {
			r.rep.Failures = append(r.rep.Failures, Check{Line: r.line, Cmd: cmd, Off: off, Want: want[0], Got: got})
			fmt.Fprintf(r.out, " FAIL want 0x%x", want[0])
		} else {
			fmt.Fprint(r.out, " ok")
		}
	}
	fmt.Fprintln(r.out)
}

func (r *runner) nums(args []string, min, max int) ([]uint32, error) {
	if len(args) < min || len(args) > max {
		return nil, r.syntax("wrong number of arguments")
	}
	out := make([]uint32, len(args))
	for i, a := range args {
		v, err := strconv.ParseUint(a, 0, 32)
		if err != nil {
			return nil, r.syntax("bad number " + strconv.Quote(a))
		}
		out[i] = uint32(v)
	}
	return out, nil
}

func fits(v uint32, w extmem.Width) bool {
	return w == extmem.W32 || v < 1<<(8*uint(w))
}
