package bringup

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/marcinbor85/gohex"

	"fmcboot-go/board"
	"fmcboot-go/clock"
	"fmcboot-go/errcode"
	"fmcboot-go/extmem"
	"fmcboot-go/fmc"
	"fmcboot-go/hw"
	"fmcboot-go/hw/stm32f3"
	"fmcboot-go/image"
	"fmcboot-go/probe"
	"fmcboot-go/profile"
	"fmcboot-go/sim"
)

func run(t *testing.T, cfg sim.Config, mutate func(p *profile.Profile)) (*sim.Board, *Result, error) {
	t.Helper()
	b := sim.New(cfg)
	p := board.F303FRAM()
	if mutate != nil {
		mutate(&p)
	}
	res, err := Run(hw.NewContext(b, hw.Waiter{Spins: 64}, nil), p)
	return b, res, err
}

func TestRunF303FRAM(t *testing.T) {
	b, res, err := run(t, sim.Config{}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Clocks.Source != clock.SysPLL || res.Clocks.HCLKHz != 72_000_000 {
		t.Fatalf("clocks %+v", res.Clocks)
	}
	if b.FlashFault() || b.ConfigViolations() != 0 || b.DroppedWrites() != 0 {
		t.Fatalf("ordering broken: flash=%v violations=%d dropped=%d", b.FlashFault(), b.ConfigViolations(), b.DroppedWrites())
	}
	if got := fmc.DecodeTiming(b.Peek(stm32f3.FMC_BTR(1))); got.AddressSetup != 1 || got.DataSetup != 5 || got.AddressHold != 1 || got.Mode != fmc.ModeA {
		t.Fatalf("BTR1 decodes to %+v", got)
	}
	w := res.Window
	if w.Span() != 128<<10 {
		t.Fatalf("span %#x", w.Span())
	}
	for v := 0; v < 256; v++ {
		off := uint32(v*509) % w.Span()
		if err := w.Write8(off, uint8(v)); err != nil {
			t.Fatal(err)
		}
		if got, _ := w.Read8(off); got != uint8(v) {
			t.Fatalf("offset %#x: read %#x want %#x", off, got, v)
		}
	}
	if err := w.WriteSplit16(0x40, 0x1234); err != nil {
		t.Fatal(err)
	}
	if dev := b.Device(); dev[0x40] != 0x34 || dev[0x42] != 0x12 {
		t.Fatalf("split layout % x", dev[0x40:0x44])
	}
	if b.Undecoded() != 0 {
		t.Fatalf("%d window accesses missed the device", b.Undecoded())
	}
}

// paramValue is the fill used for the parameter image: small digits with a
// few wide values in param_2 row 0.
func paramValue(tb board.Table, r, c uint32) uint32 {
	if tb.Name == "param_2" && r == 0 && c < 2 {
		return []uint32{0x0FFFFFFF, 0x0FFFDFFF}[c]
	}
	return (r*7 + c*3) % 10
}

func TestParameterImageOnBoard(t *testing.T) {
	_, res, err := run(t, sim.Config{}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	mem := gohex.NewMemory()
	for _, tb := range board.F303FRAMTables {
		data := make([]byte, 0, tb.Size())
		for r := uint32(0); r < tb.Rows; r++ {
			for c := uint32(0); c < tb.Cols; c++ {
				data = binary.LittleEndian.AppendUint32(data, paramValue(tb, r, c))
			}
		}
		if err := mem.AddBinary(uint32(res.Window.Base())+tb.Off, data); err != nil {
			t.Fatal(err)
		}
	}
	var img bytes.Buffer
	if err := mem.DumpIntelHex(&img, 16); err != nil {
		t.Fatal(err)
	}
	if _, err := image.Load(res.Window, bytes.NewReader(img.Bytes())); err != nil {
		t.Fatalf("Load: %v", err)
	}

	tables := make([]*extmem.Table, len(board.F303FRAMTables))
	for i, tb := range board.F303FRAMTables {
		if tables[i], err = extmem.NewTable(res.Window, tb.Off, tb.Rows, tb.Cols, extmem.W32); err != nil {
			t.Fatal(err)
		}
	}
	p1, p2 := board.F303FRAMTables[0], board.F303FRAMTables[1]
	if got, err := tables[0].At(9, 49); err != nil || got != paramValue(p1, 9, 49) {
		t.Fatalf("param_1(9,49) = %d, %v", got, err)
	}
	if got, _ := tables[1].At(0, 1); got != 0x0FFFDFFF {
		t.Fatalf("param_2(0,1) = %#x", got)
	}

	// The board check rewrites param_1(0,0) and nothing else in the tables.
	if _, err := probe.Run(res.Window, board.F303FRAMProbe, nil); err != nil {
		t.Fatalf("board check: %v", err)
	}
	if got, _ := tables[0].At(0, 0); extmem.Signed(got, extmem.W32) != 32345678 {
		t.Fatalf("param_1(0,0) = %d", got)
	}
	for r := uint32(0); r < p2.Rows; r++ {
		for c := uint32(0); c < p2.Cols; c++ {
			if got, _ := tables[1].At(r, c); got != paramValue(p2, r, c) {
				t.Fatalf("param_2(%d,%d) = %#x after the board check", r, c, got)
			}
		}
	}
}

func TestRunStageFailures(t *testing.T) {
	cases := []struct {
		name   string
		cfg    sim.Config
		mutate func(p *profile.Profile)
		code   errcode.Code
	}{
		{"hsi never ready", sim.Config{Faults: sim.Faults{HSINeverReady: true}}, nil, errcode.Timeout},
		{"pll never locks", sim.Config{Faults: sim.Faults{PLLNeverLocks: true}}, nil, errcode.Timeout},
		{"bank enable stuck", sim.Config{Faults: sim.Faults{BankEnableStuck: true}}, nil, errcode.Mismatch},
		{"device on bank 2", sim.Config{}, func(p *profile.Profile) { p.Bank.Bank = 2 }, errcode.UnsupportedConfig},
		{"8 data lines on 16-bit bank", sim.Config{}, func(p *profile.Profile) { p.Pins = p.Pins[:24] }, errcode.UnsupportedConfig},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, res, err := run(t, tc.cfg, tc.mutate)
			if !errors.Is(err, tc.code) || res != nil {
				t.Fatalf("got %v, want %s", err, tc.code)
			}
		})
	}
}

func TestTimeoutNamesStage(t *testing.T) {
	_, _, err := run(t, sim.Config{Faults: sim.Faults{SwitchStuck: true}}, nil)
	var te *clock.TimeoutError
	if !errors.As(err, &te) || te.Stage != clock.StageSwitch {
		t.Fatalf("got %v, want switch timeout", err)
	}
}

func TestStaleTimingCaughtBeforeWrites(t *testing.T) {
	b, _, err := run(t, sim.Config{}, func(p *profile.Profile) {
		p.Clock.Multiplier = 6 // 48 MHz
		p.Clock.FlashWaitStates = 1
	})
	if !errors.Is(err, errcode.StaleTiming) {
		t.Fatalf("got %v, want stale_timing", err)
	}
	if b.Writes() != 0 {
		t.Fatalf("%d writes before rejecting the profile", b.Writes())
	}
}

func TestDeviceTimingRecomputedAtActiveClock(t *testing.T) {
	b, res, err := run(t, sim.Config{}, func(p *profile.Profile) {
		p.Clock.Multiplier = 6
		p.Clock.FlashWaitStates = 1
		p.Timing = nil
		p.Device = &fmc.DeviceTiming{AddressSetupNs: 10, AddressHoldNs: 10, DataSetupNs: 70}
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// 48 MHz: 70 ns -> 3.36 -> 4 cycles.
	if res.Timing.DataSetup != 4 || res.Timing.ForHCLK != 48_000_000 {
		t.Fatalf("timing %+v", res.Timing)
	}
	if got := fmc.DecodeTiming(b.Peek(stm32f3.FMC_BTR(1))); got.DataSetup != 4 {
		t.Fatalf("BTR1 DATAST = %d", got.DataSetup)
	}
}
