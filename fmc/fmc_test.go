package fmc

import (
	"errors"
	"testing"

	"fmcboot-go/clock"
	"fmcboot-go/errcode"
	"fmcboot-go/hw"
	"fmcboot-go/hw/stm32f3"
	"fmcboot-go/pinmux"
	"fmcboot-go/sim"
)

// recBus records register stores in order.
type recBus struct {
	*sim.Board
	stores []uintptr
}

func (r *recBus) Store32(addr uintptr, v uint32) {
	r.stores = append(r.stores, addr)
	r.Board.Store32(addr, v)
}

var active72 = clock.Active{Source: clock.SysPLL, SysClkHz: 72_000_000, HCLKHz: 72_000_000}

func fullWiring() pinmux.Wiring {
	return pinmux.Wiring{
		AddressLines: 16,
		Data:         0xFFFF,
		ByteLanes:    0b11,
		ChipSelects:  0b0001,
		OutputEnable: true,
		WriteEnable:  true,
	}
}

// fram is the board's F-RAM timing: ADDSET=1, DATAST=5, ADDHLD=1, mode A.
var fram = BankTiming{AddressSetup: 1, DataSetup: 5, AddressHold: 1, Mode: ModeA}

func setup(t *testing.T, faults sim.Faults) (*sim.Board, *recBus, *Controller) {
	t.Helper()
	b := sim.New(sim.Config{Faults: faults})
	bus := &recBus{Board: b}
	hc := hw.NewContext(bus, hw.Waiter{Spins: 64}, nil)
	clock.EnablePeripherals(hc, nil)
	bus.stores = nil
	return b, bus, New(hc, active72, fullWiring())
}

func TestCommitProgramsBankOne(t *testing.T) {
	b, bus, c := setup(t, sim.Faults{})
	if err := c.Commit(DefaultConfig(1), fram); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if got, want := b.Peek(stm32f3.FMC_BCR(1)), uint32(0x1091); got != want {
		t.Fatalf("BCR1 = %#x, want %#x", got, want)
	}
	if got, want := b.Peek(stm32f3.FMC_BTR(1)), uint32(0x0511); got != want {
		t.Fatalf("BTR1 = %#x, want %#x", got, want)
	}
	if got := b.Peek(stm32f3.FMC_BWTR(1)); got != stm32f3.BWTRReset {
		t.Fatalf("BWTR1 touched outside extended mode: %#x", got)
	}
	if len(bus.stores) != 2 || bus.stores[0] != stm32f3.FMC_BCR(1) || bus.stores[1] != stm32f3.FMC_BTR(1) {
		t.Fatalf("store order %#x", bus.stores)
	}
	if got, ok := c.Timing(1); !ok || got != fram {
		t.Fatalf("Timing(1) = %+v, %v", got, ok)
	}
}

func TestCommitExtendedWritesBWTRLast(t *testing.T) {
	b, bus, c := setup(t, sim.Faults{})
	cfg := DefaultConfig(1)
	cfg.Extended = true
	wt := BankTiming{AddressSetup: 2, AddressHold: 1, DataSetup: 3, Mode: ModeB}
	cfg.WriteTiming = &wt
	if err := c.Commit(cfg, fram); err != nil {
		t.Fatalf("commit: %v", err)
	}
	want := []uintptr{stm32f3.FMC_BCR(1), stm32f3.FMC_BTR(1), stm32f3.FMC_BWTR(1)}
	if len(bus.stores) != len(want) {
		t.Fatalf("stores %#x", bus.stores)
	}
	for i := range want {
		if bus.stores[i] != want[i] {
			t.Fatalf("store %d at %#x, want %#x", i, bus.stores[i], want[i])
		}
	}
	if got := DecodeTiming(b.Peek(stm32f3.FMC_BWTR(1))); got != wt {
		t.Fatalf("BWTR decodes to %+v", got)
	}
	if b.Peek(stm32f3.FMC_BCR(1))&stm32f3.BCR_EXTMOD == 0 {
		t.Fatal("EXTMOD not set")
	}
}

func TestCommitRejectsBeforeWriting(t *testing.T) {
	stale := fram
	stale.ForHCLK = 64_000_000
	wide := fram
	wide.DataSetup = 256

	narrow := fullWiring()
	narrow.Data = 0x00FF

	cases := []struct {
		name   string
		cfg    func() BankConfig
		timing BankTiming
		wiring pinmux.Wiring
		code   errcode.Code
	}{
		{"16-bit on 8 data lines", func() BankConfig { return DefaultConfig(1) }, fram, narrow, errcode.UnsupportedConfig},
		{"multiplexed", func() BankConfig { c := DefaultConfig(1); c.Multiplexed = true; return c }, fram, fullWiring(), errcode.UnsupportedConfig},
		{"nor class", func() BankConfig { c := DefaultConfig(1); c.Class = ClassNOR; return c }, fram, fullWiring(), errcode.UnsupportedConfig},
		{"width 32", func() BankConfig { c := DefaultConfig(1); c.Width = 32; return c }, fram, fullWiring(), errcode.UnsupportedConfig},
		{"bank 5", func() BankConfig { return DefaultConfig(5) }, fram, fullWiring(), errcode.UnsupportedConfig},
		{"no NE2", func() BankConfig { return DefaultConfig(2) }, fram, fullWiring(), errcode.UnsupportedConfig},
		{"datast 256", func() BankConfig { return DefaultConfig(1) }, wide, fullWiring(), errcode.OutOfRange},
		{"stale timing", func() BankConfig { return DefaultConfig(1) }, stale, fullWiring(), errcode.StaleTiming},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := sim.New(sim.Config{})
			hc := hw.NewContext(b, hw.Waiter{Spins: 64}, nil)
			clock.EnablePeripherals(hc, nil)
			before := b.Writes()
			err := New(hc, active72, tc.wiring).Commit(tc.cfg(), tc.timing)
			if !errors.Is(err, tc.code) {
				t.Fatalf("got %v, want %s", err, tc.code)
			}
			if b.Writes() != before {
				t.Fatalf("%d register writes on rejected commit", b.Writes()-before)
			}
		})
	}
}

func TestRangeErrorNamesField(t *testing.T) {
	cases := []struct {
		t     BankTiming
		field string
	}{
		{BankTiming{AddressSetup: 16, AddressHold: 1, DataSetup: 1}, "address_setup"},
		{BankTiming{AddressHold: 0, DataSetup: 1}, "address_hold"},
		{BankTiming{AddressHold: 1, DataSetup: 0}, "data_setup"},
		{BankTiming{AddressHold: 1, DataSetup: 1, BusTurnaround: 16}, "bus_turnaround"},
		{BankTiming{AddressHold: 1, DataSetup: 1, Mode: 4}, "access_mode"},
	}
	for _, tc := range cases {
		var re *RangeError
		if err := tc.t.Validate(); !errors.As(err, &re) || re.Field != tc.field {
			t.Fatalf("%+v: got %v, want field %s", tc.t, err, tc.field)
		}
	}
	if err := (BankTiming{AddressHold: 1, DataSetup: 255}).Validate(); err != nil {
		t.Fatalf("datast 255 fits the 8-bit field: %v", err)
	}
}

func TestCommitNeedsFMCClock(t *testing.T) {
	b := sim.New(sim.Config{})
	hc := hw.NewContext(b, hw.Waiter{Spins: 64}, nil)
	err := New(hc, active72, fullWiring()).Commit(DefaultConfig(1), fram)
	if !errors.Is(err, errcode.NotReady) {
		t.Fatalf("got %v, want not_ready", err)
	}
	if b.Writes() != 0 {
		t.Fatal("wrote with FMC clock off")
	}
}

func TestCommitEnableReadBack(t *testing.T) {
	_, _, c := setup(t, sim.Faults{BankEnableStuck: true})
	if err := c.Commit(DefaultConfig(1), fram); !errors.Is(err, errcode.Mismatch) {
		t.Fatalf("got %v, want mismatch", err)
	}
	if _, err := c.Window(1); !errors.Is(err, errcode.NotReady) {
		t.Fatalf("window after failed commit: %v", err)
	}
}

func TestWindowByteAccessAnyOffset(t *testing.T) {
	_, _, c := setup(t, sim.Faults{})
	if _, err := c.Window(1); !errors.Is(err, errcode.NotReady) {
		t.Fatalf("window before commit: %v", err)
	}
	if err := c.Commit(DefaultConfig(1), fram); err != nil {
		t.Fatal(err)
	}
	w, err := c.Window(1)
	if err != nil {
		t.Fatal(err)
	}
	if w.Base() != 0x60000000 || w.Span() != 128<<10 {
		t.Fatalf("window base %#x span %#x", w.Base(), w.Span())
	}
	for _, off := range []uint32{0, 1, 2, 3, 0x1235, w.Span() - 1} {
		for v := 0; v < 256; v++ {
			if err := w.Write8(off, uint8(v)); err != nil {
				t.Fatal(err)
			}
			if got, err := w.Read8(off); err != nil || got != uint8(v) {
				t.Fatalf("offset %#x: read %#x, %v; want %#x", off, got, err, v)
			}
		}
	}
}

func TestDisableClosesWindowAndAllowsRecommit(t *testing.T) {
	b, _, c := setup(t, sim.Faults{})
	if err := c.Commit(DefaultConfig(1), fram); err != nil {
		t.Fatal(err)
	}
	if err := c.Commit(DefaultConfig(1), fram); !errors.Is(err, errcode.UnsupportedConfig) {
		t.Fatalf("second commit: %v", err)
	}
	w, _ := c.Window(1)
	if err := c.Disable(1); err != nil {
		t.Fatal(err)
	}
	if b.Peek(stm32f3.FMC_BCR(1))&stm32f3.BCR_MBKEN != 0 {
		t.Fatal("MBKEN still set")
	}
	if _, err := w.Read8(0); !errors.Is(err, errcode.NotReady) {
		t.Fatalf("read through disabled window: %v", err)
	}
	if err := c.Commit(DefaultConfig(1), fram); err != nil {
		t.Fatalf("recommit: %v", err)
	}
}

func TestDeviceTimingCycles(t *testing.T) {
	d := DeviceTiming{AddressSetupNs: 10, DataSetupNs: 70}
	got := d.Cycles(72_000_000)
	want := BankTiming{AddressSetup: 1, AddressHold: 1, DataSetup: 6, Mode: ModeA, ForHCLK: 72_000_000}
	if got != want {
		t.Fatalf("Cycles = %+v, want %+v", got, want)
	}
	if slow := d.Cycles(8_000_000); slow.DataSetup != 1 || slow.AddressSetup != 1 {
		t.Fatalf("8 MHz: %+v", slow)
	}
}

func TestModeString(t *testing.T) {
	for m, s := range map[Mode]string{ModeA: "A", ModeD: "D"} {
		if m.String() != s {
			t.Fatalf("%d -> %q", m, m.String())
		}
		if p, ok := ParseMode(s); !ok || p != m {
			t.Fatalf("ParseMode(%q) = %v, %v", s, p, ok)
		}
	}
}
