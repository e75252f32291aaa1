package fmc

import (
	"strconv"

	"fmcboot-go/errcode"
	"fmcboot-go/hw/stm32f3"
	"fmcboot-go/x/mathx"
)

// Mode is the extended-mode access protocol (BTR.ACCMOD).
type Mode uint8

const (
	ModeA Mode = iota
	ModeB
	ModeC
	ModeD
)

func (m Mode) String() string {
	if m > ModeD {
		return "mode(" + strconv.Itoa(int(m)) + ")"
	}
	return string(rune('A' + m))
}

// ParseMode accepts "A".."D" (case-insensitive). Empty means A.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "", "A", "a":
		return ModeA, true
	case "B", "b":
		return ModeB, true
	case "C", "c":
		return ModeC, true
	case "D", "d":
		return ModeD, true
	}
	return 0, false
}

// BankTiming is an FMC_BTRx / FMC_BWTRx value in HCLK cycles.
type BankTiming struct {
	AddressSetup  uint32 // ADDSET, 0..15
	AddressHold   uint32 // ADDHLD, 1..15
	DataSetup     uint32 // DATAST, 1..255
	BusTurnaround uint32 // BUSTURN, 0..15
	ClockDivision uint32 // CLKDIV, 0..15 (synchronous only)
	DataLatency   uint32 // DATLAT, 0..15 (synchronous only)
	Mode          Mode

	// ForHCLK is the AHB frequency the cycle counts were derived for.
	// Zero means unknown and disables the staleness check.
	ForHCLK uint32
}

// RangeError reports a timing field that does not fit its register field.
type RangeError struct {
	Field string
	Value uint32
	Min   uint32
	Max   uint32
}

func (e *RangeError) Error() string {
	return "fmc: " + e.Field + "=" + strconv.FormatUint(uint64(e.Value), 10) +
		" outside " + strconv.FormatUint(uint64(e.Min), 10) + ".." + strconv.FormatUint(uint64(e.Max), 10)
}

func (e *RangeError) Code() errcode.Code { return errcode.OutOfRange }

func (e *RangeError) Is(target error) bool {
	c, ok := target.(errcode.Code)
	return ok && c == errcode.OutOfRange
}

type field struct {
	name  string
	v     uint32
	min   uint32
	width uint
	pos   uint32
}

func (t BankTiming) fields() []field {
	return []field{
		{name: "address_setup", v: t.AddressSetup, width: 4, pos: stm32f3.BTR_ADDSET_Pos},
		{name: "address_hold", v: t.AddressHold, min: 1, width: 4, pos: stm32f3.BTR_ADDHLD_Pos},
		{name: "data_setup", v: t.DataSetup, min: 1, width: 8, pos: stm32f3.BTR_DATAST_Pos},
		{name: "bus_turnaround", v: t.BusTurnaround, width: 4, pos: stm32f3.BTR_BUSTURN_Pos},
		{name: "clock_division", v: t.ClockDivision, width: 4, pos: stm32f3.BTR_CLKDIV_Pos},
		{name: "data_latency", v: t.DataLatency, width: 4, pos: stm32f3.BTR_DATLAT_Pos},
		{name: "access_mode", v: uint32(t.Mode), width: 2, pos: stm32f3.BTR_ACCMOD_Pos},
	}
}

// Validate checks every field against its register width. The first
// offending field is returned as a *RangeError.
func (t BankTiming) Validate() error {
	for _, f := range t.fields() {
		if f.v < f.min || !mathx.FitsBits(f.v, f.width) {
			return &RangeError{Field: f.name, Value: f.v, Min: f.min, Max: 1<<f.width - 1}
		}
	}
	return nil
}

// word packs the timing into a BTR/BWTR value. Bits 30..31 are reserved and
// read as zero.
func (t BankTiming) word() uint32 {
	var w uint32
	for _, f := range t.fields() {
		w |= f.v << f.pos
	}
	return w
}

// DecodeTiming unpacks a BTR/BWTR value.
func DecodeTiming(w uint32) BankTiming {
	get := func(pos, msk uint32) uint32 { return (w >> pos) & msk }
	return BankTiming{
		AddressSetup:  get(stm32f3.BTR_ADDSET_Pos, stm32f3.BTR_ADDSET_Msk),
		AddressHold:   get(stm32f3.BTR_ADDHLD_Pos, stm32f3.BTR_ADDHLD_Msk),
		DataSetup:     get(stm32f3.BTR_DATAST_Pos, stm32f3.BTR_DATAST_Msk),
		BusTurnaround: get(stm32f3.BTR_BUSTURN_Pos, stm32f3.BTR_BUSTURN_Msk),
		ClockDivision: get(stm32f3.BTR_CLKDIV_Pos, stm32f3.BTR_CLKDIV_Msk),
		DataLatency:   get(stm32f3.BTR_DATLAT_Pos, stm32f3.BTR_DATLAT_Msk),
		Mode:          Mode(get(stm32f3.BTR_ACCMOD_Pos, stm32f3.BTR_ACCMOD_Msk)),
	}
}

// DeviceTiming is the datasheet view of an asynchronous device, in
// nanoseconds. It is converted to cycles once the bus clock is known.
type DeviceTiming struct {
	AddressSetupNs uint32
	AddressHoldNs  uint32
	DataSetupNs    uint32
	TurnaroundNs   uint32
	Mode           Mode
}

// Cycles converts d to a BankTiming at hclkHz, rounding every phase up and
// applying the hardware minimum of one cycle to ADDHLD and DATAST. The
// result is not range-checked; Commit does that.
func (d DeviceTiming) Cycles(hclkHz uint32) BankTiming {
	cyc := func(ns uint32) uint32 {
		return uint32(mathx.CeilDiv(uint64(ns)*uint64(hclkHz), 1_000_000_000))
	}
	return BankTiming{
		AddressSetup:  cyc(d.AddressSetupNs),
		AddressHold:   mathx.Max(cyc(d.AddressHoldNs), 1),
		DataSetup:     mathx.Max(cyc(d.DataSetupNs), 1),
		BusTurnaround: cyc(d.TurnaroundNs),
		Mode:          d.Mode,
		ForHCLK:       hclkHz,
	}
}
