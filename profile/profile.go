// Package profile describes one board's external-memory bring-up as data:
// clock plan, pin bindings, bank configuration and timing. Profiles are
// written in YAML for host tools and as Go literals for firmware.
package profile

import (
	"strconv"

	"fmcboot-go/clock"
	"fmcboot-go/errcode"
	"fmcboot-go/fmc"
	"fmcboot-go/hw/stm32f3"
	"fmcboot-go/pinmux"
)

// Profile is a complete bring-up description.
type Profile struct {
	Name  string
	Clock clock.Plan
	Pins  []pinmux.Binding
	Bank  fmc.BankConfig

	// Exactly one of Timing (cycles at a known HCLK) and Device
	// (nanoseconds, converted at the active HCLK) is set.
	Timing *fmc.BankTiming
	Device *fmc.DeviceTiming

	// Probe is an optional probe script run once the window is live.
	Probe string
}

func invalid(msg string) error { return errcode.New(errcode.InvalidParams, "profile", msg) }

// Validate checks everything that can be checked without hardware: the
// clock plan, the pin set, bank number and width, and that the timing fits
// its register fields at the planned bus clock.
func (p Profile) Validate() error {
	want, err := p.Clock.Expect()
	if err != nil {
		return err
	}
	if _, err := pinmux.Summarize(p.Pins); err != nil {
		return err
	}
	if p.Bank.Bank < 1 || p.Bank.Bank > stm32f3.FMCSubBanks {
		return invalid("bank must be 1..4, got " + strconv.Itoa(p.Bank.Bank))
	}
	if p.Bank.Width != 8 && p.Bank.Width != 16 {
		return invalid("bank width must be 8 or 16, got " + strconv.Itoa(int(p.Bank.Width)))
	}
	switch {
	case p.Timing != nil && p.Device != nil:
		return invalid("timing and device_timing are mutually exclusive")
	case p.Timing == nil && p.Device == nil:
		return invalid("one of timing or device_timing is required")
	}
	if wt := p.Bank.WriteTiming; wt != nil {
		if err := wt.Validate(); err != nil {
			return err
		}
	}
	t, err := p.BankTiming(want.HCLKHz)
	if err != nil {
		return err
	}
	return t.Validate()
}

// BankTiming returns the cycle timing for a bus running at hclkHz. Cycle
// timing given for a different HCLK fails with errcode.StaleTiming.
func (p Profile) BankTiming(hclkHz uint32) (fmc.BankTiming, error) {
	if p.Device != nil {
		return p.Device.Cycles(hclkHz), nil
	}
	if p.Timing == nil {
		return fmc.BankTiming{}, invalid("no timing")
	}
	t := *p.Timing
	if t.ForHCLK == 0 {
		t.ForHCLK = hclkHz
	}
	if t.ForHCLK != hclkHz {
		return fmc.BankTiming{}, errcode.New(errcode.StaleTiming, "profile",
			"timing given for "+strconv.FormatUint(uint64(t.ForHCLK), 10)+" Hz, bus runs at "+strconv.FormatUint(uint64(hclkHz), 10)+" Hz")
	}
	return t, nil
}

// PortsFor lists the distinct ports used by bindings, ascending.
func PortsFor(bindings []pinmux.Binding) []stm32f3.Port {
	var seen [stm32f3.NumPorts]bool
	for _, b := range bindings {
		if int(b.Pin.Port) < len(seen) {
			seen[b.Pin.Port] = true
		}
	}
	var out []stm32f3.Port
	for i, ok := range seen {
		if ok {
			out = append(out, stm32f3.Port(i))
		}
	}
	return out
}
