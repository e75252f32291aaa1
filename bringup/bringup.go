// Package bringup runs the external-memory start-up sequence for a profile:
// clock tree, then pins, then the FMC bank, and returns the live window.
// Each stage depends on the one before it and nothing is retried.
package bringup

import (
	"fmcboot-go/clock"
	"fmcboot-go/errcode"
	"fmcboot-go/extmem"
	"fmcboot-go/fmc"
	"fmcboot-go/hw"
	"fmcboot-go/pinmux"
	"fmcboot-go/profile"
)

// Result is what a successful bring-up leaves behind.
type Result struct {
	Clocks clock.Active
	Wiring pinmux.Wiring
	Timing fmc.BankTiming
	FMC    *fmc.Controller
	Window *extmem.Window
}

// Run brings up p on hc. Errors carry the failing stage as their op and keep
// the underlying code, so errors.Is(err, errcode.Timeout) and friends work.
func Run(hc *hw.Context, p profile.Profile) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, errcode.Wrap("bringup.profile", err)
	}
	hc.Log.Printf("bringup: %s", p.Name)

	clk, err := clock.BringUp(hc, p.Clock)
	if err != nil {
		return nil, errcode.Wrap("bringup.clock", err)
	}

	wiring, err := pinmux.Apply(hc, p.Pins)
	if err != nil {
		return nil, errcode.Wrap("bringup.pins", err)
	}

	// Timing is derived here, against the clock that actually came up.
	t, err := p.BankTiming(clk.HCLKHz)
	if err != nil {
		return nil, errcode.Wrap("bringup.timing", err)
	}
	ctl := fmc.New(hc, clk, wiring)
	if err := ctl.Commit(p.Bank, t); err != nil {
		return nil, errcode.Wrap("bringup.bank", err)
	}
	w, err := ctl.Window(p.Bank.Bank)
	if err != nil {
		return nil, errcode.Wrap("bringup.window", err)
	}
	hc.Log.Printf("bringup: window %#x+%#x live", w.Base(), w.Span())
	return &Result{Clocks: clk, Wiring: wiring, Timing: t, FMC: ctl, Window: w}, nil
}
