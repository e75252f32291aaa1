package profile_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"fmcboot-go/board"
	"fmcboot-go/errcode"
	"fmcboot-go/fmc"
	"fmcboot-go/hw/stm32f3"
	"fmcboot-go/profile"
)

const minimal = `name: mini
clock: {source: hsi, multiplier: 9, apb1: 2, flash_wait_states: 2}
pins:
  - {pin: PD14, signal: D0}
  - {pin: PD15, signal: D1}
  - {pin: PD0, signal: D2}
  - {pin: PD1, signal: D3}
  - {pin: PE7, signal: D4}
  - {pin: PE8, signal: D5}
  - {pin: PE9, signal: D6}
  - {pin: PE10, signal: D7}
  - {pin: PH0, signal: FMC_A0, speed: high}
  - {pin: PD4, signal: OE}
  - {pin: PD5, signal: WE}
  - {pin: PD7, signal: NE1}
bank: {bank: 1, width: 8}
`

func TestParseDeviceTiming(t *testing.T) {
	p, err := profile.Parse([]byte(minimal + "device_timing: {address_setup_ns: 10, data_setup_ns: 70}\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []stm32f3.Port{stm32f3.PortD, stm32f3.PortE, stm32f3.PortH}
	if !reflect.DeepEqual(p.Clock.Ports, want) {
		t.Fatalf("ports derived as %v", p.Clock.Ports)
	}
	bt, err := p.BankTiming(72_000_000)
	if err != nil {
		t.Fatal(err)
	}
	if bt.DataSetup != 6 || bt.AddressSetup != 1 || bt.ForHCLK != 72_000_000 {
		t.Fatalf("timing %+v", bt)
	}
	if p.Pins[8].Speed.String() != "high" {
		t.Fatalf("speed %s", p.Pins[8].Speed)
	}
}

func TestParseRejects(t *testing.T) {
	timing := "timing: {address_setup: 1, address_hold: 1, data_setup: 5}\n"
	cases := []struct {
		name string
		doc  string
		code errcode.Code
	}{
		{"unknown key", minimal + timing + "colour: blue\n", errcode.InvalidParams},
		{"no timing", minimal, errcode.InvalidParams},
		{"both timings", minimal + timing + "device_timing: {data_setup_ns: 70}\n", errcode.InvalidParams},
		{"bad pin", strings.Replace(minimal, "PD14", "PZ14", 1) + timing, errcode.UnknownPin},
		{"wrong pin for signal", strings.Replace(minimal, "signal: D0", "signal: D9", 1) + timing, errcode.UnsupportedAltFunc},
		{"duplicate pin", strings.Replace(minimal, "PD15", "PD14", 1) + timing, errcode.ConflictingBinding},
		{"one wait state at 72 MHz", strings.Replace(minimal, "flash_wait_states: 2", "flash_wait_states: 1", 1) + timing, errcode.InvalidParams},
		{"datast too wide", minimal + "timing: {address_setup: 1, address_hold: 1, data_setup: 300}\n", errcode.OutOfRange},
		{"stale", minimal + "timing: {address_setup: 1, address_hold: 1, data_setup: 5, for_hclk_hz: 48000000}\n", errcode.StaleTiming},
		{"bad mode", minimal + "timing: {address_setup: 1, address_hold: 1, data_setup: 5, mode: E}\n", errcode.InvalidParams},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := profile.Parse([]byte(tc.doc))
			if !errors.Is(err, tc.code) {
				t.Fatalf("got %v, want %s", err, tc.code)
			}
		})
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	in := board.F303FRAM()
	wt := fmc.BankTiming{AddressSetup: 2, AddressHold: 1, DataSetup: 4, Mode: fmc.ModeC}
	in.Bank.Extended = true
	in.Bank.WriteTiming = &wt

	out, err := profile.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	back, err := profile.Parse(out)
	if err != nil {
		t.Fatalf("Parse(Marshal): %v\n%s", err, out)
	}
	if !reflect.DeepEqual(back, in) {
		t.Fatalf("round trip differs:\n%s", out)
	}
}
