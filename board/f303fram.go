// Package board holds the bring-up profiles of the boards this firmware
// runs on. Profiles are plain data; nothing here touches hardware.
package board

import (
	"fmcboot-go/clock"
	"fmcboot-go/fmc"
	"fmcboot-go/hw/stm32f3"
	"fmcboot-go/pinmux"
	"fmcboot-go/profile"
)

// F303FRAM is an STM32F303ZE with a 16-bit asynchronous F-RAM on NE1:
// sixteen address lines, D0..D15, NOE and NWE, running from HSI x9.
func F303FRAM() profile.Profile {
	var (
		pd = stm32f3.PortD
		pe = stm32f3.PortE
		pf = stm32f3.PortF
		pg = stm32f3.PortG
		ph = stm32f3.PortH
	)
	pin := func(port stm32f3.Port, n uint8) pinmux.Pin { return pinmux.Pin{Port: port, Index: n} }

	pins := []pinmux.Binding{
		pinmux.Bind(pin(ph, 0), pinmux.A(0)),
		pinmux.Bind(pin(ph, 1), pinmux.A(1)),
		pinmux.Bind(pin(pf, 2), pinmux.A(2)),
		pinmux.Bind(pin(pf, 3), pinmux.A(3)),
		pinmux.Bind(pin(pf, 4), pinmux.A(4)),
		pinmux.Bind(pin(pf, 5), pinmux.A(5)),
		pinmux.Bind(pin(pf, 12), pinmux.A(6)),
		pinmux.Bind(pin(pf, 13), pinmux.A(7)),
		pinmux.Bind(pin(pf, 14), pinmux.A(8)),
		pinmux.Bind(pin(pf, 15), pinmux.A(9)),
		pinmux.Bind(pin(pg, 0), pinmux.A(10)),
		pinmux.Bind(pin(pg, 1), pinmux.A(11)),
		pinmux.Bind(pin(pg, 2), pinmux.A(12)),
		pinmux.Bind(pin(pg, 3), pinmux.A(13)),
		pinmux.Bind(pin(pg, 4), pinmux.A(14)),
		pinmux.Bind(pin(pg, 5), pinmux.A(15)),

		pinmux.Bind(pin(pd, 14), pinmux.D(0)),
		pinmux.Bind(pin(pd, 15), pinmux.D(1)),
		pinmux.Bind(pin(pd, 0), pinmux.D(2)),
		pinmux.Bind(pin(pd, 1), pinmux.D(3)),
		pinmux.Bind(pin(pe, 7), pinmux.D(4)),
		pinmux.Bind(pin(pe, 8), pinmux.D(5)),
		pinmux.Bind(pin(pe, 9), pinmux.D(6)),
		pinmux.Bind(pin(pe, 10), pinmux.D(7)),
		pinmux.Bind(pin(pe, 11), pinmux.D(8)),
		pinmux.Bind(pin(pe, 12), pinmux.D(9)),
		pinmux.Bind(pin(pe, 13), pinmux.D(10)),
		pinmux.Bind(pin(pe, 14), pinmux.D(11)),
		pinmux.Bind(pin(pe, 15), pinmux.D(12)),
		// D13..D15 are on port D; some board notes list them on port E.
		pinmux.Bind(pin(pd, 8), pinmux.D(13)),
		pinmux.Bind(pin(pd, 9), pinmux.D(14)),
		pinmux.Bind(pin(pd, 10), pinmux.D(15)),

		pinmux.Bind(pin(pd, 4), pinmux.NOE),
		pinmux.Bind(pin(pd, 5), pinmux.NWE),
		pinmux.Bind(pin(pd, 7), pinmux.NE(1)),
	}

	return profile.Profile{
		Name: "f303-fram",
		Clock: clock.Plan{
			Source:          clock.SourceHSI,
			Multiplier:      9,
			Predivider:      1,
			AHB:             1,
			APB1:            2,
			APB2:            1,
			FlashWaitStates: 2,
			Prefetch:        true,
			Ports:           []stm32f3.Port{pd, pe, pf, pg, ph},
		},
		Pins: pins,
		Bank: fmc.DefaultConfig(1),
		Timing: &fmc.BankTiming{
			AddressSetup: 1,
			AddressHold:  1,
			DataSetup:    5,
			Mode:         fmc.ModeA,
			ForHCLK:      72_000_000,
		},
		Probe: F303FRAMProbe,
	}
}

// Table is a parameter table pre-loaded into the F-RAM: rows×cols signed
// 32-bit elements, row-major, at a window offset.
type Table struct {
	Name       string
	Off        uint32
	Rows, Cols uint32
}

// Size is the table's footprint in bytes.
func (t Table) Size() uint32 { return t.Rows * t.Cols * 4 }

// F303FRAMTables is the parameter image layout, packed from offset 0.
var F303FRAMTables = []Table{
	{Name: "param_1", Off: 0, Rows: 10, Cols: 50},
	{Name: "param_2", Off: 2000, Rows: 2, Cols: 10},
}

// F303FRAMProbe updates parameter cell (0,0) of param_1 and round-trips a
// split half-word above the tables. It leaves the rest of the F-RAM alone.
const F303FRAMProbe = `# param_1 cell 0,0
table 0 10 50
tw 0 0 32345678
tr 0 0 32345678
w16s 0x1000 0xabcd
r16s 0x1000 0xabcd
r8 0x1002 0xab
`

// F303FRAMYAML is F303FRAM as a YAML profile, for host tools.
const F303FRAMYAML = `name: f303-fram
clock:
  source: hsi
  multiplier: 9
  predivider: 1
  ahb: 1
  apb1: 2
  apb2: 1
  flash_wait_states: 2
  prefetch: true
  ports: [D, E, F, G, H]
pins:
  - {pin: PH0, signal: A0}
  - {pin: PH1, signal: A1}
  - {pin: PF2, signal: A2}
  - {pin: PF3, signal: A3}
  - {pin: PF4, signal: A4}
  - {pin: PF5, signal: A5}
  - {pin: PF12, signal: A6}
  - {pin: PF13, signal: A7}
  - {pin: PF14, signal: A8}
  - {pin: PF15, signal: A9}
  - {pin: PG0, signal: A10}
  - {pin: PG1, signal: A11}
  - {pin: PG2, signal: A12}
  - {pin: PG3, signal: A13}
  - {pin: PG4, signal: A14}
  - {pin: PG5, signal: A15}
  - {pin: PD14, signal: D0}
  - {pin: PD15, signal: D1}
  - {pin: PD0, signal: D2}
  - {pin: PD1, signal: D3}
  - {pin: PE7, signal: D4}
  - {pin: PE8, signal: D5}
  - {pin: PE9, signal: D6}
  - {pin: PE10, signal: D7}
  - {pin: PE11, signal: D8}
  - {pin: PE12, signal: D9}
  - {pin: PE13, signal: D10}
  - {pin: PE14, signal: D11}
  - {pin: PE15, signal: D12}
  - {pin: PD8, signal: D13}
  - {pin: PD9, signal: D14}
  - {pin: PD10, signal: D15}
  - {pin: PD4, signal: NOE}
  - {pin: PD5, signal: NWE}
  - {pin: PD7, signal: NE1}
bank:
  bank: 1
  width: 16
timing:
  address_setup: 1
  address_hold: 1
  data_setup: 5
  mode: A
  for_hclk_hz: 72000000
probe: |
  # param_1 cell 0,0
  table 0 10 50
  tw 0 0 32345678
  tr 0 0 32345678
  w16s 0x1000 0xabcd
  r16s 0x1000 0xabcd
  r8 0x1002 0xab
`
