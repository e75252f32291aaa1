// Package clock brings the STM32F3 clock tree from reset to a PLL-driven
// system clock, in the order the RCC requires, and enables the peripheral
// clocks the external-memory path depends on.
package clock

import (
	"strconv"

	"fmcboot-go/errcode"
	"fmcboot-go/hw/stm32f3"
	"fmcboot-go/x/mathx"
)

// Source is the PLL input.
type Source uint8

const (
	SourceHSI     Source = iota // HSI / PREDIV
	SourceHSIDiv2               // HSI / 2, PREDIV ignored
	SourceHSE                   // HSE / PREDIV
)

func (s Source) String() string {
	switch s {
	case SourceHSI:
		return "hsi"
	case SourceHSIDiv2:
		return "hsi_div2"
	case SourceHSE:
		return "hse"
	default:
		return "unknown"
	}
}

// ParseSource accepts the String forms.
func ParseSource(s string) (Source, bool) {
	for _, c := range []Source{SourceHSI, SourceHSIDiv2, SourceHSE} {
		if c.String() == s {
			return c, true
		}
	}
	return 0, false
}

// SysSource is the value of RCC_CFGR.SW/SWS.
type SysSource uint8

const (
	SysHSI SysSource = stm32f3.SW_HSI
	SysHSE SysSource = stm32f3.SW_HSE
	SysPLL SysSource = stm32f3.SW_PLL
)

func (s SysSource) String() string {
	switch s {
	case SysHSI:
		return "hsi"
	case SysHSE:
		return "hse"
	case SysPLL:
		return "pll"
	default:
		return "unknown"
	}
}

// Plan is the requested clock tree. Zero Predivider/AHB/APB1/APB2 mean 1.
type Plan struct {
	Source     Source
	HSEHz      uint32 // crystal frequency, SourceHSE only
	Multiplier uint32 // 2..16
	Predivider uint32 // 1..16
	AHB        uint32 // 1,2,4,8,16,64,128,256,512
	APB1       uint32 // 1,2,4,8,16
	APB2       uint32 // 1,2,4,8,16

	FlashWaitStates uint32 // 0..2, at least MinWaitStates(HCLK)
	Prefetch        bool

	// Ports are the GPIO banks to clock once the tree is up.
	Ports []stm32f3.Port
}

// Active is the clock tree read back from the RCC after bring-up.
type Active struct {
	Source          SysSource
	SysClkHz        uint32
	HCLKHz          uint32
	PCLK1Hz         uint32
	PCLK2Hz         uint32
	FlashWaitStates uint32
}

// MinWaitStates is the flash latency needed at hclk (RM0316 §3.2.1).
func MinWaitStates(hclk uint32) uint32 {
	switch {
	case hclk <= 24_000_000:
		return 0
	case hclk <= 48_000_000:
		return 1
	default:
		return 2
	}
}

func orOne(v uint32) uint32 {
	if v == 0 {
		return 1
	}
	return v
}

func invalid(msg string) error { return errcode.New(errcode.InvalidParams, "clock.plan", msg) }

// Expect validates the plan and returns the tree it will produce.
func (p Plan) Expect() (Active, error) {
	if !mathx.Between(p.Multiplier, 2, 16) {
		return Active{}, invalid("multiplier must be 2..16, got " + utoa(p.Multiplier))
	}
	pre := orOne(p.Predivider)
	if pre > 16 {
		return Active{}, invalid("predivider must be 1..16, got " + utoa(pre))
	}
	var in uint32
	switch p.Source {
	case SourceHSI:
		in = stm32f3.HSIHz / pre
	case SourceHSIDiv2:
		in = stm32f3.HSIHz / 2
	case SourceHSE:
		if !mathx.Between(p.HSEHz, 4_000_000, 32_000_000) {
			return Active{}, invalid("hse frequency must be 4..32 MHz")
		}
		in = p.HSEHz / pre
	default:
		return Active{}, invalid("unknown pll source")
	}
	if !mathx.Between(in, 1_000_000, 24_000_000) {
		return Active{}, invalid("pll input " + utoa(in) + " Hz outside 1..24 MHz")
	}
	sys := in * p.Multiplier
	if !mathx.Between(sys, 16_000_000, stm32f3.MaxSysClkHz) {
		return Active{}, invalid("pll output " + utoa(sys) + " Hz outside 16..72 MHz")
	}
	if _, ok := hpreCode(orOne(p.AHB)); !ok {
		return Active{}, invalid("ahb prescaler " + utoa(p.AHB) + " not encodable")
	}
	if _, ok := ppreCode(orOne(p.APB1)); !ok {
		return Active{}, invalid("apb1 prescaler " + utoa(p.APB1) + " not encodable")
	}
	if _, ok := ppreCode(orOne(p.APB2)); !ok {
		return Active{}, invalid("apb2 prescaler " + utoa(p.APB2) + " not encodable")
	}
	a := Active{
		Source:          SysPLL,
		SysClkHz:        sys,
		HCLKHz:          sys / orOne(p.AHB),
		FlashWaitStates: p.FlashWaitStates,
	}
	a.PCLK1Hz = a.HCLKHz / orOne(p.APB1)
	a.PCLK2Hz = a.HCLKHz / orOne(p.APB2)
	if a.PCLK1Hz > stm32f3.MaxPCLK1Hz {
		return Active{}, invalid("pclk1 " + utoa(a.PCLK1Hz) + " Hz above 36 MHz")
	}
	if a.PCLK2Hz > stm32f3.MaxPCLK2Hz {
		return Active{}, invalid("pclk2 " + utoa(a.PCLK2Hz) + " Hz above 72 MHz")
	}
	if p.FlashWaitStates > 2 {
		return Active{}, invalid("flash wait states must be 0..2")
	}
	if need := MinWaitStates(a.HCLKHz); p.FlashWaitStates < need {
		return Active{}, invalid("flash needs " + utoa(need) + " wait states at " + utoa(a.HCLKHz) + " Hz")
	}
	for _, port := range p.Ports {
		if port >= stm32f3.NumPorts {
			return Active{}, invalid("unknown gpio port")
		}
	}
	return a, nil
}

// Validate reports whether the plan can be applied.
func (p Plan) Validate() error {
	_, err := p.Expect()
	return err
}

// hpreCode encodes an AHB divider into RCC_CFGR.HPRE.
func hpreCode(div uint32) (uint32, bool) {
	n, ok := mathx.Log2(div)
	switch {
	case !ok || n > 9 || n == 5:
		return 0, false
	case n == 0:
		return 0, true
	case n < 5:
		return 0b1000 | uint32(n-1), true
	default:
		return 0b1000 | uint32(n-2), true // /32 is skipped
	}
}

// ppreCode encodes an APB divider into RCC_CFGR.PPREx.
func ppreCode(div uint32) (uint32, bool) {
	n, ok := mathx.Log2(div)
	switch {
	case !ok || n > 4:
		return 0, false
	case n == 0:
		return 0, true
	default:
		return 0b100 | uint32(n-1), true
	}
}

func hpreDiv(code uint32) uint32 {
	if code&0b1000 == 0 {
		return 1
	}
	n := code&0b111 + 1
	if n >= 5 {
		n++
	}
	return 1 << n
}

func ppreDiv(code uint32) uint32 {
	if code&0b100 == 0 {
		return 1
	}
	return 1 << (code&0b11 + 1)
}

func utoa(v uint32) string { return strconv.FormatUint(uint64(v), 10) }
