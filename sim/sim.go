// Package sim models the STM32F303xE peripherals used during external-memory
// bring-up, together with an asynchronous SRAM-like device wired to FMC
// bank 1. It implements hw.Bus so the sequencers run unchanged on the host.
//
// The model is intentionally narrow: ready flags follow their enable bits
// after a fixed number of status reads, the active clock source lags the
// requested one, PLL inputs are locked while the PLL runs, and peripherals
// ignore writes while their clock is gated. Faults can be injected for each
// readiness point.
package sim

import (
	"fmcboot-go/hw"
	"fmcboot-go/hw/stm32f3"
)

// Compile-time check.
var _ hw.Bus = (*Board)(nil)

// Faults selects hardware misbehaviour.
type Faults struct {
	HSINeverReady   bool
	HSENeverReady   bool
	PLLNeverLocks   bool
	PLLNeverStops   bool // PLLRDY stays set after PLLON is cleared
	SwitchStuck     bool // SWS never follows SW
	BankEnableStuck bool // MBKEN reads back as 0
	// StuckLowDataMask forces these data bits to 0 on every device read.
	StuckLowDataMask uint16
}

// Config describes the simulated board.
type Config struct {
	// Latency is the number of status reads before a flag follows its
	// enable bit. Zero means 3.
	Latency int
	// HSEHz is the fitted crystal; zero means none (HSE never becomes ready).
	HSEHz uint32
	// DeviceBank is the FMC sub-bank the device's chip select is wired to.
	// Zero means 1.
	DeviceBank int
	// DeviceSize in bytes. Zero means 128 KiB. Accesses alias modulo size.
	DeviceSize int
	Faults     Faults
}

type flag struct {
	target bool
	ready  bool
	wait   int
}

// Board is the simulated MCU plus external device.
type Board struct {
	cfg Config

	regs map[uintptr]uint32

	cr, cfgr, cfgr2 uint32
	hsi, hse, pll   flag
	sws             uint32
	swsWait         int

	device []byte

	writes     int
	dropped    int
	undecoded  int
	violations int
	flashFault bool
}

// New returns a Board in its reset state.
func New(cfg Config) *Board {
	if cfg.Latency <= 0 {
		cfg.Latency = 3
	}
	if cfg.DeviceBank == 0 {
		cfg.DeviceBank = 1
	}
	if cfg.DeviceSize <= 0 {
		cfg.DeviceSize = 128 << 10
	}
	b := &Board{
		cfg:    cfg,
		regs:   make(map[uintptr]uint32),
		device: make([]byte, cfg.DeviceSize),
	}
	b.reset()
	return b
}

func (b *Board) reset() {
	// HSI runs out of reset.
	b.cr = stm32f3.CR_HSION | stm32f3.CR_HSIRDY
	b.hsi = flag{target: true, ready: true}
	b.cfgr, b.cfgr2, b.sws = 0, 0, stm32f3.SW_HSI
	b.regs[stm32f3.FLASH_ACR] = 0
	for n := 1; n <= stm32f3.FMCSubBanks; n++ {
		reset := uint32(stm32f3.BCRxReset)
		if n == 1 {
			reset = stm32f3.BCR1Reset
		}
		b.regs[stm32f3.FMC_BCR(n)] = reset
		b.regs[stm32f3.FMC_BTR(n)] = stm32f3.BTRReset
		b.regs[stm32f3.FMC_BWTR(n)] = stm32f3.BWTRReset
	}
}

// --- observation helpers for tests and tools ---

// Writes counts register stores (window stores excluded).
func (b *Board) Writes() int { return b.writes }

// DroppedWrites counts stores ignored because the peripheral clock was off.
func (b *Board) DroppedWrites() int { return b.dropped }

// Undecoded counts window accesses made while the bank was not enabled.
func (b *Board) Undecoded() int { return b.undecoded }

// ConfigViolations counts PLL input writes attempted while the PLL ran.
func (b *Board) ConfigViolations() int { return b.violations }

// FlashFault reports whether the core was switched to a clock the flash
// latency could not sustain.
func (b *Board) FlashFault() bool { return b.flashFault }

// Device exposes the external device contents.
func (b *Board) Device() []byte { return b.device }

// Peek reads a register without advancing any ready-flag timers.
func (b *Board) Peek(addr uintptr) uint32 {
	switch addr {
	case stm32f3.RCC_CR:
		return b.cr
	case stm32f3.RCC_CFGR:
		return b.cfgr&^(stm32f3.CFGR_SWS_Msk<<stm32f3.CFGR_SWS_Pos) | b.sws<<stm32f3.CFGR_SWS_Pos
	case stm32f3.RCC_CFGR2:
		return b.cfgr2
	}
	return b.regs[addr]
}

// SysClkHz reports the frequency of the active system clock.
func (b *Board) SysClkHz() uint32 {
	switch b.sws {
	case stm32f3.SW_HSE:
		return b.cfg.HSEHz
	case stm32f3.SW_PLL:
		return b.pllOutHz()
	default:
		return stm32f3.HSIHz
	}
}

// HCLKHz reports the AHB clock.
func (b *Board) HCLKHz() uint32 {
	return b.SysClkHz() / ahbDiv((b.cfgr>>stm32f3.CFGR_HPRE_Pos)&stm32f3.CFGR_HPRE_Msk)
}

func (b *Board) pllOutHz() uint32 {
	mul := (b.cfgr>>stm32f3.CFGR_PLLMUL_Pos)&stm32f3.CFGR_PLLMUL_Msk + 2
	if mul > 16 {
		mul = 16
	}
	pre := (b.cfgr2>>stm32f3.CFGR2_PREDIV_Pos)&stm32f3.CFGR2_PREDIV_Msk + 1
	var in uint32
	switch (b.cfgr >> stm32f3.CFGR_PLLSRC_Pos) & stm32f3.CFGR_PLLSRC_Msk {
	case stm32f3.PLLSRC_HSI_DIV2:
		in = stm32f3.HSIHz / 2
	case stm32f3.PLLSRC_HSI_PREDIV:
		in = stm32f3.HSIHz / pre
	default:
		in = b.cfg.HSEHz / pre
	}
	return in * mul
}

func ahbDiv(code uint32) uint32 {
	if code&0x8 == 0 {
		return 1
	}
	shift := code&0x7 + 1
	if shift >= 5 {
		shift++ // /32 is not encodable; 1100 is /64
	}
	return 1 << shift
}

func minLatency(hclk uint32) uint32 {
	switch {
	case hclk <= 24_000_000:
		return 0
	case hclk <= 48_000_000:
		return 1
	default:
		return 2
	}
}
