// Package fmc programs the flexible memory controller's NOR/SRAM sub-banks
// for an asynchronous, non-multiplexed device and hands out the resulting
// address window.
package fmc

import (
	"strconv"

	"fmcboot-go/clock"
	"fmcboot-go/errcode"
	"fmcboot-go/extmem"
	"fmcboot-go/hw"
	"fmcboot-go/hw/stm32f3"
	"fmcboot-go/pinmux"
)

// Class is the memory type (BCR.MTYP).
type Class uint8

const (
	ClassSRAM  Class = stm32f3.MTYP_SRAM
	ClassPSRAM Class = stm32f3.MTYP_PSRAM
	ClassNOR   Class = stm32f3.MTYP_NOR
)

func (c Class) String() string {
	switch c {
	case ClassSRAM:
		return "sram"
	case ClassPSRAM:
		return "psram"
	case ClassNOR:
		return "nor"
	default:
		return "unknown"
	}
}

// BankConfig is the FMC_BCRx content for one sub-bank.
type BankConfig struct {
	Bank        int   // 1..4
	Enabled     bool  // MBKEN
	Class       Class // only ClassSRAM is supported
	Width       uint8 // data bus width in bits: 8 or 16
	Burst       bool
	Wrap        bool
	Multiplexed bool // not supported
	Extended    bool // separate write timing in BWTR
	AsyncWait   bool

	// WriteTiming is committed to BWTR when Extended is set. Nil reuses
	// the read timing.
	WriteTiming *BankTiming
}

// DefaultConfig is an enabled 16-bit SRAM bank.
func DefaultConfig(bank int) BankConfig {
	return BankConfig{Bank: bank, Enabled: true, Class: ClassSRAM, Width: 16}
}

func (c BankConfig) word() uint32 {
	w := uint32(stm32f3.BCR_Reserved7 | stm32f3.BCR_WREN)
	w |= uint32(c.Class) << stm32f3.BCR_MTYP_Pos
	if c.Width == 16 {
		w |= stm32f3.MWID_16 << stm32f3.BCR_MWID_Pos
	}
	if c.Enabled {
		w |= stm32f3.BCR_MBKEN
	}
	if c.Burst {
		w |= stm32f3.BCR_BURSTEN
	}
	if c.Wrap {
		w |= stm32f3.BCR_WRAPMOD
	}
	if c.Multiplexed {
		w |= stm32f3.BCR_MUXEN
	}
	if c.Extended {
		w |= stm32f3.BCR_EXTMOD
	}
	if c.AsyncWait {
		w |= stm32f3.BCR_ASYNCWAIT
	}
	return w
}

type bank struct {
	cfg    BankConfig
	timing BankTiming
	window *extmem.Window
}

// Controller owns the FMC sub-banks for one clock configuration and one pin
// wiring. A new clock tree needs a new Controller and recomputed timing.
type Controller struct {
	hc     *hw.Context
	clk    clock.Active
	wiring pinmux.Wiring
	banks  [stm32f3.FMCSubBanks]*bank
}

// New returns a Controller for the active clock tree and the bound pins.
func New(hc *hw.Context, clk clock.Active, wiring pinmux.Wiring) *Controller {
	return &Controller{hc: hc, clk: clk, wiring: wiring}
}

func unsupported(msg string) error {
	return errcode.New(errcode.UnsupportedConfig, "fmc.commit", msg)
}

func bankName(n int) string { return "bank " + strconv.Itoa(n) }

func validBank(n int) bool { return n >= 1 && n <= stm32f3.FMCSubBanks }

// check validates cfg and t against the wiring and clock without touching
// any register.
func (c *Controller) check(cfg BankConfig, t BankTiming) error {
	if !validBank(cfg.Bank) {
		return unsupported("bank must be 1.." + strconv.Itoa(stm32f3.FMCSubBanks) + ", got " + strconv.Itoa(cfg.Bank))
	}
	if c.banks[cfg.Bank-1] != nil {
		return unsupported(bankName(cfg.Bank) + " already committed; disable it first")
	}
	if cfg.Class != ClassSRAM {
		return unsupported("memory class " + cfg.Class.String() + " not supported")
	}
	if cfg.Multiplexed {
		return unsupported("multiplexed address/data not supported")
	}
	if cfg.Width != 8 && cfg.Width != 16 {
		return unsupported("data width must be 8 or 16, got " + strconv.Itoa(int(cfg.Width)))
	}
	if !c.wiring.DataContiguous(int(cfg.Width)) {
		return unsupported(strconv.Itoa(int(cfg.Width)) + "-bit bank needs exactly D0..D" +
			strconv.Itoa(int(cfg.Width)-1) + ", wiring has " + strconv.Itoa(c.wiring.DataLines()) + " data lines")
	}
	if !c.wiring.OutputEnable || !c.wiring.WriteEnable {
		return unsupported("NOE and NWE must both be bound")
	}
	if !c.wiring.HasChipSelect(cfg.Bank) {
		return unsupported("NE" + strconv.Itoa(cfg.Bank) + " not bound")
	}
	if err := t.Validate(); err != nil {
		return err
	}
	if cfg.Extended && cfg.WriteTiming != nil {
		if err := cfg.WriteTiming.Validate(); err != nil {
			return err
		}
	}
	for _, tt := range []*BankTiming{&t, cfg.WriteTiming} {
		if tt != nil && tt.ForHCLK != 0 && tt.ForHCLK != c.clk.HCLKHz {
			return errcode.New(errcode.StaleTiming, "fmc.commit",
				"timing computed for "+strconv.FormatUint(uint64(tt.ForHCLK), 10)+
					" Hz, bus runs at "+strconv.FormatUint(uint64(c.clk.HCLKHz), 10)+" Hz")
		}
	}
	return nil
}

// Commit validates the bank configuration and timing, then programs BCRx,
// BTRx and (in extended mode) BWTRx in that order. Nothing is written if
// validation fails. An enabled bank is read back and must report MBKEN.
func (c *Controller) Commit(cfg BankConfig, t BankTiming) error {
	if err := c.check(cfg, t); err != nil {
		return err
	}
	if !c.hc.Reg(stm32f3.RCC_AHBENR).HasBits(stm32f3.AHBENR_FMCEN) {
		return errcode.New(errcode.NotReady, "fmc.commit", "FMC clock disabled")
	}

	bcr := c.hc.Reg(stm32f3.FMC_BCR(cfg.Bank))
	bcr.Set(cfg.word())
	c.hc.Reg(stm32f3.FMC_BTR(cfg.Bank)).Set(t.word())
	if cfg.Extended {
		wt := t
		if cfg.WriteTiming != nil {
			wt = *cfg.WriteTiming
		}
		c.hc.Reg(stm32f3.FMC_BWTR(cfg.Bank)).Set(wt.word())
	}
	if cfg.Enabled && !bcr.HasBits(stm32f3.BCR_MBKEN) {
		return errcode.New(errcode.Mismatch, "fmc.commit", bankName(cfg.Bank)+" enable did not read back")
	}

	b := &bank{cfg: cfg, timing: t}
	if cfg.Enabled {
		b.window = extmem.NewWindow(c.hc.Bus, stm32f3.FMCBankBase(cfg.Bank), c.span(cfg))
	}
	c.banks[cfg.Bank-1] = b
	c.hc.Log.Printf("fmc: %s %s %d-bit addset=%d addhld=%d datast=%d busturn=%d mode=%s",
		bankName(cfg.Bank), cfg.Class, cfg.Width, t.AddressSetup, t.AddressHold, t.DataSetup, t.BusTurnaround, t.Mode)
	return nil
}

// span is the number of bytes the bound address lines reach: each address
// line selects a bus-width word.
func (c *Controller) span(cfg BankConfig) uint32 {
	lines := c.wiring.AddressLines
	bytes := uint64(cfg.Width/8) << lines
	if bytes > stm32f3.FMCBankStride {
		bytes = stm32f3.FMCBankStride
	}
	return uint32(bytes)
}

// Window returns the live window of an enabled, committed bank.
func (c *Controller) Window(n int) (*extmem.Window, error) {
	if !validBank(n) {
		return nil, errcode.New(errcode.InvalidParams, "fmc.window", bankName(n))
	}
	b := c.banks[n-1]
	if b == nil || b.window == nil {
		return nil, errcode.New(errcode.NotReady, "fmc.window", bankName(n)+" not enabled")
	}
	return b.window, nil
}

// Timing returns the committed read timing of bank n.
func (c *Controller) Timing(n int) (BankTiming, bool) {
	if !validBank(n) || c.banks[n-1] == nil {
		return BankTiming{}, false
	}
	return c.banks[n-1].timing, true
}

// Disable clears MBKEN on bank n and closes its window. Disabling an
// uncommitted bank only clears the bit.
func (c *Controller) Disable(n int) error {
	if !validBank(n) {
		return errcode.New(errcode.InvalidParams, "fmc.disable", bankName(n))
	}
	if !c.hc.Reg(stm32f3.RCC_AHBENR).HasBits(stm32f3.AHBENR_FMCEN) {
		return errcode.New(errcode.NotReady, "fmc.disable", "FMC clock disabled")
	}
	c.hc.Reg(stm32f3.FMC_BCR(n)).ClearBits(stm32f3.BCR_MBKEN)
	if b := c.banks[n-1]; b != nil && b.window != nil {
		b.window.Close()
	}
	c.banks[n-1] = nil
	c.hc.Log.Printf("fmc: %s disabled", bankName(n))
	return nil
}
