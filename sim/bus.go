package sim

import "fmcboot-go/hw/stm32f3"

const (
	windowStart = stm32f3.FMCBank1Base
	windowEnd   = stm32f3.FMCBank1Base + stm32f3.FMCSubBanks*stm32f3.FMCBankStride
)

func inWindow(addr uintptr) bool { return addr >= windowStart && addr < windowEnd }

// --- hw.Bus ---

func (b *Board) Load8(addr uintptr) uint8 {
	if inWindow(addr) {
		return uint8(b.readDevice(addr, 1))
	}
	return uint8(b.Load32(addr&^3) >> (8 * (addr & 3)))
}

func (b *Board) Store8(addr uintptr, v uint8) {
	if inWindow(addr) {
		b.writeDevice(addr, uint32(v), 1)
		return
	}
	sh := 8 * (addr & 3)
	old := b.Peek(addr &^ 3)
	b.Store32(addr&^3, old&^(0xFF<<sh)|uint32(v)<<sh)
}

func (b *Board) Load16(addr uintptr) uint16 {
	if inWindow(addr) {
		return uint16(b.readDevice(addr, 2))
	}
	return uint16(b.Load32(addr&^3) >> (8 * (addr & 2)))
}

func (b *Board) Store16(addr uintptr, v uint16) {
	if inWindow(addr) {
		b.writeDevice(addr, uint32(v), 2)
		return
	}
	sh := 8 * (addr & 2)
	old := b.Peek(addr &^ 3)
	b.Store32(addr&^3, old&^(0xFFFF<<sh)|uint32(v)<<sh)
}

func (b *Board) Load32(addr uintptr) uint32 {
	if inWindow(addr) {
		return b.readDevice(addr, 4)
	}
	switch addr {
	case stm32f3.RCC_CR:
		b.tickCR()
		return b.cr
	case stm32f3.RCC_CFGR:
		b.tickSwitch()
		return b.Peek(addr)
	}
	return b.Peek(addr)
}

func (b *Board) Store32(addr uintptr, v uint32) {
	if inWindow(addr) {
		b.writeDevice(addr, v, 4)
		return
	}
	b.writes++
	switch {
	case addr == stm32f3.RCC_CR:
		b.storeCR(v)
	case addr == stm32f3.RCC_CFGR:
		b.storeCFGR(v)
	case addr == stm32f3.RCC_CFGR2:
		if b.pllBusy() {
			if v != b.cfgr2 {
				b.violations++
			}
			return
		}
		b.cfgr2 = v
	case addr >= stm32f3.GPIOABase && addr < stm32f3.GPIOBase(stm32f3.NumPorts):
		port := stm32f3.Port((addr - stm32f3.GPIOABase) / stm32f3.GPIOStride)
		if b.regs[stm32f3.RCC_AHBENR]&stm32f3.IOPEN(port) == 0 {
			b.dropped++
			return
		}
		b.regs[addr] = v
	case addr >= stm32f3.FMCBase && addr < stm32f3.FMCBase+0x200:
		if b.regs[stm32f3.RCC_AHBENR]&stm32f3.AHBENR_FMCEN == 0 {
			b.dropped++
			return
		}
		if b.cfg.Faults.BankEnableStuck && addr == stm32f3.FMC_BCR(b.cfg.DeviceBank) {
			v &^= stm32f3.BCR_MBKEN
		}
		b.regs[addr] = v
	default:
		b.regs[addr] = v
	}
}

// --- RCC model ---

func (b *Board) pllBusy() bool { return b.cr&(stm32f3.CR_PLLON|stm32f3.CR_PLLRDY) != 0 }

func (b *Board) storeCR(v uint32) {
	rdy := uint32(stm32f3.CR_HSIRDY | stm32f3.CR_HSERDY | stm32f3.CR_PLLRDY)
	arm := func(f *flag, on bool) {
		if f.target != on {
			f.target = on
			f.wait = b.cfg.Latency
		}
	}
	arm(&b.hsi, v&stm32f3.CR_HSION != 0)
	arm(&b.hse, v&stm32f3.CR_HSEON != 0)
	arm(&b.pll, v&stm32f3.CR_PLLON != 0)
	b.cr = v&^rdy | b.cr&rdy
}

func (b *Board) tickCR() {
	step := func(f *flag, never bool, stuckOn bool, bit uint32) {
		if f.wait > 0 {
			f.wait--
			return
		}
		switch {
		case f.target:
			f.ready = !never
		case !stuckOn:
			f.ready = false
		}
		if f.ready {
			b.cr |= bit
		} else {
			b.cr &^= bit
		}
	}
	fs := b.cfg.Faults
	step(&b.hsi, fs.HSINeverReady, false, stm32f3.CR_HSIRDY)
	step(&b.hse, fs.HSENeverReady || b.cfg.HSEHz == 0, false, stm32f3.CR_HSERDY)
	var pllInputOK bool
	if (b.cfgr>>stm32f3.CFGR_PLLSRC_Pos)&stm32f3.CFGR_PLLSRC_Msk == stm32f3.PLLSRC_HSE_PREDIV {
		pllInputOK = b.hse.ready
	} else {
		pllInputOK = b.hsi.ready
	}
	step(&b.pll, fs.PLLNeverLocks || !pllInputOK, fs.PLLNeverStops, stm32f3.CR_PLLRDY)
}

func (b *Board) storeCFGR(v uint32) {
	const pllFields = stm32f3.CFGR_PLLSRC_Msk<<stm32f3.CFGR_PLLSRC_Pos |
		stm32f3.CFGR_PLLMUL_Msk<<stm32f3.CFGR_PLLMUL_Pos
	if b.pllBusy() && (v^b.cfgr)&pllFields != 0 {
		b.violations++
		v = v&^pllFields | b.cfgr&pllFields
	}
	swMask := uint32(stm32f3.CFGR_SW_Msk << stm32f3.CFGR_SW_Pos)
	if (v^b.cfgr)&swMask != 0 {
		b.swsWait = b.cfg.Latency
	}
	// SWS is read-only.
	b.cfgr = v &^ (stm32f3.CFGR_SWS_Msk << stm32f3.CFGR_SWS_Pos)
}

func (b *Board) tickSwitch() {
	sw := (b.cfgr >> stm32f3.CFGR_SW_Pos) & stm32f3.CFGR_SW_Msk
	if sw == b.sws || b.cfg.Faults.SwitchStuck {
		return
	}
	if b.swsWait > 0 {
		b.swsWait--
		return
	}
	var ok bool
	switch sw {
	case stm32f3.SW_HSI:
		ok = b.cr&stm32f3.CR_HSIRDY != 0
	case stm32f3.SW_HSE:
		ok = b.cr&stm32f3.CR_HSERDY != 0
	case stm32f3.SW_PLL:
		ok = b.cr&stm32f3.CR_PLLRDY != 0
	}
	if !ok {
		return
	}
	b.sws = sw
	lat := (b.regs[stm32f3.FLASH_ACR] >> stm32f3.ACR_LATENCY_Pos) & stm32f3.ACR_LATENCY_Msk
	if lat < minLatency(b.HCLKHz()) {
		b.flashFault = true
	}
}

// --- external device ---

func (b *Board) decode(addr uintptr) (int, bool) {
	bank := int((addr-windowStart)/stm32f3.FMCBankStride) + 1
	if b.regs[stm32f3.RCC_AHBENR]&stm32f3.AHBENR_FMCEN == 0 ||
		b.regs[stm32f3.FMC_BCR(bank)]&stm32f3.BCR_MBKEN == 0 ||
		bank != b.cfg.DeviceBank {
		b.undecoded++
		return 0, false
	}
	off := int(addr - stm32f3.FMCBankBase(bank))
	return off % len(b.device), true
}

func (b *Board) readDevice(addr uintptr, n int) uint32 {
	var v uint32
	for i := 0; i < n; i++ {
		off, ok := b.decode(addr + uintptr(i))
		if !ok {
			return 0
		}
		v |= uint32(b.device[off]&^b.stuckLow(off)) << (8 * i)
	}
	return v
}

func (b *Board) writeDevice(addr uintptr, v uint32, n int) {
	for i := 0; i < n; i++ {
		off, ok := b.decode(addr + uintptr(i))
		if !ok {
			return
		}
		b.device[off] = byte(v >> (8 * i))
	}
}

// stuckLow returns the stuck-at-zero bits for the byte lane of off.
func (b *Board) stuckLow(off int) byte {
	m := b.cfg.Faults.StuckLowDataMask
	if b.busWidth16() && off&1 == 1 {
		return byte(m >> 8)
	}
	return byte(m)
}

func (b *Board) busWidth16() bool {
	bcr := b.regs[stm32f3.FMC_BCR(b.cfg.DeviceBank)]
	return (bcr>>stm32f3.BCR_MWID_Pos)&stm32f3.BCR_MWID_Msk == stm32f3.MWID_16
}
