package pinmux

import "fmcboot-go/hw/stm32f3"

// AFFMC is the alternate function routing a pin to the FMC.
const AFFMC = 12

func pin(port stm32f3.Port, n uint8) Pin { return Pin{Port: port, Index: n} }

// fmcPins is the STM32F303xE FMC pinout on AF12 (DS9118 table 14). A pin
// carries exactly one FMC signal.
var fmcPins = func() map[Pin]Signal {
	const (
		pd = stm32f3.PortD
		pe = stm32f3.PortE
		pf = stm32f3.PortF
		pg = stm32f3.PortG
		ph = stm32f3.PortH
	)
	m := map[Pin]Signal{
		pin(ph, 0): A(0), pin(ph, 1): A(1),
		pin(pf, 2): A(2), pin(pf, 3): A(3), pin(pf, 4): A(4), pin(pf, 5): A(5),
		pin(pf, 12): A(6), pin(pf, 13): A(7), pin(pf, 14): A(8), pin(pf, 15): A(9),
		pin(pg, 0): A(10), pin(pg, 1): A(11), pin(pg, 2): A(12), pin(pg, 3): A(13),
		pin(pg, 4): A(14), pin(pg, 5): A(15),
		pin(pd, 11): A(16), pin(pd, 12): A(17), pin(pd, 13): A(18),
		pin(pe, 3): A(19), pin(pe, 4): A(20), pin(pe, 5): A(21), pin(pe, 6): A(22),
		pin(pe, 2): A(23), pin(pg, 13): A(24), pin(pg, 14): A(25),

		pin(pd, 14): D(0), pin(pd, 15): D(1), pin(pd, 0): D(2), pin(pd, 1): D(3),
		pin(pd, 8): D(13), pin(pd, 9): D(14), pin(pd, 10): D(15),

		pin(pd, 4): NOE, pin(pd, 5): NWE,
		pin(pd, 7): NE(1), pin(pg, 9): NE(2), pin(pg, 10): NE(3), pin(pg, 12): NE(4),
		pin(pe, 0): NBL(0), pin(pe, 1): NBL(1),
	}
	// D4..D12 sit on PE7..PE15.
	for i := uint8(0); i <= 8; i++ {
		m[pin(pe, 7+i)] = D(4 + i)
	}
	return m
}()

// FMCSignal reports which FMC signal p carries on AF12.
func FMCSignal(p Pin) (Signal, bool) {
	s, ok := fmcPins[p]
	return s, ok
}

// PinFor returns the pin carrying s on AF12.
func PinFor(s Signal) (Pin, bool) {
	for p, sig := range fmcPins {
		if sig == s {
			return p, true
		}
	}
	return Pin{}, false
}
