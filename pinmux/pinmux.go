// Package pinmux routes GPIO pins to the FMC: each binding puts one pin in
// alternate-function mode with the FMC function selected and the requested
// output speed.
package pinmux

import (
	"math/bits"
	"sort"
	"strconv"

	"fmcboot-go/errcode"
	"fmcboot-go/hw"
	"fmcboot-go/hw/stm32f3"
)

// Binding routes one pin to one external-memory signal. Bindings are
// declared once at start-up and never changed.
type Binding struct {
	Pin    Pin
	Signal Signal
	AF     uint8
	Speed  Speed
}

// Bind is the common case: AF12 at high speed.
func Bind(p Pin, s Signal) Binding {
	return Binding{Pin: p, Signal: s, AF: AFFMC, Speed: SpeedHigh}
}

// Wiring summarises a validated binding set.
type Wiring struct {
	AddressLines int    // highest bound A index + 1
	Data         uint16 // bit n set for D[n]
	ByteLanes    uint8  // bit n set for NBL[n]
	ChipSelects  uint8  // bit n-1 set for NE[n]
	OutputEnable bool
	WriteEnable  bool
	Ports        []stm32f3.Port // distinct, ascending
}

// DataLines is the number of bound data lines.
func (w Wiring) DataLines() int { return bits.OnesCount16(w.Data) }

// DataContiguous reports whether exactly D0..D(n-1) are bound.
func (w Wiring) DataContiguous(n int) bool {
	return n > 0 && n <= 16 && uint32(w.Data) == uint32(1)<<n-1
}

// HasChipSelect reports whether NE[bank] is bound.
func (w Wiring) HasChipSelect(bank int) bool {
	return bank >= 1 && bank <= 4 && w.ChipSelects&(1<<(bank-1)) != 0
}

func conflict(msg string) error {
	return errcode.New(errcode.ConflictingBinding, "pinmux", msg)
}

func unsupported(msg string) error {
	return errcode.New(errcode.UnsupportedAltFunc, "pinmux", msg)
}

// Summarize validates bindings without touching hardware. Repeated pins and
// signals are reported before anything else is checked.
func Summarize(bindings []Binding) (Wiring, error) {
	var w Wiring
	pins := make(map[Pin]Signal, len(bindings))
	sigs := make(map[Signal]Pin, len(bindings))
	for _, b := range bindings {
		if prev, dup := pins[b.Pin]; dup {
			return Wiring{}, conflict(b.Pin.String() + " bound to both " + prev.String() + " and " + b.Signal.String())
		}
		pins[b.Pin] = b.Signal
	}
	for _, b := range bindings {
		if prev, dup := sigs[b.Signal]; dup {
			return Wiring{}, conflict(b.Signal.String() + " bound on both " + prev.String() + " and " + b.Pin.String())
		}
		sigs[b.Signal] = b.Pin
	}

	var ports uint8
	for _, b := range bindings {
		if b.Pin.Port >= stm32f3.NumPorts || b.Pin.Index > 15 {
			return Wiring{}, errcode.New(errcode.UnknownPin, "pinmux", b.Pin.String())
		}
		if !b.Signal.valid() {
			return Wiring{}, errcode.New(errcode.UnknownSignal, "pinmux", b.Signal.String())
		}
		if b.AF > 15 {
			return Wiring{}, unsupported(b.Pin.String() + ": AF" + strconv.Itoa(int(b.AF)) + " does not exist")
		}
		if b.Speed > SpeedHigh {
			return Wiring{}, errcode.New(errcode.InvalidParams, "pinmux", b.Pin.String()+": unknown speed")
		}
		carried, ok := fmcPins[b.Pin]
		switch {
		case b.AF != AFFMC:
			return Wiring{}, unsupported(b.Pin.String() + ": AF" + strconv.Itoa(int(b.AF)) + " does not route " + b.Signal.String())
		case !ok:
			return Wiring{}, unsupported(b.Pin.String() + " has no FMC function")
		case carried != b.Signal:
			return Wiring{}, unsupported(b.Pin.String() + " carries " + carried.String() + ", not " + b.Signal.String())
		}

		ports |= 1 << b.Pin.Port
		switch b.Signal.Kind {
		case SigAddress:
			if n := int(b.Signal.Index) + 1; n > w.AddressLines {
				w.AddressLines = n
			}
		case SigData:
			w.Data |= 1 << b.Signal.Index
		case SigOutputEnable:
			w.OutputEnable = true
		case SigWriteEnable:
			w.WriteEnable = true
		case SigChipSelect:
			w.ChipSelects |= 1 << (b.Signal.Index - 1)
		case SigByteLane:
			w.ByteLanes |= 1 << b.Signal.Index
		}
	}
	for p := stm32f3.Port(0); p < stm32f3.NumPorts; p++ {
		if ports&(1<<p) != 0 {
			w.Ports = append(w.Ports, p)
		}
	}
	return w, nil
}

// Apply validates the whole set, then programs every pin. Nothing is written
// if any binding is rejected or any bound port is not clocked.
func Apply(hc *hw.Context, bindings []Binding) (Wiring, error) {
	w, err := Summarize(bindings)
	if err != nil {
		return Wiring{}, err
	}
	ahb := hc.Reg(stm32f3.RCC_AHBENR).Get()
	for _, p := range w.Ports {
		if ahb&stm32f3.IOPEN(p) == 0 {
			return Wiring{}, errcode.New(errcode.NotReady, "pinmux", "port "+p.String()+" clock disabled")
		}
	}

	// Program ports in a stable order so register traces are reproducible.
	sorted := append([]Binding(nil), bindings...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Pin.Port != sorted[j].Pin.Port {
			return sorted[i].Pin.Port < sorted[j].Pin.Port
		}
		return sorted[i].Pin.Index < sorted[j].Pin.Index
	})
	for _, b := range sorted {
		configure(hc, b)
	}
	hc.Log.Printf("pinmux: %d pins on %d ports (A lines=%d, D lines=%d)",
		len(bindings), len(w.Ports), w.AddressLines, w.DataLines())
	return w, nil
}

func configure(hc *hw.Context, b Binding) {
	base := stm32f3.GPIOBase(b.Pin.Port)
	n := b.Pin.Index
	afr := hc.Reg(base + stm32f3.GPIO_AFRL)
	if n >= 8 {
		afr = hc.Reg(base + stm32f3.GPIO_AFRH)
	}
	afr.ReplaceBits(uint32(b.AF), 0xF, (n%8)*4)
	hc.Reg(base+stm32f3.GPIO_OSPEEDR).ReplaceBits(b.Speed.ospeedr(), 0b11, n*2)
	hc.Reg(base+stm32f3.GPIO_MODER).ReplaceBits(stm32f3.MODER_Alternate, 0b11, n*2)
}
