package pinmux

import (
	"strconv"
	"strings"

	"fmcboot-go/errcode"
	"fmcboot-go/hw/stm32f3"
)

// SignalKind is the FMC signal class a pin carries.
type SignalKind uint8

const (
	SigAddress      SignalKind = iota + 1 // FMC_A[n]
	SigData                               // FMC_D[n]
	SigOutputEnable                       // FMC_NOE
	SigWriteEnable                        // FMC_NWE
	SigChipSelect                         // FMC_NE[n], n = 1..4
	SigByteLane                           // FMC_NBL[n], n = 0..1
)

// Signal is one external-memory bus signal.
type Signal struct {
	Kind  SignalKind
	Index uint8
}

func A(n uint8) Signal   { return Signal{SigAddress, n} }
func D(n uint8) Signal   { return Signal{SigData, n} }
func NE(n uint8) Signal  { return Signal{SigChipSelect, n} }
func NBL(n uint8) Signal { return Signal{SigByteLane, n} }

var (
	NOE = Signal{Kind: SigOutputEnable}
	NWE = Signal{Kind: SigWriteEnable}
)

func (s Signal) String() string {
	n := strconv.Itoa(int(s.Index))
	switch s.Kind {
	case SigAddress:
		return "A" + n
	case SigData:
		return "D" + n
	case SigOutputEnable:
		return "NOE"
	case SigWriteEnable:
		return "NWE"
	case SigChipSelect:
		return "NE" + n
	case SigByteLane:
		return "NBL" + n
	default:
		return "?"
	}
}

// ParseSignal accepts "A7", "D13", "NOE", "NWE", "NE1", "NBL0", with an
// optional "FMC_" prefix (case-insensitive).
func ParseSignal(s string) (Signal, error) {
	u := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "FMC_")
	switch u {
	case "NOE", "OE":
		return NOE, nil
	case "NWE", "WE":
		return NWE, nil
	}
	var kind SignalKind
	var num string
	switch {
	case strings.HasPrefix(u, "NBL"):
		kind, num = SigByteLane, u[3:]
	case strings.HasPrefix(u, "NE"):
		kind, num = SigChipSelect, u[2:]
	case strings.HasPrefix(u, "A"):
		kind, num = SigAddress, u[1:]
	case strings.HasPrefix(u, "D"):
		kind, num = SigData, u[1:]
	default:
		return Signal{}, errcode.New(errcode.UnknownSignal, "pinmux.signal", s)
	}
	n, err := strconv.ParseUint(num, 10, 8)
	if err != nil {
		return Signal{}, errcode.New(errcode.UnknownSignal, "pinmux.signal", s)
	}
	sig := Signal{Kind: kind, Index: uint8(n)}
	if !sig.valid() {
		return Signal{}, errcode.New(errcode.UnknownSignal, "pinmux.signal", s)
	}
	return sig, nil
}

func (s Signal) valid() bool {
	switch s.Kind {
	case SigAddress:
		return s.Index <= 25
	case SigData:
		return s.Index <= 15
	case SigOutputEnable, SigWriteEnable:
		return s.Index == 0
	case SigChipSelect:
		return s.Index >= 1 && s.Index <= 4
	case SigByteLane:
		return s.Index <= 1
	default:
		return false
	}
}

// Pin is a GPIO pin.
type Pin struct {
	Port  stm32f3.Port
	Index uint8
}

func (p Pin) String() string { return p.Port.String() + strconv.Itoa(int(p.Index)) }

// ParsePin accepts "PD14", "D14" or "GPIOD14".
func ParsePin(s string) (Pin, error) {
	u := strings.ToUpper(strings.TrimSpace(s))
	u = strings.TrimPrefix(u, "GPIO")
	u = strings.TrimPrefix(u, "P")
	if len(u) < 2 {
		return Pin{}, errcode.New(errcode.UnknownPin, "pinmux.pin", s)
	}
	port, ok := stm32f3.ParsePort(u[:1])
	if !ok {
		return Pin{}, errcode.New(errcode.UnknownPin, "pinmux.pin", s)
	}
	n, err := strconv.ParseUint(u[1:], 10, 8)
	if err != nil || n > 15 {
		return Pin{}, errcode.New(errcode.UnknownPin, "pinmux.pin", s)
	}
	return Pin{Port: port, Index: uint8(n)}, nil
}

// Speed is the output speed class (GPIOx_OSPEEDR). The F303 has three.
type Speed uint8

const (
	SpeedLow Speed = iota
	SpeedMedium
	SpeedHigh
)

func (s Speed) String() string {
	switch s {
	case SpeedLow:
		return "low"
	case SpeedMedium:
		return "medium"
	case SpeedHigh:
		return "high"
	default:
		return "unknown"
	}
}

// ospeedr is the two-bit field value: x0 low, 01 medium, 11 high.
func (s Speed) ospeedr() uint32 {
	switch s {
	case SpeedMedium:
		return 0b01
	case SpeedHigh:
		return 0b11
	default:
		return 0b00
	}
}

// ParseSpeed accepts the String forms; "" means high. "very_high" is taken as
// high, the fastest class this part has.
func ParseSpeed(s string) (Speed, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return SpeedLow, true
	case "medium":
		return SpeedMedium, true
	case "", "high", "very_high", "veryhigh":
		return SpeedHigh, true
	default:
		return 0, false
	}
}
