package stm32f3

import "strings"

// Port is a GPIO port bank.
type Port uint8

const (
	PortA Port = iota
	PortB
	PortC
	PortD
	PortE
	PortF
	PortG
	PortH

	NumPorts = 8
)

func (p Port) String() string {
	if p >= NumPorts {
		return "P?"
	}
	return "P" + string(rune('A'+p))
}

// ParsePort accepts "D", "PD", "GPIOD" (case-insensitive).
func ParsePort(s string) (Port, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "GPIO")
	s = strings.TrimPrefix(s, "P")
	if len(s) != 1 || s[0] < 'A' || s[0] >= 'A'+NumPorts {
		return 0, false
	}
	return Port(s[0] - 'A'), true
}
