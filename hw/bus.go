// Package hw is the register-level boundary of the bring-up code. Everything
// above it talks to peripherals through a Bus, so the same sequencers run on
// the MCU (volatile loads/stores at fixed addresses) and on the host against
// the simulator.
package hw

// Bus performs single volatile transactions at absolute addresses.
// Implementations must not merge, reorder or elide accesses.
type Bus interface {
	Load8(addr uintptr) uint8
	Store8(addr uintptr, v uint8)
	Load16(addr uintptr) uint16
	Store16(addr uintptr, v uint16)
	Load32(addr uintptr) uint32
	Store32(addr uintptr, v uint32)
}

// Reg is a 32-bit peripheral register reached through a Bus. The method set
// follows runtime/volatile.Register32.
type Reg struct {
	bus  Bus
	addr uintptr
}

func R(bus Bus, addr uintptr) Reg { return Reg{bus: bus, addr: addr} }

func (r Reg) Addr() uintptr      { return r.addr }
func (r Reg) Get() uint32        { return r.bus.Load32(r.addr) }
func (r Reg) Set(v uint32)       { r.bus.Store32(r.addr, v) }
func (r Reg) SetBits(m uint32)   { r.Set(r.Get() | m) }
func (r Reg) ClearBits(m uint32) { r.Set(r.Get() &^ m) }

// HasBits reports whether any bit of m is set.
func (r Reg) HasBits(m uint32) bool { return r.Get()&m != 0 }

// ReplaceBits writes value into the field mask<<pos, leaving other bits alone.
func (r Reg) ReplaceBits(value, mask uint32, pos uint8) {
	r.Set(r.Get()&^(mask<<pos) | (value&mask)<<pos)
}

// Field extracts (reg>>pos)&mask.
func (r Reg) Field(mask uint32, pos uint8) uint32 { return (r.Get() >> pos) & mask }
