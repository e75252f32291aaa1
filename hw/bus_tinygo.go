//go:build tinygo

package hw

import (
	"runtime/volatile"
	"unsafe"
)

// Target is the memory-mapped bus of the running MCU.
var Target Bus = targetBus{}

type targetBus struct{}

func (targetBus) Load8(a uintptr) uint8 { return volatile.LoadUint8((*uint8)(unsafe.Pointer(a))) }
func (targetBus) Store8(a uintptr, v uint8) {
	volatile.StoreUint8((*uint8)(unsafe.Pointer(a)), v)
}
func (targetBus) Load16(a uintptr) uint16 { return volatile.LoadUint16((*uint16)(unsafe.Pointer(a))) }
func (targetBus) Store16(a uintptr, v uint16) {
	volatile.StoreUint16((*uint16)(unsafe.Pointer(a)), v)
}
func (targetBus) Load32(a uintptr) uint32 { return volatile.LoadUint32((*uint32)(unsafe.Pointer(a))) }
func (targetBus) Store32(a uintptr, v uint32) {
	volatile.StoreUint32((*uint32)(unsafe.Pointer(a)), v)
}
