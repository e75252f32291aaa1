package hw

import (
	"sync/atomic"

	"fmcboot-go/errcode"
	"fmcboot-go/x/logx"
)

// Context owns the peripheral set for the lifetime of the process. It is
// handed by pointer to each bring-up stage; nothing else touches the clock,
// GPIO or FMC registers.
type Context struct {
	Bus  Bus
	Wait Waiter
	Log  logx.Logger
}

// NewContext builds a Context without the process-wide guard. Use Take in
// firmware and tools; tests build as many as they like.
func NewContext(bus Bus, w Waiter, log logx.Logger) *Context {
	return &Context{Bus: bus, Wait: w, Log: logx.Or(log)}
}

// Reg returns the register at addr on this context's bus.
func (c *Context) Reg(addr uintptr) Reg { return R(c.Bus, addr) }

var taken atomic.Bool

// Take returns the single hardware Context of this process. A second call
// fails with errcode.Busy.
func Take(bus Bus, w Waiter, log logx.Logger) (*Context, error) {
	if !taken.CompareAndSwap(false, true) {
		return nil, errcode.New(errcode.Busy, "hw.take", "hardware context already taken")
	}
	return NewContext(bus, w, log), nil
}
