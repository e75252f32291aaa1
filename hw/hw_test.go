package hw

import (
	"errors"
	"testing"
	"time"

	"fmcboot-go/errcode"
)

type regBus struct {
	m      map[uintptr]uint32
	stores int
}

var _ Bus = (*regBus)(nil)

func newRegBus() *regBus { return &regBus{m: map[uintptr]uint32{}} }

func (b *regBus) Load8(a uintptr) uint8       { return uint8(b.m[a]) }
func (b *regBus) Store8(a uintptr, v uint8)   { b.m[a] = uint32(v); b.stores++ }
func (b *regBus) Load16(a uintptr) uint16     { return uint16(b.m[a]) }
func (b *regBus) Store16(a uintptr, v uint16) { b.m[a] = uint32(v); b.stores++ }
func (b *regBus) Load32(a uintptr) uint32     { return b.m[a] }
func (b *regBus) Store32(a uintptr, v uint32) { b.m[a] = v; b.stores++ }

func TestRegBitOps(t *testing.T) {
	bus := newRegBus()
	r := R(bus, 0x40021004)
	r.Set(0xFFFF_FFFF)
	r.ReplaceBits(0b0111, 0xF, 18) // PLLMUL field
	if got := r.Field(0xF, 18); got != 0b0111 {
		t.Fatalf("field = %#x", got)
	}
	if got := r.Get() &^ (0xF << 18); got != 0xFFFF_FFFF&^(0xF<<18) {
		t.Fatalf("neighbouring bits disturbed: %#x", r.Get())
	}
	r.ClearBits(1 << 24)
	if r.HasBits(1 << 24) {
		t.Fatal("bit 24 still set")
	}
	r.SetBits(1 << 24)
	if !r.HasBits(1<<24 | 1<<0) {
		t.Fatal("HasBits should match any bit of the mask")
	}
	if bus.stores != 4 {
		t.Fatalf("stores = %d, want one per operation", bus.stores)
	}
}

func TestWaiterSpinBudget(t *testing.T) {
	calls := 0
	ok := Waiter{Spins: 10}.Until(func() bool { calls++; return false })
	if ok || calls != 10 {
		t.Fatalf("ok=%v calls=%d", ok, calls)
	}

	calls = 0
	ok = Waiter{Spins: 10}.Until(func() bool { calls++; return calls == 3 })
	if !ok || calls != 3 {
		t.Fatalf("ok=%v calls=%d", ok, calls)
	}
}

func TestWaiterDeadline(t *testing.T) {
	now := time.Unix(0, 0)
	w := Waiter{
		Spins:   1_000_000,
		Timeout: 5 * time.Millisecond,
		Now: func() time.Time {
			now = now.Add(time.Millisecond)
			return now
		},
	}
	calls := 0
	if w.Until(func() bool { calls++; return false }) {
		t.Fatal("condition never held")
	}
	if calls > 10 {
		t.Fatalf("deadline ignored: %d polls", calls)
	}
}

func TestTakeIsExclusive(t *testing.T) {
	hc, err := Take(newRegBus(), Waiter{}, nil)
	if err != nil || hc == nil {
		t.Fatalf("first take: %v", err)
	}
	if hc.Log == nil {
		t.Fatal("nil logger not replaced")
	}
	if _, err := Take(newRegBus(), Waiter{}, nil); !errors.Is(err, errcode.Busy) {
		t.Fatalf("second take: %v", err)
	}
}
