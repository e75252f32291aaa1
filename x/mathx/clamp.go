package mathx

import "golang.org/x/exp/constraints"

// Between reports lo <= v && v <= hi (order-insensitive).
func Between[T constraints.Ordered](v, lo, hi T) bool {
	if hi < lo {
		lo, hi = hi, lo
	}
	return v >= lo && v <= hi
}

// Max for convenience.
func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// FitsBits reports whether v is representable in an n-bit unsigned field.
func FitsBits[T constraints.Unsigned](v T, n uint) bool {
	return uint64(v) < 1<<n
}
