package mathx

import "testing"

func TestCeilDiv(t *testing.T) {
	cases := []struct{ a, b, want uint64 }{
		{0, 7, 0},
		{1, 7, 1},
		{7, 7, 1},
		{8, 7, 2},
		{72_000_000 * 55, 1_000_000_000, 4}, // 55 ns at 72 MHz = 3.96 cycles
		{5, 0, 0},
	}
	for _, c := range cases {
		if got := CeilDiv(c.a, c.b); got != c.want {
			t.Fatalf("CeilDiv(%d,%d)=%d want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestLog2(t *testing.T) {
	for n := uint(0); n < 10; n++ {
		got, ok := Log2(uint32(1) << n)
		if !ok || got != n {
			t.Fatalf("Log2(1<<%d) = %d,%v", n, got, ok)
		}
	}
	for _, v := range []uint16{0, 3, 6, 100} {
		if _, ok := Log2(v); ok {
			t.Fatalf("Log2(%d) should fail", v)
		}
	}
}

func TestBetweenAndFitsBits(t *testing.T) {
	if !Between(5, 1, 16) || Between(17, 1, 16) || !Between(3, 16, 1) {
		t.Fatal("Between failed")
	}
	if Max(3, 9) != 9 || Max(9, 3) != 9 {
		t.Fatal("Max failed")
	}
	if !FitsBits(uint8(15), 4) || FitsBits(uint8(16), 4) || !FitsBits(uint32(255), 8) {
		t.Fatal("FitsBits failed")
	}
}
