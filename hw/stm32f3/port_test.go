package stm32f3

import "testing"

func TestParsePort(t *testing.T) {
	cases := map[string]Port{"D": PortD, "pd": PortD, "GPIOH": PortH, " a ": PortA}
	for in, want := range cases {
		got, ok := ParsePort(in)
		if !ok || got != want {
			t.Fatalf("ParsePort(%q) = %v,%v want %v", in, got, ok, want)
		}
	}
	for _, in := range []string{"", "I", "PDX", "GPIO"} {
		if _, ok := ParsePort(in); ok {
			t.Fatalf("ParsePort(%q) should fail", in)
		}
	}
	if PortF.String() != "PF" {
		t.Fatalf("String = %q", PortF.String())
	}
}

func TestAddressHelpers(t *testing.T) {
	if GPIOBase(PortD) != 0x4800_0C00 {
		t.Fatalf("GPIOD base = %#x", GPIOBase(PortD))
	}
	if IOPEN(PortD) != AHBENR_IOPDEN || IOPEN(PortH) != AHBENR_IOPHEN || IOPEN(PortA) != AHBENR_IOPAEN {
		t.Fatal("IOPEN mapping wrong")
	}
	if FMC_BCR(1) != 0xA000_0000 || FMC_BTR(1) != 0xA000_0004 || FMC_BCR(2) != 0xA000_0008 || FMC_BWTR(1) != 0xA000_0104 {
		t.Fatal("FMC register addresses wrong")
	}
	if FMCBankBase(1) != 0x6000_0000 || FMCBankBase(3) != 0x6800_0000 {
		t.Fatal("FMC bank bases wrong")
	}
}
