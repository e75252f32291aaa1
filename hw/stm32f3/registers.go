// Package stm32f3 holds the register addresses and bitfields of the
// STM32F303xE peripherals touched during external-memory bring-up
// (RM0316: RCC, FLASH, GPIO, FMC).
package stm32f3

// Oscillator frequencies.
const (
	HSIHz = 8_000_000

	MaxSysClkHz = 72_000_000
	MaxPCLK1Hz  = 36_000_000
	MaxPCLK2Hz  = 72_000_000
)

// --- RCC ---
const (
	RCCBase = 0x4002_1000

	RCC_CR      = RCCBase + 0x00
	RCC_CFGR    = RCCBase + 0x04
	RCC_AHBENR  = RCCBase + 0x14
	RCC_APB2ENR = RCCBase + 0x18
	RCC_APB1ENR = RCCBase + 0x1C
	RCC_CFGR2   = RCCBase + 0x2C

	// RCC_CR
	CR_HSION  = 1 << 0
	CR_HSIRDY = 1 << 1
	CR_HSEON  = 1 << 16
	CR_HSERDY = 1 << 17
	CR_PLLON  = 1 << 24
	CR_PLLRDY = 1 << 25

	// RCC_CFGR fields (pos, mask)
	CFGR_SW_Pos     = 0
	CFGR_SW_Msk     = 0x3
	CFGR_SWS_Pos    = 2
	CFGR_SWS_Msk    = 0x3
	CFGR_HPRE_Pos   = 4
	CFGR_HPRE_Msk   = 0xF
	CFGR_PPRE1_Pos  = 8
	CFGR_PPRE1_Msk  = 0x7
	CFGR_PPRE2_Pos  = 11
	CFGR_PPRE2_Msk  = 0x7
	CFGR_PLLSRC_Pos = 15
	CFGR_PLLSRC_Msk = 0x3
	CFGR_PLLMUL_Pos = 18
	CFGR_PLLMUL_Msk = 0xF

	// SW / SWS values
	SW_HSI = 0b00
	SW_HSE = 0b01
	SW_PLL = 0b10

	// PLLSRC values
	PLLSRC_HSI_DIV2   = 0b00
	PLLSRC_HSI_PREDIV = 0b01
	PLLSRC_HSE_PREDIV = 0b10

	// RCC_CFGR2
	CFGR2_PREDIV_Pos = 0
	CFGR2_PREDIV_Msk = 0xF

	// RCC_AHBENR
	AHBENR_SRAMEN  = 1 << 2
	AHBENR_FLITFEN = 1 << 4
	AHBENR_FMCEN   = 1 << 5
	AHBENR_IOPHEN  = 1 << 16
	AHBENR_IOPAEN  = 1 << 17
	AHBENR_IOPBEN  = 1 << 18
	AHBENR_IOPCEN  = 1 << 19
	AHBENR_IOPDEN  = 1 << 20
	AHBENR_IOPEEN  = 1 << 21
	AHBENR_IOPFEN  = 1 << 22
	AHBENR_IOPGEN  = 1 << 23

	APB2ENR_SYSCFGEN = 1 << 0
	APB1ENR_PWREN    = 1 << 28
)

// --- FLASH ---
const (
	FLASH_ACR = 0x4002_2000

	ACR_LATENCY_Pos = 0
	ACR_LATENCY_Msk = 0x7
	ACR_PRFTBE      = 1 << 4
	ACR_PRFTBS      = 1 << 5
)

// --- GPIO ---
const (
	GPIOABase  = 0x4800_0000
	GPIOStride = 0x400

	GPIO_MODER   = 0x00
	GPIO_OSPEEDR = 0x08
	GPIO_AFRL    = 0x20
	GPIO_AFRH    = 0x24

	MODER_Alternate = 0b10
)

// GPIOBase returns the register block of port p.
func GPIOBase(p Port) uintptr { return GPIOABase + uintptr(p)*GPIOStride }

// IOPEN returns the RCC_AHBENR clock-enable bit of port p.
func IOPEN(p Port) uint32 {
	if p == PortH {
		return AHBENR_IOPHEN
	}
	return AHBENR_IOPAEN << p
}

// --- FMC ---
const (
	FMCBase = 0xA000_0000

	// Bank 1 NOR/PSRAM/SRAM sub-bank windows (NE1..NE4).
	FMCBank1Base  = 0x6000_0000
	FMCBankStride = 0x0400_0000
	FMCSubBanks   = 4

	// FMC_BCRx
	BCR_MBKEN     = 1 << 0
	BCR_MUXEN     = 1 << 1
	BCR_MTYP_Pos  = 2
	BCR_MTYP_Msk  = 0x3
	BCR_MWID_Pos  = 4
	BCR_MWID_Msk  = 0x3
	BCR_FACCEN    = 1 << 6
	BCR_Reserved7 = 1 << 7 // kept at reset value
	BCR_BURSTEN   = 1 << 8
	BCR_WRAPMOD   = 1 << 10
	BCR_WREN      = 1 << 12
	BCR_WAITEN    = 1 << 13
	BCR_EXTMOD    = 1 << 14
	BCR_ASYNCWAIT = 1 << 15

	MTYP_SRAM  = 0b00
	MTYP_PSRAM = 0b01
	MTYP_NOR   = 0b10

	MWID_8  = 0b00
	MWID_16 = 0b01

	// FMC_BTRx / FMC_BWTRx
	BTR_ADDSET_Pos  = 0
	BTR_ADDSET_Msk  = 0xF
	BTR_ADDHLD_Pos  = 4
	BTR_ADDHLD_Msk  = 0xF
	BTR_DATAST_Pos  = 8
	BTR_DATAST_Msk  = 0xFF
	BTR_BUSTURN_Pos = 16
	BTR_BUSTURN_Msk = 0xF
	BTR_CLKDIV_Pos  = 20
	BTR_CLKDIV_Msk  = 0xF
	BTR_DATLAT_Pos  = 24
	BTR_DATLAT_Msk  = 0xF
	BTR_ACCMOD_Pos  = 28
	BTR_ACCMOD_Msk  = 0x3

	// Reset values (RM0316 §17.5.6).
	BCR1Reset = 0x0000_30DB
	BCRxReset = 0x0000_30D2
	BTRReset  = 0x0FFF_FFFF
	BWTRReset = 0x0FFF_FFFF
)

// FMC_BCR returns the control register of sub-bank n (1..4).
func FMC_BCR(n int) uintptr { return FMCBase + uintptr(n-1)*8 }

// FMC_BTR returns the read/write timing register of sub-bank n (1..4).
func FMC_BTR(n int) uintptr { return FMCBase + 0x04 + uintptr(n-1)*8 }

// FMC_BWTR returns the write timing register of sub-bank n (1..4).
func FMC_BWTR(n int) uintptr { return FMCBase + 0x104 + uintptr(n-1)*8 }

// FMCBankBase returns the window base address of sub-bank n (1..4).
func FMCBankBase(n int) uintptr { return FMCBank1Base + uintptr(n-1)*FMCBankStride }
