package clock

import (
	"fmcboot-go/errcode"
	"fmcboot-go/hw"
	"fmcboot-go/hw/stm32f3"
)

// Stage names a readiness wait.
type Stage string

const (
	StageHSI      Stage = "hsi"
	StageHSE      Stage = "hse"
	StagePLLOff   Stage = "pll_off"
	StagePLLLock  Stage = "pll_lock"
	StageSwitch   Stage = "switch"
	StageFallback Stage = "fallback_hsi"
)

// TimeoutError is returned when a status flag never reached its expected
// value within the waiter's budget. It is fatal for start-up.
type TimeoutError struct {
	Stage Stage
}

func (e *TimeoutError) Error() string      { return "clock: timeout waiting for " + string(e.Stage) }
func (e *TimeoutError) Code() errcode.Code { return errcode.Timeout }
func (e *TimeoutError) Is(target error) bool {
	return target == errcode.Timeout
}

// BringUp applies plan. The returned Active is read back from the RCC and
// always reports SysPLL; anything else is an error.
func BringUp(hc *hw.Context, plan Plan) (Active, error) {
	want, err := plan.Expect()
	if err != nil {
		return Active{}, err
	}
	var (
		cr    = hc.Reg(stm32f3.RCC_CR)
		cfgr  = hc.Reg(stm32f3.RCC_CFGR)
		cfgr2 = hc.Reg(stm32f3.RCC_CFGR2)
		acr   = hc.Reg(stm32f3.FLASH_ACR)
	)
	wait := func(stage Stage, cond func() bool) error {
		if !hc.Wait.Until(cond) {
			hc.Log.Printf("clock: %s not ready", stage)
			return &TimeoutError{Stage: stage}
		}
		return nil
	}

	// 1. Oscillators.
	cr.SetBits(stm32f3.CR_HSION)
	if err := wait(StageHSI, func() bool { return cr.HasBits(stm32f3.CR_HSIRDY) }); err != nil {
		return Active{}, err
	}
	if plan.Source == SourceHSE {
		cr.SetBits(stm32f3.CR_HSEON)
		if err := wait(StageHSE, func() bool { return cr.HasBits(stm32f3.CR_HSERDY) }); err != nil {
			return Active{}, err
		}
	}

	// The PLL cannot be stopped while it drives SYSCLK.
	if SysSource(cfgr.Field(stm32f3.CFGR_SWS_Msk, stm32f3.CFGR_SWS_Pos)) == SysPLL {
		cfgr.ReplaceBits(stm32f3.SW_HSI, stm32f3.CFGR_SW_Msk, stm32f3.CFGR_SW_Pos)
		if err := wait(StageFallback, func() bool {
			return cfgr.Field(stm32f3.CFGR_SWS_Msk, stm32f3.CFGR_SWS_Pos) == stm32f3.SW_HSI
		}); err != nil {
			return Active{}, err
		}
	}

	// 2. PLL off.
	cr.ClearBits(stm32f3.CR_PLLON)
	if err := wait(StagePLLOff, func() bool { return !cr.HasBits(stm32f3.CR_PLLRDY) }); err != nil {
		return Active{}, err
	}

	// 3. PLL inputs, only while stopped.
	var src uint32
	switch plan.Source {
	case SourceHSIDiv2:
		src = stm32f3.PLLSRC_HSI_DIV2
	case SourceHSE:
		src = stm32f3.PLLSRC_HSE_PREDIV
	default:
		src = stm32f3.PLLSRC_HSI_PREDIV
	}
	cfgr.ReplaceBits(src, stm32f3.CFGR_PLLSRC_Msk, stm32f3.CFGR_PLLSRC_Pos)
	cfgr2.ReplaceBits(orOne(plan.Predivider)-1, stm32f3.CFGR2_PREDIV_Msk, stm32f3.CFGR2_PREDIV_Pos)
	cfgr.ReplaceBits(plan.Multiplier-2, stm32f3.CFGR_PLLMUL_Msk, stm32f3.CFGR_PLLMUL_Pos)

	// 4. PLL on.
	cr.SetBits(stm32f3.CR_PLLON)
	if err := wait(StagePLLLock, func() bool { return cr.HasBits(stm32f3.CR_PLLRDY) }); err != nil {
		return Active{}, err
	}

	// 5. Bus prescalers, before the PLL is selected.
	hpre, _ := hpreCode(orOne(plan.AHB))
	ppre1, _ := ppreCode(orOne(plan.APB1))
	ppre2, _ := ppreCode(orOne(plan.APB2))
	cfgr.ReplaceBits(hpre, stm32f3.CFGR_HPRE_Msk, stm32f3.CFGR_HPRE_Pos)
	cfgr.ReplaceBits(ppre1, stm32f3.CFGR_PPRE1_Msk, stm32f3.CFGR_PPRE1_Pos)
	cfgr.ReplaceBits(ppre2, stm32f3.CFGR_PPRE2_Msk, stm32f3.CFGR_PPRE2_Pos)

	// 6. Flash latency must cover the new HCLK before the switch.
	acr.ReplaceBits(plan.FlashWaitStates, stm32f3.ACR_LATENCY_Msk, stm32f3.ACR_LATENCY_Pos)
	if plan.Prefetch {
		acr.SetBits(stm32f3.ACR_PRFTBE)
	} else {
		acr.ClearBits(stm32f3.ACR_PRFTBE)
	}

	// 7-8. Switch and confirm both the requested and the active source.
	cfgr.ReplaceBits(stm32f3.SW_PLL, stm32f3.CFGR_SW_Msk, stm32f3.CFGR_SW_Pos)
	if err := wait(StageSwitch, func() bool {
		v := cfgr.Get()
		return (v>>stm32f3.CFGR_SW_Pos)&stm32f3.CFGR_SW_Msk == stm32f3.SW_PLL &&
			(v>>stm32f3.CFGR_SWS_Pos)&stm32f3.CFGR_SWS_Msk == stm32f3.SW_PLL
	}); err != nil {
		return Active{}, err
	}

	// 9. Peripheral clocks.
	EnablePeripherals(hc, plan.Ports)

	got := Current(hc, plan.HSEHz)
	if got.Source != SysPLL || got.SysClkHz != want.SysClkHz || got.HCLKHz != want.HCLKHz {
		return Active{}, errcode.New(errcode.Mismatch, "clock.bringup",
			"active "+got.Source.String()+" at "+utoa(got.SysClkHz)+" Hz, planned pll at "+utoa(want.SysClkHz)+" Hz")
	}
	hc.Log.Printf("clock: sysclk=%d hclk=%d pclk1=%d pclk2=%d ws=%d",
		got.SysClkHz, got.HCLKHz, got.PCLK1Hz, got.PCLK2Hz, got.FlashWaitStates)
	return got, nil
}

// EnablePeripherals clocks the listed GPIO ports plus SRAM, flash
// interface, FMC, SYSCFG and PWR.
func EnablePeripherals(hc *hw.Context, ports []stm32f3.Port) {
	ahb := uint32(stm32f3.AHBENR_SRAMEN | stm32f3.AHBENR_FLITFEN | stm32f3.AHBENR_FMCEN)
	for _, p := range ports {
		ahb |= stm32f3.IOPEN(p)
	}
	hc.Reg(stm32f3.RCC_AHBENR).SetBits(ahb)
	hc.Reg(stm32f3.RCC_APB2ENR).SetBits(stm32f3.APB2ENR_SYSCFGEN)
	hc.Reg(stm32f3.RCC_APB1ENR).SetBits(stm32f3.APB1ENR_PWREN)
}

// Current decodes the running clock tree from the RCC and flash registers.
// hseHz is the fitted crystal, if any.
func Current(hc *hw.Context, hseHz uint32) Active {
	cfgr := hc.Reg(stm32f3.RCC_CFGR).Get()
	cfgr2 := hc.Reg(stm32f3.RCC_CFGR2).Get()
	field := func(v, msk, pos uint32) uint32 { return (v >> pos) & msk }

	a := Active{Source: SysSource(field(cfgr, stm32f3.CFGR_SWS_Msk, stm32f3.CFGR_SWS_Pos))}
	switch a.Source {
	case SysHSE:
		a.SysClkHz = hseHz
	case SysPLL:
		pre := field(cfgr2, stm32f3.CFGR2_PREDIV_Msk, stm32f3.CFGR2_PREDIV_Pos) + 1
		mul := field(cfgr, stm32f3.CFGR_PLLMUL_Msk, stm32f3.CFGR_PLLMUL_Pos) + 2
		if mul > 16 {
			mul = 16
		}
		var in uint32
		switch field(cfgr, stm32f3.CFGR_PLLSRC_Msk, stm32f3.CFGR_PLLSRC_Pos) {
		case stm32f3.PLLSRC_HSI_DIV2:
			in = stm32f3.HSIHz / 2
		case stm32f3.PLLSRC_HSI_PREDIV:
			in = stm32f3.HSIHz / pre
		default:
			in = hseHz / pre
		}
		a.SysClkHz = in * mul
	default:
		a.SysClkHz = stm32f3.HSIHz
	}
	a.HCLKHz = a.SysClkHz / hpreDiv(field(cfgr, stm32f3.CFGR_HPRE_Msk, stm32f3.CFGR_HPRE_Pos))
	a.PCLK1Hz = a.HCLKHz / ppreDiv(field(cfgr, stm32f3.CFGR_PPRE1_Msk, stm32f3.CFGR_PPRE1_Pos))
	a.PCLK2Hz = a.HCLKHz / ppreDiv(field(cfgr, stm32f3.CFGR_PPRE2_Msk, stm32f3.CFGR_PPRE2_Pos))
	a.FlashWaitStates = hc.Reg(stm32f3.FLASH_ACR).Field(stm32f3.ACR_LATENCY_Msk, stm32f3.ACR_LATENCY_Pos)
	return a
}
