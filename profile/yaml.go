package profile

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"

	"fmcboot-go/clock"
	"fmcboot-go/errcode"
	"fmcboot-go/fmc"
	"fmcboot-go/hw/stm32f3"
	"fmcboot-go/pinmux"
)

// document is the YAML shape of a Profile.
type document struct {
	Name   string     `yaml:"name"`
	Clock  clockDoc   `yaml:"clock"`
	Pins   []pinDoc   `yaml:"pins"`
	Bank   bankDoc    `yaml:"bank"`
	Timing *timingDoc `yaml:"timing,omitempty"`
	Device *deviceDoc `yaml:"device_timing,omitempty"`
	Probe  string     `yaml:"probe,omitempty"`
}

type clockDoc struct {
	Source          string   `yaml:"source"`
	HSEHz           uint32   `yaml:"hse_hz,omitempty"`
	Multiplier      uint32   `yaml:"multiplier"`
	Predivider      uint32   `yaml:"predivider,omitempty"`
	AHB             uint32   `yaml:"ahb,omitempty"`
	APB1            uint32   `yaml:"apb1,omitempty"`
	APB2            uint32   `yaml:"apb2,omitempty"`
	FlashWaitStates uint32   `yaml:"flash_wait_states"`
	Prefetch        bool     `yaml:"prefetch"`
	Ports           []string `yaml:"ports,omitempty,flow"`
}

type pinDoc struct {
	Pin    string `yaml:"pin"`
	Signal string `yaml:"signal"`
	AF     *uint8 `yaml:"af,omitempty"`
	Speed  string `yaml:"speed,omitempty"`
}

type bankDoc struct {
	Bank        int        `yaml:"bank"`
	Disabled    bool       `yaml:"disabled,omitempty"`
	Width       uint8      `yaml:"width"`
	Burst       bool       `yaml:"burst,omitempty"`
	Wrap        bool       `yaml:"wrap,omitempty"`
	Extended    bool       `yaml:"extended,omitempty"`
	AsyncWait   bool       `yaml:"async_wait,omitempty"`
	WriteTiming *timingDoc `yaml:"write_timing,omitempty"`
}

type timingDoc struct {
	AddressSetup  uint32 `yaml:"address_setup"`
	AddressHold   uint32 `yaml:"address_hold"`
	DataSetup     uint32 `yaml:"data_setup"`
	BusTurnaround uint32 `yaml:"bus_turnaround,omitempty"`
	ClockDivision uint32 `yaml:"clock_division,omitempty"`
	DataLatency   uint32 `yaml:"data_latency,omitempty"`
	Mode          string `yaml:"mode,omitempty"`
	ForHCLK       uint32 `yaml:"for_hclk_hz,omitempty"`
}

type deviceDoc struct {
	AddressSetupNs uint32 `yaml:"address_setup_ns"`
	AddressHoldNs  uint32 `yaml:"address_hold_ns,omitempty"`
	DataSetupNs    uint32 `yaml:"data_setup_ns"`
	TurnaroundNs   uint32 `yaml:"turnaround_ns,omitempty"`
	Mode           string `yaml:"mode,omitempty"`
}

// Parse decodes and validates a YAML profile. Unknown keys are rejected.
func Parse(data []byte) (Profile, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return Profile{}, &errcode.E{C: errcode.InvalidParams, Op: "profile.parse", Err: err}
	}
	p, err := doc.profile()
	if err != nil {
		return Profile{}, err
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Marshal renders p as YAML in the form Parse accepts.
func Marshal(p Profile) ([]byte, error) {
	return yaml.Marshal(fromProfile(p))
}

func (d document) profile() (Profile, error) {
	name := strings.ToLower(d.Clock.Source)
	if name == "" {
		name = clock.SourceHSI.String()
	}
	src, ok := clock.ParseSource(name)
	if !ok {
		return Profile{}, invalid("unknown clock source " + d.Clock.Source)
	}
	p := Profile{
		Name: d.Name,
		Clock: clock.Plan{
			Source:          src,
			HSEHz:           d.Clock.HSEHz,
			Multiplier:      d.Clock.Multiplier,
			Predivider:      d.Clock.Predivider,
			AHB:             d.Clock.AHB,
			APB1:            d.Clock.APB1,
			APB2:            d.Clock.APB2,
			FlashWaitStates: d.Clock.FlashWaitStates,
			Prefetch:        d.Clock.Prefetch,
		},
		Probe: d.Probe,
	}
	for _, s := range d.Clock.Ports {
		port, ok := stm32f3.ParsePort(s)
		if !ok {
			return Profile{}, invalid("unknown port " + s)
		}
		p.Clock.Ports = append(p.Clock.Ports, port)
	}
	for _, pd := range d.Pins {
		b, err := pd.binding()
		if err != nil {
			return Profile{}, err
		}
		p.Pins = append(p.Pins, b)
	}
	if len(p.Clock.Ports) == 0 {
		p.Clock.Ports = PortsFor(p.Pins)
	}

	p.Bank = fmc.BankConfig{
		Bank:      d.Bank.Bank,
		Enabled:   !d.Bank.Disabled,
		Class:     fmc.ClassSRAM,
		Width:     d.Bank.Width,
		Burst:     d.Bank.Burst,
		Wrap:      d.Bank.Wrap,
		Extended:  d.Bank.Extended,
		AsyncWait: d.Bank.AsyncWait,
	}
	if d.Bank.WriteTiming != nil {
		wt, err := d.Bank.WriteTiming.timing()
		if err != nil {
			return Profile{}, err
		}
		p.Bank.WriteTiming = &wt
	}
	if d.Timing != nil {
		t, err := d.Timing.timing()
		if err != nil {
			return Profile{}, err
		}
		p.Timing = &t
	}
	if d.Device != nil {
		m, ok := fmc.ParseMode(d.Device.Mode)
		if !ok {
			return Profile{}, invalid("unknown access mode " + d.Device.Mode)
		}
		p.Device = &fmc.DeviceTiming{
			AddressSetupNs: d.Device.AddressSetupNs,
			AddressHoldNs:  d.Device.AddressHoldNs,
			DataSetupNs:    d.Device.DataSetupNs,
			TurnaroundNs:   d.Device.TurnaroundNs,
			Mode:           m,
		}
	}
	return p, nil
}

func (pd pinDoc) binding() (pinmux.Binding, error) {
	pin, err := pinmux.ParsePin(pd.Pin)
	if err != nil {
		return pinmux.Binding{}, err
	}
	sig, err := pinmux.ParseSignal(pd.Signal)
	if err != nil {
		return pinmux.Binding{}, err
	}
	b := pinmux.Bind(pin, sig)
	if pd.AF != nil {
		b.AF = *pd.AF
	}
	sp, ok := pinmux.ParseSpeed(pd.Speed)
	if !ok {
		return pinmux.Binding{}, invalid("unknown speed " + pd.Speed + " on " + pd.Pin)
	}
	b.Speed = sp
	return b, nil
}

func (td timingDoc) timing() (fmc.BankTiming, error) {
	m, ok := fmc.ParseMode(td.Mode)
	if !ok {
		return fmc.BankTiming{}, invalid("unknown access mode " + td.Mode)
	}
	return fmc.BankTiming{
		AddressSetup:  td.AddressSetup,
		AddressHold:   td.AddressHold,
		DataSetup:     td.DataSetup,
		BusTurnaround: td.BusTurnaround,
		ClockDivision: td.ClockDivision,
		DataLatency:   td.DataLatency,
		Mode:          m,
		ForHCLK:       td.ForHCLK,
	}, nil
}

func timingDocOf(t fmc.BankTiming) *timingDoc {
	return &timingDoc{
		AddressSetup:  t.AddressSetup,
		AddressHold:   t.AddressHold,
		DataSetup:     t.DataSetup,
		BusTurnaround: t.BusTurnaround,
		ClockDivision: t.ClockDivision,
		DataLatency:   t.DataLatency,
		Mode:          t.Mode.String(),
		ForHCLK:       t.ForHCLK,
	}
}

func fromProfile(p Profile) document {
	d := document{
		Name: p.Name,
		Clock: clockDoc{
			Source:          p.Clock.Source.String(),
			HSEHz:           p.Clock.HSEHz,
			Multiplier:      p.Clock.Multiplier,
			Predivider:      p.Clock.Predivider,
			AHB:             p.Clock.AHB,
			APB1:            p.Clock.APB1,
			APB2:            p.Clock.APB2,
			FlashWaitStates: p.Clock.FlashWaitStates,
			Prefetch:        p.Clock.Prefetch,
		},
		Bank: bankDoc{
			Bank:      p.Bank.Bank,
			Disabled:  !p.Bank.Enabled,
			Width:     p.Bank.Width,
			Burst:     p.Bank.Burst,
			Wrap:      p.Bank.Wrap,
			Extended:  p.Bank.Extended,
			AsyncWait: p.Bank.AsyncWait,
		},
		Probe: p.Probe,
	}
	for _, port := range p.Clock.Ports {
		d.Clock.Ports = append(d.Clock.Ports, port.String()[1:])
	}
	for _, b := range p.Pins {
		pd := pinDoc{Pin: b.Pin.String(), Signal: b.Signal.String(), Speed: b.Speed.String()}
		if b.AF != pinmux.AFFMC {
			af := b.AF
			pd.AF = &af
		}
		d.Pins = append(d.Pins, pd)
	}
	if p.Bank.WriteTiming != nil {
		d.Bank.WriteTiming = timingDocOf(*p.Bank.WriteTiming)
	}
	if p.Timing != nil {
		d.Timing = timingDocOf(*p.Timing)
	}
	if p.Device != nil {
		d.Device = &deviceDoc{
			AddressSetupNs: p.Device.AddressSetupNs,
			AddressHoldNs:  p.Device.AddressHoldNs,
			DataSetupNs:    p.Device.DataSetupNs,
			TurnaroundNs:   p.Device.TurnaroundNs,
			Mode:           p.Device.Mode.String(),
		}
	}
	return d
}
