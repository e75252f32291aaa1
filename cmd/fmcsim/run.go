package main

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"fmcboot-go/bringup"
	"fmcboot-go/errcode"
	"fmcboot-go/extmem"
	"fmcboot-go/hw"
	"fmcboot-go/image"
	"fmcboot-go/probe"
	"fmcboot-go/profile"
	"fmcboot-go/sim"
)

type simOpts struct {
	hseHz    uint32
	latency  int
	faults   []string
	stuckLow uint16
	image    string
}

func (o *simOpts) flags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Uint32Var(&o.hseHz, "hse", 0, "fitted HSE crystal in Hz (0: none)")
	f.IntVar(&o.latency, "latency", 0, "status reads before a ready flag follows its enable")
	f.StringSliceVar(&o.faults, "fault", nil, "inject faults: "+strings.Join(faultNames(), ", "))
	f.Uint16Var(&o.stuckLow, "stuck-low", 0, "data bits forced low on every device read")
	f.StringVar(&o.image, "image", "", "Intel HEX image to load into the window after bring-up")
}

var faultSetters = map[string]func(*sim.Faults){
	"hsi":         func(f *sim.Faults) { f.HSINeverReady = true },
	"hse":         func(f *sim.Faults) { f.HSENeverReady = true },
	"pll-lock":    func(f *sim.Faults) { f.PLLNeverLocks = true },
	"pll-stop":    func(f *sim.Faults) { f.PLLNeverStops = true },
	"switch":      func(f *sim.Faults) { f.SwitchStuck = true },
	"bank-enable": func(f *sim.Faults) { f.BankEnableStuck = true },
}

func faultNames() []string {
	names := make([]string, 0, len(faultSetters))
	for n := range faultSetters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (o *simOpts) config() (sim.Config, error) {
	cfg := sim.Config{HSEHz: o.hseHz, Latency: o.latency}
	for _, name := range o.faults {
		set, ok := faultSetters[name]
		if !ok {
			return sim.Config{}, errcode.New(errcode.InvalidParams, "fmcsim", "unknown fault "+name)
		}
		set(&cfg.Faults)
	}
	cfg.Faults.StuckLowDataMask = o.stuckLow
	return cfg, nil
}

// boot builds a simulated board and brings p up on it, logging every stage
// to the command output. An image, if given, is loaded and verified.
func boot(cmd *cobra.Command, p profile.Profile, so *simOpts) (*sim.Board, *bringup.Result, error) {
	if so.hseHz == 0 {
		so.hseHz = p.Clock.HSEHz
	}
	cfg, err := so.config()
	if err != nil {
		return nil, nil, err
	}
	b := sim.New(cfg)
	hc := hw.NewContext(b, hw.Waiter{}, logger(out(cmd)))
	res, err := bringup.Run(hc, p)
	if err != nil {
		return b, nil, err
	}
	if so.image != "" {
		data, err := os.ReadFile(so.image)
		if err != nil {
			return b, res, err
		}
		n, err := image.Load(res.Window, bytes.NewReader(data))
		if err != nil {
			return b, res, err
		}
		if err := image.Verify(res.Window, bytes.NewReader(data)); err != nil {
			return b, res, err
		}
		hc.Log.Printf("image: %d bytes loaded and verified ok", n)
	}
	return b, res, nil
}

func newRunCmd(ro *rootOpts) *cobra.Command {
	so := &simOpts{}
	var (
		script string
		test   bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Bring the profile up on the simulator and run its probe script",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ro.load()
			if err != nil {
				return err
			}
			b, res, err := boot(cmd, p, so)
			if err != nil {
				fmt.Fprintln(out(cmd), paint(ansiRed, "bring-up failed: "+err.Error()))
				return err
			}
			body := p.Probe
			if script != "" {
				data, err := os.ReadFile(script)
				if err != nil {
					return err
				}
				body = string(data)
			}
			if test {
				body += "\ntest\n"
			}
			lw := &lineWriter{w: out(cmd)}
			rep, err := probe.Run(res.Window, body, lw)
			_ = lw.Flush()
			summary(cmd, b, res.Window, rep)
			return err
		},
	}
	so.flags(cmd)
	cmd.Flags().StringVar(&script, "probe", "", "probe script file (default: the profile's own)")
	cmd.Flags().BoolVar(&test, "test", false, "append a full-window memory test to the probe")
	return cmd
}

func summary(cmd *cobra.Command, b *sim.Board, w *extmem.Window, rep probe.Report) {
	status := paint(ansiGreen, "PASS")
	if !rep.OK() {
		status = paint(ansiRed, "FAIL")
	}
	fmt.Fprintf(out(cmd), "%s%s%s %d commands, %d/%d checks ok, window 0x%08x+0x%x, %d register writes\n",
		ansiBold, status, ansiReset, rep.Commands, rep.Checked-len(rep.Failures), rep.Checked, w.Base(), w.Span(), b.Writes())
}
