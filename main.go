//go:build tinygo

package main

import (
	"os"
	"time"

	"fmcboot-go/board"
	"fmcboot-go/bringup"
	"fmcboot-go/hw"
	"fmcboot-go/probe"
	"fmcboot-go/x/logx"
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("boot")

	p := board.F303FRAM()
	hc, err := hw.Take(hw.Target, hw.Waiter{}, logx.Console)
	if err != nil {
		halt(err)
	}
	res, err := bringup.Run(hc, p)
	if err != nil {
		halt(err)
	}
	if _, err := probe.Run(res.Window, p.Probe, os.Stdout); err != nil {
		halt(err)
	}

	// Periodic stats.
	tick := time.NewTicker(1 * time.Second)
	defer tick.Stop()

	for t := range tick.C {
		println(t.Format("15:04:05"), "Heartbeat", "fram", res.Window.Live())
	}
}

// halt reports err on the console and parks. The external memory is not
// usable, so nothing after bring-up may run.
func halt(err error) {
	println("halt: " + err.Error())
	for {
		time.Sleep(time.Second)
	}
}
