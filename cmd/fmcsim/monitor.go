package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"go.bug.st/serial"

	"fmcboot-go/errcode"
)

func newMonitorCmd(_ *rootOpts) *cobra.Command {
	var (
		port     string
		baud     int
		list     bool
		duration time.Duration
	)
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Show a board's console output with bring-up results highlighted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				ports, err := serial.GetPortsList()
				if err != nil {
					return err
				}
				for _, p := range ports {
					fmt.Fprintln(out(cmd), p)
				}
				return nil
			}
			if port == "" {
				return errcode.New(errcode.InvalidParams, "monitor", "--port is required (see --list)")
			}
			sp, err := serial.Open(port, &serial.Mode{BaudRate: baud})
			if err != nil {
				return err
			}
			var expired atomic.Bool
			if duration > 0 {
				time.AfterFunc(duration, func() {
					expired.Store(true)
					_ = sp.Close()
				})
			} else {
				defer sp.Close()
			}
			halted, err := monitor(sp, out(cmd))
			if err != nil && !expired.Load() {
				return err
			}
			if halted != "" {
				return errcode.New(errcode.Error, "monitor", "board halted: "+halted)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "serial port of the board console")
	cmd.Flags().IntVar(&baud, "baud", 115200, "baud rate")
	cmd.Flags().BoolVar(&list, "list", false, "list serial ports and exit")
	cmd.Flags().DurationVar(&duration, "for", 0, "stop after this long (0: until the port closes)")
	return cmd
}

// monitor copies console lines from r to w, coloured, and returns the
// message of the last "halt:" line the firmware printed, if any.
func monitor(r io.Reader, w io.Writer) (string, error) {
	var halted string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if msg, ok := strings.CutPrefix(line, "halt: "); ok {
			halted = msg
		}
		if c := lineColour(line); c != "" {
			line = paint(c, line)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return halted, err
		}
	}
	return halted, sc.Err()
}
