package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fmcboot-go/profile"
)

func newProfileCmd(ro *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Validate the selected profile and print it in normalised form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ro.load()
			if err != nil {
				return err
			}
			if err := p.Validate(); err != nil {
				return err
			}
			data, err := profile.Marshal(p)
			if err != nil {
				return err
			}
			want, _ := p.Clock.Expect()
			fmt.Fprintf(out(cmd), "# %s: sysclk %d Hz, hclk %d Hz, %d pins\n", p.Name, want.SysClkHz, want.HCLKHz, len(p.Pins))
			_, err = out(cmd).Write(data)
			return err
		},
	}
}
