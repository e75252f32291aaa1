package main

import (
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/spf13/cobra"

	"fmcboot-go/board"
	"fmcboot-go/profile"
)

type rootOpts struct {
	profile string
	noColor bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOpts{}
	cmd := &cobra.Command{
		Use:           "fmcsim",
		Short:         "Simulate and inspect FMC external-memory bring-up",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Escapes are translated on Windows consoles and stripped
			// entirely with --no-color.
			w := cmd.OutOrStdout()
			switch f, isFile := w.(*os.File); {
			case opts.noColor:
				cmd.SetOut(colorable.NewNonColorable(w))
			case isFile:
				cmd.SetOut(colorable.NewColorable(f))
			}
		},
	}
	cmd.PersistentFlags().StringVarP(&opts.profile, "profile", "p", "", "YAML profile (default: built-in f303-fram)")
	cmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable coloured output")
	cmd.SetOut(os.Stdout)

	cmd.AddCommand(
		newRunCmd(opts),
		newDumpCmd(opts),
		newProfileCmd(opts),
		newMonitorCmd(opts),
	)
	return cmd
}

// load returns the selected profile.
func (o *rootOpts) load() (profile.Profile, error) {
	if o.profile == "" {
		return board.F303FRAM(), nil
	}
	data, err := os.ReadFile(o.profile)
	if err != nil {
		return profile.Profile{}, err
	}
	return profile.Parse(data)
}

// out is the command's writer after PersistentPreRun wrapped it.
func out(cmd *cobra.Command) io.Writer { return cmd.OutOrStdout() }
