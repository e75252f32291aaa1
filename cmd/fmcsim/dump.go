package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fmcboot-go/errcode"
	"fmcboot-go/image"
)

func newDumpCmd(ro *rootOpts) *cobra.Command {
	so := &simOpts{}
	var (
		offset, length uint32
		output         string
	)
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Bring up, optionally load an image, and dump a window range as Intel HEX",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ro.load()
			if err != nil {
				return err
			}
			_, res, err := boot(cmd, p, so)
			if err != nil {
				return err
			}
			if span := res.Window.Span(); offset >= span {
				return errcode.New(errcode.OutOfWindow, "dump",
					fmt.Sprintf("offset 0x%x is past the 0x%x-byte window", offset, span))
			}
			if length == 0 {
				length = res.Window.Span() - offset
			}
			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return image.Dump(res.Window, offset, length, w)
		},
	}
	so.flags(cmd)
	cmd.Flags().Uint32Var(&offset, "offset", 0, "window offset to start at")
	cmd.Flags().Uint32Var(&length, "length", 0, "bytes to dump (0: to the end of the window)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}
