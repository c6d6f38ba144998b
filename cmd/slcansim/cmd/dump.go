package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/roffe/slcan/pkg/capture"
	"github.com/spf13/cobra"
)

var dumpCmd = &cobra.Command{
	Use:   "dump <capture>",
	Short: "print a capture recorded by simulate --capture",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rd, err := capture.Open(args[0])
		if err != nil {
			return err
		}
		defer rd.Close()

		var n int
		for {
			r, err := rd.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return err
			}
			dir := color.CyanString(r.Dir.String())
			if r.Dir == capture.Rx {
				dir = color.MagentaString(r.Dir.String())
			}
			fmt.Printf("%s %s %s\n", r.Time.Format("15:04:05.000"), dir, r.Frame().ColorString())
			n++
		}
		fmt.Printf("%d frames\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)
}
