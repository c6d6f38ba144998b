package cmd

import (
	"fmt"

	"github.com/roffe/slcan/pkg/serialport"
	"github.com/spf13/cobra"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "list serial ports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if sel, _ := cmd.Flags().GetBool("select"); sel {
			port, err := selectPort()
			if err != nil {
				return err
			}
			fmt.Println(port)
			return nil
		}
		ports, err := serialport.List()
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			fmt.Println("No serial ports found!")
			return nil
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return nil
	},
}

func init() {
	portsCmd.Flags().Bool("select", false, "pick a port and print its name")
	rootCmd.AddCommand(portsCmd)
}
