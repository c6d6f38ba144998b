package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roffe/slcan"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var lcdCmd = &cobra.Command{
	Use:     "lcd <contrast> <red> <green> <blue> <intensity>",
	Short:   "set display contrast and backlight",
	Long:    `Sends one frame to the display on 0x7DD. Every value is a hex byte, 00 - FF.`,
	Example: `  slcansim lcd -p /dev/ttyUSB0 10 FF 80 00 7F`,
	Args:    cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		values, err := parseHexBytes(args)
		if err != nil {
			return err
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		s, _, err := openSession(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeSession(s)

		if err := s.Handshake(ctx); err != nil {
			return err
		}
		frame := slcan.LCDFrame(values[0], values[1], values[2], values[3], values[4])
		if err := s.Transmit(ctx, frame); err != nil {
			return err
		}
		log.Infof(">> %s", frame.ColorString())
		return nil
	},
}

func parseHexBytes(args []string) ([]byte, error) {
	out := make([]byte, len(args))
	for i, a := range args {
		v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(a), "0x"), 16, 8)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %q is not a hex byte", i+1, a)
		}
		out[i] = byte(v)
	}
	return out, nil
}

func init() {
	rootCmd.AddCommand(lcdCmd)
}
