package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "print adapter version and status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
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

		for i := 0; i < cfg.FlushCount; i++ {
			if err := s.Flush(ctx); err != nil {
				return err
			}
		}
		v, err := s.QueryVersion(ctx)
		if err != nil {
			return err
		}
		st, err := s.QueryErrors(ctx)
		if err != nil {
			return err
		}
		bold := color.New(color.Bold).SprintFunc()
		fmt.Printf("%s %s\n", bold("port:    "), cfg.Port)
		fmt.Printf("%s %s\n", bold("version: "), v)
		if st == 0 {
			fmt.Printf("%s %s\n", bold("status:  "), color.GreenString(st.String()))
		} else {
			fmt.Printf("%s %s\n", bold("status:  "), color.RedString(st.String()))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
