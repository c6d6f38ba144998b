package cmd

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var autostartCmd = &cobra.Command{
	Use:   "autostart",
	Short: "store bus settings in the adapter and enable auto startup",
	Long: `Configures the adapter to open the CAN channel by itself on power up with
the selected bitrate, auto poll on and an open acceptance filter.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := resolvePort(cfg); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			log.Printf("Enable auto startup on %s with bitrate code %d?", cfg.Port, cfg.Bitrate)
			ok, err := yesNo("Continue")
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
		}
		ctx := cmd.Context()
		s, _, err := openSession(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeSession(s)

		if err := s.ConfigureAutostart(ctx); err != nil {
			return err
		}
		log.Infof("auto startup enabled, adapter %s", s.Version())
		return nil
	},
}

func init() {
	autostartCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
	rootCmd.AddCommand(autostartCmd)
}
