package cmd

import (
	"context"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/roffe/slcan"
	"github.com/roffe/slcan/pkg/config"
	"github.com/roffe/slcan/pkg/serialport"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "slcansim",
	Short:        "CAN bus simulator for Lawicel CANUSB adapters",
	Long:         `Drives a CANUSB (slcan) adapter over its serial port and puts synthetic battery telemetry or display frames on the bus.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debug, _ := cmd.Flags().GetBool(flagDebug); debug {
			log.SetLevel(log.DebugLevel)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

const (
	flagPort       = "port"
	flagBaudrate   = "baudrate"
	flagDebug      = "debug"
	flagConfig     = "config"
	flagTerminator = "terminator"
	flagTimeout    = "timeout"
	flagBitrate    = "bitrate"
)

func init() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})

	pf := rootCmd.PersistentFlags()
	pf.StringP(flagPort, "p", "", "com-port, ? = select from available")
	pf.IntP(flagBaudrate, "b", serialport.DefaultBaudrate, "serial baudrate")
	pf.BoolP(flagDebug, "d", false, "debug mode, traces the serial line")
	pf.StringP(flagConfig, "c", "", "ini config file")
	pf.String(flagTerminator, "cr", "line terminator, cr or lf")
	pf.Duration(flagTimeout, slcan.DefaultTimeout, "response timeout")
	pf.Uint8P(flagBitrate, "s", slcan.Bitrate500k, "CAN bitrate code 0 (10k) - 8 (1M)")
}

// loadConfig layers the command line over the config file over defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if path, _ := cmd.Flags().GetString(flagConfig); path != "" {
		c, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = c
	}
	f := cmd.Flags()
	if f.Changed(flagPort) || cfg.Port == "" {
		cfg.Port, _ = f.GetString(flagPort)
	}
	if f.Changed(flagBaudrate) {
		cfg.Baudrate, _ = f.GetInt(flagBaudrate)
	}
	if f.Changed(flagTerminator) {
		s, _ := f.GetString(flagTerminator)
		t, err := config.ParseTerminator(s)
		if err != nil {
			return nil, err
		}
		cfg.Terminator = t
	}
	if f.Changed(flagTimeout) {
		cfg.Timeout, _ = f.GetDuration(flagTimeout)
	}
	if f.Changed(flagBitrate) {
		cfg.Bitrate, _ = f.GetUint8(flagBitrate)
	}
	return cfg, nil
}

// resolvePort asks for a port when the configured one is "?".
func resolvePort(cfg *config.Config) error {
	if cfg.Port != "?" {
		return nil
	}
	port, err := selectPort()
	if err != nil {
		return err
	}
	cfg.Port = port
	return nil
}

func selectPort() (string, error) {
	ports, err := serialport.List()
	if err != nil {
		return "", err
	}
	if len(ports) == 0 {
		return "", fmt.Errorf("no serial ports found")
	}
	items := make([]string, len(ports))
	for i, p := range ports {
		items[i] = p.String()
	}
	prompt := promptui.Select{
		Label: "Select port",
		Items: items,
	}
	idx, _, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("prompt failed %v", err)
	}
	return ports[idx].Name, nil
}

func yesNo(label string) (bool, error) {
	prompt := promptui.Select{
		Label:    label + " [Yes/No]",
		HideHelp: true,
		Items:    []string{"Yes", "No"},
	}
	_, result, err := prompt.Run()
	if err != nil {
		return false, fmt.Errorf("prompt failed %v", err)
	}
	return result == "Yes", nil
}

// openSession validates cfg, opens the port and wraps it in a Closed
// session. The caller closes the session.
func openSession(ctx context.Context, cfg *config.Config, opts ...slcan.Opts) (*slcan.Session, *serialport.Port, error) {
	if err := resolvePort(cfg); err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	port, err := serialport.Open(ctx, cfg.Port, cfg.PortOptions())
	if err != nil {
		return nil, nil, err
	}
	if info, err := serialport.Lookup(cfg.Port); err == nil {
		log.Infof("using port: %s", info)
	}
	tr := slcan.NewTransport(port, cfg.TransportOpts()...)
	s, err := slcan.NewSession(tr, append(cfg.SessionOpts(), opts...)...)
	if err != nil {
		port.Close()
		return nil, nil, err
	}
	return s, port, nil
}

// closeSession closes the channel on a fresh context so that it still runs
// after an interrupt.
func closeSession(s *slcan.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), slcan.DefaultTimeout)
	defer cancel()
	if err := s.Close(ctx); err != nil {
		log.Debugf("close: %v", err)
	}
	log.Debugf("stats: %s", s.Stats())
}
