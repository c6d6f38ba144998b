package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roffe/slcan"
	"github.com/roffe/slcan/pkg/bar"
	"github.com/roffe/slcan/pkg/capture"
	"github.com/roffe/slcan/pkg/telemetry"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	flagProfile  = "profile"
	flagInterval = "interval"
	flagCount    = "count"
	flagCapture  = "capture"
	flagProgress = "progress"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "send battery telemetry frames",
	Long: `Opens the CAN channel and sends one telemetry frame per interval until
interrupted or --count frames have been sent.

Built in profiles: ` + strings.Join(telemetry.Names(), ", "),
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		f := cmd.Flags()
		if f.Changed(flagProfile) {
			cfg.Profile, _ = f.GetString(flagProfile)
		}
		if f.Changed(flagInterval) {
			cfg.Interval, _ = f.GetDuration(flagInterval)
		}
		if f.Changed(flagCount) {
			cfg.Count, _ = f.GetUint64(flagCount)
		}
		if err := cfg.ValidateTelemetry(); err != nil {
			return err
		}
		profile, err := cfg.TelemetryProfile()
		if err != nil {
			return err
		}
		gen, err := telemetry.NewGenerator(profile)
		if err != nil {
			return err
		}

		// adapter settings are checked before the capture file is truncated
		if err := resolvePort(cfg); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		var rec *capture.Recorder
		if path, _ := f.GetString(flagCapture); path != "" {
			rec, err = capture.Create(path)
			if err != nil {
				return err
			}
			defer func() {
				if err := rec.Close(); err != nil {
					log.Errorf("capture: %v", err)
				}
				log.Infof("captured %d frames to %s", rec.Count(), path)
			}()
		}

		onFrame := func(frame slcan.CANFrame) {
			log.Infof("<< %s", frame.String())
			if rec != nil {
				if err := rec.Record(capture.Rx, frame); err != nil {
					log.Error(err)
				}
			}
		}

		gctx := cmd.Context()
		s, port, err := openSession(gctx, cfg, slcan.OptOnFrame(onFrame))
		if err != nil {
			return err
		}
		defer closeSession(s)

		if err := s.Handshake(gctx); err != nil {
			return err
		}

		progress, _ := f.GetBool(flagProgress)
		onTick := func(smp telemetry.Sample, frame slcan.CANFrame) {
			if rec != nil {
				if err := rec.Record(capture.Tx, frame); err != nil {
					log.Error(err)
				}
			}
			if !progress {
				log.Infof("soc %d temp %d volt %d >> %s", smp.StateOfCharge, smp.Temperature, smp.Voltage, frame.String())
			}
		}
		if progress {
			pb := bar.New(cfg.Count, "simulating "+profile.Name)
			defer pb.Finish()
			logTick := onTick
			onTick = func(smp telemetry.Sample, frame slcan.CANFrame) {
				logTick(smp, frame)
				pb.Add(1)
			}
		}

		ctx, cancel := context.WithCancel(gctx)
		defer cancel()
		errg, ctx := errgroup.WithContext(ctx)
		ticks, err := telemetry.Every(ctx, cfg.Interval)
		if err != nil {
			return err
		}

		errg.Go(func() error {
			defer cancel()
			return telemetry.Run(ctx, s, gen, ticks, cfg.Count, onTick)
		})

		// closing the port unblocks a transmit that waits for its answer
		errg.Go(func() error {
			<-ctx.Done()
			if gctx.Err() != nil {
				return port.Close()
			}
			return nil
		})

		err = errg.Wait()
		if gctx.Err() != nil {
			log.Infof("stopped after %d frames", gen.Ticks())
			return nil
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("simulation stopped: %w", err)
		}
		log.Infof("sent %d frames", gen.Ticks())
		return nil
	},
}

func init() {
	f := simulateCmd.Flags()
	f.String(flagProfile, "integer", "telemetry profile")
	f.Duration(flagInterval, 0, "time between frames (default 1s)")
	f.Uint64(flagCount, 0, "stop after this many frames, 0 runs until interrupted")
	f.String(flagCapture, "", "record sent and received frames to this CBOR file")
	f.Bool(flagProgress, false, "show a progress bar instead of logging every frame")
	rootCmd.AddCommand(simulateCmd)
}
