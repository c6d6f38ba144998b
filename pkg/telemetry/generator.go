package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/roffe/slcan"
	log "github.com/sirupsen/logrus"
)

type Sample struct {
	StateOfCharge int64
	Temperature   int64
	Voltage       int64
}

// Generator yields an endless sequence of samples, one per Next call.
type Generator struct {
	profile Profile
	cur     Sample
	ticks   uint64
}

func NewGenerator(p Profile) (*Generator, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("profile %q: %w", p.Name, err)
	}
	return &Generator{profile: p, cur: p.Start()}, nil
}

func (g *Generator) Profile() Profile {
	return g.profile
}

// Next advances one tick and returns the new sample.
func (g *Generator) Next() Sample {
	g.cur = g.profile.Step(g.cur)
	g.ticks++
	return g.cur
}

// Reset restarts the sequence from the profile start values.
func (g *Generator) Reset() {
	g.cur = g.profile.Start()
	g.ticks = 0
}

func (g *Generator) Ticks() uint64 {
	return g.ticks
}

// Frame encodes a sample with the profile layout.
func (g *Generator) Frame(s Sample) (slcan.CANFrame, error) {
	f := slcan.NewFrame(g.profile.Identifier, g.profile.Layout.Encode(g.profile, s))
	f.Extended = g.profile.Extended
	if err := f.Validate(); err != nil {
		return slcan.CANFrame{}, fmt.Errorf("profile %q: %w", g.profile.Name, err)
	}
	return f, nil
}

// Every returns a channel that fires at once and then every interval until
// ctx is done. A non positive interval is an error.
func Every(ctx context.Context, interval time.Duration) (<-chan time.Time, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("invalid tick interval: %s", interval)
	}
	c := make(chan time.Time)
	go func() {
		defer close(c)
		t := time.NewTicker(interval)
		defer t.Stop()
		now := time.Now()
		for {
			select {
			case c <- now:
			case <-ctx.Done():
				return
			}
			select {
			case now = <-t.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return c, nil
}

// Run transmits one generated frame per tick. count 0 runs until ctx is done
// or ticks is closed. onTick, if set, sees every transmitted sample.
func Run(ctx context.Context, sender slcan.FrameSender, g *Generator, ticks <-chan time.Time, count uint64, onTick func(Sample, slcan.CANFrame)) error {
	for n := uint64(0); count == 0 || n < count; n++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-ticks:
			if !ok {
				return ctx.Err()
			}
		}
		s := g.Next()
		frame, err := g.Frame(s)
		if err != nil {
			return err
		}
		log.WithFields(log.Fields{
			"soc":  s.StateOfCharge,
			"temp": s.Temperature,
			"volt": s.Voltage,
		}).Debug("sending")
		if err := sender.Transmit(ctx, frame); err != nil {
			return fmt.Errorf("tick %d: %w", g.Ticks(), err)
		}
		if onTick != nil {
			onTick(s, frame)
		}
	}
	return nil
}
