package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/roffe/slcan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateOfChargeWrap(t *testing.T) {
	g, err := NewGenerator(Integer)
	require.NoError(t, err)

	var got []int64
	for i := 0; i < 202; i++ {
		got = append(got, g.Next().StateOfCharge)
	}
	for i := 0; i < 200; i++ {
		require.Equal(t, int64(i+1), got[i], "tick %d", i+1)
	}
	assert.Equal(t, int64(0), got[200])
	assert.Equal(t, int64(1), got[201])
}

func TestFieldAdvance(t *testing.T) {
	f := Field{Start: 1, Step: 1, Max: 65, Reset: 1}
	assert.Equal(t, int64(65), f.Advance(64))
	assert.Equal(t, int64(1), f.Advance(65))

	temp := FixedPoint.Temperature
	assert.Equal(t, int64(-14900), temp.Advance(-15000))
	assert.Equal(t, int64(65000), temp.Advance(64900))
	assert.Equal(t, int64(-15000), temp.Advance(65000))
	assert.Equal(t, int64(-14), temp.Encode(-14900))
}

func TestIntegerProfileFrame(t *testing.T) {
	g, err := NewGenerator(Integer)
	require.NoError(t, err)

	f, err := g.Frame(g.Next())
	require.NoError(t, err)
	line, err := slcan.Encode(f)
	require.NoError(t, err)
	assert.Equal(t, "t63080100990206A5FFFF", line)
}

func TestFixedPointProfileFrame(t *testing.T) {
	g, err := NewGenerator(FixedPoint)
	require.NoError(t, err)

	s := g.Next()
	assert.Equal(t, Sample{StateOfCharge: 1, Temperature: -14900, Voltage: 2910}, s)
	f, err := g.Frame(s)
	require.NoError(t, err)
	line, err := slcan.Encode(f)
	require.NoError(t, err)
	assert.Equal(t, "t630501F2F20B5E", line)
}

func TestVoltageWrap(t *testing.T) {
	g, err := NewGenerator(FixedPoint)
	require.NoError(t, err)
	var last Sample
	for i := 0; i < 130; i++ {
		last = g.Next()
	}
	assert.Equal(t, int64(4200), last.Voltage)
	assert.Equal(t, int64(2900), g.Next().Voltage)
}

func TestGeneratorReset(t *testing.T) {
	g, err := NewGenerator(Integer)
	require.NoError(t, err)
	first := g.Next()
	g.Next()
	g.Reset()
	assert.Zero(t, g.Ticks())
	assert.Equal(t, first, g.Next())
}

func TestProfileValidate(t *testing.T) {
	p := Integer
	p.Layout = MustParseLayout("volt16,volt16,volt16,volt16,soc")
	_, err := NewGenerator(p)
	assert.Error(t, err)

	p = Integer
	p.Identifier = 0x800
	g, err := NewGenerator(p)
	require.NoError(t, err)
	_, err = g.Frame(g.Next())
	assert.ErrorIs(t, err, slcan.ErrIdentifierRange)

	p = Integer
	p.Temperature.Step = 0
	assert.Error(t, p.Validate())

	p = Integer
	p.Voltage.Step = -1
	assert.Error(t, p.Validate())
	_, err = NewGenerator(p)
	assert.Error(t, err)

	p = Integer
	p.Voltage.Reset = 5000
	assert.Error(t, p.Validate())
}

func TestLookup(t *testing.T) {
	p, err := Lookup("FixedPoint")
	require.NoError(t, err)
	assert.Equal(t, "fixedpoint", p.Name)
	_, err = Lookup("nope")
	assert.Error(t, err)
	assert.Equal(t, []string{"fixedpoint", "integer"}, Names())
}

func TestParseLayout(t *testing.T) {
	l, err := ParseLayout(" soc, 00 ,99,TEMP,volt16,ff,ff")
	require.NoError(t, err)
	assert.Equal(t, 8, l.Size())
	assert.Equal(t, "soc,00,99,temp,volt16,FF,FF", l.String())

	for _, s := range []string{"", "soc,xyz", "soc,1", "soc,G1"} {
		_, err := ParseLayout(s)
		assert.Error(t, err, s)
	}
}

type recorder struct {
	frames []slcan.CANFrame
	err    error
	failAt int
}

func (r *recorder) Transmit(_ context.Context, f slcan.CANFrame) error {
	if r.err != nil && len(r.frames) == r.failAt {
		return r.err
	}
	r.frames = append(r.frames, f)
	return nil
}

func TestRunCount(t *testing.T) {
	g, err := NewGenerator(Integer)
	require.NoError(t, err)
	ticks := make(chan time.Time, 5)
	for i := 0; i < 5; i++ {
		ticks <- time.Time{}
	}
	var seen int
	r := &recorder{}
	require.NoError(t, Run(context.Background(), r, g, ticks, 3, func(Sample, slcan.CANFrame) { seen++ }))
	assert.Len(t, r.frames, 3)
	assert.Equal(t, 3, seen)
	assert.Equal(t, byte(3), r.frames[2].Data[0])
}

func TestRunStopsOnError(t *testing.T) {
	g, err := NewGenerator(Integer)
	require.NoError(t, err)
	ticks := make(chan time.Time, 3)
	for i := 0; i < 3; i++ {
		ticks <- time.Time{}
	}
	close(ticks)
	r := &recorder{err: slcan.ErrNotOpen, failAt: 1}
	err = Run(context.Background(), r, g, ticks, 0, nil)
	assert.ErrorIs(t, err, slcan.ErrNotOpen)
	assert.Len(t, r.frames, 1)
}

func TestRunCancelled(t *testing.T) {
	g, err := NewGenerator(Integer)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = Run(ctx, &recorder{}, g, make(chan time.Time), 0, nil)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestEvery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c, err := Every(ctx, time.Millisecond)
	require.NoError(t, err)
	<-c
	<-c
	cancel()
	for range c {
	}

	for _, d := range []time.Duration{0, -time.Second} {
		_, err := Every(context.Background(), d)
		assert.Error(t, err, d)
	}
}
