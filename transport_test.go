package slcan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransportRequest(t *testing.T) {
	p := newFakePort(lawicel)
	tr := NewTransport(p, OptTimeout(50*time.Millisecond))

	resp, err := tr.Request(context.Background(), CmdVersion())
	require.NoError(t, err)
	assert.Equal(t, "V1011", resp)
	assert.Equal(t, []string{"V"}, p.written)

	st := tr.Stats()
	assert.Equal(t, uint64(2), st.SentBytes)
	assert.Equal(t, uint64(6), st.RecvBytes)
	assert.Equal(t, uint64(1), st.Commands)
}

func TestTransportSendDoesNotRead(t *testing.T) {
	p := newFakePort(lawicel)
	tr := NewTransport(p)
	require.NoError(t, tr.Send(context.Background(), CmdClose()))
	assert.Equal(t, []string{"C"}, p.written)
	assert.Equal(t, 1, p.in.Len(), "answer must stay unread")
}

func TestTransportTimeout(t *testing.T) {
	p := newFakePort(func(string) string { return "" })
	tr := NewTransport(p, OptTimeout(30*time.Millisecond))

	start := time.Now()
	_, err := tr.Request(context.Background(), CmdVersion())
	require.Error(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.True(t, IsTimeout(err))

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, Timeout, te.Kind)
	assert.Equal(t, "V", te.Command)
	assert.Equal(t, uint64(1), tr.Stats().Timeouts)
}

func TestTransportNewlineTerminator(t *testing.T) {
	p := newFakePort(func(line string) string { return "ok:" + line + "\r\n" })
	p.term = LF
	tr := NewTransport(p, OptTerminator(LF), OptTimeout(50*time.Millisecond))

	resp, err := tr.Request(context.Background(), CmdTransmit(NewFrame(0x630, []byte{1})))
	require.NoError(t, err)
	assert.Equal(t, "ok:t630101", resp)
	assert.Equal(t, byte(LF), tr.Terminator())
}

func TestTransportBell(t *testing.T) {
	p := newFakePort(func(string) string { return "\a" })
	tr := NewTransport(p, OptTimeout(50*time.Millisecond))
	resp, err := tr.Request(context.Background(), CmdOpen())
	require.NoError(t, err)
	assert.Equal(t, "\a", resp)
}

func TestTransportKeepsFollowingLines(t *testing.T) {
	p := newFakePort(func(string) string { return "t1230\rz\r" })
	tr := NewTransport(p, OptTimeout(50*time.Millisecond))
	ctx := context.Background()

	resp, err := tr.Request(ctx, CmdTransmit(NewFrame(0x1, nil)))
	require.NoError(t, err)
	assert.Equal(t, "t1230", resp)

	resp, err = tr.ReadLine(ctx)
	require.NoError(t, err)
	assert.Equal(t, "z", resp)
}

func TestTransportIOError(t *testing.T) {
	boom := errors.New("boom")

	p := newFakePort(lawicel)
	p.writeErr = boom
	tr := NewTransport(p)
	err := tr.Send(context.Background(), CmdOpen())
	assert.ErrorIs(t, err, boom)
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, IOError, te.Kind)

	p = newFakePort(lawicel)
	p.readErr = boom
	tr = NewTransport(p)
	_, err = tr.Request(context.Background(), CmdOpen())
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsTimeout(err))
	assert.Equal(t, uint64(1), tr.Stats().Errors)
}

func TestTransportDrainAndFlush(t *testing.T) {
	p := newFakePort(func(string) string { return "\a\r\r" })
	tr := NewTransport(p)
	ctx := context.Background()

	require.NoError(t, tr.Send(ctx, CmdClose()))
	n, err := tr.Drain(ctx, 5*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Zero(t, tr.Stats().Timeouts)

	p.in.WriteString("junk")
	require.NoError(t, tr.Flush())
	assert.Equal(t, 1, p.resets)
	assert.Zero(t, p.in.Len())
}

func TestTransportCancelled(t *testing.T) {
	tr := NewTransport(newFakePort(lawicel))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tr.Request(ctx, CmdVersion())
	assert.ErrorIs(t, err, context.Canceled)
}
