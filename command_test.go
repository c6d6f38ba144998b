package slcan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandLine(t *testing.T) {
	tests := []struct {
		cmd  Command
		want string
	}{
		{CmdFlush(), ""},
		{CmdVersion(), "V"},
		{CmdErrors(), "F"},
		{CmdClose(), "C"},
		{CmdOpen(), "O"},
		{CmdBitrate(Bitrate500k), "S6"},
		{CmdBitrate(Bitrate10k), "S0"},
		{CmdMask(0), "M00000000"},
		{CmdFilter(0xFFFFFFFF), "mFFFFFFFF"},
		{CmdMask(0xc600c600), "MC600C600"},
		{CmdAutoPoll(true), "X1"},
		{CmdAutoPoll(false), "X0"},
		{CmdAutoStartup(AutoStartupNormal), "Q1"},
		{CmdTransmit(NewFrame(0x630, []byte{0x01})), "t630101"},
	}
	for _, tt := range tests {
		t.Run(tt.cmd.Kind.String(), func(t *testing.T) {
			got, err := tt.cmd.Line()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCommandLineErrors(t *testing.T) {
	for _, cmd := range []Command{
		CmdBitrate(9),
		CmdAutoStartup(3),
		CmdTransmit(NewFrame(0x1, make([]byte, 9))),
		{Kind: CommandKind(99)},
	} {
		_, err := cmd.Line()
		assert.Error(t, err, cmd.Kind.String())
	}
}

func TestCommandString(t *testing.T) {
	assert.Equal(t, "flush", CmdFlush().String())
	assert.Equal(t, "S6", CmdBitrate(6).String())
	assert.Equal(t, "bitrate", CmdBitrate(42).String())
}

func TestAcceptanceFor(t *testing.T) {
	code, mask := AcceptanceFor()
	assert.Equal(t, uint32(AcceptanceCodeAll), code)
	assert.Equal(t, uint32(AcceptanceMaskAll), mask)

	code, mask = AcceptanceFor(0x630)
	assert.Equal(t, uint32(0xC600C600), code)
	assert.Equal(t, uint32(0x001F001F), mask)

	code, mask = AcceptanceFor(0x630, 0x631)
	assert.Equal(t, uint32(0xC600C600), code)
	assert.Equal(t, uint32(0x003F003F), mask)
}
