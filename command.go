package slcan

import (
	"fmt"
	"strconv"
)

type CommandKind int

const (
	FlushInput CommandKind = iota
	QueryVersion
	QueryErrors
	CloseChannel
	SetBitrate
	SetAcceptanceMask
	SetAcceptanceFilter
	SetAutoPoll
	SetAutoStartup
	OpenChannel
	TransmitFrame
)

var commandNames = map[CommandKind]string{
	FlushInput:          "flush",
	QueryVersion:        "version",
	QueryErrors:         "errors",
	CloseChannel:        "close",
	SetBitrate:          "bitrate",
	SetAcceptanceMask:   "mask",
	SetAcceptanceFilter: "filter",
	SetAutoPoll:         "autopoll",
	SetAutoStartup:      "autostartup",
	OpenChannel:         "open",
	TransmitFrame:       "transmit",
}

func (k CommandKind) String() string {
	if n, ok := commandNames[k]; ok {
		return n
	}
	return "CommandKind(" + strconv.Itoa(int(k)) + ")"
}

// Bitrate codes understood by the S command
const (
	Bitrate10k  uint8 = 0
	Bitrate20k  uint8 = 1
	Bitrate50k  uint8 = 2
	Bitrate100k uint8 = 3
	Bitrate125k uint8 = 4
	Bitrate250k uint8 = 5
	Bitrate500k uint8 = 6
	Bitrate800k uint8 = 7
	Bitrate1M   uint8 = 8
)

// Auto startup modes for the Q command
const (
	AutoStartupOff    uint8 = 0
	AutoStartupNormal uint8 = 1
	AutoStartupListen uint8 = 2
)

const (
	AcceptanceCodeAll = 0x00000000
	AcceptanceMaskAll = 0xFFFFFFFF
)

// Command is one adapter instruction. Only the fields used by Kind are set.
type Command struct {
	Kind    CommandKind
	Code    uint8
	Value   uint32
	Enabled bool
	Frame   CANFrame
}

func CmdFlush() Command                  { return Command{Kind: FlushInput} }
func CmdVersion() Command                { return Command{Kind: QueryVersion} }
func CmdErrors() Command                 { return Command{Kind: QueryErrors} }
func CmdClose() Command                  { return Command{Kind: CloseChannel} }
func CmdOpen() Command                   { return Command{Kind: OpenChannel} }
func CmdBitrate(code uint8) Command      { return Command{Kind: SetBitrate, Code: code} }
func CmdMask(mask uint32) Command        { return Command{Kind: SetAcceptanceMask, Value: mask} }
func CmdFilter(filter uint32) Command    { return Command{Kind: SetAcceptanceFilter, Value: filter} }
func CmdAutoPoll(enabled bool) Command   { return Command{Kind: SetAutoPoll, Enabled: enabled} }
func CmdAutoStartup(mode uint8) Command  { return Command{Kind: SetAutoStartup, Code: mode} }
func CmdTransmit(frame CANFrame) Command { return Command{Kind: TransmitFrame, Frame: frame} }

// Line renders the command as sent to the adapter, without terminator.
func (c Command) Line() (string, error) {
	switch c.Kind {
	case FlushInput:
		return "", nil
	case QueryVersion:
		return "V", nil
	case QueryErrors:
		return "F", nil
	case CloseChannel:
		return "C", nil
	case OpenChannel:
		return "O", nil
	case SetBitrate:
		if c.Code > Bitrate1M {
			return "", fmt.Errorf("unknown bitrate code: %d", c.Code)
		}
		return "S" + strconv.Itoa(int(c.Code)), nil
	case SetAcceptanceMask:
		return fmt.Sprintf("M%08X", c.Value), nil
	case SetAcceptanceFilter:
		return fmt.Sprintf("m%08X", c.Value), nil
	case SetAutoPoll:
		if c.Enabled {
			return "X1", nil
		}
		return "X0", nil
	case SetAutoStartup:
		if c.Code > AutoStartupListen {
			return "", fmt.Errorf("unknown auto startup mode: %d", c.Code)
		}
		return "Q" + strconv.Itoa(int(c.Code)), nil
	case TransmitFrame:
		return Encode(c.Frame)
	}
	return "", fmt.Errorf("unknown command kind %d", int(c.Kind))
}

func (c Command) String() string {
	line, err := c.Line()
	if err != nil {
		return c.Kind.String()
	}
	if line == "" {
		return c.Kind.String()
	}
	return line
}

// AcceptanceFor calculates acceptance code and mask letting the given
// standard identifiers through. No identifiers accepts every frame.
func AcceptanceFor(idList ...uint32) (code, mask uint32) {
	code = ^uint32(0)
	if len(idList) == 0 {
		return AcceptanceCodeAll, AcceptanceMaskAll
	}
	for _, canID := range idList {
		code &= (canID & 0x7FF) << 5
		mask |= (canID & 0x7FF) << 5
	}
	mask = mask ^ code | 0x1F
	code |= code << 16
	mask |= mask << 16
	return code, mask
}
