package slcan

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

const (
	MaxStandardID = 0x7FF
	MaxExtendedID = 0x1FFFFFFF
	MaxDataLen    = 8
)

// CANFrame is a single CAN bus message. For remote frames the length of Data
// is the requested length, the bytes themselves never go on the wire.
type CANFrame struct {
	Identifier uint32
	Extended   bool
	Remote     bool
	Data       []byte
}

// NewFrame creates a new standard CANFrame and copies the data slice
func NewFrame(identifier uint32, data []byte) CANFrame {
	d := make([]byte, len(data))
	copy(d, data)
	return CANFrame{
		Identifier: identifier,
		Data:       d,
	}
}

// NewExtendedFrame creates a new 29 bit CANFrame and copies the data slice
func NewExtendedFrame(identifier uint32, data []byte) CANFrame {
	frame := NewFrame(identifier, data)
	frame.Extended = true
	return frame
}

// NewRemoteFrame creates a remote transmission request asking for length bytes
func NewRemoteFrame(identifier uint32, extended bool, length int) CANFrame {
	return CANFrame{
		Identifier: identifier,
		Extended:   extended,
		Remote:     true,
		Data:       make([]byte, length),
	}
}

// Returns the length of the data (DLC)
func (f CANFrame) DLC() int {
	return len(f.Data)
}

// Validate checks the identifier range and payload length.
func (f CANFrame) Validate() error {
	if len(f.Data) > MaxDataLen {
		return fmt.Errorf("%w: %d bytes", ErrPayloadTooLong, len(f.Data))
	}
	limit := uint32(MaxStandardID)
	if f.Extended {
		limit = MaxExtendedID
	}
	if f.Identifier > limit {
		return fmt.Errorf("%w: 0x%X > 0x%X", ErrIdentifierRange, f.Identifier, limit)
	}
	return nil
}

// Equal reports whether both frames carry the same identifier, flags and payload.
func (f CANFrame) Equal(o CANFrame) bool {
	if f.Identifier != o.Identifier || f.Extended != o.Extended || f.Remote != o.Remote {
		return false
	}
	if len(f.Data) != len(o.Data) {
		return false
	}
	if f.Remote {
		return true
	}
	for i := range f.Data {
		if f.Data[i] != o.Data[i] {
			return false
		}
	}
	return true
}

var (
	yellow = color.New(color.FgHiBlue).SprintfFunc()
	red    = color.New(color.FgRed).SprintfFunc()
	green  = color.New(color.FgGreen).SprintfFunc()
)

func (f CANFrame) identifierString() string {
	if f.Extended {
		return fmt.Sprintf("0x%08X", f.Identifier)
	}
	return fmt.Sprintf("0x%03X", f.Identifier)
}

func (f CANFrame) hexView() string {
	if f.Remote {
		return "RTR"
	}
	var hexView strings.Builder
	for i, b := range f.Data {
		hexView.WriteString(fmt.Sprintf("%02X", b))
		if i != len(f.Data)-1 {
			hexView.WriteString(" ")
		}
	}
	return hexView.String()
}

func (f CANFrame) binView() string {
	if f.Remote {
		return ""
	}
	var binView strings.Builder
	for i, b := range f.Data {
		binView.WriteString(fmt.Sprintf("%08b", b))
		if i != len(f.Data)-1 {
			binView.WriteString(" ")
		}
	}
	return binView.String()
}

func (f CANFrame) String() string {
	var out strings.Builder
	out.WriteString(f.identifierString() + " || ")
	out.WriteString(strconv.Itoa(len(f.Data)) + " || ")
	out.WriteString(fmt.Sprintf("%-23s", f.hexView()))
	out.WriteString(" || ")
	out.WriteString(fmt.Sprintf("%-71s", f.binView()))
	out.WriteString(" || ")
	out.WriteString(onlyPrintable(f.Data, f.Remote))
	return out.String()
}

func (f CANFrame) ColorString() string {
	var out strings.Builder
	out.WriteString(green("%s", f.identifierString()) + " || ")
	out.WriteString(strconv.Itoa(len(f.Data)) + " || ")
	out.WriteString(fmt.Sprintf("%-23s", f.hexView()))
	out.WriteString(" || ")
	out.WriteString(red("%-71s", f.binView()))
	out.WriteString(" || ")
	out.WriteString(yellow("%s", onlyPrintable(f.Data, f.Remote)))
	return out.String()
}

func onlyPrintable(data []byte, remote bool) string {
	if remote {
		return ""
	}
	var out strings.Builder
	for _, b := range data {
		if b < 32 || b > 126 {
			out.WriteByte('.')
		} else {
			out.WriteByte(b)
		}
	}
	return out.String()
}
