package slcan

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/albenik/bcd"
)

// Version as answered to the V command, "Vhhss" where hh and ss are the
// hardware and software versions as decimal digits.
type Version struct {
	Hardware uint8
	Software uint8
}

func (v Version) String() string {
	return fmt.Sprintf("hw %d.%d sw %d.%d", v.Hardware/10, v.Hardware%10, v.Software/10, v.Software%10)
}

// ParseVersion decodes a V response line.
func ParseVersion(line string) (Version, error) {
	if strings.IndexByte(line, BELL) >= 0 {
		return Version{}, &ResponseError{Command: "V", Response: line, Err: ErrRejected}
	}
	if len(line) != 5 || line[0] != 'V' {
		return Version{}, &ResponseError{Command: "V", Response: line, Err: ErrMalformedResponse}
	}
	b, err := hex.DecodeString(line[1:])
	if err != nil {
		return Version{}, &ResponseError{Command: "V", Response: line, Err: ErrMalformedResponse}
	}
	return Version{
		Hardware: bcd.ToUint8(b[0]),
		Software: bcd.ToUint8(b[1]),
	}, nil
}

/*
Bit 0 CAN receive FIFO queue full
Bit 1 CAN transmit FIFO queue full
Bit 2 Error warning (EI), see SJA1000 datasheet
Bit 3 Data Overrun (DOI), see SJA1000 datasheet
Bit 4 Not used.
Bit 5 Error Passive (EPI), see SJA1000 datasheet
Bit 6 Arbitration Lost (ALI), see SJA1000 datasheet *
Bit 7 Bus Error (BEI), see SJA1000 datasheet **
* Arbitration lost doesn’t generate a blinking RED light!
** Bus Error generates a constant RED ligh
*/

// Status is the flag byte answered to the F command.
type Status uint8

const (
	StatusReceiveFIFOFull  Status = 0x01
	StatusTransmitFIFOFull Status = 0x02
	StatusErrorWarning     Status = 0x04
	StatusDataOverrun      Status = 0x08
	StatusErrorPassive     Status = 0x20
	StatusArbitrationLost  Status = 0x40
	StatusBusError         Status = 0x80
)

var statusErrors = []struct {
	flag Status
	err  error
}{
	{StatusReceiveFIFOFull, errors.New("CAN receive FIFO queue full")},
	{StatusTransmitFIFOFull, errors.New("CAN transmit FIFO queue full")},
	{StatusErrorWarning, errors.New("error warning (EI)")},
	{StatusDataOverrun, errors.New("data overrun (DOI)")},
	{StatusErrorPassive, errors.New("error passive (EPI)")},
	{StatusArbitrationLost, errors.New("arbitration lost (ALI)")},
	{StatusBusError, errors.New("bus error (BEI)")},
}

// ParseStatus decodes a F response line.
func ParseStatus(line string) (Status, error) {
	if strings.IndexByte(line, BELL) >= 0 {
		return 0, &ResponseError{Command: "F", Response: line, Err: ErrRejected}
	}
	if len(line) != 3 || line[0] != 'F' {
		return 0, &ResponseError{Command: "F", Response: line, Err: ErrMalformedResponse}
	}
	v, bad := parseHex(line[1:])
	if bad >= 0 {
		return 0, &ResponseError{Command: "F", Response: line, Err: ErrMalformedResponse}
	}
	return Status(v), nil
}

// Err returns the first error flag that is set, nil if the bus is healthy.
func (s Status) Err() error {
	for _, se := range statusErrors {
		if s&se.flag != 0 {
			return se.err
		}
	}
	return nil
}

func (s Status) String() string {
	if s == 0 {
		return "ok"
	}
	var out []string
	for _, se := range statusErrors {
		if s&se.flag != 0 {
			out = append(out, se.err.Error())
		}
	}
	return strings.Join(out, ", ")
}
