package slcan

import (
	"fmt"
	"strings"
)

const hexDigits = "0123456789ABCDEF"

// Encode converts a frame into its adapter command line, without terminator.
//
//	tiiil[dd...]       standard data frame
//	Tiiiiiiiil[dd...]  extended data frame
//	riiil / Riiiiiiiil remote frames, no data bytes
func Encode(f CANFrame) (string, error) {
	if err := f.Validate(); err != nil {
		return "", err
	}
	var b strings.Builder
	b.Grow(10 + 2*len(f.Data))
	switch {
	case f.Remote && f.Extended:
		b.WriteByte('R')
	case f.Remote:
		b.WriteByte('r')
	case f.Extended:
		b.WriteByte('T')
	default:
		b.WriteByte('t')
	}
	if f.Extended {
		writeHex(&b, f.Identifier, 8)
	} else {
		writeHex(&b, f.Identifier, 3)
	}
	b.WriteByte('0' + byte(len(f.Data)))
	if !f.Remote {
		for _, d := range f.Data {
			writeHex(&b, uint32(d), 2)
		}
	}
	return b.String(), nil
}

func writeHex(b *strings.Builder, v uint32, width int) {
	for shift := (width - 1) * 4; shift >= 0; shift -= 4 {
		b.WriteByte(hexDigits[(v>>uint(shift))&0x0F])
	}
}

// IsFrameLine reports whether an incoming line starts like a frame.
func IsFrameLine(line string) bool {
	if line == "" {
		return false
	}
	switch line[0] {
	case 't', 'T', 'r', 'R':
		return true
	}
	return false
}

// Decode parses a frame line as produced by Encode or sent by the adapter
// when auto poll is on. Hex digits are case insensitive and one trailing
// CR or LF is ignored.
func Decode(line string) (CANFrame, error) {
	raw := line
	if n := len(line); n > 0 && (line[n-1] == '\r' || line[n-1] == '\n') {
		line = line[:n-1]
	}

	var f CANFrame
	if line == "" {
		return f, &DecodeError{Kind: UnknownPrefix, Line: raw}
	}

	idLen := 3
	switch line[0] {
	case 't':
	case 'T':
		f.Extended, idLen = true, 8
	case 'r':
		f.Remote = true
	case 'R':
		f.Remote, f.Extended, idLen = true, true, 8
	default:
		return f, &DecodeError{Kind: UnknownPrefix, Line: raw}
	}

	pos := 1
	if len(line) < pos+idLen+1 {
		return f, &DecodeError{Kind: Truncated, Line: raw, Pos: len(line)}
	}
	id, bad := parseHex(line[pos : pos+idLen])
	if bad >= 0 {
		return f, &DecodeError{Kind: NotHex, Line: raw, Pos: pos + bad}
	}
	f.Identifier = id
	pos += idLen

	dlc, ok := nibble(line[pos])
	if !ok {
		return f, &DecodeError{Kind: NotHex, Line: raw, Pos: pos}
	}
	if dlc > MaxDataLen {
		return f, &DecodeError{Kind: BadLength, Line: raw, Pos: pos}
	}
	pos++

	f.Data = make([]byte, dlc)
	if !f.Remote {
		need := pos + 2*int(dlc)
		if len(line) < need {
			return f, &DecodeError{Kind: Truncated, Line: raw, Pos: len(line)}
		}
		for i := range f.Data {
			v, bad := parseHex(line[pos : pos+2])
			if bad >= 0 {
				return f, &DecodeError{Kind: NotHex, Line: raw, Pos: pos + bad}
			}
			f.Data[i] = byte(v)
			pos += 2
		}
	}
	if len(line) > pos {
		return f, &DecodeError{Kind: TrailingData, Line: raw, Pos: pos}
	}
	if err := f.Validate(); err != nil {
		return f, fmt.Errorf("decode %q: %w", raw, err)
	}
	return f, nil
}

// parseHex returns the value of s and the offset of the first invalid digit,
// or -1 when all digits are valid.
func parseHex(s string) (uint32, int) {
	var v uint32
	for i := 0; i < len(s); i++ {
		n, ok := nibble(s[i])
		if !ok {
			return 0, i
		}
		v = v<<4 | uint32(n)
	}
	return v, -1
}

func nibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}
