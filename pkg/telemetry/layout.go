package telemetry

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

type SlotKind int

const (
	SlotConst SlotKind = iota
	SlotStateOfCharge
	SlotTemperature
	SlotTemperature16
	SlotVoltage
	SlotVoltage16
)

var slotNames = map[string]SlotKind{
	"soc":    SlotStateOfCharge,
	"temp":   SlotTemperature,
	"temp16": SlotTemperature16,
	"volt":   SlotVoltage,
	"volt16": SlotVoltage16,
}

// Slot is one payload field, Value is only used by SlotConst.
type Slot struct {
	Kind  SlotKind
	Value byte
}

func (s Slot) size() int {
	switch s.Kind {
	case SlotTemperature16, SlotVoltage16:
		return 2
	}
	return 1
}

func (s Slot) String() string {
	if s.Kind == SlotConst {
		return fmt.Sprintf("%02X", s.Value)
	}
	for n, k := range slotNames {
		if k == s.Kind {
			return n
		}
	}
	return "?"
}

// Layout describes where each value sits in the frame payload.
type Layout []Slot

// ParseLayout reads a comma separated layout such as "soc,00,99,temp,volt16".
// Two hex digits are a constant byte, 16 bit fields are big endian.
func ParseLayout(s string) (Layout, error) {
	var out Layout
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if k, ok := slotNames[part]; ok {
			out = append(out, Slot{Kind: k})
			continue
		}
		if len(part) != 2 {
			return nil, fmt.Errorf("invalid layout field %q", part)
		}
		v, err := strconv.ParseUint(part, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid layout field %q", part)
		}
		out = append(out, Slot{Kind: SlotConst, Value: byte(v)})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty layout %q", s)
	}
	return out, nil
}

func MustParseLayout(s string) Layout {
	l, err := ParseLayout(s)
	if err != nil {
		panic(err)
	}
	return l
}

func (l Layout) Size() int {
	var n int
	for _, s := range l {
		n += s.size()
	}
	return n
}

func (l Layout) String() string {
	parts := make([]string, len(l))
	for i, s := range l {
		parts[i] = s.String()
	}
	return strings.Join(parts, ",")
}

// Encode fills the payload for sample, values are truncated to the slot width.
func (l Layout) Encode(p Profile, s Sample) []byte {
	out := make([]byte, 0, l.Size())
	for _, slot := range l {
		switch slot.Kind {
		case SlotConst:
			out = append(out, slot.Value)
		case SlotStateOfCharge:
			out = append(out, byte(p.StateOfCharge.Encode(s.StateOfCharge)))
		case SlotTemperature:
			out = append(out, byte(p.Temperature.Encode(s.Temperature)))
		case SlotTemperature16:
			out = binary.BigEndian.AppendUint16(out, uint16(p.Temperature.Encode(s.Temperature)))
		case SlotVoltage:
			out = append(out, byte(p.Voltage.Encode(s.Voltage)))
		case SlotVoltage16:
			out = binary.BigEndian.AppendUint16(out, uint16(p.Voltage.Encode(s.Voltage)))
		}
	}
	return out
}
