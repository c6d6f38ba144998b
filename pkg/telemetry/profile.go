// Package telemetry generates the synthetic battery values the simulator puts
// on the bus: state of charge, temperature and voltage, each advanced once per
// tick and wrapped at its bounds.
package telemetry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Field is one wrapping counter in fixed point. Values are stored scaled,
// Divisor turns them into the integer that goes into the payload.
type Field struct {
	Start   int64
	Step    int64
	Max     int64
	Reset   int64
	Divisor int64
}

// Advance adds Step and wraps to Reset once the value exceeds Max. The value
// equal to Max is still produced.
func (f Field) Advance(v int64) int64 {
	v += f.Step
	if v > f.Max {
		v = f.Reset
	}
	return v
}

// Encode returns the payload integer for v, truncated toward zero.
func (f Field) Encode(v int64) int64 {
	if f.Divisor <= 1 {
		return v
	}
	return v / f.Divisor
}

func (f Field) validate(name string) error {
	if f.Step <= 0 {
		return fmt.Errorf("%s: step must be positive, got %d", name, f.Step)
	}
	if f.Reset > f.Max {
		return fmt.Errorf("%s: reset %d above max %d", name, f.Reset, f.Max)
	}
	if f.Divisor < 0 {
		return fmt.Errorf("%s: negative divisor", name)
	}
	return nil
}

type Profile struct {
	Name          string
	Identifier    uint32
	Extended      bool
	StateOfCharge Field
	Temperature   Field
	Voltage       Field
	Layout        Layout
}

func (p Profile) Validate() error {
	if err := p.StateOfCharge.validate("state of charge"); err != nil {
		return err
	}
	if err := p.Temperature.validate("temperature"); err != nil {
		return err
	}
	if err := p.Voltage.validate("voltage"); err != nil {
		return err
	}
	if len(p.Layout) == 0 {
		return errors.New("empty payload layout")
	}
	if n := p.Layout.Size(); n > 8 {
		return fmt.Errorf("payload layout is %d bytes, max 8", n)
	}
	return nil
}

// Start is the sample before the first tick.
func (p Profile) Start() Sample {
	return Sample{
		StateOfCharge: p.StateOfCharge.Start,
		Temperature:   p.Temperature.Start,
		Voltage:       p.Voltage.Start,
	}
}

// Step is the pure per tick advance of all three fields.
func (p Profile) Step(s Sample) Sample {
	return Sample{
		StateOfCharge: p.StateOfCharge.Advance(s.StateOfCharge),
		Temperature:   p.Temperature.Advance(s.Temperature),
		Voltage:       p.Voltage.Advance(s.Voltage),
	}
}

// Integer matches the CANUSB simulator: whole degrees 1..65 and raw voltage
// counts 1700..4200 in an 8 byte frame.
var Integer = Profile{
	Name:          "integer",
	Identifier:    0x630,
	StateOfCharge: Field{Start: 0, Step: 1, Max: 200, Reset: 0, Divisor: 1},
	Temperature:   Field{Start: 1, Step: 1, Max: 65, Reset: 1, Divisor: 1},
	Voltage:       Field{Start: 1700, Step: 1, Max: 4200, Reset: 1700, Divisor: 1},
	Layout:        MustParseLayout("soc,00,99,temp,volt16,FF,FF"),
}

// FixedPoint matches the display simulator: temperature in millidegrees
// stepping 0.1 from -15 to 65 and voltage in millivolts stepping 0.01 V from
// 2.9 to 4.2 V.
var FixedPoint = Profile{
	Name:          "fixedpoint",
	Identifier:    0x630,
	StateOfCharge: Field{Start: 0, Step: 1, Max: 200, Reset: 0, Divisor: 1},
	Temperature:   Field{Start: -15000, Step: 100, Max: 65000, Reset: -15000, Divisor: 1000},
	Voltage:       Field{Start: 2900, Step: 10, Max: 4200, Reset: 2900, Divisor: 1},
	Layout:        MustParseLayout("soc,temp,temp,volt16"),
}

var profiles = map[string]Profile{
	Integer.Name:    Integer,
	FixedPoint.Name: FixedPoint,
}

// Lookup returns a built in profile by name.
func Lookup(name string) (Profile, error) {
	p, ok := profiles[strings.ToLower(name)]
	if !ok {
		return Profile{}, fmt.Errorf("unknown profile %q, available: %s", name, strings.Join(Names(), ", "))
	}
	return p, nil
}

func Names() []string {
	var out []string
	for n := range profiles {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
