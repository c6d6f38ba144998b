// Package config holds the simulator settings. Values come from built in
// defaults, optionally overridden by an INI file and then by command line
// flags.
//
//	[adapter]
//	port       = /dev/ttyUSB0
//	baudrate   = 57600
//	terminator = cr
//	timeout    = 500ms
//	bitrate    = 6
//	mask       = 00000000
//	filter     = FFFFFFFF
//	autopoll   = false
//	flush      = 2
//	flush_wait = true
//	retries    = 1
//
//	[telemetry]
//	profile  = integer
//	interval = 1s
//	count    = 0
//
//	[profile.pack2]
//	base   = fixedpoint
//	id     = 631
//	volt   = 3000,5,4100,3000
//	layout = soc,temp,volt16
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/roffe/slcan"
	"github.com/roffe/slcan/pkg/serialport"
	"github.com/roffe/slcan/pkg/telemetry"
	"gopkg.in/ini.v1"
)

type Config struct {
	Port        string
	Baudrate    int
	Terminator  byte
	Timeout     time.Duration
	Bitrate     uint8
	Acceptance  bool
	Mask        uint32
	Filter      uint32
	AutoPoll    *bool
	FlushCount  int
	FlushWait   bool
	OpenRetries uint

	Profile  string
	Interval time.Duration
	Count    uint64

	// Profiles defined in the file, keyed by lower case name.
	Profiles map[string]telemetry.Profile
}

func Default() *Config {
	return &Config{
		Baudrate:    serialport.DefaultBaudrate,
		Terminator:  slcan.CR,
		Timeout:     slcan.DefaultTimeout,
		Bitrate:     slcan.Bitrate500k,
		FlushCount:  2,
		FlushWait:   true,
		OpenRetries: 1,
		Profile:     telemetry.Integer.Name,
		Interval:    time.Second,
		Profiles:    make(map[string]telemetry.Profile),
	}
}

// Load reads path on top of the defaults.
func Load(path string) (*Config, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg := Default()
	if err := cfg.apply(f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse reads INI data on top of the defaults.
func Parse(data []byte) (*Config, error) {
	f, err := ini.Load(data)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg := Default()
	if err := cfg.apply(f); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) apply(f *ini.File) error {
	a := f.Section("adapter")
	if a.HasKey("port") {
		c.Port = a.Key("port").String()
	}
	if a.HasKey("baudrate") {
		v, err := a.Key("baudrate").Int()
		if err != nil {
			return keyErr(a, "baudrate", err)
		}
		c.Baudrate = v
	}
	if a.HasKey("terminator") {
		t, err := ParseTerminator(a.Key("terminator").String())
		if err != nil {
			return keyErr(a, "terminator", err)
		}
		c.Terminator = t
	}
	if a.HasKey("timeout") {
		d, err := a.Key("timeout").Duration()
		if err != nil {
			return keyErr(a, "timeout", err)
		}
		c.Timeout = d
	}
	if a.HasKey("bitrate") {
		v, err := strconv.ParseUint(a.Key("bitrate").String(), 10, 8)
		if err != nil {
			return keyErr(a, "bitrate", err)
		}
		c.Bitrate = uint8(v)
	}
	if a.HasKey("mask") || a.HasKey("filter") {
		c.Acceptance = true
		c.Mask, c.Filter = slcan.AcceptanceCodeAll, slcan.AcceptanceMaskAll
		if a.HasKey("mask") {
			v, err := ParseHex32(a.Key("mask").String())
			if err != nil {
				return keyErr(a, "mask", err)
			}
			c.Mask = v
		}
		if a.HasKey("filter") {
			v, err := ParseHex32(a.Key("filter").String())
			if err != nil {
				return keyErr(a, "filter", err)
			}
			c.Filter = v
		}
	}
	if a.HasKey("autopoll") {
		v, err := a.Key("autopoll").Bool()
		if err != nil {
			return keyErr(a, "autopoll", err)
		}
		c.AutoPoll = &v
	}
	if a.HasKey("flush") {
		v, err := a.Key("flush").Int()
		if err != nil {
			return keyErr(a, "flush", err)
		}
		c.FlushCount = v
	}
	c.FlushWait = a.Key("flush_wait").MustBool(c.FlushWait)
	if a.HasKey("retries") {
		v, err := a.Key("retries").Uint()
		if err != nil {
			return keyErr(a, "retries", err)
		}
		c.OpenRetries = v
	}

	t := f.Section("telemetry")
	if t.HasKey("profile") {
		c.Profile = strings.ToLower(t.Key("profile").String())
	}
	if t.HasKey("interval") {
		d, err := t.Key("interval").Duration()
		if err != nil {
			return keyErr(t, "interval", err)
		}
		c.Interval = d
	}
	if t.HasKey("count") {
		v, err := t.Key("count").Uint64()
		if err != nil {
			return keyErr(t, "count", err)
		}
		c.Count = v
	}

	for _, s := range f.Sections() {
		name := s.Name()
		if !strings.HasPrefix(name, "profile.") {
			continue
		}
		p, err := parseProfile(strings.ToLower(strings.TrimPrefix(name, "profile.")), s)
		if err != nil {
			return fmt.Errorf("[%s]: %w", name, err)
		}
		c.Profiles[p.Name] = p
	}
	return nil
}

func parseProfile(name string, s *ini.Section) (telemetry.Profile, error) {
	if name == "" {
		return telemetry.Profile{}, errors.New("profile without name")
	}
	p := telemetry.Integer
	if s.HasKey("base") {
		base, err := telemetry.Lookup(s.Key("base").String())
		if err != nil {
			return p, err
		}
		p = base
	}
	p.Name = name
	if s.HasKey("id") {
		v, err := ParseHex32(s.Key("id").String())
		if err != nil {
			return p, keyErr(s, "id", err)
		}
		p.Identifier = v
	}
	p.Extended = s.Key("extended").MustBool(p.Extended)
	for _, fk := range []struct {
		key   string
		field *telemetry.Field
	}{
		{"soc", &p.StateOfCharge},
		{"temp", &p.Temperature},
		{"volt", &p.Voltage},
	} {
		if !s.HasKey(fk.key) {
			continue
		}
		f, err := ParseField(s.Key(fk.key).String(), fk.field.Divisor)
		if err != nil {
			return p, keyErr(s, fk.key, err)
		}
		*fk.field = f
	}
	if s.HasKey("layout") {
		l, err := telemetry.ParseLayout(s.Key("layout").String())
		if err != nil {
			return p, keyErr(s, "layout", err)
		}
		p.Layout = l
	}
	return p, p.Validate()
}

// ParseField reads "start,step,max,reset[,divisor]".
func ParseField(s string, divisor int64) (telemetry.Field, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 && len(parts) != 5 {
		return telemetry.Field{}, fmt.Errorf("want start,step,max,reset[,divisor], got %q", s)
	}
	var v [5]int64
	v[4] = divisor
	for i, part := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return telemetry.Field{}, fmt.Errorf("field %d of %q: %w", i+1, s, err)
		}
		v[i] = n
	}
	return telemetry.Field{Start: v[0], Step: v[1], Max: v[2], Reset: v[3], Divisor: v[4]}, nil
}

// ParseTerminator accepts cr or lf.
func ParseTerminator(s string) (byte, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cr", `\r`:
		return slcan.CR, nil
	case "lf", `\n`:
		return slcan.LF, nil
	}
	return 0, fmt.Errorf("unknown terminator %q, want cr or lf", s)
}

func TerminatorName(b byte) string {
	if b == slcan.LF {
		return "lf"
	}
	return "cr"
}

// ParseHex32 parses a 32 bit hex value with or without 0x prefix.
func ParseHex32(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid hex value %q", s)
	}
	return uint32(v), nil
}

func keyErr(s *ini.Section, key string, err error) error {
	return fmt.Errorf("[%s] %s: %w", s.Name(), key, err)
}

// Validate checks the settings needed to talk to an adapter. It runs before
// the port is opened.
func (c *Config) Validate() error {
	if c.Port == "" {
		return slcan.ErrNoPort
	}
	if c.Baudrate <= 0 {
		return fmt.Errorf("invalid baudrate: %d", c.Baudrate)
	}
	if c.Terminator != slcan.CR && c.Terminator != slcan.LF {
		return fmt.Errorf("invalid terminator: %#x", c.Terminator)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid timeout: %s", c.Timeout)
	}
	if c.Bitrate > slcan.Bitrate1M {
		return fmt.Errorf("unknown bitrate code: %d", c.Bitrate)
	}
	if c.FlushCount < 0 {
		return fmt.Errorf("invalid flush count: %d", c.FlushCount)
	}
	return nil
}

// ValidateTelemetry checks the simulation settings.
func (c *Config) ValidateTelemetry() error {
	if c.Interval <= 0 {
		return fmt.Errorf("invalid interval: %s", c.Interval)
	}
	_, err := c.TelemetryProfile()
	return err
}

// TelemetryProfile resolves Profile against the file profiles first and the
// built in ones second.
func (c *Config) TelemetryProfile() (telemetry.Profile, error) {
	if p, ok := c.Profiles[strings.ToLower(c.Profile)]; ok {
		return p, nil
	}
	return telemetry.Lookup(c.Profile)
}

func (c *Config) PortOptions() serialport.Options {
	return serialport.Options{
		Baudrate: c.Baudrate,
		Attempts: c.OpenRetries,
	}
}

func (c *Config) TransportOpts() []slcan.TransportOpt {
	return []slcan.TransportOpt{
		slcan.OptTerminator(c.Terminator),
		slcan.OptTimeout(c.Timeout),
	}
}

func (c *Config) SessionOpts() []slcan.Opts {
	opts := []slcan.Opts{
		slcan.OptBitrate(c.Bitrate),
		slcan.OptFlush(c.FlushCount, c.FlushWait),
	}
	if c.Acceptance {
		opts = append(opts, slcan.OptAcceptance(c.Mask, c.Filter))
	}
	if c.AutoPoll != nil {
		opts = append(opts, slcan.OptAutoPoll(*c.AutoPoll))
	}
	return opts
}
