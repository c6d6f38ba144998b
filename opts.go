package slcan

import (
	"fmt"
	"time"
)

type Opts func(s *Session) error

// OptBitrate selects the S command code, 0 (10 kbit) to 8 (1 Mbit).
func OptBitrate(code uint8) Opts {
	return func(s *Session) error {
		if code > Bitrate1M {
			return fmt.Errorf("unknown bitrate code: %d", code)
		}
		s.bitrate = code
		return nil
	}
}

// OptRate maps a bus speed in kbit/s to its bitrate code
func OptRate(kbit float64) Opts {
	return func(s *Session) error {
		switch kbit {
		case 10:
			s.bitrate = Bitrate10k
		case 20:
			s.bitrate = Bitrate20k
		case 50:
			s.bitrate = Bitrate50k
		case 100:
			s.bitrate = Bitrate100k
		case 125:
			s.bitrate = Bitrate125k
		case 250:
			s.bitrate = Bitrate250k
		case 500:
			s.bitrate = Bitrate500k
		case 800:
			s.bitrate = Bitrate800k
		case 1000:
			s.bitrate = Bitrate1M
		default:
			return fmt.Errorf("unknown rate: %f", kbit)
		}
		return nil
	}
}

// OptAcceptance makes the handshake send M and m before opening the channel.
func OptAcceptance(mask, filter uint32) Opts {
	return func(s *Session) error {
		s.acceptance = true
		s.mask, s.filter = mask, filter
		return nil
	}
}

func OptAutoPoll(enabled bool) Opts {
	return func(s *Session) error {
		s.autoPoll = &enabled
		return nil
	}
}

// OptFlush sets how many empty lines clear the adapter input and whether
// their answers are awaited.
func OptFlush(count int, wait bool) Opts {
	return func(s *Session) error {
		if count < 0 {
			return fmt.Errorf("invalid flush count: %d", count)
		}
		s.flushCount, s.flushWait = count, wait
		return nil
	}
}

func OptQueryErrors(enabled bool) Opts {
	return func(s *Session) error {
		s.queryErrors = enabled
		return nil
	}
}

// OptSettle is how long the session waits for stray answers after a fire and
// forget close.
func OptSettle(d time.Duration) Opts {
	return func(s *Session) error {
		s.settle = d
		return nil
	}
}

// OptOnFrame receives frames the adapter polls out while the channel is open.
func OptOnFrame(fn func(CANFrame)) Opts {
	return func(s *Session) error {
		s.onFrame = fn
		return nil
	}
}
