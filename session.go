package slcan

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

type State int

const (
	Closed State = iota
	Configuring
	Open
	Faulted
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Configuring:
		return "configuring"
	case Open:
		return "open"
	case Faulted:
		return "faulted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Session drives a Lawicel style adapter from Closed to Open and transmits
// frames once the channel is open. Any transport error or unexpected answer
// leaves it Faulted until Reset.
type Session struct {
	t     *Transport
	state State
	fault error

	bitrate     uint8
	acceptance  bool
	mask        uint32
	filter      uint32
	autoPoll    *bool
	flushCount  int
	flushWait   bool
	queryErrors bool
	settle      time.Duration
	onFrame     func(CANFrame)

	version Version
	status  Status
}

func NewSession(t *Transport, opts ...Opts) (*Session, error) {
	s := &Session{
		t:           t,
		state:       Closed,
		bitrate:     Bitrate500k,
		flushCount:  2,
		flushWait:   true,
		queryErrors: true,
		settle:      20 * time.Millisecond,
	}
	for _, o := range opts {
		if err := o(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Session) State() State {
	return s.state
}

// Err returns what faulted the session.
func (s *Session) Err() error {
	return s.fault
}

func (s *Session) Version() Version {
	return s.version
}

func (s *Session) Status() Status {
	return s.status
}

func (s *Session) Stats() Stats {
	return s.t.Stats()
}

// Handshake runs the fixed initialisation recipe: flush, flush, version,
// errors, close, [auto poll], bitrate, [mask, filter], open.
func (s *Session) Handshake(ctx context.Context) error {
	log.Info("initializing adapter")
	for i := 0; i < s.flushCount; i++ {
		if err := s.Flush(ctx); err != nil {
			return &HandshakeError{Step: FlushInput.String(), Err: err}
		}
	}
	if _, err := s.t.Drain(ctx, s.settle); err != nil {
		if ctx.Err() != nil {
			return &HandshakeError{Step: FlushInput.String(), Err: ctx.Err()}
		}
		log.Warnf("flush: %v", err)
	}
	steps := []struct {
		kind CommandKind
		run  func(context.Context) error
	}{
		{QueryVersion, func(ctx context.Context) error { _, err := s.QueryVersion(ctx); return err }},
		{QueryErrors, func(ctx context.Context) error {
			if !s.queryErrors {
				return nil
			}
			_, err := s.QueryErrors(ctx)
			return err
		}},
		{CloseChannel, s.CloseChannel},
		{SetAutoPoll, func(ctx context.Context) error {
			if s.autoPoll == nil {
				return nil
			}
			return s.SetAutoPoll(ctx, *s.autoPoll)
		}},
		{SetBitrate, func(ctx context.Context) error { return s.SetBitrate(ctx, s.bitrate) }},
		{SetAcceptanceMask, func(ctx context.Context) error {
			if !s.acceptance {
				return nil
			}
			return s.SetAcceptanceMask(ctx, s.mask)
		}},
		{SetAcceptanceFilter, func(ctx context.Context) error {
			if !s.acceptance {
				return nil
			}
			return s.SetAcceptanceFilter(ctx, s.filter)
		}},
		{OpenChannel, s.OpenChannel},
	}
	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			return &HandshakeError{Step: step.kind.String(), Err: err}
		}
	}
	log.Infof("CAN channel open, bitrate code %d", s.bitrate)
	return nil
}

// ConfigureAutostart stores bus settings in the adapter and enables auto
// startup so it opens the channel on its own after power up.
func (s *Session) ConfigureAutostart(ctx context.Context) error {
	if err := s.check(FlushInput, Closed); err != nil {
		return err
	}
	for i := 0; i < 2; i++ {
		if err := s.t.Send(ctx, CmdFlush()); err != nil {
			log.Warnf("flush: %v", err)
		}
	}
	if _, err := s.t.Drain(ctx, s.settle); err != nil {
		return s.fail(err)
	}
	steps := []struct {
		kind CommandKind
		run  func(context.Context) error
	}{
		{QueryVersion, func(ctx context.Context) error { _, err := s.QueryVersion(ctx); return err }},
		{CloseChannel, s.CloseChannel},
		{SetAutoPoll, func(ctx context.Context) error { return s.SetAutoPoll(ctx, true) }},
		{SetBitrate, func(ctx context.Context) error { return s.SetBitrate(ctx, s.bitrate) }},
		{SetAcceptanceMask, func(ctx context.Context) error { return s.SetAcceptanceMask(ctx, AcceptanceCodeAll) }},
		{SetAcceptanceFilter, func(ctx context.Context) error { return s.SetAcceptanceFilter(ctx, AcceptanceMaskAll) }},
		{OpenChannel, s.OpenChannel},
		{SetAutoStartup, func(ctx context.Context) error { return s.SetAutoStartup(ctx, AutoStartupNormal) }},
	}
	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			return &HandshakeError{Step: step.kind.String(), Err: err}
		}
	}
	return nil
}

// Flush clears any half received command in the adapter. Failures are only
// logged.
func (s *Session) Flush(ctx context.Context) error {
	if err := s.check(FlushInput, Closed); err != nil {
		return err
	}
	var err error
	if s.flushWait {
		_, err = s.t.Request(ctx, CmdFlush())
	} else {
		err = s.t.Send(ctx, CmdFlush())
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warnf("flush: %v", err)
	}
	return nil
}

func (s *Session) QueryVersion(ctx context.Context) (Version, error) {
	if err := s.check(QueryVersion, Closed); err != nil {
		return Version{}, err
	}
	log.Debug("querying version information")
	resp, err := s.roundTrip(ctx, CmdVersion())
	if err != nil {
		return Version{}, s.fail(err)
	}
	v, err := ParseVersion(resp)
	if err != nil {
		return Version{}, s.fail(err)
	}
	s.version = v
	log.Infof("adapter version %s", v)
	return v, nil
}

func (s *Session) QueryErrors(ctx context.Context) (Status, error) {
	if err := s.check(QueryErrors, Closed); err != nil {
		return 0, err
	}
	log.Debug("querying errors")
	resp, err := s.roundTrip(ctx, CmdErrors())
	if err != nil {
		return 0, s.fail(err)
	}
	st, err := ParseStatus(resp)
	if err != nil {
		return 0, s.fail(err)
	}
	s.status = st
	if st != 0 {
		log.Warnf("adapter status: %s", st)
	}
	return st, nil
}

// CloseChannel sends C without waiting for the answer, the adapter may
// already be closed and answer with a BELL. Stray answers are drained.
func (s *Session) CloseChannel(ctx context.Context) error {
	if err := s.check(CloseChannel, Closed, Configuring, Open); err != nil {
		return err
	}
	if err := s.t.Send(ctx, CmdClose()); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Debugf("close: %v", err)
	}
	if n, err := s.t.Drain(ctx, s.settle); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Debugf("close: %v", err)
	} else if n > 0 {
		log.Debugf("close: dropped %d answers", n)
	}
	s.state = Closed
	return nil
}

func (s *Session) SetBitrate(ctx context.Context, code uint8) error {
	if err := s.check(SetBitrate, Closed, Configuring); err != nil {
		return err
	}
	if code > Bitrate1M {
		return fmt.Errorf("unknown bitrate code: %d", code)
	}
	if err := s.command(ctx, CmdBitrate(code)); err != nil {
		return err
	}
	s.bitrate = code
	s.state = Configuring
	return nil
}

func (s *Session) SetAcceptanceMask(ctx context.Context, mask uint32) error {
	if err := s.check(SetAcceptanceMask, Configuring); err != nil {
		return err
	}
	return s.command(ctx, CmdMask(mask))
}

func (s *Session) SetAcceptanceFilter(ctx context.Context, filter uint32) error {
	if err := s.check(SetAcceptanceFilter, Configuring); err != nil {
		return err
	}
	return s.command(ctx, CmdFilter(filter))
}

func (s *Session) SetAutoPoll(ctx context.Context, enabled bool) error {
	if err := s.check(SetAutoPoll, Closed, Configuring, Open); err != nil {
		return err
	}
	return s.command(ctx, CmdAutoPoll(enabled))
}

func (s *Session) OpenChannel(ctx context.Context) error {
	if err := s.check(OpenChannel, Configuring); err != nil {
		return err
	}
	if err := s.command(ctx, CmdOpen()); err != nil {
		return err
	}
	s.state = Open
	return nil
}

func (s *Session) SetAutoStartup(ctx context.Context, mode uint8) error {
	if err := s.check(SetAutoStartup, Open); err != nil {
		return err
	}
	return s.command(ctx, CmdAutoStartup(mode))
}

// Transmit sends one frame, the channel must be open.
func (s *Session) Transmit(ctx context.Context, frame CANFrame) error {
	if s.state == Faulted {
		return fmt.Errorf("%w: %w", ErrNotOpen, s.faultedErr())
	}
	if s.state != Open {
		return fmt.Errorf("%w: transmit 0x%03X in state %s", ErrNotOpen, frame.Identifier, s.state)
	}
	cmd := CmdTransmit(frame)
	if _, err := cmd.Line(); err != nil {
		return err
	}
	if err := s.command(ctx, cmd); err != nil {
		return err
	}
	s.t.stats.FramesSent++
	return nil
}

// Reset leaves the Faulted state, anything buffered from the adapter is
// dropped and the session starts over as Closed.
func (s *Session) Reset() error {
	s.state = Closed
	s.fault = nil
	return s.t.Flush()
}

// Close closes an open channel and releases the transport.
func (s *Session) Close(ctx context.Context) error {
	if s.state == Open || s.state == Configuring {
		if err := s.t.Send(ctx, CmdClose()); err != nil {
			log.Debugf("close: %v", err)
		}
		s.state = Closed
	}
	return s.t.Close()
}

func (s *Session) command(ctx context.Context, cmd Command) error {
	resp, err := s.roundTrip(ctx, cmd)
	if err != nil {
		return s.fail(err)
	}
	if err := checkAck(cmd, resp); err != nil {
		return s.fail(err)
	}
	return nil
}

// roundTrip sends cmd and returns the first answer that is not a polled
// frame.
func (s *Session) roundTrip(ctx context.Context, cmd Command) (string, error) {
	resp, err := s.t.Request(ctx, cmd)
	for err == nil && s.state == Open && IsFrameLine(resp) {
		s.deliver(resp)
		resp, err = s.t.ReadLine(ctx)
	}
	return resp, err
}

func (s *Session) deliver(line string) {
	f, err := Decode(line)
	if err != nil {
		log.Warnf("dropped incoming line: %v", err)
		return
	}
	s.t.stats.FramesRecv++
	if s.onFrame != nil {
		s.onFrame(f)
	}
}

func checkAck(cmd Command, resp string) error {
	if strings.IndexByte(resp, BELL) >= 0 {
		return &ResponseError{Command: cmd.String(), Response: resp, Err: ErrRejected}
	}
	switch {
	case resp == "":
		return nil
	case cmd.Kind == TransmitFrame && (resp == "z" || resp == "Z"):
		return nil
	}
	return &ResponseError{Command: cmd.String(), Response: resp, Err: ErrMalformedResponse}
}

func (s *Session) check(kind CommandKind, allowed ...State) error {
	if s.state == Faulted {
		return s.faultedErr()
	}
	for _, a := range allowed {
		if s.state == a {
			return nil
		}
	}
	return fmt.Errorf("%w: %s in state %s", ErrInvalidState, kind, s.state)
}

func (s *Session) faultedErr() error {
	return fmt.Errorf("%w: %w", ErrFaulted, s.fault)
}

func (s *Session) fail(err error) error {
	s.state = Faulted
	s.fault = err
	log.WithError(err).Error("adapter session faulted")
	return Unrecoverable(err)
}
