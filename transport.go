package slcan

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	CR   = 0x0D
	LF   = 0x0A
	BELL = 0x07
)

const (
	DefaultTimeout = 500 * time.Millisecond
	pollInterval   = 10 * time.Millisecond
)

// Transport exchanges single command lines with the adapter. It is strictly
// half duplex and not safe for concurrent use.
type Transport struct {
	port    Port
	term    byte
	timeout time.Duration
	pending []byte
	readBuf []byte
	stats   Stats
}

type TransportOpt func(t *Transport)

// OptTerminator sets the line terminator used for both directions.
func OptTerminator(b byte) TransportOpt {
	return func(t *Transport) {
		t.term = b
	}
}

func OptTimeout(d time.Duration) TransportOpt {
	return func(t *Transport) {
		if d > 0 {
			t.timeout = d
		}
	}
}

func NewTransport(port Port, opts ...TransportOpt) *Transport {
	t := &Transport{
		port:    port,
		term:    CR,
		timeout: DefaultTimeout,
		readBuf: make([]byte, 64),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *Transport) Terminator() byte {
	return t.term
}

func (t *Transport) Timeout() time.Duration {
	return t.timeout
}

func (t *Transport) Stats() Stats {
	return t.stats
}

// Send writes a command without waiting for an answer.
func (t *Transport) Send(ctx context.Context, cmd Command) error {
	line, err := cmd.Line()
	if err != nil {
		return err
	}
	return t.write(ctx, line)
}

// Request writes a command and blocks until a terminated line, a BELL or the
// timeout.
func (t *Transport) Request(ctx context.Context, cmd Command) (string, error) {
	line, err := cmd.Line()
	if err != nil {
		return "", err
	}
	if err := t.write(ctx, line); err != nil {
		return "", err
	}
	return t.countTimeout(t.readLine(ctx, line, t.timeout))
}

// ReadLine waits for the next line from the adapter.
func (t *Transport) ReadLine(ctx context.Context) (string, error) {
	return t.countTimeout(t.readLine(ctx, "", t.timeout))
}

func (t *Transport) countTimeout(line string, err error) (string, error) {
	if IsTimeout(err) {
		t.stats.Timeouts++
	}
	return line, err
}

// Drain discards lines until nothing arrives within quiet and returns how
// many were dropped.
func (t *Transport) Drain(ctx context.Context, quiet time.Duration) (int, error) {
	var n int
	for {
		line, err := t.readLine(ctx, "", quiet)
		if err != nil {
			if IsTimeout(err) {
				return n, nil
			}
			return n, err
		}
		log.Debugf("discarded %q", line)
		n++
	}
}

// Flush drops everything received but not yet read.
func (t *Transport) Flush() error {
	t.pending = t.pending[:0]
	if err := t.port.ResetInputBuffer(); err != nil {
		t.stats.Errors++
		return &TransportError{Kind: IOError, Command: "reset input", Err: err}
	}
	return nil
}

func (t *Transport) Close() error {
	return t.port.Close()
}

func (t *Transport) write(ctx context.Context, line string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	out := make([]byte, 0, len(line)+1)
	out = append(out, line...)
	out = append(out, t.term)
	log.Debugf(">> %q", line)
	n, err := t.port.Write(out)
	t.stats.SentBytes += uint64(n)
	if err == nil && n != len(out) {
		err = io.ErrShortWrite
	}
	if err != nil {
		t.stats.Errors++
		return &TransportError{Kind: IOError, Command: line, Err: err}
	}
	t.stats.Commands++
	return nil
}

func (t *Transport) readLine(ctx context.Context, cmd string, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	for {
		if line, ok := t.takeLine(); ok {
			return line, nil
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", &TransportError{Kind: Timeout, Command: cmd, Timeout: timeout.Milliseconds()}
		}
		wait := pollInterval
		if remaining < wait {
			wait = remaining
		}
		if err := t.port.SetReadTimeout(wait); err != nil {
			t.stats.Errors++
			return "", &TransportError{Kind: IOError, Command: cmd, Err: err}
		}
		n, err := t.port.Read(t.readBuf)
		if n > 0 {
			t.stats.RecvBytes += uint64(n)
			t.pending = append(t.pending, t.readBuf[:n]...)
		}
		if err != nil {
			t.stats.Errors++
			return "", &TransportError{Kind: IOError, Command: cmd, Err: err}
		}
	}
}

// takeLine pops one line off the pending bytes. A BELL ends a line on its
// own since the adapter never terminates it.
func (t *Transport) takeLine() (string, bool) {
	for i, b := range t.pending {
		var line string
		switch b {
		case t.term:
			line = strings.Trim(string(t.pending[:i]), "\r\n")
		case BELL:
			line = string(t.pending[:i+1])
		default:
			continue
		}
		t.pending = append(t.pending[:0], t.pending[i+1:]...)
		log.Debugf("<< %q", line)
		return line, true
	}
	return "", false
}

// IsTimeout reports whether err is a response timeout.
func IsTimeout(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Kind == Timeout
}
