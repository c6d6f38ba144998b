package slcan

import (
	"errors"
	"fmt"
)

type unrecoverableError struct {
	error
}

func (e unrecoverableError) Error() string {
	if e.error == nil {
		return "unrecoverable error"
	}
	return e.error.Error()
}

func (e unrecoverableError) Unwrap() error {
	return e.error
}

// Unrecoverable wraps an error in `unrecoverableError` struct
func Unrecoverable(err error) error {
	return unrecoverableError{err}
}

// IsRecoverable checks if error is an instance of `unrecoverableError`
func IsRecoverable(err error) bool {
	var u unrecoverableError
	return !errors.As(err, &u)
}

var (
	ErrPayloadTooLong    = errors.New("payload too long")
	ErrIdentifierRange   = errors.New("identifier out of range")
	ErrUnknownPrefix     = errors.New("unknown frame prefix")
	ErrTruncated         = errors.New("truncated frame")
	ErrNotHex            = errors.New("invalid hex digit")
	ErrTimeout           = errors.New("timeout waiting for response")
	ErrNotOpen           = errors.New("channel is not open")
	ErrFaulted           = errors.New("session faulted")
	ErrInvalidState      = errors.New("command not allowed in current state")
	ErrRejected          = errors.New("adapter rejected command")
	ErrMalformedResponse = errors.New("malformed response")
	ErrNoPort            = errors.New("no serial port given")
)

type DecodeErrorKind int

const (
	UnknownPrefix DecodeErrorKind = iota
	Truncated
	NotHex
	BadLength
	TrailingData
)

func (k DecodeErrorKind) String() string {
	switch k {
	case UnknownPrefix:
		return "unknown prefix"
	case Truncated:
		return "truncated"
	case NotHex:
		return "not hex"
	case BadLength:
		return "bad length"
	case TrailingData:
		return "trailing data"
	}
	return fmt.Sprintf("DecodeErrorKind(%d)", int(k))
}

// DecodeError describes why an incoming line is not a frame.
type DecodeError struct {
	Kind DecodeErrorKind
	Line string
	Pos  int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %q: %s at offset %d", e.Line, e.Kind, e.Pos)
}

func (e *DecodeError) Unwrap() error {
	switch e.Kind {
	case UnknownPrefix:
		return ErrUnknownPrefix
	case Truncated:
		return ErrTruncated
	case NotHex:
		return ErrNotHex
	}
	return nil
}

type TransportErrorKind int

const (
	IOError TransportErrorKind = iota
	Timeout
)

// TransportError is returned by the transport for write/read failures and
// for responses that did not arrive in time.
type TransportError struct {
	Kind    TransportErrorKind
	Command string
	Timeout int64
	Err     error
}

func (e *TransportError) Error() string {
	if e.Kind == Timeout {
		return fmt.Sprintf("%q timeout (%dms)", e.Command, e.Timeout)
	}
	return fmt.Sprintf("%q i/o error: %v", e.Command, e.Err)
}

func (e *TransportError) Unwrap() error {
	if e.Kind == Timeout {
		return ErrTimeout
	}
	return e.Err
}

// HandshakeError reports which initialisation step failed.
type HandshakeError struct {
	Step string
	Err  error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("handshake failed at %s: %v", e.Step, e.Err)
}

func (e *HandshakeError) Unwrap() error {
	return e.Err
}

// ResponseError carries the unexpected line an adapter answered with.
type ResponseError struct {
	Command  string
	Response string
	Err      error
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%q: %v: %q", e.Command, e.Err, e.Response)
}

func (e *ResponseError) Unwrap() error {
	return e.Err
}
