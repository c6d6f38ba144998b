package slcan

import (
	"context"
	"io"
	"time"
)

// Port is the byte stream the adapter is attached to, go.bug.st/serial.Port
// satisfies it.
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
}

type FrameSender interface {
	Transmit(ctx context.Context, frame CANFrame) error
}

var _ FrameSender = (*Session)(nil)
