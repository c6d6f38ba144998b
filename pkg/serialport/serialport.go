// Package serialport opens the USB serial link to a CANUSB style adapter.
package serialport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"github.com/roffe/slcan"
	log "github.com/sirupsen/logrus"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

const DefaultBaudrate = 57600

type Options struct {
	Baudrate   int
	Attempts   uint
	RetryDelay time.Duration
}

func (o Options) withDefaults() Options {
	if o.Baudrate == 0 {
		o.Baudrate = DefaultBaudrate
	}
	if o.Attempts == 0 {
		o.Attempts = 1
	}
	if o.RetryDelay == 0 {
		o.RetryDelay = 200 * time.Millisecond
	}
	return o
}

// Port wraps serial.Port so that Close can be called from several
// goroutines, only the first call reaches the driver.
type Port struct {
	serial.Port
	name      string
	closeOnce sync.Once
	closeErr  error
}

var _ slcan.Port = (*Port)(nil)

func (p *Port) Name() string {
	return p.name
}

func (p *Port) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.Port.Close()
	})
	return p.closeErr
}

// Open opens name in 8N1 at the given baudrate. Busy or just plugged in
// devices are retried.
func Open(ctx context.Context, name string, opts Options) (*Port, error) {
	if name == "" {
		return nil, slcan.ErrNoPort
	}
	opts = opts.withDefaults()
	mode := &serial.Mode{
		BaudRate: opts.Baudrate,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}

	var sp serial.Port
	err := retry.Do(func() error {
		p, err := serial.Open(name, mode)
		if err != nil {
			var perr *serial.PortError
			if errors.As(err, &perr) && perr.Code() == serial.PortNotFound {
				return retry.Unrecoverable(err)
			}
			return err
		}
		sp = p
		return nil
	},
		retry.Context(ctx),
		retry.Attempts(opts.Attempts),
		retry.Delay(opts.RetryDelay),
		retry.OnRetry(func(n uint, err error) {
			log.Warnf("open %s retry #%d: %v", name, n+1, err)
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open com port %q: %w", name, err)
	}
	if err := sp.ResetInputBuffer(); err != nil {
		sp.Close()
		return nil, fmt.Errorf("reset input buffer: %w", err)
	}
	if err := sp.ResetOutputBuffer(); err != nil {
		sp.Close()
		return nil, fmt.Errorf("reset output buffer: %w", err)
	}
	log.Debugf("opened %s at %d baud", name, opts.Baudrate)
	return &Port{Port: sp, name: name}, nil
}

type Info struct {
	Name         string
	USB          bool
	VID          string
	PID          string
	SerialNumber string
}

func (i Info) String() string {
	if !i.USB {
		return i.Name
	}
	s := fmt.Sprintf("%s [%s:%s]", i.Name, i.VID, i.PID)
	if i.SerialNumber != "" {
		s += " serial " + i.SerialNumber
	}
	return s
}

// List returns the serial ports present on the system.
func List() ([]Info, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	out := make([]Info, 0, len(ports))
	for _, p := range ports {
		out = append(out, Info{
			Name:         p.Name,
			USB:          p.IsUSB,
			VID:          p.VID,
			PID:          p.PID,
			SerialNumber: p.SerialNumber,
		})
	}
	return out, nil
}

// Lookup returns the details for a single port.
func Lookup(name string) (Info, error) {
	ports, err := List()
	if err != nil {
		return Info{}, err
	}
	for _, p := range ports {
		if p.Name == name {
			return p, nil
		}
	}
	return Info{}, fmt.Errorf("port %q not found", name)
}
