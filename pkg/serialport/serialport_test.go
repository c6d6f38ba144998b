package serialport

import (
	"context"
	"errors"
	"testing"

	"github.com/roffe/slcan"
	"github.com/stretchr/testify/assert"
	"go.bug.st/serial"
)

type fakeSerial struct {
	serial.Port
	closes int
}

func (f *fakeSerial) Close() error {
	f.closes++
	if f.closes > 1 {
		return errors.New("already closed")
	}
	return nil
}

func TestCloseOnce(t *testing.T) {
	fs := &fakeSerial{}
	p := &Port{Port: fs, name: "/dev/ttyUSB0"}
	assert.NoError(t, p.Close())
	assert.NoError(t, p.Close())
	assert.Equal(t, 1, fs.closes)
	assert.Equal(t, "/dev/ttyUSB0", p.Name())
}

func TestOpenWithoutName(t *testing.T) {
	_, err := Open(context.Background(), "", Options{})
	assert.ErrorIs(t, err, slcan.ErrNoPort)
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	assert.Equal(t, DefaultBaudrate, o.Baudrate)
	assert.Equal(t, uint(1), o.Attempts)

	o = Options{Baudrate: 115200, Attempts: 4}.withDefaults()
	assert.Equal(t, 115200, o.Baudrate)
	assert.Equal(t, uint(4), o.Attempts)
}

func TestInfoString(t *testing.T) {
	assert.Equal(t, "COM3", Info{Name: "COM3"}.String())
	assert.Equal(t, "/dev/ttyUSB0 [0403:FFA8] serial LWVKQ3CP",
		Info{Name: "/dev/ttyUSB0", USB: true, VID: "0403", PID: "FFA8", SerialNumber: "LWVKQ3CP"}.String())
}
