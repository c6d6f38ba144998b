package slcan

import (
	"bytes"
	"strings"
	"time"
)

// fakePort answers every terminated line written to it with whatever respond
// returns.
type fakePort struct {
	term        byte
	respond     func(line string) string
	in          bytes.Buffer
	partial     []byte
	written     []string
	readTimeout time.Duration
	resets      int
	closed      bool
	writeErr    error
	readErr     error
}

func newFakePort(respond func(string) string) *fakePort {
	return &fakePort{term: CR, respond: respond}
}

func (p *fakePort) Write(b []byte) (int, error) {
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	p.partial = append(p.partial, b...)
	for {
		idx := bytes.IndexByte(p.partial, p.term)
		if idx < 0 {
			break
		}
		line := string(p.partial[:idx])
		p.partial = p.partial[idx+1:]
		p.written = append(p.written, line)
		if p.respond != nil {
			p.in.WriteString(p.respond(line))
		}
	}
	return len(b), nil
}

func (p *fakePort) Read(b []byte) (int, error) {
	if p.readErr != nil {
		return 0, p.readErr
	}
	if p.in.Len() == 0 {
		time.Sleep(p.readTimeout)
		return 0, nil
	}
	return p.in.Read(b)
}

func (p *fakePort) SetReadTimeout(t time.Duration) error {
	p.readTimeout = t
	return nil
}

func (p *fakePort) ResetInputBuffer() error {
	p.resets++
	p.in.Reset()
	return nil
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

// lawicel behaves like a CANUSB with a closed channel and auto poll off.
func lawicel(line string) string {
	switch {
	case line == "":
		return "\r"
	case line == "V":
		return "V1011\r"
	case line == "F":
		return "F00\r"
	case line == "C":
		return "\a"
	case strings.HasPrefix(line, "t"), strings.HasPrefix(line, "r"):
		return "z\r"
	case strings.HasPrefix(line, "T"), strings.HasPrefix(line, "R"):
		return "Z\r"
	}
	return "\r"
}

// override answers line with resp and everything else like lawicel.
func override(line, resp string) func(string) string {
	return func(l string) string {
		if l == line {
			return resp
		}
		return lawicel(l)
	}
}
