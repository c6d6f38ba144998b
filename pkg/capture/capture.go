// Package capture stores the frames a session sent and received as a stream
// of CBOR records.
package capture

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/roffe/slcan"
)

type Direction uint8

const (
	Tx Direction = iota
	Rx
)

func (d Direction) String() string {
	if d == Rx {
		return "<<"
	}
	return ">>"
}

type Record struct {
	Time time.Time `cbor:"1,keyasint"`
	Dir  Direction `cbor:"2,keyasint"`
	ID   uint32    `cbor:"3,keyasint"`
	Ext  bool      `cbor:"4,keyasint,omitempty"`
	RTR  bool      `cbor:"5,keyasint,omitempty"`
	Data []byte    `cbor:"6,keyasint,omitempty"`
}

func (r Record) Frame() slcan.CANFrame {
	if r.RTR {
		return slcan.NewRemoteFrame(r.ID, r.Ext, len(r.Data))
	}
	return slcan.CANFrame{Identifier: r.ID, Extended: r.Ext, Data: r.Data}
}

func (r Record) String() string {
	return fmt.Sprintf("%s %s %s", r.Time.Format("15:04:05.000"), r.Dir, r.Frame().String())
}

var encMode = func() cbor.EncMode {
	em, err := cbor.EncOptions{
		Time:    cbor.TimeRFC3339Nano,
		TimeTag: cbor.EncTagRequired,
	}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// Recorder appends records to w. It is safe for concurrent use.
type Recorder struct {
	mu  sync.Mutex
	w   io.Writer
	buf *bufio.Writer
	enc *cbor.Encoder
	n   uint64
	now func() time.Time
}

func NewRecorder(w io.Writer) *Recorder {
	buf := bufio.NewWriter(w)
	return &Recorder{
		w:   w,
		buf: buf,
		enc: encMode.NewEncoder(buf),
		now: time.Now,
	}
}

// Create truncates path and records into it.
func Create(path string) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create capture: %w", err)
	}
	return NewRecorder(f), nil
}

func (r *Recorder) Record(dir Direction, f slcan.CANFrame) error {
	rec := Record{
		Dir: dir,
		ID:  f.Identifier,
		Ext: f.Extended,
		RTR: f.Remote,
	}
	if f.Remote {
		rec.Data = make([]byte, len(f.Data))
	} else if len(f.Data) > 0 {
		rec.Data = append([]byte(nil), f.Data...)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec.Time = r.now()
	if err := r.enc.Encode(rec); err != nil {
		return fmt.Errorf("capture record %d: %w", r.n, err)
	}
	r.n++
	return nil
}

func (r *Recorder) Count() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}

func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.Flush()
}

// Close flushes and closes the underlying writer if it is a Closer.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	err := r.buf.Flush()
	if c, ok := r.w.(io.Closer); ok {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

type Reader struct {
	dec *cbor.Decoder
	c   io.Closer
	n   uint64
}

func NewReader(r io.Reader) *Reader {
	return &Reader{dec: cbor.NewDecoder(bufio.NewReader(r))}
}

func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open capture: %w", err)
	}
	rd := NewReader(f)
	rd.c = f
	return rd, nil
}

// Next returns the next record or io.EOF after the last one.
func (r *Reader) Next() (Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("capture record %d: %w", r.n, err)
	}
	r.n++
	return rec, nil
}

func (r *Reader) Close() error {
	if r.c == nil {
		return nil
	}
	return r.c.Close()
}
