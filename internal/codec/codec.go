// Package codec implements the binary wire format shared by the estimation core
// and its clients. Integers are big-endian and fixed width, floats are IEEE-754
// binary64, byte strings and lists carry an int64 length prefix, and optional
// values carry a presence byte.
package codec

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// MaxLength bounds any length prefix read from the wire.
const MaxLength = 1 << 30

// Upper bounds on what a length prefix alone may allocate. Larger payloads
// grow as bytes arrive.
const (
	maxPrealloc      = 1024
	maxDirectPayload = 64 << 10
)

var (
	ErrInvalidBool   = errors.New("codec: invalid bool byte")
	ErrInvalidLength = errors.New("codec: invalid length prefix")
	ErrInvalidTag    = errors.New("codec: invalid tag")
	ErrTrailingBytes = errors.New("codec: trailing bytes after value")
)

// Encoder writes primitive values. The first write error is sticky and reported by Err.
type Encoder struct {
	w   io.Writer
	buf [8]byte
	err error
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

func (e *Encoder) Err() error {
	return e.err
}

func (e *Encoder) write(p []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(p)
}

func (e *Encoder) Uint8(v uint8) {
	e.buf[0] = v
	e.write(e.buf[:1])
}

func (e *Encoder) Bool(v bool) {
	if v {
		e.Uint8(1)
	} else {
		e.Uint8(0)
	}
}

func (e *Encoder) Uint32(v uint32) {
	binary.BigEndian.PutUint32(e.buf[:4], v)
	e.write(e.buf[:4])
}

func (e *Encoder) Int(v int64) {
	binary.BigEndian.PutUint64(e.buf[:8], uint64(v))
	e.write(e.buf[:8])
}

func (e *Encoder) Uint64(v uint64) {
	binary.BigEndian.PutUint64(e.buf[:8], v)
	e.write(e.buf[:8])
}

func (e *Encoder) Float64(v float64) {
	e.Uint64(math.Float64bits(v))
}

func (e *Encoder) Len(n int) {
	e.Int(int64(n))
}

func (e *Encoder) Bytes(p []byte) {
	e.Len(len(p))
	e.write(p)
}

func (e *Encoder) Text(s string) {
	e.Bytes([]byte(s))
}

func (e *Encoder) Texts(ss []string) {
	e.Len(len(ss))
	for _, s := range ss {
		e.Text(s)
	}
}

// Option writes the presence byte; the caller writes the value when present is true.
func (e *Encoder) Option(present bool) {
	e.Bool(present)
}

// Fail records err unless an earlier error is already recorded.
func (e *Encoder) Fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

// Decoder reads primitive values. The first read error is sticky and reported by Err.
type Decoder struct {
	r   io.Reader
	buf [8]byte
	err error
}

func NewDecoder(r io.Reader) *Decoder {
	if _, ok := r.(io.ByteReader); !ok {
		r = bufio.NewReader(r)
	}
	return &Decoder{r: r}
}

func (d *Decoder) Err() error {
	return d.err
}

// Fail records err unless an earlier error is already recorded.
func (d *Decoder) Fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *Decoder) read(p []byte) bool {
	if d.err != nil {
		return false
	}
	if _, err := io.ReadFull(d.r, p); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			err = io.ErrUnexpectedEOF
		}
		d.err = err
		return false
	}
	return true
}

func (d *Decoder) Uint8() uint8 {
	if !d.read(d.buf[:1]) {
		return 0
	}
	return d.buf[0]
}

func (d *Decoder) Bool() bool {
	switch b := d.Uint8(); b {
	case 0:
		return false
	case 1:
		return true
	default:
		d.Fail(fmt.Errorf("%w: %d", ErrInvalidBool, b))
		return false
	}
}

func (d *Decoder) Uint32() uint32 {
	if !d.read(d.buf[:4]) {
		return 0
	}
	return binary.BigEndian.Uint32(d.buf[:4])
}

func (d *Decoder) Uint64() uint64 {
	if !d.read(d.buf[:8]) {
		return 0
	}
	return binary.BigEndian.Uint64(d.buf[:8])
}

func (d *Decoder) Int() int64 {
	return int64(d.Uint64())
}

func (d *Decoder) Float64() float64 {
	return math.Float64frombits(d.Uint64())
}

// Len reads a length prefix and validates it against MaxLength.
func (d *Decoder) Len() int {
	n := d.Int()
	if d.err != nil {
		return 0
	}
	if n < 0 || n > MaxLength {
		d.Fail(fmt.Errorf("%w: %d", ErrInvalidLength, n))
		return 0
	}
	return int(n)
}

func (d *Decoder) Bytes() []byte {
	n := d.Len()
	if d.err != nil {
		return nil
	}
	if n <= maxDirectPayload {
		p := make([]byte, n)
		if !d.read(p) {
			d.truncated()
			return nil
		}
		return p
	}

	var buf bytes.Buffer
	copied, err := io.CopyN(&buf, d.r, int64(n))
	if err != nil {
		if errors.Is(err, io.EOF) && copied < int64(n) {
			err = io.ErrUnexpectedEOF
		}
		d.Fail(err)
		return nil
	}
	return buf.Bytes()
}

// truncated reports an end of input in the middle of a value as
// io.ErrUnexpectedEOF. Only an EOF before the first byte of a value is clean.
func (d *Decoder) truncated() {
	if errors.Is(d.err, io.EOF) {
		d.err = io.ErrUnexpectedEOF
	}
}

// Prealloc caps a capacity taken from a length prefix.
func Prealloc(n int) int {
	return min(n, maxPrealloc)
}

func (d *Decoder) Text() string {
	return string(d.Bytes())
}

func (d *Decoder) Texts() []string {
	n := d.Len()
	if d.err != nil {
		return nil
	}
	out := make([]string, 0, Prealloc(n))
	for i := 0; i < n && d.err == nil; i++ {
		out = append(out, d.Text())
	}
	d.truncated()
	return out
}

// Option reads the presence byte of an optional value.
func (d *Decoder) Option() bool {
	return d.Bool()
}

// Marshal encodes a value into memory with fn.
func Marshal(fn func(*Encoder)) ([]byte, error) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	fn(enc)
	if err := enc.Err(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a value from p with fn and rejects trailing bytes.
func Unmarshal(p []byte, fn func(*Decoder)) error {
	r := bytes.NewReader(p)
	dec := NewDecoder(r)
	fn(dec)
	if err := dec.Err(); err != nil {
		if errors.Is(err, io.EOF) {
			return io.ErrUnexpectedEOF
		}
		return err
	}
	if r.Len() > 0 {
		return ErrTrailingBytes
	}
	return nil
}
