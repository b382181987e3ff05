// Package relay forwards status lines and result strings between processes.
// A subordinate process registers a Forwarder as its receiver; the governing
// process runs a Server that feeds received batches into its own Logger.
//
// Frames are a 4-byte big-endian length followed by a CBOR body. Every Batch
// is answered with an Ack carrying the same ID.
package relay

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/lixenwraith/statuslog"
)

// Kind identifies what a Batch carries
type Kind uint8

const (
	KindStatus Kind = iota + 1 // Lines
	KindString                 // Text in Category
)

// Batch is one forwarded delivery
type Batch struct {
	ID       string                 `cbor:"1,keyasint"`
	Source   string                 `cbor:"2,keyasint,omitempty"`
	Kind     Kind                   `cbor:"3,keyasint"`
	Lines    []statuslog.StatusLine `cbor:"4,keyasint,omitempty"`
	Text     string                 `cbor:"5,keyasint,omitempty"`
	Category string                 `cbor:"6,keyasint,omitempty"`
	Init     bool                   `cbor:"7,keyasint,omitempty"` // lines buffered before the sender's InitLogger
}

// Ack answers one Batch
type Ack struct {
	ID    string `cbor:"1,keyasint"`
	OK    bool   `cbor:"2,keyasint"`
	Error string `cbor:"3,keyasint,omitempty"`
}

const (
	headerSize = 4
	// MaxFrameSize bounds a single frame body
	MaxFrameSize = 16 << 20
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	// Keep sub-second precision and zone offset of status line times
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("relay: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		MaxArrayElements: 1 << 20,
	}.DecMode()
	if err != nil {
		panic("relay: CBOR decoder initialization failed: " + err.Error())
	}
}

// AppendFrame appends the framed encoding of v to dst
func AppendFrame(dst []byte, v any) ([]byte, error) {
	body, err := encMode.Marshal(v)
	if err != nil {
		return dst, fmt.Errorf("relay: failed to encode frame: %w", err)
	}
	if len(body) > MaxFrameSize {
		return dst, fmt.Errorf("relay: frame of %d bytes exceeds limit %d", len(body), MaxFrameSize)
	}
	var hdr [headerSize]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(body)))
	dst = append(dst, hdr[:]...)
	return append(dst, body...), nil
}

// WriteFrame writes the framed encoding of v to w
func WriteFrame(w io.Writer, v any) error {
	frame, err := AppendFrame(nil, v)
	if err != nil {
		return err
	}
	_, err = w.Write(frame)
	return err
}

// ReadFrame reads one frame from r and decodes it into v
func ReadFrame(r io.Reader, v any) error {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return err
	}
	size, err := frameSize(hdr[:])
	if err != nil {
		return err
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return err
	}
	return decodeBody(body, v)
}

// frameSize validates and returns the body length announced by hdr
func frameSize(hdr []byte) (int, error) {
	size := binary.BigEndian.Uint32(hdr)
	if size > MaxFrameSize {
		return 0, fmt.Errorf("relay: frame of %d bytes exceeds limit %d", size, MaxFrameSize)
	}
	return int(size), nil
}

func decodeBody(body []byte, v any) error {
	if err := decMode.Unmarshal(body, v); err != nil {
		return fmt.Errorf("relay: failed to decode frame: %w", err)
	}
	return nil
}
