// Package frame implements the length-prefixed, JSON-bodied wire framing
// shared by every stream in the broker: a 4-byte big-endian length followed
// by that many bytes of payload. It is the Go counterpart of salmoncannon's
// salmon_frame.go, generalized from a fixed type/connID header to an
// arbitrary JSON envelope per spec.md's frame layout.
package frame

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// MaxFrameSize bounds a single frame's payload. Anything larger is a
// protocol error, not a resource-exhaustion accident.
const MaxFrameSize = 64 * 1024 * 1024

// lengthPrefixSize is the width of the frame's length prefix in bytes.
const lengthPrefixSize = 4

// ErrFrameTooLarge is returned when a peer declares a length over
// MaxFrameSize.
var ErrFrameTooLarge = fmt.Errorf("frame: declared length exceeds max frame size (%d bytes)", MaxFrameSize)

// SendBytes writes a length-prefixed raw payload. A nil or empty b writes
// the explicit chunk terminator (length 0, no payload).
func SendBytes(w io.Writer, b []byte) error {
	if len(b) > MaxFrameSize {
		return ErrFrameTooLarge
	}
	var hdr [lengthPrefixSize]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(b)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	if len(b) == 0 {
		return nil
	}
	_, err := w.Write(b)
	return err
}

// ReceiveBytes reads one length-prefixed payload. An EOF on the length
// prefix itself is reported as (nil, io.EOF) to let callers treat
// "stream closed before next frame" as a normal, non-fatal condition; any
// other read failure after the prefix has been read is fatal to the stream.
func ReceiveBytes(r io.Reader) ([]byte, error) {
	var hdr [lengthPrefixSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("frame: read length prefix: %w", err)
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}
	if n == 0 {
		return []byte{}, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("frame: short read on payload: %w", err)
	}
	return buf, nil
}

// Send encodes v as JSON and writes it as a single length-prefixed frame.
func Send(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("frame: encode: %w", err)
	}
	return SendBytes(w, b)
}

// Receive reads one frame and JSON-decodes it into v. It returns io.EOF
// (unwrapped, per ReceiveBytes) when the stream closed cleanly before the
// next frame.
func Receive(r io.Reader, v any) error {
	b, err := ReceiveBytes(r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("frame: decode: %w", err)
	}
	return nil
}
