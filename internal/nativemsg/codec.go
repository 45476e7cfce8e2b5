// Package nativemsg speaks the browser native messaging wire format:
// each message is a 32-bit length in native byte order followed by
// that many bytes of UTF-8 encoded JSON.
package nativemsg

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

const (
	// MaxInboundSize is the largest single message a host may send
	MaxInboundSize = 1024 * 1024
	// MaxOutboundSize caps what we are willing to send to a host
	MaxOutboundSize = 64 * 1024 * 1024
)

// ErrMessageTooLarge is returned for frames over the size limits
var ErrMessageTooLarge = errors.New("native message too large")

// WriteMessage encodes v as JSON and writes it as a single frame
func WriteMessage(w io.Writer, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode native message: %w", err)
	}
	return WriteFrame(w, payload)
}

// WriteFrame writes an already encoded JSON payload as a single frame
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxOutboundSize {
		return fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(payload))
	}

	buf := make([]byte, 4+len(payload))
	binary.NativeEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[4:], payload)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("failed to write native message: %w", err)
	}
	return nil
}

// ReadMessage reads one frame and returns its raw JSON payload.
// A clean end of stream before a length prefix returns io.EOF.
func ReadMessage(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("truncated native message header: %w", err)
		}
		return nil, err
	}

	size := binary.NativeEndian.Uint32(header[:])
	if size > MaxInboundSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, size)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("truncated native message body: %w", err)
	}
	return payload, nil
}
