package protocol

import (
	"babble/errors"
	"encoding/binary"
	"fmt"
	"io"
)

const headerSize = 4

// EncodeMessage frames one text answer.
func EncodeMessage(msg string) []byte {
	frame := make([]byte, headerSize+len(msg))
	binary.BigEndian.PutUint32(frame, uint32(len(msg)))
	copy(frame[headerSize:], msg)
	return frame
}

// EncodeCount frames the item count that precedes a set answer.
func EncodeCount(count int) []byte {
	frame := make([]byte, 2*headerSize)
	binary.BigEndian.PutUint32(frame, headerSize)
	binary.BigEndian.PutUint32(frame[headerSize:], uint32(count))
	return frame
}

// DecodeCount reads back the payload of a count frame.
func DecodeCount(payload []byte) (int, error) {
	if len(payload) != headerSize {
		return 0, fmt.Errorf("%w: count frame of %d bytes", errors.ErrParse, len(payload))
	}
	return int(binary.BigEndian.Uint32(payload)), nil
}

// ReadFrame reads one length-prefixed frame. Frames larger than max are rejected
// before their payload is read.
func ReadFrame(r io.Reader, max int) ([]byte, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(header[:])
	if int64(size) > int64(max) {
		return nil, fmt.Errorf("%w: %d > %d", errors.ErrFrameTooLarge, size, max)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// WriteFrame writes payload with its length prefix.
func WriteFrame(w io.Writer, payload []byte) error {
	_, err := w.Write(EncodeMessage(string(payload)))
	return err
}
