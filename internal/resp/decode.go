package resp

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Protocol limits. Exceeding one makes the frame malformed; the connection
// cannot be trusted to resynchronize afterwards.
const (
	// MaxBulkLen limits the declared size of a single bulk string (512KB).
	MaxBulkLen = 512 * 1024

	// MaxAggregateLen limits the declared element count of an array, set or
	// map frame.
	MaxAggregateLen = 1024 * 1024
)

var (
	// ErrIncomplete reports that the buffer holds a valid prefix of a frame
	// but not all of it. It is never terminal: append more bytes and retry.
	ErrIncomplete = errors.New("resp: incomplete frame")

	// ErrMalformedFrame reports bytes that cannot be a frame under any
	// continuation. Framing is unrecoverable and the connection must be
	// closed.
	ErrMalformedFrame = errors.New("resp: malformed frame")
)

// Decode decodes one complete frame from the front of buf.
//
// On success the frame's bytes, and only those, are consumed. When the
// buffer holds a partial frame, Decode returns ErrIncomplete and consumes
// nothing, so the caller can retry the identical call after appending more
// input. Any other error wraps ErrMalformedFrame.
func Decode(buf *Buffer) (Frame, error) {
	f, n, err := decodeFrame(buf.Bytes())
	if err != nil {
		return nil, err
	}
	buf.Discard(n)
	return f, nil
}

// decodeFrame dispatches on the tag byte and returns the decoded frame and
// the number of bytes it occupies. It never mutates data.
func decodeFrame(data []byte) (Frame, int, error) {
	if len(data) == 0 {
		return nil, 0, ErrIncomplete
	}
	switch data[0] {
	case tagSimpleString:
		payload, n, err := readLine(data)
		if err != nil {
			return nil, 0, err
		}
		return SimpleString(payload), n, nil
	case tagSimpleError:
		payload, n, err := readLine(data)
		if err != nil {
			return nil, 0, err
		}
		return SimpleError(payload), n, nil
	case tagInteger:
		payload, n, err := readLine(data)
		if err != nil {
			return nil, 0, err
		}
		v, err := strconv.ParseInt(string(payload), 10, 64)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: bad integer %q", ErrMalformedFrame, payload)
		}
		return Integer(v), n, nil
	case tagBulkString:
		return decodeBulkString(data)
	case tagArray:
		elems, n, err := decodeAggregate(data)
		if err != nil {
			return nil, 0, err
		}
		return Array(elems), n, nil
	case tagSet:
		elems, n, err := decodeAggregate(data)
		if err != nil {
			return nil, 0, err
		}
		return Set(elems), n, nil
	case tagNull:
		if len(data) < 3 {
			return nil, 0, ErrIncomplete
		}
		if data[1] != '\r' || data[2] != '\n' {
			return nil, 0, fmt.Errorf("%w: expected _\\r\\n", ErrMalformedFrame)
		}
		return Null{}, 3, nil
	case tagBoolean:
		payload, n, err := readLine(data)
		if err != nil {
			return nil, 0, err
		}
		switch string(payload) {
		case "t":
			return Boolean(true), n, nil
		case "f":
			return Boolean(false), n, nil
		}
		return nil, 0, fmt.Errorf("%w: bad boolean %q", ErrMalformedFrame, payload)
	case tagDouble:
		payload, n, err := readLine(data)
		if err != nil {
			return nil, 0, err
		}
		v, err := strconv.ParseFloat(string(payload), 64)
		// ParseFloat accepts "inf" and "nan", but neither has a wire
		// encoding, so letting them in would break re-encoding.
		if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
			return nil, 0, fmt.Errorf("%w: bad double %q", ErrMalformedFrame, payload)
		}
		return Double(v), n, nil
	case tagMap:
		return decodeMap(data)
	default:
		return nil, 0, fmt.Errorf("%w: unknown tag %q", ErrMalformedFrame, data[0])
	}
}

// readLine locates the first CRLF and returns the bytes between the tag and
// the terminator, plus the total length of the line including tag and CRLF.
// The scan is linear in the buffer, which is acceptable because every
// successful decode shrinks the buffer.
func readLine(data []byte) ([]byte, int, error) {
	i := bytes.Index(data, []byte(crlf))
	if i < 0 {
		return nil, 0, ErrIncomplete
	}
	return data[1:i], i + 2, nil
}

func decodeBulkString(data []byte) (Frame, int, error) {
	header, n, err := readLine(data)
	if err != nil {
		return nil, 0, err
	}
	size, err := strconv.Atoi(string(header))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: bad bulk string length %q", ErrMalformedFrame, header)
	}
	if size == -1 {
		return NullBulkString{}, n, nil
	}
	if size < 0 || size > MaxBulkLen {
		return nil, 0, fmt.Errorf("%w: bulk string length %d out of range", ErrMalformedFrame, size)
	}
	total := n + size + 2
	if len(data) < total {
		return nil, 0, ErrIncomplete
	}
	if data[n+size] != '\r' || data[n+size+1] != '\n' {
		return nil, 0, fmt.Errorf("%w: bulk string missing terminator", ErrMalformedFrame)
	}
	payload := make([]byte, size)
	copy(payload, data[n:n+size])
	return BulkString(payload), total, nil
}

// decodeAggregate decodes the shared body of Array and Set frames: a count
// header followed by that many element frames, each decoded recursively.
func decodeAggregate(data []byte) ([]Frame, int, error) {
	header, n, err := readLine(data)
	if err != nil {
		return nil, 0, err
	}
	count, err := strconv.Atoi(string(header))
	if err != nil || count < 0 || count > MaxAggregateLen {
		return nil, 0, fmt.Errorf("%w: bad element count %q", ErrMalformedFrame, header)
	}
	// Cap the preallocation; the declared count is untrusted until the
	// elements actually arrive.
	elems := make([]Frame, 0, min(count, 1024))
	off := n
	for i := 0; i < count; i++ {
		el, sz, err := decodeFrame(data[off:])
		if err != nil {
			return nil, 0, err
		}
		elems = append(elems, el)
		off += sz
	}
	return elems, off, nil
}

func decodeMap(data []byte) (Frame, int, error) {
	header, n, err := readLine(data)
	if err != nil {
		return nil, 0, err
	}
	count, err := strconv.Atoi(string(header))
	if err != nil || count < 0 || count > MaxAggregateLen {
		return nil, 0, fmt.Errorf("%w: bad entry count %q", ErrMalformedFrame, header)
	}
	var m Map
	off := n
	for i := 0; i < count; i++ {
		kf, sz, err := decodeFrame(data[off:])
		if err != nil {
			return nil, 0, err
		}
		key, ok := kf.(SimpleString)
		if !ok {
			return nil, 0, fmt.Errorf("%w: map key must be a simple string, got %T", ErrMalformedFrame, kf)
		}
		off += sz
		vf, sz, err := decodeFrame(data[off:])
		if err != nil {
			return nil, 0, err
		}
		off += sz
		m.Set(string(key), vf)
	}
	return m, off, nil
}
