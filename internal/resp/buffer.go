package resp

// Buffer is a growable byte buffer the decoder works against. Bytes are
// appended at the back as they arrive from the transport and consumed from
// the front one complete frame at a time. The decoder only ever consumes
// after it has confirmed a complete frame is present, so a partial frame can
// be retried unchanged once more bytes have been appended.
type Buffer struct {
	data []byte
}

// Write appends p to the buffer. It implements io.Writer and never fails.
func (b *Buffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

// WriteString appends s to the buffer.
func (b *Buffer) WriteString(s string) {
	b.data = append(b.data, s...)
}

// Bytes returns the unconsumed bytes without consuming them.
func (b *Buffer) Bytes() []byte { return b.data }

// Len returns the number of unconsumed bytes.
func (b *Buffer) Len() int { return len(b.data) }

// Discard consumes the first n bytes. It panics if n exceeds Len.
func (b *Buffer) Discard(n int) {
	b.data = b.data[n:]
	if len(b.data) == 0 {
		// Release the backing array once fully drained so a long-lived
		// connection does not pin its largest-ever request.
		b.data = nil
	}
}

// Reset drops all buffered bytes.
func (b *Buffer) Reset() { b.data = nil }
