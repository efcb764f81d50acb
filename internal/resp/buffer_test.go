package resp

import (
	"bytes"
	"testing"
)

func TestBuffer_WriteAndDiscard(t *testing.T) {
	var buf Buffer

	n, err := buf.Write([]byte("hello"))
	if err != nil || n != 5 {
		t.Fatalf("Write() = (%d, %v), want (5, nil)", n, err)
	}
	buf.WriteString(" world")

	if got := string(buf.Bytes()); got != "hello world" {
		t.Fatalf("Bytes() = %q", got)
	}
	if buf.Len() != 11 {
		t.Fatalf("Len() = %d, want 11", buf.Len())
	}

	buf.Discard(6)
	if got := string(buf.Bytes()); got != "world" {
		t.Errorf("after Discard(6): Bytes() = %q, want %q", got, "world")
	}

	buf.Discard(5)
	if buf.Len() != 0 {
		t.Errorf("after draining: Len() = %d, want 0", buf.Len())
	}
}

func TestBuffer_DiscardBeyondLengthPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Discard past Len did not panic")
		}
	}()
	var buf Buffer
	buf.WriteString("ab")
	buf.Discard(100)
}

func TestBuffer_WriteAfterDrain(t *testing.T) {
	var buf Buffer
	buf.WriteString("+OK\r\n")
	buf.Discard(buf.Len())
	buf.WriteString("+PONG\r\n")

	if !bytes.Equal(buf.Bytes(), []byte("+PONG\r\n")) {
		t.Errorf("Bytes() = %q, want %q", buf.Bytes(), "+PONG\r\n")
	}
}

func TestBuffer_Reset(t *testing.T) {
	var buf Buffer
	buf.WriteString("data")
	buf.Reset()
	if buf.Len() != 0 {
		t.Errorf("Len() = %d, want 0", buf.Len())
	}
}
