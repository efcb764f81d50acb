// Package resp implements the RESP wire protocol: the closed set of frame
// value types and an incremental binary codec over a growable buffer.
//
// Frames form a sealed union. Every variant is a small concrete type that
// converts losslessly into the Frame interface and back out via a type
// switch. The codec guarantees that every non-null frame round-trips through
// Encode/Decode; Double round-trips up to its canonical formatting.
package resp

import "sort"

// Frame is one value in the protocol's type system.
type Frame interface {
	frame()
}

// SimpleString is a short CRLF-terminated text value (tag '+').
// The text must not contain CR or LF; enforcing that is the producer's
// responsibility, not the encoder's.
type SimpleString string

// SimpleError is an error message with the same shape rules as
// SimpleString (tag '-').
type SimpleError string

// Integer is a 64-bit signed integer (tag ':').
type Integer int64

// BulkString is a length-prefixed raw byte string (tag '$'). It may contain
// any bytes, including CR and LF.
type BulkString []byte

// NullBulkString is the RESP2 null bulk string, encoded as "$-1\r\n".
type NullBulkString struct{}

// Array is an ordered sequence of frames (tag '*').
type Array []Frame

// Null is the RESP3 null value, encoded as "_\r\n".
type Null struct{}

// NullArray is a null array. On the wire it is indistinguishable from Null;
// both encode as "_\r\n".
type NullArray struct{}

// Boolean is a true/false value (tag '#').
type Boolean bool

// Double is a 64-bit float (tag ',').
type Double float64

// Set is an ordered sequence of frames (tag '~'). Despite the name it is a
// plain sequence: duplicates are kept and order is preserved.
type Set []Frame

// Map is a mapping from unique string keys to frames (tag '%'). Entries are
// held sorted by key so that two maps with the same contents always encode
// identically.
type Map struct {
	entries []mapEntry
}

type mapEntry struct {
	key   string
	value Frame
}

// Set inserts or replaces the entry for key, keeping entries in key order.
func (m *Map) Set(key string, value Frame) {
	i := sort.Search(len(m.entries), func(i int) bool { return m.entries[i].key >= key })
	if i < len(m.entries) && m.entries[i].key == key {
		m.entries[i].value = value
		return
	}
	m.entries = append(m.entries, mapEntry{})
	copy(m.entries[i+1:], m.entries[i:])
	m.entries[i] = mapEntry{key: key, value: value}
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (Frame, bool) {
	i := sort.Search(len(m.entries), func(i int) bool { return m.entries[i].key >= key })
	if i < len(m.entries) && m.entries[i].key == key {
		return m.entries[i].value, true
	}
	return nil, false
}

// Len returns the number of entries.
func (m *Map) Len() int { return len(m.entries) }

// Range calls fn for every entry in key order until fn returns false.
func (m *Map) Range(fn func(key string, value Frame) bool) {
	for _, e := range m.entries {
		if !fn(e.key, e.value) {
			return
		}
	}
}

func (SimpleString) frame()   {}
func (SimpleError) frame()    {}
func (Integer) frame()        {}
func (BulkString) frame()     {}
func (NullBulkString) frame() {}
func (Array) frame()          {}
func (Null) frame()           {}
func (NullArray) frame()      {}
func (Boolean) frame()        {}
func (Double) frame()         {}
func (Map) frame()            {}
func (Set) frame()            {}
