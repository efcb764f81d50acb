package resp

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Wire tags, one per frame variant.
const (
	tagSimpleString = '+'
	tagSimpleError  = '-'
	tagInteger      = ':'
	tagBulkString   = '$'
	tagArray        = '*'
	tagNull         = '_'
	tagBoolean      = '#'
	tagDouble       = ','
	tagMap          = '%'
	tagSet          = '~'
)

const crlf = "\r\n"

// Encode renders a frame to its exact wire encoding.
func Encode(f Frame) []byte {
	return appendFrame(nil, f)
}

func appendFrame(b []byte, f Frame) []byte {
	switch v := f.(type) {
	case SimpleString:
		b = append(b, tagSimpleString)
		b = append(b, v...)
		return append(b, crlf...)
	case SimpleError:
		b = append(b, tagSimpleError)
		b = append(b, v...)
		return append(b, crlf...)
	case Integer:
		b = append(b, tagInteger)
		if v >= 0 {
			b = append(b, '+')
		}
		b = strconv.AppendInt(b, int64(v), 10)
		return append(b, crlf...)
	case BulkString:
		b = append(b, tagBulkString)
		b = strconv.AppendInt(b, int64(len(v)), 10)
		b = append(b, crlf...)
		b = append(b, v...)
		return append(b, crlf...)
	case NullBulkString:
		return append(b, "$-1\r\n"...)
	case Array:
		b = appendHeader(b, tagArray, len(v))
		for _, el := range v {
			b = appendFrame(b, el)
		}
		return b
	case Null, NullArray:
		return append(b, "_\r\n"...)
	case Boolean:
		if v {
			return append(b, "#t\r\n"...)
		}
		return append(b, "#f\r\n"...)
	case Double:
		b = append(b, tagDouble)
		b = append(b, formatDouble(float64(v))...)
		return append(b, crlf...)
	case Map:
		b = appendHeader(b, tagMap, v.Len())
		v.Range(func(key string, value Frame) bool {
			b = appendFrame(b, SimpleString(key))
			b = appendFrame(b, value)
			return true
		})
		return b
	case Set:
		b = appendHeader(b, tagSet, len(v))
		for _, el := range v {
			b = appendFrame(b, el)
		}
		return b
	default:
		panic(fmt.Sprintf("resp: cannot encode frame of type %T", f))
	}
}

func appendHeader(b []byte, tag byte, n int) []byte {
	b = append(b, tag)
	b = strconv.AppendInt(b, int64(n), 10)
	return append(b, crlf...)
}

// formatDouble renders the canonical double payload. Magnitudes at or above
// 1e8, and nonzero magnitudes below 1e-8, use scientific notation with a
// lowercase 'e' and an unpadded exponent; everything else is fixed notation.
// Non-negative values always carry an explicit leading '+'. The thresholds
// and the sign rule are part of the wire contract.
func formatDouble(v float64) string {
	if v == 0 {
		v = 0 // fold -0 into 0
	}
	abs := math.Abs(v)
	if abs >= 1e8 || (abs != 0 && abs < 1e-8) {
		s := strconv.FormatFloat(v, 'e', -1, 64)
		i := strings.IndexByte(s, 'e')
		exp, _ := strconv.Atoi(s[i+1:])
		s = s[:i] + "e" + strconv.Itoa(exp)
		if v >= 0 {
			s = "+" + s
		}
		return s
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if v >= 0 {
		s = "+" + s
	}
	return s
}
