// Package command converts decoded request frames into typed store commands
// and executes them against the backend.
//
// Parsing draws a deliberate fault-containment line: a request that is not
// an array, or whose first element is not a bulk string, is a hard error —
// the peer is not speaking the request protocol and the connection cannot
// continue. Everything past that point degrades softly: an unknown command
// name, a wrong argument count, or a mistyped argument becomes an
// Unrecognized command whose execution answers with an error frame while
// the connection stays open.
package command

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/arvhen/respd/internal/backend"
	"github.com/arvhen/respd/internal/resp"
)

// replyOK is the shared success reply for mutations. SimpleString is an
// immutable value, so one instance serves every caller.
var replyOK resp.Frame = resp.SimpleString("OK")

var (
	// ErrNotArray reports a request frame that is not an array.
	ErrNotArray = errors.New("command must be an array frame")

	// ErrBadName reports an array whose first element is not a bulk string.
	ErrBadName = errors.New("command name must be a bulk string")
)

// Command is one typed request. A command is built once by Parse and
// consumed once by Execute; it owns its data and shares nothing with the
// frame it was parsed from.
type Command interface {
	// Name identifies the command for logging and metrics.
	Name() string

	// Execute runs the command against the store and returns the reply
	// frame. It never fails: every outcome, including a rejected request,
	// is expressed as a frame.
	Execute(store *backend.Backend) resp.Frame
}

// Get reads the frame stored under Key.
type Get struct {
	Key string
}

// Set stores Value under Key, overwriting unconditionally.
type Set struct {
	Key   string
	Value resp.Frame
}

// HGet reads one field of the hash at Key.
type HGet struct {
	Key   string
	Field string
}

// HSet stores Value under Field of the hash at Key.
type HSet struct {
	Key   string
	Field string
	Value resp.Frame
}

// HGetAll reads every field of the hash at Key.
type HGetAll struct {
	Key string
}

// Unrecognized stands in for a request that named no known command or
// failed shape validation. It never touches the store.
type Unrecognized struct {
	Reason string
}

// Parse classifies a decoded request frame into a typed command.
//
// Command names match case-sensitively against their lowercase spelling;
// "GET" is an unknown command. Shape or arity failures inside a matched
// branch are downgraded to Unrecognized rather than returned as errors.
func Parse(f resp.Frame) (Command, error) {
	arr, ok := f.(resp.Array)
	if !ok {
		return nil, ErrNotArray
	}
	if len(arr) == 0 {
		return nil, ErrBadName
	}
	name, ok := arr[0].(resp.BulkString)
	if !ok {
		return nil, ErrBadName
	}

	var (
		cmd Command
		err error
	)
	switch string(name) {
	case "get":
		cmd, err = parseGet(arr)
	case "set":
		cmd, err = parseSet(arr)
	case "hget":
		cmd, err = parseHGet(arr)
	case "hset":
		cmd, err = parseHSet(arr)
	case "hgetall":
		cmd, err = parseHGetAll(arr)
	default:
		return Unrecognized{Reason: fmt.Sprintf("unknown command %q", name)}, nil
	}
	if err != nil {
		return Unrecognized{Reason: err.Error()}, nil
	}
	return cmd, nil
}

func parseGet(arr resp.Array) (Command, error) {
	if err := validate(arr, []string{"get"}, 1); err != nil {
		return nil, err
	}
	key, err := bulkText(arr[1], "key")
	if err != nil {
		return nil, err
	}
	return Get{Key: key}, nil
}

func parseSet(arr resp.Array) (Command, error) {
	if err := validate(arr, []string{"set"}, 2); err != nil {
		return nil, err
	}
	key, err := bulkText(arr[1], "key")
	if err != nil {
		return nil, err
	}
	return Set{Key: key, Value: arr[2]}, nil
}

func parseHGet(arr resp.Array) (Command, error) {
	if err := validate(arr, []string{"hget"}, 2); err != nil {
		return nil, err
	}
	key, err := bulkText(arr[1], "key")
	if err != nil {
		return nil, err
	}
	field, err := bulkText(arr[2], "field")
	if err != nil {
		return nil, err
	}
	return HGet{Key: key, Field: field}, nil
}

func parseHSet(arr resp.Array) (Command, error) {
	if err := validate(arr, []string{"hset"}, 3); err != nil {
		return nil, err
	}
	key, err := bulkText(arr[1], "key")
	if err != nil {
		return nil, err
	}
	field, err := bulkText(arr[2], "field")
	if err != nil {
		return nil, err
	}
	return HSet{Key: key, Field: field, Value: arr[3]}, nil
}

func parseHGetAll(arr resp.Array) (Command, error) {
	if err := validate(arr, []string{"hgetall"}, 1); err != nil {
		return nil, err
	}
	key, err := bulkText(arr[1], "key")
	if err != nil {
		return nil, err
	}
	return HGetAll{Key: key}, nil
}

// validate enforces the shape contract shared by every command: the array
// holds exactly the name tokens plus nArgs trailing arguments, and each
// name token is a bulk string whose lowercased bytes equal the expected
// name, in order.
func validate(arr resp.Array, names []string, nArgs int) error {
	if len(arr) != len(names)+nArgs {
		return fmt.Errorf("%s command must have exactly %d arguments", strings.Join(names, " "), nArgs)
	}
	for i, name := range names {
		tok, ok := arr[i].(resp.BulkString)
		if !ok {
			return fmt.Errorf("%s command name token %d must be a bulk string", strings.Join(names, " "), i)
		}
		if !bytes.Equal(bytes.ToLower(tok), []byte(name)) {
			return fmt.Errorf("expected command %s, got %q", name, tok)
		}
	}
	return nil
}

// bulkText extracts a UTF-8 string argument from a bulk string frame. The
// returned string is a copy; nothing aliases the request frame afterwards.
func bulkText(f resp.Frame, what string) (string, error) {
	b, ok := f.(resp.BulkString)
	if !ok {
		return "", fmt.Errorf("%s must be a bulk string", what)
	}
	if !utf8.Valid(b) {
		return "", fmt.Errorf("%s must be valid UTF-8", what)
	}
	return string(b), nil
}

func (Get) Name() string          { return "get" }
func (Set) Name() string          { return "set" }
func (HGet) Name() string         { return "hget" }
func (HSet) Name() string         { return "hset" }
func (HGetAll) Name() string      { return "hgetall" }
func (Unrecognized) Name() string { return "unrecognized" }

// Execute implements Command.
func (c Get) Execute(store *backend.Backend) resp.Frame {
	if v, ok := store.Get(c.Key); ok {
		return v
	}
	return resp.Null{}
}

// Execute implements Command.
func (c Set) Execute(store *backend.Backend) resp.Frame {
	store.Set(c.Key, c.Value)
	return replyOK
}

// Execute implements Command.
func (c HGet) Execute(store *backend.Backend) resp.Frame {
	if v, ok := store.HGet(c.Key, c.Field); ok {
		return v
	}
	return resp.Null{}
}

// Execute implements Command.
func (c HSet) Execute(store *backend.Backend) resp.Frame {
	store.HSet(c.Key, c.Field, c.Value)
	return replyOK
}

// Execute implements Command. An absent key answers Null, never an empty
// map, so callers can tell the two apart.
func (c HGetAll) Execute(store *backend.Backend) resp.Frame {
	fields, ok := store.HGetAll(c.Key)
	if !ok {
		return resp.Null{}
	}
	var m resp.Map
	for field, value := range fields {
		m.Set(field, value)
	}
	return m
}

// Execute implements Command.
func (c Unrecognized) Execute(*backend.Backend) resp.Frame {
	return resp.SimpleError("ERR " + c.Reason)
}
