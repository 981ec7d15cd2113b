// Package resp implements the wire-level value model and codec for the
// RESP protocol (versions 2 and 3).
//
// A reply from the store is decoded into a Value, a tagged union over
// the protocol's reply shapes. Values are plain data: they carry no
// connection state and can be copied freely, though Bulk, Array and Map
// payloads share underlying storage with the original.
package resp

import (
	"fmt"
	"strconv"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNil    Kind = iota // null reply (RESP2 "$-1"/"*-1", RESP3 "_")
	KindInt                // integer reply
	KindBulk               // bulk string reply
	KindStatus             // simple string reply ("+OK")
	KindArray              // array reply
	KindMap                // map reply (RESP3 native, or client-side regrouped)
	KindDouble             // double reply (RESP3)
	KindBool               // boolean reply (RESP3)
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindInt:
		return "integer"
	case KindBulk:
		return "bulk-string"
	case KindStatus:
		return "simple-string"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	case KindDouble:
		return "double"
	case KindBool:
		return "boolean"
	}
	return "unknown"
}

// MapEntry is one key/value pair of a map reply. Map replies preserve
// the order the server sent the pairs in.
type MapEntry struct {
	Key   Value
	Value Value
}

// Value is a single wire-level reply. Exactly the field selected by
// Kind is meaningful; the zero value is the nil reply.
type Value struct {
	Kind   Kind
	Int    int64
	Double float64
	Bool   bool
	Bulk   []byte
	Status string
	Array  []Value
	Map    []MapEntry
}

// Nil is the null reply.
var Nil = Value{Kind: KindNil}

func NewInt(i int64) Value         { return Value{Kind: KindInt, Int: i} }
func NewBulk(b []byte) Value       { return Value{Kind: KindBulk, Bulk: b} }
func NewBulkString(s string) Value { return Value{Kind: KindBulk, Bulk: []byte(s)} }
func NewStatus(s string) Value     { return Value{Kind: KindStatus, Status: s} }
func NewArray(vs ...Value) Value   { return Value{Kind: KindArray, Array: vs} }
func NewMap(es []MapEntry) Value   { return Value{Kind: KindMap, Map: es} }
func NewDouble(f float64) Value    { return Value{Kind: KindDouble, Double: f} }
func NewBool(b bool) Value         { return Value{Kind: KindBool, Bool: b} }

// IsNil reports whether v is the null reply.
func (v Value) IsNil() bool { return v.Kind == KindNil }

// AsFloat64 interprets the reply as a 64-bit float. Integer, double and
// numeric string replies all convert; anything else is an error.
func (v Value) AsFloat64() (float64, error) {
	switch v.Kind {
	case KindDouble:
		return v.Double, nil
	case KindInt:
		return float64(v.Int), nil
	case KindBulk:
		f, err := strconv.ParseFloat(string(v.Bulk), 64)
		if err != nil {
			return 0, fmt.Errorf("resp: %q is not a valid float", v.Bulk)
		}
		return f, nil
	case KindStatus:
		f, err := strconv.ParseFloat(v.Status, 64)
		if err != nil {
			return 0, fmt.Errorf("resp: %q is not a valid float", v.Status)
		}
		return f, nil
	}
	return 0, fmt.Errorf("resp: cannot interpret %s reply as float", v.Kind)
}

// AsBool interprets the reply as a boolean. Integer replies follow the
// store's convention (0 is false, anything else is true); string
// replies accept the usual textual spellings.
func (v Value) AsBool() (bool, error) {
	switch v.Kind {
	case KindBool:
		return v.Bool, nil
	case KindInt:
		return v.Int != 0, nil
	case KindBulk:
		return parseBoolToken(string(v.Bulk))
	case KindStatus:
		return parseBoolToken(v.Status)
	}
	return false, fmt.Errorf("resp: cannot interpret %s reply as boolean", v.Kind)
}

func parseBoolToken(s string) (bool, error) {
	switch s {
	case "1", "true", "OK":
		return true, nil
	case "0", "false":
		return false, nil
	}
	return false, fmt.Errorf("resp: %q is not a valid boolean", s)
}

// String renders the value for error messages and debugging output.
func (v Value) String() string {
	switch v.Kind {
	case KindNil:
		return "(nil)"
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindBulk:
		return strconv.Quote(string(v.Bulk))
	case KindStatus:
		return v.Status
	case KindDouble:
		return strconv.FormatFloat(v.Double, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindArray:
		return fmt.Sprintf("array(%d)", len(v.Array))
	case KindMap:
		return fmt.Sprintf("map(%d)", len(v.Map))
	}
	return "(unknown)"
}
