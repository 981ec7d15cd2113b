package kvgate

import (
	"fmt"

	"github.com/kvgate/kvgate/resp"
)

// ExpectedReturnType is the semantic type a command's reply should be
// presented as. Several commands return integers or flat arrays on the
// wire even though their result is really a boolean, a double or a
// key/value mapping; the coercion step reconstructs that type
// client-side so callers see consistent results under either protocol
// version.
type ExpectedReturnType uint8

const (
	ExpectNone ExpectedReturnType = iota // pass the raw reply through
	ExpectMap
	ExpectDouble
	ExpectBoolean
)

// expectedTypeForCommand classifies a command by its name.
func expectedTypeForCommand(cmd *Command) ExpectedReturnType {
	switch cmd.Name() {
	case "HGETALL", "XREAD":
		return ExpectMap
	case "INCRBYFLOAT", "HINCRBYFLOAT":
		return ExpectDouble
	case "HEXISTS", "EXPIRE", "EXPIREAT", "PEXPIRE", "PEXPIREAT":
		return ExpectBoolean
	}
	return ExpectNone
}

// coerceValue converts a raw reply into its expected semantic type.
// ExpectNone returns the value untouched. Failures are *TypeError;
// a coerced value is never partially built.
func coerceValue(value resp.Value, expected ExpectedReturnType) (resp.Value, error) {
	switch expected {
	case ExpectNone:
		return value, nil

	case ExpectMap:
		switch value.Kind {
		case resp.KindNil, resp.KindMap:
			return value, nil
		case resp.KindArray:
			if len(value.Array)%2 != 0 {
				return resp.Value{}, &TypeError{
					Message: "reply has an odd number of elements and cannot be paired into a map",
				}
			}
			entries := make([]resp.MapEntry, 0, len(value.Array)/2)
			for i := 0; i < len(value.Array); i += 2 {
				entries = append(entries, resp.MapEntry{
					Key:   value.Array[i],
					Value: value.Array[i+1],
				})
			}
			return resp.NewMap(entries), nil
		}
		return resp.Value{}, &TypeError{
			Message: fmt.Sprintf("%s reply cannot be converted to a map (reply was %s)", value.Kind, value),
		}

	case ExpectDouble:
		f, err := value.AsFloat64()
		if err != nil {
			return resp.Value{}, &TypeError{Message: "reply cannot be converted to a double", Err: err}
		}
		return resp.NewDouble(f), nil

	case ExpectBoolean:
		b, err := value.AsBool()
		if err != nil {
			return resp.Value{}, &TypeError{Message: "reply cannot be converted to a boolean", Err: err}
		}
		return resp.NewBool(b), nil
	}

	return value, nil
}
