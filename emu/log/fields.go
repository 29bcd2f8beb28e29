package log

import (
	"fmt"
	"strconv"
	"time"
)

type FieldType uint8

const (
	FieldTypeUnknown FieldType = iota
	FieldTypeBool
	FieldTypeString
	FieldTypeHex8
	FieldTypeHex16
	FieldTypeHex32
	FieldTypeHex64
	FieldTypeInt
	FieldTypeUint
	FieldTypeError
	FieldTypeDuration
	FieldTypeStringer
	FieldTypeBlob
)

// hex digits printed per hex field type. Addresses and data print in upper
// case, as in memory dumps and bus commands.
var hexDigits = [...]int{
	FieldTypeHex8:  2,
	FieldTypeHex16: 4,
	FieldTypeHex32: 8,
	FieldTypeHex64: 16,
}

// ZField is a log field. Bools, integers and durations are all kept in Bits.
type ZField struct {
	Type FieldType
	Key  string

	Bits  uint64
	Str   string
	Error error
	Iface fmt.Stringer
	Blob  []byte
}

func (f *ZField) Value() string {
	switch f.Type {
	case FieldTypeBool:
		return strconv.FormatBool(f.Bits != 0)
	case FieldTypeString:
		return f.Str
	case FieldTypeUint:
		return strconv.FormatUint(f.Bits, 10)
	case FieldTypeInt:
		return strconv.FormatInt(int64(f.Bits), 10)
	case FieldTypeHex8, FieldTypeHex16, FieldTypeHex32, FieldTypeHex64:
		return fmt.Sprintf("%0*X", hexDigits[f.Type], f.Bits)
	case FieldTypeError:
		if f.Error == nil {
			return "<nil>"
		}
		return f.Error.Error()
	case FieldTypeDuration:
		return time.Duration(f.Bits).String()
	case FieldTypeStringer:
		if f.Iface == nil {
			return "<nil>"
		}
		return f.Iface.String()
	case FieldTypeBlob:
		// One line, bus data is a handful of bytes.
		return fmt.Sprintf("% X", f.Blob)
	}
	return ""
}
