package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindInt
	KindFloat
	KindBool
	KindString
	KindStructured
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindStructured:
		return "structured"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a capability value as reported or accepted by the cloud API.
// Structured values (objects and arrays) are kept as compacted raw JSON and
// re-emitted unchanged. The zero Value is null.
type Value struct {
	kind ValueKind
	i    int64
	f    float64
	b    bool
	s    string
	raw  json.RawMessage
}

func NullValue() Value           { return Value{kind: KindNull} }
func IntValue(v int64) Value     { return Value{kind: KindInt, i: v} }
func FloatValue(v float64) Value { return Value{kind: KindFloat, f: v} }
func BoolValue(v bool) Value     { return Value{kind: KindBool, b: v} }
func StringValue(v string) Value { return Value{kind: KindString, s: v} }

// StructuredValue wraps a JSON object or array. It fails on anything else.
func StructuredValue(raw json.RawMessage) (Value, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') {
		return Value{}, fmt.Errorf("structured value must be a JSON object or array")
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return Value{}, fmt.Errorf("structured value is not valid JSON: %w", err)
	}
	return Value{kind: KindStructured, raw: buf.Bytes()}, nil
}

// MustStructured is StructuredValue for literals known to be valid.
func MustStructured(raw string) Value {
	v, err := StructuredValue(json.RawMessage(raw))
	if err != nil {
		panic(err)
	}
	return v
}

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsInt() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

func (v Value) AsFloat() (float64, bool) {
	if v.kind != KindFloat {
		return 0, false
	}
	return v.f, true
}

// AsNumber returns the value as a float64 for either numeric kind.
func (v Value) AsNumber() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// AsRaw returns the verbatim JSON of a structured value.
func (v Value) AsRaw() (json.RawMessage, bool) {
	if v.kind != KindStructured {
		return nil, false
	}
	return v.raw, true
}

// Decode unmarshals a structured value into dst.
func (v Value) Decode(dst any) error {
	if v.kind != KindStructured {
		return fmt.Errorf("decoding %s value: not structured", v.kind)
	}
	return json.Unmarshal(v.raw, dst)
}

func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindInt:
		return v.i == other.i
	case KindFloat:
		return v.f == other.f
	case KindBool:
		return v.b == other.b
	case KindString:
		return v.s == other.s
	default:
		return bytes.Equal(v.raw, other.raw)
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindInt:
		return strconv.AppendInt(nil, v.i, 10), nil
	case KindFloat:
		return json.Marshal(v.f)
	case KindBool:
		return strconv.AppendBool(nil, v.b), nil
	case KindString:
		return json.Marshal(v.s)
	case KindStructured:
		return v.raw, nil
	default:
		return nil, fmt.Errorf("marshaling value: unknown kind %d", v.kind)
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("decoding value: empty input")
	}

	switch c := trimmed[0]; {
	case c == 'n':
		if !bytes.Equal(trimmed, []byte("null")) {
			return fmt.Errorf("decoding value: invalid literal %q", trimmed)
		}
		*v = NullValue()
	case c == 't' || c == 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return fmt.Errorf("decoding bool value: %w", err)
		}
		*v = BoolValue(b)
	case c == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("decoding string value: %w", err)
		}
		*v = StringValue(s)
	case c == '{' || c == '[':
		sv, err := StructuredValue(trimmed)
		if err != nil {
			return fmt.Errorf("decoding structured value: %w", err)
		}
		*v = sv
	default:
		return v.unmarshalNumber(trimmed)
	}
	return nil
}

func (v *Value) unmarshalNumber(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decoding number value: %w", err)
	}
	if !bytes.ContainsAny(data, ".eE") {
		if i, err := n.Int64(); err == nil {
			*v = IntValue(i)
			return nil
		}
	}
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("decoding number value: %w", err)
	}
	*v = FloatValue(f)
	return nil
}
