package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type SceneKind string

const (
	SceneKindLight SceneKind = "light"
	SceneKindDIY   SceneKind = "diy"
)

func ParseSceneKind(s string) (SceneKind, error) {
	switch SceneKind(s) {
	case SceneKindLight, SceneKindDIY:
		return SceneKind(s), nil
	default:
		return "", fmt.Errorf("unknown scene kind %q", s)
	}
}

// Instance is the capability instance that carries the scene options.
func (k SceneKind) Instance() string {
	switch k {
	case SceneKindLight:
		return InstanceLightScene
	case SceneKindDIY:
		return InstanceDIYScene
	default:
		return ""
	}
}

type SceneOption struct {
	Name  string     `json:"name"`
	Value SceneValue `json:"value"`
}

// SceneValue is either a plain integer or a {paramId, id} object. Whichever
// form was decoded is re-encoded verbatim.
type SceneValue struct {
	keyed   bool
	simple  int64
	paramID int64
	id      int64
	raw     json.RawMessage
}

func SimpleSceneValue(v int64) SceneValue {
	return SceneValue{simple: v}
}

func KeyedSceneValue(paramID, id int64) SceneValue {
	return SceneValue{keyed: true, paramID: paramID, id: id}
}

func (s SceneValue) IsKeyed() bool { return s.keyed }

func (s SceneValue) Simple() (int64, bool) {
	if s.keyed {
		return 0, false
	}
	return s.simple, true
}

func (s SceneValue) Keyed() (paramID, id int64, ok bool) {
	if !s.keyed {
		return 0, 0, false
	}
	return s.paramID, s.id, true
}

// Value converts the scene value into a capability value for a control
// command without reinterpreting it.
func (s SceneValue) Value() Value {
	if !s.keyed {
		return IntValue(s.simple)
	}
	raw, err := s.MarshalJSON()
	if err != nil {
		return NullValue()
	}
	v, err := StructuredValue(raw)
	if err != nil {
		return NullValue()
	}
	return v
}

type keyedSceneValue struct {
	ParamID *int64 `json:"paramId"`
	ID      *int64 `json:"id"`
}

func (s SceneValue) MarshalJSON() ([]byte, error) {
	if s.raw != nil {
		return s.raw, nil
	}
	if !s.keyed {
		return json.Marshal(s.simple)
	}
	return json.Marshal(keyedSceneValue{ParamID: &s.paramID, ID: &s.id})
}

func (s *SceneValue) UnmarshalJSON(data []byte) error {
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return fmt.Errorf("decoding scene value: %w", err)
	}
	raw := buf.Bytes()

	if bytes.Equal(raw, []byte("null")) {
		return fmt.Errorf("decoding scene value: null")
	}

	if raw[0] == '{' {
		var k keyedSceneValue
		if err := json.Unmarshal(raw, &k); err != nil {
			return fmt.Errorf("decoding keyed scene value: %w", err)
		}
		if k.ParamID == nil || k.ID == nil {
			return fmt.Errorf("decoding keyed scene value: paramId and id are required")
		}
		*s = SceneValue{keyed: true, paramID: *k.ParamID, id: *k.ID, raw: raw}
		return nil
	}

	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		return fmt.Errorf("decoding scene value: expected integer or object: %w", err)
	}
	*s = SceneValue{simple: n, raw: raw}
	return nil
}
