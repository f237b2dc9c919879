package literal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Decode parses a JSON document into a value tree. Object keys keep their
// document order, which lets documents produced by external parsers be
// re-encoded unchanged.
func Decode(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("literal: unexpected data after JSON value")
	}
	return v, nil
}

// UnmarshalJSON decodes a JSON object, keeping the key order.
func (o *Object) UnmarshalJSON(data []byte) error {
	v, err := Decode(data)
	if err != nil {
		return err
	}
	obj, ok := v.(*Object)
	if !ok {
		return fmt.Errorf("literal: expected a JSON object, got %s", v.ValueType())
	}
	*o = *obj
	return nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := NewObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("literal: expected object key, got %v", keyTok)
				}
				v, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				obj.Set(key, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			arr := Array{}
			for dec.More() {
				v, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		}
		return nil, fmt.Errorf("literal: unexpected delimiter %v", t)
	case string:
		return String(t), nil
	case float64:
		return Number(t), nil
	case bool:
		return Bool(t), nil
	case nil:
		return Null{}, nil
	}
	return nil, fmt.Errorf("literal: unexpected token %v", tok)
}

// Interface converts v into plain Go values: map[string]any, []any, string,
// float64, bool and nil. Tagged values become their JSON payload shape.
func Interface(v Value) any {
	switch t := v.(type) {
	case String:
		return string(t)
	case Opaque:
		return string(t)
	case Number:
		return float64(t)
	case Bool:
		return bool(t)
	case Undefined, Null, nil:
		return nil
	case *Object:
		out := make(map[string]any, t.Len())
		_ = t.Each(func(key string, value Value) error {
			out[key] = Interface(value)
			return nil
		})
		return out
	case Array:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Interface(e)
		}
		return out
	}
	data, err := Marshal(v)
	if err != nil {
		return nil
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}
