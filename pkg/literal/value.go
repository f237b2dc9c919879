// Package literal converts object and array literals found in Code Connect
// files into a JSON-compatible value tree.
//
// Primitives (strings, numbers, booleans, undefined, null) are kept as they
// are. Values that only make sense as code (functions, identifiers, JSX,
// template strings) are tagged with a `$type` so the template generator can
// render each one with the matching runtime helper. Expressions that match
// none of the known shapes are kept as Opaque source text.
package literal

import (
	"bytes"
	"encoding/json"
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Value is a converted literal. The concrete types are String, Number,
// Bool, Undefined, Null, Tagged, *Object, Array and Opaque; other packages
// may add their own (intrinsics do).
type Value interface {
	// ValueType names the variant, e.g. "string" or "function".
	ValueType() string
}

// String is a string literal with quotes removed and escapes decoded.
type String string

// Number is a numeric literal.
type Number float64

// Bool is true or false.
type Bool bool

// Undefined is the `undefined` identifier.
type Undefined struct{}

// Null is the `null` keyword.
type Null struct{}

// Opaque is an expression no conversion rule recognised, kept as its
// source text. Templates treat it as a plain string.
type Opaque string

func (String) ValueType() string    { return "string" }
func (Number) ValueType() string    { return "number" }
func (Bool) ValueType() string      { return "boolean" }
func (Undefined) ValueType() string { return "undefined" }
func (Null) ValueType() string      { return "null" }
func (Opaque) ValueType() string    { return "opaque" }

func (s String) MarshalJSON() ([]byte, error)  { return Marshal(string(s)) }
func (o Opaque) MarshalJSON() ([]byte, error)  { return Marshal(string(o)) }
func (Undefined) MarshalJSON() ([]byte, error) { return []byte("null"), nil }
func (Null) MarshalJSON() ([]byte, error)      { return []byte("null"), nil }

// FormatNumber renders n the way JavaScript prints numbers: integers
// without a fraction, everything else in shortest form.
func FormatNumber(n Number) string {
	return strconv.FormatFloat(float64(n), 'f', -1, 64)
}

// TagType is the `$type` of a tagged value.
type TagType string

const (
	TypeFunction       TagType = "function"
	TypeIdentifier     TagType = "identifier"
	TypeObject         TagType = "object"
	TypeTemplateString TagType = "template-string"
	TypeJSXElement     TagType = "jsx-element"
	TypeArray          TagType = "array"
	TypeReactComponent TagType = "react-component"
)

// Tagged is a value that must be rendered as code. Code-carrying tags
// (function, identifier, template-string, jsx-element, react-component)
// set Code; object and array tags set Value to the nested structure.
type Tagged struct {
	Type  TagType
	Code  string
	Value Value
}

func (t Tagged) ValueType() string { return string(t.Type) }

// Payload returns the tag's `$value`: the nested structure for objects and
// arrays, the source text otherwise.
func (t Tagged) Payload() any {
	if t.Value != nil {
		return t.Value
	}
	return t.Code
}

// MarshalJSON writes {"$value": ..., "$type": ...}. Tagged objects also
// repeat their entries at the top level, matching the shape the template
// runtime builds with _fcc_object.
func (t Tagged) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"$value":`)
	payload, err := Marshal(t.Payload())
	if err != nil {
		return nil, err
	}
	buf.Write(payload)
	buf.WriteString(`,"$type":`)
	typ, _ := Marshal(string(t.Type))
	buf.Write(typ)

	if obj, ok := t.Value.(*Object); ok && t.Type == TypeObject {
		for pair := obj.m.Oldest(); pair != nil; pair = pair.Next() {
			if pair.Key == "$value" || pair.Key == "$type" {
				continue
			}
			if err := writeEntry(&buf, pair.Key, pair.Value); err != nil {
				return nil, err
			}
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Object is an ordered map from key to Value. Keys keep the order they were
// first set in; setting an existing key replaces its value in place.
type Object struct {
	m *orderedmap.OrderedMap[string, Value]
}

// NewObject returns an empty Object.
func NewObject() *Object {
	return &Object{m: orderedmap.New[string, Value]()}
}

func (*Object) ValueType() string { return string(TypeObject) }

// Set stores value under key.
func (o *Object) Set(key string, value Value) {
	o.m.Set(key, value)
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (Value, bool) {
	return o.m.Get(key)
}

// Len returns the number of entries.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return o.m.Len()
}

// Keys returns the keys in order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	keys := make([]string, 0, o.m.Len())
	for pair := o.m.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Each calls fn for every entry in order, stopping at the first error.
func (o *Object) Each(fn func(key string, value Value) error) error {
	if o == nil {
		return nil
	}
	for pair := o.m.Oldest(); pair != nil; pair = pair.Next() {
		if err := fn(pair.Key, pair.Value); err != nil {
			return err
		}
	}
	return nil
}

// MarshalJSON writes the entries in order. Undefined entries are omitted,
// as JSON.stringify does.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for pair := o.m.Oldest(); pair != nil; pair = pair.Next() {
		if _, undefined := pair.Value.(Undefined); undefined {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		if err := writePair(&buf, pair.Key, pair.Value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Array is an array literal.
type Array []Value

func (Array) ValueType() string { return string(TypeArray) }

// MarshalJSON writes the elements in order; Undefined becomes null.
func (a Array) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		data, err := Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(data)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// Marshal encodes v as JSON without escaping <, > and &. Generated code
// embeds the result in JavaScript, where those escapes would show up
// verbatim in rendered snippets.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func writeEntry(buf *bytes.Buffer, key string, value Value) error {
	if _, undefined := value.(Undefined); undefined {
		return nil
	}
	buf.WriteByte(',')
	return writePair(buf, key, value)
}

func writePair(buf *bytes.Buffer, key string, value Value) error {
	k, err := Marshal(key)
	if err != nil {
		return err
	}
	v, err := Marshal(value)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}
