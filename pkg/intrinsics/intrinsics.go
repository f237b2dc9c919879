// Package intrinsics parses `figma.*` property accessor calls into typed
// Intrinsic values and generates the template code that evaluates them.
//
// The accessor set is closed:
//
//	figma.string(propName)
//	figma.boolean(propName[, {true: V, false: V}])
//	figma.enum(propName, {key: V, ...})
//	figma.instance(propName)
//	figma.children(layerName | [layerName, ...])
//	figma.nestedProps(layerName, {propKey: Intrinsic, ...})
//	figma.className([part, ...])
//	figma.textContent(layerName)
//
// Each accessor may be followed by `.getProps()` or `.render(fn)` modifiers.
package intrinsics

import (
	"bytes"
	"fmt"

	"github.com/gnana997/codeconnect/pkg/literal"
	"github.com/gnana997/codeconnect/pkg/program"
)

// APIPrefix is the identifier the accessors hang off.
const APIPrefix = "figma"

// ConnectCall is the callee text of a Code Connect declaration.
const ConnectCall = APIPrefix + ".connect"

// Kind identifies an intrinsic.
type Kind int

const (
	KindString Kind = iota
	KindBoolean
	KindEnum
	KindInstance
	KindChildren
	KindNestedProps
	KindClassName
	KindTextContent
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBoolean:
		return "boolean"
	case KindEnum:
		return "enum"
	case KindInstance:
		return "instance"
	case KindChildren:
		return "children"
	case KindNestedProps:
		return "nested-props"
	case KindClassName:
		return "className"
	case KindTextContent:
		return "text-content"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Kinds lists every intrinsic kind in declaration order.
var Kinds = []Kind{KindString, KindBoolean, KindEnum, KindInstance, KindChildren, KindNestedProps, KindClassName, KindTextContent}

// KindNames returns the wire names of all kinds.
func KindNames() []string {
	names := make([]string, len(Kinds))
	for i, k := range Kinds {
		names[i] = k.String()
	}
	return names
}

// Intrinsic describes how to read one Figma property. Which fields are set
// depends on Kind:
//
//	string, instance  FigmaPropName
//	boolean           FigmaPropName, ValueMapping (optional)
//	enum              FigmaPropName, ValueMapping
//	children          Layers
//	nested-props      Layer, Props
//	className         ClassName (String or *Intrinsic parts)
//	text-content      Layer
type Intrinsic struct {
	Kind          Kind
	FigmaPropName string
	ValueMapping  *literal.Object
	Layers        []string
	Layer         string
	Props         *literal.Object
	ClassName     []literal.Value
	Modifiers     []Modifier
}

// ValueType makes intrinsics usable wherever a literal value is expected,
// e.g. as the value of an enum mapping entry.
func (i *Intrinsic) ValueType() string { return "intrinsic" }

// MarshalJSON writes {"kind", "args", "modifiers"?}.
func (i *Intrinsic) MarshalJSON() ([]byte, error) {
	args := literal.NewObject()
	switch i.Kind {
	case KindString, KindInstance:
		args.Set("figmaPropName", literal.String(i.FigmaPropName))
	case KindBoolean:
		args.Set("figmaPropName", literal.String(i.FigmaPropName))
		if i.ValueMapping != nil {
			args.Set("valueMapping", i.ValueMapping)
		}
	case KindEnum:
		args.Set("figmaPropName", literal.String(i.FigmaPropName))
		args.Set("valueMapping", orEmpty(i.ValueMapping))
	case KindChildren:
		layers := make(literal.Array, len(i.Layers))
		for n, l := range i.Layers {
			layers[n] = literal.String(l)
		}
		args.Set("layers", layers)
	case KindNestedProps:
		args.Set("layer", literal.String(i.Layer))
		args.Set("props", orEmpty(i.Props))
	case KindClassName:
		parts := make(literal.Array, len(i.ClassName))
		copy(parts, i.ClassName)
		args.Set("className", parts)
	case KindTextContent:
		args.Set("layer", literal.String(i.Layer))
	default:
		return nil, program.NewInternalError("Unknown intrinsic: %s", i.Kind)
	}

	var buf bytes.Buffer
	buf.WriteString(`{"kind":`)
	kind, _ := literal.Marshal(i.Kind.String())
	buf.Write(kind)
	buf.WriteString(`,"args":`)
	data, err := literal.Marshal(args)
	if err != nil {
		return nil, err
	}
	buf.Write(data)
	if len(i.Modifiers) > 0 {
		buf.WriteString(`,"modifiers":`)
		mods, err := literal.Marshal(i.Modifiers)
		if err != nil {
			return nil, err
		}
		buf.Write(mods)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func orEmpty(obj *literal.Object) *literal.Object {
	if obj == nil {
		return literal.NewObject()
	}
	return obj
}

// ModifierKind identifies a chained modifier.
type ModifierKind int

const (
	ModifierGetProps ModifierKind = iota
	ModifierRender
)

func (k ModifierKind) String() string {
	switch k {
	case ModifierGetProps:
		return "getProps"
	case ModifierRender:
		return "render"
	}
	return fmt.Sprintf("ModifierKind(%d)", int(k))
}

// RenderFunction is the parsed function passed to `.render()`.
type RenderFunction struct {
	Code            string                    `json:"code"`
	Imports         []program.ImportStatement `json:"imports"`
	ReferencedProps []string                  `json:"referencedProps"`
}

// Modifier is a call chained after an accessor. RenderFn is set for render
// modifiers only.
type Modifier struct {
	Kind     ModifierKind
	RenderFn *RenderFunction
}

// MarshalJSON writes {"kind"} or {"kind", "args": {"renderFn"}}.
func (m Modifier) MarshalJSON() ([]byte, error) {
	type renderArgs struct {
		RenderFn *RenderFunction `json:"renderFn"`
	}
	out := struct {
		Kind string      `json:"kind"`
		Args *renderArgs `json:"args,omitempty"`
	}{Kind: m.Kind.String()}
	if m.Kind == ModifierRender {
		out.Args = &renderArgs{RenderFn: m.RenderFn}
	}
	return literal.Marshal(out)
}
