package intrinsics

import (
	"fmt"
	"strings"

	"github.com/gnana997/codeconnect/pkg/literal"
	"github.com/gnana997/codeconnect/pkg/program"
)

// CurrentLayer is the selector intrinsics read from unless they are
// rendered inside a nested layer lookup.
const CurrentLayer = "figma.currentLayer"

// Generator renders intrinsics and literal values as template code for the
// Figma template runtime.
//
// Every nestedProps lookup is bound to a generated variable (nestedLayer0,
// nestedLayer1, ...) rather than a name derived from the layer, since layer
// names can contain anything. The counter lives on the Generator, so use one
// Generator per generated template.
//
// Thread Safety:
//   - Not safe for concurrent use
//
// Example:
//
//	gen := intrinsics.NewGenerator()
//	code, err := gen.IntrinsicToString(in, "")
//	// figma.currentLayer.__properties__.enum('Size', {...})
type Generator struct {
	nestedLayers int
}

// NewGenerator creates a Generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// IntrinsicToString renders in as a runtime accessor call on childLayer
// ("" means the current layer).
func (g *Generator) IntrinsicToString(in *Intrinsic, childLayer string) (string, error) {
	selector := childLayer
	if selector == "" {
		selector = CurrentLayer
	}

	switch in.Kind {
	case KindString:
		return fmt.Sprintf("%s.__properties__.string('%s')", selector, in.FigmaPropName), nil

	case KindInstance:
		if len(in.Modifiers) == 0 {
			return fmt.Sprintf("%s.__properties__.instance('%s')", selector, in.FigmaPropName), nil
		}
		chain := []string{"instance"}
		for _, m := range in.Modifiers {
			s, err := ModifierToString(m)
			if err != nil {
				return "", err
			}
			chain = append(chain, s)
		}
		body := fmt.Sprintf("const instance = %s.__properties__.__instance__('%s')\n", selector, in.FigmaPropName)
		body += fmt.Sprintf(`return instance && instance.type !== "ERROR" ? %s : instance`, strings.Join(chain, "."))
		return "(function () {" + body + "})()", nil

	case KindBoolean:
		if in.ValueMapping == nil {
			return fmt.Sprintf("%s.__properties__.boolean('%s')", selector, in.FigmaPropName), nil
		}
		mapping, err := g.ValueMappingToString(booleanOrder(in.ValueMapping), childLayer)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s.__properties__.boolean('%s', %s)", selector, in.FigmaPropName, mapping), nil

	case KindEnum:
		mapping, err := g.ValueMappingToString(orEmpty(in.ValueMapping), childLayer)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s.__properties__.enum('%s', %s)", selector, in.FigmaPropName, mapping), nil

	case KindChildren:
		layers := make([]string, len(in.Layers))
		for i, l := range in.Layers {
			layers[i] = `"` + l + `"`
		}
		return fmt.Sprintf("%s.__properties__.children([%s])", selector, strings.Join(layers, ",")), nil

	case KindClassName:
		parts := make([]string, 0, len(in.ClassName))
		for _, part := range in.ClassName {
			switch p := part.(type) {
			case literal.String:
				parts = append(parts, `"`+string(p)+`"`)
			case *Intrinsic:
				s, err := g.IntrinsicToString(p, childLayer)
				if err != nil {
					return "", err
				}
				parts = append(parts, s)
			default:
				return "", program.NewInternalError("Unknown className part: %s", part.ValueType())
			}
		}
		return fmt.Sprintf("[%s].filter(v => !!v).join(' ')", strings.Join(parts, ", ")), nil

	case KindTextContent:
		return fmt.Sprintf(`%s.__findChildWithCriteria__({ name: '%s', type: "TEXT" }).__render__()`, selector, in.Layer), nil

	case KindNestedProps:
		ref := fmt.Sprintf("nestedLayer%d", g.nestedLayers)
		g.nestedLayers++

		var entries []string
		err := orEmpty(in.Props).Each(func(key string, value literal.Value) error {
			s, err := g.ValueToString(value, ref)
			if err != nil {
				return err
			}
			entries = append(entries, key+": "+s+"\n")
			return nil
		})
		if err != nil {
			return "", err
		}

		body := fmt.Sprintf("const %s = %s.__find__(\"%s\")\n", ref, CurrentLayer, in.Layer)
		body += fmt.Sprintf("return %s.type === \"ERROR\" ? %s : {\n%s\n        }\n", ref, ref, strings.Join(entries, ","))
		return "(function () {" + body + "})()", nil
	}
	return "", program.NewInternalError("Unknown intrinsic: %s", in.Kind)
}

// ValueToString renders a value of a props object or value mapping.
// Strings are single quoted, tagged values are wrapped in the _fcc_* helper
// matching their type and intrinsics are rendered as accessor calls.
func (g *Generator) ValueToString(value literal.Value, childLayer string) (string, error) {
	switch v := value.(type) {
	case nil, literal.Undefined:
		return "undefined", nil
	case literal.Null:
		return "null", nil
	case literal.Bool:
		if v {
			return "true", nil
		}
		return "false", nil
	case literal.Number:
		return literal.FormatNumber(v), nil
	case literal.String:
		return "'" + EscapeString(string(v)) + "'", nil
	case literal.Opaque:
		return "'" + EscapeString(string(v)) + "'", nil
	case *Intrinsic:
		return g.IntrinsicToString(v, childLayer)
	case literal.Tagged:
		return taggedToString(v)
	case *literal.Object:
		return taggedToString(literal.Tagged{Type: literal.TypeObject, Value: v})
	case literal.Array:
		return taggedToString(literal.Tagged{Type: literal.TypeArray, Value: v})
	}
	return "", program.NewInternalError("Unknown helper type: %s", value.ValueType())
}

func taggedToString(t literal.Tagged) (string, error) {
	str := t.Code
	if t.Value != nil {
		data, err := literal.Marshal(t.Value)
		if err != nil {
			return "", fmt.Errorf("encode %s value: %w", t.Type, err)
		}
		str = string(data)
	}
	v := EscapeString(str)

	switch t.Type {
	case literal.TypeFunction:
		return "_fcc_function('" + v + "')", nil
	case literal.TypeIdentifier:
		return "_fcc_identifier('" + v + "')", nil
	case literal.TypeObject:
		// the helper needs the object itself, not a quoted string
		return "_fcc_object(" + v + ")", nil
	case literal.TypeTemplateString:
		return "_fcc_templateString('" + v + "')", nil
	case literal.TypeJSXElement:
		return "_fcc_jsxElement('" + v + "')", nil
	case literal.TypeArray:
		return "_fcc_array(" + v + ")", nil
	}
	return "", program.NewInternalError("Unknown helper type: %s", t.Type)
}

// ValueMappingToString renders an enum or boolean value mapping as an
// object literal with quoted keys, one entry per line.
func (g *Generator) ValueMappingToString(mapping *literal.Object, childLayer string) (string, error) {
	var entries []string
	err := mapping.Each(func(key string, value literal.Value) error {
		s, err := g.ValueToString(value, childLayer)
		if err != nil {
			return err
		}
		entries = append(entries, `"`+key+`": `+s)
		return nil
	})
	if err != nil {
		return "", err
	}
	return "{\n" + strings.Join(entries, ",\n") + "}", nil
}

// ModifierToString renders a modifier as the method call applied to an
// instance.
func ModifierToString(m Modifier) (string, error) {
	switch m.Kind {
	case ModifierGetProps:
		return "__getProps__()", nil
	case ModifierRender:
		if m.RenderFn == nil {
			return "", program.NewInternalError("render modifier without a render function")
		}
		return fmt.Sprintf("__renderWithFn__(({%s}) => %s)", strings.Join(m.RenderFn.ReferencedProps, ","), m.RenderFn.Code), nil
	}
	return "", program.NewInternalError("Unknown modifier: %s", m.Kind)
}

// EscapeString escapes newlines and single quotes so s can be embedded in a
// single-quoted string in generated code.
func EscapeString(s string) string {
	s = strings.ReplaceAll(s, "\n", `\n`)
	return strings.ReplaceAll(s, "'", `\'`)
}

// booleanOrder returns mapping with its "true" and "false" entries first.
func booleanOrder(mapping *literal.Object) *literal.Object {
	ordered := literal.NewObject()
	for _, key := range []string{"true", "false"} {
		if v, ok := mapping.Get(key); ok {
			ordered.Set(key, v)
		}
	}
	_ = mapping.Each(func(key string, value literal.Value) error {
		if key != "true" && key != "false" {
			ordered.Set(key, value)
		}
		return nil
	})
	return ordered
}
