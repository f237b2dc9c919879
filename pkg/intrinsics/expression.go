package intrinsics

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gnana997/codeconnect/pkg/literal"
)

// Expression renders in as the figma.* accessor call that parses back into
// it, e.g. `figma.enum("Size", {...})`. Value mappings span several lines
// with entries indented by two spaces. Only the kinds a generated props
// mapping can hold are supported.
func Expression(in *Intrinsic) (string, error) {
	name := strconv.Quote(in.FigmaPropName)
	switch in.Kind {
	case KindString:
		return APIPrefix + ".string(" + name + ")", nil
	case KindInstance:
		return APIPrefix + ".instance(" + name + ")", nil
	case KindBoolean, KindEnum:
		call := APIPrefix + "." + in.Kind.String() + "(" + name
		if in.ValueMapping != nil && in.ValueMapping.Len() > 0 {
			mapping, err := mappingExpression(in.ValueMapping)
			if err != nil {
				return "", err
			}
			call += ", " + mapping
		}
		return call + ")", nil
	case KindChildren:
		if len(in.Layers) == 1 {
			return APIPrefix + ".children(" + strconv.Quote(in.Layers[0]) + ")", nil
		}
		quoted := make([]string, len(in.Layers))
		for i, l := range in.Layers {
			quoted[i] = strconv.Quote(l)
		}
		return APIPrefix + ".children([" + strings.Join(quoted, ", ") + "])", nil
	case KindTextContent:
		return APIPrefix + ".textContent(" + strconv.Quote(in.Layer) + ")", nil
	}
	return "", fmt.Errorf("kind %s not supported for prop mapping", in.Kind)
}

func mappingExpression(mapping *literal.Object) (string, error) {
	var entries []string
	err := mapping.Each(func(key string, value literal.Value) error {
		s, err := valueExpression(value)
		if err != nil {
			return err
		}
		entries = append(entries, "  "+strconv.Quote(key)+": "+strings.ReplaceAll(s, "\n", "\n  "))
		return nil
	})
	if err != nil {
		return "", err
	}
	return "{\n" + strings.Join(entries, ",\n") + ",\n}", nil
}

func valueExpression(value literal.Value) (string, error) {
	switch v := value.(type) {
	case nil, literal.Undefined:
		return "undefined", nil
	case literal.Null:
		return "null", nil
	case literal.Bool:
		return strconv.FormatBool(bool(v)), nil
	case literal.Number:
		return literal.FormatNumber(v), nil
	case literal.String:
		return strconv.Quote(string(v)), nil
	case *Intrinsic:
		return Expression(v)
	}
	return "", fmt.Errorf("cannot write %s value in a prop mapping", value.ValueType())
}
