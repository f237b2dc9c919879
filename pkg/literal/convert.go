package literal

import (
	"strconv"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/gnana997/codeconnect/pkg/ast"
	"github.com/gnana997/codeconnect/pkg/program"
)

// Hook converts a value node before the default rules run. Returning a nil
// Value (and no error) falls through to the default conversion.
type Hook func(node *ts.Node) (Value, error)

// memberNames are the names object members are reported under in errors.
var memberNames = map[string]string{
	ast.KindShorthand:        "ShorthandPropertyAssignment",
	"method_definition":      "MethodDeclaration",
	"computed_property_name": "ComputedPropertyName",
}

// ConvertObject converts an object literal to an Object.
//
// Spread entries (`...base`) must name a variable declared in the same file
// with an object literal initialiser; its entries are spliced in at the
// position of the spread, so the result follows source declaration order.
// A spread that leads back to an object it is part of is an error.
func ConvertObject(node *ts.Node, file *program.SourceFile, hook Hook) (*Object, error) {
	return convertObject(node, file, hook, nil)
}

// queued is an object member waiting to be converted. spreads holds the
// initialisers spliced in to reach it.
type queued struct {
	node    *ts.Node
	spreads []uintptr
}

func queueMembers(nodes []*ts.Node, spreads []uintptr) []queued {
	out := make([]queued, len(nodes))
	for i, n := range nodes {
		out[i] = queued{node: n, spreads: spreads}
	}
	return out
}

func convertObject(node *ts.Node, file *program.SourceFile, hook Hook, spreads []uintptr) (*Object, error) {
	node = ast.Unwrap(node)
	if node == nil || node.Kind() != ast.KindObject {
		return nil, program.Errorf(file, node, "Expected an object literal, got %s", kindName(node))
	}

	obj := NewObject()
	queue := queueMembers(ast.NamedChildren(node), spreads)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		member := next.node

		if member.Kind() == ast.KindSpread {
			init, err := spreadObject(member, file)
			if err != nil {
				return nil, err
			}
			for _, id := range next.spreads {
				if id == init.Id() {
					return nil, program.Errorf(file, member, "Spread object %s refers back to itself", file.Text(ast.FirstNamedChild(member)))
				}
			}
			chain := append(next.spreads[:len(next.spreads):len(next.spreads)], init.Id())
			queue = append(queueMembers(ast.NamedChildren(init), chain), queue...)
			continue
		}

		if member.Kind() != ast.KindPair {
			return nil, program.Errorf(file, member, "Expected a property assignment, got %s", kindName(member))
		}

		keyNode := member.ChildByFieldName("key")
		if keyNode == nil || (keyNode.Kind() != "property_identifier" && keyNode.Kind() != ast.KindString) {
			return nil, program.Errorf(file, member, "Expected property key to be an identifier or String Literal")
		}
		key, _ := ast.PropertyKey(keyNode, file.Source)

		value, err := convert(member.ChildByFieldName("value"), file, hook, next.spreads)
		if err != nil {
			return nil, err
		}
		obj.Set(key, value)
	}
	return obj, nil
}

// ConvertArray converts an array literal element by element, with the same
// rules as ConvertObject.
func ConvertArray(node *ts.Node, file *program.SourceFile, hook Hook) (Array, error) {
	node = ast.Unwrap(node)
	if node == nil || node.Kind() != ast.KindArray {
		return nil, program.Errorf(file, node, "Expected an array literal, got %s", kindName(node))
	}

	elements := ast.NamedChildren(node)
	out := make(Array, 0, len(elements))
	for _, el := range elements {
		value, err := convert(el, file, hook, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	return out, nil
}

// ConvertValue converts a single expression: hook first, then the default
// rules.
func ConvertValue(node *ts.Node, file *program.SourceFile, hook Hook) (Value, error) {
	return convert(node, file, hook, nil)
}

func convert(node *ts.Node, file *program.SourceFile, hook Hook, spreads []uintptr) (Value, error) {
	if node == nil {
		return Undefined{}, nil
	}
	if hook != nil {
		v, err := hook(node)
		if err != nil {
			return nil, err
		}
		if v != nil {
			return v, nil
		}
	}
	return defaultValue(node, file, hook, spreads)
}

func defaultValue(node *ts.Node, file *program.SourceFile, hook Hook, spreads []uintptr) (Value, error) {
	src := file.Source

	switch node.Kind() {
	case ast.KindObject:
		return convertObject(node, file, hook, spreads)
	case ast.KindString:
		return String(ast.StringValue(node, src)), nil
	case "true":
		return Bool(true), nil
	case "false":
		return Bool(false), nil
	case "null":
		return Null{}, nil
	case ast.KindNumber:
		if n, ok := parseNumber(ast.Text(node, src)); ok {
			return Number(n), nil
		}
		return Opaque(ast.Text(node, src)), nil
	case ast.KindArrowFunction, ast.KindFunctionExpr, "function":
		return Tagged{Type: TypeFunction, Code: ast.Text(node, src)}, nil
	}

	if ast.IsUndefined(node, src) {
		return Undefined{}, nil
	}
	if _, tmpl := ast.TaggedTemplate(node); tmpl != nil {
		return String(ast.TemplateText(tmpl, src)), nil
	}
	return Opaque(ast.Text(node, src)), nil
}

// spreadObject returns the object literal a spread entry refers to.
func spreadObject(spread *ts.Node, file *program.SourceFile) (*ts.Node, error) {
	name := file.Text(ast.FirstNamedChild(spread))
	init := ast.Unwrap(file.FindVariableInitializer(name))
	if init == nil || init.Kind() != ast.KindObject {
		return nil, program.Errorf(file, spread, "Expected spread object to be an object literal")
	}
	return init, nil
}

// parseNumber accepts decimal, hex, octal and binary literals, with or
// without numeric separators.
func parseNumber(text string) (float64, bool) {
	clean := make([]byte, 0, len(text))
	for i := 0; i < len(text); i++ {
		if text[i] != '_' {
			clean = append(clean, text[i])
		}
	}
	s := string(clean)
	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			v, err := strconv.ParseUint(s[2:], base, 64)
			return float64(v), err == nil
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}

func kindName(node *ts.Node) string {
	if node == nil {
		return "nothing"
	}
	if name, ok := memberNames[node.Kind()]; ok {
		return name
	}
	return node.Kind()
}
