package connect

import (
	"fmt"
	"strings"

	ts "github.com/tree-sitter/go-tree-sitter"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/gnana997/codeconnect/pkg/ast"
	"github.com/gnana997/codeconnect/pkg/literal"
)

// Predicate tests the shape of a config property or call argument.
type Predicate func(*ts.Node) bool

// IsKind matches nodes of any of the given kinds.
func IsKind(kinds ...string) Predicate {
	return func(n *ts.Node) bool {
		if n == nil {
			return false
		}
		for _, k := range kinds {
			if n.Kind() == k {
				return true
			}
		}
		return false
	}
}

// Common predicates.
var (
	IsString       = IsKind(ast.KindString)
	IsObject       = IsKind(ast.KindObject)
	IsArray        = IsKind(ast.KindArray)
	IsArrow        = IsKind(ast.KindArrowFunction)
	IsFunction     = IsKind(ast.KindArrowFunction, ast.KindFunctionExpr, "function")
	IsComponentRef = IsKind(ast.KindIdentifier, ast.KindMember, ast.KindString)
	IsIdentOrStr   = IsKind(ast.KindIdentifier, ast.KindString)
)

// PropertyOfType returns the value of the property name of the object
// literal obj, checked against pred.
//
// An identifier value is followed to the initializer of the same-file
// variable it names, and so is a shorthand property. `as` and `satisfies`
// wrappers are removed. A missing property returns nil unless required.
// msg replaces the default shape error messages when not empty.
func PropertyOfType(ctx *ParserContext, obj *ts.Node, name string, pred Predicate, required bool, msg string) (*ts.Node, error) {
	var prop *ts.Node
	for _, p := range ast.NamedChildren(obj) {
		if propertyName(p, ctx.File.Source) == name {
			prop = p
			break
		}
	}
	if prop == nil {
		if !required {
			return nil, nil
		}
		return nil, ctx.Errorf(obj, "%s", orDefault(msg, fmt.Sprintf("Expected property '%s' to be present", name)))
	}

	var init *ts.Node
	switch prop.Kind() {
	case ast.KindPair:
		value := prop.ChildByFieldName("value")
		if value != nil && value.Kind() == ast.KindIdentifier {
			init = ctx.File.FindVariableInitializer(ctx.Text(value))
		} else {
			init = value
		}
	case ast.KindShorthand:
		init = ctx.File.FindVariableInitializer(ctx.Text(prop))
		if init == nil {
			return nil, ctx.Errorf(prop, "Expected shorthand property to be declared in the same file")
		}
	}
	if init == nil {
		return nil, ctx.Errorf(prop, "Expected property %s to be a property assignment", name)
	}

	init = ast.Unwrap(init)
	if !pred(init) {
		return nil, ctx.Errorf(init, "%s", orDefault(msg, fmt.Sprintf("Unexpected shape of property %s, got node type: %s", name, init.Kind())))
	}
	return init, nil
}

func propertyName(p *ts.Node, src []byte) string {
	switch p.Kind() {
	case ast.KindPair:
		name, _ := ast.PropertyKey(p.ChildByFieldName("key"), src)
		return name
	case ast.KindShorthand:
		return ast.Text(p, src)
	case "method_definition":
		name, _ := ast.PropertyKey(p.ChildByFieldName("name"), src)
		return name
	}
	return ""
}

// FunctionArgument returns argument index of call, checked against pred.
// A missing argument returns nil unless required. msg replaces the default
// error messages when not empty.
func FunctionArgument(ctx *ParserContext, call *ts.Node, index int, pred Predicate, required bool, msg string) (*ts.Node, error) {
	args := ast.CallArguments(call)
	if len(args) <= index {
		if !required {
			return nil, nil
		}
		return nil, ctx.Errorf(call, "%s", orDefault(msg, fmt.Sprintf("Expected function to have at least %d arguments", index+1)))
	}
	arg := args[index]
	if !pred(arg) {
		return nil, ctx.Errorf(arg, "%s", orDefault(msg, fmt.Sprintf("Unexpected shape of argument %d", index)))
	}
	return arg, nil
}

// StringArgument follows an identifier argument to the string literal it
// is initialized with. Anything else than a string literal is an error
// with msg.
func StringArgument(ctx *ParserContext, arg *ts.Node, msg string) (string, error) {
	result := arg
	if arg != nil && arg.Kind() == ast.KindIdentifier {
		if init := ast.Unwrap(ctx.File.FindVariableInitializer(ctx.Text(arg))); ast.IsStringLiteral(init) {
			result = init
		}
	}
	if !ast.IsStringLiteral(result) {
		return "", ctx.Errorf(result, "%s", msg)
	}
	return ast.StringValue(result, ctx.File.Source), nil
}

// ParseLinks parses the `links` array: `[{ name: string, url: string }]`.
func ParseLinks(ctx *ParserContext, arr *ts.Node) ([]Link, error) {
	var links []Link
	for _, el := range ast.NamedChildren(arr) {
		el = ast.Unwrap(el)
		if el.Kind() != ast.KindObject {
			return nil, ctx.Errorf(el, "'links' must be an array literal with objects of the format { name: string, url: string }")
		}
		name, err := PropertyOfType(ctx, el, "name", IsString, true, "The 'name' property must be a string literal")
		if err != nil {
			return nil, err
		}
		url, err := PropertyOfType(ctx, el, "url", IsString, true, "The 'url' property must be a string literal")
		if err != nil {
			return nil, err
		}
		links = append(links, Link{
			Name: ast.StringValue(name, ctx.File.Source),
			URL:  ast.StringValue(url, ctx.File.Source),
		})
	}
	return links, nil
}

// ParseImports parses the `imports` array of import statements.
func ParseImports(ctx *ParserContext, arr *ts.Node) ([]string, error) {
	imports := []string{}
	for _, el := range ast.NamedChildren(arr) {
		if !ast.IsStringLiteral(el) {
			return nil, ctx.Errorf(el, "'imports' must be an array literal with strings")
		}
		imports = append(imports, ast.StringValue(el, ctx.File.Source))
	}
	return imports, nil
}

// ParseVariant parses the `variant` object. Values must be string, number
// or boolean literals.
func ParseVariant(ctx *ParserContext, obj *ts.Node) (*literal.Object, error) {
	return literal.ConvertObject(obj, ctx.File, func(node *ts.Node) (literal.Value, error) {
		switch ast.Unwrap(node).Kind() {
		case ast.KindString, ast.KindNumber, "true", "false":
			return nil, nil
		}
		return nil, ctx.Errorf(node, "Invalid value for variant, got: %s", ctx.Text(node))
	})
}

// ApplyURLSubstitutions replaces the first occurrence of each key of subs
// in url with its value, in order.
func ApplyURLSubstitutions(url string, subs *orderedmap.OrderedMap[string, string]) string {
	if subs == nil {
		return url
	}
	for pair := subs.Oldest(); pair != nil; pair = pair.Next() {
		url = strings.Replace(url, pair.Key, pair.Value, 1)
	}
	return url
}

func orDefault(msg, def string) string {
	if msg != "" {
		return msg
	}
	return def
}
