package intrinsics

import (
	"strings"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/gnana997/codeconnect/pkg/ast"
	"github.com/gnana997/codeconnect/pkg/literal"
	"github.com/gnana997/codeconnect/pkg/program"
)

// Context is what parsing needs from the file being parsed. Front ends
// provide it; ParseRenderFunction is how `.render()` reaches the JSX
// render function parser without this package depending on it.
type Context interface {
	SourceFile() *program.SourceFile
	ParseRenderFunction(fn *ts.Node) (*RenderFunction, error)
}

// Parse parses an accessor call, including any chained modifiers, into an
// Intrinsic.
//
// For `figma.instance('Icon').getProps()` the tree nests the other way
// round (the outer call is getProps), so the chain is collected from the
// outside in and reversed: the first call is the accessor, the rest are
// modifiers.
func Parse(call *ts.Node, ctx Context) (*Intrinsic, error) {
	file := ctx.SourceFile()

	chain := callChain(call)
	if len(chain) == 0 {
		return nil, program.Errorf(file, call, "Unknown intrinsic: %s", file.Text(call))
	}

	base := chain[0]
	name, _ := accessorName(base, file)
	accessor := APIPrefix + "." + name

	var (
		in  *Intrinsic
		err error
	)
	switch name {
	case "string":
		in, err = parsePropName(KindString, accessor, base, file)
	case "boolean":
		in, err = parseBoolean(accessor, base, ctx)
	case "enum":
		in, err = parseEnum(accessor, base, ctx)
	case "instance":
		in, err = parsePropName(KindInstance, accessor, base, file)
	case "children":
		in, err = parseChildren(accessor, base, file)
	case "nestedProps":
		in, err = parseNestedProps(accessor, base, ctx)
	case "className":
		in, err = parseClassName(accessor, base, ctx)
	case "textContent":
		in, err = parseTextContent(accessor, base, file)
	default:
		return nil, program.Errorf(file, call, "Unknown intrinsic: %s", file.Text(call))
	}
	if err != nil {
		return nil, err
	}

	for _, m := range chain[1:] {
		mod, err := parseModifier(m, ctx)
		if err != nil {
			return nil, err
		}
		in.Modifiers = append(in.Modifiers, mod)
	}
	return in, nil
}

// ParseProps parses a props object: accessor calls become intrinsics and
// everything else is converted as a literal value.
func ParseProps(obj *ts.Node, ctx Context) (*literal.Object, error) {
	return literal.ConvertObject(obj, ctx.SourceFile(), ValueHook(ctx))
}

// ValueHook returns the literal conversion hook used for props objects and
// value mappings.
func ValueHook(ctx Context) literal.Hook {
	var hook literal.Hook
	hook = func(node *ts.Node) (literal.Value, error) {
		if node.Kind() == ast.KindCall && !ast.IsTaggedTemplate(node) {
			return Parse(node, ctx)
		}
		return expressionValue(node, ctx, hook)
	}
	return hook
}

// expressionValue tags the expressions that must be rendered as code.
// It returns nil for plain literals, which the default conversion handles.
func expressionValue(node *ts.Node, ctx Context, hook literal.Hook) (literal.Value, error) {
	file := ctx.SourceFile()
	for node.Kind() == "parenthesized_expression" {
		inner := ast.FirstNamedChild(node)
		if inner == nil {
			break
		}
		node = inner
	}

	switch {
	case ast.IsJSX(node):
		return literal.Tagged{Type: literal.TypeJSXElement, Code: file.Text(node)}, nil
	case ast.IsFunctionLike(node):
		return literal.Tagged{Type: literal.TypeFunction, Code: file.Text(node)}, nil
	case node.Kind() == ast.KindObject:
		obj, err := ParseProps(node, ctx)
		if err != nil {
			return nil, err
		}
		return literal.Tagged{Type: literal.TypeObject, Value: obj}, nil
	case node.Kind() == ast.KindArray:
		arr, err := literal.ConvertArray(node, file, hook)
		if err != nil {
			return nil, err
		}
		return literal.Tagged{Type: literal.TypeArray, Value: arr}, nil
	case node.Kind() == ast.KindTemplateString:
		return literal.Tagged{Type: literal.TypeTemplateString, Code: strings.ReplaceAll(file.Text(node), "`", "")}, nil
	case node.Kind() == ast.KindMember:
		// enum members such as `Size.Large`
		return literal.Tagged{Type: literal.TypeIdentifier, Code: file.Text(node)}, nil
	case node.Kind() == ast.KindIdentifier && !ast.IsUndefined(node, file.Source):
		// any other identifier is taken to be a component reference
		return literal.Tagged{Type: literal.TypeIdentifier, Code: file.Text(node)}, nil
	}
	return nil, nil
}

// callChain returns the calls of a chained expression, accessor first.
func callChain(call *ts.Node) []*ts.Node {
	var chain []*ts.Node
	for current := call; current != nil; {
		switch current.Kind() {
		case ast.KindCall:
			chain = append(chain, current)
			current = current.ChildByFieldName("function")
		case ast.KindMember:
			current = current.ChildByFieldName("object")
		default:
			current = nil
		}
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// accessorName returns X for a `figma.X(...)` call.
func accessorName(call *ts.Node, file *program.SourceFile) (string, bool) {
	callee := ast.Callee(call)
	if callee == nil || callee.Kind() != ast.KindMember {
		return "", false
	}
	if file.Text(callee.ChildByFieldName("object")) != APIPrefix {
		return "", false
	}
	return file.Text(callee.ChildByFieldName("property")), true
}

func argument(call *ts.Node, i int) *ts.Node {
	args := ast.CallArguments(call)
	if i >= len(args) {
		return nil
	}
	return args[i]
}

// requireString returns the value of a string literal argument, or a
// ParserError with msg located at the argument (or the call if absent).
func requireString(arg, call *ts.Node, file *program.SourceFile, msg string) (string, error) {
	if !ast.IsStringLiteral(arg) {
		return "", program.NewParserError(msg, file, orNode(arg, call))
	}
	return ast.StringValue(arg, file.Source), nil
}

func requireObject(arg, call *ts.Node, file *program.SourceFile, msg string) (*ts.Node, error) {
	obj := ast.Unwrap(arg)
	if obj == nil || obj.Kind() != ast.KindObject {
		return nil, program.NewParserError(msg, file, orNode(arg, call))
	}
	return obj, nil
}

func orNode(n, fallback *ts.Node) *ts.Node {
	if n != nil {
		return n
	}
	return fallback
}

func propNameMessage(accessor string) string {
	return accessor + " takes at least one argument, which is the Figma property name"
}

func parsePropName(kind Kind, accessor string, call *ts.Node, file *program.SourceFile) (*Intrinsic, error) {
	name, err := requireString(argument(call, 0), call, file, propNameMessage(accessor))
	if err != nil {
		return nil, err
	}
	return &Intrinsic{Kind: kind, FigmaPropName: name}, nil
}

func parseBoolean(accessor string, call *ts.Node, ctx Context) (*Intrinsic, error) {
	file := ctx.SourceFile()
	name, err := requireString(argument(call, 0), call, file, propNameMessage(accessor))
	if err != nil {
		return nil, err
	}

	in := &Intrinsic{Kind: KindBoolean, FigmaPropName: name}
	if mappingArg := argument(call, 1); mappingArg != nil {
		obj, err := requireObject(mappingArg, call, file,
			accessor+" second argument should be an object literal, that sets values for 'true' and 'false'")
		if err != nil {
			return nil, err
		}
		if in.ValueMapping, err = ParseProps(obj, ctx); err != nil {
			return nil, err
		}
	}
	return in, nil
}

func parseEnum(accessor string, call *ts.Node, ctx Context) (*Intrinsic, error) {
	file := ctx.SourceFile()
	name, err := requireString(argument(call, 0), call, file, propNameMessage(accessor))
	if err != nil {
		return nil, err
	}
	obj, err := requireObject(argument(call, 1), call, file,
		accessor+" second argument should be an object literal, that maps Figma prop values to code")
	if err != nil {
		return nil, err
	}
	mapping, err := ParseProps(obj, ctx)
	if err != nil {
		return nil, err
	}
	return &Intrinsic{Kind: KindEnum, FigmaPropName: name, ValueMapping: mapping}, nil
}

func parseChildren(accessor string, call *ts.Node, file *program.SourceFile) (*Intrinsic, error) {
	arg := argument(call, 0)
	in := &Intrinsic{Kind: KindChildren}

	switch {
	case ast.IsStringLiteral(arg):
		in.Layers = []string{ast.StringValue(arg, file.Source)}
	case arg != nil && arg.Kind() == ast.KindArray && len(ast.NamedChildren(arg)) > 0:
		for _, el := range ast.NamedChildren(arg) {
			if !ast.IsStringLiteral(el) {
				return nil, program.Errorf(file, el, "Expected a string literal, got %s", el.Kind())
			}
			layer := ast.StringValue(el, file.Source)
			if strings.Contains(layer, "*") {
				return nil, program.Errorf(file, arg, "Wildcards can not be used with an array of strings. Use a single string literal instead.")
			}
			in.Layers = append(in.Layers, layer)
		}
	default:
		return nil, program.Errorf(file, orNode(arg, call), "Invalid argument to %s, should be a string literal or an array of strings", accessor)
	}
	return in, nil
}

func parseNestedProps(accessor string, call *ts.Node, ctx Context) (*Intrinsic, error) {
	file := ctx.SourceFile()
	layer, err := requireString(argument(call, 0), call, file,
		"Invalid argument to "+accessor+", `layerName` should be a string literal")
	if err != nil {
		return nil, err
	}
	obj, err := requireObject(argument(call, 1), call, file,
		"Invalid argument to "+accessor+", `props` should be an object literal")
	if err != nil {
		return nil, err
	}

	nested := APIPrefix + ".nestedProps"
	for _, member := range ast.NamedChildren(obj) {
		if member.Kind() != ast.KindPair {
			continue
		}
		value := member.ChildByFieldName("value")
		if value != nil && value.Kind() == ast.KindCall && strings.HasPrefix(file.Text(value), nested) {
			return nil, program.Errorf(file, member,
				"nestedProps can not be nested inside another nestedProps call, instead, pass the deeply nested layer name at the top level")
		}
	}

	props, err := ParseProps(obj, ctx)
	if err != nil {
		return nil, err
	}
	return &Intrinsic{Kind: KindNestedProps, Layer: layer, Props: props}, nil
}

func parseClassName(accessor string, call *ts.Node, ctx Context) (*Intrinsic, error) {
	file := ctx.SourceFile()
	arg := ast.Unwrap(argument(call, 0))
	if arg == nil || arg.Kind() != ast.KindArray {
		return nil, program.NewParserError(accessor+" takes an array of strings", file, orNode(arg, call))
	}

	in := &Intrinsic{Kind: KindClassName}
	for _, el := range ast.NamedChildren(arg) {
		switch {
		case ast.IsStringLiteral(el):
			in.ClassName = append(in.ClassName, literal.String(ast.StringValue(el, file.Source)))
		case el.Kind() == ast.KindCall:
			part, err := Parse(el, ctx)
			if err != nil {
				return nil, err
			}
			in.ClassName = append(in.ClassName, part)
		}
	}
	return in, nil
}

func parseTextContent(accessor string, call *ts.Node, file *program.SourceFile) (*Intrinsic, error) {
	layer, err := requireString(argument(call, 0), call, file,
		accessor+" takes a single argument which is the Figma layer name")
	if err != nil {
		return nil, err
	}
	return &Intrinsic{Kind: KindTextContent, Layer: layer}, nil
}

func parseModifier(call *ts.Node, ctx Context) (Modifier, error) {
	file := ctx.SourceFile()

	name := ""
	if callee := ast.Callee(call); callee != nil && callee.Kind() == ast.KindMember {
		name = file.Text(callee.ChildByFieldName("property"))
	}

	switch name {
	case "getProps":
		return Modifier{Kind: ModifierGetProps}, nil
	case "render":
		fn := argument(call, 0)
		if !isRenderFunction(fn) {
			return Modifier{}, program.Errorf(file, call,
				"first argument to render() must be a render function that returns a single JSX element")
		}
		renderFn, err := ctx.ParseRenderFunction(fn)
		if err != nil {
			return Modifier{}, err
		}
		return Modifier{Kind: ModifierRender, RenderFn: renderFn}, nil
	}
	return Modifier{}, program.Errorf(file, call, "Unknown modifier: %s", file.Text(call))
}

func isRenderFunction(fn *ts.Node) bool {
	if fn == nil {
		return false
	}
	if !ast.IsFunctionLike(fn) && fn.Kind() != ast.KindFunctionDecl {
		return false
	}
	return ast.DFS(fn, ast.IsJSX) != nil
}
