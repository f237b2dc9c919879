package react

import (
	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/gnana997/codeconnect/pkg/ast"
	"github.com/gnana997/codeconnect/pkg/connect"
	"github.com/gnana997/codeconnect/pkg/intrinsics"
	"github.com/gnana997/codeconnect/pkg/literal"
	"github.com/gnana997/codeconnect/pkg/program"
	"github.com/gnana997/codeconnect/pkg/propref"
	"github.com/gnana997/codeconnect/pkg/template"
)

// ExampleFunctionName names the function a multi-statement example body is
// wrapped in.
const ExampleFunctionName = "Example"

// RenderedExample is a parsed example function: the figma.tsx call that
// renders it and the components it uses.
type RenderedExample struct {
	// Code is the figma.tsx`...` call.
	Code string
	// Imports are the import statements of the JSX tags used.
	Imports []program.ImportStatement
	// ReferencedProps are the props the example reads, in first-use order.
	ReferencedProps []string
	// Nestable is true when the example is a single JSX element, which can
	// be shown inline inside a parent's example.
	Nestable bool
}

// Example is a parsed `example` property with its full template.
type Example struct {
	Template string
	Imports  []program.ImportStatement
	Nestable bool
}

// FindJSXElement returns the first JSX element, self-closing element or
// fragment in node, depth first.
func FindJSXElement(node *ts.Node) *ts.Node {
	return ast.DFS(node, ast.IsJSX)
}

func findBlock(node *ts.Node) *ts.Node {
	return ast.DFS(node, func(n *ts.Node) bool { return n.Kind() == ast.KindStatementBlock })
}

func statementCount(block *ts.Node) int {
	count := 0
	for _, s := range ast.NamedChildren(block) {
		if s.Kind() != ast.KindComment {
			count++
		}
	}
	return count
}

// ParseRenderFunctionExpression parses an example or render function whose
// body is JSX.
//
// A body that is a single JSX element (directly, or as the only statement
// of a block) is rendered as that element and is nestable. Any other block
// is wrapped in `function Example() { ... }`. References to the props
// parameter are replaced with the runtime helper calls that render the
// mapped Figma values; when mappings is not nil every referenced prop must
// be one of its keys.
func ParseRenderFunctionExpression(ctx *connect.ParserContext, fn *ts.Node, mappings *literal.Object) (*RenderedExample, error) {
	src := ctx.File.Source

	params := ast.FunctionParameters(fn)
	if len(params) > 1 {
		return nil, ctx.Errorf(fn, "Expected a single props parameter for the render function, got %d parameters", len(params))
	}
	var param *ts.Node
	if len(params) == 1 {
		param = params[0]
	}

	tracker := propref.NewTracker(ctx.File, mappings)
	rw := &propref.Rewriter{Params: propref.ParamsOf(param, src), Tracker: tracker, JSX: true}

	var (
		code     string
		nestable bool
		err      error
	)
	block := findBlock(fn)
	jsx := FindJSXElement(fn)
	switch {
	case jsx != nil && (block == nil || statementCount(block) <= 1):
		code, err = rw.Rewrite(jsx)
		nestable = true
	case block != nil:
		var body string
		body, err = rw.Rewrite(block)
		code = "function " + ExampleFunctionName + "() " + body
	default:
		return nil, ctx.Errorf(fn, "Expected a single JSX element or a block statement in the render function, got %s", ctx.Text(fn))
	}
	if err != nil {
		return nil, err
	}

	code = template.EscapeTemplateString(template.ReplaceReactPlaceholders(code))

	var tags []string
	ast.DFS(fn, func(n *ts.Node) bool {
		if n.Kind() == ast.KindJSXElement || n.Kind() == ast.KindJSXSelfClosing {
			if name := ast.JSXTagName(n, src); name != "" {
				tags = append(tags, name)
			}
		}
		return false
	})

	return &RenderedExample{
		Code:            template.TagTSX.Wrap(code),
		Imports:         connect.ImportsFor(ctx, tags),
		ReferencedProps: tracker.Referenced(),
		Nestable:        nestable,
	}, nil
}

// RenderParser parses the function passed to a `.render()` modifier.
func RenderParser(ctx *connect.ParserContext, fn *ts.Node) (*intrinsics.RenderFunction, error) {
	ex, err := ParseRenderFunctionExpression(ctx, fn, nil)
	if err != nil {
		return nil, err
	}
	rf := &intrinsics.RenderFunction{
		Code:            ex.Code,
		Imports:         ex.Imports,
		ReferencedProps: ex.ReferencedProps,
	}
	if rf.Imports == nil {
		rf.Imports = []program.ImportStatement{}
	}
	if rf.ReferencedProps == nil {
		rf.ReferencedProps = []string{}
	}
	return rf, nil
}

// BuildTemplate assembles the template of a React example: the runtime
// helpers, a variable for every mapped prop and the default export of
// example.
func BuildTemplate(ctx *connect.ParserContext, example string, mappings *literal.Object) (string, error) {
	header, err := template.ReferencedPropsHeader(ctx.Generator(), mappings)
	if err != nil {
		if pe, ok := program.AsParserError(err); ok {
			return "", pe
		}
		return "", ctx.Errorf(ctx.File.Root(), "%s", err.Error())
	}
	return template.Assemble(template.Assembly{
		Helpers:  template.ReactHelpers(),
		Header:   header,
		Example:  example,
		Metadata: mappings != nil && mappings.Len() > 0,
	}), nil
}

func parseJSXExample(ctx *connect.ParserContext, fn *ts.Node, mappings *literal.Object) (*Example, error) {
	rendered, err := ParseRenderFunctionExpression(ctx, fn, mappings)
	if err != nil {
		return nil, err
	}
	tmpl, err := BuildTemplate(ctx, rendered.Code, mappings)
	if err != nil {
		return nil, err
	}
	return &Example{Template: tmpl, Imports: rendered.Imports, Nestable: rendered.Nestable}, nil
}

// parseValueExample parses an example that returns a value instead of JSX:
// a string literal, rendered as is, or a component reference.
func parseValueExample(ctx *connect.ParserContext, fn *ts.Node, mappings *literal.Object) (*Example, error) {
	body := ast.FunctionBody(fn)
	if body == nil {
		return nil, ctx.Errorf(fn, "Expected a function body")
	}

	ex := &Example{Imports: []program.ImportStatement{}, Nestable: true}
	var value string
	switch body.Kind() {
	case ast.KindString:
		value = template.EscapeTemplateString(ctx.Text(body))
	case ast.KindIdentifier:
		component := ctx.Text(body)
		ref := `_fcc_reactComponent("` + component + `")`
		value = ref + ", _fcc_renderPropValue(" + ref + ")"
		ex.Imports = connect.ImportsFor(ctx, []string{component})
	default:
		return nil, ctx.Errorf(body, "Expected the example function to return JSX, a string literal or a component reference, got %s", ctx.Text(body))
	}

	tmpl, err := BuildTemplate(ctx, template.TagValue.Wrap(value), mappings)
	if err != nil {
		return nil, err
	}
	ex.Template = tmpl
	return ex, nil
}
