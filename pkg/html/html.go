// Package html is the HTML front end, for Web Components and the HTML-based
// frameworks (Lit, Angular, Vue). Examples are `html` tagged templates:
//
//	figma.connect('https://www.figma.com/file/123?node-id=1-1', {
//	  props: { label: figma.string('Label') },
//	  example: (props) => html`<my-button label=${props.label}></my-button>`,
//	})
//
// Substitutions must reference props. Those in attribute position render
// with _fcc_renderHtmlAttribute so the attribute is left out when the prop
// has no value; all others render with _fcc_renderHtmlValue.
package html

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/gnana997/codeconnect/pkg/ast"
	"github.com/gnana997/codeconnect/pkg/connect"
	"github.com/gnana997/codeconnect/pkg/intrinsics"
	"github.com/gnana997/codeconnect/pkg/literal"
	"github.com/gnana997/codeconnect/pkg/program"
	"github.com/gnana997/codeconnect/pkg/propref"
	"github.com/gnana997/codeconnect/pkg/template"
)

// Language is the language of HTML documents.
const Language = "html"

// TemplateTag is the tag of example templates.
const TemplateTag = "html"

// Extensions are the file extensions the HTML front end parses.
var Extensions = []string{"ts", "js"}

const call = intrinsics.ConnectCall

var (
	msgURLArg = fmt.Sprintf("`%s` must be called with a Figma Component URL as the first argument. Example usage:\n"+
		"`%s('https://www.figma.com/file/123?node-id=1-1', {\n"+
		"  example: () => html`<button />`\n"+
		"})`", call, call)
	msgConfigArg = fmt.Sprintf("The second argument to %s() must be an object literal. Example usage:\n"+
		"`%s('https://www.figma.com/file/123?node-id=1-1', {\n"+
		"  example: () => html`<button />`\n"+
		"})`", call, call)
	msgProps = fmt.Sprintf("The 'props' property must be an object literal. Example usage:\n"+
		"`%s('https://www.figma.com/file/123?node-id=1-1', {\n"+
		"  props: {\n"+
		"    disabled: figma.boolean('Disabled'),\n"+
		"    text: figma.string('TextContent'),\n"+
		"  },\n"+
		"  example: (props) => html`<my-button disabled=${props.disabled} label=${props.text} />`\n"+
		"})`", call)
	msgExample = fmt.Sprintf("The 'example' property must be an arrow function which returns a html tagged template string. Example usage:\n"+
		"`%s('https://www.figma.com/file/123?node-id=1-1', {\n"+
		"  example: (props) => html`<my-button />`\n"+
		"})`", call)
	msgVariant = fmt.Sprintf("The 'variant' property must be an object literal. Example usage:\n"+
		"`%s('https://www.figma.com/file/123?node-id=1-1', {\n"+
		"  variant: {\n"+
		"    \"Has Icon\": true\n"+
		"  },\n"+
		"  example: (props) => html`<my-button />`\n"+
		"})`", call)
	msgLinks = fmt.Sprintf("The 'links' property must be an array literal. Example usage:\n"+
		"`%s('https://www.figma.com/file/123?node-id=1-1', {\n"+
		"  links: [\n"+
		"    { name: 'Storybook', url: 'https://storybook.com' }\n"+
		"  ],\n"+
		"  example: (props) => html`<my-button />`\n"+
		"})`", call)
	msgImports = fmt.Sprintf("The 'imports' property must be an array literal. Example usage:\n"+
		"`%s('https://www.figma.com/file/123?node-id=1-1', {\n"+
		"  imports: ['import { Button } from \"./Button\"']\n"+
		"  example: (props) => html`<my-button />`,\n"+
		"})`", call)
)

// NewParserContext creates a parser context for an HTML file.
func NewParserContext(prog *program.Program, file *program.SourceFile, opts ...connect.Option) *connect.ParserContext {
	return connect.NewParserContext(prog, file, opts...)
}

// ParseFile parses every figma.connect call of the context's file.
func ParseFile(ctx *connect.ParserContext) ([]*connect.Document, error) {
	return connect.ParseFile(ctx, ParseDoc)
}

// ParseDoc parses one `figma.connect(url, config)` call into a document.
func ParseDoc(ctx *connect.ParserContext, node *ts.Node) (*connect.Document, error) {
	urlArg, err := connect.FunctionArgument(ctx, node, 0, connect.IsString, true, msgURLArg)
	if err != nil {
		return nil, err
	}
	config, err := connect.FunctionArgument(ctx, node, 1, connect.IsObject, true, msgConfigArg)
	if err != nil {
		return nil, err
	}

	propsArg, err := connect.PropertyOfType(ctx, config, "props", connect.IsObject, false, msgProps)
	if err != nil {
		return nil, err
	}
	exampleArg, err := connect.PropertyOfType(ctx, config, "example", connect.IsArrow, true, msgExample)
	if err != nil {
		return nil, err
	}
	variantArg, err := connect.PropertyOfType(ctx, config, "variant", connect.IsObject, false, msgVariant)
	if err != nil {
		return nil, err
	}
	linksArg, err := connect.PropertyOfType(ctx, config, "links", connect.IsArray, false, msgLinks)
	if err != nil {
		return nil, err
	}
	importsArg, err := connect.PropertyOfType(ctx, config, "imports", connect.IsArray, false, msgImports)
	if err != nil {
		return nil, err
	}

	doc := &connect.Document{
		FigmaNode:      connect.ApplyURLSubstitutions(ast.StringValue(urlArg, ctx.File.Source), ctx.Config.DocumentURLSubstitutions),
		SourceLocation: connect.SourceLocation{Line: connect.UnknownLine},
		TemplateData:   connect.TemplateData{Nestable: true},
		Language:       Language,
		Label:          ctx.LabelOr(connect.LabelHTML),
		Metadata:       connect.Metadata{CLIVersion: connect.Version},
	}

	if propsArg != nil {
		if doc.TemplateData.Props, err = intrinsics.ParseProps(propsArg, ctx); err != nil {
			return nil, err
		}
	}

	example, err := ParseExampleTemplate(ctx, exampleArg, doc.TemplateData.Props)
	if err != nil {
		return nil, err
	}
	doc.Template = example.Template
	doc.TemplateData.Nestable = example.Nestable

	if variantArg != nil {
		if doc.Variant, err = connect.ParseVariant(ctx, variantArg); err != nil {
			return nil, err
		}
	}
	if linksArg != nil {
		if doc.Links, err = connect.ParseLinks(ctx, linksArg); err != nil {
			return nil, err
		}
	}
	if importsArg != nil {
		if doc.TemplateData.Imports, err = connect.ParseImports(ctx, importsArg); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// Example is a parsed example function.
type Example struct {
	Template string
	Nestable bool
}

// ParseExampleTemplate parses an example arrow function whose body is a
// string literal, rendered as is, or an `html` tagged template, directly or
// as the only return of a block.
func ParseExampleTemplate(ctx *connect.ParserContext, fn *ts.Node, mappings *literal.Object) (*Example, error) {
	params := ast.FunctionParameters(fn)
	if len(params) > 1 {
		return nil, ctx.Errorf(fn, "Expected a single props parameter for the render function, got %d parameters", len(params))
	}
	var param *ts.Node
	if len(params) == 1 {
		param = params[0]
	}

	body := ast.FunctionBody(fn)
	if body == nil {
		return nil, ctx.Errorf(fn, "Expected a body for the render function")
	}

	header, err := template.ReferencedPropsHeader(ctx.Generator(), mappings)
	if err != nil {
		if pe, ok := program.AsParserError(err); ok {
			return nil, pe
		}
		return nil, ctx.Errorf(fn, "%s", err.Error())
	}
	assemble := func(example string) string {
		return template.Assemble(template.Assembly{
			Helpers: template.HTMLHelpers(),
			Header:  header,
			Example: example,
		})
	}

	if ast.IsStringLiteral(body) {
		code := template.EscapeTemplateString(ctx.Text(body))
		return &Example{Template: assemble(template.TagValue.Wrap(code)), Nestable: true}, nil
	}

	tagged := htmlTaggedTemplate(body, ctx.File.Source)
	if tagged == nil {
		return nil, ctx.Errorf(body, "Expected only a tagged template literal as the body of the render function")
	}
	_, tmpl := ast.TaggedTemplate(tagged)

	tracker := propref.NewTracker(ctx.File, mappings)
	bindings := propref.ParamsOf(param, ctx.File.Source)

	chunks, spans := templateParts(tmpl, ctx.File.Source)
	props := make([]string, len(spans))
	for i, span := range spans {
		if props[i], err = spanPropName(ctx, span, bindings, tracker); err != nil {
			return nil, err
		}
	}

	info, err := analyzeDOM(placeholderHTML(chunks))
	if err != nil {
		if errors.Is(err, errDuplicateAttribute) {
			return nil, ctx.Errorf(tmpl, "Duplicate attribute name in example HTML")
		}
		return nil, ctx.Errorf(tmpl, "Error parsing example HTML. Check the HTML is valid.")
	}

	var w exampleWriter
	attribute := w.chunk(chunks[0], hasPlaceholder(info, 0))
	for i, prop := range props {
		if _, ok := info.attributePlaceholders[i]; ok {
			fmt.Fprintf(&w.b, "${_fcc_renderHtmlAttribute('%s', %s)}", attribute, prop)
		} else {
			fmt.Fprintf(&w.b, "${_fcc_renderHtmlValue(%s)}", prop)
		}
		attribute = w.chunk(chunks[i+1], hasPlaceholder(info, i+1))
	}

	return &Example{Template: assemble(template.TagHTML.Wrap(w.b.String())), Nestable: info.nestable}, nil
}

func hasPlaceholder(info domInfo, index int) bool {
	_, ok := info.attributePlaceholders[index]
	return ok
}

// htmlTaggedTemplate returns the html`...` call a function body consists
// of, or nil.
func htmlTaggedTemplate(body *ts.Node, src []byte) *ts.Node {
	expr := body
	if body.Kind() == ast.KindStatementBlock {
		statements := ast.NamedChildren(body)
		if len(statements) != 1 || statements[0].Kind() != ast.KindReturnStatement {
			return nil
		}
		expr = ast.FirstNamedChild(statements[0])
	}
	tag, _ := ast.TaggedTemplate(expr)
	if tag == nil || tag.Kind() != ast.KindIdentifier || ast.Text(tag, src) != TemplateTag {
		return nil
	}
	return expr
}

// templateParts splits a template literal into its cooked text chunks and
// the substitution expressions between them. There is always one more
// chunk than there are substitutions.
func templateParts(tmpl *ts.Node, src []byte) (chunks []string, spans []*ts.Node) {
	start := tmpl.StartByte() + 1
	for _, child := range ast.NamedChildren(tmpl) {
		if child.Kind() != "template_substitution" {
			continue
		}
		chunks = append(chunks, cook(src[start:child.StartByte()]))
		spans = append(spans, ast.FirstNamedChild(child))
		start = child.EndByte()
	}
	chunks = append(chunks, cook(src[start:tmpl.EndByte()-1]))
	return chunks, spans
}

func cook(raw []byte) string {
	return ast.Unquote("`" + string(raw) + "`")
}

// spanPropName returns the prop a substitution renders. Every substitution
// must reference the props parameter.
func spanPropName(ctx *connect.ParserContext, span *ts.Node, params propref.Params, tracker *propref.Tracker) (string, error) {
	placeholder, ok, err := propref.Visit(span, params, tracker, false)
	if err != nil {
		return "", err
	}
	if ok {
		quoted := strings.TrimSuffix(strings.TrimPrefix(placeholder, propref.PlaceholderFunc+"("), ")")
		name, err := strconv.Unquote(quoted)
		if err != nil {
			return "", program.NewInternalError("malformed placeholder %s", placeholder)
		}
		return name, nil
	}

	if span == nil || span.Kind() != ast.KindCall || ast.IsTaggedTemplate(span) {
		return "", ctx.Errorf(span, "Expected a call expression as a placeholder in the template, got %s", kindOf(span))
	}
	args := ast.CallArguments(span)
	if len(args) == 0 || !ast.IsStringLiteral(args[0]) {
		var arg *ts.Node
		if len(args) > 0 {
			arg = args[0]
		}
		return "", ctx.Errorf(orNode(arg, span), "Expected a string literal as the argument to the placeholder call, got %s", kindOf(arg))
	}
	return ast.StringValue(args[0], ctx.File.Source), nil
}

func kindOf(n *ts.Node) string {
	if n == nil {
		return "nothing"
	}
	return n.Kind()
}

func orNode(n, fallback *ts.Node) *ts.Node {
	if n != nil {
		return n
	}
	return fallback
}

var attributeStart = regexp.MustCompile(`(?s)^(.*\s)(\S+)="?$`)

// exampleWriter builds the body of the figma.html template. Literal HTML
// is escaped; an attribute name directly before a placeholder is cut, as
// _fcc_renderHtmlAttribute renders it.
type exampleWriter struct {
	b strings.Builder
	// insideQuotes is set when the previous placeholder was written as
	// attr="${...}" and the closing quote has to be dropped.
	insideQuotes bool
}

// chunk writes html and returns the attribute name cut from its end when
// the next placeholder is an attribute value.
func (w *exampleWriter) chunk(html string, nextIsAttribute bool) string {
	if w.insideQuotes {
		html = strings.TrimPrefix(html, `"`)
	}
	if m := attributeStart.FindStringSubmatch(html); nextIsAttribute && m != nil {
		w.b.WriteString(template.EscapeHTMLTemplate(m[1]))
		w.insideQuotes = strings.HasSuffix(html, `"`)
		return m[2]
	}
	w.b.WriteString(template.EscapeHTMLTemplate(html))
	w.insideQuotes = false
	return ""
}
