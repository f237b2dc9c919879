// Package storybook turns Storybook story files into Code Connect documents.
//
// A story file opts in through the design parameter of its default export:
//
//	export default {
//	  component: Button,
//	  parameters: {
//	    design: {
//	      type: 'figma',
//	      url: 'https://www.figma.com/file/123?node-id=1-1',
//	      props: { label: figma.string('Label') },
//	      examples: [Primary, { example: Secondary, variant: { Type: 'Secondary' } }],
//	    },
//	  },
//	}
//
// Each story listed in examples becomes one document whose template renders
// the story's JSX.
package storybook

import (
	"path/filepath"
	"strings"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/gnana997/codeconnect/pkg/ast"
	"github.com/gnana997/codeconnect/pkg/connect"
	"github.com/gnana997/codeconnect/pkg/intrinsics"
	"github.com/gnana997/codeconnect/pkg/literal"
	"github.com/gnana997/codeconnect/pkg/program"
	"github.com/gnana997/codeconnect/pkg/react"
	"github.com/gnana997/codeconnect/pkg/template"
)

// DesignType is the design parameter type that marks a Figma design.
const DesignType = "figma"

var (
	msgImports = "The 'imports' property must be an array literal. Example usage:\n" +
		"`design: {\n" +
		"      type: 'figma',\n" +
		"      url: 'https://www.figma.com/file/123?node-id=1-1',\n" +
		"      examples: [Button],\n" +
		"      imports: [\n" +
		"        'import { Button } from \"./Button\"'\n" +
		"      ],\n" +
		"      ...\n" +
		"})`"
	msgLinks = "The 'links' property must be an array literal. Example usage:\n" +
		"`design: {\n" +
		"      type: 'figma',\n" +
		"      url: 'https://www.figma.com/file/123?node-id=1-1',\n" +
		"      examples: [Button],\n" +
		"      links: [\n" +
		"        { name: 'Storybook', url: 'https://storybook.com' }\n" +
		"      ],\n" +
		"      ...\n" +
		"})`"
)

// IsStoryFile reports whether path names a story file.
func IsStoryFile(path string) bool {
	base := filepath.Base(path)
	for _, ext := range []string{".stories.tsx", ".stories.jsx"} {
		if strings.HasSuffix(base, ext) {
			return true
		}
	}
	return false
}

// NewParserContext creates the context for parsing a story file. Stories
// are React code, so `render()` modifiers are parsed as JSX.
func NewParserContext(prog *program.Program, file *program.SourceFile, opts ...connect.Option) *connect.ParserContext {
	return react.NewParserContext(prog, file, opts...)
}

// example is an entry of the design parameter's examples array.
type example struct {
	Name    string
	Variant *literal.Object
	Props   *literal.Object
}

// meta is the Code Connect part of a story file's default export.
type meta struct {
	Component *ts.Node
	URL       string
	Props     *literal.Object
	Examples  []example
	HasList   bool
	Imports   []string
	Links     []connect.Link
}

// ParseFile parses a story file. A file whose default export has no figma
// design parameter yields no documents and no error.
func ParseFile(ctx *connect.ParserContext) ([]*connect.Document, error) {
	ctx.Logger.Debug("parsing story", "file", ctx.File.Path)

	m, err := parseMeta(ctx)
	if err != nil || m == nil {
		return nil, err
	}

	metadata, err := ctx.Program.LocateExportedDeclaration(ctx.File, m.Component)
	if err != nil {
		return nil, err
	}

	source := ctx.SourceURL(metadata.Source)
	if ctx.Config.StorybookURL != "" && ctx.Linker != nil && metadata.Source != "" {
		source = ctx.Linker.StorybookURL(metadata.Source, ctx.Config.StorybookURL)
	}

	base := func() *connect.Document {
		return &connect.Document{
			FigmaNode:      connect.ApplyURLSubstitutions(m.URL, ctx.Config.DocumentURLSubstitutions),
			Component:      metadata.Component,
			Source:         source,
			SourceLocation: connect.SourceLocation{Line: metadata.Line},
			TemplateData:   connect.TemplateData{Props: m.Props, Imports: m.Imports},
			Language:       react.Language,
			Label:          ctx.LabelOr(connect.LabelStorybook),
			Links:          m.Links,
			Metadata:       connect.Metadata{CLIVersion: connect.Version},
		}
	}

	if !m.HasList {
		doc := base()
		doc.Template = template.DefaultReactTemplate(metadata.Component)
		doc.TemplateData.Nestable = true
		return []*connect.Document{doc}, nil
	}

	var docs []*connect.Document
	for _, s := range stories(ctx.File) {
		ex, ok := findExample(m.Examples, s.name)
		if !ok {
			continue
		}
		fn, err := storyRenderFunction(ctx, s)
		if err != nil {
			return nil, err
		}

		props := m.Props
		if ex.Props != nil {
			props = ex.Props
		}
		rendered, err := react.ParseRenderFunctionExpression(ctx, fn, props)
		if err != nil {
			return nil, err
		}
		tmpl, err := react.BuildTemplate(ctx, rendered.Code, props)
		if err != nil {
			return nil, err
		}

		doc := base()
		doc.Template = tmpl
		doc.Variant = ex.Variant
		doc.TemplateData.Nestable = rendered.Nestable
		docs = append(docs, doc)
	}
	return docs, nil
}

func findExample(examples []example, name string) (example, bool) {
	for _, ex := range examples {
		if ex.Name == name {
			return ex, true
		}
	}
	return example{}, false
}

// parseMeta reads the design parameter of the default export. It returns
// nil when the file does not link a Figma design.
func parseMeta(ctx *connect.ParserContext) (*meta, error) {
	exported := ctx.File.ExportedDeclaration("default")
	if exported == nil {
		return nil, nil
	}
	obj := ast.BFS(exported, func(n *ts.Node) bool { return n.Kind() == ast.KindObject })
	if obj == nil {
		ctx.Logger.Debug("no object literal found in story metadata", "file", ctx.File.Path)
		return nil, nil
	}

	var component *ts.Node
	for _, p := range ast.NamedChildren(obj) {
		if p.Kind() != ast.KindPair {
			continue
		}
		if key := p.ChildByFieldName("key"); key != nil && key.Kind() == "property_identifier" && ctx.Text(key) == "component" {
			component = p.ChildByFieldName("value")
			break
		}
	}
	if component == nil {
		ctx.Logger.Debug("no component declaration found in story metadata", "file", ctx.File.Path)
		return nil, nil
	}

	parameters, err := connect.PropertyOfType(ctx, obj, "parameters", connect.IsObject, false, "")
	if err != nil || parameters == nil {
		return nil, err
	}
	design, err := connect.PropertyOfType(ctx, parameters, "design", connect.IsObject, false, "")
	if err != nil || design == nil {
		return nil, err
	}
	typ, err := connect.PropertyOfType(ctx, design, "type", connect.IsString, false, `"type" property not found in "design" object in story metadata`)
	if err != nil {
		return nil, err
	}
	if typ == nil || ast.StringValue(typ, ctx.File.Source) != DesignType {
		ctx.Logger.Debug("design type is not figma", "file", ctx.File.Path)
		return nil, nil
	}
	url, err := connect.PropertyOfType(ctx, design, "url", connect.IsString, true, `"url" property not found in "design" object in story metadata`)
	if err != nil {
		return nil, err
	}

	m := &meta{Component: component, URL: ast.StringValue(url, ctx.File.Source), Imports: []string{}}

	if node, err := connect.PropertyOfType(ctx, design, "props", connect.IsObject, false, ""); err != nil {
		return nil, err
	} else if node != nil {
		if m.Props, err = intrinsics.ParseProps(node, ctx); err != nil {
			return nil, err
		}
	}
	if node, err := connect.PropertyOfType(ctx, design, "imports", connect.IsArray, false, msgImports); err != nil {
		return nil, err
	} else if node != nil {
		if m.Imports, err = connect.ParseImports(ctx, node); err != nil {
			return nil, err
		}
	}
	if node, err := connect.PropertyOfType(ctx, design, "links", connect.IsArray, false, msgLinks); err != nil {
		return nil, err
	} else if node != nil {
		if m.Links, err = connect.ParseLinks(ctx, node); err != nil {
			return nil, err
		}
	}
	if node, err := connect.PropertyOfType(ctx, design, "examples", connect.IsArray, false, ""); err != nil {
		return nil, err
	} else if node != nil {
		m.HasList = true
		if m.Examples, err = parseExamples(ctx, node); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// parseExamples reads `[Primary, 'Secondary', { example: Tertiary, variant, props }]`.
func parseExamples(ctx *connect.ParserContext, arr *ts.Node) ([]example, error) {
	var out []example
	for _, el := range ast.NamedChildren(arr) {
		el = ast.Unwrap(el)
		switch el.Kind() {
		case ast.KindString:
			out = append(out, example{Name: ast.StringValue(el, ctx.File.Source)})
			continue
		case ast.KindIdentifier:
			out = append(out, example{Name: ctx.Text(el)})
			continue
		case ast.KindObject:
		default:
			return nil, ctx.Errorf(el, "Expected object literal in examples array, got: %s", el.Kind())
		}

		var ex example
		for _, p := range ast.NamedChildren(el) {
			if p.Kind() != ast.KindPair {
				continue
			}
			key, _ := ast.PropertyKey(p.ChildByFieldName("key"), ctx.File.Source)
			value := ast.Unwrap(p.ChildByFieldName("value"))
			var err error
			switch key {
			case "example":
				if ast.IsStringLiteral(value) {
					ex.Name = ast.StringValue(value, ctx.File.Source)
				} else {
					ex.Name = ctx.Text(value)
				}
			case "variant":
				ex.Variant, err = connect.ParseVariant(ctx, value)
			case "props":
				ex.Props, err = intrinsics.ParseProps(value, ctx)
			}
			if err != nil {
				return nil, err
			}
		}
		out = append(out, ex)
	}
	return out, nil
}

// story is a top-level function or variable declaration, exported or not.
type story struct {
	name string
	decl *ts.Node
}

func stories(file *program.SourceFile) []story {
	var out []story
	for _, stmt := range ast.NamedChildren(file.Root()) {
		decl := stmt
		if stmt.Kind() == "export_statement" {
			decl = stmt.ChildByFieldName("declaration")
			if decl == nil {
				continue
			}
		}
		switch decl.Kind() {
		case ast.KindFunctionDecl:
			out = append(out, story{name: file.Text(decl.ChildByFieldName("name")), decl: decl})
		case "lexical_declaration", "variable_declaration":
			if d := ast.FirstNamedChild(decl); d != nil && d.Kind() == ast.KindVariableDecl {
				out = append(out, story{name: file.Text(d.ChildByFieldName("name")), decl: d})
			}
		}
	}
	return out
}

// storyRenderFunction returns the function rendering a story: a function
// declaration, an arrow function or the `render` of a story object.
func storyRenderFunction(ctx *connect.ParserContext, s story) (*ts.Node, error) {
	if s.decl.Kind() == ast.KindFunctionDecl {
		return s.decl, nil
	}
	init := ast.Unwrap(s.decl.ChildByFieldName("value"))
	switch {
	case init != nil && init.Kind() == ast.KindArrowFunction:
		return init, nil
	case init != nil && init.Kind() == ast.KindObject:
		return connect.PropertyOfType(ctx, init, "render", connect.IsArrow, true, "")
	}
	return nil, ctx.Errorf(s.decl, "Expected function declaration, arrow function or render function in story")
}
