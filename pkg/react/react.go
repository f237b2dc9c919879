// Package react is the React front end: it turns
// `figma.connect(Component, url, { props, example, ... })` calls in .tsx and
// .jsx files into Code Connect documents whose templates render with
// figma.tsx.
package react

import (
	"fmt"
	"path/filepath"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/gnana997/codeconnect/pkg/ast"
	"github.com/gnana997/codeconnect/pkg/connect"
	"github.com/gnana997/codeconnect/pkg/intrinsics"
	"github.com/gnana997/codeconnect/pkg/literal"
	"github.com/gnana997/codeconnect/pkg/program"
	"github.com/gnana997/codeconnect/pkg/template"
)

// Language is the language of React documents.
const Language = "typescript"

// Extensions are the file extensions the React front end parses.
var Extensions = []string{"tsx", "jsx"}

const call = intrinsics.ConnectCall

var (
	msgComponentArg = fmt.Sprintf("`%s` must be called with a reference to a Component or a Figma Component URL as the first argument. Example usage:\n"+
		"  `%s(Button, 'https://www.figma.com/file/123?node-id=1-1')`", call, call)
	msgURLArg = fmt.Sprintf("The second argument to %s() must be a string literal (the URL of the Figma node). Example usage:\n"+
		"    `%s(Button, 'https://www.figma.com/file/123?node-id=1-1')`", call, call)
	msgConfigArg = fmt.Sprintf("The third argument to %s() must be an object literal. Example usage:\n"+
		"    `%s(Button, 'https://www.figma.com/file/123?node-id=1-1', { render: () => <Button /> })`", call, call)

	msgProps = fmt.Sprintf("The 'props' property must be an object literal. Example usage:\n"+
		"      `%s(Button, 'https://www.figma.com/file/123?node-id=1-1', {\n"+
		"        props: {\n"+
		"          disabled: figma.boolean('Disabled'),\n"+
		"          text: figma.string('TextContent'),\n"+
		"        }\n"+
		"      })`", call)
	msgExample = fmt.Sprintf("The 'example' property must be an inline function or arrow function. Example usage:\n"+
		"    `%s(Button, 'https://www.figma.com/file/123?node-id=1-1', {\n"+
		"      example: () => <Button />\n"+
		"    })`", call)
	msgVariant = fmt.Sprintf("The 'variant' property must be an object literal. Example usage:\n"+
		"    `%s(Button, 'https://www.figma.com/file/123?node-id=1-1', {\n"+
		"      variant: {\n"+
		"        \"Has Icon\": true\n"+
		"      }\n"+
		"    })`", call)
	msgLinks = fmt.Sprintf("The 'links' property must be an array literal. Example usage:\n"+
		"    `%s(Button, 'https://www.figma.com/file/123?node-id=1-1', {\n"+
		"      links: [\n"+
		"        { name: 'Storybook', url: 'https://storybook.com' }\n"+
		"      ]\n"+
		"    })`", call)
	msgImports = fmt.Sprintf("The 'imports' property must be an array literal. Example usage:\n"+
		"    `%s(Button, 'https://www.figma.com/file/123?node-id=1-1', {\n"+
		"      imports: ['import { Button } from \"./Button\"']\n"+
		"    })`", call)
)

// connectArgs are the arguments of a figma.connect call. Component is nil
// for the `figma.connect(url, config)` form.
type connectArgs struct {
	Component *ts.Node
	URL       string
	Config    *ts.Node
}

func parseConnectArgs(ctx *connect.ParserContext, node *ts.Node) (connectArgs, error) {
	first, err := connect.FunctionArgument(ctx, node, 0, connect.IsComponentRef, true, msgComponentArg)
	if err != nil {
		return connectArgs{}, err
	}

	var args connectArgs
	configIndex := 2
	if ast.IsStringLiteral(first) {
		args.URL = ast.StringValue(first, ctx.File.Source)
		configIndex = 1
	} else {
		args.Component = first
		arg, err := connect.FunctionArgument(ctx, node, 1, connect.IsIdentOrStr, true, msgURLArg)
		if err != nil {
			return connectArgs{}, err
		}
		if args.URL, err = connect.StringArgument(ctx, arg, msgURLArg); err != nil {
			return connectArgs{}, err
		}
	}

	args.Config, err = connect.FunctionArgument(ctx, node, configIndex, connect.IsObject, false, msgConfigArg)
	if err != nil {
		return connectArgs{}, err
	}
	return args, nil
}

// configArgs are the properties of the config object. Each is nil when
// absent.
type configArgs struct {
	Props   *ts.Node
	Example *ts.Node
	Variant *ts.Node
	Links   *ts.Node
	Imports *ts.Node
}

func parseConfigArgs(ctx *connect.ParserContext, obj *ts.Node) (configArgs, error) {
	var c configArgs
	if obj == nil {
		return c, nil
	}

	fields := []struct {
		dst  **ts.Node
		name string
		pred connect.Predicate
		msg  string
	}{
		{&c.Props, "props", connect.IsObject, msgProps},
		{&c.Example, "example", connect.IsFunction, msgExample},
		{&c.Variant, "variant", connect.IsObject, msgVariant},
		{&c.Links, "links", connect.IsArray, msgLinks},
		{&c.Imports, "imports", connect.IsArray, msgImports},
	}
	for _, f := range fields {
		node, err := connect.PropertyOfType(ctx, obj, f.name, f.pred, false, f.msg)
		if err != nil {
			return configArgs{}, err
		}
		*f.dst = node
	}
	return c, nil
}

// NewParserContext creates a parser context with the React render function
// parser installed, so `.render()` modifiers in props can be parsed.
func NewParserContext(prog *program.Program, file *program.SourceFile, opts ...connect.Option) *connect.ParserContext {
	return connect.NewParserContext(prog, file, append(opts, connect.WithRenderParser(RenderParser))...)
}

// ParseFile parses every figma.connect call of the context's file.
func ParseFile(ctx *connect.ParserContext) ([]*connect.Document, error) {
	return connect.ParseFile(ctx, ParseDoc)
}

// ParseDoc parses one figma.connect call into a document.
func ParseDoc(ctx *connect.ParserContext, node *ts.Node) (*connect.Document, error) {
	args, err := parseConnectArgs(ctx, node)
	if err != nil {
		return nil, err
	}
	config, err := parseConfigArgs(ctx, args.Config)
	if err != nil {
		return nil, err
	}

	figmaNode := connect.ApplyURLSubstitutions(args.URL, ctx.Config.DocumentURLSubstitutions)

	var metadata *program.ComponentMetadata
	if args.Component != nil {
		m, err := ctx.Program.LocateExportedDeclaration(ctx.File, args.Component)
		if err != nil {
			return nil, err
		}
		metadata = &m
	}

	var props *literal.Object
	if config.Props != nil {
		if props, err = intrinsics.ParseProps(config.Props, ctx); err != nil {
			return nil, err
		}
	}

	var example *Example
	if config.Example != nil {
		if FindJSXElement(config.Example) != nil {
			example, err = parseJSXExample(ctx, config.Example, props)
		} else {
			example, err = parseValueExample(ctx, config.Example, props)
		}
		if err != nil {
			return nil, err
		}
	}

	var variant *literal.Object
	if config.Variant != nil {
		if variant, err = connect.ParseVariant(ctx, config.Variant); err != nil {
			return nil, err
		}
	}

	var links []connect.Link
	if config.Links != nil {
		if links, err = connect.ParseLinks(ctx, config.Links); err != nil {
			return nil, err
		}
	}

	imports, err := documentImports(ctx, config.Imports, example, metadata)
	if err != nil {
		return nil, err
	}
	if len(imports) == 0 && metadata != nil && metadata.Component != "" {
		ctx.Logger.Warn(fmt.Sprintf("The import statement for %s could not be automatically resolved, make sure the component is imported (if not colocating) and that the path mappings are correct in your figma.config.json", metadata.Component),
			"file", ctx.File.Path)
	}

	doc := &connect.Document{
		FigmaNode:      figmaNode,
		Variant:        variant,
		SourceLocation: connect.SourceLocation{Line: connect.UnknownLine},
		TemplateData: connect.TemplateData{
			Props:    props,
			Imports:  imports,
			Nestable: true,
		},
		Language: Language,
		Label:    ctx.LabelOr(connect.LabelReact),
		Links:    links,
		Metadata: connect.Metadata{CLIVersion: connect.Version},
	}

	switch {
	case example != nil && example.Template != "":
		doc.Template = example.Template
	case metadata != nil:
		doc.Template = template.DefaultReactTemplate(metadata.Component)
	default:
		return nil, ctx.Errorf(node, "%s() requires either a component argument or an example function", call)
	}
	if example != nil {
		doc.TemplateData.Nestable = example.Nestable
	}

	if metadata != nil {
		doc.Component = metadata.Component
		doc.Source = ctx.SourceURL(metadata.Source)
		doc.SourceLocation.Line = metadata.Line
	}
	return doc, nil
}

// documentImports returns the import statements shown with the example:
// the explicit `imports` list when given, otherwise the imports of the
// components the example renders, mapped through importPaths.
func documentImports(ctx *connect.ParserContext, importsArg *ts.Node, example *Example, metadata *program.ComponentMetadata) ([]string, error) {
	if importsArg != nil {
		return connect.ParseImports(ctx, importsArg)
	}

	var imports []program.ImportStatement
	switch {
	case example != nil:
		imports = example.Imports
	case metadata != nil:
		imports = connect.ImportsFor(ctx, []string{metadata.Component})
	}

	if len(imports) == 0 && metadata != nil && metadata.Component != "" {
		// not imported, so most likely declared next to the Code Connect file
		source := metadata.Source
		if source == "" {
			source = ctx.File.Path
		}
		imports = []program.ImportStatement{connect.ColocatedImport(metadata.Component, filepath.Base(source), ctx.File.Path)}
	}
	return connect.MapImports(ctx, imports), nil
}
