package html

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/codeconnect/pkg/connect"
	"github.com/gnana997/codeconnect/pkg/program"
	"github.com/gnana997/codeconnect/pkg/template"
	"github.com/gnana997/codeconnect/pkg/util"
)

const figmaURL = "https://www.figma.com/file/abc?node-id=1-1"

func parse(t *testing.T, src string, opts ...connect.Option) ([]*connect.Document, error) {
	t.Helper()
	prog, err := program.New(program.Config{Root: t.TempDir()}, util.NewDiscardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { prog.Close() })

	file, err := prog.AddSource(filepath.Join(prog.Config().Root, "button.figma.ts"), []byte(src))
	require.NoError(t, err)
	ctx := NewParserContext(prog, file, append([]connect.Option{connect.WithLogger(util.NewDiscardLogger())}, opts...)...)
	return ParseFile(ctx)
}

func parseOne(t *testing.T, src string) *connect.Document {
	t.Helper()
	docs, err := parse(t, src)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	return docs[0]
}

// connectWith wraps a config object body in a figma.connect call.
func connectWith(config string) string {
	return "figma.connect('" + figmaURL + "', {\n" + config + "\n})\n"
}

func TestParseDoc(t *testing.T) {
	doc := parseOne(t, connectWith(`
  props: {
    label: figma.string('Label'),
    disabled: figma.boolean('Disabled'),
    text: figma.string('Text'),
  },
  example: (props) => html`+"`"+`<my-button label=${props.label} disabled="${props.disabled}">${props.text}</my-button>`+"`"+`,`))

	assert.Equal(t, figmaURL, doc.FigmaNode)
	assert.Equal(t, Language, doc.Language)
	assert.Equal(t, connect.LabelHTML, doc.Label)
	assert.Equal(t, "", doc.Source)
	assert.Equal(t, connect.UnknownLine, doc.SourceLocation.Line)
	assert.True(t, doc.TemplateData.Nestable)
	assert.Equal(t, []string{"label", "disabled", "text"}, doc.TemplateData.Props.Keys())

	assert.Contains(t, doc.Template, template.HTMLHelpers()+"\n\nconst figma = require('figma')\n\n")
	assert.Contains(t, doc.Template, "const label = figma.currentLayer.__properties__.string('Label')\n")
	assert.Contains(t, doc.Template,
		"export default figma.html`<my-button ${_fcc_renderHtmlAttribute('label', label)} ${_fcc_renderHtmlAttribute('disabled', disabled)}>${_fcc_renderHtmlValue(text)}</my-button>`\n")
	assert.NotContains(t, doc.Template, "metadata: { __props }")
}

func TestParseExampleTemplate_Forms(t *testing.T) {
	tests := []struct {
		name     string
		config   string
		example  string
		nestable bool
	}{
		{
			name:     "destructured",
			config:   `props: { label: figma.string('Label') }, example: ({ label }) => html` + "`" + `<x-a>${label}</x-a>` + "`",
			example:  "figma.html`<x-a>${_fcc_renderHtmlValue(label)}</x-a>`",
			nestable: true,
		},
		{
			name:     "block with single return",
			config:   "example: () => { return html`<x-a></x-a>` }",
			example:  "figma.html`<x-a></x-a>`",
			nestable: true,
		},
		{
			name:     "several top-level elements",
			config:   "example: () => html`<x-a></x-a><x-b></x-b>`",
			example:  "figma.html`<x-a></x-a><x-b></x-b>`",
			nestable: false,
		},
		{
			name:     "attribute inside template element",
			config:   `props: { label: figma.string('Label') }, example: (props) => html` + "`" + `<template><x-a label=${props.label}></x-a></template>` + "`",
			example:  "figma.html`<template><x-a ${_fcc_renderHtmlAttribute('label', label)}></x-a></template>`",
			nestable: true,
		},
		{
			name:     "string body",
			config:   `example: () => "Hello"`,
			example:  `figma.value("Hello")`,
			nestable: true,
		},
		{
			name:     "no substitutions escapes interpolation syntax",
			config:   "example: () => html`<code>a \\`b\\`</code>`",
			example:  "figma.html`<code>a \\`b\\`</code>`",
			nestable: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parseOne(t, connectWith(tt.config))
			assert.Contains(t, doc.Template, "export default "+tt.example+"\n")
			assert.Equal(t, tt.nestable, doc.TemplateData.Nestable)
		})
	}
}

func TestParseDoc_VariantLinksImports(t *testing.T) {
	doc := parseOne(t, connectWith(`
  variant: { Size: "Large" },
  links: [{ name: "Docs", url: "https://docs.example.com" }],
  imports: ['import "@acme/button"'],
  example: () => html`+"`<acme-button></acme-button>`"))

	assert.Equal(t, []string{"Size"}, doc.Variant.Keys())
	assert.Equal(t, []connect.Link{{Name: "Docs", URL: "https://docs.example.com"}}, doc.Links)
	assert.Equal(t, []string{`import "@acme/button"`}, doc.TemplateData.Imports)
}

func TestParseDoc_Label(t *testing.T) {
	docs, err := parse(t, connectWith("example: () => html`<x-a></x-a>`"),
		connect.WithConfig(connect.Config{Label: "Angular"}))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Angular", docs[0].Label)
}

func TestParseDoc_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"component first argument", "figma.connect(Button, '" + figmaURL + "', {})\n", msgURLArg},
		{"missing config", "figma.connect('" + figmaURL + "')\n", msgConfigArg},
		{"missing example", connectWith(`props: {}`), msgExample},
		{"example not an arrow", connectWith("example: function () { return html`<a></a>` }"), msgExample},
		{
			"two parameters",
			connectWith("example: (a, b) => html`<a></a>`"),
			"Expected a single props parameter for the render function, got 2 parameters",
		},
		{
			"untagged template",
			connectWith("example: () => `<a></a>`"),
			"Expected only a tagged template literal as the body of the render function",
		},
		{
			"other tag",
			connectWith("example: () => css`a {}`"),
			"Expected only a tagged template literal as the body of the render function",
		},
		{
			"duplicate attribute",
			connectWith(`props: { x: figma.string('X') }, example: (props) => html` + "`" + `<a href=${props.x} href="y"></a>` + "`"),
			"Duplicate attribute name in example HTML",
		},
		{
			"substitution not a prop",
			connectWith("example: (props) => html`<a>${other}</a>`"),
			"Expected a call expression as a placeholder in the template, got identifier",
		},
		{
			"call without string argument",
			connectWith("example: (props) => html`<a>${format(1)}</a>`"),
			"Expected a string literal as the argument to the placeholder call, got number",
		},
		{
			"unknown prop",
			connectWith(`props: { label: figma.string('Label') }, example: (props) => html` + "`" + `<a>${props.missing}</a>` + "`"),
			"Could not find prop mapping for missing in the props object",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse(t, tt.src)
			require.Error(t, err)
			pe, ok := program.AsParserError(err)
			require.True(t, ok, "expected a ParserError, got %v", err)
			assert.Equal(t, tt.want, pe.Message)
		})
	}
}

func TestAnalyzeDOM(t *testing.T) {
	info, err := analyzeDOM(placeholderHTML([]string{`<x-a label=`, ` checked="`, `">`, `</x-a>`}))
	require.NoError(t, err)
	assert.Equal(t, map[int]string{0: "label", 1: "checked"}, info.attributePlaceholders)
	assert.True(t, info.nestable)

	info, err = analyzeDOM("text only")
	require.NoError(t, err)
	assert.False(t, info.nestable)

	_, err = analyzeDOM(`<a title="x" TITLE="y"></a>`)
	assert.ErrorIs(t, err, errDuplicateAttribute)
}

func TestExampleWriter(t *testing.T) {
	var w exampleWriter
	assert.Equal(t, "label", w.chunk(`<x-a label="`, true))
	assert.True(t, w.insideQuotes)
	assert.Equal(t, "", w.chunk(`">text`, false))
	assert.False(t, w.insideQuotes)
	assert.Equal(t, "", w.chunk("`${raw}`", false))
	assert.Equal(t, "<x-a >text\\`\\${raw}\\`", w.b.String())
}

func TestPlaceholderIndex(t *testing.T) {
	i, ok := placeholderIndex("__FIGMA_PLACEHOLDER_12")
	assert.True(t, ok)
	assert.Equal(t, 12, i)

	i, ok = placeholderIndex("__FIGMA_PLACEHOLDER_3 extra")
	assert.True(t, ok)
	assert.Equal(t, 3, i)

	_, ok = placeholderIndex("__FIGMA_PLACEHOLDER_")
	assert.False(t, ok)
	_, ok = placeholderIndex("label")
	assert.False(t, ok)
}
