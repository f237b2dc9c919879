package storybook

import (
	"os"
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

const buttonSource = `export const Button = ({ label }: { label: string }) => <button>{label}</button>
`

func parse(t *testing.T, stories string, opts ...connect.Option) ([]*connect.Document, *connect.ParserContext, error) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Button.tsx"), []byte(buttonSource), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Button.stories.tsx"), []byte(stories), 0o644))

	prog, err := program.New(program.Config{Root: dir}, util.NewDiscardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { prog.Close() })

	file, err := prog.File(filepath.Join(dir, "Button.stories.tsx"))
	require.NoError(t, err)
	ctx := NewParserContext(prog, file, append([]connect.Option{connect.WithLogger(util.NewDiscardLogger())}, opts...)...)
	docs, err := ParseFile(ctx)
	return docs, ctx, err
}

func TestParseFile_DefaultTemplate(t *testing.T) {
	docs, ctx, err := parse(t, `import { Button } from './Button'

export default {
  component: Button,
  parameters: {
    design: { type: 'figma', url: '`+figmaURL+`' },
  },
}
`)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	doc := docs[0]
	assert.Equal(t, figmaURL, doc.FigmaNode)
	assert.Equal(t, "Button", doc.Component)
	assert.Equal(t, filepath.Join(ctx.Program.Config().Root, "Button.tsx"), doc.Source)
	assert.Equal(t, 0, doc.SourceLocation.Line)
	assert.Equal(t, connect.LabelStorybook, doc.Label)
	assert.Equal(t, "typescript", doc.Language)
	assert.Equal(t, template.DefaultReactTemplate("Button"), doc.Template)
	assert.True(t, doc.TemplateData.Nestable)
}

func TestParseFile_Stories(t *testing.T) {
	docs, _, err := parse(t, `import { Button } from './Button'
import figma from '@figma/code-connect'

const meta = {
  component: Button,
  parameters: {
    design: {
      type: 'figma',
      url: '`+figmaURL+`',
      props: { label: figma.string('Label') },
      examples: [Primary, { example: Secondary, variant: { Type: 'Secondary' } }, 'Tertiary'],
      links: [{ name: 'Docs', url: 'https://docs.example.com' }],
      imports: ['import { Button } from "@acme/ui"'],
    },
  },
} satisfies Meta<typeof Button>

export default meta

export const Primary = (args) => <Button label={args.label} />

export const Secondary = {
  render: () => <Button label="Two" />,
}

export function Tertiary() {
  const label = 'Three'
  return <Button label={label} />
}

export const Unlisted = () => <Button label="Hidden" />
`)
	require.NoError(t, err)
	require.Len(t, docs, 3)

	primary := docs[0]
	assert.Contains(t, primary.Template, "const label = figma.currentLayer.__properties__.string('Label')\n")
	assert.Contains(t, primary.Template,
		"export default { ...figma.tsx`<Button${_fcc_renderReactProp('label', label)} />`, metadata: { __props } }\n")
	assert.True(t, primary.TemplateData.Nestable)
	assert.Nil(t, primary.Variant)
	assert.Equal(t, []string{"label"}, primary.TemplateData.Props.Keys())
	assert.Equal(t, []string{`import { Button } from "@acme/ui"`}, primary.TemplateData.Imports)
	assert.Equal(t, []connect.Link{{Name: "Docs", URL: "https://docs.example.com"}}, primary.Links)

	secondary := docs[1]
	assert.Contains(t, secondary.Template, "figma.tsx`<Button label=\"Two\" />`")
	require.NotNil(t, secondary.Variant)
	assert.Equal(t, []string{"Type"}, secondary.Variant.Keys())

	tertiary := docs[2]
	assert.Contains(t, tertiary.Template, "figma.tsx`function Example() {")
	assert.False(t, tertiary.TemplateData.Nestable)
}

func TestParseFile_ExampleProps(t *testing.T) {
	docs, _, err := parse(t, `import { Button } from './Button'
import figma from '@figma/code-connect'

export default {
  component: Button,
  parameters: {
    design: {
      type: 'figma',
      url: '`+figmaURL+`',
      props: { label: figma.string('Label') },
      examples: [{ example: Primary, props: { text: figma.string('Text') } }],
    },
  },
}

export const Primary = ({ text }) => <Button label={text} />
`)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].Template, "const text = figma.currentLayer.__properties__.string('Text')\n")
	assert.NotContains(t, docs[0].Template, "'Label'")
}

func TestParseFile_StorybookURL(t *testing.T) {
	docs, _, err := parse(t, `import { Button } from './Button'

export default {
  component: Button,
  parameters: { design: { type: 'figma', url: '`+figmaURL+`' } },
}
`,
		connect.WithConfig(connect.Config{StorybookURL: "https://storybook.example.com"}),
		connect.WithLinker(stubLinker{}))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "https://storybook.example.com/?path=/docs/Button.tsx", docs[0].Source)
}

func TestParseFile_NoFigmaDesign(t *testing.T) {
	tests := map[string]string{
		"no default export": `export const Primary = () => <div />`,
		"no component":      `export default { title: 'Button' }`,
		"no parameters":     `import { Button } from './Button'
export default { component: Button }`,
		"other design type": `import { Button } from './Button'
export default { component: Button, parameters: { design: { type: 'image', url: 'x.png' } } }`,
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			docs, _, err := parse(t, src)
			require.NoError(t, err)
			assert.Empty(t, docs)
		})
	}
}

func TestParseFile_Errors(t *testing.T) {
	meta := func(design string) string {
		return `import { Button } from './Button'
export default { component: Button, parameters: { design: { type: 'figma', ` + design + ` } } }
`
	}
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"missing url", meta(`examples: []`), `"url" property not found in "design" object in story metadata`},
		{"bad example entry", meta(`url: '` + figmaURL + `', examples: [42]`), "Expected object literal in examples array, got: number"},
		{"imports not an array", meta(`url: '` + figmaURL + `', imports: 'x'`), msgImports},
		{"links not an array", meta(`url: '` + figmaURL + `', links: {}`), msgLinks},
		{
			"story without render",
			meta(`url: '`+figmaURL+`', examples: [Primary]`) + "export const Primary = 42\n",
			"Expected function declaration, arrow function or render function in story",
		},
		{
			"object story without render",
			meta(`url: '`+figmaURL+`', examples: [Primary]`) + "export const Primary = { args: {} }\n",
			"Expected property 'render' to be present",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := parse(t, tt.src)
			require.Error(t, err)
			pe, ok := program.AsParserError(err)
			require.True(t, ok, "expected a ParserError, got %v", err)
			assert.Equal(t, tt.want, pe.Message)
		})
	}
}

func TestIsStoryFile(t *testing.T) {
	assert.True(t, IsStoryFile("src/Button.stories.tsx"))
	assert.True(t, IsStoryFile("Button.stories.jsx"))
	assert.False(t, IsStoryFile("Button.figma.tsx"))
	assert.False(t, IsStoryFile("Button.stories.ts"))
}

type stubLinker struct{}

func (stubLinker) RemoteFileURL(path string) string { return "" }

func (stubLinker) StorybookURL(path, base string) string {
	return base + "/?path=/docs/" + filepath.Base(path)
}
