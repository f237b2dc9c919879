package propref

import (
	"path/filepath"
	"testing"

	ts "github.com/tree-sitter/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/codeconnect/pkg/ast"
	"github.com/gnana997/codeconnect/pkg/literal"
	"github.com/gnana997/codeconnect/pkg/program"
	"github.com/gnana997/codeconnect/pkg/util"
)

// parseExample parses `const example = <fn>` and returns the file and the
// function node.
func parseExample(t *testing.T, fn string) (*program.SourceFile, *ts.Node) {
	t.Helper()
	prog, err := program.New(program.Config{Root: t.TempDir()}, util.NewDiscardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { prog.Close() })

	file, err := prog.AddSource(filepath.Join(prog.Config().Root, "Button.figma.tsx"), []byte("const example = "+fn+"\n"))
	require.NoError(t, err)
	node := file.FindVariableInitializer("example")
	require.NotNil(t, node)
	return file, node
}

func mappingsOf(keys ...string) *literal.Object {
	obj := literal.NewObject()
	for _, k := range keys {
		obj.Set(k, literal.String(k))
	}
	return obj
}

// rewrite rewrites the body of fn and returns the result with the tracker.
func rewrite(t *testing.T, fn string, mappings *literal.Object, jsx bool) (string, *Tracker, error) {
	t.Helper()
	file, node := parseExample(t, fn)

	var param *ts.Node
	if params := ast.FunctionParameters(node); len(params) > 0 {
		param = params[0]
	}
	tracker := NewTracker(file, mappings)
	r := &Rewriter{Params: ParamsOf(param, file.Source), Tracker: tracker, JSX: jsx}
	code, err := r.Rewrite(ast.Unwrap(ast.FunctionBody(node)))
	return code, tracker, err
}

func TestParamsOf(t *testing.T) {
	tests := []struct {
		name string
		fn   string
		want Params
	}{
		{"identifier", `(props) => null`, Params{Identifier: "props"}},
		{"bare identifier", `props => null`, Params{Identifier: "props"}},
		{"typed identifier", `(props: ButtonProps) => null`, Params{Identifier: "props"}},
		{"destructured", `({ label, size }) => null`, Params{Bindings: []string{"label", "size"}}},
		{"renamed", `({ label: text }) => null`, Params{Bindings: []string{"text"}}},
		{"defaults", `({ size = "md" }) => null`, Params{Bindings: []string{"size"}}},
		{"rest", `({ label, ...rest }) => null`, Params{Bindings: []string{"label"}, Rest: "rest"}},
		{"no params", `() => null`, Params{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, node := parseExample(t, tt.fn)
			var param *ts.Node
			if params := ast.FunctionParameters(node); len(params) > 0 {
				param = params[0]
			}
			assert.Equal(t, tt.want, ParamsOf(param, file.Source))
		})
	}
}

func TestParams_Binds(t *testing.T) {
	p := Params{Bindings: []string{"label"}, Rest: "rest"}

	assert.True(t, p.Destructured())
	assert.True(t, p.Binds("label"))
	assert.True(t, p.Binds("rest"))
	assert.False(t, p.Binds("labelText"))
	assert.False(t, p.Binds(""))
	assert.False(t, Params{Identifier: "props"}.Destructured())
}

func TestRewriter_PropsForms(t *testing.T) {
	mappings := mappingsOf("label", "icon", "size")

	tests := []struct {
		name       string
		fn         string
		want       string
		referenced []string
	}{
		{
			name:       "member access",
			fn:         `(props) => <Button label={props.label} />`,
			want:       `<Button label={__PROP__("label")} />`,
			referenced: []string{"label"},
		},
		{
			name:       "nested member access",
			fn:         `(props) => <Button icon={props.icon.type} />`,
			want:       `<Button icon={__PROP__("icon.type")} />`,
			referenced: []string{"icon"},
		},
		{
			name:       "deep chain keeps the remainder",
			fn:         `(props) => <Button icon={props.icon.type.name} />`,
			want:       `<Button icon={__PROP__("icon.type").name} />`,
			referenced: []string{"icon"},
		},
		{
			name:       "string subscript",
			fn:         `(props) => <Button label={props["label"]} />`,
			want:       `<Button label={__PROP__("label")} />`,
			referenced: []string{"label"},
		},
		{
			name:       "destructured binding",
			fn:         `({ label }) => <Button label={label} />`,
			want:       `<Button label={__PROP__("label")} />`,
			referenced: []string{"label"},
		},
		{
			name:       "destructured child",
			fn:         `({ label }) => <Button>{label}</Button>`,
			want:       `<Button>{__PROP__("label")}</Button>`,
			referenced: []string{"label"},
		},
		{
			name:       "object shorthand",
			fn:         `({ size }) => <Button style={{ size }} />`,
			want:       `<Button style={{ size: __PROP__("size") }} />`,
			referenced: []string{"size"},
		},
		{
			name:       "object value",
			fn:         `({ size }) => <Button style={{ width: size }} />`,
			want:       `<Button style={{ width: __PROP__("size") }} />`,
			referenced: []string{"size"},
		},
		{
			name:       "referenced once",
			fn:         `(props) => <Button label={props.label} title={props["label"]} />`,
			want:       `<Button label={__PROP__("label")} title={__PROP__("label")} />`,
			referenced: []string{"label"},
		},
		{
			name:       "unrelated identifiers untouched",
			fn:         `(props) => <Button onClick={other.label} />`,
			want:       `<Button onClick={other.label} />`,
			referenced: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, tracker, err := rewrite(t, tt.fn, mappings, true)
			require.NoError(t, err)
			assert.Equal(t, tt.want, code)
			assert.Equal(t, tt.referenced, tracker.Referenced())
		})
	}
}

func TestRewriter_RestSpread(t *testing.T) {
	code, tracker, err := rewrite(t,
		`({ label, ...rest }) => <Button label={label} {...rest} />`,
		mappingsOf("label", "size", "disabled"), true)
	require.NoError(t, err)

	assert.Equal(t, `<Button label={__PROP__("label")}  size={__PROP__("size")} disabled={__PROP__("disabled")} />`, code)
	assert.Equal(t, []string{"label", "size", "disabled"}, tracker.Referenced())
}

func TestRewriter_PropsSpread(t *testing.T) {
	code, tracker, err := rewrite(t, `(props) => <Button {...props} />`, mappingsOf("label", "size"), true)
	require.NoError(t, err)

	assert.Equal(t, `<Button  label={__PROP__("label")} size={__PROP__("size")} />`, code)
	assert.Equal(t, []string{"label", "size"}, tracker.Referenced())
}

func TestRewriter_SpreadAfterLineBreak(t *testing.T) {
	code, _, err := rewrite(t, "(props) => <Button\n{...props} />", mappingsOf("label", "size"), true)
	require.NoError(t, err)

	assert.Equal(t, "<Button\n label={__PROP__(\"label\")} size={__PROP__(\"size\")} />", code)
}

func TestRewriter_SpreadWithoutMappings(t *testing.T) {
	code, tracker, err := rewrite(t, `(props) => <Button {...props} />`, nil, true)
	require.NoError(t, err)

	assert.Equal(t, `<Button  />`, code)
	assert.Empty(t, tracker.Referenced())
}

func TestRewriter_UnknownProp(t *testing.T) {
	_, _, err := rewrite(t, `(props) => <Button label={props.missing} />`, mappingsOf("label"), true)
	require.Error(t, err)

	pe, ok := program.AsParserError(err)
	require.True(t, ok)
	assert.Equal(t, "Could not find prop mapping for missing in the props object", pe.Message)
}

func TestRewriter_NoMappingsAcceptsAnyProp(t *testing.T) {
	code, tracker, err := rewrite(t, `(props) => <Button label={props.anything} />`, nil, true)
	require.NoError(t, err)

	assert.Equal(t, `<Button label={__PROP__("anything")} />`, code)
	assert.Equal(t, []string{"anything"}, tracker.Referenced())
}

func TestRewriter_ValueMode(t *testing.T) {
	code, tracker, err := rewrite(t, `({ label }) => ({ text: label, label })`, mappingsOf("label"), false)
	require.NoError(t, err)

	assert.Equal(t, `{ text: __PROP__("label"), label: __PROP__("label") }`, code)
	assert.Equal(t, []string{"label"}, tracker.Referenced())
}

func TestApply(t *testing.T) {
	src := []byte("0123456789")

	t.Run("out of order edits", func(t *testing.T) {
		edits := []Edit{{Start: 6, End: 8, Text: "b"}, {Start: 2, End: 4, Text: "a"}}
		assert.Equal(t, "01a45b89", Apply(src, 0, 10, edits))
	})

	t.Run("overlapping edit skipped", func(t *testing.T) {
		edits := []Edit{{Start: 2, End: 6, Text: "a"}, {Start: 4, End: 8, Text: "b"}}
		assert.Equal(t, "01a6789", Apply(src, 0, 10, edits))
	})

	t.Run("sub range", func(t *testing.T) {
		edits := []Edit{{Start: 3, End: 4, Text: "x"}}
		assert.Equal(t, "2x45", Apply(src, 2, 6, edits))
	})
}
