package intrinsics

import (
	"path/filepath"
	"testing"

	ts "github.com/tree-sitter/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/codeconnect/pkg/literal"
	"github.com/gnana997/codeconnect/pkg/program"
	"github.com/gnana997/codeconnect/pkg/util"
)

type testContext struct {
	file        *program.SourceFile
	renderCalls int
}

func (c *testContext) SourceFile() *program.SourceFile { return c.file }

func (c *testContext) ParseRenderFunction(fn *ts.Node) (*RenderFunction, error) {
	c.renderCalls++
	return &RenderFunction{
		Code:            "figma.tsx`<Icon />`",
		ReferencedProps: []string{"size", "color"},
	}, nil
}

// parseExpr parses `const value = <expr>` and returns the expression.
func parseExpr(t *testing.T, expr string) (*testContext, *ts.Node) {
	t.Helper()
	prog, err := program.New(program.Config{Root: t.TempDir()}, util.NewDiscardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { prog.Close() })

	file, err := prog.AddSource(filepath.Join(prog.Config().Root, "Button.figma.tsx"), []byte("const value = "+expr+"\n"))
	require.NoError(t, err)
	node := file.FindVariableInitializer("value")
	require.NotNil(t, node)
	return &testContext{file: file}, node
}

func mustParse(t *testing.T, expr string) *Intrinsic {
	t.Helper()
	ctx, node := parseExpr(t, expr)
	in, err := Parse(node, ctx)
	require.NoError(t, err)
	return in
}

func parseErr(t *testing.T, expr string) *program.ParserError {
	t.Helper()
	ctx, node := parseExpr(t, expr)
	_, err := Parse(node, ctx)
	require.Error(t, err)
	pe, ok := program.AsParserError(err)
	require.True(t, ok, "expected a ParserError, got %v", err)
	return pe
}

func TestParse_Enum(t *testing.T) {
	in := mustParse(t, `figma.enum("Size", { Large: "lg", Small: "sm" })`)

	assert.Equal(t, KindEnum, in.Kind)
	assert.Equal(t, "Size", in.FigmaPropName)
	assert.Equal(t, []string{"Large", "Small"}, in.ValueMapping.Keys())
	large, _ := in.ValueMapping.Get("Large")
	assert.Equal(t, literal.String("lg"), large)

	code, err := NewGenerator().IntrinsicToString(in, "")
	require.NoError(t, err)
	assert.Contains(t, code, "__properties__.enum(")
	assert.Contains(t, code, `"Large"`)
	assert.Contains(t, code, "sm")
	assert.Equal(t, "figma.currentLayer.__properties__.enum('Size', {\n\"Large\": 'lg',\n\"Small\": 'sm'})", code)

	data, err := literal.Marshal(in)
	require.NoError(t, err)
	assert.Equal(t, `{"kind":"enum","args":{"figmaPropName":"Size","valueMapping":{"Large":"lg","Small":"sm"}}}`, string(data))
}

func TestParse_EnumValueKinds(t *testing.T) {
	in := mustParse(t, `figma.enum('Variant', {
  Icon: <Icon />,
  Nested: figma.instance('Swap'),
  Handler: () => alert('hi'),
  Tpl: `+"`x ${y}`"+`,
  Member: Sizes.Large,
  Comp: Spinner,
  Nothing: undefined,
  Num: 3,
})`)

	get := func(key string) literal.Value {
		v, ok := in.ValueMapping.Get(key)
		require.True(t, ok, key)
		return v
	}
	assert.Equal(t, literal.Tagged{Type: literal.TypeJSXElement, Code: "<Icon />"}, get("Icon"))
	assert.Equal(t, &Intrinsic{Kind: KindInstance, FigmaPropName: "Swap"}, get("Nested"))
	assert.Equal(t, literal.Tagged{Type: literal.TypeFunction, Code: "() => alert('hi')"}, get("Handler"))
	assert.Equal(t, literal.Tagged{Type: literal.TypeTemplateString, Code: "x ${y}"}, get("Tpl"))
	assert.Equal(t, literal.Tagged{Type: literal.TypeIdentifier, Code: "Sizes.Large"}, get("Member"))
	assert.Equal(t, literal.Tagged{Type: literal.TypeIdentifier, Code: "Spinner"}, get("Comp"))
	assert.Equal(t, literal.Undefined{}, get("Nothing"))
	assert.Equal(t, literal.Number(3), get("Num"))

	code, err := NewGenerator().IntrinsicToString(in, "")
	require.NoError(t, err)
	assert.Contains(t, code, `"Icon": _fcc_jsxElement('<Icon />')`)
	assert.Contains(t, code, `"Nested": figma.currentLayer.__properties__.instance('Swap')`)
	assert.Contains(t, code, `"Handler": _fcc_function('() => alert(\'hi\')')`)
	assert.Contains(t, code, `"Comp": _fcc_identifier('Spinner')`)
	assert.Contains(t, code, `"Nothing": undefined`)
}

func TestParse_Boolean(t *testing.T) {
	gen := NewGenerator()

	plain := mustParse(t, `figma.boolean('Disabled')`)
	assert.Nil(t, plain.ValueMapping)
	code, err := gen.IntrinsicToString(plain, "")
	require.NoError(t, err)
	assert.Equal(t, "figma.currentLayer.__properties__.boolean('Disabled')", code)

	mapped := mustParse(t, `figma.boolean('Has Icon', { false: undefined, true: <Icon /> })`)
	code, err = gen.IntrinsicToString(mapped, "")
	require.NoError(t, err)
	assert.Equal(t, "figma.currentLayer.__properties__.boolean('Has Icon', {\n\"true\": _fcc_jsxElement('<Icon />'),\n\"false\": undefined})", code)
}

func TestParse_StringAndInstance(t *testing.T) {
	gen := NewGenerator()

	s := mustParse(t, `figma.string('Label')`)
	code, err := gen.IntrinsicToString(s, "")
	require.NoError(t, err)
	assert.Equal(t, "figma.currentLayer.__properties__.string('Label')", code)

	inst := mustParse(t, `figma.instance('Icon').getProps()`)
	require.Len(t, inst.Modifiers, 1)
	assert.Equal(t, ModifierGetProps, inst.Modifiers[0].Kind)
	code, err = gen.IntrinsicToString(inst, "")
	require.NoError(t, err)
	assert.Equal(t, "(function () {const instance = figma.currentLayer.__properties__.__instance__('Icon')\n"+
		`return instance && instance.type !== "ERROR" ? instance.__getProps__() : instance})()`, code)
}

func TestParse_RenderModifier(t *testing.T) {
	ctx, node := parseExpr(t, `figma.instance('Icon').render(({ size, color }) => <Icon size={size} color={color} />)`)
	in, err := Parse(node, ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, ctx.renderCalls)
	require.Len(t, in.Modifiers, 1)
	assert.Equal(t, ModifierRender, in.Modifiers[0].Kind)

	code, err := NewGenerator().IntrinsicToString(in, "")
	require.NoError(t, err)
	assert.Contains(t, code, "instance.__renderWithFn__(({size,color}) => figma.tsx`<Icon />`)")

	data, err := literal.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"modifiers":[{"kind":"render","args":{"renderFn":{"code":"figma.tsx`+"`<Icon />`"+`"`)
}

func TestParse_RenderWithoutJSX(t *testing.T) {
	pe := parseErr(t, `figma.instance('Icon').render(() => 'text')`)
	assert.Equal(t, "first argument to render() must be a render function that returns a single JSX element", pe.Message)

	pe = parseErr(t, `figma.instance('Icon').render(renderIcon)`)
	assert.Contains(t, pe.Message, "render()")
}

func TestParse_Children(t *testing.T) {
	single := mustParse(t, `figma.children("Label*")`)
	assert.Equal(t, []string{"Label*"}, single.Layers)

	multi := mustParse(t, `figma.children(['Tab 1', 'Tab 2'])`)
	assert.Equal(t, []string{"Tab 1", "Tab 2"}, multi.Layers)
	code, err := NewGenerator().IntrinsicToString(multi, "")
	require.NoError(t, err)
	assert.Equal(t, `figma.currentLayer.__properties__.children(["Tab 1","Tab 2"])`, code)

	pe := parseErr(t, `figma.children(["Label*", "Other"])`)
	assert.Equal(t, "Wildcards can not be used with an array of strings. Use a single string literal instead.", pe.Message)

	pe = parseErr(t, `figma.children([])`)
	assert.Equal(t, "Invalid argument to figma.children, should be a string literal or an array of strings", pe.Message)

	pe = parseErr(t, `figma.children(layerName)`)
	assert.Equal(t, "Invalid argument to figma.children, should be a string literal or an array of strings", pe.Message)
}

func TestParse_NestedProps(t *testing.T) {
	in := mustParse(t, `figma.nestedProps("Icon", { visible: figma.boolean("Visible") })`)
	assert.Equal(t, KindNestedProps, in.Kind)
	assert.Equal(t, "Icon", in.Layer)
	assert.Equal(t, []string{"visible"}, in.Props.Keys())

	pe := parseErr(t, `figma.nestedProps("Icon", { inner: figma.nestedProps("Deeper", { x: figma.string('X') }) })`)
	assert.Equal(t, "nestedProps can not be nested inside another nestedProps call, instead, pass the deeply nested layer name at the top level", pe.Message)

	pe = parseErr(t, `figma.nestedProps(name, {})`)
	assert.Equal(t, "Invalid argument to figma.nestedProps, `layerName` should be a string literal", pe.Message)

	pe = parseErr(t, `figma.nestedProps("Icon", props)`)
	assert.Equal(t, "Invalid argument to figma.nestedProps, `props` should be an object literal", pe.Message)
}

func TestGenerator_NestedLayerCounter(t *testing.T) {
	in := mustParse(t, `figma.nestedProps("Icon Slot", { label: figma.string("Label"), size: figma.enum("Size", { S: 'sm' }) })`)

	gen := NewGenerator()
	first, err := gen.IntrinsicToString(in, "")
	require.NoError(t, err)
	second, err := gen.IntrinsicToString(in, "")
	require.NoError(t, err)

	assert.Equal(t, "(function () {const nestedLayer0 = figma.currentLayer.__find__(\"Icon Slot\")\n"+
		"return nestedLayer0.type === \"ERROR\" ? nestedLayer0 : {\n"+
		"label: nestedLayer0.__properties__.string('Label')\n"+
		",size: nestedLayer0.__properties__.enum('Size', {\n\"S\": 'sm'})\n"+
		"\n        }\n})()", first)
	assert.Contains(t, second, "nestedLayer1")

	fresh, err := NewGenerator().IntrinsicToString(in, "")
	require.NoError(t, err)
	assert.Equal(t, first, fresh, "counters are per generator")
}

func TestParse_ClassNameAndTextContent(t *testing.T) {
	gen := NewGenerator()

	cls := mustParse(t, `figma.className(['btn', figma.enum('Size', { Large: 'btn-lg' }), figma.boolean('Disabled', { true: 'disabled' })])`)
	require.Len(t, cls.ClassName, 3)
	assert.Equal(t, literal.String("btn"), cls.ClassName[0])
	code, err := gen.IntrinsicToString(cls, "")
	require.NoError(t, err)
	assert.Equal(t, "[\"btn\", figma.currentLayer.__properties__.enum('Size', {\n\"Large\": 'btn-lg'}), "+
		"figma.currentLayer.__properties__.boolean('Disabled', {\n\"true\": 'disabled'})].filter(v => !!v).join(' ')", code)

	pe := parseErr(t, `figma.className('btn')`)
	assert.Equal(t, "figma.className takes an array of strings", pe.Message)

	text := mustParse(t, `figma.textContent('Title')`)
	code, err = gen.IntrinsicToString(text, "")
	require.NoError(t, err)
	assert.Equal(t, `figma.currentLayer.__findChildWithCriteria__({ name: 'Title', type: "TEXT" }).__render__()`, code)

	pe = parseErr(t, `figma.textContent()`)
	assert.Equal(t, "figma.textContent takes a single argument which is the Figma layer name", pe.Message)
}

func TestParse_ArgumentErrors(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{`figma.string()`, "figma.string takes at least one argument, which is the Figma property name"},
		{`figma.instance(name)`, "figma.instance takes at least one argument, which is the Figma property name"},
		{`figma.boolean('X', 'yes')`, "figma.boolean second argument should be an object literal, that sets values for 'true' and 'false'"},
		{`figma.enum('X')`, "figma.enum second argument should be an object literal, that maps Figma prop values to code"},
		{`figma.number('X')`, "Unknown intrinsic: figma.number('X')"},
		{`helpers.string('X')`, "Unknown intrinsic: helpers.string('X')"},
		{`figma.instance('X').getChildren()`, "Unknown modifier: figma.instance('X').getChildren()"},
	}

	for _, tc := range tests {
		t.Run(tc.expr, func(t *testing.T) {
			pe := parseErr(t, tc.expr)
			assert.Equal(t, tc.want, pe.Message)
			assert.NotNil(t, pe.Position)
		})
	}
}

func TestValueToString(t *testing.T) {
	gen := NewGenerator()

	obj := literal.NewObject()
	obj.Set("label", literal.String("it's"))

	tests := []struct {
		name  string
		value literal.Value
		want  string
	}{
		{"string escapes", literal.String("line\nit's"), `'line\nit\'s'`},
		{"opaque is quoted", literal.Opaque("a + b"), `'a + b'`},
		{"number", literal.Number(1.5), "1.5"},
		{"bool", literal.Bool(false), "false"},
		{"null", literal.Null{}, "null"},
		{"undefined", literal.Undefined{}, "undefined"},
		{"object", literal.Tagged{Type: literal.TypeObject, Value: obj}, `_fcc_object({"$value":{"label":"it\'s"},"$type":"object","label":"it\'s"})`},
		{"array", literal.Tagged{Type: literal.TypeArray, Value: literal.Array{literal.Number(1), literal.String("a")}}, `_fcc_array([1,"a"])`},
		{"template string", literal.Tagged{Type: literal.TypeTemplateString, Code: "${a}px"}, `_fcc_templateString('${a}px')`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := gen.ValueToString(tc.value, "")
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := gen.ValueToString(literal.Tagged{Type: literal.TypeReactComponent, Code: "Button"}, "")
	require.Error(t, err)
	assert.True(t, program.IsInternal(err))
}

func TestKindNames(t *testing.T) {
	assert.Equal(t, []string{"string", "boolean", "enum", "instance", "children", "nested-props", "className", "text-content"}, KindNames())
}

func TestExpression(t *testing.T) {
	sizes := literal.NewObject()
	sizes.Set("Small", literal.String("sm"))
	sizes.Set("Large", literal.Number(2))
	icon := literal.NewObject()
	icon.Set("true", &Intrinsic{Kind: KindInstance, FigmaPropName: "Icon"})
	icon.Set("false", literal.Undefined{})

	tests := []struct {
		name string
		in   *Intrinsic
		want string
	}{
		{"string", &Intrinsic{Kind: KindString, FigmaPropName: "Label"}, `figma.string("Label")`},
		{"instance", &Intrinsic{Kind: KindInstance, FigmaPropName: "Icon"}, `figma.instance("Icon")`},
		{"boolean", &Intrinsic{Kind: KindBoolean, FigmaPropName: "Disabled"}, `figma.boolean("Disabled")`},
		{"boolean mapping", &Intrinsic{Kind: KindBoolean, FigmaPropName: "Has Icon", ValueMapping: icon},
			"figma.boolean(\"Has Icon\", {\n  \"true\": figma.instance(\"Icon\"),\n  \"false\": undefined,\n})"},
		{"enum", &Intrinsic{Kind: KindEnum, FigmaPropName: "Size", ValueMapping: sizes},
			"figma.enum(\"Size\", {\n  \"Small\": \"sm\",\n  \"Large\": 2,\n})"},
		{"one child", &Intrinsic{Kind: KindChildren, Layers: []string{"Icon"}}, `figma.children("Icon")`},
		{"children", &Intrinsic{Kind: KindChildren, Layers: []string{"A", "B"}}, `figma.children(["A", "B"])`},
		{"text content", &Intrinsic{Kind: KindTextContent, Layer: "Title"}, `figma.textContent("Title")`},
		{"quotes", &Intrinsic{Kind: KindString, FigmaPropName: `Say "hi"`}, `figma.string("Say \"hi\"")`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Expression(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Expression(&Intrinsic{Kind: KindClassName})
	assert.EqualError(t, err, "kind className not supported for prop mapping")

	bad := literal.NewObject()
	bad.Set("x", literal.Tagged{Type: literal.TypeFunction, Code: "() => 1"})
	_, err = Expression(&Intrinsic{Kind: KindEnum, FigmaPropName: "Size", ValueMapping: bad})
	assert.ErrorContains(t, err, "cannot write function value")
}
