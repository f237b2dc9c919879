package template

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/codeconnect/pkg/intrinsics"
	"github.com/gnana997/codeconnect/pkg/literal"
)

func TestReplaceReactPlaceholders(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{
			name: "attribute",
			code: `<Button label={__PROP__("label")} />`,
			want: "<Button${_fcc_renderReactProp('label', label)} />",
		},
		{
			name: "hyphenated attribute",
			code: `<button aria-label={__PROP__("label")} />`,
			want: "<button${_fcc_renderReactProp('aria-label', label)} />",
		},
		{
			name: "tab before attribute",
			code: "<Button\tlabel={__PROP__(\"label\")} />",
			want: "<Button${_fcc_renderReactProp('label', label)} />",
		},
		{
			name: "attribute on its own line",
			code: "<Button\n\t\tdisabled={__PROP__(\"disabled\")}\n\t>",
			want: "<Button\n\t\t${_fcc_renderReactProp('disabled', disabled)}\n\t>",
		},
		{
			name: "indented attributes",
			code: "<Button\n    label={__PROP__(\"label\")}\n    size={__PROP__(\"size\")}\n  />",
			want: "<Button\n${_fcc_renderReactProp('label', label)}\n${_fcc_renderReactProp('size', size)}\n  />",
		},
		{
			name: "spread expansion",
			code: `<Button  label={__PROP__("label")} size={__PROP__("size")} />`,
			want: "<Button${_fcc_renderReactProp('label', label)}${_fcc_renderReactProp('size', size)} />",
		},
		{
			name: "children",
			code: `<Button>{__PROP__("text")}</Button>`,
			want: "<Button>${_fcc_renderReactChildren(text)}</Button>",
		},
		{
			name: "value",
			code: `<Button style={{ width: __PROP__("size") }} />`,
			want: "<Button style={{ width: ${_fcc_renderPropValue(size)} }} />",
		},
		{
			name: "nested name",
			code: `<Icon type={__PROP__("icon.type")} />`,
			want: "<Icon${_fcc_renderReactProp('type', icon.type)} />",
		},
		{
			name: "no placeholders",
			code: `<Button />`,
			want: `<Button />`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReplaceReactPlaceholders(tt.code))
		})
	}
}

func TestEscape(t *testing.T) {
	assert.Equal(t, "a \\`b\\` ${c}", EscapeTemplateString("a `b` ${c}"))
	assert.Equal(t, "a \\`b\\` \\${c}", EscapeHTMLTemplate("a `b` ${c}"))
}

func TestReferencedPropsHeader(t *testing.T) {
	mappings := literal.NewObject()
	mappings.Set("label", &intrinsics.Intrinsic{Kind: intrinsics.KindString, FigmaPropName: "Label"})
	mappings.Set("disabled", &intrinsics.Intrinsic{Kind: intrinsics.KindBoolean, FigmaPropName: "Disabled"})

	header, err := ReferencedPropsHeader(intrinsics.NewGenerator(), mappings)
	require.NoError(t, err)

	want := "const label = figma.currentLayer.__properties__.string('Label')\n" +
		"const disabled = figma.currentLayer.__properties__.boolean('Disabled')\n" +
		"const __props = {}\n" +
		"if (label && label.type !== 'ERROR') {\n  __props[\"label\"] = label\n}\n" +
		"if (disabled && disabled.type !== 'ERROR') {\n  __props[\"disabled\"] = disabled\n}\n" +
		"\n"
	assert.Equal(t, want, header)
}

func TestReferencedPropsHeader_Empty(t *testing.T) {
	header, err := ReferencedPropsHeader(intrinsics.NewGenerator(), nil)
	require.NoError(t, err)
	assert.Empty(t, header)

	header, err = ReferencedPropsHeader(intrinsics.NewGenerator(), literal.NewObject())
	require.NoError(t, err)
	assert.Empty(t, header)
}

func TestAssemble(t *testing.T) {
	t.Run("with metadata", func(t *testing.T) {
		code := Assemble(Assembly{
			Helpers:  "function h() {}",
			Header:   "const __props = {}\n\n",
			Example:  TagTSX.Wrap("<Button />"),
			Metadata: true,
		})
		assert.Equal(t, "function h() {}\n\nconst figma = require('figma')\n\nconst __props = {}\n\nexport default { ...figma.tsx`<Button />`, metadata: { __props } }\n", code)
	})

	t.Run("without metadata", func(t *testing.T) {
		code := Assemble(Assembly{Helpers: "function h() {}", Example: TagValue.Wrap(`"Button"`)})
		assert.Equal(t, "function h() {}\n\nconst figma = require('figma')\n\nexport default figma.value(\"Button\")\n", code)
	})

	t.Run("html", func(t *testing.T) {
		code := Assemble(Assembly{Helpers: HTMLHelpers(), Example: TagHTML.Wrap("<my-button></my-button>")})
		assert.True(t, strings.HasSuffix(code, "export default figma.html`<my-button></my-button>`\n"))
	})
}

func TestHelpers(t *testing.T) {
	react := ReactHelpers()
	for _, fn := range []string{
		"_fcc_renderReactProp", "_fcc_renderReactChildren", "_fcc_jsxElement", "_fcc_function",
		"_fcc_identifier", "_fcc_object", "_fcc_templateString", "_fcc_renderPropValue",
		"_fcc_stringifyObject", "_fcc_reactComponent", "_fcc_array", "isReactComponentArray",
	} {
		assert.Contains(t, react, "function "+fn+"(", fn)
	}
	assert.False(t, strings.HasSuffix(react, "\n"))

	html := HTMLHelpers()
	assert.Contains(t, html, "function _fcc_renderHtmlAttribute(")
	assert.Contains(t, html, "function _fcc_renderHtmlValue(")
}

func TestDefaultReactTemplate(t *testing.T) {
	assert.Equal(t, "const figma = require(\"figma\")\n\nexport default figma.tsx`<Button />`", DefaultReactTemplate("Button"))
}
