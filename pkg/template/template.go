// Package template assembles the JavaScript template a Code Connect document
// carries. A template is a small CommonJS module executed by the Figma
// template runtime: it requires the `figma` API, binds every mapped prop to a
// variable and default-exports the rendered example.
//
// The layout of every template is:
//
//	<runtime helpers>
//
//	const figma = require('figma')
//
//	const label = figma.currentLayer.__properties__.string('Label')
//	const __props = {}
//	if (label && label.type !== 'ERROR') {
//	  __props["label"] = label
//	}
//
//	export default { ...figma.tsx`<Button label="${label}" />`, metadata: { __props } }
package template

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"github.com/gnana997/codeconnect/pkg/intrinsics"
	"github.com/gnana997/codeconnect/pkg/literal"
)

//go:embed runtime/react.js
var reactRuntime string

//go:embed runtime/html.js
var htmlRuntime string

// Require loads the template API.
const Require = "const figma = require('figma')"

// ReactHelpers returns the runtime helpers injected into React templates.
func ReactHelpers() string {
	return strings.TrimRight(reactRuntime, "\n")
}

// HTMLHelpers returns the runtime helpers injected into HTML templates.
func HTMLHelpers() string {
	return strings.TrimRight(htmlRuntime, "\n")
}

// Tag selects the template function the example is rendered with.
type Tag int

const (
	// TagTSX renders the example with figma.tsx`...`.
	TagTSX Tag = iota
	// TagHTML renders the example with figma.html`...`.
	TagHTML
	// TagValue renders the example with figma.value(...). The body is the
	// argument list, not template text.
	TagValue
)

// Wrap returns body as a call to the tag's template function.
func (t Tag) Wrap(body string) string {
	switch t {
	case TagHTML:
		return "figma.html`" + body + "`"
	case TagValue:
		return "figma.value(" + body + ")"
	default:
		return "figma.tsx`" + body + "`"
	}
}

// ReferencedPropsHeader binds each mapped prop to a variable holding its
// rendered accessor, then collects the ones that did not fail into
// `__props`. It returns "" when there are no mappings.
func ReferencedPropsHeader(gen *intrinsics.Generator, mappings *literal.Object) (string, error) {
	if mappings == nil || mappings.Len() == 0 {
		return "", nil
	}

	var b strings.Builder
	err := mappings.Each(func(key string, value literal.Value) error {
		code, err := gen.ValueToString(value, "")
		if err != nil {
			return fmt.Errorf("render prop %s: %w", key, err)
		}
		fmt.Fprintf(&b, "const %s = %s\n", key, code)
		return nil
	})
	if err != nil {
		return "", err
	}

	b.WriteString("const __props = {}\n")
	for _, key := range mappings.Keys() {
		fmt.Fprintf(&b, "if (%s && %s.type !== 'ERROR') {\n  __props[\"%s\"] = %s\n}\n", key, key, key, key)
	}
	b.WriteString("\n")
	return b.String(), nil
}

// Assembly is the input to Assemble.
type Assembly struct {
	// Helpers is the runtime helper source, ReactHelpers or HTMLHelpers.
	Helpers string
	// Header is the output of ReferencedPropsHeader.
	Header string
	// Example is the wrapped example, e.g. Tag.Wrap(code).
	Example string
	// Metadata exports the collected props alongside the example. It should
	// be set whenever the example has prop mappings.
	Metadata bool
}

// Assemble returns the full template text.
func Assemble(a Assembly) string {
	var b strings.Builder
	b.WriteString(a.Helpers)
	b.WriteString("\n\n")
	b.WriteString(Require)
	b.WriteString("\n\n")
	b.WriteString(a.Header)
	if a.Metadata {
		b.WriteString("export default { ..." + a.Example + ", metadata: { __props } }\n")
	} else {
		b.WriteString("export default " + a.Example + "\n")
	}
	return b.String()
}

// DefaultReactTemplate is the template of a React document without an
// example: the component rendered without props.
func DefaultReactTemplate(component string) string {
	return "const figma = require(\"figma\")\n\nexport default figma.tsx`<" + component + " />`"
}

var (
	reactPropPlaceholder     = regexp.MustCompile(`(\s+)([A-Za-z0-9\-]+)=\{__PROP__\("([A-Za-z0-9_\.]+)"\)\}`)
	reactChildrenPlaceholder = regexp.MustCompile(`\{__PROP__\("([A-Za-z0-9_\.]+)"\)\}`)
	valuePlaceholder         = regexp.MustCompile(`__PROP__\("([A-Za-z0-9_\.]+)"\)`)
)

// ReplaceReactPlaceholders turns the placeholders left in JSX example code
// into runtime helper calls:
//
//	 label={__PROP__("label")}  ->  ${_fcc_renderReactProp('label', label)}
//	{__PROP__("children")}      ->  ${_fcc_renderReactChildren(children)}
//	__PROP__("size")            ->  ${_fcc_renderPropValue(size)}
//
// Attribute names may contain hyphens so HTML attributes in JSX are matched.
// The helper renders its own leading space, so whitespace before an
// attribute is dropped unless it breaks the line.
func ReplaceReactPlaceholders(code string) string {
	code = reactPropPlaceholder.ReplaceAllStringFunc(code, func(match string) string {
		m := reactPropPlaceholder.FindStringSubmatch(match)
		ws := m[1]
		if i := strings.LastIndexByte(ws, '\n'); i >= 0 {
			ws = ws[:i+1] + strings.TrimRight(ws[i+1:], " ")
		} else {
			ws = ""
		}
		return ws + "${_fcc_renderReactProp('" + m[2] + "', " + m[3] + ")}"
	})
	code = reactChildrenPlaceholder.ReplaceAllString(code, "$${_fcc_renderReactChildren($1)}")
	return valuePlaceholder.ReplaceAllString(code, "$${_fcc_renderPropValue($1)}")
}

// EscapeTemplateString escapes backticks so code can be embedded in a
// figma.tsx template literal. Interpolations are left alone, since they are
// the helper calls inserted by ReplaceReactPlaceholders.
func EscapeTemplateString(code string) string {
	return strings.ReplaceAll(code, "`", "\\`")
}

// EscapeHTMLTemplate escapes backticks and `${` so literal HTML can be
// embedded in a figma.html template literal.
func EscapeHTMLTemplate(code string) string {
	code = strings.ReplaceAll(code, "`", "\\`")
	return strings.ReplaceAll(code, "${", "\\${")
}
