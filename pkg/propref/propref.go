// Package propref rewrites references to an example function's props into
// `__PROP__("name")` placeholders.
//
// Examples can read props in several ways:
//
//	(props) => <Button label={props.label} />
//	(props) => <Button icon={props.icon.type} />
//	(props) => <Button label={props["label"]} />
//	({ label }) => <Button label={label} />
//	({ label, ...rest }) => <Button {...rest} />
//
// All of them end up as the same placeholder, which template generation
// then turns into a runtime helper call. Rewrites are recorded as byte
// range edits over the original source; the tree is never re-printed.
package propref

import (
	"fmt"
	"sort"
	"strings"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/gnana997/codeconnect/pkg/ast"
	"github.com/gnana997/codeconnect/pkg/literal"
	"github.com/gnana997/codeconnect/pkg/program"
)

// PlaceholderFunc is the name of the placeholder call.
const PlaceholderFunc = "__PROP__"

// Params describes the props parameter of an example function: a plain
// identifier, or a destructuring pattern with its bound names.
type Params struct {
	// Identifier is set for `(props) => ...`.
	Identifier string
	// Bindings are the local names bound by `({ a, b: c }) => ...`.
	Bindings []string
	// Rest is the name of a `...rest` binding, if any.
	Rest string
}

// Destructured reports whether the props are destructured.
func (p Params) Destructured() bool {
	return p.Identifier == "" && (len(p.Bindings) > 0 || p.Rest != "")
}

// Binds reports whether name is one of the destructured bindings, the rest
// binding included.
func (p Params) Binds(name string) bool {
	if name == "" {
		return false
	}
	if name == p.Rest {
		return true
	}
	for _, b := range p.Bindings {
		if b == name {
			return true
		}
	}
	return false
}

// ParamsOf reads the props parameter of a function. A nil param yields
// empty Params, which match nothing.
func ParamsOf(param *ts.Node, src []byte) Params {
	pattern := ast.ParameterPattern(param)
	if pattern == nil {
		return Params{}
	}

	switch pattern.Kind() {
	case ast.KindIdentifier:
		return Params{Identifier: ast.Text(pattern, src)}
	case "object_pattern":
		var p Params
		for _, el := range ast.NamedChildren(pattern) {
			switch el.Kind() {
			case "shorthand_property_identifier_pattern":
				p.Bindings = append(p.Bindings, ast.Text(el, src))
			case "pair_pattern":
				p.Bindings = append(p.Bindings, bindingName(el.ChildByFieldName("value"), src))
			case "object_assignment_pattern":
				p.Bindings = append(p.Bindings, bindingName(el.ChildByFieldName("left"), src))
			case "rest_pattern":
				p.Rest = ast.Text(ast.FirstNamedChild(el), src)
			}
		}
		return p
	}
	return Params{}
}

func bindingName(n *ts.Node, src []byte) string {
	if n == nil {
		return ""
	}
	if n.Kind() == "assignment_pattern" {
		n = n.ChildByFieldName("left")
	}
	return ast.Text(n, src)
}

// Tracker creates placeholders and records which props they reference.
//
// Each referenced prop is recorded once, by the first segment of its name
// (`icon` for `icon.type`). When the Tracker has a props mapping, a
// reference to a prop it does not declare is a ParserError.
type Tracker struct {
	file       *program.SourceFile
	mappings   *literal.Object
	referenced []string
	seen       map[string]bool
}

// NewTracker creates a Tracker. mappings may be nil when the example has no
// props object.
func NewTracker(file *program.SourceFile, mappings *literal.Object) *Tracker {
	return &Tracker{file: file, mappings: mappings, seen: make(map[string]bool)}
}

// Placeholder returns the placeholder for name, wrapped in braces when it
// replaces a JSX expression.
func (t *Tracker) Placeholder(name string, node *ts.Node, wrapJSX bool) (string, error) {
	ref, _, _ := strings.Cut(name, ".")
	if t.mappings != nil {
		if _, ok := t.mappings.Get(ref); !ok {
			return "", program.Errorf(t.file, node, "Could not find prop mapping for %s in the props object", ref)
		}
	}
	t.Add(ref)

	placeholder := fmt.Sprintf("%s(%q)", PlaceholderFunc, name)
	if wrapJSX {
		return "{" + placeholder + "}", nil
	}
	return placeholder, nil
}

// Add records name as referenced.
func (t *Tracker) Add(name string) {
	if t.seen[name] {
		return
	}
	t.seen[name] = true
	t.referenced = append(t.referenced, name)
}

// Referenced returns the referenced props in first-reference order.
func (t *Tracker) Referenced() []string {
	return t.referenced
}

// Mappings returns the props mapping the Tracker validates against.
func (t *Tracker) Mappings() *literal.Object {
	return t.mappings
}

// Edit replaces the source bytes [Start, End) with Text.
type Edit struct {
	Start uint
	End   uint
	Text  string
}

// Apply returns src[start:end] with edits applied. Edits must lie within
// the range and must not overlap.
func Apply(src []byte, start, end uint, edits []Edit) string {
	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var b strings.Builder
	b.Grow(int(end - start))
	pos := start
	for _, e := range sorted {
		if e.Start < pos || e.End > end {
			continue
		}
		b.Write(src[pos:e.Start])
		b.WriteString(e.Text)
		pos = e.End
	}
	b.Write(src[pos:end])
	return b.String()
}

// ApplyNode returns the text of node with edits applied.
func ApplyNode(src []byte, node *ts.Node, edits []Edit) string {
	return Apply(src, node.StartByte(), node.EndByte(), edits)
}

func replace(node *ts.Node, text string) Edit {
	return Edit{Start: node.StartByte(), End: node.EndByte(), Text: text}
}
