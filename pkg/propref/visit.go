package propref

import (
	"strings"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/gnana997/codeconnect/pkg/ast"
)

// Visit returns the placeholder replacing node when node is a props
// reference:
//
//  1. props.name
//  2. props.nested.name (two levels; deeper chains match at their
//     two-level prefix and keep the rest as member access)
//  3. props["name"]
//  4. a destructured binding; in JSX mode only a JSX expression `{name}`
//     matches, and the placeholder keeps its braces
//
// ok is false when node is none of these.
func Visit(node *ts.Node, params Params, tracker *Tracker, jsx bool) (placeholder string, ok bool, err error) {
	src := tracker.file.Source

	if params.Identifier != "" {
		switch node.Kind() {
		case ast.KindMember:
			name, matched := memberPropName(node, params.Identifier, src)
			if !matched {
				return "", false, nil
			}
			p, err := tracker.Placeholder(name, node, false)
			return p, err == nil, err

		case ast.KindSubscript:
			object := node.ChildByFieldName("object")
			index := ast.Unwrap(node.ChildByFieldName("index"))
			if object == nil || object.Kind() != ast.KindIdentifier || ast.Text(object, src) != params.Identifier || !ast.IsStringLiteral(index) {
				return "", false, nil
			}
			p, err := tracker.Placeholder(ast.StringValue(index, src), node, false)
			return p, err == nil, err
		}
		return "", false, nil
	}

	if !params.Destructured() {
		return "", false, nil
	}

	target := node
	if jsx {
		if node.Kind() != ast.KindJSXExpression {
			return "", false, nil
		}
		target = ast.FirstNamedChild(node)
	} else if node.Kind() != ast.KindMember && node.Kind() != ast.KindIdentifier {
		return "", false, nil
	}
	if target == nil || !params.Binds(rootIdentifier(target, src)) {
		return "", false, nil
	}

	p, err := tracker.Placeholder(ast.Text(target, src), node, jsx)
	return p, err == nil, err
}

// memberPropName matches `props.a` and `props.a.b`, returning "a" or "a.b".
func memberPropName(node *ts.Node, props string, src []byte) (string, bool) {
	object := node.ChildByFieldName("object")
	property := ast.Text(node.ChildByFieldName("property"), src)
	if object == nil || property == "" {
		return "", false
	}

	switch object.Kind() {
	case ast.KindIdentifier:
		if ast.Text(object, src) == props {
			return property, true
		}
	case ast.KindMember:
		inner := object.ChildByFieldName("object")
		if inner != nil && inner.Kind() == ast.KindIdentifier && ast.Text(inner, src) == props {
			return ast.Text(object.ChildByFieldName("property"), src) + "." + property, true
		}
	}
	return "", false
}

// rootIdentifier returns the identifier an expression such as `a.b.c` or
// `a` starts with, or "" for anything else.
func rootIdentifier(n *ts.Node, src []byte) string {
	for n != nil {
		switch n.Kind() {
		case ast.KindIdentifier:
			return ast.Text(n, src)
		case ast.KindMember:
			n = n.ChildByFieldName("object")
		default:
			return ""
		}
	}
	return ""
}

// Rewriter collects the edits that normalise the props references inside
// an example function body.
type Rewriter struct {
	Params  Params
	Tracker *Tracker
	// JSX selects JSX mode: destructured bindings are only replaced inside
	// JSX expressions, and `{...props}` spreads on JSX elements are expanded.
	JSX bool
}

// Collect walks node and returns the edits to apply to its source range.
func (r *Rewriter) Collect(node *ts.Node) ([]Edit, error) {
	var edits []Edit
	if err := r.walk(node, &edits); err != nil {
		return nil, err
	}
	return edits, nil
}

// Rewrite returns the source of node with props references replaced.
func (r *Rewriter) Rewrite(node *ts.Node) (string, error) {
	edits, err := r.Collect(node)
	if err != nil {
		return "", err
	}
	return ApplyNode(r.Tracker.file.Source, node, edits), nil
}

func (r *Rewriter) walk(node *ts.Node, edits *[]Edit) error {
	src := r.Tracker.file.Source

	placeholder, ok, err := Visit(node, r.Params, r.Tracker, r.JSX)
	if err != nil {
		return err
	}
	if ok {
		*edits = append(*edits, replace(node, placeholder))
		return nil
	}

	if r.Params.Destructured() {
		switch node.Kind() {
		case ast.KindPair:
			// prop={{ key: value }}
			value := node.ChildByFieldName("value")
			if value != nil && value.Kind() == ast.KindIdentifier && r.Params.Binds(ast.Text(value, src)) {
				p, err := r.Tracker.Placeholder(ast.Text(value, src), node, false)
				if err != nil {
					return err
				}
				*edits = append(*edits, replace(value, p))
				return nil
			}
		case ast.KindShorthand:
			// prop={{ value }}
			name := ast.Text(node, src)
			if r.Params.Binds(name) {
				p, err := r.Tracker.Placeholder(name, node, false)
				if err != nil {
					return err
				}
				*edits = append(*edits, replace(node, name+": "+p))
				return nil
			}
		}
	}

	if r.JSX {
		if attrs, ok, err := r.spreadAttributes(node); err != nil {
			return err
		} else if ok {
			*edits = append(*edits, replace(node, attrs))
			return nil
		}
	}

	for _, child := range ast.Children(node) {
		if err := r.walk(child, edits); err != nil {
			return err
		}
	}
	return nil
}

// spreadAttributes expands `{...props}` (or `{...rest}` for a destructured
// rest binding) on a JSX element into one placeholder attribute per mapped
// prop. Props destructured by name are left out, since the example passes
// them explicitly. Every mapped prop counts as referenced. Each attribute
// carries its own leading space, so the spread may follow a line break.
func (r *Rewriter) spreadAttributes(node *ts.Node) (string, bool, error) {
	if node.Kind() != ast.KindJSXExpression {
		return "", false, nil
	}
	spread := ast.FirstNamedChild(node)
	if spread == nil || spread.Kind() != ast.KindSpread {
		return "", false, nil
	}
	parent := node.Parent()
	if parent == nil || (parent.Kind() != ast.KindJSXOpening && parent.Kind() != ast.KindJSXSelfClosing) {
		return "", false, nil
	}

	src := r.Tracker.file.Source
	arg := ast.FirstNamedChild(spread)
	if arg == nil || arg.Kind() != ast.KindIdentifier {
		return "", false, nil
	}
	name := ast.Text(arg, src)
	switch {
	case r.Params.Identifier != "" && name == r.Params.Identifier:
	case r.Params.Rest != "" && name == r.Params.Rest:
	default:
		return "", false, nil
	}

	mappings := r.Tracker.Mappings()
	if mappings == nil {
		return "", true, nil
	}
	var attrs []string
	for _, key := range mappings.Keys() {
		if r.Params.Identifier == "" && r.Params.Binds(key) && key != r.Params.Rest {
			continue
		}
		p, err := r.Tracker.Placeholder(key, node, true)
		if err != nil {
			return "", false, err
		}
		attrs = append(attrs, " "+key+"="+p)
	}
	for _, key := range mappings.Keys() {
		r.Tracker.Add(key)
	}
	return strings.Join(attrs, ""), true, nil
}
