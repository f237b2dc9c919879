// Package ast holds small tree-sitter node helpers shared by the program
// model, the value converter and every front end.
//
// All helpers are nil-safe: passing a nil node returns the zero value.
package ast

import (
	"strconv"
	"strings"

	ts "github.com/tree-sitter/go-tree-sitter"
)

// Node kinds referenced across packages.
const (
	KindProgram         = "program"
	KindIdentifier      = "identifier"
	KindString          = "string"
	KindTemplateString  = "template_string"
	KindNumber          = "number"
	KindObject          = "object"
	KindArray           = "array"
	KindPair            = "pair"
	KindShorthand       = "shorthand_property_identifier"
	KindSpread          = "spread_element"
	KindCall            = "call_expression"
	KindMember          = "member_expression"
	KindSubscript       = "subscript_expression"
	KindArrowFunction   = "arrow_function"
	KindFunctionExpr    = "function_expression"
	KindFunctionDecl    = "function_declaration"
	KindVariableDecl    = "variable_declarator"
	KindStatementBlock  = "statement_block"
	KindReturnStatement = "return_statement"
	KindJSXElement      = "jsx_element"
	KindJSXSelfClosing  = "jsx_self_closing_element"
	KindJSXFragment     = "jsx_fragment"
	KindJSXExpression   = "jsx_expression"
	KindJSXAttribute    = "jsx_attribute"
	KindJSXOpening      = "jsx_opening_element"
	KindComment         = "comment"
)

// Children returns every child of n, anonymous tokens included.
func Children(n *ts.Node) []*ts.Node {
	if n == nil {
		return nil
	}
	count := n.ChildCount()
	out := make([]*ts.Node, 0, count)
	for i := uint(0); i < count; i++ {
		if child := n.Child(i); child != nil {
			out = append(out, child)
		}
	}
	return out
}

// NamedChildren returns the named children of n, skipping comments.
func NamedChildren(n *ts.Node) []*ts.Node {
	if n == nil {
		return nil
	}
	count := n.NamedChildCount()
	out := make([]*ts.Node, 0, count)
	for i := uint(0); i < count; i++ {
		child := n.NamedChild(i)
		if child == nil || child.Kind() == KindComment {
			continue
		}
		out = append(out, child)
	}
	return out
}

// FirstNamedChild returns the first non-comment named child of n.
func FirstNamedChild(n *ts.Node) *ts.Node {
	children := NamedChildren(n)
	if len(children) == 0 {
		return nil
	}
	return children[0]
}

// HasChildToken reports whether n has an anonymous child with the given text
// (e.g. the "?" of an optional property signature).
func HasChildToken(n *ts.Node, kind string) bool {
	for _, child := range Children(n) {
		if !child.IsNamed() && child.Kind() == kind {
			return true
		}
	}
	return false
}

// Unwrap strips parentheses and TypeScript-only expression wrappers
// (`x as T`, `x satisfies T`, `x!`) until a plain expression is reached.
func Unwrap(n *ts.Node) *ts.Node {
	for n != nil {
		switch n.Kind() {
		case "parenthesized_expression", "as_expression", "satisfies_expression", "non_null_expression":
			inner := FirstNamedChild(n)
			if inner == nil {
				return n
			}
			n = inner
		default:
			return n
		}
	}
	return n
}

// Same reports whether a and b are the same node.
func Same(a, b *ts.Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equals(*b)
}

// Text returns the source text of n.
func Text(n *ts.Node, src []byte) string {
	if n == nil {
		return ""
	}
	return n.Utf8Text(src)
}

// IsStringLiteral reports whether n is a quoted string literal.
func IsStringLiteral(n *ts.Node) bool {
	return n != nil && n.Kind() == KindString
}

// IsUndefined reports whether n is the `undefined` value.
func IsUndefined(n *ts.Node, src []byte) bool {
	if n == nil {
		return false
	}
	switch n.Kind() {
	case "undefined":
		return true
	case KindIdentifier:
		return n.Utf8Text(src) == "undefined"
	}
	return false
}

// IsFunctionLike reports whether n is an arrow function or function expression.
func IsFunctionLike(n *ts.Node) bool {
	if n == nil {
		return false
	}
	switch n.Kind() {
	case KindArrowFunction, KindFunctionExpr, "function":
		return true
	}
	return false
}

// IsJSX reports whether n is a JSX element, self-closing element or fragment.
func IsJSX(n *ts.Node) bool {
	if n == nil {
		return false
	}
	switch n.Kind() {
	case KindJSXElement, KindJSXSelfClosing, KindJSXFragment:
		return true
	}
	return false
}

// IsTaggedTemplate reports whether n is a tagged template such as html`...`.
func IsTaggedTemplate(n *ts.Node) bool {
	if n == nil || n.Kind() != KindCall {
		return false
	}
	args := n.ChildByFieldName("arguments")
	return args != nil && args.Kind() == KindTemplateString
}

// TaggedTemplate returns the tag and template of a tagged template call.
func TaggedTemplate(n *ts.Node) (tag, template *ts.Node) {
	if !IsTaggedTemplate(n) {
		return nil, nil
	}
	return n.ChildByFieldName("function"), n.ChildByFieldName("arguments")
}

// StringValue returns the cooked value of a string literal: quotes removed
// and escape sequences decoded.
func StringValue(n *ts.Node, src []byte) string {
	if n == nil {
		return ""
	}
	return Unquote(n.Utf8Text(src))
}

// Unquote strips one pair of matching quotes (', " or `) from text and
// decodes escape sequences. Text that is not quoted is returned unchanged.
func Unquote(text string) string {
	if len(text) < 2 {
		return text
	}
	first, last := text[0], text[len(text)-1]
	if first != last || (first != '\'' && first != '"' && first != '`') {
		return text
	}
	return unescape(text[1 : len(text)-1])
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '0':
			b.WriteByte(0)
		case '\n':
			// line continuation
		case 'u':
			if r, n := decodeUnicodeEscape(s[i+1:]); n > 0 {
				b.WriteRune(r)
				i += n
				continue
			}
			b.WriteByte('u')
		case 'x':
			if i+2 < len(s) {
				if v, err := strconv.ParseUint(s[i+1:i+3], 16, 8); err == nil {
					b.WriteByte(byte(v))
					i += 2
					continue
				}
			}
			b.WriteByte('x')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// decodeUnicodeEscape decodes the part after `\u`: either XXXX or {X...}.
func decodeUnicodeEscape(s string) (rune, int) {
	if strings.HasPrefix(s, "{") {
		end := strings.IndexByte(s, '}')
		if end < 0 {
			return 0, 0
		}
		v, err := strconv.ParseUint(s[1:end], 16, 32)
		if err != nil {
			return 0, 0
		}
		return rune(v), end + 1
	}
	if len(s) < 4 {
		return 0, 0
	}
	v, err := strconv.ParseUint(s[:4], 16, 32)
	if err != nil {
		return 0, 0
	}
	return rune(v), 4
}

// TemplateText returns the text of a template literal without its backticks.
// Substitutions are kept verbatim.
func TemplateText(n *ts.Node, src []byte) string {
	text := Text(n, src)
	if len(text) >= 2 && text[0] == '`' && text[len(text)-1] == '`' {
		return text[1 : len(text)-1]
	}
	return text
}

// PropertyKey returns the name of an object key: identifiers as written,
// string literals unquoted. ok is false for computed keys.
func PropertyKey(key *ts.Node, src []byte) (string, bool) {
	if key == nil {
		return "", false
	}
	switch key.Kind() {
	case "property_identifier", KindIdentifier, "shorthand_property_identifier", "private_property_identifier":
		return key.Utf8Text(src), true
	case KindString:
		return StringValue(key, src), true
	case KindNumber:
		return key.Utf8Text(src), true
	}
	return "", false
}

// CallArguments returns the argument expressions of a call.
func CallArguments(call *ts.Node) []*ts.Node {
	if call == nil {
		return nil
	}
	args := call.ChildByFieldName("arguments")
	if args == nil || args.Kind() == KindTemplateString {
		return nil
	}
	return NamedChildren(args)
}

// Callee returns the function part of a call expression.
func Callee(call *ts.Node) *ts.Node {
	if call == nil || call.Kind() != KindCall {
		return nil
	}
	return call.ChildByFieldName("function")
}

// FunctionParameters returns the parameter nodes of an arrow function,
// function expression or function declaration. A bare arrow parameter
// (`x => ...`) is returned as a single identifier.
func FunctionParameters(fn *ts.Node) []*ts.Node {
	if fn == nil {
		return nil
	}
	if single := fn.ChildByFieldName("parameter"); single != nil {
		return []*ts.Node{single}
	}
	return NamedChildren(fn.ChildByFieldName("parameters"))
}

// FunctionBody returns the body of a function-like node.
func FunctionBody(fn *ts.Node) *ts.Node {
	if fn == nil {
		return nil
	}
	return fn.ChildByFieldName("body")
}

// ParameterPattern returns the binding part of a parameter: the pattern of a
// TypeScript required/optional parameter, or the node itself.
func ParameterPattern(param *ts.Node) *ts.Node {
	if param == nil {
		return nil
	}
	switch param.Kind() {
	case "required_parameter", "optional_parameter":
		if pattern := param.ChildByFieldName("pattern"); pattern != nil {
			return pattern
		}
	case "assignment_pattern":
		if left := param.ChildByFieldName("left"); left != nil {
			return left
		}
	}
	return param
}

// ParameterType returns the type node of a parameter annotation
// (`props: ButtonProps` yields ButtonProps), or nil.
func ParameterType(param *ts.Node) *ts.Node {
	if param == nil {
		return nil
	}
	annotation := param.ChildByFieldName("type")
	if annotation == nil {
		return nil
	}
	if annotation.Kind() == "type_annotation" {
		return FirstNamedChild(annotation)
	}
	return annotation
}

// BFS visits n and its descendants breadth first, anonymous tokens
// included. Returning true from visit stops the walk and returns that node.
func BFS(root *ts.Node, visit func(*ts.Node) bool) *ts.Node {
	if root == nil {
		return nil
	}
	queue := []*ts.Node{root}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if visit(n) {
			return n
		}
		queue = append(queue, Children(n)...)
	}
	return nil
}

// DFS visits n and its descendants depth first in document order.
// Returning true from visit stops the walk and returns that node.
func DFS(root *ts.Node, visit func(*ts.Node) bool) *ts.Node {
	if root == nil {
		return nil
	}
	if visit(root) {
		return root
	}
	for _, child := range Children(root) {
		if found := DFS(child, visit); found != nil {
			return found
		}
	}
	return nil
}

// Depth returns the number of ancestors of n.
func Depth(n *ts.Node) int {
	if n == nil {
		return 0
	}
	depth := 0
	for p := n.Parent(); p != nil; p = p.Parent() {
		depth++
	}
	return depth
}

// JSXTagName returns the tag name of a JSX element or self-closing element
// (`Button`, `DS.Button`), or "" for fragments.
func JSXTagName(n *ts.Node, src []byte) string {
	if n == nil {
		return ""
	}
	switch n.Kind() {
	case KindJSXElement:
		open := n.ChildByFieldName("open_tag")
		if open == nil {
			open = FirstNamedChild(n)
		}
		if open == nil {
			return ""
		}
		return Text(open.ChildByFieldName("name"), src)
	case KindJSXSelfClosing, KindJSXOpening:
		return Text(n.ChildByFieldName("name"), src)
	}
	return ""
}
