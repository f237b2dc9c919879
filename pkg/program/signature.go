package program

import (
	"fmt"
	"strings"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/gnana997/codeconnect/pkg/ast"
)

// reactInterfaceNames are the React DOM prop interfaces whose members are
// never part of a component's own signature.
var reactInterfaceNames = map[string]bool{
	"HTMLAttributes": true,
	"Attributes":     true,
	"AriaAttributes": true,
	"DOMAttributes":  true,
}

// ignoredReactProps are managed by React itself.
var ignoredReactProps = map[string]bool{"ref": true, "key": true}

// SignatureProp is one flattened prop: its name and type text. Optional
// props have a "?" prefix on the type with `undefined | ` removed.
type SignatureProp struct {
	Name string
	Type string
}

// Signature is the flattened props signature of a component, in
// declaration order (inherited props first, own props last; a prop
// redeclared later replaces the earlier entry in place).
type Signature []SignatureProp

// Map returns the signature as a name to type map.
func (s Signature) Map() map[string]string {
	out := make(map[string]string, len(s))
	for _, p := range s {
		out[p.Name] = p.Type
	}
	return out
}

func (s *Signature) set(name, typ string) {
	for i := range *s {
		if (*s)[i].Name == name {
			(*s)[i].Type = typ
			return
		}
	}
	*s = append(*s, SignatureProp{Name: name, Type: typ})
}

// ExtractFlattenedSignature returns the props signature of the component
// exported (or declared) as componentName in the file at path. Use
// "default" for the default export.
//
// The props type is found from the first parameter's annotation, from
// `FC<P>` style variable annotations, or from `forwardRef<R, P>` type
// arguments. Interfaces, `extends` clauses, intersections and type aliases
// are flattened across imports; a top-level union collapses to its first
// member. A props type that is not an object shape yields a plain error,
// not a ParserError.
func (p *Program) ExtractFlattenedSignature(path, componentName string) (Signature, error) {
	file, err := p.File(path)
	if err != nil {
		return nil, err
	}

	decl := file.ExportedDeclaration(componentName)
	if decl == nil && componentName != "default" {
		decl = file.FindDeclaration(componentName)
	}
	if decl == nil {
		return nil, fmt.Errorf("component %s not found in %s", componentName, path)
	}

	typeFile, typeNode := p.propsTypeOf(file, decl)
	if typeNode == nil {
		return nil, fmt.Errorf("could not determine the props type of %s in %s", componentName, path)
	}

	ex := &signatureExtractor{program: p, visited: make(map[string]bool)}
	sig, ok := ex.flatten(typeFile, typeNode)
	if !ok {
		return nil, fmt.Errorf("Props not an object: %s", typeFile.Text(ast.Unwrap(typeNode)))
	}
	return sig, nil
}

// propsTypeOf finds the props type node of a component declaration.
func (p *Program) propsTypeOf(file *SourceFile, decl *ts.Node) (*SourceFile, *ts.Node) {
	switch decl.Kind() {
	case ast.KindFunctionDecl, ast.KindArrowFunction, ast.KindFunctionExpr, "function", "generator_function_declaration":
		params := ast.FunctionParameters(decl)
		if len(params) == 0 {
			return file, nil
		}
		return file, ast.ParameterType(params[0])

	case ast.KindVariableDecl:
		if annotation := ast.ParameterType(decl); annotation != nil {
			// const Button: React.FC<ButtonProps> = ...
			if args := typeArguments(annotation); len(args) > 0 {
				return file, args[0]
			}
		}
		return p.propsTypeOf(file, ast.Unwrap(decl.ChildByFieldName("value")))

	case ast.KindCall:
		callee := file.Text(ast.Callee(decl))
		args := typeArguments(decl)
		if strings.HasSuffix(callee, "forwardRef") && len(args) >= 2 {
			return file, args[1]
		}
		// forwardRef((props: P, ref) => ...), memo(Component), styled wrappers
		for _, arg := range ast.CallArguments(decl) {
			arg = ast.Unwrap(arg)
			if ast.IsFunctionLike(arg) || arg.Kind() == ast.KindCall {
				return p.propsTypeOf(file, arg)
			}
			if arg.Kind() == ast.KindIdentifier {
				if inner := file.FindDeclaration(file.Text(arg)); inner != nil {
					return p.propsTypeOf(file, inner)
				}
			}
		}

	case "class_declaration", "class":
		// class Button extends React.Component<ButtonProps>
		var found *ts.Node
		ast.DFS(decl, func(n *ts.Node) bool {
			if n.Kind() == "class_body" {
				return true
			}
			if n.Kind() == "extends_clause" {
				if args := typeArguments(n); len(args) > 0 {
					found = args[0]
				}
				return true
			}
			return false
		})
		return file, found

	case ast.KindIdentifier:
		if inner := file.FindDeclaration(file.Text(decl)); inner != nil && !ast.Same(inner, decl) {
			return p.propsTypeOf(file, inner)
		}
	}
	return file, nil
}

// typeArguments returns the type arguments of a generic type, call or
// extends clause.
func typeArguments(n *ts.Node) []*ts.Node {
	if n == nil {
		return nil
	}
	args := n.ChildByFieldName("type_arguments")
	if args == nil {
		for _, child := range ast.NamedChildren(n) {
			if child.Kind() == "type_arguments" {
				args = child
				break
			}
		}
	}
	return ast.NamedChildren(args)
}

type signatureExtractor struct {
	program *Program
	visited map[string]bool
}

// flatten collects the props of an object-shaped type. ok is false when the
// type is not an object shape (a primitive, a function type, ...).
func (ex *signatureExtractor) flatten(file *SourceFile, typ *ts.Node) (Signature, bool) {
	if typ == nil {
		return nil, false
	}

	switch typ.Kind() {
	case "parenthesized_type", "type_annotation":
		return ex.flatten(file, ast.FirstNamedChild(typ))

	case "union_type":
		// use the first member
		members := ast.NamedChildren(typ)
		if len(members) == 0 {
			return nil, false
		}
		return ex.flatten(file, members[0])

	case "intersection_type":
		var sig Signature
		found := false
		for _, member := range ast.NamedChildren(typ) {
			part, ok := ex.flatten(file, member)
			if !ok {
				continue
			}
			found = true
			for _, prop := range part {
				sig.set(prop.Name, prop.Type)
			}
		}
		return sig, found

	case "object_type", "interface_body":
		return ex.members(file, typ, ""), true

	case "type_identifier", "nested_type_identifier", "generic_type":
		return ex.named(file, typ)
	}

	return nil, false
}

// named flattens a reference to a named type, handling the Partial, Pick,
// Omit and Readonly utility types.
func (ex *signatureExtractor) named(file *SourceFile, typ *ts.Node) (Signature, bool) {
	nameNode := typ
	if typ.Kind() == "generic_type" {
		nameNode = typ.ChildByFieldName("name")
		if nameNode == nil {
			nameNode = ast.FirstNamedChild(typ)
		}
	}
	fullName := file.Text(nameNode)
	name := fullName[strings.LastIndex(fullName, ".")+1:]

	if isReactDOMInterface(name) {
		return Signature{}, true
	}

	args := typeArguments(typ)
	switch name {
	case "Partial", "Readonly", "Required":
		if len(args) == 0 {
			return nil, false
		}
		sig, ok := ex.flatten(file, args[0])
		if !ok {
			return nil, false
		}
		for i := range sig {
			switch {
			case name == "Partial" && !strings.HasPrefix(sig[i].Type, "?"):
				sig[i].Type = "?" + stripUndefined(sig[i].Type)
			case name == "Required":
				sig[i].Type = strings.TrimPrefix(sig[i].Type, "?")
			}
		}
		return sig, true

	case "Pick", "Omit":
		if len(args) < 2 {
			return nil, false
		}
		sig, ok := ex.flatten(file, args[0])
		if !ok {
			return nil, false
		}
		keys := literalKeys(file, args[1])
		var out Signature
		for _, prop := range sig {
			if keys[prop.Name] == (name == "Pick") {
				out = append(out, prop)
			}
		}
		return out, true
	}

	declFile, decl := ex.program.findTypeDeclaration(file, fullName)
	if decl == nil {
		return nil, false
	}

	key := declFile.Path + "#" + declFile.Text(decl.ChildByFieldName("name"))
	if ex.visited[key] {
		return Signature{}, true
	}
	ex.visited[key] = true
	defer delete(ex.visited, key)

	switch decl.Kind() {
	case "type_alias_declaration":
		return ex.flatten(declFile, decl.ChildByFieldName("value"))

	case "interface_declaration":
		var sig Signature
		ownName := declFile.Text(decl.ChildByFieldName("name"))
		for _, child := range ast.NamedChildren(decl) {
			if child.Kind() != "extends_type_clause" {
				continue
			}
			for _, parent := range ast.NamedChildren(child) {
				// an interface extending HTMLAttributes keeps only its own members
				if strings.Contains(declFile.Text(parent), "HTMLAttributes") {
					continue
				}
				if inherited, ok := ex.flatten(declFile, parent); ok {
					for _, prop := range inherited {
						sig.set(prop.Name, prop.Type)
					}
				}
			}
		}
		body := decl.ChildByFieldName("body")
		for _, prop := range ex.members(declFile, body, ownName) {
			sig.set(prop.Name, prop.Type)
		}
		return sig, true
	}

	return nil, false
}

// members reads the property and method signatures of an object type or
// interface body.
func (ex *signatureExtractor) members(file *SourceFile, body *ts.Node, interfaceName string) Signature {
	var sig Signature
	if body == nil || reactInterfaceNames[interfaceName] {
		return sig
	}

	for _, member := range ast.NamedChildren(body) {
		var name, typ string
		switch member.Kind() {
		case "property_signature":
			key, ok := ast.PropertyKey(member.ChildByFieldName("name"), file.Source)
			if !ok {
				continue
			}
			name = key
			typ = file.Text(ast.ParameterType(member))
			if typ == "" {
				typ = "any"
			}
		case "method_signature":
			key, ok := ast.PropertyKey(member.ChildByFieldName("name"), file.Source)
			if !ok {
				continue
			}
			name = key
			ret := file.Text(ast.FirstNamedChild(member.ChildByFieldName("return_type")))
			if ret == "" {
				ret = "void"
			}
			typ = file.Text(member.ChildByFieldName("parameters")) + " => " + ret
		default:
			continue
		}

		if ignoredReactProps[name] {
			continue
		}
		typ = normalizeTypeText(typ)
		if ast.HasChildToken(member, "?") {
			typ = "?" + stripUndefined(typ)
		}
		sig.set(name, typ)
	}
	return sig
}

// findTypeDeclaration resolves a (possibly imported) type name to its
// interface or type alias declaration.
func (p *Program) findTypeDeclaration(file *SourceFile, name string) (*SourceFile, *ts.Node) {
	if strings.Contains(name, ".") {
		// Namespace.Type: only namespace imports are followed
		ns, member, _ := strings.Cut(name, ".")
		imp, ok := file.ImportFor(ns)
		if !ok || imp.Namespace != ns {
			return nil, nil
		}
		target, ok := p.ResolveModule(file.Path, imp.Specifier)
		if !ok {
			return nil, nil
		}
		next, err := p.File(target)
		if err != nil {
			return nil, nil
		}
		return p.findExportedType(next, member)
	}

	if decl := typeDeclaration(file, name); decl != nil {
		return file, decl
	}

	imp, ok := file.ImportFor(name)
	if !ok {
		return nil, nil
	}
	target, ok := p.ResolveModule(file.Path, imp.Specifier)
	if !ok {
		return nil, nil
	}
	next, err := p.File(target)
	if err != nil {
		return nil, nil
	}
	return p.findExportedType(next, imp.ImportedName(name))
}

func (p *Program) findExportedType(file *SourceFile, name string) (*SourceFile, *ts.Node) {
	declFile, decl := p.findExport(file, name, 0)
	if decl != nil && isTypeDeclaration(decl) {
		return declFile, decl
	}
	if decl := typeDeclaration(file, name); decl != nil {
		return file, decl
	}
	return nil, nil
}

func typeDeclaration(file *SourceFile, name string) *ts.Node {
	for _, n := range file.Declarations(name) {
		if isTypeDeclaration(n) {
			return n
		}
	}
	return nil
}

func isTypeDeclaration(n *ts.Node) bool {
	return n.Kind() == "interface_declaration" || n.Kind() == "type_alias_declaration"
}

func isReactDOMInterface(name string) bool {
	if reactInterfaceNames[name] {
		return true
	}
	return strings.HasSuffix(name, "HTMLAttributes")
}

// literalKeys reads the string literal members of `'a' | 'b'`.
func literalKeys(file *SourceFile, typ *ts.Node) map[string]bool {
	keys := make(map[string]bool)
	ast.DFS(typ, func(n *ts.Node) bool {
		if n.Kind() == ast.KindString {
			keys[ast.StringValue(n, file.Source)] = true
		}
		return false
	})
	return keys
}

func stripUndefined(typ string) string {
	typ = strings.ReplaceAll(typ, "undefined | ", "")
	return strings.TrimSuffix(typ, " | undefined")
}

// normalizeTypeText collapses whitespace so multi-line union types print on
// one line.
func normalizeTypeText(typ string) string {
	typ = strings.Join(strings.Fields(typ), " ")
	return strings.TrimPrefix(typ, "| ")
}
