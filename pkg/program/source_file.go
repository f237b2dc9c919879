package program

import (
	"fmt"
	"sort"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/gnana997/codeconnect/pkg/ast"
	"github.com/gnana997/codeconnect/pkg/parser"
	"github.com/gnana997/codeconnect/pkg/parser/queries"
)

// ImportBinding is one named binding of an import or re-export:
// `{ Imported as Local }`.
type ImportBinding struct {
	Imported string
	Local    string
}

// Import is a module-level import statement.
type Import struct {
	Specifier string
	Default   string // local name of the default import, if any
	Namespace string // local name of `* as X`, if any
	Named     []ImportBinding
	TypeOnly  bool
	Node      *ts.Node
}

// Binds reports whether the import introduces local name.
func (i Import) Binds(local string) bool {
	if i.Default == local || i.Namespace == local {
		return true
	}
	for _, b := range i.Named {
		if b.Local == local {
			return true
		}
	}
	return false
}

// ImportedName returns the exported name the local binding refers to:
// "default" for default imports, the original name for named imports, and
// "" for namespace imports.
func (i Import) ImportedName(local string) string {
	if i.Default == local {
		return "default"
	}
	for _, b := range i.Named {
		if b.Local == local {
			return b.Imported
		}
	}
	return ""
}

// ReExport is `export { a as b } from 'x'` or `export * from 'x'`.
type ReExport struct {
	Specifier string
	All       bool
	Names     []ImportBinding // Imported = name in source module, Local = exported name
	Node      *ts.Node
}

// SourceFile is a parsed source file plus the indexes the compiler needs:
// its imports, re-exports and named declarations.
//
// A SourceFile is immutable after construction and safe for concurrent
// reads. Its tree is owned by the Program that created it.
type SourceFile struct {
	Path     string
	Source   []byte
	Language parser.Language
	IsTSX    bool

	tree         *ts.Tree
	imports      []Import
	reexports    []ReExport
	declarations map[string][]*ts.Node
}

func newSourceFile(path string, src []byte, tree *ts.Tree, qm *queries.QueryManager) (*SourceFile, error) {
	lang, isTSX := parser.LanguageForFile(path)
	f := &SourceFile{
		Path:         path,
		Source:       src,
		Language:     lang,
		IsTSX:        isTSX,
		tree:         tree,
		declarations: make(map[string][]*ts.Node),
	}

	if err := f.indexImports(qm); err != nil {
		return nil, err
	}
	if err := f.indexDeclarations(qm); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *SourceFile) indexImports(qm *queries.QueryManager) error {
	query, err := qm.GetQuery(f.Language, f.IsTSX, queries.QueryTypeImports)
	if err != nil {
		return fmt.Errorf("import query: %w", err)
	}
	matches, err := qm.ExecuteQuery(f.tree, query, f.Source)
	if err != nil {
		return fmt.Errorf("import query on %s: %w", f.Path, err)
	}

	for _, m := range matches {
		if stmt, ok := m.Capture("import.statement"); ok {
			source, _ := m.Capture("import.source")
			f.imports = append(f.imports, f.readImport(stmt.Node, source.Text))
			continue
		}
		if stmt, ok := m.Capture("export.statement"); ok {
			source, _ := m.Capture("export.source")
			f.reexports = append(f.reexports, f.readReExport(stmt.Node, source.Text))
		}
	}
	return nil
}

func (f *SourceFile) readImport(stmt *ts.Node, specifier string) Import {
	imp := Import{Specifier: specifier, Node: stmt}

	for _, child := range ast.Children(stmt) {
		if !child.IsNamed() && child.Kind() == "type" {
			imp.TypeOnly = true
		}
		if child.Kind() != "import_clause" {
			continue
		}
		for _, part := range ast.NamedChildren(child) {
			switch part.Kind() {
			case "identifier":
				imp.Default = f.Text(part)
			case "namespace_import":
				imp.Namespace = f.Text(ast.FirstNamedChild(part))
			case "named_imports":
				for _, spec := range ast.NamedChildren(part) {
					if spec.Kind() != "import_specifier" {
						continue
					}
					imported := f.Text(spec.ChildByFieldName("name"))
					local := imported
					if alias := spec.ChildByFieldName("alias"); alias != nil {
						local = f.Text(alias)
					}
					imp.Named = append(imp.Named, ImportBinding{Imported: imported, Local: local})
				}
			}
		}
	}
	return imp
}

func (f *SourceFile) readReExport(stmt *ts.Node, specifier string) ReExport {
	re := ReExport{Specifier: specifier, Node: stmt, All: true}

	for _, child := range ast.NamedChildren(stmt) {
		switch child.Kind() {
		case "export_clause":
			re.All = false
			for _, spec := range ast.NamedChildren(child) {
				if spec.Kind() != "export_specifier" {
					continue
				}
				name := f.Text(spec.ChildByFieldName("name"))
				exported := name
				if alias := spec.ChildByFieldName("alias"); alias != nil {
					exported = f.Text(alias)
				}
				re.Names = append(re.Names, ImportBinding{Imported: name, Local: exported})
			}
		case "namespace_export":
			// export * as ns from 'x' re-exports a namespace object, not names
			re.All = false
		}
	}
	return re
}

func (f *SourceFile) indexDeclarations(qm *queries.QueryManager) error {
	query, err := qm.GetQuery(f.Language, f.IsTSX, queries.QueryTypeDeclarations)
	if err != nil {
		return fmt.Errorf("declaration query: %w", err)
	}
	matches, err := qm.ExecuteQuery(f.tree, query, f.Source)
	if err != nil {
		return fmt.Errorf("declaration query on %s: %w", f.Path, err)
	}

	for _, m := range matches {
		name, ok := m.Capture("declaration.name")
		if !ok {
			continue
		}
		node, ok := m.Capture("declaration.node")
		if !ok {
			continue
		}
		f.declarations[name.Text] = append(f.declarations[name.Text], node.Node)
	}

	// Breadth-first order: shallower declarations win over nested ones, and
	// document order breaks ties.
	for name, nodes := range f.declarations {
		depths := make(map[uintptr]int, len(nodes))
		for _, n := range nodes {
			depths[n.Id()] = ast.Depth(n)
		}
		sort.SliceStable(nodes, func(i, j int) bool {
			return depths[nodes[i].Id()] < depths[nodes[j].Id()]
		})
		f.declarations[name] = nodes
	}
	return nil
}

// Root returns the root node of the file.
func (f *SourceFile) Root() *ts.Node {
	return f.tree.RootNode()
}

// Text returns the source text of node.
func (f *SourceFile) Text(node *ts.Node) string {
	return ast.Text(node, f.Source)
}

// Position returns the zero-based start position of node.
func (f *SourceFile) Position(node *ts.Node) Position {
	p := node.StartPosition()
	return Position{Line: int(p.Row), Character: int(p.Column)}
}

// Imports returns the file's import statements in document order.
func (f *SourceFile) Imports() []Import {
	return f.imports
}

// ReExports returns the file's `export ... from` statements.
func (f *SourceFile) ReExports() []ReExport {
	return f.reexports
}

// ImportFor returns the import statement that binds local name.
func (f *SourceFile) ImportFor(local string) (Import, bool) {
	for _, imp := range f.imports {
		if imp.Binds(local) {
			return imp, true
		}
	}
	return Import{}, false
}

// Declarations returns every declaration of name, shallowest first.
func (f *SourceFile) Declarations(name string) []*ts.Node {
	return f.declarations[name]
}

// FindDeclaration returns the shallowest declaration of name.
func (f *SourceFile) FindDeclaration(name string) *ts.Node {
	if nodes := f.declarations[name]; len(nodes) > 0 {
		return nodes[0]
	}
	return nil
}

// FindVariableDeclarator returns the shallowest `name = ...` variable
// declarator, ignoring function, class and type declarations.
func (f *SourceFile) FindVariableDeclarator(name string) *ts.Node {
	for _, n := range f.declarations[name] {
		if n.Kind() == ast.KindVariableDecl {
			return n
		}
	}
	return nil
}

// FindVariableInitializer returns the initializer of a same-file variable,
// or nil if the variable is unknown or has no initializer.
func (f *SourceFile) FindVariableInitializer(name string) *ts.Node {
	decl := f.FindVariableDeclarator(name)
	if decl == nil {
		return nil
	}
	return decl.ChildByFieldName("value")
}

// ExportedDeclaration returns the declaration exported under name
// ("default" for the default export) from this file, without following
// re-exports. For `export default Foo` and `export { Foo as Bar }` the
// local declaration of Foo is returned.
func (f *SourceFile) ExportedDeclaration(name string) *ts.Node {
	for _, stmt := range ast.NamedChildren(f.Root()) {
		if stmt.Kind() != "export_statement" || stmt.ChildByFieldName("source") != nil {
			continue
		}
		isDefault := ast.HasChildToken(stmt, "default")

		if decl := stmt.ChildByFieldName("declaration"); decl != nil {
			if isDefault && name == "default" {
				return decl
			}
			if !isDefault && declares(decl, name, f.Source) {
				if decl.Kind() == "lexical_declaration" || decl.Kind() == "variable_declaration" {
					return f.FindVariableDeclarator(name)
				}
				return decl
			}
			continue
		}

		if value := stmt.ChildByFieldName("value"); value != nil && isDefault && name == "default" {
			if value.Kind() == ast.KindIdentifier {
				if local := f.FindDeclaration(f.Text(value)); local != nil {
					return local
				}
			}
			return value
		}

		for _, clause := range ast.NamedChildren(stmt) {
			if clause.Kind() != "export_clause" {
				continue
			}
			for _, spec := range ast.NamedChildren(clause) {
				local := f.Text(spec.ChildByFieldName("name"))
				exported := local
				if alias := spec.ChildByFieldName("alias"); alias != nil {
					exported = f.Text(alias)
				}
				if exported == name {
					return f.FindDeclaration(local)
				}
			}
		}
	}

	if name != "default" {
		// CommonJS and `declare` files: fall back to any top-level declaration.
		for _, n := range f.declarations[name] {
			if isTopLevel(n) {
				return n
			}
		}
	}
	return nil
}

// DefaultExportName returns the local name of the default export when it
// is a named function, class or identifier.
func (f *SourceFile) DefaultExportName() string {
	decl := f.ExportedDeclaration("default")
	if decl == nil {
		return ""
	}
	if decl.Kind() == ast.KindIdentifier {
		return f.Text(decl)
	}
	return f.Text(decl.ChildByFieldName("name"))
}

func declares(decl *ts.Node, name string, src []byte) bool {
	switch decl.Kind() {
	case "lexical_declaration", "variable_declaration":
		for _, d := range ast.NamedChildren(decl) {
			if d.Kind() == ast.KindVariableDecl && ast.Text(d.ChildByFieldName("name"), src) == name {
				return true
			}
		}
		return false
	default:
		return ast.Text(decl.ChildByFieldName("name"), src) == name
	}
}

func isTopLevel(n *ts.Node) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.Kind() {
		case ast.KindProgram:
			return true
		case "export_statement", "lexical_declaration", "variable_declaration", "ambient_declaration":
			continue
		default:
			return false
		}
	}
	return false
}

func (f *SourceFile) close() {
	if f.tree != nil {
		f.tree.Close()
		f.tree = nil
	}
}
