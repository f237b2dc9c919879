package program

import (
	"fmt"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/gnana997/codeconnect/pkg/ast"
)

// ComponentMetadata locates the declaration of a component referenced from
// a Code Connect file.
type ComponentMetadata struct {
	// Source is the absolute path of the file declaring the component, or
	// "" when the component's import could not be resolved.
	Source string
	// Line is the zero-based line of the declaration.
	Line int
	// Component is the reference as written (`Button`, `DS.Button`).
	Component string
	// Resolved is false when the lookup degraded to the fallback above.
	Resolved bool
}

// ImportStatement is an import statement shown alongside an example, with
// the file its module resolved to ("" when unresolved).
type ImportStatement struct {
	Statement string `json:"statement"`
	File      string `json:"file"`
}

// maxReExportHops bounds how far `export ... from` chains are followed.
const maxReExportHops = 1

// LocateExportedDeclaration finds where the component referenced by node
// (an identifier or a namespaced member access) is declared.
//
// A component imported from a module that cannot be resolved, or that the
// module does not export, is not an error: a warning is logged and a
// metadata value with an empty Source and line 0 is returned. A reference
// to a name that is neither declared nor imported is a ParserError.
func (p *Program) LocateExportedDeclaration(file *SourceFile, node *ts.Node) (ComponentMetadata, error) {
	text := file.Text(node)
	degraded := ComponentMetadata{Component: text}

	name := text
	namespaced := false
	if node.Kind() == ast.KindMember {
		name = file.Text(node.ChildByFieldName("object"))
		namespaced = true
	}

	imp, imported := file.ImportFor(name)
	switch {
	case imported && imp.Namespace == name:
		// `import * as DS from './ds'`: the namespace binding itself is the
		// closest declaration a static lookup can point at
		return p.metadataAt(file, imp.Node, text), nil

	case imported:
		target, ok := p.ResolveModule(file.Path, imp.Specifier)
		if !ok {
			p.warnUnresolved(text)
			return degraded, nil
		}
		targetFile, err := p.File(target)
		if err != nil {
			p.logger.Debug("failed to parse component module", "file", target, "error", err)
			p.warnUnresolved(text)
			return degraded, nil
		}

		declFile, decl := p.findExport(targetFile, imp.ImportedName(name), 0)
		if decl == nil {
			p.warnUnresolved(text)
			return degraded, nil
		}

		// `export const Button = { Primary: () => ... }` and similar: prefer
		// a function or variable declaration carrying the component's name
		if decl.Kind() != ast.KindFunctionDecl {
			if declared := declaredName(declFile, decl); declared != "" {
				if better := declFile.FindDeclaration(declared); better != nil {
					decl = better
				}
			}
		}
		return p.metadataAt(declFile, decl, text), nil
	}

	decl := file.FindDeclaration(name)
	if decl == nil {
		if namespaced {
			return ComponentMetadata{}, Errorf(file, node, "Could not find symbol for component %s", name)
		}
		return ComponentMetadata{}, Errorf(file, node, "Could not find declaration for component %s", text)
	}
	return p.metadataAt(file, decl, text), nil
}

// findExport looks up the declaration exported as name from file,
// following `export ... from` statements up to maxReExportHops.
func (p *Program) findExport(file *SourceFile, name string, hops int) (*SourceFile, *ts.Node) {
	if decl := file.ExportedDeclaration(name); decl != nil {
		return file, decl
	}
	if hops >= maxReExportHops || name == "default" {
		return nil, nil
	}

	for _, re := range file.ReExports() {
		imported := ""
		switch {
		case re.All:
			imported = name
		default:
			for _, b := range re.Names {
				if b.Local == name {
					imported = b.Imported
				}
			}
		}
		if imported == "" {
			continue
		}

		target, ok := p.ResolveModule(file.Path, re.Specifier)
		if !ok {
			continue
		}
		next, err := p.File(target)
		if err != nil {
			continue
		}
		if declFile, decl := p.findExport(next, imported, hops+1); decl != nil {
			return declFile, decl
		}
	}
	return nil, nil
}

func (p *Program) metadataAt(file *SourceFile, decl *ts.Node, component string) ComponentMetadata {
	return ComponentMetadata{
		Source:    file.Path,
		Line:      file.Position(decl).Line,
		Component: component,
		Resolved:  true,
	}
}

func (p *Program) warnUnresolved(component string) {
	p.logger.Warn(fmt.Sprintf("Import for %s could not be resolved, make sure that your `include` globs in `figma.config.json` matches the component source file (in addition to the Code Connect file). If you're using path aliases, make sure to include the same aliases in `figma.config.json` with the `paths` option.", component))
}

func declaredName(file *SourceFile, decl *ts.Node) string {
	if decl.Kind() == ast.KindIdentifier {
		return file.Text(decl)
	}
	return file.Text(decl.ChildByFieldName("name"))
}
