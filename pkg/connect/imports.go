package connect

import (
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/gnana997/codeconnect/pkg/program"
)

var (
	namedBindings   = regexp.MustCompile(`(?s)\{.*\}`)
	moduleSpecifier = regexp.MustCompile(`['"]([\./a-zA-Z0-9_-]*)['"]`)
)

// ImportsFor returns the import statements of the file that bind any of
// identifiers. Only the first segment of a dotted identifier is matched
// (`DS` for `DS.Button`). Each import declaration yields at most one
// statement, with its named bindings trimmed to the ones used.
func ImportsFor(ctx *ParserContext, identifiers []string) []program.ImportStatement {
	roots := make([]string, len(identifiers))
	for i, id := range identifiers {
		roots[i], _, _ = strings.Cut(id, ".")
	}

	var out []program.ImportStatement
	for _, imp := range ctx.File.Imports() {
		if imp.TypeOnly {
			continue
		}
		statement := ctx.Text(imp.Node)

		var used []string
		for _, b := range imp.Named {
			if !slices.Contains(roots, b.Local) {
				continue
			}
			if b.Imported != "" && b.Imported != b.Local {
				used = append(used, b.Imported+" as "+b.Local)
			} else {
				used = append(used, b.Local)
			}
		}

		switch {
		case len(used) > 0:
			statement = namedBindings.ReplaceAllLiteralString(statement, "{ "+strings.Join(used, ", ")+" }")
		case imp.Default != "" && slices.Contains(roots, imp.Default):
		case imp.Namespace != "" && slices.Contains(roots, imp.Namespace):
		default:
			continue
		}
		if slices.ContainsFunc(out, func(s program.ImportStatement) bool { return s.Statement == statement }) {
			continue
		}
		out = append(out, program.ImportStatement{Statement: statement, File: ctx.ResolvedImports[imp.Specifier]})
	}
	return out
}

// MapImports rewrites the module specifier of each statement whose file
// matches an importPaths pattern, and returns the statements.
func MapImports(ctx *ParserContext, imports []program.ImportStatement) []string {
	out := make([]string, 0, len(imports))
	for _, imp := range imports {
		statement := imp.Statement
		if mapped, ok := MapImportPath(imp.File, ctx.Config.ImportPaths); ok {
			statement = replaceFirst(moduleSpecifier, statement, "'"+mapped+"'")
		}
		out = append(out, statement)
	}
	return out
}

// ColocatedImport is the import of a component declared in the Code Connect
// file itself, or whose import could not be found.
func ColocatedImport(component, source, file string) program.ImportStatement {
	base := filepath.Base(filepath.ToSlash(source))
	name, _, _ := strings.Cut(base, ".")
	return program.ImportStatement{
		Statement: "import { " + component + " } from './" + name + "'",
		File:      file,
	}
}

// MapImportPath maps the path of a component's source file to the import
// specifier configured for it in importPaths.
//
// Patterns are matched against the end of the path, segment by segment. A
// leading `*` segment matches any number of segments up to the next
// pattern segment; a pattern of just `*` matches every path. When the
// mapped value ends with `*`, the file's base name (without extensions)
// replaces it, for imports that do not go through an index file:
//
//	"src/components/*": "@ui/components/*"
//	/repo/src/components/Button.tsx -> @ui/components/Button
func MapImportPath(path string, importPaths *orderedmap.OrderedMap[string, string]) (string, bool) {
	if importPaths == nil || path == "" {
		return "", false
	}
	pathParts := reversed(strings.Split(filepath.ToSlash(path), "/"))

	for pair := importPaths.Oldest(); pair != nil; pair = pair.Next() {
		patternParts := reversed(strings.Split(pair.Key, "/"))
		if len(pathParts) < len(patternParts) {
			continue
		}
		if !matchReversed(patternParts, pathParts) {
			continue
		}
		if value, ok := strings.CutSuffix(pair.Value, "*"); ok {
			name, _, _ := strings.Cut(pathParts[0], ".")
			return value + name, true
		}
		return pair.Value, true
	}
	return "", false
}

func matchReversed(pattern, path []string) bool {
	if pattern[0] == "*" {
		if len(pattern) == 1 {
			return true
		}
		index := slices.Index(path, pattern[1])
		if index == -1 {
			return false
		}
		pattern = pattern[1:]
		path = path[index:]
	}
	if len(path) < len(pattern) {
		return false
	}
	for i := range pattern {
		if pattern[i] != path[i] {
			return false
		}
	}
	return true
}

func reversed(parts []string) []string {
	out := slices.Clone(parts)
	slices.Reverse(out)
	return out
}

func replaceFirst(re *regexp.Regexp, s, repl string) string {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + repl + s[loc[1]:]
}
