package program

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// resolvableExtensions are probed, in order, when a specifier has no
// extension or names a directory.
var resolvableExtensions = []string{".ts", ".tsx", ".d.ts", ".js", ".jsx", ".mjs", ".cjs"}

type resolveKey struct {
	dir       string
	specifier string
}

// ResolveImports maps every import and re-export specifier of file to the
// absolute path of the module it refers to. Specifiers that cannot be
// resolved (missing files, packages without sources) are omitted.
func (p *Program) ResolveImports(file *SourceFile) map[string]string {
	out := make(map[string]string)
	add := func(spec string) {
		if _, done := out[spec]; done || spec == "" {
			return
		}
		if resolved, ok := p.ResolveModule(file.Path, spec); ok {
			out[spec] = resolved
		}
	}

	for _, imp := range file.Imports() {
		add(imp.Specifier)
	}
	for _, re := range file.ReExports() {
		add(re.Specifier)
	}
	return out
}

// ResolveModule resolves specifier as imported from the file at fromFile.
//
// Resolution order: relative paths, configured path aliases, baseUrl, then
// node_modules directories walking up from the importing file.
func (p *Program) ResolveModule(fromFile, specifier string) (string, bool) {
	key := resolveKey{dir: filepath.Dir(fromFile), specifier: specifier}

	p.resolveMu.RLock()
	cached, ok := p.resolveCache[key]
	p.resolveMu.RUnlock()
	if ok {
		return cached, cached != ""
	}

	resolved := p.resolveUncached(key.dir, specifier)

	p.resolveMu.Lock()
	p.resolveCache[key] = resolved
	p.resolveMu.Unlock()

	return resolved, resolved != ""
}

func (p *Program) resolveUncached(dir, specifier string) string {
	if strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../") || specifier == "." || specifier == ".." {
		return probeModule(filepath.Join(dir, specifier))
	}
	if filepath.IsAbs(specifier) {
		return probeModule(specifier)
	}

	for _, candidate := range p.aliasCandidates(specifier) {
		if resolved := probeModule(candidate); resolved != "" {
			return resolved
		}
	}

	if p.config.BaseURL != "" && p.config.Root != "" {
		if resolved := probeModule(filepath.Join(p.config.Root, p.config.BaseURL, specifier)); resolved != "" {
			return resolved
		}
	}

	return resolveNodeModule(dir, specifier)
}

// aliasCandidates expands tsconfig-style path aliases. Exact keys are tried
// before wildcard keys, and longer wildcard prefixes before shorter ones.
func (p *Program) aliasCandidates(specifier string) []string {
	if len(p.config.Paths) == 0 {
		return nil
	}

	base := p.config.Root
	if p.config.BaseURL != "" {
		base = filepath.Join(base, p.config.BaseURL)
	}

	keys := make([]string, 0, len(p.config.Paths))
	for k := range p.config.Paths {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		wi, wj := strings.Contains(keys[i], "*"), strings.Contains(keys[j], "*")
		if wi != wj {
			return !wi
		}
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	var out []string
	for _, key := range keys {
		prefix, suffix, wildcard := strings.Cut(key, "*")
		var match string
		switch {
		case !wildcard && key == specifier:
		case wildcard && strings.HasPrefix(specifier, prefix) && strings.HasSuffix(specifier, suffix) &&
			len(specifier) >= len(prefix)+len(suffix):
			match = specifier[len(prefix) : len(specifier)-len(suffix)]
		default:
			continue
		}
		for _, target := range p.config.Paths[key] {
			target = strings.Replace(target, "*", match, 1)
			if !filepath.IsAbs(target) {
				target = filepath.Join(base, target)
			}
			out = append(out, target)
		}
	}
	return out
}

// probeModule returns the source file a module path refers to: the path
// itself, the path plus a known extension, or an index file inside it.
func probeModule(path string) string {
	if isFile(path) && hasResolvableExtension(path) {
		return path
	}
	for _, ext := range resolvableExtensions {
		if isFile(path + ext) {
			return path + ext
		}
	}
	// `./Button.js` may refer to Button.ts under TypeScript's node16 rules
	if ext := filepath.Ext(path); ext == ".js" || ext == ".jsx" {
		stem := strings.TrimSuffix(path, ext)
		for _, alt := range []string{".ts", ".tsx"} {
			if isFile(stem + alt) {
				return stem + alt
			}
		}
	}
	for _, ext := range resolvableExtensions {
		index := filepath.Join(path, "index"+ext)
		if isFile(index) {
			return index
		}
	}
	return ""
}

// packageManifest holds the package.json fields used to find a package's
// entry point.
type packageManifest struct {
	Types   string `json:"types"`
	Typings string `json:"typings"`
	Module  string `json:"module"`
	Main    string `json:"main"`
}

func resolveNodeModule(dir, specifier string) string {
	pkgName, subpath := splitPackageSpecifier(specifier)

	for current := dir; ; current = filepath.Dir(current) {
		pkgDir := filepath.Join(current, "node_modules", pkgName)
		if isDir(pkgDir) {
			if subpath != "" {
				return probeModule(filepath.Join(pkgDir, subpath))
			}
			if entry := packageEntry(pkgDir); entry != "" {
				return entry
			}
			return probeModule(filepath.Join(pkgDir, "index"))
		}

		parent := filepath.Dir(current)
		if parent == current {
			return ""
		}
	}
}

func packageEntry(pkgDir string) string {
	data, err := os.ReadFile(filepath.Join(pkgDir, "package.json"))
	if err != nil {
		return ""
	}
	var manifest packageManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return ""
	}
	for _, entry := range []string{manifest.Types, manifest.Typings, manifest.Module, manifest.Main} {
		if entry == "" {
			continue
		}
		if resolved := probeModule(filepath.Join(pkgDir, entry)); resolved != "" {
			return resolved
		}
	}
	return ""
}

// splitPackageSpecifier splits "@scope/pkg/sub/path" into
// ("@scope/pkg", "sub/path") and "pkg/sub" into ("pkg", "sub").
func splitPackageSpecifier(specifier string) (string, string) {
	parts := strings.Split(specifier, "/")
	n := 1
	if strings.HasPrefix(specifier, "@") && len(parts) > 1 {
		n = 2
	}
	if len(parts) <= n {
		return specifier, ""
	}
	return strings.Join(parts[:n], "/"), strings.Join(parts[n:], "/")
}

func hasResolvableExtension(path string) bool {
	for _, ext := range resolvableExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
