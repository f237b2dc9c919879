package react

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/gnana997/codeconnect/pkg/figma"
	"github.com/gnana997/codeconnect/pkg/intrinsics"
	"github.com/gnana997/codeconnect/pkg/literal"
	"github.com/gnana997/codeconnect/pkg/messages"
	"github.com/gnana997/codeconnect/pkg/program"
	"github.com/gnana997/codeconnect/pkg/validation"
)

// Connection is one Figma component to write a figma.connect call for.
type Connection struct {
	Component *figma.Layer
	// URL is the node URL passed to figma.connect.
	URL string
	// SourceExport is "default" or the name of the export the call imports.
	// Empty when no source file is known.
	SourceExport string
	// Signature is the props signature of the code component, or nil.
	Signature program.Signature
	// PropMapping maps code props to *intrinsics.Intrinsic values. A nil
	// mapping means no matching was attempted; every Figma property is
	// then suggested instead.
	PropMapping *literal.Object
}

// CreateRequest describes a Code Connect file to generate.
type CreateRequest struct {
	Connections []Connection
	// OutFile is the file to write. When empty the file is named after the
	// source file (or NormalizedName) and placed in OutDir.
	OutFile string
	// OutDir defaults to the directory of SourceFile, or the working
	// directory.
	OutDir string
	// SourceFile is the component source, or empty.
	SourceFile string
	// NormalizedName names the component when there is no source file.
	NormalizedName string
}

const generatedBanner = "-- This file was auto-generated by Code Connect --"

var (
	mappedPropsComment = []string{
		"`props` includes a mapping from your code props to Figma properties.",
		"You should check this is correct, and update the `example` function",
		"to return the code example you'd like to see in Figma",
	}
	noMappedPropsComment = []string{
		"None of your props could be automatically mapped to Figma properties.",
		"You should update the `props` object to include a mapping from your",
		"code props to Figma properties, and update the `example` function to",
		"return the code example you'd like to see in Figma",
	}
	defaultComment = []string{
		"`props` includes a mapping from Figma properties and variants to",
		"suggested values. You should update this to match the props of your",
		"code component, and update the `example` function to return the",
		"code example you'd like to see in Figma",
	}

	propIDSuffix    = regexp.MustCompile(`#[0-9:]*`)
	trailingPropID  = regexp.MustCompile(`#[0-9:]+$`)
	nonWordOrSpace  = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
	nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]`)
	componentExt    = regexp.MustCompile(`\.(jsx|tsx)$`)
)

// Create writes the Code Connect file for req. An existing file is left
// alone and reported as an ERROR message.
func Create(req CreateRequest) (*messages.CreateResponse, error) {
	path := OutFileName(req)
	code, err := Generate(req, path)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); err == nil {
		return &messages.CreateResponse{
			CreatedFiles: []messages.CreatedFile{},
			Messages:     messages.Messages{messages.Errorf("File %s already exists, skipping creation", path)},
		}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(code), 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", path, err)
	}
	return &messages.CreateResponse{
		CreatedFiles: []messages.CreatedFile{{FilePath: path}},
		Messages:     messages.Messages{},
	}, nil
}

// OutFileName returns the path Create writes to.
func OutFileName(req CreateRequest) string {
	if req.OutFile != "" {
		return req.OutFile
	}
	dir := req.OutDir
	if dir == "" && req.SourceFile != "" {
		dir = filepath.Dir(req.SourceFile)
	}
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, sourceFilename(req)+".figma.tsx")
}

func sourceFilename(req CreateRequest) string {
	if req.SourceFile == "" {
		return req.NormalizedName
	}
	name, _, _ := strings.Cut(filepath.Base(req.SourceFile), ".")
	return name
}

// importPath is the module specifier of the component, relative to the
// Code Connect file at path.
func importPath(req CreateRequest, path string) string {
	if req.SourceFile == "" {
		return "./" + req.NormalizedName
	}
	rel, err := filepath.Rel(filepath.Dir(path), req.SourceFile)
	if err != nil {
		rel = req.SourceFile
	}
	rel = filepath.ToSlash(rel)
	if !strings.HasPrefix(rel, ".") {
		rel = "./" + rel
	}
	return componentExt.ReplaceAllString(rel, "")
}

// Generate returns the source of the Code Connect file for req, written
// to path.
func Generate(req CreateRequest, path string) (string, error) {
	if len(req.Connections) == 0 {
		return "", fmt.Errorf("no components to connect")
	}

	file := sourceFilename(req)
	var defaultImport string
	var named []string
	names := make([]string, len(req.Connections))
	for i, c := range req.Connections {
		name := req.NormalizedName
		if req.SourceFile != "" && c.SourceExport != "" {
			name = c.SourceExport
			if c.SourceExport == "default" {
				name = NormalizeComponentName(file)
			}
		}
		names[i] = name
		if c.SourceExport == "default" {
			defaultImport = name
		} else if !slices.Contains(named, name) {
			named = append(named, name)
		}
	}
	if defaultImport != "" && slices.Contains(named, defaultImport) {
		defaultImport += "Default"
	}

	var b strings.Builder
	b.WriteString("import React from 'react'\n")
	b.WriteString("import ")
	if defaultImport != "" {
		b.WriteString(defaultImport)
		if len(named) > 0 {
			b.WriteString(", ")
		}
	}
	if len(named) > 0 {
		b.WriteString("{ " + strings.Join(named, ", ") + " }")
	}
	b.WriteString(" from '" + importPath(req, path) + "'\n")
	b.WriteString("import figma from '@figma/code-connect'\n")

	for i, c := range req.Connections {
		component := names[i]
		if c.SourceExport == "default" {
			component = defaultImport
		}
		snippet, err := connectCall(c, component)
		if err != nil {
			return "", err
		}
		b.WriteString("\n" + snippet)
	}
	return b.String(), nil
}

func connectCall(c Connection, component string) (string, error) {
	comment := defaultComment
	if c.PropMapping != nil {
		comment = noMappedPropsComment
		if c.PropMapping.Len() > 0 {
			comment = mappedPropsComment
		}
	}

	props, err := propsObject(c)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("/**\n * " + generatedBanner + "\n")
	for _, line := range comment {
		b.WriteString(" * " + line + "\n")
	}
	b.WriteString(" */\n")
	b.WriteString("figma.connect(" + component + ", " + strconv.Quote(c.URL) + ", {\n")
	b.WriteString("  props: " + props + ",\n")
	b.WriteString("  example: (props) => " + example(component, c.Signature, c.PropMapping) + ",\n")
	b.WriteString("})\n")
	return b.String(), nil
}

// propsObject renders the props object: the mapped props, then the Figma
// properties no mapping uses, commented out. Without a mapping every
// Figma property is suggested as is.
func propsObject(c Connection) (string, error) {
	defs := propertyNames(c.Component)

	var lines []string
	if c.PropMapping == nil {
		for _, name := range defs {
			if entry, ok := suggestedEntry(name, c.Component.ComponentPropertyDefinitions[name]); ok {
				lines = append(lines, indent(entry, "    ")+",")
			}
		}
	} else {
		if c.PropMapping.Len() > 0 {
			lines = append(lines, "    // These props were automatically mapped based on your linked code:")
		}
		err := c.PropMapping.Each(func(key string, value literal.Value) error {
			in, ok := value.(*intrinsics.Intrinsic)
			if !ok {
				return fmt.Errorf("prop %s is not mapped to a Figma property", key)
			}
			expr, err := intrinsics.Expression(in)
			if err != nil {
				return err
			}
			lines = append(lines, indent(strconv.Quote(key)+": "+expr, "    ")+",")
			return nil
		})
		if err != nil {
			return "", err
		}

		used := referencedProps(c.PropMapping)
		var unmapped []string
		for _, name := range defs {
			if used[normalizePropName(name)] {
				continue
			}
			if entry, ok := suggestedEntry(name, c.Component.ComponentPropertyDefinitions[name]); ok {
				unmapped = append(unmapped, indent(entry+",", "    // "))
			}
		}
		if len(unmapped) > 0 {
			lines = append(lines, "    // No matching props could be found for these Figma properties:")
			lines = append(lines, unmapped...)
		}
	}

	if len(lines) == 0 {
		return "{}", nil
	}
	return "{\n" + strings.Join(lines, "\n") + "\n  }", nil
}

// example renders the JSX of the example function. Mapped props read from
// props, required unmapped props get a TODO placeholder and children are
// nested when mapped.
func example(component string, sig program.Signature, mapping *literal.Object) string {
	if sig == nil {
		return "<" + component + " />"
	}

	var attrs []string
	hasChildren := false
	for _, p := range sig {
		if p.Name == "children" {
			hasChildren = true
			continue
		}
		if mapped(mapping, p.Name) {
			attrs = append(attrs, p.Name+"={props."+p.Name+"}")
		} else if !strings.HasPrefix(p.Type, "?") {
			attrs = append(attrs, p.Name+"={/* TODO */}")
		}
	}
	nested := hasChildren && mapped(mapping, "children")

	if len(attrs) == 0 {
		if nested {
			return "<" + component + ">{props.children}</" + component + ">"
		}
		return "<" + component + " />"
	}

	var b strings.Builder
	b.WriteString("(\n    <" + component + "\n")
	for _, a := range attrs {
		b.WriteString("      " + a + "\n")
	}
	if nested {
		b.WriteString("    >\n      {props.children}\n    </" + component + ">\n  )")
	} else {
		b.WriteString("    />\n  )")
	}
	return b.String()
}

func mapped(mapping *literal.Object, name string) bool {
	if mapping == nil {
		return false
	}
	_, ok := mapping.Get(name)
	return ok
}

// MapProps matches the props of sig to the Figma properties of layer by
// name and returns the mapping for the props that matched. Children are
// never matched.
func MapProps(sig program.Signature, layer *figma.Layer) *literal.Object {
	mapping := literal.NewObject()
	names := propertyNames(layer)
	for _, p := range sig {
		if p.Name == "children" {
			continue
		}
		for _, name := range names {
			if !strings.EqualFold(CodePropName(name), p.Name) {
				continue
			}
			if in := suggestedIntrinsic(name, layer.ComponentPropertyDefinitions[name]); in != nil {
				mapping.Set(p.Name, in)
				break
			}
		}
	}
	return mapping
}

// suggestedIntrinsic returns the accessor that reads a Figma property, or
// nil for property types that have none.
func suggestedIntrinsic(name string, def figma.PropertyDefinition) *intrinsics.Intrinsic {
	prop := normalizePropName(name)
	switch def.Type {
	case figma.PropertyBoolean, figma.PropertyVariant:
		if def.Type == figma.PropertyBoolean || validation.IsBooleanVariant(def.VariantOptions) {
			return &intrinsics.Intrinsic{Kind: intrinsics.KindBoolean, FigmaPropName: prop}
		}
		mapping := literal.NewObject()
		for _, opt := range def.VariantOptions {
			mapping.Set(opt, literal.String(propValue(opt)))
		}
		return &intrinsics.Intrinsic{Kind: intrinsics.KindEnum, FigmaPropName: prop, ValueMapping: mapping}
	case figma.PropertyText:
		return &intrinsics.Intrinsic{Kind: intrinsics.KindString, FigmaPropName: prop}
	case figma.PropertyInstanceSwap:
		return &intrinsics.Intrinsic{Kind: intrinsics.KindInstance, FigmaPropName: prop}
	}
	return nil
}

func suggestedEntry(name string, def figma.PropertyDefinition) (string, bool) {
	in := suggestedIntrinsic(name, def)
	if in == nil {
		return "", false
	}
	expr, err := intrinsics.Expression(in)
	if err != nil {
		return "", false
	}
	return strconv.Quote(CodePropName(name)) + ": " + expr, true
}

// referencedProps collects the Figma property names read anywhere in
// mapping, including intrinsics nested in value mappings.
func referencedProps(mapping *literal.Object) map[string]bool {
	used := map[string]bool{}
	var visit func(v literal.Value)
	visit = func(v literal.Value) {
		switch v := v.(type) {
		case *intrinsics.Intrinsic:
			if v.FigmaPropName != "" {
				used[v.FigmaPropName] = true
			}
			if v.ValueMapping != nil {
				visit(v.ValueMapping)
			}
		case *literal.Object:
			_ = v.Each(func(_ string, value literal.Value) error {
				visit(value)
				return nil
			})
		}
	}
	visit(mapping)
	return used
}

// propertyNames returns the property names of layer, sorted.
func propertyNames(layer *figma.Layer) []string {
	if layer == nil {
		return nil
	}
	names := make([]string, 0, len(layer.ComponentPropertyDefinitions))
	for name := range layer.ComponentPropertyDefinitions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func normalizePropName(name string) string {
	return propIDSuffix.ReplaceAllString(name, "")
}

// CodePropName turns a Figma property name into a camelCase prop name:
// "Has Icon#12:3" becomes "hasIcon".
func CodePropName(name string) string {
	name = nonWordOrSpace.ReplaceAllString(trailingPropID.ReplaceAllString(name, ""), "")
	parts := words(name)
	for i, w := range parts {
		w = strings.ToLower(w)
		if i > 0 {
			w = capitalize(w)
		}
		parts[i] = w
	}
	return strings.Join(parts, "")
}

// NormalizeComponentName turns a file name into a PascalCase component
// name: "icon-button" becomes "IconButton".
func NormalizeComponentName(name string) string {
	parts := words(name)
	for i, w := range parts {
		parts[i] = capitalize(w)
	}
	return strings.Join(parts, "")
}

func propValue(v string) string {
	return strings.ToLower(nonAlphanumeric.ReplaceAllString(v, "-"))
}

// words splits s at separators, lower to upper case changes and the end of
// an acronym ("HTMLLabel" is "HTML", "Label").
func words(s string) []string {
	var out []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			out = append(out, string(cur))
			cur = cur[:0]
		}
	}
	rs := []rune(s)
	for i, r := range rs {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if len(cur) > 0 && unicode.IsUpper(r) {
			prev := rs[i-1]
			acronymEnd := unicode.IsUpper(prev) && i+1 < len(rs) && unicode.IsLower(rs[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || acronymEnd {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return out
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	rs := []rune(s)
	rs[0] = unicode.ToUpper(rs[0])
	return string(rs)
}

func indent(s, prefix string) string {
	return prefix + strings.ReplaceAll(s, "\n", "\n"+prefix)
}
