// Package validation checks Code Connect documents against the Figma
// components they point at.
package validation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/spf13/cast"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/gnana997/codeconnect/pkg/connect"
	"github.com/gnana997/codeconnect/pkg/figma"
	"github.com/gnana997/codeconnect/pkg/literal"
)

// ChunkSize is the number of node ids fetched per request.
const ChunkSize = 400

var (
	fileKeyRe = regexp.MustCompile(`(file|design)/([a-zA-Z0-9]+)`)
	guidRe    = regexp.MustCompile(`^I?[0-9]+:[0-9]+(;[0-9]+:[0-9]+)*$`)
)

// BooleanVariantPairs are the option pairs that make a two-option variant
// accept boolean values.
var BooleanVariantPairs = [][2]string{
	{"yes", "no"},
	{"true", "false"},
	{"on", "off"},
}

// FigmaNode identifies a node in a Figma file.
type FigmaNode struct {
	FileKey string
	NodeID  string
}

// Error is a validation failure of one document.
type Error struct {
	Component string
	FigmaNode string
	Reason    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("Validation failed for %s (%s): %s", e.Component, e.FigmaNode, e.Reason)
}

func failure(doc *connect.Document, format string, args ...any) error {
	return &Error{Component: doc.Component, FigmaNode: doc.FigmaNode, Reason: fmt.Sprintf(format, args...)}
}

// ParseFigmaNode extracts the file key and node id from a node URL.
func ParseFigmaNode(raw string) (FigmaNode, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return FigmaNode{}, fmt.Errorf("Failed to parse %s", raw)
	}
	m := fileKeyRe.FindStringSubmatch(u.Path)
	if m == nil {
		return FigmaNode{}, fmt.Errorf("Failed to parse %s", raw)
	}
	nodeID := u.Query().Get("node-id")
	if nodeID == "" {
		return FigmaNode{}, fmt.Errorf("Failed to get node-id from %s", raw)
	}
	id, err := ValidateNodeID(nodeID)
	if err != nil {
		return FigmaNode{}, err
	}
	return FigmaNode{FileKey: m[2], NodeID: id}, nil
}

// ValidateNodeID converts a URL node id ("1-2") to the API form ("1:2") and
// checks it.
func ValidateNodeID(id string) (string, error) {
	converted := strings.Replace(id, "-", ":", 1)
	if !guidRe.MatchString(converted) {
		return "", fmt.Errorf("Invalid figma node URL: the provided node-id %q is invalid", id)
	}
	return converted, nil
}

// ValidateDoc checks doc against the fetched node. Checks run in stages:
// the node itself, then props, then variant restrictions. A failing stage
// stops the later ones.
func ValidateDoc(doc *connect.Document, node *figma.Node, nodeID string) []error {
	if node == nil || node.Document == nil {
		return []error{failure(doc, "node not found in file")}
	}
	if !node.Document.IsComponent() {
		return []error{failure(doc, "corresponding node is not a component or component set")}
	}
	if c, ok := node.Components[nodeID]; ok && c.ComponentSetID != "" {
		return []error{failure(doc, "node is not a top level component or component set. Please check that the node is not a variant")}
	}
	if errs := ValidateProps(doc, node.Document); len(errs) > 0 {
		return errs
	}
	return ValidateVariantRestrictions(doc, node.Document)
}

type propRef struct {
	Kind string `json:"kind"`
	Args struct {
		FigmaPropName string   `json:"figmaPropName"`
		Layers        []string `json:"layers"`
	} `json:"args"`
}

// ValidateProps checks that the layers and properties referenced by the
// document's prop mappings exist on the component.
func ValidateProps(doc *connect.Document, layer *figma.Layer) []error {
	var errs []error
	_ = doc.TemplateData.Props.Each(func(_ string, v literal.Value) error {
		ref, err := decodePropRef(v)
		if err != nil {
			return nil
		}
		switch ref.Kind {
		case "children":
			names := layer.LayerNames()
			for _, want := range ref.Args.Layers {
				if !anyLayerMatches(want, names) {
					errs = append(errs, failure(doc, "The layer %q does not exist on the Figma component", want))
				}
			}
		case "boolean", "enum", "string":
			if findProperty(layer.ComponentPropertyDefinitions, ref.Args.FigmaPropName) == "" {
				errs = append(errs, failure(doc, "The property %q does not exist on the Figma component", ref.Args.FigmaPropName))
			}
		}
		return nil
	})
	return errs
}

// ValidateVariantRestrictions checks that every key of the document's
// variant is a component property, and that variant values are among the
// property's options.
func ValidateVariantRestrictions(doc *connect.Document, layer *figma.Layer) []error {
	var errs []error
	_ = doc.Variant.Each(func(key string, v literal.Value) error {
		match := findProperty(layer.ComponentPropertyDefinitions, key)
		if match == "" {
			errs = append(errs, failure(doc, "The property %q does not exist on the Figma component", key))
			return nil
		}
		def := layer.ComponentPropertyDefinitions[match]
		if def.Type != figma.PropertyVariant {
			return nil
		}
		if !variantAccepts(def.VariantOptions, v) {
			errs = append(errs, failure(doc, "The Figma Variant %q does not have an option for %s", match, cast.ToString(literal.Interface(v))))
		}
		return nil
	})
	return errs
}

// ValidateDocs fetches the nodes of all documents and validates each
// document. The returned error is set when the nodes could not be fetched;
// validation failures are returned in the slice.
func ValidateDocs(ctx context.Context, client figma.Client, docs []*connect.Document, logger *slog.Logger) ([]error, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var failures []error
	byFile := orderedmap.New[string, *orderedmap.OrderedMap[string, []*connect.Document]]()
	for _, doc := range docs {
		n, err := ParseFigmaNode(doc.FigmaNode)
		if err != nil {
			failures = append(failures, err)
			continue
		}
		nodes, ok := byFile.Get(n.FileKey)
		if !ok {
			nodes = orderedmap.New[string, []*connect.Document]()
			byFile.Set(n.FileKey, nodes)
		}
		existing, _ := nodes.Get(n.NodeID)
		nodes.Set(n.NodeID, append(existing, doc))
	}
	if len(failures) > 0 {
		return failures, nil
	}

	for file := byFile.Oldest(); file != nil; file = file.Next() {
		ids := make([]string, 0, file.Value.Len())
		for pair := file.Value.Oldest(); pair != nil; pair = pair.Next() {
			ids = append(ids, pair.Key)
		}
		logger.Debug("validating file", "file", file.Key, "nodes", len(ids))

		for _, chunk := range chunks(ids, ChunkSize) {
			fetched, err := client.Nodes(ctx, file.Key, chunk)
			if err != nil {
				return failures, err
			}
			for _, id := range chunk {
				docsForNode, _ := file.Value.Get(id)
				for _, doc := range docsForNode {
					failures = append(failures, ValidateDoc(doc, fetched[id], id)...)
				}
			}
		}
	}
	return failures, nil
}

func chunks(ids []string, size int) [][]string {
	var out [][]string
	for len(ids) > size {
		out = append(out, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}

func decodePropRef(v literal.Value) (propRef, error) {
	var ref propRef
	data, err := literal.Marshal(v)
	if err != nil {
		return ref, err
	}
	err = json.Unmarshal(data, &ref)
	return ref, err
}

// anyLayerMatches reports whether a layer name starts with pattern. The
// first '*' in pattern matches any run of characters.
func anyLayerMatches(pattern string, names []string) bool {
	parts := strings.SplitN(pattern, "*", 2)
	expr := "^" + regexp.QuoteMeta(parts[0])
	if len(parts) == 2 {
		expr += ".*" + regexp.QuoteMeta(parts[1])
	}
	re := regexp.MustCompile(expr)
	for _, n := range names {
		if re.MatchString(n) {
			return true
		}
	}
	return false
}

// findProperty returns the definition key whose display name is name.
// Non-variant keys have the form "name#id".
func findProperty(defs map[string]figma.PropertyDefinition, name string) string {
	for key, def := range defs {
		if PropertyName(key, def) == name {
			return key
		}
	}
	return ""
}

// PropertyName strips the "#id" suffix of non-variant property keys.
func PropertyName(key string, def figma.PropertyDefinition) string {
	if def.Type == figma.PropertyVariant {
		return key
	}
	if i := strings.LastIndex(key, "#"); i != -1 {
		return key[:i]
	}
	return key
}

func variantAccepts(options []string, v literal.Value) bool {
	raw := literal.Interface(v)
	if s, err := cast.ToStringE(raw); err == nil && contains(options, s) {
		return true
	}
	switch v.(type) {
	case literal.Bool, literal.String:
		// "true" and true both select a yes/no style variant
		if _, err := cast.ToBoolE(raw); err == nil {
			return IsBooleanVariant(options)
		}
	}
	return false
}

// IsBooleanVariant reports whether a variant's two options form one of
// BooleanVariantPairs, in any case and order.
func IsBooleanVariant(options []string) bool {
	if len(options) != 2 {
		return false
	}
	lower := []string{strings.ToLower(options[0]), strings.ToLower(options[1])}
	for _, pair := range BooleanVariantPairs {
		if contains(lower, pair[0]) && contains(lower, pair[1]) {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
